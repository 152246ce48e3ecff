package utilities

import (
	"os"
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

// NewUserID generates the primary key for a user record. KSUIDs are
// k-sortable so recently created accounts cluster in index order.
func NewUserID() string {
	return ksuid.New().String()
}

var (
	nodeOnce sync.Once
	node     *snowflake.Node
)

// NewTokenID generates the jti claim for issued tokens. The snowflake
// node ID comes from SNOWFLAKE_NODE (default 1); if node construction
// fails it falls back to a KSUID so a unique ID is always returned.
func NewTokenID() string {
	nodeOnce.Do(func() {
		nodeID := int64(1)
		if env := os.Getenv("SNOWFLAKE_NODE"); env != "" {
			if parsed, err := strconv.ParseInt(env, 10, 64); err == nil {
				nodeID = parsed
			}
		}
		node, _ = snowflake.NewNode(nodeID)
	})
	if node == nil {
		return ksuid.New().String()
	}
	return node.Generate().String()
}
