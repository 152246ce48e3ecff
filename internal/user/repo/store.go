// Package repo provides credential-store adapters for the users
// collection. The Store interface is the only persistence surface the
// identity service sees; Mongo and Postgres adapters implement it and
// both rely on store-level unique indexes as the source of truth for
// email / employee-id uniqueness.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/Tammyv123/SwachhBuddy-sub000/internal/user/entity"
)

var (
	ErrNotFound            = errors.New("user not found")
	ErrDuplicateEmail      = errors.New("email already registered")
	ErrDuplicateEmployeeID = errors.New("employee id already registered")
)

// Listing caps. Hard limits, not tunables: listings are projections for
// dashboards, never a bulk-export path.
const (
	MaxListResults        = 100
	MaxSubordinateResults = 50
)

// Store abstracts the user document store. Individual calls are atomic;
// sequences of calls are not, and callers must not assume otherwise.
type Store interface {
	// Create inserts a new user. Returns ErrDuplicateEmail or
	// ErrDuplicateEmployeeID when a unique index rejects the write.
	Create(ctx context.Context, u *entity.User) error

	// GetByID returns the user or ErrNotFound.
	GetByID(ctx context.Context, id string) (*entity.User, error)

	// GetByEmail returns the user with the given normalized email and
	// role, or ErrNotFound.
	GetByEmail(ctx context.Context, email string, role entity.Role) (*entity.User, error)

	// EmailExists reports whether any user of any role holds the email.
	// Advisory only: the unique index on Create is the real guarantee.
	EmailExists(ctx context.Context, email string) (bool, error)

	// SaveSession stores the newly issued refresh token and stamps the
	// last-login time.
	SaveSession(ctx context.Context, id, refreshToken string, at time.Time) error

	// ClearRefreshToken removes any stored refresh token for the user.
	ClearRefreshToken(ctx context.Context, id string) error

	// UpdatePassword replaces the password hash and clears the stored
	// refresh token in the same write.
	UpdatePassword(ctx context.Context, id, passwordHash string) error

	// SetStatus transitions the account state. Moving away from active
	// also clears the stored refresh token.
	SetStatus(ctx context.Context, id string, status entity.Status) error

	// UpdateProfile applies the patch fields that are non-nil.
	UpdateProfile(ctx context.Context, id string, patch *entity.ProfilePatch) error

	// ListCitizensByCity returns up to limit active citizens in a city.
	ListCitizensByCity(ctx context.Context, city string, limit int) ([]*entity.User, error)

	// ListEmployeesByDepartment returns up to limit employees.
	ListEmployeesByDepartment(ctx context.Context, department string, limit int) ([]*entity.User, error)

	// ListEmployeesByArea returns up to limit employees assigned to the
	// named area.
	ListEmployeesByArea(ctx context.Context, areaName string, limit int) ([]*entity.User, error)

	// ListSubordinates returns up to limit employees whose supervisor is
	// the given user.
	ListSubordinates(ctx context.Context, supervisorID string, limit int) ([]*entity.User, error)

	// Stats returns aggregate account counts.
	Stats(ctx context.Context) (*entity.Stats, error)
}
