package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Tammyv123/SwachhBuddy-sub000/internal/user/entity"
)

const usersCollection = "users"

// MongoStore is the document-store adapter, the default backend.
type MongoStore struct {
	users *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{users: db.Collection(usersCollection)}
}

// EnsureIndexes creates the unique indexes this core relies on. The
// email index is global; employee_id is unique only where present
// (citizens have no employee_id field at all). Idempotent.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("uniq_email").SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "employee_id", Value: 1}},
			Options: options.Index().
				SetName("uniq_employee_id").
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "employee_id", Value: bson.D{{Key: "$exists", Value: true}}}}),
		},
		{
			Keys:    bson.D{{Key: "supervisor_id", Value: 1}},
			Options: options.Index().SetName("idx_supervisor"),
		},
	})
	return err
}

// mapWriteError converts a duplicate-key error into the store sentinel
// for whichever unique index rejected the write.
func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		if strings.Contains(err.Error(), "uniq_employee_id") {
			return ErrDuplicateEmployeeID
		}
		return ErrDuplicateEmail
	}
	return err
}

func (s *MongoStore) Create(ctx context.Context, u *entity.User) error {
	_, err := s.users.InsertOne(ctx, u)
	return mapWriteError(err)
}

func (s *MongoStore) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *MongoStore) GetByEmail(ctx context.Context, email string, role entity.Role) (*entity.User, error) {
	return s.findOne(ctx, bson.M{"email": email, "role": role})
}

func (s *MongoStore) EmailExists(ctx context.Context, email string) (bool, error) {
	n, err := s.users.CountDocuments(ctx, bson.M{"email": email}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.M) (*entity.User, error) {
	var u entity.User
	if err := s.users.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *MongoStore) SaveSession(ctx context.Context, id, refreshToken string, at time.Time) error {
	return s.updateOne(ctx, id, bson.M{
		"$set": bson.M{
			"refresh_token": refreshToken,
			"last_login_at": at,
			"updated_at":    at,
		},
	})
}

func (s *MongoStore) ClearRefreshToken(ctx context.Context, id string) error {
	return s.updateOne(ctx, id, bson.M{
		"$unset": bson.M{"refresh_token": ""},
		"$set":   bson.M{"updated_at": time.Now().UTC()},
	})
}

func (s *MongoStore) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return s.updateOne(ctx, id, bson.M{
		"$set":   bson.M{"password_hash": passwordHash, "updated_at": time.Now().UTC()},
		"$unset": bson.M{"refresh_token": ""},
	})
}

func (s *MongoStore) SetStatus(ctx context.Context, id string, status entity.Status) error {
	update := bson.M{
		"$set": bson.M{"status": status, "updated_at": time.Now().UTC()},
	}
	if status != entity.StatusActive {
		update["$unset"] = bson.M{"refresh_token": ""}
	}
	return s.updateOne(ctx, id, update)
}

func (s *MongoStore) UpdateProfile(ctx context.Context, id string, patch *entity.ProfilePatch) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if patch.FirstName != nil {
		set["first_name"] = *patch.FirstName
	}
	if patch.LastName != nil {
		set["last_name"] = *patch.LastName
	}
	if patch.Phone != nil {
		set["phone"] = *patch.Phone
	}
	if patch.Address != nil {
		set["address"] = patch.Address
	}
	if patch.Department != nil {
		set["department"] = *patch.Department
	}
	if patch.SupervisorID != nil {
		set["supervisor_id"] = *patch.SupervisorID
	}
	if patch.AssignedArea != nil {
		set["assigned_area"] = patch.AssignedArea
	}
	return s.updateOne(ctx, id, bson.M{"$set": set})
}

func (s *MongoStore) updateOne(ctx context.Context, id string, update bson.M) error {
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) ListCitizensByCity(ctx context.Context, city string, limit int) ([]*entity.User, error) {
	return s.find(ctx, bson.M{
		"role":         entity.RoleCitizen,
		"status":       entity.StatusActive,
		"address.city": city,
	}, limit)
}

func (s *MongoStore) ListEmployeesByDepartment(ctx context.Context, department string, limit int) ([]*entity.User, error) {
	return s.find(ctx, bson.M{
		"role":       entity.RoleEmployee,
		"department": department,
	}, limit)
}

func (s *MongoStore) ListEmployeesByArea(ctx context.Context, areaName string, limit int) ([]*entity.User, error) {
	return s.find(ctx, bson.M{
		"role":               entity.RoleEmployee,
		"assigned_area.name": areaName,
	}, limit)
}

func (s *MongoStore) ListSubordinates(ctx context.Context, supervisorID string, limit int) ([]*entity.User, error) {
	return s.find(ctx, bson.M{
		"role":          entity.RoleEmployee,
		"supervisor_id": supervisorID,
	}, limit)
}

func (s *MongoStore) find(ctx context.Context, filter bson.M, limit int) ([]*entity.User, error) {
	opts := options.Find().
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.users.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*entity.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) Stats(ctx context.Context) (*entity.Stats, error) {
	stats := &entity.Stats{
		ByRole:         map[entity.Role]int64{},
		ByStatus:       map[entity.Status]int64{},
		ByEmployeeType: map[entity.EmployeeType]int64{},
		ByDepartment:   map[string]int64{},
	}

	total, err := s.users.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	stats.TotalUsers = total

	type group struct {
		field string
		apply func(key string, n int64)
	}
	groups := []group{
		{"$role", func(k string, n int64) { stats.ByRole[entity.Role(k)] = n }},
		{"$status", func(k string, n int64) { stats.ByStatus[entity.Status(k)] = n }},
		{"$employee_type", func(k string, n int64) { stats.ByEmployeeType[entity.EmployeeType(k)] = n }},
		{"$department", func(k string, n int64) { stats.ByDepartment[k] = n }},
	}
	for _, g := range groups {
		cur, err := s.users.Aggregate(ctx, mongo.Pipeline{
			{{Key: "$group", Value: bson.D{
				{Key: "_id", Value: g.field},
				{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
			}}},
		})
		if err != nil {
			return nil, err
		}
		var rows []struct {
			Key   *string `bson:"_id"`
			Count int64   `bson:"count"`
		}
		if err := cur.All(ctx, &rows); err != nil {
			return nil, err
		}
		for _, r := range rows {
			if r.Key == nil || *r.Key == "" {
				continue
			}
			g.apply(*r.Key, r.Count)
		}
	}
	return stats, nil
}
