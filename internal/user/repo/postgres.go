package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Tammyv123/SwachhBuddy-sub000/internal/user/entity"
)

// PostgresStore is the relational adapter. The flexible profile parts
// (address, assigned area) are kept as JSONB documents so the two
// adapters store the same shapes.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore { return &PostgresStore{db: db} }

// EnsureTable creates the users table if not exists (idempotent).
// Convenience for early development; prefer migrations in production.
func (s *PostgresStore) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE EXTENSION IF NOT EXISTS citext;
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email CITEXT NOT NULL,
  password_hash TEXT NOT NULL,
  refresh_token TEXT,
  role TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  first_name TEXT NOT NULL DEFAULT '',
  last_name TEXT NOT NULL DEFAULT '',
  phone TEXT,
  address JSONB,
  employee_id TEXT,
  employee_type TEXT,
  department TEXT,
  supervisor_id TEXT,
  assigned_area JSONB,
  email_verified BOOLEAN NOT NULL DEFAULT false,
  last_login_at TIMESTAMPTZ,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS uniq_users_email ON users(email);
CREATE UNIQUE INDEX IF NOT EXISTS uniq_users_employee_id ON users(employee_id) WHERE employee_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_users_supervisor ON users(supervisor_id);
CREATE INDEX IF NOT EXISTS idx_users_department ON users(department);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// userRow mirrors the table; JSONB columns land in raw bytes first.
type userRow struct {
	ID            string         `db:"id"`
	Email         string         `db:"email"`
	PasswordHash  string         `db:"password_hash"`
	RefreshToken  sql.NullString `db:"refresh_token"`
	Role          string         `db:"role"`
	Status        string         `db:"status"`
	FirstName     string         `db:"first_name"`
	LastName      string         `db:"last_name"`
	Phone         sql.NullString `db:"phone"`
	Address       []byte         `db:"address"`
	EmployeeID    sql.NullString `db:"employee_id"`
	EmployeeType  sql.NullString `db:"employee_type"`
	Department    sql.NullString `db:"department"`
	SupervisorID  sql.NullString `db:"supervisor_id"`
	AssignedArea  []byte         `db:"assigned_area"`
	EmailVerified bool           `db:"email_verified"`
	LastLoginAt   *time.Time     `db:"last_login_at"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

const userColumns = `id, email, password_hash, refresh_token, role, status,
  first_name, last_name, phone, address, employee_id, employee_type,
  department, supervisor_id, assigned_area, email_verified, last_login_at,
  created_at, updated_at`

func (r *userRow) toEntity() (*entity.User, error) {
	u := &entity.User{
		ID:            r.ID,
		Email:         r.Email,
		PasswordHash:  r.PasswordHash,
		RefreshToken:  r.RefreshToken.String,
		Role:          entity.Role(r.Role),
		Status:        entity.Status(r.Status),
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		Phone:         r.Phone.String,
		EmployeeID:    r.EmployeeID.String,
		EmployeeType:  entity.EmployeeType(r.EmployeeType.String),
		Department:    r.Department.String,
		SupervisorID:  r.SupervisorID.String,
		EmailVerified: r.EmailVerified,
		LastLoginAt:   r.LastLoginAt,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if len(r.Address) > 0 {
		var a entity.Address
		if err := json.Unmarshal(r.Address, &a); err != nil {
			return nil, err
		}
		u.Address = &a
	}
	if len(r.AssignedArea) > 0 {
		var a entity.AssignedArea
		if err := json.Unmarshal(r.AssignedArea, &a); err != nil {
			return nil, err
		}
		u.AssignedArea = &a
	}
	return u, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func jsonbOrNil(v any, isNil bool) (any, error) {
	if isNil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *PostgresStore) Create(ctx context.Context, u *entity.User) error {
	addr, err := jsonbOrNil(u.Address, u.Address == nil)
	if err != nil {
		return err
	}
	area, err := jsonbOrNil(u.AssignedArea, u.AssignedArea == nil)
	if err != nil {
		return err
	}
	const q = `INSERT INTO users (id, email, password_hash, role, status, first_name, last_name,
      phone, address, employee_id, employee_type, department, supervisor_id, assigned_area,
      email_verified, created_at, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`
	_, err = s.db.ExecContext(ctx, q,
		u.ID, u.Email, u.PasswordHash, u.Role, u.Status, u.FirstName, u.LastName,
		nullable(u.Phone), addr, nullable(u.EmployeeID), nullable(string(u.EmployeeType)),
		nullable(u.Department), nullable(u.SupervisorID), area,
		u.EmailVerified, u.CreatedAt, u.UpdatedAt)
	return mapPgError(err)
}

func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		switch pqErr.Constraint {
		case "uniq_users_employee_id":
			return ErrDuplicateEmployeeID
		default:
			return ErrDuplicateEmail
		}
	}
	return err
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func (s *PostgresStore) GetByEmail(ctx context.Context, email string, role entity.Role) (*entity.User, error) {
	return s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1 AND role=$2`, email, string(role))
}

func (s *PostgresStore) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	if err := s.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM users WHERE email=$1)`, email); err != nil {
		return false, err
	}
	return exists, nil
}

func (s *PostgresStore) getOne(ctx context.Context, q string, args ...any) (*entity.User, error) {
	var row userRow
	if err := s.db.GetContext(ctx, &row, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return row.toEntity()
}

func (s *PostgresStore) SaveSession(ctx context.Context, id, refreshToken string, at time.Time) error {
	const q = `UPDATE users SET refresh_token=$2, last_login_at=$3, updated_at=NOW() WHERE id=$1`
	return s.exec(ctx, q, id, refreshToken, at)
}

func (s *PostgresStore) ClearRefreshToken(ctx context.Context, id string) error {
	const q = `UPDATE users SET refresh_token=NULL, updated_at=NOW() WHERE id=$1`
	return s.exec(ctx, q, id)
}

func (s *PostgresStore) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const q = `UPDATE users SET password_hash=$2, refresh_token=NULL, updated_at=NOW() WHERE id=$1`
	return s.exec(ctx, q, id, passwordHash)
}

func (s *PostgresStore) SetStatus(ctx context.Context, id string, status entity.Status) error {
	if status != entity.StatusActive {
		const q = `UPDATE users SET status=$2, refresh_token=NULL, updated_at=NOW() WHERE id=$1`
		return s.exec(ctx, q, id, string(status))
	}
	const q = `UPDATE users SET status=$2, updated_at=NOW() WHERE id=$1`
	return s.exec(ctx, q, id, string(status))
}

func (s *PostgresStore) UpdateProfile(ctx context.Context, id string, patch *entity.ProfilePatch) error {
	// Build the SET list from present fields only.
	set := "updated_at=NOW()"
	args := []any{id}
	add := func(col string, v any) {
		args = append(args, v)
		set += fmt.Sprintf(", %s=$%d", col, len(args))
	}
	if patch.FirstName != nil {
		add("first_name", *patch.FirstName)
	}
	if patch.LastName != nil {
		add("last_name", *patch.LastName)
	}
	if patch.Phone != nil {
		add("phone", nullable(*patch.Phone))
	}
	if patch.Address != nil {
		b, err := json.Marshal(patch.Address)
		if err != nil {
			return err
		}
		add("address", b)
	}
	if patch.Department != nil {
		add("department", nullable(*patch.Department))
	}
	if patch.SupervisorID != nil {
		add("supervisor_id", nullable(*patch.SupervisorID))
	}
	if patch.AssignedArea != nil {
		b, err := json.Marshal(patch.AssignedArea)
		if err != nil {
			return err
		}
		add("assigned_area", b)
	}
	return s.exec(ctx, "UPDATE users SET "+set+" WHERE id=$1", args...)
}

func (s *PostgresStore) exec(ctx context.Context, q string, args ...any) error {
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListCitizensByCity(ctx context.Context, city string, limit int) ([]*entity.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users
	  WHERE role='citizen' AND status='active' AND address->>'city'=$1
	  ORDER BY created_at DESC LIMIT $2`
	return s.list(ctx, q, city, limit)
}

func (s *PostgresStore) ListEmployeesByDepartment(ctx context.Context, department string, limit int) ([]*entity.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users
	  WHERE role='employee' AND department=$1
	  ORDER BY created_at DESC LIMIT $2`
	return s.list(ctx, q, department, limit)
}

func (s *PostgresStore) ListEmployeesByArea(ctx context.Context, areaName string, limit int) ([]*entity.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users
	  WHERE role='employee' AND assigned_area->>'name'=$1
	  ORDER BY created_at DESC LIMIT $2`
	return s.list(ctx, q, areaName, limit)
}

func (s *PostgresStore) ListSubordinates(ctx context.Context, supervisorID string, limit int) ([]*entity.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users
	  WHERE role='employee' AND supervisor_id=$1
	  ORDER BY created_at DESC LIMIT $2`
	return s.list(ctx, q, supervisorID, limit)
}

func (s *PostgresStore) list(ctx context.Context, q string, arg any, limit int) ([]*entity.User, error) {
	var rows []userRow
	if err := s.db.SelectContext(ctx, &rows, q, arg, limit); err != nil {
		return nil, err
	}
	out := make([]*entity.User, 0, len(rows))
	for i := range rows {
		u, err := rows[i].toEntity()
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

func (s *PostgresStore) Stats(ctx context.Context) (*entity.Stats, error) {
	stats := &entity.Stats{
		ByRole:         map[entity.Role]int64{},
		ByStatus:       map[entity.Status]int64{},
		ByEmployeeType: map[entity.EmployeeType]int64{},
		ByDepartment:   map[string]int64{},
	}
	if err := s.db.GetContext(ctx, &stats.TotalUsers, `SELECT COUNT(*) FROM users`); err != nil {
		return nil, err
	}
	type bucket struct {
		Key   sql.NullString `db:"key"`
		Count int64          `db:"count"`
	}
	counts := []struct {
		q     string
		apply func(key string, n int64)
	}{
		{`SELECT role AS key, COUNT(*) AS count FROM users GROUP BY role`,
			func(k string, n int64) { stats.ByRole[entity.Role(k)] = n }},
		{`SELECT status AS key, COUNT(*) AS count FROM users GROUP BY status`,
			func(k string, n int64) { stats.ByStatus[entity.Status(k)] = n }},
		{`SELECT employee_type AS key, COUNT(*) AS count FROM users WHERE employee_type IS NOT NULL GROUP BY employee_type`,
			func(k string, n int64) { stats.ByEmployeeType[entity.EmployeeType(k)] = n }},
		{`SELECT department AS key, COUNT(*) AS count FROM users WHERE department IS NOT NULL GROUP BY department`,
			func(k string, n int64) { stats.ByDepartment[k] = n }},
	}
	for _, c := range counts {
		var rows []bucket
		if err := s.db.SelectContext(ctx, &rows, c.q); err != nil {
			return nil, err
		}
		for _, r := range rows {
			if !r.Key.Valid || r.Key.String == "" {
				continue
			}
			c.apply(r.Key.String, r.Count)
		}
	}
	return stats, nil
}
