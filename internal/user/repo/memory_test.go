package repo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tammyv123/SwachhBuddy-sub000/internal/user/entity"
)

func seed(t *testing.T, s *MemoryStore, id, email string, role entity.Role) *entity.User {
	t.Helper()
	u := &entity.User{
		ID:        id,
		Email:     email,
		Role:      role,
		Status:    entity.StatusActive,
		CreatedAt: time.Now(),
	}
	require.NoError(t, s.Create(context.Background(), u))
	return u
}

func TestMemoryStore_DuplicateEmail(t *testing.T) {
	s := NewMemoryStore()
	seed(t, s, "u1", "a@x.com", entity.RoleCitizen)

	dup := &entity.User{ID: "u2", Email: "a@x.com", Role: entity.RoleEmployee}
	err := s.Create(context.Background(), dup)
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	exists, err := s.EmailExists(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMemoryStore_DuplicateEmployeeID(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Create(context.Background(), &entity.User{
		ID: "e1", Email: "e1@x.com", Role: entity.RoleEmployee, EmployeeID: "EMP-1",
	}))
	err := s.Create(context.Background(), &entity.User{
		ID: "e2", Email: "e2@x.com", Role: entity.RoleEmployee, EmployeeID: "EMP-1",
	})
	assert.ErrorIs(t, err, ErrDuplicateEmployeeID)
}

func TestMemoryStore_GetByEmailIsRoleScoped(t *testing.T) {
	s := NewMemoryStore()
	seed(t, s, "u1", "a@x.com", entity.RoleCitizen)

	_, err := s.GetByEmail(context.Background(), "a@x.com", entity.RoleEmployee)
	assert.ErrorIs(t, err, ErrNotFound)

	u, err := s.GetByEmail(context.Background(), "a@x.com", entity.RoleCitizen)
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
}

func TestMemoryStore_ReadsReturnCopies(t *testing.T) {
	s := NewMemoryStore()
	seed(t, s, "u1", "a@x.com", entity.RoleCitizen)

	got, err := s.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	got.Email = "mutated@x.com"

	again, err := s.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", again.Email)
}

func TestMemoryStore_SessionLifecycle(t *testing.T) {
	s := NewMemoryStore()
	seed(t, s, "u1", "a@x.com", entity.RoleCitizen)

	at := time.Now()
	require.NoError(t, s.SaveSession(context.Background(), "u1", "rt-1", at))
	u, err := s.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "rt-1", u.RefreshToken)
	require.NotNil(t, u.LastLoginAt)

	require.NoError(t, s.ClearRefreshToken(context.Background(), "u1"))
	u, err = s.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, u.RefreshToken)

	assert.ErrorIs(t, s.SaveSession(context.Background(), "nope", "rt", at), ErrNotFound)
}

func TestMemoryStore_SetStatusClearsToken(t *testing.T) {
	s := NewMemoryStore()
	seed(t, s, "u1", "a@x.com", entity.RoleEmployee)
	require.NoError(t, s.SaveSession(context.Background(), "u1", "rt-1", time.Now()))

	require.NoError(t, s.SetStatus(context.Background(), "u1", entity.StatusSuspended))
	u, err := s.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusSuspended, u.Status)
	assert.Empty(t, u.RefreshToken)
}

func TestMemoryStore_ListLimit(t *testing.T) {
	s := NewMemoryStore()
	for i, id := range []string{"u1", "u2", "u3"} {
		u := &entity.User{
			ID:        id,
			Email:     id + "@x.com",
			Role:      entity.RoleCitizen,
			Status:    entity.StatusActive,
			Address:   &entity.Address{City: "Pune"},
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, s.Create(context.Background(), u))
	}

	got, err := s.ListCitizensByCity(context.Background(), "Pune", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// newest first
	assert.Equal(t, "u3", got[0].ID)
}
