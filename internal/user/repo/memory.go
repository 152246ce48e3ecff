package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Tammyv123/SwachhBuddy-sub000/internal/user/entity"
)

// MemoryStore is an in-process Store used by tests. It enforces the
// same uniqueness and not-found semantics as the real adapters.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]*entity.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]*entity.User)}
}

func clone(u *entity.User) *entity.User {
	c := *u
	return &c
}

func (s *MemoryStore) Create(_ context.Context, u *entity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return ErrDuplicateEmail
		}
		if u.EmployeeID != "" && existing.EmployeeID == u.EmployeeID {
			return ErrDuplicateEmployeeID
		}
	}
	s.users[u.ID] = clone(u)
	return nil
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (*entity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(u), nil
}

func (s *MemoryStore) GetByEmail(_ context.Context, email string, role entity.Role) (*entity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email && u.Role == role {
			return clone(u), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) EmailExists(_ context.Context, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) mutate(id string, fn func(u *entity.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	fn(u)
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) SaveSession(_ context.Context, id, refreshToken string, at time.Time) error {
	return s.mutate(id, func(u *entity.User) {
		u.RefreshToken = refreshToken
		t := at
		u.LastLoginAt = &t
	})
}

func (s *MemoryStore) ClearRefreshToken(_ context.Context, id string) error {
	return s.mutate(id, func(u *entity.User) { u.RefreshToken = "" })
}

func (s *MemoryStore) UpdatePassword(_ context.Context, id, passwordHash string) error {
	return s.mutate(id, func(u *entity.User) {
		u.PasswordHash = passwordHash
		u.RefreshToken = ""
	})
}

func (s *MemoryStore) SetStatus(_ context.Context, id string, status entity.Status) error {
	return s.mutate(id, func(u *entity.User) {
		u.Status = status
		if status != entity.StatusActive {
			u.RefreshToken = ""
		}
	})
}

func (s *MemoryStore) UpdateProfile(_ context.Context, id string, patch *entity.ProfilePatch) error {
	return s.mutate(id, func(u *entity.User) {
		if patch.FirstName != nil {
			u.FirstName = *patch.FirstName
		}
		if patch.LastName != nil {
			u.LastName = *patch.LastName
		}
		if patch.Phone != nil {
			u.Phone = *patch.Phone
		}
		if patch.Address != nil {
			u.Address = patch.Address
		}
		if patch.Department != nil {
			u.Department = *patch.Department
		}
		if patch.SupervisorID != nil {
			u.SupervisorID = *patch.SupervisorID
		}
		if patch.AssignedArea != nil {
			u.AssignedArea = patch.AssignedArea
		}
	})
}

func (s *MemoryStore) filter(limit int, keep func(u *entity.User) bool) []*entity.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*entity.User
	for _, u := range s.users {
		if keep(u) {
			out = append(out, clone(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *MemoryStore) ListCitizensByCity(_ context.Context, city string, limit int) ([]*entity.User, error) {
	return s.filter(limit, func(u *entity.User) bool {
		return u.Role == entity.RoleCitizen && u.Status == entity.StatusActive &&
			u.Address != nil && u.Address.City == city
	}), nil
}

func (s *MemoryStore) ListEmployeesByDepartment(_ context.Context, department string, limit int) ([]*entity.User, error) {
	return s.filter(limit, func(u *entity.User) bool {
		return u.Role == entity.RoleEmployee && u.Department == department
	}), nil
}

func (s *MemoryStore) ListEmployeesByArea(_ context.Context, areaName string, limit int) ([]*entity.User, error) {
	return s.filter(limit, func(u *entity.User) bool {
		return u.Role == entity.RoleEmployee && u.AssignedArea != nil && u.AssignedArea.Name == areaName
	}), nil
}

func (s *MemoryStore) ListSubordinates(_ context.Context, supervisorID string, limit int) ([]*entity.User, error) {
	return s.filter(limit, func(u *entity.User) bool {
		return u.Role == entity.RoleEmployee && u.SupervisorID == supervisorID
	}), nil
}

func (s *MemoryStore) Stats(_ context.Context) (*entity.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := &entity.Stats{
		ByRole:         map[entity.Role]int64{},
		ByStatus:       map[entity.Status]int64{},
		ByEmployeeType: map[entity.EmployeeType]int64{},
		ByDepartment:   map[string]int64{},
	}
	for _, u := range s.users {
		stats.TotalUsers++
		stats.ByRole[u.Role]++
		stats.ByStatus[u.Status]++
		if u.EmployeeType != "" {
			stats.ByEmployeeType[u.EmployeeType]++
		}
		if u.Department != "" {
			stats.ByDepartment[u.Department]++
		}
	}
	return stats, nil
}
