// Package user implements the identity service: account lifecycle,
// login/logout, refresh-token rotation, profile management and the
// role-scoped listing projections.
package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Tammyv123/SwachhBuddy-sub000/internal/apperr"
	"github.com/Tammyv123/SwachhBuddy-sub000/internal/auth"
	"github.com/Tammyv123/SwachhBuddy-sub000/internal/user/entity"
	"github.com/Tammyv123/SwachhBuddy-sub000/internal/user/repo"
	"github.com/Tammyv123/SwachhBuddy-sub000/pkg/utilities"
)

// storeTimeout bounds every store round trip so a stalled backend
// surfaces as a retryable dependency error instead of a hung request.
const storeTimeout = 5 * time.Second

// IdentityService orchestrates the credential store, the token service
// and the password hasher. It holds no per-request state.
type IdentityService struct {
	store  repo.Store
	tokens *auth.TokenService
	hasher auth.PasswordHasher
	logger *zap.SugaredLogger
	now    func() time.Time
}

func NewIdentityService(store repo.Store, tokens *auth.TokenService, hasher auth.PasswordHasher, logger *zap.SugaredLogger) *IdentityService {
	return &IdentityService{
		store:  store,
		tokens: tokens,
		hasher: hasher,
		logger: logger,
		now:    time.Now,
	}
}

// AuthResult is what register/login hand back: the sanitized user and
// the freshly issued pair.
type AuthResult struct {
	User   *entity.PublicUser `json:"user"`
	Tokens auth.TokenPair     `json:"tokens"`
}

type RegisterCitizenInput struct {
	Email     string          `json:"email"`
	Password  string          `json:"password"`
	FirstName string          `json:"firstName"`
	LastName  string          `json:"lastName"`
	Phone     string          `json:"phone"`
	Address   *entity.Address `json:"address"`
}

type RegisterEmployeeInput struct {
	Email        string               `json:"email"`
	Password     string               `json:"password"`
	FirstName    string               `json:"firstName"`
	LastName     string               `json:"lastName"`
	Phone        string               `json:"phone"`
	EmployeeID   string               `json:"employeeId"`
	EmployeeType entity.EmployeeType  `json:"employeeType"`
	Department   string               `json:"department"`
	SupervisorID string               `json:"supervisorId"`
	AssignedArea *entity.AssignedArea `json:"assignedArea"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, storeTimeout)
}

// RegisterCitizen creates an active citizen account, issues a token
// pair and persists the refresh token on the record.
func (s *IdentityService) RegisterCitizen(ctx context.Context, in RegisterCitizenInput) (*AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	var missing []string
	if in.Email == "" {
		missing = append(missing, "email")
	}
	if in.Password == "" {
		missing = append(missing, "password")
	}
	if in.FirstName == "" {
		missing = append(missing, "firstName")
	}
	if in.LastName == "" {
		missing = append(missing, "lastName")
	}
	if len(missing) > 0 {
		return nil, apperr.Validation("missing required fields", missing...)
	}
	if err := auth.ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	u := &entity.User{
		ID:        utilities.NewUserID(),
		Email:     in.Email,
		Role:      entity.RoleCitizen,
		Status:    entity.StatusActive,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Phone:     in.Phone,
		Address:   in.Address,
	}
	return s.create(ctx, u, in.Password)
}

// RegisterEmployee additionally enforces employee-id uniqueness and the
// supervisor invariant.
func (s *IdentityService) RegisterEmployee(ctx context.Context, in RegisterEmployeeInput) (*AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	var missing []string
	if in.Email == "" {
		missing = append(missing, "email")
	}
	if in.Password == "" {
		missing = append(missing, "password")
	}
	if in.FirstName == "" {
		missing = append(missing, "firstName")
	}
	if in.LastName == "" {
		missing = append(missing, "lastName")
	}
	if in.EmployeeID == "" {
		missing = append(missing, "employeeId")
	}
	if in.Department == "" {
		missing = append(missing, "department")
	}
	if in.EmployeeType == "" {
		missing = append(missing, "employeeType")
	}
	if len(missing) > 0 {
		return nil, apperr.Validation("missing required fields", missing...)
	}
	switch in.EmployeeType {
	case entity.EmployeeWasteCollector, entity.EmployeeSupervisor, entity.EmployeeAdmin, entity.EmployeeDriver:
	default:
		return nil, apperr.Validation("unknown employee type", "employeeType")
	}
	if err := auth.ValidatePassword(in.Password); err != nil {
		return nil, err
	}
	if in.SupervisorID != "" {
		if err := s.checkSupervisor(ctx, in.SupervisorID); err != nil {
			return nil, err
		}
	}

	u := &entity.User{
		ID:           utilities.NewUserID(),
		Email:        in.Email,
		Role:         entity.RoleEmployee,
		Status:       entity.StatusActive,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Phone:        in.Phone,
		EmployeeID:   in.EmployeeID,
		EmployeeType: in.EmployeeType,
		Department:   in.Department,
		SupervisorID: in.SupervisorID,
		AssignedArea: in.AssignedArea,
	}
	return s.create(ctx, u, in.Password)
}

// checkSupervisor enforces that a supervisor reference resolves to an
// employee whose type authorizes supervision. Best-effort: the check
// and the subsequent write are not one transaction.
func (s *IdentityService) checkSupervisor(ctx context.Context, supervisorID string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	sup, err := s.store.GetByID(ctx, supervisorID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return apperr.Validation("supervisor not found", "supervisorId")
		}
		return apperr.Dependency("user store unavailable", err)
	}
	if sup.Role != entity.RoleEmployee || !sup.EmployeeType.CanSupervise() {
		return apperr.Validation("supervisor must be a supervisor or admin employee", "supervisorId")
	}
	return nil
}

func (s *IdentityService) create(ctx context.Context, u *entity.User, password string) (*AuthResult, error) {
	// Advisory duplicate pre-check, a fast friendly error. The unique
	// index behind Create is the guarantee under concurrent writes.
	{
		ctx, cancel := withTimeout(ctx)
		exists, err := s.store.EmailExists(ctx, u.Email)
		cancel()
		if err != nil {
			return nil, apperr.Dependency("user store unavailable", err)
		}
		if exists {
			return nil, apperr.Duplicate("email")
		}
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, apperr.Dependency("password hashing failed", err)
	}
	u.PasswordHash = hash
	now := s.now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	{
		ctx, cancel := withTimeout(ctx)
		err := s.store.Create(ctx, u)
		cancel()
		switch {
		case errors.Is(err, repo.ErrDuplicateEmail):
			return nil, apperr.Duplicate("email")
		case errors.Is(err, repo.ErrDuplicateEmployeeID):
			return nil, apperr.Duplicate("employeeId")
		case err != nil:
			return nil, apperr.Dependency("user store unavailable", err)
		}
	}
	return s.startSession(ctx, u)
}

// startSession issues a pair, persists the refresh token and stamps the
// login time. Shared tail of register, login and refresh.
func (s *IdentityService) startSession(ctx context.Context, u *entity.User) (*AuthResult, error) {
	pair, err := s.tokens.IssuePair(u)
	if err != nil {
		return nil, err
	}
	at := s.now().UTC()
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	if err := s.store.SaveSession(ctx, u.ID, pair.RefreshToken, at); err != nil {
		return nil, apperr.Dependency("user store unavailable", err)
	}
	u.RefreshToken = pair.RefreshToken
	u.LastLoginAt = &at

	pub := u.Public()
	if u.Role == entity.RoleEmployee && u.SupervisorID != "" {
		pub.Supervisor = s.supervisorSummary(ctx, u.SupervisorID)
	}
	return &AuthResult{User: pub, Tokens: pair}, nil
}

// Login authenticates a user of the expected role. "No such user" and
// "wrong password" are indistinguishable to the caller.
func (s *IdentityService) Login(ctx context.Context, email, password string, role entity.Role) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperr.Validation("email and password are required")
	}

	lookupCtx, cancel := withTimeout(ctx)
	u, err := s.store.GetByEmail(lookupCtx, email, role)
	cancel()
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperr.InvalidCredentials()
		}
		return nil, apperr.Dependency("user store unavailable", err)
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return nil, apperr.InvalidCredentials()
	}
	if !u.IsActive() {
		return nil, apperr.AccountState("account is " + string(u.Status))
	}
	return s.startSession(ctx, u)
}

// Logout clears the stored refresh token. Best-effort by design: the
// caller clears cookies regardless, so a store failure is logged and
// swallowed.
func (s *IdentityService) Logout(ctx context.Context, userID string) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	if err := s.store.ClearRefreshToken(ctx, userID); err != nil && !errors.Is(err, repo.ErrNotFound) {
		s.logger.Warnw("logout: clearing refresh token failed", "userId", userID, "err", err)
	}
}

// Refresh rotates a refresh token: it must verify, the user must exist
// and be active, and the stored token must equal the presented one.
// Any superseded token is rejected here.
func (s *IdentityService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, apperr.Validation("refresh token is required")
	}
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	lookupCtx, cancel := withTimeout(ctx)
	u, err := s.store.GetByID(lookupCtx, claims.UserID)
	cancel()
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperr.InvalidToken(nil)
		}
		return nil, apperr.Dependency("user store unavailable", err)
	}
	if !u.IsActive() {
		return nil, apperr.AccountState("account is " + string(u.Status))
	}
	if u.RefreshToken == "" || u.RefreshToken != refreshToken {
		// Reuse of a rotated or revoked token.
		return nil, apperr.InvalidToken(nil)
	}
	return s.startSession(ctx, u)
}

// GetProfile returns the sanitized profile of an active user.
func (s *IdentityService) GetProfile(ctx context.Context, userID string) (*entity.PublicUser, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	u, err := s.store.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperr.NotFound("user")
		}
		return nil, apperr.Dependency("user store unavailable", err)
	}
	if !u.IsActive() {
		return nil, apperr.NotFound("user")
	}
	pub := u.Public()
	if u.Role == entity.RoleEmployee && u.SupervisorID != "" {
		pub.Supervisor = s.supervisorSummary(ctx, u.SupervisorID)
	}
	return pub, nil
}

func (s *IdentityService) supervisorSummary(ctx context.Context, supervisorID string) *entity.SupervisorSummary {
	sup, err := s.store.GetByID(ctx, supervisorID)
	if err != nil {
		s.logger.Debugw("supervisor lookup failed", "supervisorId", supervisorID, "err", err)
		return nil
	}
	return entity.SummaryOf(sup)
}

// UpdateProfile applies a patch to the caller's profile. Identity and
// credential fields cannot travel this path; role-foreign fields are
// silently dropped rather than rejected.
func (s *IdentityService) UpdateProfile(ctx context.Context, userID string, patch entity.ProfilePatch) (*entity.PublicUser, error) {
	lookupCtx, cancel := withTimeout(ctx)
	u, err := s.store.GetByID(lookupCtx, userID)
	cancel()
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperr.NotFound("user")
		}
		return nil, apperr.Dependency("user store unavailable", err)
	}
	if !u.IsActive() {
		return nil, apperr.AccountState("account is " + string(u.Status))
	}

	switch u.Role {
	case entity.RoleCitizen:
		patch.Department = nil
		patch.SupervisorID = nil
		patch.AssignedArea = nil
	case entity.RoleEmployee:
		patch.Address = nil
	}
	if patch.SupervisorID != nil && *patch.SupervisorID != "" && *patch.SupervisorID != u.SupervisorID {
		if err := s.checkSupervisor(ctx, *patch.SupervisorID); err != nil {
			return nil, err
		}
	}

	if !patch.Empty() {
		updateCtx, cancel := withTimeout(ctx)
		err = s.store.UpdateProfile(updateCtx, userID, &patch)
		cancel()
		if err != nil {
			return nil, apperr.Dependency("user store unavailable", err)
		}
	}
	return s.GetProfile(ctx, userID)
}

// ChangePassword verifies the current password, enforces the strength
// policy on the new one, and invalidates the stored refresh token so
// every outstanding session must log in again.
func (s *IdentityService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if currentPassword == "" || newPassword == "" {
		return apperr.Validation("current and new password are required")
	}
	lookupCtx, cancel := withTimeout(ctx)
	u, err := s.store.GetByID(lookupCtx, userID)
	cancel()
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return apperr.NotFound("user")
		}
		return apperr.Dependency("user store unavailable", err)
	}
	if !u.IsActive() {
		return apperr.AccountState("account is " + string(u.Status))
	}
	if !s.hasher.Verify(u.PasswordHash, currentPassword) {
		return apperr.New(apperr.KindInvalidCredentials, "current password is incorrect")
	}
	if err := auth.ValidatePassword(newPassword); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperr.Dependency("password hashing failed", err)
	}
	updateCtx, cancel := withTimeout(ctx)
	defer cancel()
	if err := s.store.UpdatePassword(updateCtx, userID, hash); err != nil {
		return apperr.Dependency("user store unavailable", err)
	}
	return nil
}

// DeactivateAccount is the citizen self-service soft delete. There is
// no self-service path back out of inactive. Idempotent.
func (s *IdentityService) DeactivateAccount(ctx context.Context, userID string) error {
	return s.setStatus(ctx, userID, entity.StatusInactive, "")
}

// SuspendEmployee suspends an employee account and kills any
// outstanding session. Idempotent.
func (s *IdentityService) SuspendEmployee(ctx context.Context, employeeUserID string) error {
	return s.setStatus(ctx, employeeUserID, entity.StatusSuspended, entity.RoleEmployee)
}

// ReactivateEmployee is the only transition out of suspended/inactive,
// and exists for employees only.
func (s *IdentityService) ReactivateEmployee(ctx context.Context, employeeUserID string) error {
	return s.setStatus(ctx, employeeUserID, entity.StatusActive, entity.RoleEmployee)
}

func (s *IdentityService) setStatus(ctx context.Context, userID string, status entity.Status, requireRole entity.Role) error {
	lookupCtx, cancel := withTimeout(ctx)
	u, err := s.store.GetByID(lookupCtx, userID)
	cancel()
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return apperr.NotFound("user")
		}
		return apperr.Dependency("user store unavailable", err)
	}
	if requireRole != "" && u.Role != requireRole {
		return apperr.NotFound("employee")
	}
	if u.Status == status {
		return nil
	}
	updateCtx, cancel := withTimeout(ctx)
	defer cancel()
	if err := s.store.SetStatus(updateCtx, userID, status); err != nil {
		return apperr.Dependency("user store unavailable", err)
	}
	return nil
}

// ListCitizensByCity returns up to 100 active citizens in a city.
func (s *IdentityService) ListCitizensByCity(ctx context.Context, city string) ([]*entity.PublicUser, error) {
	if strings.TrimSpace(city) == "" {
		return nil, apperr.Validation("city is required", "city")
	}
	return s.list(ctx, func(ctx context.Context) ([]*entity.User, error) {
		return s.store.ListCitizensByCity(ctx, city, repo.MaxListResults)
	})
}

// ListEmployeesByDepartment returns up to 100 employees.
func (s *IdentityService) ListEmployeesByDepartment(ctx context.Context, department string) ([]*entity.PublicUser, error) {
	if strings.TrimSpace(department) == "" {
		return nil, apperr.Validation("department is required", "department")
	}
	return s.list(ctx, func(ctx context.Context) ([]*entity.User, error) {
		return s.store.ListEmployeesByDepartment(ctx, department, repo.MaxListResults)
	})
}

// ListEmployeesByArea returns up to 100 employees assigned to an area.
func (s *IdentityService) ListEmployeesByArea(ctx context.Context, areaName string) ([]*entity.PublicUser, error) {
	if strings.TrimSpace(areaName) == "" {
		return nil, apperr.Validation("area is required", "area")
	}
	return s.list(ctx, func(ctx context.Context) ([]*entity.User, error) {
		return s.store.ListEmployeesByArea(ctx, areaName, repo.MaxListResults)
	})
}

// ListSubordinates returns up to 50 employees reporting to the given
// supervisor.
func (s *IdentityService) ListSubordinates(ctx context.Context, supervisorID string) ([]*entity.PublicUser, error) {
	if supervisorID == "" {
		return nil, apperr.Validation("supervisor id is required", "supervisorId")
	}
	return s.list(ctx, func(ctx context.Context) ([]*entity.User, error) {
		return s.store.ListSubordinates(ctx, supervisorID, repo.MaxSubordinateResults)
	})
}

func (s *IdentityService) list(ctx context.Context, query func(ctx context.Context) ([]*entity.User, error)) ([]*entity.PublicUser, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	users, err := query(ctx)
	if err != nil {
		return nil, apperr.Dependency("user store unavailable", err)
	}
	out := make([]*entity.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out, nil
}

// Stats returns aggregate account counts.
func (s *IdentityService) Stats(ctx context.Context) (*entity.Stats, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, apperr.Dependency("user store unavailable", err)
	}
	return stats, nil
}
