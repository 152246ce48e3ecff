package user

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/Tammyv123/SwachhBuddy-sub000/internal/apperr"
	"github.com/Tammyv123/SwachhBuddy-sub000/internal/auth"
	"github.com/Tammyv123/SwachhBuddy-sub000/internal/user/entity"
)

// Handler maps identity operations onto the platform's response
// envelope: {success, message, data}. It owns cookie writes; all
// business rules live in the service.
type Handler struct {
	svc     *IdentityService
	cookies *auth.CookieManager
	logger  *zap.SugaredLogger
}

func NewHandler(svc *IdentityService, cookies *auth.CookieManager, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, cookies: cookies, logger: logger}
}

type envelope struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Data    any      `json:"data,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) ok(w http.ResponseWriter, status int, message string, data any) {
	h.writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Errorw("request failed", "err", err)
	} else {
		h.logger.Debugw("request rejected", "err", err)
	}
	h.writeJSON(w, status, envelope{
		Success: false,
		Message: apperr.Message(err),
		Errors:  apperr.FieldsOf(err),
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.fail(w, apperr.Validation("invalid request body"))
		return false
	}
	return true
}

// RegisterCitizen handles POST /auth/citizen/register.
func (h *Handler) RegisterCitizen(w http.ResponseWriter, r *http.Request) {
	var in RegisterCitizenInput
	if !h.decode(w, r, &in) {
		return
	}
	res, err := h.svc.RegisterCitizen(r.Context(), in)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.cookies.Write(w, res.Tokens)
	h.ok(w, http.StatusCreated, "registration successful", res)
}

// RegisterEmployee handles POST /auth/employee/register.
func (h *Handler) RegisterEmployee(w http.ResponseWriter, r *http.Request) {
	var in RegisterEmployeeInput
	if !h.decode(w, r, &in) {
		return
	}
	res, err := h.svc.RegisterEmployee(r.Context(), in)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.cookies.Write(w, res.Tokens)
	h.ok(w, http.StatusCreated, "registration successful", res)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request, role entity.Role) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.Login(r.Context(), req.Email, req.Password, role)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.cookies.Write(w, res.Tokens)
	h.ok(w, http.StatusOK, "login successful", res)
}

func (h *Handler) LoginCitizen(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, entity.RoleCitizen)
}

func (h *Handler) LoginEmployee(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, entity.RoleEmployee)
}

// Logout always succeeds from the client's perspective: the cookies are
// cleared even if the store write failed.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if u, ok := auth.CurrentUser(r.Context()); ok {
		h.svc.Logout(r.Context(), u.ID)
	}
	h.cookies.Clear(w)
	h.ok(w, http.StatusOK, "logged out", nil)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh rotates the refresh token. The token comes from the cookie
// or, failing that, the request body.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	token, ok := auth.RefreshTokenFromRequest(r)
	if !ok {
		var req refreshRequest
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&req)
		}
		token = req.RefreshToken
	}
	res, err := h.svc.Refresh(r.Context(), token)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.cookies.Write(w, res.Tokens)
	h.ok(w, http.StatusOK, "token refreshed", map[string]string{
		"accessToken": res.Tokens.AccessToken,
	})
}

// GetProfile handles GET /auth/profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r.Context())
	profile, err := h.svc.GetProfile(r.Context(), u.ID)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, http.StatusOK, "profile", profile)
}

// UpdateProfile handles PATCH /auth/profile.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r.Context())
	var patch entity.ProfilePatch
	if !h.decode(w, r, &patch) {
		return
	}
	profile, err := h.svc.UpdateProfile(r.Context(), u.ID, patch)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, http.StatusOK, "profile updated", profile)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ChangePassword invalidates every outstanding session on success, so
// the cookies are cleared too.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r.Context())
	var req changePasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.ChangePassword(r.Context(), u.ID, req.CurrentPassword, req.NewPassword); err != nil {
		h.fail(w, err)
		return
	}
	h.cookies.Clear(w)
	h.ok(w, http.StatusOK, "password changed, please log in again", nil)
}

// DeactivateAccount is the citizen self-service soft delete.
func (h *Handler) DeactivateAccount(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r.Context())
	if err := h.svc.DeactivateAccount(r.Context(), u.ID); err != nil {
		h.fail(w, err)
		return
	}
	h.cookies.Clear(w)
	h.ok(w, http.StatusOK, "account deactivated", nil)
}

// Suspend handles POST /employees/{id}/suspend. The caller must be an
// admin or supervisor employee.
func (h *Handler) Suspend(w http.ResponseWriter, r *http.Request) {
	if !h.requireManager(w, r) {
		return
	}
	if err := h.svc.SuspendEmployee(r.Context(), r.PathValue("id")); err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, http.StatusOK, "employee suspended", nil)
}

// Reactivate handles POST /employees/{id}/reactivate.
func (h *Handler) Reactivate(w http.ResponseWriter, r *http.Request) {
	if !h.requireManager(w, r) {
		return
	}
	if err := h.svc.ReactivateEmployee(r.Context(), r.PathValue("id")); err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, http.StatusOK, "employee reactivated", nil)
}

// requireManager narrows the employee role gate to the managing
// employee types for account-state operations.
func (h *Handler) requireManager(w http.ResponseWriter, r *http.Request) bool {
	u, ok := auth.CurrentUser(r.Context())
	if !ok || !u.EmployeeType.CanSupervise() {
		h.fail(w, apperr.Authorization("insufficient permissions"))
		return false
	}
	return true
}

// ListCitizens handles GET /citizens?city=...
func (h *Handler) ListCitizens(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListCitizensByCity(r.Context(), r.URL.Query().Get("city"))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, http.StatusOK, "citizens", users)
}

// ListEmployees handles GET /employees?department=... or ?area=...
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		users []*entity.PublicUser
		err   error
	)
	switch {
	case q.Get("department") != "":
		users, err = h.svc.ListEmployeesByDepartment(r.Context(), q.Get("department"))
	case q.Get("area") != "":
		users, err = h.svc.ListEmployeesByArea(r.Context(), q.Get("area"))
	default:
		err = apperr.Validation("department or area query is required", "department", "area")
	}
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, http.StatusOK, "employees", users)
}

// ListSubordinates handles GET /employees/{id}/subordinates.
func (h *Handler) ListSubordinates(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListSubordinates(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, http.StatusOK, "subordinates", users)
}

// Stats handles GET /stats (employee only).
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, http.StatusOK, "user statistics", stats)
}
