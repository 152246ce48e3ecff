package user_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Tammyv123/SwachhBuddy-sub000/internal/auth"
	"github.com/Tammyv123/SwachhBuddy-sub000/internal/router"
	"github.com/Tammyv123/SwachhBuddy-sub000/internal/user"
	"github.com/Tammyv123/SwachhBuddy-sub000/internal/user/repo"
)

// newTestServer wires the full stack the way cmd/api does, backed by
// the in-memory store.
func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	logger := zap.NewNop().Sugar()
	tokens, err := auth.NewTokenService("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)
	require.NoError(t, err)
	store := repo.NewMemoryStore()
	svc := user.NewIdentityService(store, tokens, auth.BcryptHasher{Cost: bcrypt.MinCost}, logger)
	cookies := auth.NewCookieManager(false, 15*time.Minute, 7*24*time.Hour)
	h := user.NewHandler(svc, cookies, logger)
	mw := auth.NewMiddleware(tokens, store, logger)
	return router.RegisterRoutes(logger, h, mw)
}

func doJSON(t *testing.T, srv http.Handler, method, path string, body any, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, fn := range mutate {
		fn(req)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func registerCitizenBody(email string) map[string]any {
	return map[string]any{
		"email":     email,
		"password":  "Abc123!@#",
		"firstName": "Alice",
		"lastName":  "Sharma",
		"address": map[string]any{
			"street":  "12 MG Road",
			"city":    "Pune",
			"state":   "MH",
			"pincode": "411001",
		},
	}
}

func registerEmployeeBody(email, employeeID, employeeType string) map[string]any {
	return map[string]any{
		"email":        email,
		"password":     "Abc123!@#",
		"firstName":    "Ravi",
		"lastName":     "Kumar",
		"employeeId":   employeeID,
		"employeeType": employeeType,
		"department":   "collection",
	}
}

func withBearer(token string) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

func TestRegisterCitizen_Endpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/auth/citizen/register", registerCitizenBody("alice@x.com"))
	require.Equal(t, http.StatusCreated, rec.Code)

	env := decodeEnvelope(t, rec)
	assert.Equal(t, true, env["success"])

	data := env["data"].(map[string]any)
	u := data["user"].(map[string]any)
	assert.Equal(t, "alice@x.com", u["email"])
	assert.Equal(t, "citizen", u["role"])

	// credential material never appears in the body
	assert.NotContains(t, rec.Body.String(), "password")
	tokens := data["tokens"].(map[string]any)
	assert.NotEmpty(t, tokens["accessToken"])
	assert.NotContains(t, tokens, "refreshToken")

	// both session cookies are set httpOnly
	access := cookieNamed(rec, auth.AccessCookieName)
	refresh := cookieNamed(rec, auth.RefreshCookieName)
	require.NotNil(t, access)
	require.NotNil(t, refresh)
	assert.True(t, access.HttpOnly)
	assert.True(t, refresh.HttpOnly)
}

func TestRegisterEmployee_Endpoint_MissingEmployeeID(t *testing.T) {
	srv := newTestServer(t)

	body := registerEmployeeBody("e@x.com", "", "waste_collector")
	delete(body, "employeeId")
	rec := doJSON(t, srv, http.MethodPost, "/auth/employee/register", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	env := decodeEnvelope(t, rec)
	assert.Equal(t, false, env["success"])
	assert.Contains(t, rec.Body.String(), "employeeId")
	assert.Nil(t, cookieNamed(rec, auth.AccessCookieName))
}

func TestLogin_Endpoint_WrongPasswordSetsNoCookies(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, srv, http.MethodPost, "/auth/citizen/register", registerCitizenBody("alice@x.com"))

	rec := doJSON(t, srv, http.MethodPost, "/auth/citizen/login", map[string]any{
		"email":    "alice@x.com",
		"password": "Wrong123!@#",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	env := decodeEnvelope(t, rec)
	assert.Equal(t, false, env["success"])
	assert.Empty(t, rec.Result().Cookies())
	// the message must not distinguish bad password from unknown user
	missing := doJSON(t, srv, http.MethodPost, "/auth/citizen/login", map[string]any{
		"email":    "nobody@x.com",
		"password": "Wrong123!@#",
	})
	assert.Equal(t, env["message"], decodeEnvelope(t, missing)["message"])
}

func TestLogin_Endpoint_Success(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, srv, http.MethodPost, "/auth/citizen/register", registerCitizenBody("alice@x.com"))

	rec := doJSON(t, srv, http.MethodPost, "/auth/citizen/login", map[string]any{
		"email":    "alice@x.com",
		"password": "Abc123!@#",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, cookieNamed(rec, auth.RefreshCookieName))
}

func TestProfile_Endpoint(t *testing.T) {
	srv := newTestServer(t)
	reg := doJSON(t, srv, http.MethodPost, "/auth/citizen/register", registerCitizenBody("alice@x.com"))
	require.Equal(t, http.StatusCreated, reg.Code)
	access := decodeEnvelope(t, reg)["data"].(map[string]any)["tokens"].(map[string]any)["accessToken"].(string)

	// unauthenticated access is rejected
	rec := doJSON(t, srv, http.MethodGet, "/auth/profile", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// bearer header works
	rec = doJSON(t, srv, http.MethodGet, "/auth/profile", nil, withBearer(access))
	require.Equal(t, http.StatusOK, rec.Code)
	u := decodeEnvelope(t, rec)["data"].(map[string]any)
	assert.Equal(t, "alice@x.com", u["email"])

	// cookie works too
	rec = doJSON(t, srv, http.MethodGet, "/auth/profile", nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: auth.AccessCookieName, Value: access})
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateProfile_Endpoint(t *testing.T) {
	srv := newTestServer(t)
	reg := doJSON(t, srv, http.MethodPost, "/auth/citizen/register", registerCitizenBody("alice@x.com"))
	access := decodeEnvelope(t, reg)["data"].(map[string]any)["tokens"].(map[string]any)["accessToken"].(string)

	rec := doJSON(t, srv, http.MethodPatch, "/auth/profile", map[string]any{
		"firstName": "Alicia",
	}, withBearer(access))
	require.Equal(t, http.StatusOK, rec.Code)
	u := decodeEnvelope(t, rec)["data"].(map[string]any)
	assert.Equal(t, "Alicia", u["firstName"])
}

func TestRefresh_Endpoint_CookieAndBody(t *testing.T) {
	srv := newTestServer(t)
	reg := doJSON(t, srv, http.MethodPost, "/auth/citizen/register", registerCitizenBody("alice@x.com"))
	refresh := cookieNamed(reg, auth.RefreshCookieName)
	require.NotNil(t, refresh)

	// via cookie
	rec := doJSON(t, srv, http.MethodPost, "/auth/refresh", nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: auth.RefreshCookieName, Value: refresh.Value})
	})
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeEnvelope(t, rec)["data"].(map[string]any)
	assert.NotEmpty(t, data["accessToken"])
	// the refresh token travels only in the cookie, never the body
	assert.NotContains(t, rec.Body.String(), "refreshToken")
	rotated := cookieNamed(rec, auth.RefreshCookieName)
	require.NotNil(t, rotated)
	assert.NotEqual(t, refresh.Value, rotated.Value)

	// replaying the original cookie now fails
	rec = doJSON(t, srv, http.MethodPost, "/auth/refresh", nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: auth.RefreshCookieName, Value: refresh.Value})
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// via body, for clients without cookie jars
	rec = doJSON(t, srv, http.MethodPost, "/auth/refresh", map[string]any{"refreshToken": rotated.Value})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogout_Endpoint_Always200(t *testing.T) {
	srv := newTestServer(t)
	reg := doJSON(t, srv, http.MethodPost, "/auth/citizen/register", registerCitizenBody("alice@x.com"))
	access := decodeEnvelope(t, reg)["data"].(map[string]any)["tokens"].(map[string]any)["accessToken"].(string)

	rec := doJSON(t, srv, http.MethodPost, "/auth/logout", nil, withBearer(access))
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := cookieNamed(rec, auth.RefreshCookieName)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Less(t, cleared.MaxAge, 0)
}

func TestChangePassword_Endpoint_ClearsCookies(t *testing.T) {
	srv := newTestServer(t)
	reg := doJSON(t, srv, http.MethodPost, "/auth/citizen/register", registerCitizenBody("alice@x.com"))
	access := decodeEnvelope(t, reg)["data"].(map[string]any)["tokens"].(map[string]any)["accessToken"].(string)

	rec := doJSON(t, srv, http.MethodPost, "/auth/password", map[string]any{
		"currentPassword": "Abc123!@#",
		"newPassword":     "Xyz789!@#",
	}, withBearer(access))
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := cookieNamed(rec, auth.AccessCookieName)
	require.NotNil(t, cleared)
	assert.Less(t, cleared.MaxAge, 0)
}

func TestSuspend_Endpoint_RoleAndTypeGates(t *testing.T) {
	srv := newTestServer(t)

	supReg := doJSON(t, srv, http.MethodPost, "/auth/employee/register", registerEmployeeBody("sup@x.com", "EMP-SUP", "supervisor"))
	require.Equal(t, http.StatusCreated, supReg.Code)
	supAccess := decodeEnvelope(t, supReg)["data"].(map[string]any)["tokens"].(map[string]any)["accessToken"].(string)

	colReg := doJSON(t, srv, http.MethodPost, "/auth/employee/register", registerEmployeeBody("col@x.com", "EMP-COL", "waste_collector"))
	require.Equal(t, http.StatusCreated, colReg.Code)
	colData := decodeEnvelope(t, colReg)["data"].(map[string]any)
	colID := colData["user"].(map[string]any)["id"].(string)
	colAccess := colData["tokens"].(map[string]any)["accessToken"].(string)

	citReg := doJSON(t, srv, http.MethodPost, "/auth/citizen/register", registerCitizenBody("alice@x.com"))
	citAccess := decodeEnvelope(t, citReg)["data"].(map[string]any)["tokens"].(map[string]any)["accessToken"].(string)

	// citizens never reach employee management routes
	rec := doJSON(t, srv, http.MethodPost, "/employees/"+colID+"/suspend", nil, withBearer(citAccess))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// a waste collector is an employee but not a manager
	rec = doJSON(t, srv, http.MethodPost, "/employees/"+colID+"/suspend", nil, withBearer(colAccess))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// a supervisor can suspend
	rec = doJSON(t, srv, http.MethodPost, "/employees/"+colID+"/suspend", nil, withBearer(supAccess))
	require.Equal(t, http.StatusOK, rec.Code)

	// the suspended collector's token is rejected by the middleware
	rec = doJSON(t, srv, http.MethodGet, "/auth/profile", nil, withBearer(colAccess))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// and reactivation restores access on next login
	rec = doJSON(t, srv, http.MethodPost, "/employees/"+colID+"/reactivate", nil, withBearer(supAccess))
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, srv, http.MethodPost, "/auth/employee/login", map[string]any{
		"email":    "col@x.com",
		"password": "Abc123!@#",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListings_Endpoints(t *testing.T) {
	srv := newTestServer(t)

	supReg := doJSON(t, srv, http.MethodPost, "/auth/employee/register", registerEmployeeBody("sup@x.com", "EMP-SUP", "supervisor"))
	require.Equal(t, http.StatusCreated, supReg.Code)
	supData := decodeEnvelope(t, supReg)["data"].(map[string]any)
	supID := supData["user"].(map[string]any)["id"].(string)
	supAccess := supData["tokens"].(map[string]any)["accessToken"].(string)

	sub := registerEmployeeBody("col@x.com", "EMP-COL", "waste_collector")
	sub["supervisorId"] = supID
	rec := doJSON(t, srv, http.MethodPost, "/auth/employee/register", sub)
	require.Equal(t, http.StatusCreated, rec.Code)

	doJSON(t, srv, http.MethodPost, "/auth/citizen/register", registerCitizenBody("alice@x.com"))

	rec = doJSON(t, srv, http.MethodGet, "/citizens?city=Pune", nil, withBearer(supAccess))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeEnvelope(t, rec)["data"], 1)

	rec = doJSON(t, srv, http.MethodGet, "/employees?department=collection", nil, withBearer(supAccess))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeEnvelope(t, rec)["data"], 2)

	rec = doJSON(t, srv, http.MethodGet, "/employees", nil, withBearer(supAccess))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/employees/"+supID+"/subordinates", nil, withBearer(supAccess))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeEnvelope(t, rec)["data"], 1)

	rec = doJSON(t, srv, http.MethodGet, "/stats", nil, withBearer(supAccess))
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decodeEnvelope(t, rec)["data"].(map[string]any)
	assert.Equal(t, float64(3), stats["totalUsers"])
}

func TestDeactivate_Endpoint_CitizenOnly(t *testing.T) {
	srv := newTestServer(t)

	empReg := doJSON(t, srv, http.MethodPost, "/auth/employee/register", registerEmployeeBody("e@x.com", "EMP-1", "waste_collector"))
	empAccess := decodeEnvelope(t, empReg)["data"].(map[string]any)["tokens"].(map[string]any)["accessToken"].(string)

	rec := doJSON(t, srv, http.MethodDelete, "/auth/account", nil, withBearer(empAccess))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	citReg := doJSON(t, srv, http.MethodPost, "/auth/citizen/register", registerCitizenBody("alice@x.com"))
	citAccess := decodeEnvelope(t, citReg)["data"].(map[string]any)["tokens"].(map[string]any)["accessToken"].(string)

	rec = doJSON(t, srv, http.MethodDelete, "/auth/account", nil, withBearer(citAccess))
	require.Equal(t, http.StatusOK, rec.Code)

	// the deactivated citizen cannot log back in
	rec = doJSON(t, srv, http.MethodPost, "/auth/citizen/login", map[string]any{
		"email":    "alice@x.com",
		"password": "Abc123!@#",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealth_Endpoint(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
