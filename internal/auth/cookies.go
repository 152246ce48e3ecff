package auth

import (
	"net/http"
	"strings"
	"time"
)

const (
	AccessCookieName  = "accessToken"
	RefreshCookieName = "refreshToken"
)

// CookieManager writes and clears the httpOnly token cookies. Secure is
// set from the environment (production only) so local development over
// plain HTTP keeps working.
type CookieManager struct {
	Secure     bool
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewCookieManager(secure bool, accessTTL, refreshTTL time.Duration) *CookieManager {
	return &CookieManager{Secure: secure, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// Write sets both token cookies with max-ages mirroring the token TTLs.
func (c *CookieManager) Write(w http.ResponseWriter, pair TokenPair) {
	http.SetCookie(w, c.cookie(AccessCookieName, pair.AccessToken, c.accessTTL))
	http.SetCookie(w, c.cookie(RefreshCookieName, pair.RefreshToken, c.refreshTTL))
}

// Clear expires both token cookies.
func (c *CookieManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie(AccessCookieName, "", -time.Second))
	http.SetCookie(w, c.cookie(RefreshCookieName, "", -time.Second))
}

func (c *CookieManager) cookie(name, value string, ttl time.Duration) *http.Cookie {
	ck := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	}
	if ttl > 0 {
		ck.MaxAge = int(ttl / time.Second)
		ck.Expires = time.Now().Add(ttl)
	} else {
		ck.MaxAge = -1
		ck.Expires = time.Unix(0, 0)
	}
	return ck
}

// BearerToken extracts the token from an Authorization header value.
// Only the exact two-part "Bearer <token>" form is accepted; anything
// else reports no token rather than an error.
func BearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// AccessTokenFromRequest resolves the access token with header
// precedence: Authorization bearer first, then the accessToken cookie.
func AccessTokenFromRequest(r *http.Request) (string, bool) {
	if tok, ok := BearerToken(r.Header.Get("Authorization")); ok {
		return tok, true
	}
	if ck, err := r.Cookie(AccessCookieName); err == nil && ck.Value != "" {
		return ck.Value, true
	}
	return "", false
}

// RefreshTokenFromRequest resolves the refresh token from the cookie.
// The refresh handler falls back to the request body itself.
func RefreshTokenFromRequest(r *http.Request) (string, bool) {
	if ck, err := r.Cookie(RefreshCookieName); err == nil && ck.Value != "" {
		return ck.Value, true
	}
	return "", false
}
