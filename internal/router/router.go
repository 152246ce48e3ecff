package router

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Tammyv123/SwachhBuddy-sub000/internal/auth"
	"github.com/Tammyv123/SwachhBuddy-sub000/internal/user"
	"github.com/Tammyv123/SwachhBuddy-sub000/internal/user/entity"
)

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// LoggingMiddleware logs requests at debug level using the provided
// sugared logger. Bodies are never logged; token material must not end
// up in log lines.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debugw("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware sets common HTTP security headers.
// Intentionally simple and conservative so it works with most setups.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			if w.Header().Get("Content-Security-Policy") == "" {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; object-src 'none'; base-uri 'self';")
			}
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RegisterRoutes mounts the auth surface on a standard library
// http.ServeMux. Protected routes are wrapped per-route with the
// authorization middleware; the role set narrows where the operation
// belongs to one population.
func RegisterRoutes(logger *zap.SugaredLogger, h *user.Handler, mw *auth.Middleware) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// public
	mux.HandleFunc("POST /auth/citizen/register", h.RegisterCitizen)
	mux.HandleFunc("POST /auth/citizen/login", h.LoginCitizen)
	mux.HandleFunc("POST /auth/employee/register", h.RegisterEmployee)
	mux.HandleFunc("POST /auth/employee/login", h.LoginEmployee)
	mux.HandleFunc("POST /auth/refresh", h.Refresh)

	anyRole := mw.Require()
	citizenOnly := mw.Require(entity.RoleCitizen)
	employeeOnly := mw.Require(entity.RoleEmployee)

	// session / profile (any authenticated role)
	mux.Handle("POST /auth/logout", anyRole(http.HandlerFunc(h.Logout)))
	mux.Handle("GET /auth/profile", anyRole(http.HandlerFunc(h.GetProfile)))
	mux.Handle("PATCH /auth/profile", anyRole(http.HandlerFunc(h.UpdateProfile)))
	mux.Handle("POST /auth/password", anyRole(http.HandlerFunc(h.ChangePassword)))

	// citizen self-service
	mux.Handle("DELETE /auth/account", citizenOnly(http.HandlerFunc(h.DeactivateAccount)))

	// employee administration and listings
	mux.Handle("POST /employees/{id}/suspend", employeeOnly(http.HandlerFunc(h.Suspend)))
	mux.Handle("POST /employees/{id}/reactivate", employeeOnly(http.HandlerFunc(h.Reactivate)))
	mux.Handle("GET /employees/{id}/subordinates", employeeOnly(http.HandlerFunc(h.ListSubordinates)))
	mux.Handle("GET /employees", employeeOnly(http.HandlerFunc(h.ListEmployees)))
	mux.Handle("GET /citizens", employeeOnly(http.HandlerFunc(h.ListCitizens)))
	mux.Handle("GET /stats", employeeOnly(http.HandlerFunc(h.Stats)))

	return LoggingMiddleware(logger)(SecurityHeadersMiddleware()(mux))
}
