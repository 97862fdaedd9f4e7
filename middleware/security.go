package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"p9e.in/rigops/utils"
)

// APIClientConfig describes what one client application may call.
type APIClientConfig struct {
	AppName        string
	AllowedPaths   []string        // exact or prefix match, "/x/*" for any depth
	AllowedMethods map[string]bool // e.g. "GET": true
}

// DefaultClients maps the mobile and dashboard keys to their allowances.
// Empty keys are skipped.
func DefaultClients(mobileKey, dashboardKey string) map[string]APIClientConfig {
	clients := map[string]APIClientConfig{}
	if mobileKey != "" {
		clients[mobileKey] = APIClientConfig{
			AppName:      "MobileApp",
			AllowedPaths: []string{"/api/v1/*", "/auth/login", "/uploads/*", "/health"},
			AllowedMethods: map[string]bool{
				http.MethodGet:  true,
				http.MethodPost: true,
				http.MethodPut:  true,
			},
		}
	}
	if dashboardKey != "" {
		clients[dashboardKey] = APIClientConfig{
			AppName:      "Dashboard",
			AllowedPaths: []string{"/*"},
			AllowedMethods: map[string]bool{
				http.MethodGet:    true,
				http.MethodPost:   true,
				http.MethodPut:    true,
				http.MethodDelete: true,
			},
		}
	}
	return clients
}

// Security enforces the x-api-key header. With no clients configured every
// request passes, which is how local development runs.
func Security(clients map[string]APIClientConfig, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(clients) == 0 || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			ip := getClientIP(r)
			client, ok := clients[r.Header.Get("x-api-key")]
			if !ok {
				log.Warn().Str("ip", ip).Str("path", r.URL.Path).Msg("blocked: invalid API key")
				utils.WriteError(w, http.StatusUnauthorized, "Invalid or missing API key")
				return
			}
			if !pathAllowed(client.AllowedPaths, r.URL.Path) {
				log.Warn().Str("app", client.AppName).Str("ip", ip).Str("path", r.URL.Path).Msg("denied: path not allowed")
				utils.WriteError(w, http.StatusForbidden, "Access to this endpoint is not allowed for this app")
				return
			}
			if !client.AllowedMethods[r.Method] {
				log.Warn().Str("app", client.AppName).Str("method", r.Method).Str("path", r.URL.Path).Msg("denied: method not allowed")
				utils.WriteError(w, http.StatusMethodNotAllowed, "This HTTP method is not allowed for this app")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func pathAllowed(allowed []string, path string) bool {
	for _, p := range allowed {
		if prefix, ok := strings.CutSuffix(p, "*"); ok {
			if strings.HasPrefix(path, prefix) {
				return true
			}
		} else if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// getClientIP prefers X-Forwarded-For, then X-Real-IP, then RemoteAddr.
func getClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
