package httpmiddleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig configures cross-origin access for the storefront API.
type CORSConfig struct {
	// AllowOrigins lists origins allowed to call the API. Empty or "*"
	// allows any origin.
	AllowOrigins []string
	// AllowMethods lists permitted methods. Defaults to
	// "GET, POST, OPTIONS" when empty.
	AllowMethods []string
	// AllowHeaders lists permitted request headers. When empty, preflight
	// responses echo the requested headers back.
	AllowHeaders []string
	// MaxAge is the preflight cache lifetime in seconds. Zero omits the
	// header.
	MaxAge int
}

// CORS returns a middleware that answers preflight requests and attaches
// CORS headers to actual responses.
func CORS(cfg CORSConfig) Middleware {
	allowAll := len(cfg.AllowOrigins) == 0
	allowed := make(map[string]string, len(cfg.AllowOrigins)) // lowercase -> original
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			allowAll = true
			break
		}
		allowed[strings.ToLower(o)] = o
	}

	allowMethods := strings.Join(cfg.AllowMethods, ", ")
	if allowMethods == "" {
		allowMethods = "GET, POST, OPTIONS"
	}
	allowHeaders := strings.Join(cfg.AllowHeaders, ", ")

	allowOrigin := func(origin string) string {
		if allowAll {
			return "*"
		}
		return allowed[strings.ToLower(origin)]
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if !allowAll {
				// Vary on Origin so shared caches keep per-origin
				// responses apart.
				w.Header().Add("Vary", "Origin")
			}
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.Header().Add("Vary", "Access-Control-Request-Method")
				w.Header().Add("Vary", "Access-Control-Request-Headers")

				if ao := allowOrigin(origin); ao != "" {
					w.Header().Set("Access-Control-Allow-Origin", ao)
					w.Header().Set("Access-Control-Allow-Methods", allowMethods)
					if allowHeaders != "" {
						w.Header().Set("Access-Control-Allow-Headers", allowHeaders)
					} else if rh := r.Header.Get("Access-Control-Request-Headers"); rh != "" {
						w.Header().Set("Access-Control-Allow-Headers", rh)
					}
					if cfg.MaxAge > 0 {
						w.Header().Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
					}
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			if ao := allowOrigin(origin); ao != "" {
				w.Header().Set("Access-Control-Allow-Origin", ao)
			}
			next.ServeHTTP(w, r)
		})
	}
}
