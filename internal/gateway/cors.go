package gateway

import (
	"net/http"
	"strings"

	"github.com/HanTheDev/content-automation-api/internal/auth"
)

var (
	corsMethods = strings.Join([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions}, ", ")
	corsHeaders = strings.Join([]string{"authorization", "x-client-info", "apikey", "content-type",
		auth.HeaderAPIKey, strings.ToLower(HeaderIdempotencyKey)}, ", ")
)

// setCORSHeaders is applied to every response, preflight or not.
func (g *Gateway) setCORSHeaders(w http.ResponseWriter, origin string) {
	h := w.Header()
	for _, allowed := range g.cfg.AllowedOrigins {
		if allowed == "*" {
			h.Set("Access-Control-Allow-Origin", "*")
			break
		}
		if origin != "" && allowed == origin {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			break
		}
	}
	h.Set("Access-Control-Allow-Methods", corsMethods)
	h.Set("Access-Control-Allow-Headers", corsHeaders)
	h.Set("Access-Control-Expose-Headers", strings.Join([]string{HeaderRequestID, "Retry-After", HeaderReplayed}, ", "))
	h.Set("Access-Control-Max-Age", "86400")
}
