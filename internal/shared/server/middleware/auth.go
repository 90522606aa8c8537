package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"compliance-backend/internal/shared/server/respond"
	"compliance-backend/internal/shared/util"
)

const principalKey = "principal"

// AnonymousPrincipal is stored for unauthenticated callers in dev and local.
const AnonymousPrincipal = "anonymous"

// Auth checks the X-API-Key header against keys and stores the caller principal in
// context. With no keys configured, dev and local environments accept anonymous
// callers; other environments reject every request.
func Auth(env string, keys []string) gin.HandlerFunc {
	allowed := make([]string, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			allowed = append(allowed, k)
		}
	}
	anonymous := len(allowed) == 0 && (env == "dev" || env == "local")

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}
		if isPublicPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		key := strings.TrimSpace(c.GetHeader("X-API-Key"))
		if key == "" {
			if anonymous {
				c.Set(principalKey, AnonymousPrincipal)
				c.Next()
				return
			}
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing api key", nil)
			return
		}
		if !matchKey(allowed, key) {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "invalid api key", nil)
			return
		}

		c.Set(principalKey, "key:"+util.HashKey(key)[:12])
		c.Next()
	}
}

func isPublicPath(path string) bool {
	return path == "/api/v1/health" || path == "/api/v1/metrics"
}

func matchKey(allowed []string, key string) bool {
	ok := false
	for _, k := range allowed {
		if subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1 {
			ok = true
		}
	}
	return ok
}

// PrincipalFromContext fetches the caller identity set by the auth middleware.
func PrincipalFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(principalKey)
	if p, ok := val.(string); ok {
		return p
	}
	return ""
}
