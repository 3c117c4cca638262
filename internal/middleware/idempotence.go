package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/hamxasajid/blogsite-core/internal/pkg/response"
)

const (
	idempotenceHeader = "x-idempotence"
	idempotenceTTL    = 60 * time.Second
	idempotencePrefix = "blogsite:idempotence:"
)

// fingerprintExempt reports whether a path is legitimately repeated with an
// identical payload: credential endpoints (wrong password, then the right
// one), like toggles (the second submit undoes the first) and the periodic
// heartbeat. Those never dedupe by fingerprint; an explicit x-idempotence
// header still applies.
func fingerprintExempt(path string) bool {
	switch strings.TrimRight(path, "/") {
	case "/api/v1/auth/login", "/api/v1/auth/register", "/api/v1/users/heartbeat":
		return true
	}
	return strings.HasSuffix(path, "/like")
}

// Idempotence rejects a repeat of a recent identical mutating request with
// 409. The client supplies a key via the x-idempotence header; without one
// the request is fingerprinted from its method, URL, body and caller.
func Idempotence(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil || c.Request.Method == http.MethodGet {
			c.Next()
			return
		}
		if c.GetHeader(idempotenceHeader) == "" && fingerprintExempt(c.Request.URL.Path) {
			c.Next()
			return
		}

		key, err := idempotenceKey(c)
		if err != nil || key == "" {
			c.Next()
			return
		}
		key = idempotencePrefix + key
		ctx := c.Request.Context()

		switch val, err := rdb.Get(ctx, key).Result(); {
		case err == nil && val == "0":
			response.Conflict(c, "An identical request is still being processed.")
			return
		case err == nil:
			response.Conflict(c, "Duplicate request, try again in a minute.")
			return
		case !errors.Is(err, redis.Nil):
			c.Next()
			return
		}

		if err := rdb.Set(ctx, key, "0", idempotenceTTL).Err(); err != nil {
			c.Next()
			return
		}

		c.Next()

		// only a successful request burns the key
		if status := c.Writer.Status(); status >= 200 && status < 300 {
			rdb.Set(ctx, key, "1", redis.KeepTTL)
		} else {
			rdb.Del(ctx, key)
		}
	}
}

func idempotenceKey(c *gin.Context) (string, error) {
	if hdr := c.GetHeader(idempotenceHeader); hdr != "" {
		return hdr, nil
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return "", err
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))

	parts := []string{
		c.Request.Method,
		c.Request.URL.String(),
		string(body),
		c.Request.UserAgent(),
		c.ClientIP(),
		extractToken(c),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:]), nil
}
