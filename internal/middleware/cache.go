package middleware

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/event-ticketing/internal/config"
)

// cachedResponse is the envelope stored in Redis for one cached reply.
type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// captureWriter tees the response body so a successful reply can be
// stored after it has been sent to the client.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	size   int
	limit  int
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if cw.size+len(b) <= cw.limit {
		cw.buf.Write(b)
	}
	cw.size += len(b)
	return cw.ResponseWriter.Write(b)
}

// ResponseCache returns middleware that caches successful responses of
// the configured methods in Redis for the configured TTL.  It exists for
// the public seat-map endpoint: browse traffic refreshes every few
// seconds anyway, so a short-lived cache keeps read storms off the seats
// table without hiding holds for long.  Disabled configs or a missing
// Redis client make it a no-op.
func ResponseCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[c.Request().Method] {
				return next(c)
			}
			key := cacheKey(cfg.Prefix, c)
			ctx := c.Request().Context()

			if raw, err := rdb.Get(ctx, key).Bytes(); err == nil {
				var cached cachedResponse
				if json.Unmarshal(raw, &cached) == nil {
					c.Response().Header().Set(echo.HeaderContentType, cached.ContentType)
					c.Response().Header().Set("X-Cache", "HIT")
					return c.Blob(cached.Status, cached.ContentType, cached.Body)
				}
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			c.Response().Writer = cw
			if err := next(c); err != nil {
				return err
			}
			// Only cache complete 2xx bodies that fit the size limit.
			if cw.status >= 200 && cw.status < 300 && cw.size <= cfg.MaxBodyBytes {
				entry, err := json.Marshal(cachedResponse{
					Status:      cw.status,
					ContentType: c.Response().Header().Get(echo.HeaderContentType),
					Body:        cw.buf.Bytes(),
				})
				if err == nil {
					_ = rdb.Set(ctx, key, entry, cfg.TTL).Err()
				}
			}
			return nil
		}
	}
}

// cacheKey hashes method, route and query into a stable Redis key.
func cacheKey(prefix string, c echo.Context) string {
	r := c.Request()
	sum := sha1.Sum([]byte(r.Method + "|" + c.Path() + "|" + r.URL.RawQuery))
	return prefix + ":" + hex.EncodeToString(sum[:])
}
