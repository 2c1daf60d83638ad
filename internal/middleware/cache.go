package middleware

import (
	"bytes"
	"encoding/binary"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/cafetec/cafetec-backend/internal/config"
)

// captureWriter buffers the response so a successful body can be stored in
// Redis after the handler runs. Writes still pass through to the client.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (w *captureWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *captureWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	return w.ResponseWriter.Write(p)
}

// cacheKeyFrom builds the Redis key from the configured prefix plus the
// request path and raw query, so each distinct listing variant caches
// separately.
func cacheKeyFrom(prefix string, c echo.Context) string {
	req := c.Request()
	key := prefix + ":" + req.URL.Path
	if q := req.URL.RawQuery; q != "" {
		key += "?" + q
	}
	return key
}

// Cached payload layout: status (2 bytes), content type length (2 bytes),
// content type, body. Versioned implicitly by the key prefix.
func encodePayload(status int, contentType string, body []byte) []byte {
	out := make([]byte, 0, 4+len(contentType)+len(body))
	var hdr [4]byte
	binary.BigEndian.PutUint16(hdr[0:2], uint16(status))
	binary.BigEndian.PutUint16(hdr[2:4], uint16(len(contentType)))
	out = append(out, hdr[:]...)
	out = append(out, contentType...)
	out = append(out, body...)
	return out
}

func decodePayload(raw []byte) (status int, contentType string, body []byte, ok bool) {
	if len(raw) < 4 {
		return 0, "", nil, false
	}
	status = int(binary.BigEndian.Uint16(raw[0:2]))
	ctLen := int(binary.BigEndian.Uint16(raw[2:4]))
	if len(raw) < 4+ctLen {
		return 0, "", nil, false
	}
	contentType = string(raw[4 : 4+ctLen])
	body = raw[4+ctLen:]
	return status, contentType, body, true
}

// NewRedisCache caches successful GET responses in Redis for the configured
// TTL. With a nil client or a disabled config it becomes a no-op, so the
// service keeps serving when Redis is down.
func NewRedisCache(rdb *redis.Client, cfg config.CacheConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if rdb == nil || !cfg.Enabled || c.Request().Method != http.MethodGet {
				return next(c)
			}

			ctx := c.Request().Context()
			key := cacheKeyFrom(cfg.Prefix, c)

			if raw, err := rdb.Get(ctx, key).Bytes(); err == nil {
				if status, ct, body, ok := decodePayload(raw); ok {
					return c.Blob(status, ct, body)
				}
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK}
			c.Response().Writer = cw

			if err := next(c); err != nil {
				return err
			}

			if cw.status == http.StatusOK && cw.buf.Len() > 0 {
				ct := c.Response().Header().Get(echo.HeaderContentType)
				payload := encodePayload(cw.status, ct, cw.buf.Bytes())
				// Best effort; a failed SET only means a cache miss later.
				rdb.Set(ctx, key, payload, cfg.TTL)
			}
			return nil
		}
	}
}

// InvalidateCache removes every cached entry under the configured prefix.
// Admin mutations on the catalog call this so public listings never serve
// stale products or slots longer than one request.
func InvalidateCache(rdb *redis.Client, cfg config.CacheConfig) func(c echo.Context) {
	return func(c echo.Context) {
		if rdb == nil || !cfg.Enabled {
			return
		}
		ctx := c.Request().Context()
		iter := rdb.Scan(ctx, 0, cfg.Prefix+":*", 100).Iterator()
		keys := make([]string, 0, 16)
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if len(keys) > 0 {
			rdb.Del(ctx, keys...)
		}
	}
}
