package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/kulisserna/boxoffice/internal/config"
)

// captureWriter captures response body/status while forwarding to the client.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	size   int64
	limit  int64
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if cw.limit <= 0 || cw.size < cw.limit {
		remain := cw.limit - cw.size
		if cw.limit <= 0 {
			cw.buf.Write(b)
		} else if remain > 0 {
			if int64(len(b)) <= remain {
				cw.buf.Write(b)
			} else {
				cw.buf.Write(b[:remain])
			}
		}
		cw.size += int64(len(b))
	}
	return cw.ResponseWriter.Write(b)
}

// contentCacheKey hashes route + query under the configured prefix.
func contentCacheKey(prefix string, c echo.Context) string {
	tail := c.Path() + "?" + c.Request().URL.RawQuery
	sum := sha1.Sum([]byte(tail))
	return fmt.Sprintf("%s:%x", prefix, sum[:])
}

// encodePayload packs: [4 bytes status][4 bytes headerLen][headerJSON][body]
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdrJSON, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdrJSON)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
	copy(out[8:8+len(hdrJSON)], hdrJSON)
	copy(out[8+len(hdrJSON):], body)
	return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status = int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if hlen < 0 || 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	var hdr http.Header
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &hdr); err != nil {
			return 0, nil, nil, false
		}
	} else {
		hdr = make(http.Header)
	}
	return status, hdr, bs[8+hlen:], true
}

// NewContentCache caches successful GET responses of the public event
// listings in Redis.  The per-route TTL comes from the cache config,
// matching how the editorial content was cached with different
// lifetimes per content type.  Headers and body are stored together so
// clients see identical formatting on a hit.  Booking endpoints are
// never cached; availability must stay fresh to the second.
func NewContentCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}
			key := contentCacheKey(cfg.Prefix, c)
			ttl := cfg.TTLFor(c.Path())

			ctx, cancel := context.WithTimeout(c.Request().Context(), 150*time.Millisecond)
			cached, err := rdb.Get(ctx, key).Bytes()
			cancel()
			if err == nil {
				if status, hdr, body, ok := decodePayload(cached); ok {
					for k, vs := range hdr {
						for _, v := range vs {
							c.Response().Header().Add(k, v)
						}
					}
					c.Response().Header().Set("X-Cache", "HIT")
					c.Response().WriteHeader(status)
					_, werr := c.Response().Write(body)
					return werr
				}
			}

			cw := &captureWriter{
				ResponseWriter: c.Response().Writer,
				status:         http.StatusOK,
				limit:          int64(cfg.MaxBodyBytes),
			}
			c.Response().Writer = cw
			if err := next(c); err != nil {
				return err
			}

			// Only store complete 200 responses.
			if cw.status == http.StatusOK && (cw.limit <= 0 || cw.size <= cw.limit) {
				payload, err := encodePayload(cw.status, c.Response().Header().Clone(), cw.buf.Bytes())
				if err == nil {
					sctx, scancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
					_ = rdb.Set(sctx, key, payload, ttl).Err()
					scancel()
				}
			}
			return nil
		}
	}
}

// InvalidateContent drops every cached entry under the prefix.  Called
// after admin event mutations so the public listings never serve stale
// data for longer than one request.
func InvalidateContent(ctx context.Context, rdb *redis.Client, prefix string) {
	if rdb == nil {
		return
	}
	iter := rdb.Scan(ctx, 0, prefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		_ = rdb.Del(ctx, iter.Val()).Err()
	}
}
