package httpmiddleware

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/calhealth/trustscore/internal/platform/apicontext"
)

// Context injects a request id, route, remote ip, and the client-identity
// fingerprint (remote addr + user-agent, spec §4.7) into the request
// context. Adapted from the teacher's tenant/user context middleware; this
// service has no end-user auth (spec §1 non-goals), so the fields carried
// are request-scoped rather than identity-scoped.
func Context() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.New().String()
			}

			ctx := req.Context()
			ctx = apicontext.SetRequestID(ctx, requestID)
			ctx = apicontext.SetRoute(ctx, c.Path())
			ctx = apicontext.SetRemoteIP(ctx, c.RealIP())
			ctx = apicontext.SetClientIdentity(ctx, fingerprint(c.RealIP(), req.UserAgent()))

			c.SetRequest(req.WithContext(ctx))
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)

			return next(c)
		}
	}
}

// fingerprint derives an opaque client identity from remote address and
// user-agent. It is intentionally not reversible to a real identity; it
// only needs to be stable for the lifetime of the rate-limit window.
func fingerprint(remoteIP, userAgent string) string {
	sum := sha256.Sum256([]byte(remoteIP + "|" + userAgent))
	return hex.EncodeToString(sum[:16])
}
