package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskmanager/api/transport"
	"github.com/fastygo/taskmanager/domain"
	"github.com/fastygo/taskmanager/internal/token"
	"github.com/fastygo/taskmanager/pkg/httpcontext"
)

// ReasonMissingCookie is reported when a protected request carries no token.
const ReasonMissingCookie = "missing_cookie"

type identityKey struct{}

// TokenVerifier is satisfied by *token.Verifier.
type TokenVerifier interface {
	Verify(tokenString string, now time.Time) (domain.Identity, error)
}

// AuthConfig configures CookieAuth.
type AuthConfig struct {
	CookieName string
	Verifier   TokenVerifier
	Logger     *zap.Logger
	// Now defaults to time.Now.
	Now func() time.Time
	// OnFailure receives the internal rejection reason, e.g. for metrics.
	OnFailure func(reason string)
}

// CookieAuth rejects requests without a valid token cookie. Every failure
// produces the same 401 body; the reason is only logged.
func CookieAuth(cfg AuthConfig) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "jwt"
	}

	reject := func(ctx *fasthttp.RequestCtx, reason string, err error) {
		cfg.Logger.Warn("request rejected by auth gate",
			zap.String("request_id", httpcontext.RequestID(ctx)),
			zap.String("path", string(ctx.Path())),
			zap.String("reason", reason),
			zap.Error(err))
		if cfg.OnFailure != nil {
			cfg.OnFailure(reason)
		}
		Unauthorized(ctx)
	}

	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			tokenString := string(ctx.Request.Header.Cookie(cfg.CookieName))
			if tokenString == "" {
				reject(ctx, ReasonMissingCookie, nil)
				return
			}

			identity, err := cfg.Verifier.Verify(tokenString, cfg.Now())
			if err != nil {
				reject(ctx, failureReason(err), err)
				return
			}

			ctx.SetUserValue(identityKey{}, identity)
			next(ctx)
		}
	}
}

// IdentityFrom returns the identity resolved by CookieAuth for this request.
func IdentityFrom(ctx *fasthttp.RequestCtx) (domain.Identity, bool) {
	if ctx == nil {
		return domain.Identity{}, false
	}
	identity, ok := ctx.UserValue(identityKey{}).(domain.Identity)
	if !ok || identity.IsZero() {
		return domain.Identity{}, false
	}
	return identity, true
}

// Unauthorized writes the generic 401 envelope.
func Unauthorized(ctx *fasthttp.RequestCtx) {
	body, _ := json.Marshal(transport.NewError(string(domain.ErrCodeUnauthorized), domain.ErrUnauthorized.Message, nil))
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(http.StatusUnauthorized)
	ctx.SetBody(body)
}

func failureReason(err error) string {
	var tokErr *token.Error
	if errors.As(err, &tokErr) {
		return string(tokErr.Kind)
	}
	return "unknown"
}
