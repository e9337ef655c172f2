package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskmanager/api/transport"
	"github.com/fastygo/taskmanager/pkg/httpcontext"
	authUC "github.com/fastygo/taskmanager/usecase/auth"
)

// CookieSettings controls the auth cookie attributes.
type CookieSettings struct {
	Name   string
	Domain string
	Path   string
	Secure bool
}

type AuthHandler struct {
	baseHandler
	uc     *authUC.UseCase
	cookie CookieSettings
}

func NewAuthHandler(uc *authUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger, cookie CookieSettings) *AuthHandler {
	if cookie.Name == "" {
		cookie.Name = "jwt"
	}
	if cookie.Path == "" {
		cookie.Path = "/"
	}
	return &AuthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
		cookie:      cookie,
	}
}

// @Summary Register a new account
// @Tags auth
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(ctx *fasthttp.RequestCtx) {
	var req transport.RegisterRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondInvalid(ctx, "invalid payload", nil)
		return
	}
	if err := req.Validate(); err != nil {
		h.respondValidation(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if _, err := h.uc.Register(stdCtx, req.Email, req.Password); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, transport.MessageResponse{Message: "user created"})
}

// @Summary Exchange credentials for an auth cookie
// @Tags auth
// @Accept x-www-form-urlencoded
// @Router /api/v1/auth/token [post]
func (h *AuthHandler) Login(ctx *fasthttp.RequestCtx) {
	args := ctx.PostArgs()
	req := transport.LoginRequest{
		Username: string(args.Peek("username")),
		Password: string(args.Peek("password")),
	}
	if err := req.Validate(); err != nil {
		h.respondValidation(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	session, err := h.uc.Login(stdCtx, req.Username, req.Password)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	h.setCookie(ctx, session.Token, session.ExpiresAt)
	h.respondSuccess(ctx, http.StatusOK, transport.LoginResponse{
		TokenType: "bearer",
		ExpiresAt: session.ExpiresAt.UTC(),
	})
}

// @Summary Clear the auth cookie
// @Tags auth
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(ctx *fasthttp.RequestCtx) {
	h.clearCookie(ctx)
	h.respondSuccess(ctx, http.StatusOK, transport.MessageResponse{Message: "logged out"})
}

// @Summary Current account
// @Tags auth
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) Me(ctx *fasthttp.RequestCtx) {
	identity, ok := h.identity(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	user, err := h.uc.Me(stdCtx, identity)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, user)
}

func (h *AuthHandler) setCookie(ctx *fasthttp.RequestCtx, value string, expiresAt time.Time) {
	c := h.newCookie()
	defer fasthttp.ReleaseCookie(c)

	c.SetValue(value)
	c.SetExpire(expiresAt)
	if maxAge := int(time.Until(expiresAt).Seconds()); maxAge > 0 {
		c.SetMaxAge(maxAge)
	}
	ctx.Response.Header.SetCookie(c)
}

func (h *AuthHandler) clearCookie(ctx *fasthttp.RequestCtx) {
	c := h.newCookie()
	defer fasthttp.ReleaseCookie(c)

	c.SetValue("")
	c.SetExpire(fasthttp.CookieExpireDelete)
	ctx.Response.Header.SetCookie(c)
}

func (h *AuthHandler) newCookie() *fasthttp.Cookie {
	c := fasthttp.AcquireCookie()
	c.SetKey(h.cookie.Name)
	c.SetPath(h.cookie.Path)
	if h.cookie.Domain != "" {
		c.SetDomain(h.cookie.Domain)
	}
	c.SetHTTPOnly(true)
	c.SetSecure(h.cookie.Secure)
	c.SetSameSite(fasthttp.CookieSameSiteStrictMode)
	return c
}
