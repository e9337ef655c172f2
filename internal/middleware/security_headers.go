package middleware

import "github.com/valyala/fasthttp"

// SecurityHeaders sets conservative response headers for a JSON API.
func SecurityHeaders(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		ctx.Response.Header.Set("X-Content-Type-Options", "nosniff")
		ctx.Response.Header.Set("X-Frame-Options", "DENY")
		ctx.Response.Header.Set("Referrer-Policy", "no-referrer")
		ctx.Response.Header.Set("Cache-Control", "no-store")
		next(ctx)
	}
}
