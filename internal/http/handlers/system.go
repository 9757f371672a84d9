package handlers

import "github.com/valyala/fasthttp"

const (
	serverName    = "sleepmodel"
	serverAPI     = 4
	serverAPIDate = "2025-12-20"
)

// Health is the liveness probe.
func Health() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		writeJSON(ctx, fasthttp.StatusOK, map[string]any{"ok": true})
	}
}

// Version reports the server identity and API revision.
func Version() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		writeJSON(ctx, fasthttp.StatusOK, map[string]any{
			"ok":   true,
			"name": serverName,
			"api":  serverAPI,
			"date": serverAPIDate,
		})
	}
}
