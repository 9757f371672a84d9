package handlers

import (
	"time"

	"github.com/valyala/fasthttp"

	"sleepmodel/internal/preset"
	"sleepmodel/internal/service"
)

// Presets returns all cached preset records, most recent first. The
// read triggers a rollover check so a stale day never leaks out.
func Presets(svc *service.Service) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		svc.RolloverIfNeeded(time.Now())

		records := svc.Presets.All()
		reversed := make([]preset.Record, 0, len(records))
		for i := len(records) - 1; i >= 0; i-- {
			reversed = append(reversed, records[i])
		}

		writeJSON(ctx, fasthttp.StatusOK, map[string]any{
			"ok":      true,
			"presets": reversed,
		})
	}
}
