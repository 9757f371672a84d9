package handlers

import (
	"time"

	"github.com/valyala/fasthttp"

	"sleepmodel/internal/service"
)

// Stats reports today's quota usage, the operating mode, and the cache
// size. Counters are recounted from the store before reporting.
func Stats(svc *service.Service) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		now := time.Now()
		svc.RolloverIfNeeded(now)
		svc.Presets.Recount(now)

		c := svc.Presets.Counters()
		st := svc.Mode.Get()

		writeJSON(ctx, fasthttp.StatusOK, map[string]any{
			"ok":                   true,
			"mode":                 st.Mode,
			"apply_on_time_change": st.ApplyOnTimeChange,
			"date":                 c.Date,
			"auto_counts":          c.AutoCounts,
			"auto_limit":           svc.Presets.AutoQuota(),
			"manual_count":         c.ManualCount,
			"manual_limit":         svc.Presets.ManualQuota(),
			"presets_cached":       svc.Presets.Len(),
		})
	}
}
