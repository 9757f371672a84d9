package handlers

import (
	"encoding/json"

	"github.com/valyala/fasthttp"

	"sleepmodel/internal/mode"
	"sleepmodel/internal/service"
)

// GetMode returns the current operating mode.
func GetMode(svc *service.Service) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		st := svc.Mode.Get()
		writeJSON(ctx, fasthttp.StatusOK, map[string]any{
			"ok":                   true,
			"mode":                 st.Mode,
			"apply_on_time_change": st.ApplyOnTimeChange,
		})
	}
}

type setModeRequest struct {
	Mode              *string `json:"mode"`
	ApplyOnTimeChange *bool   `json:"apply_on_time_change"`
}

// SetMode validates and persists a new operating mode. Absent fields
// keep their current values; an unknown mode is rejected with 400 and
// no mutation.
func SetMode(svc *service.Service) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		var req setModeRequest
		if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
			writeError(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
			return
		}

		cur := svc.Mode.Get()
		m := cur.Mode
		if req.Mode != nil {
			m = *req.Mode
		}
		apply := cur.ApplyOnTimeChange
		if req.ApplyOnTimeChange != nil {
			apply = *req.ApplyOnTimeChange
		}

		if !mode.Valid(m) {
			writeError(ctx, fasthttp.StatusBadRequest, "invalid mode")
			return
		}
		if err := svc.Mode.Set(m, apply); err != nil {
			writeError(ctx, fasthttp.StatusInternalServerError, err.Error())
			return
		}

		writeJSON(ctx, fasthttp.StatusOK, map[string]any{
			"ok":                   true,
			"mode":                 m,
			"apply_on_time_change": apply,
		})
	}
}
