package handlers

import (
	"encoding/json"
	"time"

	"github.com/valyala/fasthttp"

	"sleepmodel/internal/lamp"
	"sleepmodel/internal/service"
)

type trainRequest struct {
	TS     *int64       `json:"ts"`
	Before *lamp.Status `json:"before"`
	After  *lamp.Status `json:"after"`
	Note   string       `json:"note"`
}

// Train accepts a (before, after) lamp transition as a training
// example. The response reports whether an online update actually ran
// and the current buffer depth.
func Train(svc *service.Service) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		var req trainRequest
		if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
			writeError(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.Before == nil || req.After == nil {
			writeError(ctx, fasthttp.StatusBadRequest, "before and after states required")
			return
		}

		ts := time.Now()
		if req.TS != nil {
			ts = time.Unix(*req.TS, 0)
		}

		res, err := svc.Train(ts, *req.Before, *req.After, req.Note)
		if err != nil {
			writeError(ctx, fasthttp.StatusInternalServerError, err.Error())
			return
		}

		resp := map[string]any{
			"ok":      true,
			"trained": res.Trained,
			"buffer":  res.Buffer,
			"note":    req.Note,
		}
		if res.Loss != nil {
			resp["loss"] = *res.Loss
		}
		if res.Reason != "" {
			resp["reason"] = res.Reason
		}
		writeJSON(ctx, fasthttp.StatusOK, resp)
	}
}
