package handlers

import (
	"encoding/json"
	"time"

	"github.com/valyala/fasthttp"

	"sleepmodel/internal/lamp"
	"sleepmodel/internal/service"
)

type suggestRequest struct {
	TS       *int64       `json:"ts"`
	Status   *lamp.Status `json:"status"`
	Source   string       `json:"source"`
	Note     string       `json:"note"`
	Category string       `json:"category"`
}

// Suggest runs the model against the supplied (or live) lamp state and
// caches the resulting preset for the current bucket.
func Suggest(svc *service.Service) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		var req suggestRequest
		if len(ctx.PostBody()) > 0 {
			if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
				writeError(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
				return
			}
		}

		ts := time.Now()
		if req.TS != nil {
			ts = time.Unix(*req.TS, 0)
		}
		source := req.Source
		if source == "" {
			source = "pc-model"
		}
		note := req.Note
		if note == "" {
			note = "manual_suggest"
		}

		rec, err := svc.Suggest(ts, req.Status, source, note, req.Category)
		if err != nil {
			writeError(ctx, fasthttp.StatusInternalServerError, err.Error())
			return
		}

		writeJSON(ctx, fasthttp.StatusOK, map[string]any{
			"ok":     true,
			"preset": rec,
		})
	}
}
