package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"timepoint/backend/internal/pipeline"
	"timepoint/backend/internal/services"
	"timepoint/backend/internal/temporal"
	"timepoint/backend/pkg/models"
)

// GenerateRequest is the body of POST /timepoints.
type GenerateRequest struct {
	Query string `json:"query"`
}

// GenerateResponse wraps the persisted scene with the run outcome.
type GenerateResponse struct {
	Scene    *models.Scene   `json:"scene"`
	RunState pipeline.Status `json:"run_state"`
	Progress int             `json:"progress"`
	Error    string          `json:"error,omitempty"`
}

// HandleGenerate runs the pipeline for a query and returns the persisted
// scene. A rejected or failed run is still 201: the scene records the
// outcome and the response body carries the run state.
func (h *Handler) HandleGenerate(c echo.Context) error {
	var req GenerateRequest
	if err := c.Bind(&req); err != nil {
		return problem(c, http.StatusBadRequest, "Bad Request", "invalid request body")
	}
	scene, run, err := h.svc.Generate(c.Request().Context(), req.Query)
	if err != nil {
		return h.mapError(c, err)
	}
	resp := GenerateResponse{Scene: scene, RunState: run.Status, Progress: run.Progress}
	if rerr := run.Err(); rerr != nil {
		resp.Error = rerr.Error()
	}
	return c.JSON(http.StatusCreated, resp)
}

// HandleGet returns a persisted scene by id.
func (h *Handler) HandleGet(c echo.Context) error {
	scene, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, scene)
}

// NavigateRequest is the body of POST /timepoints/:id/navigate.
type NavigateRequest struct {
	Unit      string `json:"unit"`
	Count     int    `json:"count"`
	Direction string `json:"direction"`
}

// HandleNavigate steps an existing scene's coordinates and generates the
// linked scene at the new point.
func (h *Handler) HandleNavigate(c echo.Context) error {
	var req NavigateRequest
	if err := c.Bind(&req); err != nil {
		return problem(c, http.StatusBadRequest, "Bad Request", "invalid request body")
	}
	unit, err := temporal.ParseUnit(req.Unit)
	if err != nil {
		return problem(c, http.StatusBadRequest, "Bad Request", err.Error())
	}
	dir, err := temporal.ParseDirection(req.Direction)
	if err != nil {
		return problem(c, http.StatusBadRequest, "Bad Request", err.Error())
	}
	scene, run, err := h.svc.Navigate(c.Request().Context(), services.NavigationRequest{
		FromID:    c.Param("id"),
		Unit:      unit,
		Count:     req.Count,
		Direction: dir,
	})
	if err != nil {
		return h.mapError(c, err)
	}
	resp := GenerateResponse{Scene: scene, RunState: run.Status, Progress: run.Progress}
	if rerr := run.Err(); rerr != nil {
		resp.Error = rerr.Error()
	}
	return c.JSON(http.StatusCreated, resp)
}

// HandleSequence walks the chain from a scene. Query parameters: direction
// (forward by default) and limit (capped hop count, default 10).
func (h *Handler) HandleSequence(c echo.Context) error {
	dir := temporal.Forward
	if raw := c.QueryParam("direction"); raw != "" {
		parsed, err := temporal.ParseDirection(raw)
		if err != nil {
			return problem(c, http.StatusBadRequest, "Bad Request", err.Error())
		}
		dir = parsed
	}
	limit := 10
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return problem(c, http.StatusBadRequest, "Bad Request", "limit must be an integer")
		}
		limit = parsed
	}
	seq, err := h.svc.GetSequence(c.Request().Context(), c.Param("id"), dir, limit)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, seq)
}

// HandleStream runs the pipeline for ?query= and streams progress as
// server-sent events: one "step" event per stage, then a terminal "done" or
// "error" event carrying the scene id.
func (h *Handler) HandleStream(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("query"))
	if query == "" {
		return problem(c, http.StatusBadRequest, "Bad Request", "query parameter is required")
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	ctx := c.Request().Context()
	for ev := range h.svc.Stream(ctx, query) {
		if err := writeSSE(res, string(ev.Kind), ev); err != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
	return nil
}

// writeSSE frames one event in text/event-stream format and flushes it.
func writeSSE(res *echo.Response, event string, payload any) error {
	blob, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", event, blob); err != nil {
		return err
	}
	res.Flush()
	return nil
}

// ModelInfo describes one configured backend.
type ModelInfo struct {
	ID           string   `json:"id"`
	Rank         int      `json:"rank"`
	Capabilities []string `json:"capabilities"`
	Available    bool     `json:"available"`
	LastError    string   `json:"last_error,omitempty"`
}

// HandleModels lists the configured backends in rank order.
func (h *Handler) HandleModels(c echo.Context) error {
	statuses := h.router.Backends()
	out := make([]ModelInfo, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, ModelInfo{
			ID:           st.ID,
			Rank:         st.Rank,
			Capabilities: st.Capabilities,
			Available:    st.Available,
			LastError:    st.LastError,
		})
	}
	return c.JSON(http.StatusOK, out)
}
