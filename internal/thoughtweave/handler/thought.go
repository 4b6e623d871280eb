package handler

import (
	"strconv"
	"time"

	"github.com/kart-io/thoughtweave/internal/model"
	"github.com/kart-io/thoughtweave/internal/pkg/httputils"
	"github.com/kart-io/thoughtweave/internal/store"
	twerrors "github.com/kart-io/thoughtweave/pkg/errors"
	"github.com/kart-io/thoughtweave/pkg/infra/server/transport"
)

const maxListLimit = 100

// CaptureResponse is the capture endpoint's success payload.
type CaptureResponse struct {
	ID        string `json:"id"`
	CreatedAt string `json:"createdAt"`
	Message   string `json:"message,omitempty"`
}

// CaptureThought ingests one thought.
// @Summary Capture a thought
// @Description Persists the raw artifact durably, writes the metadata row, and enqueues an index job. Returns before any LLM or vector work happens.
// @Tags thoughts
// @Accept json
// @Produce json
// @Param request body model.CaptureRequest true "capture request"
// @Success 201 {object} CaptureResponse
// @Failure 400 {object} map[string]any
// @Router /thoughts [post]
func (h *Handler) CaptureThought(c transport.Context) {
	usr, err := user(c)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}

	var req model.CaptureRequest
	if err := c.ShouldBindAndValidate(&req); err != nil {
		httputils.WriteResponse(c, twerrors.ErrCaptureValidation.WithCause(err), nil)
		return
	}

	result, err := h.capture.Capture(c.Request(), usr, req)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}

	httputils.WriteCreated(c, CaptureResponse{
		ID:        result.ID,
		CreatedAt: result.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
}

// ThoughtListResponse pages thoughts newest-first.
type ThoughtListResponse struct {
	Thoughts   []*model.Thought `json:"thoughts"`
	Cursor     string           `json:"cursor,omitempty"`
	HasMore    bool             `json:"hasMore"`
	TotalCount *int64           `json:"totalCount,omitempty"`
}

// ListThoughts lists and filters a user's thoughts, newest first.
// @Summary List thoughts
// @Tags thoughts
// @Produce json
// @Param from query string false "lower creation bound (epoch ms or YYYY-MM-DD)"
// @Param to query string false "upper creation bound (epoch ms or YYYY-MM-DD)"
// @Param tag query string false "tag filter (AND semantics when repeated)"
// @Param type query string false "kind filter"
// @Param limit query int false "page size, max 100"
// @Param cursor query string false "opaque page cursor"
// @Param includeCount query bool false "include the total match count"
// @Success 200 {object} ThoughtListResponse
// @Router /thoughts [get]
func (h *Handler) ListThoughts(c transport.Context) {
	usr, err := user(c)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}

	filter := store.ThoughtListFilter{
		Kind:   model.Kind(c.Query("type")),
		Cursor: c.Query("cursor"),
		Limit:  parseLimit(c.Query("limit"), maxListLimit),
	}
	if tag := c.Query("tag"); tag != "" {
		filter.Tags = []string{tag}
	}
	if from, ok := parseEpochOrDate(c.Query("from")); ok {
		filter.FromEpoch = from
	}
	if to, ok := parseEpochOrDate(c.Query("to")); ok {
		filter.ToEpoch = to
	}

	thoughts, cursor, hasMore, err := h.meta.Thoughts().List(c.Request(), usr, filter)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}

	resp := ThoughtListResponse{Thoughts: thoughts, Cursor: cursor, HasMore: hasMore}
	if c.Query("includeCount") == "true" {
		if count, err := h.meta.Thoughts().Count(c.Request(), usr, filter); err == nil {
			resp.TotalCount = &count
		}
	}
	httputils.WriteResponse(c, nil, resp)
}

// RelatedResponse lists a thought's indexer-derived related thoughts.
type RelatedResponse struct {
	ThoughtID string           `json:"thoughtId"`
	Related   []*model.Thought `json:"related"`
	Count     int              `json:"count"`
}

// RelatedThoughts returns the thoughts linked by the indexer's k-NN pass.
// @Summary Related thoughts
// @Tags thoughts
// @Produce json
// @Param id path string true "thought id"
// @Success 200 {object} RelatedResponse
// @Failure 404 {object} map[string]any
// @Router /thoughts/{id}/related [get]
func (h *Handler) RelatedThoughts(c transport.Context) {
	usr, err := user(c)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}
	id := c.Param("id")

	thought, err := h.meta.Thoughts().Get(c.Request(), usr, id)
	if err != nil {
		httputils.WriteResponse(c, twerrors.ErrThoughtNotFound.WithCause(err), nil)
		return
	}

	related := []*model.Thought{}
	if len(thought.RelatedIDs) > 0 {
		related, err = h.meta.Thoughts().GetMany(c.Request(), usr, thought.RelatedIDs)
		if err != nil {
			httputils.WriteResponse(c, err, nil)
			return
		}
	}

	httputils.WriteResponse(c, nil, RelatedResponse{ThoughtID: id, Related: related, Count: len(related)})
}

func parseLimit(raw string, max int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0
	}
	if n > max {
		return max
	}
	return n
}

// parseEpochOrDate accepts either epoch milliseconds or a YYYY-MM-DD date.
func parseEpochOrDate(raw string) (int64, bool) {
	if raw == "" {
		return 0, false
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return ms, true
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.UnixMilli(), true
	}
	return 0, false
}
