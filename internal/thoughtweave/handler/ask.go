package handler

import (
	"time"

	"github.com/kart-io/thoughtweave/internal/model"
	"github.com/kart-io/thoughtweave/internal/pkg/httputils"
	"github.com/kart-io/thoughtweave/internal/retrieval"
	"github.com/kart-io/thoughtweave/internal/synthesis"
	twerrors "github.com/kart-io/thoughtweave/pkg/errors"
	"github.com/kart-io/thoughtweave/pkg/infra/server/transport"
)

// AskRequest is an ad-hoc grounded question.
type AskRequest struct {
	Query      string   `json:"query" validate:"required,min=1"`
	TimeWindow string   `json:"timeWindow,omitempty"`
	Tags       []string `json:"tags,omitempty" validate:"omitempty,max=20,dive,max=50"`
	Limit      int      `json:"limit,omitempty" validate:"omitempty,min=1,max=50"`
}

// AskResponse is a grounded, cited answer — or an abstention when the
// user's notes cannot support one.
type AskResponse struct {
	Answer           string           `json:"answer"`
	Citations        []model.Citation `json:"citations"`
	ConversationHits []model.Citation `json:"conversationHits,omitempty"`
	Confidence       float64          `json:"confidence"`
	ProcessingTime   int64            `json:"processingTime"`
}

// Ask answers a natural-language question grounded in the user's notes.
// @Summary Ask a grounded question
// @Description Hybrid retrieval over the user's thoughts and conversations followed by cited synthesis. Empty retrieval abstains rather than erroring.
// @Tags ask
// @Accept json
// @Produce json
// @Param request body AskRequest true "ask request"
// @Success 200 {object} AskResponse
// @Failure 400 {object} map[string]any
// @Router /ask [post]
func (h *Handler) Ask(c transport.Context) {
	usr, err := user(c)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}

	var req AskRequest
	if err := c.ShouldBindAndValidate(&req); err != nil {
		httputils.WriteResponse(c, twerrors.ErrCaptureValidation.WithCause(err), nil)
		return
	}

	start := time.Now()
	window, err := parseTimeWindow(req.TimeWindow, start)
	if err != nil {
		httputils.WriteResponse(c, twerrors.ErrCaptureValidation.WithCause(err), nil)
		return
	}

	retrieved := h.retrieval.Retrieve(c.Request(), req.Query, retrieval.Filter{
		User: usr, Tags: req.Tags, TimeWindow: window,
	})

	result := h.synth.Synthesize(c.Request(), synthesis.Request{
		Query:            req.Query,
		Context:          toContextItems(retrieved.Thoughts, req.Limit),
		ConversationHits: toConversationHits(retrieved.Conversations),
	})

	httputils.WriteResponse(c, nil, AskResponse{
		Answer:           result.Answer,
		Citations:        result.Citations,
		ConversationHits: result.ConversationHits,
		Confidence:       result.Confidence,
		ProcessingTime:   time.Since(start).Milliseconds(),
	})
}

func toContextItems(hits []retrieval.Hit, limit int) []synthesis.ContextItem {
	if limit <= 0 || limit > len(hits) {
		limit = len(hits)
	}
	items := make([]synthesis.ContextItem, 0, limit)
	for _, h := range hits[:limit] {
		items = append(items, synthesis.ContextItem{
			ID:        h.ID,
			CreatedAt: time.UnixMilli(h.CreatedAtEpochMs),
			Summary:   h.Summary,
			Text:      h.Text,
			Score:     h.Score,
			Kind:      h.Kind,
			Tags:      h.Tags,
		})
	}
	return items
}

func toConversationHits(hits []retrieval.Hit) []synthesis.ConversationHit {
	out := make([]synthesis.ConversationHit, 0, len(hits))
	for _, h := range hits {
		out = append(out, synthesis.ConversationHit{
			ID:        h.ID,
			CreatedAt: time.UnixMilli(h.CreatedAtEpochMs),
			Title:     h.Title,
			Summary:   h.Summary,
			Score:     h.Score,
		})
	}
	return out
}
