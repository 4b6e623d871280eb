package handler

import (
	"time"

	"github.com/kart-io/thoughtweave/internal/model"
	"github.com/kart-io/thoughtweave/internal/pkg/httputils"
	twerrors "github.com/kart-io/thoughtweave/pkg/errors"
	"github.com/kart-io/thoughtweave/pkg/infra/server/transport"
)

// CreateConversationRequest opens a new conversation, optionally running
// the first exchange synchronously.
type CreateConversationRequest struct {
	Title          string                `json:"title,omitempty" validate:"omitempty,max=255"`
	InitialMessage *string               `json:"initialMessage,omitempty"`
	Context        *model.CaptureContext `json:"context,omitempty"`
}

// CreateConversationResponse carries the new conversation and, when an
// initial message was supplied, the inline first exchange.
type CreateConversationResponse struct {
	ID        string                    `json:"id"`
	Title     string                    `json:"title"`
	CreatedAt string                    `json:"createdAt"`
	Messages  []*model.DecryptedMessage `json:"messages,omitempty"`
}

// CreateConversation creates a conversation.
// @Summary Create a conversation
// @Tags conversations
// @Accept json
// @Produce json
// @Param request body CreateConversationRequest true "create request"
// @Success 201 {object} CreateConversationResponse
// @Router /conversations [post]
func (h *Handler) CreateConversation(c transport.Context) {
	usr, err := user(c)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}

	var req CreateConversationRequest
	if err := c.ShouldBindAndValidate(&req); err != nil {
		httputils.WriteResponse(c, twerrors.ErrConversationValidation.WithCause(err), nil)
		return
	}

	title := req.Title
	if title == "" {
		title = "Conversation " + time.Now().Format("2006-01-02")
	}

	conv, userMsg, assistantMsg, err := h.conversations.Create(c.Request(), usr, title, req.InitialMessage, req.Context)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}

	resp := CreateConversationResponse{
		ID:        conv.ID,
		Title:     conv.Title,
		CreatedAt: conv.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if userMsg != nil && assistantMsg != nil {
		resp.Messages = []*model.DecryptedMessage{userMsg, assistantMsg}
	}
	httputils.WriteCreated(c, resp)
}

// ConversationListResponse pages conversations most-recent-first.
type ConversationListResponse struct {
	Conversations []*model.Conversation `json:"conversations"`
	Cursor        string                `json:"cursor,omitempty"`
	HasMore       bool                  `json:"hasMore"`
}

// ListConversations lists conversations most-recent-first by updatedAt.
// @Summary List conversations
// @Tags conversations
// @Produce json
// @Param status query string false "status filter (active, archived)"
// @Param limit query int false "page size"
// @Param cursor query string false "opaque page cursor"
// @Success 200 {object} ConversationListResponse
// @Router /conversations [get]
func (h *Handler) ListConversations(c transport.Context) {
	usr, err := user(c)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}

	convs, cursor, hasMore, err := h.conversations.List(c.Request(), usr,
		model.ConversationStatus(c.Query("status")), c.Query("cursor"), parseLimit(c.Query("limit"), maxListLimit))
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}
	httputils.WriteResponse(c, nil, ConversationListResponse{Conversations: convs, Cursor: cursor, HasMore: hasMore})
}

// ConversationDetailResponse carries the conversation and one decrypted
// message page.
type ConversationDetailResponse struct {
	Conversation *model.Conversation       `json:"conversation"`
	Messages     []*model.DecryptedMessage `json:"messages"`
	Cursor       string                    `json:"cursor,omitempty"`
	HasMore      bool                      `json:"hasMore"`
}

// GetConversation returns a conversation with a decrypted message page.
// @Summary Get a conversation
// @Tags conversations
// @Produce json
// @Param id path string true "conversation id"
// @Param limit query int false "page size"
// @Param cursor query string false "opaque page cursor"
// @Success 200 {object} ConversationDetailResponse
// @Failure 404 {object} map[string]any
// @Router /conversations/{id} [get]
func (h *Handler) GetConversation(c transport.Context) {
	usr, err := user(c)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}

	conv, msgs, cursor, hasMore, err := h.conversations.Get(c.Request(), usr, c.Param("id"),
		c.Query("cursor"), parseLimit(c.Query("limit"), maxListLimit))
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}
	httputils.WriteResponse(c, nil, ConversationDetailResponse{Conversation: conv, Messages: msgs, Cursor: cursor, HasMore: hasMore})
}

// UpdateConversationRequest renames or re-statuses a conversation.
type UpdateConversationRequest struct {
	Title  *string `json:"title,omitempty" validate:"omitempty,max=255"`
	Status *string `json:"status,omitempty" validate:"omitempty,oneof=active archived"`
}

// UpdateConversation applies a conditional title/status change.
// @Summary Update a conversation
// @Tags conversations
// @Accept json
// @Produce json
// @Param id path string true "conversation id"
// @Param request body UpdateConversationRequest true "update request"
// @Success 200 {object} map[string]string
// @Router /conversations/{id} [put]
func (h *Handler) UpdateConversation(c transport.Context) {
	usr, err := user(c)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}

	var req UpdateConversationRequest
	if err := c.ShouldBindAndValidate(&req); err != nil {
		httputils.WriteResponse(c, twerrors.ErrConversationValidation.WithCause(err), nil)
		return
	}

	var status *model.ConversationStatus
	if req.Status != nil {
		s := model.ConversationStatus(*req.Status)
		status = &s
	}
	if err := h.conversations.Update(c.Request(), usr, c.Param("id"), req.Title, status); err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}
	httputils.WriteResponse(c, nil, map[string]string{"message": "conversation updated"})
}

// DeleteConversation tombstones a conversation and removes its messages.
// @Summary Delete a conversation
// @Tags conversations
// @Produce json
// @Param id path string true "conversation id"
// @Success 200 {object} map[string]string
// @Router /conversations/{id} [delete]
func (h *Handler) DeleteConversation(c transport.Context) {
	usr, err := user(c)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}
	if err := h.conversations.Delete(c.Request(), usr, c.Param("id")); err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}
	httputils.WriteResponse(c, nil, map[string]string{"message": "conversation deleted"})
}

// SendMessageRequest is one user turn.
type SendMessageRequest struct {
	Content        string   `json:"content" validate:"required,min=1,max=50000"`
	TimeWindow     string   `json:"timeWindow,omitempty"`
	Tags           []string `json:"tags,omitempty" validate:"omitempty,max=20,dive,max=50"`
	IncludeHistory int      `json:"includeHistory,omitempty" validate:"omitempty,min=1,max=50"`
}

// SendMessageResponse carries both persisted turns of the exchange.
type SendMessageResponse struct {
	UserMessage      *model.DecryptedMessage `json:"userMessage"`
	AssistantMessage *model.DecryptedMessage `json:"assistantMessage"`
	ProcessingTime   int64                   `json:"processingTime"`
}

// SendMessage appends a user turn, retrieves, synthesizes, and appends the
// assistant turn.
// @Summary Send a message
// @Tags conversations
// @Accept json
// @Produce json
// @Param id path string true "conversation id"
// @Param request body SendMessageRequest true "message"
// @Success 200 {object} SendMessageResponse
// @Failure 404 {object} map[string]any
// @Router /conversations/{id}/messages [post]
func (h *Handler) SendMessage(c transport.Context) {
	usr, err := user(c)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindAndValidate(&req); err != nil {
		httputils.WriteResponse(c, twerrors.ErrConversationValidation.WithCause(err), nil)
		return
	}

	start := time.Now()
	window, err := parseTimeWindow(req.TimeWindow, start)
	if err != nil {
		httputils.WriteResponse(c, twerrors.ErrConversationValidation.WithCause(err), nil)
		return
	}

	userMsg, assistantMsg, err := h.conversations.SendMessage(c.Request(), usr, c.Param("id"),
		req.Content, window, req.Tags, req.IncludeHistory)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}

	httputils.WriteResponse(c, nil, SendMessageResponse{
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
		ProcessingTime:   time.Since(start).Milliseconds(),
	})
}
