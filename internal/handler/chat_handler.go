package handler

import (
	"context"
	"net/http"

	"roamly-chat/internal/domain/chat"
	"roamly-chat/internal/services"
	"roamly-chat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type messageSender interface {
	Send(ctx context.Context, in services.SendMessageInput) (chat.Message, error)
	ListMessages(ctx context.Context, actorID, chatID uuid.UUID) ([]chat.Message, error)
}

type inboxLister interface {
	ListConversations(ctx context.Context, userID uuid.UUID) (services.Inbox, error)
}

type cursorKeeper interface {
	MarkRead(ctx context.Context, chatID, userID uuid.UUID) error
	UnreadTotal(ctx context.Context, userID uuid.UUID) (int64, error)
}

type readNotifier interface {
	ReadMarked(userID uuid.UUID)
}

type ChatHandler struct {
	messages messageSender
	inbox    inboxLister
	cursors  cursorKeeper
	notifier readNotifier
}

func NewChatHandler(messages messageSender, inbox inboxLister, cursors cursorKeeper, notifier readNotifier) *ChatHandler {
	return &ChatHandler{messages: messages, inbox: inbox, cursors: cursors, notifier: notifier}
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req httpdto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	actorID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	in := services.SendMessageInput{
		ActorID: actorID,
		Text:    req.Text,
		Kind:    req.Kind,
	}
	if req.ChatID != "" {
		id, err := uuid.Parse(req.ChatID)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid chat id", "INVALID_REQUEST"))
			return
		}
		in.ChatID = uuid.NullUUID{UUID: id, Valid: true}
	}
	if req.ReceiverID != "" {
		id, err := uuid.Parse(req.ReceiverID)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid receiver id", "INVALID_REQUEST"))
			return
		}
		in.ReceiverID = uuid.NullUUID{UUID: id, Valid: true}
	}
	if req.TripID != "" {
		id, err := uuid.Parse(req.TripID)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid trip id", "INVALID_REQUEST"))
			return
		}
		in.TripID = uuid.NullUUID{UUID: id, Valid: true}
	}

	msg, err := h.messages.Send(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromMessage(msg)))
}

func (h *ChatHandler) ListMessages(c *gin.Context) {
	chatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid chat id", "INVALID_REQUEST"))
		return
	}
	actorID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	messages, err := h.messages.ListMessages(c.Request.Context(), actorID, chatID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ListMessagesResponse{
		Messages: httpdto.FromMessageSlice(messages),
	}))
}

func (h *ChatHandler) MarkRead(c *gin.Context) {
	chatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid chat id", "INVALID_REQUEST"))
		return
	}
	actorID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	if err := h.cursors.MarkRead(c.Request.Context(), chatID, actorID); err != nil {
		respondError(c, err)
		return
	}
	h.notifier.ReadMarked(actorID)
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func (h *ChatHandler) ListConversations(c *gin.Context) {
	actorID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	inbox, err := h.inbox.ListConversations(c.Request.Context(), actorID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ListConversationsResponse{
		Conversations: inbox,
	}))
}

// UnreadTotal is the REST fallback for the unread_count push.
func (h *ChatHandler) UnreadTotal(c *gin.Context) {
	actorID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	total, err := h.cursors.UnreadTotal(c.Request.Context(), actorID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.UnreadTotalResponse{UnreadCount: total}))
}
