package handler

import (
	"context"
	"net/http"

	"roamly-chat/internal/services"
	"roamly-chat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type requestDecider interface {
	Accept(ctx context.Context, actorID, tripID, applicantID uuid.UUID) error
	Reject(ctx context.Context, actorID, tripID, applicantID uuid.UUID) error
}

type RequestHandler struct {
	requests requestDecider
}

func NewRequestHandler(requests requestDecider) *RequestHandler {
	return &RequestHandler{requests: requests}
}

func (h *RequestHandler) Accept(c *gin.Context) {
	h.decide(c, h.requests.Accept)
}

func (h *RequestHandler) Reject(c *gin.Context) {
	h.decide(c, h.requests.Reject)
}

func (h *RequestHandler) decide(c *gin.Context, decision func(context.Context, uuid.UUID, uuid.UUID, uuid.UUID) error) {
	tripID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid trip id", "INVALID_REQUEST"))
		return
	}
	applicantID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid user id", "INVALID_REQUEST"))
		return
	}
	actorID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	if err := decision(c.Request.Context(), actorID, tripID, applicantID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}
