package realtime

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mcoot/judgeportal/internal/config"
	"github.com/mcoot/judgeportal/internal/model"
	"github.com/mcoot/judgeportal/internal/services/submission"
)

// Submitter stores a submission on behalf of a viewer
type Submitter interface {
	Submit(ctx context.Context, viewer model.Viewer, req submission.Request) (string, error)
}

// Handler serves the websocket and SSE endpoints of the hub
type Handler struct {
	hub       *Hub
	submitter Submitter
	messages  config.Messages
	logger    *slog.Logger
}

// NewHandler creates a new Handler
func NewHandler(hub *Hub, submitter Submitter, messages config.Messages, logger *slog.Logger) *Handler {
	return &Handler{
		hub:       hub,
		submitter: submitter,
		messages:  messages,
		logger:    logger.With(slog.String("component", "realtime")),
	}
}

func newClientID() string {
	return uuid.NewString()
}

// submit handles one submit frame and returns the message to reply with
func (h *Handler) submit(ctx context.Context, client *Client, req submission.Request) string {
	_, err := h.submitter.Submit(ctx, client.viewer, req)
	switch {
	case err == nil:
		return h.messages.Success
	case errors.Is(err, model.ErrInvalidSubmission):
		return h.messages.InvalidData
	case errors.Is(err, model.ErrUnknownProblem):
		return h.messages.ProblemNotFound
	case errors.Is(err, model.ErrForbiddenUser):
		return h.messages.Forbidden
	default:
		h.logger.Error("submission failed",
			slog.String("client_id", client.id),
			slog.String("username", req.Username),
			slog.Any("error", err))
		return h.messages.Failed
	}
}
