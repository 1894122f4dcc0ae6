package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Zachkp/portfolio/internal/audit"
	"github.com/Zachkp/portfolio/internal/logging"
	"github.com/Zachkp/portfolio/internal/middleware"
	"github.com/Zachkp/portfolio/internal/relay"
	"github.com/Zachkp/portfolio/internal/submission"
)

// MaxBodyBytes caps the JSON body of POST /api/messages.
const MaxBodyBytes = 64 << 10

// Forwarder delivers a validated submission to the external collector.
type Forwarder interface {
	Forward(ctx context.Context, s submission.Submission) error
}

// Recorder stores relay attempt metadata.
type Recorder interface {
	Record(ctx context.Context, a audit.Attempt) error
}

type MessageHandler struct {
	relay  Forwarder
	audit  Recorder
	logger *logging.Logger
	salt   string
	now    func() time.Time
}

// NewMessageHandler wires the relay endpoint. recorder may be nil; salt is
// mixed into client IPs before they are recorded.
func NewMessageHandler(forwarder Forwarder, recorder Recorder, logger *logging.Logger, salt string) *MessageHandler {
	return &MessageHandler{
		relay:  forwarder,
		audit:  recorder,
		logger: logger,
		salt:   salt,
		now:    time.Now,
	}
}

// Create validates the submission again, relays it and maps the outcome.
func (h *MessageHandler) Create(c *gin.Context) {
	start := h.now()
	requestID := c.GetString(middleware.RequestIDKey)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)

	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.logger.Warn("request %s: message body over %d bytes", requestID, tooLarge.Limit)
			h.record(c, start, audit.Attempt{Outcome: audit.OutcomeRejected, Field: FieldBody})
			c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: MsgBodyTooLarge})
			return
		}
		h.logger.Warn("request %s: invalid message body: %v", requestID, err)
		h.record(c, start, audit.Attempt{Outcome: audit.OutcomeRejected, Field: FieldBody})
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{Message: MsgInvalidBody, Field: FieldBody})
		return
	}

	s, verr := submission.Validate(req.Name, req.Email, req.Message)
	if verr != nil {
		h.record(c, start, audit.Attempt{Outcome: audit.OutcomeRejected, Field: verr.Field})
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{Message: verr.Message, Field: verr.Field})
		return
	}

	// a visitor closing the tab must not abort a delivery already under way
	ctx := context.WithoutCancel(c.Request.Context())
	if err := h.relay.Forward(ctx, s); err != nil {
		attempt := audit.Attempt{Outcome: audit.OutcomeFailed}
		var relayErr *relay.Error
		if errors.As(err, &relayErr) {
			attempt.StatusCode = relayErr.StatusCode
			h.logger.Error("request %s: webhook returned %d: %s", requestID, relayErr.StatusCode, relayErr.Body)
		} else {
			h.logger.Error("request %s: webhook delivery failed: %v", requestID, err)
		}
		h.record(c, start, attempt)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: MsgSendFailed})
		return
	}

	h.record(c, start, audit.Attempt{Outcome: audit.OutcomeDelivered})
	h.logger.Info("request %s: message relayed", requestID)
	c.JSON(http.StatusCreated, MessageResponse{Success: true, Message: MsgSent})
}

func (h *MessageHandler) record(c *gin.Context, start time.Time, a audit.Attempt) {
	if h.audit == nil {
		return
	}
	now := h.now()
	a.HashedIP = audit.HashIP(h.salt, c.ClientIP())
	a.DurationMS = now.Sub(start).Milliseconds()
	a.CreatedAt = now
	if err := h.audit.Record(context.WithoutCancel(c.Request.Context()), a); err != nil {
		h.logger.Warn("failed to record relay attempt: %v", err)
	}
}

// Health reports that the process is serving.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": healthStatusReady})
}
