package handlers

import (
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"dingbot/internal/engine/relay"
	"dingbot/internal/engine/robot"
	"dingbot/internal/platform/auth"
	"dingbot/internal/platform/models"
	"dingbot/internal/pkg/errors"

	go_json "github.com/goccy/go-json"
	"github.com/julienschmidt/httprouter"
	apiContext "dingbot/internal/api/context"
)

const maxMessageBytes = 64 << 10

// RobotLimiter charges the rate limit of every named robot at once.
type RobotLimiter interface {
	AllowRobots(names ...string) (bool, time.Duration)
}

type MessageHandler struct {
	relay   *relay.Service
	limiter RobotLimiter
}

// NewMessageHandler returns a handler sending through relaySvc. A nil
// limiter leaves robots unlimited.
func NewMessageHandler(relaySvc *relay.Service, limiter RobotLimiter) *MessageHandler {
	return &MessageHandler{relay: relaySvc, limiter: limiter}
}

// Send posts the wire message in the request body to the :robot robot.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)
	name := params.ByName("robot")

	if !h.relay.HasRobot(name) {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Robot not found", nil)
		return
	}
	if !canUse(r, name) {
		errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "Token may not use robot "+name, nil)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxMessageBytes))
	if err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	msg, err := robot.Decode(body)
	if err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, err.Error(), nil)
		return
	}
	if err := msg.Validate(); err != nil {
		writeSendError(w, err, nil)
		return
	}
	if !h.allow(w, name) {
		return
	}

	delivery, err := h.relay.Send(r.Context(), name, msg)
	if err != nil {
		writeSendError(w, err, delivery)
		return
	}

	errors.WriteJSON(w, http.StatusOK, delivery)
}

type broadcastRequest struct {
	Robots  []string           `json:"robots"`
	Message go_json.RawMessage `json:"message"`
}

type broadcastResponse struct {
	Deliveries []*models.Delivery `json:"deliveries"`
}

// Broadcast posts one message to several robots.
func (h *MessageHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if err := go_json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBytes)).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	if len(req.Robots) == 0 {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "robots is required", nil)
		return
	}
	for _, name := range req.Robots {
		if !h.relay.HasRobot(name) {
			errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Robot not found: "+name, nil)
			return
		}
		if !canUse(r, name) {
			errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "Token may not use robot "+name, nil)
			return
		}
	}

	msg, err := robot.Decode(req.Message)
	if err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, err.Error(), nil)
		return
	}
	if err := msg.Validate(); err != nil {
		writeSendError(w, err, nil)
		return
	}
	if !h.allow(w, req.Robots...) {
		return
	}

	deliveries, err := h.relay.Broadcast(r.Context(), req.Robots, msg)
	if err != nil {
		writeSendError(w, err, nil)
		return
	}

	errors.WriteJSON(w, http.StatusOK, broadcastResponse{Deliveries: deliveries})
}

// allow charges the named robots and writes 429 when any of them is out of
// tokens.
func (h *MessageHandler) allow(w http.ResponseWriter, names ...string) bool {
	if h.limiter == nil {
		return true
	}
	ok, wait := h.limiter.AllowRobots(names...)
	if ok {
		return true
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(wait)))
	errors.WriteError(w, http.StatusTooManyRequests, errors.ErrCodeRateLimitExceeded, "Rate limit exceeded", nil)
	return false
}

func retryAfterSeconds(wait time.Duration) int {
	secs := int((wait + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

func writeSendError(w http.ResponseWriter, err error, delivery *models.Delivery) {
	var validationErr *robot.ValidationError
	switch {
	case stderrors.Is(err, relay.ErrUnknownRobot):
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, err.Error(), nil)
	case stderrors.As(err, &validationErr),
		stderrors.Is(err, robot.ErrUnknownMsgType),
		stderrors.Is(err, robot.ErrMalformedMessage):
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, err.Error(), nil)
	case delivery != nil:
		errors.WriteError(w, http.StatusBadGateway, errors.ErrCodeBadGateway, err.Error(), delivery)
	default:
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Internal server error", nil)
	}
}

// canUse checks the robot scope of the caller's token. Requests without
// claims have passed no auth middleware and are not scoped.
func canUse(r *http.Request, name string) bool {
	claims, ok := r.Context().Value(apiContext.Claims).(*auth.Claims)
	if !ok || claims == nil {
		return true
	}
	return claims.CanUse(name)
}

// scopedRobots returns the robots the caller's token is limited to, or nil
// when it may use every robot.
func scopedRobots(r *http.Request) []string {
	claims, ok := r.Context().Value(apiContext.Claims).(*auth.Claims)
	if !ok || claims == nil {
		return nil
	}
	return claims.Robots
}
