package handlers

import (
	stderrors "errors"
	"net/http"
	"strconv"

	"dingbot/internal/platform/models"
	"dingbot/internal/platform/repositories"
	"dingbot/internal/pkg/errors"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	apiContext "dingbot/internal/api/context"
)

type DeliveryHandler struct {
	repo *repositories.DeliveryRepository
}

func NewDeliveryHandler(repo *repositories.DeliveryRepository) *DeliveryHandler {
	return &DeliveryHandler{repo: repo}
}

type deliveryListResponse struct {
	Deliveries []*models.Delivery `json:"deliveries"`
}

func (h *DeliveryHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	robotName := query.Get("robot")

	limit := 0
	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "limit must be a positive integer", nil)
			return
		}
		limit = n
	}

	robots := scopedRobots(r)
	if robotName != "" {
		if !canUse(r, robotName) {
			errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "Token may not use robot "+robotName, nil)
			return
		}
		robots = []string{robotName}
	}

	deliveries, err := h.repo.List(robots, limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to list deliveries")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to list deliveries", nil)
		return
	}

	errors.WriteJSON(w, http.StatusOK, deliveryListResponse{Deliveries: deliveries})
}

func (h *DeliveryHandler) Get(w http.ResponseWriter, r *http.Request) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)
	id := params.ByName("delivery_id")

	delivery, err := h.repo.GetByID(id)
	if stderrors.Is(err, repositories.ErrDeliveryNotFound) || (err == nil && !canUse(r, delivery.Robot)) {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Delivery not found", nil)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("delivery_id", id).Msg("failed to get delivery")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to get delivery", nil)
		return
	}

	errors.WriteJSON(w, http.StatusOK, delivery)
}
