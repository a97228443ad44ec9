package api

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"dingbot/internal/api/handlers"
	"dingbot/internal/api/middleware"
	apiContext "dingbot/internal/api/context"
	"dingbot/internal/pkg/errors"
)

type Dependencies struct {
	MessageHandler  *handlers.MessageHandler
	DeliveryHandler *handlers.DeliveryHandler
	HealthHandler   *handlers.HealthHandler
	MetricsHandler  *handlers.MetricsHandler
	AuthMiddleware  *middleware.AuthMiddleware
}

func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()

	router.GET("/health", wrap(deps.HealthHandler.Check))
	router.GET("/metrics", wrap(deps.MetricsHandler.Export))

	authMid := deps.AuthMiddleware

	// Messages
	router.POST("/api/v1/robots/:robot/messages",
		chain(deps.MessageHandler.Send, authMid.Handle))
	router.POST("/api/v1/broadcast",
		chain(deps.MessageHandler.Broadcast, authMid.Handle))

	// Delivery log
	router.GET("/api/v1/deliveries",
		chain(deps.DeliveryHandler.List, authMid.Handle))
	router.GET("/api/v1/deliveries/:delivery_id",
		chain(deps.DeliveryHandler.Get, authMid.Handle))

	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Route not found", nil)
	})
	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v interface{}) {
		log.Error().Interface("panic", v).Str("path", r.URL.Path).Msg("handler panicked")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Internal server error", nil)
	}

	return router
}

// Helper function to chain middlewares
func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// Convert http.HandlerFunc to httprouter.Handle
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}
