package handlers

import (
	"net/http"
	"time"

	"dingbot/internal/pkg/errors"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping() error
}

type HealthHandler struct {
	database Pinger
	robots   int
}

func NewHealthHandler(database Pinger, robots int) *HealthHandler {
	return &HealthHandler{database: database, robots: robots}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)

	if err := h.database.Ping(); err != nil {
		checks["database"] = "unhealthy: " + err.Error()
	} else {
		checks["database"] = "healthy"
	}

	if h.robots == 0 {
		checks["robots"] = "unhealthy: no robots configured"
	} else {
		checks["robots"] = "healthy"
	}

	status := "healthy"
	for _, check := range checks {
		if len(check) >= 9 && check[:9] == "unhealthy" {
			status = "degraded"
			break
		}
	}

	response := struct {
		Status    string            `json:"status"`
		Timestamp int64             `json:"timestamp"`
		Checks    map[string]string `json:"checks"`
	}{
		Status:    status,
		Timestamp: time.Now().Unix(),
		Checks:    checks,
	}

	statusCode := http.StatusOK
	if status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	errors.WriteJSON(w, statusCode, response)
}
