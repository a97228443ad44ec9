package handlers

import (
	"fmt"
	"net/http"

	"dingbot/internal/platform/repositories"

	"github.com/rs/zerolog/log"
)

// StatusCounter reports delivery totals per robot and status.
type StatusCounter interface {
	CountByStatus() ([]repositories.StatusCount, error)
}

type MetricsHandler struct {
	counter StatusCounter
	robots  []string
}

func NewMetricsHandler(counter StatusCounter, robots []string) *MetricsHandler {
	return &MetricsHandler{counter: counter, robots: robots}
}

// Export writes the Prometheus text exposition format.
func (h *MetricsHandler) Export(w http.ResponseWriter, r *http.Request) {
	counts, err := h.counter.CountByStatus()
	if err != nil {
		log.Error().Err(err).Msg("failed to count deliveries")
		http.Error(w, "failed to collect metrics", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	fmt.Fprintf(w, "# HELP dingbot_up Is the server up\n")
	fmt.Fprintf(w, "# TYPE dingbot_up gauge\n")
	fmt.Fprintf(w, "dingbot_up 1\n")

	fmt.Fprintf(w, "# HELP dingbot_robots_configured Number of configured robots\n")
	fmt.Fprintf(w, "# TYPE dingbot_robots_configured gauge\n")
	fmt.Fprintf(w, "dingbot_robots_configured %d\n", len(h.robots))

	fmt.Fprintf(w, "# HELP dingbot_deliveries Retained deliveries by robot and status\n")
	fmt.Fprintf(w, "# TYPE dingbot_deliveries gauge\n")
	for _, c := range counts {
		fmt.Fprintf(w, "dingbot_deliveries{robot=%q,status=%q} %d\n", c.Robot, c.Status, c.Count)
	}
}
