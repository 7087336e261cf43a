package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type HealthController struct{}

func NewHealthController() *HealthController {
	return &HealthController{}
}

func (c *HealthController) RegisterRoutes(r chi.Router, _ func(http.Handler) http.Handler) {
	r.Get("/health", c.health)
}

func (c *HealthController) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
