package controller

import (
	"net/http"
	"time"

	"github.com/api-sage/banking-ledger/src/internal/adapter/http/models"
	"github.com/api-sage/banking-ledger/src/internal/usecase/service_interfaces"
	"github.com/go-chi/chi/v5"
)

type AuthController struct {
	service service_interfaces.AuthService
	responder
}

func NewAuthController(service service_interfaces.AuthService, exposeDetails bool) *AuthController {
	return &AuthController{service: service, responder: responder{exposeDetails: exposeDetails}}
}

// RegisterRoutes mounts the anonymous endpoints; authMiddleware is unused.
func (c *AuthController) RegisterRoutes(r chi.Router, _ func(http.Handler) http.Handler) {
	r.Post("/api/authentication/authenticate", c.authenticate)
	r.Post("/api/v1/accounts/register", c.register)
}

func (c *AuthController) authenticate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	var req models.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		logError(r, err, nil)
		reject[models.TokenResponse](w, r, start, err)
		return
	}
	logRequest(r, req)

	response, err := c.service.Login(r.Context(), req)
	result(c.responder, w, r, start, http.StatusOK, response, err)
}

func (c *AuthController) register(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	var req models.CreateAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		logError(r, err, nil)
		reject[models.RegisterResponse](w, r, start, err)
		return
	}
	logRequest(r, req)

	response, err := c.service.Register(r.Context(), req)
	result(c.responder, w, r, start, http.StatusCreated, response, err)
}
