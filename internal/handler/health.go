package handler

import (
	"net/http"

	"github.com/cradoe/walletguard/internal/errHandler"
	"github.com/cradoe/walletguard/internal/response"
	"github.com/cradoe/walletguard/internal/version"
)

type HealthCheckHandler struct {
	ErrHandler *errHandler.ErrorHandler
}

func NewHealthCheckHandler(errHandler *errHandler.ErrorHandler) *HealthCheckHandler {
	return &HealthCheckHandler{
		ErrHandler: errHandler,
	}
}

func (h *HealthCheckHandler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	data := map[string]string{
		"status":  "OK",
		"version": version.Get(),
	}

	err := response.JSONOkResponse(w, data, "Service is healthy", nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}
