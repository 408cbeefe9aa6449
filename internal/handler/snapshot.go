package handler

import (
	"errors"
	"net/http"

	"github.com/cradoe/walletguard/internal/context"
	"github.com/cradoe/walletguard/internal/errHandler"
	"github.com/cradoe/walletguard/internal/repository"
	"github.com/cradoe/walletguard/internal/request"
	"github.com/cradoe/walletguard/internal/response"
	"github.com/cradoe/walletguard/internal/snapshot"
)

type SnapshotHandler struct {
	Identities repository.IdentityRepository
	ErrHandler *errHandler.ErrorHandler
}

func NewSnapshotHandler(handler *SnapshotHandler) *SnapshotHandler {
	return handler
}

// HandleExportIdentity returns the authenticated identity's snapshot.
// Card numbers and CVVs stay cipher text.
func (h *SnapshotHandler) HandleExportIdentity(w http.ResponseWriter, r *http.Request) {
	identity := context.ContextGetAuthenticatedIdentity(r)

	snap, err := snapshot.Export(h.Identities, identity.MobileNumber)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	err = response.JSONOkResponse(w, snap, "Identity exported", nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *SnapshotHandler) HandleImportIdentity(w http.ResponseWriter, r *http.Request) {
	var snap snapshot.IdentitySnapshot

	err := request.DecodeJSON(w, r, &snap)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	if err := snapshot.Import(h.Identities, &snap); err != nil {
		if errors.Is(err, snapshot.ErrDefaultCardMissing) || errors.Is(err, repository.ErrDuplicateIdentity) {
			response.JSONErrorResponse(w, nil, err.Error(), http.StatusUnprocessableEntity, nil)
			return
		}
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	err = response.JSONCreatedResponse(w, nil, "Identity imported")
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}
