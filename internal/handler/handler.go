package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/cradoe/walletguard/internal/cards"
	"github.com/cradoe/walletguard/internal/engine"
	"github.com/cradoe/walletguard/internal/errHandler"
	"github.com/cradoe/walletguard/internal/otp"
	"github.com/cradoe/walletguard/internal/response"
	"github.com/cradoe/walletguard/internal/session"
	"github.com/cradoe/walletguard/internal/snapshot"
)

const BankName = "WalletGuard"

type queryStringValues struct {
	StartDate *time.Time
	EndDate   *time.Time
}

func retrieveUrlQueryValues(r *http.Request) *queryStringValues {
	var queryValues = &queryStringValues{}

	startDateStr := r.URL.Query().Get("start_date")
	if startDateStr != "" {
		parsedStart, err := time.Parse("2006-01-02", startDateStr)
		if err == nil {
			queryValues.StartDate = &parsedStart
		}
	}

	endDateStr := r.URL.Query().Get("end_date")
	if endDateStr != "" {
		parsedEnd, err := time.Parse("2006-01-02", endDateStr)
		if err == nil {
			// Make the range inclusive of the whole end day.
			parsedEnd = parsedEnd.Add(24*time.Hour - time.Nanosecond)
			queryValues.EndDate = &parsedEnd
		}
	}

	return queryValues
}

// respondDomainError maps fatal engine/service errors onto the response
// envelope. Declined outcomes never arrive here; they are normal values.
func respondDomainError(eh *errHandler.ErrorHandler, w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *cards.ValidationError

	switch {
	case errors.Is(err, session.ErrNotAuthenticated), errors.Is(err, session.ErrExpired):
		response.JSONErrorResponse(w, nil, err.Error(), http.StatusUnauthorized, nil)

	case errors.Is(err, engine.ErrCooldown):
		eh.TooManyRequests(w, r, err.Error())

	case errors.As(err, &validationErr):
		eh.FailedValidation(w, r, validationErr.Errors)

	case errors.Is(err, engine.ErrDeviceFailure):
		response.JSONErrorResponse(w, nil, err.Error(), http.StatusBadGateway, nil)

	case errors.Is(err, otp.ErrTooManyAttempts),
		errors.Is(err, cards.ErrInvalidOtp),
		errors.Is(err, cards.ErrInvalidPassword),
		errors.Is(err, cards.ErrCannotRemoveDefault),
		errors.Is(err, cards.ErrCardNotFound),
		errors.Is(err, engine.ErrAccountLocked),
		errors.Is(err, engine.ErrNoDefaultCard),
		errors.Is(err, engine.ErrInvalidAmount),
		errors.Is(err, engine.ErrIdentityNotFound),
		errors.Is(err, cards.ErrIdentityNotFound),
		errors.Is(err, snapshot.ErrDefaultCardMissing):
		response.JSONErrorResponse(w, nil, err.Error(), http.StatusUnprocessableEntity, nil)

	default:
		eh.ServerError(w, r, err)
	}
}
