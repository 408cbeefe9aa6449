package handler

import (
	"net/http"
	"time"

	"github.com/cradoe/walletguard/internal/context"
	"github.com/cradoe/walletguard/internal/engine"
	"github.com/cradoe/walletguard/internal/errHandler"
	"github.com/cradoe/walletguard/internal/models"
	"github.com/cradoe/walletguard/internal/repository"
	"github.com/cradoe/walletguard/internal/request"
	"github.com/cradoe/walletguard/internal/response"
	"github.com/cradoe/walletguard/internal/validator"
)

type TransactionHandler struct {
	Engine     *engine.Engine
	Ledger     repository.LedgerRepository
	ErrHandler *errHandler.ErrorHandler
}

func NewTransactionHandler(handler *TransactionHandler) *TransactionHandler {
	return handler
}

type TransactionResponseData struct {
	ID        string   `json:"id"`
	CardID    string   `json:"card_id"`
	Amount    float64  `json:"amount"`
	FeeAmount float64  `json:"fee_amount"`
	Status    string   `json:"status"`
	Message   string   `json:"message"`
	Flags     []string `json:"flags,omitempty"`
	RiskScore int      `json:"risk_score"`
	CreatedAt string   `json:"created_at"`
}

// HandlePay runs the payment state machine against the identity's default
// card. A declined outcome is a successful HTTP exchange: the decline is the
// result, already written to the ledger.
func (h *TransactionHandler) HandlePay(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Amount    float64             `json:"amount"`
		GeoHash   string              `json:"geo_hash"`
		Pin       string              `json:"pin"`
		Biometric bool                `json:"biometric"`
		Validator validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	input.Validator.Check(input.Amount > 0, "Amount is required")
	input.Validator.Check(validator.NotBlank(input.GeoHash), "Geo hash is required")
	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	identity := context.ContextGetAuthenticatedIdentity(r)

	outcome, err := h.Engine.Pay(r.Context(), &engine.PaymentRequest{
		MobileNumber: identity.MobileNumber,
		Amount:       input.Amount,
		GeoHash:      input.GeoHash,
		Pin:          input.Pin,
		Biometric:    input.Biometric,
	})
	if err != nil {
		respondDomainError(h.ErrHandler, w, r, err)
		return
	}

	message := outcome.Message
	if outcome.Status == models.StatusSuccess {
		message = "Payment successful"
	}

	err = response.JSONOkResponse(w, outcome, message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *TransactionHandler) HandleTopUp(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Amount    float64             `json:"amount"`
		GeoHash   string              `json:"geo_hash"`
		Pin       string              `json:"pin"`
		Validator validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	input.Validator.Check(input.Amount > 0, "Amount is required")
	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	identity := context.ContextGetAuthenticatedIdentity(r)

	outcome, err := h.Engine.TopUp(r.Context(), &engine.TopUpRequest{
		MobileNumber: identity.MobileNumber,
		Amount:       input.Amount,
		GeoHash:      input.GeoHash,
		Pin:          input.Pin,
	})
	if err != nil {
		respondDomainError(h.ErrHandler, w, r, err)
		return
	}

	message := outcome.Message
	if outcome.Status == models.StatusSuccess {
		message = "Top-up successful"
	}

	err = response.JSONOkResponse(w, outcome, message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *TransactionHandler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	identity := context.ContextGetAuthenticatedIdentity(r)

	balance, err := h.Engine.Balance(r.Context(), identity.MobileNumber)
	if err != nil {
		respondDomainError(h.ErrHandler, w, r, err)
		return
	}

	data := map[string]any{
		"balance":   balance,
		"bank_name": BankName,
	}
	err = response.JSONOkResponse(w, data, "Balance fetched successfully", nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

// HandleTransactions lists the identity's ledger records, newest first.
// Records are scoped by the set of card ids belonging to the requester;
// an optional start_date/end_date pair narrows the range (inclusive).
func (h *TransactionHandler) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	identity := context.ContextGetAuthenticatedIdentity(r)

	cardIDs := make([]string, 0, len(identity.Cards))
	for _, card := range identity.Cards {
		cardIDs = append(cardIDs, card.ID)
	}

	queryValues := retrieveUrlQueryValues(r)

	var records []models.TransactionRecord
	var err error

	if queryValues.StartDate != nil && queryValues.EndDate != nil {
		records, err = h.Ledger.ListByDateRange(cardIDs, *queryValues.StartDate, *queryValues.EndDate)
	} else {
		records, err = h.Ledger.ListByCards(cardIDs)
	}

	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	data := make([]*TransactionResponseData, len(records))
	for i, record := range records {
		data[i] = &TransactionResponseData{
			ID:        record.ID,
			CardID:    record.CardID,
			Amount:    record.Amount,
			FeeAmount: record.FeeAmount,
			Status:    string(record.Status),
			Message:   record.Message,
			Flags:     record.Flags,
			RiskScore: record.RiskScore,
			CreatedAt: record.CreatedAt.Format(time.RFC3339),
		}
	}

	err = response.JSONOkResponse(w, data, "Transactions retrieved successfully", nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}
