package handler

import (
	"net/http"

	"github.com/cradoe/walletguard/internal/cards"
	"github.com/cradoe/walletguard/internal/context"
	"github.com/cradoe/walletguard/internal/errHandler"
	"github.com/cradoe/walletguard/internal/models"
	"github.com/cradoe/walletguard/internal/request"
	"github.com/cradoe/walletguard/internal/response"
	"github.com/cradoe/walletguard/internal/validator"
)

type CardHandler struct {
	Registry   *cards.Registry
	ErrHandler *errHandler.ErrorHandler
}

func NewCardHandler(handler *CardHandler) *CardHandler {
	return handler
}

type CardResponseData struct {
	ID           string  `json:"id"`
	Alias        string  `json:"alias"`
	MaskedNumber string  `json:"masked_number"`
	Expiry       string  `json:"expiry"`
	DailyLimit   float64 `json:"daily_limit"`
	AuthPolicy   string  `json:"auth_policy"`
	Suspended    bool    `json:"suspended"`
	IsDefault    bool    `json:"is_default"`
}

func (h *CardHandler) cardResponse(identity *models.Identity, card *models.Card) (*CardResponseData, error) {
	masked, err := h.Registry.Mask(card)
	if err != nil {
		return nil, err
	}

	return &CardResponseData{
		ID:           card.ID,
		Alias:        card.Alias,
		MaskedNumber: masked,
		Expiry:       card.Expiry,
		DailyLimit:   card.DailyLimit,
		AuthPolicy:   string(card.AuthPolicy),
		Suspended:    card.Suspended,
		IsDefault:    identity.DefaultCardID == card.ID,
	}, nil
}

func (h *CardHandler) HandleListCards(w http.ResponseWriter, r *http.Request) {
	identity := context.ContextGetAuthenticatedIdentity(r)

	data := make([]*CardResponseData, 0, len(identity.Cards))
	for _, card := range identity.Cards {
		item, err := h.cardResponse(identity, card)
		if err != nil {
			// Decryption failure is data corruption, not an empty list.
			h.ErrHandler.ServerError(w, r, err)
			return
		}
		data = append(data, item)
	}

	err := response.JSONOkResponse(w, data, "Cards retrieved successfully", nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *CardHandler) HandleAddCard(w http.ResponseWriter, r *http.Request) {
	var input struct {
		cardInputPayload
		Otp       string              `json:"otp"`
		Password  string              `json:"password"`
		Validator validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	input.Validator.Check(validator.NotBlank(input.Otp), "OTP is required")
	input.Validator.Check(validator.NotBlank(input.Password), "Password is required")
	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	identity := context.ContextGetAuthenticatedIdentity(r)

	guard := &cards.GuardInput{OtpCode: input.Otp, Password: input.Password}

	card, err := h.Registry.Add(identity.MobileNumber, guard, input.toInput())
	if err != nil {
		respondDomainError(h.ErrHandler, w, r, err)
		return
	}

	data, err := h.cardResponse(identity, card)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	err = response.JSONCreatedResponse(w, data, "Card added successfully")
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

type guardedCardInput struct {
	Otp       string              `json:"otp"`
	Password  string              `json:"password"`
	Validator validator.Validator `json:"-"`
}

func (h *CardHandler) decodeGuard(w http.ResponseWriter, r *http.Request, input *guardedCardInput) bool {
	err := request.DecodeJSON(w, r, input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return false
	}

	input.Validator.Check(validator.NotBlank(input.Otp), "OTP is required")
	input.Validator.Check(validator.NotBlank(input.Password), "Password is required")
	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return false
	}

	return true
}

func (h *CardHandler) HandleRemoveCard(w http.ResponseWriter, r *http.Request) {
	var input guardedCardInput
	if !h.decodeGuard(w, r, &input) {
		return
	}

	identity := context.ContextGetAuthenticatedIdentity(r)
	cardID := r.PathValue("id")

	guard := &cards.GuardInput{OtpCode: input.Otp, Password: input.Password}

	if err := h.Registry.Remove(identity.MobileNumber, guard, cardID); err != nil {
		respondDomainError(h.ErrHandler, w, r, err)
		return
	}

	err := response.JSONOkResponse(w, nil, "Card removed successfully", nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *CardHandler) HandleSetDefaultCard(w http.ResponseWriter, r *http.Request) {
	var input guardedCardInput
	if !h.decodeGuard(w, r, &input) {
		return
	}

	identity := context.ContextGetAuthenticatedIdentity(r)
	cardID := r.PathValue("id")

	guard := &cards.GuardInput{OtpCode: input.Otp, Password: input.Password}

	if err := h.Registry.SetDefault(identity.MobileNumber, guard, cardID); err != nil {
		respondDomainError(h.ErrHandler, w, r, err)
		return
	}

	err := response.JSONOkResponse(w, nil, "Default card updated", nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *CardHandler) HandleSetDailyLimit(w http.ResponseWriter, r *http.Request) {
	var input struct {
		DailyLimit float64             `json:"daily_limit"`
		Otp        string              `json:"otp"`
		Password   string              `json:"password"`
		Validator  validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	input.Validator.Check(input.DailyLimit > 0, "Daily limit must be greater than zero")
	input.Validator.Check(validator.NotBlank(input.Otp), "OTP is required")
	input.Validator.Check(validator.NotBlank(input.Password), "Password is required")
	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	identity := context.ContextGetAuthenticatedIdentity(r)
	cardID := r.PathValue("id")

	guard := &cards.GuardInput{OtpCode: input.Otp, Password: input.Password}

	if err := h.Registry.SetDailyLimit(identity.MobileNumber, guard, cardID, input.DailyLimit); err != nil {
		respondDomainError(h.ErrHandler, w, r, err)
		return
	}

	err = response.JSONOkResponse(w, nil, "Daily limit updated", nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *CardHandler) HandleSetAuthPolicy(w http.ResponseWriter, r *http.Request) {
	var input struct {
		AuthPolicy string              `json:"auth_policy"`
		Otp        string              `json:"otp"`
		Password   string              `json:"password"`
		Validator  validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	input.Validator.Check(validator.NotBlank(input.AuthPolicy), "Auth policy is required")
	input.Validator.Check(validator.NotBlank(input.Otp), "OTP is required")
	input.Validator.Check(validator.NotBlank(input.Password), "Password is required")
	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	identity := context.ContextGetAuthenticatedIdentity(r)
	cardID := r.PathValue("id")

	guard := &cards.GuardInput{OtpCode: input.Otp, Password: input.Password}

	if err := h.Registry.SetAuthPolicy(identity.MobileNumber, guard, cardID, models.AuthPolicy(input.AuthPolicy)); err != nil {
		respondDomainError(h.ErrHandler, w, r, err)
		return
	}

	err = response.JSONOkResponse(w, nil, "Auth policy updated", nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}
