package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/cradoe/walletguard/internal/config"
	"github.com/cradoe/walletguard/internal/context"
	"github.com/cradoe/walletguard/internal/engine"
	"github.com/cradoe/walletguard/internal/errHandler"
	"github.com/cradoe/walletguard/internal/gateway"
	"github.com/cradoe/walletguard/internal/request"
	"github.com/cradoe/walletguard/internal/response"
	"github.com/cradoe/walletguard/internal/validator"
)

type GatewayHandler struct {
	Gateway    gateway.Gateway
	Provider   gateway.PurchaseProvider
	Engine     *engine.Engine
	ErrHandler *errHandler.ErrorHandler
	Config     *config.Config
}

func NewGatewayHandler(handler *GatewayHandler) *GatewayHandler {
	return handler
}

// HandleGatewayInitiate starts an online top-up: the caller is redirected to
// the gateway and comes back through the callback with an authority token.
func (h *GatewayHandler) HandleGatewayInitiate(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Amount      float64             `json:"amount"`
		Description string              `json:"description"`
		Validator   validator.Validator `json:"-"`
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

	callbackURL := fmt.Sprintf("%s/gateway/callback", h.Config.BaseURL)

	redirectURL, err := h.Gateway.Initiate(r.Context(), input.Amount, input.Description, callbackURL)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	data := map[string]string{
		"redirect_url": redirectURL,
	}
	err = response.JSONOkResponse(w, data, "Payment initiated", nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

// HandleGatewayCallback verifies the gateway result and chains a successful
// verification into a device top-up on the default card.
func (h *GatewayHandler) HandleGatewayCallback(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Status    string              `json:"status"`
		Authority string              `json:"authority"`
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

	input.Validator.Check(validator.NotBlank(input.Status), "Status is required")
	input.Validator.Check(validator.NotBlank(input.Authority), "Authority is required")
	input.Validator.Check(input.Amount > 0, "Amount is required")
	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	verifyResult, err := h.Gateway.Verify(r.Context(), input.Status, input.Authority, input.Amount)
	if err != nil {
		respondGatewayError(h.ErrHandler, w, r, err)
		return
	}

	if !verifyResult.Success {
		response.JSONErrorResponse(w, nil, "Payment could not be verified", http.StatusUnprocessableEntity, nil)
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

	data := map[string]any{
		"ref_id":  verifyResult.RefID,
		"outcome": outcome,
	}
	err = response.JSONOkResponse(w, data, "Top-up verified", nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *GatewayHandler) HandleListProducts(w http.ResponseWriter, r *http.Request) {
	idsParam := r.URL.Query().Get("ids")

	var ids []string
	if idsParam != "" {
		ids = strings.Split(idsParam, ",")
	}

	products, err := h.Provider.ListProducts(r.Context(), ids)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	err = response.JSONOkResponse(w, products, "Products retrieved successfully", nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

// HandlePurchase buys a product, verifies the purchase token and tops the
// default card up with the product's value.
func (h *GatewayHandler) HandlePurchase(w http.ResponseWriter, r *http.Request) {
	var input struct {
		ProductID string              `json:"product_id"`
		GeoHash   string              `json:"geo_hash"`
		Validator validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	input.Validator.Check(validator.NotBlank(input.ProductID), "Product ID is required")
	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	identity := context.ContextGetAuthenticatedIdentity(r)

	products, err := h.Provider.ListProducts(r.Context(), []string{input.ProductID})
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}
	if len(products) == 0 {
		respondGatewayError(h.ErrHandler, w, r, gateway.ErrUnknownProduct)
		return
	}
	product := products[0]

	defaultCard := identity.DefaultCard()
	if defaultCard == nil {
		respondDomainError(h.ErrHandler, w, r, engine.ErrNoDefaultCard)
		return
	}

	purchase, err := h.Provider.Purchase(r.Context(), product.ID, defaultCard.ID)
	if err != nil {
		respondGatewayError(h.ErrHandler, w, r, err)
		return
	}

	verified, err := h.Provider.VerifyPurchase(r.Context(), purchase.PurchaseToken)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}
	if !verified {
		response.JSONErrorResponse(w, nil, "Purchase could not be verified", http.StatusUnprocessableEntity, nil)
		return
	}

	outcome, err := h.Engine.TopUp(r.Context(), &engine.TopUpRequest{
		MobileNumber: identity.MobileNumber,
		Amount:       product.Value,
		GeoHash:      input.GeoHash,
	})
	if err != nil {
		respondDomainError(h.ErrHandler, w, r, err)
		return
	}

	data := map[string]any{
		"product": product,
		"outcome": outcome,
	}
	err = response.JSONOkResponse(w, data, "Purchase applied", nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func respondGatewayError(eh *errHandler.ErrorHandler, w http.ResponseWriter, r *http.Request, err error) {
	switch err {
	case gateway.ErrUnknownAuthority, gateway.ErrUnknownProduct:
		response.JSONErrorResponse(w, nil, err.Error(), http.StatusUnprocessableEntity, nil)
	default:
		eh.ServerError(w, r, err)
	}
}
