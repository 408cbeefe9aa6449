package handler

import (
	"log"
	"net/http"
	"time"

	"github.com/cradoe/walletguard/internal/cards"
	"github.com/cradoe/walletguard/internal/config"
	"github.com/cradoe/walletguard/internal/context"
	"github.com/cradoe/walletguard/internal/errHandler"
	"github.com/cradoe/walletguard/internal/helper"
	"github.com/cradoe/walletguard/internal/models"
	"github.com/cradoe/walletguard/internal/otp"
	"github.com/cradoe/walletguard/internal/repository"
	"github.com/cradoe/walletguard/internal/request"
	"github.com/cradoe/walletguard/internal/response"
	"github.com/cradoe/walletguard/internal/risk"
	"github.com/cradoe/walletguard/internal/session"
	"github.com/cradoe/walletguard/internal/smtp"
	"github.com/cradoe/walletguard/internal/validator"

	"github.com/cradoe/gopass"
	"github.com/pascaldekloe/jwt"
)

type AuthHandler struct {
	Identities repository.IdentityRepository
	Registry   *cards.Registry
	Sessions   *session.Manager
	Otp        *otp.Service
	Helper     *helper.HelperRepository
	Mailer     smtp.MailerInterface
	ErrHandler *errHandler.ErrorHandler
	Config     *config.Config
}

func NewAuthHandler(handler *AuthHandler) *AuthHandler {
	return handler
}

type cardInputPayload struct {
	Alias           string  `json:"alias"`
	Number          string  `json:"number"`
	CVV             string  `json:"cvv"`
	Expiry          string  `json:"expiry"`
	OwnerNationalID string  `json:"owner_national_id"`
	DailyLimit      float64 `json:"daily_limit"`
	AuthPolicy      string  `json:"auth_policy"`
}

func (p *cardInputPayload) toInput() *cards.CardInput {
	return &cards.CardInput{
		Alias:           p.Alias,
		Number:          p.Number,
		CVV:             p.CVV,
		Expiry:          p.Expiry,
		OwnerNationalID: p.OwnerNationalID,
		DailyLimit:      p.DailyLimit,
		AuthPolicy:      models.AuthPolicy(p.AuthPolicy),
	}
}

// Registration creates the identity aggregate and, optionally, its first
// card, which becomes the default.
func (h *AuthHandler) HandleAuthRegister(w http.ResponseWriter, r *http.Request) {
	var input struct {
		MobileNumber string              `json:"mobile_number"`
		NationalID   string              `json:"national_id"`
		Email        string              `json:"email"`
		Password     string              `json:"password"`
		Card         *cardInputPayload   `json:"card"`
		Validator    validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	// Password strength first; a weak password fails before anything else.
	_, errs := gopass.Validate(input.Password)
	if errs != nil {
		h.ErrHandler.FailedValidation(w, r, errs)
		return
	}

	input.Validator.Check(validator.NotBlank(input.MobileNumber), "Mobile number is required")
	input.Validator.Check(validator.Matches(input.MobileNumber, validator.RgxMobileNumber), "Mobile number must be in international format")
	input.Validator.Check(validator.NotBlank(input.NationalID), "National ID is required")
	input.Validator.Check(validator.Matches(input.NationalID, validator.RgxNationalID), "National ID must be 8-12 digits")

	_, found, err := h.Identities.GetOne(input.MobileNumber)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}
	input.Validator.Check(!found, "Mobile number is already registered")

	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	hashedPassword, err := gopass.Hash(input.Password)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	identity := &models.Identity{
		MobileNumber:   input.MobileNumber,
		NationalID:     input.NationalID,
		Email:          input.Email,
		HashedPassword: hashedPassword,
		Status:         models.IdentityActiveStatus,
		CreatedAt:      time.Now(),
	}

	if input.Card != nil {
		if _, err := h.Registry.AttachInitial(identity, input.Card.toInput()); err != nil {
			respondDomainError(h.ErrHandler, w, r, err)
			return
		}
	}

	if err := h.Identities.Insert(identity); err != nil {
		if err == repository.ErrDuplicateIdentity {
			h.ErrHandler.FailedValidation(w, r, []string{err.Error()})
			return
		}
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	if identity.Email != "" {
		h.Helper.BackgroundTask(r, func() error {
			emailData := h.Helper.NewEmailData()
			emailData["Name"] = identity.MobileNumber

			err := h.Mailer.Send(identity.Email, emailData, "welcome.tmpl")
			if err != nil {
				log.Printf("Error sending welcome email: %v", err)
				return err
			}

			return nil
		})
	}

	message := "Account created successfully"

	err = response.JSONCreatedResponse(w, nil, message)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *AuthHandler) HandleAuthLogin(w http.ResponseWriter, r *http.Request) {
	var input struct {
		MobileNumber string              `json:"mobile_number"`
		Password     string              `json:"password"`
		Validator    validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	identity, found, err := h.Identities.GetOne(input.MobileNumber)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	input.Validator.Check(validator.NotBlank(input.MobileNumber), "Mobile number is required")
	input.Validator.Check(validator.NotBlank(input.Password), "Password is required")
	input.Validator.Check(found, "Incorrect mobile number/password")

	if found {
		passwordMatches, err := gopass.ComparePasswordAndHash(input.Password, identity.HashedPassword)
		if err != nil {
			h.ErrHandler.ServerError(w, r, err)
			return
		}

		input.Validator.Check(passwordMatches, "Incorrect mobile number/password")
	}

	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	if identity.Status == models.IdentityLockedStatus || risk.Locked(&identity.Risk) {
		message := "Account has been locked. Please contact support"
		response.JSONErrorResponse(w, nil, message, http.StatusForbidden, nil)
		return
	}

	userSession := h.Sessions.Start(identity.MobileNumber)

	var claims jwt.Claims
	claims.Subject = identity.MobileNumber

	expiry := time.Now().Add(24 * time.Hour)
	claims.Issued = jwt.NewNumericTime(time.Now())
	claims.NotBefore = jwt.NewNumericTime(time.Now())
	claims.Expires = jwt.NewNumericTime(expiry)

	claims.Issuer = h.Config.BaseURL
	claims.Audiences = []string{h.Config.BaseURL}

	jwtBytes, err := claims.HMACSign(jwt.HS256, []byte(h.Config.Jwt.SecretKey))
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	data := map[string]string{
		"auth_token":   string(jwtBytes),
		"token_expiry": expiry.Format(time.RFC3339),
		"session_id":   userSession.ID,
	}
	message := "Login successful"
	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *AuthHandler) HandleAuthLogout(w http.ResponseWriter, r *http.Request) {
	identity := context.ContextGetAuthenticatedIdentity(r)

	h.Sessions.End(identity.MobileNumber)

	err := response.JSONOkResponse(w, nil, "Logged out", nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

// Password changes are guarded like card mutations: active session, valid
// OTP and the current password.
func (h *AuthHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	var input struct {
		CurrentPassword string              `json:"current_password"`
		NewPassword     string              `json:"new_password"`
		Otp             string              `json:"otp"`
		Validator       validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	identity := context.ContextGetAuthenticatedIdentity(r)

	if _, err := h.Sessions.RequireActive(identity.MobileNumber); err != nil {
		respondDomainError(h.ErrHandler, w, r, err)
		return
	}
	h.Sessions.Touch(identity.MobileNumber)

	_, errs := gopass.Validate(input.NewPassword)
	if errs != nil {
		h.ErrHandler.FailedValidation(w, r, errs)
		return
	}

	ok, err := h.Otp.Validate(identity.MobileNumber, input.Otp)
	if err != nil {
		respondDomainError(h.ErrHandler, w, r, err)
		return
	}
	if !ok {
		respondDomainError(h.ErrHandler, w, r, cards.ErrInvalidOtp)
		return
	}

	matches, err := gopass.ComparePasswordAndHash(input.CurrentPassword, identity.HashedPassword)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}
	if !matches {
		respondDomainError(h.ErrHandler, w, r, cards.ErrInvalidPassword)
		return
	}

	hashed, err := gopass.Hash(input.NewPassword)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	mu := h.Identities.Serialize(identity.MobileNumber)
	mu.Lock()
	identity.HashedPassword = hashed
	mu.Unlock()

	err = response.JSONOkResponse(w, nil, "Password changed successfully", nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}
