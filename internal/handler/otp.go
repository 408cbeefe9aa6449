package handler

import (
	"log"
	"net/http"

	"github.com/cradoe/walletguard/internal/context"
	"github.com/cradoe/walletguard/internal/errHandler"
	"github.com/cradoe/walletguard/internal/helper"
	"github.com/cradoe/walletguard/internal/otp"
	"github.com/cradoe/walletguard/internal/response"
	"github.com/cradoe/walletguard/internal/smtp"
)

type OtpHandler struct {
	Otp        *otp.Service
	Helper     *helper.HelperRepository
	Mailer     smtp.MailerInterface
	ErrHandler *errHandler.ErrorHandler
}

func NewOtpHandler(handler *OtpHandler) *OtpHandler {
	return handler
}

// HandleRequestOtp issues a fresh code for the authenticated identity and
// delivers it out of band. The code is never returned in the response.
func (h *OtpHandler) HandleRequestOtp(w http.ResponseWriter, r *http.Request) {
	identity := context.ContextGetAuthenticatedIdentity(r)

	code, err := h.Otp.Issue(identity.MobileNumber)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	if identity.Email != "" {
		h.Helper.BackgroundTask(r, func() error {
			emailData := h.Helper.NewEmailData()
			emailData["Code"] = code

			err := h.Mailer.Send(identity.Email, emailData, "otp.tmpl")
			if err != nil {
				log.Printf("Error sending OTP email: %v", err)
				return err
			}

			return nil
		})
	}

	err = response.JSONOkResponse(w, nil, "A one-time passcode has been sent", nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}
