package worker

import (
	"context"

	"github.com/cradoe/walletguard/internal/helper"
	"github.com/cradoe/walletguard/internal/smtp"
	"github.com/cradoe/walletguard/internal/stream"
)

type Worker struct {
	KafkaStream *stream.KafkaStream
	Mailer      smtp.MailerInterface
	Helper      *helper.HelperRepository
	Ctx         context.Context
}

const (
	// receiptGroupID is used for workers that act on completed authorizations
	receiptGroupID = "authorization-receipt-group"

	// securityAlertGroupID is used for workers that act on flagged authorizations
	securityAlertGroupID = "authorization-alert-group"
)

// Our workers typically need access to the mailer and the kafka event
// stream. Worker-specific dependencies are passed as arguments to the worker.
func New(wk *Worker) *Worker {
	return &Worker{
		KafkaStream: wk.KafkaStream,
		Mailer:      wk.Mailer,
		Helper:      wk.Helper,
		Ctx:         wk.Ctx,
	}
}
