// Flagged authorizations carry security flags such as forced MFA or velocity
// risk. This worker notifies both the wallet holder and the fraud desk so a
// human can follow up while the ledger keeps the authoritative record.
package worker

import (
	"encoding/json"
	"log"
	"strings"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/cradoe/walletguard/internal/engine"
	"github.com/cradoe/walletguard/internal/stream"
)

func (wk *Worker) SecurityAlertWorker() {
	consumer, err := wk.KafkaStream.CreateConsumer(&stream.StreamConsumer{
		GroupId: securityAlertGroupID,
		Topic:   stream.TopicAuthorizationFlagged,
	})

	if err != nil {
		log.Fatalf("Error creating consumer: %v", err)
	}
	defer consumer.Close()

	for {
		select {
		case <-wk.Ctx.Done():
			log.Println("SecurityAlertWorker received cancellation signal, shutting down...")
			return
		default:
			event := consumer.Poll(100)
			switch e := event.(type) {
			case *kafka.Message:
				var authorization *engine.AuthorizationEvent
				if err := json.Unmarshal(e.Value, &authorization); err != nil {
					log.Printf("Error decoding authorization event: %v", err)
					continue
				}

				wk.sendSecurityAlert(authorization)
			case kafka.Error:
				log.Printf("Error: %v\n", e)
			case *kafka.AssignedPartitions:
				consumer.Assign(e.Partitions)
			case *kafka.RevokedPartitions:
				consumer.Unassign()
			}
		}
	}
}

func (wk *Worker) sendSecurityAlert(authorization *engine.AuthorizationEvent) {
	if authorization == nil || authorization.Email == "" {
		return
	}

	wk.Helper.BackgroundTask(nil, func() error {
		emailData := wk.Helper.NewEmailData()
		emailData["CardID"] = authorization.CardID
		emailData["Status"] = authorization.Status
		emailData["Amount"] = authorization.Amount
		emailData["RiskScore"] = authorization.RiskScore
		emailData["Flags"] = strings.Join(authorization.Flags, ", ")
		emailData["CreatedAt"] = authorization.CreatedAt

		err := wk.Mailer.Send(authorization.Email, emailData, "security-alert.tmpl")
		if err != nil {
			log.Printf("Error sending security alert email: %v", err)
			return err
		}

		return nil
	})
}
