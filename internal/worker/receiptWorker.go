// Every successful authorization is published to the completed topic after
// the ledger write. This worker turns those events into receipt emails for
// the wallet holder. Delivery is best effort and never blocks the engine.
package worker

import (
	"encoding/json"
	"log"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/cradoe/walletguard/internal/engine"
	"github.com/cradoe/walletguard/internal/stream"
)

func (wk *Worker) ReceiptWorker() {
	consumer, err := wk.KafkaStream.CreateConsumer(&stream.StreamConsumer{
		GroupId: receiptGroupID,
		Topic:   stream.TopicAuthorizationCompleted,
	})

	if err != nil {
		log.Fatalf("Error creating consumer: %v", err)
	}
	defer consumer.Close()

	for {
		select {
		case <-wk.Ctx.Done():
			log.Println("ReceiptWorker received cancellation signal, shutting down...")
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

				wk.sendReceipt(authorization)
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

func (wk *Worker) sendReceipt(authorization *engine.AuthorizationEvent) {
	if authorization == nil || authorization.Email == "" {
		return
	}

	wk.Helper.BackgroundTask(nil, func() error {
		emailData := wk.Helper.NewEmailData()
		emailData["CardID"] = authorization.CardID
		emailData["Amount"] = authorization.Amount
		emailData["Message"] = authorization.Message
		emailData["CreatedAt"] = authorization.CreatedAt

		err := wk.Mailer.Send(authorization.Email, emailData, "receipt.tmpl")
		if err != nil {
			log.Printf("Error sending receipt email: %v", err)
			return err
		}

		return nil
	})
}
