package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// StartConfirmationConsumer connects to RabbitMQ, declares the durable
// booking.confirmed queue and consumes it, appending each confirmation
// to logs/booking.log in a single-line, human-friendly format.  The
// function runs a reconnect loop with exponential backoff and keeps
// running across broker restarts; processing errors are logged and the
// offending message rejected without requeue so the consumer never spins
// on a poison message.
func StartConfirmationConsumer() error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(brokerURL())
		if err != nil {
			log.Printf("booking-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn); err != nil {
			log.Printf("booking-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("booking-consumer: set QoS failed: %v", err)
	}
	if _, err := ch.QueueDeclare(confirmedQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(confirmedQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleConfirmation(d.Body); err != nil {
			log.Printf("booking-consumer: handle message failed: %v", err)
			_ = d.Nack(false, false) // reject, do not requeue
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleConfirmation(body []byte) error {
	var ev BookingConfirmedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	fpath := filepath.Join("logs", "booking.log")
	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	seats := make([]string, 0, len(ev.SeatIDs))
	for _, id := range ev.SeatIDs {
		seats = append(seats, strconv.FormatUint(id, 10))
	}
	line := fmt.Sprintf("[%s] Booking confirmed | booking_id=%d | user_id=%d | event_id=%d | payment_id=%s | final=%d cents | seats=[%s]\n",
		ev.ConfirmedAt, ev.BookingID, ev.UserID, ev.EventID, ev.PaymentID, ev.FinalAmountCents, strings.Join(seats, ","))

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
