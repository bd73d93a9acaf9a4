package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/kasraf/reelbase/internal/activity"
)

// StartActivityConsumer connects to the broker, declares the user.activity
// queue and persists every message through the given sink.  It runs a
// reconnect loop with backoff and keeps going on processing errors so the
// server never depends on the broker being healthy.
func StartActivityConsumer(url string, sink activity.Sink) {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("activity-consumer: dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := consumeLoop(conn, sink); err != nil {
			log.Printf("activity-consumer: consume loop ended: %v; reconnecting", err)
			_ = conn.Close()
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection, sink activity.Sink) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(activityQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(activityQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	for msg := range msgs {
		var ev ActivityEvent
		if err := json.Unmarshal(msg.Body, &ev); err != nil {
			log.Printf("activity-consumer: bad payload: %v", err)
			_ = msg.Reject(false)
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := sink.Append(ctx, ev.entry())
		cancel()
		if err != nil {
			log.Printf("activity-consumer: append failed: %v", err)
			// Requeue once the broker redelivers; the entry is best-effort
			// either way.
			_ = msg.Nack(false, true)
			continue
		}
		_ = msg.Ack(false)
	}
	return fmt.Errorf("delivery channel closed")
}
