package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"medinsight/internal/model"
)

// TurnHandler processes one decoded turn event. A returned error rejects the
// delivery without requeueing it.
type TurnHandler func(ctx context.Context, event model.TurnEvent) error

// TurnConsumer reads chat turn events from the turn queue until closed.
type TurnConsumer struct {
	conn      *amqp.Connection
	queueName string
	handle    TurnHandler

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewTurnConsumer(conn *amqp.Connection, queueName string, handle TurnHandler) *TurnConsumer {
	return &TurnConsumer{
		conn:      conn,
		queueName: queueName,
		handle:    handle,
	}
}

func (w *TurnConsumer) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()
		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				w.process(workerCtx, d)
			}
		}
	}()

	return nil
}

func (w *TurnConsumer) process(ctx context.Context, d amqp.Delivery) {
	var event model.TurnEvent
	if err := json.Unmarshal(d.Body, &event); err != nil {
		log.Printf("worker decode turn event failed: %v", err)
		_ = d.Nack(false, false)
		return
	}

	if err := w.handle(ctx, event); err != nil {
		log.Printf("worker handle turn event failed: session=%s err=%v", event.SessionID, err)
		_ = d.Nack(false, false)
		return
	}

	_ = d.Ack(false)
}

// Wait blocks until the consumer stops, either through Close or because the
// broker closed the delivery channel.
func (w *TurnConsumer) Wait() {
	w.wg.Wait()
}

func (w *TurnConsumer) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
