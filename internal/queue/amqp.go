package queue

import (
	"context"
	"encoding/json"

	"matchvision/sports-video-app/internal/config"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

// amqpPublisher implements IntakePublisher on top of RabbitMQ.
type amqpPublisher struct {
	conn      *amqp.Connection
	queueName string
}

// NewAMQPPublisher connects to the broker and declares the intake queue.
func NewAMQPPublisher(cfg config.QueueConfig) (IntakePublisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}

	// Declare up front so the queue exists before the first publish.
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(
		cfg.QueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		conn.Close()
		return nil, err
	}

	log.WithField("queue", cfg.QueueName).Info("AMQP intake publisher initialized")

	return &amqpPublisher{conn: conn, queueName: cfg.QueueName}, nil
}

// PublishIntake sends one intake message to the durable queue.
func (p *amqpPublisher) PublishIntake(ctx context.Context, msg IntakeMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	return ch.PublishWithContext(ctx,
		"",          // default exchange
		p.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

func (p *amqpPublisher) Close() error {
	return p.conn.Close()
}
