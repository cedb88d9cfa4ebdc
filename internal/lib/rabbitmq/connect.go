// Package rabbitmq содержит подключение к RabbitMQ и публикацию событий леджера.
package rabbitmq

import (
	"fmt"
	"time"

	"github.com/streadway/amqp"
)

// LedgerExchange direct-обменник для событий леджера.
const LedgerExchange = "ledger"

// Ключи маршрутизации событий.
const (
	KeySubscriptionCreated  = "subscription.created"
	KeyCreditsDebited       = "credits.debited"
	KeyCreditsGranted       = "credits.granted"
	KeySubscriptionExpiring = "subscription.expiring"
)

// QueueConfig описывает очередь и ключ, которым она привязана к обменнику.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// LedgerQueues возвращает очереди, которые объявляются при старте приложений.
func LedgerQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "ledger.subscription.created", RoutingKey: KeySubscriptionCreated},
		{QueueName: "ledger.credits.debited", RoutingKey: KeyCreditsDebited},
		{QueueName: "ledger.credits.granted", RoutingKey: KeyCreditsGranted},
		{QueueName: "notifications.expiring", RoutingKey: KeySubscriptionExpiring},
	}
}

// Connect подключается к брокеру, повторяя попытки retries раз с паузой delay.
func Connect(connection string, retries int, delay time.Duration) (*amqp.Connection, error) {
	const op = "rabbitmq.Connect"
	var conn *amqp.Connection
	var err error

	if retries < 1 {
		retries = 1
	}
	for i := range retries {
		conn, err = amqp.Dial(connection)
		if err == nil {
			return conn, nil
		}
		if i < retries-1 {
			time.Sleep(delay)
		}
	}

	return nil, fmt.Errorf("%s: %w", op, err)
}

// SetupChannel открывает канал, объявляет обменник и привязывает к нему очереди.
func SetupChannel(conn *amqp.Connection, exchange string, queues []QueueConfig) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			q.QueueName,
			true,
			false,
			false,
			false,
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, q.QueueName, err)
		}

		err = ch.QueueBind(q.QueueName, q.RoutingKey, exchange, false, nil)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to bind queue %s with routing key %s: %w", op, q.QueueName, q.RoutingKey, err)
		}
	}

	return ch, nil
}
