package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/video-credits/internal/config"
	"github.com/magabrotheeeer/video-credits/internal/lib/rabbitmq"
)

// EventsFunc открывает канал брокера для чтения очередей леджера.
type EventsFunc func(cfg *config.Config) (rabbitmq.DeliverySource, func(), error)

// OpenBroker подключается к RabbitMQ и объявляет очереди леджера.
func OpenBroker(cfg *config.Config) (rabbitmq.DeliverySource, func(), error) {
	if cfg.RabbitMQURL == "" {
		return nil, nil, errors.New("rabbitmq url is not configured")
	}
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.LedgerExchange, rabbitmq.LedgerQueues())
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return ch, func() {
		_ = ch.Close()
		_ = conn.Close()
	}, nil
}

func newEventsCmd(e *Env) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "events <queue>",
		Short: "Drain a ledger queue and print its messages",
		Long: `Reads messages from one of the ledger queues and prints them one per line.
Printed messages are acknowledged and leave the queue.

Queues: ledger.subscription.created, ledger.credits.debited,
ledger.credits.granted, notifications.expiring.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !knownQueue(args[0]) {
				return fmt.Errorf("unknown queue %q", args[0])
			}
			if err := e.loadConfig(); err != nil {
				return err
			}
			src, closeFn, err := e.Events(e.Config)
			if err != nil {
				return fmt.Errorf("failed to open broker: %w", err)
			}
			defer closeFn()

			ctx, stop := context.WithCancel(cmd.Context())
			defer stop()

			var (
				mu    sync.Mutex
				count int
			)
			out := cmd.OutOrStdout()
			handler := func(_ context.Context, body []byte) error {
				mu.Lock()
				defer mu.Unlock()
				if limit > 0 && count >= limit {
					return errors.New("limit reached")
				}
				fmt.Fprintln(out, string(body))
				count++
				if limit > 0 && count >= limit {
					stop()
				}
				return nil
			}
			e.Logger.Info("consuming queue", slog.String("queue", args[0]), slog.Int("limit", limit))
			return rabbitmq.Consume(ctx, src, args[0], 1, handler, e.Logger)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "stop after n messages (0 waits until interrupted)")
	return cmd
}

func knownQueue(name string) bool {
	for _, q := range rabbitmq.LedgerQueues() {
		if q.QueueName == name {
			return true
		}
	}
	return false
}
