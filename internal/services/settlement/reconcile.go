package settlement

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/video-credits/internal/lib/sl"
	"github.com/magabrotheeeer/video-credits/internal/metrics"
	"github.com/magabrotheeeer/video-credits/internal/services/ledger"
)

// ReconcileReport итог одного прохода сверки.
type ReconcileReport struct {
	Checked int `json:"checked"`
	Granted int `json:"granted"`
	Failed  int `json:"failed"`
}

// Reconcile доначисляет кредиты по записанным, но не начисленным платежам,
// созданным раньше чем grace period назад. Ошибка по одному платежу не
// прерывает проход.
func (s *Service) Reconcile(ctx context.Context) (ReconcileReport, error) {
	const op = "settlement.Reconcile"
	log := s.log.With(slog.String("op", op))

	var report ReconcileReport
	payments, err := s.repo.ListUngrantedPayments(ctx, s.now().Add(-s.gracePeriod), s.batchSize)
	if err != nil {
		return report, fmt.Errorf("%s: %w: %w", op, ledger.ErrBackendUnavailable, err)
	}

	for i := range payments {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("%s: %w", op, err)
		}
		p := &payments[i]
		report.Checked++
		if err := s.grant(ctx, p); err != nil {
			report.Failed++
			log.Error("failed to reconcile payment", slog.String("payment_id", p.ID), sl.Err(err))
			continue
		}
		report.Granted++
		metrics.ReconciledPayments.Inc()
		log.Info("payment reconciled", slog.String("payment_id", p.ID), sl.UserID(p.UserID))
	}

	if report.Checked > 0 {
		log.Info("reconcile finished",
			slog.Int("checked", report.Checked),
			slog.Int("granted", report.Granted),
			slog.Int("failed", report.Failed),
		)
	}
	return report, nil
}
