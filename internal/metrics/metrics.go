// Package metrics содержит Prometheus-метрики леджера.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Результаты урегулирования платежа.
const (
	SettlementSettled        = "settled"
	SettlementAlreadySettled = "already_settled"
	SettlementRejected       = "rejected"
	SettlementFailed         = "failed"
)

var (
	// CreditsGranted начисленные кредиты по источнику (subscription, purchase, refund).
	CreditsGranted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ledger",
		Name:      "credits_granted_total",
		Help:      "Credits granted to users.",
	}, []string{"source"})

	// CreditsDebited списанные кредиты.
	CreditsDebited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ledger",
		Name:      "credits_debited_total",
		Help:      "Credits spent by users.",
	})

	// DebitConflicts конфликты CAS при списании.
	DebitConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ledger",
		Name:      "debit_conflicts_total",
		Help:      "Compare-and-swap conflicts on credit debit.",
	})

	// Settlements попытки урегулирования по результату.
	Settlements = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ledger",
		Name:      "settlements_total",
		Help:      "Checkout settlement attempts by outcome.",
	}, []string{"outcome"})

	// ReconciledPayments платежи, начисление по которым завершила сверка.
	ReconciledPayments = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ledger",
		Name:      "reconciled_payments_total",
		Help:      "Payments whose grant was completed by the reconciliation sweep.",
	})

	// ExpiryNotifications отправленные уведомления об окончании подписки.
	ExpiryNotifications = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ledger",
		Name:      "expiry_notifications_total",
		Help:      "Subscription expiring notifications published.",
	})

	// VideoAPIRequests запросы к API генерации видео по результату.
	VideoAPIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "videogen",
		Name:      "requests_total",
		Help:      "Requests to the video generation API.",
	}, []string{"endpoint", "outcome"})
)
