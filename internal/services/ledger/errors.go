package ledger

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrPlanNotFound         = errors.New("ledger: plan not found")
	ErrNoActiveSubscription = errors.New("ledger: no active subscription found")
	ErrAlreadySubscribed    = errors.New("ledger: user already has an active subscription")
	ErrInsufficientCredits  = errors.New("ledger: insufficient credits")
	ErrInvalidAmount        = errors.New("ledger: amount must be a positive integer")
	ErrAlreadyGranted       = errors.New("ledger: payment already granted")
	ErrConflict             = errors.New("ledger: concurrent modification")
	ErrBackendUnavailable   = errors.New("ledger: backend unavailable")
)

var domainErrors = []error{
	ErrPlanNotFound,
	ErrNoActiveSubscription,
	ErrAlreadySubscribed,
	ErrInsufficientCredits,
	ErrInvalidAmount,
	ErrAlreadyGranted,
	ErrConflict,
	ErrBackendUnavailable,
}

// IsDomainError сообщает, относится ли ошибка к ошибкам леджера.
func IsDomainError(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// classify оставляет ошибки леджера и отмену контекста как есть,
// а все прочие считает отказом хранилища.
func classify(err error) error {
	if err == nil || IsDomainError(err) || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
}
