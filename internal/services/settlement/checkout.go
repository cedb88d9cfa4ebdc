package settlement

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/magabrotheeeer/video-credits/internal/lib/sl"
	"github.com/magabrotheeeer/video-credits/internal/paymentprovider"
	"github.com/magabrotheeeer/video-credits/internal/services/ledger"
)

// CreateCheckout создает сессию оплаты тарифа planID. Метаданные сессии несут
// все, что нужно для последующего урегулирования.
func (s *Service) CreateCheckout(ctx context.Context, userID, planID string) (*paymentprovider.CheckoutSession, error) {
	const op = "settlement.CreateCheckout"
	log := s.log.With(slog.String("op", op), sl.UserID(userID), slog.String("plan_id", planID))

	plan, err := s.ledger.GetPlan(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if plan.StripePriceID == "" {
		return nil, fmt.Errorf("%s: %w: plan has no price", op, ledger.ErrPlanNotFound)
	}

	if s.ledger.Policy() == ledger.PolicyReject {
		active, err := s.ledger.HasUnexpiredActiveSubscription(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if active {
			return nil, fmt.Errorf("%s: %w", op, ledger.ErrAlreadySubscribed)
		}
	}

	session, err := s.provider.CreateCheckoutSession(ctx, paymentprovider.CheckoutRequest{
		PriceID: plan.StripePriceID,
		UserID:  userID,
		Metadata: map[string]string{
			paymentprovider.MetaUserID:         userID,
			paymentprovider.MetaCredits:        strconv.Itoa(plan.CreditsPerMonth),
			paymentprovider.MetaPlanName:       plan.Name,
			paymentprovider.MetaPlanID:         plan.ID,
			paymentprovider.MetaOriginalAmount: strconv.FormatFloat(plan.Price, 'f', -1, 64),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("checkout session created", slog.String("session_id", session.ID))
	return session, nil
}
