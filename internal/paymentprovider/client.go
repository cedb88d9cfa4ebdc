// Package paymentprovider клиент Stripe Checkout: создание и чтение сессий оплаты.
package paymentprovider

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

type sessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// Client клиент Stripe Checkout.
type Client struct {
	sessions   sessionAPI
	successURL string
	cancelURL  string
}

// NewClient создаёт новый клиент Stripe
func NewClient(secretKey, successURL, cancelURL string) *Client {
	sc := client.New(secretKey, nil)
	return newClient(sc.CheckoutSessions, successURL, cancelURL)
}

func newClient(sessions sessionAPI, successURL, cancelURL string) *Client {
	return &Client{
		sessions:   sessions,
		successURL: successURL,
		cancelURL:  cancelURL,
	}
}

// CreateCheckoutSession создает сессию оплаты подписки по цене PriceID.
// URL успешной оплаты должен содержать {CHECKOUT_SESSION_ID}.
func (c *Client) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	const op = "paymentprovider.CreateCheckoutSession"

	if req.PriceID == "" {
		return nil, fmt.Errorf("%s: price id is empty", op)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(req.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(c.successURL),
		CancelURL:  stripe.String(c.cancelURL),
		Metadata:   req.Metadata,
	}
	if req.UserID != "" {
		params.ClientReferenceID = stripe.String(req.UserID)
	}
	params.Context = ctx

	s, err := c.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return toSession(s), nil
}

// GetCheckoutSession читает сессию оплаты по идентификатору.
func (c *Client) GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error) {
	const op = "paymentprovider.GetCheckoutSession"

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	s, err := c.sessions.Get(id, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceMissing {
			return nil, fmt.Errorf("%s: %w", op, ErrSessionNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return toSession(s), nil
}

func toSession(s *stripe.CheckoutSession) *CheckoutSession {
	return &CheckoutSession{
		ID:            s.ID,
		URL:           s.URL,
		Status:        string(s.Status),
		PaymentStatus: string(s.PaymentStatus),
		Metadata:      s.Metadata,
	}
}
