// Package payment wraps the Stripe checkout and webhook surface behind
// types the handlers can consume and fake in tests.
package payment

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/roamly/tour-booking/internal/config"
	"github.com/roamly/tour-booking/internal/repository"
)

// Session is a started checkout the client should be redirected to.
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Event is a verified webhook notification. Completed is true only for a
// finished checkout carrying the fields needed to record a booking.
type Event struct {
	Completed bool
	TourID    uint64
	Email     string
	Amount    float64 // major units
}

// CheckoutParams describes the checkout session to create.
type CheckoutParams struct {
	Tour       repository.Tour
	UserEmail  string
	SuccessURL string
	CancelURL  string
	ImageURL   string
}

// Client talks to Stripe with the configured keys.
type Client struct {
	webhookSecret string
}

func NewClient(cfg config.Config) *Client {
	stripe.Key = cfg.StripeSecretKey
	return &Client{webhookSecret: cfg.StripeWebhookSecret}
}

// CreateCheckoutSession starts a one-off card payment for a tour. The tour id
// rides along as the client reference so the webhook can attribute the
// booking.
func (c *Client) CreateCheckoutSession(p CheckoutParams) (Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(p.SuccessURL),
		CancelURL:         stripe.String(p.CancelURL),
		CustomerEmail:     stripe.String(p.UserEmail),
		ClientReferenceID: stripe.String(strconv.FormatUint(p.Tour.ID, 10)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(string(stripe.CurrencyUSD)),
				UnitAmount: stripe.Int64(int64(p.Tour.Price * 100)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String(p.Tour.Name + " Tour"),
					Description: stripe.String(p.Tour.Summary),
					Images:      []*string{stripe.String(p.ImageURL)},
				},
			},
			Quantity: stripe.Int64(1),
		}},
	}
	s, err := session.New(params)
	if err != nil {
		return Session{}, err
	}
	return Session{ID: s.ID, URL: s.URL}, nil
}

// ParseWebhook verifies the payload signature against the shared webhook
// secret and decodes the event. A signature mismatch returns the
// verification error and no event.
func (c *Client) ParseWebhook(payload []byte, signature string) (Event, error) {
	ev, err := webhook.ConstructEvent(payload, signature, c.webhookSecret)
	if err != nil {
		return Event{}, err
	}
	if ev.Type != "checkout.session.completed" {
		return Event{}, nil
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(ev.Data.Raw, &cs); err != nil {
		return Event{}, fmt.Errorf("decode checkout session: %w", err)
	}
	tourID, err := strconv.ParseUint(cs.ClientReferenceID, 10, 64)
	if err != nil {
		return Event{}, fmt.Errorf("bad client reference %q: %w", cs.ClientReferenceID, err)
	}
	return Event{
		Completed: true,
		TourID:    tourID,
		Email:     cs.CustomerEmail,
		Amount:    float64(cs.AmountTotal) / 100,
	}, nil
}
