package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roamly/tour-booking/internal/apperr"
	"github.com/roamly/tour-booking/internal/payment"
	"github.com/roamly/tour-booking/internal/queue"
	"github.com/roamly/tour-booking/internal/repository"
)

type memBookingStore struct {
	created []repository.Booking
}

func (s *memBookingStore) Create(_ context.Context, tourID, userID uint64, price float64) (uint64, error) {
	s.created = append(s.created, repository.Booking{TourID: tourID, UserID: userID, Price: price})
	return uint64(len(s.created)), nil
}

func (s *memBookingStore) List(context.Context) ([]repository.Booking, error) { return nil, nil }
func (s *memBookingStore) ListByUser(context.Context, uint64) ([]repository.Booking, error) {
	return nil, nil
}
func (s *memBookingStore) GetByID(context.Context, uint64) (repository.Booking, error) {
	return repository.Booking{}, repository.ErrNotFound
}
func (s *memBookingStore) Update(context.Context, uint64, float64, bool) (repository.Booking, error) {
	return repository.Booking{}, repository.ErrNotFound
}
func (s *memBookingStore) Delete(context.Context, uint64) error { return nil }

type stubTours struct {
	tour repository.Tour
	err  error
}

func (s *stubTours) GetByID(context.Context, uint64) (repository.Tour, error) {
	return s.tour, s.err
}
func (s *stubTours) GetBySlug(context.Context, string) (repository.Tour, error) {
	return s.tour, s.err
}

type stubPayments struct {
	session payment.Session
	event   payment.Event
	err     error

	gotParams    payment.CheckoutParams
	gotSignature string
}

func (p *stubPayments) CreateCheckoutSession(params payment.CheckoutParams) (payment.Session, error) {
	p.gotParams = params
	return p.session, p.err
}

func (p *stubPayments) ParseWebhook(payload []byte, signature string) (payment.Event, error) {
	p.gotSignature = signature
	return p.event, p.err
}

type memPublisher struct {
	events []queue.BookingConfirmedEvent
	err    error
}

func (p *memPublisher) PublishBookingConfirmed(_ context.Context, ev queue.BookingConfirmedEvent) error {
	p.events = append(p.events, ev)
	return p.err
}

func newBookingFixture() (*BookingHandler, *memBookingStore, *memUserStore, *stubTours, *stubPayments, *memPublisher) {
	bookings := &memBookingStore{}
	users := newMemUserStore()
	tours := &stubTours{}
	pay := &stubPayments{}
	pub := &memPublisher{}
	h := NewBookingHandler(bookings, tours, users, pay, pub, zerolog.New(io.Discard))
	return h, bookings, users, tours, pay, pub
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	h, bookings, _, _, pay, pub := newBookingFixture()
	pay.err = errors.New("unexpected signature")
	e := newEcho()

	req, rec := jsonRequest(http.MethodPost, "/webhook-checkout", `{}`)
	req.Header.Set("Stripe-Signature", "t=1,v1=bogus")
	err := h.Webhook(e.NewContext(req, rec))

	ae, okErr := apperr.As(err)
	require.True(t, okErr)
	assert.Equal(t, http.StatusBadRequest, ae.Status)
	assert.Equal(t, "Webhook error: unexpected signature", ae.Message)
	assert.Equal(t, "t=1,v1=bogus", pay.gotSignature)

	// A bad signature must never write anything.
	assert.Empty(t, bookings.created)
	assert.Empty(t, pub.events)
}

func TestWebhookIgnoresOtherEventTypes(t *testing.T) {
	h, bookings, _, _, pay, _ := newBookingFixture()
	pay.event = payment.Event{Completed: false}
	e := newEcho()

	req, rec := jsonRequest(http.MethodPost, "/webhook-checkout", `{}`)
	require.NoError(t, h.Webhook(e.NewContext(req, rec)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"received":true`)
	assert.Empty(t, bookings.created)
}

func TestWebhookRecordsCompletedCheckout(t *testing.T) {
	h, bookings, users, tours, pay, pub := newBookingFixture()
	u := users.add(repository.User{Email: "a@b.com", Active: true})
	tours.tour = repository.Tour{ID: 7, Name: "The Forest Hiker", Slug: "the-forest-hiker"}
	pay.event = payment.Event{Completed: true, TourID: 7, Email: "a@b.com", Amount: 397}
	e := newEcho()

	req, rec := jsonRequest(http.MethodPost, "/webhook-checkout", `{}`)
	require.NoError(t, h.Webhook(e.NewContext(req, rec)))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, bookings.created, 1)
	assert.Equal(t, uint64(7), bookings.created[0].TourID)
	assert.Equal(t, u.ID, bookings.created[0].UserID)
	assert.Equal(t, 397.0, bookings.created[0].Price)

	require.Len(t, pub.events, 1)
	assert.Equal(t, "The Forest Hiker", pub.events[0].TourName)
	assert.Equal(t, "a@b.com", pub.events[0].Email)
}

func TestWebhookSurvivesPublishFailure(t *testing.T) {
	h, bookings, users, tours, pay, pub := newBookingFixture()
	users.add(repository.User{Email: "a@b.com", Active: true})
	tours.tour = repository.Tour{ID: 7}
	pay.event = payment.Event{Completed: true, TourID: 7, Email: "a@b.com", Amount: 397}
	pub.err = errors.New("amqp: channel closed")
	e := newEcho()

	req, rec := jsonRequest(http.MethodPost, "/webhook-checkout", `{}`)
	require.NoError(t, h.Webhook(e.NewContext(req, rec)))

	// The booking sticks even when the event bus is down.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, bookings.created, 1)
}

func TestCheckoutSession(t *testing.T) {
	h, _, _, tours, pay, _ := newBookingFixture()
	tours.tour = repository.Tour{ID: 7, Name: "The Forest Hiker",
		Slug: "the-forest-hiker", Price: 397, ImageCover: "tour-1-cover.jpg"}
	pay.session = payment.Session{ID: "cs_test_123", URL: "https://checkout.stripe.test/cs_test_123"}
	e := newEcho()

	req, rec := jsonRequest(http.MethodGet, "/api/v1/bookings/checkout-session/7", "")
	c := e.NewContext(req, rec)
	c.SetParamNames("tourId")
	c.SetParamValues("7")
	c.Set("user", repository.User{ID: 3, Email: "a@b.com"})

	require.NoError(t, h.CheckoutSession(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cs_test_123")

	assert.Equal(t, "a@b.com", pay.gotParams.UserEmail)
	assert.Contains(t, pay.gotParams.SuccessURL, "/bookings?alert=booking")
	assert.Contains(t, pay.gotParams.CancelURL, "/tour/the-forest-hiker")
}

func TestCheckoutSessionUnknownTour(t *testing.T) {
	h, _, _, tours, _, _ := newBookingFixture()
	tours.err = repository.ErrNotFound
	e := newEcho()

	req, rec := jsonRequest(http.MethodGet, "/api/v1/bookings/checkout-session/99", "")
	c := e.NewContext(req, rec)
	c.SetParamNames("tourId")
	c.SetParamValues("99")

	err := h.CheckoutSession(c)
	ae, okErr := apperr.As(err)
	require.True(t, okErr)
	assert.Equal(t, apperr.CodeNotFound, ae.Code)
	assert.Equal(t, "No tour found with that ID", ae.Message)
}
