package store

import (
	"context"
	"testing"
	"time"

	"wertchat/app/service/quote"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Service {
	t.Helper()

	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Shutdown()
	})

	return s
}

func testQuote() (QuoteRecord, AccessToken) {
	hours := 16.0

	rec := QuoteRecord{
		ID:         uuid.NewString(),
		Number:     "DW-A1B2C3",
		Status:     QuoteStatusDraft,
		NetTotal:   2496,
		VATAmount:  474,
		GrossTotal: 2970,
		CreatedAt:  time.Now().UTC(),
		Items: []quote.Item{
			{
				ID:             uuid.NewString(),
				Service:        "Konzeption & Wireframes",
				Description:    "Struktur und Wireframes",
				EstimatedHours: &hours,
				Complexity:     quote.TierMedium,
				Price:          2496,
			},
			{
				ID:      uuid.NewString(),
				Service: "Beratung",
				Price:   0,
			},
		},
	}

	token := AccessToken{
		Token:     uuid.NewString(),
		QuoteID:   rec.ID,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(30 * 24 * time.Hour),
	}

	return rec, token
}

func TestSaveAndGetQuote(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec, token := testQuote()
	require.NoError(t, s.SaveQuote(ctx, rec, token))

	got, err := s.GetQuote(ctx, rec.ID)
	require.NoError(t, err)

	assert.Equal(t, rec.Number, got.Number)
	assert.Equal(t, QuoteStatusDraft, got.Status)
	assert.Equal(t, 2496, got.NetTotal)
	assert.Equal(t, 2970, got.GrossTotal)

	require.Len(t, got.Items, 2)
	assert.Equal(t, "Konzeption & Wireframes", got.Items[0].Service)
	require.NotNil(t, got.Items[0].EstimatedHours)
	assert.Equal(t, 16.0, *got.Items[0].EstimatedHours)
	assert.Nil(t, got.Items[1].EstimatedHours)
}

func TestGetQuoteNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetQuote(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetQuoteByToken(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec, token := testQuote()
	require.NoError(t, s.SaveQuote(ctx, rec, token))

	got, err := s.GetQuoteByToken(ctx, token.Token)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)

	_, err = s.GetQuoteByToken(ctx, "bogus")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetQuoteByExpiredToken(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec, token := testQuote()
	token.ExpiresAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, s.SaveQuote(ctx, rec, token))

	_, err := s.GetQuoteByToken(ctx, token.Token)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListQuotes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, firstToken := testQuote()
	first.CreatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, s.SaveQuote(ctx, first, firstToken))

	second, secondToken := testQuote()
	second.Number = "DW-D4E5F6"
	require.NoError(t, s.SaveQuote(ctx, second, secondToken))

	list, err := s.ListQuotes(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	// newest first
	assert.Equal(t, second.ID, list[0].ID)
	assert.Len(t, list[0].Items, 2)
}

func TestCreateBookingMarksQuoteBooked(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec, token := testQuote()
	require.NoError(t, s.SaveQuote(ctx, rec, token))

	booking := BookingRecord{
		ID:        uuid.NewString(),
		QuoteID:   rec.ID,
		Name:      "Max Mustermann",
		Email:     "max@example.com",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.CreateBooking(ctx, booking))

	got, err := s.GetQuote(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, QuoteStatusBooked, got.Status)
}

func TestCreateBookingUnknownQuote(t *testing.T) {
	s := newTestStore(t)

	booking := BookingRecord{
		ID:        uuid.NewString(),
		QuoteID:   "missing",
		Name:      "Max",
		Email:     "max@example.com",
		CreatedAt: time.Now().UTC(),
	}

	err := s.CreateBooking(context.Background(), booking)
	assert.ErrorIs(t, err, ErrNotFound)
}
