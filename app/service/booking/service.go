package booking

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"wertchat/app/service/chat"
	"wertchat/app/service/store"
	"wertchat/app/util/sanitize"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/do"
)

const (
	// German VAT on the net total
	vatRate = 0.19

	quoteNumberPrefix = "DW-"

	tokenValidity = 30 * 24 * time.Hour
)

var (
	ErrEmptyQuote     = errors.New("no quote items to save")
	ErrInvalidRequest = errors.New("invalid request")
)

// Service turns accumulated quote items into persisted offers and handles
// booking requests for them.
type Service struct {
	chat     *chat.Service
	store    *store.Service
	validate *validator.Validate

	notifier Notifier
	exporter DocumentExporter
}

func New(di *do.Injector) (*Service, error) {
	return &Service{
		chat:     do.MustInvoke[*chat.Service](di),
		store:    do.MustInvoke[*store.Service](di),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		notifier: logNotifier{},
		exporter: textExporter{},
	}, nil
}

// SaveQuote freezes the session's accumulated items into a stored offer with
// a fresh quote number and access token, then clears the accumulator.
func (s *Service) SaveQuote(ctx context.Context, sessionID string, req SaveQuoteRequest) (SaveQuoteResult, error) {
	req.Title = sanitize.Sanitize(req.Title)
	req.CustomerName = sanitize.Sanitize(req.CustomerName)
	req.CustomerEmail = strings.TrimSpace(req.CustomerEmail)

	if req.Title == "" {
		req.Title = "Individuelles Angebot"
	}

	if err := s.validate.Struct(req); err != nil {
		return SaveQuoteResult{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	quotes := s.chat.Session(sessionID).Quotes()

	items := quotes.Items()
	if len(items) == 0 {
		return SaveQuoteResult{}, ErrEmptyQuote
	}

	number, err := quoteNumber()
	if err != nil {
		return SaveQuoteResult{}, err
	}

	tokenValue, err := randomHex(32)
	if err != nil {
		return SaveQuoteResult{}, err
	}

	net := quotes.Total()
	vat, gross := Totals(net)

	rec := store.QuoteRecord{
		ID:            uuid.NewString(),
		Number:        number,
		Title:         req.Title,
		Status:        store.QuoteStatusDraft,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		NetTotal:      net,
		VATAmount:     vat,
		GrossTotal:    gross,
		CreatedAt:     time.Now().UTC(),
		Items:         items,
	}

	now := time.Now().UTC()
	token := store.AccessToken{
		Token:     tokenValue,
		QuoteID:   rec.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(tokenValidity),
	}

	if err = s.store.SaveQuote(ctx, rec, token); err != nil {
		return SaveQuoteResult{}, fmt.Errorf("failed to save quote: %w", err)
	}

	quotes.Clear()

	s.notifier.QuoteSaved(rec)

	return SaveQuoteResult{
		QuoteID:     rec.ID,
		Number:      rec.Number,
		AccessToken: tokenValue,
		NetTotal:    rec.NetTotal,
		VATAmount:   rec.VATAmount,
		GrossTotal:  rec.GrossTotal,
	}, nil
}

// Book validates and records a booking request against a saved quote. This is
// the lead event the whole product exists for, so it is pushed to the agency
// chat.
func (s *Service) Book(ctx context.Context, req BookingRequest) (store.BookingRecord, error) {
	req.Name = sanitize.Sanitize(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = sanitize.Sanitize(req.Phone)
	req.Company = sanitize.Sanitize(req.Company)
	req.Topic = sanitize.Sanitize(req.Topic)
	req.PreferredDate = sanitize.Sanitize(req.PreferredDate)
	req.Message = sanitize.Sanitize(req.Message)

	if err := s.validate.Struct(req); err != nil {
		return store.BookingRecord{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	rec := store.BookingRecord{
		ID:            uuid.NewString(),
		QuoteID:       req.QuoteID,
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		Company:       req.Company,
		Topic:         req.Topic,
		PreferredDate: req.PreferredDate,
		Message:       req.Message,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.store.CreateBooking(ctx, rec); err != nil {
		return store.BookingRecord{}, err
	}

	quote, err := s.store.GetQuote(ctx, req.QuoteID)
	if err != nil {
		return store.BookingRecord{}, err
	}

	s.notifier.BookingCreated(rec, quote)

	return rec, nil
}

// Document renders the saved quote through the configured exporter.
func (s *Service) Document(ctx context.Context, quoteID string) (string, error) {
	rec, err := s.store.GetQuote(ctx, quoteID)
	if err != nil {
		return "", err
	}

	return s.exporter.Export(rec)
}

// Totals derives VAT and gross amounts from a net total.
func Totals(net int) (vat int, gross int) {
	vat = int(math.Round(float64(net) * vatRate))
	return vat, net + vat
}

func quoteNumber() (string, error) {
	suffix, err := randomHex(3)
	if err != nil {
		return "", err
	}

	return quoteNumberPrefix + strings.ToUpper(suffix), nil
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	return hex.EncodeToString(buf), nil
}
