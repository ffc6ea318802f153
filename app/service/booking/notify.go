package booking

import (
	"log/slog"

	"wertchat/app/service/store"
)

// Notifier pushes lead events to the agency.
type Notifier interface {
	QuoteSaved(rec store.QuoteRecord)
	BookingCreated(rec store.BookingRecord, quote store.QuoteRecord)
}

// logNotifier emits telegram-tagged records, which the log router forwards to
// the agency chat when a bot token is configured.
type logNotifier struct{}

func (logNotifier) QuoteSaved(rec store.QuoteRecord) {
	slog.Info("Quote saved",
		"telegram", true,
		"number", rec.Number,
		"items", len(rec.Items),
		"gross", rec.GrossTotal)
}

func (logNotifier) BookingCreated(rec store.BookingRecord, quote store.QuoteRecord) {
	slog.Info("New booking request",
		"telegram", true,
		"quote", quote.Number,
		"name", rec.Name,
		"email", rec.Email,
		"company", rec.Company,
		"topic", rec.Topic,
		"gross", quote.GrossTotal)
}
