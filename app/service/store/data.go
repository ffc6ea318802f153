package store

import (
	"time"

	"wertchat/app/service/quote"
)

type QuoteStatus string

const (
	QuoteStatusDraft  QuoteStatus = "draft"
	QuoteStatusBooked QuoteStatus = "booked"
)

// QuoteRecord is a persisted offer: the accumulated items frozen together
// with the totals at save time.
type QuoteRecord struct {
	ID     string      `json:"id"`
	Number string      `json:"number"`
	Title  string      `json:"title"`
	Status QuoteStatus `json:"status"`

	CustomerName  string `json:"customerName,omitempty"`
	CustomerEmail string `json:"customerEmail,omitempty"`

	NetTotal   int `json:"netTotal"`
	VATAmount  int `json:"vatAmount"`
	GrossTotal int `json:"grossTotal"`

	CreatedAt time.Time `json:"createdAt"`

	Items []quote.Item `json:"items"`
}

// AccessToken grants anonymous read access to one saved quote.
type AccessToken struct {
	Token     string
	QuoteID   string
	CreatedAt time.Time
	ExpiresAt time.Time
}

type BookingRecord struct {
	ID      string `json:"id"`
	QuoteID string `json:"quoteId"`

	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Company string `json:"company,omitempty"`

	Topic         string `json:"topic,omitempty"`
	PreferredDate string `json:"preferredDate,omitempty"`
	Message       string `json:"message,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}
