package booking

// SaveQuoteRequest freezes the current accumulator into a persisted offer.
// Customer fields are optional at this point, the visitor may still be
// anonymous.
type SaveQuoteRequest struct {
	Title         string `json:"title"`
	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail" validate:"omitempty,email"`
}

type SaveQuoteResult struct {
	QuoteID     string `json:"quoteId"`
	Number      string `json:"number"`
	AccessToken string `json:"accessToken"`
	NetTotal    int    `json:"netTotal"`
	VATAmount   int    `json:"vatAmount"`
	GrossTotal  int    `json:"grossTotal"`
}

// BookingRequest is a visitor asking to proceed with a saved offer.
type BookingRequest struct {
	QuoteID string `json:"quoteId" validate:"required"`

	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone"`
	Company string `json:"company"`

	Topic         string `json:"topic"`
	PreferredDate string `json:"preferredDate"`
	Message       string `json:"message"`
}
