package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"wertchat/app/client/chatproxy"
	"wertchat/app/config"
	"wertchat/app/service/booking"
	"wertchat/app/service/chat"
	"wertchat/app/service/quote"
	"wertchat/app/service/store"

	"github.com/google/uuid"
	"github.com/samber/do"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, upstreamURL string) *Server {
	t.Helper()

	cfg := &config.Config{}
	cfg.Upstream.Mode = "proxy"
	cfg.Upstream.Proxy.URL = upstreamURL
	cfg.Chat = config.Chat{HistoryLimit: 20, RateWindowSeconds: 60, RateMaxMessages: 10}
	cfg.DB.Path = ":memory:"

	di := do.New()
	do.ProvideValue(di, cfg)
	do.Provide(di, chatproxy.NewClient)
	do.Provide(di, chat.NewService)
	do.Provide(di, store.New)
	do.Provide(di, booking.New)
	do.Provide(di, New)

	s := do.MustInvoke[*Server](di)
	t.Cleanup(func() {
		_ = di.Shutdown()
	})

	return s
}

func jsonRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Session-ID", "test-session")

	return req
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()

	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestChatStreamsEvents(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"message": "Gerne helfe ich Ihnen.",
			"quoteRecommendations": [
				{"service": "Corporate Website", "estimatedHours": 40, "complexity": "hoch"}
			]
		}`)
	}))
	defer upstream.Close()

	s := newTestServer(t, upstream.URL)

	resp, err := s.app.Test(jsonRequest(http.MethodPost, "/api/chat", map[string]any{"message": "Hallo"}), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "test-session", resp.Header.Get("X-Session-ID"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	raw := string(body)
	assert.Contains(t, raw, `"type":"content"`)
	assert.Contains(t, raw, "Gerne helfe ich Ihnen.")
	assert.Contains(t, raw, `"type":"quote_item"`)
	assert.Contains(t, raw, `"Corporate Website"`)
	assert.True(t, strings.HasSuffix(raw, "data: [DONE]\n\n"))
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:0")

	resp, err := s.app.Test(jsonRequest(http.MethodPost, "/api/chat", map[string]any{"message": "   "}), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChatRateLimit(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"message": "Ok."}`)
	}))
	defer upstream.Close()

	s := newTestServer(t, upstream.URL)

	for i := 0; i < 10; i++ {
		resp, err := s.app.Test(jsonRequest(http.MethodPost, "/api/chat", map[string]any{"message": fmt.Sprintf("Nachricht %d", i)}), -1)
		require.NoError(t, err)
		_, _ = io.ReadAll(resp.Body)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, err := s.app.Test(jsonRequest(http.MethodPost, "/api/chat", map[string]any{"message": "eine zu viel"}), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get("Retry-After"))
}

func TestCurrentQuoteAndRemoveItem(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:0")

	hours := 16.0
	item := quote.Item{
		ID:             uuid.NewString(),
		Service:        "Konzeption & Wireframes",
		EstimatedHours: &hours,
		Complexity:     quote.TierMedium,
		Price:          2496,
	}
	s.chat.Session("test-session").Quotes().Add(item)

	resp, err := s.app.Test(jsonRequest(http.MethodGet, "/api/quote", nil), -1)
	require.NoError(t, err)

	var current struct {
		Items      []quote.Item `json:"items"`
		NetTotal   int          `json:"netTotal"`
		VATAmount  int          `json:"vatAmount"`
		GrossTotal int          `json:"grossTotal"`
	}
	decodeBody(t, resp, &current)

	require.Len(t, current.Items, 1)
	assert.Equal(t, 2496, current.NetTotal)
	assert.Equal(t, 474, current.VATAmount)
	assert.Equal(t, 2970, current.GrossTotal)

	resp, err = s.app.Test(jsonRequest(http.MethodDelete, "/api/quote/items/"+item.ID, nil), -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	assert.Equal(t, 0, s.chat.Session("test-session").Quotes().Len())
}

func TestQuoteLifecycle(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:0")

	s.chat.Session("test-session").Quotes().Add(quote.Item{
		ID:      uuid.NewString(),
		Service: "Corporate Website",
		Price:   7680,
	})

	// save
	resp, err := s.app.Test(jsonRequest(http.MethodPost, "/api/quotes", map[string]any{"customerName": "Max"}), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var saved booking.SaveQuoteResult
	decodeBody(t, resp, &saved)
	assert.Regexp(t, `^DW-`, saved.Number)

	// fetch by id
	resp, err = s.app.Test(jsonRequest(http.MethodGet, "/api/quotes/"+saved.QuoteID, nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rec store.QuoteRecord
	decodeBody(t, resp, &rec)
	assert.Equal(t, saved.Number, rec.Number)
	require.Len(t, rec.Items, 1)

	// fetch by shared token
	resp, err = s.app.Test(jsonRequest(http.MethodGet, "/api/quotes/shared/"+saved.AccessToken, nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// document
	resp, err = s.app.Test(jsonRequest(http.MethodGet, "/api/quotes/"+saved.QuoteID+"/document", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	doc, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(doc), "Angebot "+saved.Number)

	// booking
	resp, err = s.app.Test(jsonRequest(http.MethodPost, "/api/bookings", map[string]any{
		"quoteId": saved.QuoteID,
		"name":    "Max Mustermann",
		"email":   "max@example.com",
	}), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// list shows the booked quote
	resp, err = s.app.Test(jsonRequest(http.MethodGet, "/api/quotes", nil), -1)
	require.NoError(t, err)

	var list struct {
		Quotes []store.QuoteRecord `json:"quotes"`
	}
	decodeBody(t, resp, &list)
	require.Len(t, list.Quotes, 1)
	assert.Equal(t, store.QuoteStatusBooked, list.Quotes[0].Status)
}

func TestSaveQuoteEmptyAccumulator(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:0")

	resp, err := s.app.Test(jsonRequest(http.MethodPost, "/api/quotes", map[string]any{}), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetQuoteNotFound(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:0")

	resp, err := s.app.Test(jsonRequest(http.MethodGet, "/api/quotes/missing", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

