package server

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"wertchat/app/config"
	"wertchat/app/service/booking"
	"wertchat/app/service/chat"
	"wertchat/app/service/conversation"
	"wertchat/app/service/store"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/samber/do"
	"github.com/valyala/fasthttp"
)

const sessionHeader = "X-Session-ID"

// Server exposes the chat pipeline and the quote lifecycle over HTTP. Chat
// replies stream to the browser as server-sent events.
type Server struct {
	cfg     *config.Config
	chat    *chat.Service
	booking *booking.Service
	store   *store.Service

	app *fiber.App
}

func New(di *do.Injector) (*Server, error) {
	s := &Server{
		cfg:     do.MustInvoke[*config.Config](di),
		chat:    do.MustInvoke[*chat.Service](di),
		booking: do.MustInvoke[*booking.Service](di),
		store:   do.MustInvoke[*store.Service](di),
	}

	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	api := s.app.Group("/api")

	api.Post("/chat", s.handleChat)
	api.Get("/messages", s.handleMessages)

	api.Get("/quote", s.handleCurrentQuote)
	api.Delete("/quote/items/:id", s.handleRemoveItem)

	api.Post("/quotes", s.handleSaveQuote)
	api.Get("/quotes", s.handleListQuotes)
	api.Get("/quotes/shared/:token", s.handleSharedQuote)
	api.Get("/quotes/:id", s.handleGetQuote)
	api.Get("/quotes/:id/document", s.handleQuoteDocument)

	api.Post("/bookings", s.handleBooking)

	return s, nil
}

func (s *Server) Run() error {
	return s.app.Listen(s.cfg.Server.Listen)
}

func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(5 * time.Second)
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}

	if code == fiber.StatusInternalServerError {
		slog.Error("Request failed", "path", c.Path(), "error", err)
	}

	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// sessionID reads the caller's session id, minting one on first contact. The
// id is always echoed back so the client can persist it.
func (s *Server) sessionID(c *fiber.Ctx) string {
	id := c.Get(sessionHeader)
	if id == "" {
		id = uuid.NewString()
	}

	c.Set(sessionHeader, id)

	return id
}

type chatRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleChat(c *fiber.Ctx) error {
	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	sessionID := s.sessionID(c)

	events, err := s.chat.Send(c.Context(), sessionID, req.Message)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		return fiber.NewError(fiber.StatusBadRequest, "message must not be empty")

	case errors.Is(err, chat.ErrRateLimited):
		c.Set(fiber.HeaderRetryAfter, fmt.Sprint(s.cfg.Chat.RateWindowSeconds))
		return fiber.NewError(fiber.StatusTooManyRequests, chat.RateLimitText)

	case errors.Is(err, conversation.ErrBusy):
		return fiber.NewError(fiber.StatusConflict, "a reply is already in progress")

	case err != nil:
		return err
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		for ev := range events {
			data, err := json.Marshal(ev)
			if err != nil {
				slog.Error("Failed to marshal chat event", "error", err)
				continue
			}

			fmt.Fprintf(w, "data: %s\n\n", data)

			if err := w.Flush(); err != nil {
				// client gone, drain so the pipeline can finish
				for range events {
				}

				return
			}
		}

		fmt.Fprint(w, "data: [DONE]\n\n")
	}))

	return nil
}

func (s *Server) handleMessages(c *fiber.Ctx) error {
	sess := s.chat.Session(s.sessionID(c))

	return c.JSON(fiber.Map{"messages": sess.Messages()})
}

func (s *Server) handleCurrentQuote(c *fiber.Ctx) error {
	quotes := s.chat.Session(s.sessionID(c)).Quotes()

	net := quotes.Total()
	vat, gross := booking.Totals(net)

	return c.JSON(fiber.Map{
		"items":      quotes.Items(),
		"netTotal":   net,
		"vatAmount":  vat,
		"grossTotal": gross,
	})
}

func (s *Server) handleRemoveItem(c *fiber.Ctx) error {
	quotes := s.chat.Session(s.sessionID(c)).Quotes()
	quotes.Remove(c.Params("id"))

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleSaveQuote(c *fiber.Ctx) error {
	var req booking.SaveQuoteRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result, err := s.booking.SaveQuote(c.Context(), s.sessionID(c), req)
	switch {
	case errors.Is(err, booking.ErrEmptyQuote):
		return fiber.NewError(fiber.StatusBadRequest, "no quote items to save")

	case errors.Is(err, booking.ErrInvalidRequest):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())

	case err != nil:
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

func (s *Server) handleListQuotes(c *fiber.Ctx) error {
	quotes, err := s.store.ListQuotes(c.Context())
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"quotes": quotes})
}

func (s *Server) handleGetQuote(c *fiber.Ctx) error {
	rec, err := s.store.GetQuote(c.Context(), c.Params("id"))
	if errors.Is(err, store.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "quote not found")
	}
	if err != nil {
		return err
	}

	return c.JSON(rec)
}

func (s *Server) handleSharedQuote(c *fiber.Ctx) error {
	rec, err := s.store.GetQuoteByToken(c.Context(), c.Params("token"))
	if errors.Is(err, store.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "quote not found")
	}
	if err != nil {
		return err
	}

	return c.JSON(rec)
}

func (s *Server) handleQuoteDocument(c *fiber.Ctx) error {
	doc, err := s.booking.Document(c.Context(), c.Params("id"))
	if errors.Is(err, store.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "quote not found")
	}
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")

	return c.SendString(doc)
}

func (s *Server) handleBooking(c *fiber.Ctx) error {
	var req booking.BookingRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	rec, err := s.booking.Book(c.Context(), req)
	switch {
	case errors.Is(err, booking.ErrInvalidRequest):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())

	case errors.Is(err, store.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "quote not found")

	case err != nil:
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(rec)
}
