// Package concierge implements the "Aura" chat stylist: a per-language
// conversation backed by a remote text model, with replies rendered so that
// product titles link to their detail view.
package concierge

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/sun8-storefront/internal/domain/product"
	"github.com/xenking/sun8-storefront/internal/genai"
	"github.com/xenking/sun8-storefront/internal/i18n"
)

// Role of a chat message author.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one chat bubble. Text is stored as received; linking is applied
// only when rendering.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	IsError   bool      `json:"isError,omitempty"`
}

// ErrBusy is returned by Send while a reply is pending.
var ErrBusy = errors.New("concierge: reply pending")

// ErrEmptyMessage is returned by Send for blank input.
var ErrEmptyMessage = errors.New("concierge: empty message")

// Generator produces a model reply.
type Generator interface {
	GenerateText(ctx context.Context, req genai.TextRequest) (string, error)
}

// Catalog supplies the live product snapshot used as context.
type Catalog interface {
	Products() []product.Product
}

// Options configure a Session.
type Options struct {
	Logger *zap.Logger
	Now    func() time.Time
}

// Session is the single shopper conversation. It is safe for concurrent use.
type Session struct {
	gen     Generator
	catalog Catalog
	bundle  *i18n.Bundle
	lg      *zap.Logger
	now     func() time.Time

	mu       sync.Mutex
	lang     i18n.Language
	messages []Message
	pending  bool
	// epoch increments on every reset so that late replies can be dropped.
	epoch uint64
}

// NewSession starts a conversation in lang seeded with the greeting.
func NewSession(gen Generator, c Catalog, bundle *i18n.Bundle, lang i18n.Language, opts Options) *Session {
	s := &Session{
		gen:     gen,
		catalog: c,
		bundle:  bundle,
		lg:      opts.Logger,
		now:     opts.Now,
	}
	if s.lg == nil {
		s.lg = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.reset(lang)
	return s
}

// Reset discards the conversation and greets in lang. It matches the shop
// language change callback signature.
func (s *Session) Reset(_ context.Context, lang i18n.Language) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset(lang)
}

func (s *Session) reset(lang i18n.Language) {
	s.lang = lang
	s.epoch++
	s.messages = []Message{s.newMessage(RoleModel, s.bundle.T(lang, "ai.greeting"), false)}
}

func (s *Session) newMessage(role Role, text string, isError bool) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		Timestamp: s.now(),
		IsError:   isError,
	}
}

// Messages returns the conversation in order.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

// Pending reports whether a reply is being generated.
func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Language returns the conversation language.
func (s *Session) Language() i18n.Language {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lang
}

// Send appends the user message, asks the model and appends its reply.
// Remote failures never surface as errors: they become flagged model
// messages with localized text. Blank input and sends while a reply is
// pending are rejected without changing the conversation.
func (s *Session) Send(ctx context.Context, text string) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, ErrEmptyMessage
	}

	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return Message{}, ErrBusy
	}
	history := make([]genai.Content, 0, len(s.messages)+1)
	for _, m := range s.messages {
		history = append(history, genai.TextContent(string(m.Role), m.Text))
	}
	history = append(history, genai.TextContent(genai.RoleUser, text))
	s.messages = append(s.messages, s.newMessage(RoleUser, text, false))
	s.pending = true
	lang, epoch := s.lang, s.epoch
	s.mu.Unlock()

	reply, isError := s.generate(ctx, history, lang)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = false
	msg := s.newMessage(RoleModel, reply, isError)
	if s.epoch != epoch {
		// Reset mid-flight: the reply belongs to the discarded history.
		return msg, nil
	}
	s.messages = append(s.messages, msg)
	return msg, nil
}

func (s *Session) generate(ctx context.Context, history []genai.Content, lang i18n.Language) (string, bool) {
	products := s.catalog.Products()
	reply, err := s.gen.GenerateText(ctx, genai.TextRequest{
		Contents:          history,
		SystemInstruction: SystemInstruction(products, lang),
		Temperature:       Temperature,
		MaxOutputTokens:   MaxOutputTokens,
	})
	switch {
	case errors.Is(err, genai.ErrMissingCredential):
		return s.bundle.T(lang, "ai.errors.missingKey"), true
	case err != nil:
		s.lg.Error("Concierge reply failed", zap.String("language", lang.String()), zap.Error(err))
		return s.bundle.T(lang, "ai.errors.unavailable"), true
	case strings.TrimSpace(reply) == "":
		return s.bundle.T(lang, "ai.errors.silence"), false
	default:
		return reply, false
	}
}

// Rendered is a message prepared for display.
type Rendered struct {
	Message
	Paragraphs []Paragraph `json:"paragraphs"`
	HTML       string      `json:"html"`
}

// Render links product titles in model messages against the live catalog.
// User messages are split into paragraphs without linking.
func (s *Session) Render() []Rendered {
	msgs := s.Messages()
	linker := NewLinker(s.catalog.Products())
	plain := NewLinker(nil)

	out := make([]Rendered, len(msgs))
	for i, m := range msgs {
		l := plain
		if m.Role == RoleModel {
			l = linker
		}
		pars := l.Link(m.Text)
		out[i] = Rendered{Message: m, Paragraphs: pars, HTML: RenderHTML(pars)}
	}
	return out
}
