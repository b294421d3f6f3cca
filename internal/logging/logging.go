package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Setup installs the default logger. level is debug, info, warn or error;
// format is text or json.
func Setup(level, format string, w io.Writer) error {
	handler, err := NewHandler(level, format, w)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

// NewHandler builds the handler Setup installs
func NewHandler(level, format string, w io.Writer) (slog.Handler, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "", "text":
		handler = slog.NewTextHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
	return NewContextHandler(handler), nil
}

type conversationKey struct{}

// WithConversation tags every record logged with ctx with the conversation
func WithConversation(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, conversationKey{}, username)
}

// Conversation returns the conversation set by WithConversation
func Conversation(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(conversationKey{}).(string)
	return username, ok
}

// ContextHandler adds fields carried by the context to records
type ContextHandler struct {
	slog.Handler
}

func NewContextHandler(h slog.Handler) *ContextHandler {
	return &ContextHandler{Handler: h}
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if username, ok := Conversation(ctx); ok {
		r.AddAttrs(slog.String("conversation", username))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithGroup(name)}
}
