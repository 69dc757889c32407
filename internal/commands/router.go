package commands

import (
	"context"
	log "github.com/sirupsen/logrus"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Handler answers a recognized command. args is the text after the command
// token, untrimmed.
type Handler func(ctx context.Context, args string) (string, error)

// Router maps command tokens to handlers. Register every token before the
// router is shared between goroutines; lookups afterwards are read-only.
type Router struct {
	handlers map[string]Handler
}

func NewRouter() *Router {
	return &Router{handlers: make(map[string]Handler)}
}

// Register binds token (for example "/ex") to h, replacing any previous handler.
func (r *Router) Register(token string, h Handler) {
	r.handlers[token] = h
}

// Tokens returns the registered tokens in lexical order.
func (r *Router) Tokens() []string {
	tokens := make([]string, 0, len(r.handlers))
	for token := range r.handlers {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)
	return tokens
}

// SplitCommand splits text at its first whitespace rune. The separator is
// mandatory: text without whitespace is not split.
func SplitCommand(text string) (token, args string, ok bool) {
	i := strings.IndexFunc(text, unicode.IsSpace)
	if i < 0 {
		return "", "", false
	}
	_, size := utf8.DecodeRuneInString(text[i:])
	return text[:i], text[i+size:], true
}

// Extract reports whether text starts with a registered token followed by
// whitespace. Tokens are matched exactly and case-sensitively.
func (r *Router) Extract(text string) (token, args string, ok bool) {
	token, args, ok = SplitCommand(text)
	if !ok {
		return "", "", false
	}
	if _, found := r.handlers[token]; !found {
		return "", "", false
	}
	return token, args, true
}

// HandleCommand runs the handler for the command in text. ok is false when
// text is not a recognized command, which callers silently ignore.
func (r *Router) HandleCommand(ctx context.Context, text string) (reply string, ok bool, err error) {
	token, args, ok := r.Extract(text)
	if !ok {
		return "", false, nil
	}

	log.Debugf("processing command %s with arguments: %q", token, args)
	reply, err = r.handlers[token](ctx, args)
	return reply, true, err
}
