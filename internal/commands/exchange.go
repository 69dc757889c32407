package commands

import (
	"context"
	"exchange-telegram-bot/internal/types"
	"exchange-telegram-bot/lib/helpers"
	"exchange-telegram-bot/lib/translation"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"regexp"
	"strings"
)

// Outcome labels how an exchange command ended.
type Outcome string

const (
	OutcomeConverted           Outcome = "converted"
	OutcomeInvalidFormat       Outcome = "invalid_format"
	OutcomeUnsupportedCurrency Outcome = "unsupported_currency"
	OutcomeProviderError       Outcome = "provider_error"
)

// whitespace matches any Unicode White_Space rune, the same set strings.TrimSpace
// removes. RE2's \s covers ASCII only.
const (
	whitespace    = `[\t\n\v\f\r\x{85}\p{Z}]`
	notWhitespace = `[^\t\n\v\f\r\x{85}\p{Z}]`
)

// exchangeArgsRe accepts "{Amount?}{From}={Target}" and "{Amount?}{From} {Target}".
var exchangeArgsRe = regexp.MustCompile(
	`^` + whitespace + `*` +
		`(?P<amount>\d+|\d+\.\d+|)` +
		whitespace + `*` +
		`(?P<from>[a-zA-Z]{1,4})` +
		`(?:` + whitespace + `*=` + whitespace + `*|` + whitespace + `+)` +
		whitespace + `*` +
		`(?P<to>[a-zA-Z]` + notWhitespace + `{0,4})` +
		whitespace + `*$`,
)

var (
	amountGroup = exchangeArgsRe.SubexpIndex("amount")
	fromGroup   = exchangeArgsRe.SubexpIndex("from")
	toGroup     = exchangeArgsRe.SubexpIndex("to")
)

// ExchangeQuery is a parsed conversion request. An empty Amount means the
// user gave none; it is forwarded as is and the provider picks the default.
type ExchangeQuery struct {
	Amount string
	From   string
	To     string
}

// SymbolSource supplies the currencies the provider can convert.
type SymbolSource interface {
	SupportedSymbols(ctx context.Context) (types.Symbols, error)
}

// Converter performs a conversion through the exchange-rate provider.
type Converter interface {
	Convert(ctx context.Context, from, to, amount string) (types.ConversionResult, error)
}

// ParseExchangeArgs parses the arguments of an exchange command. Currency
// codes keep the case the user typed.
func ParseExchangeArgs(args string) (ExchangeQuery, bool) {
	m := exchangeArgsRe.FindStringSubmatch(strings.TrimSpace(args))
	if m == nil {
		return ExchangeQuery{}, false
	}
	return ExchangeQuery{
		Amount: m[amountGroup],
		From:   m[fromGroup],
		To:     m[toGroup],
	}, true
}

// ValidateExchangeQuery checks the from code first, then the to code, against
// symbols. When one is unsupported it returns the message naming the code as
// the user typed it.
func ValidateExchangeQuery(q ExchangeQuery, symbols types.Symbols) (string, bool) {
	if !symbols.Supports(q.From) {
		return UnsupportedCurrencyMessage(q.From), false
	}
	if !symbols.Supports(q.To) {
		return UnsupportedCurrencyMessage(q.To), false
	}
	return "", true
}

func UnsupportedCurrencyMessage(code string) string {
	return translation.Translate("Unsupported currency `%s`", helpers.EscapeCode(code))
}

func InvalidFormatMessage() string {
	return translation.Translate("Invalid format, expected `{Amount?}{From}={Target}` or `{Amount?}{From} {Target}`")
}

func FormatExchangeResult(q ExchangeQuery, r types.ConversionResult) string {
	return translation.Translate(
		"`%s` `%s` to `%s` exchange result is `%s`",
		helpers.EscapeCode(q.Amount),
		helpers.EscapeCode(strings.ToUpper(q.From)),
		helpers.EscapeCode(strings.ToUpper(q.To)),
		helpers.FormatRate(r.Result),
	)
}

// ExchangeCommand answers exchange commands such as "/ex 99USD=TWD".
type ExchangeCommand struct {
	Symbols   SymbolSource
	Converter Converter
	// OnOutcome, when set, is called once per handled command.
	OnOutcome func(Outcome)
}

func NewExchangeCommand(symbols SymbolSource, converter Converter) *ExchangeCommand {
	return &ExchangeCommand{Symbols: symbols, Converter: converter}
}

// Handle parses args, validates both currencies and converts. Provider
// failures are returned to the caller untouched by any retry or default.
func (c *ExchangeCommand) Handle(ctx context.Context, args string) (string, error) {
	q, ok := ParseExchangeArgs(args)
	if !ok {
		c.observe(OutcomeInvalidFormat)
		return InvalidFormatMessage(), nil
	}

	symbols, err := c.Symbols.SupportedSymbols(ctx)
	if err != nil {
		c.observe(OutcomeProviderError)
		return "", errors.Wrap(err, "could not fetch supported symbols")
	}

	if msg, ok := ValidateExchangeQuery(q, symbols); !ok {
		c.observe(OutcomeUnsupportedCurrency)
		return msg, nil
	}

	result, err := c.Converter.Convert(ctx, q.From, q.To, q.Amount)
	if err != nil {
		c.observe(OutcomeProviderError)
		return "", errors.Wrapf(err, "could not convert %s to %s", q.From, q.To)
	}

	log.Debugf("converted %q %s to %s: %f", q.Amount, q.From, q.To, result.Result)
	c.observe(OutcomeConverted)
	return FormatExchangeResult(q, result), nil
}

func (c *ExchangeCommand) observe(o Outcome) {
	if c.OnOutcome != nil {
		c.OnOutcome(o)
	}
}
