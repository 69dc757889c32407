package commands

import (
	"context"
	"errors"
	"exchange-telegram-bot/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sync"
	"testing"
)

const invalidFormat = "Invalid format, expected `{Amount?}{From}={Target}` or `{Amount?}{From} {Target}`"

func TestParseExchangeArgs(t *testing.T) {
	t.Parallel()

	testCases := [...]struct {
		desc     string
		args     string
		expected ExchangeQuery
	}{
		{desc: "equal sign without amount", args: "USD=TWD", expected: ExchangeQuery{"", "USD", "TWD"}},
		{desc: "equal sign with integer amount", args: "99USD=TWD", expected: ExchangeQuery{"99", "USD", "TWD"}},
		{desc: "equal sign with decimal amount", args: "55.66USD=TWD", expected: ExchangeQuery{"55.66", "USD", "TWD"}},
		{desc: "equal sign surrounded by spaces", args: "99USD = TWD", expected: ExchangeQuery{"99", "USD", "TWD"}},
		{desc: "whitespace without amount", args: "USD TWD", expected: ExchangeQuery{"", "USD", "TWD"}},
		{desc: "space after amount with equal sign", args: "99 USD=TWD", expected: ExchangeQuery{"99", "USD", "TWD"}},
		{desc: "whitespace with integer amount", args: "99 USD TWD", expected: ExchangeQuery{"99", "USD", "TWD"}},
		{desc: "whitespace with decimal amount", args: "55.66 USD TWD", expected: ExchangeQuery{"55.66", "USD", "TWD"}},
		{desc: "extra spaces everywhere", args: "  55.66   USD   TWD   ", expected: ExchangeQuery{"55.66", "USD", "TWD"}},
		{desc: "newlines and tabs", args: "\n   55.66 \t  USD  \t\n  TWD  \n ", expected: ExchangeQuery{"55.66", "USD", "TWD"}},
		{desc: "ideographic space separator", args: "USD\u3000TWD", expected: ExchangeQuery{"", "USD", "TWD"}},
		{desc: "ideographic spaces around equal sign", args: "1USD\u3000=\u3000TWD", expected: ExchangeQuery{"1", "USD", "TWD"}},
		{desc: "no-break space after amount", args: "99\u00a0USD TWD", expected: ExchangeQuery{"99", "USD", "TWD"}},
		{desc: "vertical tab separator", args: "USD\vTWD", expected: ExchangeQuery{"", "USD", "TWD"}},
		{desc: "trailing ideographic space", args: "\u300099USD=TWD\u3000", expected: ExchangeQuery{"99", "USD", "TWD"}},
		{desc: "case is preserved", args: "10usd=Twd", expected: ExchangeQuery{"10", "usd", "Twd"}},
		{desc: "four letter codes", args: "1USDT=DOGE", expected: ExchangeQuery{"1", "USDT", "DOGE"}},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.desc, func(t *testing.T) {
			t.Parallel()

			actual, ok := ParseExchangeArgs(tc.args)
			require.True(t, ok)
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestParseExchangeArgsRejects(t *testing.T) {
	t.Parallel()

	testCases := [...]struct {
		desc string
		args string
	}{
		{desc: "single code", args: "TWD"},
		{desc: "missing from code", args: "=TWD"},
		{desc: "amount and single code", args: "99TWD"},
		{desc: "missing target", args: "99TWD="},
		{desc: "from code too long", args: "99FUTAFUTA=TWD"},
		{desc: "target code too long", args: "99TWD=FUTAFUTA"},
		{desc: "seven letter from code", args: "FUTAFUT TWD"},
		{desc: "numeric from code", args: "1=TWD"},
		{desc: "amount only", args: "99"},
		{desc: "empty", args: ""},
		{desc: "whitespace only", args: " \t\n"},
		{desc: "target starting with a digit", args: "USD=1TWD"},
		{desc: "trailing garbage", args: "USD TWD EUR"},
		{desc: "negative amount", args: "-5USD=TWD"},
		{desc: "target ending in ideographic space then garbage", args: "USD TWD\u3000EUR"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.desc, func(t *testing.T) {
			t.Parallel()

			actual, ok := ParseExchangeArgs(tc.args)
			assert.False(t, ok)
			assert.Equal(t, ExchangeQuery{}, actual)
		})
	}
}

func TestValidateExchangeQuery(t *testing.T) {
	t.Parallel()

	onlyTWD := types.Symbols{"TWD": {Description: "New Taiwan Dollar", Code: "TWD"}}
	both := types.Symbols{
		"TWD": {Description: "New Taiwan Dollar", Code: "TWD"},
		"USD": {Description: "United States Dollar", Code: "USD"},
	}

	testCases := [...]struct {
		desc    string
		query   ExchangeQuery
		symbols types.Symbols
		wantMsg string
		wantOK  bool
	}{
		{
			desc:    "unsupported from code",
			query:   ExchangeQuery{"", "USD", "TWD"},
			symbols: onlyTWD,
			wantMsg: "Unsupported currency `USD`",
		},
		{
			desc:    "unsupported from code with amount",
			query:   ExchangeQuery{"99", "USD", "TWD"},
			symbols: onlyTWD,
			wantMsg: "Unsupported currency `USD`",
		},
		{
			desc:    "unsupported from code is named as typed",
			query:   ExchangeQuery{"99", "usd", "TWD"},
			symbols: onlyTWD,
			wantMsg: "Unsupported currency `usd`",
		},
		{
			desc:    "unsupported target code",
			query:   ExchangeQuery{"55.66", "TWD", "USD"},
			symbols: onlyTWD,
			wantMsg: "Unsupported currency `USD`",
		},
		{
			desc:    "from code is checked first",
			query:   ExchangeQuery{"", "EUR", "JPY"},
			symbols: onlyTWD,
			wantMsg: "Unsupported currency `EUR`",
		},
		{
			desc:    "empty symbol set rejects the from code",
			query:   ExchangeQuery{"", "TWD", "USD"},
			symbols: types.Symbols{},
			wantMsg: "Unsupported currency `TWD`",
		},
		{
			desc:    "nil symbol set rejects the from code",
			query:   ExchangeQuery{"1", "TWD", "USD"},
			symbols: nil,
			wantMsg: "Unsupported currency `TWD`",
		},
		{
			desc:    "codes are matched case-insensitively",
			query:   ExchangeQuery{"", "usd", "twd"},
			symbols: both,
			wantOK:  true,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.desc, func(t *testing.T) {
			t.Parallel()

			msg, ok := ValidateExchangeQuery(tc.query, tc.symbols)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.wantMsg, msg)

			again, okAgain := ValidateExchangeQuery(tc.query, tc.symbols)
			assert.Equal(t, msg, again)
			assert.Equal(t, ok, okAgain)
		})
	}
}

func TestFormatExchangeResult(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		"`99` `USD` to `TWD` exchange result is `3050.12`",
		FormatExchangeResult(ExchangeQuery{"99", "usd", "Twd"}, types.ConversionResult{Result: 3050.1234}),
	)
	assert.Equal(t,
		"`` `USD` to `TWD` exchange result is `30.80`",
		FormatExchangeResult(ExchangeQuery{"", "USD", "TWD"}, types.ConversionResult{Result: 30.8}),
	)
}

type fakeSymbols struct {
	symbols types.Symbols
	err     error
	calls   int
}

func (f *fakeSymbols) SupportedSymbols(context.Context) (types.Symbols, error) {
	f.calls++
	return f.symbols, f.err
}

type conversion struct {
	from, to, amount string
}

type fakeConverter struct {
	result types.ConversionResult
	err    error
	calls  []conversion
}

func (f *fakeConverter) Convert(_ context.Context, from, to, amount string) (types.ConversionResult, error) {
	f.calls = append(f.calls, conversion{from, to, amount})
	return f.result, f.err
}

func TestExchangeCommandHandle(t *testing.T) {
	t.Parallel()

	supported := types.Symbols{
		"TWD": {Description: "New Taiwan Dollar", Code: "TWD"},
		"USD": {Description: "United States Dollar", Code: "USD"},
	}

	testCases := [...]struct {
		desc            string
		args            string
		symbols         types.Symbols
		result          float64
		wantReply       string
		wantOutcome     Outcome
		wantConversions []conversion
		wantSymbolCalls int
	}{
		{
			desc:            "converts with amount",
			args:            "99usd=twd",
			symbols:         supported,
			result:          3050.1234,
			wantReply:       "`99` `USD` to `TWD` exchange result is `3050.12`",
			wantOutcome:     OutcomeConverted,
			wantConversions: []conversion{{"usd", "twd", "99"}},
			wantSymbolCalls: 1,
		},
		{
			desc:            "empty amount is passed through",
			args:            "  USD TWD  ",
			symbols:         supported,
			result:          30.8,
			wantReply:       "`` `USD` to `TWD` exchange result is `30.80`",
			wantOutcome:     OutcomeConverted,
			wantConversions: []conversion{{"USD", "TWD", ""}},
			wantSymbolCalls: 1,
		},
		{
			desc:            "invalid format does not reach the provider",
			args:            "99",
			symbols:         supported,
			wantReply:       invalidFormat,
			wantOutcome:     OutcomeInvalidFormat,
			wantSymbolCalls: 0,
		},
		{
			desc:            "empty arguments",
			args:            "",
			symbols:         types.Symbols{},
			wantReply:       invalidFormat,
			wantOutcome:     OutcomeInvalidFormat,
			wantSymbolCalls: 0,
		},
		{
			desc:            "unsupported from code",
			args:            "99EUR=TWD",
			symbols:         supported,
			wantReply:       "Unsupported currency `EUR`",
			wantOutcome:     OutcomeUnsupportedCurrency,
			wantSymbolCalls: 1,
		},
		{
			desc:            "unsupported target code",
			args:            "55.66TWD=jpy",
			symbols:         supported,
			wantReply:       "Unsupported currency `jpy`",
			wantOutcome:     OutcomeUnsupportedCurrency,
			wantSymbolCalls: 1,
		},
		{
			desc:            "empty symbol set",
			args:            "TWD=USD",
			symbols:         types.Symbols{},
			wantReply:       "Unsupported currency `TWD`",
			wantOutcome:     OutcomeUnsupportedCurrency,
			wantSymbolCalls: 1,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.desc, func(t *testing.T) {
			t.Parallel()

			symbols := &fakeSymbols{symbols: tc.symbols}
			converter := &fakeConverter{result: types.ConversionResult{Result: tc.result}}

			var outcomes []Outcome
			cmd := NewExchangeCommand(symbols, converter)
			cmd.OnOutcome = func(o Outcome) { outcomes = append(outcomes, o) }

			reply, err := cmd.Handle(context.Background(), tc.args)
			require.NoError(t, err)
			assert.Equal(t, tc.wantReply, reply)
			assert.Equal(t, []Outcome{tc.wantOutcome}, outcomes)
			assert.Equal(t, tc.wantConversions, converter.calls)
			assert.Equal(t, tc.wantSymbolCalls, symbols.calls)
		})
	}
}

func TestExchangeCommandProviderErrors(t *testing.T) {
	t.Parallel()

	errProvider := errors.New("connection refused")

	t.Run("symbols fetch failure", func(t *testing.T) {
		t.Parallel()

		var outcome Outcome
		cmd := NewExchangeCommand(&fakeSymbols{err: errProvider}, &fakeConverter{})
		cmd.OnOutcome = func(o Outcome) { outcome = o }

		reply, err := cmd.Handle(context.Background(), "1USD=TWD")
		assert.ErrorIs(t, err, errProvider)
		assert.Empty(t, reply)
		assert.Equal(t, OutcomeProviderError, outcome)
	})

	t.Run("conversion failure", func(t *testing.T) {
		t.Parallel()

		converter := &fakeConverter{err: errProvider}
		cmd := NewExchangeCommand(&fakeSymbols{symbols: types.Symbols{"USD": {}, "TWD": {}}}, converter)

		reply, err := cmd.Handle(context.Background(), "1USD=TWD")
		assert.ErrorIs(t, err, errProvider)
		assert.Empty(t, reply)
		assert.Len(t, converter.calls, 1, "conversion must not be retried")
	})
}

func TestExchangeCommandConcurrentUse(t *testing.T) {
	t.Parallel()

	cmd := NewExchangeCommand(
		staticSymbols{"USD": {}, "TWD": {}},
		staticConverter{result: types.ConversionResult{Result: 32.5}},
	)

	var wg sync.WaitGroup
	replies := make([]string, 16)
	for i := range replies {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			replies[i], _ = cmd.Handle(context.Background(), "1USD=TWD")
		}(i)
	}
	wg.Wait()

	for _, reply := range replies {
		assert.Equal(t, "`1` `USD` to `TWD` exchange result is `32.50`", reply)
	}
}

type staticSymbols types.Symbols

func (s staticSymbols) SupportedSymbols(context.Context) (types.Symbols, error) {
	return types.Symbols(s), nil
}

type staticConverter struct {
	result types.ConversionResult
}

func (s staticConverter) Convert(context.Context, string, string, string) (types.ConversionResult, error) {
	return s.result, nil
}

func TestExchangeCommandFullWidthSpaces(t *testing.T) {
	t.Parallel()

	supported := types.Symbols{"TWD": {Code: "TWD"}, "USD": {Code: "USD"}}
	converter := &fakeConverter{result: types.ConversionResult{Result: 30.8}}
	cmd := NewExchangeCommand(&fakeSymbols{symbols: supported}, converter)

	r := NewRouter()
	r.Register("/ex", cmd.Handle)

	reply, ok, err := r.HandleCommand(context.Background(), "/ex　USD　TWD")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "`` `USD` to `TWD` exchange result is `30.80`", reply)
	assert.Equal(t, []conversion{{"USD", "TWD", ""}}, converter.calls)
}
