package exchangerate

import (
	"context"
	"exchange-telegram-bot/internal/types"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"strings"
	"time"
)

// Config of the exchangerate.host client
type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
	Debug   bool
}

// Client talks to the exchangerate.host REST API.
type Client struct {
	http *resty.Client
}

// NewClient creates new exchangerate.host client
func NewClient(c Config) *Client {
	httpClient := resty.New().
		SetBaseURL(c.URL).
		SetHeader("Accept", "application/json").
		SetLogger(log.StandardLogger()).
		SetDebug(c.Debug)

	if c.Timeout > 0 {
		httpClient.SetTimeout(c.Timeout)
	}
	if c.APIKey != "" {
		httpClient.SetQueryParam("access_key", c.APIKey)
	}

	return &Client{http: httpClient}
}

// FetchSymbols lists the currencies the API can convert.
func (c *Client) FetchSymbols(ctx context.Context) (types.Symbols, error) {
	var result listResponse

	response, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		ExpectContentType("application/json").
		Get("/list")
	if err != nil {
		return nil, errors.Wrap(err, "send list request")
	}
	if err := checkResponse(response, result.Success, result.Error); err != nil {
		return nil, errors.Wrap(err, "could not list currencies")
	}

	symbols := make(types.Symbols, len(result.Currencies)+len(result.Symbols))
	for code, name := range result.Currencies {
		code = strings.ToUpper(code)
		symbols[code] = types.CurrencyInfo{Description: name, Code: code}
	}
	for code, info := range result.Symbols {
		code = strings.ToUpper(code)
		if info.Code == "" {
			info.Code = code
		}
		symbols[code] = info
	}

	log.Debugf("fetched %d supported currencies", len(symbols))
	return symbols, nil
}

// Convert converts amount of from into to. amount is sent verbatim, an empty
// value leaves the default to the API.
func (c *Client) Convert(ctx context.Context, from, to, amount string) (types.ConversionResult, error) {
	var result convertResponse

	response, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		ExpectContentType("application/json").
		SetQueryParams(map[string]string{
			"from":   from,
			"to":     to,
			"amount": amount,
		}).
		Get("/convert")
	if err != nil {
		return types.ConversionResult{}, errors.Wrap(err, "send convert request")
	}
	if err := checkResponse(response, result.Success, result.Error); err != nil {
		return types.ConversionResult{}, errors.Wrapf(err, "could not convert %s to %s", from, to)
	}
	if result.Result == nil {
		return types.ConversionResult{}, errors.Errorf("convert %s to %s: response has no result", from, to)
	}

	return types.ConversionResult{Result: *result.Result}, nil
}

func checkResponse(response *resty.Response, success *bool, apiErr *apiError) error {
	if !response.IsSuccess() {
		return errors.Errorf("unexpected status code %d, body: %s", response.StatusCode(), response.String())
	}
	if apiErr != nil {
		return apiErr
	}
	if success != nil && !*success {
		return errors.New("api reported failure without details")
	}
	return nil
}
