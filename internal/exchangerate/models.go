package exchangerate

import (
	"exchange-telegram-bot/internal/types"
	"fmt"
)

// listResponse covers both the current "currencies" payload and the older
// "symbols" one.
type listResponse struct {
	Success    *bool                         `json:"success"`
	Currencies map[string]string             `json:"currencies"`
	Symbols    map[string]types.CurrencyInfo `json:"symbols"`
	Error      *apiError                     `json:"error"`
}

type convertResponse struct {
	Success *bool     `json:"success"`
	Result  *float64  `json:"result"`
	Error   *apiError `json:"error"`
}

type apiError struct {
	Code int    `json:"code"`
	Type string `json:"type"`
	Info string `json:"info"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("api error %d (%s): %s", e.Code, e.Type, e.Info)
}
