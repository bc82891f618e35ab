package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dukerupert/sparks/internal/domain"
)

// StockExceededMarker is the phrase the service puts in a 400 body when a
// quantity exceeds available stock.
const StockExceededMarker = "Quantity exceeds available stock"

// ErrorBody is the error payload the service returns. It sends either an
// "error" list or a single "detail".
type ErrorBody struct {
	Error  ErrorList `json:"error,omitempty"`
	Detail string    `json:"detail,omitempty"`
}

// ErrorList decodes from a JSON array of strings or a single string.
type ErrorList []string

// UnmarshalJSON accepts ["a","b"] or "a".
func (l *ErrorList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = ErrorList{s}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*l = list
	return nil
}

// Messages returns every message in the body.
func (b ErrorBody) Messages() []string {
	out := append([]string(nil), b.Error...)
	if b.Detail != "" {
		out = append(out, b.Detail)
	}
	return out
}

// classify maps a non-2xx response to the error taxonomy.
//
//	401, 403                          -> EUNAUTHORIZED
//	400 naming the stock marker       -> ESTOCK
//	anything else                     -> ESERVER
func classify(op string, status int, body []byte) error {
	var eb ErrorBody
	_ = json.Unmarshal(body, &eb) // best effort
	msgs := eb.Messages()

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &domain.Error{
			Code:    domain.EUNAUTHORIZED,
			Op:      op,
			Status:  status,
			Message: domain.MessageUnauthorized,
		}
	case status == http.StatusBadRequest && containsMarker(msgs):
		return domain.StockExceeded(op, status, domain.MessageStockExceeded)
	default:
		message := http.StatusText(status)
		if len(msgs) > 0 {
			message = strings.Join(msgs, "; ")
		}
		return domain.Server(op, status, message)
	}
}

func containsMarker(msgs []string) bool {
	for _, m := range msgs {
		if strings.Contains(m, StockExceededMarker) {
			return true
		}
	}
	return false
}

// transportError wraps a failure where no response arrived. Caller
// cancellation is passed through unchanged; timeouts count as network errors.
func transportError(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return domain.Network(err, op)
}
