package feed

import (
	"encoding/json"

	"github.com/Jhaamlal/Equals-Crypto/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	methodSubscribe   = "SUBSCRIBE"
	methodUnsubscribe = "UNSUBSCRIBE"

	tickerStreamSuffix = "@ticker"
)

// commandFrame is the outbound subscribe/unsubscribe message understood by
// the quote endpoint.
type commandFrame struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int      `json:"id"`
}

func newCommandFrame(method string, symbols []string) commandFrame {
	params := make([]string, len(symbols))
	for i, s := range symbols {
		params[i] = s + tickerStreamSuffix
	}
	return commandFrame{Method: method, Params: params, ID: 1}
}

// tickFrame is the inbound shape of interest: a top-level symbol field
// with last price and 24h change percent. Anything else on the stream
// (subscribe acks, other channels) lacks the symbol discriminant.
type tickFrame struct {
	Symbol        string `json:"s"`
	LastPrice     string `json:"c"`
	ChangePercent string `json:"P"`
}

// decodeTick parses raw into a pooled tickEvent. Frames without a symbol
// discriminant, or with values that do not parse, yield a DecodeError.
// The caller sets the generation before delivering the event.
func decodeTick(raw []byte) (*tickEvent, error) {
	var f tickFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, &domain.DecodeError{Reason: "malformed frame", Err: err}
	}
	if f.Symbol == "" {
		return nil, &domain.DecodeError{Reason: "missing symbol field"}
	}
	price, err := decimal.NewFromString(f.LastPrice)
	if err != nil {
		return nil, &domain.DecodeError{Reason: "bad price", Err: err}
	}
	pct, err := decimal.NewFromString(f.ChangePercent)
	if err != nil {
		return nil, &domain.DecodeError{Reason: "bad change percent", Err: err}
	}

	ev := acquireTickEvent()
	ev.symbol = f.Symbol
	ev.price = price
	ev.pct = pct
	return ev, nil
}
