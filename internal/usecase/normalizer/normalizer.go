package normalizer

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	marketdatav1 "github.com/TexasCoding/projectx-go/internal/domain/marketdata/v1"
	"github.com/TexasCoding/projectx-go/pkg/errors"
)

// Normalizer decodes heterogeneous gateway payloads into normalized market
// events. It is stateless and side-effect free: sequence numbers are taken
// from the payload, never invented.
type Normalizer struct{}

// New creates a Normalizer.
func New() *Normalizer {
	return &Normalizer{}
}

// Normalize decodes one raw wire payload. A quote frame carries both sides and
// yields two events (bid then ask); every other frame yields one.
func (n *Normalizer) Normalize(payload []byte) ([]marketdatav1.MarketEvent, error) {
	var raw marketdatav1.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, malformed(fmt.Sprintf("undecodable payload: %v", err), "payload")
	}

	if raw.ContractID == "" {
		return nil, malformed("missing contractId", "contractId")
	}
	if raw.Sequence == nil {
		return nil, malformed("missing sequence", "sequence")
	}

	ts, err := parseTimestamp(raw.Timestamp)
	if err != nil {
		return nil, malformed(err.Error(), "timestamp")
	}

	switch raw.Type {
	case marketdatav1.MessageTypeQuote:
		return n.normalizeQuote(&raw, ts)
	case marketdatav1.MessageTypeTrade:
		return n.normalizeTrade(&raw, ts)
	case marketdatav1.MessageTypeDepth:
		return n.normalizeDepth(&raw, ts)
	default:
		return nil, malformed(fmt.Sprintf("unknown message type %q", raw.Type), "type")
	}
}

func (n *Normalizer) normalizeQuote(raw *marketdatav1.RawMessage, ts time.Time) ([]marketdatav1.MarketEvent, error) {
	if raw.Bid == nil && raw.Ask == nil {
		return nil, malformed("quote carries neither bid nor ask", "bid")
	}

	events := make([]marketdatav1.MarketEvent, 0, 2)
	if raw.Bid != nil {
		if err := validPrice(*raw.Bid, "bid"); err != nil {
			return nil, err
		}
		events = append(events, marketdatav1.MarketEvent{
			Kind:       marketdatav1.KindQuoteBid,
			Instrument: raw.ContractID,
			Price:      *raw.Bid,
			Side:       marketdatav1.SideBid,
			Sequence:   *raw.Sequence,
			Timestamp:  ts,
		})
	}
	if raw.Ask != nil {
		if err := validPrice(*raw.Ask, "ask"); err != nil {
			return nil, err
		}
		events = append(events, marketdatav1.MarketEvent{
			Kind:       marketdatav1.KindQuoteAsk,
			Instrument: raw.ContractID,
			Price:      *raw.Ask,
			Side:       marketdatav1.SideAsk,
			Sequence:   *raw.Sequence,
			Timestamp:  ts,
		})
	}
	return events, nil
}

func (n *Normalizer) normalizeTrade(raw *marketdatav1.RawMessage, ts time.Time) ([]marketdatav1.MarketEvent, error) {
	if raw.Price == nil {
		return nil, malformed("trade missing price", "price")
	}
	if err := validPrice(*raw.Price, "price"); err != nil {
		return nil, err
	}
	if raw.Volume == nil {
		return nil, malformed("trade missing volume", "volume")
	}
	if err := validVolume(*raw.Volume); err != nil {
		return nil, err
	}

	event := marketdatav1.MarketEvent{
		Kind:       marketdatav1.KindTrade,
		Instrument: raw.ContractID,
		Price:      *raw.Price,
		Volume:     *raw.Volume,
		Sequence:   *raw.Sequence,
		Timestamp:  ts,
	}
	// The wire side field is optional on trades; when absent the aggressor is
	// classified later against the prevailing mid.
	switch raw.Side {
	case "buy":
		event.Side = marketdatav1.SideBid
	case "sell":
		event.Side = marketdatav1.SideAsk
	case "":
	default:
		return nil, malformed(fmt.Sprintf("unknown trade side %q", raw.Side), "side")
	}
	return []marketdatav1.MarketEvent{event}, nil
}

func (n *Normalizer) normalizeDepth(raw *marketdatav1.RawMessage, ts time.Time) ([]marketdatav1.MarketEvent, error) {
	var kind marketdatav1.EventKind
	switch raw.Action {
	case marketdatav1.DepthActionAdd:
		kind = marketdatav1.KindDepthAdd
	case marketdatav1.DepthActionUpdate:
		kind = marketdatav1.KindDepthUpdate
	case marketdatav1.DepthActionDelete:
		kind = marketdatav1.KindDepthDelete
	case marketdatav1.DepthActionReset:
		kind = marketdatav1.KindDepthReset
	default:
		return nil, malformed(fmt.Sprintf("unknown depth action %q", raw.Action), "action")
	}

	event := marketdatav1.MarketEvent{
		Kind:       kind,
		Instrument: raw.ContractID,
		Sequence:   *raw.Sequence,
		Timestamp:  ts,
	}

	if kind == marketdatav1.KindDepthReset {
		return []marketdatav1.MarketEvent{event}, nil
	}

	switch raw.Side {
	case "bid":
		event.Side = marketdatav1.SideBid
	case "ask":
		event.Side = marketdatav1.SideAsk
	default:
		return nil, malformed(fmt.Sprintf("unknown depth side %q", raw.Side), "side")
	}

	if raw.Price == nil {
		return nil, malformed("depth event missing price", "price")
	}
	if err := validPrice(*raw.Price, "price"); err != nil {
		return nil, err
	}
	event.Price = *raw.Price

	if kind != marketdatav1.KindDepthDelete {
		if raw.Volume == nil {
			return nil, malformed("depth event missing volume", "volume")
		}
		if err := validVolume(*raw.Volume); err != nil {
			return nil, err
		}
		event.Volume = *raw.Volume
	}

	return []marketdatav1.MarketEvent{event}, nil
}

func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("missing timestamp")
	}
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable timestamp %q", value)
	}
	return ts, nil
}

func validPrice(price float64, field string) error {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return malformed(fmt.Sprintf("non-positive or non-numeric %s %f", field, price), field)
	}
	return nil
}

func validVolume(volume float64) error {
	if math.IsNaN(volume) || math.IsInf(volume, 0) || volume < 0 {
		return malformed(fmt.Sprintf("negative or non-numeric volume %f", volume), "volume")
	}
	return nil
}

func malformed(message, field string) error {
	return errors.NewErrorDetails(message, string(errors.MalformedEventError), field)
}
