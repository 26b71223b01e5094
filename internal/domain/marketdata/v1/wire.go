package marketdatav1

// RawMessage is the wire framing shared by every gateway message kind. The
// normalizer decides the concrete shape from Type and Action.
type RawMessage struct {
	Type       string `json:"type"`
	ContractID string `json:"contractId"`
	Sequence   *int64 `json:"sequence"`
	Timestamp  string `json:"timestamp"`

	// quote
	Bid *float64 `json:"bid,omitempty"`
	Ask *float64 `json:"ask,omitempty"`

	// trade and depth
	Price  *float64 `json:"price,omitempty"`
	Volume *float64 `json:"volume,omitempty"`
	Side   string   `json:"side,omitempty"`

	// depth only
	Action string `json:"action,omitempty"`
}

// Wire message types.
const (
	MessageTypeQuote = "quote"
	MessageTypeTrade = "trade"
	MessageTypeDepth = "depth"
)

// Depth actions.
const (
	DepthActionAdd    = "add"
	DepthActionUpdate = "update"
	DepthActionDelete = "delete"
	DepthActionReset  = "reset"
)
