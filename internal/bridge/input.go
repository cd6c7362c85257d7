package bridge

import "strings"

// Action is one of the eight operation codes.
type Action string

const (
	ActionCreateOrder  Action = "O"
	ActionGetOrder     Action = "Q"
	ActionCancelOrder  Action = "C"
	ActionRefundOrder  Action = "R"
	ActionCreateStore  Action = "S"
	ActionCreatePos    Action = "P"
	ActionSearchStores Action = "LS"
	ActionSearchPos    Action = "LP"
)

// Actions lists every supported action in table order.
var Actions = []Action{
	ActionCreateOrder, ActionGetOrder, ActionCancelOrder, ActionRefundOrder,
	ActionCreateStore, ActionCreatePos, ActionSearchStores, ActionSearchPos,
}

// ParseAction normalizes a caller-supplied code. ok is false for unknown codes.
func ParseAction(s string) (Action, bool) {
	a := Action(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Actions {
		if a == known {
			return a, true
		}
	}
	return a, false
}

// DefaultSearchLimit applies when SearchIn.Limit is not positive.
const DefaultSearchLimit = 50

// Default values for optional order fields.
const (
	DefaultMode        = "dynamic"
	DefaultUnitMeasure = "unidad"
	DefaultItemTitle   = "Item"
)

// OrderIn describes a QR order.
type OrderIn struct {
	ExternalReference string `json:"external_reference"`
	Description       string `json:"description"`
	ExternalPosID     string `json:"external_pos_id"`
	Mode              string `json:"mode"`
	ExpirationTime    string `json:"expiration_time"` // ISO-8601 duration
	TotalAmount       string `json:"total_amount"`    // sent verbatim
	UnitMeasure       string `json:"unit_measure"`
	ItemTitle         string `json:"item_title"`
	ExternalCode      string `json:"external_code"`
	IdempotencyKey    string `json:"idempotency_key"`
}

// StoreIn describes a merchant store.
type StoreIn struct {
	Name           string `json:"name"`
	ExternalID     string `json:"external_id"`
	Street         string `json:"street"`
	StreetNumber   string `json:"street_number"`
	City           string `json:"city"`
	State          string `json:"state"`
	Latitude       string `json:"latitude"`  // comma or dot decimal separator
	Longitude      string `json:"longitude"` // comma or dot decimal separator
	IdempotencyKey string `json:"idempotency_key"`
}

// PosIn describes a point of sale. StoreID must parse as a positive integer.
type PosIn struct {
	Name           string `json:"name"`
	ExternalID     string `json:"external_id"`
	StoreID        string `json:"store_id"`
	IdempotencyKey string `json:"idempotency_key"`
}

// SearchIn pages through stores or points of sale.
type SearchIn struct {
	Limit            int    `json:"limit"`
	Offset           int    `json:"offset"`
	FilterExternalID string `json:"external_id"`
}

// Request carries everything any action may need. Only the fields relevant
// to Action are read.
type Request struct {
	Action         Action   `json:"action"`
	ConfigPath     string   `json:"config_path"`
	OrderID        string   `json:"order_id"`
	IdempotencyKey string   `json:"idempotency_key"`
	UserID         string   `json:"user_id"`
	Order          OrderIn  `json:"order"`
	Store          StoreIn  `json:"store"`
	Pos            PosIn    `json:"pos"`
	Search         SearchIn `json:"search"`
}

// withDefaultKey fills blank per-input idempotency keys from the request-level key.
func (r Request) withDefaultKey() Request {
	if strings.TrimSpace(r.IdempotencyKey) == "" {
		return r
	}
	if isBlank(r.Order.IdempotencyKey) {
		r.Order.IdempotencyKey = r.IdempotencyKey
	}
	if isBlank(r.Store.IdempotencyKey) {
		r.Store.IdempotencyKey = r.IdempotencyKey
	}
	if isBlank(r.Pos.IdempotencyKey) {
		r.Pos.IdempotencyKey = r.IdempotencyKey
	}
	return r
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// firstNonBlank returns the first argument with non-space content, trimmed.
func firstNonBlank(values ...string) string {
	for _, v := range values {
		if t := strings.TrimSpace(v); t != "" {
			return t
		}
	}
	return ""
}
