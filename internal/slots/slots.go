// Package slots maps the 33-slot positional calling convention to and from
// bridge requests and results.
package slots

import (
	"strconv"
	"strings"

	"github.com/yourorg/mpqr-bridge/internal/bridge"
)

// Size is the number of slots in a full parameter array.
const Size = 33

// Input slots.
const (
	Action = iota
	ConfigPath
	IdempotencyKey
	OrderID
	ExternalReference
	Description
	ExternalPosID
	Mode
	ExpirationTime
	TotalAmount
	UnitMeasure
	ItemTitle
	ExternalCode
	StoreName
	StoreExternalID // also the LS filter
	Street
	StreetNumber
	City
	State
	Latitude
	Longitude
	PosName
	PosExternalID // also the LP filter
	StoreID
	Limit
	Offset
)

// Output slots.
const (
	OutRes = iota + Offset + 1
	OutMsg
	OutID
	OutQRData
	OutStatus
	OutPaymentID
	OutRawJSON
)

// NewParams returns a zeroed parameter array with the action set.
func NewParams(action string) []string {
	p := make([]string, Size)
	p[Action] = action
	return p
}

// get returns the trimmed value at i, or "" when the array is too short.
func get(params []string, i int) string {
	if i < 0 || i >= len(params) {
		return ""
	}
	return strings.TrimSpace(params[i])
}

// getInt returns the value at i as an int; absent or non-numeric is def.
func getInt(params []string, i, def int) int {
	n, err := strconv.Atoi(get(params, i))
	if err != nil {
		return def
	}
	return n
}

// Read builds a bridge request from a parameter array.
func Read(params []string) bridge.Request {
	key := get(params, IdempotencyKey)
	return bridge.Request{
		Action:         bridge.Action(get(params, Action)),
		ConfigPath:     get(params, ConfigPath),
		OrderID:        get(params, OrderID),
		IdempotencyKey: key,
		Order: bridge.OrderIn{
			ExternalReference: get(params, ExternalReference),
			Description:       get(params, Description),
			ExternalPosID:     get(params, ExternalPosID),
			Mode:              get(params, Mode),
			ExpirationTime:    get(params, ExpirationTime),
			TotalAmount:       get(params, TotalAmount),
			UnitMeasure:       get(params, UnitMeasure),
			ItemTitle:         get(params, ItemTitle),
			ExternalCode:      get(params, ExternalCode),
			IdempotencyKey:    key,
		},
		Store: bridge.StoreIn{
			Name:           get(params, StoreName),
			ExternalID:     get(params, StoreExternalID),
			Street:         get(params, Street),
			StreetNumber:   get(params, StreetNumber),
			City:           get(params, City),
			State:          get(params, State),
			Latitude:       get(params, Latitude),
			Longitude:      get(params, Longitude),
			IdempotencyKey: key,
		},
		Pos: bridge.PosIn{
			Name:           get(params, PosName),
			ExternalID:     get(params, PosExternalID),
			StoreID:        get(params, StoreID),
			IdempotencyKey: key,
		},
		Search: bridge.SearchIn{
			Limit:            getInt(params, Limit, 0),
			Offset:           getInt(params, Offset, 0),
			FilterExternalID: searchFilter(params),
		},
	}
}

// searchFilter picks the store or POS external id slot depending on the action.
func searchFilter(params []string) string {
	action, _ := bridge.ParseAction(get(params, Action))
	switch action {
	case bridge.ActionSearchStores:
		return get(params, StoreExternalID)
	case bridge.ActionSearchPos:
		return get(params, PosExternalID)
	}
	return ""
}

// Write copies r into the output slots that fit in params.
func Write(params []string, r bridge.Result) {
	set := func(i int, v string) {
		if i < len(params) {
			params[i] = v
		}
	}
	set(OutRes, strconv.Itoa(r.Res))
	set(OutMsg, r.Msg)
	set(OutID, r.ID)
	set(OutQRData, r.QRData)
	set(OutStatus, r.Status)
	set(OutPaymentID, r.PaymentID)
	set(OutRawJSON, r.RawJSON)
}

// Outputs returns the output slots of params, padding short arrays with "".
func Outputs(params []string) []string {
	out := make([]string, 0, OutRawJSON-OutRes+1)
	for i := OutRes; i <= OutRawJSON; i++ {
		v := ""
		if i < len(params) {
			v = params[i]
		}
		out = append(out, v)
	}
	return out
}
