package bridge

import (
	"fmt"
	"strconv"
	"strings"
)

// Provider request bodies. Field order follows the provider documentation.

type orderBody struct {
	Type              string            `json:"type"`
	TotalAmount       string            `json:"total_amount"`
	Description       string            `json:"description"`
	ExternalReference string            `json:"external_reference"`
	ExpirationTime    string            `json:"expiration_time,omitempty"`
	Config            orderConfig       `json:"config"`
	Transactions      orderTransactions `json:"transactions"`
	Items             []orderItem       `json:"items"`
}

type orderConfig struct {
	QR qrConfig `json:"qr"`
}

type qrConfig struct {
	ExternalPosID string `json:"external_pos_id"`
	Mode          string `json:"mode"`
}

type orderTransactions struct {
	Payments []paymentAmount `json:"payments"`
}

type paymentAmount struct {
	Amount string `json:"amount"`
}

type orderItem struct {
	Title        string `json:"title"`
	UnitPrice    string `json:"unit_price"`
	Quantity     int    `json:"quantity"`
	UnitMeasure  string `json:"unit_measure"`
	ExternalCode string `json:"external_code,omitempty"`
}

type storeBody struct {
	Name       string        `json:"name"`
	ExternalID string        `json:"external_id"`
	Location   storeLocation `json:"location"`
}

// storeLocation carries only the fields the caller supplied.
type storeLocation struct {
	StreetName   string   `json:"street_name,omitempty"`
	StreetNumber string   `json:"street_number,omitempty"`
	CityName     string   `json:"city_name,omitempty"`
	StateName    string   `json:"state_name,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
}

type posBody struct {
	Name       string `json:"name"`
	ExternalID string `json:"external_id"`
	StoreID    int64  `json:"store_id"`
}

func newOrderBody(in OrderIn) orderBody {
	amount := strings.TrimSpace(in.TotalAmount)
	return orderBody{
		Type:              "qr",
		TotalAmount:       amount,
		Description:       in.Description,
		ExternalReference: strings.TrimSpace(in.ExternalReference),
		ExpirationTime:    strings.TrimSpace(in.ExpirationTime),
		Config: orderConfig{QR: qrConfig{
			ExternalPosID: strings.TrimSpace(in.ExternalPosID),
			Mode:          firstNonBlank(in.Mode, DefaultMode),
		}},
		Transactions: orderTransactions{Payments: []paymentAmount{{Amount: amount}}},
		Items: []orderItem{{
			Title:        firstNonBlank(in.ItemTitle, DefaultItemTitle),
			UnitPrice:    amount,
			Quantity:     1,
			UnitMeasure:  firstNonBlank(in.UnitMeasure, DefaultUnitMeasure),
			ExternalCode: strings.TrimSpace(in.ExternalCode),
		}},
	}
}

func newStoreBody(in StoreIn) (storeBody, error) {
	lat, err := parseCoordinate("latitude", in.Latitude)
	if err != nil {
		return storeBody{}, err
	}
	lng, err := parseCoordinate("longitude", in.Longitude)
	if err != nil {
		return storeBody{}, err
	}
	return storeBody{
		Name:       strings.TrimSpace(in.Name),
		ExternalID: strings.TrimSpace(in.ExternalID),
		Location: storeLocation{
			StreetName:   strings.TrimSpace(in.Street),
			StreetNumber: strings.TrimSpace(in.StreetNumber),
			CityName:     strings.TrimSpace(in.City),
			StateName:    strings.TrimSpace(in.State),
			Latitude:     lat,
			Longitude:    lng,
		},
	}, nil
}

// parseCoordinate accepts "-34.6", "-34,6" or blank (nil).
func parseCoordinate(name, s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %q", name, s)
	}
	return &f, nil
}

// parseStoreID requires a positive integer.
func parseStoreID(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("missing store_id")
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid store_id: %q", s)
	}
	return id, nil
}
