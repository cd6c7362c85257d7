package slots

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/mpqr-bridge/internal/bridge"
)

func TestLayout(t *testing.T) {
	assert.Equal(t, 25, Offset)
	assert.Equal(t, 26, OutRes)
	assert.Equal(t, 32, OutRawJSON)
	assert.Equal(t, Size, OutRawJSON+1)
}

func TestRead_Order(t *testing.T) {
	p := NewParams("O")
	p[ConfigPath] = " /etc/mp/mercadopagoQR.properties "
	p[IdempotencyKey] = "KEY-1"
	p[ExternalReference] = " REF-1 "
	p[Description] = "Coffee"
	p[ExternalPosID] = "CAJA1"
	p[Mode] = "static"
	p[ExpirationTime] = "PT10M"
	p[TotalAmount] = "10.50"
	p[UnitMeasure] = "unidad"
	p[ItemTitle] = "Cafe"
	p[ExternalCode] = "SKU"

	req := Read(p)
	assert.Equal(t, bridge.ActionCreateOrder, req.Action)
	assert.Equal(t, "/etc/mp/mercadopagoQR.properties", req.ConfigPath)
	assert.Equal(t, bridge.OrderIn{
		ExternalReference: "REF-1",
		Description:       "Coffee",
		ExternalPosID:     "CAJA1",
		Mode:              "static",
		ExpirationTime:    "PT10M",
		TotalAmount:       "10.50",
		UnitMeasure:       "unidad",
		ItemTitle:         "Cafe",
		ExternalCode:      "SKU",
		IdempotencyKey:    "KEY-1",
	}, req.Order)
}

func TestRead_StoreAndPos(t *testing.T) {
	p := NewParams("S")
	p[StoreName] = "Sucursal"
	p[StoreExternalID] = "SUC1"
	p[Street] = "Corrientes"
	p[StreetNumber] = "1234"
	p[City] = "CABA"
	p[State] = "Buenos Aires"
	p[Latitude] = "-34,6"
	p[Longitude] = "-58,4"
	p[PosName] = "Caja"
	p[PosExternalID] = "SUC1POS1"
	p[StoreID] = "42"

	req := Read(p)
	assert.Equal(t, "Sucursal", req.Store.Name)
	assert.Equal(t, "SUC1", req.Store.ExternalID)
	assert.Equal(t, "Buenos Aires", req.Store.State)
	assert.Equal(t, "-34,6", req.Store.Latitude)
	assert.Equal(t, "-58,4", req.Store.Longitude)
	assert.Equal(t, bridge.PosIn{Name: "Caja", ExternalID: "SUC1POS1", StoreID: "42"}, req.Pos)
	assert.Empty(t, req.Search.FilterExternalID, "filters only apply to search actions")
}

func TestRead_SearchFilters(t *testing.T) {
	p := NewParams("ls")
	p[StoreExternalID] = "SUC1"
	p[PosExternalID] = "POS-EXT"
	p[Limit] = "20"
	p[Offset] = "40"

	req := Read(p)
	assert.Equal(t, bridge.SearchIn{Limit: 20, Offset: 40, FilterExternalID: "SUC1"}, req.Search)

	p[Action] = "LP"
	p[Limit] = "veinte"
	p[Offset] = ""
	req = Read(p)
	assert.Equal(t, bridge.SearchIn{Limit: 0, Offset: 0, FilterExternalID: "POS-EXT"}, req.Search)
}

func TestRead_ShortArray(t *testing.T) {
	req := Read([]string{"Q", "", "", "ORD01"})
	assert.Equal(t, bridge.ActionGetOrder, req.Action)
	assert.Equal(t, "ORD01", req.OrderID)
	assert.Empty(t, req.Order.TotalAmount)
	assert.Empty(t, req.Pos.StoreID)

	assert.NotPanics(t, func() { Read(nil) })
}

func TestWrite(t *testing.T) {
	p := NewParams("O")
	Write(p, bridge.Result{
		Res:       bridge.ResOK,
		Msg:       "OK",
		ID:        "ORD01",
		QRData:    "0002",
		Status:    "created",
		PaymentID: "PAY1",
		RawJSON:   ` {"id":"ORD01"} `,
	})

	assert.Equal(t, "0", p[OutRes])
	assert.Equal(t, "OK", p[OutMsg])
	assert.Equal(t, "ORD01", p[OutID])
	assert.Equal(t, "0002", p[OutQRData])
	assert.Equal(t, "created", p[OutStatus])
	assert.Equal(t, "PAY1", p[OutPaymentID])
	assert.Equal(t, ` {"id":"ORD01"} `, p[OutRawJSON])
	assert.Equal(t, []string{"0", "OK", "ORD01", "0002", "created", "PAY1", ` {"id":"ORD01"} `}, Outputs(p))
}

func TestWrite_ShortArray(t *testing.T) {
	p := make([]string, OutMsg+1)
	require.NotPanics(t, func() {
		Write(p, bridge.Result{Res: bridge.ResError, Msg: "missing order_id", ID: "ignored"})
	})
	assert.Equal(t, "4", p[OutRes])
	assert.Equal(t, "missing order_id", p[OutMsg])
	assert.Equal(t, []string{"4", "missing order_id", "", "", "", "", ""}, Outputs(p))
}

func TestWrite_ClearsPreviousOutputs(t *testing.T) {
	p := NewParams("Q")
	Write(p, bridge.Result{Res: 0, ID: "ORD01", QRData: "QR"})
	Write(p, bridge.Result{Res: bridge.ResHTTP, Msg: "getOrder: HTTP 404 - "})

	assert.Equal(t, "5", p[OutRes])
	assert.Equal(t, "", p[OutID])
	assert.Equal(t, "", p[OutQRData])
}
