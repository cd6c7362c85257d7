package bridge

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/yourorg/mpqr-bridge/internal/config"
	"github.com/yourorg/mpqr-bridge/internal/monitor"
	"github.com/yourorg/mpqr-bridge/internal/policy"
)

const (
	opCreateOrder = "createOrder"
	opGetOrder    = "getOrder"
	opCancelOrder = "cancelOrder"
	opRefundOrder = "refundOrder"
)

// CreateOrder creates a dynamic QR order. The idempotency key defaults to the
// external reference.
func (c *Core) CreateOrder(ctx context.Context, in OrderIn) (out Result) {
	defer recoverResult(opCreateOrder, &out)

	switch {
	case isBlank(in.ExternalReference):
		return invalid("missing external_reference")
	case isBlank(in.ExternalPosID):
		return invalid("missing external_pos_id")
	case isBlank(in.TotalAmount):
		return invalid("missing total_amount")
	}

	body, err := c.encode(monitor.KindOrder, newOrderBody(in))
	if err != nil {
		return invalid("%s: %v", opCreateOrder, err)
	}

	key := firstNonBlank(in.IdempotencyKey, in.ExternalReference)
	resp, err := c.transport.PostJSON(ctx, c.endpoint(config.EndpointCreateOrder, ""), body, key)
	if err != nil {
		return c.logTechnical(opCreateOrder, err)
	}
	if !resp.IsSuccess() {
		return httpFailure(opCreateOrder, resp)
	}

	tree := parseTree(resp.Body)
	paymentID, _ := paymentInfo(tree)
	return Result{
		Res:       ResOK,
		Msg:       "OK",
		ID:        str(tree, "id"),
		Status:    str(tree, "status"),
		PaymentID: paymentID,
		QRData:    qrData(tree),
		RawJSON:   string(resp.Body),
	}
}

// GetOrder fetches an order. Result.ID is always the requested id.
func (c *Core) GetOrder(ctx context.Context, orderID string) (out Result) {
	defer recoverResult(opGetOrder, &out)

	id := strings.TrimSpace(orderID)
	if id == "" {
		return invalid("missing order_id")
	}

	resp, err := c.transport.Get(ctx, c.endpoint(config.EndpointGetOrder, id))
	if err != nil {
		return c.logTechnical(opGetOrder, err)
	}
	if !resp.IsSuccess() {
		out = httpFailure(opGetOrder, resp)
		out.ID = id
		return out
	}

	tree := parseTree(resp.Body)
	paymentID, _ := paymentInfo(tree)
	return Result{
		Res:       ResOK,
		Msg:       "OK",
		ID:        id,
		Status:    str(tree, "status"),
		PaymentID: paymentID,
		QRData:    qrData(tree),
		RawJSON:   string(resp.Body),
	}
}

// CancelOrder cancels an order that is still in the created state. The order
// is read first; a failed read is returned unchanged.
func (c *Core) CancelOrder(ctx context.Context, orderID, idempotencyKey string) (out Result) {
	defer recoverResult(opCancelOrder, &out)

	id := strings.TrimSpace(orderID)
	if id == "" {
		return invalid("missing order_id")
	}

	current := c.GetOrder(ctx, id)
	if current.Res != ResOK {
		return current
	}

	allowed, err := c.allows(policy.RuleCancel, map[string]string{"orderStatus": current.Status})
	if err != nil {
		return c.logTechnical(opCancelOrder, err)
	}
	if !allowed {
		c.logger.Info("cancel rejected by precondition", zap.String("order_id", id), zap.String("status", current.Status))
		return Result{
			Res:       ResBusiness,
			Msg:       "cannot cancel: status=" + current.Status,
			ID:        id,
			Status:    current.Status,
			PaymentID: current.PaymentID,
			QRData:    current.QRData,
			RawJSON:   current.RawJSON,
		}
	}

	key := firstNonBlank(idempotencyKey, id)
	resp, err := c.transport.PostJSON(ctx, c.endpoint(config.EndpointCancelOrder, id), []byte("{}"), key)
	if err != nil {
		return c.logTechnical(opCancelOrder, err)
	}

	switch {
	case resp.StatusCode == http.StatusConflict:
		return cancelConflict(id, string(resp.Body))
	case !resp.IsSuccess():
		out = httpFailure(opCancelOrder, resp)
		out.ID = id
		return out
	}

	return Result{
		Res:       ResOK,
		Msg:       "Order cancelled",
		ID:        id,
		Status:    "cancelled",
		PaymentID: current.PaymentID,
		RawJSON:   string(resp.Body),
	}
}

// cancelConflict maps a 409 from the cancel endpoint. The provider reports the
// blocking status inside the error message, e.g. "... status 'expired'".
func cancelConflict(id, raw string) Result {
	code, message := providerError(parseTree([]byte(raw)))
	status := quotedStatus(message)

	msg := "cannot_cancel_order/expired"
	if code != "" {
		msg += ": " + code
	}
	if status != "" {
		msg += " status=" + status
	}
	return Result{
		Res:     ResBusiness,
		Msg:     msg,
		ID:      id,
		Status:  status,
		RawJSON: raw,
	}
}

// RefundOrder refunds an order whose first payment is approved or paid. The
// order is read first; a failed read is returned unchanged.
func (c *Core) RefundOrder(ctx context.Context, orderID, idempotencyKey string) (out Result) {
	defer recoverResult(opRefundOrder, &out)

	id := strings.TrimSpace(orderID)
	if id == "" {
		return invalid("missing order_id")
	}

	current := c.GetOrder(ctx, id)
	if current.Res != ResOK {
		return current
	}

	paymentID, paymentStatus := paymentInfo(parseTree([]byte(current.RawJSON)))
	allowed, err := c.allows(policy.RuleRefund, map[string]string{
		"paymentStatus": paymentStatus,
		"orderStatus":   current.Status,
	})
	if err != nil {
		return c.logTechnical(opRefundOrder, err)
	}
	if !allowed {
		c.logger.Info("refund rejected by precondition",
			zap.String("order_id", id),
			zap.String("payment_status", paymentStatus),
			zap.String("status", current.Status),
		)
		return Result{
			Res:       ResBusiness,
			Msg:       "not refundable: payment.status=" + paymentStatus + " order.status=" + current.Status,
			ID:        id,
			Status:    current.Status,
			PaymentID: paymentID,
			RawJSON:   current.RawJSON,
		}
	}

	key := firstNonBlank(idempotencyKey, id)
	resp, err := c.transport.PostJSON(ctx, c.endpoint(config.EndpointRefundOrder, id), []byte("{}"), key)
	if err != nil {
		return c.logTechnical(opRefundOrder, err)
	}

	out = Result{ID: id, PaymentID: paymentID, RawJSON: string(resp.Body)}
	switch {
	case resp.StatusCode == http.StatusConflict:
		out.Res = ResBusiness
		out.Msg = "cannot_refund_order"
		if code, _ := providerError(parseTree(resp.Body)); code != "" && code != "cannot_refund_order" {
			out.Msg += ": " + code
		}
	case !resp.IsSuccess():
		failure := httpFailure(opRefundOrder, resp)
		out.Res, out.Msg = failure.Res, failure.Msg
	default:
		out.Res = ResOK
		out.Msg = "Refund OK"
		out.Status = str(parseTree(resp.Body), "status")
	}
	return out
}
