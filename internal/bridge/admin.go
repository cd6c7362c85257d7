package bridge

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/yourorg/mpqr-bridge/internal/adapter"
	"github.com/yourorg/mpqr-bridge/internal/config"
	"github.com/yourorg/mpqr-bridge/internal/monitor"
)

const (
	opCreateStore  = "createStore"
	opCreatePos    = "createPos"
	opSearchStores = "searchStores"
	opSearchPos    = "searchPos"
)

// CreateStore registers a store under the configured merchant user.
func (c *Core) CreateStore(ctx context.Context, in StoreIn) (out Result) {
	defer recoverResult(opCreateStore, &out)

	switch {
	case isBlank(in.Name):
		return invalid("missing store_name")
	case isBlank(in.ExternalID):
		return invalid("missing store_external_id")
	}
	userID := strings.TrimSpace(c.settings.UserID())
	if userID == "" {
		return invalid("missing user_id in configuration")
	}

	payload, err := newStoreBody(in)
	if err != nil {
		return invalid("%v", err)
	}
	body, err := c.encode(monitor.KindStore, payload)
	if err != nil {
		return invalid("%s: %v", opCreateStore, err)
	}

	key := firstNonBlank(in.IdempotencyKey, in.ExternalID)
	resp, err := c.transport.PostJSON(ctx, c.endpoint(config.EndpointCreateStore, userID), body, key)
	if err != nil {
		return c.logTechnical(opCreateStore, err)
	}
	return created(opCreateStore, "store already exists (409)", "store_id", resp)
}

// CreatePos registers a point of sale in an existing store.
func (c *Core) CreatePos(ctx context.Context, in PosIn) (out Result) {
	defer recoverResult(opCreatePos, &out)

	switch {
	case isBlank(in.Name):
		return invalid("missing pos_name")
	case isBlank(in.ExternalID):
		return invalid("missing pos_external_id")
	}
	storeID, err := parseStoreID(in.StoreID)
	if err != nil {
		return invalid("%v", err)
	}

	body, err := c.encode(monitor.KindPos, posBody{
		Name:       strings.TrimSpace(in.Name),
		ExternalID: strings.TrimSpace(in.ExternalID),
		StoreID:    storeID,
	})
	if err != nil {
		return invalid("%s: %v", opCreatePos, err)
	}

	key := firstNonBlank(in.IdempotencyKey, in.ExternalID)
	resp, err := c.transport.PostJSON(ctx, c.endpoint(config.EndpointCreatePos, ""), body, key)
	if err != nil {
		return c.logTechnical(opCreatePos, err)
	}
	return created(opCreatePos, "pos already exists (409)", "pos_id", resp)
}

// created maps the response of a resource creation: 409 is a business
// rejection, and the id falls back to idField when "id" is absent.
func created(op, conflictMsg, idField string, resp adapter.Response) Result {
	raw := string(resp.Body)
	switch {
	case resp.StatusCode == http.StatusConflict:
		return Result{Res: ResBusiness, Msg: conflictMsg, RawJSON: raw}
	case !resp.IsSuccess():
		return httpFailure(op, resp)
	}
	tree := parseTree(resp.Body)
	return Result{
		Res:     ResOK,
		Msg:     "OK",
		ID:      firstNonBlank(str(tree, "id"), str(tree, idField)),
		RawJSON: raw,
	}
}

// SearchStores lists the stores of userID, or of the configured user when
// userID is blank. The response body is returned verbatim.
func (c *Core) SearchStores(ctx context.Context, userID string, in SearchIn) (out Result) {
	defer recoverResult(opSearchStores, &out)

	uid := firstNonBlank(userID, c.settings.UserID())
	if uid == "" {
		return invalid("missing user_id")
	}
	return c.search(ctx, opSearchStores, c.endpoint(config.EndpointSearchStores, uid)+searchQuery(in))
}

// SearchPos lists points of sale. The response body is returned verbatim.
func (c *Core) SearchPos(ctx context.Context, in SearchIn) (out Result) {
	defer recoverResult(opSearchPos, &out)

	return c.search(ctx, opSearchPos, c.endpoint(config.EndpointSearchPos, "")+searchQuery(in))
}

func (c *Core) search(ctx context.Context, op, endpoint string) Result {
	resp, err := c.transport.Get(ctx, endpoint)
	if err != nil {
		return c.logTechnical(op, err)
	}
	if !resp.IsSuccess() {
		return httpFailure(op, resp)
	}
	return Result{Res: ResOK, Msg: "OK", RawJSON: string(resp.Body)}
}

// searchQuery renders limit, offset and the optional external_id filter.
func searchQuery(in SearchIn) string {
	limit := in.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	offset := in.Offset
	if offset < 0 {
		offset = 0
	}

	var b strings.Builder
	b.WriteString("?limit=")
	b.WriteString(strconv.Itoa(limit))
	b.WriteString("&offset=")
	b.WriteString(strconv.Itoa(offset))
	if f := strings.TrimSpace(in.FilterExternalID); f != "" {
		b.WriteString("&external_id=")
		b.WriteString(url.QueryEscape(f))
	}
	return b.String()
}
