package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/artpar/rewardctl/domain/partner"
	"github.com/artpar/rewardctl/ports"
)

const partnersPath = "/rewardchain/rewardchain/partners"

// PartnerQuerier reads partners from the rewardchain query service.
//
// API Contract:
//
//	GET /rewardchain/rewardchain/partners?include_disabled=false
//	Response: {"partners": [...], "pagination": {"next_key": "", "total": "2"}}
//
//	GET /rewardchain/rewardchain/partners/{id}
//	Response: {"partner": {...}}
type PartnerQuerier struct {
	client *Client
}

// NewPartnerQuerier creates a partner querier.
func NewPartnerQuerier(client *Client) *PartnerQuerier {
	return &PartnerQuerier{client: client}
}

type pagination struct {
	NextKey string          `json:"next_key"`
	Total   json.RawMessage `json:"total"`
}

// ListPartners returns one page of partners.
func (q *PartnerQuerier) ListPartners(ctx context.Context, opts partner.ListOptions) (partner.ListPage, error) {
	params := url.Values{}
	params.Set("include_disabled", strconv.FormatBool(opts.IncludeDisabled))
	if opts.Limit > 0 {
		params.Set("pagination.limit", strconv.FormatUint(opts.Limit, 10))
	}
	if opts.Key != "" {
		params.Set("pagination.key", opts.Key)
	}

	var resp struct {
		Partners   []partner.Partner `json:"partners"`
		Pagination *pagination       `json:"pagination"`
	}
	if err := q.client.Request(ctx, http.MethodGet, partnersPath+"?"+params.Encode(), nil, &resp); err != nil {
		return partner.ListPage{}, fmt.Errorf("list partners: %w", err)
	}

	page := partner.ListPage{Partners: resp.Partners}
	if page.Partners == nil {
		page.Partners = []partner.Partner{}
	}
	if resp.Pagination != nil {
		page.NextKey = resp.Pagination.NextKey
		page.Total = parseUint(resp.Pagination.Total)
	}
	return page, nil
}

// GetPartner returns a single partner. A response without a partner is
// reported as a 404 RemoteError.
func (q *PartnerQuerier) GetPartner(ctx context.Context, id uint64) (partner.Partner, error) {
	var resp struct {
		Partner *partner.Partner `json:"partner"`
	}
	path := partnersPath + "/" + strconv.FormatUint(id, 10)
	if err := q.client.Request(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return partner.Partner{}, fmt.Errorf("get partner %d: %w", id, err)
	}
	if resp.Partner == nil {
		return partner.Partner{}, &RemoteError{
			StatusCode: http.StatusNotFound,
			Code:       grpcNotFound,
			Message:    fmt.Sprintf("partner %d not found", id),
		}
	}
	return *resp.Partner, nil
}

func parseUint(raw json.RawMessage) uint64 {
	n, _ := strconv.ParseUint(strings.Trim(string(raw), `"`), 10, 64)
	return n
}

var _ ports.PartnerQuerier = (*PartnerQuerier)(nil)
