// Package partner provides the Reward Chain message types and the partner
// query entity. This package has NO dependencies on I/O.
package partner

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/artpar/rewardctl/core/registry"
)

// Package is the protobuf package of every Reward Chain message.
const Package = "rewardchain.rewardchain"

// Fully qualified message type names.
const (
	TypeCreatePartner         = Package + ".MsgCreatePartner"
	TypeAddPartnerLiquidity   = Package + ".MsgAddPartnerLiquidity"
	TypeSwap                  = Package + ".MsgSwap"
	TypeCreatePartnerResponse = Package + ".MsgCreatePartnerResponse"
)

//go:embed schemas.yaml
var schemaYAML []byte

// SchemaDocument returns the embedded YAML schema document.
func SchemaDocument() []byte {
	out := make([]byte, len(schemaYAML))
	copy(out, schemaYAML)
	return out
}

// Register adds every Reward Chain schema to r. It must run before r is frozen.
func Register(r *registry.Registry) error {
	if err := r.LoadSchemas(schemaYAML); err != nil {
		return fmt.Errorf("register reward chain schemas: %w", err)
	}
	return nil
}

// Partner is a partner as reported by the chain's REST query service.
type Partner struct {
	ID                 uint64 `json:"id,string"`
	Name               string `json:"name"`
	Category           string `json:"category"`
	Location           string `json:"location"`
	Country            string `json:"country"`
	Disabled           bool   `json:"disabled"`
	TotalLiquidity     string `json:"total_liquidity"`
	AvailableLiquidity string `json:"available_liquidity"`
	OnHoldLiquidity    string `json:"on_hold_liquidity"`
	EarnCostPerPoint   string `json:"earn_cost_per_point"`
	RedeemCostPerPoint string `json:"redeem_cost_per_point"`
	StartsFrom         string `json:"starts_from"`
	EndsBefore         string `json:"ends_before"`
}

// UnmarshalJSON accepts the id either as a JSON number or as the decimal
// string the REST gateway emits for 64-bit integers.
func (p *Partner) UnmarshalJSON(data []byte) error {
	type alias Partner
	aux := struct {
		ID json.RawMessage `json:"id"`
		*alias
	}{alias: (*alias)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	id, err := parseID(aux.ID)
	if err != nil {
		return fmt.Errorf("partner id: %w", err)
	}
	p.ID = id
	return nil
}

func parseID(raw json.RawMessage) (uint64, error) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return 0, nil
	}
	return strconv.ParseUint(s, 10, 64)
}

// ListPage is one page of a partner listing.
type ListPage struct {
	Partners []Partner
	NextKey  string // opaque pagination key, empty on the last page
	Total    uint64
}

// ListOptions controls a partner listing.
type ListOptions struct {
	IncludeDisabled bool
	Limit           uint64 // 0 lets the server choose
	Key             string // pagination key from a previous ListPage
}
