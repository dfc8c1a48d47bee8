package partner

import (
	"errors"
	"fmt"
	"strings"

	"github.com/artpar/rewardctl/core/wire"
)

// Swap routes accepted by the chain.
const (
	RoutePointsToToken = "points_to_token"
	RouteTokenToPoints = "token_to_points"
)

// ErrInvalidMessage is wrapped by every ValidationError.
var ErrInvalidMessage = errors.New("invalid message")

// ValidationError reports the first field that failed validation.
type ValidationError struct {
	Type   string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Type, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidMessage }

// ValidRoute reports whether route is a known swap route.
func ValidRoute(route string) bool {
	return route == RoutePointsToToken || route == RouteTokenToPoints
}

// CreatePartner registers a new partner.
type CreatePartner struct {
	Creator          string
	Name             string
	Category         string
	Country          string
	Currency         string
	EarnCostPerPoint string
	BurnCostPerPoint string
	TotalLiquidity   string
}

func (m CreatePartner) TypeName() string { return TypeCreatePartner }

// Value returns the message in codec form.
func (m CreatePartner) Value() wire.Value {
	return wire.Value{
		"creator":          m.Creator,
		"name":             m.Name,
		"category":         m.Category,
		"country":          m.Country,
		"currency":         m.Currency,
		"earnCostPerPoint": m.EarnCostPerPoint,
		"burnCostPerPoint": m.BurnCostPerPoint,
		"totalLiquidity":   m.TotalLiquidity,
	}
}

// CreatePartnerFromValue converts a decoded value. Missing fields are zero.
func CreatePartnerFromValue(v wire.Value) CreatePartner {
	return CreatePartner{
		Creator:          v.String("creator"),
		Name:             v.String("name"),
		Category:         v.String("category"),
		Country:          v.String("country"),
		Currency:         v.String("currency"),
		EarnCostPerPoint: v.String("earnCostPerPoint"),
		BurnCostPerPoint: v.String("burnCostPerPoint"),
		TotalLiquidity:   v.String("totalLiquidity"),
	}
}

// Validate applies the checks the chain runs before accepting the message.
func (m CreatePartner) Validate() error {
	switch {
	case strings.TrimSpace(m.Creator) == "":
		return invalid(TypeCreatePartner, "creator", "is required")
	case strings.TrimSpace(m.Name) == "":
		return invalid(TypeCreatePartner, "name", "is required")
	case strings.TrimSpace(m.Country) == "":
		return invalid(TypeCreatePartner, "country", "is required")
	}
	return nil
}

// AddPartnerLiquidity adds liquidity to an existing partner.
type AddPartnerLiquidity struct {
	Creator   string
	PartnerID uint64
	Amount    string
	Currency  string
	ExtWallet string
}

func (m AddPartnerLiquidity) TypeName() string { return TypeAddPartnerLiquidity }

// Value returns the message in codec form.
func (m AddPartnerLiquidity) Value() wire.Value {
	return wire.Value{
		"creator":   m.Creator,
		"partnerId": m.PartnerID,
		"amount":    m.Amount,
		"currency":  m.Currency,
		"extWallet": m.ExtWallet,
	}
}

// AddPartnerLiquidityFromValue converts a decoded value.
func AddPartnerLiquidityFromValue(v wire.Value) AddPartnerLiquidity {
	return AddPartnerLiquidity{
		Creator:   v.String("creator"),
		PartnerID: v.Uint64("partnerId"),
		Amount:    v.String("amount"),
		Currency:  v.String("currency"),
		ExtWallet: v.String("extWallet"),
	}
}

func (m AddPartnerLiquidity) Validate() error {
	switch {
	case strings.TrimSpace(m.Creator) == "":
		return invalid(TypeAddPartnerLiquidity, "creator", "is required")
	case m.PartnerID == 0:
		return invalid(TypeAddPartnerLiquidity, "partnerId", "must be > 0")
	case strings.TrimSpace(m.Amount) == "":
		return invalid(TypeAddPartnerLiquidity, "amount", "is required")
	}
	return nil
}

// Swap converts between partner points and chain tokens.
type Swap struct {
	Creator   string
	PartnerID uint64
	Route     string
	Points    string
}

func (m Swap) TypeName() string { return TypeSwap }

// Value returns the message in codec form.
func (m Swap) Value() wire.Value {
	return wire.Value{
		"creator":   m.Creator,
		"partnerId": m.PartnerID,
		"route":     m.Route,
		"points":    m.Points,
	}
}

// SwapFromValue converts a decoded value.
func SwapFromValue(v wire.Value) Swap {
	return Swap{
		Creator:   v.String("creator"),
		PartnerID: v.Uint64("partnerId"),
		Route:     v.String("route"),
		Points:    v.String("points"),
	}
}

// Validate checks the route too; the codec itself accepts any string.
func (m Swap) Validate() error {
	switch {
	case strings.TrimSpace(m.Creator) == "":
		return invalid(TypeSwap, "creator", "is required")
	case m.PartnerID == 0:
		return invalid(TypeSwap, "partnerId", "must be > 0")
	case !ValidRoute(m.Route):
		return invalid(TypeSwap, "route", fmt.Sprintf("must be %q or %q", RoutePointsToToken, RouteTokenToPoints))
	case strings.TrimSpace(m.Points) == "":
		return invalid(TypeSwap, "points", "is required")
	}
	return nil
}

// Msg is implemented by every typed Reward Chain message.
type Msg interface {
	TypeName() string
	Value() wire.Value
	Validate() error
}

var (
	_ Msg = CreatePartner{}
	_ Msg = AddPartnerLiquidity{}
	_ Msg = Swap{}
)

func invalid(typ, field, reason string) error {
	return &ValidationError{Type: typ, Field: field, Reason: reason}
}
