package partner

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/artpar/rewardctl/core/registry"
	"github.com/artpar/rewardctl/core/wire"
)

func frozenRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New()
	if err := Register(r); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	r.Freeze()
	return r
}

func TestRegister(t *testing.T) {
	r := frozenRegistry(t)

	want := []string{TypeAddPartnerLiquidity, TypeCreatePartner, TypeCreatePartnerResponse, TypeSwap}
	if got := r.Types(); !reflect.DeepEqual(got, want) {
		t.Errorf("Types() = %v, want %v", got, want)
	}

	s, err := r.Resolve("/" + TypeCreatePartner)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	fields := s.Fields()
	if len(fields) != 8 {
		t.Fatalf("MsgCreatePartner has %d fields, want 8", len(fields))
	}
	for i, name := range []string{"creator", "name", "category", "country", "currency", "earnCostPerPoint", "burnCostPerPoint", "totalLiquidity"} {
		if fields[i].Name != name || fields[i].Number != int32(i+1) || fields[i].Kind != wire.KindString {
			t.Errorf("field %d = %+v, want %s #%d string", i, fields[i], name, i+1)
		}
	}
}

func TestRegister_Twice(t *testing.T) {
	r := registry.New()
	if err := Register(r); err != nil {
		t.Fatal(err)
	}
	if err := Register(r); !errors.Is(err, registry.ErrDuplicateType) {
		t.Errorf("second Register() error = %v, want ErrDuplicateType", err)
	}
}

func TestSwap_Bytes(t *testing.T) {
	r := frozenRegistry(t)
	msg := Swap{Creator: "a1", PartnerID: 5, Route: RoutePointsToToken, Points: "100"}

	got, err := r.Encode(msg.TypeName(), msg.Value())
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	want := append([]byte{0x0A, 0x02, 'a', '1', 0x10, 0x05, 0x1A, 0x0F}, "points_to_token"...)
	want = append(want, 0x22, 0x03, '1', '0', '0')
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Encode() = % x\nwant       % x", got, want)
	}

	v, err := r.Decode(TypeSwap, got)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if back := SwapFromValue(v); back != msg {
		t.Errorf("SwapFromValue() = %+v, want %+v", back, msg)
	}
}

func TestMessages_RoundTrip(t *testing.T) {
	r := frozenRegistry(t)

	create := CreatePartner{
		Creator: "reward1xyz", Name: "Example Partner", Category: "Retail", Country: "US",
		Currency: "USD", EarnCostPerPoint: "1.0", BurnCostPerPoint: "0.9", TotalLiquidity: "10000",
	}
	b, err := r.Encode(create.TypeName(), create.Value())
	if err != nil {
		t.Fatal(err)
	}
	v, err := r.Decode(TypeCreatePartner, b)
	if err != nil {
		t.Fatal(err)
	}
	if got := CreatePartnerFromValue(v); got != create {
		t.Errorf("CreatePartner round trip = %+v", got)
	}

	liq := AddPartnerLiquidity{Creator: "reward1xyz", PartnerID: 1 << 40, Amount: "1000", ExtWallet: "0x1234"}
	b, err = r.Encode(liq.TypeName(), liq.Value())
	if err != nil {
		t.Fatal(err)
	}
	v, err = r.Decode(TypeAddPartnerLiquidity, b)
	if err != nil {
		t.Fatal(err)
	}
	if got := AddPartnerLiquidityFromValue(v); got != liq {
		t.Errorf("AddPartnerLiquidity round trip = %+v", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		msg       Msg
		wantField string
	}{
		{"create ok", CreatePartner{Creator: "c", Name: "n", Country: "US"}, ""},
		{"create no creator", CreatePartner{Name: "n", Country: "US"}, "creator"},
		{"create blank name", CreatePartner{Creator: "c", Name: "  ", Country: "US"}, "name"},
		{"create no country", CreatePartner{Creator: "c", Name: "n"}, "country"},
		{"liquidity ok", AddPartnerLiquidity{Creator: "c", PartnerID: 1, Amount: "5"}, ""},
		{"liquidity zero partner", AddPartnerLiquidity{Creator: "c", Amount: "5"}, "partnerId"},
		{"liquidity no amount", AddPartnerLiquidity{Creator: "c", PartnerID: 1}, "amount"},
		{"swap ok", Swap{Creator: "c", PartnerID: 1, Route: RouteTokenToPoints, Points: "1"}, ""},
		{"swap bad route", Swap{Creator: "c", PartnerID: 1, Route: "sideways", Points: "1"}, "route"},
		{"swap no points", Swap{Creator: "c", PartnerID: 1, Route: RoutePointsToToken}, "points"},
		{"swap zero partner", Swap{Creator: "c", Route: RoutePointsToToken, Points: "1"}, "partnerId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Validate() error = %v, want *ValidationError", err)
			}
			if ve.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", ve.Field, tt.wantField)
			}
			if !errors.Is(err, ErrInvalidMessage) {
				t.Error("ValidationError should match ErrInvalidMessage")
			}
		})
	}
}

func TestPartner_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name   string
		json   string
		wantID uint64
	}{
		{"string id", `{"id":"42","name":"Acme","disabled":true,"total_liquidity":"10"}`, 42},
		{"number id", `{"id":7,"name":"Acme"}`, 7},
		{"no id", `{"name":"Acme"}`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Partner
			if err := json.Unmarshal([]byte(tt.json), &p); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if p.ID != tt.wantID || p.Name != "Acme" {
				t.Errorf("Partner = %+v", p)
			}
		})
	}

	var p Partner
	if err := json.Unmarshal([]byte(`{"id":"x"}`), &p); err == nil {
		t.Error("Unmarshal() should reject a non-numeric id")
	}
}

func TestPartner_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(Partner{ID: 9, Name: "Acme", AvailableLiquidity: "3"})
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if raw["id"] != "9" || raw["available_liquidity"] != "3" {
		t.Errorf("Marshal() = %s", data)
	}

	var back Partner
	if err := json.Unmarshal(data, &back); err != nil || back.ID != 9 {
		t.Errorf("round trip = %+v, %v", back, err)
	}
}

func TestSchemaDocument_IsCopy(t *testing.T) {
	doc := SchemaDocument()
	doc[0] = 'X'
	if SchemaDocument()[0] == 'X' {
		t.Error("SchemaDocument() exposes the embedded bytes")
	}
}
