package chain

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

// Coin is an amount of one denomination. Amount is a decimal integer.
type Coin struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

func (c Coin) String() string { return c.Amount + c.Denom }

// GasPrice is the price of one unit of gas, such as "0.0001stake".
type GasPrice struct {
	Amount *big.Rat
	Denom  string
}

var gasPriceRe = regexp.MustCompile(`^([0-9]+(?:\.[0-9]+)?)([a-zA-Z][a-zA-Z0-9/:._-]{1,127})$`)

// ParseGasPrice parses "<decimal><denom>".
func ParseGasPrice(s string) (GasPrice, error) {
	m := gasPriceRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return GasPrice{}, fmt.Errorf("invalid gas price %q", s)
	}
	amount, ok := new(big.Rat).SetString(m[1])
	if !ok {
		return GasPrice{}, fmt.Errorf("invalid gas price amount %q", m[1])
	}
	return GasPrice{Amount: amount, Denom: m[2]}, nil
}

func (p GasPrice) String() string {
	if p.Amount == nil {
		return "0" + p.Denom
	}
	return strings.TrimRight(strings.TrimRight(p.Amount.FloatString(18), "0"), ".") + p.Denom
}

// Fee returns price × gasLimit, rounded up to a whole unit.
func (p GasPrice) Fee(gasLimit uint64) Coin {
	if p.Amount == nil {
		return Coin{Denom: p.Denom, Amount: "0"}
	}
	total := new(big.Rat).Mul(p.Amount, new(big.Rat).SetUint64(gasLimit))

	q, r := new(big.Int).QuoRem(total.Num(), total.Denom(), new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return Coin{Denom: p.Denom, Amount: q.String()}
}
