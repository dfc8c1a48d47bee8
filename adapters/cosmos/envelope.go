package cosmos

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/artpar/rewardctl/domain/chain"
)

// Type URLs of the envelope messages.
const (
	PubKeyTypeURL = "/cosmos.crypto.secp256k1.PubKey"

	// signModeDirect is cosmos.tx.signing.v1beta1.SignMode_SIGN_MODE_DIRECT.
	signModeDirect = 1
)

// TxBody is cosmos.tx.v1beta1.TxBody.
type TxBody struct {
	Messages      []chain.EncodedMsg
	Memo          string
	TimeoutHeight uint64
}

// Marshal encodes the body. Messages keep their order.
func (b TxBody) Marshal() []byte {
	var out []byte
	for _, m := range b.Messages {
		out = appendMessage(out, 1, marshalAny(m))
	}
	out = appendString(out, 2, b.Memo)
	out = appendUint64(out, 3, b.TimeoutHeight)
	return out
}

// SignerInfo is cosmos.tx.v1beta1.SignerInfo with a single DIRECT signer.
type SignerInfo struct {
	PubKey   []byte // compressed secp256k1 key
	Sequence uint64
}

func (s SignerInfo) marshal() []byte {
	pub := protowire.AppendTag(nil, 1, protowire.BytesType)
	pub = protowire.AppendBytes(pub, s.PubKey)

	single := appendUint64(nil, 1, signModeDirect)
	modeInfo := appendMessage(nil, 1, single)

	var out []byte
	out = appendMessage(out, 1, marshalAny(chain.EncodedMsg{TypeURL: PubKeyTypeURL, Value: pub}))
	out = appendMessage(out, 2, modeInfo)
	out = appendUint64(out, 3, s.Sequence)
	return out
}

// Fee is cosmos.tx.v1beta1.Fee.
type Fee struct {
	Amount   []chain.Coin
	GasLimit uint64
}

func (f Fee) marshal() []byte {
	var out []byte
	for _, c := range f.Amount {
		coin := appendString(nil, 1, c.Denom)
		coin = appendString(coin, 2, c.Amount)
		out = appendMessage(out, 1, coin)
	}
	out = appendUint64(out, 2, f.GasLimit)
	return out
}

// AuthInfo is cosmos.tx.v1beta1.AuthInfo.
type AuthInfo struct {
	Signers []SignerInfo
	Fee     Fee
}

func (a AuthInfo) Marshal() []byte {
	var out []byte
	for _, s := range a.Signers {
		out = appendMessage(out, 1, s.marshal())
	}
	out = appendMessage(out, 2, a.Fee.marshal())
	return out
}

// SignDoc is the document signed in SIGN_MODE_DIRECT.
type SignDoc struct {
	BodyBytes     []byte
	AuthInfoBytes []byte
	ChainID       string
	AccountNumber uint64
}

func (d SignDoc) Marshal() []byte {
	var out []byte
	out = appendBytes(out, 1, d.BodyBytes)
	out = appendBytes(out, 2, d.AuthInfoBytes)
	out = appendString(out, 3, d.ChainID)
	out = appendUint64(out, 4, d.AccountNumber)
	return out
}

// TxRaw is the broadcast form of a signed transaction.
type TxRaw struct {
	BodyBytes     []byte
	AuthInfoBytes []byte
	Signatures    [][]byte
}

func (t TxRaw) Marshal() []byte {
	var out []byte
	out = appendBytes(out, 1, t.BodyBytes)
	out = appendBytes(out, 2, t.AuthInfoBytes)
	for _, sig := range t.Signatures {
		out = protowire.AppendTag(out, 3, protowire.BytesType)
		out = protowire.AppendBytes(out, sig)
	}
	return out
}

// ParseTxMsgData decodes cosmos.base.abci.v1beta1.TxMsgData. Both the
// msg_responses field and the deprecated data field are read.
func ParseTxMsgData(b []byte) ([]chain.EncodedMsg, error) {
	var out []chain.EncodedMsg
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte) error {
		if typ != protowire.BytesType || (num != 1 && num != 2) {
			return nil
		}
		// MsgData{msg_type=1, data=2} and Any{type_url=1, value=2} share a layout.
		m, err := parseAny(v)
		if err != nil {
			return err
		}
		out = append(out, m)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse tx msg data: %w", err)
	}
	return out, nil
}

func parseAny(b []byte) (chain.EncodedMsg, error) {
	var m chain.EncodedMsg
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte) error {
		if typ != protowire.BytesType {
			return nil
		}
		switch num {
		case 1:
			m.TypeURL = string(v)
		case 2:
			m.Value = append([]byte(nil), v...)
		}
		return nil
	})
	return m, err
}

// walk calls fn for every field of a message. v holds the payload of
// length-delimited fields and is nil for other wire types.
func walk(b []byte, fn func(protowire.Number, protowire.Type, []byte) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		var v []byte
		if typ == protowire.BytesType {
			v, n = protowire.ConsumeBytes(b)
		} else {
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		if err := fn(num, typ, v); err != nil {
			return err
		}
	}
	return nil
}

func marshalAny(m chain.EncodedMsg) []byte {
	out := appendString(nil, 1, m.TypeURL)
	return appendBytes(out, 2, m.Value)
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

// appendMessage always writes the field, even when the nested message is
// empty, so that presence is preserved.
func appendMessage(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendUint64(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}
