// Package chain provides value types for transactions and their results.
// This package has NO dependencies on I/O.
package chain

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// EncodedMsg is a message packed as a protobuf Any.
type EncodedMsg struct {
	TypeURL string
	Value   []byte
}

// Attribute is one key/value pair of an event.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Event is an ABCI event emitted while executing a transaction.
type Event struct {
	Type       string      `json:"type"`
	Attributes []Attribute `json:"attributes"`
}

// Attr returns the value of the first attribute named key.
func (e Event) Attr(key string) (string, bool) {
	for _, a := range e.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// TxResult is the outcome of a committed transaction.
type TxResult struct {
	Hash      string
	Height    int64
	Code      uint32
	Codespace string
	RawLog    string
	GasWanted int64
	GasUsed   int64
	Events    []Event

	// MsgResponses holds one response per message, in message order.
	MsgResponses []EncodedMsg
}

// OK reports whether the transaction executed successfully.
func (r TxResult) OK() bool { return r.Code == 0 }

// ErrTxFailed is wrapped by every TxError.
var ErrTxFailed = errors.New("transaction failed")

// TxError reports a transaction the chain rejected, at CheckTx or DeliverTx.
type TxError struct {
	Hash      string
	Code      uint32
	Codespace string
	Log       string
}

func (e *TxError) Error() string {
	if e.Codespace != "" {
		return fmt.Sprintf("tx %s failed with code %d (%s): %s", e.Hash, e.Code, e.Codespace, e.Log)
	}
	return fmt.Sprintf("tx %s failed with code %d: %s", e.Hash, e.Code, e.Log)
}

func (e *TxError) Unwrap() error { return ErrTxFailed }

// EventMatcher finds the id of an entity created by a transaction.
// An event is considered when its type equals one of EventTypes, or matches
// it as a glob when the pattern contains '*'; its first attribute named in
// AttributeKeys supplies the id.
type EventMatcher struct {
	EventTypes    []string `yaml:"event_types" json:"event_types"`
	AttributeKeys []string `yaml:"attribute_keys" json:"attribute_keys"`
}

// DefaultCreatedIDMatcher matches "message" events and any event whose type
// mentions CreatePartner, reading "id" or "partner_id".
func DefaultCreatedIDMatcher() EventMatcher {
	return EventMatcher{
		EventTypes:    []string{"message", "*CreatePartner*"},
		AttributeKeys: []string{"id", "partner_id"},
	}
}

// Find returns the id from the first matching event.
func (m EventMatcher) Find(events []Event) (string, bool) {
	for _, e := range events {
		if !m.matchesType(e.Type) {
			continue
		}
		for _, a := range e.Attributes {
			if m.matchesKey(a.Key) && a.Value != "" {
				return a.Value, true
			}
		}
	}
	return "", false
}

func (m EventMatcher) matchesType(t string) bool {
	for _, want := range m.EventTypes {
		if !strings.Contains(want, "*") {
			if want != "" && t == want {
				return true
			}
			continue
		}
		if ok, _ := path.Match(want, t); ok {
			return true
		}
	}
	return false
}

// Validate reports a malformed event type pattern.
func (m EventMatcher) Validate() error {
	for _, want := range m.EventTypes {
		if _, err := path.Match(want, ""); err != nil {
			return fmt.Errorf("event type pattern %q: %w", want, err)
		}
	}
	return nil
}

func (m EventMatcher) matchesKey(k string) bool {
	for _, want := range m.AttributeKeys {
		if k == want {
			return true
		}
	}
	return false
}

// IsZero reports whether the matcher has no patterns.
func (m EventMatcher) IsZero() bool {
	return len(m.EventTypes) == 0 && len(m.AttributeKeys) == 0
}
