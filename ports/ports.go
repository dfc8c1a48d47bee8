// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"time"

	"github.com/artpar/rewardctl/domain/chain"
	"github.com/artpar/rewardctl/domain/partner"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
	// After waits for the duration to elapse, like time.After.
	After(d time.Duration) <-chan time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// Outcome labels reported to Metrics.
const (
	OutcomeOK     = "ok"
	OutcomeError  = "error"
	OutcomeFailed = "failed" // committed with a non-zero code
)

// Metrics records client measurements. Implementations must be safe for
// concurrent use.
type Metrics interface {
	CodecOp(op, typeName string, err error)
	Tx(typeName, outcome string, d time.Duration, gasUsed int64)
	Query(name string, d time.Duration, err error)
}

// -----------------------------------------------------------------------------
// Chain Ports
// -----------------------------------------------------------------------------

// TxOptions are per-transaction overrides.
type TxOptions struct {
	Memo     string
	GasLimit uint64 // 0 uses the configured default
}

// TxSigner signs messages with the client's key and submits them.
type TxSigner interface {
	// Address returns the bech32 account address used as creator.
	Address() string

	// SignAndBroadcast wraps msgs in one transaction, signs it and waits
	// for it to be committed. A transaction the chain rejects is reported
	// as *chain.TxError.
	SignAndBroadcast(ctx context.Context, msgs []chain.EncodedMsg, opts TxOptions) (chain.TxResult, error)
}

// PartnerQuerier reads partners from the chain's query service.
type PartnerQuerier interface {
	ListPartners(ctx context.Context, opts partner.ListOptions) (partner.ListPage, error)

	// GetPartner returns the partner, or an error matching IsNotFound of
	// the adapter when it does not exist.
	GetPartner(ctx context.Context, id uint64) (partner.Partner, error)
}

// -----------------------------------------------------------------------------
// Data Store Ports
// -----------------------------------------------------------------------------

// Journal entry statuses.
const (
	TxStatusCommitted = "committed"
	TxStatusFailed    = "failed"
)

// JournalEntry records one transaction submitted by this client.
type JournalEntry struct {
	ID        string
	TypeURL   string
	TxHash    string
	Height    int64
	Code      uint32
	GasUsed   int64
	CreatedID string // id of the entity the tx created, if any
	Memo      string
	Payload   string // message in JSON text form
	Status    string
	Error     string
	CreatedAt time.Time
}

// JournalFilter narrows a journal listing.
type JournalFilter struct {
	TypeURL string
	Status  string
	Limit   int
	Offset  int
}

// TxJournal persists the local history of submitted transactions.
type TxJournal interface {
	Record(ctx context.Context, e JournalEntry) error
	Get(ctx context.Context, id string) (JournalEntry, error)
	List(ctx context.Context, f JournalFilter) ([]JournalEntry, error)
	Count(ctx context.Context, f JournalFilter) (int, error)
}
