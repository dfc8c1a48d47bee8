// Package app provides application services that orchestrate domain logic.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/artpar/rewardctl/adapters/clock"
	"github.com/artpar/rewardctl/adapters/idgen"
	"github.com/artpar/rewardctl/core/registry"
	"github.com/artpar/rewardctl/core/wire"
	"github.com/artpar/rewardctl/domain/chain"
	"github.com/artpar/rewardctl/domain/partner"
	"github.com/artpar/rewardctl/ports"
	"github.com/rs/zerolog"
)

// ErrNoSigner is returned by transaction methods when the service was built
// without a signer (query-only mode).
var ErrNoSigner = errors.New("no signer configured")

// ErrNoQuerier is returned by query methods when the service was built
// without a partner querier.
var ErrNoQuerier = errors.New("no partner querier configured")

// RewardService is the Reward Chain client. It validates and encodes
// messages, hands them to the signer and reads partners back.
type RewardService struct {
	registry *registry.Registry
	signer   ports.TxSigner
	querier  ports.PartnerQuerier
	journal  ports.TxJournal
	metrics  ports.Metrics
	clock    ports.Clock
	idGen    ports.IDGenerator
	logger   zerolog.Logger

	// Hot-reloadable
	matcher atomic.Pointer[chain.EventMatcher]
}

// RewardDeps contains dependencies for RewardService. Registry is required.
// Without Signer or Querier the matching methods return ErrNoSigner or
// ErrNoQuerier. Journal and Metrics are optional. Clock and IDGen default
// to the real clock and UUIDs.
type RewardDeps struct {
	Registry *registry.Registry
	Signer   ports.TxSigner
	Querier  ports.PartnerQuerier
	Journal  ports.TxJournal
	Metrics  ports.Metrics
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Logger   zerolog.Logger
}

// NewRewardService creates the client service. The registry must already
// hold the Reward Chain schemas; it is expected to be frozen.
func NewRewardService(deps RewardDeps, matcher chain.EventMatcher) *RewardService {
	s := &RewardService{
		registry: deps.Registry,
		signer:   deps.Signer,
		querier:  deps.Querier,
		journal:  deps.Journal,
		metrics:  deps.Metrics,
		clock:    deps.Clock,
		idGen:    deps.IDGen,
		logger:   deps.Logger.With().Str("component", "reward").Logger(),
	}
	if s.metrics == nil {
		s.metrics = nopMetrics{}
	}
	if s.clock == nil {
		s.clock = clock.Real{}
	}
	if s.idGen == nil {
		s.idGen = idgen.UUID{}
	}
	s.SetEventMatcher(matcher)
	return s
}

// SetEventMatcher replaces the created-entity matcher. A zero matcher
// restores the default. Safe to call concurrently with transactions.
func (s *RewardService) SetEventMatcher(m chain.EventMatcher) {
	if m.IsZero() {
		m = chain.DefaultCreatedIDMatcher()
	}
	s.matcher.Store(&m)
}

// EventMatcher returns the matcher in effect.
func (s *RewardService) EventMatcher() chain.EventMatcher {
	return *s.matcher.Load()
}

// Address returns the signer's account address, or "" in query-only mode.
func (s *RewardService) Address() string {
	if s.signer == nil {
		return ""
	}
	return s.signer.Address()
}

// TxOutcome is the result of a submitted message.
type TxOutcome struct {
	Tx        chain.TxResult
	CreatedID string // id of the created entity, when the message creates one
	JournalID string // empty when no journal is configured
}

// -----------------------------------------------------------------------------
// Transactions
// -----------------------------------------------------------------------------

// CreatePartner registers a partner and returns its id as reported by the
// chain. An empty Creator defaults to the signer's address.
func (s *RewardService) CreatePartner(ctx context.Context, msg partner.CreatePartner, opts ports.TxOptions) (TxOutcome, error) {
	if msg.Creator == "" {
		msg.Creator = s.Address()
	}
	out, err := s.submit(ctx, msg, opts)
	if err != nil {
		return out, err
	}
	if out.CreatedID == "" {
		s.logger.Warn().Str("tx_hash", out.Tx.Hash).Msg("created partner id not found in tx result")
	}
	return out, nil
}

// AddPartnerLiquidity adds liquidity to a partner.
func (s *RewardService) AddPartnerLiquidity(ctx context.Context, msg partner.AddPartnerLiquidity, opts ports.TxOptions) (TxOutcome, error) {
	if msg.Creator == "" {
		msg.Creator = s.Address()
	}
	return s.submit(ctx, msg, opts)
}

// Swap converts points to tokens or back.
func (s *RewardService) Swap(ctx context.Context, msg partner.Swap, opts ports.TxOptions) (TxOutcome, error) {
	if msg.Creator == "" {
		msg.Creator = s.Address()
	}
	return s.submit(ctx, msg, opts)
}

func (s *RewardService) submit(ctx context.Context, msg partner.Msg, opts ports.TxOptions) (TxOutcome, error) {
	typeName := msg.TypeName()
	if s.signer == nil {
		return TxOutcome{}, fmt.Errorf("%s: %w", typeName, ErrNoSigner)
	}
	if err := msg.Validate(); err != nil {
		return TxOutcome{}, err
	}

	value := msg.Value()
	data, err := s.registry.Encode(typeName, value)
	s.metrics.CodecOp("encode", typeName, err)
	if err != nil {
		return TxOutcome{}, fmt.Errorf("encode %s: %w", typeName, err)
	}

	log := s.logger.With().Str("type", typeName).Logger()
	start := s.clock.Now()
	res, err := s.signer.SignAndBroadcast(ctx, []chain.EncodedMsg{{TypeURL: "/" + typeName, Value: data}}, opts)
	elapsed := s.clock.Now().Sub(start)

	outcome := ports.OutcomeOK
	var txErr *chain.TxError
	switch {
	case errors.As(err, &txErr):
		outcome = ports.OutcomeFailed
	case err != nil:
		outcome = ports.OutcomeError
	}
	s.metrics.Tx(typeName, outcome, elapsed, res.GasUsed)

	out := TxOutcome{Tx: res}
	if err == nil && typeName == partner.TypeCreatePartner {
		out.CreatedID = s.createdID(res)
	}
	out.JournalID = s.record(ctx, typeName, value, opts, out, err)

	if err != nil {
		log.Error().Err(err).Str("tx_hash", res.Hash).Msg("transaction failed")
		return out, err
	}
	log.Info().
		Str("tx_hash", res.Hash).
		Int64("height", res.Height).
		Str("created_id", out.CreatedID).
		Dur("elapsed", elapsed).
		Msg("transaction committed")
	return out, nil
}

// createdID reads the new entity id from the tx events, falling back to the
// typed message response in the tx data.
func (s *RewardService) createdID(res chain.TxResult) string {
	if id, ok := s.EventMatcher().Find(res.Events); ok {
		return id
	}
	for _, r := range res.MsgResponses {
		if r.TypeURL != "/"+partner.TypeCreatePartnerResponse {
			continue
		}
		v, err := s.registry.Decode(partner.TypeCreatePartnerResponse, r.Value)
		s.metrics.CodecOp("decode", partner.TypeCreatePartnerResponse, err)
		if err != nil {
			s.logger.Warn().Err(err).Msg("undecodable create partner response")
			continue
		}
		if id := v.String("id"); id != "" {
			return id
		}
	}
	return ""
}

// record writes the journal entry. Journal failures are logged, never
// returned: the transaction outcome is already final.
func (s *RewardService) record(ctx context.Context, typeName string, value wire.Value, opts ports.TxOptions, out TxOutcome, txErr error) string {
	if s.journal == nil {
		return ""
	}

	entry := ports.JournalEntry{
		ID:        s.idGen.New(),
		TypeURL:   "/" + typeName,
		TxHash:    out.Tx.Hash,
		Height:    out.Tx.Height,
		Code:      out.Tx.Code,
		GasUsed:   out.Tx.GasUsed,
		CreatedID: out.CreatedID,
		Memo:      opts.Memo,
		Payload:   s.payload(typeName, value),
		Status:    ports.TxStatusCommitted,
		CreatedAt: s.clock.Now(),
	}
	if txErr != nil {
		entry.Status = ports.TxStatusFailed
		entry.Error = txErr.Error()
	}

	// The caller's context may already be cancelled.
	if err := s.journal.Record(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Error().Err(err).Str("tx_hash", entry.TxHash).Msg("failed to record journal entry")
		return ""
	}
	return entry.ID
}

func (s *RewardService) payload(typeName string, value wire.Value) string {
	text, err := s.registry.ToText(typeName, value)
	if err != nil {
		return "{}"
	}
	b, err := json.Marshal(text)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// -----------------------------------------------------------------------------
// Queries
// -----------------------------------------------------------------------------

// ListPartners lists partners from the chain.
func (s *RewardService) ListPartners(ctx context.Context, opts partner.ListOptions) (partner.ListPage, error) {
	if s.querier == nil {
		return partner.ListPage{}, fmt.Errorf("list partners: %w", ErrNoQuerier)
	}
	start := s.clock.Now()
	page, err := s.querier.ListPartners(ctx, opts)
	s.metrics.Query("list_partners", s.clock.Now().Sub(start), err)
	if err != nil {
		return partner.ListPage{}, fmt.Errorf("list partners: %w", err)
	}
	return page, nil
}

// GetPartner fetches one partner.
func (s *RewardService) GetPartner(ctx context.Context, id uint64) (partner.Partner, error) {
	if s.querier == nil {
		return partner.Partner{}, fmt.Errorf("get partner %d: %w", id, ErrNoQuerier)
	}
	start := s.clock.Now()
	p, err := s.querier.GetPartner(ctx, id)
	s.metrics.Query("get_partner", s.clock.Now().Sub(start), err)
	if err != nil {
		return partner.Partner{}, fmt.Errorf("get partner %d: %w", id, err)
	}
	return p, nil
}

// Journal lists locally recorded transactions and the total matching f.
func (s *RewardService) Journal(ctx context.Context, f ports.JournalFilter) ([]ports.JournalEntry, int, error) {
	if s.journal == nil {
		return []ports.JournalEntry{}, 0, nil
	}
	entries, err := s.journal.List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("list journal: %w", err)
	}
	total, err := s.journal.Count(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("count journal: %w", err)
	}
	return entries, total, nil
}

// -----------------------------------------------------------------------------
// Codec
// -----------------------------------------------------------------------------

// Types returns the registered message type names, sorted.
func (s *RewardService) Types() []string {
	return s.registry.Types()
}

// Schemas returns every registered schema.
func (s *RewardService) Schemas() []wire.MessageSchema {
	return s.registry.Schemas()
}

// FromText converts a text mapping into a codec value for typeName. Keys the
// schema does not declare are ignored.
func (s *RewardService) FromText(typeName string, text map[string]any) (wire.Value, error) {
	return s.registry.FromText(typeName, text)
}

// Encode converts a text mapping into wire bytes for typeName.
func (s *RewardService) Encode(typeName string, text map[string]any) ([]byte, error) {
	var b []byte
	v, err := s.registry.FromText(typeName, text)
	if err == nil {
		b, err = s.registry.Encode(typeName, v)
	}
	s.metrics.CodecOp("encode", typeName, err)
	return b, err
}

// Decode parses wire bytes for typeName.
func (s *RewardService) Decode(typeName string, data []byte) (wire.Value, error) {
	v, err := s.registry.Decode(typeName, data)
	s.metrics.CodecOp("decode", typeName, err)
	return v, err
}

// DecodeText parses wire bytes and returns the text form.
func (s *RewardService) DecodeText(typeName string, data []byte) (map[string]any, error) {
	v, err := s.Decode(typeName, data)
	if err != nil {
		return nil, err
	}
	return s.registry.ToText(typeName, v)
}

type nopMetrics struct{}

func (nopMetrics) CodecOp(string, string, error)           {}
func (nopMetrics) Tx(string, string, time.Duration, int64) {}
func (nopMetrics) Query(string, time.Duration, error)      {}
