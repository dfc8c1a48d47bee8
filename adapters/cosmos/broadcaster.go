package cosmos

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/rewardctl/adapters/clock"
	"github.com/artpar/rewardctl/adapters/remote"
	"github.com/artpar/rewardctl/domain/chain"
	"github.com/artpar/rewardctl/ports"
)

// Broadcaster defaults.
const (
	DefaultGasLimit     = 200000
	DefaultGasPrice     = "0.0001stake"
	DefaultPollInterval = time.Second
	DefaultPollTimeout  = 30 * time.Second
)

// ErrConfirmTimeout is returned when a broadcast tx is not found in a block
// before the poll timeout.
var ErrConfirmTimeout = errors.New("timed out waiting for tx confirmation")

// Config configures a Broadcaster.
type Config struct {
	ChainID      string // fetched from the node when empty
	GasPrice     chain.GasPrice
	GasLimit     uint64
	PollInterval time.Duration
	PollTimeout  time.Duration
}

// Broadcaster signs transactions with a Wallet and submits them through the
// REST service. It implements ports.TxSigner.
//
// Transactions are serialized: each one is confirmed before the next reads
// the account sequence.
type Broadcaster struct {
	client *remote.Client
	wallet *Wallet
	clock  ports.Clock
	logger zerolog.Logger

	mu      sync.Mutex
	cfg     Config
	chainID string
}

// NewBroadcaster creates a broadcaster.
func NewBroadcaster(client *remote.Client, wallet *Wallet, cfg Config, logger zerolog.Logger) *Broadcaster {
	b := &Broadcaster{
		client: client,
		wallet: wallet,
		clock:  clock.Real{},
		logger: logger.With().Str("component", "broadcaster").Logger(),
	}
	b.cfg = withDefaults(cfg)
	b.chainID = cfg.ChainID
	return b
}

func withDefaults(cfg Config) Config {
	if cfg.GasLimit == 0 {
		cfg.GasLimit = DefaultGasLimit
	}
	if cfg.GasPrice.Amount == nil {
		cfg.GasPrice, _ = chain.ParseGasPrice(DefaultGasPrice)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultPollTimeout
	}
	return cfg
}

// WithClock replaces the clock used for confirmation polling.
func (b *Broadcaster) WithClock(c ports.Clock) *Broadcaster {
	b.clock = c
	return b
}

// SetGas updates the gas price and default gas limit for later transactions.
func (b *Broadcaster) SetGas(price chain.GasPrice, limit uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cfg.GasPrice = price
	b.cfg.GasLimit = limit
	b.cfg = withDefaults(b.cfg)
}

// Address returns the signer's account address.
func (b *Broadcaster) Address() string { return b.wallet.Address() }

// SignAndBroadcast signs msgs in one transaction, broadcasts it in sync mode
// and polls until it is included in a block.
func (b *Broadcaster) SignAndBroadcast(ctx context.Context, msgs []chain.EncodedMsg, opts ports.TxOptions) (chain.TxResult, error) {
	if len(msgs) == 0 {
		return chain.TxResult{}, errors.New("sign and broadcast: no messages")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	chainID, err := b.resolveChainID(ctx)
	if err != nil {
		return chain.TxResult{}, err
	}
	acct, err := b.account(ctx)
	if err != nil {
		return chain.TxResult{}, err
	}

	gasLimit := opts.GasLimit
	if gasLimit == 0 {
		gasLimit = b.cfg.GasLimit
	}

	txBytes := b.sign(msgs, opts.Memo, gasLimit, chainID, acct)
	hash := strings.ToUpper(hex.EncodeToString(sha256Sum(txBytes)))

	log := b.logger.With().Str("tx_hash", hash).Uint64("sequence", acct.Sequence).Logger()
	log.Debug().Int("msgs", len(msgs)).Uint64("gas_limit", gasLimit).Msg("broadcasting tx")

	if err := b.broadcast(ctx, txBytes, hash); err != nil {
		return chain.TxResult{}, err
	}

	res, err := b.waitForTx(ctx, hash)
	if err != nil {
		return chain.TxResult{}, err
	}
	if !res.OK() {
		log.Warn().Uint32("code", res.Code).Str("log", res.RawLog).Msg("tx failed")
		return res, &chain.TxError{Hash: hash, Code: res.Code, Codespace: res.Codespace, Log: res.RawLog}
	}

	log.Info().Int64("height", res.Height).Int64("gas_used", res.GasUsed).Msg("tx committed")
	return res, nil
}

func (b *Broadcaster) sign(msgs []chain.EncodedMsg, memo string, gasLimit uint64, chainID string, acct account) []byte {
	body := TxBody{Messages: msgs, Memo: memo}.Marshal()
	authInfo := AuthInfo{
		Signers: []SignerInfo{{PubKey: b.wallet.PubKey(), Sequence: acct.Sequence}},
		Fee:     Fee{Amount: []chain.Coin{b.cfg.GasPrice.Fee(gasLimit)}, GasLimit: gasLimit},
	}.Marshal()

	doc := SignDoc{
		BodyBytes:     body,
		AuthInfoBytes: authInfo,
		ChainID:       chainID,
		AccountNumber: acct.Number,
	}
	sig := b.wallet.Sign(doc.Marshal())

	return TxRaw{BodyBytes: body, AuthInfoBytes: authInfo, Signatures: [][]byte{sig}}.Marshal()
}

func (b *Broadcaster) resolveChainID(ctx context.Context) (string, error) {
	if b.chainID != "" {
		return b.chainID, nil
	}

	var resp struct {
		DefaultNodeInfo struct {
			Network string `json:"network"`
		} `json:"default_node_info"`
	}
	if err := b.client.Request(ctx, http.MethodGet, "/cosmos/base/tendermint/v1beta1/node_info", nil, &resp); err != nil {
		return "", fmt.Errorf("fetch chain id: %w", err)
	}
	if resp.DefaultNodeInfo.Network == "" {
		return "", errors.New("fetch chain id: node reported no network")
	}
	b.chainID = resp.DefaultNodeInfo.Network
	b.logger.Info().Str("chain_id", b.chainID).Msg("resolved chain id")
	return b.chainID, nil
}

type account struct {
	Number   uint64
	Sequence uint64
}

func (b *Broadcaster) account(ctx context.Context) (account, error) {
	var resp struct {
		Account struct {
			AccountNumber jsonUint `json:"account_number"`
			Sequence      jsonUint `json:"sequence"`
		} `json:"account"`
	}
	path := "/cosmos/auth/v1beta1/accounts/" + b.wallet.Address()
	if err := b.client.Request(ctx, http.MethodGet, path, nil, &resp); err != nil {
		if remote.IsNotFound(err) {
			return account{}, fmt.Errorf("account %s not found on chain (fund it first): %w", b.wallet.Address(), err)
		}
		return account{}, fmt.Errorf("fetch account: %w", err)
	}
	return account{Number: uint64(resp.Account.AccountNumber), Sequence: uint64(resp.Account.Sequence)}, nil
}

func (b *Broadcaster) broadcast(ctx context.Context, txBytes []byte, hash string) error {
	req := map[string]string{
		"tx_bytes": base64.StdEncoding.EncodeToString(txBytes),
		"mode":     "BROADCAST_MODE_SYNC",
	}
	var resp struct {
		TxResponse txResponse `json:"tx_response"`
	}
	if err := b.client.Request(ctx, http.MethodPost, "/cosmos/tx/v1beta1/txs", req, &resp); err != nil {
		return fmt.Errorf("broadcast tx: %w", err)
	}

	// A non-zero code here is a CheckTx rejection; the tx never enters a block.
	if resp.TxResponse.Code != 0 {
		return &chain.TxError{
			Hash:      hash,
			Code:      resp.TxResponse.Code,
			Codespace: resp.TxResponse.Codespace,
			Log:       resp.TxResponse.RawLog,
		}
	}
	return nil
}

func (b *Broadcaster) waitForTx(ctx context.Context, hash string) (chain.TxResult, error) {
	deadline := b.clock.Now().Add(b.cfg.PollTimeout)

	for {
		var resp struct {
			TxResponse txResponse `json:"tx_response"`
		}
		err := b.client.Request(ctx, http.MethodGet, "/cosmos/tx/v1beta1/txs/"+hash, nil, &resp)
		switch {
		case err == nil:
			res, err := resp.TxResponse.result()
			if err != nil {
				// The tx is on chain; only its message responses are lost.
				b.logger.Warn().Err(err).Str("tx_hash", hash).Msg("unreadable tx data, message responses dropped")
			}
			return res, nil
		case !remote.IsNotFound(err):
			return chain.TxResult{}, fmt.Errorf("query tx %s: %w", hash, err)
		}

		if !b.clock.Now().Before(deadline) {
			return chain.TxResult{}, fmt.Errorf("tx %s: %w", hash, ErrConfirmTimeout)
		}

		select {
		case <-ctx.Done():
			return chain.TxResult{}, ctx.Err()
		case <-b.clock.After(b.cfg.PollInterval):
		}
	}
}

// txResponse is cosmos.base.abci.v1beta1.TxResponse in REST JSON form.
type txResponse struct {
	Height    jsonUint      `json:"height"`
	TxHash    string        `json:"txhash"`
	Codespace string        `json:"codespace"`
	Code      uint32        `json:"code"`
	Data      string        `json:"data"`
	RawLog    string        `json:"raw_log"`
	GasWanted jsonUint      `json:"gas_wanted"`
	GasUsed   jsonUint      `json:"gas_used"`
	Events    []chain.Event `json:"events"`
}

// result converts the response. The result is complete even when the error
// reports unreadable data, in which case MsgResponses is empty.
func (r txResponse) result() (chain.TxResult, error) {
	res := chain.TxResult{
		Hash:      r.TxHash,
		Height:    int64(r.Height),
		Code:      r.Code,
		Codespace: r.Codespace,
		RawLog:    r.RawLog,
		GasWanted: int64(r.GasWanted),
		GasUsed:   int64(r.GasUsed),
		Events:    r.Events,
	}
	if r.Data != "" && r.Code == 0 {
		data, err := hex.DecodeString(r.Data)
		if err != nil {
			return res, fmt.Errorf("tx %s: decode data: %w", r.TxHash, err)
		}
		responses, err := ParseTxMsgData(data)
		if err != nil {
			return res, fmt.Errorf("tx %s: %w", r.TxHash, err)
		}
		res.MsgResponses = responses
	}
	return res, nil
}

// jsonUint accepts 64-bit integers encoded as JSON strings or numbers.
type jsonUint uint64

func (u *jsonUint) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*u = 0
		return nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %s", data)
	}
	*u = jsonUint(n)
	return nil
}

func sha256Sum(b []byte) []byte {
	h := sha256.Sum256(b)
	return h[:]
}

var _ ports.TxSigner = (*Broadcaster)(nil)
