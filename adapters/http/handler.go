// Package http provides the local HTTP gateway to the Reward Chain client.
package http

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/artpar/rewardctl/app"
	"github.com/artpar/rewardctl/core/wire"
	"github.com/artpar/rewardctl/domain/chain"
	"github.com/artpar/rewardctl/domain/partner"
	"github.com/artpar/rewardctl/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// TxResponse is returned by every transaction endpoint.
type TxResponse struct {
	TxHash    string        `json:"txHash"`
	Height    int64         `json:"height"`
	Code      uint32        `json:"code"`
	GasWanted int64         `json:"gasWanted"`
	GasUsed   int64         `json:"gasUsed"`
	CreatedID string        `json:"createdId,omitempty"`
	JournalID string        `json:"journalId,omitempty"`
	Events    []chain.Event `json:"events,omitempty"`
}

// PartnerListResponse is one page of partners.
type PartnerListResponse struct {
	Partners []partner.Partner `json:"partners"`
	NextKey  string            `json:"nextKey,omitempty"`
	Total    uint64            `json:"total,string"`
}

// EncodeRequest asks for the wire bytes of a message.
type EncodeRequest struct {
	Type  string         `json:"type"`
	Value map[string]any `json:"value"`
}

// EncodeResponse carries wire bytes in base64 and hex.
type EncodeResponse struct {
	Type    string `json:"type"`
	TypeURL string `json:"typeUrl"`
	Base64  string `json:"base64"`
	Hex     string `json:"hex"`
}

// DecodeRequest carries wire bytes as base64 or hex.
type DecodeRequest struct {
	Type   string `json:"type"`
	Base64 string `json:"base64,omitempty"`
	Hex    string `json:"hex,omitempty"`
}

// DecodeResponse is the text form of decoded bytes.
type DecodeResponse struct {
	Type  string         `json:"type"`
	Value map[string]any `json:"value"`
}

// JournalEntry is the JSON form of a journal entry.
type JournalEntry struct {
	ID        string          `json:"id"`
	TypeURL   string          `json:"typeUrl"`
	TxHash    string          `json:"txHash,omitempty"`
	Height    int64           `json:"height,omitempty"`
	Code      uint32          `json:"code"`
	GasUsed   int64           `json:"gasUsed,omitempty"`
	CreatedID string          `json:"createdId,omitempty"`
	Memo      string          `json:"memo,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	Status    string          `json:"status"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// JournalResponse is one page of the journal.
type JournalResponse struct {
	Entries []JournalEntry `json:"entries"`
	Total   int            `json:"total"`
}

// Handler serves the gateway API.
type Handler struct {
	service *app.RewardService
	logger  zerolog.Logger
}

// NewHandler creates a gateway handler.
func NewHandler(service *app.RewardService, logger zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// -----------------------------------------------------------------------------
// Transactions
// -----------------------------------------------------------------------------

// CreatePartner handles POST /v1/partners.
func (h *Handler) CreatePartner(w http.ResponseWriter, r *http.Request) {
	body, opts, err := h.readMessage(r, partner.TypeCreatePartner)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out, err := h.service.CreatePartner(r.Context(), partner.CreatePartnerFromValue(body), opts)
	h.respondTx(w, r, http.StatusCreated, out, err)
}

// AddLiquidity handles POST /v1/partners/{id}/liquidity.
func (h *Handler) AddLiquidity(w http.ResponseWriter, r *http.Request) {
	id, err := partnerIDParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	body, opts, err := h.readMessage(r, partner.TypeAddPartnerLiquidity)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	msg := partner.AddPartnerLiquidityFromValue(body)
	msg.PartnerID = id
	out, err := h.service.AddPartnerLiquidity(r.Context(), msg, opts)
	h.respondTx(w, r, http.StatusOK, out, err)
}

// Swap handles POST /v1/swaps.
func (h *Handler) Swap(w http.ResponseWriter, r *http.Request) {
	body, opts, err := h.readMessage(r, partner.TypeSwap)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out, err := h.service.Swap(r.Context(), partner.SwapFromValue(body), opts)
	h.respondTx(w, r, http.StatusOK, out, err)
}

// readMessage parses a JSON body into a message value of typeName through
// the codec's text form, plus the optional memo and gasLimit keys.
func (h *Handler) readMessage(r *http.Request, typeName string) (wire.Value, ports.TxOptions, error) {
	var raw map[string]any
	if err := decodeBody(r, &raw); err != nil {
		return nil, ports.TxOptions{}, err
	}

	var opts ports.TxOptions
	if memo, ok := raw["memo"].(string); ok {
		opts.Memo = memo
	}
	if v, ok := raw["gasLimit"]; ok {
		n, err := uintValue(v)
		if err != nil {
			return nil, opts, newBadRequest("gasLimit: " + err.Error())
		}
		opts.GasLimit = n
	}

	value, err := h.service.FromText(typeName, raw)
	if err != nil {
		return nil, opts, err
	}
	return value, opts, nil
}

func (h *Handler) respondTx(w http.ResponseWriter, r *http.Request, status int, out app.TxOutcome, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, status, TxResponse{
		TxHash:    out.Tx.Hash,
		Height:    out.Tx.Height,
		Code:      out.Tx.Code,
		GasWanted: out.Tx.GasWanted,
		GasUsed:   out.Tx.GasUsed,
		CreatedID: out.CreatedID,
		JournalID: out.JournalID,
		Events:    out.Tx.Events,
	})
}

// -----------------------------------------------------------------------------
// Queries
// -----------------------------------------------------------------------------

// ListPartners handles GET /v1/partners.
func (h *Handler) ListPartners(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := partner.ListOptions{
		IncludeDisabled: parseBool(q.Get("include_disabled")),
		Key:             q.Get("key"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			h.fail(w, r, newBadRequest("limit must be a non-negative integer"))
			return
		}
		opts.Limit = n
	}

	page, err := h.service.ListPartners(r.Context(), opts)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PartnerListResponse{
		Partners: page.Partners,
		NextKey:  page.NextKey,
		Total:    page.Total,
	})
}

// GetPartner handles GET /v1/partners/{id}.
func (h *Handler) GetPartner(w http.ResponseWriter, r *http.Request) {
	id, err := partnerIDParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.service.GetPartner(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Journal handles GET /v1/journal.
func (h *Handler) Journal(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := ports.JournalFilter{
		TypeURL: q.Get("type"),
		Status:  q.Get("status"),
	}
	if f.TypeURL != "" && !strings.HasPrefix(f.TypeURL, "/") {
		f.TypeURL = "/" + f.TypeURL
	}
	for name, dst := range map[string]*int{"limit": &f.Limit, "offset": &f.Offset} {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				h.fail(w, r, newBadRequest(name+" must be a non-negative integer"))
				return
			}
			*dst = n
		}
	}

	entries, total, err := h.service.Journal(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := JournalResponse{Entries: make([]JournalEntry, 0, len(entries)), Total: total}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, JournalEntry{
			ID:        e.ID,
			TypeURL:   e.TypeURL,
			TxHash:    e.TxHash,
			Height:    e.Height,
			Code:      e.Code,
			GasUsed:   e.GasUsed,
			CreatedID: e.CreatedID,
			Memo:      e.Memo,
			Payload:   payloadJSON(e.Payload),
			Status:    e.Status,
			Error:     e.Error,
			CreatedAt: e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// -----------------------------------------------------------------------------
// Codec
// -----------------------------------------------------------------------------

// Types handles GET /v1/types.
func (h *Handler) Types(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"types": h.service.Types()})
}

// Encode handles POST /v1/codec/encode.
func (h *Handler) Encode(w http.ResponseWriter, r *http.Request) {
	var req EncodeRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Type == "" {
		h.fail(w, r, newBadRequest("type is required"))
		return
	}
	if req.Value == nil {
		req.Value = map[string]any{}
	}

	b, err := h.service.Encode(req.Type, req.Value)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	name := strings.TrimPrefix(req.Type, "/")
	writeJSON(w, http.StatusOK, EncodeResponse{
		Type:    name,
		TypeURL: "/" + name,
		Base64:  base64.StdEncoding.EncodeToString(b),
		Hex:     hex.EncodeToString(b),
	})
}

// Decode handles POST /v1/codec/decode.
func (h *Handler) Decode(w http.ResponseWriter, r *http.Request) {
	var req DecodeRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Type == "" {
		h.fail(w, r, newBadRequest("type is required"))
		return
	}

	var data []byte
	var err error
	switch {
	case req.Base64 != "" && req.Hex != "":
		err = newBadRequest("give either base64 or hex, not both")
	case req.Hex != "":
		data, err = hex.DecodeString(req.Hex)
	default:
		data, err = base64.StdEncoding.DecodeString(req.Base64)
	}
	if err != nil {
		h.fail(w, r, newBadRequest("invalid bytes: "+err.Error()))
		return
	}

	text, err := h.service.DecodeText(req.Type, data)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DecodeResponse{Type: strings.TrimPrefix(req.Type, "/"), Value: text})
}

// -----------------------------------------------------------------------------
// System
// -----------------------------------------------------------------------------

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// VersionHandler returns a handler reporting version and signer address.
func (h *Handler) VersionHandler(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"version": version,
			"service": "rewardctl",
			"address": h.service.Address(),
		})
	}
}

// fail logs err and writes the mapped error response.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	event := h.logger.Warn()
	if status >= 500 {
		event = h.logger.Error()
	}
	event.Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Str("request_id", middleware.GetReqID(r.Context())).
		Msg("request failed")
	writeError(w, status, code, err.Error())
}

func decodeBody(r *http.Request, v any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return newBadRequest("read body: " + err.Error())
	}
	if len(data) > maxBodyBytes {
		return newBadRequest("request body too large")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return newBadRequest("invalid JSON body: " + err.Error())
	}
	return nil
}

func partnerIDParam(r *http.Request) (uint64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, newBadRequest(fmt.Sprintf("invalid partner id %q", raw))
	}
	return id, nil
}

func uintValue(v any) (uint64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case json.Number:
		return strconv.ParseUint(x.String(), 10, 64)
	case string:
		if x == "" {
			return 0, nil
		}
		return strconv.ParseUint(x, 10, 64)
	}
	return 0, fmt.Errorf("%v is not an unsigned integer", v)
}

func payloadJSON(s string) json.RawMessage {
	if s == "" || !json.Valid([]byte(s)) {
		return json.RawMessage("{}")
	}
	return json.RawMessage(s)
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}
