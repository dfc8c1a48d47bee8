package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/artpar/rewardctl/adapters/cosmos"
	"github.com/artpar/rewardctl/adapters/remote"
	"github.com/artpar/rewardctl/app"
	"github.com/artpar/rewardctl/core/registry"
	"github.com/artpar/rewardctl/core/wire"
	"github.com/artpar/rewardctl/domain/chain"
	"github.com/artpar/rewardctl/domain/partner"
)

// ErrorResponseBody is the body of every error response.
type ErrorResponseBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes an error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errBadRequest marks request parsing failures.
var errBadRequest = errors.New("bad request")

type badRequest struct{ msg string }

func (e *badRequest) Error() string { return e.msg }
func (e *badRequest) Unwrap() error { return errBadRequest }

func newBadRequest(msg string) error { return &badRequest{msg: msg} }

// errorStatus maps an error to its HTTP status and error code.
func errorStatus(err error) (int, string) {
	var re *remote.RemoteError
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, partner.ErrInvalidMessage):
		return http.StatusBadRequest, "invalid_message"
	case errors.Is(err, wire.ErrMalformedMessage):
		return http.StatusBadRequest, "malformed_message"
	case errors.Is(err, wire.ErrFieldRange):
		return http.StatusBadRequest, "field_range"
	case errors.Is(err, wire.ErrFieldType):
		return http.StatusBadRequest, "field_type"
	case errors.Is(err, wire.ErrUnknownField):
		return http.StatusBadRequest, "unknown_field"
	case errors.Is(err, registry.ErrUnknownType):
		return http.StatusNotFound, "unknown_type"
	case errors.Is(err, chain.ErrTxFailed):
		return http.StatusUnprocessableEntity, "tx_failed"
	case errors.Is(err, app.ErrNoSigner):
		return http.StatusServiceUnavailable, "no_signer"
	case errors.Is(err, app.ErrNoQuerier):
		return http.StatusServiceUnavailable, "no_querier"
	case errors.Is(err, cosmos.ErrConfirmTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case remote.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case errors.As(err, &re):
		if re.StatusCode >= 400 && re.StatusCode < 600 {
			return re.StatusCode, "remote_error"
		}
		return http.StatusBadGateway, "remote_error"
	}
	return http.StatusInternalServerError, "internal_error"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponseBody{Error: ErrorDetail{Code: code, Message: message}})
}
