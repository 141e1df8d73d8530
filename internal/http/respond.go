package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/example/guilda/internal/apperr"
	"github.com/example/guilda/internal/auth"
	"github.com/example/guilda/internal/chat"
	"github.com/example/guilda/internal/completion"
	"github.com/example/guilda/internal/media"
	"github.com/example/guilda/internal/payments"
	"github.com/example/guilda/internal/session"
	"github.com/example/guilda/internal/storage"
	"github.com/example/guilda/internal/verification"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// statusFor maps a service error to a status code and the message shown to
// the client. Unknown errors become a bare 500.
func statusFor(err error) (int, string) {
	var ve *apperr.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Error()
	case errors.Is(err, verification.ErrInvalidToken):
		return http.StatusBadRequest, verification.MsgInvalidToken
	case errors.Is(err, session.ErrNoDecision):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, auth.MsgInvalidCredentials
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, auth.ErrEmailNotVerified):
		return http.StatusForbidden, auth.MsgEmailNotVerified
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, session.ErrEmptyDeck):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, storage.ErrConflict), errors.Is(err, payments.ErrCheckoutBusy), errors.Is(err, session.ErrStaleCard):
		return http.StatusConflict, err.Error()
	case errors.Is(err, completion.ErrRateLimited):
		return http.StatusTooManyRequests, chat.MsgRateLimited
	case errors.Is(err, completion.ErrQuotaExhausted):
		return http.StatusPaymentRequired, chat.MsgQuotaExhausted
	case errors.Is(err, media.ErrDisabled):
		return http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "upstream timeout"
	}
	return http.StatusInternalServerError, "internal error"
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "route", routeTemplate(r), "request_id", requestIDFromContext(r.Context()), "error", err)
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return apperr.Validation("", "invalid JSON body")
	}
	return nil
}
