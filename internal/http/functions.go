package httpapi

import (
	"errors"
	"math"
	"net/http"

	"github.com/example/guilda/internal/apperr"
	"github.com/example/guilda/internal/chat"
	"github.com/example/guilda/internal/completion"
	"github.com/example/guilda/internal/models"
	"github.com/example/guilda/internal/payments"
	"github.com/example/guilda/internal/verification"
)

// The /functions/v1 routes keep the request and response shapes of the
// hosted functions the web client was first written against.

type chatMatchRequest struct {
	Messages     []completion.Message `json:"messages"`
	MatchProfile chat.Persona         `json:"matchProfile"`
}

// handleChatMatchFunction is a stateless persona completion: the client
// sends the whole transcript and gets one reply back.
func (s *Server) handleChatMatchFunction(w http.ResponseWriter, r *http.Request) {
	var req chatMatchRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if s.Completion == nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: chat.MsgFailed})
		return
	}
	responder := &chat.CompletionResponder{Client: s.Completion}
	reply, err := responder.Reply(r.Context(), chat.Turn{Persona: req.MatchProfile, Transcript: req.Messages})
	if err != nil {
		switch {
		case errors.Is(err, completion.ErrRateLimited), errors.Is(err, completion.ErrQuotaExhausted):
			s.writeError(w, r, err)
		default:
			s.logger.Error("chat-match completion failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: chat.MsgFailed})
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": reply})
}

type vendorChatRequest struct {
	ConversationID string `json:"conversationId"`
	UserMessage    string `json:"userMessage"`
}

type vendorChatResponse struct {
	Message      string          `json:"message"`
	QuickReplies []string        `json:"quickReplies"`
	Intent       string          `json:"intent"`
	Action       string          `json:"action,omitempty"`
	Quote        *payments.Quote `json:"quote,omitempty"`
	Notice       *chat.Notice    `json:"notice,omitempty"`
}

func (s *Server) handleVendorChatFunction(w http.ResponseWriter, r *http.Request) {
	var req vendorChatRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.Vendor.Send(r.Context(), req.ConversationID, userID(r), req.UserMessage)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := vendorChatResponse{
		QuickReplies: res.QuickReplies,
		Intent:       res.Intent.String(),
		Action:       string(res.Action),
		Quote:        res.Quote,
		Notice:       res.Notice,
	}
	switch {
	case res.Reply != nil:
		out.Message = res.Reply.Content
	case res.Notice != nil:
		out.Message = res.Notice.Message
	}
	writeJSON(w, http.StatusOK, out)
}

type demoPaymentRequest struct {
	ConversationID string   `json:"conversationId"`
	ProductID      string   `json:"productId"`
	TotalPrice     *float64 `json:"totalPrice"`
	BuyerID        string   `json:"buyerId"`
}

type demoPaymentResponse struct {
	Success   bool             `json:"success"`
	ReceiptID string           `json:"receiptId"`
	Order     models.DemoOrder `json:"order"`
	Message   string           `json:"message"`
}

func (s *Server) handleDemoPaymentFunction(w http.ResponseWriter, r *http.Request) {
	var req demoPaymentRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	buyer := userID(r)
	if req.BuyerID != "" && req.BuyerID != buyer {
		s.writeError(w, r, apperr.ErrForbidden)
		return
	}
	var claimed *models.Cents
	if req.TotalPrice != nil {
		c := models.Cents(math.Round(*req.TotalPrice * 100))
		claimed = &c
	}
	receipt, err := s.Payments.Pay(r.Context(), payments.Request{
		ConversationID: req.ConversationID,
		ProductID:      req.ProductID,
		BuyerID:        buyer,
		ClaimedTotal:   claimed,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, demoPaymentResponse{Success: true, ReceiptID: receipt.ReceiptID, Order: receipt.Order, Message: receipt.Message})
}

func (s *Server) handleSendVerificationFunction(w http.ResponseWriter, r *http.Request) {
	var req verification.Request
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := s.Verification.Send(r.Context(), req)
	if err != nil {
		s.logger.Error("send verification email", "user_id", req.UserID, "error", err)
		status, msg := statusFor(err)
		if status == http.StatusInternalServerError {
			msg = err.Error()
		}
		writeJSON(w, status, errorBody{Error: msg})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": id})
}

func (s *Server) handleVerifyEmailFunction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.Verification.Verify(r.Context(), req.Token)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "isVendor": res.IsVendor, "message": res.Message})
}
