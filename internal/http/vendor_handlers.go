package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/example/guilda/internal/models"
	"github.com/example/guilda/internal/payments"
	"github.com/example/guilda/internal/vendor"
)

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, vendor.Categories())
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	products, err := s.Vendor.Products(r.Context(), vendor.Filter{Query: q.Get("q"), Category: q.Get("category")})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.Vendor.Product(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleVendorConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := s.Vendor.Conversations(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convs)
}

type openVendorResponse struct {
	Conversation models.VendorConversation `json:"conversation"`
	Messages     []models.Message          `json:"messages"`
	QuickReplies []string                  `json:"quickReplies"`
}

func (s *Server) handleOpenVendorConversation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID string `json:"product_id"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	conv, msgs, err := s.Vendor.Open(r.Context(), userID(r), req.ProductID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, openVendorResponse{Conversation: conv, Messages: msgs, QuickReplies: vendor.QuickReplies()})
}

func (s *Server) handleVendorMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.Vendor.Messages(r.Context(), mux.Vars(r)["id"], userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) handleVendorSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.Vendor.Send(r.Context(), mux.Vars(r)["id"], userID(r), req.Content)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type offerRequest struct {
	PriceCents models.Cents `json:"price_cents"`
}

type offerResponse struct {
	Conversation models.VendorConversation `json:"conversation"`
	Message      models.Message            `json:"message"`
}

// handleOffer locks in a negotiated price within the merchant's discount cap.
func (s *Server) handleOffer(w http.ResponseWriter, r *http.Request) {
	var req offerRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	conv, msg, err := s.Vendor.Offer(r.Context(), mux.Vars(r)["id"], userID(r), req.PriceCents)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, offerResponse{Conversation: conv, Message: msg})
}

type checkoutResponse struct {
	State   string                    `json:"state"`
	Quote   payments.Quote            `json:"quote"`
	Product models.Product            `json:"product"`
	Status  models.ConversationStatus `json:"status"`
}

// handleCheckout shows the payment screen's summary. Only the buyer may see it.
func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := s.Vendor.Messages(r.Context(), id, userID(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	conv, err := s.Store.VendorConversation(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.Store.Product(r.Context(), conv.ProductID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, checkoutResponse{
		State:   s.Payments.Checkout(id).State().String(),
		Quote:   s.Payments.QuoteFor(conv, p),
		Product: p,
		Status:  conv.Status,
	})
}

type payRequest struct {
	TotalCents *models.Cents `json:"total_cents"`
}

func (s *Server) handlePay(w http.ResponseWriter, r *http.Request) {
	var req payRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	receipt, err := s.Payments.Pay(r.Context(), payments.Request{
		ConversationID: mux.Vars(r)["id"],
		BuyerID:        userID(r),
		ClaimedTotal:   req.TotalCents,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}
