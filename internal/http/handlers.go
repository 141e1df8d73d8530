package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/example/guilda/internal/apperr"
	"github.com/example/guilda/internal/auth"
	"github.com/example/guilda/internal/chat"
	"github.com/example/guilda/internal/completion"
	"github.com/example/guilda/internal/dispatch"
	"github.com/example/guilda/internal/geo"
	"github.com/example/guilda/internal/ingest"
	"github.com/example/guilda/internal/logging"
	"github.com/example/guilda/internal/media"
	"github.com/example/guilda/internal/models"
	"github.com/example/guilda/internal/observability"
	"github.com/example/guilda/internal/payments"
	"github.com/example/guilda/internal/session"
	"github.com/example/guilda/internal/storage"
	"github.com/example/guilda/internal/swipe"
	"github.com/example/guilda/internal/vendor"
	"github.com/example/guilda/internal/verification"
)

// Deps is everything the API serves. Media, Locator, Publisher and WS may be
// nil.
type Deps struct {
	Store        storage.Store
	Auth         *auth.Service
	Sessions     *session.Registry
	Chat         *chat.Service
	Vendor       *vendor.Service
	Payments     *payments.Service
	Verification *verification.Service
	Completion   completion.Client
	Media        *media.S3Presigner
	Locator      geo.Locator
	Publisher    ingest.Publisher
	WS           *dispatch.WSRegistry
}

type Options struct {
	CORSOrigins  []string
	ServeMetrics bool
	Logger       *slog.Logger
}

type Server struct {
	Deps
	mux     *mux.Router
	handler http.Handler
	logger  *slog.Logger
}

func NewServer(d Deps, opts Options) *Server {
	if d.Publisher == nil {
		d.Publisher = ingest.Nop{}
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s := &Server{Deps: d, mux: mux.NewRouter(), logger: logging.OrDiscard(opts.Logger)}
	s.registerMiddleware()
	s.routes(opts.ServeMetrics)
	s.handler = cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Client-Info", "Apikey", "X-Request-ID"},
	}).Handler(s.mux)
	return s
}

func (s *Server) routes(serveMetrics bool) {
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.HandleFunc("/ready", s.handleReady).Methods("GET")
	if serveMetrics {
		s.mux.Handle("/metrics", promhttp.Handler())
	}
	s.mux.HandleFunc("/ws", s.handleWS)

	api := s.mux.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/auth/signup", s.handleSignUp).Methods("POST")
	api.HandleFunc("/auth/signin", s.handleSignIn).Methods("POST")
	api.HandleFunc("/auth/signout", s.authed(s.handleSignOut)).Methods("POST")
	api.HandleFunc("/auth/session", s.authed(s.handleSession)).Methods("GET")

	api.HandleFunc("/profile", s.authed(s.handleGetProfile)).Methods("GET")
	api.HandleFunc("/profile", s.authed(s.handlePutProfile)).Methods("PUT")
	api.HandleFunc("/profile/photos/upload-url", s.authed(s.handlePhotoUploadURL)).Methods("POST")
	api.HandleFunc("/preferences", s.authed(s.handleGetPreferences)).Methods("GET")
	api.HandleFunc("/preferences", s.authed(s.handlePutPreferences)).Methods("PUT")
	api.HandleFunc("/cities", s.handleCities).Methods("GET")

	api.HandleFunc("/deck", s.authed(s.handleDeck)).Methods("GET")
	api.HandleFunc("/swipes", s.authed(s.handleSwipe)).Methods("POST")
	api.HandleFunc("/matches", s.authed(s.handleMatches)).Methods("GET")
	api.HandleFunc("/matches/{candidate_id}", s.authed(s.handleUnmatch)).Methods("DELETE")

	api.HandleFunc("/conversations", s.authed(s.handleConversations)).Methods("GET")
	api.HandleFunc("/conversations", s.authed(s.handleOpenConversation)).Methods("POST")
	api.HandleFunc("/conversations/{id}/messages", s.authed(s.handleMessages)).Methods("GET")
	api.HandleFunc("/conversations/{id}/messages", s.authed(s.handleSendMessage)).Methods("POST")

	api.HandleFunc("/categories", s.handleCategories).Methods("GET")
	api.HandleFunc("/products", s.handleProducts).Methods("GET")
	api.HandleFunc("/products/{id}", s.handleProduct).Methods("GET")
	api.HandleFunc("/vendor/conversations", s.authed(s.handleVendorConversations)).Methods("GET")
	api.HandleFunc("/vendor/conversations", s.authed(s.handleOpenVendorConversation)).Methods("POST")
	api.HandleFunc("/vendor/conversations/{id}/messages", s.authed(s.handleVendorMessages)).Methods("GET")
	api.HandleFunc("/vendor/conversations/{id}/messages", s.authed(s.handleVendorSend)).Methods("POST")
	api.HandleFunc("/vendor/conversations/{id}/offer", s.authed(s.handleOffer)).Methods("POST")
	api.HandleFunc("/vendor/conversations/{id}/checkout", s.authed(s.handleCheckout)).Methods("GET")
	api.HandleFunc("/vendor/conversations/{id}/pay", s.authed(s.handlePay)).Methods("POST")

	fn := s.mux.PathPrefix("/functions/v1").Subrouter()
	fn.HandleFunc("/chat-match", s.authed(s.handleChatMatchFunction)).Methods("POST")
	fn.HandleFunc("/vendor-chat", s.authed(s.handleVendorChatFunction)).Methods("POST")
	fn.HandleFunc("/demo-payment", s.authed(s.handleDemoPaymentFunction)).Methods("POST")
	fn.HandleFunc("/send-verification-email", s.handleSendVerificationFunction).Methods("POST")
	fn.HandleFunc("/verify-email", s.handleVerifyEmailFunction).Methods("POST")
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.handler.ServeHTTP(w, r) }

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.Store.Ping(ctx); err != nil {
		s.logger.Warn("readiness check failed", "error", err)
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req auth.SignUpRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.Auth.SignUp(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, err := s.Auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.FromContext(r.Context())
	if err := s.Auth.SignOut(r.Context(), sess.Token); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.Sessions.Drop(sess.User.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.FromContext(r.Context())
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.Store.Profile(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type profileRequest struct {
	DisplayName string        `json:"display_name"`
	Age         int           `json:"age"`
	Gender      models.Gender `json:"gender"`
	City        string        `json:"city"`
	Interests   []string      `json:"interests"`
	Bio         string        `json:"bio"`
	Photos      []string      `json:"photos"`
	AgeMin      int           `json:"age_min"`
	AgeMax      int           `json:"age_max"`
	MaxDistKm   float64       `json:"max_distance_km"`
}

// handlePutProfile completes onboarding or edits the profile. The location
// always follows the city.
func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	ctx := r.Context()
	id := userID(r)
	p, err := s.Store.Profile(ctx, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if name := strings.TrimSpace(req.DisplayName); name != "" {
		p.DisplayName = name
	}
	if req.Age != 0 {
		if req.Age < 18 {
			s.writeError(w, r, apperr.Validation("age", "must be at least 18"))
			return
		}
		p.Age = req.Age
	}
	switch req.Gender {
	case "":
	case models.GenderWomen, models.GenderMen:
		p.Gender = req.Gender
	default:
		s.writeError(w, r, apperr.Validation("gender", "must be women or men"))
		return
	}
	if req.AgeMin != 0 || req.AgeMax != 0 {
		if req.AgeMin > req.AgeMax {
			s.writeError(w, r, apperr.Validation("age_min", "must not exceed age_max"))
			return
		}
		p.AgeMin, p.AgeMax = req.AgeMin, req.AgeMax
	}
	if req.MaxDistKm < 0 {
		s.writeError(w, r, apperr.Validation("max_distance_km", "must not be negative"))
		return
	}
	if req.MaxDistKm > 0 {
		p.MaxDistanceKm = req.MaxDistKm
	}
	if req.Interests != nil {
		p.Interests = req.Interests
	}
	if req.Bio != "" {
		p.Bio = req.Bio
	}
	if req.Photos != nil {
		if err := media.ValidatePhotos(req.Photos); err != nil {
			s.writeError(w, r, err)
			return
		}
		p.Photos = req.Photos
		p.ImageURL = req.Photos[0]
	}
	var moved bool
	if req.City != "" {
		c, ok := geo.LookupCity(req.City)
		if !ok {
			s.writeError(w, r, apperr.Validation("city", "unknown city"))
			return
		}
		loc := c.Coord
		p.City, p.Location, moved = c.Label(), &loc, true
	}
	p.UpdatedAt = time.Now().UTC()
	if err := s.Store.UpsertProfile(ctx, p); err != nil {
		s.writeError(w, r, err)
		return
	}
	if moved {
		s.indexLocation(ctx, p.ID, *p.Location)
	}
	writeJSON(w, http.StatusOK, p)
}

// indexLocation updates the geo prefilter and announces the move. Both are
// best effort; the profile row is already the source of truth.
func (s *Server) indexLocation(ctx context.Context, id string, c models.Coord) {
	result := "ok"
	if s.Locator != nil {
		if err := s.Locator.Upsert(ctx, id, c); err != nil {
			result = "error"
			s.logger.Warn("geo upsert failed", "profile_id", id, "error", err)
		}
	}
	observability.LocationUpdatesTotal.WithLabelValues(result).Inc()
	ev, err := ingest.NewEvent(ingest.EventProfileLocation, id, ingest.LocationUpdate{ProfileID: id, Location: c})
	if err == nil {
		err = s.Publisher.Publish(ctx, ev)
	}
	if err != nil {
		s.logger.Warn("publish location failed", "profile_id", id, "error", err)
	}
}

type uploadRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
}

func (s *Server) handlePhotoUploadURL(w http.ResponseWriter, r *http.Request) {
	if s.Media == nil {
		s.writeError(w, r, media.ErrDisabled)
		return
	}
	var req uploadRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	up, err := s.Media.UploadURL(r.Context(), userID(r), req.FileName, req.ContentType)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, up)
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := s.Store.Preferences(r.Context(), userID(r))
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusOK, models.Preferences{UserID: userID(r)})
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

func (s *Server) handlePutPreferences(w http.ResponseWriter, r *http.Request) {
	var req models.Preferences
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	switch req.Gender {
	case "", models.GenderWomen, models.GenderMen, models.GenderEveryone:
	default:
		s.writeError(w, r, apperr.Validation("gender", "must be women, men or everyone"))
		return
	}
	if req.AgeMin < 0 || req.AgeMax < 0 || req.MaxDistanceKm < 0 {
		s.writeError(w, r, apperr.Validation("", "bounds must not be negative"))
		return
	}
	if req.AgeMin > 0 && req.AgeMax > 0 && req.AgeMin > req.AgeMax {
		s.writeError(w, r, apperr.Validation("age_min", "must not exceed age_max"))
		return
	}
	req.UserID = userID(r)
	req.Location = nil
	if req.City != "" {
		c, ok := geo.LookupCity(req.City)
		if !ok {
			s.writeError(w, r, apperr.Validation("city", "unknown city"))
			return
		}
		loc := c.Coord
		req.City, req.Location = c.Label(), &loc
	}
	req.UpdatedAt = time.Now().UTC()
	if err := s.Store.UpsertPreferences(r.Context(), req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.Sessions.Refresh(r.Context(), req.UserID); err != nil {
		s.logger.Warn("refresh deck failed", "user_id", req.UserID, "error", err)
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) handleCities(w http.ResponseWriter, r *http.Request) {
	out := geo.SuggestCities(r.URL.Query().Get("q"), geo.MaxCitySuggestions)
	if out == nil {
		out = []geo.City{}
	}
	writeJSON(w, http.StatusOK, out)
}

type deckResponse struct {
	Card  *session.Card `json:"card"`
	Empty bool          `json:"empty"`
}

func (s *Server) handleDeck(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Sessions.Get(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	card, ok := sess.Current()
	if !ok {
		writeJSON(w, http.StatusOK, deckResponse{Empty: true})
		return
	}
	writeJSON(w, http.StatusOK, deckResponse{Card: &card})
}

// swipeRequest carries either a decided direction or the raw horizontal
// drag positions of the gesture.
type swipeRequest struct {
	CandidateID string           `json:"candidate_id"`
	Direction   models.Direction `json:"direction"`
	Points      []float64        `json:"points"`
}

func (s *Server) handleSwipe(w http.ResponseWriter, r *http.Request) {
	var req swipeRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	dir := req.Direction
	if dir == models.DirectionNone && len(req.Points) > 0 {
		dir = swipe.Replay(req.Points)
	}
	sess, err := s.Sessions.Get(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := sess.Swipe(r.Context(), req.CandidateID, dir)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Sessions.Get(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Matches())
}

func (s *Server) handleUnmatch(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Sessions.Get(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := sess.Unmatch(r.Context(), mux.Vars(r)["candidate_id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := s.Chat.Conversations(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convs)
}

func (s *Server) handleOpenConversation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CounterpartID string `json:"counterpart_id"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	conv, err := s.Chat.Open(r.Context(), userID(r), req.CounterpartID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.Chat.Messages(r.Context(), mux.Vars(r)["id"], userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

type sendRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.Chat.Send(r.Context(), mux.Vars(r)["id"], userID(r), req.Content)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func userID(r *http.Request) string {
	sess, _ := auth.FromContext(r.Context())
	return sess.User.ID
}

func newID() string { b := make([]byte, 8); _, _ = rand.Read(b); return hex.EncodeToString(b) }
