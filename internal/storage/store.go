package storage

import (
	"context"
	"errors"

	"github.com/example/guilda/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

type UserStore interface {
	// CreateUser fails with ErrConflict when the email is taken.
	CreateUser(ctx context.Context, u models.User) error
	UserByEmail(ctx context.Context, email string) (models.User, error)
	UserByID(ctx context.Context, id string) (models.User, error)
}

type ProfileStore interface {
	Profile(ctx context.Context, id string) (models.Profile, error)
	UpsertProfile(ctx context.Context, p models.Profile) error
	// Candidates returns onboarded profiles other than viewerID.
	Candidates(ctx context.Context, viewerID string, limit int) ([]models.Profile, error)
	// ProfilesByID keeps the order of ids and skips unknown ones.
	ProfilesByID(ctx context.Context, ids []string) ([]models.Profile, error)
	ProfileByVerificationToken(ctx context.Context, token string) (models.Profile, error)
	Preferences(ctx context.Context, userID string) (models.Preferences, error)
	UpsertPreferences(ctx context.Context, p models.Preferences) error
}

type DecisionStore interface {
	// RecordDecision keeps the latest decision per (viewer, candidate).
	RecordDecision(ctx context.Context, d models.Decision) error
	// Liked reports whether viewerID's latest decision on candidateID is a like.
	Liked(ctx context.Context, viewerID, candidateID string) (bool, error)
}

type ConversationStore interface {
	// CreateConversation returns the existing conversation when the pair
	// already has one.
	CreateConversation(ctx context.Context, c models.Conversation) (models.Conversation, error)
	Conversation(ctx context.Context, id string) (models.Conversation, error)
	ConversationByPair(ctx context.Context, a, b string) (models.Conversation, error)
	ConversationsFor(ctx context.Context, userID string) ([]models.Conversation, error)
	// AppendMessage assigns the next Seq of the conversation and a CreatedAt
	// not earlier than the previous message's.
	AppendMessage(ctx context.Context, m models.Message) (models.Message, error)
	// Messages returns the conversation in creation order; limit > 0 keeps
	// only the most recent limit messages.
	Messages(ctx context.Context, conversationID string, limit int) ([]models.Message, error)
}

type VendorStore interface {
	Product(ctx context.Context, id string) (models.Product, error)
	Products(ctx context.Context) ([]models.Product, error)
	UpsertProduct(ctx context.Context, p models.Product) error
	VendorConversation(ctx context.Context, id string) (models.VendorConversation, error)
	// CreateVendorConversation returns the existing conversation for
	// (buyer, product) and created=false when there is one.
	CreateVendorConversation(ctx context.Context, c models.VendorConversation) (conv models.VendorConversation, created bool, err error)
	VendorConversationsFor(ctx context.Context, buyerID string) ([]models.VendorConversation, error)
	SetVendorConversationStatus(ctx context.Context, id string, status models.ConversationStatus) error
	SetNegotiatedPrice(ctx context.Context, id string, price models.Cents) error
}

type OrderStore interface {
	CreateOrder(ctx context.Context, o models.DemoOrder) error
	Order(ctx context.Context, receiptID string) (models.DemoOrder, error)
	DeleteOrder(ctx context.Context, receiptID string) error
}

// Store is everything the API process persists.
type Store interface {
	UserStore
	ProfileStore
	DecisionStore
	ConversationStore
	VendorStore
	OrderStore
	Ping(ctx context.Context) error
	Close() error
}
