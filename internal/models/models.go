package models

import (
	"fmt"
	"time"
)

type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Gender is a profile's gender category.
type Gender string

const (
	GenderWomen    Gender = "women"
	GenderMen      Gender = "men"
	GenderEveryone Gender = "everyone" // only meaningful as a preference
)

type Role string

const (
	RoleOtaku  Role = "otaku"
	RoleVendor Role = "vendedor"
)

func (r Role) Valid() bool { return r == RoleOtaku || r == RoleVendor }

type VendorStatus string

const (
	VendorActive              VendorStatus = "active"
	VendorPending             VendorStatus = "pending"
	VendorPendingVerification VendorStatus = "pending_verification"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Profile is what a viewer sees on a card. AgeMin, AgeMax and MaxDistanceKm
// are the profile owner's own bounds on who may see them.
type Profile struct {
	ID                string       `json:"id"`
	DisplayName       string       `json:"display_name"`
	Age               int          `json:"age"`
	Gender            Gender       `json:"gender"`
	City              string       `json:"city"`
	Location          *Coord       `json:"location,omitempty"`
	AgeMin            int          `json:"age_min"`
	AgeMax            int          `json:"age_max"`
	MaxDistanceKm     float64      `json:"max_distance_km"`
	Interests         []string     `json:"interests"`
	Bio               string       `json:"bio,omitempty"`
	ImageURL          string       `json:"image_url,omitempty"`
	Photos            []string     `json:"photos,omitempty"`
	Role              Role         `json:"role"`
	VendorStatus      VendorStatus `json:"vendor_status"`
	EmailVerified     bool         `json:"email_verified"`
	VerificationToken string       `json:"-"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// Preferences are the viewer's own search bounds. Zero values mean unset.
type Preferences struct {
	UserID        string    `json:"user_id"`
	Gender        Gender    `json:"gender"`
	AgeMin        int       `json:"age_min"`
	AgeMax        int       `json:"age_max"`
	MaxDistanceKm float64   `json:"max_distance_km"`
	Interests     []string  `json:"interests"`
	City          string    `json:"city"`
	Location      *Coord    `json:"location,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsZero reports whether no bound has been set.
func (p Preferences) IsZero() bool {
	return p.Gender == "" && p.AgeMin == 0 && p.AgeMax == 0 && p.MaxDistanceKm == 0
}

type Direction string

const (
	DirectionNone  Direction = ""
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

// Decision is one recorded swipe. The latest decision per pair wins.
type Decision struct {
	ViewerID    string    `json:"viewer_id"`
	CandidateID string    `json:"candidate_id"`
	Liked       bool      `json:"liked"`
	CreatedAt   time.Time `json:"created_at"`
}

type Match struct {
	ViewerID       string    `json:"viewer_id"`
	CandidateID    string    `json:"candidate_id"`
	Mutual         bool      `json:"mutual"`
	Active         bool      `json:"active"`
	ConversationID string    `json:"conversation_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type MessageType string

const (
	MessageText   MessageType = "text"
	MessageSystem MessageType = "system"
)

// SystemSender marks messages authored by the platform.
const SystemSender = "system"

// Conversation belongs to an unordered pair; Participants is kept sorted.
type Conversation struct {
	ID           string    `json:"id"`
	Participants [2]string `json:"participants"`
	CreatedAt    time.Time `json:"created_at"`
}

// Other returns the participant that is not id.
func (c Conversation) Other(id string) string {
	if c.Participants[0] == id {
		return c.Participants[1]
	}
	return c.Participants[0]
}

func (c Conversation) Has(id string) bool {
	return c.Participants[0] == id || c.Participants[1] == id
}

// PairOf normalizes two participant ids into sorted order.
func PairOf(a, b string) [2]string {
	if b < a {
		return [2]string{b, a}
	}
	return [2]string{a, b}
}

type Message struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversation_id"`
	SenderID       string      `json:"sender_id"`
	Content        string      `json:"content"`
	Type           MessageType `json:"message_type"`
	Seq            int64       `json:"seq"`
	CreatedAt      time.Time   `json:"created_at"`
}

type ConversationStatus string

const (
	StatusOpen           ConversationStatus = "open"
	StatusPendingPayment ConversationStatus = "pending_payment"
	StatusPaid           ConversationStatus = "paid"
)

// OfficialSellerID is the seller of products without a third-party seller.
const OfficialSellerID = "00000000-0000-0000-0000-000000000000"

type VendorConversation struct {
	ID                   string             `json:"id"`
	BuyerID              string             `json:"buyer_id"`
	SellerID             string             `json:"seller_id"`
	ProductID            string             `json:"product_id"`
	NegotiatedPriceCents *Cents             `json:"negotiated_price,omitempty"`
	Status               ConversationStatus `json:"status"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PriceCents  Cents  `json:"price_cents"`
	Category    string `json:"category"`
	Fandom      string `json:"fandom"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	Official    bool   `json:"is_official"`
	SellerID    string `json:"seller_id,omitempty"`
}

// Seller returns the seller id, falling back to the official vendor.
func (p Product) Seller() string {
	if p.SellerID == "" {
		return OfficialSellerID
	}
	return p.SellerID
}

const OrderPending = "pending"

type DemoOrder struct {
	ReceiptID      string    `json:"receipt_id"`
	BuyerID        string    `json:"buyer_id"`
	ProductID      string    `json:"product_id"`
	ConversationID string    `json:"conversation_id"`
	TotalCents     Cents     `json:"total_cents"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

// Cents is an amount of BRL in centavos.
type Cents int64

// String renders the amount as "65.00".
func (c Cents) String() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}
