package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/guilda/internal/models"
)

// MemoryStore keeps everything in process. It backs local runs and tests.
type MemoryStore struct {
	mu  sync.RWMutex
	now func() time.Time

	users        map[string]models.User
	usersByEmail map[string]string

	profiles     map[string]models.Profile
	profileOrder []string
	preferences  map[string]models.Preferences
	decisions    map[[2]string]models.Decision

	conversations map[string]models.Conversation
	convByPair    map[[2]string]string
	messages      map[string][]models.Message

	products     map[string]models.Product
	productOrder []string
	vendorConvs  map[string]models.VendorConversation
	vendorByKey  map[[2]string]string

	orders map[string]models.DemoOrder
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store. Call Seed for the demo data.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:           time.Now,
		users:         make(map[string]models.User),
		usersByEmail:  make(map[string]string),
		profiles:      make(map[string]models.Profile),
		preferences:   make(map[string]models.Preferences),
		decisions:     make(map[[2]string]models.Decision),
		conversations: make(map[string]models.Conversation),
		convByPair:    make(map[[2]string]string),
		messages:      make(map[string][]models.Message),
		products:      make(map[string]models.Product),
		vendorConvs:   make(map[string]models.VendorConversation),
		vendorByKey:   make(map[[2]string]string),
		orders:        make(map[string]models.DemoOrder),
	}
}

// NewSeededMemoryStore returns a store holding the demo profiles and products.
func NewSeededMemoryStore() *MemoryStore {
	m := NewMemoryStore()
	_ = Seed(context.Background(), m)
	return m
}

// SetClock replaces the time source used for message timestamps.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *MemoryStore) Ping(context.Context) error { return nil }
func (m *MemoryStore) Close() error               { return nil }

func (m *MemoryStore) CreateUser(_ context.Context, u models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(u.Email)
	if _, ok := m.usersByEmail[key]; ok {
		return ErrConflict
	}
	m.users[u.ID] = u
	m.usersByEmail[key] = u.ID
	return nil
}

func (m *MemoryStore) UserByEmail(_ context.Context, email string) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.usersByEmail[strings.ToLower(email)]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return m.users[id], nil
}

func (m *MemoryStore) UserByID(_ context.Context, id string) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return u, nil
}

func (m *MemoryStore) Profile(_ context.Context, id string) (models.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[id]
	if !ok {
		return models.Profile{}, ErrNotFound
	}
	return cloneProfile(p), nil
}

func (m *MemoryStore) UpsertProfile(_ context.Context, p models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[p.ID]; !ok {
		m.profileOrder = append(m.profileOrder, p.ID)
	}
	p.UpdatedAt = m.now()
	m.profiles[p.ID] = cloneProfile(p)
	return nil
}

func (m *MemoryStore) Candidates(_ context.Context, viewerID string, limit int) ([]models.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Profile, 0)
	for _, id := range m.profileOrder {
		if id == viewerID {
			continue
		}
		p := m.profiles[id]
		if p.Age == 0 {
			continue
		}
		out = append(out, cloneProfile(p))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) ProfilesByID(_ context.Context, ids []string) ([]models.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Profile, 0, len(ids))
	for _, id := range ids {
		if p, ok := m.profiles[id]; ok {
			out = append(out, cloneProfile(p))
		}
	}
	return out, nil
}

func (m *MemoryStore) ProfileByVerificationToken(_ context.Context, token string) (models.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if token == "" {
		return models.Profile{}, ErrNotFound
	}
	for _, p := range m.profiles {
		if p.VerificationToken == token {
			return cloneProfile(p), nil
		}
	}
	return models.Profile{}, ErrNotFound
}

func (m *MemoryStore) Preferences(_ context.Context, userID string) (models.Preferences, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.preferences[userID]
	if !ok {
		return models.Preferences{}, ErrNotFound
	}
	p.Interests = append([]string(nil), p.Interests...)
	return p, nil
}

func (m *MemoryStore) UpsertPreferences(_ context.Context, p models.Preferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.UpdatedAt = m.now()
	p.Interests = append([]string(nil), p.Interests...)
	m.preferences[p.UserID] = p
	return nil
}

func (m *MemoryStore) RecordDecision(_ context.Context, d models.Decision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = m.now()
	}
	m.decisions[[2]string{d.ViewerID, d.CandidateID}] = d
	return nil
}

func (m *MemoryStore) Liked(_ context.Context, viewerID, candidateID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.decisions[[2]string{viewerID, candidateID}]
	return ok && d.Liked, nil
}

func (m *MemoryStore) CreateConversation(_ context.Context, c models.Conversation) (models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.Participants = models.PairOf(c.Participants[0], c.Participants[1])
	if id, ok := m.convByPair[c.Participants]; ok {
		return m.conversations[id], nil
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = m.now()
	}
	m.conversations[c.ID] = c
	m.convByPair[c.Participants] = c.ID
	return c, nil
}

func (m *MemoryStore) Conversation(_ context.Context, id string) (models.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.conversations[id]
	if !ok {
		return models.Conversation{}, ErrNotFound
	}
	return c, nil
}

func (m *MemoryStore) ConversationByPair(_ context.Context, a, b string) (models.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.convByPair[models.PairOf(a, b)]
	if !ok {
		return models.Conversation{}, ErrNotFound
	}
	return m.conversations[id], nil
}

func (m *MemoryStore) ConversationsFor(_ context.Context, userID string) ([]models.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Conversation
	for _, c := range m.conversations {
		if c.Has(userID) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) AppendMessage(_ context.Context, msg models.Message) (models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.messages[msg.ConversationID]
	msg.Seq = 1
	msg.CreatedAt = m.now()
	if n := len(list); n > 0 {
		last := list[n-1]
		msg.Seq = last.Seq + 1
		if msg.CreatedAt.Before(last.CreatedAt) {
			msg.CreatedAt = last.CreatedAt
		}
	}
	m.messages[msg.ConversationID] = append(list, msg)
	return msg, nil
}

func (m *MemoryStore) Messages(_ context.Context, conversationID string, limit int) ([]models.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.messages[conversationID]
	if limit > 0 && len(list) > limit {
		list = list[len(list)-limit:]
	}
	return append([]models.Message(nil), list...), nil
}

func (m *MemoryStore) Product(_ context.Context, id string) (models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return models.Product{}, ErrNotFound
	}
	return p, nil
}

func (m *MemoryStore) Products(context.Context) ([]models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Product, 0, len(m.productOrder))
	for _, id := range m.productOrder {
		out = append(out, m.products[id])
	}
	return out, nil
}

func (m *MemoryStore) UpsertProduct(_ context.Context, p models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[p.ID]; !ok {
		m.productOrder = append(m.productOrder, p.ID)
	}
	m.products[p.ID] = p
	return nil
}

func (m *MemoryStore) VendorConversation(_ context.Context, id string) (models.VendorConversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.vendorConvs[id]
	if !ok {
		return models.VendorConversation{}, ErrNotFound
	}
	return c, nil
}

func (m *MemoryStore) CreateVendorConversation(_ context.Context, c models.VendorConversation) (models.VendorConversation, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]string{c.BuyerID, c.ProductID}
	if id, ok := m.vendorByKey[key]; ok {
		return m.vendorConvs[id], false, nil
	}
	now := m.now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if c.Status == "" {
		c.Status = models.StatusOpen
	}
	m.vendorConvs[c.ID] = c
	m.vendorByKey[key] = c.ID
	return c, true, nil
}

func (m *MemoryStore) VendorConversationsFor(_ context.Context, buyerID string) ([]models.VendorConversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.VendorConversation
	for _, c := range m.vendorConvs {
		if c.BuyerID == buyerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *MemoryStore) SetVendorConversationStatus(_ context.Context, id string, status models.ConversationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.vendorConvs[id]
	if !ok {
		return ErrNotFound
	}
	c.Status = status
	c.UpdatedAt = m.now()
	m.vendorConvs[id] = c
	return nil
}

func (m *MemoryStore) SetNegotiatedPrice(_ context.Context, id string, price models.Cents) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.vendorConvs[id]
	if !ok {
		return ErrNotFound
	}
	c.NegotiatedPriceCents = &price
	c.UpdatedAt = m.now()
	m.vendorConvs[id] = c
	return nil
}

func (m *MemoryStore) CreateOrder(_ context.Context, o models.DemoOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[o.ReceiptID]; ok {
		return ErrConflict
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = m.now()
	}
	m.orders[o.ReceiptID] = o
	return nil
}

func (m *MemoryStore) Order(_ context.Context, receiptID string) (models.DemoOrder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[receiptID]
	if !ok {
		return models.DemoOrder{}, ErrNotFound
	}
	return o, nil
}

func (m *MemoryStore) DeleteOrder(_ context.Context, receiptID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.orders, receiptID)
	return nil
}

func cloneProfile(p models.Profile) models.Profile {
	p.Interests = append([]string(nil), p.Interests...)
	p.Photos = append([]string(nil), p.Photos...)
	if p.Location != nil {
		l := *p.Location
		p.Location = &l
	}
	return p
}
