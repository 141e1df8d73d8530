package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/example/guilda/internal/models"
)

// PostgresStore persists Guilda state with lib/pq. Writes are last-writer-wins
// upserts.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromDB wraps an existing handle.
func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

func (p *PostgresStore) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }
func (p *PostgresStore) Close() error                   { return p.db.Close() }

// Migrate executes a schema script.
func (p *PostgresStore) Migrate(ctx context.Context, script string) error {
	_, err := p.db.ExecContext(ctx, script)
	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (p *PostgresStore) CreateUser(ctx context.Context, u models.User) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO users(id, email, password_hash, role, created_at) VALUES($1, lower($2), $3, $4, $5)`,
		u.ID, u.Email, u.PasswordHash, string(u.Role), u.CreatedAt)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (p *PostgresStore) UserByEmail(ctx context.Context, email string) (models.User, error) {
	return p.scanUser(p.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, role, created_at FROM users WHERE email = lower($1)`, email))
}

func (p *PostgresStore) UserByID(ctx context.Context, id string) (models.User, error) {
	return p.scanUser(p.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, role, created_at FROM users WHERE id = $1`, id))
}

func (p *PostgresStore) scanUser(row *sql.Row) (models.User, error) {
	var u models.User
	var role string
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &role, &u.CreatedAt); err != nil {
		return models.User{}, notFound(err)
	}
	u.Role = models.Role(role)
	return u, nil
}

const profileColumns = `id, display_name, age, gender, city, latitude, longitude, age_min, age_max,
	max_distance, interests, bio, image_url, photos, role, vendor_status, email_verified,
	verification_token, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (models.Profile, error) {
	var (
		pr                         models.Profile
		gender, role, vendorStatus string
		lat, lon                   sql.NullFloat64
		token                      sql.NullString
		interests, photos          []string
	)
	err := row.Scan(&pr.ID, &pr.DisplayName, &pr.Age, &gender, &pr.City, &lat, &lon, &pr.AgeMin, &pr.AgeMax,
		&pr.MaxDistanceKm, pq.Array(&interests), &pr.Bio, &pr.ImageURL, pq.Array(&photos), &role, &vendorStatus,
		&pr.EmailVerified, &token, &pr.UpdatedAt)
	if err != nil {
		return models.Profile{}, notFound(err)
	}
	pr.Gender = models.Gender(gender)
	pr.Role = models.Role(role)
	pr.VendorStatus = models.VendorStatus(vendorStatus)
	pr.Interests = interests
	pr.Photos = photos
	pr.VerificationToken = token.String
	if lat.Valid && lon.Valid {
		pr.Location = &models.Coord{Lat: lat.Float64, Lon: lon.Float64}
	}
	return pr, nil
}

func coordArgs(c *models.Coord) (sql.NullFloat64, sql.NullFloat64) {
	if c == nil {
		return sql.NullFloat64{}, sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: c.Lat, Valid: true}, sql.NullFloat64{Float64: c.Lon, Valid: true}
}

func (p *PostgresStore) Profile(ctx context.Context, id string) (models.Profile, error) {
	return scanProfile(p.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
}

func (p *PostgresStore) UpsertProfile(ctx context.Context, pr models.Profile) error {
	lat, lon := coordArgs(pr.Location)
	token := sql.NullString{String: pr.VerificationToken, Valid: pr.VerificationToken != ""}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO profiles(`+profileColumns+`)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,now())
		ON CONFLICT (id) DO UPDATE SET
			display_name=EXCLUDED.display_name, age=EXCLUDED.age, gender=EXCLUDED.gender, city=EXCLUDED.city,
			latitude=EXCLUDED.latitude, longitude=EXCLUDED.longitude, age_min=EXCLUDED.age_min,
			age_max=EXCLUDED.age_max, max_distance=EXCLUDED.max_distance, interests=EXCLUDED.interests,
			bio=EXCLUDED.bio, image_url=EXCLUDED.image_url, photos=EXCLUDED.photos, role=EXCLUDED.role,
			vendor_status=EXCLUDED.vendor_status, email_verified=EXCLUDED.email_verified,
			verification_token=EXCLUDED.verification_token, updated_at=now()`,
		pr.ID, pr.DisplayName, pr.Age, string(pr.Gender), pr.City, lat, lon, pr.AgeMin, pr.AgeMax,
		pr.MaxDistanceKm, pq.Array(nonNil(pr.Interests)), pr.Bio, pr.ImageURL, pq.Array(nonNil(pr.Photos)),
		string(pr.Role), string(pr.VendorStatus), pr.EmailVerified, token)
	return err
}

func (p *PostgresStore) Candidates(ctx context.Context, viewerID string, limit int) ([]models.Profile, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id <> $1 AND age > 0 ORDER BY updated_at DESC, id LIMIT $2`,
		viewerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProfiles(rows)
}

func (p *PostgresStore) ProfilesByID(ctx context.Context, ids []string) ([]models.Profile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := p.db.QueryContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	found, err := collectProfiles(rows)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Profile, len(found))
	for _, pr := range found {
		byID[pr.ID] = pr
	}
	out := make([]models.Profile, 0, len(ids))
	for _, id := range ids {
		if pr, ok := byID[id]; ok {
			out = append(out, pr)
		}
	}
	return out, nil
}

func collectProfiles(rows *sql.Rows) ([]models.Profile, error) {
	var out []models.Profile
	for rows.Next() {
		pr, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

func (p *PostgresStore) ProfileByVerificationToken(ctx context.Context, token string) (models.Profile, error) {
	if token == "" {
		return models.Profile{}, ErrNotFound
	}
	return scanProfile(p.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE verification_token = $1`, token))
}

func (p *PostgresStore) Preferences(ctx context.Context, userID string) (models.Preferences, error) {
	var (
		pr        models.Preferences
		gender    string
		lat, lon  sql.NullFloat64
		interests []string
	)
	err := p.db.QueryRowContext(ctx, `
		SELECT user_id, gender, age_min, age_max, max_distance, interests, city, latitude, longitude, updated_at
		FROM preferences WHERE user_id = $1`, userID).
		Scan(&pr.UserID, &gender, &pr.AgeMin, &pr.AgeMax, &pr.MaxDistanceKm, pq.Array(&interests), &pr.City, &lat, &lon, &pr.UpdatedAt)
	if err != nil {
		return models.Preferences{}, notFound(err)
	}
	pr.Gender = models.Gender(gender)
	pr.Interests = interests
	if lat.Valid && lon.Valid {
		pr.Location = &models.Coord{Lat: lat.Float64, Lon: lon.Float64}
	}
	return pr, nil
}

func (p *PostgresStore) UpsertPreferences(ctx context.Context, pr models.Preferences) error {
	lat, lon := coordArgs(pr.Location)
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO preferences(user_id, gender, age_min, age_max, max_distance, interests, city, latitude, longitude, updated_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,now())
		ON CONFLICT (user_id) DO UPDATE SET
			gender=EXCLUDED.gender, age_min=EXCLUDED.age_min, age_max=EXCLUDED.age_max,
			max_distance=EXCLUDED.max_distance, interests=EXCLUDED.interests, city=EXCLUDED.city,
			latitude=EXCLUDED.latitude, longitude=EXCLUDED.longitude, updated_at=now()`,
		pr.UserID, string(pr.Gender), pr.AgeMin, pr.AgeMax, pr.MaxDistanceKm, pq.Array(nonNil(pr.Interests)), pr.City, lat, lon)
	return err
}

func (p *PostgresStore) RecordDecision(ctx context.Context, d models.Decision) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO decisions(viewer_id, candidate_id, liked, created_at) VALUES($1,$2,$3,now())
		ON CONFLICT (viewer_id, candidate_id) DO UPDATE SET liked=EXCLUDED.liked, created_at=now()`,
		d.ViewerID, d.CandidateID, d.Liked)
	return err
}

func (p *PostgresStore) Liked(ctx context.Context, viewerID, candidateID string) (bool, error) {
	var liked bool
	err := p.db.QueryRowContext(ctx, `SELECT liked FROM decisions WHERE viewer_id=$1 AND candidate_id=$2`, viewerID, candidateID).Scan(&liked)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return liked, err
}

func (p *PostgresStore) CreateConversation(ctx context.Context, c models.Conversation) (models.Conversation, error) {
	c.Participants = models.PairOf(c.Participants[0], c.Participants[1])
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO conversations(id, user1_id, user2_id, created_at) VALUES($1,$2,$3,now())
		ON CONFLICT (user1_id, user2_id) DO NOTHING`, c.ID, c.Participants[0], c.Participants[1])
	if err != nil {
		return models.Conversation{}, err
	}
	return p.ConversationByPair(ctx, c.Participants[0], c.Participants[1])
}

func (p *PostgresStore) Conversation(ctx context.Context, id string) (models.Conversation, error) {
	var c models.Conversation
	err := p.db.QueryRowContext(ctx, `SELECT id, user1_id, user2_id, created_at FROM conversations WHERE id=$1`, id).
		Scan(&c.ID, &c.Participants[0], &c.Participants[1], &c.CreatedAt)
	return c, notFound(err)
}

func (p *PostgresStore) ConversationByPair(ctx context.Context, a, b string) (models.Conversation, error) {
	pair := models.PairOf(a, b)
	var c models.Conversation
	err := p.db.QueryRowContext(ctx, `SELECT id, user1_id, user2_id, created_at FROM conversations WHERE user1_id=$1 AND user2_id=$2`, pair[0], pair[1]).
		Scan(&c.ID, &c.Participants[0], &c.Participants[1], &c.CreatedAt)
	return c, notFound(err)
}

func (p *PostgresStore) ConversationsFor(ctx context.Context, userID string) ([]models.Conversation, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user1_id, user2_id, created_at FROM conversations
		WHERE user1_id=$1 OR user2_id=$1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Conversation
	for rows.Next() {
		var c models.Conversation
		if err := rows.Scan(&c.ID, &c.Participants[0], &c.Participants[1], &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// AppendMessage computes the next seq in the insert itself; a concurrent
// writer that wins the same seq trips the unique constraint and we retry.
func (p *PostgresStore) AppendMessage(ctx context.Context, m models.Message) (models.Message, error) {
	const attempts = 3
	var err error
	for i := 0; i < attempts; i++ {
		err = p.db.QueryRowContext(ctx, `
			INSERT INTO messages(id, conversation_id, sender_id, content, message_type, seq, created_at)
			SELECT $1, $2, $3, $4, $5, COALESCE(MAX(seq), 0) + 1, GREATEST(now(), COALESCE(MAX(created_at), now()))
			FROM messages WHERE conversation_id = $2
			RETURNING seq, created_at`,
			m.ID, m.ConversationID, m.SenderID, m.Content, string(m.Type)).Scan(&m.Seq, &m.CreatedAt)
		if err == nil {
			return m, nil
		}
		if !isUniqueViolation(err) {
			break
		}
	}
	return models.Message{}, fmt.Errorf("append message: %w", err)
}

func (p *PostgresStore) Messages(ctx context.Context, conversationID string, limit int) ([]models.Message, error) {
	q := `SELECT id, conversation_id, sender_id, content, message_type, seq, created_at
		FROM messages WHERE conversation_id=$1 ORDER BY seq`
	args := []any{conversationID}
	if limit > 0 {
		q = `SELECT * FROM (
			SELECT id, conversation_id, sender_id, content, message_type, seq, created_at
			FROM messages WHERE conversation_id=$1 ORDER BY seq DESC LIMIT $2) t ORDER BY seq`
		args = append(args, limit)
	}
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Message
	for rows.Next() {
		var m models.Message
		var typ string
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &typ, &m.Seq, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Type = models.MessageType(typ)
		out = append(out, m)
	}
	return out, rows.Err()
}

const productColumns = `id, name, price_cents, category, fandom, description, image_url, is_official, seller_id`

func scanProduct(row rowScanner) (models.Product, error) {
	var pr models.Product
	var price int64
	err := row.Scan(&pr.ID, &pr.Name, &price, &pr.Category, &pr.Fandom, &pr.Description, &pr.ImageURL, &pr.Official, &pr.SellerID)
	if err != nil {
		return models.Product{}, notFound(err)
	}
	pr.PriceCents = models.Cents(price)
	return pr, nil
}

func (p *PostgresStore) Product(ctx context.Context, id string) (models.Product, error) {
	return scanProduct(p.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id))
}

func (p *PostgresStore) Products(ctx context.Context) ([]models.Product, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Product
	for rows.Next() {
		pr, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

func (p *PostgresStore) UpsertProduct(ctx context.Context, pr models.Product) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO products(`+productColumns+`) VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, price_cents=EXCLUDED.price_cents,
			category=EXCLUDED.category, fandom=EXCLUDED.fandom, description=EXCLUDED.description,
			image_url=EXCLUDED.image_url, is_official=EXCLUDED.is_official, seller_id=EXCLUDED.seller_id`,
		pr.ID, pr.Name, int64(pr.PriceCents), pr.Category, pr.Fandom, pr.Description, pr.ImageURL, pr.Official, pr.SellerID)
	return err
}

const vendorColumns = `id, buyer_id, seller_id, product_id, negotiated_price, status, created_at, updated_at`

func scanVendorConversation(row rowScanner) (models.VendorConversation, error) {
	var c models.VendorConversation
	var price sql.NullInt64
	var status string
	if err := row.Scan(&c.ID, &c.BuyerID, &c.SellerID, &c.ProductID, &price, &status, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return models.VendorConversation{}, notFound(err)
	}
	c.Status = models.ConversationStatus(status)
	if price.Valid {
		v := models.Cents(price.Int64)
		c.NegotiatedPriceCents = &v
	}
	return c, nil
}

func (p *PostgresStore) VendorConversation(ctx context.Context, id string) (models.VendorConversation, error) {
	return scanVendorConversation(p.db.QueryRowContext(ctx, `SELECT `+vendorColumns+` FROM vendor_conversations WHERE id=$1`, id))
}

func (p *PostgresStore) CreateVendorConversation(ctx context.Context, c models.VendorConversation) (models.VendorConversation, bool, error) {
	if c.Status == "" {
		c.Status = models.StatusOpen
	}
	var price sql.NullInt64
	if c.NegotiatedPriceCents != nil {
		price = sql.NullInt64{Int64: int64(*c.NegotiatedPriceCents), Valid: true}
	}
	res, err := p.db.ExecContext(ctx, `
		INSERT INTO vendor_conversations(`+vendorColumns+`) VALUES($1,$2,$3,$4,$5,$6,now(),now())
		ON CONFLICT (buyer_id, product_id) DO NOTHING`,
		c.ID, c.BuyerID, c.SellerID, c.ProductID, price, string(c.Status))
	if err != nil {
		return models.VendorConversation{}, false, err
	}
	n, _ := res.RowsAffected()
	got, err := scanVendorConversation(p.db.QueryRowContext(ctx,
		`SELECT `+vendorColumns+` FROM vendor_conversations WHERE buyer_id=$1 AND product_id=$2`, c.BuyerID, c.ProductID))
	return got, n == 1, err
}

func (p *PostgresStore) VendorConversationsFor(ctx context.Context, buyerID string) ([]models.VendorConversation, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+vendorColumns+` FROM vendor_conversations WHERE buyer_id=$1 ORDER BY updated_at DESC`, buyerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.VendorConversation
	for rows.Next() {
		c, err := scanVendorConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (p *PostgresStore) SetVendorConversationStatus(ctx context.Context, id string, status models.ConversationStatus) error {
	res, err := p.db.ExecContext(ctx, `UPDATE vendor_conversations SET status=$1, updated_at=now() WHERE id=$2`, string(status), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) SetNegotiatedPrice(ctx context.Context, id string, price models.Cents) error {
	res, err := p.db.ExecContext(ctx, `UPDATE vendor_conversations SET negotiated_price=$1, updated_at=now() WHERE id=$2`, int64(price), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) CreateOrder(ctx context.Context, o models.DemoOrder) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO demo_orders(receipt_id, buyer_id, product_id, conversation_id, total_cents, status, created_at)
		VALUES($1,$2,$3,$4,$5,$6,now())`,
		o.ReceiptID, o.BuyerID, o.ProductID, o.ConversationID, int64(o.TotalCents), o.Status)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (p *PostgresStore) Order(ctx context.Context, receiptID string) (models.DemoOrder, error) {
	var o models.DemoOrder
	var total int64
	err := p.db.QueryRowContext(ctx, `
		SELECT receipt_id, buyer_id, product_id, conversation_id, total_cents, status, created_at
		FROM demo_orders WHERE receipt_id=$1`, receiptID).
		Scan(&o.ReceiptID, &o.BuyerID, &o.ProductID, &o.ConversationID, &total, &o.Status, &o.CreatedAt)
	if err != nil {
		return models.DemoOrder{}, notFound(err)
	}
	o.TotalCents = models.Cents(total)
	return o, nil
}

func (p *PostgresStore) DeleteOrder(ctx context.Context, receiptID string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM demo_orders WHERE receipt_id=$1`, receiptID)
	return err
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
