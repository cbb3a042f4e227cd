package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"flatwatch/internal/domain"
)

// PostgresStore persists contacts and forms with hash-level dedup.
// Duplicate hashes are absorbed by ON CONFLICT DO NOTHING, so
// concurrent duplicate inserts stay idempotent without application
// locking.
type PostgresStore struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgresStore(ctx context.Context, connStr string, logger *zap.Logger) (*PostgresStore, error) {
	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	return &PostgresStore{db: db, logger: logger}, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) Close() {
	s.db.Close()
}

// InitSchema creates the tables and indexes if missing.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS contacts (
			id BIGSERIAL PRIMARY KEY,
			contact_hash TEXT NOT NULL UNIQUE,
			method TEXT NOT NULL,
			value TEXT NOT NULL,
			confidence TEXT NOT NULL,
			verification_status TEXT NOT NULL,
			source_url TEXT NOT NULL,
			discovery_path JSONB NOT NULL DEFAULT '[]',
			metadata JSONB NOT NULL DEFAULT '{}',
			listing_id TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS contact_forms (
			id BIGSERIAL PRIMARY KEY,
			form_hash TEXT NOT NULL UNIQUE,
			action_url TEXT NOT NULL,
			method TEXT NOT NULL,
			fields JSONB NOT NULL DEFAULT '[]',
			required_fields JSONB NOT NULL DEFAULT '[]',
			csrf_token TEXT,
			source_url TEXT NOT NULL,
			confidence TEXT NOT NULL,
			listing_id TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_contacts_method ON contacts (method)`,
		`CREATE INDEX IF NOT EXISTS idx_contacts_source_url ON contacts (source_url)`,
		`CREATE INDEX IF NOT EXISTS idx_contacts_hash ON contacts (contact_hash)`,
		`CREATE INDEX IF NOT EXISTS idx_contacts_listing ON contacts (listing_id)`,
		`CREATE INDEX IF NOT EXISTS idx_forms_action_url ON contact_forms (action_url)`,
		`CREATE INDEX IF NOT EXISTS idx_forms_listing ON contact_forms (listing_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// StoreContact inserts a contact. Returns true when a new row was
// created; false means the exact hash was already present, which is not
// an error.
func (s *PostgresStore) StoreContact(ctx context.Context, c *domain.Contact, listingID string) (bool, error) {
	path, err := json.Marshal(c.DiscoveryPath)
	if err != nil {
		return false, fmt.Errorf("encode discovery path: %w", err)
	}
	meta, err := json.Marshal(c.Metadata)
	if err != nil {
		return false, fmt.Errorf("encode metadata: %w", err)
	}

	tag, err := s.db.Exec(ctx,
		`INSERT INTO contacts
		   (contact_hash, method, value, confidence, verification_status,
		    source_url, discovery_path, metadata, listing_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10)
		 ON CONFLICT (contact_hash) DO NOTHING`,
		c.Hash, string(c.Method), sanitizeValue(c.Value), string(c.Confidence),
		string(c.Status), sanitizeURL(c.SourceURL), path, meta, listingID, c.Timestamp,
	)
	if err != nil {
		return false, fmt.Errorf("insert contact: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// StoreForm inserts a contact form with the same insert-or-ignore
// semantics as StoreContact.
func (s *PostgresStore) StoreForm(ctx context.Context, f *domain.ContactForm, listingID string) (bool, error) {
	fields, err := json.Marshal(f.Fields)
	if err != nil {
		return false, fmt.Errorf("encode fields: %w", err)
	}
	required, err := json.Marshal(f.RequiredFields)
	if err != nil {
		return false, fmt.Errorf("encode required fields: %w", err)
	}

	tag, err := s.db.Exec(ctx,
		`INSERT INTO contact_forms
		   (form_hash, action_url, method, fields, required_fields,
		    csrf_token, source_url, confidence, listing_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, NULLIF($9, ''), $10)
		 ON CONFLICT (form_hash) DO NOTHING`,
		f.Hash, sanitizeURL(f.ActionURL), f.Method, fields, required,
		f.CSRFToken, sanitizeURL(f.SourceURL), string(f.Confidence), listingID, f.Timestamp,
	)
	if err != nil {
		return false, fmt.Errorf("insert form: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// StoreResult counts the outcome of one batch store.
type StoreResult struct {
	Stored     int `json:"stored"`
	Duplicates int `json:"duplicates"`
	Failed     int `json:"failed"`
}

// StoreContacts stores a batch, absorbing per-row failures into the
// result instead of aborting.
func (s *PostgresStore) StoreContacts(ctx context.Context, contacts []*domain.Contact, listingID string) StoreResult {
	var result StoreResult
	for _, c := range contacts {
		created, err := s.StoreContact(ctx, c, listingID)
		switch {
		case err != nil:
			result.Failed++
			s.logger.Error("contact store failed",
				zap.String("hash", c.Hash), zap.Error(err))
		case created:
			result.Stored++
		default:
			result.Duplicates++
		}
	}
	return result
}

// StoreForms stores a batch of forms, same contract as StoreContacts.
func (s *PostgresStore) StoreForms(ctx context.Context, forms []*domain.ContactForm, listingID string) StoreResult {
	var result StoreResult
	for _, f := range forms {
		created, err := s.StoreForm(ctx, f, listingID)
		switch {
		case err != nil:
			result.Failed++
			s.logger.Error("form store failed",
				zap.String("hash", f.Hash), zap.Error(err))
		case created:
			result.Stored++
		default:
			result.Duplicates++
		}
	}
	return result
}

// StoredContact is a persisted contact row.
type StoredContact struct {
	ID            int64             `json:"id"`
	Hash          string            `json:"contact_hash"`
	Method        string            `json:"method"`
	Value         string            `json:"value"`
	Confidence    string            `json:"confidence"`
	Status        string            `json:"verification_status"`
	SourceURL     string            `json:"source_url"`
	DiscoveryPath []string          `json:"discovery_path"`
	Metadata      map[string]string `json:"metadata"`
	ListingID     string            `json:"listing_id,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

const selectContact = `SELECT id, contact_hash, method, value, confidence,
	verification_status, source_url, discovery_path, metadata,
	COALESCE(listing_id, ''), created_at FROM contacts`

// GetContactsByListing returns contacts associated with a listing.
func (s *PostgresStore) GetContactsByListing(ctx context.Context, listingID string) ([]StoredContact, error) {
	return s.queryContacts(ctx, selectContact+` WHERE listing_id = $1 ORDER BY created_at DESC`, listingID)
}

// GetContactsBySource returns contacts discovered on a source URL.
func (s *PostgresStore) GetContactsBySource(ctx context.Context, sourceURL string) ([]StoredContact, error) {
	return s.queryContacts(ctx, selectContact+` WHERE source_url = $1 ORDER BY created_at DESC`, sanitizeURL(sourceURL))
}

// GetContactsByMethod returns contacts of one method.
func (s *PostgresStore) GetContactsByMethod(ctx context.Context, method domain.ContactMethod) ([]StoredContact, error) {
	return s.queryContacts(ctx, selectContact+` WHERE method = $1 ORDER BY created_at DESC`, string(method))
}

// SearchContacts matches the query against value and metadata.
func (s *PostgresStore) SearchContacts(ctx context.Context, query string, limit int) ([]StoredContact, error) {
	if limit <= 0 {
		limit = 100
	}
	pattern := "%" + query + "%"
	return s.queryContacts(ctx,
		selectContact+` WHERE value ILIKE $1 OR metadata::text ILIKE $1
		 ORDER BY created_at DESC LIMIT $2`,
		pattern, limit)
}

func (s *PostgresStore) queryContacts(ctx context.Context, sql string, args ...any) ([]StoredContact, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query contacts: %w", err)
	}
	defer rows.Close()

	var contacts []StoredContact
	for rows.Next() {
		var (
			c        StoredContact
			path     []byte
			metadata []byte
		)
		if err := rows.Scan(&c.ID, &c.Hash, &c.Method, &c.Value, &c.Confidence,
			&c.Status, &c.SourceURL, &path, &metadata, &c.ListingID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		if err := json.Unmarshal(path, &c.DiscoveryPath); err != nil {
			return nil, fmt.Errorf("decode discovery path: %w", err)
		}
		if err := json.Unmarshal(metadata, &c.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// Statistics aggregates the stored contact corpus.
type Statistics struct {
	TotalContacts  int            `json:"total_contacts"`
	TotalForms     int            `json:"total_forms"`
	ByMethod       map[string]int `json:"contacts_by_method"`
	ByStatus       map[string]int `json:"contacts_by_status"`
	ByConfidence   map[string]int `json:"contacts_by_confidence"`
	RecentContacts int            `json:"recent_contacts_7_days"`
	TopSources     []SourceCount  `json:"top_sources"`
}

// SourceCount is one entry of the top-sources breakdown.
type SourceCount struct {
	SourceURL string `json:"source_url"`
	Contacts  int    `json:"contacts"`
}

// GetContactStatistics computes totals and the per-dimension breakdowns.
func (s *PostgresStore) GetContactStatistics(ctx context.Context) (*Statistics, error) {
	stats := &Statistics{
		ByMethod:     make(map[string]int),
		ByStatus:     make(map[string]int),
		ByConfidence: make(map[string]int),
	}

	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM contacts`).Scan(&stats.TotalContacts); err != nil {
		return nil, fmt.Errorf("count contacts: %w", err)
	}
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM contact_forms`).Scan(&stats.TotalForms); err != nil {
		return nil, fmt.Errorf("count forms: %w", err)
	}
	if err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM contacts WHERE created_at > NOW() - INTERVAL '7 days'`,
	).Scan(&stats.RecentContacts); err != nil {
		return nil, fmt.Errorf("count recent contacts: %w", err)
	}

	breakdowns := []struct {
		column string
		target map[string]int
	}{
		{"method", stats.ByMethod},
		{"verification_status", stats.ByStatus},
		{"confidence", stats.ByConfidence},
	}
	for _, b := range breakdowns {
		if err := s.loadBreakdown(ctx, b.column, b.target); err != nil {
			return nil, err
		}
	}

	rows, err := s.db.Query(ctx,
		`SELECT source_url, COUNT(*) AS n FROM contacts
		 GROUP BY source_url ORDER BY n DESC LIMIT 10`)
	if err != nil {
		return nil, fmt.Errorf("top sources: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var sc SourceCount
		if err := rows.Scan(&sc.SourceURL, &sc.Contacts); err != nil {
			return nil, fmt.Errorf("scan top source: %w", err)
		}
		stats.TopSources = append(stats.TopSources, sc)
	}
	return stats, rows.Err()
}

func (s *PostgresStore) loadBreakdown(ctx context.Context, column string, target map[string]int) error {
	rows, err := s.db.Query(ctx,
		fmt.Sprintf(`SELECT %s, COUNT(*) FROM contacts GROUP BY %s`, column, column))
	if err != nil {
		return fmt.Errorf("breakdown by %s: %w", column, err)
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("scan breakdown: %w", err)
		}
		target[key] = count
	}
	return rows.Err()
}

// CleanupOldContacts deletes contacts older than the given threshold
// and returns how many rows went away. Destructive; only ever invoked
// explicitly.
func (s *PostgresStore) CleanupOldContacts(ctx context.Context, daysOld int) (int, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM contacts WHERE created_at < NOW() - ($1 * INTERVAL '1 day')`,
		daysOld,
	)
	if err != nil {
		return 0, fmt.Errorf("cleanup contacts: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
