package business

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/suburbmates/directory-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Used for local
// development and single-operator deployments.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	d, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := d.Exec(pragma); err != nil {
			d.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: d}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS businesses (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	name             TEXT NOT NULL,
	suburb           TEXT NOT NULL,
	street           TEXT NOT NULL DEFAULT '',
	phone            TEXT NOT NULL DEFAULT '',
	email            TEXT NOT NULL DEFAULT '',
	website          TEXT NOT NULL DEFAULT '',
	category         TEXT NOT NULL DEFAULT '',
	description      TEXT NOT NULL DEFAULT '',
	latitude         REAL,
	longitude        REAL,
	abn              TEXT NOT NULL DEFAULT '',
	abn_status       TEXT NOT NULL DEFAULT 'none',
	approval_status  TEXT NOT NULL DEFAULT 'pending',
	has_images       INTEGER NOT NULL DEFAULT 0,
	shows_hours      INTEGER NOT NULL DEFAULT 0,
	engagement_count INTEGER NOT NULL DEFAULT 0,
	quality_score    INTEGER NOT NULL DEFAULT 0 CHECK (quality_score BETWEEN 0 AND 100),
	created_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (name, suburb)
);
CREATE INDEX IF NOT EXISTS idx_businesses_suburb ON businesses(suburb);
CREATE INDEX IF NOT EXISTS idx_businesses_score ON businesses(quality_score);

CREATE TABLE IF NOT EXISTS quality_boosts (
	id             TEXT PRIMARY KEY,
	business_id    INTEGER NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
	original_score INTEGER NOT NULL,
	boost_amount   INTEGER NOT NULL,
	new_score      INTEGER NOT NULL,
	reason         TEXT NOT NULL,
	category       TEXT NOT NULL DEFAULT '',
	expires_at     DATETIME,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_boosts_business ON quality_boosts(business_id);

CREATE TABLE IF NOT EXISTS admin_audit_log (
	id         TEXT PRIMARY KEY,
	actor      TEXT NOT NULL,
	action     TEXT NOT NULL,
	target_id  TEXT NOT NULL DEFAULT '',
	detail     TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

// Migrate creates the schema if it does not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}
	zap.L().Info("sqlite: schema up to date")
	return nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanBusiness(row interface{ Scan(...any) error }) (*model.Business, error) {
	b := &model.Business{}
	err := row.Scan(
		&b.ID, &b.Name, &b.Suburb, &b.Street, &b.Phone, &b.Email, &b.Website, &b.Category, &b.Description,
		&b.Latitude, &b.Longitude, &b.ABN, &b.ABNStatus, &b.ApprovalStatus,
		&b.HasImages, &b.ShowsHours, &b.EngagementCount, &b.QualityScore, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// CreateBusiness inserts a new listing and sets its ID.
func (s *SQLiteStore) CreateBusiness(ctx context.Context, b *model.Business) error {
	if b.ABNStatus == "" {
		b.ABNStatus = model.ABNNone
	}
	if b.ApprovalStatus == "" {
		b.ApprovalStatus = model.ApprovalPending
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO businesses (
			name, suburb, street, phone, email, website, category, description,
			latitude, longitude, abn, abn_status, approval_status,
			has_images, shows_hours, engagement_count, quality_score, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Name, b.Suburb, b.Street, b.Phone, b.Email, b.Website, b.Category, b.Description,
		b.Latitude, b.Longitude, b.ABN, b.ABNStatus, b.ApprovalStatus,
		b.HasImages, b.ShowsHours, b.EngagementCount, b.QualityScore, now, now,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: create business")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return eris.Wrap(err, "sqlite: last insert id")
	}
	b.ID = id
	b.CreatedAt = now
	b.UpdatedAt = now
	return nil
}

// UpdateBusiness updates an existing listing.
func (s *SQLiteStore) UpdateBusiness(ctx context.Context, b *model.Business) error {
	b.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		UPDATE businesses SET
			name=?, suburb=?, street=?, phone=?, email=?, website=?, category=?, description=?,
			latitude=?, longitude=?, abn=?, abn_status=?, approval_status=?,
			has_images=?, shows_hours=?, engagement_count=?, quality_score=?, updated_at=?
		WHERE id=?`,
		b.Name, b.Suburb, b.Street, b.Phone, b.Email, b.Website, b.Category, b.Description,
		b.Latitude, b.Longitude, b.ABN, b.ABNStatus, b.ApprovalStatus,
		b.HasImages, b.ShowsHours, b.EngagementCount, b.QualityScore, b.UpdatedAt,
		b.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update business %d", b.ID)
	}
	return nil
}

const sqliteBusinessColumns = `id, name, suburb, street, phone, email, website, category, description,
	latitude, longitude, abn, abn_status, approval_status,
	has_images, shows_hours, engagement_count, quality_score, created_at, updated_at`

// GetBusiness fetches a listing by ID. Returns (nil, nil) when absent.
func (s *SQLiteStore) GetBusiness(ctx context.Context, id int64) (*model.Business, error) {
	b, err := scanBusiness(s.db.QueryRowContext(ctx,
		`SELECT `+sqliteBusinessColumns+` FROM businesses WHERE id=?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get business %d", id)
	}
	return b, nil
}

// ListBusinesses returns listings matching the filter, newest first.
func (s *SQLiteStore) ListBusinesses(ctx context.Context, f Filter) ([]model.Business, error) {
	query := `SELECT ` + sqliteBusinessColumns + ` FROM businesses WHERE 1=1`
	var args []any

	if f.Suburb != "" {
		query += " AND lower(suburb) = lower(?)"
		args = append(args, f.Suburb)
	}
	if f.ApprovalStatus != "" {
		query += " AND approval_status = ?"
		args = append(args, f.ApprovalStatus)
	}
	if f.MinScore != nil {
		query += " AND quality_score >= ?"
		args = append(args, *f.MinScore)
	}
	if f.MaxScore != nil {
		query += " AND quality_score <= ?"
		args = append(args, *f.MaxScore)
	}

	query += " ORDER BY created_at DESC, id DESC"

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ?"
	args = append(args, limit)
	if f.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, f.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list businesses")
	}
	defer rows.Close()

	var out []model.Business
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan business row")
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate businesses")
	}
	return out, nil
}

// UpdateQualityScore refreshes the cached effective score without
// touching updated_at, so rescoring never counts as a profile update.
func (s *SQLiteStore) UpdateQualityScore(ctx context.Context, id int64, score int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE businesses SET quality_score=? WHERE id=?`, score, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update score %d", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateBoost inserts a manual boost row.
func (s *SQLiteStore) CreateBoost(ctx context.Context, b *model.ManualBoost) error {
	b.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO quality_boosts (id, business_id, original_score, boost_amount, new_score, reason, category, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.BusinessID, b.OriginalScore, b.BoostAmount, b.NewScore, b.Reason, b.Category, b.ExpiresAt, b.CreatedAt,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: create boost")
	}
	return nil
}

// GetBoost fetches a boost by ID. Returns (nil, nil) when absent.
func (s *SQLiteStore) GetBoost(ctx context.Context, id string) (*model.ManualBoost, error) {
	b := &model.ManualBoost{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, business_id, original_score, boost_amount, new_score, reason, category, expires_at, created_at
		FROM quality_boosts WHERE id=?`, id).
		Scan(&b.ID, &b.BusinessID, &b.OriginalScore, &b.BoostAmount, &b.NewScore, &b.Reason, &b.Category, &b.ExpiresAt, &b.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get boost %s", id)
	}
	return b, nil
}

// ListBoosts returns all boosts for a business, newest first.
func (s *SQLiteStore) ListBoosts(ctx context.Context, businessID int64) ([]model.ManualBoost, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, business_id, original_score, boost_amount, new_score, reason, category, expires_at, created_at
		FROM quality_boosts WHERE business_id=? ORDER BY created_at DESC`, businessID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list boosts %d", businessID)
	}
	defer rows.Close()

	var out []model.ManualBoost
	for rows.Next() {
		var b model.ManualBoost
		if err := rows.Scan(&b.ID, &b.BusinessID, &b.OriginalScore, &b.BoostAmount, &b.NewScore,
			&b.Reason, &b.Category, &b.ExpiresAt, &b.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan boost row")
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate boosts")
	}
	return out, nil
}

// DeleteBoost removes a boost row.
func (s *SQLiteStore) DeleteBoost(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM quality_boosts WHERE id=?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete boost %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// PurgeExpiredBoosts deletes boosts whose expiry has passed.
func (s *SQLiteStore) PurgeExpiredBoosts(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM quality_boosts WHERE expires_at IS NOT NULL AND expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: purge expired boosts")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	return n, nil
}

// MergeBusinesses folds duplicates into the primary in one transaction.
func (s *SQLiteStore) MergeBusinesses(ctx context.Context, primaryID int64, duplicateIDs []int64) (*model.Business, error) {
	if len(duplicateIDs) == 0 {
		return nil, eris.New("business: merge requires at least one duplicate")
	}
	for _, id := range duplicateIDs {
		if id == primaryID {
			return nil, eris.New("business: primary cannot be in the duplicate set")
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: merge: begin tx")
	}
	defer tx.Rollback()

	primary, err := scanBusiness(tx.QueryRowContext(ctx,
		`SELECT `+sqliteBusinessColumns+` FROM businesses WHERE id=?`, primaryID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "sqlite: merge: load primary %d", primaryID)
	}

	var dups []model.Business
	for _, id := range duplicateIDs {
		d, err := scanBusiness(tx.QueryRowContext(ctx,
			`SELECT `+sqliteBusinessColumns+` FROM businesses WHERE id=?`, id))
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, ErrNotFound
			}
			return nil, eris.Wrapf(err, "sqlite: merge: load duplicate %d", id)
		}
		dups = append(dups, *d)
	}

	filled := backfill(primary, dups)

	for _, id := range duplicateIDs {
		if _, err = tx.ExecContext(ctx,
			`UPDATE quality_boosts SET business_id=? WHERE business_id=?`, primaryID, id); err != nil {
			return nil, eris.Wrapf(err, "sqlite: merge: repoint boosts from %d", id)
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM businesses WHERE id=?`, id); err != nil {
			return nil, eris.Wrapf(err, "sqlite: merge: delete duplicate %d", id)
		}
	}

	primary.UpdatedAt = time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		UPDATE businesses SET
			street=?, phone=?, email=?, website=?, category=?, description=?,
			latitude=?, longitude=?, abn=?, abn_status=?,
			has_images=?, shows_hours=?, engagement_count=?, updated_at=?
		WHERE id=?`,
		primary.Street, primary.Phone, primary.Email, primary.Website, primary.Category, primary.Description,
		primary.Latitude, primary.Longitude, primary.ABN, primary.ABNStatus,
		primary.HasImages, primary.ShowsHours, primary.EngagementCount, primary.UpdatedAt,
		primary.ID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: merge: update primary %d", primaryID)
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: merge: commit")
	}

	zap.L().Info("sqlite: merged duplicates",
		zap.Int64("primary_id", primaryID),
		zap.Int64s("duplicate_ids", duplicateIDs),
		zap.Strings("backfilled", filled),
	)

	return primary, nil
}
