package business

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/suburbmates/directory-cli/internal/db"
	"github.com/suburbmates/directory-cli/internal/model"
)

// PostgresStore implements Store using pgx.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgresStore wraps an existing pool (used by tests via pgxmock).
func NewPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// ConnectPostgres creates a PostgresStore with a new connection pool.
func ConnectPostgres(ctx context.Context, connString string, maxConns, minConns int32) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	if maxConns <= 0 {
		maxConns = 10
	}
	if minConns <= 0 {
		minConns = 2
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need
// direct query access (importer, audit recorder).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS businesses (
	id               BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	name             TEXT NOT NULL,
	suburb           TEXT NOT NULL,
	street           TEXT NOT NULL DEFAULT '',
	phone            TEXT NOT NULL DEFAULT '',
	email            TEXT NOT NULL DEFAULT '',
	website          TEXT NOT NULL DEFAULT '',
	category         TEXT NOT NULL DEFAULT '',
	description      TEXT NOT NULL DEFAULT '',
	latitude         DOUBLE PRECISION,
	longitude        DOUBLE PRECISION,
	abn              TEXT NOT NULL DEFAULT '',
	abn_status       TEXT NOT NULL DEFAULT 'none',
	approval_status  TEXT NOT NULL DEFAULT 'pending',
	has_images       BOOLEAN NOT NULL DEFAULT false,
	shows_hours      BOOLEAN NOT NULL DEFAULT false,
	engagement_count INTEGER NOT NULL DEFAULT 0,
	quality_score    INTEGER NOT NULL DEFAULT 0 CHECK (quality_score BETWEEN 0 AND 100),
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (name, suburb)
);
CREATE INDEX IF NOT EXISTS idx_businesses_suburb ON businesses (suburb);
CREATE INDEX IF NOT EXISTS idx_businesses_score ON businesses (quality_score);

CREATE TABLE IF NOT EXISTS quality_boosts (
	id             TEXT PRIMARY KEY,
	business_id    BIGINT NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
	original_score INTEGER NOT NULL,
	boost_amount   INTEGER NOT NULL,
	new_score      INTEGER NOT NULL,
	reason         TEXT NOT NULL,
	category       TEXT NOT NULL DEFAULT '',
	expires_at     TIMESTAMPTZ,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_boosts_business ON quality_boosts (business_id);

CREATE TABLE IF NOT EXISTS admin_audit_log (
	id         TEXT PRIMARY KEY,
	actor      TEXT NOT NULL,
	action     TEXT NOT NULL,
	target_id  TEXT NOT NULL DEFAULT '',
	detail     JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Migrate creates the schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	zap.L().Info("postgres: schema up to date")
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

const businessColumns = `id, name, suburb, street, phone, email, website, category, description,
	latitude, longitude, abn, abn_status, approval_status,
	has_images, shows_hours, engagement_count, quality_score, created_at, updated_at`

func businessDests(b *model.Business) []any {
	return []any{
		&b.ID, &b.Name, &b.Suburb, &b.Street, &b.Phone, &b.Email, &b.Website, &b.Category, &b.Description,
		&b.Latitude, &b.Longitude, &b.ABN, &b.ABNStatus, &b.ApprovalStatus,
		&b.HasImages, &b.ShowsHours, &b.EngagementCount, &b.QualityScore, &b.CreatedAt, &b.UpdatedAt,
	}
}

// CreateBusiness inserts a new listing and sets its ID.
func (s *PostgresStore) CreateBusiness(ctx context.Context, b *model.Business) error {
	if b.ABNStatus == "" {
		b.ABNStatus = model.ABNNone
	}
	if b.ApprovalStatus == "" {
		b.ApprovalStatus = model.ApprovalPending
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO businesses (
			name, suburb, street, phone, email, website, category, description,
			latitude, longitude, abn, abn_status, approval_status,
			has_images, shows_hours, engagement_count, quality_score
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			$9, $10, $11, $12, $13,
			$14, $15, $16, $17
		) RETURNING id, created_at, updated_at`,
		b.Name, b.Suburb, b.Street, b.Phone, b.Email, b.Website, b.Category, b.Description,
		b.Latitude, b.Longitude, b.ABN, b.ABNStatus, b.ApprovalStatus,
		b.HasImages, b.ShowsHours, b.EngagementCount, b.QualityScore,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return eris.Wrap(err, "business: create")
	}
	return nil
}

// UpdateBusiness updates an existing listing.
func (s *PostgresStore) UpdateBusiness(ctx context.Context, b *model.Business) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE businesses SET
			name=$2, suburb=$3, street=$4, phone=$5, email=$6, website=$7, category=$8, description=$9,
			latitude=$10, longitude=$11, abn=$12, abn_status=$13, approval_status=$14,
			has_images=$15, shows_hours=$16, engagement_count=$17, quality_score=$18,
			updated_at=now()
		WHERE id=$1`,
		b.ID,
		b.Name, b.Suburb, b.Street, b.Phone, b.Email, b.Website, b.Category, b.Description,
		b.Latitude, b.Longitude, b.ABN, b.ABNStatus, b.ApprovalStatus,
		b.HasImages, b.ShowsHours, b.EngagementCount, b.QualityScore,
	)
	if err != nil {
		return eris.Wrapf(err, "business: update %d", b.ID)
	}
	return nil
}

// GetBusiness fetches a listing by ID. Returns (nil, nil) when absent.
func (s *PostgresStore) GetBusiness(ctx context.Context, id int64) (*model.Business, error) {
	b := &model.Business{}
	err := s.pool.QueryRow(ctx, `SELECT `+businessColumns+` FROM businesses WHERE id=$1`, id).
		Scan(businessDests(b)...)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "business: get %d", id)
	}
	return b, nil
}

// ListBusinesses returns listings matching the filter, newest first.
func (s *PostgresStore) ListBusinesses(ctx context.Context, f Filter) ([]model.Business, error) {
	query := `SELECT ` + businessColumns + ` FROM businesses WHERE 1=1`
	var args []any

	if f.Suburb != "" {
		args = append(args, f.Suburb)
		query += fmt.Sprintf(" AND lower(suburb) = lower($%d)", len(args))
	}
	if f.ApprovalStatus != "" {
		args = append(args, f.ApprovalStatus)
		query += fmt.Sprintf(" AND approval_status = $%d", len(args))
	}
	if f.MinScore != nil {
		args = append(args, *f.MinScore)
		query += fmt.Sprintf(" AND quality_score >= $%d", len(args))
	}
	if f.MaxScore != nil {
		args = append(args, *f.MaxScore)
		query += fmt.Sprintf(" AND quality_score <= $%d", len(args))
	}

	query += " ORDER BY created_at DESC, id DESC"

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "business: list")
	}
	defer rows.Close()

	var out []model.Business
	for rows.Next() {
		var b model.Business
		if err := rows.Scan(businessDests(&b)...); err != nil {
			return nil, eris.Wrap(err, "business: scan list row")
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "business: iterate list")
	}
	return out, nil
}

// UpdateQualityScore refreshes the cached effective score.
func (s *PostgresStore) UpdateQualityScore(ctx context.Context, id int64, score int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE businesses SET quality_score=$2, updated_at=updated_at WHERE id=$1`, id, score)
	if err != nil {
		return eris.Wrapf(err, "business: update score %d", id)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateBoost inserts a manual boost row.
func (s *PostgresStore) CreateBoost(ctx context.Context, b *model.ManualBoost) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO quality_boosts (id, business_id, original_score, boost_amount, new_score, reason, category, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`,
		b.ID, b.BusinessID, b.OriginalScore, b.BoostAmount, b.NewScore, b.Reason, b.Category, b.ExpiresAt,
	).Scan(&b.CreatedAt)
	if err != nil {
		return eris.Wrap(err, "business: create boost")
	}
	return nil
}

const boostColumns = `id, business_id, original_score, boost_amount, new_score, reason, category, expires_at, created_at`

func boostDests(b *model.ManualBoost) []any {
	return []any{&b.ID, &b.BusinessID, &b.OriginalScore, &b.BoostAmount, &b.NewScore, &b.Reason, &b.Category, &b.ExpiresAt, &b.CreatedAt}
}

// GetBoost fetches a boost by ID. Returns (nil, nil) when absent.
func (s *PostgresStore) GetBoost(ctx context.Context, id string) (*model.ManualBoost, error) {
	b := &model.ManualBoost{}
	err := s.pool.QueryRow(ctx, `SELECT `+boostColumns+` FROM quality_boosts WHERE id=$1`, id).
		Scan(boostDests(b)...)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "business: get boost %s", id)
	}
	return b, nil
}

// ListBoosts returns all boosts for a business, newest first.
func (s *PostgresStore) ListBoosts(ctx context.Context, businessID int64) ([]model.ManualBoost, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+boostColumns+` FROM quality_boosts WHERE business_id=$1 ORDER BY created_at DESC`, businessID)
	if err != nil {
		return nil, eris.Wrapf(err, "business: list boosts %d", businessID)
	}
	defer rows.Close()

	var out []model.ManualBoost
	for rows.Next() {
		var b model.ManualBoost
		if err := rows.Scan(boostDests(&b)...); err != nil {
			return nil, eris.Wrap(err, "business: scan boost row")
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "business: iterate boosts")
	}
	return out, nil
}

// DeleteBoost removes a boost row.
func (s *PostgresStore) DeleteBoost(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM quality_boosts WHERE id=$1`, id)
	if err != nil {
		return eris.Wrapf(err, "business: delete boost %s", id)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// PurgeExpiredBoosts deletes boosts whose expiry has passed.
func (s *PostgresStore) PurgeExpiredBoosts(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM quality_boosts WHERE expires_at IS NOT NULL AND expires_at <= now()`)
	if err != nil {
		return 0, eris.Wrap(err, "business: purge expired boosts")
	}
	return tag.RowsAffected(), nil
}

// MergeBusinesses folds duplicates into the primary in one transaction.
func (s *PostgresStore) MergeBusinesses(ctx context.Context, primaryID int64, duplicateIDs []int64) (*model.Business, error) {
	if len(duplicateIDs) == 0 {
		return nil, eris.New("business: merge requires at least one duplicate")
	}
	for _, id := range duplicateIDs {
		if id == primaryID {
			return nil, eris.New("business: primary cannot be in the duplicate set")
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "business: merge: begin tx")
	}
	defer tx.Rollback(ctx)

	primary := &model.Business{}
	err = tx.QueryRow(ctx, `SELECT `+businessColumns+` FROM businesses WHERE id=$1 FOR UPDATE`, primaryID).
		Scan(businessDests(primary)...)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "business: merge: load primary %d", primaryID)
	}

	var dups []model.Business
	for _, id := range duplicateIDs {
		var d model.Business
		err = tx.QueryRow(ctx, `SELECT `+businessColumns+` FROM businesses WHERE id=$1 FOR UPDATE`, id).
			Scan(businessDests(&d)...)
		if err != nil {
			if err == pgx.ErrNoRows {
				return nil, ErrNotFound
			}
			return nil, eris.Wrapf(err, "business: merge: load duplicate %d", id)
		}
		dups = append(dups, d)
	}

	filled := backfill(primary, dups)

	for _, id := range duplicateIDs {
		if _, err = tx.Exec(ctx,
			`UPDATE quality_boosts SET business_id=$1 WHERE business_id=$2`, primaryID, id); err != nil {
			return nil, eris.Wrapf(err, "business: merge: repoint boosts from %d", id)
		}
		if _, err = tx.Exec(ctx, `DELETE FROM businesses WHERE id=$1`, id); err != nil {
			return nil, eris.Wrapf(err, "business: merge: delete duplicate %d", id)
		}
	}

	_, err = tx.Exec(ctx, `
		UPDATE businesses SET
			street=$2, phone=$3, email=$4, website=$5, category=$6, description=$7,
			latitude=$8, longitude=$9, abn=$10, abn_status=$11,
			has_images=$12, shows_hours=$13, engagement_count=$14,
			updated_at=now()
		WHERE id=$1`,
		primary.ID,
		primary.Street, primary.Phone, primary.Email, primary.Website, primary.Category, primary.Description,
		primary.Latitude, primary.Longitude, primary.ABN, primary.ABNStatus,
		primary.HasImages, primary.ShowsHours, primary.EngagementCount,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "business: merge: update primary %d", primaryID)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "business: merge: commit")
	}

	zap.L().Info("business: merged duplicates",
		zap.Int64("primary_id", primaryID),
		zap.Int64s("duplicate_ids", duplicateIDs),
		zap.Strings("backfilled", filled),
	)

	return primary, nil
}
