package business

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/suburbmates/directory-cli/internal/model"
)

func TestMain(m *testing.M) {
	zap.ReplaceGlobals(zap.NewNop())
	m.Run()
}

func businessRow(b model.Business) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "name", "suburb", "street", "phone", "email", "website", "category", "description",
		"latitude", "longitude", "abn", "abn_status", "approval_status",
		"has_images", "shows_hours", "engagement_count", "quality_score", "created_at", "updated_at",
	}).AddRow(
		b.ID, b.Name, b.Suburb, b.Street, b.Phone, b.Email, b.Website, b.Category, b.Description,
		b.Latitude, b.Longitude, b.ABN, b.ABNStatus, b.ApprovalStatus,
		b.HasImages, b.ShowsHours, b.EngagementCount, b.QualityScore, b.CreatedAt, b.UpdatedAt,
	)
}

func TestGetBusiness_NotFoundReturnsNilNil(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT .* FROM businesses WHERE id=").
		WithArgs(int64(42)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	store := NewPostgresStore(mock)
	b, err := store.GetBusiness(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestGetBusiness_Found(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	want := model.Business{
		ID: 7, Name: "Smith Plumbing", Suburb: "Richmond",
		Phone: "+61412345678", ABNStatus: model.ABNVerified,
		ApprovalStatus: model.ApprovalApproved, QualityScore: 72,
		CreatedAt: now, UpdatedAt: now,
	}
	mock.ExpectQuery("SELECT .* FROM businesses WHERE id=").
		WithArgs(int64(7)).
		WillReturnRows(businessRow(want))

	store := NewPostgresStore(mock)
	got, err := store.GetBusiness(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.QualityScore, got.QualityScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListBusinesses_AppliesFilter(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	minScore := 50
	mock.ExpectQuery("SELECT .* FROM businesses WHERE 1=1 AND lower\\(suburb\\) = lower\\(\\$1\\) AND quality_score >= \\$2 ORDER BY created_at DESC, id DESC LIMIT \\$3").
		WithArgs("Richmond", 50, 10).
		WillReturnRows(businessRow(model.Business{ID: 1, Name: "A", Suburb: "Richmond", QualityScore: 60}))

	store := NewPostgresStore(mock)
	out, err := store.ListBusinesses(context.Background(), Filter{
		Suburb:   "Richmond",
		MinScore: &minScore,
		Limit:    10,
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(1), out[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateQualityScore_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("UPDATE businesses SET quality_score=").
		WithArgs(int64(99), 80).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	store := NewPostgresStore(mock)
	err = store.UpdateQualityScore(context.Background(), 99, 80)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteBoost_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM quality_boosts WHERE id=").
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	store := NewPostgresStore(mock)
	err = store.DeleteBoost(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPurgeExpiredBoosts(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM quality_boosts WHERE expires_at IS NOT NULL").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	store := NewPostgresStore(mock)
	n, err := store.PurgeExpiredBoosts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestMergeBusinesses_RejectsEmptyDuplicateSet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)
	_, err = store.MergeBusinesses(context.Background(), 1, nil)
	assert.Error(t, err)
}

func TestMergeBusinesses_RejectsPrimaryInDuplicates(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)
	_, err = store.MergeBusinesses(context.Background(), 1, []int64{2, 1})
	assert.Error(t, err)
}

func TestBackfill_FillsEmptyFieldsOnly(t *testing.T) {
	primary := &model.Business{
		ID: 1, Name: "Smith Plumbing", Suburb: "Richmond",
		Phone: "+61412345678", EngagementCount: 3,
	}
	lat, lon := -37.82, 144.99
	dups := []model.Business{
		{
			ID: 2, Phone: "0411111111", Email: "info@smith.example",
			ABN: "12345678901", ABNStatus: model.ABNVerified,
			Latitude: &lat, Longitude: &lon,
			HasImages: true, EngagementCount: 5,
		},
		{ID: 3, Email: "other@smith.example", Website: "https://smith.example", ShowsHours: true},
	}

	filled := backfill(primary, dups)

	assert.Equal(t, "+61412345678", primary.Phone, "existing phone kept")
	assert.Equal(t, "info@smith.example", primary.Email, "first duplicate with a value wins")
	assert.Equal(t, "https://smith.example", primary.Website)
	assert.Equal(t, "12345678901", primary.ABN)
	assert.Equal(t, model.ABNVerified, primary.ABNStatus)
	require.NotNil(t, primary.Latitude)
	assert.True(t, primary.HasImages)
	assert.True(t, primary.ShowsHours)
	assert.Equal(t, 8, primary.EngagementCount, "engagement counts accumulate")
	assert.Contains(t, filled, "email")
	assert.Contains(t, filled, "coordinates")
	assert.NotContains(t, filled, "phone")
}
