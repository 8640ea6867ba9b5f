package importer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	zap.ReplaceGlobals(zap.NewNop())
	m.Run()
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registry.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRun_LocalCSV(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	path := writeCSV(t, "Business Name,Suburb,Phone,Website\n"+
		"Smith Plumbing,Richmond,0412 345 678,smithplumbing.com.au\n"+
		",Carlton,0411111111,\n"+ // no name: skipped
		"Jones Electrical,Carlton,,\n")

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_businesses"}, upsertColumns).WillReturnResult(2)
	mock.ExpectExec("INSERT INTO").WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	imp := New(mock, nil, nil, Options{TempDir: t.TempDir()})
	res, err := imp.Run(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 1, res.Skipped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRun_UnrecognizableHeader(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	path := writeCSV(t, "foo,bar\n1,2\n")
	imp := New(mock, nil, nil, Options{TempDir: t.TempDir()})
	_, err = imp.Run(context.Background(), path)
	assert.Error(t, err)
}

func TestRun_UnsupportedExtension(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	path := filepath.Join(t.TempDir(), "registry.pdf")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	imp := New(mock, nil, nil, Options{TempDir: t.TempDir()})
	_, err = imp.Run(context.Background(), path)
	assert.Error(t, err)
}

func TestMapColumns_Aliases(t *testing.T) {
	cols := mapColumns([]string{"Trading_Name", "Locality", "Telephone", "URL", "ABN", "Lat", "Lng"})
	assert.Equal(t, 0, cols.name)
	assert.Equal(t, 1, cols.suburb)
	assert.Equal(t, 2, cols.phone)
	assert.Equal(t, 3, cols.website)
	assert.Equal(t, 4, cols.abn)
	assert.Equal(t, 5, cols.latitude)
	assert.Equal(t, 6, cols.longitude)
	assert.Equal(t, -1, cols.email)
}

func TestBuildRow_NormalizesContactFields(t *testing.T) {
	cols := mapColumns([]string{"name", "suburb", "phone", "email", "website", "abn", "latitude", "longitude"})
	row, ok := buildRow(cols, []string{
		"Smith Plumbing", "Richmond", "0412 345 678", "Info@Smith.COM ", "smith.com.au", "12 345 678 901", "-37.82", "144.99",
	})
	require.True(t, ok)

	assert.Equal(t, "+61412345678", row[3], "phone normalized to E.164")
	assert.Equal(t, "info@smith.com", row[4])
	assert.Equal(t, "https://smith.com.au", row[5])
	assert.Equal(t, "12345678901", row[10])
	assert.Equal(t, -37.82, row[8])
	assert.Equal(t, 144.99, row[9])
}

func TestBuildRow_RejectsMissingKeyFields(t *testing.T) {
	cols := mapColumns([]string{"name", "suburb"})

	_, ok := buildRow(cols, []string{"", "Richmond"})
	assert.False(t, ok)

	_, ok = buildRow(cols, []string{"Smith", ""})
	assert.False(t, ok)
}

func TestBuildRow_DropsPartialCoordinates(t *testing.T) {
	cols := mapColumns([]string{"name", "suburb", "latitude", "longitude"})
	row, ok := buildRow(cols, []string{"Smith", "Richmond", "-37.82", "not-a-number"})
	require.True(t, ok)
	assert.Nil(t, row[8])
	assert.Nil(t, row[9])
}
