// Package importer ingests business registry extracts into the
// directory: download, unzip, parse, normalize, bulk upsert.
package importer

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/suburbmates/directory-cli/internal/db"
	"github.com/suburbmates/directory-cli/internal/fetcher"
	"github.com/suburbmates/directory-cli/internal/normalize"
)

// Options configures an import run.
type Options struct {
	TempDir   string
	SheetName string // xlsx only
}

// Result summarizes an import run.
type Result struct {
	Total    int `json:"total"`
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// Importer loads registry extracts into the businesses table.
type Importer struct {
	pool db.Pool
	http fetcher.Fetcher
	ftp  fetcher.Fetcher
	opts Options
}

// New creates an Importer. http and ftp fetchers may be nil when only
// local files are imported.
func New(pool db.Pool, httpFetcher, ftpFetcher fetcher.Fetcher, opts Options) *Importer {
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	return &Importer{pool: pool, http: httpFetcher, ftp: ftpFetcher, opts: opts}
}

// upsertColumns lists the registry-sourced columns. Upserts key on
// (name, suburb) so re-imports refresh rather than duplicate.
var upsertColumns = []string{
	"name", "suburb", "street", "phone", "email", "website",
	"category", "description", "latitude", "longitude", "abn",
}

// Run imports one source: an http(s)://, ftp://, or local path to a
// CSV, XLSX, or zipped export.
func (imp *Importer) Run(ctx context.Context, source string) (*Result, error) {
	path, err := imp.localize(ctx, source)
	if err != nil {
		return nil, err
	}

	header, rawRows, err := imp.parse(path)
	if err != nil {
		return nil, err
	}

	cols := mapColumns(header)
	if cols.name < 0 || cols.suburb < 0 {
		return nil, eris.Errorf("importer: source %s has no recognizable name/suburb columns", source)
	}

	var rows [][]any
	skipped := 0
	for _, raw := range rawRows {
		row, ok := buildRow(cols, raw)
		if !ok {
			skipped++
			continue
		}
		rows = append(rows, row)
	}

	n, err := db.BulkUpsert(ctx, imp.pool, db.UpsertConfig{
		Table:        "businesses",
		Columns:      upsertColumns,
		ConflictKeys: []string{"name", "suburb"},
	}, rows)
	if err != nil {
		return nil, eris.Wrapf(err, "importer: upsert from %s", source)
	}

	res := &Result{Total: len(rawRows), Imported: int(n), Skipped: skipped}
	zap.L().Info("importer: run complete",
		zap.String("source", source),
		zap.Int("total", res.Total),
		zap.Int("imported", res.Imported),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

// localize resolves a source to a local file path, downloading and
// unzipping as needed.
func (imp *Importer) localize(ctx context.Context, source string) (string, error) {
	path := source
	switch {
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		if imp.http == nil {
			return "", eris.New("importer: no http fetcher configured")
		}
		path = filepath.Join(imp.opts.TempDir, filepath.Base(source))
		if _, err := imp.http.DownloadToFile(ctx, source, path); err != nil {
			return "", err
		}
	case strings.HasPrefix(source, "ftp://"):
		if imp.ftp == nil {
			return "", eris.New("importer: no ftp fetcher configured")
		}
		path = filepath.Join(imp.opts.TempDir, filepath.Base(source))
		if _, err := imp.ftp.DownloadToFile(ctx, source, path); err != nil {
			return "", err
		}
	}

	if strings.EqualFold(filepath.Ext(path), ".zip") {
		extracted, err := fetcher.ExtractZIPSingle(path, imp.opts.TempDir)
		if err != nil {
			return "", err
		}
		path = extracted
	}
	return path, nil
}

func (imp *Importer) parse(path string) ([]string, [][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, eris.Wrap(err, "importer: open csv")
		}
		defer f.Close()
		return fetcher.ReadCSV(f, fetcher.CSVOptions{HasHeader: true, TrimSpace: true, LazyQuotes: true})
	case ".xlsx":
		return fetcher.ReadXLSX(path, fetcher.XLSXOptions{SheetName: imp.opts.SheetName, HasHeader: true})
	default:
		return nil, nil, eris.Errorf("importer: unsupported file type %s", filepath.Ext(path))
	}
}

// columnMap holds header positions for each business field, -1 when
// the source lacks the column.
type columnMap struct {
	name, suburb, street, phone, email, website     int
	category, description, abn, latitude, longitude int
}

// headerAliases maps the column spellings seen across council and
// state registry exports.
var headerAliases = map[string][]string{
	"name":        {"name", "business_name", "businessname", "trading_name", "tradingname", "organisation_name"},
	"suburb":      {"suburb", "locality", "town", "city"},
	"street":      {"street", "street_address", "address", "address_line_1"},
	"phone":       {"phone", "phone_number", "telephone", "contact_phone", "mobile"},
	"email":       {"email", "email_address", "contact_email"},
	"website":     {"website", "web", "url", "web_address"},
	"category":    {"category", "industry", "business_type", "anzsic", "anzsic_description"},
	"description": {"description", "business_description", "about"},
	"abn":         {"abn", "australian_business_number"},
	"latitude":    {"latitude", "lat", "y"},
	"longitude":   {"longitude", "lon", "lng", "long", "x"},
}

func mapColumns(header []string) columnMap {
	cols := columnMap{
		name: -1, suburb: -1, street: -1, phone: -1, email: -1, website: -1,
		category: -1, description: -1, abn: -1, latitude: -1, longitude: -1,
	}
	find := func(field string) int {
		for i, h := range header {
			h = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
			for _, alias := range headerAliases[field] {
				if h == alias {
					return i
				}
			}
		}
		return -1
	}
	cols.name = find("name")
	cols.suburb = find("suburb")
	cols.street = find("street")
	cols.phone = find("phone")
	cols.email = find("email")
	cols.website = find("website")
	cols.category = find("category")
	cols.description = find("description")
	cols.abn = find("abn")
	cols.latitude = find("latitude")
	cols.longitude = find("longitude")
	return cols
}

// buildRow converts one raw registry row to upsert values. Rows without
// a name and suburb are rejected.
func buildRow(cols columnMap, raw []string) ([]any, bool) {
	cell := func(i int) string {
		if i < 0 || i >= len(raw) {
			return ""
		}
		return strings.TrimSpace(raw[i])
	}

	name := cell(cols.name)
	suburb := cell(cols.suburb)
	if name == "" || suburb == "" {
		return nil, false
	}

	var lat, lon any
	if v, err := strconv.ParseFloat(cell(cols.latitude), 64); err == nil {
		lat = v
	}
	if v, err := strconv.ParseFloat(cell(cols.longitude), 64); err == nil {
		lon = v
	}
	if lat == nil || lon == nil {
		lat, lon = nil, nil
	}

	return []any{
		name,
		suburb,
		cell(cols.street),
		normalize.Phone(cell(cols.phone)),
		normalize.Email(cell(cols.email)),
		normalize.Website(cell(cols.website)),
		cell(cols.category),
		cell(cols.description),
		lat,
		lon,
		strings.ReplaceAll(cell(cols.abn), " ", ""),
	}, true
}
