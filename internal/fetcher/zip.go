package fetcher

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// ExtractZIP extracts every file in the archive into destDir. Returns
// the extracted paths.
func ExtractZIP(zipPath, destDir string) ([]string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: open zip")
	}
	defer r.Close()

	var extracted []string
	for _, f := range r.File {
		path, err := extractEntry(f, destDir)
		if err != nil {
			return extracted, err
		}
		if path != "" {
			extracted = append(extracted, path)
		}
	}
	return extracted, nil
}

// ExtractZIPSingle extracts the one file from an archive that is
// expected to contain exactly one, the common shape for registry
// exports packaged as name.csv.zip.
func ExtractZIPSingle(zipPath, destDir string) (string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", eris.Wrap(err, "fetcher: open zip")
	}
	defer r.Close()

	var files []*zip.File
	for _, f := range r.File {
		if !f.FileInfo().IsDir() {
			files = append(files, f)
		}
	}
	if len(files) != 1 {
		return "", eris.Errorf("fetcher: expected exactly 1 file in zip, got %d", len(files))
	}
	return extractEntry(files[0], destDir)
}

func extractEntry(f *zip.File, destDir string) (string, error) {
	// Guard against zip slip.
	destPath := filepath.Join(destDir, f.Name)
	if !strings.HasPrefix(filepath.Clean(destPath), filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", eris.Errorf("fetcher: illegal zip path %q", f.Name)
	}

	if f.FileInfo().IsDir() {
		if err := os.MkdirAll(destPath, 0o755); err != nil {
			return "", eris.Wrap(err, "fetcher: create directory")
		}
		return "", nil
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", eris.Wrap(err, "fetcher: create parent directory")
	}

	rc, err := f.Open()
	if err != nil {
		return "", eris.Wrap(err, "fetcher: open zip entry")
	}
	defer rc.Close()

	out, err := os.Create(destPath)
	if err != nil {
		return "", eris.Wrap(err, "fetcher: create file")
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return "", eris.Wrap(err, "fetcher: write file")
	}
	return destPath, nil
}
