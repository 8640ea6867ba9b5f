package fetcher

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// CSVOptions configures ReadCSV.
type CSVOptions struct {
	Delimiter  rune // default ','
	HasHeader  bool // first row is returned separately
	LazyQuotes bool
	TrimSpace  bool
}

// ReadCSV parses a registry CSV export. When HasHeader is set, the
// first row is returned as header and excluded from rows. Rows may have
// varying field counts; callers map columns by header position.
func ReadCSV(r io.Reader, opts CSVOptions) (header []string, rows [][]string, err error) {
	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.LazyQuotes = opts.LazyQuotes
	reader.FieldsPerRecord = -1

	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, eris.Wrap(err, "fetcher: read csv row")
		}

		if opts.TrimSpace {
			for i, field := range record {
				record[i] = strings.TrimSpace(field)
			}
		}

		if first && opts.HasHeader {
			header = record
			first = false
			continue
		}
		first = false
		rows = append(rows, record)
	}
	return header, rows, nil
}
