package pipeline

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var (
	newlineRunRe = regexp.MustCompile(`[\r\n]+`)
	spaceRunRe   = regexp.MustCompile(`\s{2,}`)
)

// CleanText flattens CR/LF runs to a single space and collapses repeated
// whitespace. Model-written descriptions often embed raw newlines, which
// break naive downstream CSV consumers.
func CleanText(s string) string {
	s = newlineRunRe.ReplaceAllString(s, " ")
	s = spaceRunRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// NormalizeCSV rewrites an enriched output table as strict CSV: the
// extended_description column is flattened with CleanText and every field is
// quoted.
//
// encoding/csv only quotes when forced to, so the quote-everything writer is
// done by hand here.
func NormalizeCSV(r io.Reader, w io.Writer) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	index, err := OutputContract.Index(header)
	if err != nil {
		return err
	}
	descIdx := index["extended_description"]

	if err := writeQuotedRecord(w, header); err != nil {
		return err
	}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read row: %w", err)
		}
		if descIdx < len(rec) {
			rec[descIdx] = CleanText(rec[descIdx])
		}
		if err := writeQuotedRecord(w, rec); err != nil {
			return err
		}
	}
}

func writeQuotedRecord(w io.Writer, rec []string) error {
	quoted := make([]string, len(rec))
	for i, f := range rec {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	_, err := io.WriteString(w, strings.Join(quoted, ",")+"\n")
	return err
}
