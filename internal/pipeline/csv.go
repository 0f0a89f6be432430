package pipeline

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/davidcsisk/ms-graph-api-privilege-scraper/internal/enrich"
)

// ReadPrivilegesCSV reads the input table and returns one privilege per row.
//
// All InputContract columns must be present; a missing column is a fatal
// validation error raised before any enrichment work starts. Extra columns
// are ignored.
func ReadPrivilegesCSV(r io.Reader) ([]enrich.Privilege, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	index, err := InputContract.Index(header)
	if err != nil {
		return nil, err
	}

	var privs []enrich.Privilege
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return privs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		get := func(col string) string {
			i := index[col]
			if i < 0 || i >= len(rec) {
				return ""
			}
			return rec[i]
		}
		privs = append(privs, enrich.Privilege{
			Type:        get("privilege_type"),
			Name:        get("privilege_name"),
			Description: get("privilege_description"),
			Score:       get("privilege_score"),
		})
	}
}

// WriteCSV writes rows as a CSV with the stable Header() ordering.
func WriteCSV(w io.Writer, rows []Row) error {
	header := Header()
	// Guard against schema drift: the serialized header must be exactly the
	// output contract.
	if _, err := OutputContract.Index(header); err != nil {
		return fmt.Errorf("output schema drift: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{
			r.PrivilegeType,
			r.PrivilegeName,
			r.PrivilegeDescription,
			r.PrivilegeScore,
			r.SuggestedScore,
			r.ExtendedDescription,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV reads previously written output rows using the stable Header()
// contract. Extra columns are ignored; all contract columns must exist.
//
// Used by resume planning to recover rows that already enriched successfully.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, err
	}
	index, err := OutputContract.Index(header)
	if err != nil {
		return nil, err
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}

		get := func(col string) string {
			i := index[col]
			if i < 0 || i >= len(rec) {
				return ""
			}
			return rec[i]
		}

		row := Row{
			PrivilegeType:        get("privilege_type"),
			PrivilegeName:        get("privilege_name"),
			PrivilegeDescription: get("privilege_description"),
			PrivilegeScore:       get("privilege_score"),
			SuggestedScore:       get("suggested_privilege_score"),
			ExtendedDescription:  get("extended_description"),
		}
		row.Status = inferStatus(row)
		rows = append(rows, row)
	}
}

// inferStatus reconstructs a row's outcome from its serialized content. The
// status column is not persisted, so a reloaded failed row is recognized by
// its error sentinel.
func inferStatus(row Row) string {
	desc := strings.TrimSpace(row.ExtendedDescription)
	switch {
	case desc == "" || strings.HasPrefix(desc, "ERROR after retries:"):
		return string(enrich.StatusFailed)
	case strings.TrimSpace(row.SuggestedScore) == "":
		return string(enrich.StatusDegraded)
	default:
		return string(enrich.StatusOK)
	}
}
