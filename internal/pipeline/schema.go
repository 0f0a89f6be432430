package pipeline

import (
	"fmt"
	"strings"
)

// Contract is the logical column contract for one side of the pipeline.
type Contract struct {
	Columns []string
}

// InputContract lists the columns every input table must carry. Validation
// happens before any network activity.
var InputContract = Contract{Columns: []string{
	"privilege_type",
	"privilege_name",
	"privilege_description",
	"privilege_score",
}}

// OutputContract lists the output columns in their mandated order.
var OutputContract = Contract{Columns: []string{
	"privilege_type",
	"privilege_name",
	"privilege_description",
	"privilege_score",
	"suggested_privilege_score",
	"extended_description",
}}

// Index maps a CSV header to contract column positions, case-insensitively.
// It returns an error naming every missing column.
func (c Contract) Index(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var missing []string
	for _, col := range c.Columns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return index, nil
}
