package leads

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/liorZats/Auto-sells-call-scheduler/internal/agent"
)

// ParseCSV reads leads from a two-column CSV: name, phone number. A header
// row is detected by a non-numeric second column and skipped. Rows with an
// empty number are rejected; names may be empty.
func ParseCSV(r io.Reader) ([]agent.Lead, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var out []agent.Lead
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line+1, err)
		}
		line++
		if len(record) < 2 {
			return nil, fmt.Errorf("csv line %d: expected name,number", line)
		}
		name := strings.TrimSpace(record[0])
		number := strings.TrimSpace(record[1])
		if line == 1 && looksLikeHeader(number) {
			continue
		}
		if number == "" {
			return nil, fmt.Errorf("csv line %d: missing phone number", line)
		}
		out = append(out, agent.Lead{Name: name, Number: number})
	}
	return out, nil
}

func looksLikeHeader(number string) bool {
	for _, r := range number {
		if r >= '0' && r <= '9' {
			return false
		}
	}
	return true
}
