package report

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/callsight/callsight/internal/storage"
)

func renderCSV(record storage.CallRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(tabularRows(record)); err != nil {
		return nil, fmt.Errorf("writing rows: %w", err)
	}
	return buf.Bytes(), nil
}
