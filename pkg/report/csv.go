package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// WriteCSV writes one column per result, sweep variable first.
func WriteCSV(w io.Writer, results map[string][]float64) error {
	cols := Columns(results)
	if len(cols) == 0 {
		return fmt.Errorf("no results to write")
	}
	rows := len(results[cols[0]])
	for _, c := range cols {
		if len(results[c]) != rows {
			return fmt.Errorf("column %s has %d rows, want %d", c, len(results[c]), rows)
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return err
	}
	record := make([]string, len(cols))
	for i := 0; i < rows; i++ {
		for j, c := range cols {
			record[j] = strconv.FormatFloat(results[c][i], 'g', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
