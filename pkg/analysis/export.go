package analysis

import (
	"encoding/csv"
	"io"
	"strconv"
)

// WriteCSV writes one row per stored step: the TIME column followed by
// every unknown in solution order.
func (tr *Transient) WriteCSV(w io.Writer) error {
	header := append([]string{"TIME"}, tr.SolutionNames()...)
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, len(header))
	for n := range tr.results["TIME"] {
		for i, name := range header {
			row[i] = strconv.FormatFloat(tr.results[name][n], 'g', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
