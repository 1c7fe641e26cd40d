package matrix

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/edp1096/lblmc/pkg/util"
)

// Declaration renders the matrix as a C/C++ 2-D array declaration, e.g.
//
//	static const real G[2][2] = {
//		{ 1.0, -1.0 },
//		{ -1.0, 2.0 },
//	};
func (c *Conductance) Declaration(qualifiers, name string) string {
	var sb strings.Builder
	if qualifiers != "" {
		sb.WriteString(qualifiers)
		sb.WriteByte(' ')
	}
	fmt.Fprintf(&sb, "%s[%d][%d] = {\n", name, c.size, c.size)
	for i := 1; i <= c.size; i++ {
		sb.WriteString("\t{ ")
		for j := 1; j <= c.size; j++ {
			if j > 1 {
				sb.WriteString(", ")
			}
			sb.WriteString(util.FormatLiteral(c.At(i, j)))
		}
		sb.WriteString(" },\n")
	}
	sb.WriteString("};")
	return sb.String()
}

func (c *Conductance) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	record := make([]string, c.size)
	for i := 1; i <= c.size; i++ {
		for j := 1; j <= c.size; j++ {
			record[j-1] = strconv.FormatFloat(c.At(i, j), 'g', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ASCII renders a fixed width table with 1-based row/column headers.
func (c *Conductance) ASCII() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%4s", "")
	for j := 1; j <= c.size; j++ {
		fmt.Fprintf(&sb, "%12d", j)
	}
	sb.WriteByte('\n')

	for i := 1; i <= c.size; i++ {
		fmt.Fprintf(&sb, "%4d", i)
		for j := 1; j <= c.size; j++ {
			fmt.Fprintf(&sb, "%12.4g", c.At(i, j))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Sparsity renders 'X' for non-zero entries and '.' for zeros.
func (c *Conductance) Sparsity() string {
	var sb strings.Builder
	for i := 1; i <= c.size; i++ {
		for j := 1; j <= c.size; j++ {
			if c.At(i, j) != 0 {
				sb.WriteByte('X')
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// NonZeros counts the entries with magnitude above bound.
func (c *Conductance) NonZeros(bound float64) int {
	count := 0
	for i := 1; i <= c.size; i++ {
		for j := 1; j <= c.size; j++ {
			if math.Abs(c.At(i, j)) > bound {
				count++
			}
		}
	}
	return count
}
