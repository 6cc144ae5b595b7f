package catalog

import (
	"strconv"
	"strings"
)

// sizeSeparator joins the sides of a size label.
const sizeSeparator = "×"

// FormatSize is the single canonical size formatter: "10×10×5 cm", or "10×10 cm"
// when there is no height. Numbers use the shortest exact representation.
func FormatSize(s Size) string {
	parts := []string{formatSide(s.Length), formatSide(s.Breadth)}
	if s.Height > 0 {
		parts = append(parts, formatSide(s.Height))
	}
	label := strings.Join(parts, sizeSeparator)
	if unit := strings.TrimSpace(s.Unit); unit != "" {
		label += " " + unit
	}
	return label
}

// FormatDimensions renders custom dimensions with the same rules as FormatSize.
func FormatDimensions(d CustomDimensions) string {
	s := Size{Length: d.Length, Breadth: d.Breadth, Unit: d.Unit}
	if d.Height != nil {
		s.Height = *d.Height
	}
	return FormatSize(s)
}

func formatSide(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
