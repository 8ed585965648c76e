package service

import (
	"bytes"
	"sort"
	"strings"

	"github.com/acroforms/fillserver/model"
)

// fdfEscaper handles the characters that are syntactically significant inside
// FDF string literals. Values containing them must round-trip exactly through
// the fill tool.
var fdfEscaper = strings.NewReplacer(
	`\`, `\\`,
	`(`, `\(`,
	`)`, `\)`,
	"\n", `\n`,
	"\r", `\r`,
)

// MarshalFDF serializes a field map into the FDF document consumed by
// pdftk fill_form. Output is deterministic: fields are emitted in sorted
// name order.
func MarshalFDF(values model.FillValues) []byte {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	buf.WriteString("%FDF-1.2\n")
	buf.WriteString("1 0 obj\n")
	buf.WriteString("<< /FDF << /Fields [\n")
	for _, name := range names {
		buf.WriteString("<< /T (")
		buf.WriteString(fdfEscaper.Replace(name))
		buf.WriteString(") /V (")
		buf.WriteString(fdfEscaper.Replace(values[name]))
		buf.WriteString(") >>\n")
	}
	buf.WriteString("] >> >>\n")
	buf.WriteString("endobj\n")
	buf.WriteString("trailer\n")
	buf.WriteString("<< /Root 1 0 R >>\n")
	buf.WriteString("%%EOF\n")

	return buf.Bytes()
}
