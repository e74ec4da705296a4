package shared

import (
	"encoding/json"
	"io"

	"github.com/fatih/color"
)

// Colors used for command output. fatih/color disables them automatically
// when stdout is not a terminal or NO_COLOR is set.
var (
	Green  = color.New(color.FgGreen).SprintFunc()
	Red    = color.New(color.FgRed).SprintFunc()
	Yellow = color.New(color.FgYellow).SprintFunc()
	Cyan   = color.New(color.FgCyan).SprintFunc()
	Bold   = color.New(color.Bold).SprintFunc()
	Dim    = color.New(color.Faint).SprintFunc()
)

// Status symbols
const (
	SymbolOK   = "✓"
	SymbolFail = "✗"
	SymbolWarn = "⚠"
)

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
