package target

import "strings"

// ShellQuote wraps s in single quotes for safe interpolation into a remote
// shell command: it's becomes 'it'\''s'.
func ShellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
}
