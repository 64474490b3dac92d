package mailsync

import "strings"

// Markers that open a forwarded-message block in a plain-text body.
var forwardMarkers = []string{
	"---------- Forwarded message ---------",
	"Begin forwarded message:",
	"-------- Original Message --------",
}

// ExtractOriginalRecipient pulls the original "To:" address out of a
// forwarded-message block. It looks for a forwarding marker and takes
// the first To:-prefixed line after it; with no marker it falls back to
// scanning the whole body. Returns "" when nothing matches.
func ExtractOriginalRecipient(body string) string {
	if body == "" {
		return ""
	}
	search := body
	for _, marker := range forwardMarkers {
		if i := strings.Index(body, marker); i >= 0 {
			search = body[i+len(marker):]
			break
		}
	}
	for _, line := range strings.Split(search, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "To:"); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}
