package proc

import (
	"io"
	"strings"
)

// CommentMarker prefixes action description lines in reports.
const CommentMarker = "###"

// Quote returns s single-quoted if it contains whitespace or a semicolon.
// It is meant for display only; stages are always spawned with the
// original argument vector.
func Quote(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\n;") {
		return "'" + s + "'"
	}
	return s
}

// QuoteJoin quotes each element of argv and joins them with spaces.
func QuoteJoin(argv []string) string {
	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = Quote(a)
	}
	return strings.Join(quoted, " ")
}

// Report renders the diagnostic lines for req: one comment line per action
// description followed by the full command line, stages joined by " | ".
// File endpoints are shown as shell redirections. Report has no side effects.
func Report(req *Request) []string {
	lines := make([]string, 0, len(req.actions)+1)
	for _, a := range req.actions {
		lines = append(lines, CommentMarker+" "+a)
	}
	return append(lines, CommandLine(req))
}

// CommandLine renders the whole pipeline as a single shell-like line.
func CommandLine(req *Request) string {
	var b strings.Builder
	for i, s := range req.stages {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(QuoteJoin(s.argv))
		if i == 0 && req.input.kind == FilePath {
			b.WriteString(" < ")
			b.WriteString(Quote(req.input.path))
		}
	}
	if req.output.kind == FilePath {
		if req.output.mode == ModeAppend {
			b.WriteString(" >> ")
		} else {
			b.WriteString(" > ")
		}
		b.WriteString(Quote(req.output.path))
	}
	return b.String()
}

func writeReport(w io.Writer, lines []string) {
	for _, l := range lines {
		_, _ = io.WriteString(w, l+"\n")
	}
}
