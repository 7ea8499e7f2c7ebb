package steps

import (
	"fmt"
	"strings"

	"github.com/mattn/go-shellwords"
)

// ParseCommand splits a single command line into an argument vector using
// shell quoting rules. Variables are not expanded and shell operators are
// rejected: every stage is one program.
func ParseCommand(line string) ([]string, error) {
	p := shellwords.NewParser()
	argv, err := p.Parse(line)
	if err != nil {
		return nil, fmt.Errorf("parsing command %q: %w", line, err)
	}
	if p.Position >= 0 {
		op, _ := operatorAt([]rune(line), p.Position)
		return nil, fmt.Errorf("parsing command %q: shell operator %q not supported", line, op)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("parsing command %q: no program", line)
	}
	return argv, nil
}

// ParsePipeline splits a command line on unquoted '|' into one argument
// vector per stage.
func ParsePipeline(line string) ([][]string, error) {
	var stages [][]string
	rest := []rune(line)
	for {
		p := shellwords.NewParser()
		argv, err := p.Parse(string(rest))
		if err != nil {
			return nil, fmt.Errorf("parsing pipeline %q: %w", line, err)
		}
		if len(argv) == 0 {
			return nil, fmt.Errorf("parsing pipeline %q: empty stage", line)
		}
		stages = append(stages, argv)
		if p.Position < 0 {
			return stages, nil
		}
		op, at := operatorAt(rest, p.Position)
		if op != '|' {
			return nil, fmt.Errorf("parsing pipeline %q: shell operator %q not supported", line, op)
		}
		rest = rest[at+1:]
	}
}

// operatorAt returns the first shell operator at or after pos. The parser
// stops on the file descriptor digit of a redirection like "2>", not on the
// operator itself.
func operatorAt(rs []rune, pos int) (rune, int) {
	for i := pos; i < len(rs); i++ {
		if strings.ContainsRune("|;&<>", rs[i]) {
			return rs[i], i
		}
	}
	return rs[pos], pos
}
