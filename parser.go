package schemalift

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Parser splits raw script text into an ordered sequence of executable
// statements. A read failure fails the whole parse; implementations
// never return a partial statement list.
type Parser interface {
	Parse(r io.Reader) ([]string, error)
}

// newParser selects the parser implementation for a configured mode.
func newParser(mode string) (Parser, error) {
	switch mode {
	case "", ParserDelimited:
		return &DelimitedParser{}, nil
	case ParserLegacy:
		return &LegacyParser{}, nil
	default:
		return nil, errors.Errorf("script parser '%s' not supported. Must be one of: %s or %s",
			mode, ParserDelimited, ParserLegacy)
	}
}

// delimiterToken extracts the replacement delimiter from a directive
// line such as "DELIMITER //". The keyword is case-insensitive and may
// abut a symbolic token directly ("DELIMITER//"); a trailing
// alphanumeric, as in "DELIMITERS", is not a directive.
func delimiterToken(line string) (string, bool) {
	const keyword = "DELIMITER"
	if len(line) <= len(keyword) || !strings.EqualFold(line[:len(keyword)], keyword) {
		return "", false
	}
	rest := line[len(keyword):]
	if c := rest[0]; c == '_' || isDigit(c) ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
		return "", false
	}
	tok := strings.Fields(rest)
	if len(tok) == 0 {
		return "", false
	}
	return tok[0], true
}

// DelimitedParser splits a script on a script-local statement
// delimiter, honoring DELIMITER redefinition directives, -- and /* */
// comments, and quoted strings. A trigger or procedure body holding the
// engine's normal ';' terminator survives as a single statement when
// the script redefines its delimiter around it.
type DelimitedParser struct{}

// Parse implements Parser.
func (p *DelimitedParser) Parse(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: reading script: %v", ErrAssetIO, err)
	}

	var (
		stmts   []string
		buf     strings.Builder
		delim   = ";"
		quote   byte
		inBlock bool
	)
	flush := func() {
		if s := strings.TrimSpace(buf.String()); s != "" {
			stmts = append(stmts, s)
		}
		buf.Reset()
	}

	for _, line := range strings.Split(string(data), "\n") {
		if quote == 0 && !inBlock && strings.TrimSpace(buf.String()) == "" {
			if tok, ok := delimiterToken(strings.TrimSpace(line)); ok {
				delim = tok
				continue
			}
		}

		i := 0
		for i < len(line) {
			c := line[i]
			switch {
			case inBlock:
				if c == '*' && i+1 < len(line) && line[i+1] == '/' {
					inBlock = false
					i += 2
					continue
				}
				i++
			case quote != 0:
				buf.WriteByte(c)
				if c == quote {
					quote = 0
				}
				i++
			case c == '-' && i+1 < len(line) && line[i+1] == '-':
				i = len(line)
			case c == '/' && i+1 < len(line) && line[i+1] == '*':
				inBlock = true
				i += 2
			case c == '\'' || c == '"':
				quote = c
				buf.WriteByte(c)
				i++
			case strings.HasPrefix(line[i:], delim):
				flush()
				i += len(delim)
			default:
				buf.WriteByte(c)
				i++
			}
		}
		buf.WriteByte('\n')
	}
	flush()
	return stmts, nil
}

// LegacyParser splits a script per line: each line, with all ';'
// characters removed and surrounding whitespace trimmed, becomes one
// statement; blank lines are discarded. Statements spanning multiple
// lines, or containing ';' inside string or procedural content, are
// split incorrectly. This is documented legacy behaviour that existing
// script sets rely on; select it explicitly via ParserLegacy.
type LegacyParser struct{}

// Parse implements Parser.
func (p *LegacyParser) Parse(r io.Reader) ([]string, error) {
	var stmts []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(strings.ReplaceAll(scanner.Text(), ";", ""))
		if line != "" {
			stmts = append(stmts, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading script: %v", ErrAssetIO, err)
	}
	return stmts, nil
}
