// Package importer converts legacy shell history files into history events.
//
// Two line formats are understood: plain command lines, and the extended
// format ": <start_ts>:<duration>;<command>". A line whose text ends with an
// odd number of backslashes continues on the next line.
package importer

import (
	"strconv"
	"strings"
)

const extendedPrefix = ": "

// Entry is one command recovered from the history file.
type Entry struct {
	Command string

	// StartTS is the parsed epoch timestamp; HasTimestamp is false for plain
	// lines, which take the import time instead.
	StartTS      int64
	HasTimestamp bool

	// Line is the 1-based line number the command started on.
	Line int
}

// Parser is a line-driven state machine. It is either idle or accumulating
// a multi-line command together with the timestamp of its first line.
type Parser struct {
	accumulating bool
	partial      strings.Builder
	startTS      int64
	hasTimestamp bool
	startLine    int

	line    int
	entries []Entry
}

// Feed processes one line without its trailing newline.
func (p *Parser) Feed(line string) {
	p.line++

	if ts, payload, ok := parseExtended(line); ok {
		if p.accumulating {
			p.flush()
		}
		p.begin(ts, true)
		p.continueWith(payload)
		return
	}

	if p.accumulating {
		p.continueWith(line)
		return
	}

	// plain lines outside a multi-line command stand alone
	p.begin(0, false)
	p.partial.WriteString(line)
	p.flush()
}

// Finish flushes a command still being accumulated and returns every
// entry parsed so far. The parser is reset.
func (p *Parser) Finish() []Entry {
	if p.accumulating {
		p.flush()
	}
	entries := p.entries
	*p = Parser{}
	return entries
}

func (p *Parser) begin(ts int64, hasTimestamp bool) {
	p.partial.Reset()
	p.startTS = ts
	p.hasTimestamp = hasTimestamp
	p.startLine = p.line
	p.accumulating = true
}

// continueWith appends text verbatim, finalizing unless it continues.
func (p *Parser) continueWith(text string) {
	p.partial.WriteString(text)
	if IsContinuation(text) {
		p.partial.WriteString("\n")
		return
	}
	p.flush()
}

func (p *Parser) flush() {
	p.entries = append(p.entries, Entry{
		Command:      strings.TrimSpace(p.partial.String()),
		StartTS:      p.startTS,
		HasTimestamp: p.hasTimestamp,
		Line:         p.startLine,
	})
	p.partial.Reset()
	p.accumulating = false
}

// IsContinuation reports whether line ends with an odd number of
// consecutive backslashes.
func IsContinuation(line string) bool {
	n := 0
	for i := len(line) - 1; i >= 0 && line[i] == '\\'; i-- {
		n++
	}
	return n%2 == 1
}

// parseExtended recognises ": <ts>:<dur>;<payload>". The header must be
// exactly two colon separated integers, so comment lines that merely start
// with ": " are treated as commands.
func parseExtended(line string) (int64, string, bool) {
	if !strings.HasPrefix(line, extendedPrefix) {
		return 0, "", false
	}
	header, payload, found := strings.Cut(line[len(extendedPrefix):], ";")
	if !found {
		return 0, "", false
	}

	fields := strings.Split(header, ":")
	if len(fields) != 2 {
		return 0, "", false
	}
	ts, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
	if err != nil {
		return 0, "", false
	}
	if _, err := strconv.ParseInt(strings.TrimSpace(fields[1]), 10, 64); err != nil {
		return 0, "", false
	}

	return ts, payload, true
}
