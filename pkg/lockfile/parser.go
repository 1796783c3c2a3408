package lockfile

import (
	"bufio"
	"io"
	"strings"

	"github.com/matzehuels/stackscan/pkg/errors"
)

// metadataKey names the v2+ header block that describes the file itself.
const metadataKey = "__metadata"

type state int

const (
	stateHeader state = iota
	stateBody
	stateDone
)

// Parser turns lock file lines into entries.
type Parser struct {
	elements []ElementParser
}

// NewParser returns a parser using the given element parsers, or
// DefaultElementParsers when none are given.
func NewParser(elements ...ElementParser) *Parser {
	if len(elements) == 0 {
		elements = DefaultElementParsers()
	}
	return &Parser{elements: elements}
}

// Lockfile is a parsed lock file.
type Lockfile struct {
	Entries []Entry
	// Skipped counts blocks that did not build into an entry.
	Skipped int

	index map[EntryID]int
}

// Lookup returns the entry that resolves name@versionRange.
func (l *Lockfile) Lookup(name, versionRange string) (Entry, bool) {
	i, ok := l.index[EntryID{Name: name, VersionRange: versionRange}]
	if !ok {
		return Entry{}, false
	}
	return l.Entries[i], true
}

// Parse reads a whole lock file.
func (p *Parser) Parse(r io.Reader) (*Lockfile, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), " \t\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read lock file")
	}
	return p.ParseLines(lines), nil
}

// ParseLines parses lines already split from a lock file.
func (p *Parser) ParseLines(lines []string) *Lockfile {
	lf := &Lockfile{index: make(map[EntryID]int)}
	for i := 0; i < len(lines); {
		line := lines[i]
		if isBlank(line) || isComment(line) || Depth(line) > 0 {
			i++
			continue
		}
		entry, ok, next := p.ParseEntry(lines, i)
		i = next
		if !ok {
			if !isMetadataHeader(line) {
				lf.Skipped++
			}
			continue
		}
		for _, id := range entry.IDs {
			if _, seen := lf.index[id]; !seen {
				lf.index[id] = len(lf.Entries)
			}
		}
		lf.Entries = append(lf.Entries, entry)
	}
	return lf
}

// ParseEntry parses the block whose header is lines[start]. It returns the
// entry, whether the block built into one, and the index of the next line
// after the block.
func (p *Parser) ParseEntry(lines []string, start int) (Entry, bool, int) {
	var b EntryBuilder
	i := start
	st := stateHeader

	for st != stateDone {
		switch st {
		case stateHeader:
			if isMetadataHeader(lines[i]) {
				i = skipBlock(lines, i+1)
				return Entry{}, false, i
			}
			for _, id := range ParseHeader(lines[i]) {
				b.AddID(id)
			}
			i++
			st = stateBody

		case stateBody:
			if i >= len(lines) {
				st = stateDone
				continue
			}
			line := lines[i]
			if isBlank(line) || isComment(line) {
				i++
				continue
			}
			if Depth(line) == 0 {
				st = stateDone
				continue
			}
			i = p.parseElement(&b, lines, i)
		}
	}

	entry, ok := b.Build()
	return entry, ok, i
}

func (p *Parser) parseElement(b *EntryBuilder, lines []string, i int) int {
	for _, e := range p.elements {
		if e.Applies(lines[i]) {
			if next := e.Parse(b, lines, i); next > i {
				return next
			}
			break
		}
	}
	return i + 1
}

func isMetadataHeader(line string) bool {
	key, _ := SplitKeyValue(line)
	return key == metadataKey
}

func skipBlock(lines []string, i int) int {
	for i < len(lines) && (isBlank(lines[i]) || Depth(lines[i]) > 0) {
		i++
	}
	return i
}
