package mapping

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/PvGGit/pv-retrieval/internal/claim"
)

const (
	entrySeparator = ","
	commentPrefix  = "#"
)

var (
	ErrDuplicateKey = errors.New("duplicate mapping key")
	ErrInvalidLine  = errors.New("invalid mapping line")
)

// Entry maps a source claim to the target claim it corresponds to.
type Entry struct {
	Source claim.Ref
	Target claim.Ref
}

// Mapping is an ordered set of entries with unique source claims.
type Mapping struct {
	entries []Entry
	targets map[claim.Ref]claim.Ref
}

// New builds a Mapping, rejecting entries that repeat a source claim.
func New(entries ...Entry) (*Mapping, error) {
	m := Mapping{
		entries: make([]Entry, 0, len(entries)),
		targets: make(map[claim.Ref]claim.Ref, len(entries)),
	}

	for _, e := range entries {
		if existing, ok := m.targets[e.Source]; ok {
			return nil, fmt.Errorf("%w: source %s is mapped to both %s and %s",
				ErrDuplicateKey, e.Source, existing, e.Target)
		}

		m.targets[e.Source] = e.Target
		m.entries = append(m.entries, e)
	}

	return &m, nil
}

// Target returns the target claim mapped to the given source claim.
func (m *Mapping) Target(source claim.Ref) (claim.Ref, bool) {
	if m == nil {
		return claim.Ref{}, false
	}

	target, ok := m.targets[source]

	return target, ok
}

func (m *Mapping) Entries() []Entry {
	if m == nil {
		return nil
	}

	entries := make([]Entry, len(m.entries))
	copy(entries, m.entries)

	return entries
}

func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}

	return len(m.entries)
}

// ReadFile parses the mapping file at the given path.
func ReadFile(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mapping file: %w", err)
	}

	defer func() { _ = f.Close() }()

	m, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("mapping file %s: %w", path, err)
	}

	return m, nil
}

// Parse reads lines of the form sourceNs:sourcePvc,targetNs:targetPvc.
// Blank lines and lines starting with # are skipped. All invalid lines are
// reported together.
func Parse(r io.Reader) (*Mapping, error) {
	var (
		entries []Entry
		result  *multierror.Error
	)

	scanner := bufio.NewScanner(r)
	lineNumber := 0

	for scanner.Scan() {
		lineNumber++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, commentPrefix) {
			continue
		}

		entry, err := parseLine(line)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("line %d: %w", lineNumber, err))

			continue
		}

		entries = append(entries, entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read mapping: %w", err)
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}

	return New(entries...)
}

func parseLine(line string) (Entry, error) {
	parts := strings.Split(line, entrySeparator)
	if len(parts) != 2 {
		return Entry{}, fmt.Errorf("%w %q: lines should consist of namespace:pvc-name,namespace:pvc-name only",
			ErrInvalidLine, line)
	}

	source, err := claim.Parse(strings.TrimSpace(parts[0]))
	if err != nil {
		return Entry{}, fmt.Errorf("%w: source: %v", ErrInvalidLine, err)
	}

	target, err := claim.Parse(strings.TrimSpace(parts[1]))
	if err != nil {
		return Entry{}, fmt.Errorf("%w: target: %v", ErrInvalidLine, err)
	}

	return Entry{Source: source, Target: target}, nil
}
