package descriptor

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

const (
	// AdaptivePrefix marks the adaptive implementation of an extension point.
	AdaptivePrefix = "*"
	// WrapperPrefix marks a wrapper implementation.
	WrapperPrefix = "+"
)

var (
	nameSeparator = regexp.MustCompile(`\s*,+\s*`)
	namePattern   = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
)

// Kind classifies a descriptor entry.
type Kind int

const (
	KindNormal Kind = iota
	KindWrapper
	KindAdaptive
)

func (k Kind) String() string {
	switch k {
	case KindWrapper:
		return "wrapper"
	case KindAdaptive:
		return "adaptive"
	default:
		return "normal"
	}
}

// Entry is one successfully tokenized descriptor line.
type Entry struct {
	Line       int    // 1-based line number
	Raw        string // line as read, comments included
	Kind       Kind
	Names      []string // marker stripped, not yet validated
	Class      string   // implementation identifier
	Attributes *Attributes
}

// LineError records why a line could not be tokenized.
type LineError struct {
	Line int
	Raw  string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d (%s): %v", e.Line, e.Raw, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// Result is the outcome of parsing one resource.
type Result struct {
	Entries []Entry
	Errors  []*LineError
}

// Parse tokenizes every line of r. Malformed lines are collected in
// Result.Errors and parsing continues; the returned error is only set when
// reading fails, in which case the lines read so far are still returned.
// Lines have no length limit.
func Parse(r io.Reader) (*Result, error) {
	res := &Result{}
	reader := bufio.NewReader(r)

	lineNo := 0
	for {
		line, readErr := reader.ReadString('\n')
		if line != "" {
			lineNo++
			raw := strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
			entry, ok, err := ParseLine(raw)
			switch {
			case err != nil:
				res.Errors = append(res.Errors, &LineError{Line: lineNo, Raw: raw, Err: err})
			case ok:
				entry.Line = lineNo
				res.Entries = append(res.Entries, entry)
			}
		}
		if readErr == io.EOF {
			return res, nil
		}
		if readErr != nil {
			return res, fmt.Errorf("failed to read descriptor: %w", readErr)
		}
	}
}

// ParseLine tokenizes a single line. ok is false for blank and comment-only
// lines.
func ParseLine(raw string) (entry Entry, ok bool, err error) {
	config := raw
	if ci := strings.IndexByte(config, '#'); ci >= 0 {
		config = config[:ci]
	}
	config = strings.TrimSpace(config)
	if config == "" {
		return Entry{}, false, nil
	}

	i := strings.IndexByte(config, '=')
	if i <= 0 {
		return Entry{}, false, fmt.Errorf("%w, config value: %s", ErrMissingName, config)
	}
	name := strings.TrimSpace(config[:i])
	body := strings.TrimSpace(config[i+1:])
	if name == "" {
		return Entry{}, false, fmt.Errorf("%w, config value: %s", ErrMissingName, config)
	}

	attrs := NewAttributes()
	if j := strings.IndexByte(config[i+1:], '('); j >= 0 {
		j += i + 1
		if config[len(config)-1] != ')' {
			return Entry{}, false, fmt.Errorf("%w, config value: %s", ErrMissingParenthesis, config)
		}
		body = strings.TrimSpace(config[i+1 : j])
		attrs = ParseAttributes(config[j+1 : len(config)-1])
	}
	if body == "" {
		return Entry{}, false, fmt.Errorf("%w, config value: %s", ErrMissingClass, config)
	}

	kind := KindNormal
	switch {
	case strings.HasPrefix(name, AdaptivePrefix):
		kind = KindAdaptive
		name = strings.TrimSpace(strings.TrimPrefix(name, AdaptivePrefix))
	case strings.HasPrefix(name, WrapperPrefix):
		kind = KindWrapper
		name = strings.TrimSpace(strings.TrimPrefix(name, WrapperPrefix))
	}

	return Entry{
		Raw:        raw,
		Kind:       kind,
		Names:      SplitNames(name),
		Class:      body,
		Attributes: attrs,
	}, true, nil
}

// SplitNames splits a comma separated name list, tolerating blanks around
// separators and repeated commas. Trailing empty names are dropped, so
// "a,b," yields [a b]; a list with no name at all yields [""].
func SplitNames(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return []string{""}
	}
	names := nameSeparator.Split(s, -1)
	for len(names) > 0 && names[len(names)-1] == "" {
		names = names[:len(names)-1]
	}
	if len(names) == 0 {
		return []string{""}
	}
	return names
}

// ValidName reports whether name matches [A-Za-z0-9_]+.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// ValidateName returns ErrInvalidName wrapped with the offending name.
func ValidateName(name string) error {
	if !ValidName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
