package descriptor

import (
	"fmt"
	"io"
	"sort"
)

// Severity of a lint Issue.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Issue is one lint finding.
type Issue struct {
	Line     int
	Raw      string
	Severity Severity
	Err      error
}

func (i Issue) Error() string {
	return fmt.Sprintf("%d: %s: %v", i.Line, i.Severity, i.Err)
}

func (i Issue) Unwrap() error { return i.Err }

type binding struct {
	class string
	line  int
}

// Lint parses r and reports every problem a loader would hit that can be
// found without resolving implementations: malformed lines, invalid names,
// names bound to two implementations and competing adaptive entries.
// Issues are ordered by line.
func Lint(r io.Reader) ([]Issue, error) {
	res, err := Parse(r)
	if err != nil {
		return nil, err
	}

	var issues []Issue
	for _, le := range res.Errors {
		issues = append(issues, Issue{Line: le.Line, Raw: le.Raw, Severity: SeverityError, Err: le.Err})
	}

	var (
		names    = make(map[string]binding)
		wrappers = make(map[string]binding)
		adaptive *binding
	)
	for _, e := range res.Entries {
		report := func(sev Severity, err error) {
			issues = append(issues, Issue{Line: e.Line, Raw: e.Raw, Severity: sev, Err: err})
		}

		if e.Kind == KindAdaptive {
			switch {
			case adaptive == nil:
				adaptive = &binding{class: e.Class, line: e.Line}
			case adaptive.class != e.Class:
				report(SeverityError, fmt.Errorf("%w: %s (line %d) and %s", ErrConflictingAdaptive, adaptive.class, adaptive.line, e.Class))
			}
			continue
		}

		invalid := false
		for _, n := range e.Names {
			if err := ValidateName(n); err != nil {
				report(SeverityError, err)
				invalid = true
				break
			}
		}
		if invalid {
			continue
		}

		table := names
		if e.Kind == KindWrapper {
			table = wrappers
		}
		for _, n := range e.Names {
			prev, ok := table[n]
			switch {
			case !ok:
				table[n] = binding{class: e.Class, line: e.Line}
			case prev.class != e.Class:
				report(SeverityError, fmt.Errorf("%w: %s is %s (line %d) and %s", ErrConflictingName, n, prev.class, prev.line, e.Class))
			default:
				report(SeverityWarning, fmt.Errorf("%w: %s (line %d)", ErrRedeclared, n, prev.line))
			}
		}
	}

	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Line < issues[j].Line
	})
	return issues, nil
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}
