package main

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/platinummonkey/extpoint/pkg/descriptor"
)

// FileReport holds the issues found in one descriptor file.
type FileReport struct {
	Path   string             `json:"path"`
	Issues []descriptor.Issue `json:"-"`
}

type jsonIssue struct {
	Line     int    `json:"line"`
	Severity string `json:"severity"`
	Raw      string `json:"raw"`
	Message  string `json:"message"`
}

type jsonReport struct {
	Path   string      `json:"path"`
	Issues []jsonIssue `json:"issues"`
}

// collectFiles expands directories into the regular files beneath them,
// skipping hidden entries. The result is sorted and deduplicated.
func collectFiles(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(root)
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path != root && len(d.Name()) > 0 && d.Name()[0] == '.' {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", root, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

func lintFiles(files []string) ([]FileReport, error) {
	reports := make([]FileReport, 0, len(files))
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		issues, err := descriptor.Lint(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to lint %s: %w", path, err)
		}
		reports = append(reports, FileReport{Path: path, Issues: issues})
	}
	return reports, nil
}

func writeReports(out io.Writer, format string, reports []FileReport) error {
	if format == "json" {
		docs := make([]jsonReport, 0, len(reports))
		for _, r := range reports {
			doc := jsonReport{Path: r.Path, Issues: []jsonIssue{}}
			for _, i := range r.Issues {
				doc.Issues = append(doc.Issues, jsonIssue{
					Line:     i.Line,
					Severity: i.Severity.String(),
					Raw:      i.Raw,
					Message:  i.Err.Error(),
				})
			}
			docs = append(docs, doc)
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(docs)
	}

	var errs, warnings int
	for _, r := range reports {
		for _, i := range r.Issues {
			fmt.Fprintf(out, "%s:%d: %s: %v\n", r.Path, i.Line, i.Severity, i.Err)
			if i.Severity == descriptor.SeverityError {
				errs++
			} else {
				warnings++
			}
		}
	}
	_, err := fmt.Fprintf(out, "%d files, %d errors, %d warnings\n", len(reports), errs, warnings)
	return err
}

func failed(reports []FileReport, strict bool) bool {
	for _, r := range reports {
		if descriptor.HasErrors(r.Issues) || (strict && len(r.Issues) > 0) {
			return true
		}
	}
	return false
}
