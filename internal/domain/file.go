package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// FrontMatter holds the parsed YAML front-matter of a source document.
// Missing fields stay at their zero value; Date is nil when the document
// carries no explicit date.
type FrontMatter struct {
	Title string
	Date  *time.Time
	Tags  []string
}

// File represents one indexed source object. There is at most one File
// record per path; re-ingesting a path replaces its entire chunk set.
type File struct {
	Path       string
	ETag       string
	ModifiedAt time.Time
	Size       int64
	Title      string
	// CreatedAt is the explicit front-matter date, nil when absent.
	CreatedAt *time.Time
	Tags      []string
}

// EffectiveDate returns the front-matter date when present, otherwise the
// source modification time ("auto" date semantics).
func (f *File) EffectiveDate() time.Time {
	if f.CreatedAt != nil {
		return *f.CreatedAt
	}
	return f.ModifiedAt
}

// ValidateFile validates a File instance before it is persisted.
func ValidateFile(f *File) error {
	if f == nil {
		return fmt.Errorf("file cannot be nil")
	}
	if f.Path == "" {
		return fmt.Errorf("file Path is required")
	}
	if f.ETag == "" {
		return fmt.Errorf("file ETag is required")
	}
	if f.ModifiedAt.IsZero() {
		return fmt.Errorf("file ModifiedAt is required")
	}
	return nil
}

// NormalizeTags lower-cases tags, strips a leading '#', splits comma or
// semicolon separated values, and returns the sorted, de-duplicated set.
func NormalizeTags(raw []string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		for _, part := range strings.FieldsFunc(r, func(c rune) bool { return c == ',' || c == ';' }) {
			t := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(part)), "#")
			if t == "" {
				continue
			}
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}
