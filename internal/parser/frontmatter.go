package parser

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/notedex/notedex/internal/domain"
)

const frontMatterDelim = "---"

// stringList accepts either a YAML sequence or a single scalar, since
// source documents write tags both ways.
type stringList []string

func (l *stringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*l = items
		return nil
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*l = []string{s}
		return nil
	default:
		return fmt.Errorf("tags must be a string or a list, got yaml kind %d", node.Kind)
	}
}

type rawFrontMatter struct {
	Title   string     `yaml:"title"`
	Date    string     `yaml:"date"`
	Created string     `yaml:"created"`
	Tags    stringList `yaml:"tags"`
	Tag     stringList `yaml:"tag"`
}

var docDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDocDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range docDateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			ts = ts.UTC()
			return &ts, nil
		}
	}
	return nil, fmt.Errorf("unrecognized date %q", s)
}

// splitFrontMatter separates a leading YAML front-matter block from the
// body. It returns the raw front-matter text (without delimiters), the
// body, and the number of lines the block occupied including both
// delimiter lines. Documents without front matter pass through intact.
func splitFrontMatter(raw string) (fm string, body string, fmLines int) {
	lines := strings.Split(raw, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != frontMatterDelim {
		return "", raw, 0
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == frontMatterDelim {
			return strings.Join(lines[1:i], "\n"), strings.Join(lines[i+1:], "\n"), i + 1
		}
	}
	// Unterminated block: treat the whole document as body.
	return "", raw, 0
}

func parseFrontMatter(fm string) (domain.FrontMatter, error) {
	var out domain.FrontMatter
	if strings.TrimSpace(fm) == "" {
		return out, nil
	}

	var raw rawFrontMatter
	if err := yaml.Unmarshal([]byte(fm), &raw); err != nil {
		return out, fmt.Errorf("invalid front matter: %w", err)
	}

	out.Title = strings.TrimSpace(raw.Title)

	dateVal := raw.Date
	if dateVal == "" {
		dateVal = raw.Created
	}
	ts, err := parseDocDate(dateVal)
	if err != nil {
		return out, fmt.Errorf("invalid front matter: %w", err)
	}
	out.Date = ts

	tags := raw.Tags
	if len(tags) == 0 {
		tags = raw.Tag
	}
	out.Tags = domain.NormalizeTags(tags)
	return out, nil
}
