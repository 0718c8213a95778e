// Package frontmatter parses and serializes the "---"-delimited metadata
// block used by message files, agent configs, and run bundles.
package frontmatter

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const delimiter = "---"

var intPattern = regexp.MustCompile(`^-?\d+$`)

// Doc is a parsed record: typed header fields plus the free-form body.
// Field values are nil, string, int, or []string depending on shape.
type Doc struct {
	Fields map[string]any
	Body   string
}

// Parse splits text into a header block and a body. The text must begin
// with the delimiter line and contain a closing delimiter line.
func Parse(text string) (*Doc, error) {
	lines := strings.Split(text, "\n")
	if len(lines) == 0 || strings.TrimRight(lines[0], "\r") != delimiter {
		return nil, fmt.Errorf("frontmatter: text does not begin with %q", delimiter)
	}
	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], "\r") == delimiter {
			end = i
			break
		}
	}
	if end < 0 {
		return nil, fmt.Errorf("frontmatter: closing %q not found", delimiter)
	}

	fields := make(map[string]any)
	for _, line := range lines[1:end] {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		key, raw, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		fields[strings.TrimSpace(key)] = typedValue(strings.TrimSpace(raw))
	}

	body := strings.Join(lines[end+1:], "\n")
	body = strings.TrimPrefix(body, "\n")
	return &Doc{Fields: fields, Body: body}, nil
}

// typedValue decides a value's type by shape alone.
func typedValue(raw string) any {
	switch {
	case raw == "" || raw == "null" || raw == "~":
		return nil
	case strings.HasPrefix(raw, "[") && strings.HasSuffix(raw, "]"):
		return parseList(raw[1 : len(raw)-1])
	case intPattern.MatchString(raw):
		n, err := strconv.Atoi(raw)
		if err != nil {
			return raw
		}
		return n
	case len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"':
		return raw[1 : len(raw)-1]
	case len(raw) >= 2 && raw[0] == '\'' && raw[len(raw)-1] == '\'':
		return raw[1 : len(raw)-1]
	default:
		return raw
	}
}

func parseList(inner string) []string {
	if strings.TrimSpace(inner) == "" {
		return []string{}
	}
	parts := strings.Split(inner, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if len(p) >= 2 && ((p[0] == '"' && p[len(p)-1] == '"') || (p[0] == '\'' && p[len(p)-1] == '\'')) {
			p = p[1 : len(p)-1]
		}
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Serialize is the inverse of Parse. Nil-valued and empty-list fields are
// omitted. Keys are written in the order given; any fields not listed in
// order follow sorted alphabetically.
func Serialize(doc *Doc, order ...string) string {
	var b strings.Builder
	b.WriteString(delimiter)
	b.WriteByte('\n')

	written := make(map[string]bool, len(doc.Fields))
	writeField := func(key string) {
		v, ok := doc.Fields[key]
		if !ok || written[key] {
			return
		}
		written[key] = true
		if s := formatValue(v); s != "" {
			b.WriteString(key)
			b.WriteString(": ")
			b.WriteString(s)
			b.WriteByte('\n')
		}
	}
	for _, key := range order {
		writeField(key)
	}
	rest := make([]string, 0, len(doc.Fields))
	for key := range doc.Fields {
		if !written[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	for _, key := range rest {
		writeField(key)
	}

	b.WriteString(delimiter)
	b.WriteByte('\n')
	if doc.Body != "" {
		b.WriteByte('\n')
		b.WriteString(doc.Body)
		if !strings.HasSuffix(doc.Body, "\n") {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// formatValue renders a field value; "" means omit the field entirely.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		if val == "" {
			return ""
		}
		return val
	case int:
		return strconv.Itoa(val)
	case []string:
		if len(val) == 0 {
			return ""
		}
		return "[" + strings.Join(val, ", ") + "]"
	default:
		return fmt.Sprintf("%v", val)
	}
}

// String returns the string value of a field, or "" if absent or not a string.
func (d *Doc) String(key string) string {
	s, _ := d.Fields[key].(string)
	return s
}

// Int returns the integer value of a field, or 0 if absent or not an int.
func (d *Doc) Int(key string) int {
	n, _ := d.Fields[key].(int)
	return n
}

// List returns the list value of a field, or nil if absent or not a list.
func (d *Doc) List(key string) []string {
	l, _ := d.Fields[key].([]string)
	return l
}
