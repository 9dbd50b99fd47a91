// Package frontmatter reads and writes Markdown documents with a leading
// YAML front-matter block delimited by "---" lines.
package frontmatter

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// Field is one front-matter key. Fields render in slice order.
type Field struct {
	Key   string
	Value any
}

// Fields is an ordered front-matter mapping.
type Fields []Field

// Get returns the value stored under key.
func (f Fields) Get(key string) (any, bool) {
	for _, field := range f {
		if field.Key == key {
			return field.Value, true
		}
	}
	return nil, false
}

// Document is a parsed Markdown file.
type Document struct {
	Data map[string]any // all YAML front-matter fields; empty when absent
	Body string
}

// String returns the value of a string field, or "".
func (d *Document) String(key string) string {
	s, _ := d.Data[key].(string)
	return s
}

// Lookup returns a string field and whether it is set. A key with a null
// or non-string value counts as unset; an empty string counts as set.
func (d *Document) Lookup(key string) (string, bool) {
	s, ok := d.Data[key].(string)
	return s, ok
}

// Strings returns a list field. Scalar strings are split on commas so that
// both "Read, Write" and [Read, Write] are accepted.
func (d *Document) Strings(key string) []string {
	switch v := d.Data[key].(type) {
	case string:
		var out []string
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			} else if item != nil {
				out = append(out, fmt.Sprint(item))
			}
		}
		return out
	default:
		return nil
	}
}

// Parse splits raw into front-matter and body. Content without a leading
// front-matter block is returned as body with empty Data. The source is used
// only in error messages.
func Parse(raw []byte, source string) (*Document, error) {
	content := string(raw)

	if !strings.HasPrefix(strings.TrimLeft(content, " \t\r\n"), delimiter) {
		return &Document{Data: map[string]any{}, Body: content}, nil
	}

	start := strings.Index(content, delimiter)
	rest := content[start+len(delimiter):]
	rest = trimNewline(rest)

	var fmContent, body string
	if strings.HasPrefix(rest, delimiter) {
		// Empty block: "---\n---".
		body = rest[len(delimiter):]
	} else {
		end := strings.Index(rest, "\n"+delimiter)
		if end < 0 {
			return nil, fmt.Errorf("no closing frontmatter delimiter in %s", source)
		}
		fmContent = rest[:end]
		body = rest[end+1+len(delimiter):]
	}
	body = strings.TrimLeft(body, "\r\n")

	var data map[string]any
	if err := yaml.Unmarshal([]byte(fmContent), &data); err != nil {
		return nil, fmt.Errorf("parsing frontmatter in %s: %w", source, err)
	}
	if data == nil {
		data = make(map[string]any)
	}

	return &Document{Data: data, Body: body}, nil
}

func trimNewline(s string) string {
	if strings.HasPrefix(s, "\r\n") {
		return s[2:]
	}
	return strings.TrimPrefix(s, "\n")
}

// Format renders fields as a front-matter block followed by a blank line and
// body. With no fields the body is returned unchanged.
func Format(fields Fields, body string) (string, error) {
	if len(fields) == 0 {
		return body, nil
	}

	yamlBytes, err := marshalOrdered(fields)
	if err != nil {
		return "", fmt.Errorf("marshaling frontmatter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(delimiter + "\n")
	buf.Write(yamlBytes)
	buf.WriteString(delimiter + "\n")
	if body != "" {
		buf.WriteString("\n")
		buf.WriteString(body)
	}
	return buf.String(), nil
}

// MustFormat is Format for field values known to be encodable (strings,
// numbers, bools, string slices and maps of those).
func MustFormat(fields Fields, body string) string {
	s, err := Format(fields, body)
	if err != nil {
		panic(err)
	}
	return s
}

// marshalOrdered serializes fields through a yaml.Node so that key order is
// exactly the slice order.
func marshalOrdered(fields Fields) ([]byte, error) {
	doc := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}

	for _, f := range fields {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.Key}
		valNode, err := encodeValue(f.Value)
		if err != nil {
			return nil, fmt.Errorf("encoding field %q: %w", f.Key, err)
		}
		doc.Content = append(doc.Content, keyNode, valNode)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encodeValue converts a Go value to a yaml.Node via a marshal round trip.
func encodeValue(v any) (*yaml.Node, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return nil, err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		return node.Content[0], nil
	}
	return &node, nil
}
