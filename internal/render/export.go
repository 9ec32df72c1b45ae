package render

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"
)

// Format is an export format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
	FormatYAML     Format = "yaml"
	FormatHTML     Format = "html"
)

var validFormats = map[Format]bool{
	FormatJSON:     true,
	FormatMarkdown: true,
	FormatText:     true,
	FormatYAML:     true,
	FormatHTML:     true,
}

// ValidateFormat returns an error if the format is not recognized.
func ValidateFormat(f Format) error {
	if !validFormats[f] {
		return fmt.Errorf("invalid export format %q: must be one of: json, markdown, text, yaml, html", f)
	}
	return nil
}

// Document is something that can be exported. Its JSON encoding is the
// json export; Markdown and PlainText provide the prose formats.
type Document interface {
	Markdown() string
	PlainText() string
}

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Export renders doc in format.
func Export(format Format, doc Document) (string, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encoding json: %w", err)
		}
		return string(data), nil
	case FormatMarkdown:
		return doc.Markdown(), nil
	case FormatText:
		return doc.PlainText(), nil
	case FormatYAML:
		// Go through JSON so field names match the json export.
		data, err := json.Marshal(doc)
		if err != nil {
			return "", fmt.Errorf("encoding json: %w", err)
		}
		var generic any
		if err := json.Unmarshal(data, &generic); err != nil {
			return "", fmt.Errorf("decoding json: %w", err)
		}
		out, err := yaml.Marshal(generic)
		if err != nil {
			return "", fmt.Errorf("encoding yaml: %w", err)
		}
		return string(out), nil
	case FormatHTML:
		var buf bytes.Buffer
		if err := md.Convert([]byte(doc.Markdown()), &buf); err != nil {
			return "", fmt.Errorf("rendering html: %w", err)
		}
		return buf.String(), nil
	default:
		return "", ValidateFormat(format)
	}
}
