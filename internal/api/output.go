package api

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// OutputFormat selects how CLI commands render server responses.
type OutputFormat string

const (
	OutputFormatYAML OutputFormat = "yaml"
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatMarkdown prints the document markdown of responses that
	// carry one (parse results) and falls back to YAML for everything else.
	OutputFormatMarkdown OutputFormat = "markdown"
)

// globalOutputFormat is set by the root command's --output flag.
var globalOutputFormat = OutputFormatYAML

// SetOutputFormat sets the global output format. Unknown values fall back
// to YAML.
func SetOutputFormat(format string) {
	switch format {
	case "json":
		globalOutputFormat = OutputFormatJSON
	case "markdown", "md":
		globalOutputFormat = OutputFormatMarkdown
	default:
		globalOutputFormat = OutputFormatYAML
	}
}

// Markdowner is implemented by response types that are, at heart, a markdown
// document. The markdown output format prints that document verbatim instead
// of wrapping it in a structured envelope.
type Markdowner interface {
	RenderMarkdown() string
}

// Output writes data to stdout in the configured format.
func Output(data any) error {
	return OutputTo(os.Stdout, globalOutputFormat, data)
}

// OutputTo writes data to the given writer in the specified format.
func OutputTo(w io.Writer, format OutputFormat, data any) error {
	if format == OutputFormatMarkdown {
		m, ok := data.(Markdowner)
		if !ok {
			format = OutputFormatYAML
		} else {
			md := m.RenderMarkdown()
			if !strings.HasSuffix(md, "\n") {
				md += "\n"
			}
			_, err := io.WriteString(w, md)
			return err
		}
	}
	switch format {
	case OutputFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case OutputFormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(data)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}
