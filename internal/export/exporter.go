// Package export renders conversation sessions in portable formats for
// the session export command.
package export

import (
	"fmt"
	"io"

	"github.com/avanolabs/tradepanel/internal/types"
)

// Exporter renders one session to a writer.
type Exporter interface {
	Export(session *types.ConversationSession, w io.Writer) error
	Extension() string
}

// NewExporter creates an exporter for the given format.
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "json":
		return &JSONExporter{}, nil
	case "jsonl":
		return &JSONLExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	case "yaml":
		return &YAMLExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: json, jsonl, md, yaml)", format)
	}
}
