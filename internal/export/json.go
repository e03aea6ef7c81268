package export

import (
	"encoding/json"
	"io"

	"github.com/avanolabs/tradepanel/internal/types"
)

// JSONExporter exports sessions as pretty-printed JSON.
type JSONExporter struct{}

func (e *JSONExporter) Export(session *types.ConversationSession, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(session)
}

func (e *JSONExporter) Extension() string {
	return "json"
}
