package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/avanolabs/tradepanel/internal/types"
)

// JSONLExporter exports sessions as JSON Lines, one message per line.
type JSONLExporter struct{}

func (e *JSONLExporter) Export(session *types.ConversationSession, w io.Writer) error {
	enc := json.NewEncoder(w)
	for _, msg := range session.Messages {
		obj := map[string]any{
			"role":      msg.Role,
			"content":   msg.Content,
			"timestamp": msg.Timestamp,
		}
		if msg.ImageURL != "" {
			obj["imageUrl"] = msg.ImageURL
		}
		if err := enc.Encode(obj); err != nil {
			return fmt.Errorf("encoding message %s: %w", msg.ID, err)
		}
	}
	return nil
}

func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
