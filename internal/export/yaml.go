package export

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/avanolabs/tradepanel/internal/types"
)

// YAMLExporter exports sessions as YAML.
type YAMLExporter struct{}

func (e *YAMLExporter) Export(session *types.ConversationSession, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer func() { _ = enc.Close() }()
	return enc.Encode(session)
}

func (e *YAMLExporter) Extension() string {
	return "yaml"
}
