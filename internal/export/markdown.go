package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/avanolabs/tradepanel/internal/types"
)

// MarkdownExporter exports sessions as readable Markdown transcripts.
type MarkdownExporter struct{}

func (e *MarkdownExporter) Export(session *types.ConversationSession, w io.Writer) error {
	title := session.Title
	if title == "" {
		title = string(session.ID)
	}
	_, _ = fmt.Fprintf(w, "# %s\n\n", title)
	_, _ = fmt.Fprintf(w, "**Session:** %s  \n", session.ID)
	_, _ = fmt.Fprintf(w, "**Created:** %s  \n", session.CreatedAt.Format(time.RFC3339))
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n", len(session.Messages))
	_, _ = fmt.Fprintf(w, "---\n\n")

	for i, msg := range session.Messages {
		label := "User"
		if msg.Role == types.RoleAssistant {
			label = "Assistant"
		}
		_, _ = fmt.Fprintf(w, "**%s** (%s)\n\n%s\n\n", label, msg.Timestamp.Format(time.RFC3339), escapeMarkdown(msg.Content))
		if msg.ImageURL != "" {
			_, _ = fmt.Fprintf(w, "_[image attached]_\n\n")
		}
		if i < len(session.Messages)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}
	return nil
}

// escapeMarkdown escapes emphasis markers outside fenced code blocks so
// model output renders as written.
func escapeMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	result := make([]string, 0, len(lines))
	inCodeBlock := false

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "```"):
			inCodeBlock = !inCodeBlock
		case !inCodeBlock:
			line = strings.ReplaceAll(line, "**", "\\*\\*")
			line = strings.ReplaceAll(line, "__", "\\_\\_")
		}
		result = append(result, line)
	}
	return strings.Join(result, "\n")
}

func (e *MarkdownExporter) Extension() string {
	return "md"
}
