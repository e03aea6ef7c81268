package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/avanolabs/tradepanel/internal/export"
	"github.com/avanolabs/tradepanel/internal/state"
	"github.com/avanolabs/tradepanel/internal/types"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	userStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	assistantStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))
)

var (
	sessionListLimit   int
	sessionExportOut   string
	sessionExportStyle string
)

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionListCmd, sessionShowCmd, sessionSearchCmd, sessionExportCmd, sessionClearCmd)

	sessionListCmd.Flags().IntVar(&sessionListLimit, "limit", 0, "show at most N sessions (0 = all)")
	sessionExportCmd.Flags().StringVarP(&sessionExportOut, "output", "o", "", "output file (default stdout)")
	sessionExportCmd.Flags().StringVarP(&sessionExportStyle, "format", "f", "json", "export format: json, jsonl, md, yaml")
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage conversation sessions",
}

// relativeDate renders a timestamp compactly, like a session picker.
func relativeDate(t time.Time) string {
	diff := time.Since(t)
	switch {
	case diff < 24*time.Hour:
		return t.Format("Today 15:04")
	case diff < 7*24*time.Hour:
		return t.Format("Mon 15:04")
	case diff < 365*24*time.Hour:
		return t.Format("Jan 02 15:04")
	default:
		return t.Format("2006-01-02")
	}
}

func printSessionTable(sessions []*types.ConversationSession) error {
	if len(sessions) == 0 {
		fmt.Println(headerStyle.Render("No sessions found"))
		return nil
	}
	fmt.Println(headerStyle.Render(fmt.Sprintf("Found %d session(s)", len(sessions))))
	fmt.Println()

	w := tabwriter.NewWriter(lipgloss.DefaultRenderer().Output(), 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, titleStyle.Render("ID")+"\t"+titleStyle.Render("Title")+"\t"+titleStyle.Render("Messages")+"\t"+titleStyle.Render("Updated"))
	for _, sess := range sessions {
		title := sess.Title
		if title == "" {
			title = "Untitled"
		}
		if len(title) > 50 {
			title = title[:47] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			idStyle.Render(string(sess.ID)),
			title,
			countStyle.Render(strconv.Itoa(len(sess.Messages))),
			dateStyle.Render(relativeDate(sess.UpdatedAt)),
		)
	}
	return w.Flush()
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		store := state.NewSessionStore(cfg.DataDir)

		sessions := store.ListSessions()
		if sessionListLimit > 0 {
			sessions = store.RecentSessions(sessionListLimit)
		}
		return printSessionTable(sessions)
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a session transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		store := state.NewSessionStore(cfg.DataDir)

		sess, ok := store.GetSession(types.SessionID(args[0]))
		if !ok {
			return fmt.Errorf("session not found: %s", args[0])
		}

		title := sess.Title
		if title == "" {
			title = string(sess.ID)
		}
		fmt.Println(headerStyle.Render(title))
		fmt.Println(dateStyle.Render("Created " + sess.CreatedAt.Format("2006-01-02 15:04:05")))
		fmt.Println()
		for _, msg := range sess.Messages {
			label := userStyle.Render("User")
			if msg.Role == types.RoleAssistant {
				label = assistantStyle.Render("Assistant")
			}
			fmt.Printf("%s %s\n%s\n\n", label, dateStyle.Render(msg.Timestamp.Format("15:04:05")), msg.Content)
		}
		return nil
	},
}

var sessionSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search session titles and messages",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		store := state.NewSessionStore(cfg.DataDir)

		return printSessionTable(store.SearchSessions(strings.Join(args, " ")))
	},
}

var sessionExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Export a session to json, jsonl, md, or yaml",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		store := state.NewSessionStore(cfg.DataDir)

		sess, ok := store.GetSession(types.SessionID(args[0]))
		if !ok {
			return fmt.Errorf("session not found: %s", args[0])
		}

		exporter, err := export.NewExporter(sessionExportStyle)
		if err != nil {
			return err
		}

		out := os.Stdout
		if sessionExportOut != "" {
			f, err := os.Create(sessionExportOut)
			if err != nil {
				return fmt.Errorf("create output file: %w", err)
			}
			defer f.Close()
			out = f
		}
		if err := exporter.Export(sess, out); err != nil {
			return fmt.Errorf("export session: %w", err)
		}
		if sessionExportOut != "" {
			fmt.Fprintf(os.Stderr, "Exported %s to %s\n", sess.ID, sessionExportOut)
		}
		return nil
	},
}

var sessionClearCmd = &cobra.Command{
	Use:   "clear <id|all>",
	Short: "Delete a session or all sessions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		store := state.NewSessionStore(cfg.DataDir)

		if args[0] == "all" {
			if err := store.ClearAll(); err != nil {
				return fmt.Errorf("clear sessions: %w", err)
			}
			fmt.Println("All sessions cleared.")
			return nil
		}

		if !store.DeleteSession(types.SessionID(args[0])) {
			return fmt.Errorf("session not found: %s", args[0])
		}
		fmt.Fprintf(os.Stdout, "Session %s deleted.\n", args[0])
		return nil
	},
}
