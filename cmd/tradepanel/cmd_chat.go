package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/avanolabs/tradepanel/internal/assistant"
	"github.com/avanolabs/tradepanel/internal/chat"
	"github.com/avanolabs/tradepanel/internal/fallback"
	"github.com/avanolabs/tradepanel/internal/state"
	"github.com/avanolabs/tradepanel/internal/suggest"
	"github.com/avanolabs/tradepanel/pkg/llm"
	"github.com/spf13/cobra"
)

var chatImagePath string

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&chatImagePath, "image", "", "attach an image file (png, jpeg, webp)")
}

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Send one message to the assistant from the terminal",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runChat,
}

// imageMIMETypes maps file extensions to the MIME types the providers
// accept inline.
var imageMIMETypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
}

// encodeImageFile reads a file and packs it as a data URI.
func encodeImageFile(path string) (string, error) {
	mime, ok := imageMIMETypes[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return "", fmt.Errorf("unsupported image type: %s", filepath.Ext(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data)), nil
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	var imageURL string
	if chatImagePath != "" {
		var err error
		imageURL, err = encodeImageFile(chatImagePath)
		if err != nil {
			return err
		}
	}

	sessions := state.NewSessionStore(cfg.DataDir)
	gateway := assistant.New(cfg.LLM.Provider, llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	})
	orch := chat.New(sessions, gateway, fallback.New())

	content := strings.Join(args, " ")
	streamed := false
	err := orch.SendMessageStreaming(context.Background(), content, imageURL, func(chunk string) {
		streamed = true
		fmt.Print(chunk)
	})
	if err != nil {
		return err
	}

	st := orch.State()
	if !streamed && len(st.Messages) > 0 {
		// Fallback replies arrive whole
		fmt.Print(st.Messages[len(st.Messages)-1].Content)
	}
	fmt.Println()

	if st.Error != "" {
		fmt.Fprintln(os.Stderr, st.Error)
	}
	if len(st.Messages) > 0 {
		if suggestions := suggest.Extract(st.Messages[len(st.Messages)-1].Content); len(suggestions) > 0 {
			fmt.Fprintf(os.Stderr, "(%d trade suggestion(s) in reply)\n", len(suggestions))
		}
	}
	return nil
}
