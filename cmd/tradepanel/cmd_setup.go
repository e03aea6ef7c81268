package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/avanolabs/tradepanel/internal/config"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(setupCmd)
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		scanner := bufio.NewScanner(os.Stdin)

		fmt.Println("TradePanel Setup Wizard")
		fmt.Println("Press Enter to accept the default value shown in brackets.")
		fmt.Println()

		// 1. AI provider
		provider := prompt(scanner, "AI provider (gemini or openai)", cfg.LLM.Provider)
		if provider != "gemini" && provider != "openai" {
			return fmt.Errorf("unsupported provider: %s", provider)
		}
		cfg.LLM.Provider = provider

		// 2. API key
		cfg.LLM.APIKey = prompt(scanner, "API key", cfg.LLM.APIKey)

		// 3. Model name
		if cfg.LLM.Model == "" || (provider == "openai" && strings.HasPrefix(cfg.LLM.Model, "gemini")) {
			if provider == "openai" {
				cfg.LLM.Model = "gpt-4o"
			} else {
				cfg.LLM.Model = "gemini-2.5-flash"
			}
		}
		cfg.LLM.Model = prompt(scanner, "Model name", cfg.LLM.Model)

		// 4. Base URL override (optional)
		cfg.LLM.BaseURL = prompt(scanner, "Base URL override (optional)", cfg.LLM.BaseURL)

		// 5. Max output tokens
		maxTokensStr := prompt(scanner, "Max output tokens", strconv.Itoa(cfg.LLM.MaxTokens))
		if n, err := strconv.Atoi(maxTokensStr); err == nil {
			cfg.LLM.MaxTokens = n
		}

		// 6. Inspection server address (optional)
		cfg.HTTPAddr = prompt(scanner, "Inspection HTTP address (optional, e.g. 127.0.0.1:8975)", cfg.HTTPAddr)

		if err := config.Save(cfgPath, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		fmt.Println()
		fmt.Println("Configuration saved to", cfgPath)
		return nil
	},
}

// prompt displays a labeled prompt with a default value and reads user input.
// If the user enters nothing, the default is returned.
func prompt(scanner *bufio.Scanner, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", label, defaultVal)
	} else {
		fmt.Printf("%s: ", label)
	}
	if scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input != "" {
			return input
		}
	}
	return defaultVal
}
