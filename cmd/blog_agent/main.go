// Package main provides the blog_agent command: the HTTP API, the background
// worker and one-off generation and maintenance commands.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "blog_agent",
	Short: "AI blog post generation service",
	Long: "blog_agent turns a topic into a published blog post: article text from a language model, " +
		"a cover image, a unique slug and derived social posts. Every external call degrades gracefully.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a config file (yaml, json or toml)")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
