package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/blog-agent/internal/observability"
	"github.com/jonathan/blog-agent/internal/pipeline"
	"github.com/jonathan/blog-agent/internal/types"
)

var (
	genPrompt      string
	genKeywords    []string
	genLanguage    string
	genTone        string
	genAudience    string
	genAuthor      string
	genStatus      string
	genPublishedAt string
	genDryRun      bool
	genVerbose     bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one blog post from the command line",
	Long: `Run the full generation pipeline once and print the result as JSON.

With --dry-run the post is generated but not stored, and no database is needed.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&genPrompt, "prompt", "p", "", "Topic of the post")
	generateCmd.Flags().StringSliceVarP(&genKeywords, "keywords", "k", nil, "Keywords to weave into the post")
	generateCmd.Flags().StringVar(&genLanguage, "language", "", "Language of the post")
	generateCmd.Flags().StringVar(&genTone, "tone", "", "Tone of voice")
	generateCmd.Flags().StringVar(&genAudience, "audience", "", "Target audience")
	generateCmd.Flags().StringVarP(&genAuthor, "author", "a", "", "Author UUID (required unless --dry-run)")
	generateCmd.Flags().StringVar(&genStatus, "status", "", "DRAFT, PUBLISHED or ARCHIVED (default DRAFT)")
	generateCmd.Flags().StringVar(&genPublishedAt, "published-at", "", "Publication time, RFC 3339")
	generateCmd.Flags().BoolVar(&genDryRun, "dry-run", false, "Generate without storing anything")
	generateCmd.Flags().BoolVarP(&genVerbose, "verbose", "v", false, "Print progress and a summary to stderr")
	_ = generateCmd.MarkFlagRequired("prompt")
	rootCmd.AddCommand(generateCmd)
}

// buildPublishRequest assembles and validates the request from flags.
func buildPublishRequest() (types.PublishRequest, error) {
	req := types.PublishRequest{
		GenerationRequest: types.GenerationRequest{
			Topic:    genPrompt,
			Keywords: genKeywords,
			Language: genLanguage,
			Tone:     genTone,
			Audience: genAudience,
		},
		AuthorID: genAuthor,
		Status:   genStatus,
	}
	if genPublishedAt != "" {
		at, err := time.Parse(time.RFC3339, genPublishedAt)
		if err != nil {
			return req, fmt.Errorf("invalid --published-at: %w", err)
		}
		req.PublishedAt = &at
	}
	if genDryRun {
		if req.Topic == "" {
			return req, errors.New("--prompt is required")
		}
		return req, nil
	}
	if err := req.Validate(); err != nil {
		return req, fmt.Errorf("invalid request: %w", err)
	}
	return req, nil
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	req, err := buildPublishRequest()
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	a, err := newApp(ctx, needs{database: !genDryRun, pipeline: true})
	if err != nil {
		return err
	}
	defer a.Close()

	printer := observability.NewPrinter(cmd.ErrOrStderr())

	if genDryRun {
		content, err := a.service.Generate(ctx, req.GenerationRequest)
		if err != nil {
			return err
		}
		if genVerbose {
			printer.PrintContent(content)
		}
		return printJSON(cmd.OutOrStdout(), content)
	}

	var progress pipeline.ProgressCallback
	if genVerbose {
		progress = func(ev pipeline.ProgressEvent) { printer.PrintProgress(ev.Percent, ev.Message) }
	}
	result, err := a.service.Publish(ctx, req, progress)
	if err != nil {
		return err
	}
	if genVerbose {
		printer.PrintPost(result.Post, result.SocialPosts)
	}
	return printJSON(cmd.OutOrStdout(), result)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
