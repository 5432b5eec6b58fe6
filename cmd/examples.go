package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"llm-client/internal/client"
	"llm-client/internal/display"
	"llm-client/internal/models"
)

const invalidDemoKey = "invalid-key"

// scenario is one demonstration run by the examples command.
type scenario struct {
	title string
	// needsKey scenarios are skipped when no key was resolved.
	needsKey bool
	run      func(ctx context.Context, p *display.Printer, c *client.Client)
}

var scenarios = []scenario{
	{
		title:    "Example 1: Basic Usage",
		needsKey: true,
		run: func(ctx context.Context, p *display.Printer, c *client.Client) {
			p.Println(c.Chat(ctx, "What is Python programming language?", models.Params{}))
		},
	},
	{
		title:    "Example 2: With Custom Parameters",
		needsKey: true,
		run: func(ctx context.Context, p *display.Printer, c *client.Client) {
			p.Println(c.Chat(ctx, "Write a haiku about coding", models.Params{
				Temperature: models.Float64(0.9),
				MaxTokens:   100,
			}))
		},
	},
	{
		title:    "Example 3: Multiple Requests",
		needsKey: true,
		run: func(ctx context.Context, p *display.Printer, c *client.Client) {
			questions := []string{
				"What is 2+2?",
				"Name a programming language",
				"What color is the sky?",
			}
			for i, q := range questions {
				p.Printf("\nQuestion %d: %s\n", i+1, q)
				p.Printf("Answer: %s\n", c.Chat(ctx, q, models.Params{MaxTokens: 50}))
			}
		},
	},
	{
		title: "Example 4: Error Handling",
		run: func(ctx context.Context, p *display.Printer, c *client.Client) {
			p.Println(c.Chat(ctx, "Hello", models.Params{}))
		},
	},
}

func newExamplesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "examples",
		Short: "Run the usage demonstrations against the configured endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := opts.open(cmd)
			if err != nil {
				return err
			}
			return runExamples(cmd.Context(), display.New(cmd.OutOrStdout()), sess)
		},
	}
}

func runExamples(ctx context.Context, p *display.Printer, sess *session) error {
	p.Println()
	p.Banner("LLM API Client - Usage Examples")
	p.Println()

	for _, sc := range scenarios {
		p.Banner(sc.title)

		settings := sess.settings
		if !sc.needsKey {
			settings.APIKey = invalidDemoKey
		} else if !settings.HasAPIKey() {
			p.Warn("Skipping - No API key configured")
			continue
		}

		c, err := client.NewFromSettings(settings)
		if err != nil {
			return fmt.Errorf("%s: %w", sc.title, err)
		}
		sc.run(ctx, p, c)
		p.Println()

		if err := ctx.Err(); err != nil {
			return err
		}
	}

	p.Rule()
	p.Success("All examples completed!")
	p.Rule()
	return nil
}
