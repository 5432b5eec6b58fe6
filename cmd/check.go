package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"llm-client/internal/client"
	"llm-client/internal/display"
	"llm-client/internal/models"
)

const (
	probePrompt    = "Say 'Hello! API is working!' in Russian"
	probeMaxTokens = 100
)

func newCheckCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the configured endpoint answers a probe prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := opts.open(cmd)
			if err != nil {
				return err
			}

			p := display.New(cmd.OutOrStdout())
			p.Banner("Testing API Integration")
			p.Println()
			p.Printf("Profile: %s\n", sess.profileName)
			p.Printf("API Key: %s\n", maskKey(sess.settings.APIKey))
			p.Printf("API URL: %s\n", sess.settings.Endpoint)
			p.Println()

			c, err := client.NewFromSettings(sess.settings)
			if err != nil {
				return err
			}

			p.Println("Sending test request...")
			p.Println()

			res := c.Send(cmd.Context(), probePrompt, models.Params{MaxTokens: probeMaxTokens})
			text, probeErr := client.Content(res)

			p.Rule()
			if probeErr != nil {
				p.Error("ERROR!")
				p.Rule()
				p.Println(client.Extract(res))
			} else {
				p.Success("SUCCESS! API is working correctly!")
				p.Rule()
				p.Println()
				p.Printf("Response: %s\n", text)
			}
			p.Println()
			p.Banner("Test completed")

			if probeErr != nil {
				return fmt.Errorf("probe request failed: %w", probeErr)
			}
			return nil
		},
	}
}
