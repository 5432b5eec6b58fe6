package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"llm-client/internal/client"
	"llm-client/internal/config"
	"llm-client/internal/display"
	"llm-client/internal/logging"
	"llm-client/internal/models"
)

const defaultPrompt = "Explain what is artificial intelligence in 2-3 sentences."

// Execute runs the CLI with the provided arguments.
func Execute(ctx context.Context, args []string) error {
	root := newRootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// options holds the persistent flags shared by every command.
type options struct {
	configPath  string
	profile     string
	apiKey      string
	endpoint    string
	model       string
	temperature float64
	maxTokens   int
	logLevel    string
	logFormat   string
	logFile     string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "llm-client [prompt...]",
		Short: "Send a prompt to an OpenAI-compatible chat-completion endpoint",
		Long: `llm-client sends a single user prompt to a chat-completion endpoint and
prints the reply. The API key is taken from --api-key, then from the
profile's key variables (LLM_API_KEY, OPENAI_API_KEY by default), then
from the config file.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, opts, args)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to YAML configuration file")
	flags.StringVar(&opts.profile, "profile", "", "endpoint profile to use")
	flags.StringVar(&opts.apiKey, "api-key", "", "API key (overrides environment and config)")
	flags.StringVar(&opts.endpoint, "endpoint", "", "chat-completion endpoint URL")
	flags.StringVar(&opts.model, "model", "", "model name")
	flags.Float64Var(&opts.temperature, "temperature", config.DefaultTemperature, "sampling temperature")
	flags.IntVar(&opts.maxTokens, "max-tokens", 0, "maximum tokens in the reply")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format (text, json)")
	flags.StringVar(&opts.logFile, "log-file", "", "write logs to a rotating file")

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newExamplesCmd(opts))
	root.AddCommand(newCheckCmd(opts))

	return root
}

func runChat(cmd *cobra.Command, opts *options, args []string) error {
	sess, err := opts.open(cmd)
	if err != nil {
		return err
	}

	out := display.New(cmd.OutOrStdout())
	out.Banner("LLM API Client")
	out.Println()

	if !sess.settings.HasAPIKey() {
		printKeyGuidance(cmd.ErrOrStderr(), sess.settings.KeyEnv)
		return config.ErrMissingAPIKey
	}

	prompt := strings.Join(args, " ")
	if len(args) == 0 {
		prompt = defaultPrompt
		out.Note(fmt.Sprintf("Using example prompt: '%s'", prompt))
		out.Note("   (You can pass your own prompt as command line arguments)")
		out.Println()
	}

	c, err := client.NewFromSettings(sess.settings)
	if err != nil {
		return err
	}

	res := c.Send(cmd.Context(), prompt, models.Params{})

	out.Banner("Response:")
	out.Println(client.Extract(res))
	out.Println()

	if _, err := client.Content(res); err != nil {
		return fmt.Errorf("chat request failed: %w", err)
	}

	out.Rule()
	out.Success("Done!")
	out.Rule()
	return nil
}

// session is the resolved state a command runs with.
type session struct {
	cfg         config.Config
	profileName string
	settings    config.Settings
	diagnostics []config.Diagnostic
}

// open loads configuration, initialises logging and resolves client
// settings for the selected profile. Diagnostics are logged and returned.
func (o *options) open(cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}

	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	if o.logFile != "" {
		cfg.Log.File = o.logFile
	}
	if _, err := logging.Init(cfg.Log, cmd.ErrOrStderr()); err != nil {
		return nil, err
	}

	name, profile, err := cfg.ActiveProfile(o.profile)
	if err != nil {
		return nil, err
	}

	settings, diags := config.Resolve(profile, o.overrides(cmd), nil)
	for _, d := range diags {
		slog.Warn("configuration", "code", d.Code, "profile", name, "msg", d.Message)
	}

	return &session{
		cfg:         cfg,
		profileName: name,
		settings:    settings,
		diagnostics: diags,
	}, nil
}

func (o *options) overrides(cmd *cobra.Command) config.Overrides {
	ov := config.Overrides{
		APIKey:    o.apiKey,
		Endpoint:  o.endpoint,
		Model:     o.model,
		MaxTokens: o.maxTokens,
	}
	if cmd.Flags().Changed("temperature") {
		ov.Temperature = models.Float64(o.temperature)
	}
	return ov
}

func printKeyGuidance(w io.Writer, keyEnv []string) {
	p := display.New(w)
	p.Error("No API key found!")
	p.Println()
	p.Println("To use this client, you need to:")
	p.Println("1. Get an API key from your provider (for OpenAI: https://platform.openai.com/api-keys)")
	p.Println("2. Set it as an environment variable:")
	for _, name := range keyEnv {
		p.Printf("   export %s=your-api-key-here\n", name)
	}
	p.Println()
	p.Println("Or pass --api-key, or set api_key for the profile in a --config file.")
}

// maskKey shows the first 15 characters of a key.
func maskKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	r := []rune(key)
	if len(r) > 15 {
		r = r[:15]
	}
	return string(r) + "..."
}
