package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/alle-ai/alle-go/internal/app"
	"github.com/alle-ai/alle-go/internal/domain"
	"github.com/alle-ai/alle-go/internal/infrastructure/cli/commands"
	"github.com/alle-ai/alle-go/internal/infrastructure/cli/helpers"
)

// Options holds CLI-level configuration needed before the container exists.
type Options struct {
	Verbose    bool
	Ephemeral  bool
	ConfigPath string
}

// OptionsFromArgs picks the container-level flags out of the raw arguments so
// the container can be built before cobra parses them.
func OptionsFromArgs(args []string) Options {
	var opts Options
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--":
			return opts
		case arg == "--verbose" || arg == "-v":
			opts.Verbose = true
		case arg == "--ephemeral":
			opts.Ephemeral = true
		case arg == "--config" && i+1 < len(args):
			opts.ConfigPath = args[i+1]
			i++
		case strings.HasPrefix(arg, "--config="):
			opts.ConfigPath = strings.TrimPrefix(arg, "--config=")
		}
	}
	return opts
}

// NewRootCmd builds the container and wires the cobra root command. The
// caller closes the returned container.
func NewRootCmd(ctx context.Context, opts Options) (*cobra.Command, *app.Container, error) {
	container, err := app.BuildContainer(ctx, app.Options{
		Verbose:    opts.Verbose,
		Ephemeral:  opts.Ephemeral,
		ConfigPath: opts.ConfigPath,
	})
	if err != nil {
		return nil, nil, err
	}
	return NewRootForContainer(container), container, nil
}

// NewRootForContainer wires the command tree around an existing container.
func NewRootForContainer(container *app.Container) *cobra.Command {
	var (
		assumeYes  bool
		verbose    bool
		ephemeral  bool
		configPath string
	)

	root := &cobra.Command{
		Use:   "alle",
		Short: "alle - developer workbench for the Alle-AI API",
		Long:  "alle records API calls in a size-bounded local history and tracks video generation jobs until they finish.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			container.Prompter = NewPrompter(cmd.InOrStdin(), cmd.ErrOrStderr(), assumeYes)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.BoolVarP(&assumeYes, "yes", "y", false, "Answer yes to confirmation prompts")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	flags.BoolVar(&ephemeral, "ephemeral", false, "Keep state in memory for this run only")
	flags.StringVar(&configPath, "config", "", "Config file path (default ~/.alle/config.yaml)")

	videoCmd := commands.NewVideoCommand(container)
	videoCmd.AddCommand(newVideoWatchCommand(container))

	root.AddCommand(
		newCallCommand(container),
		commands.NewHistoryCommand(container),
		commands.NewStorageCommand(container),
		videoCmd,
		commands.NewConfigCommand(container),
		commands.NewDoctorCommand(container),
		commands.NewVersionCommand(),
	)
	return root
}

func newCallCommand(container *app.Container) *cobra.Command {
	var (
		method string
		model  string
		prompt string
		body   string
	)

	cmd := &cobra.Command{
		Use:   "call <path>",
		Short: "Call an API endpoint and record it in history",
		Example: `  alle call /chat/completions --model gpt-4o --prompt "What is Go?"
  alle call /images/generate --body '{"model":"dall-e-3","prompt":"a gopher","size":"1024x1024"}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := buildRequestPayload(model, prompt, body)
			if err != nil {
				return err
			}
			return runCall(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), container, strings.ToUpper(method), args[0], payload)
		},
	}

	cmd.Flags().StringVarP(&method, "method", "X", http.MethodPost, "HTTP method")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Model for a chat request built from --prompt")
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "User message for a chat request")
	cmd.Flags().StringVar(&body, "body", "", "Raw JSON request body, or @file to read it from a file")
	cmd.MarkFlagsMutuallyExclusive("prompt", "body")
	return cmd
}

// buildRequestPayload turns --body or --model/--prompt into a request payload.
func buildRequestPayload(model, prompt, body string) (domain.RequestPayload, error) {
	if body != "" {
		data := []byte(body)
		if strings.HasPrefix(body, "@") {
			var err error
			data, err = os.ReadFile(strings.TrimPrefix(body, "@"))
			if err != nil {
				return domain.RequestPayload{}, fmt.Errorf("failed to read request body: %w", err)
			}
		}
		payload, err := domain.ParseRequestPayload(data)
		if err != nil {
			return domain.RequestPayload{}, fmt.Errorf("invalid request body: %w", err)
		}
		return payload, nil
	}

	if strings.TrimSpace(prompt) == "" {
		return domain.RequestPayload{}, errors.New("--prompt or --body is required")
	}
	return domain.NewChatPayload(domain.ChatRequest{
		Model:    model,
		Messages: []domain.ChatMessage{{Role: "user", Content: prompt}},
	}), nil
}

// runCall performs the request, records it and renders the response. Error
// statuses are recorded like any other call and then reported as a failure.
func runCall(ctx context.Context, out, errOut io.Writer, container *app.Container, method, path string, payload domain.RequestPayload) error {
	if container.Invoker == nil || container.Workbench == nil {
		return errors.New("workbench unavailable")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	if method == http.MethodGet || method == http.MethodHead {
		body = nil
	}

	spinner := startSpinner(errOut, fmt.Sprintf("%s %s", method, path))
	result, err := container.Invoker.Invoke(ctx, method, path, body)
	spinner.Stop()
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	entry, outcome, err := container.Workbench.RecordCall(ctx, payload, domain.ParseResponseBody(result.Body), result.Stats())
	if err != nil {
		return fmt.Errorf("failed to record call: %w", err)
	}

	RenderCall(out, entry, outcome)
	helpers.PrintStorageWarning(errOut, container)

	if entry.Failed() {
		return fmt.Errorf("request failed with status %d %s", result.StatusCode, result.StatusText)
	}
	return nil
}

// startSpinner animates on terminals and is inert otherwise.
func startSpinner(w io.Writer, msg string) *Spinner {
	spinner := NewSpinner(w)
	spinner.SetMessage(msg)
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		spinner.Start()
	}
	return spinner
}
