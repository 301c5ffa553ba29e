package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hupe1980/carebook"
	"github.com/hupe1980/carebook/config"
	"github.com/hupe1980/carebook/engine"
	"github.com/hupe1980/carebook/model"
)

var (
	chatThread  string
	chatOffline bool
	chatVerbose bool
)

// Asker runs one turn of a thread.
type Asker interface {
	Ask(ctx context.Context, threadID, query string) (engine.Reply, error)
	Reset(ctx context.Context, threadID string) error
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the assistant in the terminal",
	Long: `Starts an interactive session on one thread. Type /reset to start over and
/exit (or Ctrl-D) to quit. With --offline no provider is called; the assistant
echoes a canned reply, which is useful to try the schedule and state handling.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if chatOffline {
			cfg.Provider = config.ProviderScripted
		}

		logger, err := newLogger(cfg, io.Discard)
		if err != nil {
			return err
		}
		if chatVerbose {
			logger, _ = newLogger(cfg, os.Stderr)
		}

		cb, err := carebook.NewFromConfig(cmd.Context(), cfg, func(o *carebook.Options) {
			o.Logger = logger
			o.Hooks = engine.LoggingHooks(logger)
		})
		if err != nil {
			return err
		}
		defer cb.Close()

		var offline *model.ScriptedModel
		if chatOffline {
			offline, _ = cb.Model().(*model.ScriptedModel)
		}

		thread := chatThread
		if thread == "" {
			thread = uuid.NewString()
		}

		return runChat(cmd.Context(), cb, offline, thread, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	chatCmd.Flags().StringVarP(&chatThread, "thread", "t", "", "Thread id to continue (random when empty)")
	chatCmd.Flags().BoolVar(&chatOffline, "offline", false, "Use a canned model instead of a provider")
	chatCmd.Flags().BoolVarP(&chatVerbose, "verbose", "v", false, "Log turns to stderr")
}

func runChat(ctx context.Context, a Asker, offline *model.ScriptedModel, thread string, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "Carebook chat (thread %s). Type /exit to quit.\n", thread)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/reset":
			if err := a.Reset(ctx, thread); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			fmt.Fprintln(out, "Conversation cleared.")
			continue
		}

		if offline != nil {
			offline.Enqueue(model.TextStep(fmt.Sprintf("(offline) You said: %q", line)))
		}

		reply, err := a.Ask(ctx, thread, line)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}

		fmt.Fprintf(out, "[%s] %s\n", reply.DialogState, reply.Answer)
	}
}
