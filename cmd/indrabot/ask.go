package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cognicore/indrabot/internal/conversation"
	"github.com/cognicore/indrabot/pkg/indrabot/format"
)

var askOutDir string

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question from the terminal",
	Long: `Ask a single question, or start an interactive session when no question
is given. Replies are printed; rendered files are written to --out.
End a question with "/json", "/html", "/pdf" or "/dot" to pick the format.`,
	Example: `  indrabot ask "what phosphorylates RB1?"
  indrabot ask "does MEK activate ERK? /html" --out results`,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askOutDir, "out", "o", ".", "Directory for rendered results")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, cleanup, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := os.MkdirAll(askOutDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	handler, err := conversation.New(conversation.Options{
		Bot:       a.bot,
		Renderer:  a.renderer,
		Publisher: a.publisher,
		Store:     a.store,
		Logger:    logger.Named("conversation"),
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	r := consoleReplier{out: out, dir: askOutDir}
	if len(args) > 0 {
		return handler.Handle(ctx, consoleMessage(strings.Join(args, " ")), r)
	}

	fmt.Fprintln(out, "Ask INDRA a question (Ctrl+D to exit, \"help\" for examples):")
	return askLoop(ctx, handler, cmd.InOrStdin(), r)
}

// askLoop answers one question per input line until EOF.
func askLoop(ctx context.Context, h *conversation.Handler, in io.Reader, r consoleReplier) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(r.out, "> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if err := h.Handle(ctx, consoleMessage(text), r); err != nil {
			logger.Warn("ask.failed", zap.String("question", text), zap.Error(err))
		}
		if ctx.Err() != nil {
			return nil
		}
	}
	fmt.Fprintln(r.out)
	return scanner.Err()
}

func consoleMessage(text string) conversation.Message {
	user := os.Getenv("USER")
	if user == "" {
		user = "console"
	}
	return conversation.Message{
		Channel:  "console",
		UserID:   user,
		UserName: user,
		Text:     text,
		Private:  true,
	}
}

// consoleReplier prints replies and saves rendered results as files.
type consoleReplier struct {
	out io.Writer
	dir string
}

func (r consoleReplier) Send(ctx context.Context, channel, text string) error {
	_, err := fmt.Fprintln(r.out, text)
	return err
}

func (r consoleReplier) Upload(ctx context.Context, channel string, art format.Artifact) error {
	path := filepath.Join(r.dir, art.Filename)
	if err := os.WriteFile(path, art.Content, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	_, err := fmt.Fprintf(r.out, "Saved %s (%d bytes)\n", path, len(art.Content))
	return err
}
