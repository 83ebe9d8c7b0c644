package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KaramelBytes/docassist/internal/chat"
	"github.com/KaramelBytes/docassist/internal/generate"
	"github.com/KaramelBytes/docassist/internal/session"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	chatMode    string
	chatBackend string
	chatUploads []string
)

const chatCommands = `Commands:
  /upload <path...>   add CSV, Excel or JSON files
  /analyze [id|name]  analyze a file (latest upload by default)
  /files              list uploaded files
  /remove <id|name>   remove an uploaded file
  /context            show what the assistant remembers
  /help               show this help
  /quit, /exit        leave the chat`

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive assistant for uploaded data files",
	Example: `  docassist chat --upload sales.csv
  docassist chat --mode remote --backend http://127.0.0.1:8000`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		sess, err := buildSession(c)
		if err != nil {
			return err
		}
		client, err := buildBackend(c, chatMode, chatBackend)
		if err != nil {
			return err
		}
		a := chat.NewAssistant(sess, buildSimulator(c), client, logger)

		w := cmd.OutOrStdout()
		a.OnProgress = func(p generate.Progress) {
			fmt.Fprintf(w, "⏳ %3.0f%% %s\n", p.Percent, p.Step)
		}
		emit := func(msg string) {
			fmt.Fprintln(w, msg)
			fmt.Fprintln(w)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		if a.Remote() {
			fmt.Fprintf(w, "Connected to backend at %s\n", client.BaseURL())
		}
		emit(chat.Greeting)
		for _, p := range chatUploads {
			uploadPath(a, p, emit, cmd.ErrOrStderr())
		}

		lines, scanErr := scanLines(ctx, cmd.InOrStdin())
		eof := false
		for {
			if ctx.Err() != nil {
				break
			}
			fmt.Fprint(w, "> ")
			var line string
			var ok bool
			select {
			case <-ctx.Done():
			case line, ok = <-lines:
			}
			if ctx.Err() != nil {
				break
			}
			if !ok {
				eof = true
				break
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			quit, err := handleChatLine(ctx, a, sess, line, emit, cmd.ErrOrStderr())
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Debug("chat turn failed", zap.Error(err))
				fmt.Fprintln(cmd.ErrOrStderr(), "✗ Error:", explainBackendError(err))
			}
			if quit || ctx.Err() != nil {
				break
			}
		}
		if ctx.Err() != nil {
			// a second Ctrl-C now terminates the process
			stop()
			fmt.Fprintln(w)
			fmt.Fprintln(w, "Bye!")
			return nil
		}
		fmt.Fprintln(w, "Bye!")
		if eof {
			return <-scanErr
		}
		return nil
	},
}

// scanLines feeds input lines to the returned channel until EOF or ctx is done.
// The error channel yields the scanner error once the line channel is closed.
func scanLines(ctx context.Context, r io.Reader) (<-chan string, <-chan error) {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				errc <- nil
				return
			}
		}
		errc <- sc.Err()
	}()
	return lines, errc
}

// handleChatLine dispatches slash commands and hands everything else to the assistant.
func handleChatLine(ctx context.Context, a *chat.Assistant, sess *session.Session, line string, emit chat.Emit, errw io.Writer) (bool, error) {
	if !strings.HasPrefix(line, "/") {
		return false, a.Respond(ctx, line, emit)
	}
	fields := strings.Fields(line)
	name, rest := strings.ToLower(fields[0]), fields[1:]
	switch name {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		emit(chatCommands)
	case "/upload":
		if len(rest) == 0 {
			return false, fmt.Errorf("usage: /upload <path...>")
		}
		for _, p := range rest {
			uploadPath(a, p, emit, errw)
		}
	case "/analyze":
		return false, a.Analyze(ctx, strings.Join(rest, " "), emit)
	case "/files":
		files := sess.Files.List()
		if len(files) == 0 {
			emit("No files uploaded yet.")
			return false, nil
		}
		lines := make([]string, len(files))
		for i, f := range files {
			lines[i] = chat.FileLine(f)
		}
		emit(strings.Join(lines, "\n"))
	case "/remove":
		if len(rest) == 0 {
			return false, fmt.Errorf("usage: /remove <id|name>")
		}
		return false, a.Remove(strings.Join(rest, " "), emit)
	case "/context":
		cc := sess.Context()
		var b strings.Builder
		fmt.Fprintf(&b, "Document type: %s\n", orDash(cc.DocumentType))
		fmt.Fprintf(&b, "Topic: %s\n", orDash(cc.Topic))
		fmt.Fprintf(&b, "Data source: %s", orDash(cc.DataSource))
		keys := make([]string, 0, len(cc.Preferences))
		for k := range cc.Preferences {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "\n%s: %s", k, cc.Preferences[k])
		}
		emit(b.String())
	default:
		return false, fmt.Errorf("unknown command %s (try /help)", name)
	}
	return false, nil
}

func uploadPath(a *chat.Assistant, path string, emit chat.Emit, errw io.Writer) {
	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(errw, "✗ read %s: %v\n", path, err)
		return
	}
	if err := a.Upload(filepath.Base(path), content, emit); err != nil && !errors.Is(err, session.ErrUnsupportedType) {
		fmt.Fprintf(errw, "✗ upload %s: %v\n", path, err)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&chatMode, "mode", "", "reply mode: local|remote (default from config)")
	chatCmd.Flags().StringVar(&chatBackend, "backend", "", "backend base URL for remote mode (default from config)")
	chatCmd.Flags().StringSliceVar(&chatUploads, "upload", nil, "files to upload before the first prompt (repeatable)")
}
