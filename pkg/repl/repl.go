package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/duynguyendang/gapagent/pkg/service"
	"github.com/duynguyendang/gapagent/pkg/session"
)

const help = `Ask a question about the loaded papers, or:
  :save <file.json>    save the conversation
  :load <file.json>    restore a saved conversation
  :export <file.md>    write a readable transcript
  :history             print the conversation so far
  exit | quit          leave`

// REPL is an interactive question-answering loop over one session.
type REPL struct {
	analysis *service.AnalysisService
	session  *session.Session
	apiKey   string
	out      io.Writer
}

// New creates a REPL writing to out.
func New(analysis *service.AnalysisService, sess *session.Session, apiKey string, out io.Writer) *REPL {
	return &REPL{analysis: analysis, session: sess, apiKey: apiKey, out: out}
}

// Run reads lines from in until EOF or an exit command.
func (r *REPL) Run(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(r.out, "\n--- Ask Questions ---")
	fmt.Fprintf(r.out, "Sources: %s (%d characters)\n", strings.Join(r.session.Sources, ", "), len([]rune(r.session.Corpus)))
	fmt.Fprintln(r.out, help)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		fmt.Fprint(r.out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "exit" || line == "quit" {
			break
		}
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ":") {
			r.command(line)
			continue
		}

		resp, err := r.analysis.Ask(ctx, r.session, line, r.apiKey)
		if err != nil {
			fmt.Fprintf(r.out, "❌ %v\n", err)
			continue
		}
		if resp.Failed() {
			fmt.Fprintf(r.out, "❌ %s\n", resp.Text)
			continue
		}
		fmt.Fprintf(r.out, "\n%s\n\n", resp.Text)
	}
	return scanner.Err()
}

func (r *REPL) command(line string) {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case ":help":
		fmt.Fprintln(r.out, help)
	case ":history":
		fmt.Fprint(r.out, r.session.History.Transcript())
	case ":save":
		if arg == "" {
			fmt.Fprintln(r.out, "Usage: :save <file.json>")
			return
		}
		data, err := r.session.History.Export()
		if err == nil {
			err = os.WriteFile(arg, data, 0o644)
		}
		r.report(err, "💾 Conversation saved to %s", arg)
	case ":load":
		if arg == "" {
			fmt.Fprintln(r.out, "Usage: :load <file.json>")
			return
		}
		r.Load(arg)
	case ":export":
		if arg == "" {
			fmt.Fprintln(r.out, "Usage: :export <file.md>")
			return
		}
		err := os.WriteFile(arg, []byte(r.session.History.Transcript()), 0o644)
		r.report(err, "📥 Transcript written to %s", arg)
	default:
		fmt.Fprintf(r.out, "Unknown command %s. Type :help.\n", name)
	}
}

// Load replaces the chat history with the JSON file at path. On failure the
// current history is kept.
func (r *REPL) Load(path string) {
	data, err := os.ReadFile(path)
	if err == nil {
		err = r.session.History.Import(data)
	}
	r.report(err, "📂 Chat history loaded! (%d messages)", r.session.History.Len())
}

func (r *REPL) report(err error, format string, args ...any) {
	if err != nil {
		fmt.Fprintf(r.out, "❌ Error: %v\n", err)
		return
	}
	fmt.Fprintf(r.out, format+"\n", args...)
}
