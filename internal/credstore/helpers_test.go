package credstore

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mazurov/tc-credentials/internal/credentials"
	"github.com/mazurov/tc-credentials/internal/sys"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newCapturingLogger returns a logger writing JSON lines into buf
func newCapturingLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func countWarnings(buf *bytes.Buffer) int {
	return strings.Count(buf.String(), `"level":"WARN"`)
}

type runCall struct {
	Path string
	Args []string
}

// fakeRunner records invocations and answers them through handle
type fakeRunner struct {
	calls  []runCall
	handle func(cmd sys.Command) error
}

func (f *fakeRunner) Run(ctx context.Context, cmd sys.Command) error {
	f.calls = append(f.calls, runCall{Path: cmd.Path, Args: cmd.Args})
	if f.handle == nil {
		return nil
	}
	return f.handle(cmd)
}

func (f *fakeRunner) argsOf(subcommand string) [][]string {
	var out [][]string
	for _, c := range f.calls {
		if len(c.Args) > 0 && c.Args[0] == subcommand {
			out = append(out, c.Args)
		}
	}
	return out
}

// writeChunked writes s in small pieces, the way a pipe delivers output
func writeChunked(t *testing.T, w io.Writer, s string, size int) {
	t.Helper()
	if w == nil {
		return
	}
	for start := 0; start < len(s); start += size {
		end := start + size
		if end > len(s) {
			end = len(s)
		}
		if _, err := w.Write([]byte(s[start:end])); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
}

// fakeBackend is an in-memory Backend counting calls
type fakeBackend struct {
	stored    *credentials.Credentials
	getErr    error
	setErr    error
	removeErr error

	ops []string
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Get(ctx context.Context) (*credentials.Credentials, error) {
	f.ops = append(f.ops, "get")
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.stored, nil
}

func (f *fakeBackend) Set(ctx context.Context, creds credentials.Credentials) error {
	f.ops = append(f.ops, "set")
	if f.setErr != nil {
		return f.setErr
	}
	f.stored = &creds
	return nil
}

func (f *fakeBackend) Remove(ctx context.Context) error {
	f.ops = append(f.ops, "remove")
	if f.removeErr != nil {
		return f.removeErr
	}
	f.stored = nil
	return nil
}

func (f *fakeBackend) count(op string) int {
	n := 0
	for _, o := range f.ops {
		if o == op {
			n++
		}
	}
	return n
}
