package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// InitSlog installs the default logger, on a terminal records are colorized
// by level, otherwise plain logfmt is written to stderr.
func InitSlog(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if color.NoColor {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = NewConsoleHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// ConsoleHandler renders records as "LEVEL message key=value ..." lines.
type ConsoleHandler struct {
	opts   *slog.HandlerOptions
	out    io.Writer
	mu     *sync.Mutex
	// attrs are bound with WithAttrs, their keys already carry the group
	// prefix active at that point.
	attrs  []slog.Attr
	groups []string
}

func NewConsoleHandler(out io.Writer, opts *slog.HandlerOptions) *ConsoleHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &ConsoleHandler{opts: opts, out: out, mu: &sync.Mutex{}}
}

func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	minimum := slog.LevelInfo
	if h.opts.Level != nil {
		minimum = h.opts.Level.Level()
	}
	return level >= minimum
}

func levelString(level slog.Level) string {
	label := fmt.Sprintf("%-5s", level.String())
	switch {
	case level >= slog.LevelError:
		return color.RedString(label)
	case level >= slog.LevelWarn:
		return color.YellowString(label)
	case level >= slog.LevelInfo:
		return color.BlueString(label)
	default:
		return color.MagentaString(label)
	}
}

func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	var line strings.Builder
	line.WriteString(r.Time.Format("15:04:05.000"))
	line.WriteByte(' ')
	line.WriteString(levelString(r.Level))
	line.WriteByte(' ')
	line.WriteString(r.Message)

	writeAttr := func(a slog.Attr) {
		if a.Equal(slog.Attr{}) {
			return
		}
		line.WriteByte(' ')
		line.WriteString(color.WhiteString(a.Key + "="))
		line.WriteString(fmt.Sprint(a.Value.Resolve().Any()))
	}
	for _, a := range h.attrs {
		writeAttr(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(h.qualify(a))
		return true
	})
	line.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, line.String())
	return err
}

func (h *ConsoleHandler) qualify(a slog.Attr) slog.Attr {
	if len(h.groups) == 0 {
		return a
	}
	return slog.Attr{Key: strings.Join(h.groups, ".") + "." + a.Key, Value: a.Value}
}

func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append([]slog.Attr{}, h.attrs...)
	for _, a := range attrs {
		next.attrs = append(next.attrs, h.qualify(a))
	}
	return &next
}

func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.groups = append(append([]string{}, h.groups...), name)
	return &next
}
