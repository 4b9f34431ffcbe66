package log

import (
	"context"
	"fmt"
	"io"
	stdlog "log"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
)

func Green(format string, v ...interface{}) string {
	return fmt.Sprintf("\033[32m"+format+"\033[0m", v...)
}

func Yellow(format string, v ...interface{}) string {
	return fmt.Sprintf("\033[33m"+format+"\033[0m", v...)
}

func Red(format string, v ...interface{}) string {
	return fmt.Sprintf("\033[31m"+format+"\033[0m", v...)
}

func Cyan(format string, v ...interface{}) string {
	return fmt.Sprintf("\033[36m"+format+"\033[0m", v...)
}

func Gray(format string, v ...interface{}) string {
	return fmt.Sprintf("\033[90m"+format+"\033[0m", v...)
}

// ParseLevel maps a config level name to a slog level. Unknown names map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogHandler prints one colored line per record:
//
//	2006/01/02 15:04:05 [LEVEL/group] message (file:line) key=value ...
//
// The group comes from a "_group" attribute, either on the record or bound
// with WithAttrs.
type LogHandler struct {
	mu    *sync.Mutex
	w     io.Writer
	level slog.Leveler
	group string
	attrs []slog.Attr
	color bool
}

func NewHandler(w io.Writer, level slog.Leveler) *LogHandler {
	return &LogHandler{mu: &sync.Mutex{}, w: w, level: level, color: true}
}

// NewPlainHandler is NewHandler without ANSI colors, for files and tests.
func NewPlainHandler(w io.Writer, level slog.Leveler) *LogHandler {
	h := NewHandler(w, level)
	h.color = false
	return h
}

func (h *LogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *LogHandler) Handle(_ context.Context, r slog.Record) error {
	var file string
	var line int
	if r.PC != 0 {
		fs := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := fs.Next()
		file = f.File
		line = f.Line
	}

	group := h.group
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "_group" {
			group = a.Value.String()
			return false
		}
		return true
	})

	var b strings.Builder
	b.WriteString(r.Time.Format("2006/01/02 15:04:05"))
	b.WriteByte(' ')
	b.WriteString(h.levelTag(r.Level, group))
	b.WriteByte(' ')
	b.WriteString(r.Message)
	if file != "" {
		b.WriteByte(' ')
		b.WriteString(h.paint(Gray, "(%s:%d)", file, line))
	}

	write := func(a slog.Attr) bool {
		if a.Key != "_group" {
			b.WriteString(" " + h.paint(Cyan, "%s", a.Key) + "=" + h.paint(Yellow, "%v", a.Value))
		}
		return true
	}
	for _, a := range h.attrs {
		write(a)
	}
	r.Attrs(write)
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	for _, a := range attrs {
		if a.Key == "_group" {
			nh.group = a.Value.String()
		}
	}
	return &nh
}

func (h *LogHandler) WithGroup(name string) slog.Handler {
	nh := *h
	nh.group = name
	return &nh
}

func (h *LogHandler) levelTag(level slog.Level, group string) string {
	name := level.String()
	if group != "" {
		name += "/" + group
	}
	switch {
	case level >= slog.LevelError:
		return h.paint(Red, "[%s]", name)
	case level >= slog.LevelWarn:
		return h.paint(Yellow, "[%s]", name)
	case level >= slog.LevelInfo:
		return h.paint(Green, "[%s]", name)
	default:
		return h.paint(Cyan, "[%s]", name)
	}
}

func (h *LogHandler) paint(color func(string, ...interface{}) string, format string, v ...interface{}) string {
	if !h.color {
		return fmt.Sprintf(format, v...)
	}
	return color(format, v...)
}

// SetupGlobalLogger installs the handler as the slog default and routes the
// standard library log package through it.
func SetupGlobalLogger(level slog.Leveler) {
	handler := NewHandler(os.Stdout, level)
	slog.SetDefault(slog.New(handler))

	stdlog.SetFlags(0)
	stdlog.SetPrefix("")
	stdlog.SetOutput(&writerAdapter{handler: handler, level: slog.LevelInfo})
}

// writerAdapter feeds standard library log output into a slog handler.
type writerAdapter struct {
	handler slog.Handler
	level   slog.Level
}

func (w *writerAdapter) Write(p []byte) (n int, err error) {
	msg := strings.TrimSuffix(string(p), "\n")

	var pcs [1]uintptr
	runtime.Callers(4, pcs[:]) // skip [Callers, Write, log.Output, log.Printf/etc]

	r := slog.NewRecord(time.Now(), w.level, msg, pcs[0])
	return len(p), w.handler.Handle(context.Background(), r)
}

// GetWriter returns an io.Writer that logs each write at info level, for
// frameworks that only accept a writer.
func GetWriter() io.Writer {
	return &writerAdapter{handler: slog.Default().Handler(), level: slog.LevelInfo}
}
