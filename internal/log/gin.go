package log

import (
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// GinLogger logs one line per HTTP request served by the inspection API.
func GinLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		msg := fmt.Sprintf("%d %s %s", statusCode, c.Request.Method, path)
		if query != "" {
			msg += "?" + query
		}
		msg += fmt.Sprintf(" | %s | %s", c.ClientIP(), latency)
		if len(c.Errors) > 0 {
			msg += " | " + c.Errors.String()
		}

		level := slog.LevelDebug
		if statusCode >= 500 {
			level = slog.LevelError
		}
		r := slog.NewRecord(time.Now(), level, msg, 0)
		r.AddAttrs(slog.String("_group", "HTTP"))
		handler := slog.Default().Handler()
		if handler.Enabled(c.Request.Context(), level) {
			_ = handler.Handle(c.Request.Context(), r)
		}
	}
}

// GinRecovery turns a handler panic into a 500 and an error log line.
func GinRecovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				msg := fmt.Sprintf("panic recovered: %v | %s %s (%s)", err, c.Request.Method, c.Request.URL.Path, FileWithLineNum())
				r := slog.NewRecord(time.Now(), slog.LevelError, msg, 0)
				r.AddAttrs(slog.String("_group", "HTTP"))
				_ = slog.Default().Handler().Handle(c.Request.Context(), r)
				c.AbortWithStatus(500)
			}
		}()
		c.Next()
	}
}

// FileWithLineNum returns "file:line" of the first caller frame outside the
// runtime, the log package and the gin framework.
func FileWithLineNum() string {
	pcs := [20]uintptr{}
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, "runtime") &&
			!strings.HasPrefix(frame.Function, "log") &&
			!strings.Contains(frame.Function, "gin-gonic") ||
			strings.HasSuffix(frame.File, "_test.go") {
			return string(strconv.AppendInt(append([]byte(frame.File), ':'), int64(frame.Line), 10))
		}
		if !more {
			break
		}
	}
	return ""
}
