package main

import (
	"log/slog"

	"github.com/enginecore/enginecore/cmd"
	logutil "github.com/enginecore/enginecore/internal/log"
	"github.com/enginecore/enginecore/internal/version"
)

func main() {
	if version.VersionHash == "unknown" {
		logutil.SetupGlobalLogger(slog.LevelDebug)
	} else {
		logutil.SetupGlobalLogger(slog.LevelInfo)
	}

	slog.Debug("Engine starting.", slog.String("version", version.CurrentVersion), slog.String("hash", version.VersionHash))

	cmd.Execute()
}
