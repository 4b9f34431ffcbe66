package version

// Set with -ldflags "-X github.com/enginecore/enginecore/internal/version.CurrentVersion=..."
var (
	CurrentVersion = "0.0.0-dev"
	VersionHash    = "unknown"
)
