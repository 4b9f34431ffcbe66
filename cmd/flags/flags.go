package flags

var (
	ConfigFile string
	Listen     string
	LogLevel   string
)
