package config

import (
	"fmt"
	"os"
)

func Template() string {
	return defaultTemplate
}

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(defaultTemplate), 0o600)
}

const defaultTemplate = `# rmfctl configuration
min_version = 1.6
max_version = 2.2
magic = "RMF"

# strict: unsupported version or bad magic fails the load
# lenient: log a warning and keep decoding
header_policy = "strict"

decoder = "chunks"

# console | log | off
trace = "console"
# trace_record = "last.rtrace"
color = "auto"

summary_format = "yaml"
log_level = "info"
`
