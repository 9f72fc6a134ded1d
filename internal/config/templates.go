package config

import (
	"fmt"
	"os"
)

func Template() string {
	return clientTemplate
}

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(clientTemplate), 0o600)
}

const clientTemplate = `# peer address; TRACI_HOST / TRACI_PORT override these
host = "localhost"
port = 9999

# "sumo" for a stock SUMO peer, "plain" for the minimal framing
dialect = "sumo"
log_level = "info"
node = "tracictl"

# serve /metrics and /healthz while a command runs; empty disables
metrics_addr = ""

[connect]
timeout = "5s"
io_timeout = "0s"
max_attempts = 10
backoff_initial = "250ms"
backoff_max = "5s"
backoff_multiplier = 2.0
jitter = true

[coordinates]
projection = "bounds-affine"
heading = "compass"
# net boundaries for offline conversion; a live peer reports its own
# lower_left = [0.0, 0.0]
# upper_right = [1000.0, 1000.0]
# margin = 25
`
