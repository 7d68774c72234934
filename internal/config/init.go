package config

import (
	"fmt"
	"os"
)

const defaultConfigTemplate = `# robosync configuration
# The working directory to snapshot and commit. Defaults to the directory
# robosync is started from.
#work_dir: /srv/robot-state

# Device identity. Defaults to the host name; all commits land on the
# robot-<device_id> branch.
#device_id: unit1

# Git remote pushed to after each commit. Push failures are soft: the local
# commit is kept and the next cycle retries.
remote: origin
#disable_push: false

#author:
#  name: robosync
#  email: robosync@local

# Optional local cycle history (SQLite).
#journal:
#  path: /var/lib/robosync/journal.db

# Optional cycle-outcome publishing over NATS.
#events:
#  url: nats://localhost:4222
#  subject_prefix: robosync.cycle

daemon:
  interval: 10m
  initial_delay: 1m
  # Expose Prometheus metrics when set.
  #metrics_addr: ":9102"

logging:
  level: info
  format: text
`

// Init writes a commented starter configuration file. It refuses to
// overwrite an existing file unless force is set.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
	}
	if err := os.WriteFile(path, []byte(defaultConfigTemplate), 0o644); err != nil {
		return fmt.Errorf("write config file %s: %w", path, err)
	}
	return nil
}
