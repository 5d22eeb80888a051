// Package confloader loads layered configuration with koanf.
//
// Sources, highest priority first:
//
//  1. Command-line flags (WithOverrides)
//  2. Environment variables with the SNAKEVIEW_ prefix
//  3. A YAML configuration file
//  4. Defaults already present in the target struct
//
// Each layer is read into its own koanf instance before being merged, so
// Origin can tell which one set a key; config show prints it next to the
// value. Environment names are matched against the koanf tags of the target,
// so SNAKEVIEW_LIVE_POLL_INTERVAL sets live.poll_interval even though the
// key itself contains an underscore.
//
// Watch reports settled writes to the configuration file so long-running
// commands can apply changes such as the log level.
package confloader
