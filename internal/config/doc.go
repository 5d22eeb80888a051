// Package config defines the snakeview configuration.
//
//   - spec.go: Config struct definition
//   - default.go: default values
//   - verify.go: validation
//   - sanitize.go: masking of credentials and flattening for display
//
// Configuration is loaded via internal/infra/confloader from a YAML file,
// SNAKEVIEW_* environment variables and command-line flags.
package config
