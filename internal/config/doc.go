// Package config loads the server settings from defaults, an optional
// config.yaml and TASKHUB_* environment variables, and validates them.
package config
