// Package config loads and validates feed configuration from YAML.
//
// Values may reference environment variables with ${VAR} syntax; they are
// expanded before parsing. Defaults are applied for optional fields.
package config
