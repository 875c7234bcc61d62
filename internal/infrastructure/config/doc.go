// Package config loads and validates the Relay Automation Core configuration.
//
// Configuration is read from a YAML file, merged over hardcoded defaults,
// and finally overridden by RELAY_* environment variables. The resulting
// Config is validated before use so startup fails fast on bad settings.
package config
