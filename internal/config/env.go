// Package config provides shared configuration utilities.
package config

import "os"

// Environment variables read by the commands.
const (
	EnvTuning     = "SIEVE_TUNING"
	EnvLogLevel   = "SIEVE_LOG_LEVEL"
	EnvLogFile    = "SIEVE_LOG_FILE"
	EnvBridgeAddr = "SIEVE_BRIDGE_ADDR"
	EnvBridgeURL  = "SIEVE_BRIDGE_URL" // Public controller address, when behind a proxy
)

// GetEnv returns the value of the environment variable named by the key,
// or fallback if the variable is not set.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// TuningFromEnv loads the file named by SIEVE_TUNING over the defaults.
// With the variable unset it returns DefaultTuning.
func TuningFromEnv() (Tuning, error) {
	path := GetEnv(EnvTuning, "")
	if path == "" {
		return DefaultTuning(), nil
	}
	return LoadTuningFile(path)
}
