// Package env holds the one environment lookup that has to run before the
// typed config is loaded (the logger picks its output format at construction
// time). Everything else goes through pkg/config.
package env

import "os"

// Get reads an environment variable, falling back when it is unset or empty.
// An explicitly empty value counts as unset so RENTLOOP_X="" behaves like a
// missing key.
func Get(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
