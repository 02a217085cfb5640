// Package env holds the few raw os.Getenv lookups that run before the typed
// configuration is loaded, such as picking the .env file in main.
package env

import "os"

// Get reads one environment variable, treating unset and empty the same way
// and returning fallback for both.
func Get(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
