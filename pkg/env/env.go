package env

import "os"

// Prefix is shared by every environment variable this service reads.
const Prefix = "PRICEWATCH_"

// Get returns the value of the given environment variable or a fallback.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// App returns the value of the Prefix-qualified variable or a fallback.
func App(key, fallback string) string {
	return Get(Prefix+key, fallback)
}
