// Package util holds small helpers shared by the binaries.
package util

import (
	"os"
	"strings"
)

// EnvOrDefault returns the trimmed value of key, or fallback when it is unset or blank.
func EnvOrDefault(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
