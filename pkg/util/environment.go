package util

import (
	"os"
	"strings"
)

// GetEnvironmentVariables returns the process environment as a map.
func GetEnvironmentVariables() map[string]string {
	environmentVariables := map[string]string{}

	for _, variable := range os.Environ() {
		if key, value, found := strings.Cut(variable, "="); found {
			environmentVariables[key] = value
		}
	}

	return environmentVariables
}
