package config

import (
	"os"

	"github.com/joho/godotenv"
)

// loadEnvFiles loads KEY=VALUE pairs from the given files if they exist.
// Later files override earlier ones; variables already set in the process
// environment are never overwritten. Errors are ignored.
func loadEnvFiles(paths ...string) {
	fileVals := make(map[string]string)
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		vals, err := godotenv.Read(path)
		if err != nil {
			continue
		}
		for k, v := range vals {
			fileVals[k] = v
		}
	}
	for k, v := range fileVals {
		if _, set := os.LookupEnv(k); set {
			continue
		}
		_ = os.Setenv(k, v)
	}
}
