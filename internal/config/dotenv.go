package config

import (
	"bufio"
	"os"
	"strings"
)

// LoadDotEnv exports the KEY=VALUE pairs of a .env file into the
// process environment, for running the client facade locally against a
// dev campaign backend. Variables already set in the environment are
// never overridden, so a deployed configuration always wins over the
// file. Callers treat a missing file as "no .env" and ignore the error.
func LoadDotEnv(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		if key != "" && os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}

	return scanner.Err()
}
