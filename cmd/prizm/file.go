package main

import "os"

// readFile reads a local file's contents as a string, for subcommands
// that pass file contents through as a tool argument (e.g. workflow
// register).
func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
