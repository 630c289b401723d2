package main

import (
	"io"
	"os"

	"github.com/alnah/go-docconv/internal/engine"
)

// Environment holds the process dependencies commands use, so tests can
// swap them.
type Environment struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Engine replaces the configured engine when set.
	Engine engine.Engine
	// DotEnv lists .env files loaded before the environment is read.
	DotEnv []string
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		DotEnv: []string{".env"},
	}
}
