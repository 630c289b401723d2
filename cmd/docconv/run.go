package main

import (
	"context"
	"errors"
	"fmt"

	flag "github.com/spf13/pflag"
)

// command is a subcommand that reports failure through its error.
type command func(ctx context.Context, args []string, env *Environment) error

var commands = map[string]command{
	"convert": runConvert,
	"batch":   runBatch,
	"content": runContent,
	"detect":  runDetect,
	"formats": runFormats,
	"plugin":  runPlugin,
	"mcp":     runMCP,
	"serve":   runServe,
}

// runMain dispatches args[1] to its command and returns the exit code.
func runMain(ctx context.Context, args []string, env *Environment) int {
	if len(args) < 2 {
		printUsage(env.Stderr)
		return ExitUsage
	}

	name, rest := args[1], args[2:]
	switch name {
	case "help", "-h", "--help":
		return runHelp(rest, env)
	case "version", "--version":
		fmt.Fprintf(env.Stdout, "docconv %s\n", Version)
		return ExitSuccess
	case "doctor":
		return runDoctorCmd(ctx, rest, env)
	case "completion":
		return runCompletion(rest, env)
	}

	run, ok := commands[name]
	if !ok {
		fmt.Fprintf(env.Stderr, "unknown command: %s\n\n", name)
		printUsage(env.Stderr)
		return ExitUsage
	}

	err := run(ctx, rest, env)
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, flag.ErrHelp):
		return ExitSuccess
	case errors.Is(err, ErrCommandFailed):
		// The failure is already in the response envelope.
		return ExitGeneral
	}
	fmt.Fprintf(env.Stderr, "error: %v\n", err)
	return exitCodeFor(err)
}
