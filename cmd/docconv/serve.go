package main

import (
	"context"
	"fmt"

	"github.com/alnah/go-docconv/internal/dispatch"
	"github.com/alnah/go-docconv/internal/httpapi"
	"github.com/alnah/go-docconv/internal/mcpserver"
)

// runPlugin answers one JSON command read from stdin. An error envelope is
// already on stdout, so the returned error only sets the exit status.
func runPlugin(ctx context.Context, args []string, env *Environment) error {
	f, positional, err := parseServeFlags("plugin", printPluginUsage, args, env.Stderr)
	if err != nil {
		return err
	}
	if len(positional) != 0 {
		return fmt.Errorf("%w: plugin takes no arguments", ErrUsage)
	}

	conv, logger, err := newConverter(f.common, env)
	if err != nil {
		// Callers of the plugin protocol read stdout only.
		_ = dispatch.WriteResponse(env.Stdout, dispatch.Failure(err))
		return err
	}
	defer conv.Close()

	ok, err := dispatch.ServeLine(ctx, dispatch.New(conv, logger), env.Stdin, env.Stdout)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCommandFailed
	}
	return nil
}

// runMCP serves MCP tools over stdio until the client disconnects.
func runMCP(ctx context.Context, args []string, env *Environment) error {
	f, positional, err := parseServeFlags("mcp", printMCPUsage, args, env.Stderr)
	if err != nil {
		return err
	}
	if len(positional) != 0 {
		return fmt.Errorf("%w: mcp takes no arguments", ErrUsage)
	}

	conv, logger, err := newConverter(f.common, env)
	if err != nil {
		return err
	}
	defer conv.Close()

	return mcpserver.New(dispatch.New(conv, logger), Version, logger).Run(ctx)
}

// runServe serves the HTTP API until interrupted.
func runServe(ctx context.Context, args []string, env *Environment) error {
	f, positional, err := parseServeFlags("serve", printServeUsage, args, env.Stderr)
	if err != nil {
		return err
	}
	if len(positional) != 0 {
		return fmt.Errorf("%w: serve takes no arguments", ErrUsage)
	}

	conv, logger, err := newConverter(f.common, env)
	if err != nil {
		return err
	}
	defer conv.Close()

	addr := f.addr
	if addr == "" {
		addr = conv.Config().Server.Addr
	}
	handler := httpapi.NewHandler(dispatch.New(conv, logger), httpapi.Options{Logger: logger})
	return httpapi.ListenAndServe(ctx, addr, handler, logger)
}
