package dispatch

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// maxLineBytes bounds the single request line of the plugin protocol.
const maxLineBytes = 64 << 20

// ErrEmptyInput means no request line was received.
var ErrEmptyInput = errors.New("no input received")

// ReadCommand reads one line from r and decodes it as a command. The line
// is a JSON object whose "command" member names the command; the whole
// object doubles as its parameters.
func ReadCommand(r io.Reader) (Command, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var line string
	for sc.Scan() {
		if line = strings.TrimSpace(sc.Text()); line != "" {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return Command{}, fmt.Errorf("reading request: %w", err)
	}
	if line == "" {
		return Command{}, ErrEmptyInput
	}

	var head struct {
		Command string `json:"command"`
	}
	if err := json.Unmarshal([]byte(line), &head); err != nil {
		return Command{}, fmt.Errorf("%w: request is not a JSON object: %v", ErrInvalidParams, err)
	}
	if head.Command == "" {
		return Command{}, fmt.Errorf("%w: missing \"command\"", ErrInvalidParams)
	}
	return Command{Name: head.Command, Params: json.RawMessage(line)}, nil
}

// ServeLine answers one plugin request: it reads a command line from r,
// dispatches it and writes the indented envelope to w. It reports whether
// the command succeeded so the caller can pick an exit status.
func ServeLine(ctx context.Context, d *Dispatcher, r io.Reader, w io.Writer) (bool, error) {
	var resp Response
	cmd, err := ReadCommand(r)
	if err != nil {
		resp = invalid(err)
	} else {
		resp = d.Dispatch(ctx, cmd)
	}

	if err := WriteResponse(w, resp); err != nil {
		return false, err
	}
	return resp.OK(), nil
}

// WriteResponse writes resp as indented JSON followed by a newline.
func WriteResponse(w io.Writer, resp Response) error {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding response: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing response: %w", err)
	}
	return nil
}
