package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	docconv "github.com/alnah/go-docconv"
)

func TestReadCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		wantName string
		wantErr  error
	}{
		{
			name:     "single line",
			input:    `{"command":"DetectFormat","inputFile":"a.md"}` + "\n",
			wantName: CmdDetectFormat,
		},
		{
			name:     "leading blank lines and no newline",
			input:    "\n  \n" + `{"command":"GetSupportedFormats"}`,
			wantName: CmdGetSupportedFormats,
		},
		{
			name:    "empty input",
			input:   "",
			wantErr: ErrEmptyInput,
		},
		{
			name:    "not json",
			input:   "ConvertFile a.md\n",
			wantErr: ErrInvalidParams,
		},
		{
			name:    "missing command",
			input:   `{"inputFile":"a.md"}`,
			wantErr: ErrInvalidParams,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ReadCommand(strings.NewReader(tt.input))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ReadCommand() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadCommand() unexpected error: %v", err)
			}
			if got.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", got.Name, tt.wantName)
			}
			if !json.Valid(got.Params) {
				t.Errorf("Params = %s, want the request object", got.Params)
			}
		})
	}
}

func TestServeLine(t *testing.T) {
	t.Parallel()

	svc := &fakeService{}
	var out bytes.Buffer
	ok, err := ServeLine(context.Background(), New(svc, nil),
		strings.NewReader(`{"command":"DetectFormat","inputFile":"notes.md"}`+"\n"), &out)
	if err != nil {
		t.Fatalf("ServeLine() unexpected error: %v", err)
	}
	if !ok {
		t.Errorf("ServeLine() ok = false, output %s", out.String())
	}

	if !strings.HasPrefix(out.String(), "{\n  \"status\": \"success\"") {
		t.Errorf("output not an indented envelope:\n%s", out.String())
	}
	if !strings.HasSuffix(out.String(), "}\n") {
		t.Errorf("output missing trailing newline")
	}

	var env struct {
		Status string `json:"status"`
		Result struct {
			Format string `json:"format"`
			Path   string `json:"filePath"`
		} `json:"result"`
	}
	if err := json.Unmarshal(out.Bytes(), &env); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if env.Result.Format != "markdown" || env.Result.Path != "notes.md" {
		t.Errorf("result = %+v", env.Result)
	}
}

func TestServeLine_Failure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		wantKind docconv.ErrorKind
	}{
		{"garbage", "???\n", docconv.KindInvalidOptionValue},
		{"empty", "", docconv.KindInvalidOptionValue},
		{"unknown command", `{"command":"Nope"}`, docconv.KindInvalidOptionValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var out bytes.Buffer
			ok, err := ServeLine(context.Background(), New(&fakeService{}, nil), strings.NewReader(tt.input), &out)
			if err != nil {
				t.Fatalf("ServeLine() unexpected error: %v", err)
			}
			if ok {
				t.Error("ServeLine() ok = true, want false")
			}

			var resp Response
			if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
				t.Fatalf("output is not JSON: %v", err)
			}
			if resp.Status != StatusError || resp.Kind != tt.wantKind {
				t.Errorf("envelope = %+v", resp)
			}
		})
	}
}
