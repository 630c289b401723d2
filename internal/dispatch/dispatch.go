// Package dispatch maps named commands with JSON parameters onto the
// converter and wraps every outcome in a uniform response envelope. The
// plugin line protocol, the MCP server and the HTTP API all go through a
// Dispatcher.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	docconv "github.com/alnah/go-docconv"
)

// Command names.
const (
	CmdConvertFile         = "ConvertFile"
	CmdBatchConvert        = "BatchConvert"
	CmdConvertFromContent  = "ConvertFromContent"
	CmdDetectFormat        = "DetectFormat"
	CmdGetSupportedFormats = "GetSupportedFormats"
)

// Envelope statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Sentinel errors for dispatch failures that happen before the converter
// is reached.
var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrInvalidParams  = errors.New("invalid parameters")
)

// Service is the converter surface commands are dispatched to.
// *docconv.Converter implements it.
type Service interface {
	Convert(ctx context.Context, req docconv.Request) *docconv.Result
	ConvertContent(ctx context.Context, req docconv.Request) *docconv.Result
	ConvertBatch(ctx context.Context, req docconv.BatchRequest) *docconv.BatchResult
	DetectFormat(ctx context.Context, ref string) (*docconv.Detection, error)
	SupportedFormats(ctx context.Context) *docconv.Formats
}

var _ Service = (*docconv.Converter)(nil)

// Command is one named request. Params holds the command's JSON object;
// a missing or null Params is treated as {}.
type Command struct {
	Name   string
	Params json.RawMessage
}

// Response is the envelope every command returns.
type Response struct {
	Status      string            `json:"status"`
	Result      any               `json:"result,omitempty"`
	Kind        docconv.ErrorKind `json:"kind,omitempty"`
	Error       string            `json:"error,omitempty"`
	Diagnostics []string          `json:"diagnostics,omitempty"`
	Code        string            `json:"code,omitempty"`
	FileURL     string            `json:"fileUrl,omitempty"`
}

// OK reports whether the envelope is a success.
func (r Response) OK() bool { return r.Status == StatusSuccess }

// Success wraps a result.
func Success(result any) Response {
	return Response{Status: StatusSuccess, Result: result}
}

// Failure wraps an error, keeping the typed details of a *docconv.Error.
func Failure(err error) Response {
	resp := Response{Status: StatusError, Kind: docconv.KindOf(err), Error: err.Error()}
	var e *docconv.Error
	if errors.As(err, &e) {
		resp.Diagnostics = e.Diagnostics
		if e.Hint != "" {
			resp.Diagnostics = append(slices.Clone(resp.Diagnostics), "hint: "+e.Hint)
		}
		resp.Code = e.Code()
		if resp.Code != "" {
			resp.FileURL = e.FileURL
		}
	}
	return resp
}

// fromResult turns a conversion result into an envelope.
func fromResult(res *docconv.Result) Response {
	if res.OK() {
		return Success(res)
	}
	resp := Response{
		Status:      StatusError,
		Kind:        res.Kind,
		Error:       res.Error,
		Diagnostics: res.Diagnostics,
	}
	if e := res.Err(); e != nil {
		resp.Code = e.Code()
		if resp.Code != "" {
			resp.FileURL = e.FileURL
		}
	}
	return resp
}

type handler func(ctx context.Context, params json.RawMessage) Response

// Dispatcher routes commands to a Service.
type Dispatcher struct {
	svc      Service
	logger   *slog.Logger
	handlers map[string]handler
}

// New creates a Dispatcher. A nil logger discards.
func New(svc Service, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	d := &Dispatcher{svc: svc, logger: logger}
	d.handlers = map[string]handler{
		CmdConvertFile:         d.convertFile,
		CmdBatchConvert:        d.batchConvert,
		CmdConvertFromContent:  d.convertFromContent,
		CmdDetectFormat:        d.detectFormat,
		CmdGetSupportedFormats: d.supportedFormats,
	}
	return d
}

// Commands lists the command names, sorted.
func (d *Dispatcher) Commands() []string {
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Dispatch runs cmd. It always returns an envelope; panics become
// InternalError responses.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) (resp Response) {
	h, ok := d.handlers[cmd.Name]
	if !ok {
		return invalid(fmt.Errorf("%w: %q (expected one of %v)", ErrUnknownCommand, cmd.Name, d.Commands()))
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.ErrorContext(ctx, "command panicked", "command", cmd.Name, "panic", r)
			resp = Failure(&docconv.Error{Kind: docconv.KindInternal, Message: fmt.Sprintf("internal error: %v", r)})
		}
	}()

	d.logger.DebugContext(ctx, "dispatching command", "command", cmd.Name)
	params := cmd.Params
	if len(params) == 0 || string(params) == "null" {
		params = json.RawMessage("{}")
	}
	return h(ctx, params)
}

// invalid is the envelope for requests rejected before conversion.
func invalid(err error) Response {
	return Failure(&docconv.Error{Kind: docconv.KindInvalidOptionValue, Message: err.Error(), Err: err})
}

// decode unmarshals params into v and validates it.
func decode(params json.RawMessage, v interface{ Validate() error }) error {
	if err := json.Unmarshal(params, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	if err := v.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}

func (d *Dispatcher) convertFile(ctx context.Context, params json.RawMessage) Response {
	var p ConvertFileParams
	if err := decode(params, &p); err != nil {
		return invalid(err)
	}
	return fromResult(d.svc.Convert(ctx, docconv.Request{
		Source:       p.InputFile,
		InputFormat:  p.InputFormat,
		OutputFormat: p.OutputFormat,
		Options:      p.Options,
		OutputPath:   p.OutputFile,
	}))
}

func (d *Dispatcher) batchConvert(ctx context.Context, params json.RawMessage) Response {
	var p BatchConvertParams
	if err := decode(params, &p); err != nil {
		return invalid(err)
	}
	return Success(d.svc.ConvertBatch(ctx, docconv.BatchRequest{
		Sources:           p.InputFiles,
		InputFormat:       p.InputFormat,
		OutputFormat:      p.OutputFormat,
		Options:           p.Options,
		OutputDir:         p.OutputDir,
		PreserveStructure: bool(p.PreserveStructure),
	}))
}

func (d *Dispatcher) convertFromContent(ctx context.Context, params json.RawMessage) Response {
	var p ConvertFromContentParams
	if err := decode(params, &p); err != nil {
		return invalid(err)
	}
	return fromResult(d.svc.ConvertContent(ctx, docconv.Request{
		Content:      p.Content,
		InputFormat:  p.InputFormat,
		OutputFormat: p.OutputFormat,
		Options:      p.Options,
		OutputPath:   p.OutputFile,
	}))
}

func (d *Dispatcher) detectFormat(ctx context.Context, params json.RawMessage) Response {
	var p DetectFormatParams
	if err := decode(params, &p); err != nil {
		return invalid(err)
	}
	det, err := d.svc.DetectFormat(ctx, p.InputFile)
	if err != nil {
		return Failure(err)
	}
	return Success(det)
}

func (d *Dispatcher) supportedFormats(ctx context.Context, _ json.RawMessage) Response {
	return Success(d.svc.SupportedFormats(ctx))
}
