package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	docconv "github.com/alnah/go-docconv"
	"github.com/alnah/go-docconv/internal/dispatch"
)

type convertFileInput struct {
	InputFile    string         `json:"inputFile"              jsonschema:"Path or file:// URI or http(s) URL of the document to convert"`
	OutputFormat string         `json:"outputFormat"           jsonschema:"Target format name such as html or docx or pdf"`
	InputFormat  string         `json:"inputFormat,omitempty"  jsonschema:"Source format name. Detected when omitted."`
	OutputFile   string         `json:"outputFile,omitempty"   jsonschema:"Where to write the result. Generated under the output directory when omitted."`
	Options      map[string]any `json:"options,omitempty"      jsonschema:"Conversion options such as toc or css or margin"`
}

type batchConvertInput struct {
	InputFiles        []string       `json:"inputFiles"                  jsonschema:"Documents to convert"`
	OutputFormat      string         `json:"outputFormat"                jsonschema:"Target format name for every document"`
	InputFormat       string         `json:"inputFormat,omitempty"       jsonschema:"Source format applied to every document. Detected per file when omitted."`
	OutputDir         string         `json:"outputDir,omitempty"         jsonschema:"Directory for the results"`
	Options           map[string]any `json:"options,omitempty"           jsonschema:"Conversion options applied to every document"`
	PreserveStructure bool           `json:"preserveStructure,omitempty" jsonschema:"Mirror the source directory layout under outputDir"`
}

type convertContentInput struct {
	Content      string         `json:"content"              jsonschema:"The document text"`
	InputFormat  string         `json:"inputFormat"          jsonschema:"Format of content such as markdown or html"`
	OutputFormat string         `json:"outputFormat"         jsonschema:"Target format name"`
	OutputFile   string         `json:"outputFile,omitempty" jsonschema:"Where to write the result. Generated under the output directory when omitted."`
	Options      map[string]any `json:"options,omitempty"    jsonschema:"Conversion options"`
}

type detectFormatInput struct {
	InputFile string `json:"inputFile" jsonschema:"Path or file:// URI or http(s) URL to inspect"`
}

type supportedFormatsInput struct{}

func (s *Server) handleConvertFile(ctx context.Context, _ *mcp.CallToolRequest, input convertFileInput) (*mcp.CallToolResult, docconv.Result, error) {
	resp := s.call(ctx, dispatch.CmdConvertFile, input)
	if !resp.OK() {
		return errResult(resp), docconv.Result{}, nil
	}
	return nil, *resp.Result.(*docconv.Result), nil
}

func (s *Server) handleBatchConvert(ctx context.Context, _ *mcp.CallToolRequest, input batchConvertInput) (*mcp.CallToolResult, docconv.BatchResult, error) {
	resp := s.call(ctx, dispatch.CmdBatchConvert, input)
	if !resp.OK() {
		return errResult(resp), docconv.BatchResult{}, nil
	}
	return nil, *resp.Result.(*docconv.BatchResult), nil
}

func (s *Server) handleConvertFromContent(ctx context.Context, _ *mcp.CallToolRequest, input convertContentInput) (*mcp.CallToolResult, docconv.Result, error) {
	resp := s.call(ctx, dispatch.CmdConvertFromContent, input)
	if !resp.OK() {
		return errResult(resp), docconv.Result{}, nil
	}
	return nil, *resp.Result.(*docconv.Result), nil
}

func (s *Server) handleDetectFormat(ctx context.Context, _ *mcp.CallToolRequest, input detectFormatInput) (*mcp.CallToolResult, docconv.Detection, error) {
	resp := s.call(ctx, dispatch.CmdDetectFormat, input)
	if !resp.OK() {
		return errResult(resp), docconv.Detection{}, nil
	}
	return nil, *resp.Result.(*docconv.Detection), nil
}

func (s *Server) handleSupportedFormats(ctx context.Context, _ *mcp.CallToolRequest, _ supportedFormatsInput) (*mcp.CallToolResult, docconv.Formats, error) {
	resp := s.call(ctx, dispatch.CmdGetSupportedFormats, struct{}{})
	if !resp.OK() {
		return errResult(resp), docconv.Formats{}, nil
	}
	return nil, *resp.Result.(*docconv.Formats), nil
}
