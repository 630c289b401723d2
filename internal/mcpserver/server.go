// Package mcpserver exposes the converter as MCP (Model Context Protocol)
// tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/alnah/go-docconv/internal/dispatch"
)

const serverInstructions = `docconv MCP server: converts documents between formats with pandoc (or the builtin Markdown to HTML/PDF engine).

Sources are local paths, file:// URIs or http(s) URLs. Output files are written under the configured output directory unless outputFile is given. Call get_supported_formats first to see which formats this installation reads and writes, and detect_format when unsure about an input.

Configuration: all defaults come from DOCCONV_* environment variables set in your MCP client config, or a docconv.yaml file.

Key settings:
- DOCCONV_ENGINE (default: pandoc) - pandoc or builtin
- DOCCONV_OUTPUT_DIR (default: ./outputs) - where generated files go
- DOCCONV_TIMEOUT (default: 5m) - per conversion timeout
- DOCCONV_MAX_FILE_SIZE_MB (default: 50) - source size limit
- DOCCONV_DEFAULT_PDF_ENGINE (default: xelatex) - pandoc PDF engine`

// Server serves converter commands as MCP tools.
type Server struct {
	d       *dispatch.Dispatcher
	version string
	logger  *slog.Logger
}

// New creates a Server dispatching to d. A nil logger discards.
func New(d *dispatch.Dispatcher, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{d: d, version: version, logger: logger}
}

// Run serves over stdio and blocks until the client disconnects or ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, &mcp.StdioTransport{})
}

// Serve serves over t.
func (s *Server) Serve(ctx context.Context, t mcp.Transport) error {
	s.logger.InfoContext(ctx, "mcp server starting", "version", s.version)
	return s.mcpServer().Run(ctx, t)
}

func (s *Server) mcpServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{Name: "docconv", Version: s.version},
		&mcp.ServerOptions{Instructions: serverInstructions},
	)
	s.registerTools(server)
	return server
}

func (s *Server) registerTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "convert_file",
		Description: "Convert one document to another format. The input format is detected from the file extension and content unless inputFormat is given. Returns the output path, size and, for PDF, the page count. Options (toc, standalone, css, template, numberSections, pdfEngine, margin, papersize...) are applied where they fit the formats; unknown options are reported as warnings.",
	}, s.handleConvertFile)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "batch_convert",
		Description: "Convert many documents to one output format in parallel. One failing file does not stop the others; each item carries its own result. Use preserveStructure to mirror the source directory layout under outputDir.",
	}, s.handleBatchConvert)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "convert_from_content",
		Description: "Convert inline text (Markdown, HTML, RST, LaTeX...) to another format. inputFormat is required. Text outputs small enough are returned inline as outputContent; the file is written either way.",
	}, s.handleConvertFromContent)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "detect_format",
		Description: "Detect the document format of a file or URL from its extension and leading bytes.",
	}, s.handleDetectFormat)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_supported_formats",
		Description: "List the input and output formats available. Lists come from the installed engine when it can report them and from the built-in registry otherwise.",
	}, s.handleSupportedFormats)
}

// call dispatches a command built from a tool input.
func (s *Server) call(ctx context.Context, name string, input any) dispatch.Response {
	params, err := json.Marshal(input)
	if err != nil {
		return dispatch.Failure(fmt.Errorf("encoding %s input: %w", name, err))
	}
	return s.d.Dispatch(ctx, dispatch.Command{Name: name, Params: params})
}

// pathPattern matches absolute filesystem paths in error text so internal
// directory layout is not leaked to MCP clients.
var pathPattern = regexp.MustCompile(`(?:/(?:home|tmp|var|Users|etc|opt|usr|private|root|mnt|srv|run|snap|nix)[a-zA-Z0-9._/-]*)`)

func sanitize(s string) string {
	return pathPattern.ReplaceAllString(s, "<path>")
}

// errResult renders a failed envelope as an MCP tool error.
func errResult(resp dispatch.Response) *mcp.CallToolResult {
	var b strings.Builder
	if resp.Kind != "" {
		fmt.Fprintf(&b, "%s: ", resp.Kind)
	}
	b.WriteString(resp.Error)
	if resp.Code != "" {
		fmt.Fprintf(&b, " (code %s)", resp.Code)
	}
	for _, d := range resp.Diagnostics {
		b.WriteString("\n")
		b.WriteString(d)
	}
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: sanitize(b.String())}},
	}
}
