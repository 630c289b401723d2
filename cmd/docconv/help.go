package main

import (
	"fmt"
	"io"
)

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: docconv <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  convert     Convert one file or URL")
	fmt.Fprintln(w, "  batch       Convert many files to one format")
	fmt.Fprintln(w, "  content     Convert text from --text or stdin")
	fmt.Fprintln(w, "  detect      Print the detected format of a source")
	fmt.Fprintln(w, "  formats     List supported input and output formats")
	fmt.Fprintln(w, "  plugin      Answer one JSON command read from stdin")
	fmt.Fprintln(w, "  mcp         Serve conversion tools over MCP (stdio)")
	fmt.Fprintln(w, "  serve       Serve the HTTP API")
	fmt.Fprintln(w, "  doctor      Check the engine and system configuration")
	fmt.Fprintln(w, "  version     Show version information")
	fmt.Fprintln(w, "  completion  Generate shell completion script")
	fmt.Fprintln(w, "  help        Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'docconv help <command>' for details.")
}

func printCommonFlags(w io.Writer) {
	fmt.Fprintln(w, "Common flags:")
	fmt.Fprintln(w, "  -c, --config <name>     Config file name or path (env: DOCCONV_CONFIG)")
	fmt.Fprintln(w, "      --engine <name>     Conversion engine: pandoc, builtin")
	fmt.Fprintln(w, "      --pandoc <path>     Pandoc executable name or path")
	fmt.Fprintln(w, "      --timeout <dur>     Per conversion timeout (e.g. 30s, 5m)")
	fmt.Fprintln(w, "  -q, --quiet             Only show errors")
	fmt.Fprintln(w, "  -v, --verbose           Show debug logs")
}

func printConversionFlags(w io.Writer) {
	fmt.Fprintln(w, "Conversion flags:")
	fmt.Fprintln(w, "  -t, --to <format>       Output format (required)")
	fmt.Fprintln(w, "  -f, --from <format>     Input format (detected when omitted)")
	fmt.Fprintln(w, "      --opt <key=value>   Conversion option, repeatable (e.g. --opt toc --opt pdfEngine=lualatex)")
	fmt.Fprintln(w, "      --json              Print the result as JSON")
}

func printConvertUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: docconv convert [flags] <file|url>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Convert one local file or http(s) URL.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output:")
	fmt.Fprintln(w, "  -o, --output <file>     Output file (generated when omitted)")
	fmt.Fprintln(w, "      --output-dir <dir>  Directory for generated names (default ./outputs)")
	fmt.Fprintln(w)
	printConversionFlags(w)
	fmt.Fprintln(w)
	printCommonFlags(w)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  docconv convert -t pdf report.md")
	fmt.Fprintln(w, "  docconv convert -t docx -o out/notes.docx notes.html")
	fmt.Fprintln(w, "  docconv convert -t markdown https://example.com/page.html")
}

func printBatchUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: docconv batch [flags] <file>...")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Convert many sources to one format. Failures do not stop the batch.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Batch flags:")
	fmt.Fprintln(w, "  -o, --output <dir>      Output directory (default ./outputs)")
	fmt.Fprintln(w, "      --preserve-structure  Mirror source directories under the output directory")
	fmt.Fprintln(w, "  -w, --workers <n>       Parallel workers (0 = auto)")
	fmt.Fprintln(w)
	printConversionFlags(w)
	fmt.Fprintln(w)
	printCommonFlags(w)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Exit code is 1 when any conversion failed.")
}

func printContentUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: docconv content --from <format> --to <format> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Convert text given with --text or on stdin. Text output is printed.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Content flags:")
	fmt.Fprintln(w, "      --text <content>    Content to convert (stdin when omitted)")
	fmt.Fprintln(w, "  -o, --output <file>     Output file (generated when omitted)")
	fmt.Fprintln(w, "      --output-dir <dir>  Directory for generated names")
	fmt.Fprintln(w)
	printConversionFlags(w)
	fmt.Fprintln(w)
	printCommonFlags(w)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  echo '# Title' | docconv content -f markdown -t html")
	fmt.Fprintln(w, "  docconv content -f html -t markdown --text '<p>hi</p>'")
}

func printDetectUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: docconv detect [flags] <file|url>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Print the format detected from the source extension.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "      --json              Print detection details as JSON")
	fmt.Fprintln(w)
	printCommonFlags(w)
}

func printFormatsUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: docconv formats [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "List the formats the engine reads and writes.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "      --json              Print formats as JSON")
	fmt.Fprintln(w)
	printCommonFlags(w)
}

func printPluginUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: docconv plugin [flags] < request.json")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Read one JSON command line from stdin and write the response envelope")
	fmt.Fprintln(w, "to stdout.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands: ConvertFile, BatchConvert, ConvertFromContent, DetectFormat,")
	fmt.Fprintln(w, "GetSupportedFormats")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Example:")
	fmt.Fprintln(w, `  echo '{"command":"DetectFormat","inputFile":"a.md"}' | docconv plugin`)
	fmt.Fprintln(w)
	printCommonFlags(w)
}

func printMCPUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: docconv mcp [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Serve convert_file, batch_convert, convert_from_content, detect_format")
	fmt.Fprintln(w, "and get_supported_formats over MCP on stdin/stdout.")
	fmt.Fprintln(w)
	printCommonFlags(w)
}

func printServeUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: docconv serve [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Serve the HTTP API:")
	fmt.Fprintln(w, "  GET  /healthz")
	fmt.Fprintln(w, "  GET  /v1/formats")
	fmt.Fprintln(w, "  POST /v1/commands/{name}")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "      --addr <host:port>  Listen address (default 127.0.0.1:8080)")
	fmt.Fprintln(w)
	printCommonFlags(w)
}

func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: docconv doctor [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check the configuration, the engine and the output directories.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "      --json              Print results as JSON")
	fmt.Fprintln(w)
	printCommonFlags(w)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Exit code is 1 when errors are found.")
}

// runHelp prints usage for a command, or general usage with no argument.
func runHelp(args []string, env *Environment) int {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return ExitSuccess
	}

	printers := map[string]func(io.Writer){
		"convert":    printConvertUsage,
		"batch":      printBatchUsage,
		"content":    printContentUsage,
		"detect":     printDetectUsage,
		"formats":    printFormatsUsage,
		"plugin":     printPluginUsage,
		"mcp":        printMCPUsage,
		"serve":      printServeUsage,
		"doctor":     printDoctorUsage,
		"completion": printCompletionUsage,
	}
	p, ok := printers[args[0]]
	if !ok {
		fmt.Fprintf(env.Stderr, "unknown command: %s\n\n", args[0])
		printUsage(env.Stderr)
		return ExitUsage
	}
	p(env.Stdout)
	return ExitSuccess
}
