package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-docconv/internal/config"
	"github.com/alnah/go-docconv/internal/formats"
)

// Shell represents a supported shell for completion generation.
type Shell string

// Supported shells for completion.
const (
	ShellBash Shell = "bash"
	ShellZsh  Shell = "zsh"
	ShellFish Shell = "fish"
)

// ErrUnsupportedShell is returned when an unknown shell is requested.
var ErrUnsupportedShell = errors.New("unsupported shell")

// flagDef describes a flag for completion purposes.
type flagDef struct {
	Long     string
	Short    string
	Desc     string
	HasValue bool     // false for booleans
	Values   []string // fixed choices
	FileGlob string   // space separated globs
	IsDir    bool
}

// commandDef describes a command for completion.
type commandDef struct {
	Name       string
	Desc       string
	Flags      []flagDef
	TakesFiles bool
}

// completionMeta holds the hints the FlagSets cannot express.
type completionMeta struct {
	Values   []string
	FileGlob string
	IsDir    bool
}

func flagCompletionMeta() map[string]completionMeta {
	return map[string]completionMeta{
		"to":         {Values: formatNames(formats.Writers())},
		"from":       {Values: formatNames(formats.Readers())},
		"engine":     {Values: []string{config.EnginePandoc, config.EngineBuiltin}},
		"config":     {FileGlob: "*.yaml *.yml"},
		"output-dir": {IsDir: true},
		"opt":        {Values: optionPrefixes()},
	}
}

// optionPrefixes offers "key=" for each conversion option.
func optionPrefixes() []string {
	keys := formats.OptionKeys()
	for i, k := range keys {
		keys[i] = k + "="
	}
	return keys
}

func formatNames(fs []formats.Format) []string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = string(f)
	}
	return names
}

// extractFlags reads flag definitions from fs and adds completion hints.
func extractFlags(fs *flag.FlagSet, meta map[string]completionMeta) []flagDef {
	var defs []flagDef
	fs.VisitAll(func(f *flag.Flag) {
		fd := flagDef{
			Long:     f.Name,
			Short:    f.Shorthand,
			Desc:     f.Usage,
			HasValue: f.Value.Type() != "bool",
		}
		if m, ok := meta[f.Name]; ok {
			fd.Values, fd.FileGlob, fd.IsDir = m.Values, m.FileGlob, m.IsDir
		}
		defs = append(defs, fd)
	})
	return defs
}

// getCommands returns the command registry for completion. Flags come from
// the same FlagSets the commands parse with.
func getCommands() []commandDef {
	meta := flagCompletionMeta()
	flags := func(fs *flag.FlagSet) []flagDef { return extractFlags(fs, meta) }

	batch := flags(batchFlagSet(&batchFlags{}, io.Discard))
	for i := range batch {
		if batch[i].Long == "output" {
			batch[i].IsDir = true
		}
	}

	return []commandDef{
		{Name: "convert", Desc: "Convert one file or URL", Flags: flags(convertFlagSet(&convertFlags{}, io.Discard)), TakesFiles: true},
		{Name: "batch", Desc: "Convert many files to one format", Flags: batch, TakesFiles: true},
		{Name: "content", Desc: "Convert text from --text or stdin", Flags: flags(contentFlagSet(&contentFlags{}, io.Discard))},
		{Name: "detect", Desc: "Print the detected format of a source", Flags: flags(queryFlagSet("detect", printDetectUsage, &queryFlags{}, io.Discard)), TakesFiles: true},
		{Name: "formats", Desc: "List supported formats", Flags: flags(queryFlagSet("formats", printFormatsUsage, &queryFlags{}, io.Discard))},
		{Name: "plugin", Desc: "Answer one JSON command from stdin", Flags: flags(serveFlagSet("plugin", printPluginUsage, &serveFlags{}, io.Discard))},
		{Name: "mcp", Desc: "Serve conversion tools over MCP", Flags: flags(serveFlagSet("mcp", printMCPUsage, &serveFlags{}, io.Discard))},
		{Name: "serve", Desc: "Serve the HTTP API", Flags: flags(serveFlagSet("serve", printServeUsage, &serveFlags{}, io.Discard))},
		{Name: "doctor", Desc: "Check the engine and system", Flags: flags(queryFlagSet("doctor", printDoctorUsage, &queryFlags{}, io.Discard))},
		{Name: "version", Desc: "Show version information"},
		{Name: "help", Desc: "Show help for a command"},
		{Name: "completion", Desc: "Generate shell completion script"},
	}
}

// GenerateCompletion writes the completion script for shell to w.
func GenerateCompletion(w io.Writer, shell Shell) error {
	var script string
	switch shell {
	case ShellBash:
		script = bashScript(getCommands())
	case ShellZsh:
		script = zshScript(getCommands())
	case ShellFish:
		script = fishScript(getCommands())
	default:
		return fmt.Errorf("%w: %q (supported: bash, zsh, fish)", ErrUnsupportedShell, shell)
	}
	_, err := io.WriteString(w, script)
	return err
}

// runCompletion handles the completion command.
func runCompletion(args []string, env *Environment) int {
	if len(args) == 0 {
		printCompletionUsage(env.Stdout)
		return ExitSuccess
	}
	if err := GenerateCompletion(env.Stdout, Shell(args[0])); err != nil {
		fmt.Fprintf(env.Stderr, "error: %v\n", err)
		return ExitUsage
	}
	return ExitSuccess
}

func printCompletionUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: docconv completion <bash|zsh|fish>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Generate a shell completion script.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Installation:")
	fmt.Fprintln(w, "  Bash:  eval \"$(docconv completion bash)\"            # in ~/.bashrc")
	fmt.Fprintln(w, "  Zsh:   eval \"$(docconv completion zsh)\"             # in ~/.zshrc, after compinit")
	fmt.Fprintln(w, "  Fish:  docconv completion fish > ~/.config/fish/completions/docconv.fish")
}

// ---------------------------------------------------------------------------
// Bash
// ---------------------------------------------------------------------------

func bashScript(cmds []commandDef) string {
	var b strings.Builder
	b.WriteString("# bash completion for docconv\n")
	b.WriteString("_docconv() {\n")
	b.WriteString("    local cur prev\n")
	b.WriteString("    COMPREPLY=()\n")
	b.WriteString("    cur=\"${COMP_WORDS[COMP_CWORD]}\"\n")
	b.WriteString("    prev=\"${COMP_WORDS[COMP_CWORD-1]}\"\n\n")
	b.WriteString("    if [[ ${COMP_CWORD} -eq 1 ]]; then\n")
	fmt.Fprintf(&b, "        COMPREPLY=( $(compgen -W %q -- \"$cur\") )\n", strings.Join(commandNames(cmds), " "))
	b.WriteString("        return 0\n")
	b.WriteString("    fi\n\n")
	b.WriteString("    case \"${COMP_WORDS[1]}\" in\n")

	for _, c := range cmds {
		if len(c.Flags) == 0 {
			continue
		}
		fmt.Fprintf(&b, "    %s)\n", c.Name)
		b.WriteString("        case \"$prev\" in\n")
		for _, f := range c.Flags {
			if !f.HasValue {
				continue
			}
			action := bashValueAction(f)
			if action == "" {
				continue
			}
			fmt.Fprintf(&b, "        %s)\n            COMPREPLY=( %s )\n            return 0\n            ;;\n", strings.Join(flagSpellings(f), "|"), action)
		}
		b.WriteString("        esac\n")
		b.WriteString("        if [[ \"$cur\" == -* ]]; then\n")
		fmt.Fprintf(&b, "            COMPREPLY=( $(compgen -W %q -- \"$cur\") )\n", strings.Join(allSpellings(c.Flags), " "))
		if c.TakesFiles {
			b.WriteString("        else\n")
			b.WriteString("            COMPREPLY=( $(compgen -f -- \"$cur\") )\n")
		}
		b.WriteString("        fi\n")
		b.WriteString("        ;;\n")
	}

	b.WriteString("    help)\n")
	fmt.Fprintf(&b, "        COMPREPLY=( $(compgen -W %q -- \"$cur\") )\n", strings.Join(commandNames(cmds), " "))
	b.WriteString("        ;;\n")
	b.WriteString("    completion)\n")
	b.WriteString("        COMPREPLY=( $(compgen -W \"bash zsh fish\" -- \"$cur\") )\n")
	b.WriteString("        ;;\n")
	b.WriteString("    esac\n")
	b.WriteString("}\n")
	b.WriteString("complete -F _docconv docconv\n")
	return b.String()
}

func bashValueAction(f flagDef) string {
	switch {
	case len(f.Values) > 0:
		return fmt.Sprintf("$(compgen -W %q -- \"$cur\")", strings.Join(f.Values, " "))
	case f.IsDir:
		return "$(compgen -d -- \"$cur\")"
	case f.FileGlob != "":
		return "$(compgen -f -- \"$cur\")"
	}
	return ""
}

// ---------------------------------------------------------------------------
// Zsh
// ---------------------------------------------------------------------------

func zshScript(cmds []commandDef) string {
	var b strings.Builder
	b.WriteString("#compdef docconv\n\n")
	b.WriteString("_docconv() {\n")
	b.WriteString("    local -a commands\n")
	b.WriteString("    commands=(\n")
	for _, c := range cmds {
		fmt.Fprintf(&b, "        '%s:%s'\n", c.Name, zshEscape(c.Desc))
	}
	b.WriteString("    )\n\n")
	b.WriteString("    if (( CURRENT == 2 )); then\n")
	b.WriteString("        _describe 'command' commands\n")
	b.WriteString("        return\n")
	b.WriteString("    fi\n\n")
	b.WriteString("    case \"$words[2]\" in\n")

	for _, c := range cmds {
		if len(c.Flags) == 0 {
			continue
		}
		fmt.Fprintf(&b, "    %s)\n", c.Name)
		b.WriteString("        _arguments \\\n")
		for _, f := range c.Flags {
			fmt.Fprintf(&b, "            %s \\\n", zshFlagSpec(f))
		}
		if c.TakesFiles {
			b.WriteString("            '*:file:_files'\n")
		} else {
			b.WriteString("            && return 0\n")
		}
		b.WriteString("        ;;\n")
	}
	b.WriteString("    completion)\n")
	b.WriteString("        _values 'shell' bash zsh fish\n")
	b.WriteString("        ;;\n")
	b.WriteString("    esac\n")
	b.WriteString("}\n\n")
	b.WriteString("compdef _docconv docconv\n")
	return b.String()
}

func zshFlagSpec(f flagDef) string {
	desc := zshEscape(f.Desc)
	value := ""
	if f.HasValue {
		switch {
		case len(f.Values) > 0:
			value = fmt.Sprintf(":%s:(%s)", f.Long, strings.Join(f.Values, " "))
		case f.IsDir:
			value = fmt.Sprintf(":%s:_files -/", f.Long)
		case f.FileGlob != "":
			value = fmt.Sprintf(":%s:_files -g \"(%s)\"", f.Long, strings.ReplaceAll(f.FileGlob, " ", "|"))
		default:
			value = fmt.Sprintf(":%s:", f.Long)
		}
	}
	if f.Short == "" {
		return fmt.Sprintf("'--%s[%s]%s'", f.Long, desc, value)
	}
	return fmt.Sprintf("'(-%s --%s)'{-%s,--%s}'[%s]%s'", f.Short, f.Long, f.Short, f.Long, desc, value)
}

// zshEscape makes s safe inside a single quoted _arguments spec.
func zshEscape(s string) string {
	return strings.NewReplacer("'", "", "[", "(", "]", ")", ":", "\\:").Replace(s)
}

// ---------------------------------------------------------------------------
// Fish
// ---------------------------------------------------------------------------

func fishScript(cmds []commandDef) string {
	var b strings.Builder
	b.WriteString("# fish completion for docconv\n")
	b.WriteString("complete -c docconv -f\n\n")
	for _, c := range cmds {
		fmt.Fprintf(&b, "complete -c docconv -n __fish_use_subcommand -a %s -d %s\n", c.Name, fishQuote(c.Desc))
	}
	b.WriteString("\n")

	for _, c := range cmds {
		cond := fishQuote("__fish_seen_subcommand_from " + c.Name)
		for _, f := range c.Flags {
			line := "complete -c docconv -n " + cond
			if f.Short != "" {
				line += " -s " + f.Short
			}
			line += " -l " + f.Long
			switch {
			case len(f.Values) > 0:
				line += " -x -a " + fishQuote(strings.Join(f.Values, " "))
			case f.IsDir:
				line += " -x -a " + fishQuote("(__fish_complete_directories)")
			case f.HasValue && f.FileGlob != "":
				line += " -r -F"
			case f.HasValue:
				line += " -x"
			}
			line += " -d " + fishQuote(f.Desc)
			b.WriteString(line + "\n")
		}
		if c.TakesFiles {
			fmt.Fprintf(&b, "complete -c docconv -n %s -F\n", cond)
		}
	}
	fmt.Fprintf(&b, "complete -c docconv -n %s -a %s\n",
		fishQuote("__fish_seen_subcommand_from completion"), fishQuote("bash zsh fish"))
	return b.String()
}

func fishQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func commandNames(cmds []commandDef) []string {
	names := make([]string, len(cmds))
	for i, c := range cmds {
		names[i] = c.Name
	}
	return names
}

func flagSpellings(f flagDef) []string {
	s := []string{"--" + f.Long}
	if f.Short != "" {
		s = append(s, "-"+f.Short)
	}
	return s
}

func allSpellings(defs []flagDef) []string {
	var all []string
	for _, f := range defs {
		all = append(all, flagSpellings(f)...)
	}
	return all
}
