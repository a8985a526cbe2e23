package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/autobrr/go-av1level/internal/av1level"
)

const (
	exitOK    = 0
	exitError = 1
)

type Options struct {
	ForceLevel   bool
	ForcedLevel  uint8
	Output       string
	InPlace      bool
	Verbose      bool
	OutputFormat string
}

func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		return exitError
	}

	program := programName(args[0])
	opts := Options{}
	files := make([]string, 0)

	for i := 1; i < len(args); i++ {
		original := args[i]
		normalized := normalizeArg(original)

		switch {
		case normalized == "--help" || normalized == "-h":
			Help(program, stdout)
			return exitOK
		case normalized == "--version":
			Version(stdout)
			return exitOK
		case strings.HasPrefix(normalized, "--forced-level"):
			value, ok := valueAfterEqual(original)
			if !ok {
				HelpForcedLevel(program, stdout)
				return exitError
			}
			level, err := parseForcedLevel(value)
			if err != nil {
				fmt.Fprintln(stderr, err.Error())
				return exitError
			}
			opts.ForceLevel = true
			opts.ForcedLevel = level
		case normalized == "-f":
			if i+1 >= len(args) {
				fmt.Fprintf(stderr, "%s requires a level index argument\n", original)
				return exitError
			}
			i++
			level, err := parseForcedLevel(args[i])
			if err != nil {
				fmt.Fprintln(stderr, err.Error())
				return exitError
			}
			opts.ForceLevel = true
			opts.ForcedLevel = level
		case strings.HasPrefix(normalized, "--output-format"):
			value, ok := valueAfterEqual(original)
			if !ok {
				HelpOutputFormat(program, stdout)
				return exitError
			}
			opts.OutputFormat = value
		case strings.HasPrefix(normalized, "--output="):
			if value, ok := valueAfterEqual(original); ok {
				opts.Output = value
			}
		case normalized == "-o" || normalized == "--output":
			if i+1 >= len(args) {
				fmt.Fprintf(stderr, "%s requires a file argument\n", original)
				return exitError
			}
			i++
			opts.Output = args[i]
		case normalized == "--inplace":
			opts.InPlace = true
		case normalized == "--verbose" || normalized == "-v":
			opts.Verbose = true
		case strings.HasPrefix(normalized, "--"):
			if normalized == "--" {
				continue
			}
			fmt.Fprintf(stderr, "unknown option: %s\n", original)
			return exitError
		default:
			files = append(files, original)
		}
	}

	if len(files) == 0 {
		return Usage(program, stdout)
	}
	if len(files) > 1 {
		fmt.Fprintln(stderr, "exactly one input file is expected")
		return exitError
	}
	if opts.Output != "" && opts.InPlace {
		fmt.Fprintln(stderr, "--output and --inplace are mutually exclusive")
		return exitError
	}

	output, err := runCore(opts, files[0], stderr)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return exitError
	}

	if output != "" {
		fmt.Fprint(stdout, output)
	}

	return exitOK
}

func runCore(opts Options, path string, stderr io.Writer) (string, error) {
	if opts.OutputFormat != "" && !strings.EqualFold(opts.OutputFormat, "Text") && !strings.EqualFold(opts.OutputFormat, "JSON") {
		return "", fmt.Errorf("output format not implemented: %s", opts.OutputFormat)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	res, err := av1level.Analyze(data, av1level.Options{
		ForceLevel:  opts.ForceLevel,
		ForcedLevel: av1level.Level(opts.ForcedLevel),
	})
	if err != nil {
		return "", err
	}

	if opts.Verbose {
		for _, warning := range res.Warnings {
			fmt.Fprintln(stderr, "warning:", warning)
		}
	}

	if opts.Output != "" || opts.InPlace {
		plan, err := res.PatchPlan()
		if err != nil {
			return "", err
		}
		patched, err := av1level.ApplyPatch(data, plan)
		if err != nil {
			return "", err
		}
		target := opts.Output
		if opts.InPlace {
			target = path
		}
		if err := os.WriteFile(target, patched, 0644); err != nil {
			return "", err
		}
	}

	if strings.EqualFold(opts.OutputFormat, "JSON") {
		return av1level.RenderJSON(res)
	}
	return av1level.RenderText(res), nil
}

func parseForcedLevel(value string) (uint8, error) {
	n, err := strconv.ParseUint(value, 10, 8)
	if err != nil || !av1level.Level(n).Valid() {
		return 0, fmt.Errorf("forced level %q is not a defined level index (defined: %s)",
			value, formatValidLevels())
	}
	return uint8(n), nil
}

func formatValidLevels() string {
	levels := av1level.ValidLevels()
	parts := make([]string, 0, len(levels))
	for _, l := range levels {
		parts = append(parts, strconv.Itoa(int(l)))
	}
	return strings.Join(parts, ", ")
}

func programName(arg0 string) string {
	name := filepath.Base(arg0)
	if runtime.GOOS == "windows" {
		ext := filepath.Ext(name)
		name = strings.TrimSuffix(name, ext)
	}
	return name
}

func normalizeArg(arg string) string {
	eq := strings.IndexByte(arg, '=')
	if eq == -1 {
		eq = len(arg)
	}

	lower := strings.ToLower(arg[:eq])
	return lower + arg[eq:]
}

func valueAfterEqual(arg string) (string, bool) {
	eq := strings.IndexByte(arg, '=')
	if eq == -1 {
		return "", false
	}
	return arg[eq+1:], true
}
