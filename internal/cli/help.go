package cli

import (
	"fmt"
	"io"
)

func Help(program string, stdout io.Writer) {
	Version(stdout)
	fmt.Fprintf(stdout, "Usage: \"%s [-Options...] FileName\"\n", program)
	fmt.Fprintln(stdout, "")
	fmt.Fprintln(stdout, "Options:")
	fmt.Fprintln(stdout, "--Help, -h")
	fmt.Fprintln(stdout, "                    Display this help and exit")
	fmt.Fprintln(stdout, "--Version")
	fmt.Fprintln(stdout, "                    Display version information and exit")
	fmt.Fprintln(stdout, "")
	fmt.Fprintln(stdout, "--Forced-Level=N, -f N")
	fmt.Fprintln(stdout, "                    Patch the given level index instead of the computed one")
	fmt.Fprintln(stdout, "                    (defined indices: "+formatValidLevels()+")")
	fmt.Fprintln(stdout, "--Output=FILE, -o FILE")
	fmt.Fprintln(stdout, "                    Write the patched stream to FILE")
	fmt.Fprintln(stdout, "--InPlace")
	fmt.Fprintln(stdout, "                    Patch the input file in place")
	fmt.Fprintln(stdout, "--Output-Format=TEXT|JSON")
	fmt.Fprintln(stdout, "                    Select report format (default TEXT)")
	fmt.Fprintln(stdout, "--Verbose, -v")
	fmt.Fprintln(stdout, "                    Print per-stream warnings to stderr")
	fmt.Fprintln(stdout, "")
	fmt.Fprintln(stdout, "Commands:")
	fmt.Fprintln(stdout, "completion           Generate the autocompletion script for the specified shell")
	fmt.Fprintln(stdout, "help                 Help about any command")
	fmt.Fprintln(stdout, "version              Print go-av1level version information")
	fmt.Fprintln(stdout, "update               Update av1level to latest version (release builds only)")
}

func HelpNothing(program string, stdout io.Writer) {
	fmt.Fprintf(stdout, "Usage: \"%s [-Options...] FileName\"\n", program)
	fmt.Fprintf(stdout, "\"%s --help\" for displaying more information\n", program)
}

func HelpForcedLevel(program string, stdout io.Writer) {
	fmt.Fprintln(stdout, "--Forced-Level=N  Patch the given level index instead of the computed one")
	fmt.Fprintf(stdout, "Usage: \"%s --Forced-Level=12 FileName\"\n", program)
	fmt.Fprintln(stdout, "")
	fmt.Fprintln(stdout, "Defined level indices: "+formatValidLevels())
}

func HelpOutputFormat(program string, stdout io.Writer) {
	fmt.Fprintln(stdout, "--Output-Format=...  Select a report format")
	fmt.Fprintf(stdout, "Usage: \"%s --Output-Format=JSON FileName\"\n", program)
	fmt.Fprintln(stdout, "")
	fmt.Fprintln(stdout, "Supported formats:")
	fmt.Fprintln(stdout, "TEXT, JSON")
}

func Usage(program string, stdout io.Writer) int {
	HelpNothing(program, stdout)
	return exitError
}
