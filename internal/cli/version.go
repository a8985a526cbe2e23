package cli

import (
	"fmt"
	"io"

	"github.com/autobrr/go-av1level/internal/av1level"
)

var appVersion = "dev"

func SetVersion(version string) {
	if version != "" {
		appVersion = version
	}
}

func Version(stdout io.Writer) {
	fmt.Fprintf(stdout, "go-av1level, %s\n", av1level.FormatVersion(appVersion))
}
