package av1level

import "strings"

const (
	AppName = "go-av1level"
	AppURL  = "https://github.com/autobrr/go-av1level"
)

var AppVersion = "dev"

func SetAppVersion(version string) {
	if version != "" {
		AppVersion = version
	}
}

func FormatVersion(version string) string {
	if version == "" {
		version = AppVersion
	}
	return "v" + strings.TrimPrefix(version, "v")
}
