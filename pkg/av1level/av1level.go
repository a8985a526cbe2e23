package av1level

import (
	"github.com/autobrr/go-av1level/internal/av1level"
)

// Types
type Level = av1level.Level
type Tier = av1level.Tier
type Options = av1level.Options
type Result = av1level.Result
type ContainerInfo = av1level.ContainerInfo
type SequenceInfo = av1level.SequenceInfo
type StreamStats = av1level.StreamStats
type PatchPlan = av1level.PatchPlan
type Field = av1level.Field

// Constants
const (
	TierMain = av1level.TierMain
	TierHigh = av1level.TierHigh

	LevelMaximumParameters = av1level.LevelMaximumParameters
)

// Errors
var (
	ErrUnsupportedContainer  = av1level.ErrUnsupportedContainer
	ErrUnexpectedEndOfStream = av1level.ErrUnexpectedEndOfStream
	ErrMalformedOBU          = av1level.ErrMalformedOBU
	ErrMissingSequenceHeader = av1level.ErrMissingSequenceHeader
	ErrUnsupportedStream     = av1level.ErrUnsupportedStream
	ErrLevelExceedsTable     = av1level.ErrLevelExceedsTable
	ErrPatchTargetMismatch   = av1level.ErrPatchTargetMismatch
)

// Functions
func AnalyzeFile(path string, opts Options) (*Result, error) {
	return av1level.AnalyzeFile(path, opts)
}

func Analyze(data []byte, opts Options) (*Result, error) {
	return av1level.Analyze(data, opts)
}

func SelectLevel(stats StreamStats) (Level, Tier, error) {
	return av1level.SelectLevel(stats)
}

func ValidLevels() []Level {
	return av1level.ValidLevels()
}

func ApplyPatch(data []byte, plan PatchPlan) ([]byte, error) {
	return av1level.ApplyPatch(data, plan)
}

// Rendering
func RenderText(r *Result) string {
	return av1level.RenderText(r)
}

func RenderJSON(r *Result) (string, error) {
	return av1level.RenderJSON(r)
}

func FormatVersion(version string) string {
	return av1level.FormatVersion(version)
}

func SetAppVersion(version string) {
	av1level.SetAppVersion(version)
}
