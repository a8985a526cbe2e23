package av1level

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Field is one name/value row of the textual report.
type Field struct {
	Name  string
	Value string
}

// Fields lays out the report rows: container metadata, the sequence summary,
// the accumulated statistics, and the level decision.
func (r *Result) Fields() []Field {
	fields := []Field{
		{"Container", "IVF"},
		{"Resolution", fmt.Sprintf("%dx%d", r.Container.Width, r.Container.Height)},
		{"Time scale", fmt.Sprintf("%.3f (%d/%d)", r.Container.TicksPerSecond(), r.Container.TimebaseDen, r.Container.TimebaseNum)},
		{"Profile", fmt.Sprintf("%d", r.Sequence.Profile)},
	}
	if r.Sequence.StillPicture {
		fields = append(fields, Field{"Still picture", "Yes"})
	}
	fields = append(fields,
		Field{"Maximum frame size", fmt.Sprintf("%dx%d", r.Sequence.MaxFrameWidth, r.Sequence.MaxFrameHeight)},
		Field{"Picture size", fmt.Sprintf("%dx%d", r.Stats.PicWidth, r.Stats.PicHeight)},
		Field{"Displayed frames", fmt.Sprintf("%d", r.ShownFrames)},
		Field{"Decoded frames", fmt.Sprintf("%d", r.DecodedFrames)},
		Field{"Display/Decode/Header rates", fmt.Sprintf("%d/%d/%d", r.Stats.DisplayRate, r.Stats.DecodeRate, r.Stats.HeaderRate)},
		Field{"Bit rate", fmt.Sprintf("%.3f Mbps", r.Stats.Mbps)},
		Field{"Tiles/Tile columns", fmt.Sprintf("%d/%d", r.Stats.Tiles, r.Stats.TileCols)},
		Field{"Tier", r.Tier.String()},
		Field{"Level", r.LevelLine()},
	)
	return fields
}

// LevelLine renders the "old -> new" level transition.
func (r *Result) LevelLine() string {
	return fmt.Sprintf("%s -> %s", r.Sequence.Level, r.Level)
}

// RenderText writes the padded name/value rows of the report.
func RenderText(r *Result) string {
	var buf bytes.Buffer
	for _, field := range r.Fields() {
		buf.WriteString(padRight(field.Name, 29))
		buf.WriteString(": ")
		buf.WriteString(field.Value)
		buf.WriteString("\n")
	}
	return buf.String()
}

func padRight(value string, width int) string {
	if len(value) >= width {
		return value
	}
	return value + strings.Repeat(" ", width-len(value))
}

type jsonReport struct {
	Container struct {
		Width       uint16  `json:"width"`
		Height      uint16  `json:"height"`
		TimebaseDen uint32  `json:"timebaseDen"`
		TimebaseNum uint32  `json:"timebaseNum"`
		FrameCount  uint32  `json:"frameCount"`
		TimeScale   float64 `json:"timeScale"`
	} `json:"container"`
	Sequence struct {
		Profile        uint8  `json:"profile"`
		StillPicture   bool   `json:"stillPicture"`
		MaxFrameWidth  uint32 `json:"maxFrameWidth"`
		MaxFrameHeight uint32 `json:"maxFrameHeight"`
		Level          uint8  `json:"seqLevelIdx"`
		Tier           string `json:"seqTier"`
	} `json:"sequence"`
	Stats struct {
		PicWidth         uint32  `json:"picWidth"`
		PicHeight        uint32  `json:"picHeight"`
		PicSize          uint64  `json:"picSize"`
		DisplayRate      uint64  `json:"displayRate"`
		DecodeRate       uint64  `json:"decodeRate"`
		HeaderRate       uint64  `json:"headerRate"`
		Mbps             float64 `json:"mbps"`
		Tiles            uint32  `json:"tiles"`
		TileCols         uint32  `json:"tileCols"`
		MinCompressRatio float64 `json:"minCompressRatio,omitempty"`
	} `json:"stats"`
	Level    uint8    `json:"level"`
	LevelStr string   `json:"levelName"`
	Tier     string   `json:"tier"`
	Forced   bool     `json:"forced,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// RenderJSON renders the result as an indented JSON document.
func RenderJSON(r *Result) (string, error) {
	var out jsonReport
	out.Container.Width = r.Container.Width
	out.Container.Height = r.Container.Height
	out.Container.TimebaseDen = r.Container.TimebaseDen
	out.Container.TimebaseNum = r.Container.TimebaseNum
	out.Container.FrameCount = r.Container.FrameCount
	out.Container.TimeScale = r.Container.TicksPerSecond()
	out.Sequence.Profile = r.Sequence.Profile
	out.Sequence.StillPicture = r.Sequence.StillPicture
	out.Sequence.MaxFrameWidth = r.Sequence.MaxFrameWidth
	out.Sequence.MaxFrameHeight = r.Sequence.MaxFrameHeight
	out.Sequence.Level = uint8(r.Sequence.Level)
	out.Sequence.Tier = r.Sequence.Tier.String()
	out.Stats.PicWidth = r.Stats.PicWidth
	out.Stats.PicHeight = r.Stats.PicHeight
	out.Stats.PicSize = r.Stats.PicSize
	out.Stats.DisplayRate = r.Stats.DisplayRate
	out.Stats.DecodeRate = r.Stats.DecodeRate
	out.Stats.HeaderRate = r.Stats.HeaderRate
	out.Stats.Mbps = r.Stats.Mbps
	out.Stats.Tiles = r.Stats.Tiles
	out.Stats.TileCols = r.Stats.TileCols
	if r.Stats.MinCompressRatio < 1e300 {
		out.Stats.MinCompressRatio = r.Stats.MinCompressRatio
	}
	out.Level = uint8(r.Level)
	out.LevelStr = r.Level.String()
	out.Tier = r.Tier.String()
	out.Forced = r.Forced
	out.Warnings = r.Warnings

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data) + "\n", nil
}
