package av1level

import (
	"fmt"
	"math"
)

// Tier is the secondary classification that widens the bit-rate bound of a
// level. Levels up to 3.3 only define the main tier.
type Tier uint8

const (
	TierMain Tier = 0
	TierHigh Tier = 1
)

func (t Tier) String() string {
	if t == TierHigh {
		return "High"
	}
	return "Main"
}

// Level is the seq_level_idx value from the sequence header.
type Level uint8

// LevelMaximumParameters is the special index meaning "no bound".
const LevelMaximumParameters Level = 31

// Valid reports whether the index names a defined row of the level table.
func (l Level) Valid() bool {
	return int(l) < len(levelTable) && levelTable[l] != nil
}

func (l Level) String() string {
	if l == LevelMaximumParameters {
		return "Maximum parameters"
	}
	if l >= 24 {
		return "Reserved"
	}
	return fmt.Sprintf("%d.%d (%d)", 2+(l>>2), l&3, uint8(l))
}

// tierBitPresent reports whether streams at this level carry a seq_tier bit.
func (l Level) tierBitPresent() bool {
	return l > 7
}

// ValidLevels lists the defined level indices in ascending order.
func ValidLevels() []Level {
	out := make([]Level, 0, len(levelTable))
	for i, limits := range levelTable {
		if limits != nil {
			out = append(out, Level(i))
		}
	}
	return out
}

// levelLimits is one row of the level constraint table (AV1 Annex A).
// Display and decode rates are in luma samples per second, bit rates in
// megabits per second.
type levelLimits struct {
	maxPicSize     uint64
	maxHSize       uint32
	maxVSize       uint32
	maxDisplayRate uint64
	maxDecodeRate  uint64
	maxHeaderRate  uint64
	mainMbps       float64
	highMbps       float64
	mainCR         float64
	highCR         float64
	maxTiles       uint32
	maxTileCols    uint32
}

// levelTable rows are ordered by increasing constraint looseness; nil entries
// are reserved indices. A single ascending scan finds the minimal level.
var levelTable = [32]*levelLimits{
	0: {147456, 2048, 1152, 4423680, 5529600, 150, 1.5, 0, 2, 0, 8, 4},
	1: {278784, 2816, 1584, 8363520, 10454400, 150, 3.0, 0, 2, 0, 8, 4},
	4: {665856, 4352, 2448, 19975680, 24969600, 150, 6.0, 0, 2, 0, 16, 6},
	5: {1065024, 5504, 3096, 31950720, 39938400, 150, 10.0, 0, 2, 0, 8, 4},
	8: {2359296, 6144, 3456, 70778880, 77856768, 300, 12.0, 30.0, 4, 4, 32, 8},
	9: {2359296, 6144, 3456, 141557760, 155713536, 300, 20.0, 50.0, 4, 4, 32, 8},
	12: {8912896, 8192, 4352, 267386880, 273715200, 300, 30.0, 100.0, 6, 4, 64, 8},
	13: {8912896, 8192, 4352, 534773760, 547430400, 300, 40.0, 160.0, 8, 4, 64, 8},
	14: {8912896, 8192, 4352, 1069547520, 1094860800, 300, 60.0, 240.0, 8, 4, 64, 8},
	15: {8912896, 8192, 4352, 1069547520, 1176502272, 300, 60.0, 240.0, 8, 4, 64, 8},
	16: {35651584, 16384, 8704, 1069547520, 1176502272, 300, 60.0, 240.0, 8, 4, 128, 16},
	17: {35651584, 16384, 8704, 2139095040, 2189721600, 300, 100.0, 480.0, 8, 4, 128, 16},
	18: {35651584, 16384, 8704, 4278190080, 4379443200, 300, 160.0, 800.0, 8, 4, 128, 16},
	19: {35651584, 16384, 8704, 4278190080, 4706009088, 300, 160.0, 800.0, 8, 4, 128, 16},
	31: {math.MaxUint64, math.MaxUint32, math.MaxUint32, math.MaxUint64, math.MaxUint64,
		math.MaxUint64, math.MaxFloat64, math.MaxFloat64, 0, 0,
		math.MaxUint32, math.MaxUint32},
}

// StreamStats holds the accumulated maxima a stream was observed to need.
// Display and decode rates are in luma samples per second.
type StreamStats struct {
	PicWidth         uint32
	PicHeight        uint32
	PicSize          uint64
	DisplayRate      uint64
	DecodeRate       uint64
	HeaderRate       uint64
	Mbps             float64
	Tiles            uint32
	TileCols         uint32
	MinCompressRatio float64
}

// requiredCompressRatio is the per-level minimum compression ratio: the tier
// basis scaled by how much of the level's display rate the stream uses,
// floored at 0.8.
func (lim *levelLimits) requiredCompressRatio(tier Tier, displayRate uint64) float64 {
	basis := lim.mainCR
	if tier == TierHigh {
		basis = lim.highCR
	}
	ratio := basis * float64(displayRate) / float64(lim.maxDisplayRate)
	if ratio < 0.8 {
		return 0.8
	}
	return ratio
}

func (lim *levelLimits) satisfies(stats StreamStats, tier Tier) bool {
	mbpsCap := lim.mainMbps
	if tier == TierHigh {
		mbpsCap = lim.highMbps
		if mbpsCap == 0 {
			return false
		}
	}
	return lim.maxPicSize >= stats.PicSize &&
		lim.maxHSize >= stats.PicWidth &&
		lim.maxVSize >= stats.PicHeight &&
		lim.maxDisplayRate >= stats.DisplayRate &&
		lim.maxDecodeRate >= stats.DecodeRate &&
		lim.maxHeaderRate >= stats.HeaderRate &&
		mbpsCap >= stats.Mbps &&
		lim.maxTiles >= stats.Tiles &&
		lim.maxTileCols >= stats.TileCols &&
		stats.MinCompressRatio >= lim.requiredCompressRatio(tier, stats.DisplayRate)
}

// SelectLevel scans the table in ascending order and returns the first level
// and tier whose every bound covers the accumulated statistics. Main tier is
// preferred; high tier is tried at the same level before moving on.
func SelectLevel(stats StreamStats) (Level, Tier, error) {
	for idx, limits := range levelTable {
		if limits == nil {
			continue
		}
		if limits.satisfies(stats, TierMain) {
			return Level(idx), TierMain, nil
		}
		if limits.satisfies(stats, TierHigh) {
			return Level(idx), TierHigh, nil
		}
	}
	return 0, TierMain, fmt.Errorf("%w: picture %dx%d, %.3f Mbps, %d tiles",
		ErrLevelExceedsTable, stats.PicWidth, stats.PicHeight, stats.Mbps, stats.Tiles)
}
