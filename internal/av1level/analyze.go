package av1level

import (
	"fmt"
	"math"
	"os"
)

// Options configures a single analysis pass.
type Options struct {
	// ForceLevel skips level selection and uses ForcedLevel verbatim.
	ForceLevel  bool
	ForcedLevel Level
}

// SequenceInfo is the level-relevant summary of the parsed sequence header.
type SequenceInfo struct {
	Profile             uint8
	StillPicture        bool
	ReducedStillPicture bool
	MaxFrameWidth       uint32
	MaxFrameHeight      uint32
	Level               Level
	Tier                Tier
}

// Result is the outcome of one pass over the stream: the container and
// sequence summaries, the accumulated statistics, the selected (or forced)
// level and tier, and the recorded patch offsets.
type Result struct {
	Container ContainerInfo
	Sequence  SequenceInfo
	Stats     StreamStats

	Level  Level
	Tier   Tier
	Forced bool

	ShownFrames   uint64
	DecodedFrames uint64
	Warnings      []string

	levelBitOffset int
	tierBitOffset  int
}

// AnalyzeFile reads path into memory and analyzes it.
func AnalyzeFile(path string, opts Options) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Analyze(data, opts)
}

// Analyze runs the single sequential pass: demux the container, split each
// record into OBUs, parse the first sequence header, fold every frame into
// the accumulator, then select (or validate) the level.
func Analyze(data []byte, opts Options) (*Result, error) {
	reader, err := newIVFReader(data)
	if err != nil {
		return nil, err
	}

	res := &Result{Container: reader.info, tierBitOffset: -1}
	acc := newAccumulator(reader.info.TicksPerSecond())
	var sh *sequenceHeader
	var refs refFrameSizes
	seqPayloadOffset := -1

	for {
		frame, ok, err := reader.nextFrame()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		parser := newOBUParser(frame)
		for {
			o, ok, err := parser.next()
			if err != nil {
				return nil, err
			}
			if !ok {
				break
			}
			switch o.Type {
			case obuTemporalDelimiter:
				acc.startTemporalUnit(frame.PTS)
			case obuSequenceHeader:
				if sh != nil {
					// Parameters are assumed stable across the stream; later
					// sequence headers are repeats and are not re-parsed.
					continue
				}
				parsed, err := parseSequenceHeader(o.Payload)
				if err != nil {
					return nil, fmt.Errorf("sequence header at byte %d: %w", o.PayloadOffset, err)
				}
				sh = parsed
				seqPayloadOffset = o.PayloadOffset
			case obuFrame, obuFrameHeader:
				if sh == nil {
					return nil, fmt.Errorf("%w: %s OBU at byte %d", ErrMissingSequenceHeader, o.Type, o.PayloadOffset)
				}
				acc.noteTemporalUnitTime(frame.PTS)
				fh, err := parseFrameHeader(newBitReader(o.Payload), sh, &refs, o.TemporalID, o.SpatialID)
				if err != nil {
					res.Warnings = append(res.Warnings,
						fmt.Sprintf("skipping %s OBU at byte %d: %v", o.Type, o.PayloadOffset, err))
					continue
				}
				if fh.ShowExistingFrame {
					acc.noteShownExisting()
					continue
				}
				acc.noteFrame(fh, uint64(o.Size()), sh.profileFactor())
				refs.update(fh)
			case obuTileGroup, obuMetadata:
				acc.addFrameBytes(uint64(o.Size()))
			case obuTileList:
				if err := acc.noteTileList(o.Payload); err != nil {
					res.Warnings = append(res.Warnings,
						fmt.Sprintf("skipping tile list OBU at byte %d: %v", o.PayloadOffset, err))
				}
			}
		}
	}

	if sh == nil {
		return nil, fmt.Errorf("%w: end of file reached", ErrMissingSequenceHeader)
	}
	acc.finish()

	res.Sequence = SequenceInfo{
		Profile:             sh.Profile,
		StillPicture:        sh.StillPicture,
		ReducedStillPicture: sh.ReducedStillPicture,
		MaxFrameWidth:       sh.MaxFrameWidth,
		MaxFrameHeight:      sh.MaxFrameHeight,
		Level:               sh.OperatingPoint.Level,
		Tier:                sh.OperatingPoint.Tier,
	}
	res.levelBitOffset = seqPayloadOffset*8 + sh.levelBitOffset
	if sh.tierBitOffset >= 0 {
		res.tierBitOffset = seqPayloadOffset*8 + sh.tierBitOffset
	}
	res.ShownFrames = acc.totalShown
	res.DecodedFrames = acc.totalDecoded

	res.Stats = acc.stats()
	if res.Stats.PicSize == 0 {
		// No frame contributed, e.g. a headers-only stream: fall back to the
		// sequence maxima so the level bound stays meaningful.
		res.Stats.PicWidth = sh.MaxFrameWidth
		res.Stats.PicHeight = sh.MaxFrameHeight
		res.Stats.PicSize = uint64(sh.MaxFrameWidth) * uint64(sh.MaxFrameHeight)
	}

	if opts.ForceLevel {
		if !opts.ForcedLevel.Valid() {
			return nil, fmt.Errorf("forced level %d is not a defined level index", uint8(opts.ForcedLevel))
		}
		res.Forced = true
		res.Level = opts.ForcedLevel
		res.Tier = sh.OperatingPoint.Tier
		if !levelTable[res.Level].satisfies(res.Stats, res.Tier) {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("forced level %s appears insufficient for the observed stream statistics", res.Level))
		}
		return res, nil
	}

	level, tier, err := SelectLevel(res.Stats)
	if err != nil {
		return nil, err
	}
	res.Level = level
	res.Tier = tier
	return res, nil
}

// accumulator folds per-frame statistics into the running maxima the level
// table is evaluated against. Temporal units are delimited by temporal
// delimiter OBUs and timestamp advancement; header rate and bit rate are
// measured over a one-second sliding window of temporal units.
type accumulator struct {
	ticksPerSecond float64

	maxPicSize    uint64
	maxWidth      uint32
	maxHeight     uint32
	maxDisplayFPS float64
	maxDecodeFPS  float64
	maxHeaderRate float64
	maxMbps       float64
	maxTiles      uint32
	maxTileCols   uint32
	minCompress   float64

	winTicks   []uint64
	winSizes   []uint64
	winHeaders []uint64

	showCount   uint64
	frameCount  uint64
	headerCount uint64
	tuSize      uint64
	curTUTime   uint64
	lastTUTime  uint64
	seenHeader  bool

	pendingFrameBytes   uint64
	pendingUncompressed uint64

	lastTileCols uint32
	lastTileRows uint32

	tileDecodeRate float64

	totalShown   uint64
	totalDecoded uint64
}

func newAccumulator(ticksPerSecond float64) *accumulator {
	if ticksPerSecond <= 0 {
		ticksPerSecond = 1
	}
	return &accumulator{
		ticksPerSecond: ticksPerSecond,
		minCompress:    math.MaxFloat64,
	}
}

// noteTemporalUnitTime records the timestamp of the first frame header in
// the current temporal unit.
func (a *accumulator) noteTemporalUnitTime(pts uint64) {
	if !a.seenHeader {
		a.lastTUTime = a.curTUTime
		a.curTUTime = pts
		a.seenHeader = true
	}
}

// startTemporalUnit closes the previous temporal unit when the timestamp has
// advanced. A delimiter with an unchanged timestamp is a duplicate and is
// ignored.
func (a *accumulator) startTemporalUnit(pts uint64) {
	if !a.seenHeader || pts == a.curTUTime {
		return
	}
	deltaTicks := pts - a.curTUTime
	delta := float64(deltaTicks) / a.ticksPerSecond
	a.maxDisplayFPS = math.Max(a.maxDisplayFPS, float64(a.showCount)/delta)
	a.maxDecodeFPS = math.Max(a.maxDecodeFPS, float64(a.frameCount)/delta)
	a.pushWindow(deltaTicks, false)

	a.showCount = 0
	a.frameCount = 0
	a.headerCount = 0
	a.tuSize = 0
	a.seenHeader = false
}

// pushWindow appends the finished temporal unit to the one-second window and
// refreshes the header-rate and bit-rate maxima. Short clips below one
// second only contribute at the final flush, without interpolation.
func (a *accumulator) pushWindow(ticks uint64, final bool) {
	a.winTicks = append(a.winTicks, ticks)
	a.winSizes = append(a.winSizes, a.tuSize)
	a.winHeaders = append(a.winHeaders, a.headerCount)

	target := math.Round(a.ticksPerSecond)
	sum := sumUint64(a.winTicks)
	factor := 0.0
	switch {
	case float64(sum) >= target:
		for float64(sum) > target && len(a.winTicks) > 1 {
			a.winTicks = a.winTicks[1:]
			a.winSizes = a.winSizes[1:]
			a.winHeaders = a.winHeaders[1:]
			sum = sumUint64(a.winTicks)
		}
		if sum > 0 {
			factor = a.ticksPerSecond / float64(sum)
		}
	case final:
		factor = 1.0
	default:
		return
	}

	a.maxHeaderRate = math.Max(a.maxHeaderRate, float64(sumUint64(a.winHeaders))*factor)
	a.maxMbps = math.Max(a.maxMbps, float64(sumUint64(a.winSizes))*factor*8/1e6)
}

// noteFrame folds one decoded frame into the running maxima.
func (a *accumulator) noteFrame(fh *frameHeader, obuBytes uint64, profileFactor uint64) {
	a.evaluateCompressRatio()
	a.pendingFrameBytes = obuBytes
	a.pendingUncompressed = fh.PicSize() * profileFactor / 8

	a.tuSize += obuBytes
	a.headerCount++
	a.frameCount++
	a.totalDecoded++
	if fh.ShowFrame {
		a.showCount++
		a.totalShown++
	}

	a.maxWidth = maxUint32(a.maxWidth, fh.UpscaledWidth)
	a.maxHeight = maxUint32(a.maxHeight, fh.FrameHeight)
	if size := fh.PicSize(); size > a.maxPicSize {
		a.maxPicSize = size
	}
	a.lastTileCols = fh.TileCols
	a.lastTileRows = fh.TileRows
	a.maxTileCols = maxUint32(a.maxTileCols, fh.TileCols)
	a.maxTiles = maxUint32(a.maxTiles, fh.TileCols*fh.TileRows)
}

// noteShownExisting counts a show_existing_frame toward the display rate.
// It adds no new coded bits.
func (a *accumulator) noteShownExisting() {
	a.showCount++
	a.totalShown++
}

// addFrameBytes attributes tile group and metadata OBU bytes to the frame
// whose header was seen last.
func (a *accumulator) addFrameBytes(n uint64) {
	a.pendingFrameBytes += n
	a.tuSize += n
}

func (a *accumulator) evaluateCompressRatio() {
	if a.pendingFrameBytes == 0 || a.pendingUncompressed == 0 {
		return
	}
	ratio := float64(a.pendingUncompressed) / float64(a.pendingFrameBytes)
	if ratio < a.minCompress {
		a.minCompress = ratio
	}
	a.pendingFrameBytes = 0
	a.pendingUncompressed = 0
}

// noteTileList walks a tile_list_obu and bounds the large-scale-tile decode
// rate, which counts double against the level's decode rate cap.
func (a *accumulator) noteTileList(payload []byte) error {
	br := newBitReader(payload)
	if _, err := br.readBits(16); err != nil { // output frame width/height in tiles
		return err
	}
	countMinus1, err := br.readBits(16)
	if err != nil {
		return err
	}
	for i := uint64(0); i <= countMinus1; i++ {
		if _, err := br.readBits(24); err != nil { // anchor frame idx, tile row, tile col
			return err
		}
		size, err := br.readBits(16)
		if err != nil {
			return err
		}
		if err := br.skipBits(int(size+1) * 8); err != nil { // coded_tile_data
			return err
		}
	}
	if a.lastTileCols == 0 || a.lastTileRows == 0 {
		return nil
	}
	tileSamples := float64(a.maxWidth) / float64(a.lastTileCols) * float64(a.maxHeight) / float64(a.lastTileRows)
	rate := tileSamples * float64(countMinus1+1) * 180
	a.tileDecodeRate = math.Max(a.tileDecodeRate, rate)
	return nil
}

// finish flushes the open temporal unit. A stream that never advances its
// timestamps (a single frame, or a still picture) is treated as one tick
// long so the rate computations stay finite.
func (a *accumulator) finish() {
	a.evaluateCompressRatio()
	if !a.seenHeader && a.tuSize == 0 {
		return
	}
	deltaTicks := a.curTUTime - a.lastTUTime
	if deltaTicks == 0 {
		deltaTicks = 1
	}
	delta := float64(deltaTicks) / a.ticksPerSecond
	a.maxDisplayFPS = math.Max(a.maxDisplayFPS, float64(a.showCount)/delta)
	a.maxDecodeFPS = math.Max(a.maxDecodeFPS, float64(a.frameCount)/delta)
	a.pushWindow(deltaTicks, true)
}

func (a *accumulator) stats() StreamStats {
	decodeRate := math.Max(a.maxDecodeFPS*float64(a.maxPicSize), a.tileDecodeRate*2)
	return StreamStats{
		PicWidth:         a.maxWidth,
		PicHeight:        a.maxHeight,
		PicSize:          a.maxPicSize,
		DisplayRate:      uint64(math.Ceil(a.maxDisplayFPS * float64(a.maxPicSize))),
		DecodeRate:       uint64(math.Ceil(decodeRate)),
		HeaderRate:       uint64(math.Ceil(a.maxHeaderRate)),
		Mbps:             a.maxMbps,
		Tiles:            a.maxTiles,
		TileCols:         a.maxTileCols,
		MinCompressRatio: a.minCompress,
	}
}

func sumUint64(values []uint64) uint64 {
	var sum uint64
	for _, v := range values {
		sum += v
	}
	return sum
}
