package av1level

import "fmt"

const (
	frameTypeKey       = 0
	frameTypeInter     = 1
	frameTypeIntraOnly = 2
	frameTypeSwitch    = 3

	primaryRefNone = 7
	numRefFrames   = 8
	refsPerFrame   = 7

	maxTileWidthSamples = 4096
	maxTileAreaSamples  = 4096 * 2304
	maxTileColCount     = 64
	maxTileRowCount     = 64
)

// refFrameSizes tracks the picture dimensions held in each of the eight
// reference slots, updated by refresh_frame_flags after every decoded frame.
// frame_size_with_refs and show_existing_frame resolve against it.
type refFrameSizes [numRefFrames]struct {
	upscaledWidth uint32
	frameWidth    uint32
	frameHeight   uint32
	renderWidth   uint32
	renderHeight  uint32
}

func (r *refFrameSizes) update(fh *frameHeader) {
	for i := 0; i < numRefFrames; i++ {
		if fh.RefreshFrameFlags&(1<<i) != 0 {
			r[i].upscaledWidth = fh.UpscaledWidth
			r[i].frameWidth = fh.FrameWidth
			r[i].frameHeight = fh.FrameHeight
			r[i].renderWidth = fh.RenderWidth
			r[i].renderHeight = fh.RenderHeight
		}
	}
}

// frameHeader is the slice of uncompressed_header() the accumulator needs:
// visibility flags, the resolved picture size and the tile layout.
type frameHeader struct {
	ShowExistingFrame bool
	FrameToShowMapIdx uint8
	FrameType         uint8
	ShowFrame         bool
	ErrorResilient    bool
	RefreshFrameFlags uint16

	UpscaledWidth uint32
	FrameWidth    uint32
	FrameHeight   uint32
	RenderWidth   uint32
	RenderHeight  uint32

	miCols uint32
	miRows uint32

	TileCols uint32
	TileRows uint32
}

func (fh *frameHeader) isIntra() bool {
	return fh.FrameType == frameTypeKey || fh.FrameType == frameTypeIntraOnly
}

// PicSize is the displayed picture size in luma samples.
func (fh *frameHeader) PicSize() uint64 {
	return uint64(fh.UpscaledWidth) * uint64(fh.FrameHeight)
}

// parseFrameHeader decodes uncompressed_header() up to and including
// tile_info(), which is as far as the level computation needs to look.
// temporalID and spatialID come from the enclosing OBU extension header.
func parseFrameHeader(br *bitReader, sh *sequenceHeader, refs *refFrameSizes, temporalID, spatialID uint8) (*frameHeader, error) {
	fh := &frameHeader{}
	var err error

	if sh.ReducedStillPicture {
		fh.FrameType = frameTypeKey
		fh.ShowFrame = true
	} else {
		if fh.ShowExistingFrame, err = br.readFlag(); err != nil {
			return nil, err
		}
		if fh.ShowExistingFrame {
			idx, err := br.readBits(3)
			if err != nil {
				return nil, err
			}
			fh.FrameToShowMapIdx = uint8(idx)
			if sh.DecoderModelInfoPresent && !sh.EqualPictureInterval {
				if _, err = br.readBits(sh.framePresentationTimeLength); err != nil {
					return nil, err
				}
			}
			if sh.FrameIDNumbersPresent {
				if _, err = br.readBits(sh.frameIDLength); err != nil { // display_frame_id
					return nil, err
				}
			}
			ref := refs[fh.FrameToShowMapIdx]
			fh.UpscaledWidth = ref.upscaledWidth
			fh.FrameWidth = ref.frameWidth
			fh.FrameHeight = ref.frameHeight
			return fh, nil
		}

		frameType, err := br.readBits(2)
		if err != nil {
			return nil, err
		}
		fh.FrameType = uint8(frameType)
		if fh.ShowFrame, err = br.readFlag(); err != nil {
			return nil, err
		}
		if fh.ShowFrame && sh.DecoderModelInfoPresent && !sh.EqualPictureInterval {
			if _, err = br.readBits(sh.framePresentationTimeLength); err != nil {
				return nil, err
			}
		}
		if !fh.ShowFrame {
			if _, err = br.readBits(1); err != nil { // showable_frame
				return nil, err
			}
		}
		if fh.FrameType == frameTypeSwitch || (fh.FrameType == frameTypeKey && fh.ShowFrame) {
			fh.ErrorResilient = true
		} else {
			if fh.ErrorResilient, err = br.readFlag(); err != nil {
				return nil, err
			}
		}
	}

	disableCDFUpdate, err := br.readFlag()
	if err != nil {
		return nil, err
	}

	allowScreenContentTools := sh.ForceScreenContentTools == 1
	if sh.ForceScreenContentTools == selectScreenContentTools {
		if allowScreenContentTools, err = br.readFlag(); err != nil {
			return nil, err
		}
	}
	forceIntegerMv := false
	if allowScreenContentTools {
		if sh.ForceIntegerMv == selectIntegerMv {
			if forceIntegerMv, err = br.readFlag(); err != nil {
				return nil, err
			}
		} else {
			forceIntegerMv = sh.ForceIntegerMv == 1
		}
	}
	if fh.isIntra() {
		forceIntegerMv = true
	}

	if sh.FrameIDNumbersPresent {
		if _, err = br.readBits(sh.frameIDLength); err != nil { // current_frame_id
			return nil, err
		}
	}

	frameSizeOverride := false
	if fh.FrameType == frameTypeSwitch {
		frameSizeOverride = true
	} else if !sh.ReducedStillPicture {
		if frameSizeOverride, err = br.readFlag(); err != nil {
			return nil, err
		}
	}

	if sh.OrderHintBits > 0 {
		if _, err = br.readBits(sh.OrderHintBits); err != nil { // order_hint
			return nil, err
		}
	}

	if !fh.isIntra() && !fh.ErrorResilient {
		if _, err = br.readBits(3); err != nil { // primary_ref_frame
			return nil, err
		}
	}

	if sh.DecoderModelInfoPresent {
		bufferRemovalPresent, err := br.readFlag()
		if err != nil {
			return nil, err
		}
		if bufferRemovalPresent && sh.OperatingPoint.DecoderModelPresent {
			idc := sh.OperatingPoint.Idc
			inTemporalLayer := (idc>>temporalID)&1 != 0
			inSpatialLayer := (idc>>(spatialID+8))&1 != 0
			if idc == 0 || (inTemporalLayer && inSpatialLayer) {
				if _, err = br.readBits(sh.bufferRemovalTimeLength); err != nil {
					return nil, err
				}
			}
		}
	}

	allFrames := uint16(1<<numRefFrames) - 1
	if fh.FrameType == frameTypeSwitch || (fh.FrameType == frameTypeKey && fh.ShowFrame) {
		fh.RefreshFrameFlags = allFrames
	} else {
		flags, err := br.readBits(8)
		if err != nil {
			return nil, err
		}
		fh.RefreshFrameFlags = uint16(flags)
	}

	if (!fh.isIntra() || fh.RefreshFrameFlags != allFrames) && fh.ErrorResilient && sh.EnableOrderHint {
		for i := 0; i < numRefFrames; i++ {
			if _, err = br.readBits(sh.OrderHintBits); err != nil { // ref_order_hint
				return nil, err
			}
		}
	}

	if fh.isIntra() {
		if err = fh.readFrameSize(br, sh, frameSizeOverride); err != nil {
			return nil, err
		}
		if err = fh.readRenderSize(br); err != nil {
			return nil, err
		}
		if allowScreenContentTools && fh.UpscaledWidth == fh.FrameWidth {
			if _, err = br.readBits(1); err != nil { // allow_intrabc
				return nil, err
			}
		}
	} else {
		var refIdx [refsPerFrame]uint8
		shortSignaling := false
		if sh.EnableOrderHint {
			if shortSignaling, err = br.readFlag(); err != nil {
				return nil, err
			}
			if shortSignaling {
				// last_frame_idx, gold_frame_idx; the derived mapping of the
				// remaining slots does not change any tracked size.
				last, err := br.readBits(3)
				if err != nil {
					return nil, err
				}
				gold, err := br.readBits(3)
				if err != nil {
					return nil, err
				}
				refIdx[0] = uint8(last)
				for i := 1; i < refsPerFrame; i++ {
					refIdx[i] = uint8(gold)
				}
			}
		}
		for i := 0; i < refsPerFrame; i++ {
			if !shortSignaling {
				idx, err := br.readBits(3)
				if err != nil {
					return nil, err
				}
				refIdx[i] = uint8(idx)
			}
			if sh.FrameIDNumbersPresent {
				if _, err = br.readBits(sh.deltaFrameIDLength); err != nil { // delta_frame_id_minus_1
					return nil, err
				}
			}
		}

		if frameSizeOverride && !fh.ErrorResilient {
			if err = fh.readFrameSizeWithRefs(br, sh, refs, refIdx); err != nil {
				return nil, err
			}
		} else {
			if err = fh.readFrameSize(br, sh, frameSizeOverride); err != nil {
				return nil, err
			}
			if err = fh.readRenderSize(br); err != nil {
				return nil, err
			}
		}

		if !forceIntegerMv {
			if _, err = br.readBits(1); err != nil { // allow_high_precision_mv
				return nil, err
			}
		}
		filterSwitchable, err := br.readFlag()
		if err != nil {
			return nil, err
		}
		if !filterSwitchable {
			if _, err = br.readBits(2); err != nil { // interpolation_filter
				return nil, err
			}
		}
		if _, err = br.readBits(1); err != nil { // is_motion_mode_switchable
			return nil, err
		}
		if !fh.ErrorResilient && sh.EnableRefFrameMv {
			if _, err = br.readBits(1); err != nil { // use_ref_frame_mvs
				return nil, err
			}
		}
	}

	if !sh.ReducedStillPicture && !disableCDFUpdate {
		if _, err = br.readBits(1); err != nil { // disable_frame_end_update_cdf
			return nil, err
		}
	}

	if err = fh.readTileInfo(br, sh); err != nil {
		return nil, err
	}
	return fh, nil
}

func (fh *frameHeader) readFrameSize(br *bitReader, sh *sequenceHeader, override bool) error {
	if override {
		w, err := br.readBits(sh.FrameWidthBits)
		if err != nil {
			return err
		}
		h, err := br.readBits(sh.FrameHeightBits)
		if err != nil {
			return err
		}
		fh.FrameWidth = uint32(w) + 1
		fh.FrameHeight = uint32(h) + 1
	} else {
		fh.FrameWidth = sh.MaxFrameWidth
		fh.FrameHeight = sh.MaxFrameHeight
	}
	if err := fh.readSuperresParams(br, sh); err != nil {
		return err
	}
	fh.computeImageSize()
	return nil
}

func (fh *frameHeader) readSuperresParams(br *bitReader, sh *sequenceHeader) error {
	denom := uint32(8)
	if sh.EnableSuperres {
		use, err := br.readFlag()
		if err != nil {
			return err
		}
		if use {
			coded, err := br.readBits(3)
			if err != nil {
				return err
			}
			denom = uint32(coded) + 9
		}
	}
	fh.UpscaledWidth = fh.FrameWidth
	fh.FrameWidth = (fh.UpscaledWidth*8 + denom/2) / denom
	return nil
}

func (fh *frameHeader) computeImageSize() {
	fh.miCols = 2 * ((fh.FrameWidth + 7) >> 3)
	fh.miRows = 2 * ((fh.FrameHeight + 7) >> 3)
}

func (fh *frameHeader) readRenderSize(br *bitReader) error {
	different, err := br.readFlag()
	if err != nil {
		return err
	}
	if different {
		w, err := br.readBits(16)
		if err != nil {
			return err
		}
		h, err := br.readBits(16)
		if err != nil {
			return err
		}
		fh.RenderWidth = uint32(w) + 1
		fh.RenderHeight = uint32(h) + 1
		return nil
	}
	fh.RenderWidth = fh.UpscaledWidth
	fh.RenderHeight = fh.FrameHeight
	return nil
}

func (fh *frameHeader) readFrameSizeWithRefs(br *bitReader, sh *sequenceHeader, refs *refFrameSizes, refIdx [refsPerFrame]uint8) error {
	for i := 0; i < refsPerFrame; i++ {
		found, err := br.readFlag()
		if err != nil {
			return err
		}
		if found {
			ref := refs[refIdx[i]]
			if ref.upscaledWidth == 0 || ref.frameHeight == 0 {
				return fmt.Errorf("%w: frame size taken from empty reference slot %d", ErrMalformedOBU, refIdx[i])
			}
			fh.UpscaledWidth = ref.upscaledWidth
			fh.FrameWidth = ref.upscaledWidth
			fh.FrameHeight = ref.frameHeight
			fh.RenderWidth = ref.renderWidth
			fh.RenderHeight = ref.renderHeight
			if err := fh.readSuperresParams(br, sh); err != nil {
				return err
			}
			fh.computeImageSize()
			return nil
		}
	}
	if err := fh.readFrameSize(br, sh, true); err != nil {
		return err
	}
	return fh.readRenderSize(br)
}

// readTileInfo decodes tile_info() and records the tile column and row
// counts for both the uniform and explicit spacing layouts.
func (fh *frameHeader) readTileInfo(br *bitReader, sh *sequenceHeader) error {
	sbShift := uint32(4)
	if sh.Use128x128Superblock {
		sbShift = 5
	}
	sbCols := (fh.miCols + (1 << sbShift) - 1) >> sbShift
	sbRows := (fh.miRows + (1 << sbShift) - 1) >> sbShift
	sbSize := sbShift + 2

	maxTileWidthSb := uint32(maxTileWidthSamples) >> sbSize
	maxTileAreaSb := uint32(maxTileAreaSamples) >> (2 * sbSize)
	minLog2TileCols := tileLog2(maxTileWidthSb, sbCols)
	maxLog2TileCols := tileLog2(1, minUint32(sbCols, maxTileColCount))
	maxLog2TileRows := tileLog2(1, minUint32(sbRows, maxTileRowCount))
	minLog2Tiles := maxUint32(minLog2TileCols, tileLog2(maxTileAreaSb, sbRows*sbCols))

	uniform, err := br.readFlag()
	if err != nil {
		return err
	}
	var tileColsLog2, tileRowsLog2 uint32
	if uniform {
		tileColsLog2 = minLog2TileCols
		for tileColsLog2 < maxLog2TileCols {
			increment, err := br.readFlag()
			if err != nil {
				return err
			}
			if !increment {
				break
			}
			tileColsLog2++
		}
		tileWidthSb := (sbCols + (1 << tileColsLog2) - 1) >> tileColsLog2
		fh.TileCols = (sbCols + tileWidthSb - 1) / tileWidthSb

		minLog2TileRows := uint32(0)
		if minLog2Tiles > tileColsLog2 {
			minLog2TileRows = minLog2Tiles - tileColsLog2
		}
		tileRowsLog2 = minLog2TileRows
		for tileRowsLog2 < maxLog2TileRows {
			increment, err := br.readFlag()
			if err != nil {
				return err
			}
			if !increment {
				break
			}
			tileRowsLog2++
		}
		tileHeightSb := (sbRows + (1 << tileRowsLog2) - 1) >> tileRowsLog2
		fh.TileRows = (sbRows + tileHeightSb - 1) / tileHeightSb
	} else {
		widestTileSb := uint32(0)
		startSb := uint32(0)
		for i := uint32(0); startSb < sbCols; i++ {
			maxWidth := minUint32(sbCols-startSb, maxTileWidthSb)
			widthInSbs, err := br.readNS(uint64(maxWidth))
			if err != nil {
				return err
			}
			sizeSb := uint32(widthInSbs) + 1
			widestTileSb = maxUint32(widestTileSb, sizeSb)
			startSb += sizeSb
			fh.TileCols = i + 1
		}
		tileColsLog2 = tileLog2(1, fh.TileCols)

		maxTileAreaSbLocal := sbRows * sbCols
		if minLog2Tiles > 0 {
			maxTileAreaSbLocal >>= minLog2Tiles + 1
		}
		maxTileHeightSb := maxUint32(maxTileAreaSbLocal/maxUint32(widestTileSb, 1), 1)
		startSb = 0
		for i := uint32(0); startSb < sbRows; i++ {
			maxHeight := minUint32(sbRows-startSb, maxTileHeightSb)
			heightInSbs, err := br.readNS(uint64(maxHeight))
			if err != nil {
				return err
			}
			startSb += uint32(heightInSbs) + 1
			fh.TileRows = i + 1
		}
		tileRowsLog2 = tileLog2(1, fh.TileRows)
	}

	if tileColsLog2 > 0 || tileRowsLog2 > 0 {
		if _, err = br.readBits(int(tileColsLog2 + tileRowsLog2)); err != nil { // context_update_tile_id
			return err
		}
		if _, err = br.readBits(2); err != nil { // tile_size_bytes_minus_1
			return err
		}
	}
	return nil
}

// tileLog2 returns the smallest k such that blkSize << k >= target.
func tileLog2(blkSize, target uint32) uint32 {
	var k uint32
	for ; (blkSize << k) < target; k++ {
	}
	return k
}

func minUint32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

func maxUint32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}
