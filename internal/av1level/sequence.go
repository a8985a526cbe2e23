package av1level

import "fmt"

const (
	selectScreenContentTools = 2
	selectIntegerMv          = 2
)

// operatingPoint is the single selectable operating point of the stream.
type operatingPoint struct {
	Idc                 uint16
	Level               Level
	Tier                Tier
	DecoderModelPresent bool
}

// sequenceHeader is the parsed sequence_header_obu, restricted to the fields
// the frame parse and the level computation depend on. levelBitOffset and
// tierBitOffset are relative to the OBU payload start; tierBitOffset is -1
// when the header carries no tier bit.
type sequenceHeader struct {
	Profile             uint8
	StillPicture        bool
	ReducedStillPicture bool

	TimingInfoPresent     bool
	NumUnitsInDisplayTick uint32
	TimeScale             uint32
	EqualPictureInterval  bool
	NumTicksPerPicture    uint32

	DecoderModelInfoPresent     bool
	bufferDelayLength           int
	bufferRemovalTimeLength     int
	framePresentationTimeLength int

	InitialDisplayDelayPresent bool
	OperatingPoint             operatingPoint

	levelBitOffset int
	tierBitOffset  int

	FrameWidthBits  int
	FrameHeightBits int
	MaxFrameWidth   uint32
	MaxFrameHeight  uint32

	FrameIDNumbersPresent bool
	deltaFrameIDLength    int
	frameIDLength         int

	Use128x128Superblock bool

	EnableOrderHint  bool
	EnableRefFrameMv bool
	OrderHintBits    int

	ForceScreenContentTools uint8
	ForceIntegerMv          uint8

	EnableSuperres bool
}

// profileFactor is the bit cost of one uncompressed pixel for the stream's
// profile (4:2:0 8-bit, 4:4:4, and professional respectively), in eighths.
func (sh *sequenceHeader) profileFactor() uint64 {
	switch sh.Profile {
	case 0:
		return 15
	case 1:
		return 30
	default:
		return 36
	}
}

// parseSequenceHeader decodes a sequence_header_obu payload. Parsing stops
// once every field needed downstream has been read; the color config and
// film grain flag at the tail are never consumed.
func parseSequenceHeader(payload []byte) (*sequenceHeader, error) {
	br := newBitReader(payload)
	sh := &sequenceHeader{tierBitOffset: -1}

	profile, err := br.readBits(3)
	if err != nil {
		return nil, err
	}
	sh.Profile = uint8(profile)
	if sh.StillPicture, err = br.readFlag(); err != nil {
		return nil, err
	}
	if sh.ReducedStillPicture, err = br.readFlag(); err != nil {
		return nil, err
	}

	if sh.ReducedStillPicture {
		sh.levelBitOffset = br.position()
		level, err := br.readBits(5)
		if err != nil {
			return nil, err
		}
		sh.OperatingPoint = operatingPoint{Level: Level(level)}
	} else {
		if err := sh.parseOperatingPoints(br); err != nil {
			return nil, err
		}
	}

	widthBits, err := br.readBits(4)
	if err != nil {
		return nil, err
	}
	heightBits, err := br.readBits(4)
	if err != nil {
		return nil, err
	}
	sh.FrameWidthBits = int(widthBits) + 1
	sh.FrameHeightBits = int(heightBits) + 1
	maxWidth, err := br.readBits(sh.FrameWidthBits)
	if err != nil {
		return nil, err
	}
	maxHeight, err := br.readBits(sh.FrameHeightBits)
	if err != nil {
		return nil, err
	}
	sh.MaxFrameWidth = uint32(maxWidth) + 1
	sh.MaxFrameHeight = uint32(maxHeight) + 1

	if !sh.ReducedStillPicture {
		if sh.FrameIDNumbersPresent, err = br.readFlag(); err != nil {
			return nil, err
		}
	}
	if sh.FrameIDNumbersPresent {
		deltaLen, err := br.readBits(4)
		if err != nil {
			return nil, err
		}
		additionalLen, err := br.readBits(3)
		if err != nil {
			return nil, err
		}
		sh.deltaFrameIDLength = int(deltaLen) + 2
		sh.frameIDLength = sh.deltaFrameIDLength + int(additionalLen) + 1
	}

	if sh.Use128x128Superblock, err = br.readFlag(); err != nil {
		return nil, err
	}
	// enable_filter_intra, enable_intra_edge_filter
	if _, err = br.readBits(2); err != nil {
		return nil, err
	}

	if sh.ReducedStillPicture {
		sh.ForceScreenContentTools = selectScreenContentTools
		sh.ForceIntegerMv = selectIntegerMv
	} else {
		// enable_interintra_compound, enable_masked_compound,
		// enable_warped_motion, enable_dual_filter
		if _, err = br.readBits(4); err != nil {
			return nil, err
		}
		if sh.EnableOrderHint, err = br.readFlag(); err != nil {
			return nil, err
		}
		if sh.EnableOrderHint {
			// enable_jnt_comp
			if _, err = br.readBits(1); err != nil {
				return nil, err
			}
			if sh.EnableRefFrameMv, err = br.readFlag(); err != nil {
				return nil, err
			}
		}
		chooseScreenContent, err := br.readFlag()
		if err != nil {
			return nil, err
		}
		if chooseScreenContent {
			sh.ForceScreenContentTools = selectScreenContentTools
		} else {
			v, err := br.readBits(1)
			if err != nil {
				return nil, err
			}
			sh.ForceScreenContentTools = uint8(v)
		}
		if sh.ForceScreenContentTools > 0 {
			chooseIntegerMv, err := br.readFlag()
			if err != nil {
				return nil, err
			}
			if chooseIntegerMv {
				sh.ForceIntegerMv = selectIntegerMv
			} else {
				v, err := br.readBits(1)
				if err != nil {
					return nil, err
				}
				sh.ForceIntegerMv = uint8(v)
			}
		}
		if sh.EnableOrderHint {
			bits, err := br.readBits(3)
			if err != nil {
				return nil, err
			}
			sh.OrderHintBits = int(bits) + 1
		}
	}

	if sh.EnableSuperres, err = br.readFlag(); err != nil {
		return nil, err
	}
	// enable_cdef and enable_restoration follow, then the color config;
	// nothing past this point feeds the level computation.
	return sh, nil
}

func (sh *sequenceHeader) parseOperatingPoints(br *bitReader) error {
	var err error
	if sh.TimingInfoPresent, err = br.readFlag(); err != nil {
		return err
	}
	if sh.TimingInfoPresent {
		numUnits, err := br.readBits(32)
		if err != nil {
			return err
		}
		timeScale, err := br.readBits(32)
		if err != nil {
			return err
		}
		sh.NumUnitsInDisplayTick = uint32(numUnits)
		sh.TimeScale = uint32(timeScale)
		if sh.EqualPictureInterval, err = br.readFlag(); err != nil {
			return err
		}
		if sh.EqualPictureInterval {
			ticks, err := br.readUvlc()
			if err != nil {
				return err
			}
			sh.NumTicksPerPicture = uint32(ticks) + 1
		}
		if sh.DecoderModelInfoPresent, err = br.readFlag(); err != nil {
			return err
		}
		if sh.DecoderModelInfoPresent {
			bufferDelayLen, err := br.readBits(5)
			if err != nil {
				return err
			}
			if _, err = br.readBits(32); err != nil { // num_units_in_decoding_tick
				return err
			}
			removalLen, err := br.readBits(5)
			if err != nil {
				return err
			}
			presentationLen, err := br.readBits(5)
			if err != nil {
				return err
			}
			sh.bufferDelayLength = int(bufferDelayLen) + 1
			sh.bufferRemovalTimeLength = int(removalLen) + 1
			sh.framePresentationTimeLength = int(presentationLen) + 1
		}
	}
	if sh.InitialDisplayDelayPresent, err = br.readFlag(); err != nil {
		return err
	}

	opCount, err := br.readBits(5)
	if err != nil {
		return err
	}
	if opCount != 0 {
		return fmt.Errorf("%w: %d operating points, only single operating point streams are supported", ErrUnsupportedStream, opCount+1)
	}

	idc, err := br.readBits(12)
	if err != nil {
		return err
	}
	sh.OperatingPoint.Idc = uint16(idc)
	sh.levelBitOffset = br.position()
	level, err := br.readBits(5)
	if err != nil {
		return err
	}
	sh.OperatingPoint.Level = Level(level)
	if sh.OperatingPoint.Level.tierBitPresent() {
		sh.tierBitOffset = br.position()
		tier, err := br.readBits(1)
		if err != nil {
			return err
		}
		sh.OperatingPoint.Tier = Tier(tier)
	}
	if sh.DecoderModelInfoPresent {
		if sh.OperatingPoint.DecoderModelPresent, err = br.readFlag(); err != nil {
			return err
		}
		if sh.OperatingPoint.DecoderModelPresent {
			// decoder_buffer_delay, encoder_buffer_delay, low_delay_mode_flag
			if _, err = br.readBits(sh.bufferDelayLength); err != nil {
				return err
			}
			if _, err = br.readBits(sh.bufferDelayLength); err != nil {
				return err
			}
			if _, err = br.readBits(1); err != nil {
				return err
			}
		}
	}
	if sh.InitialDisplayDelayPresent {
		present, err := br.readFlag()
		if err != nil {
			return err
		}
		if present {
			if _, err = br.readBits(4); err != nil { // initial_display_delay_minus_1
				return err
			}
		}
	}
	return nil
}
