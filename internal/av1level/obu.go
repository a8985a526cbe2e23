package av1level

import "fmt"

type obuType uint8

const (
	obuSequenceHeader       obuType = 1
	obuTemporalDelimiter    obuType = 2
	obuFrameHeader          obuType = 3
	obuTileGroup            obuType = 4
	obuMetadata             obuType = 5
	obuFrame                obuType = 6
	obuRedundantFrameHeader obuType = 7
	obuTileList             obuType = 8
	obuPadding              obuType = 15
)

func (t obuType) String() string {
	switch t {
	case obuSequenceHeader:
		return "sequence header"
	case obuTemporalDelimiter:
		return "temporal delimiter"
	case obuFrameHeader:
		return "frame header"
	case obuTileGroup:
		return "tile group"
	case obuMetadata:
		return "metadata"
	case obuFrame:
		return "frame"
	case obuRedundantFrameHeader:
		return "redundant frame header"
	case obuTileList:
		return "tile list"
	case obuPadding:
		return "padding"
	default:
		return fmt.Sprintf("reserved (%d)", uint8(t))
	}
}

// obu is one Open Bitstream Unit sliced out of a container record.
// PayloadOffset is absolute within the input file.
type obu struct {
	Type          obuType
	TemporalID    uint8
	SpatialID     uint8
	HasSizeField  bool
	HeaderSize    int
	PayloadOffset int
	Payload       []byte
}

// Size returns the total byte span of the OBU including its header.
func (o obu) Size() int {
	return o.HeaderSize + len(o.Payload)
}

// obuParser splits one rawFrame into OBUs. When obu_has_size_field is unset
// the rest of the record is the payload, which holds for IVF-wrapped AV1.
type obuParser struct {
	frame rawFrame
	rel   int
}

func newOBUParser(frame rawFrame) *obuParser {
	return &obuParser{frame: frame}
}

// next yields the following OBU in the record, or ok=false when exhausted.
func (p *obuParser) next() (obu, bool, error) {
	if p.rel >= len(p.frame.Data) {
		return obu{}, false, nil
	}
	data := p.frame.Data[p.rel:]
	abs := p.frame.Offset + p.rel

	b := data[0]
	if b&0x80 != 0 {
		return obu{}, false, fmt.Errorf("%w: forbidden bit set at byte %d", ErrMalformedOBU, abs)
	}
	out := obu{
		Type:         obuType((b >> 3) & 0x0F),
		HasSizeField: b&0x02 != 0,
	}
	extensionFlag := b&0x04 != 0

	headerSize := 1
	if extensionFlag {
		if len(data) < 2 {
			return obu{}, false, fmt.Errorf("%w: truncated extension header at byte %d", ErrMalformedOBU, abs)
		}
		out.TemporalID = data[1] >> 5
		out.SpatialID = (data[1] >> 3) & 0x03
		headerSize = 2
	}

	var payloadLen int
	if out.HasSizeField {
		br := newBitReader(data[headerSize:])
		size, err := br.readLeb128()
		if err != nil {
			return obu{}, false, fmt.Errorf("%w: unreadable size field at byte %d", ErrMalformedOBU, abs)
		}
		headerSize += br.position() / 8
		if size > uint64(len(data)-headerSize) {
			return obu{}, false, fmt.Errorf("%w: size %d exceeds the %d remaining bytes at byte %d", ErrMalformedOBU, size, len(data)-headerSize, abs)
		}
		payloadLen = int(size)
	} else {
		payloadLen = len(data) - headerSize
	}

	out.HeaderSize = headerSize
	out.PayloadOffset = abs + headerSize
	out.Payload = data[headerSize : headerSize+payloadLen]
	p.rel += headerSize + payloadLen
	return out, true, nil
}
