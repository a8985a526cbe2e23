package av1level

import (
	"encoding/binary"
	"fmt"
)

const (
	ivfSignature       = "DKIF"
	ivfCodecAV1        = "AV01"
	ivfHeaderSize      = 32
	ivfFrameHeaderSize = 12
)

// ContainerInfo carries the IVF header fields. They are informational: the
// authoritative dimensions and timing come from the bitstream itself.
type ContainerInfo struct {
	Width       uint16
	Height      uint16
	TimebaseDen uint32
	TimebaseNum uint32
	FrameCount  uint32
}

// TicksPerSecond converts the IVF timebase into timestamp units per second.
func (c ContainerInfo) TicksPerSecond() float64 {
	if c.TimebaseNum == 0 {
		return float64(c.TimebaseDen)
	}
	return float64(c.TimebaseDen) / float64(c.TimebaseNum)
}

// rawFrame is one container record: the payload bytes, their declared size,
// the display timestamp and the absolute payload offset in the file.
type rawFrame struct {
	Offset int
	Size   uint32
	PTS    uint64
	Data   []byte
}

type ivfReader struct {
	info ContainerInfo
	data []byte
	off  int
}

func newIVFReader(data []byte) (*ivfReader, error) {
	if len(data) < ivfHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than an IVF header", ErrUnsupportedContainer, len(data))
	}
	if string(data[0:4]) != ivfSignature {
		return nil, fmt.Errorf("%w: signature %q, want %q", ErrUnsupportedContainer, string(data[0:4]), ivfSignature)
	}
	if version := binary.LittleEndian.Uint16(data[4:6]); version != 0 {
		return nil, fmt.Errorf("%w: IVF version %d", ErrUnsupportedContainer, version)
	}
	headerSize := binary.LittleEndian.Uint16(data[6:8])
	if headerSize != ivfHeaderSize {
		return nil, fmt.Errorf("%w: IVF header length %d, want %d", ErrUnsupportedContainer, headerSize, ivfHeaderSize)
	}
	if codec := string(data[8:12]); codec != ivfCodecAV1 {
		return nil, fmt.Errorf("%w: codec %q, want %q", ErrUnsupportedContainer, codec, ivfCodecAV1)
	}
	return &ivfReader{
		info: ContainerInfo{
			Width:       binary.LittleEndian.Uint16(data[12:14]),
			Height:      binary.LittleEndian.Uint16(data[14:16]),
			TimebaseDen: binary.LittleEndian.Uint32(data[16:20]),
			TimebaseNum: binary.LittleEndian.Uint32(data[20:24]),
			FrameCount:  binary.LittleEndian.Uint32(data[24:28]),
		},
		data: data,
		off:  ivfHeaderSize,
	}, nil
}

// nextFrame yields the next container record, or ok=false at end of file.
func (r *ivfReader) nextFrame() (rawFrame, bool, error) {
	if r.off >= len(r.data) {
		return rawFrame{}, false, nil
	}
	if r.off+ivfFrameHeaderSize > len(r.data) {
		return rawFrame{}, false, fmt.Errorf("%w: truncated IVF frame header at byte %d", ErrUnexpectedEndOfStream, r.off)
	}
	size := binary.LittleEndian.Uint32(r.data[r.off : r.off+4])
	pts := binary.LittleEndian.Uint64(r.data[r.off+4 : r.off+12])
	start := r.off + ivfFrameHeaderSize
	if start+int(size) > len(r.data) {
		return rawFrame{}, false, fmt.Errorf("%w: IVF frame of %d bytes at byte %d runs past end of file", ErrUnexpectedEndOfStream, size, r.off)
	}
	r.off = start + int(size)
	return rawFrame{
		Offset: start,
		Size:   size,
		PTS:    pts,
		Data:   r.data[start : start+int(size)],
	}, true, nil
}
