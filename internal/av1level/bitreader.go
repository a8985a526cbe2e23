package av1level

import "fmt"

// bitReader is a cursor over a byte buffer with the read primitives used by
// the AV1 header parsers. The bit position is exposed so callers can record
// field offsets for later patching.
type bitReader struct {
	data   []byte
	bitPos int
}

func newBitReader(data []byte) *bitReader {
	return &bitReader{data: data}
}

// position returns the current cursor in bits from the start of the buffer.
func (br *bitReader) position() int {
	return br.bitPos
}

func (br *bitReader) readBits(n int) (uint64, error) {
	if n < 0 || n > 64 {
		return 0, fmt.Errorf("invalid bit count %d", n)
	}
	if br.bitPos+n > len(br.data)*8 {
		return 0, fmt.Errorf("%w: need %d bits at bit %d of %d", ErrUnexpectedEndOfStream, n, br.bitPos, len(br.data)*8)
	}
	var value uint64
	for i := 0; i < n; i++ {
		bit := (br.data[br.bitPos>>3] >> (7 - (br.bitPos & 7))) & 1
		value = value<<1 | uint64(bit)
		br.bitPos++
	}
	return value, nil
}

// skipBits advances the cursor without decoding.
func (br *bitReader) skipBits(n int) error {
	if br.bitPos+n > len(br.data)*8 {
		return fmt.Errorf("%w: need %d bits at bit %d of %d", ErrUnexpectedEndOfStream, n, br.bitPos, len(br.data)*8)
	}
	br.bitPos += n
	return nil
}

func (br *bitReader) readFlag() (bool, error) {
	v, err := br.readBits(1)
	return v == 1, err
}

// readUvlc decodes uvlc(): a unary run of zero bits terminated by a one,
// followed by that many literal bits.
func (br *bitReader) readUvlc() (uint64, error) {
	leadingZeros := 0
	for {
		bit, err := br.readBits(1)
		if err != nil {
			return 0, err
		}
		if bit == 1 {
			break
		}
		leadingZeros++
		if leadingZeros >= 32 {
			return (1 << 32) - 1, nil
		}
	}
	if leadingZeros == 0 {
		return 0, nil
	}
	value, err := br.readBits(leadingZeros)
	if err != nil {
		return 0, err
	}
	return value + (1 << leadingZeros) - 1, nil
}

// readLeb128 decodes the OBU size encoding: 7 value bits per byte with a
// continuation flag in the high bit, at most 8 bytes.
func (br *bitReader) readLeb128() (uint64, error) {
	var value uint64
	for i := 0; i < 8; i++ {
		b, err := br.readBits(8)
		if err != nil {
			return 0, err
		}
		value |= (b & 0x7F) << (7 * i)
		if b&0x80 == 0 {
			return value, nil
		}
	}
	return 0, fmt.Errorf("%w: leb128 value longer than 8 bytes", ErrMalformedOBU)
}

// readNS decodes ns(n), the non-symmetric value in [0, n) used by the
// non-uniform tile layout.
func (br *bitReader) readNS(n uint64) (uint64, error) {
	if n <= 1 {
		return 0, nil
	}
	w := floorLog2(n) + 1
	m := (uint64(1) << w) - n
	v, err := br.readBits(int(w - 1))
	if err != nil {
		return 0, err
	}
	if v < m {
		return v, nil
	}
	extra, err := br.readBits(1)
	if err != nil {
		return 0, err
	}
	return (v << 1) - m + extra, nil
}

func floorLog2(v uint64) uint64 {
	var s uint64
	for v != 1 {
		v >>= 1
		s++
	}
	return s
}
