package av1level

import (
	"bytes"
	"encoding/binary"
)

type bitWriter struct {
	buf    []byte
	bitPos int
}

func (w *bitWriter) writeBits(v uint64, n int) {
	for i := n - 1; i >= 0; i-- {
		if w.bitPos>>3 >= len(w.buf) {
			w.buf = append(w.buf, 0)
		}
		if (v>>uint(i))&1 == 1 {
			w.buf[w.bitPos>>3] |= 1 << uint(7-(w.bitPos&7))
		}
		w.bitPos++
	}
}

func leb128Bytes(n int) []byte {
	out := make([]byte, 0, 2)
	for {
		b := byte(n & 0x7F)
		n >>= 7
		if n != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if n == 0 {
			return out
		}
	}
}

func wrapOBU(t obuType, payload []byte) []byte {
	out := []byte{byte(t)<<3 | 0x02}
	out = append(out, leb128Bytes(len(payload))...)
	return append(out, payload...)
}

type seqConfig struct {
	level        uint8
	tier         uint8
	width        uint32
	height       uint32
	reducedStill bool
}

// buildSequenceHeaderPayload emits a minimal sequence_header_obu payload:
// profile 0, one operating point, no timing info, no frame id numbers,
// 64x64 superblocks, order hints and superres disabled.
func buildSequenceHeaderPayload(cfg seqConfig) []byte {
	bw := &bitWriter{}
	bw.writeBits(0, 3) // seq_profile

	if cfg.reducedStill {
		bw.writeBits(1, 1) // still_picture
		bw.writeBits(1, 1) // reduced_still_picture_header
		bw.writeBits(uint64(cfg.level), 5)
	} else {
		bw.writeBits(0, 1) // still_picture
		bw.writeBits(0, 1) // reduced_still_picture_header
		bw.writeBits(0, 1) // timing_info_present_flag
		bw.writeBits(0, 1) // initial_display_delay_present_flag
		bw.writeBits(0, 5) // operating_points_cnt_minus_1
		bw.writeBits(0, 12) // operating_point_idc
		bw.writeBits(uint64(cfg.level), 5)
		if Level(cfg.level).tierBitPresent() {
			bw.writeBits(uint64(cfg.tier), 1)
		}
	}

	bw.writeBits(15, 4) // frame_width_bits_minus_1
	bw.writeBits(15, 4) // frame_height_bits_minus_1
	bw.writeBits(uint64(cfg.width-1), 16)
	bw.writeBits(uint64(cfg.height-1), 16)
	if !cfg.reducedStill {
		bw.writeBits(0, 1) // frame_id_numbers_present_flag
	}
	bw.writeBits(0, 1) // use_128x128_superblock
	bw.writeBits(0, 2) // enable_filter_intra, enable_intra_edge_filter
	if !cfg.reducedStill {
		bw.writeBits(0, 4) // interintra, masked compound, warped motion, dual filter
		bw.writeBits(0, 1) // enable_order_hint
		bw.writeBits(0, 1) // seq_choose_screen_content_tools
		bw.writeBits(0, 1) // seq_force_screen_content_tools
	}
	bw.writeBits(0, 1) // enable_superres
	return bw.buf
}

func buildSequenceHeaderOBU(cfg seqConfig) []byte {
	return wrapOBU(obuSequenceHeader, buildSequenceHeaderPayload(cfg))
}

// buildKeyFrameOBU emits a frame OBU whose uncompressed header is a shown
// key frame at the sequence maximum size, single tile, followed by padding
// bytes standing in for the coded tile data. The layout assumes a sequence
// built by buildSequenceHeaderPayload.
func buildKeyFrameOBU(cfg seqConfig, codedBytes int) []byte {
	bw := &bitWriter{}
	if cfg.reducedStill {
		bw.writeBits(1, 1) // disable_cdf_update
		bw.writeBits(0, 1) // allow_screen_content_tools
		bw.writeBits(0, 1) // render_and_frame_size_different
	} else {
		bw.writeBits(0, 1) // show_existing_frame
		bw.writeBits(0, 2) // frame_type KEY
		bw.writeBits(1, 1) // show_frame
		bw.writeBits(1, 1) // disable_cdf_update
		bw.writeBits(0, 1) // frame_size_override_flag
		bw.writeBits(0, 1) // render_and_frame_size_different
	}
	bw.writeBits(1, 1) // uniform_tile_spacing_flag
	bw.writeBits(0, 1) // increment_tile_cols_log2 stop
	bw.writeBits(0, 1) // increment_tile_rows_log2 stop
	payload := append(bw.buf, make([]byte, codedBytes)...)
	return wrapOBU(obuFrame, payload)
}

func buildTemporalDelimiterOBU() []byte {
	return wrapOBU(obuTemporalDelimiter, nil)
}

type ivfFrame struct {
	pts  uint64
	obus [][]byte
}

func buildIVF(width, height uint16, den, num uint32, frames []ivfFrame) []byte {
	buf := make([]byte, ivfHeaderSize)
	copy(buf[0:4], ivfSignature)
	binary.LittleEndian.PutUint16(buf[6:8], ivfHeaderSize)
	copy(buf[8:12], ivfCodecAV1)
	binary.LittleEndian.PutUint16(buf[12:14], width)
	binary.LittleEndian.PutUint16(buf[14:16], height)
	binary.LittleEndian.PutUint32(buf[16:20], den)
	binary.LittleEndian.PutUint32(buf[20:24], num)
	binary.LittleEndian.PutUint32(buf[24:28], uint32(len(frames)))

	for _, f := range frames {
		data := bytes.Join(f.obus, nil)
		var hdr [ivfFrameHeaderSize]byte
		binary.LittleEndian.PutUint32(hdr[0:4], uint32(len(data)))
		binary.LittleEndian.PutUint64(hdr[4:12], f.pts)
		buf = append(buf, hdr[:]...)
		buf = append(buf, data...)
	}
	return buf
}

// buildTestStream assembles an IVF file with frameCount shown key frames at
// one temporal unit per timestamp tick.
func buildTestStream(cfg seqConfig, den, num uint32, frameCount, codedBytes int) []byte {
	frames := make([]ivfFrame, 0, frameCount)
	for i := 0; i < frameCount; i++ {
		obus := [][]byte{buildTemporalDelimiterOBU()}
		if i == 0 {
			obus = append(obus, buildSequenceHeaderOBU(cfg))
		}
		obus = append(obus, buildKeyFrameOBU(cfg, codedBytes))
		frames = append(frames, ivfFrame{pts: uint64(i), obus: obus})
	}
	return buildIVF(uint16(cfg.width), uint16(cfg.height), den, num, frames)
}
