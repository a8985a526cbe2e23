package av1level

import "errors"

var (
	// ErrUnsupportedContainer is returned when the input is not an IVF file
	// carrying an AV1 elementary stream.
	ErrUnsupportedContainer = errors.New("unsupported container")

	// ErrUnexpectedEndOfStream is returned when a parse runs past the end of
	// the available bytes.
	ErrUnexpectedEndOfStream = errors.New("unexpected end of stream")

	// ErrMalformedOBU is returned when an OBU header or size field is
	// inconsistent with the surrounding buffer.
	ErrMalformedOBU = errors.New("malformed OBU")

	// ErrMissingSequenceHeader is returned when a frame OBU appears before
	// any sequence header OBU.
	ErrMissingSequenceHeader = errors.New("no sequence header before first frame")

	// ErrUnsupportedStream is returned for stream structures the analyzer
	// deliberately refuses, such as multiple operating points.
	ErrUnsupportedStream = errors.New("unsupported stream structure")

	// ErrLevelExceedsTable is returned when the accumulated statistics do not
	// fit any defined level.
	ErrLevelExceedsTable = errors.New("stream statistics exceed the highest defined level")

	// ErrPatchTargetMismatch is returned when the bits at the recorded patch
	// offsets no longer match the parsed level or tier.
	ErrPatchTargetMismatch = errors.New("patch target does not match the parsed value")
)
