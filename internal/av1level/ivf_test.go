package av1level

import (
	"errors"
	"testing"
)

func TestIVFReaderHeader(t *testing.T) {
	data := buildIVF(1920, 1080, 30000, 1001, []ivfFrame{
		{pts: 0, obus: [][]byte{buildTemporalDelimiterOBU()}},
	})
	r, err := newIVFReader(data)
	if err != nil {
		t.Fatalf("newIVFReader: %v", err)
	}
	if r.info.Width != 1920 || r.info.Height != 1080 {
		t.Fatalf("dimensions = %dx%d, want 1920x1080", r.info.Width, r.info.Height)
	}
	if r.info.TimebaseDen != 30000 || r.info.TimebaseNum != 1001 {
		t.Fatalf("timebase = %d/%d, want 30000/1001", r.info.TimebaseDen, r.info.TimebaseNum)
	}
	if r.info.FrameCount != 1 {
		t.Fatalf("frame count = %d, want 1", r.info.FrameCount)
	}
	if got := r.info.TicksPerSecond(); got < 29.96 || got > 29.98 {
		t.Fatalf("TicksPerSecond = %f, want ~29.97", got)
	}
}

func TestIVFReaderTicksPerSecondZeroNumerator(t *testing.T) {
	info := ContainerInfo{TimebaseDen: 25, TimebaseNum: 0}
	if got := info.TicksPerSecond(); got != 25 {
		t.Fatalf("TicksPerSecond = %f, want 25", got)
	}
}

func TestIVFReaderRejectsForeignData(t *testing.T) {
	cases := []struct {
		name string
		data []byte
	}{
		{"too short", []byte("DKIF")},
		{"bad signature", append([]byte("RIFF"), make([]byte, 28)...)},
		{"bad codec", func() []byte {
			data := buildIVF(640, 360, 30, 1, nil)
			copy(data[8:12], "VP90")
			return data
		}()},
		{"bad version", func() []byte {
			data := buildIVF(640, 360, 30, 1, nil)
			data[4] = 1
			return data
		}()},
		{"bad header size", func() []byte {
			data := buildIVF(640, 360, 30, 1, nil)
			data[6] = 44
			return data
		}()},
	}
	for _, tc := range cases {
		if _, err := newIVFReader(tc.data); !errors.Is(err, ErrUnsupportedContainer) {
			t.Fatalf("%s: err = %v, want ErrUnsupportedContainer", tc.name, err)
		}
	}
}

func TestIVFReaderFrameIteration(t *testing.T) {
	td := buildTemporalDelimiterOBU()
	data := buildIVF(640, 360, 30, 1, []ivfFrame{
		{pts: 0, obus: [][]byte{td}},
		{pts: 33, obus: [][]byte{td, td}},
	})
	r, err := newIVFReader(data)
	if err != nil {
		t.Fatalf("newIVFReader: %v", err)
	}

	f, ok, err := r.nextFrame()
	if err != nil || !ok {
		t.Fatalf("first nextFrame: ok=%v err=%v", ok, err)
	}
	if f.PTS != 0 || int(f.Size) != len(td) {
		t.Fatalf("first frame pts=%d size=%d, want 0, %d", f.PTS, f.Size, len(td))
	}
	if f.Offset != ivfHeaderSize+ivfFrameHeaderSize {
		t.Fatalf("first frame offset = %d, want %d", f.Offset, ivfHeaderSize+ivfFrameHeaderSize)
	}

	f, ok, err = r.nextFrame()
	if err != nil || !ok {
		t.Fatalf("second nextFrame: ok=%v err=%v", ok, err)
	}
	if f.PTS != 33 || int(f.Size) != 2*len(td) {
		t.Fatalf("second frame pts=%d size=%d, want 33, %d", f.PTS, f.Size, 2*len(td))
	}

	if _, ok, err = r.nextFrame(); ok || err != nil {
		t.Fatalf("end of file: ok=%v err=%v, want false, nil", ok, err)
	}
}

func TestIVFReaderTruncation(t *testing.T) {
	data := buildIVF(640, 360, 30, 1, []ivfFrame{
		{pts: 0, obus: [][]byte{buildTemporalDelimiterOBU()}},
	})

	r, err := newIVFReader(data[:len(data)-1])
	if err != nil {
		t.Fatalf("newIVFReader: %v", err)
	}
	if _, _, err = r.nextFrame(); !errors.Is(err, ErrUnexpectedEndOfStream) {
		t.Fatalf("truncated payload: err = %v, want ErrUnexpectedEndOfStream", err)
	}

	r, err = newIVFReader(data[:ivfHeaderSize+4])
	if err != nil {
		t.Fatalf("newIVFReader: %v", err)
	}
	if _, _, err = r.nextFrame(); !errors.Is(err, ErrUnexpectedEndOfStream) {
		t.Fatalf("truncated frame header: err = %v, want ErrUnexpectedEndOfStream", err)
	}
}
