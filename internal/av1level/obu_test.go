package av1level

import (
	"bytes"
	"errors"
	"testing"
)

func TestOBUParserSplitsRecord(t *testing.T) {
	seq := buildSequenceHeaderOBU(seqConfig{level: 8, width: 1920, height: 1080})
	frame := buildKeyFrameOBU(seqConfig{width: 1920, height: 1080}, 64)
	record := bytes.Join([][]byte{buildTemporalDelimiterOBU(), seq, frame}, nil)

	p := newOBUParser(rawFrame{Offset: 100, Data: record})

	o, ok, err := p.next()
	if err != nil || !ok {
		t.Fatalf("first next: ok=%v err=%v", ok, err)
	}
	if o.Type != obuTemporalDelimiter || len(o.Payload) != 0 {
		t.Fatalf("first OBU = %s with %d payload bytes, want temporal delimiter, 0", o.Type, len(o.Payload))
	}
	if o.Size() != 2 {
		t.Fatalf("temporal delimiter size = %d, want 2", o.Size())
	}

	o, ok, err = p.next()
	if err != nil || !ok {
		t.Fatalf("second next: ok=%v err=%v", ok, err)
	}
	if o.Type != obuSequenceHeader {
		t.Fatalf("second OBU = %s, want sequence header", o.Type)
	}
	if o.PayloadOffset != 100+2+2 {
		t.Fatalf("sequence header payload offset = %d, want 104", o.PayloadOffset)
	}

	o, ok, err = p.next()
	if err != nil || !ok {
		t.Fatalf("third next: ok=%v err=%v", ok, err)
	}
	if o.Type != obuFrame {
		t.Fatalf("third OBU = %s, want frame", o.Type)
	}

	if _, ok, err = p.next(); ok || err != nil {
		t.Fatalf("exhausted record: ok=%v err=%v", ok, err)
	}
}

func TestOBUParserExtensionHeader(t *testing.T) {
	// frame OBU with extension: temporal_id=3, spatial_id=1
	record := []byte{byte(obuFrame)<<3 | 0x04 | 0x02, 3<<5 | 1<<3, 0x01, 0xAB}
	p := newOBUParser(rawFrame{Data: record})
	o, ok, err := p.next()
	if err != nil || !ok {
		t.Fatalf("next: ok=%v err=%v", ok, err)
	}
	if o.TemporalID != 3 || o.SpatialID != 1 {
		t.Fatalf("ids = %d/%d, want 3/1", o.TemporalID, o.SpatialID)
	}
	if len(o.Payload) != 1 || o.Payload[0] != 0xAB {
		t.Fatalf("payload = %x, want ab", o.Payload)
	}
	if o.HeaderSize != 3 {
		t.Fatalf("header size = %d, want 3", o.HeaderSize)
	}
}

func TestOBUParserNoSizeField(t *testing.T) {
	record := []byte{byte(obuFrame) << 3, 0x11, 0x22, 0x33}
	p := newOBUParser(rawFrame{Data: record})
	o, ok, err := p.next()
	if err != nil || !ok {
		t.Fatalf("next: ok=%v err=%v", ok, err)
	}
	if o.HasSizeField {
		t.Fatal("HasSizeField = true, want false")
	}
	if len(o.Payload) != 3 {
		t.Fatalf("payload length = %d, want 3 (rest of record)", len(o.Payload))
	}
}

func TestOBUParserMalformed(t *testing.T) {
	cases := []struct {
		name string
		data []byte
	}{
		{"forbidden bit", []byte{0x80, 0x00}},
		{"size past end", []byte{byte(obuFrame)<<3 | 0x02, 0x10, 0x00}},
		{"truncated extension", []byte{byte(obuFrame)<<3 | 0x04 | 0x02}},
	}
	for _, tc := range cases {
		p := newOBUParser(rawFrame{Data: tc.data})
		if _, _, err := p.next(); !errors.Is(err, ErrMalformedOBU) {
			t.Fatalf("%s: err = %v, want ErrMalformedOBU", tc.name, err)
		}
	}
}
