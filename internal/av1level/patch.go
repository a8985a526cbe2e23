package av1level

import "fmt"

const levelFieldBits = 5

// PatchPlan pins down exactly which bits to overwrite. Offsets are
// file-relative bit positions; TierBitOffset is -1 when the sequence header
// carries no tier bit.
type PatchPlan struct {
	LevelBitOffset int
	TierBitOffset  int
	OldLevel       Level
	OldTier        Tier
	NewLevel       Level
	NewTier        Tier
}

// PatchPlan builds the patch for the level and tier this analysis selected.
// A level change that would add or remove the seq_tier bit cannot be
// expressed as a fixed-width overwrite and is refused.
func (r *Result) PatchPlan() (PatchPlan, error) {
	if r.Level.tierBitPresent() != r.Sequence.Level.tierBitPresent() {
		return PatchPlan{}, fmt.Errorf("%w: changing level %s to %s would alter the seq_tier bit layout of the sequence header",
			ErrUnsupportedStream, r.Sequence.Level, r.Level)
	}
	return PatchPlan{
		LevelBitOffset: r.levelBitOffset,
		TierBitOffset:  r.tierBitOffset,
		OldLevel:       r.Sequence.Level,
		OldTier:        r.Sequence.Tier,
		NewLevel:       r.Level,
		NewTier:        r.Tier,
	}, nil
}

// ApplyPatch returns a copy of data with the level (and tier, when present)
// bits overwritten. Every other bit and the total length are untouched. The
// recorded offsets are re-validated against the buffer first so a stale or
// wrong plan can never corrupt a stream.
func ApplyPatch(data []byte, plan PatchPlan) ([]byte, error) {
	current, err := readBitsAt(data, plan.LevelBitOffset, levelFieldBits)
	if err != nil {
		return nil, err
	}
	if Level(current) != plan.OldLevel {
		return nil, fmt.Errorf("%w: seq_level_idx at bit %d is %d, expected %d",
			ErrPatchTargetMismatch, plan.LevelBitOffset, current, uint8(plan.OldLevel))
	}
	if plan.TierBitOffset >= 0 {
		tier, err := readBitsAt(data, plan.TierBitOffset, 1)
		if err != nil {
			return nil, err
		}
		if Tier(tier) != plan.OldTier {
			return nil, fmt.Errorf("%w: seq_tier at bit %d is %d, expected %d",
				ErrPatchTargetMismatch, plan.TierBitOffset, tier, uint8(plan.OldTier))
		}
	}

	out := append([]byte(nil), data...)
	setBitsAt(out, plan.LevelBitOffset, levelFieldBits, uint64(plan.NewLevel))
	if plan.TierBitOffset >= 0 {
		setBitsAt(out, plan.TierBitOffset, 1, uint64(plan.NewTier))
	}
	return out, nil
}

func readBitsAt(data []byte, bitPos, n int) (uint64, error) {
	if bitPos < 0 {
		return 0, fmt.Errorf("%w: negative bit offset %d", ErrPatchTargetMismatch, bitPos)
	}
	br := &bitReader{data: data, bitPos: bitPos}
	return br.readBits(n)
}

// setBitsAt overwrites n bits at bitPos, most significant first, leaving the
// surrounding bits of the shared bytes intact.
func setBitsAt(buf []byte, bitPos, n int, value uint64) {
	for i := 0; i < n; i++ {
		pos := bitPos + i
		mask := byte(1) << (7 - (pos & 7))
		if value>>(n-1-i)&1 == 1 {
			buf[pos>>3] |= mask
		} else {
			buf[pos>>3] &^= mask
		}
	}
}
