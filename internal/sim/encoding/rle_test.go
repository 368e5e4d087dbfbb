package encoding

import (
	"testing"

	"voxelmotion.ai/internal/sim/blocks"
)

func TestStatesRoundTrip(t *testing.T) {
	in := []blocks.State{{Kind: 1}, {Kind: 1}, {Kind: 1}, {Kind: 2, Meta: 1}, {Kind: 2}}
	for i := 0; i < 50; i++ {
		in = append(in, blocks.State{Kind: 700})
	}
	in = append(in, blocks.State{Kind: 9, Meta: 2}, blocks.State{Kind: 9, Meta: 2})

	col := EncodeStates(in)
	out, err := DecodeStates(col, len(in))
	if err != nil {
		t.Fatalf("DecodeStates: %v", err)
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("mismatch at %d: got %+v want %+v", i, out[i], in[i])
		}
	}
	if len(col.Metas) != 8 {
		t.Fatalf("metas should collapse to 4 runs, got %d bytes", len(col.Metas))
	}
}

func TestDecodeRejectsShortColumn(t *testing.T) {
	col := EncodeStates([]blocks.State{{Kind: 3}, {Kind: 3}})
	if _, err := DecodeStates(col, 3); err == nil {
		t.Fatalf("expected error for a column shorter than the chunk")
	}
	if _, err := DecodeStates(col, 1); err == nil {
		t.Fatalf("expected error for a column longer than the chunk")
	}
}
