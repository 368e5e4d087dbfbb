// Package encoding packs voxel columns for persistence.
package encoding

import (
	"encoding/binary"
	"fmt"

	"voxelmotion.ai/internal/sim/blocks"
)

// Column is a run-length encoded slice of block states. Kinds and metas are encoded
// separately because metas are almost always zero.
type Column struct {
	Kinds []byte
	Metas []byte
}

// appendRuns writes (value, run_len) uvarint pairs.
func appendRuns(dst []byte, n int, at func(i int) uint64) []byte {
	for i := 0; i < n; {
		v := at(i)
		run := 1
		for i+run < n && at(i+run) == v {
			run++
		}
		dst = binary.AppendUvarint(dst, v)
		dst = binary.AppendUvarint(dst, uint64(run))
		i += run
	}
	return dst
}

func readRuns(raw []byte, max uint64, emit func(v uint64, run int) error) error {
	for i := 0; i < len(raw); {
		v, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 || run == 0 {
			return fmt.Errorf("bad run at %d", i)
		}
		i += n
		if v > max {
			return fmt.Errorf("value too large: %d", v)
		}
		if err := emit(v, int(run)); err != nil {
			return err
		}
	}
	return nil
}

func EncodeStates(states []blocks.State) Column {
	return Column{
		Kinds: appendRuns(nil, len(states), func(i int) uint64 { return uint64(states[i].Kind) }),
		Metas: appendRuns(nil, len(states), func(i int) uint64 { return uint64(states[i].Meta) }),
	}
}

// DecodeStates expands a column into exactly n states.
func DecodeStates(c Column, n int) ([]blocks.State, error) {
	out := make([]blocks.State, n)
	at := 0
	err := readRuns(c.Kinds, 0xFFFF, func(v uint64, run int) error {
		if at+run > n {
			return fmt.Errorf("kinds overflow %d cells", n)
		}
		for k := 0; k < run; k++ {
			out[at+k].Kind = blocks.Kind(v)
		}
		at += run
		return nil
	})
	if err != nil {
		return nil, err
	}
	if at != n {
		return nil, fmt.Errorf("kinds cover %d of %d cells", at, n)
	}
	at = 0
	err = readRuns(c.Metas, 0xFF, func(v uint64, run int) error {
		if at+run > n {
			return fmt.Errorf("metas overflow %d cells", n)
		}
		for k := 0; k < run; k++ {
			out[at+k].Meta = uint8(v)
		}
		at += run
		return nil
	})
	if err != nil {
		return nil, err
	}
	if at != n {
		return nil, fmt.Errorf("metas cover %d of %d cells", at, n)
	}
	return out, nil
}
