// Package lz77 implements the sliding-window compression scheme announced by
// cabinets via the x-compress header.
//
// The stream is a sequence of groups: one flag byte followed by eight items.
// Flag bits are consumed LSB first; a set bit means the item is a literal
// byte, a clear bit means a two-byte back-reference. A reference encodes a
// 12-bit distance and a 4-bit length:
//
//	distance = b1<<4 | b2>>4   (1..4095)
//	length   = (b2 & 0x0f) + 3 (3..18)
//
// A reference with distance 0 terminates the stream.
package lz77

import "errors"

const (
	windowSize = 1 << 12
	minMatch   = 3
	maxMatch   = (1 << 4) - 1 + minMatch

	// maxChain bounds how many candidate positions the compressor probes
	// per byte. Longer chains trade speed for ratio.
	maxChain = 64
)

// ErrTruncated reports a compressed stream that ended before its terminator.
var ErrTruncated = errors.New("lz77: truncated stream")

// Decompress expands a compressed stream. The input must carry the
// zero-distance terminator; running off the end of data is an error.
func Decompress(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data)*2)
	pos := 0
	for {
		if pos >= len(data) {
			return nil, ErrTruncated
		}
		flags := data[pos]
		pos++
		for range 8 {
			if flags&1 == 1 {
				if pos >= len(data) {
					return nil, ErrTruncated
				}
				out = append(out, data[pos])
				pos++
			} else {
				if pos+1 >= len(data) {
					return nil, ErrTruncated
				}
				b1, b2 := data[pos], data[pos+1]
				pos += 2
				distance := int(b1)<<4 | int(b2)>>4
				if distance == 0 {
					return out, nil
				}
				length := int(b2&0x0f) + minMatch
				if distance > len(out) {
					return nil, errors.New("lz77: reference before start of output")
				}
				// Byte-by-byte so overlapping references repeat
				// the run they are still producing.
				for range length {
					out = append(out, out[len(out)-distance])
				}
			}
			flags >>= 1
		}
	}
}

// Compress produces a stream that Decompress inverts. Matching is greedy
// over the 4 KiB window with hash chains on 3-byte prefixes.
func Compress(data []byte) []byte {
	out := make([]byte, 0, len(data)+len(data)/8+4)
	heads := make(map[uint32][]int)

	var flags byte
	var flagBit uint
	var pending []byte

	// Group header byte, patched when the group closes.
	out = append(out, 0)
	flagPos := 0

	closeGroup := func() {
		out[flagPos] = flags
		out = append(out, pending...)
		pending = pending[:0]
		flags, flagBit = 0, 0
		out = append(out, 0)
		flagPos = len(out) - 1
	}

	key := func(i int) uint32 {
		return uint32(data[i])<<16 | uint32(data[i+1])<<8 | uint32(data[i+2])
	}

	record := func(i int) {
		if i+minMatch <= len(data) {
			heads[key(i)] = append(heads[key(i)], i)
		}
	}

	for position := 0; position < len(data); {
		bestLen, bestDist := 0, 0
		if position+minMatch <= len(data) {
			candidates := heads[key(position)]
			if len(candidates) > maxChain {
				candidates = candidates[len(candidates)-maxChain:]
			}
			for i := len(candidates) - 1; i >= 0; i-- {
				dist := position - candidates[i]
				if dist >= windowSize {
					break
				}
				l := matchLen(data, candidates[i], position)
				if l > bestLen {
					bestLen, bestDist = l, dist
					if l == maxMatch {
						break
					}
				}
			}
		}

		if bestLen >= minMatch {
			pending = append(pending,
				byte(bestDist>>4),
				byte(bestDist&0x0f)<<4|byte(bestLen-minMatch))
			for i := position; i < position+bestLen; i++ {
				record(i)
			}
			position += bestLen
		} else {
			flags |= 1 << flagBit
			pending = append(pending, data[position])
			record(position)
			position++
		}

		flagBit++
		if flagBit == 8 {
			closeGroup()
		}
	}

	// Terminator: zero-distance reference in the open group.
	pending = append(pending, 0, 0)
	out[flagPos] = flags
	out = append(out, pending...)
	return out
}

func matchLen(data []byte, from, at int) int {
	n := 0
	for at+n < len(data) && n < maxMatch && data[from+n] == data[at+n] {
		n++
	}
	return n
}
