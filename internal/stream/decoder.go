// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// decodeBufSize is the scratch buffer handed to the transformer.
const decodeBufSize = 4096

// =============================================================================
// DECODER
// =============================================================================

// Decoder is a stateful incremental UTF-8 decoder. Bytes that end in the
// middle of a multi-byte sequence are held until the next Decode call.
// Invalid sequences decode to U+FFFD.
//
// A Decoder is not safe for concurrent use.
type Decoder struct {
	t       transform.Transformer
	pending []byte
	dst     []byte
}

// NewDecoder creates a decoder with no pending bytes.
func NewDecoder() *Decoder {
	return &Decoder{
		t:   unicode.UTF8.NewDecoder(),
		dst: make([]byte, decodeBufSize),
	}
}

// Decode returns the complete characters available after appending p.
// It may return an empty string when p only extends a pending sequence.
func (d *Decoder) Decode(p []byte) string {
	return d.run(p, false)
}

// Flush returns whatever is still pending, with an incomplete trailing
// sequence replaced by U+FFFD, and resets the decoder.
func (d *Decoder) Flush() string {
	out := d.run(nil, true)
	d.Reset()
	return out
}

// Pending returns the number of bytes held for the next call.
func (d *Decoder) Pending() int {
	return len(d.pending)
}

// Reset drops pending bytes.
func (d *Decoder) Reset() {
	d.pending = nil
	d.t.Reset()
}

func (d *Decoder) run(p []byte, atEOF bool) string {
	src := p
	if len(d.pending) > 0 {
		src = append(d.pending, p...)
		d.pending = nil
	}
	if len(src) == 0 {
		return ""
	}

	var out strings.Builder
	for {
		nDst, nSrc, err := d.t.Transform(d.dst, src, atEOF)
		out.Write(d.dst[:nDst])
		src = src[nSrc:]

		switch err {
		case nil:
			return out.String()
		case transform.ErrShortDst:
			if nDst == 0 && nSrc == 0 {
				d.dst = make([]byte, 2*len(d.dst))
			}
		case transform.ErrShortSrc:
			// Incomplete sequence at the end of src; keep it for next time
			d.pending = append([]byte(nil), src...)
			return out.String()
		default:
			// The UTF-8 decoder replaces bad input rather than failing.
			// Anything else is dropped so the caller keeps making progress.
			d.pending = nil
			return out.String()
		}
	}
}
