// Package sink writes processed bursts out of the pipeline: archived bursts
// behind a fixed header record, and the latest output of every selected
// channel in a memory-mapped file per channel.
package sink

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/roman-kulish/radio-channelizer/internal/fault"
	"github.com/roman-kulish/radio-channelizer/internal/iq"
)

// Magic tags every archived burst
const Magic uint32 = 0x0000C0DE

const (
	UnitNanoseconds  TimeUnit = "ns"
	UnitMicroseconds TimeUnit = "us"

	ReferenceElapsed  TimeReference = "elapsed"
	ReferenceAbsolute TimeReference = "absolute"
)

// ErrBadMagic is returned when a header does not start with Magic
var ErrBadMagic = errors.New("sink: bad header magic")

// TimeUnit is the resolution of the header timestamp
type TimeUnit string

// TimeReference is what the header timestamp counts from: the previous
// successful read, or the Unix epoch
type TimeReference string

// Header is one decoded header record
type Header struct {
	Count     uint32
	Timestamp uint64 // In HeaderFormat.Unit
}

// HeaderFormat is the layout of the header record: a big-endian magic, a
// big-endian sample count and a big-endian timestamp of Width bytes. A
// 16-byte timestamp carries the value in its low 8 bytes.
type HeaderFormat struct {
	Unit      TimeUnit
	Width     int
	Reference TimeReference
}

// DefaultHeaderFormat is a 16-byte nanosecond count of the time elapsed since
// the previous read
var DefaultHeaderFormat = HeaderFormat{
	Unit:      UnitNanoseconds,
	Width:     16,
	Reference: ReferenceElapsed,
}

// Validate checks the layout options
func (f HeaderFormat) Validate() error {
	if f.Unit != UnitNanoseconds && f.Unit != UnitMicroseconds {
		return fault.NewConfigError("sink: unknown timestamp unit %q", string(f.Unit))
	}
	if f.Width != 8 && f.Width != 16 {
		return fault.NewConfigError("sink: timestamp width must be 8 or 16 bytes: %d given", f.Width)
	}
	if f.Reference != ReferenceElapsed && f.Reference != ReferenceAbsolute {
		return fault.NewConfigError("sink: unknown timestamp reference %q", string(f.Reference))
	}
	return nil
}

// Size returns the encoded header length in bytes
func (f HeaderFormat) Size() int {
	return 8 + f.Width
}

// Stamp returns the header timestamp of the burst
func (f HeaderFormat) Stamp(b *iq.Burst) uint64 {
	var ns int64
	switch f.Reference {
	case ReferenceAbsolute:
		ns = b.Timestamp.UnixNano()
	default:
		ns = b.Elapsed.Nanoseconds()
	}

	if ns < 0 {
		ns = 0
	}
	if f.Unit == UnitMicroseconds {
		return uint64(ns / 1_000)
	}
	return uint64(ns)
}

// Append encodes the header onto dst
func (f HeaderFormat) Append(dst []byte, h Header) []byte {
	dst = binary.BigEndian.AppendUint32(dst, Magic)
	dst = binary.BigEndian.AppendUint32(dst, h.Count)
	if f.Width == 16 {
		dst = binary.BigEndian.AppendUint64(dst, 0)
	}
	return binary.BigEndian.AppendUint64(dst, h.Timestamp)
}

// Parse decodes a header from the start of src
func (f HeaderFormat) Parse(src []byte) (Header, error) {
	if len(src) < f.Size() {
		return Header{}, fmt.Errorf("sink: header needs %d bytes, got %d", f.Size(), len(src))
	}
	if binary.BigEndian.Uint32(src) != Magic {
		return Header{}, ErrBadMagic
	}

	ts := src[8:f.Size()]
	if f.Width == 16 {
		if binary.BigEndian.Uint64(ts) != 0 {
			return Header{}, errors.New("sink: timestamp does not fit in 64 bits")
		}
		ts = ts[8:]
	}

	return Header{
		Count:     binary.BigEndian.Uint32(src[4:]),
		Timestamp: binary.BigEndian.Uint64(ts),
	}, nil
}
