package radio

import (
	"encoding/binary"
	"fmt"

	"github.com/roman-kulish/radio-channelizer/internal/iq"
)

const (
	// FormatCS8 is signed 8-bit interleaved I/Q (hackrf_transfer, rx_sdr -F CS8)
	FormatCS8 Format = "CS8"

	// FormatCU8 is unsigned 8-bit interleaved I/Q centred on 127.5 (rtl_sdr)
	FormatCU8 Format = "CU8"

	// FormatCS16 is signed little-endian 16-bit interleaved I/Q (rx_sdr -F CS16)
	FormatCS16 Format = "CS16"
)

// Format is a raw interleaved sample encoding produced by a streaming tool
type Format string

func (f Format) String() string {
	return string(f)
}

// Size returns the number of bytes one complex sample occupies
func (f Format) Size() int {
	switch f {
	case FormatCS8, FormatCU8:
		return 2
	case FormatCS16:
		return 4
	default:
		return 0
	}
}

// Decode converts raw bytes into full-scale normalised samples and returns
// the number of complete samples written to dst
func (f Format) Decode(dst []iq.Sample, src []byte) (int, error) {
	size := f.Size()
	if size == 0 {
		return 0, fmt.Errorf("radio: unknown sample format %q", string(f))
	}

	n := min(len(dst), len(src)/size)
	switch f {
	case FormatCS8:
		for i := 0; i < n; i++ {
			re := float32(int8(src[2*i])) / 128
			im := float32(int8(src[2*i+1])) / 128
			dst[i] = complex(re, im)
		}

	case FormatCU8:
		for i := 0; i < n; i++ {
			re := (float32(src[2*i]) - 127.5) / 127.5
			im := (float32(src[2*i+1]) - 127.5) / 127.5
			dst[i] = complex(re, im)
		}

	case FormatCS16:
		for i := 0; i < n; i++ {
			re := float32(int16(binary.LittleEndian.Uint16(src[4*i:]))) / 32768
			im := float32(int16(binary.LittleEndian.Uint16(src[4*i+2:]))) / 32768
			dst[i] = complex(re, im)
		}
	}

	return n, nil
}
