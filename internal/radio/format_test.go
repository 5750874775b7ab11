package radio

import (
	"testing"

	"github.com/roman-kulish/radio-channelizer/internal/iq"
)

func TestFormat_Decode(t *testing.T) {
	testCases := []struct {
		name   string
		format Format
		src    []byte
		want   []iq.Sample
	}{
		{
			name:   "cs8",
			format: FormatCS8,
			src:    []byte{0x40, 0xc0, 0x00, 0x80},
			want:   []iq.Sample{complex(0.5, -0.5), complex(0, -1)},
		},
		{
			name:   "cu8",
			format: FormatCU8,
			src:    []byte{255, 0},
			want:   []iq.Sample{complex(1, -1)},
		},
		{
			name:   "cs16",
			format: FormatCS16,
			src:    []byte{0x00, 0x40, 0x00, 0xc0},
			want:   []iq.Sample{complex(0.5, -0.5)},
		},
		{
			name:   "trailing partial sample",
			format: FormatCS8,
			src:    []byte{0x40, 0x40, 0x40},
			want:   []iq.Sample{complex(0.5, 0.5)},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dst := make([]iq.Sample, 4)
			n, err := tc.format.Decode(dst, tc.src)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if n != len(tc.want) {
				t.Fatalf("expected %d samples, got %d", len(tc.want), n)
			}
			for i, want := range tc.want {
				if dst[i] != want {
					t.Errorf("sample %d: expected %v, got %v", i, want, dst[i])
				}
			}
		})
	}
}

func TestFormat_Unknown(t *testing.T) {
	if _, err := Format("CF64").Decode(make([]iq.Sample, 1), make([]byte, 16)); err == nil {
		t.Error("expected error for unknown format")
	}
}
