package sink

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/golang/snappy"

	"github.com/roman-kulish/radio-channelizer/internal/fault"
	"github.com/roman-kulish/radio-channelizer/internal/iq"
)

const (
	// FormatRaw is the header followed by big-endian float32 I/Q pairs
	FormatRaw ArchiveFormat = "raw"

	// FormatSnappy is the header followed by a snappy framed stream of the
	// same pairs
	FormatSnappy ArchiveFormat = "snappy"
)

// ArchiveFormat selects how burst samples are stored
type ArchiveFormat string

// Ext returns the file extension of the format
func (f ArchiveFormat) Ext() string {
	if f == FormatSnappy {
		return ".iqz"
	}
	return ".iq"
}

// Archive writes one file per burst named after its capture time
type Archive struct {
	dir    string
	prefix string
	format ArchiveFormat
	header HeaderFormat
	buf    []byte
}

// NewArchive creates the output directory and returns an archive writer
func NewArchive(dir, prefix string, format ArchiveFormat, header HeaderFormat) (*Archive, error) {
	if format != FormatRaw && format != FormatSnappy {
		return nil, fault.NewConfigError("sink: unknown archive format %q", string(format))
	}
	if err := header.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fault.Fatal(fmt.Errorf("error creating archive directory: %w", err))
	}

	return &Archive{
		dir:    dir,
		prefix: prefix,
		format: format,
		header: header,
	}, nil
}

// Path returns the file the burst is archived to
func (a *Archive) Path(b *iq.Burst) string {
	name := a.prefix + "_" + strconv.FormatInt(b.Timestamp.UnixNano(), 10) + a.format.Ext()
	return filepath.Join(a.dir, name)
}

// Write archives the burst. Any failure is fatal.
func (a *Archive) Write(b *iq.Burst) (string, error) {
	path := a.Path(b)

	a.buf = a.header.Append(a.buf[:0], Header{
		Count:     uint32(b.Len()),
		Timestamp: a.header.Stamp(b),
	})
	headerSize := len(a.buf)
	a.buf = appendSamples(a.buf, b.Samples)

	f, err := os.Create(path)
	if err != nil {
		return "", fault.Fatal(fmt.Errorf("error creating archive: %w", err))
	}

	if err = a.write(f, headerSize); err != nil {
		_ = f.Close()
		return "", fault.Fatal(fmt.Errorf("error writing archive %s: %w", path, err))
	}

	if err = f.Close(); err != nil {
		return "", fault.Fatal(fmt.Errorf("error closing archive %s: %w", path, err))
	}

	return path, nil
}

func (a *Archive) write(w io.Writer, headerSize int) error {
	if a.format == FormatRaw {
		_, err := w.Write(a.buf)
		return err
	}

	if _, err := w.Write(a.buf[:headerSize]); err != nil {
		return err
	}

	sw := snappy.NewBufferedWriter(w)
	if _, err := sw.Write(a.buf[headerSize:]); err != nil {
		_ = sw.Close()
		return err
	}
	return sw.Close()
}

func appendSamples(dst []byte, samples []iq.Sample) []byte {
	for _, s := range samples {
		dst = binary.BigEndian.AppendUint32(dst, math.Float32bits(real(s)))
		dst = binary.BigEndian.AppendUint32(dst, math.Float32bits(imag(s)))
	}
	return dst
}

// ReadArchive decodes an archived burst. The format is taken from the file
// extension.
func ReadArchive(path string, header HeaderFormat) (Header, []iq.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, nil, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	raw := make([]byte, header.Size())
	if _, err = io.ReadFull(r, raw); err != nil {
		return Header{}, nil, fmt.Errorf("error reading header: %w", err)
	}

	h, err := header.Parse(raw)
	if err != nil {
		return Header{}, nil, err
	}

	var body io.Reader = r
	if filepath.Ext(path) == FormatSnappy.Ext() {
		body = snappy.NewReader(r)
	}

	raw = make([]byte, 8*int(h.Count))
	if _, err = io.ReadFull(body, raw); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return h, nil, fmt.Errorf("archive holds fewer than %d samples", h.Count)
		}
		return h, nil, fmt.Errorf("error reading samples: %w", err)
	}

	samples := make([]iq.Sample, h.Count)
	for i := range samples {
		re := math.Float32frombits(binary.BigEndian.Uint32(raw[8*i:]))
		im := math.Float32frombits(binary.BigEndian.Uint32(raw[8*i+4:]))
		samples[i] = complex(re, im)
	}

	return h, samples, nil
}
