package sink

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/edsrzf/mmap-go"

	"github.com/roman-kulish/radio-channelizer/internal/fault"
)

// ChannelPath returns the file holding channel c
func ChannelPath(dir, prefix string, c int) string {
	return filepath.Join(dir, prefix+"_channel_"+strconv.Itoa(c)+".iq")
}

type channelFile struct {
	channel int
	file    *os.File
	mem     mmap.MMap
}

// Channels keeps the most recent output of each selected channel in a
// memory-mapped file of little-endian float32 values. The files are sized
// once and overwritten in place on every burst.
type Channels struct {
	length int
	files  []channelFile
}

// NewChannels creates and maps one file per channel index. Files already
// mapped are released if a later one fails.
func NewChannels(dir, prefix string, channels []int, length int) (*Channels, error) {
	if length < 1 {
		return nil, fault.NewConfigError("sink: channel length must be positive: %d given", length)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fault.Fatal(fmt.Errorf("error creating channel directory: %w", err))
	}

	s := Channels{length: length}
	for _, c := range channels {
		cf, err := mapChannel(ChannelPath(dir, prefix, c), c, length)
		if err != nil {
			_ = s.Close()
			return nil, fault.Fatal(err)
		}
		s.files = append(s.files, cf)
	}

	return &s, nil
}

func mapChannel(path string, c, length int) (channelFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return channelFile{}, fmt.Errorf("error opening channel file: %w", err)
	}

	if err = f.Truncate(int64(4 * length)); err != nil {
		_ = f.Close()
		return channelFile{}, fmt.Errorf("error sizing %s: %w", path, err)
	}

	mem, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		_ = f.Close()
		return channelFile{}, fmt.Errorf("error mapping %s: %w", path, err)
	}

	return channelFile{channel: c, file: f, mem: mem}, nil
}

// Write copies every mapped channel of out into its file and flushes it.
// out is indexed by channel.
func (s *Channels) Write(out [][]float32) error {
	for _, cf := range s.files {
		if cf.channel >= len(out) {
			return fault.Fatal(fmt.Errorf("channel %d missing from output of %d channels", cf.channel, len(out)))
		}

		values := out[cf.channel]
		if len(values) != s.length {
			return fault.Fatal(fmt.Errorf("channel %d: expected %d values, got %d", cf.channel, s.length, len(values)))
		}

		for i, v := range values {
			binary.LittleEndian.PutUint32(cf.mem[4*i:], math.Float32bits(v))
		}

		if err := cf.mem.Flush(); err != nil {
			return fault.Fatal(fmt.Errorf("error flushing channel %d: %w", cf.channel, err))
		}
	}

	return nil
}

// Close unmaps and closes every file
func (s *Channels) Close() error {
	var errs []error
	for _, cf := range s.files {
		if err := cf.mem.Unmap(); err != nil {
			errs = append(errs, fmt.Errorf("error unmapping channel %d: %w", cf.channel, err))
		}
		if err := cf.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing channel %d: %w", cf.channel, err))
		}
	}
	s.files = nil

	return errors.Join(errs...)
}
