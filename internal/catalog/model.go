package catalog

import (
	"time"
)

// Session is one run of the channelizer
type Session struct {
	ID         int64
	StartTime  time.Time
	DeviceType string
	Channels   int
	SampleRate float64
	CenterFreq float64
	Config     *string
}

// ChannelPower is the mean power of one channel's output in dB. Silent
// channels carry -Inf and are stored as NULL.
type ChannelPower struct {
	Channel int
	Power   float64
}

// BurstRecord describes one processed burst
type BurstRecord struct {
	Seq        uint64
	Timestamp  time.Time
	Elapsed    time.Duration
	InputLevel float64 // Mean magnitude before gain normalisation
	Strategy   string
	Power      []ChannelPower
}

// PowerMap is the channel power of a session laid out as bursts × channels.
// Missing values are NaN.
type PowerMap struct {
	Session  *Session
	Seqs     []uint64
	Times    []time.Time
	Channels []int
	Power    [][]float64 // [burst][channel index into Channels]
}
