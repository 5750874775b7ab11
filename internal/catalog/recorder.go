package catalog

import (
	"context"
	"time"
)

const recordTimeout = 5 * time.Second

// Recorder stores bursts into one session
type Recorder struct {
	store     *Store
	sessionID int64
}

// NewRecorder returns a recorder writing into the given session
func (s *Store) NewRecorder(sessionID int64) *Recorder {
	return &Recorder{store: s, sessionID: sessionID}
}

// RecordBurst stores the burst record with a bounded wait on the database
func (r *Recorder) RecordBurst(rec BurstRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	return r.store.StoreBurst(ctx, r.sessionID, &rec)
}

// SessionID returns the session the recorder writes into
func (r *Recorder) SessionID() int64 {
	return r.sessionID
}
