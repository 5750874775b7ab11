// Package catalog records processed bursts and their per-channel power in a
// SQLite database, and reads them back as a power map.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store handles database operations. Writes and reads use separate lazily
// opened connections.
type Store struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// New creates a store backed by the database file at dbPath
func New(dbPath string) *Store {
	return &Store{dbPath: dbPath}
}

func runSQLCommand(db *sql.DB, sql string) error {
	_, err := db.Exec(sql)
	return err
}

func (s *Store) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}

		if err = runSQLCommand(db, initSchemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *Store) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

// CreateSession starts a new session. config may be a string, []byte or any
// JSON-serializable value.
func (s *Store) CreateSession(ctx context.Context, sess *Session, config any) (sessionID int64, err error) {
	var configData sql.NullString

	switch c := config.(type) {
	case nil:
	case string:
		configData = sql.NullString{String: c, Valid: true}
	case []byte:
		configData = sql.NullString{String: string(c), Valid: true}
	default:
		var p []byte
		if p, err = json.Marshal(c); err != nil {
			err = fmt.Errorf("marshaling config: %w", err)
			return
		}
		configData = sql.NullString{String: string(p), Valid: true}
	}

	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, insertSessionSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	startTime := sess.StartTime
	if startTime.IsZero() {
		startTime = time.Now()
	}

	result, err := stmt.ExecContext(ctx, startTime.UTC(), sess.DeviceType, sess.Channels, sess.SampleRate, sess.CenterFreq, configData)
	if err != nil {
		err = fmt.Errorf("inserting session: %w", err)
		return
	}

	sessionID, err = result.LastInsertId()
	if err != nil {
		err = fmt.Errorf("getting session ID: %w", err)
	}
	return
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var sess Session
	var config sql.NullString
	if err := row.Scan(&sess.ID, &sess.StartTime, &sess.DeviceType, &sess.Channels, &sess.SampleRate, &sess.CenterFreq, &config); err != nil {
		return nil, err
	}
	if config.Valid {
		sess.Config = &config.String
	}
	return &sess, nil
}

// Session returns the session with the given ID
func (s *Store) Session(ctx context.Context, id int64) (session *Session, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, selectSessionSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	if session, err = scanSession(stmt.QueryRowContext(ctx, id)); err != nil {
		err = fmt.Errorf("scanning session: %w", err)
	}
	return
}

// Sessions returns every session ordered by start time
func (s *Store) Sessions(ctx context.Context) (sessions []*Session, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectSessionsSQL)
	if err != nil {
		err = fmt.Errorf("querying sessions: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var sess *Session
		if sess, err = scanSession(rows); err != nil {
			err = fmt.Errorf("scanning session: %w", err)
			return
		}
		sessions = append(sessions, sess)
	}
	err = rows.Err()
	return
}

// StoreBurst saves a burst and its channel power in one transaction
func (s *Store) StoreBurst(ctx context.Context, sessionID int64, r *BurstRecord) (err error) {
	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	result, err := tx.ExecContext(ctx, insertBurstSQL,
		sessionID,
		int64(r.Seq),
		r.Timestamp.UTC(),
		r.Elapsed.Nanoseconds(),
		toNullPower(r.InputLevel),
		r.Strategy,
	)
	if err != nil {
		return fmt.Errorf("inserting burst: %w", err)
	}

	burstID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting burst ID: %w", err)
	}

	if len(r.Power) > 0 {
		values := make([]any, 0, len(r.Power)*3)

		var sb strings.Builder
		sb.WriteString(insertChannelPowerSQL)

		for i, p := range r.Power {
			values = append(values, burstID, p.Channel, toNullPower(p.Power))

			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("(?, ?, ?)")
		}

		if _, err = tx.ExecContext(ctx, sb.String(), values...); err != nil {
			return fmt.Errorf("batch inserting channel power: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// ReadPowerMap loads the channel power of a session
func (s *Store) ReadPowerMap(ctx context.Context, sessionID int64) (pm *PowerMap, err error) {
	session, err := s.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}

	rows, err := db.QueryContext(ctx, selectPowerSQL, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying channel power: %w", err)
	}
	defer closeWithError(rows, &err)

	type cell struct {
		burst   int
		channel int
		power   float64
	}

	var cells []cell
	channelSet := make(map[int]struct{})
	pm = &PowerMap{Session: session}

	for rows.Next() {
		var (
			seq       int64
			timestamp time.Time
			channel   int
			power     sql.NullFloat64
		)
		if err = rows.Scan(&seq, &timestamp, &channel, &power); err != nil {
			return nil, fmt.Errorf("scanning channel power: %w", err)
		}

		if n := len(pm.Seqs); n == 0 || pm.Seqs[n-1] != uint64(seq) {
			pm.Seqs = append(pm.Seqs, uint64(seq))
			pm.Times = append(pm.Times, timestamp)
		}

		v := math.NaN()
		if power.Valid {
			v = power.Float64
		}
		cells = append(cells, cell{burst: len(pm.Seqs) - 1, channel: channel, power: v})
		channelSet[channel] = struct{}{}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("reading channel power: %w", err)
	}

	if len(pm.Seqs) == 0 {
		return nil, ErrNoData
	}

	for c := range channelSet {
		pm.Channels = append(pm.Channels, c)
	}
	slices.Sort(pm.Channels)

	column := make(map[int]int, len(pm.Channels))
	for i, c := range pm.Channels {
		column[c] = i
	}

	pm.Power = make([][]float64, len(pm.Seqs))
	for i := range pm.Power {
		pm.Power[i] = make([]float64, len(pm.Channels))
		for j := range pm.Power[i] {
			pm.Power[i][j] = math.NaN()
		}
	}
	for _, c := range cells {
		pm.Power[c.burst][column[c.channel]] = c.power
	}

	return pm, nil
}

// ErrNoData indicates the session has no recorded bursts
var ErrNoData = errors.New("no data available")

// Close releases both connections. The indexes are built on close so that
// inserts during the run stay cheap.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		var writeErr, readErr error

		if s.writeDB != nil {
			_ = runSQLCommand(s.writeDB, initIndexesSQL)

			writeErr = s.writeDB.Close()
			s.writeDB = nil
		}

		if s.readDB != nil {
			readErr = s.readDB.Close()
			s.readDB = nil
		}

		s.closeErr = errors.Join(writeErr, readErr)
	})

	return s.closeErr
}
