// Package history records every mission run in a SQLite database next to the mission logs.
package history

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	// registers the "sqlite" driver
	_ "modernc.org/sqlite"

	"robobot.dev/raubase/logging"
	"robobot.dev/raubase/mission"
)

// FileName is the database file inside the log directory.
const FileName = "history.db"

const schema = `
CREATE TABLE IF NOT EXISTS sequences (
	id         TEXT PRIMARY KEY,
	started_at INTEGER NOT NULL,
	source     TEXT NOT NULL,
	outcome    TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	sequence_id TEXT NOT NULL REFERENCES sequences(id),
	mission     TEXT NOT NULL,
	profile     TEXT NOT NULL,
	started_at  INTEGER NOT NULL,
	elapsed_ms  INTEGER NOT NULL,
	outcome     TEXT NOT NULL,
	final_state TEXT NOT NULL,
	reason      TEXT NOT NULL,
	cycles      INTEGER NOT NULL,
	transitions INTEGER NOT NULL,
	stopped     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_started ON runs(started_at);
`

// Run is one recorded mission run.
type Run struct {
	ID         string
	SequenceID string
	Mission    string
	Profile    string
	StartedAt  time.Time
	Result     mission.Result
}

// Store is the run history database.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

// Open opens or creates the database at path with WAL journaling and a busy timeout.
func Open(ctx context.Context, path string, logger logging.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open history %s", path)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, multierr.Combine(errors.Wrapf(err, "failed to ping history %s", path), db.Close())
	}
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return nil, multierr.Combine(errors.Wrapf(err, "failed to apply %q", pragma), db.Close())
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, multierr.Combine(errors.Wrap(err, "failed to apply history schema"), db.Close())
	}
	return &Store{db: db, logger: logger}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginSequence records the start of a dispatcher sequence and returns its id.
func (s *Store) BeginSequence(ctx context.Context, at time.Time, source string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sequences (id, started_at, source) VALUES (?, ?, ?)`,
		id, at.UnixNano(), source)
	if err != nil {
		return "", errors.Wrap(err, "failed to record sequence")
	}
	return id, nil
}

// EndSequence records the overall outcome of a sequence.
func (s *Store) EndSequence(ctx context.Context, id string, outcome mission.Outcome) error {
	res, err := s.db.ExecContext(ctx, `UPDATE sequences SET outcome = ? WHERE id = ?`, outcome.String(), id)
	if err != nil {
		return errors.Wrap(err, "failed to finish sequence")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.Errorf("no sequence %s", id)
	}
	return nil
}

// Record stores a mission run and returns its id.
func (s *Store) Record(ctx context.Context, run Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	r := run.Result
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, sequence_id, mission, profile, started_at, elapsed_ms, outcome,
			final_state, reason, cycles, transitions, stopped)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.SequenceID, run.Mission, run.Profile, run.StartedAt.UnixNano(), r.Elapsed.Milliseconds(),
		r.Outcome.String(), r.FinalState, r.Reason, r.Cycles, r.Transitions, r.Stopped)
	if err != nil {
		return "", errors.Wrapf(err, "failed to record run of %s", run.Mission)
	}
	s.logger.Debugw("recorded mission run", "id", run.ID, "mission", run.Mission, "outcome", r.Outcome.String())
	return run.ID, nil
}

// Query filters the runs returned by Runs.
type Query struct {
	// Mission restricts to one mission when set.
	Mission string
	// Limit caps the number of runs, newest first. Zero means 20.
	Limit int
}

// Runs returns recorded runs, newest first.
func (s *Store) Runs(ctx context.Context, q Query) ([]Run, error) {
	if q.Limit <= 0 {
		q.Limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, sequence_id, mission, profile, started_at, elapsed_ms, outcome, final_state, reason,
			cycles, transitions, stopped
		FROM runs WHERE (? = '' OR mission = ?) ORDER BY started_at DESC, rowid DESC LIMIT ?`,
		q.Mission, q.Mission, q.Limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query runs")
	}
	//nolint:errcheck
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run       Run
			startedAt int64
			elapsedMS int64
			outcome   string
		)
		if err := rows.Scan(&run.ID, &run.SequenceID, &run.Mission, &run.Profile, &startedAt, &elapsedMS,
			&outcome, &run.Result.FinalState, &run.Result.Reason, &run.Result.Cycles,
			&run.Result.Transitions, &run.Result.Stopped); err != nil {
			return nil, errors.Wrap(err, "failed to read run")
		}
		run.StartedAt = time.Unix(0, startedAt)
		run.Result.Mission = run.Mission
		run.Result.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		run.Result.Outcome = parseOutcome(outcome)
		runs = append(runs, run)
	}
	return runs, errors.Wrap(rows.Err(), "failed to read runs")
}

func parseOutcome(s string) mission.Outcome {
	for _, o := range []mission.Outcome{mission.Running, mission.Finished, mission.Lost} {
		if o.String() == s {
			return o
		}
	}
	return mission.Lost
}
