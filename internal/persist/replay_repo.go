package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mageling/arena/internal/replay"
)

// ReplayRepo stores the confirmed input log of a match, one row per frame.
type ReplayRepo struct {
	db *DB
}

func NewReplayRepo(db *DB) *ReplayRepo {
	return &ReplayRepo{db: db}
}

// SaveInputs bulk-loads the log with COPY.
func (r *ReplayRepo) SaveInputs(ctx context.Context, matchID int64, log *replay.Log) error {
	n, err := r.db.Pool.CopyFrom(ctx,
		pgx.Identifier{"match_inputs"},
		[]string{"match_id", "frame", "packets"},
		pgx.CopyFromSlice(len(log.Frames), func(i int) ([]any, error) {
			return []any{matchID, int32(i), replay.EncodeFrame(log.Frames[i])}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy inputs: %w", err)
	}
	if int(n) != len(log.Frames) {
		return fmt.Errorf("copy inputs: wrote %d of %d frames", n, len(log.Frames))
	}
	return nil
}

// LoadInputs reads a match's log back. Frames must be contiguous from 0.
func (r *ReplayRepo) LoadInputs(ctx context.Context, matchID int64) (*replay.Log, error) {
	var players int16
	err := r.db.Pool.QueryRow(ctx,
		`SELECT players FROM matches WHERE id = $1`, matchID,
	).Scan(&players)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("match %d not found", matchID)
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Pool.Query(ctx,
		`SELECT frame, packets FROM match_inputs WHERE match_id = $1 ORDER BY frame`, matchID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	log := replay.NewLog(int(players))
	for rows.Next() {
		var (
			frame int32
			raw   []byte
		)
		if err := rows.Scan(&frame, &raw); err != nil {
			return nil, err
		}
		if int(frame) != log.Len() {
			return nil, fmt.Errorf("match %d: frame %d missing", matchID, log.Len())
		}
		inputs, err := replay.DecodeFrame(raw, int(players))
		if err != nil {
			return nil, fmt.Errorf("match %d frame %d: %w", matchID, frame, err)
		}
		if err := log.Append(inputs); err != nil {
			return nil, err
		}
	}
	return log, rows.Err()
}
