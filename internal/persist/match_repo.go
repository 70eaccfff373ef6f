package persist

import (
	"context"
	"fmt"
	"time"
)

// RoundRecord is the outcome of one round.
type RoundRecord struct {
	Number   int
	Winner   int
	Draw     bool
	Scores   []int // indexed by team
	EndFrame int
}

// MatchRecord is the summary row of a finished match.
type MatchRecord struct {
	ID            int64
	Room          string
	Level         string
	Players       int
	FPS           int
	Frames        int
	Champion      int
	Draw          bool
	FinalChecksum [32]byte
	StartedAt     time.Time
	EndedAt       time.Time
	Rounds        []RoundRecord
}

type MatchRepo struct {
	db *DB
}

func NewMatchRepo(db *DB) *MatchRepo {
	return &MatchRepo{db: db}
}

func nullableTeam(team int, draw bool) *int16 {
	if draw {
		return nil
	}
	t := int16(team)
	return &t
}

// SaveMatch writes the match row and its rounds in one transaction and
// returns the new match id.
func (r *MatchRepo) SaveMatch(ctx context.Context, m *MatchRecord) (int64, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("match begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	if err := tx.QueryRow(ctx,
		`INSERT INTO matches (room, level, players, fps, frames, champion, final_checksum, started_at, ended_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		m.Room, m.Level, int16(m.Players), int16(m.FPS), int32(m.Frames),
		nullableTeam(m.Champion, m.Draw), m.FinalChecksum[:], m.StartedAt, m.EndedAt,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("match insert: %w", err)
	}

	for _, rd := range m.Rounds {
		scores := make([]int32, len(rd.Scores))
		for i, s := range rd.Scores {
			scores[i] = int32(s)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO match_rounds (match_id, number, winner, scores, end_frame)
			 VALUES ($1, $2, $3, $4, $5)`,
			id, int16(rd.Number), nullableTeam(rd.Winner, rd.Draw), scores, int32(rd.EndFrame),
		); err != nil {
			return 0, fmt.Errorf("round %d insert: %w", rd.Number, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("match commit: %w", err)
	}
	m.ID = id
	return id, nil
}

// Recent lists the latest matches, newest first, without their rounds.
func (r *MatchRepo) Recent(ctx context.Context, limit int) ([]MatchRecord, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, room, level, players, fps, frames, champion, final_checksum, started_at, ended_at
		 FROM matches ORDER BY ended_at DESC, id DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MatchRecord
	for rows.Next() {
		var (
			m            MatchRecord
			players, fps int16
			frames       int32
			champion     *int16
			sum          []byte
		)
		if err := rows.Scan(&m.ID, &m.Room, &m.Level, &players, &fps, &frames,
			&champion, &sum, &m.StartedAt, &m.EndedAt); err != nil {
			return nil, err
		}
		m.Players, m.FPS, m.Frames = int(players), int(fps), int(frames)
		if champion == nil {
			m.Draw = true
		} else {
			m.Champion = int(*champion)
		}
		copy(m.FinalChecksum[:], sum)
		out = append(out, m)
	}
	return out, rows.Err()
}
