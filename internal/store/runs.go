package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/ademuri/era-tools/internal/analysis"
	"github.com/ademuri/era-tools/internal/listening"
)

// Run is one archived pipeline invocation.
type Run struct {
	ID        string
	Created   time.Time
	Source    string
	Status    string
	Threshold float64
	MinWeeks  int
	MinMs     int64
	Stats     listening.Stats
	// EraCount is filled in by ListRuns, which does not load Eras.
	EraCount int
	Eras     []analysis.Era
}

// SaveRun archives run and its eras in one transaction. An empty ID is
// replaced by a new ULID and a zero Created by the current time; the
// assigned ID is returned.
func (s *Store) SaveRun(run *Run) (string, error) {
	if run.ID == "" {
		run.ID = ulid.Make().String()
	}
	if run.Created.IsZero() {
		run.Created = time.Now().UTC()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO Run (id, created, source, status, threshold, min_weeks, min_ms,
		                 total_tracks, total_artists, total_ms, first_listen, last_listen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Created, run.Source, run.Status, run.Threshold, run.MinWeeks, run.MinMs,
		run.Stats.TotalTracks, run.Stats.TotalArtists, run.Stats.TotalMs,
		nullTime(run.Stats.First), nullTime(run.Stats.Last))
	if err != nil {
		return "", fmt.Errorf("inserting run %s: %w", run.ID, err)
	}

	for _, era := range run.Eras {
		if err := insertEra(tx, run.ID, era); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing transaction: %w", err)
	}
	return run.ID, nil
}

func insertEra(tx *sql.Tx, runID string, era analysis.Era) error {
	_, err := tx.Exec(
		"INSERT INTO Era (run, id, title, summary, start_date, end_date, total_ms) VALUES (?, ?, ?, ?, ?, ?, ?)",
		runID, era.ID, era.Title, era.Summary, era.StartDate, era.EndDate, era.TotalMsPlayed)
	if err != nil {
		return fmt.Errorf("inserting era %d: %w", era.ID, err)
	}
	for i, a := range era.TopArtists {
		_, err := tx.Exec("INSERT INTO EraArtist (run, era, rank, name, plays) VALUES (?, ?, ?, ?, ?)",
			runID, era.ID, i+1, a.Name, a.Plays)
		if err != nil {
			return fmt.Errorf("inserting artist %q for era %d: %w", a.Name, era.ID, err)
		}
	}
	for i, t := range era.TopTracks {
		_, err := tx.Exec("INSERT INTO EraTrack (run, era, rank, track, artist, plays) VALUES (?, ?, ?, ?, ?, ?)",
			runID, era.ID, i+1, t.Track, t.Artist, t.Plays)
		if err != nil {
			return fmt.Errorf("inserting track %q for era %d: %w", t.Track, era.ID, err)
		}
	}
	return nil
}

// ListRuns returns archived runs, newest first, without their eras.
func (s *Store) ListRuns() ([]Run, error) {
	rows, err := s.db.Query(`
		SELECT r.id, r.created, r.source, r.status, r.threshold, r.min_weeks, r.min_ms,
		       r.total_tracks, r.total_artists, r.total_ms, r.first_listen, r.last_listen,
		       (SELECT COUNT(*) FROM Era e WHERE e.run = r.id)
		FROM Run r
		ORDER BY r.created DESC, r.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := scanRun(rows, &r, &r.EraCount); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun loads one archived run with its eras.
func (s *Store) GetRun(id string) (Run, error) {
	row := s.db.QueryRow(`
		SELECT id, created, source, status, threshold, min_weeks, min_ms,
		       total_tracks, total_artists, total_ms, first_listen, last_listen
		FROM Run WHERE id = ?`, id)
	var r Run
	err := scanRun(row, &r)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, err
	}

	r.Eras, err = s.getEras(id)
	if err != nil {
		return Run{}, err
	}
	r.EraCount = len(r.Eras)
	return r, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner, r *Run, extra ...any) error {
	var source sql.NullString
	var first, last sql.NullTime
	dest := []any{
		&r.ID, &r.Created, &source, &r.Status, &r.Threshold, &r.MinWeeks, &r.MinMs,
		&r.Stats.TotalTracks, &r.Stats.TotalArtists, &r.Stats.TotalMs, &first, &last,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("scanning run: %w", err)
	}
	r.Source = source.String
	r.Stats.First = first.Time
	r.Stats.Last = last.Time
	return nil
}

func (s *Store) getEras(runID string) ([]analysis.Era, error) {
	rows, err := s.db.Query(
		"SELECT id, title, summary, start_date, end_date, total_ms FROM Era WHERE run = ? ORDER BY id", runID)
	if err != nil {
		return nil, fmt.Errorf("querying eras: %w", err)
	}
	var eras []analysis.Era
	for rows.Next() {
		var e analysis.Era
		var title, summary sql.NullString
		if err := rows.Scan(&e.ID, &title, &summary, &e.StartDate, &e.EndDate, &e.TotalMsPlayed); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning era: %w", err)
		}
		e.Title = title.String
		e.Summary = summary.String
		e.StartDate = e.StartDate.UTC()
		e.EndDate = e.EndDate.UTC()
		eras = append(eras, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range eras {
		if eras[i].TopArtists, err = s.getEraArtists(runID, eras[i].ID); err != nil {
			return nil, err
		}
		if eras[i].TopTracks, err = s.getEraTracks(runID, eras[i].ID); err != nil {
			return nil, err
		}
	}
	return eras, nil
}

func (s *Store) getEraArtists(runID string, eraID int) ([]analysis.ArtistStat, error) {
	rows, err := s.db.Query("SELECT name, plays FROM EraArtist WHERE run = ? AND era = ? ORDER BY rank", runID, eraID)
	if err != nil {
		return nil, fmt.Errorf("querying artists for era %d: %w", eraID, err)
	}
	defer rows.Close()

	var artists []analysis.ArtistStat
	for rows.Next() {
		var a analysis.ArtistStat
		if err := rows.Scan(&a.Name, &a.Plays); err != nil {
			return nil, err
		}
		artists = append(artists, a)
	}
	return artists, rows.Err()
}

func (s *Store) getEraTracks(runID string, eraID int) ([]analysis.TrackStat, error) {
	rows, err := s.db.Query("SELECT track, artist, plays FROM EraTrack WHERE run = ? AND era = ? ORDER BY rank", runID, eraID)
	if err != nil {
		return nil, fmt.Errorf("querying tracks for era %d: %w", eraID, err)
	}
	defer rows.Close()

	var tracks []analysis.TrackStat
	for rows.Next() {
		var t analysis.TrackStat
		if err := rows.Scan(&t.Track, &t.Artist, &t.Plays); err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

// DeleteRun removes an archived run and its eras.
func (s *Store) DeleteRun(id string) error {
	res, err := s.db.Exec("DELETE FROM Run WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
