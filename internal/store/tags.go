package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetArtistTags returns the cached tags for artist, highest count first.
// fresh is false when the artist has never been fetched or was last
// fetched before maxAge ago.
func (s *Store) GetArtistTags(artist string, maxAge time.Duration) (tags []string, fresh bool, err error) {
	var updated sql.NullTime
	err = s.db.QueryRow("SELECT tags_last_updated FROM Artist WHERE name = ?", artist).Scan(&updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("getting tag timestamp for %q: %w", artist, err)
	}
	if !updated.Valid || updated.Time.Before(time.Now().Add(-maxAge)) {
		return nil, false, nil
	}

	rows, err := s.db.Query("SELECT tag FROM ArtistTag WHERE artist = ? ORDER BY count DESC, tag", artist)
	if err != nil {
		return nil, false, fmt.Errorf("querying tags for %q: %w", artist, err)
	}
	defer rows.Close()

	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, false, err
		}
		tags = append(tags, t)
	}
	return tags, true, rows.Err()
}

// SaveArtistTags replaces the cached tags for artist and marks them as
// fetched now. An empty tags slice records that the artist has none.
func (s *Store) SaveArtistTags(artist string, tags []string, counts []int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("INSERT OR IGNORE INTO Artist (name) VALUES (?)", artist); err != nil {
		return fmt.Errorf("inserting artist %q: %w", artist, err)
	}
	if _, err := tx.Exec("DELETE FROM ArtistTag WHERE artist = ?", artist); err != nil {
		return fmt.Errorf("clearing tags for %q: %w", artist, err)
	}

	for i, tag := range tags {
		count := 0
		if i < len(counts) {
			count = counts[i]
		}

		// Ensure Tag exists
		_, err := tx.Exec("INSERT OR IGNORE INTO Tag (name) VALUES (?)", tag)
		if err != nil {
			return fmt.Errorf("inserting tag %q: %w", tag, err)
		}

		_, err = tx.Exec("INSERT OR REPLACE INTO ArtistTag (artist, tag, count) VALUES (?, ?, ?)", artist, tag, count)
		if err != nil {
			return fmt.Errorf("linking tag %q to artist %q: %w", tag, artist, err)
		}
	}

	_, err = tx.Exec("UPDATE Artist SET tags_last_updated = ? WHERE name = ?", time.Now(), artist)
	if err != nil {
		return fmt.Errorf("updating artist tag timestamp: %w", err)
	}

	return tx.Commit()
}
