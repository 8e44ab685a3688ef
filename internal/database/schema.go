package database

import (
	"context"
	"fmt"
)

// schema creates the catalog tables. Dates are TEXT so the driver hands them
// back as plain strings.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS av_list (
	linkid       TEXT PRIMARY KEY,
	av_id        TEXT NOT NULL DEFAULT '',
	title        TEXT NOT NULL DEFAULT '',
	release_date TEXT NOT NULL DEFAULT '',
	len          INTEGER NOT NULL DEFAULT 0,
	director     TEXT NOT NULL DEFAULT '',
	studio       TEXT NOT NULL DEFAULT '',
	label        TEXT NOT NULL DEFAULT '',
	series       TEXT NOT NULL DEFAULT '',
	genre        TEXT NOT NULL DEFAULT '',
	stars        TEXT NOT NULL DEFAULT '',
	director_url TEXT NOT NULL DEFAULT '',
	studio_url   TEXT NOT NULL DEFAULT '',
	label_url    TEXT NOT NULL DEFAULT '',
	series_url   TEXT NOT NULL DEFAULT '',
	stars_url    TEXT NOT NULL DEFAULT '',
	image_len    INTEGER NOT NULL DEFAULT 0
)`,
	`CREATE INDEX IF NOT EXISTS idx_av_list_av_id ON av_list (av_id)`,
	`CREATE INDEX IF NOT EXISTS idx_av_list_release_date ON av_list (release_date)`,
	`CREATE TABLE IF NOT EXISTS av_genre (
	linkid TEXT PRIMARY KEY,
	name   TEXT NOT NULL DEFAULT '',
	title  TEXT NOT NULL DEFAULT ''
)`,
	`CREATE TABLE IF NOT EXISTS av_stars (
	linkid    TEXT PRIMARY KEY,
	name      TEXT NOT NULL DEFAULT '',
	birthday  TEXT NOT NULL DEFAULT '',
	height    TEXT NOT NULL DEFAULT '',
	hometown  TEXT NOT NULL DEFAULT '',
	headimg   TEXT NOT NULL DEFAULT '',
	favorite  INTEGER NOT NULL DEFAULT 0
)`,
	`CREATE TABLE IF NOT EXISTS av_extend (
	extend_name TEXT NOT NULL,
	key         TEXT NOT NULL,
	val         TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (extend_name, key)
)`,
}

// Bootstrap creates any missing catalog tables.
func (s *Store) Bootstrap(ctx context.Context) error {
	for _, stmt := range schema {
		if err := s.Execute(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap schema: %w", err)
		}
	}
	return nil
}
