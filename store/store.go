// Package store keeps the fetched Last.fm facts and the computed correlation
// tables in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/botirk38/lastcorr/types"
)

// DefaultPath is the database location used when none is configured.
const DefaultPath = "data/lastfm.db"

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Store is the SQLite fact store and correlation sink.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the database at path and makes sure the
// schema exists.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}

	if path != MemoryPath && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, errors.Wrap(err, "failed to create database directory")
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database %s", path)
	}
	// A single connection keeps in-memory databases alive across calls and
	// serialises writers.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "failed to apply %q", pragma)
		}
	}

	s := &Store{db: db, path: path}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to initialize schema")
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS artists (
		name      TEXT NOT NULL,
		listeners INTEGER NOT NULL DEFAULT 0,
		playcount INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS top_artist_tags (
		artist_name TEXT NOT NULL,
		tag         TEXT NOT NULL,
		count       INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_top_artist_tags_tag ON top_artist_tags(tag);
	CREATE INDEX IF NOT EXISTS idx_top_artist_tags_artist ON top_artist_tags(artist_name);

	CREATE TABLE IF NOT EXISTS tag_correlation (
		tag1      TEXT NOT NULL,
		tag2      TEXT NOT NULL,
		corr_coef REAL
	);

	CREATE TABLE IF NOT EXISTS artist_correlation (
		artist1   TEXT NOT NULL,
		artist2   TEXT NOT NULL,
		corr_coef REAL
	);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ResetSource removes all fetched artists and tags.
func (s *Store) ResetSource(ctx context.Context) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"artists", "top_artist_tags"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return errors.Wrapf(err, "failed to clear %s", table)
			}
		}
		return nil
	})
}

// InsertArtists appends chart entries and returns the number stored.
func (s *Store) InsertArtists(ctx context.Context, artists []types.Artist) (int, error) {
	if len(artists) == 0 {
		return 0, nil
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, "INSERT INTO artists (name, listeners, playcount) VALUES (?, ?, ?)")
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, a := range artists {
			if _, err := stmt.ExecContext(ctx, a.Name, a.Listeners, a.Playcount); err != nil {
				return errors.Wrapf(err, "failed to insert artist %s", a.Name)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(artists), nil
}

// InsertTriples appends artist tag facts (Entity is the artist, Attribute the
// tag) and returns the number stored.
func (s *Store) InsertTriples(ctx context.Context, triples []types.Triple) (int, error) {
	if len(triples) == 0 {
		return 0, nil
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, "INSERT INTO top_artist_tags (artist_name, tag, count) VALUES (?, ?, ?)")
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, t := range triples {
			if _, err := stmt.ExecContext(ctx, t.Entity, t.Attribute, t.Weight); err != nil {
				return errors.Wrapf(err, "failed to insert tag %s for %s", t.Attribute, t.Entity)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(triples), nil
}

// ListArtistNames returns the distinct stored artist names in ascending
// order. With untaggedOnly set, artists that already have tags are skipped.
func (s *Store) ListArtistNames(ctx context.Context, untaggedOnly bool) ([]string, error) {
	query := "SELECT DISTINCT name FROM artists"
	if untaggedOnly {
		query += " WHERE name NOT IN (SELECT DISTINCT artist_name FROM top_artist_tags)"
	}
	query += " ORDER BY name"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list artists")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "failed to scan artist")
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// CountTriples returns the number of stored artist tag facts.
func (s *Store) CountTriples(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM top_artist_tags").Scan(&n); err != nil {
		return 0, errors.Wrap(err, "failed to count tags")
	}
	return n, nil
}

// TripleFilter restricts LoadTriples. The zero value loads every fact.
type TripleFilter struct {
	// MinCount drops facts whose weight is below it.
	MinCount int
	// MinEntities drops tags given (with at least MinCount) to fewer artists.
	MinEntities int
	// ExcludeSelf drops tags named like the artist they describe.
	ExcludeSelf bool
}

// TagFilter is the filter applied before tag correlation.
func TagFilter() TripleFilter {
	return TripleFilter{MinCount: 50, MinEntities: 5, ExcludeSelf: true}
}

func (f TripleFilter) query() (string, []any) {
	var (
		b    strings.Builder
		args []any
		cond []string
	)
	b.WriteString("SELECT t.artist_name, t.tag, t.count FROM top_artist_tags t")
	if f.MinEntities > 0 {
		b.WriteString(" JOIN (SELECT tag FROM top_artist_tags WHERE count >= ? GROUP BY tag HAVING count(*) >= ?) AS jt ON t.tag = jt.tag")
		args = append(args, f.MinCount, f.MinEntities)
	}
	if f.MinCount > 0 {
		cond = append(cond, "t.count >= ?")
		args = append(args, f.MinCount)
	}
	if f.ExcludeSelf {
		cond = append(cond, "t.artist_name <> t.tag")
	}
	if len(cond) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(cond, " AND "))
	}
	b.WriteString(" ORDER BY t.rowid")
	return b.String(), args
}

// LoadTriples returns the artist tag facts that pass the filter, in
// insertion order.
func (s *Store) LoadTriples(ctx context.Context, filter TripleFilter) ([]types.Triple, error) {
	query, args := filter.query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load tags")
	}
	defer rows.Close()

	var triples []types.Triple
	for rows.Next() {
		var t types.Triple
		if err := rows.Scan(&t.Entity, &t.Attribute, &t.Weight); err != nil {
			return nil, errors.Wrap(err, "failed to scan tag")
		}
		triples = append(triples, t)
	}
	return triples, rows.Err()
}

// PairTable names one of the correlation tables.
type PairTable struct {
	name string
	colA string
	colB string
}

var (
	// TagCorrelation holds tag to tag coefficients.
	TagCorrelation = PairTable{name: "tag_correlation", colA: "tag1", colB: "tag2"}
	// ArtistCorrelation holds artist to artist coefficients.
	ArtistCorrelation = PairTable{name: "artist_correlation", colA: "artist1", colB: "artist2"}
)

func (t PairTable) String() string {
	return t.name
}

// ReplacePairs swaps the table content for pairs in one transaction.
// Undefined coefficients are stored as NULL.
func (s *Store) ReplacePairs(ctx context.Context, table PairTable, pairs []types.Pair) (int, error) {
	if table.name == "" {
		return 0, errors.New("store: unknown correlation table")
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table.name); err != nil {
			return errors.Wrapf(err, "failed to clear %s", table)
		}

		stmt, err := tx.PrepareContext(ctx, "INSERT INTO "+table.name+" ("+table.colA+", "+table.colB+", corr_coef) VALUES (?, ?, ?)")
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, p := range pairs {
			coef := sql.NullFloat64{Float64: p.Coef, Valid: !p.Undefined()}
			if _, err := stmt.ExecContext(ctx, p.A, p.B, coef); err != nil {
				return errors.Wrapf(err, "failed to insert pair (%s, %s)", p.A, p.B)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(pairs), nil
}

// ListPairs returns the stored pairs in insertion order. A non-empty focal
// restricts the result to pairs that contain it.
func (s *Store) ListPairs(ctx context.Context, table PairTable, focal string) ([]types.Pair, error) {
	if table.name == "" {
		return nil, errors.New("store: unknown correlation table")
	}
	query := "SELECT " + table.colA + ", " + table.colB + ", corr_coef FROM " + table.name
	var args []any
	if focal != "" {
		query += " WHERE " + table.colA + " = ? OR " + table.colB + " = ?"
		args = append(args, focal, focal)
	}
	query += " ORDER BY rowid"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s", table)
	}
	defer rows.Close()

	var pairs []types.Pair
	for rows.Next() {
		var (
			p    types.Pair
			coef sql.NullFloat64
		)
		if err := rows.Scan(&p.A, &p.B, &coef); err != nil {
			return nil, errors.Wrapf(err, "failed to scan %s", table)
		}
		p.Coef = math.NaN()
		if coef.Valid {
			p.Coef = coef.Float64
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "failed to commit transaction")
}
