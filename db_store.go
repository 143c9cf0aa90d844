package main

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"hamurabi/game"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFS embed.FS

type DBDialect string

const (
	dialectSQLite   DBDialect = "sqlite"
	dialectPostgres DBDialect = "postgres"
	dialectNone     DBDialect = "none"
)

var (
	ErrGameNotFound = errors.New("game not found")
	ErrNoDatabase   = errors.New("no database configured (DB_DIALECT is none)")
)

// Repository keeps games in progress and the hall of records.
type Repository interface {
	SaveGame(ctx context.Context, g savedGame, seed uint64) error
	LoadGame(ctx context.Context, id string) (savedGame, error)
	RecordResult(ctx context.Context, rec TermRecord) error
	ListRecords(ctx context.Context, limit int) ([]TermRecord, error)
	Close() error
}

// noopRepository serves DB_DIALECT=none: writes are dropped, reads fail.
type noopRepository struct{}

func (noopRepository) SaveGame(context.Context, savedGame, uint64) error { return nil }

func (noopRepository) LoadGame(context.Context, string) (savedGame, error) {
	return savedGame{}, ErrNoDatabase
}

func (noopRepository) RecordResult(context.Context, TermRecord) error { return nil }

func (noopRepository) ListRecords(context.Context, int) ([]TermRecord, error) {
	return nil, ErrNoDatabase
}

func (noopRepository) Close() error { return nil }

type SQLRepository struct {
	dialect DBDialect
	db      *sql.DB
}

// TermRecord is one finished game in the hall of records.
type TermRecord struct {
	ID                 string    `json:"id"`
	GameID             string    `json:"game_id"`
	FinishedAt         time.Time `json:"finished_at"`
	Outcome            string    `json:"outcome"`
	RoundsPlayed       uint64    `json:"rounds_played"`
	DeadTotal          uint64    `json:"dead_total"`
	AverageDeadPercent uint64    `json:"average_dead_percent"`
	AreaByPerson       uint64    `json:"area_by_person"`
	Rank               game.Rank `json:"rank,omitempty"`
	Population         uint64    `json:"population"`
	Area               uint64    `json:"area"`
	Grain              uint64    `json:"grain"`
}

const (
	outcomeImpeached = "impeached"
	outcomeCompleted = "completed"
	outcomeDeserted  = "deserted"
)

func openRepository(cfg Config) (Repository, error) {
	if DBDialect(cfg.DBDialect) == dialectNone {
		log.Printf("database: disabled")
		return noopRepository{}, nil
	}
	repo, err := openSQLRepository(cfg)
	if err != nil {
		return nil, err
	}
	return repo, nil
}

func openSQLRepository(cfg Config) (*SQLRepository, error) {
	dialect := DBDialect(cfg.DBDialect)

	var driverName string
	var dsn string
	switch dialect {
	case dialectSQLite:
		driverName = "sqlite"
		path := strings.TrimSpace(cfg.SQLitePath)
		if path == "" {
			path = filepath.Join("tmp", "hamurabi.sqlite")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
		dsn = path
	case dialectPostgres:
		driverName = "pgx"
		dsn = strings.TrimSpace(cfg.PostgresDSN)
		if dsn == "" {
			dsn = strings.TrimSpace(cfg.DatabaseURL)
		}
		if dsn == "" {
			return nil, errors.New("DB_DIALECT=postgres requires DB_POSTGRES_DSN or DATABASE_URL")
		}
	default:
		return nil, fmt.Errorf("unsupported DB_DIALECT %q", cfg.DBDialect)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s database: %w", dialect, err)
	}

	repo := &SQLRepository{dialect: dialect, db: db}
	if err := repo.applyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Printf("database: dialect=%s", dialect)
	return repo, nil
}

func (r *SQLRepository) Close() error {
	return r.db.Close()
}

func (r *SQLRepository) bind(pos int) string {
	if r.dialect == dialectPostgres {
		return fmt.Sprintf("$%d", pos)
	}
	return "?"
}

func (r *SQLRepository) insertQuery(table string, cols []string) string {
	ph := make([]string, len(cols))
	for i := range cols {
		ph[i] = r.bind(i + 1)
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(cols, ", "),
		strings.Join(ph, ", "),
	)
}

func (r *SQLRepository) applyMigrations(ctx context.Context) error {
	create := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL
		)
	`
	if _, err := r.db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied := map[string]bool{}
	if err := loadRows(ctx, r.db, "SELECT version FROM schema_migrations", func(v string) error {
		applied[v] = true
		return nil
	}); err != nil {
		return fmt.Errorf("read schema_migrations: %w", err)
	}

	pattern := fmt.Sprintf("migrations/%s/*.sql", r.dialect)
	files, err := fs.Glob(migrationFS, pattern)
	if err != nil {
		return fmt.Errorf("glob migrations: %w", err)
	}
	sort.Strings(files)
	for _, file := range files {
		base := filepath.Base(file)
		if applied[base] {
			continue
		}
		sqlBytes, err := migrationFS.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration tx %s: %w", file, err)
		}
		if _, err := tx.ExecContext(ctx, string(sqlBytes)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
		q := r.insertQuery("schema_migrations", []string{"version", "applied_at"})
		if _, err := tx.ExecContext(ctx, q, base, time.Now().UTC()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", file, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", file, err)
		}
	}
	return nil
}

// SaveGame upserts the latest save payload of a game.
func (r *SQLRepository) SaveGame(ctx context.Context, g savedGame, seed uint64) error {
	if _, err := uuid.Parse(g.ID); err != nil {
		return fmt.Errorf("save game: invalid id %q: %w", g.ID, err)
	}
	payload, err := marshalSave(g)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	q := r.insertQuery("games", []string{"id", "started_at", "updated_at", "seed", "round", "payload"}) +
		" ON CONFLICT (id) DO UPDATE SET updated_at = excluded.updated_at, round = excluded.round, payload = excluded.payload"
	// Seeds above MaxInt64 keep their bit pattern.
	if _, err := r.db.ExecContext(ctx, q, g.ID, now, now, int64(seed), int64(g.City.CurrentRound()), string(payload)); err != nil {
		return fmt.Errorf("upsert games: %w", err)
	}
	return nil
}

// LoadGame restores a game saved with SaveGame.
func (r *SQLRepository) LoadGame(ctx context.Context, id string) (savedGame, error) {
	var payload string
	var seed int64
	q := fmt.Sprintf("SELECT payload, seed FROM games WHERE id = %s", r.bind(1))
	err := r.db.QueryRowContext(ctx, q, id).Scan(&payload, &seed)
	if errors.Is(err, sql.ErrNoRows) {
		return savedGame{}, fmt.Errorf("load game %s: %w", id, ErrGameNotFound)
	}
	if err != nil {
		return savedGame{}, fmt.Errorf("load game %s: %w", id, err)
	}
	g, err := unmarshalSave([]byte(payload), uint64(seed))
	if err != nil {
		return savedGame{}, err
	}
	if g.ID == "" {
		g.ID = id
	}
	return g, nil
}

// RecordResult appends a finished game to term_records.
func (r *SQLRepository) RecordResult(ctx context.Context, rec TermRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = time.Now().UTC()
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode term record: %w", err)
	}
	q := r.insertQuery("term_records", []string{
		"id", "game_id", "finished_at", "outcome", "rounds_played", "dead_total",
		"average_dead_percent", "area_by_person", "rank", "population", "area", "grain", "payload",
	})
	_, err = r.db.ExecContext(ctx, q,
		rec.ID, rec.GameID, rec.FinishedAt, rec.Outcome, int64(rec.RoundsPlayed), int64(rec.DeadTotal),
		int64(rec.AverageDeadPercent), int64(rec.AreaByPerson), string(rec.Rank),
		int64(rec.Population), int64(rec.Area), int64(rec.Grain), string(b),
	)
	if err != nil {
		return fmt.Errorf("insert term_records: %w", err)
	}
	return nil
}

// ListRecords returns up to limit records, newest first.
func (r *SQLRepository) ListRecords(ctx context.Context, limit int) ([]TermRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	q := fmt.Sprintf("SELECT payload FROM term_records ORDER BY finished_at DESC, id DESC LIMIT %s", r.bind(1))
	var out []TermRecord
	err := loadRows(ctx, r.db, q, func(payload string) error {
		var rec TermRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return err
		}
		out = append(out, rec)
		return nil
	}, limit)
	if err != nil {
		return nil, fmt.Errorf("load term_records: %w", err)
	}
	return out, nil
}

func loadRows(ctx context.Context, db *sql.DB, q string, fn func(col string) error, args ...any) error {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return err
		}
		if err := fn(col); err != nil {
			return err
		}
	}
	return rows.Err()
}

// newTermRecord summarizes a finished city for the hall of records.
func newTermRecord(gameID string, c *game.City, out game.Outcome) TermRecord {
	rec := TermRecord{
		GameID:       gameID,
		DeadTotal:    c.DeadFromHungerTotal(),
		Population:   c.Population(),
		Area:         c.Area(),
		Grain:        c.Grain(),
		RoundsPlayed: c.CurrentRound() - 1,
	}
	switch o := out.(type) {
	case game.GameOver:
		rec.Outcome = outcomeImpeached
	case game.TermComplete:
		stats, err := game.EvaluateTerm(o)
		if err != nil {
			rec.Outcome = outcomeDeserted
			return rec
		}
		rec.Outcome = outcomeCompleted
		rec.AverageDeadPercent = stats.AverageDeadPercent
		rec.AreaByPerson = stats.AreaByPerson
		rec.Rank = stats.Rank
	}
	return rec
}
