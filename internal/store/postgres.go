package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/hyrily/hyrily/internal/company"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationTable = "hyrily_migrations"

// Postgres stores records in user_sessions and company_sessions.
type Postgres struct {
	db *sql.DB
}

// OpenPostgres connects with dsn and applies pending migrations.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Postgres{db: db}, nil
}

// Ping checks that dsn accepts connections without touching the schema.
func Ping(ctx context.Context, dsn string) error {
	db := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// NewPostgres wraps an already migrated database.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Migrate applies the embedded schema and returns the number of migrations run.
func Migrate(db *sql.DB) (int, error) {
	migrate.SetTable(migrationTable)
	source := &migrate.EmbedFileSystemMigrationSource{FileSystem: migrations, Root: "migrations"}
	n, err := migrate.Exec(db, "postgres", source, migrate.Up)
	if err != nil {
		return 0, fmt.Errorf("apply migrations: %w", err)
	}
	return n, nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) GetSession(ctx context.Context, id string) (Session, error) {
	const query = `
		SELECT id, kind, status, stack, questions, answers, aggregate, duration_seconds, started_at, completed_at
		FROM user_sessions
		WHERE id = $1
	`
	s, err := scanSession(p.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Session{}, fmt.Errorf("fetching session: %w", err)
	}
	return s, nil
}

func (p *Postgres) SaveSession(ctx context.Context, s Session) error {
	if s.ID == "" {
		return errEmptyID
	}
	const query = `
		INSERT INTO user_sessions (id, kind, status, stack, questions, answers, aggregate, duration_seconds, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6::jsonb, $7, $8, $9, $10)
		ON CONFLICT (id)
		DO UPDATE SET
			status = EXCLUDED.status,
			questions = EXCLUDED.questions,
			answers = EXCLUDED.answers,
			aggregate = EXCLUDED.aggregate,
			duration_seconds = EXCLUDED.duration_seconds,
			completed_at = EXCLUDED.completed_at
	`

	qs, err := jsonText(s.Questions)
	if err != nil {
		return err
	}
	answers, err := jsonText(s.Answers)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, query,
		s.ID, string(s.Kind), string(s.Status), s.Stack, qs, answers,
		s.Aggregate, s.DurationSeconds, s.StartedAt, nullTime(s.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

func (p *Postgres) ListSessions(ctx context.Context) ([]Session, error) {
	const query = `
		SELECT id, kind, status, stack, questions, answers, aggregate, duration_seconds, started_at, completed_at
		FROM user_sessions
		ORDER BY started_at DESC, id
	`
	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) GetCampaign(ctx context.Context, id string) (*company.Campaign, error) {
	const query = `SELECT payload FROM company_sessions WHERE id = $1`

	var payload string
	err := p.db.QueryRowContext(ctx, query, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("campaign %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching campaign: %w", err)
	}
	return decodeCampaign([]byte(payload))
}

func (p *Postgres) SaveCampaign(ctx context.Context, c *company.Campaign) error {
	if c == nil || c.ID == "" {
		return errEmptyID
	}
	const query = `
		INSERT INTO company_sessions (id, company, stack, status, select_count, payload, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8)
		ON CONFLICT (id)
		DO UPDATE SET
			status = EXCLUDED.status,
			payload = EXCLUDED.payload,
			completed_at = EXCLUDED.completed_at
	`

	payload, err := jsonText(c)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, query,
		c.ID, c.Company, c.Stack, string(c.Status), c.SelectCount, payload,
		c.CreatedAt, nullTime(c.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("saving campaign: %w", err)
	}
	return nil
}

func (p *Postgres) ListCampaigns(ctx context.Context) ([]*company.Campaign, error) {
	const query = `SELECT payload FROM company_sessions ORDER BY created_at DESC, id`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing campaigns: %w", err)
	}
	defer rows.Close()

	var out []*company.Campaign
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning campaign: %w", err)
		}
		c, err := decodeCampaign([]byte(payload))
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (Session, error) {
	var (
		s                  Session
		kind, status       string
		questions, answers string
		completed          sql.NullTime
	)
	err := row.Scan(&s.ID, &kind, &status, &s.Stack, &questions, &answers,
		&s.Aggregate, &s.DurationSeconds, &s.StartedAt, &completed)
	if err != nil {
		return Session{}, err
	}
	s.Kind, s.Status = Kind(kind), Status(status)
	if completed.Valid {
		s.CompletedAt = completed.Time
	}
	if err := json.Unmarshal([]byte(questions), &s.Questions); err != nil {
		return Session{}, fmt.Errorf("decode questions: %w", err)
	}
	if err := json.Unmarshal([]byte(answers), &s.Answers); err != nil {
		return Session{}, fmt.Errorf("decode answers: %w", err)
	}
	return s, nil
}

func jsonText(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode json: %w", err)
	}
	return string(data), nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
