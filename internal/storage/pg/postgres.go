package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sethvargo/go-retry"

	"photostudio/internal/models"
)

type PostgresDB struct {
	db *sqlx.DB
}

// NewPostgresDB connects to Postgres. The initial ping is retried with
// fibonacci backoff because the database container often comes up slightly
// after the bot in compose environments.
func NewPostgresDB(ctx context.Context, dsn string) (*PostgresDB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	backoff := retry.WithMaxDuration(30*time.Second, retry.NewFibonacci(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if pingErr := db.PingContext(ctx); pingErr != nil {
			return retry.RetryableError(pingErr)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresDB{db: db}, nil
}

// Initialize is a no-op - tables are managed via migrations (see migrations/)
func (p *PostgresDB) Initialize(ctx context.Context) error {
	return nil
}

// GetUser returns the user record or (nil, nil) when not registered
func (p *PostgresDB) GetUser(ctx context.Context, telegramID int64) (*models.User, error) {
	var user models.User
	err := p.db.GetContext(ctx, &user,
		`SELECT telegram_id, username, credits, created_at FROM users WHERE telegram_id = $1`, telegramID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", telegramID, err)
	}
	return &user, nil
}

// CreateUser registers a user; re-registering is a no-op
func (p *PostgresDB) CreateUser(ctx context.Context, user models.User) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO users (telegram_id, username, credits, created_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (telegram_id) DO NOTHING`,
		user.TelegramID, user.Username, user.Credits)
	if err != nil {
		return fmt.Errorf("failed to create user %d: %w", user.TelegramID, err)
	}
	return nil
}

func (p *PostgresDB) UpdateUser(ctx context.Context, user models.User) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE users SET username = $2, credits = $3 WHERE telegram_id = $1`,
		user.TelegramID, user.Username, user.Credits)
	if err != nil {
		return fmt.Errorf("failed to update user %d: %w", user.TelegramID, err)
	}
	return nil
}

// GetUserModels returns the user's models, newest first
func (p *PostgresDB) GetUserModels(ctx context.Context, telegramID int64) ([]models.Model, error) {
	var out []models.Model
	err := p.db.SelectContext(ctx, &out,
		`SELECT id, telegram_id, name, type, status, created_at
		 FROM photo_models WHERE telegram_id = $1 ORDER BY created_at DESC`, telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to list models for user %d: %w", telegramID, err)
	}
	return out, nil
}

func (p *PostgresDB) CreateModel(ctx context.Context, model models.Model) (int64, error) {
	var id int64
	err := p.db.GetContext(ctx, &id,
		`INSERT INTO photo_models (telegram_id, name, type, status, created_at)
		 VALUES ($1, $2, $3, $4, NOW()) RETURNING id`,
		model.TelegramID, model.Name, model.Type, model.Status)
	if err != nil {
		return 0, fmt.Errorf("failed to create model %q: %w", model.Name, err)
	}
	return id, nil
}

func (p *PostgresDB) UpdateModel(ctx context.Context, modelID int64, status string) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE photo_models SET status = $2 WHERE id = $1`, modelID, status)
	if err != nil {
		return fmt.Errorf("failed to update model %d: %w", modelID, err)
	}
	return nil
}

// GetModelDetails returns the model record or (nil, nil) when absent
func (p *PostgresDB) GetModelDetails(ctx context.Context, modelID int64) (*models.Model, error) {
	var model models.Model
	err := p.db.GetContext(ctx, &model,
		`SELECT id, telegram_id, name, type, status, created_at FROM photo_models WHERE id = $1`, modelID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get model %d: %w", modelID, err)
	}
	return &model, nil
}

func (p *PostgresDB) CreatePrompt(ctx context.Context, prompt models.Prompt) (int64, error) {
	var id int64
	err := p.db.GetContext(ctx, &id,
		`INSERT INTO prompts (model_id, telegram_id, text, status, created_at)
		 VALUES ($1, $2, $3, $4, NOW()) RETURNING id`,
		prompt.ModelID, prompt.TelegramID, prompt.Text, prompt.Status)
	if err != nil {
		return 0, fmt.Errorf("failed to create prompt for model %d: %w", prompt.ModelID, err)
	}
	return id, nil
}

func (p *PostgresDB) UpdatePrompt(ctx context.Context, promptID int64, status string) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE prompts SET status = $2 WHERE id = $1`, promptID, status)
	if err != nil {
		return fmt.Errorf("failed to update prompt %d: %w", promptID, err)
	}
	return nil
}

func (p *PostgresDB) Close() error {
	return p.db.Close()
}
