package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Trainer owns creature records and carries the world state consulted by
// evolution rules.
type Trainer struct {
	ID         int64
	Name       string
	MapID      string
	StoryFlags []string
	CreatedAt  time.Time
}

// HasFlag reports whether the trainer has reached story flag.
func (t Trainer) HasFlag(flag string) bool {
	for _, f := range t.StoryFlags {
		if f == flag {
			return true
		}
	}
	return false
}

// FlagSet returns the story flags as a set.
func (t Trainer) FlagSet() map[string]bool {
	out := make(map[string]bool, len(t.StoryFlags))
	for _, f := range t.StoryFlags {
		out[f] = true
	}
	return out
}

// ErrTrainerNotFound is returned when a trainer lookup yields no results.
var ErrTrainerNotFound = errors.New("trainer not found")

// ErrTrainerExists is returned when attempting to create a duplicate name.
var ErrTrainerExists = errors.New("trainer already exists")

// TrainerRepository provides trainer persistence operations.
type TrainerRepository struct {
	db *pgxpool.Pool
}

// NewTrainerRepository creates a TrainerRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewTrainerRepository(db *pgxpool.Pool) *TrainerRepository {
	return &TrainerRepository{db: db}
}

const trainerColumns = `id, name, map_id, story_flags, created_at`

func scanTrainer(row pgx.Row) (Trainer, error) {
	var t Trainer
	err := row.Scan(&t.ID, &t.Name, &t.MapID, &t.StoryFlags, &t.CreatedAt)
	return t, err
}

// Create inserts a new trainer.
//
// Precondition: name must be non-empty.
// Postcondition: Returns the created Trainer with ID and CreatedAt set,
// or ErrTrainerExists if the name is taken.
func (r *TrainerRepository) Create(ctx context.Context, name string) (Trainer, error) {
	t, err := scanTrainer(r.db.QueryRow(ctx,
		`INSERT INTO trainers (name) VALUES ($1) RETURNING `+trainerColumns,
		name,
	))
	if err != nil {
		if isDuplicateKeyError(err) {
			return Trainer{}, ErrTrainerExists
		}
		return Trainer{}, fmt.Errorf("inserting trainer: %w", err)
	}
	return t, nil
}

// GetByID retrieves a trainer by primary key.
//
// Postcondition: Returns the Trainer or ErrTrainerNotFound.
func (r *TrainerRepository) GetByID(ctx context.Context, id int64) (Trainer, error) {
	t, err := scanTrainer(r.db.QueryRow(ctx,
		`SELECT `+trainerColumns+` FROM trainers WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Trainer{}, ErrTrainerNotFound
		}
		return Trainer{}, fmt.Errorf("querying trainer: %w", err)
	}
	return t, nil
}

// GetByName retrieves a trainer by name.
//
// Postcondition: Returns the Trainer or ErrTrainerNotFound.
func (r *TrainerRepository) GetByName(ctx context.Context, name string) (Trainer, error) {
	t, err := scanTrainer(r.db.QueryRow(ctx,
		`SELECT `+trainerColumns+` FROM trainers WHERE name = $1`, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Trainer{}, ErrTrainerNotFound
		}
		return Trainer{}, fmt.Errorf("querying trainer: %w", err)
	}
	return t, nil
}

// GetOrCreate returns the trainer called name, creating it when absent.
func (r *TrainerRepository) GetOrCreate(ctx context.Context, name string) (Trainer, error) {
	t, err := r.GetByName(ctx, name)
	if errors.Is(err, ErrTrainerNotFound) {
		t, err = r.Create(ctx, name)
		if errors.Is(err, ErrTrainerExists) {
			return r.GetByName(ctx, name)
		}
	}
	return t, err
}

// SetLocation records the map the trainer is currently on.
//
// Postcondition: Returns ErrTrainerNotFound if no row was updated.
func (r *TrainerRepository) SetLocation(ctx context.Context, trainerID int64, mapID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE trainers SET map_id = $1 WHERE id = $2`, mapID, trainerID)
	if err != nil {
		return fmt.Errorf("updating trainer location: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTrainerNotFound
	}
	return nil
}

// AddStoryFlag marks flag as reached. Adding a flag twice is a no-op.
//
// Postcondition: Returns ErrTrainerNotFound if the trainer does not exist.
func (r *TrainerRepository) AddStoryFlag(ctx context.Context, trainerID int64, flag string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE trainers
		SET story_flags = CASE WHEN $1 = ANY(story_flags) THEN story_flags
		                       ELSE array_append(story_flags, $1) END
		WHERE id = $2`,
		flag, trainerID,
	)
	if err != nil {
		return fmt.Errorf("adding story flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTrainerNotFound
	}
	return nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	// SQLSTATE 23505 is unique_violation.
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
