package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/critterbound/internal/game/creature"
)

// ErrCreatureNotFound is returned when a creature lookup or update matches no row.
var ErrCreatureNotFound = errors.New("creature not found")

// ErrCreatureExists is returned when inserting a record whose ID is taken.
var ErrCreatureExists = errors.New("creature already exists")

// CreatureRepository persists creature records. Fields are written verbatim;
// records read back pass through creature.Record.Normalize.
type CreatureRepository struct {
	db *pgxpool.Pool
}

// NewCreatureRepository creates a CreatureRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewCreatureRepository(db *pgxpool.Pool) *CreatureRepository {
	return &CreatureRepository{db: db}
}

const creatureColumns = `id, species_id, nickname, level, xp, bond,
	max_hp, atk, def, spd, current_hp, status, moves`

func scanCreature(row pgx.Row) (*creature.Record, error) {
	var rec creature.Record
	var status string
	if err := row.Scan(
		&rec.ID, &rec.SpeciesID, &rec.Nickname, &rec.Level, &rec.XP, &rec.Bond,
		&rec.Stats.HP, &rec.Stats.Atk, &rec.Stats.Def, &rec.Stats.Spd,
		&rec.CurrentHP, &status, &rec.Moves,
	); err != nil {
		return nil, err
	}
	rec.Status = creature.Status(status)
	rec.Normalize()
	return &rec, nil
}

// Create inserts rec for trainerID. An empty rec.ID is filled with a new UUID.
//
// Precondition: rec must be non-nil; trainerID must reference an existing trainer.
// Postcondition: rec.ID is set; returns ErrCreatureExists on a duplicate ID.
func (r *CreatureRepository) Create(ctx context.Context, trainerID int64, rec *creature.Record) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO creatures
			(id, trainer_id, species_id, nickname, level, xp, bond,
			 max_hp, atk, def, spd, current_hp, status, moves)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		rec.ID, trainerID, rec.SpeciesID, rec.Nickname, rec.Level, rec.XP, rec.Bond,
		rec.Stats.HP, rec.Stats.Atk, rec.Stats.Def, rec.Stats.Spd,
		rec.CurrentHP, string(rec.Status), movesOf(rec),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrCreatureExists
		}
		return fmt.Errorf("inserting creature: %w", err)
	}
	return nil
}

// GetByID retrieves a creature record.
//
// Postcondition: Returns a normalized Record or ErrCreatureNotFound.
func (r *CreatureRepository) GetByID(ctx context.Context, id string) (*creature.Record, error) {
	rec, err := scanCreature(r.db.QueryRow(ctx,
		`SELECT `+creatureColumns+` FROM creatures WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCreatureNotFound
		}
		return nil, fmt.Errorf("querying creature: %w", err)
	}
	return rec, nil
}

// ListByTrainer returns the trainer's creatures in the order they were created.
//
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *CreatureRepository) ListByTrainer(ctx context.Context, trainerID int64) ([]*creature.Record, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+creatureColumns+` FROM creatures
		 WHERE trainer_id = $1 ORDER BY created_at ASC, id ASC`,
		trainerID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing creatures: %w", err)
	}
	defer rows.Close()

	out := make([]*creature.Record, 0)
	for rows.Next() {
		rec, err := scanCreature(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning creature row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Save writes every mutable field of rec in a single statement.
//
// Postcondition: Returns ErrCreatureNotFound if no row was updated.
func (r *CreatureRepository) Save(ctx context.Context, rec *creature.Record) error {
	return saveCreature(ctx, r.db, rec)
}

// SaveAll writes every record in one transaction, so a battle's write-back
// either lands completely or not at all.
//
// Postcondition: On error no record is changed.
func (r *CreatureRepository) SaveAll(ctx context.Context, recs []*creature.Record) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, rec := range recs {
		if err := saveCreature(ctx, tx, rec); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing creature save: %w", err)
	}
	return nil
}

// Delete releases a creature.
//
// Postcondition: Returns ErrCreatureNotFound if no row was deleted.
func (r *CreatureRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM creatures WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting creature: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCreatureNotFound
	}
	return nil
}

// execer is satisfied by both *pgxpool.Pool and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func saveCreature(ctx context.Context, db execer, rec *creature.Record) error {
	tag, err := db.Exec(ctx, `
		UPDATE creatures SET
			species_id = $2, nickname = $3, level = $4, xp = $5, bond = $6,
			max_hp = $7, atk = $8, def = $9, spd = $10,
			current_hp = $11, status = $12, moves = $13, updated_at = NOW()
		WHERE id = $1`,
		rec.ID, rec.SpeciesID, rec.Nickname, rec.Level, rec.XP, rec.Bond,
		rec.Stats.HP, rec.Stats.Atk, rec.Stats.Def, rec.Stats.Spd,
		rec.CurrentHP, string(rec.Status), movesOf(rec),
	)
	if err != nil {
		return fmt.Errorf("saving creature %s: %w", rec.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCreatureNotFound
	}
	return nil
}

// movesOf never returns nil so the NOT NULL moves column is always satisfied.
func movesOf(rec *creature.Record) []string {
	if rec.Moves == nil {
		return []string{}
	}
	return rec.Moves
}
