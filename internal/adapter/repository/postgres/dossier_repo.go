package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trychlos/openbook-sub016/internal/domain"
)

// DossierRepository implements usecase.DossierRepository. The dossier table
// holds a single row describing the book and its current exercise.
type DossierRepository struct {
	pool *pgxpool.Pool
}

// NewDossierRepository creates a new DossierRepository.
func NewDossierRepository(pool *pgxpool.Pool) *DossierRepository {
	return &DossierRepository{pool: pool}
}

// Get retrieves the dossier row.
func (r *DossierRepository) Get(ctx context.Context) (*domain.Dossier, error) {
	var (
		dossier    domain.Dossier
		begin, end pgtype.Date
	)

	err := r.pool.QueryRow(ctx, `
		SELECT label, exercise_begin, exercise_end
		FROM dossier
		LIMIT 1`,
	).Scan(&dossier.Label, &begin, &end)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDossierNotFound
		}

		return nil, err
	}

	dossier.ExerciseBegin = pgDateToDate(begin)
	dossier.ExerciseEnd = pgDateToDate(end)

	return &dossier, nil
}
