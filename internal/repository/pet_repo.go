package repository

import (
	"context"

	"github.com/aliattia10/paseo-backend/internal/models"
)

type CreatePetInput struct {
	OwnerID  int64
	Name     string
	Species  string
	Breed    *string
	AgeYears *int
	Size     *string
	Notes    *string
}

type UpdatePetInput struct {
	Name     *string
	Breed    *string
	AgeYears *int
	Size     *string
	Notes    *string
	PhotoURL *string
}

const petColumns = `id, owner_id, name, species, breed, age_years, size, notes, photo_url, created_at, updated_at`

type PetRepository struct {
	db DBTX
}

func NewPetRepository(db DBTX) *PetRepository {
	return &PetRepository{db: db}
}

func (r *PetRepository) Create(ctx context.Context, input CreatePetInput) (*models.Pet, error) {
	query := `
		INSERT INTO pets (owner_id, name, species, breed, age_years, size, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + petColumns

	var pet models.Pet
	err := r.db.QueryRow(ctx, query,
		input.OwnerID,
		input.Name,
		input.Species,
		input.Breed,
		input.AgeYears,
		input.Size,
		input.Notes,
	).Scan(
		&pet.ID,
		&pet.OwnerID,
		&pet.Name,
		&pet.Species,
		&pet.Breed,
		&pet.AgeYears,
		&pet.Size,
		&pet.Notes,
		&pet.PhotoURL,
		&pet.CreatedAt,
		&pet.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &pet, nil
}

func (r *PetRepository) GetByID(ctx context.Context, petID int64) (*models.Pet, error) {
	query := `SELECT ` + petColumns + ` FROM pets WHERE id = $1`

	var pet models.Pet
	err := r.db.QueryRow(ctx, query, petID).Scan(
		&pet.ID,
		&pet.OwnerID,
		&pet.Name,
		&pet.Species,
		&pet.Breed,
		&pet.AgeYears,
		&pet.Size,
		&pet.Notes,
		&pet.PhotoURL,
		&pet.CreatedAt,
		&pet.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &pet, nil
}

func (r *PetRepository) ListByOwnerID(ctx context.Context, ownerID int64) ([]models.Pet, error) {
	query := `SELECT ` + petColumns + ` FROM pets WHERE owner_id = $1 ORDER BY id ASC`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pets := make([]models.Pet, 0)
	for rows.Next() {
		var pet models.Pet
		if err := rows.Scan(
			&pet.ID,
			&pet.OwnerID,
			&pet.Name,
			&pet.Species,
			&pet.Breed,
			&pet.AgeYears,
			&pet.Size,
			&pet.Notes,
			&pet.PhotoURL,
			&pet.CreatedAt,
			&pet.UpdatedAt,
		); err != nil {
			return nil, err
		}
		pets = append(pets, pet)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return pets, nil
}

func (r *PetRepository) UpdatePartial(ctx context.Context, petID int64, input UpdatePetInput) (*models.Pet, error) {
	query := `
		UPDATE pets
		SET name = COALESCE($1, name),
			breed = COALESCE($2, breed),
			age_years = COALESCE($3, age_years),
			size = COALESCE($4, size),
			notes = COALESCE($5, notes),
			photo_url = COALESCE($6, photo_url),
			updated_at = NOW()
		WHERE id = $7
		RETURNING ` + petColumns

	var pet models.Pet
	err := r.db.QueryRow(ctx, query,
		input.Name,
		input.Breed,
		input.AgeYears,
		input.Size,
		input.Notes,
		input.PhotoURL,
		petID,
	).Scan(
		&pet.ID,
		&pet.OwnerID,
		&pet.Name,
		&pet.Species,
		&pet.Breed,
		&pet.AgeYears,
		&pet.Size,
		&pet.Notes,
		&pet.PhotoURL,
		&pet.CreatedAt,
		&pet.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &pet, nil
}

func (r *PetRepository) Delete(ctx context.Context, petID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM pets WHERE id = $1`, petID)
	return err
}
