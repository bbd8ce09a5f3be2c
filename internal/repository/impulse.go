package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/pausely/pause-server-go/internal/model"
)

type ImpulseTypeRepository interface {
	List(ctx context.Context) ([]model.ImpulseType, error)
	FindByID(ctx context.Context, id string) (*model.ImpulseType, error)
}

type impulseTypeRepo struct {
	db *sqlx.DB
}

func NewImpulseTypeRepository(db *sqlx.DB) ImpulseTypeRepository {
	return &impulseTypeRepo{db: db}
}

func (r *impulseTypeRepo) List(ctx context.Context) ([]model.ImpulseType, error) {
	var types []model.ImpulseType
	err := r.db.SelectContext(ctx, &types, `
		SELECT * FROM impulse_types
		WHERE deleted_at IS NULL
		ORDER BY name ASC
	`)
	return types, err
}

func (r *impulseTypeRepo) FindByID(ctx context.Context, id string) (*model.ImpulseType, error) {
	var it model.ImpulseType
	err := r.db.GetContext(ctx, &it, `
		SELECT * FROM impulse_types WHERE id = $1 AND deleted_at IS NULL
	`, id)
	return HandleNotFound(&it, err)
}
