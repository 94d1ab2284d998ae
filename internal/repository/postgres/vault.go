package postgres

import (
	"context"
	"fmt"

	"rentfun-backend/internal/domain"
	"rentfun-backend/internal/repository"
)

type vaultRepository struct {
	db queryer
}

func NewVaultRepository(db queryer) repository.VaultRepository {
	return &vaultRepository{db: db}
}

func (r *vaultRepository) CreateVault(ctx context.Context, v *domain.Vault) error {
	query := `INSERT INTO vaults (owner, address, slot, created_on) VALUES ($1, $2, $3, $4) RETURNING id`
	return r.db.QueryRowContext(ctx, query, v.Owner, v.Address, v.Slot, v.CreatedOn).Scan(&v.ID)
}

func (r *vaultRepository) GetVault(ctx context.Context, id int64) (*domain.Vault, error) {
	v := &domain.Vault{}
	query := `SELECT id, owner, address, slot, created_on FROM vaults WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&v.ID, &v.Owner, &v.Address, &v.Slot, &v.CreatedOn)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("vault %d", id))
	}
	return v, nil
}

func (r *vaultRepository) ListVaultsByOwner(ctx context.Context, owner domain.Address) ([]domain.Vault, error) {
	query := `SELECT id, owner, address, slot, created_on FROM vaults WHERE owner = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vaults []domain.Vault
	for rows.Next() {
		var v domain.Vault
		if err := rows.Scan(&v.ID, &v.Owner, &v.Address, &v.Slot, &v.CreatedOn); err != nil {
			return nil, err
		}
		vaults = append(vaults, v)
	}
	return vaults, rows.Err()
}
