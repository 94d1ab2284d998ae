package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rentfun-backend/internal/chain"
	"rentfun-backend/internal/domain"
	"rentfun-backend/internal/logger"
	"rentfun-backend/internal/metrics"
	"rentfun-backend/internal/repository"
)

type vaultService struct {
	*Ledger
}

func NewVaultService(l *Ledger) VaultService {
	return &vaultService{Ledger: l}
}

func (s *vaultService) CreateVault(ctx context.Context, owner domain.Address) (vault *domain.Vault, err error) {
	defer metrics.Observe("create_vault", time.Now(), &err)
	if owner.IsZero() {
		return nil, fmt.Errorf("%w: vault owner is required", domain.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		vault, err = s.newVault(ctx, repos, owner)
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Vault created", "owner", owner, "vaultID", vault.ID, "address", vault.Address)
	return vault, nil
}

// newVault allocates the owner's next vault slot.
func (l *Ledger) newVault(ctx context.Context, repos repository.Repositories, owner domain.Address) (*domain.Vault, error) {
	existing, err := repos.ListVaultsByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	slot := len(existing)
	vault := &domain.Vault{
		Owner:     owner,
		Address:   domain.DeriveVaultAddress(l.params.Operator, owner, slot),
		Slot:      slot,
		CreatedOn: l.clock(),
	}
	if err := repos.CreateVault(ctx, vault); err != nil {
		return nil, err
	}
	return vault, nil
}

func (s *vaultService) GetVaults(ctx context.Context, owner domain.Address) ([]domain.Vault, error) {
	return s.store.ListVaultsByOwner(ctx, owner)
}

// Deposit moves a token owned by the vault owner into the vault. The
// marketplace operator moves it, so the owner must have approved it.
func (s *vaultService) Deposit(ctx context.Context, caller domain.Address, vaultID int64, collection domain.Address, tokenID domain.TokenID) (err error) {
	logger.EnterMethod("vaultService.Deposit", "caller", caller, "vaultID", vaultID, "collection", collection, "tokenID", tokenID)
	defer metrics.Observe("deposit", time.Now(), &err)

	s.mu.Lock()
	defer s.mu.Unlock()

	vault, err := s.store.GetVault(ctx, vaultID)
	if err != nil {
		logger.ExitMethodWithError("vaultService.Deposit", err, "vaultID", vaultID)
		return err
	}
	if caller != vault.Owner && caller != s.params.Operator {
		err = fmt.Errorf("%w: vault %d belongs to %s", domain.ErrUnauthorized, vaultID, vault.Owner)
		logger.ExitMethodWithError("vaultService.Deposit", err, "vaultID", vaultID)
		return err
	}

	nft, err := s.collection(collection)
	if err != nil {
		return err
	}
	if err := s.checkCustodian(ctx, nft, vault.Owner, tokenID); err != nil {
		logger.ExitMethodWithError("vaultService.Deposit", err, "vaultID", vaultID)
		return err
	}

	var moves transfers
	if err := moves.moveNFT(ctx, nft, s.params.Operator, vault.Owner, vault.Address, tokenID); err != nil {
		err = custodyError(err)
		logger.ExitMethodWithError("vaultService.Deposit", err, "vaultID", vaultID)
		return err
	}
	logger.ExitMethod("vaultService.Deposit", "vaultID", vaultID, "tokenID", tokenID)
	return nil
}

// Release transfers a token out of the vault. Liveness is evaluated now, so
// a rental that has run out no longer blocks release. Any idle listing of
// the token is cleared.
func (s *vaultService) Release(ctx context.Context, caller domain.Address, vaultID int64, collection domain.Address, tokenID domain.TokenID, to domain.Address) (err error) {
	logger.EnterMethod("vaultService.Release", "caller", caller, "vaultID", vaultID, "collection", collection, "tokenID", tokenID)
	defer metrics.Observe("release", time.Now(), &err)

	s.mu.Lock()
	defer s.mu.Unlock()

	nft, err := s.collection(collection)
	if err != nil {
		return err
	}
	now := s.clock()
	key := domain.TokenKey{Collection: collection, TokenID: tokenID}

	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		vault, err := repos.GetVault(ctx, vaultID)
		if err != nil {
			return err
		}
		if caller != vault.Owner {
			return fmt.Errorf("%w: vault %d belongs to %s", domain.ErrUnauthorized, vaultID, vault.Owner)
		}
		if to.IsZero() {
			to = vault.Owner
		}

		live, err := liveOrder(ctx, repos, key, now)
		if err != nil {
			return err
		}
		if live != nil {
			return fmt.Errorf("%w: %s until %s", domain.ErrStillRented, key, live.EndTime.Format(time.RFC3339))
		}

		lend, err := repos.GetLendByToken(ctx, key)
		switch {
		case errors.Is(err, domain.ErrNotFound):
		case err != nil:
			return err
		case lend.VaultID == vault.ID && lend.Status == domain.LendStatusListed:
			lend.Status = domain.LendStatusIdle
			lend.UpdatedOn = now
			if err := repos.UpdateLend(ctx, lend); err != nil {
				return err
			}
		}

		var moves transfers
		if err := moves.moveNFT(ctx, nft, vault.Address, vault.Address, to, tokenID); err != nil {
			return custodyError(err)
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("vaultService.Release", err, "vaultID", vaultID, "tokenID", tokenID)
		return err
	}
	logger.ExitMethod("vaultService.Release", "vaultID", vaultID, "tokenID", tokenID, "to", to)
	return nil
}

func (l *Ledger) collection(addr domain.Address) (chain.NFT, error) {
	nft, err := l.chain.Collection(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidArgument, err)
	}
	return nft, nil
}

// checkCustodian verifies owner holds tokenID and has approved the
// marketplace operator to move it.
func (l *Ledger) checkCustodian(ctx context.Context, nft chain.NFT, owner domain.Address, tokenID domain.TokenID) error {
	current, err := nft.OwnerOf(ctx, tokenID)
	if err != nil {
		return custodyError(err)
	}
	if current != owner {
		return fmt.Errorf("%w: %w", domain.ErrOwnership, chain.ErrNotOwnerOrApproved)
	}
	ok, err := chain.CanTransfer(ctx, nft, owner, l.params.Operator, tokenID)
	if err != nil {
		return custodyError(err)
	}
	if !ok {
		return fmt.Errorf("%w: %w", domain.ErrOwnership, chain.ErrNotOwnerOrApproved)
	}
	return nil
}

// liveOrder returns the token's latest order if it is still running at now.
func liveOrder(ctx context.Context, repos repository.RentOrderRepository, key domain.TokenKey, now time.Time) (*domain.RentOrder, error) {
	latest, err := repos.LatestOrderForToken(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !latest.IsLive(now) {
		return nil, nil
	}
	return latest, nil
}
