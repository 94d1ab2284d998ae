package service

import (
	"context"
	"errors"

	"rentfun-backend/internal/domain"
)

// IsRented is a pure function of the token's latest order and the clock.
func (s *marketplaceService) IsRented(ctx context.Context, collection domain.Address, tokenID domain.TokenID) (bool, error) {
	live, err := liveOrder(ctx, s.store, domain.TokenKey{Collection: collection, TokenID: tokenID}, s.clock())
	if err != nil {
		return false, err
	}
	return live != nil, nil
}

// GetRentOrders returns the lender's pending, unclaimed revenue.
func (s *marketplaceService) GetRentOrders(ctx context.Context, lender domain.Address) ([]domain.RentOrder, error) {
	return s.store.ListUnclaimedByLender(ctx, lender)
}

func (s *marketplaceService) TokenDetails(ctx context.Context, lendID int64) (*domain.TokenDetails, error) {
	lend, err := s.store.GetLend(ctx, lendID)
	if err != nil {
		return nil, err
	}
	vault, err := s.store.GetVault(ctx, lend.VaultID)
	if err != nil {
		return nil, err
	}
	latest, err := s.store.LatestOrderForToken(ctx, lend.Key())
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return &domain.TokenDetails{
		Lend:       *lend,
		RentStatus: lend.EffectiveStatus(latest, s.clock()),
		Vault:      *vault,
	}, nil
}

func (s *marketplaceService) GetOrder(ctx context.Context, orderID int64) (*domain.RentOrder, error) {
	return s.store.GetOrder(ctx, orderID)
}

func (s *marketplaceService) TotalRentCount(ctx context.Context) (int64, error) {
	return s.store.CountOrders(ctx)
}

// GetAliveRentals returns the renter's orders on collection that are live now.
func (s *marketplaceService) GetAliveRentals(ctx context.Context, renter, collection domain.Address) ([]domain.RentOrder, error) {
	orders, err := s.store.ListByRenter(ctx, renter, collection)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	alive := make([]domain.RentOrder, 0, len(orders))
	for _, o := range orders {
		if o.IsLive(now) {
			alive = append(alive, o)
		}
	}
	return alive, nil
}
