package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rentfun-backend/internal/domain"
	"rentfun-backend/internal/logger"
	"rentfun-backend/internal/metrics"
	"rentfun-backend/internal/repository"
	"rentfun-backend/internal/utils"
)

type partnerService struct {
	*Ledger
}

func NewPartnerService(l *Ledger) PartnerService {
	return &partnerService{Ledger: l}
}

// SetPartner replaces the whole configuration of a collection.
func (s *partnerService) SetPartner(ctx context.Context, caller domain.Address, partner domain.PartnerConfig) (result *domain.PartnerConfig, err error) {
	defer metrics.Observe("set_partner", time.Now(), &err)

	if caller != s.params.Admin {
		return nil, fmt.Errorf("%w: only the platform admin may configure partners", domain.ErrUnauthorized)
	}
	if partner.Collection.IsZero() {
		return nil, fmt.Errorf("%w: collection is required", domain.ErrInvalidArgument)
	}
	if err := utils.ValidateBps("commission share", partner.CommissionShareBps); err != nil {
		return nil, err
	}
	if _, err := s.collection(partner.Collection); err != nil {
		return nil, err
	}
	for _, token := range partner.AcceptedPayments {
		if _, err := s.chain.Token(token); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidArgument, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	partner.UpdatedOn = s.clock()
	if err := s.store.UpsertPartner(ctx, &partner); err != nil {
		return nil, err
	}
	logger.Info("Partner configured",
		"collection", partner.Collection,
		"feeReceiver", partner.FeeReceiver,
		"shareBps", partner.CommissionShareBps,
		"acceptedPayments", len(partner.AcceptedPayments))
	return &partner, nil
}

func (s *partnerService) GetPartner(ctx context.Context, collection domain.Address) (*domain.PartnerConfig, error) {
	return s.store.GetPartner(ctx, collection)
}

func (s *partnerService) IsPaymentAccepted(ctx context.Context, collection, token domain.Address) (bool, error) {
	partner, err := findPartner(ctx, s.store, collection)
	if err != nil {
		return false, err
	}
	return partner.Accepts(token), nil
}

// findPartner returns nil for an unconfigured collection.
func findPartner(ctx context.Context, repos repository.PartnerRepository, collection domain.Address) (*domain.PartnerConfig, error) {
	partner, err := repos.GetPartner(ctx, collection)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return partner, err
}
