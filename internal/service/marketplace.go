package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"rentfun-backend/internal/chain"
	"rentfun-backend/internal/domain"
	"rentfun-backend/internal/logger"
	"rentfun-backend/internal/metrics"
	"rentfun-backend/internal/repository"
	"rentfun-backend/internal/utils"
)

type marketplaceService struct {
	*Ledger
}

func NewMarketplaceService(l *Ledger) MarketplaceService {
	return &marketplaceService{Ledger: l}
}

type plannedLend struct {
	req      LendRequest
	nft      chain.NFT
	owner    domain.Address
	vault    *domain.Vault // nil until the default vault is created
	held     bool          // already in one of the lender's vaults
	existing *domain.LendRecord
}

// Lend lists a batch of tokens. Every entry is validated before anything is
// written, and custody moves happen only after the records are stored.
func (s *marketplaceService) Lend(ctx context.Context, caller domain.Address, requests []LendRequest) (records []domain.LendRecord, err error) {
	logger.EnterMethod("marketplaceService.Lend", "caller", caller, "count", len(requests))
	defer metrics.Observe("lend", time.Now(), &err)

	if len(requests) == 0 {
		return nil, fmt.Errorf("%w: empty lend batch", domain.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()

	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		plans := make([]*plannedLend, 0, len(requests))
		seen := make(map[domain.TokenKey]bool, len(requests))
		for i, req := range requests {
			if req.Payment.IsZero() {
				req.Payment = domain.ZeroAddress
			}
			key := domain.TokenKey{Collection: req.Collection, TokenID: req.TokenID}
			if seen[key] {
				return fmt.Errorf("lend %d: %w: %s appears twice in batch", i, domain.ErrInvalidArgument, key)
			}
			seen[key] = true

			plan, err := s.planLend(ctx, repos, caller, req, now)
			if err != nil {
				return fmt.Errorf("lend %d: %w", i, err)
			}
			plans = append(plans, plan)
		}

		var defaultVault *domain.Vault
		records = make([]domain.LendRecord, 0, len(plans))
		for _, plan := range plans {
			if plan.vault == nil {
				if defaultVault == nil {
					v, err := s.newVault(ctx, repos, caller)
					if err != nil {
						return err
					}
					defaultVault = v
				}
				plan.vault = defaultVault
			}

			record, err := s.storeLend(ctx, repos, caller, plan, now)
			if err != nil {
				return err
			}
			records = append(records, *record)
		}

		var moves transfers
		for _, plan := range plans {
			if plan.held {
				continue
			}
			if err := moves.moveNFT(ctx, plan.nft, s.params.Operator, plan.owner, plan.vault.Address, plan.req.TokenID); err != nil {
				return moves.revert(ctx, custodyError(err))
			}
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("marketplaceService.Lend", err, "caller", caller)
		return nil, err
	}
	logger.ExitMethod("marketplaceService.Lend", "caller", caller, "count", len(records))
	return records, nil
}

func (s *marketplaceService) planLend(ctx context.Context, repos repository.Repositories, caller domain.Address, req LendRequest, now time.Time) (*plannedLend, error) {
	if !req.UnitFee.IsPositive() {
		return nil, fmt.Errorf("%w: unit fee must be positive", domain.ErrInvalidArgument)
	}
	if err := utils.ValidateBps("day discount", req.DayDiscountBps); err != nil {
		return nil, err
	}
	if err := utils.ValidateBps("week discount", req.WeekDiscountBps); err != nil {
		return nil, err
	}
	if req.MaxEndTime != nil && !req.MaxEndTime.After(now) {
		return nil, fmt.Errorf("%w: max end time is in the past", domain.ErrInvalidArgument)
	}

	nft, err := s.collection(req.Collection)
	if err != nil {
		return nil, err
	}
	owner, err := nft.OwnerOf(ctx, req.TokenID)
	if err != nil {
		return nil, custodyError(err)
	}
	vaults, err := repos.ListVaultsByOwner(ctx, caller)
	if err != nil {
		return nil, err
	}
	plan := &plannedLend{req: req, nft: nft, owner: owner}

	for i := range vaults {
		if vaults[i].Address == owner {
			plan.vault = &vaults[i]
			plan.held = true
			break
		}
	}
	if plan.held {
		if req.VaultID != 0 && req.VaultID != plan.vault.ID {
			return nil, fmt.Errorf("%w: token is held by vault %d", domain.ErrInvalidArgument, plan.vault.ID)
		}
	} else {
		if owner != caller {
			approved, err := chain.CanTransfer(ctx, nft, owner, caller, req.TokenID)
			if err != nil {
				return nil, custodyError(err)
			}
			if !approved {
				return nil, fmt.Errorf("%w: %w", domain.ErrOwnership, chain.ErrNotOwnerOrApproved)
			}
		}
		if err := s.checkCustodian(ctx, nft, owner, req.TokenID); err != nil {
			return nil, err
		}
	}

	partner, err := findPartner(ctx, repos, req.Collection)
	if err != nil {
		return nil, err
	}
	if !partner.Accepts(req.Payment) {
		return nil, fmt.Errorf("%w: %s for %s", domain.ErrUnsupportedPayment, req.Payment, req.Collection)
	}

	key := domain.TokenKey{Collection: req.Collection, TokenID: req.TokenID}
	existing, err := repos.GetLendByToken(ctx, key)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		existing = nil
	case err != nil:
		return nil, err
	case existing.Status == domain.LendStatusListed:
		return nil, fmt.Errorf("%w: %s is already listed", domain.ErrInvalidArgument, key)
	}
	live, err := liveOrder(ctx, repos, key, now)
	if err != nil {
		return nil, err
	}
	if live != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrStillRented, key)
	}

	plan.existing = existing

	switch {
	case plan.held:
	case req.VaultID != 0:
		vault, err := repos.GetVault(ctx, req.VaultID)
		if err != nil {
			return nil, err
		}
		if vault.Owner != caller {
			return nil, fmt.Errorf("%w: vault %d belongs to %s", domain.ErrUnauthorized, vault.ID, vault.Owner)
		}
		plan.vault = vault
	case len(vaults) > 0:
		plan.vault = &vaults[0]
	}
	return plan, nil
}

func (s *marketplaceService) storeLend(ctx context.Context, repos repository.Repositories, lender domain.Address, plan *plannedLend, now time.Time) (*domain.LendRecord, error) {
	record := plan.existing
	if record == nil {
		record = &domain.LendRecord{
			Collection: plan.req.Collection,
			TokenID:    plan.req.TokenID,
			CreatedOn:  now,
		}
	}
	record.Lender = lender
	record.VaultID = plan.vault.ID
	record.Payment = plan.req.Payment
	record.UnitFee = plan.req.UnitFee
	record.DayDiscountBps = plan.req.DayDiscountBps
	record.WeekDiscountBps = plan.req.WeekDiscountBps
	record.MaxEndTime = plan.req.MaxEndTime
	record.Status = domain.LendStatusListed
	record.UpdatedOn = now

	if plan.existing != nil {
		return record, repos.UpdateLend(ctx, record)
	}
	return record, repos.CreateLend(ctx, record)
}

type plannedRent struct {
	lend  *domain.LendRecord
	quote utils.FeeQuote
}

// Rent books a batch of bids. The listing and liveness checks run in the
// same critical section that creates the orders, so of two racing renters
// exactly one wins.
func (s *marketplaceService) Rent(ctx context.Context, caller domain.Address, bids []RentRequest, attached decimal.Decimal) (orders []domain.RentOrder, err error) {
	logger.EnterMethod("marketplaceService.Rent", "caller", caller, "count", len(bids), "attached", attached)
	defer metrics.Observe("rent", time.Now(), &err)

	if len(bids) == 0 {
		return nil, fmt.Errorf("%w: empty rent batch", domain.ErrInvalidArgument)
	}
	if attached.IsNegative() {
		return nil, fmt.Errorf("%w: negative attached value", domain.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()

	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		plans := make([]plannedRent, 0, len(bids))
		seen := make(map[domain.TokenKey]bool, len(bids))
		totals := make(map[domain.Address]decimal.Decimal)
		var payments []domain.Address
		for i, bid := range bids {
			if bid.Payment.IsZero() {
				bid.Payment = domain.ZeroAddress
			}
			key := domain.TokenKey{Collection: bid.Collection, TokenID: bid.TokenID}
			if seen[key] {
				return fmt.Errorf("bid %d: %w: %s appears twice in batch", i, domain.ErrNotRentable, key)
			}
			seen[key] = true

			plan, err := s.planRent(ctx, repos, bid, now)
			if err != nil {
				return fmt.Errorf("bid %d: %w", i, err)
			}
			plans = append(plans, plan)

			if _, ok := totals[bid.Payment]; !ok {
				payments = append(payments, bid.Payment)
			}
			totals[bid.Payment] = totals[bid.Payment].Add(plan.quote.Fee)
		}

		tokens, err := s.checkFunds(ctx, caller, payments, totals, attached)
		if err != nil {
			return err
		}

		orders = make([]domain.RentOrder, 0, len(plans))
		for _, plan := range plans {
			order := &domain.RentOrder{
				LendID:     plan.lend.ID,
				Renter:     caller,
				Lender:     plan.lend.Lender,
				Collection: plan.lend.Collection,
				TokenID:    plan.lend.TokenID,
				VaultID:    plan.lend.VaultID,
				Payment:    plan.lend.Payment,
				Amount:     plan.quote.Fee,
				StartTime:  now,
				EndTime:    now.Add(plan.quote.Duration),
			}
			if err := repos.CreateOrder(ctx, order); err != nil {
				return err
			}
			plan.lend.LastOrderID = order.ID
			plan.lend.UpdatedOn = now
			if err := repos.UpdateLend(ctx, plan.lend); err != nil {
				return err
			}
			orders = append(orders, *order)
		}

		var moves transfers
		for _, payment := range payments {
			token := tokens[payment]
			if payment.IsZero() {
				err = moves.pay(ctx, token, caller, s.params.Operator, totals[payment])
			} else {
				err = moves.pull(ctx, token, s.params.Operator, caller, s.params.Operator, totals[payment])
			}
			if err != nil {
				return moves.revert(ctx, paymentError(err))
			}
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("marketplaceService.Rent", err, "caller", caller)
		return nil, err
	}
	for _, order := range orders {
		metrics.RentOrdersTotal.WithLabelValues(order.Payment.String()).Inc()
	}
	logger.ExitMethod("marketplaceService.Rent", "caller", caller, "count", len(orders))
	return orders, nil
}

func (s *marketplaceService) planRent(ctx context.Context, repos repository.Repositories, bid RentRequest, now time.Time) (plannedRent, error) {
	key := domain.TokenKey{Collection: bid.Collection, TokenID: bid.TokenID}
	lend, err := repos.GetLendByToken(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return plannedRent{}, fmt.Errorf("%w: %s is not listed", domain.ErrNotRentable, key)
	}
	if err != nil {
		return plannedRent{}, err
	}
	if lend.Status != domain.LendStatusListed {
		return plannedRent{}, fmt.Errorf("%w: %s is not listed", domain.ErrNotRentable, key)
	}
	live, err := liveOrder(ctx, repos, key, now)
	if err != nil {
		return plannedRent{}, err
	}
	if live != nil {
		return plannedRent{}, fmt.Errorf("%w: %s is rented until %s", domain.ErrNotRentable, key, live.EndTime.Format(time.RFC3339))
	}

	if bid.Payment != lend.Payment {
		return plannedRent{}, fmt.Errorf("%w: %s is priced in %s", domain.ErrUnsupportedPayment, key, lend.Payment)
	}
	partner, err := findPartner(ctx, repos, bid.Collection)
	if err != nil {
		return plannedRent{}, err
	}
	if !partner.Accepts(bid.Payment) {
		return plannedRent{}, fmt.Errorf("%w: %s for %s", domain.ErrUnsupportedPayment, bid.Payment, bid.Collection)
	}

	schedule := utils.FeeSchedule{
		UnitFee:         lend.UnitFee,
		DayDiscountBps:  lend.DayDiscountBps,
		WeekDiscountBps: lend.WeekDiscountBps,
	}
	quote, err := utils.CalculateRentalFee(schedule, bid.Unit, bid.Quantity, s.params.BaseUnit)
	if err != nil {
		return plannedRent{}, err
	}
	if lend.MaxEndTime != nil && now.Add(quote.Duration).After(*lend.MaxEndTime) {
		return plannedRent{}, fmt.Errorf("%w: rental would end after %s", domain.ErrInvalidArgument, lend.MaxEndTime.Format(time.RFC3339))
	}
	return plannedRent{lend: lend, quote: quote}, nil
}

// checkFunds verifies the attached native value equals the native total
// exactly and that the renter can cover every token total.
func (s *marketplaceService) checkFunds(ctx context.Context, renter domain.Address, payments []domain.Address, totals map[domain.Address]decimal.Decimal, attached decimal.Decimal) (map[domain.Address]chain.FungibleToken, error) {
	if native := totals[domain.ZeroAddress]; !native.Equal(attached) {
		return nil, fmt.Errorf("%w: attached %s, rental fee is %s", domain.ErrPaymentMismatch, attached, native)
	}

	tokens := make(map[domain.Address]chain.FungibleToken, len(payments))
	for _, payment := range payments {
		token, err := s.chain.Token(payment)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrUnsupportedPayment, err)
		}
		tokens[payment] = token
		total := totals[payment]

		if !payment.IsZero() {
			allowance, err := token.Allowance(ctx, renter, s.params.Operator)
			if err != nil {
				return nil, err
			}
			if allowance.LessThan(total) {
				return nil, fmt.Errorf("%w: %w", domain.ErrPaymentMismatch, chain.ErrInsufficientAllowance)
			}
		}
		balance, err := token.BalanceOf(ctx, renter)
		if err != nil {
			return nil, err
		}
		if balance.LessThan(total) {
			return nil, fmt.Errorf("%w: %w", domain.ErrPaymentMismatch, chain.ErrInsufficientBalance)
		}
	}
	return tokens, nil
}

// CancelLend takes an idle listing off the market. It never cuts a running
// rental short.
func (s *marketplaceService) CancelLend(ctx context.Context, caller, collection domain.Address, tokenID domain.TokenID) (err error) {
	logger.EnterMethod("marketplaceService.CancelLend", "caller", caller, "collection", collection, "tokenID", tokenID)
	defer metrics.Observe("cancel_lend", time.Now(), &err)

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	key := domain.TokenKey{Collection: collection, TokenID: tokenID}

	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		lend, err := repos.GetLendByToken(ctx, key)
		if err != nil {
			return err
		}
		if caller != lend.Lender {
			vault, err := repos.GetVault(ctx, lend.VaultID)
			if err != nil {
				return err
			}
			if caller != vault.Owner {
				return fmt.Errorf("%w: %s is lent by %s", domain.ErrUnauthorized, key, lend.Lender)
			}
		}
		live, err := liveOrder(ctx, repos, key, now)
		if err != nil {
			return err
		}
		if live != nil {
			return fmt.Errorf("%w: %s until %s", domain.ErrStillRented, key, live.EndTime.Format(time.RFC3339))
		}
		if lend.Status == domain.LendStatusIdle {
			return nil
		}
		lend.Status = domain.LendStatusIdle
		lend.UpdatedOn = now
		return repos.UpdateLend(ctx, lend)
	})
	if err != nil {
		logger.ExitMethodWithError("marketplaceService.CancelLend", err, "tokenID", tokenID)
		return err
	}
	logger.ExitMethod("marketplaceService.CancelLend", "collection", collection, "tokenID", tokenID)
	return nil
}
