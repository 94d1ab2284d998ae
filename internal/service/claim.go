package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"rentfun-backend/internal/domain"
	"rentfun-backend/internal/logger"
	"rentfun-backend/internal/metrics"
	"rentfun-backend/internal/repository"
	"rentfun-backend/internal/utils"
)

const (
	RoleLender   = "lender"
	RolePartner  = "partner"
	RoleTreasury = "treasury"
)

// ClaimRentFee pays out every unclaimed order of lender. Orders still
// running are included: their rent was collected up front.
func (s *marketplaceService) ClaimRentFee(ctx context.Context, lender domain.Address) (receipts []domain.ClaimReceipt, err error) {
	logger.EnterMethod("marketplaceService.ClaimRentFee", "lender", lender)
	defer metrics.Observe("claim", time.Now(), &err)

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		orders, err := repos.ListUnclaimedByLender(ctx, lender)
		if err != nil {
			return err
		}
		receipts, err = s.payout(ctx, repos, lender, orders)
		return err
	})
	if err != nil {
		logger.ExitMethodWithError("marketplaceService.ClaimRentFee", err, "lender", lender)
		return nil, err
	}
	logger.ExitMethod("marketplaceService.ClaimRentFee", "lender", lender, "receipts", len(receipts))
	return receipts, nil
}

// ClaimOrder pays out a single order. An order that was already claimed
// yields no receipt.
func (s *marketplaceService) ClaimOrder(ctx context.Context, caller domain.Address, orderID int64) (receipts []domain.ClaimReceipt, err error) {
	logger.EnterMethod("marketplaceService.ClaimOrder", "caller", caller, "orderID", orderID)
	defer metrics.Observe("claim_order", time.Now(), &err)

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		order, err := repos.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Lender != caller {
			return fmt.Errorf("%w: order %d belongs to %s", domain.ErrUnauthorized, orderID, order.Lender)
		}
		if order.Claimed {
			return nil
		}
		receipts, err = s.payout(ctx, repos, order.Lender, []domain.RentOrder{*order})
		return err
	})
	if err != nil {
		logger.ExitMethodWithError("marketplaceService.ClaimOrder", err, "orderID", orderID)
		return nil, err
	}
	logger.ExitMethod("marketplaceService.ClaimOrder", "orderID", orderID, "receipts", len(receipts))
	return receipts, nil
}

func (s *marketplaceService) PendingLenders(ctx context.Context) ([]domain.Address, error) {
	return s.store.ListLendersWithUnclaimed(ctx)
}

type claimGroup struct {
	payment    domain.Address
	collection domain.Address
	orders     []domain.RentOrder
	gross      decimal.Decimal
}

// payout splits the orders' revenue and pays it from escrow. The orders are
// marked claimed before any funds move.
func (s *marketplaceService) payout(ctx context.Context, repos repository.Repositories, lender domain.Address, orders []domain.RentOrder) ([]domain.ClaimReceipt, error) {
	groups := groupOrders(orders)
	if len(groups) == 0 {
		return nil, nil
	}

	member, err := s.isMember(ctx, lender)
	if err != nil {
		return nil, err
	}
	commissionBps := s.params.CommissionBps
	treasury := s.params.Treasury
	if member {
		commissionBps = s.params.MemberCommissionBps
		if !s.params.MemberTreasury.IsZero() {
			treasury = s.params.MemberTreasury
		}
	}

	receipts := make([]domain.ClaimReceipt, 0, len(groups))
	var ids []int64
	for _, g := range groups {
		partner, err := findPartner(ctx, repos, g.collection)
		if err != nil {
			return nil, err
		}
		var shareBps int64
		partnerReceiver := treasury
		if partner != nil && !partner.FeeReceiver.IsZero() {
			shareBps = partner.CommissionShareBps
			partnerReceiver = partner.FeeReceiver
		}

		split, err := utils.SplitRevenue(g.gross, commissionBps, shareBps)
		if err != nil {
			return nil, err
		}

		receipt := domain.ClaimReceipt{
			Lender:        lender,
			Payment:       g.payment,
			Collection:    g.collection,
			Gross:         g.gross,
			Commission:    split.Commission,
			CommissionBps: commissionBps,
			Member:        member,
		}
		for _, leg := range []domain.PayoutLeg{
			{Role: RoleLender, Recipient: lender, Amount: split.Lender},
			{Role: RolePartner, Recipient: partnerReceiver, Amount: split.Partner},
			{Role: RoleTreasury, Recipient: treasury, Amount: split.Treasury},
		} {
			if leg.Amount.IsPositive() {
				receipt.Legs = append(receipt.Legs, leg)
			}
		}
		for _, o := range g.orders {
			receipt.OrderIDs = append(receipt.OrderIDs, o.ID)
			ids = append(ids, o.ID)
		}
		receipts = append(receipts, receipt)
	}

	if err := repos.MarkClaimed(ctx, ids, s.clock()); err != nil {
		return nil, err
	}

	var moves transfers
	for _, receipt := range receipts {
		token, err := s.chain.Token(receipt.Payment)
		if err != nil {
			return nil, moves.revert(ctx, err)
		}
		for _, leg := range receipt.Legs {
			if err := moves.pay(ctx, token, s.params.Operator, leg.Recipient, leg.Amount); err != nil {
				return nil, moves.revert(ctx, err)
			}
		}
	}

	for _, receipt := range receipts {
		for _, leg := range receipt.Legs {
			metrics.AddPayout(receipt.Payment, leg.Role, leg.Amount)
		}
		logger.Info("Rent fee claimed",
			"lender", lender,
			"payment", receipt.Payment,
			"collection", receipt.Collection,
			"orders", len(receipt.OrderIDs),
			"gross", receipt.Gross,
			"member", member)
	}
	return receipts, nil
}

func (l *Ledger) isMember(ctx context.Context, addr domain.Address) (bool, error) {
	if l.gate == nil {
		return false, nil
	}
	return l.gate.IsMember(ctx, addr)
}

// groupOrders buckets unclaimed orders by payment token and collection, in
// a deterministic order.
func groupOrders(orders []domain.RentOrder) []*claimGroup {
	type groupKey struct{ payment, collection domain.Address }
	index := make(map[groupKey]*claimGroup)
	var groups []*claimGroup
	for _, o := range orders {
		if o.Claimed {
			continue
		}
		k := groupKey{o.Payment, o.Collection}
		g, ok := index[k]
		if !ok {
			g = &claimGroup{payment: o.Payment, collection: o.Collection}
			index[k] = g
			groups = append(groups, g)
		}
		g.orders = append(g.orders, o)
		g.gross = g.gross.Add(o.Amount)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].payment != groups[j].payment {
			return groups[i].payment < groups[j].payment
		}
		return groups[i].collection < groups[j].collection
	})
	return groups
}
