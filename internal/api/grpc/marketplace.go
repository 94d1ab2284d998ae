package grpc

import (
	"context"

	"google.golang.org/grpc"

	"rentfun-backend/internal/service"
)

// MarketplaceServer is the RPC surface of the rental ledger.
type MarketplaceServer interface {
	Lend(context.Context, *LendRequest) (*LendResponse, error)
	Rent(context.Context, *RentRequest) (*OrdersResponse, error)
	CancelLend(context.Context, *TokenRequest) (*Empty, error)
	ClaimRentFee(context.Context, *Empty) (*ClaimResponse, error)
	ClaimOrder(context.Context, *OrderRequest) (*ClaimResponse, error)
	IsRented(context.Context, *TokenRequest) (*IsRentedResponse, error)
	GetRentOrders(context.Context, *LenderRequest) (*OrdersResponse, error)
	TokenDetails(context.Context, *TokenDetailsRequest) (*TokenDetailsResponse, error)
	GetOrder(context.Context, *OrderRequest) (*OrderResponse, error)
	TotalRentCount(context.Context, *Empty) (*CountResponse, error)
	GetAliveRentals(context.Context, *AliveRentalsRequest) (*OrdersResponse, error)
}

type MarketplaceHandler struct {
	marketSvc service.MarketplaceService
}

func NewMarketplaceHandler(marketSvc service.MarketplaceService) *MarketplaceHandler {
	return &MarketplaceHandler{marketSvc: marketSvc}
}

const marketplaceService = "MarketplaceService"

// RegisterMarketplaceServer registers h on s.
func RegisterMarketplaceServer(s grpc.ServiceRegistrar, h *MarketplaceHandler) {
	s.RegisterService(serviceDesc(marketplaceService, (*MarketplaceServer)(nil),
		unary(marketplaceService, "Lend", (*MarketplaceHandler).Lend),
		unary(marketplaceService, "Rent", (*MarketplaceHandler).Rent),
		unary(marketplaceService, "CancelLend", (*MarketplaceHandler).CancelLend),
		unary(marketplaceService, "ClaimRentFee", (*MarketplaceHandler).ClaimRentFee),
		unary(marketplaceService, "ClaimOrder", (*MarketplaceHandler).ClaimOrder),
		unary(marketplaceService, "IsRented", (*MarketplaceHandler).IsRented),
		unary(marketplaceService, "GetRentOrders", (*MarketplaceHandler).GetRentOrders),
		unary(marketplaceService, "TokenDetails", (*MarketplaceHandler).TokenDetails),
		unary(marketplaceService, "GetOrder", (*MarketplaceHandler).GetOrder),
		unary(marketplaceService, "TotalRentCount", (*MarketplaceHandler).TotalRentCount),
		unary(marketplaceService, "GetAliveRentals", (*MarketplaceHandler).GetAliveRentals),
	), h)
}

func (h *MarketplaceHandler) Lend(ctx context.Context, req *LendRequest) (*LendResponse, error) {
	caller, err := GetCallerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]service.LendRequest, 0, len(req.Items))
	for _, item := range req.Items {
		item, err := normalizeLend(item)
		if err != nil {
			return nil, toStatus(err)
		}
		items = append(items, item)
	}
	lends, err := h.marketSvc.Lend(ctx, caller, items)
	if err != nil {
		return nil, toStatus(err)
	}
	return &LendResponse{Lends: lends}, nil
}

func (h *MarketplaceHandler) Rent(ctx context.Context, req *RentRequest) (*OrdersResponse, error) {
	caller, err := GetCallerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	bids := make([]service.RentRequest, 0, len(req.Items))
	for _, item := range req.Items {
		item, err := normalizeRent(item)
		if err != nil {
			return nil, toStatus(err)
		}
		bids = append(bids, item)
	}
	orders, err := h.marketSvc.Rent(ctx, caller, bids, req.Value)
	if err != nil {
		return nil, toStatus(err)
	}
	return &OrdersResponse{Orders: orders}, nil
}

func (h *MarketplaceHandler) CancelLend(ctx context.Context, req *TokenRequest) (*Empty, error) {
	caller, err := GetCallerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	collection, err := address("collection", req.Collection)
	if err != nil {
		return nil, toStatus(err)
	}
	if err := h.marketSvc.CancelLend(ctx, caller, collection, req.TokenID); err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

func (h *MarketplaceHandler) ClaimRentFee(ctx context.Context, _ *Empty) (*ClaimResponse, error) {
	caller, err := GetCallerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	receipts, err := h.marketSvc.ClaimRentFee(ctx, caller)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ClaimResponse{Receipts: receipts}, nil
}

func (h *MarketplaceHandler) ClaimOrder(ctx context.Context, req *OrderRequest) (*ClaimResponse, error) {
	caller, err := GetCallerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	receipts, err := h.marketSvc.ClaimOrder(ctx, caller, req.OrderID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ClaimResponse{Receipts: receipts}, nil
}

func (h *MarketplaceHandler) IsRented(ctx context.Context, req *TokenRequest) (*IsRentedResponse, error) {
	collection, err := address("collection", req.Collection)
	if err != nil {
		return nil, toStatus(err)
	}
	rented, err := h.marketSvc.IsRented(ctx, collection, req.TokenID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &IsRentedResponse{Rented: rented}, nil
}

func (h *MarketplaceHandler) GetRentOrders(ctx context.Context, req *LenderRequest) (*OrdersResponse, error) {
	lender, err := address("lender", req.Lender)
	if err != nil {
		return nil, toStatus(err)
	}
	orders, err := h.marketSvc.GetRentOrders(ctx, lender)
	if err != nil {
		return nil, toStatus(err)
	}
	return &OrdersResponse{Orders: orders}, nil
}

func (h *MarketplaceHandler) TokenDetails(ctx context.Context, req *TokenDetailsRequest) (*TokenDetailsResponse, error) {
	details, err := h.marketSvc.TokenDetails(ctx, req.LendID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &TokenDetailsResponse{Details: details}, nil
}

func (h *MarketplaceHandler) GetOrder(ctx context.Context, req *OrderRequest) (*OrderResponse, error) {
	order, err := h.marketSvc.GetOrder(ctx, req.OrderID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &OrderResponse{Order: order}, nil
}

func (h *MarketplaceHandler) TotalRentCount(ctx context.Context, _ *Empty) (*CountResponse, error) {
	count, err := h.marketSvc.TotalRentCount(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &CountResponse{Count: count}, nil
}

func (h *MarketplaceHandler) GetAliveRentals(ctx context.Context, req *AliveRentalsRequest) (*OrdersResponse, error) {
	renter, err := address("renter", req.Renter)
	if err != nil {
		return nil, toStatus(err)
	}
	collection, err := address("collection", req.Collection)
	if err != nil {
		return nil, toStatus(err)
	}
	orders, err := h.marketSvc.GetAliveRentals(ctx, renter, collection)
	if err != nil {
		return nil, toStatus(err)
	}
	return &OrdersResponse{Orders: orders}, nil
}
