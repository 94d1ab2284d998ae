package grpc

import (
	"context"

	"google.golang.org/grpc"

	"rentfun-backend/internal/domain"
	"rentfun-backend/internal/service"
)

type PartnerServer interface {
	SetPartner(context.Context, *domain.PartnerConfig) (*PartnerResponse, error)
	GetPartner(context.Context, *CollectionRequest) (*PartnerResponse, error)
	IsPaymentAccepted(context.Context, *PaymentRequest) (*AcceptedResponse, error)
}

type PartnerHandler struct {
	partnerSvc service.PartnerService
}

func NewPartnerHandler(partnerSvc service.PartnerService) *PartnerHandler {
	return &PartnerHandler{partnerSvc: partnerSvc}
}

const partnerService = "PartnerService"

func RegisterPartnerServer(s grpc.ServiceRegistrar, h *PartnerHandler) {
	s.RegisterService(serviceDesc(partnerService, (*PartnerServer)(nil),
		unary(partnerService, "SetPartner", (*PartnerHandler).SetPartner),
		unary(partnerService, "GetPartner", (*PartnerHandler).GetPartner),
		unary(partnerService, "IsPaymentAccepted", (*PartnerHandler).IsPaymentAccepted),
	), h)
}

type PartnerResponse struct {
	Partner *domain.PartnerConfig `json:"partner"`
}

func (h *PartnerHandler) SetPartner(ctx context.Context, req *domain.PartnerConfig) (*PartnerResponse, error) {
	caller, err := GetCallerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	cfg, err := normalizePartner(*req)
	if err != nil {
		return nil, toStatus(err)
	}
	partner, err := h.partnerSvc.SetPartner(ctx, caller, cfg)
	if err != nil {
		return nil, toStatus(err)
	}
	return &PartnerResponse{Partner: partner}, nil
}

func (h *PartnerHandler) GetPartner(ctx context.Context, req *CollectionRequest) (*PartnerResponse, error) {
	collection, err := address("collection", req.Collection)
	if err != nil {
		return nil, toStatus(err)
	}
	partner, err := h.partnerSvc.GetPartner(ctx, collection)
	if err != nil {
		return nil, toStatus(err)
	}
	return &PartnerResponse{Partner: partner}, nil
}

func (h *PartnerHandler) IsPaymentAccepted(ctx context.Context, req *PaymentRequest) (*AcceptedResponse, error) {
	collection, err := address("collection", req.Collection)
	if err != nil {
		return nil, toStatus(err)
	}
	token, err := optionalAddress("token", req.Token)
	if err != nil {
		return nil, toStatus(err)
	}
	accepted, err := h.partnerSvc.IsPaymentAccepted(ctx, collection, token)
	if err != nil {
		return nil, toStatus(err)
	}
	return &AcceptedResponse{Accepted: accepted}, nil
}
