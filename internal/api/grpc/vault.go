package grpc

import (
	"context"

	"google.golang.org/grpc"

	"rentfun-backend/internal/domain"
	"rentfun-backend/internal/service"
)

type VaultServer interface {
	CreateVault(context.Context, *Empty) (*VaultResponse, error)
	GetVaults(context.Context, *OwnerRequest) (*VaultsResponse, error)
	Deposit(context.Context, *DepositRequest) (*Empty, error)
	Release(context.Context, *ReleaseRequest) (*Empty, error)
}

type VaultHandler struct {
	vaultSvc service.VaultService
}

func NewVaultHandler(vaultSvc service.VaultService) *VaultHandler {
	return &VaultHandler{vaultSvc: vaultSvc}
}

const vaultService = "VaultService"

func RegisterVaultServer(s grpc.ServiceRegistrar, h *VaultHandler) {
	s.RegisterService(serviceDesc(vaultService, (*VaultServer)(nil),
		unary(vaultService, "CreateVault", (*VaultHandler).CreateVault),
		unary(vaultService, "GetVaults", (*VaultHandler).GetVaults),
		unary(vaultService, "Deposit", (*VaultHandler).Deposit),
		unary(vaultService, "Release", (*VaultHandler).Release),
	), h)
}

type VaultResponse struct {
	Vault *domain.Vault `json:"vault"`
}

func (h *VaultHandler) CreateVault(ctx context.Context, _ *Empty) (*VaultResponse, error) {
	caller, err := GetCallerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	vault, err := h.vaultSvc.CreateVault(ctx, caller)
	if err != nil {
		return nil, toStatus(err)
	}
	return &VaultResponse{Vault: vault}, nil
}

func (h *VaultHandler) GetVaults(ctx context.Context, req *OwnerRequest) (*VaultsResponse, error) {
	owner, err := address("owner", req.Owner)
	if err != nil {
		return nil, toStatus(err)
	}
	vaults, err := h.vaultSvc.GetVaults(ctx, owner)
	if err != nil {
		return nil, toStatus(err)
	}
	return &VaultsResponse{Vaults: vaults}, nil
}

func (h *VaultHandler) Deposit(ctx context.Context, req *DepositRequest) (*Empty, error) {
	caller, err := GetCallerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	collection, err := address("collection", req.Collection)
	if err != nil {
		return nil, toStatus(err)
	}
	if err := h.vaultSvc.Deposit(ctx, caller, req.VaultID, collection, req.TokenID); err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

func (h *VaultHandler) Release(ctx context.Context, req *ReleaseRequest) (*Empty, error) {
	caller, err := GetCallerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	collection, err := address("collection", req.Collection)
	if err != nil {
		return nil, toStatus(err)
	}
	to, err := optionalAddress("to", req.To)
	if err != nil {
		return nil, toStatus(err)
	}
	if err := h.vaultSvc.Release(ctx, caller, req.VaultID, collection, req.TokenID, to); err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}
