package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"rentfun-backend/internal/domain"
	"rentfun-backend/internal/membership"
	"rentfun-backend/internal/service"
)

type MembershipServer interface {
	IsMember(context.Context, *AddressRequest) (*MemberResponse, error)
	Mint(context.Context, *MintRequest) (*MintResponse, error)
}

// MembershipMinter issues membership tokens against a merkle proof.
type MembershipMinter interface {
	Mint(ctx context.Context, to domain.Address, proof []membership.Hash) (domain.TokenID, error)
}

type MembershipHandler struct {
	gate   service.MembershipGate
	minter MembershipMinter
}

// NewMembershipHandler accepts a nil minter when whitelist minting is off.
func NewMembershipHandler(gate service.MembershipGate, minter MembershipMinter) *MembershipHandler {
	return &MembershipHandler{gate: gate, minter: minter}
}

const membershipService = "MembershipService"

func RegisterMembershipServer(s grpc.ServiceRegistrar, h *MembershipHandler) {
	s.RegisterService(serviceDesc(membershipService, (*MembershipServer)(nil),
		unary(membershipService, "IsMember", (*MembershipHandler).IsMember),
		unary(membershipService, "Mint", (*MembershipHandler).Mint),
	), h)
}

func (h *MembershipHandler) IsMember(ctx context.Context, req *AddressRequest) (*MemberResponse, error) {
	addr, err := address("address", req.Address)
	if err != nil {
		return nil, toStatus(err)
	}
	if h.gate == nil {
		return &MemberResponse{}, nil
	}
	member, err := h.gate.IsMember(ctx, addr)
	if err != nil {
		return nil, toStatus(err)
	}
	return &MemberResponse{Member: member}, nil
}

func (h *MembershipHandler) Mint(ctx context.Context, req *MintRequest) (*MintResponse, error) {
	if h.minter == nil {
		return nil, status.Error(codes.Unimplemented, "membership minting is disabled")
	}
	caller, err := GetCallerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	proof := make([]membership.Hash, 0, len(req.Proof))
	for _, p := range req.Proof {
		node, err := membership.ParseHash(p)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "invalid proof element %q: %v", p, err)
		}
		proof = append(proof, node)
	}
	id, err := h.minter.Mint(ctx, caller, proof)
	if err != nil {
		return nil, toStatus(err)
	}
	return &MintResponse{TokenID: id}, nil
}
