package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityAccess                      // Access token required
	SecurityAdmin                       // Access token with the admin role
)

// RoleAdmin is the JWT role granted to the marketplace administrator.
const RoleAdmin = "admin"

// EndpointSecurityConfig maps methods to their required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	// MarketplaceService - Public reads
	"/rentfun.api.v1.MarketplaceService/IsRented":        SecurityPublic,
	"/rentfun.api.v1.MarketplaceService/GetRentOrders":   SecurityPublic,
	"/rentfun.api.v1.MarketplaceService/TokenDetails":    SecurityPublic,
	"/rentfun.api.v1.MarketplaceService/GetOrder":        SecurityPublic,
	"/rentfun.api.v1.MarketplaceService/TotalRentCount":  SecurityPublic,
	"/rentfun.api.v1.MarketplaceService/GetAliveRentals": SecurityPublic,

	// MarketplaceService - Access Protected
	"/rentfun.api.v1.MarketplaceService/Lend":         SecurityAccess,
	"/rentfun.api.v1.MarketplaceService/Rent":         SecurityAccess,
	"/rentfun.api.v1.MarketplaceService/CancelLend":   SecurityAccess,
	"/rentfun.api.v1.MarketplaceService/ClaimRentFee": SecurityAccess,
	"/rentfun.api.v1.MarketplaceService/ClaimOrder":   SecurityAccess,

	// VaultService
	"/rentfun.api.v1.VaultService/GetVaults":   SecurityPublic,
	"/rentfun.api.v1.VaultService/CreateVault": SecurityAccess,
	"/rentfun.api.v1.VaultService/Deposit":     SecurityAccess,
	"/rentfun.api.v1.VaultService/Release":     SecurityAccess,

	// PartnerService
	"/rentfun.api.v1.PartnerService/GetPartner":        SecurityPublic,
	"/rentfun.api.v1.PartnerService/IsPaymentAccepted": SecurityPublic,
	"/rentfun.api.v1.PartnerService/SetPartner":        SecurityAdmin,

	// MembershipService
	"/rentfun.api.v1.MembershipService/IsMember": SecurityPublic,
	"/rentfun.api.v1.MembershipService/Mint":     SecurityAccess,

	// Health and reflection
	"/grpc.health.v1.Health/Check":                                   SecurityPublic,
	"/grpc.health.v1.Health/Watch":                                   SecurityPublic,
	"/grpc.reflection.v1.ServerReflection/ServerReflectionInfo":      SecurityPublic,
	"/grpc.reflection.v1alpha.ServerReflection/ServerReflectionInfo": SecurityPublic,
}

// GetSecurityLevel returns the security level for a given method
func GetSecurityLevel(method string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[method]; exists {
		return level
	}
	// Default to highest security for unknown endpoints
	return SecurityAdmin
}
