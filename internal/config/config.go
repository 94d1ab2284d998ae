package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"rentfun-backend/internal/domain"
)

// Config represents the application configuration
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	HTTP        HTTPConfig        `yaml:"http"`
	Database    DatabaseConfig    `yaml:"database"`
	JWT         JWTConfig         `yaml:"jwt"`
	Log         LogConfig         `yaml:"log"`
	Marketplace MarketplaceConfig `yaml:"marketplace"`
	Membership  MembershipConfig  `yaml:"membership"`
	Chain       ChainConfig       `yaml:"chain"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
}

// ServerConfig contains gRPC server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// HTTPConfig contains the read API and metrics listener settings
type HTTPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

const (
	DatabasePostgres = "postgres"
	DatabaseMemory   = "memory"
)

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Type     string `yaml:"type"` // "postgres" or "memory"
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// JWTConfig contains JWT token settings
type JWTConfig struct {
	Secret            string `yaml:"secret"`
	AccessTokenExpiry int    `yaml:"access_token_expiry_minutes"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// MarketplaceConfig holds the ledger parameters. Addresses are hex strings.
type MarketplaceConfig struct {
	Admin               string `yaml:"admin"`
	Treasury            string `yaml:"treasury"`
	Operator            string `yaml:"operator"`
	MemberTreasury      string `yaml:"member_treasury"`
	CommissionBps       int64  `yaml:"commission_bps"`
	MemberCommissionBps int64  `yaml:"member_commission_bps"`
	BaseUnitSeconds     int    `yaml:"base_unit_seconds"`
}

// MembershipConfig points at the membership collection. An empty collection
// disables the membership discount.
type MembershipConfig struct {
	Collection string   `yaml:"collection"`
	MerkleRoot string   `yaml:"merkle_root"`
	Whitelist  []string `yaml:"whitelist"`
}

// ChainConfig lists the contracts deployed on the simulated chain used by
// local and test environments, and the state they start with.
//
// The simulated chain lives in memory. A postgres ledger outlives it, so
// after a restart the ledger names vaults and escrow the chain no longer
// has. AllowDurableLedger acknowledges that pairing.
type ChainConfig struct {
	Collections        []ContractConfig `yaml:"collections"`
	Tokens             []ContractConfig `yaml:"tokens"`
	Genesis            GenesisConfig    `yaml:"genesis"`
	AllowDurableLedger bool             `yaml:"allow_durable_ledger"`
}

type ContractConfig struct {
	Address string `yaml:"address"`
	Name    string `yaml:"name"`
}

// GenesisConfig seeds the simulated chain at startup.
type GenesisConfig struct {
	NFTs     []GenesisNFTConfig     `yaml:"nfts"`
	Balances []GenesisBalanceConfig `yaml:"balances"`
}

// GenesisNFTConfig mints token ids of a collection to owner. ApproveMarket
// approves the marketplace operator for all of owner's tokens.
type GenesisNFTConfig struct {
	Collection    string   `yaml:"collection"`
	Owner         string   `yaml:"owner"`
	TokenIDs      []uint64 `yaml:"token_ids"`
	ApproveMarket bool     `yaml:"approve_market"`
}

// GenesisBalanceConfig credits holder with amount of token. An empty token
// means the native currency. MarketAllowance is the ERC-20 allowance granted
// to the marketplace operator.
type GenesisBalanceConfig struct {
	Token           string `yaml:"token"`
	Holder          string `yaml:"holder"`
	Amount          string `yaml:"amount"`
	MarketAllowance string `yaml:"market_allowance"`
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	ClaimSweep string `yaml:"claim_sweep"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override with environment variables if present
	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
	if val := os.Getenv("DB_TYPE"); val != "" {
		c.Database.Type = val
	}
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	// JWT
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}
	if val := os.Getenv("HTTP_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.HTTP.Port)
	}

	// Marketplace
	if val := os.Getenv("MARKET_ADMIN"); val != "" {
		c.Marketplace.Admin = val
	}
	if val := os.Getenv("MARKET_TREASURY"); val != "" {
		c.Marketplace.Treasury = val
	}
	if val := os.Getenv("MARKET_OPERATOR"); val != "" {
		c.Marketplace.Operator = val
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid and fills in defaults
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid http port: %d", c.HTTP.Port)
	}

	// Database validation
	if c.Database.Type == "" {
		c.Database.Type = DatabasePostgres
	}
	switch c.Database.Type {
	case DatabaseMemory:
	case DatabasePostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
		if !c.Chain.AllowDurableLedger {
			return fmt.Errorf("postgres ledger over the in-memory chain loses custody on restart; set chain.allow_durable_ledger to accept")
		}
	default:
		return fmt.Errorf("unknown database type: %q", c.Database.Type)
	}

	// JWT validation
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.JWT.AccessTokenExpiry == 0 {
		c.JWT.AccessTokenExpiry = 60
	}

	if err := c.Marketplace.validate(); err != nil {
		return err
	}
	if err := c.Membership.validate(); err != nil {
		return err
	}
	if err := c.Chain.validate(); err != nil {
		return err
	}

	// Scheduler defaults
	if c.Scheduler.ClaimSweep == "" {
		c.Scheduler.ClaimSweep = "0 0 */6 * * *" // every 6 hours UTC
	}

	return nil
}

func (m *MarketplaceConfig) validate() error {
	required := map[string]string{
		"admin":    m.Admin,
		"treasury": m.Treasury,
		"operator": m.Operator,
	}
	for _, name := range []string{"admin", "treasury", "operator"} {
		if strings.TrimSpace(required[name]) == "" {
			return fmt.Errorf("marketplace %s address is required", name)
		}
		if _, err := domain.ParseAddress(required[name]); err != nil {
			return fmt.Errorf("marketplace %s: %w", name, err)
		}
	}
	if m.MemberTreasury != "" {
		if _, err := domain.ParseAddress(m.MemberTreasury); err != nil {
			return fmt.Errorf("marketplace member_treasury: %w", err)
		}
	}

	if m.CommissionBps == 0 {
		m.CommissionBps = 1000
	}
	if m.MemberCommissionBps == 0 {
		m.MemberCommissionBps = 800
	}
	if m.CommissionBps < 0 || m.CommissionBps > domain.MaxBps {
		return fmt.Errorf("invalid commission_bps: %d", m.CommissionBps)
	}
	if m.MemberCommissionBps < 0 || m.MemberCommissionBps > domain.MaxBps {
		return fmt.Errorf("invalid member_commission_bps: %d", m.MemberCommissionBps)
	}
	if m.BaseUnitSeconds == 0 {
		m.BaseUnitSeconds = 3600
	}
	if m.BaseUnitSeconds < 0 {
		return fmt.Errorf("invalid base_unit_seconds: %d", m.BaseUnitSeconds)
	}
	return nil
}

func (m *MembershipConfig) validate() error {
	if m.Collection == "" {
		return nil
	}
	if _, err := domain.ParseAddress(m.Collection); err != nil {
		return fmt.Errorf("membership collection: %w", err)
	}
	for _, entry := range m.Whitelist {
		if _, err := domain.ParseAddress(entry); err != nil {
			return fmt.Errorf("membership whitelist: %w", err)
		}
	}
	return nil
}

func (c *ChainConfig) validate() error {
	for _, contract := range append(append([]ContractConfig{}, c.Collections...), c.Tokens...) {
		if _, err := domain.ParseAddress(contract.Address); err != nil {
			return fmt.Errorf("chain contract %q: %w", contract.Name, err)
		}
	}
	for i, nft := range c.Genesis.NFTs {
		if _, err := domain.ParseAddress(nft.Collection); err != nil {
			return fmt.Errorf("genesis nft %d collection: %w", i, err)
		}
		if _, err := domain.ParseAddress(nft.Owner); err != nil {
			return fmt.Errorf("genesis nft %d owner: %w", i, err)
		}
	}
	for i, b := range c.Genesis.Balances {
		if b.Token != "" {
			if _, err := domain.ParseAddress(b.Token); err != nil {
				return fmt.Errorf("genesis balance %d token: %w", i, err)
			}
		}
		if _, err := domain.ParseAddress(b.Holder); err != nil {
			return fmt.Errorf("genesis balance %d holder: %w", i, err)
		}
		for _, amount := range []string{b.Amount, b.MarketAllowance} {
			if amount == "" {
				continue
			}
			d, err := decimal.NewFromString(amount)
			if err != nil || d.IsNegative() {
				return fmt.Errorf("genesis balance %d: invalid amount %q", i, amount)
			}
		}
	}
	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the gRPC server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetHTTPAddress returns the read API listen address
func (c *Config) GetHTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.HTTP.Host, c.HTTP.Port)
}

// BaseUnit returns the rental base unit as a duration.
func (m MarketplaceConfig) BaseUnit() time.Duration {
	return time.Duration(m.BaseUnitSeconds) * time.Second
}

// Addresses returns the parsed marketplace roles. Call after Validate.
func (m MarketplaceConfig) Addresses() (admin, treasury, operator, memberTreasury domain.Address) {
	admin, _ = domain.ParseAddress(m.Admin)
	treasury, _ = domain.ParseAddress(m.Treasury)
	operator, _ = domain.ParseAddress(m.Operator)
	if m.MemberTreasury != "" {
		memberTreasury, _ = domain.ParseAddress(m.MemberTreasury)
	}
	return admin, treasury, operator, memberTreasury
}
