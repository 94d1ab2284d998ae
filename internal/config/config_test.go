package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentfun-backend/internal/domain"
)

const minimalYAML = `
server:
  port: 50051
database:
  type: memory
jwt:
  secret: "0123456789abcdef0123456789abcdef"
marketplace:
  admin: "0xad00000000000000000000000000000000000001"
  treasury: "0xdef0000000000000000000000000000000000002"
  operator: "0x3a4e000000000000000000000000000000000003"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, DatabaseMemory, cfg.Database.Type)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 60, cfg.JWT.AccessTokenExpiry)
	assert.Equal(t, int64(1000), cfg.Marketplace.CommissionBps)
	assert.Equal(t, int64(800), cfg.Marketplace.MemberCommissionBps)
	assert.Equal(t, time.Hour, cfg.Marketplace.BaseUnit())
	assert.Equal(t, "0 0 */6 * * *", cfg.Scheduler.ClaimSweep)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, ":50051", cfg.GetServerAddress())
	assert.Equal(t, ":8080", cfg.GetHTTPAddress())

	admin, treasury, operator, memberTreasury := cfg.Marketplace.Addresses()
	assert.Equal(t, domain.MustAddress("0xad00000000000000000000000000000000000001"), admin)
	assert.Equal(t, domain.MustAddress("0xdef0000000000000000000000000000000000002"), treasury)
	assert.Equal(t, domain.MustAddress("0x3a4e000000000000000000000000000000000003"), operator)
	assert.True(t, memberTreasury.IsZero())
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SERVER_PORT", "6000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("MARKET_TREASURY", "0x00000000000000000000000000000000000000aa")

	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)
	assert.Equal(t, 6000, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "0x00000000000000000000000000000000000000aa", cfg.Marketplace.Treasury)
}

func TestLoad_DevConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config", "config.dev.yaml"))
	require.NoError(t, err)
	assert.Len(t, cfg.Membership.Whitelist, 3)
	assert.Len(t, cfg.Chain.Collections, 1)
	assert.NotEmpty(t, cfg.Chain.Genesis.NFTs)
	assert.NotEmpty(t, cfg.Chain.Genesis.Balances)
}

func TestLoad_TestConfigAcknowledgesDurableLedger(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config", "config.test.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DatabasePostgres, cfg.Database.Type)
	assert.True(t, cfg.Chain.AllowDurableLedger)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server:   ServerConfig{Port: 50051},
			Database: DatabaseConfig{Type: DatabaseMemory},
			JWT:      JWTConfig{Secret: "0123456789abcdef0123456789abcdef"},
			Marketplace: MarketplaceConfig{
				Admin:    "0xad00000000000000000000000000000000000001",
				Treasury: "0xdef0000000000000000000000000000000000002",
				Operator: "0x3a4e000000000000000000000000000000000003",
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "invalid server port"},
		{"short secret", func(c *Config) { c.JWT.Secret = "short" }, "at least 32"},
		{"postgres needs host", func(c *Config) { c.Database.Type = DatabasePostgres }, "database host is required"},
		{"postgres over in-memory chain", func(c *Config) {
			c.Database = DatabaseConfig{Type: DatabasePostgres, Host: "db", User: "u", Database: "rentfun"}
		}, "chain.allow_durable_ledger"},
		{"unknown store", func(c *Config) { c.Database.Type = "redis" }, "unknown database type"},
		{"missing operator", func(c *Config) { c.Marketplace.Operator = "" }, "operator address is required"},
		{"bad treasury", func(c *Config) { c.Marketplace.Treasury = "0x1234" }, "marketplace treasury"},
		{"commission over 100%", func(c *Config) { c.Marketplace.CommissionBps = 10001 }, "invalid commission_bps"},
		{"bad membership collection", func(c *Config) { c.Membership.Collection = "nope" }, "membership collection"},
		{"bad chain contract", func(c *Config) {
			c.Chain.Tokens = []ContractConfig{{Address: "0x12", Name: "TKN"}}
		}, "chain contract"},
		{"bad genesis owner", func(c *Config) {
			c.Chain.Genesis.NFTs = []GenesisNFTConfig{{Collection: "0xc011ec7100000000000000000000000000000010", Owner: "bob", TokenIDs: []uint64{1}}}
		}, "genesis nft 0 owner"},
		{"negative genesis balance", func(c *Config) {
			c.Chain.Genesis.Balances = []GenesisBalanceConfig{{Holder: "0x4e47000000000000000000000000000000000005", Amount: "-1"}}
		}, "genesis balance 0: invalid amount"},
	}

	t.Run("valid", func(t *testing.T) {
		c := valid()
		require.NoError(t, c.Validate())
	})
	t.Run("postgres with acknowledged in-memory chain", func(t *testing.T) {
		c := valid()
		c.Database = DatabaseConfig{Type: DatabasePostgres, Host: "db", User: "u", Database: "rentfun"}
		c.Chain.AllowDurableLedger = true
		require.NoError(t, c.Validate())
		assert.Equal(t, "disable", c.Database.SSLMode)
	})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetDatabaseConnectionString(t *testing.T) {
	c := Config{Database: DatabaseConfig{
		Host: "db", Port: 5432, User: "u", Password: "p", Database: "rentfun", SSLMode: "disable",
	}}
	assert.Equal(t, "postgres://u:p@db:5432/rentfun?sslmode=disable", c.GetDatabaseConnectionString())
}

func TestGetSecurityLevel(t *testing.T) {
	assert.Equal(t, SecurityPublic, GetSecurityLevel("/rentfun.api.v1.MarketplaceService/IsRented"))
	assert.Equal(t, SecurityAccess, GetSecurityLevel("/rentfun.api.v1.MarketplaceService/Rent"))
	assert.Equal(t, SecurityAdmin, GetSecurityLevel("/rentfun.api.v1.PartnerService/SetPartner"))
	assert.Equal(t, SecurityAdmin, GetSecurityLevel("/rentfun.api.v1.Unknown/Method"))
}
