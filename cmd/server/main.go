package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	api "rentfun-backend/internal/api/grpc"
	"rentfun-backend/internal/api/grpc/interceptor"
	httpapi "rentfun-backend/internal/api/http"
	"rentfun-backend/internal/chain/simulated"
	"rentfun-backend/internal/config"
	"rentfun-backend/internal/domain"
	"rentfun-backend/internal/jobs"
	"rentfun-backend/internal/logger"
	"rentfun-backend/internal/membership"
	"rentfun-backend/internal/repository"
	"rentfun-backend/internal/repository/memory"
	"rentfun-backend/internal/repository/postgres"
	"rentfun-backend/internal/scheduler"
	"rentfun-backend/internal/security"
	"rentfun-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	issueToken := flag.String("issue-token", "", "Print an access token for this address and exit")
	roles := flag.String("roles", "", "Comma-separated roles for -issue-token (e.g. 'admin')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)

	tokenManager := security.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute)
	if *issueToken != "" {
		if err := printToken(tokenManager, *issueToken, *roles); err != nil {
			log.Fatalf("Failed to issue token: %v", err)
		}
		return
	}

	logger.Info("Starting RentFun Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "grpc", cfg.GetServerAddress(), "http", cfg.GetHTTPAddress())
	logger.Info("Marketplace configuration",
		"operator", cfg.Marketplace.Operator,
		"commission_bps", cfg.Marketplace.CommissionBps,
		"member_commission_bps", cfg.Marketplace.MemberCommissionBps,
		"base_unit", cfg.Marketplace.BaseUnit())

	// Initialize Store
	store, closeStore, err := openStore(cfg)
	if err != nil {
		logger.Error("Failed to open store", "type", cfg.Database.Type, "error", err)
		log.Fatalf("Failed to open store: %v", err)
	}
	defer closeStore()

	// Initialize Chain
	sim, birds, err := deployChain(cfg)
	if err != nil {
		logger.Error("Failed to deploy contracts", "error", err)
		log.Fatalf("Failed to deploy contracts: %v", err)
	}

	// Initialize Membership
	var gate *membership.Gate
	var minter api.MembershipMinter
	if birds != nil {
		gate = membership.NewGate(birds)
		m, err := newMinter(cfg.Membership, birds)
		if err != nil {
			log.Fatalf("Failed to configure membership minter: %v", err)
		}
		if m != nil {
			logger.Info("Membership minting enabled", "collection", birds.Address(), "root", m.Root().Hex())
			minter = m
		}
	}

	// Initialize Services
	admin, treasury, operator, memberTreasury := cfg.Marketplace.Addresses()
	ledger, err := service.NewLedger(store, sim, gate, service.Params{
		Admin:               admin,
		Treasury:            treasury,
		Operator:            operator,
		MemberTreasury:      memberTreasury,
		CommissionBps:       cfg.Marketplace.CommissionBps,
		MemberCommissionBps: cfg.Marketplace.MemberCommissionBps,
		BaseUnit:            cfg.Marketplace.BaseUnit(),
	})
	if err != nil {
		log.Fatalf("Failed to initialize ledger: %v", err)
	}
	marketSvc := service.NewMarketplaceService(ledger)
	vaultSvc := service.NewVaultService(ledger)
	partnerSvc := service.NewPartnerService(ledger)

	// Set up gRPC server
	lis, err := net.Listen("tcp", cfg.GetServerAddress())
	if err != nil {
		logger.Error("Failed to listen", "error", err, "address", cfg.GetServerAddress())
		log.Fatalf("Failed to listen: %v", err)
	}

	authInterceptor := interceptor.NewAuthInterceptor(tokenManager)
	s := grpc.NewServer(
		grpc.UnaryInterceptor(authInterceptor.Unary()),
	)

	// Register services
	api.RegisterMarketplaceServer(s, api.NewMarketplaceHandler(marketSvc))
	api.RegisterVaultServer(s, api.NewVaultHandler(vaultSvc))
	api.RegisterPartnerServer(s, api.NewPartnerHandler(partnerSvc))
	api.RegisterMembershipServer(s, api.NewMembershipHandler(gate, minter))

	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(s, healthSrv)

	// Register reflection service for grpcurl
	reflection.Register(s)

	// Set up HTTP server for the read API and metrics
	httpSrv := &http.Server{
		Addr:              cfg.GetHTTPAddress(),
		Handler:           httpapi.NewRouter(httpapi.NewHandler(marketSvc, vaultSvc, partnerSvc)),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", "address", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	// Claim sweep runs in-process: payouts move funds on the same chain
	// registry the ledger holds.
	jobRunner := jobs.NewJobRunner(&jobs.Services{Market: marketSvc}, cfg)
	cronScheduler, err := scheduler.NewScheduler(jobRunner)
	if err != nil {
		log.Fatalf("Failed to initialize scheduler: %v", err)
	}
	cronScheduler.Start()

	go func() {
		logger.Info("gRPC server listening", "address", cfg.GetServerAddress())
		if err := s.Serve(lis); err != nil {
			logger.Error("Failed to serve gRPC", "error", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down...")
	healthSrv.Shutdown()
	cronScheduler.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}
	s.GracefulStop()
	logger.Info("Server stopped. Goodbye!")
}

func openStore(cfg *config.Config) (repository.Store, func(), error) {
	if cfg.Database.Type == config.DatabaseMemory {
		logger.Warn("Using in-memory store; ledger state is lost on restart")
		return memory.NewStore(), func() {}, nil
	}
	logger.Warn("Durable ledger over the in-memory chain; vault custody and escrow are not restored on restart")

	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Info("Database connection established")
	return postgres.NewStore(db), func() { db.Close() }, nil
}

// deployChain builds the simulated chain from the configured contracts,
// applies the genesis state and returns the membership collection, if any.
func deployChain(cfg *config.Config) (*simulated.Chain, *simulated.Collection, error) {
	sim := simulated.New()
	for _, c := range cfg.Chain.Collections {
		if _, err := sim.DeployCollection(domain.MustAddress(c.Address), c.Name); err != nil {
			return nil, nil, err
		}
		logger.Info("Collection deployed", "address", c.Address, "name", c.Name)
	}
	for _, t := range cfg.Chain.Tokens {
		if _, err := sim.DeployToken(domain.MustAddress(t.Address), t.Name); err != nil {
			return nil, nil, err
		}
		logger.Info("Token deployed", "address", t.Address, "symbol", t.Name)
	}

	genesis, err := genesisFromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := sim.Apply(context.Background(), genesis); err != nil {
		return nil, nil, err
	}
	logger.Info("Genesis applied", "nfts", len(genesis.NFTs), "balances", len(genesis.Balances))

	if cfg.Membership.Collection == "" {
		return sim, nil, nil
	}
	addr := domain.MustAddress(cfg.Membership.Collection)
	birds, err := sim.CollectionAt(addr)
	if err != nil {
		birds, err = sim.DeployCollection(addr, "Membership")
		if err != nil {
			return nil, nil, err
		}
	}
	return sim, birds, nil
}

// genesisFromConfig converts the validated genesis section. Approvals and
// allowances are granted to the marketplace operator.
func genesisFromConfig(cfg *config.Config) (simulated.Genesis, error) {
	_, _, operator, _ := cfg.Marketplace.Addresses()
	var g simulated.Genesis
	for _, n := range cfg.Chain.Genesis.NFTs {
		nft := simulated.GenesisNFT{
			Collection: domain.MustAddress(n.Collection),
			Owner:      domain.MustAddress(n.Owner),
		}
		for _, id := range n.TokenIDs {
			nft.TokenIDs = append(nft.TokenIDs, domain.TokenID(id))
		}
		if n.ApproveMarket {
			nft.Operator = operator
		}
		g.NFTs = append(g.NFTs, nft)
	}
	for _, b := range cfg.Chain.Genesis.Balances {
		balance := simulated.GenesisBalance{
			Token:  domain.ZeroAddress,
			Holder: domain.MustAddress(b.Holder),
		}
		if b.Token != "" {
			balance.Token = domain.MustAddress(b.Token)
		}
		var err error
		if b.Amount != "" {
			if balance.Amount, err = decimal.NewFromString(b.Amount); err != nil {
				return g, fmt.Errorf("genesis balance for %s: %w", b.Holder, err)
			}
		}
		if b.MarketAllowance != "" {
			if balance.Allowance, err = decimal.NewFromString(b.MarketAllowance); err != nil {
				return g, fmt.Errorf("genesis allowance for %s: %w", b.Holder, err)
			}
			balance.Spender = operator
		}
		g.Balances = append(g.Balances, balance)
	}
	return g, nil
}

// newMinter prefers a whitelist, from which the root is computed, over a
// bare merkle root. It returns nil when neither is configured.
func newMinter(cfg config.MembershipConfig, collection membership.Mintable) (*membership.Minter, error) {
	if len(cfg.Whitelist) > 0 {
		whitelist := make([]domain.Address, 0, len(cfg.Whitelist))
		for _, entry := range cfg.Whitelist {
			whitelist = append(whitelist, domain.MustAddress(entry))
		}
		tree, err := membership.NewTree(whitelist)
		if err != nil {
			return nil, err
		}
		if cfg.MerkleRoot != "" && !strings.EqualFold(cfg.MerkleRoot, tree.Root().Hex()) {
			return nil, fmt.Errorf("merkle_root %s does not match whitelist root %s", cfg.MerkleRoot, tree.Root().Hex())
		}
		return membership.NewMinter(tree.Root(), collection), nil
	}
	if cfg.MerkleRoot != "" {
		root, err := membership.ParseHash(cfg.MerkleRoot)
		if err != nil {
			return nil, err
		}
		return membership.NewMinter(root, collection), nil
	}
	return nil, nil
}

func printToken(tm security.TokenManager, addr, roles string) error {
	account, err := domain.ParseAddress(addr)
	if err != nil {
		return err
	}
	var roleList []string
	if roles != "" {
		roleList = strings.Split(roles, ",")
	}
	token, err := tm.GenerateAccessToken(account, roleList)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
