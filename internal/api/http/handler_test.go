package http_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpapi "rentfun-backend/internal/api/http"
	"rentfun-backend/internal/chain/simulated"
	"rentfun-backend/internal/domain"
	"rentfun-backend/internal/repository/memory"
	"rentfun-backend/internal/service"
)

var (
	admin    = domain.MustAddress("0xad00000000000000000000000000000000000001")
	treasury = domain.MustAddress("0xdef0000000000000000000000000000000000002")
	market   = domain.MustAddress("0x3a4e000000000000000000000000000000000003")
	lender   = domain.MustAddress("0x1e4d000000000000000000000000000000000004")
	renter   = domain.MustAddress("0x4e47000000000000000000000000000000000005")
	nftAddr  = domain.MustAddress("0xc011ec7100000000000000000000000000000010")
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()
	sim := simulated.New()
	nft, err := sim.DeployCollection(nftAddr, "NFToken")
	require.NoError(t, err)
	require.NoError(t, nft.Mint(lender, 7))
	nft.SetApprovalForAll(lender, market, true)
	sim.Native().Mint(renter, decimal.NewFromInt(10))

	ledger, err := service.NewLedger(memory.NewStore(), sim, nil, service.Params{
		Admin:               admin,
		Treasury:            treasury,
		Operator:            market,
		CommissionBps:       1000,
		MemberCommissionBps: 800,
		BaseUnit:            time.Hour,
	})
	require.NoError(t, err)
	marketSvc := service.NewMarketplaceService(ledger)
	vaultSvc := service.NewVaultService(ledger)
	partnerSvc := service.NewPartnerService(ledger)

	_, err = marketSvc.Lend(ctx, lender, []service.LendRequest{{
		Collection: nftAddr, TokenID: 7, Payment: domain.ZeroAddress, UnitFee: decimal.NewFromInt(1),
	}})
	require.NoError(t, err)
	_, err = marketSvc.Rent(ctx, renter, []service.RentRequest{{
		Collection: nftAddr, TokenID: 7, Payment: domain.ZeroAddress, Unit: domain.TimeUnitBase, Quantity: 2,
	}}, decimal.NewFromInt(2))
	require.NoError(t, err)

	srv := httptest.NewServer(httpapi.NewRouter(httpapi.NewHandler(marketSvc, vaultSvc, partnerSvc)))
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, srv *httptest.Server, path string, out any) int {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestReadAPI(t *testing.T) {
	srv := newServer(t)

	t.Run("health", func(t *testing.T) {
		var body map[string]string
		assert.Equal(t, http.StatusOK, getJSON(t, srv, "/health", &body))
		assert.Equal(t, "ok", body["status"])
	})

	t.Run("is rented", func(t *testing.T) {
		var body map[string]bool
		assert.Equal(t, http.StatusOK, getJSON(t, srv, "/api/v1/collections/"+nftAddr.String()+"/tokens/7/rented", &body))
		assert.True(t, body["rented"])
	})

	t.Run("lender orders", func(t *testing.T) {
		var body struct {
			Orders []domain.RentOrder `json:"orders"`
		}
		assert.Equal(t, http.StatusOK, getJSON(t, srv, "/api/v1/lenders/"+lender.String()+"/orders", &body))
		require.Len(t, body.Orders, 1)
		assert.True(t, body.Orders[0].Amount.Equal(decimal.NewFromInt(2)))
	})

	t.Run("alive rentals", func(t *testing.T) {
		var body struct {
			Orders []domain.RentOrder `json:"orders"`
		}
		path := "/api/v1/renters/" + renter.String() + "/rentals?collection=" + nftAddr.String()
		assert.Equal(t, http.StatusOK, getJSON(t, srv, path, &body))
		assert.Len(t, body.Orders, 1)

		assert.Equal(t, http.StatusBadRequest, getJSON(t, srv, "/api/v1/renters/"+renter.String()+"/rentals", nil))
	})

	t.Run("vaults", func(t *testing.T) {
		var body struct {
			Vaults []domain.Vault `json:"vaults"`
		}
		assert.Equal(t, http.StatusOK, getJSON(t, srv, "/api/v1/owners/"+lender.String()+"/vaults", &body))
		require.Len(t, body.Vaults, 1)
		assert.Equal(t, lender, body.Vaults[0].Owner)

		assert.Equal(t, http.StatusOK, getJSON(t, srv, "/api/v1/owners/"+renter.String()+"/vaults", &body))
		assert.Empty(t, body.Vaults)
	})

	t.Run("token details", func(t *testing.T) {
		var details domain.TokenDetails
		assert.Equal(t, http.StatusOK, getJSON(t, srv, "/api/v1/lends/1", &details))
		assert.Equal(t, domain.LendStatusRented, details.RentStatus)
		assert.Equal(t, domain.TokenID(7), details.Lend.TokenID)
	})

	t.Run("orders", func(t *testing.T) {
		var count map[string]int64
		assert.Equal(t, http.StatusOK, getJSON(t, srv, "/api/v1/orders/count", &count))
		assert.Equal(t, int64(1), count["count"])

		var order domain.RentOrder
		assert.Equal(t, http.StatusOK, getJSON(t, srv, "/api/v1/orders/1", &order))
		assert.Equal(t, renter, order.Renter)

		assert.Equal(t, http.StatusNotFound, getJSON(t, srv, "/api/v1/orders/42", nil))
	})

	t.Run("unconfigured partner", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, getJSON(t, srv, "/api/v1/collections/"+nftAddr.String()+"/partner", nil))
	})

	t.Run("bad address", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, getJSON(t, srv, "/api/v1/lenders/0x12/orders", nil))
	})

	t.Run("metrics exposes request counters", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()
		buf := new(strings.Builder)
		_, err = io.Copy(buf, resp.Body)
		require.NoError(t, err)
		assert.Contains(t, buf.String(), "rentfun_http_requests_total")
		assert.Contains(t, buf.String(), `endpoint="/api/v1/orders/{id:[0-9]+}"`)
	})
}
