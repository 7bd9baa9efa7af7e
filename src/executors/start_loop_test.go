package executors

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"signalexecutor/src/config"
	"signalexecutor/src/database"
	"signalexecutor/src/repository"
	"signalexecutor/src/venue"
)

// paperGateway fills every order immediately and never reports positions.
type paperGateway struct {
	mu         sync.Mutex
	balanceErr error
	orders     []venue.OrderRequest
}

func (g *paperGateway) AvailableBalance(context.Context) (decimal.Decimal, error) {
	return decimal.NewFromInt(100), g.balanceErr
}

func (g *paperGateway) OpenPositions(context.Context) ([]venue.Position, error) { return nil, nil }

func (g *paperGateway) Asset(_ context.Context, symbol string) (venue.Asset, error) {
	return venue.Asset{Symbol: symbol, MarkPrice: decimal.NewFromInt(50), QuantityStep: decimal.RequireFromString("0.001")}, nil
}

func (g *paperGateway) CreateMarketOrder(_ context.Context, req venue.OrderRequest) (venue.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.orders = append(g.orders, req)
	return venue.Order{OrderID: "paper-1"}, nil
}

func (g *paperGateway) CreateLimitOrder(ctx context.Context, req venue.OrderRequest) (venue.Order, error) {
	return g.CreateMarketOrder(ctx, req)
}

func (g *paperGateway) ClosePosition(context.Context, string) error { return nil }

func (g *paperGateway) ClosePositionPartial(context.Context, venue.PartialClose) error {
	return nil
}

func (g *paperGateway) SetRiskOrder(context.Context, string, *decimal.Decimal, *decimal.Decimal) error {
	return nil
}

func (g *paperGateway) orderCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.orders)
}

func withGateway(t *testing.T, g venue.Gateway) {
	t.Helper()
	old := newGateway
	newGateway = func(config.Config) venue.Gateway { return g }
	t.Cleanup(func() { newGateway = old })
}

func newSignalServer(t *testing.T, frames ...string) string {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func testConfig(t *testing.T, url string) config.Config {
	cfg := config.Default()
	cfg.Broadcaster.URL = url
	cfg.Broadcaster.ClientID = "sdk-test0001"
	cfg.Mudrex.APISecret = "secret"
	cfg.Trading.TradeAmount = 10
	cfg.Journal.DSN = filepath.Join(t.TempDir(), "journal.db")
	return cfg
}

func TestStartLoopExecutesAndJournals(t *testing.T) {
	gw := &paperGateway{}
	withGateway(t, gw)

	url := newSignalServer(t,
		`{"type":"NEW_SIGNAL","signal":{"signal_id":"s-1","symbol":"btcusdt","signal_type":"LONG","order_type":"MARKET","leverage":10}}`,
	)
	cfg := testConfig(t, url)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- StartLoop(ctx, cfg) }()

	require.Eventually(t, func() bool { return gw.orderCount() == 1 }, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("StartLoop did not return after cancel")
	}

	require.Equal(t, "BTCUSDT", gw.orders[0].Symbol)
	require.Equal(t, "2.000", gw.orders[0].QuantityText)

	db, err := database.Open(cfg.DatabaseConfig())
	require.NoError(t, err)
	defer database.Close(db)

	records, err := repository.NewTradeRecordRepository(db).BySignal(context.Background(), "s-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.True(t, records[0].Success)
	require.Equal(t, "paper-1", records[0].OrderID)
}

func TestStartLoopRejectsBadCredentials(t *testing.T) {
	withGateway(t, &paperGateway{balanceErr: &venue.Error{Kind: venue.KindUnauthorized, StatusCode: 401}})

	cfg := testConfig(t, "ws://127.0.0.1:1/ws")
	err := StartLoop(context.Background(), cfg)
	require.EqualError(t, err, "Invalid API secret")
}

func TestStartLoopRejectsInvalidConfig(t *testing.T) {
	withGateway(t, &paperGateway{})

	cfg := testConfig(t, "ws://127.0.0.1:1/ws")
	cfg.Mudrex.APISecret = ""
	err := StartLoop(context.Background(), cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid configuration")
}
