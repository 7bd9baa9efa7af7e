package history

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"signalexecutor/src/config"
	"signalexecutor/src/database"
	"signalexecutor/src/model"
	"signalexecutor/src/repository"
)

var now = time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

func seededConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Journal.DSN = filepath.Join(t.TempDir(), "journal.db")

	db, err := database.Open(cfg.DatabaseConfig())
	require.NoError(t, err)
	defer database.Close(db)

	ctx := context.Background()
	trades := repository.NewTradeRecordRepository(db)
	results := []model.TradeResult{
		model.Succeeded(model.ActionOpen, "sig-1", "BTCUSDT", "Order placed: LONG 2.000 @ 50", now.Add(-2*time.Hour)),
		model.Failed(model.ActionOpen, model.ReasonRisk, "sig-2", "ETHUSDT", "Risk limit: Daily trade limit reached", now.Add(-time.Hour)),
		model.Succeeded(model.ActionClose, "sig-1", "BTCUSDT", "Position closed (100%)", now.Add(-30*time.Minute)),
		model.Succeeded(model.ActionOpen, "sig-0", "SOLUSDT", "Order placed: SHORT 1.0 @ 20", now.Add(-48*time.Hour)),
	}
	for _, r := range results {
		require.NoError(t, trades.Create(ctx, model.NewTradeRecord(r)))
	}

	require.NoError(t, repository.NewExceptionRepository(db).Create(ctx, &model.Exception{
		Service:   "signalexecutor",
		Module:    "dispatcher",
		Method:    "ClosePosition",
		Symbol:    "BTCUSDT",
		Message:   "Close error: HTTP 500",
		Level:     "error",
		CreatedAt: now,
	}))
	return cfg
}

func TestPrintLatestWithDailyStats(t *testing.T) {
	cfg := seededConfig(t)
	var out bytes.Buffer

	err := New(&out, cfg).Print(context.Background(), Options{Limit: 10, Now: func() time.Time { return now }})
	require.NoError(t, err)

	got := out.String()
	require.Contains(t, got, "Latest trades")
	require.Contains(t, got, "Position closed (100%)")
	require.Contains(t, got, "[risk]")
	require.Contains(t, got, "3 results")

	closeAt := strings.Index(got, "Position closed")
	openAt := strings.Index(got, "Order placed: LONG")
	if closeAt < 0 || openAt < 0 || closeAt > openAt {
		t.Fatalf("expected newest first. got=%s", got)
	}
}

func TestPrintBySignal(t *testing.T) {
	cfg := seededConfig(t)
	var out bytes.Buffer

	require.NoError(t, New(&out, cfg).Print(context.Background(), Options{SignalID: "sig-1"}))

	got := out.String()
	require.Contains(t, got, "Signal sig-1")
	require.NotContains(t, got, "ETHUSDT")
	require.NotContains(t, got, "Today")
}

func TestPrintExceptions(t *testing.T) {
	cfg := seededConfig(t)
	var out bytes.Buffer

	require.NoError(t, New(&out, cfg).Print(context.Background(), Options{Errors: true, Limit: 5}))
	require.Contains(t, out.String(), "dispatcher.ClosePosition")
	require.Contains(t, out.String(), "Close error: HTTP 500")
}

func TestPrintDisabledJournal(t *testing.T) {
	cfg := config.Default()
	cfg.Journal.Enabled = false
	var out bytes.Buffer

	require.NoError(t, New(&out, cfg).Print(context.Background(), Options{}))
	require.Contains(t, out.String(), "Trade journal is disabled")
}
