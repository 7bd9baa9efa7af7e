package executors

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"signalexecutor/src/model"
)

// fakePipeline answers with a success unless a hook says otherwise.
type fakePipeline struct {
	mu      sync.Mutex
	calls   []string
	onOpen  func(model.Signal) model.TradeResult
	onClose func(model.CloseCommand) model.TradeResult
}

func (p *fakePipeline) record(call string) {
	p.mu.Lock()
	p.calls = append(p.calls, call)
	p.mu.Unlock()
}

func (p *fakePipeline) snapshot() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *fakePipeline) ExecuteSignal(_ context.Context, s model.Signal) model.TradeResult {
	if p.onOpen != nil {
		res := p.onOpen(s)
		p.record("open:" + s.SignalID)
		return res
	}
	p.record("open:" + s.SignalID)
	return model.Succeeded(model.ActionOpen, s.SignalID, s.Symbol, "Order placed", time.Now())
}

func (p *fakePipeline) ClosePosition(_ context.Context, c model.CloseCommand) model.TradeResult {
	p.record("close:" + c.SignalID)
	if p.onClose != nil {
		return p.onClose(c)
	}
	return model.Succeeded(model.ActionClose, c.SignalID, c.Symbol, "Position closed (100%)", time.Now())
}

func (p *fakePipeline) UpdateSLTP(_ context.Context, c model.EditSLTPCommand) model.TradeResult {
	p.record("sltp:" + c.SignalID)
	return model.Succeeded(model.ActionEditSLTP, c.SignalID, c.Symbol, "SL/TP updated", time.Now())
}

func (p *fakePipeline) UpdateLeverage(_ context.Context, c model.LeverageCommand) model.TradeResult {
	p.record("leverage:" + c.SignalID)
	return model.Failed(model.ActionLeverage, model.ReasonNotSupported, c.SignalID, c.Symbol, "leverage update not supported", time.Now())
}

type memJournal struct {
	mu      sync.Mutex
	records []*model.TradeRecord
}

func (j *memJournal) Create(_ context.Context, rec *model.TradeRecord) error {
	j.mu.Lock()
	j.records = append(j.records, rec)
	j.mu.Unlock()
	return nil
}

func (j *memJournal) len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.records)
}

type memExceptions struct {
	mu   sync.Mutex
	rows []*model.Exception
}

func (s *memExceptions) Create(_ context.Context, exc *model.Exception) error {
	s.mu.Lock()
	s.rows = append(s.rows, exc)
	s.mu.Unlock()
	return nil
}

func quietLogger() *logrus.Entry {
	l, _ := logrustest.NewNullLogger()
	return logrus.NewEntry(l)
}

func sig(id, symbol string) model.Signal {
	return model.Signal{SignalID: id, Symbol: symbol, SignalType: model.SignalLong, OrderType: model.OrderMarket, Leverage: 1}
}

func TestDispatcherSymbolsDoNotBlockEachOther(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	p := &fakePipeline{
		onOpen: func(s model.Signal) model.TradeResult {
			if s.Symbol == "SLOWUSDT" {
				close(entered)
				<-release
			}
			return model.Succeeded(model.ActionOpen, s.SignalID, s.Symbol, "ok", time.Now())
		},
	}
	done := make(chan string, 8)
	d := NewDispatcher(p, WithDispatcherLogger(quietLogger()), WithResultHook(func(r model.TradeResult) {
		done <- r.SignalID
	}))
	ctx := context.Background()

	d.OnSignal(ctx, sig("slow", "SLOWUSDT"))
	<-entered
	d.OnSignal(ctx, sig("fast", "FASTUSDT"))

	select {
	case id := <-done:
		require.Equal(t, "fast", id)
	case <-time.After(3 * time.Second):
		t.Fatal("FASTUSDT was held up by SLOWUSDT")
	}

	close(release)
	d.Close()
	require.Equal(t, "slow", <-done)
}

func TestDispatcherKeepsSymbolOrder(t *testing.T) {
	p := &fakePipeline{}
	j := &memJournal{}
	d := NewDispatcher(p, WithDispatcherLogger(quietLogger()), WithJournal(j))
	ctx := context.Background()

	d.OnSignal(ctx, sig("a", "BTCUSDT"))
	d.OnEditSLTP(ctx, model.EditSLTPCommand{SignalID: "a", Symbol: "BTCUSDT"})
	d.OnLeverage(ctx, model.LeverageCommand{SignalID: "a", Symbol: "BTCUSDT", Leverage: 5})
	d.OnClose(ctx, model.CloseCommand{SignalID: "a", Symbol: "BTCUSDT", Percentage: 100})
	d.Close()

	require.Equal(t, []string{"open:a", "sltp:a", "leverage:a", "close:a"}, p.snapshot())
	require.Equal(t, 4, j.len())

	stats := d.Stats()
	require.Equal(t, int64(4), stats.Processed)
	require.Equal(t, int64(1), stats.Failed)
	require.Equal(t, 1, stats.Symbols)
}

func TestDispatcherCapturesPanicsAndVenueErrors(t *testing.T) {
	p := &fakePipeline{
		onOpen: func(s model.Signal) model.TradeResult {
			if s.SignalID == "boom" {
				panic("nil position")
			}
			return model.Succeeded(model.ActionOpen, s.SignalID, s.Symbol, "ok", time.Now())
		},
		onClose: func(c model.CloseCommand) model.TradeResult {
			return model.Failed(model.ActionClose, model.ReasonVenue, c.SignalID, c.Symbol, "Close error: HTTP 500", time.Now())
		},
	}
	exc := &memExceptions{}
	j := &memJournal{}
	d := NewDispatcher(p, WithDispatcherLogger(quietLogger()), WithJournal(j), WithExceptionStore(exc))
	ctx := context.Background()

	d.OnSignal(ctx, sig("boom", "ETHUSDT"))
	d.OnSignal(ctx, sig("after", "ETHUSDT"))
	d.OnClose(ctx, model.CloseCommand{SignalID: "after", Symbol: "ETHUSDT", Percentage: 100})
	d.Close()

	require.Equal(t, []string{"open:after", "close:after"}, p.snapshot(), "worker survives the panic")
	require.Equal(t, 3, j.len(), "the panicked instruction is journaled too")

	panicked := j.records[0]
	require.Equal(t, "boom", panicked.SignalID)
	require.False(t, panicked.Success)
	require.Equal(t, model.ReasonVenue, panicked.Reason)
	require.Equal(t, "Execution error: panic: nil position", panicked.Message)
	require.Equal(t, int64(2), d.Stats().Failed)

	require.Len(t, exc.rows, 2)
	require.Equal(t, LevelFatal, exc.rows[0].Level)
	require.Equal(t, "ExecuteSignal", exc.rows[0].Method)
	require.Equal(t, "boom", exc.rows[0].SignalID)
	require.Equal(t, "panic: nil position", exc.rows[0].Message)

	require.Equal(t, LevelError, exc.rows[1].Level)
	require.Equal(t, "ClosePosition", exc.rows[1].Method)
	require.Equal(t, "ETHUSDT", exc.rows[1].Symbol)
	require.JSONEq(t, `{"action":"close"}`, exc.rows[1].Context)
}

func TestDispatcherDropsAfterClose(t *testing.T) {
	p := &fakePipeline{}
	d := NewDispatcher(p, WithDispatcherLogger(quietLogger()))
	d.Close()
	d.Close()

	d.OnSignal(context.Background(), sig("late", "BTCUSDT"))
	require.Empty(t, p.snapshot())
}

func TestDispatcherConnectionState(t *testing.T) {
	d := NewDispatcher(&fakePipeline{}, WithDispatcherLogger(quietLogger()))
	d.OnConnected(context.Background())
	require.True(t, d.Stats().Connected)
	d.OnDisconnected(context.Background(), nil)
	require.False(t, d.Stats().Connected)
}

func TestDispatcherFullQueueDoesNotBlockOthers(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	p := &fakePipeline{
		onOpen: func(s model.Signal) model.TradeResult {
			if s.Symbol == "BTCUSDT" {
				select {
				case entered <- struct{}{}:
				default:
				}
				<-release
			}
			return model.Succeeded(model.ActionOpen, s.SignalID, s.Symbol, "ok", time.Now())
		},
	}

	var d *Dispatcher
	done := make(chan string, 8)
	d = NewDispatcher(p, WithQueueSize(1), WithDispatcherLogger(quietLogger()), WithResultHook(func(r model.TradeResult) {
		_ = d.Stats()
		done <- r.SignalID
	}))
	ctx := context.Background()

	d.OnSignal(ctx, sig("btc-1", "BTCUSDT"))
	<-entered
	d.OnSignal(ctx, sig("btc-2", "BTCUSDT"))

	blocked := make(chan struct{})
	go func() {
		d.OnSignal(ctx, sig("btc-3", "BTCUSDT"))
		close(blocked)
	}()
	time.Sleep(50 * time.Millisecond)

	statsDone := make(chan DispatcherStats, 1)
	go func() { statsDone <- d.Stats() }()
	select {
	case st := <-statsDone:
		require.Equal(t, 1, st.Symbols)
	case <-time.After(time.Second):
		t.Fatal("Stats blocked behind a full symbol queue")
	}

	go d.OnSignal(ctx, sig("eth-1", "ETHUSDT"))
	select {
	case id := <-done:
		require.Equal(t, "eth-1", id)
	case <-time.After(time.Second):
		t.Fatal("ETHUSDT was held up by the full BTCUSDT queue")
	}

	close(release)
	<-blocked
	d.Close()

	require.Equal(t, int64(4), d.Stats().Processed)
}
