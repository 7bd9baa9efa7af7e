package executors

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"signalexecutor/src/model"
)

// Pipeline is the execution side of the dispatcher. *pipeline.Executor satisfies it.
type Pipeline interface {
	ExecuteSignal(ctx context.Context, sig model.Signal) model.TradeResult
	ClosePosition(ctx context.Context, cmd model.CloseCommand) model.TradeResult
	UpdateSLTP(ctx context.Context, cmd model.EditSLTPCommand) model.TradeResult
	UpdateLeverage(ctx context.Context, cmd model.LeverageCommand) model.TradeResult
}

// Journal stores one record per result. *repository.TradeRecordRepository satisfies it.
type Journal interface {
	Create(ctx context.Context, rec *model.TradeRecord) error
}

const moduleDispatcher = "dispatcher"

type task struct {
	ctx context.Context
	in  model.Instruction
}

// Dispatcher receives broadcaster callbacks and runs them on one FIFO worker per symbol,
// so a slow venue call on one symbol never holds up another.
type Dispatcher struct {
	log        *logrus.Entry
	pipeline   Pipeline
	journal    Journal
	exceptions ExceptionStore
	service    string
	queueSize  int
	onResult   func(model.TradeResult)

	mu     sync.Mutex
	queues map[string]chan task
	closed bool
	// sending counts enqueues that hold a queue but have not handed their task over yet.
	sending sync.WaitGroup
	wg      sync.WaitGroup

	connected atomic.Bool
	processed atomic.Int64
	failed    atomic.Int64
}

type DispatcherOption func(*Dispatcher)

func WithJournal(j Journal) DispatcherOption {
	return func(d *Dispatcher) { d.journal = j }
}

func WithExceptionStore(s ExceptionStore) DispatcherOption {
	return func(d *Dispatcher) { d.exceptions = s }
}

func WithQueueSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queueSize = n
		}
	}
}

func WithServiceName(name string) DispatcherOption {
	return func(d *Dispatcher) { d.service = name }
}

// WithResultHook is called on the worker goroutine after each result was journaled.
func WithResultHook(fn func(model.TradeResult)) DispatcherOption {
	return func(d *Dispatcher) { d.onResult = fn }
}

func WithDispatcherLogger(l *logrus.Entry) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

func NewDispatcher(p Pipeline, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		log:       logrus.NewEntry(logrus.StandardLogger()),
		pipeline:  p,
		service:   "signalexecutor",
		queueSize: 64,
		queues:    make(map[string]chan task),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func (d *Dispatcher) OnConnected(context.Context) {
	d.connected.Store(true)
	d.log.Info("Listening for signals")
}

func (d *Dispatcher) OnDisconnected(_ context.Context, err error) {
	d.connected.Store(false)
	d.log.WithError(err).Warn("Signal stream interrupted")
}

func (d *Dispatcher) OnSignal(ctx context.Context, sig model.Signal) {
	d.log.WithFields(logrus.Fields{
		"signal_id": sig.SignalID,
		"symbol":    sig.Symbol,
		"side":      sig.SignalType,
		"type":      sig.OrderType,
	}).Info("New signal received")
	d.enqueue(ctx, model.NewSignal{Signal: sig})
}

func (d *Dispatcher) OnClose(ctx context.Context, cmd model.CloseCommand) {
	d.log.WithFields(logrus.Fields{"signal_id": cmd.SignalID, "symbol": cmd.Symbol, "percentage": cmd.Percentage}).Info("Close signal received")
	d.enqueue(ctx, model.CloseSignal{Command: cmd})
}

func (d *Dispatcher) OnEditSLTP(ctx context.Context, cmd model.EditSLTPCommand) {
	d.log.WithFields(logrus.Fields{"signal_id": cmd.SignalID, "symbol": cmd.Symbol}).Info("SL/TP update received")
	d.enqueue(ctx, model.EditSLTP{Command: cmd})
}

func (d *Dispatcher) OnLeverage(ctx context.Context, cmd model.LeverageCommand) {
	d.log.WithFields(logrus.Fields{"signal_id": cmd.SignalID, "symbol": cmd.Symbol, "leverage": cmd.Leverage}).Info("Leverage update received")
	d.enqueue(ctx, model.UpdateLeverage{Command: cmd})
}

// enqueue blocks when the symbol queue is full, which applies back pressure to the read loop.
// d.mu is released before the send, so a full queue never stalls other symbols, Stats or Close.
func (d *Dispatcher) enqueue(ctx context.Context, in model.Instruction) {
	symbol := model.SymbolOf(in)

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.log.WithField("symbol", symbol).Warn("Dispatcher closed, dropping instruction")
		return
	}

	q, ok := d.queues[symbol]
	if !ok {
		q = make(chan task, d.queueSize)
		d.queues[symbol] = q
		d.wg.Add(1)
		go d.worker(symbol, q)
	}
	d.sending.Add(1)
	d.mu.Unlock()

	defer d.sending.Done()
	q <- task{ctx: ctx, in: in}
}

func (d *Dispatcher) worker(symbol string, q <-chan task) {
	defer d.wg.Done()
	log := d.log.WithField("symbol", symbol)
	log.Debug("Symbol worker started")

	for t := range q {
		d.process(t)
	}
	log.Debug("Symbol worker stopped")
}

func (d *Dispatcher) process(t task) {
	method := methodOf(t.in)

	res, panicErr := d.run(t)
	if panicErr != nil {
		Capture(t.ctx, d.exceptions, d.service, moduleDispatcher, method, LevelFatal, t.in, panicErr, nil)
	}
	d.record(t, method, res, panicErr == nil)
}

// run calls the pipeline. A panic becomes a failed result plus the recovered error.
func (d *Dispatcher) run(t task) (res model.TradeResult, panicErr error) {
	defer func() {
		if r := recover(); r != nil {
			panicErr = fmt.Errorf("panic: %v", r)
			res = model.Failed(actionOf(t.in), model.ReasonVenue, model.SignalIDOf(t.in), model.SymbolOf(t.in),
				"Execution error: "+panicErr.Error(), time.Now())
		}
	}()

	switch v := t.in.(type) {
	case model.NewSignal:
		return d.pipeline.ExecuteSignal(t.ctx, v.Signal), nil
	case model.CloseSignal:
		return d.pipeline.ClosePosition(t.ctx, v.Command), nil
	case model.EditSLTP:
		return d.pipeline.UpdateSLTP(t.ctx, v.Command), nil
	case model.UpdateLeverage:
		return d.pipeline.UpdateLeverage(t.ctx, v.Command), nil
	default:
		return model.Failed(actionOf(t.in), model.ReasonInvalid, model.SignalIDOf(t.in), model.SymbolOf(t.in),
			fmt.Sprintf("Unsupported instruction %s", t.in.Type()), time.Now()), nil
	}
}

// record logs and journals res. captureVenue is false when the failure was already captured.
func (d *Dispatcher) record(t task, method string, res model.TradeResult, captureVenue bool) {
	d.processed.Add(1)

	log := d.log.WithFields(logrus.Fields{
		"signal_id": res.SignalID,
		"symbol":    res.Symbol,
		"action":    res.Action,
	})
	if res.Success {
		log.Info(res.Message)
	} else {
		d.failed.Add(1)
		log.WithField("reason", res.Reason).Warn(res.Message)
	}

	if d.journal != nil {
		if err := d.journal.Create(t.ctx, model.NewTradeRecord(res)); err != nil {
			log.WithError(err).Error("Failed to journal trade result")
		}
	}

	if captureVenue && !res.Success && res.Reason == model.ReasonVenue {
		Capture(t.ctx, d.exceptions, d.service, moduleDispatcher, method, LevelError, t.in,
			errors.New(res.Message), map[string]interface{}{"action": res.Action})
	}

	if d.onResult != nil {
		d.onResult(res)
	}
}

// Close stops accepting instructions and waits for every queued one to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	// Pending sends finish because the workers keep draining.
	d.sending.Wait()

	d.mu.Lock()
	for _, q := range d.queues {
		close(q)
	}
	d.mu.Unlock()

	d.wg.Wait()
	d.log.Info("Dispatcher drained")
}

// DispatcherStats is exposed by the status server.
type DispatcherStats struct {
	Connected bool  `json:"connected"`
	Symbols   int   `json:"symbols"`
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
}

func (d *Dispatcher) Stats() DispatcherStats {
	d.mu.Lock()
	symbols := len(d.queues)
	d.mu.Unlock()

	return DispatcherStats{
		Connected: d.connected.Load(),
		Symbols:   symbols,
		Processed: d.processed.Load(),
		Failed:    d.failed.Load(),
	}
}

func actionOf(in model.Instruction) model.Action {
	switch in.(type) {
	case model.CloseSignal:
		return model.ActionClose
	case model.EditSLTP:
		return model.ActionEditSLTP
	case model.UpdateLeverage:
		return model.ActionLeverage
	default:
		return model.ActionOpen
	}
}

func methodOf(in model.Instruction) string {
	switch in.(type) {
	case model.NewSignal:
		return "ExecuteSignal"
	case model.CloseSignal:
		return "ClosePosition"
	case model.EditSLTP:
		return "UpdateSLTP"
	case model.UpdateLeverage:
		return "UpdateLeverage"
	default:
		return "Unknown"
	}
}
