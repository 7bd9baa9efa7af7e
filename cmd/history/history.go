// Package history prints the trade journal.
package history

import (
	"context"
	"fmt"
	"io"
	"time"

	"gorm.io/gorm"

	"signalexecutor/cmd/ui"
	"signalexecutor/src/config"
	"signalexecutor/src/database"
	"signalexecutor/src/model"
	"signalexecutor/src/repository"
)

type Options struct {
	Limit    int
	SignalID string
	Errors   bool
	Now      func() time.Time
}

// History reads the journal configured in cfg.
type History struct {
	Out io.Writer
	Cfg config.Config
}

func New(out io.Writer, cfg config.Config) *History {
	return &History{Out: out, Cfg: cfg}
}

func (h *History) Print(ctx context.Context, opts Options) error {
	p := ui.New(h.Out)
	if !h.Cfg.Journal.Enabled {
		p.Warn("Trade journal is disabled")
		return nil
	}

	db, err := database.Open(h.Cfg.DatabaseConfig())
	if err != nil {
		p.Fail("Failed to open trade journal: %v", err)
		return err
	}
	defer func() { _ = database.Close(db) }()

	if opts.Errors {
		return h.printExceptions(ctx, p, db, opts.Limit)
	}

	trades := repository.NewTradeRecordRepository(db)

	var records []model.TradeRecord
	if opts.SignalID != "" {
		p.Title("Signal " + opts.SignalID)
		records, err = trades.BySignal(ctx, opts.SignalID)
	} else {
		p.Title("Latest trades")
		records, err = trades.Latest(ctx, opts.Limit)
	}
	if err != nil {
		p.Fail("Failed to read trade journal: %v", err)
		return err
	}

	if len(records) == 0 {
		p.Dim("No trades recorded yet")
	}
	for _, rec := range records {
		printRecord(p, rec)
	}

	if opts.SignalID != "" {
		return nil
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	stats, err := trades.StatsSince(ctx, startOfDay(now()))
	if err != nil {
		p.Fail("Failed to compute daily stats: %v", err)
		return err
	}
	p.Blank()
	p.Table([][2]string{
		{"Today", fmt.Sprintf("%d results", stats.Total)},
		{"Succeeded", fmt.Sprintf("%d", stats.Succeeded)},
		{"Opened", fmt.Sprintf("%d", stats.Opened)},
	})
	return nil
}

func (h *History) printExceptions(ctx context.Context, p *ui.Printer, db *gorm.DB, limit int) error {
	rows, err := repository.NewExceptionRepository(db).Latest(ctx, limit)
	if err != nil {
		p.Fail("Failed to read exceptions: %v", err)
		return err
	}

	p.Title("Latest errors")
	if len(rows) == 0 {
		p.Dim("No errors recorded")
	}
	for _, exc := range rows {
		line := fmt.Sprintf("%s %-6s %s.%s %s %s", exc.CreatedAt.Format(time.DateTime), exc.Level, exc.Module,
			exc.Method, exc.Symbol, exc.Message)
		p.Fail("%s", line)
	}
	return nil
}

func printRecord(p *ui.Printer, rec model.TradeRecord) {
	line := fmt.Sprintf("%s %-8s %-10s %-12s %s", rec.ExecutedAt.Format(time.DateTime), rec.Action, rec.Symbol,
		rec.SignalID, rec.Message)
	if rec.Success {
		p.OK("%s", line)
		return
	}
	p.Fail("%s [%s]", line, rec.Reason)
}

// startOfDay is local midnight, the same boundary the daily risk counters roll over on.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
