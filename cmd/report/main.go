// Package main prints a performance summary of closed positions.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/your-org/momentum-growth-bot/internal/report"
	"github.com/your-org/momentum-growth-bot/pkg/logger"
)

func main() {
	days := flag.Int("days", 30, "Window of closed positions to analyze, in days")
	asJSON := flag.Bool("json", false, "Emit the report as JSON")
	flag.Parse()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		logger.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	since := time.Now().UTC().AddDate(0, 0, -*days)
	trades, err := report.NewService(pool).FetchClosedTrades(ctx, since)
	if err != nil {
		logger.Fatalf("Failed to fetch closed positions: %v", err)
	}

	r, err := report.Analyze(trades)
	if err != nil {
		if errors.Is(err, report.ErrNoClosedTrades) {
			logger.Infof("No positions closed in the last %d day(s).", *days)
			return
		}
		logger.Fatalf("Failed to analyze closed positions: %v", err)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			logger.Fatalf("Failed to encode report: %v", err)
		}
		return
	}

	fmt.Printf("Performance %s .. %s\n", r.StartDate.Format("2006-01-02"), r.EndDate.Format("2006-01-02"))
	fmt.Printf("  Closed positions:   %d (targets %d, stops %d, manual %d)\n",
		r.TotalClosed, r.TargetHits, r.StopOuts, r.ManualCloses)
	fmt.Printf("  Win rate:           %.1f%% (%d/%d), profitable stop-outs %d\n",
		r.WinRate*100, r.WinningTrades, r.TotalClosed, r.ProfitableStopOuts)
	fmt.Printf("  Profit:             total %.2f%%, avg %.2f%% (win %.2f%% / loss %.2f%%)\n",
		r.TotalProfitPct, r.AverageProfitPct, r.AverageWinPct, r.AverageLossPct)
	fmt.Printf("  Profit factor:      %.2f\n", r.ProfitFactor)
	fmt.Printf("  Live quote PnL:     %s\n", r.LiveQuotePnL.StringFixed(2))
	fmt.Printf("  Streaks:            %d wins / %d losses\n", r.MaxConsecutiveWins, r.MaxConsecutiveLosses)
	fmt.Printf("  Avg holding time:   %s\n", (time.Duration(r.AverageHoldingSeconds) * time.Second).Round(time.Second))
}
