// Package main exports closed positions as CSV for offline analysis.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/your-org/momentum-growth-bot/internal/csvwriter"
	"github.com/your-org/momentum-growth-bot/internal/report"
	"github.com/your-org/momentum-growth-bot/pkg/logger"
)

func main() {
	sinceStr := flag.String("since", "", "Start of the export window (YYYY-MM-DD), defaults to all history")
	flag.Parse()

	since := time.Time{}
	if *sinceStr != "" {
		parsed, err := time.Parse("2006-01-02", *sinceStr)
		if err != nil {
			logger.Fatalf("Invalid --since value %q: %v", *sinceStr, err)
		}
		since = parsed
	}

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

	trades, err := report.NewService(pool).FetchClosedTrades(ctx, since)
	if err != nil {
		logger.Fatalf("Failed to fetch closed positions: %v", err)
	}

	w, err := csvwriter.NewWriter(os.Stdout, logger.Zap())
	if err != nil {
		logger.Fatalf("Failed to initialize CSV output: %v", err)
	}
	for _, t := range trades {
		if err := w.WriteTrade(t); err != nil {
			logger.Fatalf("Failed to write trade: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		logger.Fatalf("Failed to flush CSV output: %v", err)
	}
	logger.Infof("Exported %d closed position(s).", len(trades))
}
