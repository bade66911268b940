// recategorize rebuilds the five categorized sheet tables from the
// reconciliation summary. Run it after the upstream join job refreshes
// reconciliation_summaries, or any time the category tables are suspect.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/recategorize
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"bitbucket.org/mmdatafocus/recon_backend/config"
	"bitbucket.org/mmdatafocus/recon_backend/models"
)

func main() {
	skipLock := flag.Bool("skip-lock", false, "Skip the redis rebuild lock (redis not required)")
	timeoutMinutes := flag.Int("timeout-minutes", 30, "Abort the rebuild after this many minutes")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	if !*skipLock {
		config.ConnectRedisWithRetry()
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(*timeoutMinutes)*time.Minute)
	defer cancel()

	started := time.Now()
	if err := models.RebuildSheetData(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "rebuild failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Rebuilt sheet data tables in %s\n", time.Since(started).Round(time.Millisecond))
}
