// seed-mappings installs the default column mappings for the known POS,
// aggregator and bank export layouts. Safe to rerun: existing mappings are
// updated in place and the redis registry cache is invalidated afterwards.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-mappings
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/recon_backend/config"
	"bitbucket.org/mmdatafocus/recon_backend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Default mappings mirror the header rows the current vendor exports ship
// with. New layouts get rows added by an administrator, not a redeploy.
var defaultMappings = map[models.SourceType]map[string]string{
	models.SourceTypePosSale: {
		"Bill No":      "bill_no",
		"Store Code":   "store_code",
		"Bill Date":    "bill_date",
		"Gross Amount": "gross_amount",
		"Discount":     "discount_amount",
		"Net Amount":   "net_amount",
		"Tax":          "tax_amount",
		"Round Off":    "round_off_amount",
		"Payment Mode": "payment_mode",
		"Order Status": "order_status",
		"Cashier":      "cashier_name",
	},
	models.SourceTypeAggregatorSettlement: {
		"Order ID":       "order_id",
		"Store Code":     "store_code",
		"Order Date":     "order_date",
		"Gross Amount":   "gross_amount",
		"Discount":       "discount_amount",
		"Net Amount":     "net_amount",
		"Tax":            "tax_amount",
		"Commission":     "commission_amount",
		"Payment Fee":    "payment_fee_amount",
		"Payout Amount":  "payout_amount",
		"Order Status":   "order_status",
		"Settlement Ref": "settlement_ref",
	},
	models.SourceTypeBankStatement: {
		"Transaction Ref":  "transaction_ref",
		"Store Code":       "store_code",
		"Transaction Date": "transaction_date",
		"Credit":           "credit_amount",
		"Debit":            "debit_amount",
		"Balance":          "balance_amount",
		"Narration":        "narration",
	},
}

func main() {
	dryRun := flag.Bool("dry-run", false, "Print the mappings that would be written without touching the DB")
	flag.Parse()

	if *dryRun {
		for sourceType, mappings := range defaultMappings {
			for source, canonical := range mappings {
				fmt.Printf("%s: %q -> %s\n", sourceType, source, canonical)
			}
		}
		return
	}

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	config.ConnectRedisWithRetry()

	total := 0
	for sourceType, mappings := range defaultMappings {
		// Validate against the raw model before writing anything.
		allowed, err := models.CanonicalFields(sourceType)
		if err != nil {
			fmt.Fprintf(os.Stderr, "canonical fields for %s: %v\n", sourceType, err)
			os.Exit(1)
		}
		for source, canonical := range mappings {
			if !allowed[canonical] {
				fmt.Fprintf(os.Stderr, "mapping %q -> %q targets unknown canonical field for %s\n", source, canonical, sourceType)
				os.Exit(1)
			}
		}

		if err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for source, canonical := range mappings {
				row := models.ColumnMapping{
					SourceType:         sourceType,
					SourceColumnName:   source,
					CanonicalFieldName: canonical,
				}
				if err := tx.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "source_type"}, {Name: "source_column_name"}},
					DoUpdates: clause.AssignmentColumns([]string{"canonical_field_name"}),
				}).Create(&row).Error; err != nil {
					return err
				}
				total++
			}
			return nil
		}); err != nil {
			fmt.Fprintf(os.Stderr, "seed %s mappings: %v\n", sourceType, err)
			os.Exit(1)
		}

		if err := config.RemoveRedisKey("colMap:" + string(sourceType)); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not invalidate redis cache for %s: %v\n", sourceType, err)
		}
	}
	fmt.Printf("Seeded %d column mappings\n", total)
}
