package models

import (
	"log"

	"bitbucket.org/mmdatafocus/recon_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&ColumnMapping{}, &UploadJob{},
		&RawPosSale{}, &RawAggregatorSettlement{}, &RawBankStatement{},
		&ReconciliationSummary{},
		&PosMatchedSheetData{}, &AggMatchedSheetData{}, &RefundSheetData{},
		&MissingInPosSheetData{}, &MissingInAggSheetData{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
