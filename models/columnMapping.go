package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/recon_backend/config"
)

// ColumnMapping maps one source spreadsheet column to one canonical staging
// column, scoped per source type. Administrator-maintained reference data;
// read-only to the pipeline.
type ColumnMapping struct {
	ID                 int        `gorm:"primary_key" json:"id"`
	SourceType         SourceType `gorm:"size:64;not null;uniqueIndex:idx_cm_type_source,priority:1;uniqueIndex:idx_cm_type_canonical,priority:1" json:"source_type"`
	SourceColumnName   string     `gorm:"size:255;not null;uniqueIndex:idx_cm_type_source,priority:2" json:"source_column_name"`
	CanonicalFieldName string     `gorm:"size:255;not null;uniqueIndex:idx_cm_type_canonical,priority:2" json:"canonical_field_name"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// HeaderResolution is the outcome of matching a raw header row against the
// registry. CanonicalHeaders is positional: nil marks an unmapped column whose
// values must be skipped when zipping data rows.
type HeaderResolution struct {
	CanonicalHeaders []*string
	Unmapped         []string
}

// LoadColumnMappings returns the registry for one source type as a
// sourceColumn -> canonicalField map, redis or db, cache result.
// Mappings that target a column the raw model doesn't have are rejected here,
// at load time, rather than surfacing later as a row-insert failure.
func LoadColumnMappings(ctx context.Context, sourceType SourceType) (map[string]string, error) {
	mappings := make(map[string]string)
	redisKey := "colMap:" + string(sourceType)
	exists, err := config.GetRedisObject(redisKey, &mappings)
	if err != nil {
		return nil, err
	}
	if !exists {
		db := config.GetDB()
		var rows []*ColumnMapping
		if err := db.WithContext(ctx).Model(&ColumnMapping{}).
			Where("source_type = ?", sourceType).Find(&rows).Error; err != nil {
			return nil, err
		}

		allowed, err := CanonicalFields(sourceType)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			if !allowed[row.CanonicalFieldName] {
				return nil, fmt.Errorf("column mapping %d targets unknown canonical field %q for source type %q",
					row.ID, row.CanonicalFieldName, sourceType)
			}
			mappings[row.SourceColumnName] = row.CanonicalFieldName
		}
		if err := config.SetRedisObject(redisKey, &mappings, 0); err != nil {
			return nil, err
		}
	}
	return mappings, nil
}

// ResolveHeaders matches a raw header row against the registry for one source
// type. Header text is compared verbatim (no trimming, no case folding):
// silent mis-mapping of financial columns is worse than a visible
// "unmapped" warning, so unmapped headers are reported and dropped, never
// fuzzily matched and never an error.
func ResolveHeaders(ctx context.Context, sourceType SourceType, rawHeaderRow []string) (*HeaderResolution, error) {
	mappings, err := LoadColumnMappings(ctx, sourceType)
	if err != nil {
		return nil, err
	}
	return resolveHeadersWith(mappings, rawHeaderRow), nil
}

func resolveHeadersWith(mappings map[string]string, rawHeaderRow []string) *HeaderResolution {
	resolution := &HeaderResolution{
		CanonicalHeaders: make([]*string, len(rawHeaderRow)),
	}
	for i, header := range rawHeaderRow {
		canonical, ok := mappings[header]
		if !ok {
			resolution.Unmapped = append(resolution.Unmapped, header)
			continue
		}
		c := canonical
		resolution.CanonicalHeaders[i] = &c
	}
	return resolution
}
