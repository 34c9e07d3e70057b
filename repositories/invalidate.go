package repositories

import (
	"ClinicHub/cache"
	"context"

	"github.com/rs/zerolog/log"
)

const patientItemsCachePattern = "patient_cache:*"

// changeCachePatterns lists the cached views a changed table's rows appear in.
var changeCachePatterns = map[string][]string{
	"patients":     {patientsCachePattern, patientItemsCachePattern},
	"appointments": {appointmentsCachePattern},
	"transactions": {transactionsCachePattern},
	"tasks":        {tasksCachePattern},
	"tags":         {tagsCacheKey, patientsCachePattern, patientItemsCachePattern},
	"patient_tags": {patientsCachePattern, patientItemsCachePattern},
	"messages":     {messagesCachePattern},
}

// InvalidateTable drops the cached views of table. It runs when a change
// notification arrives, so anyone re-reading after the notification misses
// the cache even if the writer has not cleared it yet.
func InvalidateTable(ctx context.Context, c *cache.Cache, table string) {
	for _, pattern := range changeCachePatterns[table] {
		if err := c.DeleteAll(ctx, pattern); err != nil {
			log.Warn().Err(err).Str("table", table).Str("pattern", pattern).Msg("failed to invalidate cache")
		}
	}
}
