package crawler

import (
	"context"
	"fmt"

	"f95-crawler/storage"
	"f95-crawler/utils"
)

// MissingThreadIDs returns the listed thread ids that have no detail row,
// in the order the listing store first saw them.
func MissingThreadIDs(ctx context.Context, games storage.GameStore, details storage.DetailStore) ([]int64, error) {
	all, err := games.GameThreadIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan listing ids: %w", err)
	}
	have, err := details.ThreadDetailIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan detail ids: %w", err)
	}
	return utils.NewIDSet(have...).Difference(all), nil
}
