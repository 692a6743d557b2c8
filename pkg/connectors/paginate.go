package connectors

import "context"

// Paginate drives a paginated fetch to completion per spec §4.2's common
// contract: stop when a page returns fewer rows than pageSize, when
// maxRecords is reached (0 means unbounded), or on error — in the error
// case, whatever rows were already accumulated are still returned
// alongside the error so the caller can decide how to report partial
// progress.
func Paginate[T any](
	ctx context.Context,
	pageSize, maxRecords int,
	fetchPage func(ctx context.Context, offset, limit int) ([]T, error),
) ([]T, error) {
	var all []T
	offset := 0

	for {
		page, err := fetchPage(ctx, offset, pageSize)
		if err != nil {
			return all, err
		}
		all = append(all, page...)

		if maxRecords > 0 && len(all) >= maxRecords {
			return all[:maxRecords], nil
		}
		if len(page) < pageSize {
			return all, nil
		}
		offset += len(page)
	}
}
