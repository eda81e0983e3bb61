package upstream

import (
	"context"

	"github.com/Cheertaboi/esim-catalog-service/internal/concurrency"
	"github.com/Cheertaboi/esim-catalog-service/internal/models"
)

// PageFunc receives each page's bundles, in page order.
type PageFunc func(page int, bundles []models.RawBundle)

// FetchAll walks every page of a bundle listing. When the first page reports
// totalPages the rest are fetched concurrently; otherwise pages are read one
// by one until a short page. Pages are always handed to fn in order.
func (c *Client) FetchAll(ctx context.Context, q BundleQuery, fn PageFunc) (int, error) {
	q.Size = c.pageSize
	q.Page = 1
	first, err := c.ListBundles(ctx, q)
	if err != nil {
		return 0, err
	}
	fn(1, first.Bundles)

	// a short page is the last one; an oversized one means paging was ignored
	if len(first.Bundles) != q.Size {
		return 1, nil
	}

	if first.TotalPages > 1 {
		return c.fetchKnownPages(ctx, q, first.TotalPages, fn)
	}
	if first.TotalPages == 1 {
		return 1, nil
	}

	pages := 1
	for p := 2; p <= c.maxPages; p++ {
		q.Page = p
		next, err := c.ListBundles(ctx, q)
		if err != nil {
			return pages, err
		}
		pages++
		fn(p, next.Bundles)
		if len(next.Bundles) < q.Size {
			break
		}
	}
	return pages, nil
}

func (c *Client) fetchKnownPages(ctx context.Context, q BundleQuery, totalPages int, fn PageFunc) (int, error) {
	if totalPages > c.maxPages {
		c.log.Warn("bundle listing truncated", "totalPages", totalPages, "maxPages", c.maxPages, "query", q.Key())
		totalPages = c.maxPages
	}

	rest := make([][]models.RawBundle, totalPages-1)
	err := concurrency.SimpleWorkerPool(ctx, c.workers, len(rest), func(ctx context.Context, i int) error {
		pq := q
		pq.Page = i + 2
		page, err := c.ListBundles(ctx, pq)
		if err != nil {
			return err
		}
		rest[i] = page.Bundles
		return nil
	})
	if err != nil {
		return 1, err
	}

	for i, bundles := range rest {
		fn(i+2, bundles)
	}
	return totalPages, nil
}
