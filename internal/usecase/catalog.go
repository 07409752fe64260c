package usecase

import (
	"context"

	"EthNews/internal/domain"
	"EthNews/internal/ports"
)

// Catalog serves read-only listings of stored articles.
type Catalog struct {
	repository ports.ArticleRepository
}

func NewCatalog(repository ports.ArticleRepository) *Catalog {
	return &Catalog{repository: repository}
}

// Query returns one newest-first page; the limit is clamped to the page bounds.
func (c *Catalog) Query(ctx context.Context, params domain.QueryParams) (domain.Page, error) {
	params.Limit = params.PageSize()
	page, err := c.repository.Query(ctx, params)
	if err != nil {
		return domain.Page{}, err
	}
	if page.Items == nil {
		page.Items = []domain.ArticleRecord{}
	}
	return page, nil
}

// Count returns the number of stored articles.
func (c *Catalog) Count(ctx context.Context) (int64, error) {
	return c.repository.Count(ctx)
}
