package services

import (
	"context"

	"curation-bff/models"
)

// RecordStore owns scraped products and their curation status.
type RecordStore interface {
	GetProduct(ctx context.Context, id string) (*models.ScrapedProduct, error)
	UpdateStatus(ctx context.Context, id string, update models.StatusUpdate) error
	DeleteProduct(ctx context.Context, id string) error
}

// JobRunner runs asynchronous AI curation over batches of products.
type JobRunner interface {
	Submit(ctx context.Context, productIDs []string, notes string) (*models.CurationJob, error)
	Get(ctx context.Context, jobID string) (*models.CurationJob, error)
}

// Categorizer classifies one product synchronously.
type Categorizer interface {
	Categorize(ctx context.Context, p *models.ScrapedProduct) (*models.CategorizationResult, error)
}

// Catalog creates products in the global catalog.
type Catalog interface {
	CreateProduct(ctx context.Context, payload models.CatalogProduct) (string, error)
}
