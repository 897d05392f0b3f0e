package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	apperrors "curation-bff/common/errors"
	"curation-bff/models"
)

const scraperProductsPath = "/api/v1/scraper/products"

// RecordStoreClient talks to the scraper service that owns scraped products
// and their curation status.
type RecordStoreClient struct {
	gateway *GatewayClient
}

func NewRecordStoreClient(gateway *GatewayClient) *RecordStoreClient {
	return &RecordStoreClient{gateway: gateway}
}

// GetProduct fetches one product. An upstream 404 becomes NotFound.
func (r *RecordStoreClient) GetProduct(ctx context.Context, id string) (*models.ScrapedProduct, error) {
	resp, err := r.gateway.Forward(ctx, http.MethodGet, productPath(id), ForwardOptions{Mode: ModeGlobal})
	if err != nil {
		if IsUpstreamStatus(err, http.StatusNotFound) {
			return nil, apperrors.NotFound("Product %s not found", id)
		}
		return nil, err
	}

	product, err := decodeProduct(resp.Body)
	if err != nil {
		return nil, err
	}
	if product.ID == "" {
		product.ID = id
	}
	return product, nil
}

// UpdateStatus applies a curation-status change.
func (r *RecordStoreClient) UpdateStatus(ctx context.Context, id string, update models.StatusUpdate) error {
	_, err := r.gateway.Forward(ctx, http.MethodPatch, productPath(id)+"/curation-status", ForwardOptions{
		Body: update,
		Mode: ModeGlobal,
	})
	return err
}

// DeleteProduct removes a product. Upstream errors, 404 included, are returned as is.
func (r *RecordStoreClient) DeleteProduct(ctx context.Context, id string) error {
	_, err := r.gateway.Forward(ctx, http.MethodDelete, productPath(id), ForwardOptions{Mode: ModeGlobal})
	return err
}

// ListProducts returns the raw listing page for query.
func (r *RecordStoreClient) ListProducts(ctx context.Context, query url.Values) (*UpstreamResponse, error) {
	return r.gateway.Forward(ctx, http.MethodGet, scraperProductsPath, ForwardOptions{Query: query, Mode: ModeGlobal})
}

// GetProductRaw returns one product without decoding it.
func (r *RecordStoreClient) GetProductRaw(ctx context.Context, id string) (*UpstreamResponse, error) {
	return r.gateway.Forward(ctx, http.MethodGet, productPath(id), ForwardOptions{Mode: ModeGlobal})
}

// Stats returns the raw curation statistics.
func (r *RecordStoreClient) Stats(ctx context.Context) (*UpstreamResponse, error) {
	return r.gateway.Forward(ctx, http.MethodGet, "/api/v1/scraper/stats", ForwardOptions{Mode: ModeGlobal})
}

func productPath(id string) string {
	return scraperProductsPath + "/" + url.PathEscape(id)
}

// decodeProduct accepts a bare product or one wrapped in "data" or "product".
func decodeProduct(body []byte) (*models.ScrapedProduct, error) {
	var envelope struct {
		Data    *models.ScrapedProduct `json:"data"`
		Product *models.ScrapedProduct `json:"product"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, apperrors.InternalProxy(err)
	}
	switch {
	case envelope.Data != nil:
		return envelope.Data, nil
	case envelope.Product != nil:
		return envelope.Product, nil
	}

	var product models.ScrapedProduct
	if err := json.Unmarshal(body, &product); err != nil {
		return nil, apperrors.InternalProxy(err)
	}
	return &product, nil
}
