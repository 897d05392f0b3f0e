package clients

import (
	"context"
	"net/http"

	"curation-bff/models"
)

// CategorizerClient calls the synchronous AI categorization capability.
type CategorizerClient struct {
	gateway *GatewayClient
}

func NewCategorizerClient(gateway *GatewayClient) *CategorizerClient {
	return &CategorizerClient{gateway: gateway}
}

type categorizeRequest struct {
	ProductID   string                 `json:"product_id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Brand       string                 `json:"brand,omitempty"`
	Category    string                 `json:"category,omitempty"`
	Attributes  map[string]interface{} `json:"attributes,omitempty"`
}

// Categorize classifies exactly one product.
func (c *CategorizerClient) Categorize(ctx context.Context, p *models.ScrapedProduct) (*models.CategorizationResult, error) {
	var result models.CategorizationResult
	err := c.gateway.ForwardJSON(ctx, http.MethodPost, "/api/v1/ai/categorize", ForwardOptions{
		Body: categorizeRequest{
			ProductID:   p.ID,
			Name:        p.Name,
			Description: p.Description,
			Brand:       p.Brand,
			Category:    p.Category,
			Attributes:  p.Attributes,
		},
		Mode: ModeGlobal,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}
