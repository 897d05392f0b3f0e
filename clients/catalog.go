package clients

import (
	"context"
	"fmt"
	"net/http"

	apperrors "curation-bff/common/errors"
	"curation-bff/models"
)

// CatalogClient creates products in the global catalog.
type CatalogClient struct {
	gateway *GatewayClient
}

func NewCatalogClient(gateway *GatewayClient) *CatalogClient {
	return &CatalogClient{gateway: gateway}
}

type createdProduct struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Data      *struct {
		ID string `json:"id"`
	} `json:"data"`
}

// CreateProduct creates payload and returns the new global product id.
func (c *CatalogClient) CreateProduct(ctx context.Context, payload models.CatalogProduct) (string, error) {
	var created createdProduct
	err := c.gateway.ForwardJSON(ctx, http.MethodPost, "/api/v1/global-catalog/products", ForwardOptions{
		Body: payload,
		Mode: ModeGlobal,
	}, &created)
	if err != nil {
		return "", err
	}

	switch {
	case created.ID != "":
		return created.ID, nil
	case created.ProductID != "":
		return created.ProductID, nil
	case created.Data != nil && created.Data.ID != "":
		return created.Data.ID, nil
	}
	return "", apperrors.InternalProxy(errMissingField("id"))
}

func errMissingField(field string) error {
	return fmt.Errorf("upstream response missing %q", field)
}
