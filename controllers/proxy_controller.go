package controllers

import (
	"context"
	"net/http"
	"net/url"

	"curation-bff/clients"
	apperrors "curation-bff/common/errors"

	"github.com/gin-gonic/gin"
)

// ScrapedProductsReader serves the read-only record store views.
type ScrapedProductsReader interface {
	ListProducts(ctx context.Context, query url.Values) (*clients.UpstreamResponse, error)
	GetProductRaw(ctx context.Context, id string) (*clients.UpstreamResponse, error)
	Stats(ctx context.Context) (*clients.UpstreamResponse, error)
}

// ProxyController passes record store reads through unchanged.
type ProxyController struct {
	reader ScrapedProductsReader
}

func NewProxyController(reader ScrapedProductsReader) *ProxyController {
	return &ProxyController{reader: reader}
}

func (p *ProxyController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListScrapedProducts handles GET /scraped-products
func (p *ProxyController) ListScrapedProducts(c *gin.Context) {
	resp, err := p.reader.ListProducts(c.Request.Context(), c.Request.URL.Query())
	writeUpstream(c, resp, err)
}

// GetScrapedProduct handles GET /scraped-products/:productId
func (p *ProxyController) GetScrapedProduct(c *gin.Context) {
	resp, err := p.reader.GetProductRaw(c.Request.Context(), c.Param("productId"))
	writeUpstream(c, resp, err)
}

// CurationStats handles GET /curation-stats
func (p *ProxyController) CurationStats(c *gin.Context) {
	resp, err := p.reader.Stats(c.Request.Context())
	writeUpstream(c, resp, err)
}

func writeUpstream(c *gin.Context, resp *clients.UpstreamResponse, err error) {
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	c.Data(resp.StatusCode, contentType, resp.Body)
}
