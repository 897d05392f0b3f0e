package models

// CatalogProduct is the canonical create payload for the global catalog.
type CatalogProduct struct {
	Name         string                 `json:"name"`
	Description  string                 `json:"description"`
	SKU          string                 `json:"sku"`
	EAN          string                 `json:"ean,omitempty"`
	BrandName    string                 `json:"brand_name"`
	CategoryName string                 `json:"category_name"`
	Price        float64                `json:"price"`
	Currency     string                 `json:"currency,omitempty"`
	Images       []string               `json:"images"`
	Attributes   map[string]interface{} `json:"attributes,omitempty"`

	// provenance
	Source     string `json:"source"`
	SourceURL  string `json:"source_url,omitempty"`
	OriginalID string `json:"original_id"`
}

// NewCatalogProduct builds the catalog payload for a curated product.
func NewCatalogProduct(p *ScrapedProduct) CatalogProduct {
	cd := p.CuratedData
	if cd == nil {
		cd = &CuratedData{}
	}
	images := p.Images
	if images == nil {
		images = []string{}
	}
	attrs := cd.Attributes
	if len(attrs) == 0 {
		attrs = p.Attributes
	}
	return CatalogProduct{
		Name:         firstNonEmpty(cd.Name, p.Name),
		Description:  firstNonEmpty(cd.Description, p.Description),
		SKU:          cd.SKU,
		EAN:          cd.EAN,
		BrandName:    firstNonEmpty(cd.BrandName, DefaultBrandName),
		CategoryName: firstNonEmpty(cd.CategoryName, DefaultCategoryName),
		Price:        p.Price,
		Currency:     p.Currency,
		Images:       images,
		Attributes:   attrs,
		Source:       p.Source,
		SourceURL:    p.SourceURL,
		OriginalID:   firstNonEmpty(p.ExternalID, p.ID),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
