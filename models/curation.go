package models

const (
	DefaultBrandName    = "Sin Marca"
	DefaultCategoryName = "General"
	GenericBrandName    = "Marca Genérica"

	// ValidationConfidenceThreshold is the confidence above which categorizer
	// output is considered validated.
	ValidationConfidenceThreshold = 0.7
)

// CurationKind identifies the path that produced a CuratedData value.
type CurationKind string

const (
	// KindAI is produced by the asynchronous curation job runner.
	KindAI CurationKind = "ai"
	// KindFallback reuses the categorization capability synchronously.
	KindFallback CurationKind = "fallback"
	// KindSimple is synthesized offline from the scraped fields.
	KindSimple CurationKind = "simple"
)

// CuratedData is the enrichment result attached to a product.
type CuratedData struct {
	Name              string                 `json:"name"`
	Description       string                 `json:"description"`
	SKU               string                 `json:"sku"`
	EAN               string                 `json:"ean,omitempty"`
	BrandName         string                 `json:"brand_name"`
	BrandValidated    bool                   `json:"brand_validated"`
	CategoryName      string                 `json:"category_name"`
	CategoryValidated bool                   `json:"category_validated"`
	Attributes        map[string]interface{} `json:"attributes,omitempty"`
	ConfidenceScore   float64                `json:"confidence_score"`
	Notes             string                 `json:"notes,omitempty"`
}

// CurationResult tags curated data with the path that produced it.
type CurationResult struct {
	Kind CurationKind `json:"kind"`
	Data CuratedData  `json:"data"`
}

// CategorizationResult is what the categorization capability returns for one product.
type CategorizationResult struct {
	Brand      string                 `json:"brand"`
	Category   string                 `json:"category"`
	Confidence float64                `json:"confidence"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
	EAN        string                 `json:"ean,omitempty"`
}
