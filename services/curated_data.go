package services

import (
	"fmt"
	"strings"
	"unicode"

	"curation-bff/models"
)

const skuPrefix = "SCR-"

// deriveSKU builds a stable SKU from the product id.
func deriveSKU(productID string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(productID) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
		if b.Len() >= 16 {
			break
		}
	}
	if b.Len() == 0 {
		return skuPrefix + "UNKNOWN"
	}
	return skuPrefix + b.String()
}

func kindNote(kind models.CurationKind, detail string) string {
	if detail == "" {
		return fmt.Sprintf("curation_kind=%s", kind)
	}
	return fmt.Sprintf("curation_kind=%s; %s", kind, detail)
}

// simpleCuration synthesizes curated data from the scraped fields alone.
func simpleCuration(p *models.ScrapedProduct) models.CurationResult {
	brand := strings.TrimSpace(p.Brand)
	if brand == "" {
		brand = models.GenericBrandName
	}
	category := strings.TrimSpace(p.Category)
	if category == "" {
		category = models.DefaultCategoryName
	}
	return models.CurationResult{
		Kind: models.KindSimple,
		Data: models.CuratedData{
			Name:              p.Name,
			Description:       p.Description,
			SKU:               deriveSKU(p.ID),
			BrandName:         brand,
			BrandValidated:    false,
			CategoryName:      category,
			CategoryValidated: false,
			Attributes:        copyAttributes(p.Attributes),
			Notes:             kindNote(models.KindSimple, "synthesized from scraped fields without AI"),
		},
	}
}

// fallbackCuration builds curated data from a categorizer response.
func fallbackCuration(p *models.ScrapedProduct, cat *models.CategorizationResult) models.CurationResult {
	confident := cat.Confidence > models.ValidationConfidenceThreshold

	brand := strings.TrimSpace(cat.Brand)
	brandValidated := confident && brand != ""
	if brand == "" {
		brand = models.DefaultBrandName
	}
	category := strings.TrimSpace(cat.Category)
	categoryValidated := confident && category != ""
	if category == "" {
		category = models.DefaultCategoryName
	}

	attrs := copyAttributes(p.Attributes)
	for k, v := range cat.Attributes {
		if attrs == nil {
			attrs = make(map[string]interface{}, len(cat.Attributes))
		}
		attrs[k] = v
	}

	return models.CurationResult{
		Kind: models.KindFallback,
		Data: models.CuratedData{
			Name:              p.Name,
			Description:       p.Description,
			SKU:               deriveSKU(p.ID),
			EAN:               cat.EAN,
			BrandName:         brand,
			BrandValidated:    brandValidated,
			CategoryName:      category,
			CategoryValidated: categoryValidated,
			Attributes:        attrs,
			ConfidenceScore:   cat.Confidence,
			Notes:             kindNote(models.KindFallback, "categorization fallback, not full curation"),
		},
	}
}

// aiCuration tags job runner output, filling required fields it left empty.
func aiCuration(p *models.ScrapedProduct, data models.CuratedData, jobID string) models.CurationResult {
	if data.Name == "" {
		data.Name = p.Name
	}
	if data.Description == "" {
		data.Description = p.Description
	}
	if data.SKU == "" {
		data.SKU = deriveSKU(p.ID)
	}
	if data.BrandName == "" {
		data.BrandName = models.DefaultBrandName
	}
	if data.CategoryName == "" {
		data.CategoryName = models.DefaultCategoryName
	}
	data.Notes = kindNote(models.KindAI, "job_id="+jobID)
	return models.CurationResult{Kind: models.KindAI, Data: data}
}

func copyAttributes(in map[string]interface{}) map[string]interface{} {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
