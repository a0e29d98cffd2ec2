package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/GTDGit/storefront_api/internal/models"
)

const (
	assistantMatchLimit    = 20
	assistantFallbackLimit = 15
)

// AssistantProduct is the read-only view of a product handed to the shop
// assistant.
type AssistantProduct struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	Description string `json:"description"`
	Device      string `json:"device"`
	Brand       string `json:"brand"`
	InStock     bool   `json:"inStock"`
}

// ProductLink is a product reference found in assistant output.
type ProductLink struct {
	Label   string           `json:"label"`
	Product AssistantProduct `json:"product"`
}

var productLinkRe = regexp.MustCompile(`\[([^\]]+)\]\(/product/([^)\s]+)\)`)

// AssistantCatalog picks the products relevant to message. A product is
// relevant when its name, a word of its name, its category, brand or device
// (longer than two characters) appears in the message. Without any match the
// first products of the catalog are used instead.
func AssistantCatalog(products []models.Product, message string) []AssistantProduct {
	msg := strings.ToLower(message)
	var picked []models.Product
	for i := range products {
		if relevant(&products[i], msg) {
			picked = append(picked, products[i])
			if len(picked) == assistantMatchLimit {
				break
			}
		}
	}
	if len(picked) == 0 {
		n := min(len(products), assistantFallbackLimit)
		picked = products[:n]
	}

	out := make([]AssistantProduct, len(picked))
	for i := range picked {
		p := &picked[i]
		out[i] = AssistantProduct{
			ID:          p.ID,
			Name:        p.Name,
			Price:       p.EffectivePrice(),
			Description: p.Description,
			Device:      p.Device,
			Brand:       p.Brand,
			InStock:     p.Stock > 0,
		}
	}
	return out
}

func relevant(p *models.Product, msg string) bool {
	keywords := []string{
		strings.ToLower(p.Name),
		strings.ToLower(p.Category),
		strings.ToLower(p.Brand),
		strings.ToLower(p.Device),
	}
	keywords = append(keywords, strings.Fields(strings.ToLower(p.Name))...)
	for _, k := range keywords {
		if len(k) > 2 && strings.Contains(msg, k) {
			return true
		}
	}
	return false
}

// AssistantContext renders products as the inventory lines given to the
// assistant.
func AssistantContext(products []AssistantProduct) string {
	var b strings.Builder
	for _, p := range products {
		fmt.Fprintf(&b, "- %s (ID: %s, Price: %d IQD): %s (Device: %s, Brand: %s)\n",
			p.Name, p.ID, p.Price, p.Description, p.Device, p.Brand)
	}
	return b.String()
}

// AssistantService exposes the catalog to the shop assistant. It never
// mutates inventory.
type AssistantService struct {
	catalog *CatalogService
}

func NewAssistantService(catalog *CatalogService) *AssistantService {
	return &AssistantService{catalog: catalog}
}

// Catalog returns the products relevant to message.
func (s *AssistantService) Catalog(message string) []AssistantProduct {
	return AssistantCatalog(s.catalog.Products(ProductFilter{}), message)
}

// ExtractProductLinks finds [Label](/product/{id}) links in text and resolves
// them against the catalog. Unknown ids are dropped; repeated ids are kept
// once.
func (s *AssistantService) ExtractProductLinks(text string) []ProductLink {
	links := make([]ProductLink, 0)
	seen := make(map[string]bool)
	for _, m := range productLinkRe.FindAllStringSubmatch(text, -1) {
		id := m[2]
		if seen[id] {
			continue
		}
		p, err := s.catalog.Product(id)
		if err != nil {
			continue
		}
		seen[id] = true
		view := AssistantCatalog([]models.Product{*p}, "")
		links = append(links, ProductLink{Label: strings.TrimSpace(m[1]), Product: view[0]})
	}
	return links
}
