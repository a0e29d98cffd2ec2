package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/storefront_api/internal/gateway"
)

func TestAssistantCatalog(t *testing.T) {
	products := gateway.Fixtures().Products

	picked := AssistantCatalog(products, "Anything for my Pixel 8?")
	require.Len(t, picked, 1)
	assert.Equal(t, "4", picked[0].ID)
	assert.Equal(t, int64(30000), picked[0].Price, "sale price is what the shopper pays")
	assert.True(t, picked[0].InStock)

	picked = AssistantCatalog(products, "show me the marble one")
	require.Len(t, picked, 1)
	assert.Equal(t, "Marble Serenity", picked[0].Name)

	picked = AssistantCatalog(products, "hello")
	assert.Len(t, picked, len(products), "no match falls back to the catalog head")
}

func TestAssistantContext(t *testing.T) {
	ctx := AssistantContext(AssistantCatalog(gateway.Fixtures().Products[:2], "anything"))
	lines := strings.Split(strings.TrimSpace(ctx), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t,
		"- Cyber Glitch v2 (ID: 1, Price: 42000 IQD): A futuristic cyberpunk design with neon accents and glitch art aesthetic. Durable matte finish. (Device: iPhone 15, Brand: CaseCraft)",
		lines[0])
}

func TestAssistantService_ExtractProductLinks(t *testing.T) {
	sf := newStorefront(t, nil)
	a := NewAssistantService(sf.catalog)

	text := "Try [Neon Tokyo Night](/product/3) or [ Bamboo ](/product/4). " +
		"Also [this](/product/404) and again [Neon](/product/3)."
	links := a.ExtractProductLinks(text)
	require.Len(t, links, 2)
	assert.Equal(t, "Neon Tokyo Night", links[0].Label)
	assert.Equal(t, "3", links[0].Product.ID)
	assert.Equal(t, "Bamboo", links[1].Label)
	assert.Equal(t, "Eco-Bamboo Texture", links[1].Product.Name)

	assert.Empty(t, a.ExtractProductLinks("no links here"))
	assert.NotEmpty(t, a.Catalog("urbanarmor"))
}
