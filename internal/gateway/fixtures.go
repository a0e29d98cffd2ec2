package gateway

import "github.com/GTDGit/storefront_api/internal/models"

// DefaultShippingFee is used when the store has no saved settings.
const DefaultShippingFee int64 = 5000

const unsplash = "https://images.unsplash.com/"

func img(id string) string {
	return unsplash + id + "?auto=format&fit=crop&w=500&q=70&fm=webp"
}

func logo(id string) string {
	return unsplash + id + "?auto=format&fit=crop&w=200&q=70&fm=webp"
}

func slide(id string) string {
	return unsplash + id + "?auto=format&fit=crop&w=1000&q=70&fm=webp"
}

func price(v int64) *int64 { return &v }

// Fixtures returns the demo catalog served when no store is reachable.
// Every call returns fresh values.
func Fixtures() *Catalog {
	products := []models.Product{
		{
			ID: "1", Name: "Cyber Glitch v2", Price: 50000, SalePrice: price(42000),
			Description: "A futuristic cyberpunk design with neon accents and glitch art aesthetic. Durable matte finish.",
			Category:    "Artistic", Device: "iPhone 15", Brand: "CaseCraft",
			Image:  img("photo-1603351154351-5cf233d327e4"),
			Images: []string{img("photo-1603351154351-5cf233d327e4"), img("photo-1550745165-9bc0b252726f")},
			Rating: 4.8,
			Variants: []models.Variant{
				{ID: "v1", Color: "#8B5CF6", Stock: 10, Image: img("photo-1603351154351-5cf233d327e4")},
				{ID: "v2", Color: "#3B82F6", Stock: 5, Image: img("photo-1550745165-9bc0b252726f")},
			},
		},
		{
			ID: "2", Name: "Marble Serenity", Price: 45000,
			Description: "Elegant white marble texture with gold vein inlays. Perfect for a sophisticated look.",
			Category:    "Minimalist", Device: "iPhone 14", Brand: "LuxLife",
			Image:  img("photo-1601593346740-925612772716"),
			Images: []string{img("photo-1601593346740-925612772716"), img("photo-1595429035839-c99c298ffdde")},
			Rating: 4.5,
			Variants: []models.Variant{
				{ID: "v1", Color: "#FFFFFF", Stock: 20, Image: img("photo-1601593346740-925612772716")},
				{ID: "v2", Color: "#FFD700", Stock: 22, Image: img("photo-1595429035839-c99c298ffdde")},
			},
		},
		{
			ID: "3", Name: "Neon Tokyo Night", Price: 60000,
			Description: "Vibrant cityscape of Tokyo at night. High-gloss finish that protects against scratches.",
			Category:    "Urban", Device: "Samsung S24", Brand: "UrbanArmor",
			Image:  img("photo-1586105251261-72a756497a11"),
			Images: []string{img("photo-1586105251261-72a756497a11")},
			Rating: 4.9,
			Variants: []models.Variant{
				{ID: "v1", Color: "#EC4899", Stock: 8, Image: img("photo-1586105251261-72a756497a11")},
			},
		},
		{
			ID: "4", Name: "Eco-Bamboo Texture", Price: 35000, SalePrice: price(30000),
			Description: "Sustainable look with a realistic bamboo wood grain texture. Soft touch feel.",
			Category:    "Nature", Device: "Pixel 8", Brand: "EcoGuard",
			Image:  img("photo-1694501015348-6b06504f3252"),
			Images: []string{img("photo-1694501015348-6b06504f3252")},
			Rating: 4.3,
			Variants: []models.Variant{
				{ID: "v1", Color: "#8B4513", Stock: 100, Image: img("photo-1694501015348-6b06504f3252")},
			},
		},
		{
			ID: "5", Name: "Abstract Geometry", Price: 48000,
			Description: "Bold geometric shapes in primary colors. A statement piece for art lovers.",
			Category:    "Artistic", Device: "iPhone 15", Brand: "CaseCraft",
			Image:  img("photo-1541876919352-7f111dfb7841"),
			Images: []string{img("photo-1541876919352-7f111dfb7841")},
			Rating: 4.6,
			Variants: []models.Variant{
				{ID: "v1", Color: "#EF4444", Stock: 23, Image: img("photo-1541876919352-7f111dfb7841")},
			},
		},
		{
			ID: "6", Name: "Midnight Velvet", Price: 30000,
			Description: "Deep black with a velvet-like visual texture. Simple, classic, and understated.",
			Category:    "Minimalist", Device: "iPhone 14", Brand: "UrbanArmor",
			Image:  img("photo-1622519566194-391c20cb633a"),
			Images: []string{img("photo-1622519566194-391c20cb633a")},
			Rating: 4.2,
			Variants: []models.Variant{
				{ID: "v1", Color: "#18181b", Stock: 55, Image: img("photo-1622519566194-391c20cb633a")},
			},
		},
	}
	for i := range products {
		p := &products[i]
		p.IsDemo = true
		total := 0
		for _, v := range p.Variants {
			total += v.Stock
			p.Colors = append(p.Colors, v.Color)
		}
		p.Stock = total
	}

	return &Catalog{
		Products: products,
		Brands: []models.Brand{
			{ID: "1", Name: "CaseCraft", Logo: logo("photo-1595429035839-c99c298ffdde")},
			{ID: "2", Name: "UrbanArmor", Logo: logo("photo-1504198266287-1659872e6590")},
			{ID: "3", Name: "EcoGuard", Logo: logo("photo-1542601906990-b4d3fb771343")},
			{ID: "4", Name: "LuxLife", Logo: logo("photo-1618221195710-dd6b41faaea6")},
		},
		Devices: []models.Device{
			{ID: "1", Name: "iPhone 15"},
			{ID: "2", Name: "iPhone 14"},
			{ID: "3", Name: "Samsung S24"},
			{ID: "4", Name: "Pixel 8"},
		},
		Discounts: []models.DiscountCode{
			{ID: "WELCOME10", Code: "WELCOME10", Type: models.DiscountPercentage, Value: 10, IsActive: true},
			{ID: "SAVE5000", Code: "SAVE5000", Type: models.DiscountFixed, Value: 5000, MinOrderAmount: 40000, IsActive: true},
			{ID: "SUMMER25", Code: "SUMMER25", Type: models.DiscountPercentage, Value: 25, MinOrderAmount: 100000, IsActive: true},
		},
		Slides: []models.Slide{
			{
				ID: "0", Title: "Grand Opening Sale", Subtitle: "UP TO 50% OFF",
				Description: "Celebrate our launch with huge discounts on all premium cases.",
				Color:       "from-pink-600 via-red-500 to-orange-500", Image: slide("photo-1607082348824-0a96f2a4b9da"),
			},
			{
				ID: "1", Title: "BasCavarat Collection", Subtitle: "BRAND NEW",
				Description: "Experience the vibrant fusion of orange, pink, and purple.",
				Color:       "from-orange-500 via-pink-500 to-purple-600", Image: slide("photo-1550745165-9bc0b252726f"),
			},
			{
				ID: "2", Title: "Sustainable Luxury", Subtitle: "NEW ARRIVALS",
				Description: "Eco-friendly bamboo cases that protect your phone and the planet.",
				Color:       "from-emerald-600 to-teal-600", Image: slide("photo-1530521954074-e64f6810b32d"),
			},
			{
				ID: "3", Title: "Summer Vibes", Subtitle: "SPECIAL OFFER",
				Description: "Warm tones and bright designs for the season.",
				Color:       "from-yellow-400 via-orange-500 to-red-500", Image: slide("photo-1523206489230-c012c64b2b48"),
			},
		},
		Settings: models.StoreSettings{ShippingFee: DefaultShippingFee},
	}
}
