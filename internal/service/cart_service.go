package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/storefront_api/internal/cache"
	"github.com/GTDGit/storefront_api/internal/models"
	"github.com/GTDGit/storefront_api/internal/utils"
)

// CartView is a cart with its price breakdown.
type CartView struct {
	*models.Cart
	Totals
	// RevokedDiscount is set when the last change removed the applied code.
	RevokedDiscount string `json:"revokedDiscount,omitempty"`
}

// CartService persists cart sessions and keeps discounts valid.
type CartService struct {
	store     cache.CartStore
	catalog   *CatalogService
	discounts *DiscountEngine
}

// NewCartService constructs a CartService.
func NewCartService(store cache.CartStore, catalog *CatalogService, discounts *DiscountEngine) *CartService {
	return &CartService{store: store, catalog: catalog, discounts: discounts}
}

// Create opens an empty cart session.
func (s *CartService) Create(ctx context.Context) (*CartView, error) {
	cart := models.NewCart(uuid.NewString())
	if err := s.store.Save(ctx, cart); err != nil {
		return nil, err
	}
	return s.view(cart, nil), nil
}

// Get loads a cart. Unknown or expired sessions yield ErrCartNotFound.
func (s *CartService) Get(ctx context.Context, cartID string) (*models.Cart, error) {
	cart, err := s.store.Get(ctx, cartID)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, fmt.Errorf("cart %s: %w", cartID, utils.ErrCartNotFound)
		}
		return nil, err
	}
	return cart, nil
}

// View loads a cart with totals, re-validating its discount first.
func (s *CartService) View(ctx context.Context, cartID string) (*CartView, error) {
	return s.mutate(ctx, cartID, func(*models.Cart) error { return nil })
}

// mutate applies fn, re-validates the discount against the new subtotal and
// saves the cart.
func (s *CartService) mutate(ctx context.Context, cartID string, fn func(*models.Cart) error) (*CartView, error) {
	cart, err := s.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if err := fn(cart); err != nil {
		return nil, err
	}
	revoked := s.discounts.Revalidate(cart)
	if revoked != nil {
		log.Info().Str("cart_id", cartID).Str("code", revoked.Code).Int64("subtotal", cart.Subtotal()).Msg("Discount revoked")
	}
	if err := s.store.Save(ctx, cart); err != nil {
		return nil, err
	}
	return s.view(cart, revoked), nil
}

func (s *CartService) view(cart *models.Cart, revoked *models.DiscountCode) *CartView {
	v := &CartView{Cart: cart, Totals: s.discounts.Totals(cart, s.catalog.ShippingFee())}
	if revoked != nil {
		v.RevokedDiscount = revoked.Code
	}
	return v
}

// Add puts one unit of a product, or one of its variants, in the cart.
// Products with variants require a variant that is in stock.
func (s *CartService) Add(ctx context.Context, cartID, productID, variantID string) (*CartView, error) {
	product, err := s.catalog.Product(productID)
	if err != nil {
		return nil, err
	}

	var variant *models.Variant
	switch {
	case variantID != "":
		i := product.FindVariant(variantID)
		if i < 0 {
			return nil, fmt.Errorf("product %s variant %s: %w", productID, variantID, utils.ErrVariantNotFound)
		}
		variant = &product.Variants[i]
		if variant.Stock <= 0 {
			return nil, utils.NewValidationError("variantId", "variant "+variantID+" is out of stock", utils.ErrVariantUnavailable)
		}
	case product.HasVariants():
		return nil, utils.NewValidationError("variantId", "is required for products with variants", nil)
	}

	return s.mutate(ctx, cartID, func(c *models.Cart) error {
		c.Add(product, variant)
		return nil
	})
}

// Remove takes out exactly the line with key.
func (s *CartService) Remove(ctx context.Context, cartID string, key models.CartKey) (*CartView, error) {
	return s.mutate(ctx, cartID, func(c *models.Cart) error {
		if !c.Remove(key) {
			return fmt.Errorf("cart item %s: %w", key, utils.ErrCartItemNotFound)
		}
		return nil
	})
}

// RemoveProduct takes out every line of a product.
func (s *CartService) RemoveProduct(ctx context.Context, cartID, productID string) (*CartView, error) {
	return s.mutate(ctx, cartID, func(c *models.Cart) error {
		if c.RemoveProduct(productID) == 0 {
			return fmt.Errorf("cart item %s: %w", productID, utils.ErrCartItemNotFound)
		}
		return nil
	})
}

// UpdateQuantity applies delta to the keyed line, keeping at least one unit.
func (s *CartService) UpdateQuantity(ctx context.Context, cartID string, key models.CartKey, delta int) (*CartView, error) {
	return s.mutate(ctx, cartID, func(c *models.Cart) error {
		if _, err := c.SetQuantity(key, delta); err != nil {
			return fmt.Errorf("cart item %s: %w", key, err)
		}
		return nil
	})
}

// Clear empties the cart and drops its discount.
func (s *CartService) Clear(ctx context.Context, cartID string) (*CartView, error) {
	return s.mutate(ctx, cartID, func(c *models.Cart) error {
		c.Clear()
		return nil
	})
}

// ApplyDiscount attaches a code to the cart.
func (s *CartService) ApplyDiscount(ctx context.Context, cartID, code string) (*CartView, error) {
	return s.mutate(ctx, cartID, func(c *models.Cart) error {
		_, err := s.discounts.Apply(c, code)
		return err
	})
}

// RemoveDiscount detaches the applied code.
func (s *CartService) RemoveDiscount(ctx context.Context, cartID string) (*CartView, error) {
	return s.mutate(ctx, cartID, func(c *models.Cart) error {
		c.Discount = nil
		return nil
	})
}

// Delete ends a cart session.
func (s *CartService) Delete(ctx context.Context, cartID string) error {
	return s.store.Delete(ctx, cartID)
}
