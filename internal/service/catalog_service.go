package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/storefront_api/internal/events"
	"github.com/GTDGit/storefront_api/internal/gateway"
	"github.com/GTDGit/storefront_api/internal/ledger"
	"github.com/GTDGit/storefront_api/internal/models"
	"github.com/GTDGit/storefront_api/internal/utils"
)

// DefaultMaxImageBytes bounds embedded data URI images on product writes.
const DefaultMaxImageBytes = 2 << 20

// ProductFilter narrows a product listing. Empty fields match everything.
type ProductFilter struct {
	Device   string `form:"device"`
	Brand    string `form:"brand"`
	Category string `form:"category"`
	Search   string `form:"q"`
}

func (f ProductFilter) match(p *models.Product) bool {
	if f.Device != "" && !strings.EqualFold(p.Device, f.Device) {
		return false
	}
	if f.Brand != "" && !strings.EqualFold(p.Brand, f.Brand) {
		return false
	}
	if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
		return false
	}
	if q := strings.TrimSpace(f.Search); q != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(q)) {
		return false
	}
	return true
}

// ProductInput is the writable part of a product.
type ProductInput struct {
	Name        string           `json:"name" binding:"required"`
	SKU         string           `json:"sku"`
	Price       int64            `json:"price"`
	SalePrice   *int64           `json:"salePrice"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	Device      string           `json:"device"`
	Brand       string           `json:"brand"`
	Image       string           `json:"image"`
	Images      []string         `json:"images"`
	Rating      float64          `json:"rating"`
	Stock       int              `json:"stock"`
	Variants    []models.Variant `json:"variants"`
}

// DiscountInput is the writable part of a discount code.
type DiscountInput struct {
	Code           string              `json:"code" binding:"required"`
	Type           models.DiscountType `json:"type" binding:"required"`
	Value          float64             `json:"value"`
	MinOrderAmount int64               `json:"minOrderAmount"`
	IsActive       *bool               `json:"isActive"`
}

// SlideInput is the writable part of a carousel slide.
type SlideInput struct {
	Title       string `json:"title" binding:"required"`
	Subtitle    string `json:"subtitle"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Image       string `json:"image"`
}

// DefaultLowStockThreshold is the stock level below which a product is
// flagged for restocking.
const DefaultLowStockThreshold = 10

// CatalogService owns the in-memory projection of the catalog. It is the
// single source of truth for stock; remote writes go through the outbox
// after local state has changed.
type CatalogService struct {
	gw            gateway.Gateway
	outbox        *OutboxService
	bus           events.Publisher
	maxImageBytes int

	mu        sync.RWMutex
	products  []models.Product
	brands    []models.Brand
	devices   []models.Device
	discounts []models.DiscountCode
	slides    []models.Slide
	settings  models.StoreSettings
	demo      bool
	// demoStore holds writes made while the fixtures are served so they
	// never reach the real store.
	demoStore *gateway.MemoryGateway
}

// NewCatalogService constructs a CatalogService. Call Load before use.
func NewCatalogService(gw gateway.Gateway, outbox *OutboxService, bus events.Publisher, maxImageBytes int) *CatalogService {
	if maxImageBytes <= 0 {
		maxImageBytes = DefaultMaxImageBytes
	}
	return &CatalogService{
		gw:            gw,
		outbox:        outbox,
		bus:           bus,
		maxImageBytes: maxImageBytes,
		settings:      models.StoreSettings{ShippingFee: gateway.DefaultShippingFee},
	}
}

// Load seeds the projection from the Store Gateway. When the store is
// unreachable the demo fixtures are served instead.
func (s *CatalogService) Load(ctx context.Context) error {
	catalog, err := s.gw.LoadCatalog(ctx)
	demo := false
	if err != nil {
		if !errors.Is(err, utils.ErrNetworkUnavailable) {
			return fmt.Errorf("load catalog: %w", err)
		}
		log.Warn().Err(err).Msg("Store unreachable, serving demo catalog")
		catalog = gateway.Fixtures()
		demo = true
	}
	var demoStore *gateway.MemoryGateway
	if demo {
		demoStore = gateway.NewMemoryGateway(gateway.Fixtures())
	}

	for i := range catalog.Products {
		p := &catalog.Products[i]
		if cErr := ledger.CheckInvariant(p); cErr != nil {
			ledger.Repair(p)
			log.Warn().Err(cErr).Str("product_id", p.ID).Int("stock", p.Stock).Msg("Repaired product stock on load")
		}
	}

	s.mu.Lock()
	s.products = catalog.Products
	s.brands = catalog.Brands
	s.devices = catalog.Devices
	s.discounts = catalog.Discounts
	s.slides = catalog.Slides
	s.settings = catalog.Settings
	s.demo = demo
	s.demoStore = demoStore
	s.mu.Unlock()

	log.Info().
		Int("products", len(catalog.Products)).
		Int("brands", len(catalog.Brands)).
		Int("discounts", len(catalog.Discounts)).
		Int("slides", len(catalog.Slides)).
		Bool("demo", demo).
		Msg("Catalog loaded")
	s.publish(ctx, events.New(events.CatalogChanged, "", nil))
	return nil
}

// IsDemo reports whether the fixtures are being served.
func (s *CatalogService) IsDemo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.demo
}

// OrderStore returns the gateway orders are kept in. In demo mode this is
// a local store that is discarded on recovery.
func (s *CatalogService) OrderStore() gateway.Gateway {
	store, _ := s.orderStore()
	return store
}

// orderStore returns the order store together with the demo flag it was
// chosen under.
func (s *CatalogService) orderStore() (gateway.Gateway, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.demo {
		return s.demoStore, true
	}
	return s.gw, false
}

// Recover reloads the catalog from the store once it answers again. It
// reports whether the projection left demo mode.
func (s *CatalogService) Recover(ctx context.Context) (bool, error) {
	if !s.IsDemo() {
		return false, nil
	}
	if err := s.gw.Ping(ctx); err != nil {
		return false, nil
	}
	if err := s.Load(ctx); err != nil {
		return false, err
	}
	if s.IsDemo() {
		return false, nil
	}
	log.Info().Msg("Store reachable again, demo catalog replaced")
	return true, nil
}

func (s *CatalogService) publish(ctx context.Context, e events.Event) {
	if s.bus != nil {
		s.bus.Publish(ctx, e)
	}
}

// queue records a remote write and tries to deliver it right away. Local
// state has already changed, so a delivery failure only delays the sync.
func (s *CatalogService) queue(ctx context.Context, kind models.OutboxKind, aggregateID string, payload any) error {
	if s.IsDemo() {
		log.Debug().Str("kind", string(kind)).Str("aggregate_id", aggregateID).Msg("Demo catalog, write kept locally")
		return nil
	}
	if _, err := s.outbox.Enqueue(ctx, kind, aggregateID, payload); err != nil {
		return err
	}
	if _, err := s.outbox.Drain(ctx); err != nil {
		log.Warn().Err(err).Str("kind", string(kind)).Msg("Immediate outbox drain failed")
	}
	return nil
}

// ---- products ----

// Products returns copies of the products matching filter in catalog order.
func (s *CatalogService) Products(filter ProductFilter) []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Product, 0, len(s.products))
	for i := range s.products {
		if filter.match(&s.products[i]) {
			out = append(out, s.products[i].Clone())
		}
	}
	return out
}

func (s *CatalogService) indexOf(id string) int {
	for i := range s.products {
		if s.products[i].ID == id {
			return i
		}
	}
	return -1
}

// Product returns a copy of one product.
func (s *CatalogService) Product(id string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("product %s: %w", id, utils.ErrProductNotFound)
	}
	p := s.products[i].Clone()
	return &p, nil
}

// AvailableVariants returns the selectable variants of a product.
func (s *CatalogService) AvailableVariants(id string) ([]models.Variant, error) {
	p, err := s.Product(id)
	if err != nil {
		return nil, err
	}
	return ledger.AvailableVariants(p), nil
}

func (s *CatalogService) validateImage(field, img string) error {
	if !strings.HasPrefix(img, "data:") {
		return nil
	}
	if len(img) > s.maxImageBytes {
		return utils.NewValidationError(field, fmt.Sprintf("embedded image exceeds %d bytes", s.maxImageBytes), utils.ErrPayloadTooLarge)
	}
	return nil
}

// build validates in and writes it onto p, routing stock through the ledger.
func (s *CatalogService) build(p *models.Product, in *ProductInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return utils.NewValidationError("name", "is required", nil)
	}
	if in.Price < 0 {
		return utils.NewValidationError("price", "must not be negative", nil)
	}
	if in.SalePrice != nil && (*in.SalePrice < 0 || *in.SalePrice >= in.Price) {
		return utils.NewValidationError("salePrice", "must be below price", utils.ErrInvalidSalePrice)
	}
	if err := s.validateImage("image", in.Image); err != nil {
		return err
	}
	for i, img := range in.Images {
		if err := s.validateImage(fmt.Sprintf("images[%d]", i), img); err != nil {
			return err
		}
	}

	variants := make([]models.Variant, len(in.Variants))
	for i, v := range in.Variants {
		if err := s.validateImage(fmt.Sprintf("variants[%d].image", i), v.Image); err != nil {
			return err
		}
		if strings.TrimSpace(v.ID) == "" {
			v.ID = uuid.NewString()
		}
		v.Color = strings.TrimSpace(v.Color)
		variants[i] = v
	}

	next := *p
	next.Name = name
	next.SKU = strings.TrimSpace(in.SKU)
	next.Price = in.Price
	next.SalePrice = in.SalePrice
	next.Description = in.Description
	next.Category = in.Category
	next.Device = in.Device
	next.Brand = in.Brand
	next.Image = in.Image
	next.Images = append([]string(nil), in.Images...)
	next.Rating = in.Rating
	next.IsDemo = false
	if next.Image == "" && len(next.Images) > 0 {
		next.Image = next.Images[0]
	}

	if len(variants) > 0 {
		if err := ledger.SetVariants(&next, variants); err != nil {
			return err
		}
	} else {
		next.Variants = nil
		next.Colors = nil
		if err := ledger.SetLegacyStock(&next, in.Stock); err != nil {
			return err
		}
	}
	*p = next
	return nil
}

// CreateProduct validates and adds a product.
func (s *CatalogService) CreateProduct(ctx context.Context, in *ProductInput) (*models.Product, error) {
	p := models.Product{ID: uuid.NewString()}
	if err := s.build(&p, in); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.products = append(s.products, p)
	snapshot := p.Clone()
	s.mu.Unlock()

	log.Info().Str("product_id", p.ID).Str("name", p.Name).Int("stock", p.Stock).Msg("Product created")
	s.publish(ctx, events.New(events.ProductCreated, p.ID, snapshot))
	if err := s.queue(ctx, models.OutboxProductUpsert, p.ID, snapshot); err != nil {
		return &snapshot, err
	}
	return &snapshot, nil
}

// UpdateProduct replaces the writable fields of a product.
func (s *CatalogService) UpdateProduct(ctx context.Context, id string, in *ProductInput) (*models.Product, error) {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("product %s: %w", id, utils.ErrProductNotFound)
	}
	p := s.products[i].Clone()
	if err := s.build(&p, in); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.products[i] = p
	snapshot := p.Clone()
	s.mu.Unlock()

	log.Info().Str("product_id", id).Int("stock", snapshot.Stock).Msg("Product updated")
	s.publish(ctx, events.New(events.ProductUpdated, id, snapshot))
	if err := s.queue(ctx, models.OutboxProductUpsert, id, snapshot); err != nil {
		return &snapshot, err
	}
	return &snapshot, nil
}

// DeleteProduct removes a product.
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("product %s: %w", id, utils.ErrProductNotFound)
	}
	s.products = append(s.products[:i], s.products[i+1:]...)
	s.mu.Unlock()

	log.Info().Str("product_id", id).Msg("Product deleted")
	s.publish(ctx, events.New(events.ProductDeleted, id, nil))
	return s.queue(ctx, models.OutboxProductDelete, id, models.DeleteTarget{ID: id})
}

// DecrementStock takes qty units from the local projection. The matching
// remote write is queued by the caller together with the rest of the order.
func (s *CatalogService) DecrementStock(ctx context.Context, productID, variantID string, qty int) (models.StockChange, error) {
	s.mu.Lock()
	i := s.indexOf(productID)
	if i < 0 {
		s.mu.Unlock()
		return models.StockChange{}, fmt.Errorf("product %s: %w", productID, utils.ErrProductNotFound)
	}
	change, err := ledger.Decrement(&s.products[i], variantID, qty)
	s.mu.Unlock()
	if err != nil {
		return change, err
	}

	s.publish(ctx, events.New(events.StockChanged, productID, change))
	return change, nil
}

// ---- brands and devices ----

func (s *CatalogService) Brands() []models.Brand {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Brand{}, s.brands...)
}

func (s *CatalogService) CreateBrand(ctx context.Context, name, logo string) (*models.Brand, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, utils.NewValidationError("name", "is required", nil)
	}
	if err := s.validateImage("logo", logo); err != nil {
		return nil, err
	}
	b := models.Brand{ID: uuid.NewString(), Name: name, Logo: logo}

	s.mu.Lock()
	s.brands = append(s.brands, b)
	s.mu.Unlock()

	s.publish(ctx, events.New(events.CatalogChanged, b.ID, b))
	return &b, s.queue(ctx, models.OutboxBrandCreate, "brand:"+b.ID, b)
}

func (s *CatalogService) DeleteBrand(ctx context.Context, id string) error {
	s.mu.Lock()
	found := false
	for i := range s.brands {
		if s.brands[i].ID == id {
			s.brands = append(s.brands[:i], s.brands[i+1:]...)
			found = true
			break
		}
	}
	s.mu.Unlock()
	if !found {
		return fmt.Errorf("brand %s: %w", id, utils.ErrBrandNotFound)
	}

	s.publish(ctx, events.New(events.CatalogChanged, id, nil))
	return s.queue(ctx, models.OutboxBrandDelete, "brand:"+id, models.DeleteTarget{ID: id})
}

func (s *CatalogService) Devices() []models.Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Device{}, s.devices...)
}

func (s *CatalogService) CreateDevice(ctx context.Context, name string) (*models.Device, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, utils.NewValidationError("name", "is required", nil)
	}
	d := models.Device{ID: uuid.NewString(), Name: name}

	s.mu.Lock()
	s.devices = append(s.devices, d)
	s.mu.Unlock()

	s.publish(ctx, events.New(events.CatalogChanged, d.ID, d))
	return &d, s.queue(ctx, models.OutboxDeviceCreate, "device:"+d.ID, d)
}

func (s *CatalogService) DeleteDevice(ctx context.Context, id string) error {
	s.mu.Lock()
	found := false
	for i := range s.devices {
		if s.devices[i].ID == id {
			s.devices = append(s.devices[:i], s.devices[i+1:]...)
			found = true
			break
		}
	}
	s.mu.Unlock()
	if !found {
		return fmt.Errorf("device %s: %w", id, utils.ErrDeviceNotFound)
	}

	s.publish(ctx, events.New(events.CatalogChanged, id, nil))
	return s.queue(ctx, models.OutboxDeviceDelete, "device:"+id, models.DeleteTarget{ID: id})
}

// LowStock returns the products whose stock is below threshold, lowest
// first. A threshold below one uses DefaultLowStockThreshold.
func (s *CatalogService) LowStock(threshold int) []models.Product {
	if threshold < 1 {
		threshold = DefaultLowStockThreshold
	}
	s.mu.RLock()
	out := make([]models.Product, 0)
	for i := range s.products {
		if s.products[i].Stock < threshold {
			out = append(out, s.products[i].Clone())
		}
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Stock < out[j].Stock })
	return out
}

// ---- slides ----

func (s *CatalogService) Slides() []models.Slide {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Slide{}, s.slides...)
}

func (s *CatalogService) buildSlide(sl *models.Slide, in *SlideInput) error {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return utils.NewValidationError("title", "is required", nil)
	}
	if strings.TrimSpace(in.Image) == "" {
		return utils.NewValidationError("image", "is required", nil)
	}
	if err := s.validateImage("image", in.Image); err != nil {
		return err
	}
	sl.Title = title
	sl.Subtitle = strings.TrimSpace(in.Subtitle)
	sl.Description = in.Description
	sl.Color = strings.TrimSpace(in.Color)
	sl.Image = in.Image
	return nil
}

func (s *CatalogService) CreateSlide(ctx context.Context, in *SlideInput) (*models.Slide, error) {
	sl := models.Slide{ID: uuid.NewString()}
	if err := s.buildSlide(&sl, in); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.slides = append(s.slides, sl)
	s.mu.Unlock()

	s.publish(ctx, events.New(events.CatalogChanged, sl.ID, sl))
	return &sl, s.queue(ctx, models.OutboxSlideUpsert, "slide:"+sl.ID, sl)
}

func (s *CatalogService) UpdateSlide(ctx context.Context, id string, in *SlideInput) (*models.Slide, error) {
	sl := models.Slide{ID: id}
	if err := s.buildSlide(&sl, in); err != nil {
		return nil, err
	}

	s.mu.Lock()
	found := false
	for i := range s.slides {
		if s.slides[i].ID == id {
			s.slides[i] = sl
			found = true
			break
		}
	}
	s.mu.Unlock()
	if !found {
		return nil, fmt.Errorf("slide %s: %w", id, utils.ErrSlideNotFound)
	}

	s.publish(ctx, events.New(events.CatalogChanged, sl.ID, sl))
	return &sl, s.queue(ctx, models.OutboxSlideUpsert, "slide:"+sl.ID, sl)
}

func (s *CatalogService) DeleteSlide(ctx context.Context, id string) error {
	s.mu.Lock()
	found := false
	for i := range s.slides {
		if s.slides[i].ID == id {
			s.slides = append(s.slides[:i], s.slides[i+1:]...)
			found = true
			break
		}
	}
	s.mu.Unlock()
	if !found {
		return fmt.Errorf("slide %s: %w", id, utils.ErrSlideNotFound)
	}

	s.publish(ctx, events.New(events.CatalogChanged, id, nil))
	return s.queue(ctx, models.OutboxSlideDelete, "slide:"+id, models.DeleteTarget{ID: id})
}

// ---- discounts ----

func (s *CatalogService) Discounts() []models.DiscountCode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.DiscountCode{}, s.discounts...)
}

// ActiveDiscount finds an active code case-insensitively.
func (s *CatalogService) ActiveDiscount(code string) (*models.DiscountCode, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.discounts {
		d := s.discounts[i]
		if d.IsActive && d.Matches(code) {
			return &d, true
		}
	}
	return nil, false
}

func validateDiscount(in *DiscountInput) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	switch {
	case code == "":
		return "", utils.NewValidationError("code", "is required", nil)
	case !in.Type.Valid():
		return "", utils.NewValidationError("type", "must be percentage or fixed", nil)
	case in.Value <= 0:
		return "", utils.NewValidationError("value", "must be positive", nil)
	case in.Type == models.DiscountPercentage && in.Value > 100:
		return "", utils.NewValidationError("value", "percentage must not exceed 100", nil)
	case in.MinOrderAmount < 0:
		return "", utils.NewValidationError("minOrderAmount", "must not be negative", nil)
	}
	return code, nil
}

// codeTaken reports whether another discount already uses code. Callers hold mu.
func (s *CatalogService) codeTaken(code, exceptID string) bool {
	for i := range s.discounts {
		if s.discounts[i].ID != exceptID && s.discounts[i].Matches(code) {
			return true
		}
	}
	return false
}

func (s *CatalogService) CreateDiscount(ctx context.Context, in *DiscountInput) (*models.DiscountCode, error) {
	code, err := validateDiscount(in)
	if err != nil {
		return nil, err
	}
	d := models.DiscountCode{
		ID:             uuid.NewString(),
		Code:           code,
		Type:           in.Type,
		Value:          in.Value,
		MinOrderAmount: in.MinOrderAmount,
		IsActive:       in.IsActive == nil || *in.IsActive,
	}

	s.mu.Lock()
	if s.codeTaken(code, "") {
		s.mu.Unlock()
		return nil, utils.NewValidationError("code", "already exists", utils.ErrDuplicateDiscount)
	}
	s.discounts = append(s.discounts, d)
	s.mu.Unlock()

	s.publish(ctx, events.New(events.DiscountChanged, d.ID, d))
	return &d, s.queue(ctx, models.OutboxDiscountUpsert, "discount:"+d.ID, d)
}

// UpdateDiscount replaces a code's fields. Carts holding the code pick up the
// change, or lose the code, on their next revalidation.
func (s *CatalogService) UpdateDiscount(ctx context.Context, id string, in *DiscountInput) (*models.DiscountCode, error) {
	code, err := validateDiscount(in)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	idx := -1
	for i := range s.discounts {
		if s.discounts[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("discount %s: %w", id, utils.ErrDiscountNotFound)
	}
	if s.codeTaken(code, id) {
		s.mu.Unlock()
		return nil, utils.NewValidationError("code", "already exists", utils.ErrDuplicateDiscount)
	}
	d := &s.discounts[idx]
	d.Code = code
	d.Type = in.Type
	d.Value = in.Value
	d.MinOrderAmount = in.MinOrderAmount
	if in.IsActive != nil {
		d.IsActive = *in.IsActive
	}
	updated := *d
	s.mu.Unlock()

	s.publish(ctx, events.New(events.DiscountChanged, id, updated))
	return &updated, s.queue(ctx, models.OutboxDiscountUpsert, "discount:"+id, updated)
}

func (s *CatalogService) DeleteDiscount(ctx context.Context, id string) error {
	s.mu.Lock()
	found := false
	for i := range s.discounts {
		if s.discounts[i].ID == id {
			s.discounts = append(s.discounts[:i], s.discounts[i+1:]...)
			found = true
			break
		}
	}
	s.mu.Unlock()
	if !found {
		return fmt.Errorf("discount %s: %w", id, utils.ErrDiscountNotFound)
	}

	s.publish(ctx, events.New(events.DiscountChanged, id, nil))
	return s.queue(ctx, models.OutboxDiscountDelete, "discount:"+id, models.DeleteTarget{ID: id})
}

// ToggleDiscount flips the active flag of a code.
func (s *CatalogService) ToggleDiscount(ctx context.Context, id string) (*models.DiscountCode, error) {
	s.mu.Lock()
	var d *models.DiscountCode
	for i := range s.discounts {
		if s.discounts[i].ID == id {
			s.discounts[i].IsActive = !s.discounts[i].IsActive
			cp := s.discounts[i]
			d = &cp
			break
		}
	}
	s.mu.Unlock()
	if d == nil {
		return nil, fmt.Errorf("discount %s: %w", id, utils.ErrDiscountNotFound)
	}

	log.Info().Str("discount_id", id).Str("code", d.Code).Bool("active", d.IsActive).Msg("Discount toggled")
	s.publish(ctx, events.New(events.DiscountChanged, d.ID, *d))
	return d, s.queue(ctx, models.OutboxDiscountUpsert, "discount:"+d.ID, *d)
}

// ---- settings ----

func (s *CatalogService) Settings() models.StoreSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// ShippingFee is the flat fee added to every order.
func (s *CatalogService) ShippingFee() int64 {
	return s.Settings().ShippingFee
}

func (s *CatalogService) UpdateShippingFee(ctx context.Context, fee int64) (models.StoreSettings, error) {
	if fee < 0 {
		return models.StoreSettings{}, utils.NewValidationError("shippingFee", "must not be negative", nil)
	}
	return s.saveSettings(ctx, func(st *models.StoreSettings) { st.ShippingFee = fee })
}

func (s *CatalogService) UpdateLogo(ctx context.Context, logo string) (models.StoreSettings, error) {
	if err := s.validateImage("logo", logo); err != nil {
		return models.StoreSettings{}, err
	}
	return s.saveSettings(ctx, func(st *models.StoreSettings) { st.Logo = logo })
}

func (s *CatalogService) saveSettings(ctx context.Context, apply func(*models.StoreSettings)) (models.StoreSettings, error) {
	s.mu.Lock()
	apply(&s.settings)
	st := s.settings
	s.mu.Unlock()

	s.publish(ctx, events.New(events.CatalogChanged, "settings", st))
	return st, s.queue(ctx, models.OutboxSettingsSave, "settings", st)
}
