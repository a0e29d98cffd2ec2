package service

import (
	"context"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/GTDGit/storefront_api/internal/events"
	"github.com/GTDGit/storefront_api/internal/metrics"
	"github.com/GTDGit/storefront_api/internal/models"
	"github.com/GTDGit/storefront_api/internal/utils"
)

// Defaults applied to imported products that leave the field blank.
const (
	DefaultImportCategory = "Mobile Case"
	DefaultImportDevice   = "Generic"
	DefaultImportBrand    = "Generic"
	DefaultImportImage    = "https://images.unsplash.com/photo-1603351154351-5cf233d327e4"
)

// ProductGroup is the product assembled from every row sharing one name.
type ProductGroup struct {
	Row   int          `json:"row"`
	Rows  int          `json:"rows"`
	Input ProductInput `json:"product"`
}

// RowFailure records a group or image that could not be imported.
type RowFailure struct {
	Row   int    `json:"row"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
	Err   string `json:"error"`
}

// Grouping is the pure result of collapsing rows into products.
type Grouping struct {
	Groups   []ProductGroup
	Skipped  int
	Failures []RowFailure
}

// ImportedProduct summarizes one product written by an import.
type ImportedProduct struct {
	Row      int    `json:"row"`
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Variants int    `json:"variants"`
	Stock    int    `json:"stock"`
}

// ImportReport is the outcome of an import run. Failures never abort the
// run; each one covers a single group or image.
type ImportReport struct {
	Rows     int               `json:"rows"`
	Skipped  int               `json:"skipped"`
	Products []ImportedProduct `json:"products"`
	Failures []RowFailure      `json:"failures"`
	DryRun   bool              `json:"dryRun,omitempty"`
}

// Err returns a PartialImportFailure when any group or image failed.
func (r *ImportReport) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	return utils.ErrPartialImportFailure
}

type groupBuilder struct {
	group ProductGroup
	price bool
}

// Group collapses rows into products keyed by trimmed name, in first-seen
// order. The first row of a name supplies the base fields and must carry a
// price. Every row with a variant colour adds one variant.
func Group(rows []ImportRow) *Grouping {
	res := &Grouping{}
	order := make([]string, 0)
	byName := make(map[string]*groupBuilder)

	for i := range rows {
		row := &rows[i]
		name := strings.TrimSpace(row.Name)
		if name == "" {
			res.Skipped++
			continue
		}

		b, ok := byName[name]
		if !ok {
			b = newGroupBuilder(name, row)
			byName[name] = b
			order = append(order, name)
		}
		b.group.Rows++

		if color := strings.TrimSpace(row.VariantColor); color != "" {
			stock, ok := parseAmount(row.VariantStock)
			if !ok {
				stock = 0
			}
			b.group.Input.Variants = append(b.group.Input.Variants, models.Variant{
				ID:    uuid.NewString(),
				Color: color,
				Stock: int(stock),
				SKU:   strings.TrimSpace(row.VariantSKU),
				Image: strings.TrimSpace(row.VariantImage),
			})
		}
	}

	for _, name := range order {
		b := byName[name]
		if !b.price {
			res.Failures = append(res.Failures, RowFailure{
				Row:  b.group.Row,
				Name: name,
				Err:  utils.NewValidationError("price", "must be a positive amount on the first row of a product", nil).Error(),
			})
			continue
		}
		finishGroup(&b.group.Input)
		res.Groups = append(res.Groups, b.group)
	}
	return res
}

func newGroupBuilder(name string, row *ImportRow) *groupBuilder {
	b := &groupBuilder{
		group: ProductGroup{
			Row: row.Line,
			Input: ProductInput{
				Name:        name,
				SKU:         row.SKU,
				Description: row.Description,
				Category:    orDefault(row.Category, DefaultImportCategory),
				Device:      orDefault(row.Device, DefaultImportDevice),
				Brand:       orDefault(row.Brand, DefaultImportBrand),
				Image:       strings.TrimSpace(row.Image),
			},
		},
	}
	if price, ok := parseAmount(row.Price); ok && price > 0 {
		b.price = true
		b.group.Input.Price = price
	}
	if sale, ok := parseAmount(row.SalePrice); ok && row.SalePrice != "" && sale > 0 {
		b.group.Input.SalePrice = &sale
	}
	if stock, ok := parseAmount(row.Stock); ok {
		b.group.Input.Stock = int(stock)
	}
	return b
}

// finishGroup derives aggregate stock and the deduplicated gallery.
func finishGroup(in *ProductInput) {
	if len(in.Variants) > 0 {
		total := 0
		for _, v := range in.Variants {
			total += v.Stock
		}
		in.Stock = total
	}

	gallery := make([]string, 0, len(in.Variants)+1)
	seen := make(map[string]bool)
	add := func(img string) {
		if img != "" && !seen[img] {
			seen[img] = true
			gallery = append(gallery, img)
		}
	}
	add(in.Image)
	for _, v := range in.Variants {
		add(v.Image)
	}
	in.Images = gallery
}

// parseAmount reads a whole number, tolerating thousands separators and a
// decimal part. Empty input parses as zero.
func parseAmount(s string) (int64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int64(math.Round(f)), true
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}

// ImportService writes grouped spreadsheet rows into the catalog through the
// same path admin edits use.
type ImportService struct {
	catalog     *CatalogService
	embedder    ImageEmbedder
	bus         events.Publisher
	concurrency int
}

// NewImportService constructs an ImportService. concurrency bounds image
// conversions per product.
func NewImportService(catalog *CatalogService, embedder ImageEmbedder, bus events.Publisher, concurrency int) *ImportService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &ImportService{catalog: catalog, embedder: embedder, bus: bus, concurrency: concurrency}
}

// Preview groups an upload without touching the catalog.
func (s *ImportService) Preview(r io.Reader, filename string) (*ImportReport, error) {
	rows, err := ReadImportFile(r, filename)
	if err != nil {
		return nil, err
	}
	g := Group(rows)
	report := &ImportReport{Rows: len(rows), Skipped: g.Skipped, Failures: g.Failures, DryRun: true}
	for _, grp := range g.Groups {
		report.Products = append(report.Products, ImportedProduct{
			Row:      grp.Row,
			Name:     grp.Input.Name,
			Variants: len(grp.Input.Variants),
			Stock:    grp.Input.Stock,
		})
	}
	return report, nil
}

// Import reads, groups and creates the products of an upload. Products are
// created one at a time in first-seen order.
func (s *ImportService) Import(ctx context.Context, r io.Reader, filename string) (*ImportReport, error) {
	rows, err := ReadImportFile(r, filename)
	if err != nil {
		return nil, err
	}
	g := Group(rows)
	if len(g.Groups) == 0 && len(g.Failures) == 0 {
		return nil, utils.NewValidationError("file", "no rows with a product name", nil)
	}

	report := &ImportReport{Rows: len(rows), Skipped: g.Skipped, Failures: g.Failures}
	for i := range g.Groups {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		grp := &g.Groups[i]
		report.Failures = append(report.Failures, s.embedImages(ctx, grp)...)

		p, err := s.catalog.CreateProduct(ctx, &grp.Input)
		if p == nil {
			log.Warn().Err(err).Int("row", grp.Row).Str("name", grp.Input.Name).Msg("Import product rejected")
			report.Failures = append(report.Failures, RowFailure{Row: grp.Row, Name: grp.Input.Name, Err: err.Error()})
			continue
		}
		if err != nil {
			// Created locally; the remote write stays queued.
			log.Warn().Err(err).Str("product_id", p.ID).Msg("Imported product queued for sync")
		}
		report.Products = append(report.Products, ImportedProduct{
			Row: grp.Row, ID: p.ID, Name: p.Name, Variants: len(p.Variants), Stock: p.Stock,
		})
	}

	failed := len(g.Groups) + len(g.Failures) - len(report.Products)
	metrics.RecordImport("created", len(report.Products))
	metrics.RecordImport("failed", failed)
	log.Info().
		Int("rows", report.Rows).
		Int("skipped", report.Skipped).
		Int("created", len(report.Products)).
		Int("failures", len(report.Failures)).
		Msg("Bulk import completed")
	s.bus.Publish(ctx, events.New(events.ImportCompleted, "import", report))
	return report, nil
}

// embedImages converts the main and variant images of one product
// concurrently and waits for all of them. A failed conversion keeps the
// original reference and is reported for that image only.
func (s *ImportService) embedImages(ctx context.Context, grp *ProductGroup) []RowFailure {
	in := &grp.Input
	refs := make([]*string, 0, len(in.Variants)+1)
	if in.Image != "" {
		refs = append(refs, &in.Image)
	}
	for i := range in.Variants {
		if in.Variants[i].Image != "" {
			refs = append(refs, &in.Variants[i].Image)
		}
	}

	errs := make([]error, len(refs))
	var eg errgroup.Group
	eg.SetLimit(s.concurrency)
	for i, ref := range refs {
		src := *ref
		eg.Go(func() error {
			out, err := s.embedder.Embed(ctx, src)
			if err != nil {
				errs[i] = err
				return nil
			}
			*ref = out
			return nil
		})
	}
	_ = eg.Wait()

	var failures []RowFailure
	for i, err := range errs {
		if err == nil {
			continue
		}
		failures = append(failures, RowFailure{
			Row:   grp.Row,
			Name:  in.Name,
			Image: *refs[i],
			Err:   err.Error(),
		})
	}

	finishGroup(in)
	if in.Image == "" {
		in.Image = DefaultImportImage
		if len(in.Images) == 0 {
			in.Images = []string{DefaultImportImage}
		}
	}
	return failures
}
