package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/storefront_api/internal/events"
	"github.com/GTDGit/storefront_api/internal/utils"
)

func TestGroup(t *testing.T) {
	rows := []ImportRow{
		{Line: 2, Name: "X", Price: "25,000", Category: "Artistic", VariantColor: "Red", VariantStock: "10", VariantImage: "https://img/red.jpg"},
		{Line: 3, Name: " X ", Price: "99999", VariantColor: "Blue", VariantStock: "5"},
		{Line: 4, Name: "Y", Price: "200", Brand: "Spigen"},
	}

	g := Group(rows)
	require.Len(t, g.Groups, 2)
	assert.Empty(t, g.Failures)
	assert.Equal(t, 0, g.Skipped)

	x := g.Groups[0]
	assert.Equal(t, "X", x.Input.Name)
	assert.Equal(t, 2, x.Row)
	assert.Equal(t, 2, x.Rows)
	assert.Equal(t, int64(25000), x.Input.Price, "only the first row supplies base fields")
	assert.Equal(t, "Artistic", x.Input.Category)
	assert.Equal(t, DefaultImportDevice, x.Input.Device)
	require.Len(t, x.Input.Variants, 2)
	assert.Equal(t, "Red", x.Input.Variants[0].Color)
	assert.Equal(t, "Blue", x.Input.Variants[1].Color)
	assert.NotEqual(t, x.Input.Variants[0].ID, x.Input.Variants[1].ID)
	assert.Equal(t, 15, x.Input.Stock)
	assert.Equal(t, []string{"https://img/red.jpg"}, x.Input.Images)

	y := g.Groups[1]
	assert.Equal(t, "Y", y.Input.Name)
	assert.Empty(t, y.Input.Variants)
	assert.Equal(t, 0, y.Input.Stock)
	assert.Equal(t, "Spigen", y.Input.Brand)
	assert.Equal(t, DefaultImportCategory, y.Input.Category)
}

func TestGroup_SkipsAndFailures(t *testing.T) {
	rows := []ImportRow{
		{Line: 2, Name: "", Price: "100"},
		{Line: 3, Name: "NoPrice", VariantColor: "Red", VariantStock: "3"},
		{Line: 4, Name: "NoPrice", Price: "100", VariantColor: "Blue"},
		{Line: 5, Name: "BadStock", Price: "100", Stock: "lots", VariantColor: "Green", VariantStock: "many"},
		{Line: 6, Name: "Sale", Price: "100", SalePrice: "80.4"},
	}

	g := Group(rows)
	assert.Equal(t, 1, g.Skipped)
	require.Len(t, g.Failures, 1)
	assert.Equal(t, "NoPrice", g.Failures[0].Name)
	assert.Equal(t, 3, g.Failures[0].Row)

	require.Len(t, g.Groups, 2)
	bad := g.Groups[0]
	require.Len(t, bad.Input.Variants, 1)
	assert.Equal(t, 0, bad.Input.Variants[0].Stock)
	assert.Equal(t, 0, bad.Input.Stock)

	sale := g.Groups[1]
	require.NotNil(t, sale.Input.SalePrice)
	assert.Equal(t, int64(80), *sale.Input.SalePrice)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"", 0, true},
		{"25000", 25000, true},
		{" 1,250,000 ", 1250000, true},
		{"99.5", 100, true},
		{"abc", 0, false},
		{"NaN", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseAmount(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestReadImportFile_CSV(t *testing.T) {
	csv := "\ufeffName,Price,VariantColor,VariantStock,Unknown\n" +
		"Shell,15000,Red,2,x\n" +
		",,,,\n" +
		"Shell,15000,Blue,1,\n"

	rows, err := ReadImportFile(strings.NewReader(csv), "products.CSV")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, 4, rows[1].Line)
	assert.Equal(t, "Shell", rows[0].Name)
	assert.Equal(t, "Blue", rows[1].VariantColor)
}

func TestReadImportFile_Rejects(t *testing.T) {
	_, err := ReadImportFile(strings.NewReader("a,b"), "products.txt")
	assert.ErrorIs(t, err, utils.ErrValidation)

	_, err = ReadImportFile(strings.NewReader("price,stock\n1,2\n"), "products.csv")
	assert.ErrorIs(t, err, utils.ErrValidation)

	_, err = ReadImportFile(strings.NewReader(""), "products.csv")
	assert.ErrorIs(t, err, utils.ErrValidation)

	_, err = ReadImportFile(strings.NewReader("not a zip"), "products.xlsx")
	assert.ErrorIs(t, err, utils.ErrValidation)
}

func TestWriteTemplate_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTemplate(&buf))

	rows, err := ReadImportFile(&buf, "template.xlsx")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	g := Group(rows)
	require.Len(t, g.Groups, 2)
	simple, grouped := g.Groups[0].Input, g.Groups[1].Input
	assert.Equal(t, "Simple Product Example", simple.Name)
	assert.Equal(t, 50, simple.Stock)
	assert.Empty(t, simple.Variants)

	assert.Equal(t, "Grouped Product Example", grouped.Name)
	assert.Len(t, grouped.Variants, 2)
	assert.Equal(t, 15, grouped.Stock)
	assert.Len(t, grouped.Images, 3)
}

type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, src string) (string, error) {
	if strings.Contains(src, "broken") {
		return "", errors.New("fetch image: unexpected status 404")
	}
	return "data:image/png;base64,AAAA", nil
}

func TestImportService_Import(t *testing.T) {
	sf := newStorefront(t, nil)
	imports := NewImportService(sf.catalog, stubEmbedder{}, sf.bus, 2)
	ctx := context.Background()

	csv := "name,price,image,variantcolor,variantstock,variantimage\n" +
		"Aurora,30000,https://img/aurora.jpg,Pink,4,https://img/broken.jpg\n" +
		"Aurora,,,Teal,6,\n" +
		"Plain,12000,,,,\n" +
		"Priceless,,,,,\n"

	report, err := imports.Import(ctx, strings.NewReader(csv), "sheet.csv")
	require.NoError(t, err)
	assert.Equal(t, 4, report.Rows)
	require.Len(t, report.Products, 2)
	assert.Equal(t, 2, report.Products[0].Variants)
	assert.Equal(t, 10, report.Products[0].Stock)
	assert.ErrorIs(t, report.Err(), utils.ErrPartialImportFailure)

	// One missing price and one image that could not be embedded.
	require.Len(t, report.Failures, 2)
	assert.Equal(t, "Priceless", report.Failures[0].Name)
	assert.Equal(t, "https://img/broken.jpg", report.Failures[1].Image)

	aurora, err := sf.catalog.Product(report.Products[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,AAAA", aurora.Image)
	assert.Equal(t, "https://img/broken.jpg", aurora.Variants[0].Image, "failed conversions keep the url")

	plain, err := sf.catalog.Product(report.Products[1].ID)
	require.NoError(t, err)
	assert.Equal(t, DefaultImportImage, plain.Image)
	assert.Equal(t, 0, plain.Stock)

	assert.Len(t, sf.catalog.Products(ProductFilter{}), 8)
	assert.Contains(t, sf.bus.Types(), events.ImportCompleted)
}

func TestImportService_Preview(t *testing.T) {
	sf := newStorefront(t, nil)
	imports := NewImportService(sf.catalog, stubEmbedder{}, sf.bus, 1)

	report, err := imports.Preview(strings.NewReader("name,price\nA,1\nB,2\n"), "p.csv")
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Len(t, report.Products, 2)
	assert.Len(t, sf.catalog.Products(ProductFilter{}), 6, "preview never writes")
}

func TestImportService_ImportNothing(t *testing.T) {
	sf := newStorefront(t, nil)
	imports := NewImportService(sf.catalog, NopImageEmbedder{}, sf.bus, 1)

	_, err := imports.Import(context.Background(), strings.NewReader("name,price\n,100\n"), "p.csv")
	assert.ErrorIs(t, err, utils.ErrValidation)
}

func TestGroup_RejectsZeroPrice(t *testing.T) {
	rows := []ImportRow{
		{Line: 2, Name: "Free", Price: "0"},
		{Line: 3, Name: "Free", Price: "100", VariantColor: "Red"},
		{Line: 4, Name: "Priced", Price: "1,000"},
	}

	g := Group(rows)
	require.Len(t, g.Failures, 1)
	assert.Equal(t, "Free", g.Failures[0].Name)
	assert.Equal(t, 2, g.Failures[0].Row)
	assert.Contains(t, g.Failures[0].Err, "positive")
	require.Len(t, g.Groups, 1)
	assert.Equal(t, int64(1000), g.Groups[0].Input.Price)
}
