package service

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/GTDGit/storefront_api/internal/utils"
)

// ImportHeaders are the bulk import columns in template order.
var ImportHeaders = []string{
	"name", "sku", "price", "saleprice", "category", "device", "brand",
	"description", "stock", "image", "variantcolor", "variantstock",
	"variantsku", "variantimage",
}

const templateSheet = "Products"

// ImportRow is one spreadsheet row. Values are kept as text; Group parses them.
type ImportRow struct {
	Line         int
	Name         string
	SKU          string
	Price        string
	SalePrice    string
	Category     string
	Device       string
	Brand        string
	Description  string
	Stock        string
	Image        string
	VariantColor string
	VariantStock string
	VariantSKU   string
	VariantImage string
}

func (r *ImportRow) set(header, value string) {
	value = strings.TrimSpace(value)
	switch header {
	case "name":
		r.Name = value
	case "sku":
		r.SKU = value
	case "price":
		r.Price = value
	case "saleprice":
		r.SalePrice = value
	case "category":
		r.Category = value
	case "device":
		r.Device = value
	case "brand":
		r.Brand = value
	case "description":
		r.Description = value
	case "stock":
		r.Stock = value
	case "image":
		r.Image = value
	case "variantcolor":
		r.VariantColor = value
	case "variantstock":
		r.VariantStock = value
	case "variantsku":
		r.VariantSKU = value
	case "variantimage":
		r.VariantImage = value
	}
}

func (r *ImportRow) values() []interface{} {
	return []interface{}{
		r.Name, r.SKU, r.Price, r.SalePrice, r.Category, r.Device, r.Brand,
		r.Description, r.Stock, r.Image, r.VariantColor, r.VariantStock,
		r.VariantSKU, r.VariantImage,
	}
}

// ReadImportFile parses an .xlsx or .csv upload. The format is chosen by the
// file name's extension.
func ReadImportFile(r io.Reader, filename string) ([]ImportRow, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return readXLSX(r)
	case ".csv":
		return readCSV(r)
	}
	return nil, utils.NewValidationError("file", "must be an .xlsx or .csv file", nil)
}

// readXLSX reads the first sheet of a workbook.
func readXLSX(r io.Reader) ([]ImportRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, utils.NewValidationError("file", "could not be read as a workbook: "+err.Error(), nil)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, utils.NewValidationError("file", "workbook has no sheets", nil)
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return rowsFromRecords(records)
}

func readCSV(r io.Reader) ([]ImportRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, utils.NewValidationError("file", "invalid csv: "+err.Error(), nil)
		}
		records = append(records, rec)
	}
	return rowsFromRecords(records)
}

// rowsFromRecords maps records onto ImportRow using the first record as a
// case-insensitive header. Blank records are dropped.
func rowsFromRecords(records [][]string) ([]ImportRow, error) {
	if len(records) == 0 {
		return nil, utils.NewValidationError("file", "no data found", nil)
	}

	headers := make([]string, len(records[0]))
	hasName := false
	for i, h := range records[0] {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		headers[i] = h
		if h == "name" {
			hasName = true
		}
	}
	if !hasName {
		return nil, utils.NewValidationError("file", "a name column is required", nil)
	}

	rows := make([]ImportRow, 0, len(records)-1)
	for n, rec := range records[1:] {
		row := ImportRow{Line: n + 2}
		blank := true
		for i, v := range rec {
			if i >= len(headers) {
				break
			}
			if strings.TrimSpace(v) != "" {
				blank = false
			}
			row.set(headers[i], v)
		}
		if !blank {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// Template returns the example rows offered to admins: one product without
// variants and one product spread over two variant rows.
func Template() []ImportRow {
	return []ImportRow{
		{
			Name: "Simple Product Example", SKU: "PROD-001", Price: "25000",
			Category: "Minimalist", Device: "iPhone 15 Pro", Brand: "Spigen",
			Description: "Standard case without variants", Stock: "50",
			Image: DefaultImportImage,
		},
		{
			Name: "Grouped Product Example", SKU: "PROD-002", Price: "30000",
			Category: "Artistic", Device: "iPhone 14", Brand: "UrbanArmor",
			Description:  "This product has 2 variants (Red and Blue) defined in 2 rows",
			Image:        "https://images.unsplash.com/photo-1550745165-9bc0b252726f",
			VariantColor: "Red", VariantStock: "10", VariantSKU: "PROD-002-RED",
			VariantImage: "https://example.com/red-image.jpg",
		},
		{
			Name: "Grouped Product Example", Price: "30000",
			Category: "Artistic", Device: "iPhone 14", Brand: "UrbanArmor",
			VariantColor: "Blue", VariantStock: "5", VariantSKU: "PROD-002-BLUE",
			VariantImage: "https://example.com/blue-image.jpg",
		},
	}
}

// WriteTemplate writes the template rows as an .xlsx workbook.
func WriteTemplate(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", templateSheet); err != nil {
		return err
	}
	header := make([]interface{}, len(ImportHeaders))
	for i, h := range ImportHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(templateSheet, "A1", &header); err != nil {
		return err
	}
	for i, row := range Template() {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := row.values()
		if err := f.SetSheetRow(templateSheet, cell, &values); err != nil {
			return err
		}
	}
	return f.Write(w)
}
