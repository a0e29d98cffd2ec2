package handler

import (
	"bytes"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/storefront_api/internal/service"
	"github.com/GTDGit/storefront_api/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ImportHandler serves bulk product import.
type ImportHandler struct {
	imports  *service.ImportService
	maxBytes int64
}

// NewImportHandler constructs an ImportHandler. maxBytes bounds the upload.
func NewImportHandler(imports *service.ImportService, maxBytes int64) *ImportHandler {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &ImportHandler{imports: imports, maxBytes: maxBytes}
}

// Import handles POST /v1/admin/products/import (multipart field "file").
// With dryRun=true the file is only grouped and reported.
func (h *ImportHandler) Import(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "A file field is required")
		return
	}
	if fh.Size > h.maxBytes {
		utils.Error(c, 413, utils.ErrPayloadTooLarge.Error(), "Upload is too large")
		return
	}
	f, err := fh.Open()
	if err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Upload could not be read")
		return
	}
	defer f.Close()

	var report *service.ImportReport
	if c.Query("dryRun") == "true" {
		report, err = h.imports.Preview(f, fh.Filename)
	} else {
		report, err = h.imports.Import(c.Request.Context(), f, fh.Filename)
	}
	if err != nil {
		utils.FromError(c, err, "Failed to import products")
		return
	}

	if report.Err() != nil {
		utils.Success(c, 207, "Import completed with failures", report)
		return
	}
	utils.Success(c, 200, "Import completed", report)
}

// Template handles GET /v1/admin/products/import/template
func (h *ImportHandler) Template(c *gin.Context) {
	var buf bytes.Buffer
	if err := service.WriteTemplate(&buf); err != nil {
		utils.FromError(c, err, "Failed to build template")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="bulk_import_template.xlsx"`)
	c.Data(200, xlsxContentType, buf.Bytes())
}
