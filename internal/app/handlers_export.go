package app

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ak/oms/internal/domain/models"
	"github.com/ak/oms/internal/domain/services"
	"github.com/ak/oms/internal/infrastructure/export"
	apperrors "github.com/ak/oms/internal/pkg/errors"
	"github.com/gin-gonic/gin"
)

// ==================== Export handlers ====================

// exportManifest streams a courier upload file. The file is built in memory
// first so a failure still produces a JSON error instead of a truncated download.
func (a *Application) exportManifest(c *gin.Context) {
	courier, err := export.ParseCourier(c.Query("courier"))
	if err != nil {
		errorResponse(c, apperrors.InvalidInput(err.Error()))
		return
	}

	req := services.ManifestRequest{Courier: courier}
	if s := c.Query("status"); s != "" {
		if req.Status, err = models.ParseOrderStatus(s); err != nil {
			errorResponse(c, apperrors.InvalidInput(err.Error()))
			return
		}
	}

	loc := a.config.Location()
	date, err := parseTimeParam(c.Query("date"), loc, false)
	if err != nil {
		errorResponse(c, apperrors.InvalidInput("date: "+err.Error()))
		return
	}
	req.Date = date

	var buf bytes.Buffer
	result, err := a.services.Exports.Manifest(c.Request.Context(), req, &buf)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	fileDate := time.Now().In(loc)
	if date != nil {
		fileDate = *date
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, result.Filename(fileDate)))
	c.Header("X-Manifest-Batch", result.BatchID)
	c.Header("X-Manifest-Rows", strconv.Itoa(result.Rows))
	c.Header("X-Manifest-Encoding", result.Encoding)
	c.Data(http.StatusOK, result.ContentType, buf.Bytes())
}
