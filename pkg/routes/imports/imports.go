package imports

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/diogoqz/api-consulta-hotmart/pkg/importer"
	"github.com/diogoqz/api-consulta-hotmart/pkg/models"
)

// DefaultMaxUploadBytes bounds the size of an uploaded export
const DefaultMaxUploadBytes = 64 << 20

// Runner imports one export file
type Runner interface {
	Import(ctx context.Context, platform models.Platform, fileName string, r io.Reader, force bool) (*importer.ImportResult, error)
}

// RunFinder returns the most recent successful run of a platform
type RunFinder interface {
	LatestSucceeded(ctx context.Context, platform models.Platform) (*models.ImportRun, error)
}

// Handler serves the import endpoints
type Handler struct {
	runner   Runner
	runs     RunFinder
	logger   ectologger.Logger
	maxBytes int64
}

// NewHandler creates an import handler. maxBytes <= 0 uses DefaultMaxUploadBytes.
func NewHandler(runner Runner, runs RunFinder, logger ectologger.Logger, maxBytes int64) *Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &Handler{
		runner:   runner,
		runs:     runs,
		logger:   logger,
		maxBytes: maxBytes,
	}
}

// Register registers the import routes
func (h *Handler) Register(g *echo.Group) {
	g.POST("/imports/:platform", h.Upload)
	g.GET("/imports/:platform/latest", h.Latest)
}

// Upload imports an export file of a platform
// @Summary Import a sales export
// @Tags Imports
// @Accept multipart/form-data
// @Produce json
// @Param platform path string true "hotmart or cakto"
// @Param file formData file true "Export file"
// @Param force formData bool false "Import even when the file is unchanged"
// @Success 200 {object} importer.ImportResult
// @Failure 400 {object} httperror.HTTPError
// @Failure 409 {object} httperror.HTTPError
// @Failure 413 {object} httperror.HTTPError
// @Router /api/imports/{platform} [post]
func (h *Handler) Upload(c echo.Context) error {
	ctx := c.Request().Context()

	platform, err := parsePlatform(c)
	if err != nil {
		return err
	}

	req := c.Request()
	req.Body = http.MaxBytesReader(c.Response(), req.Body, h.maxBytes)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return httperror.NewHTTPErrorf(http.StatusRequestEntityTooLarge, "file exceeds %d bytes", h.maxBytes)
		}
		return httperror.NewHTTPError(http.StatusBadRequest, "multipart field file is required")
	}

	force := false
	if raw := c.FormValue("force"); raw != "" {
		force, err = strconv.ParseBool(raw)
		if err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "force must be a boolean")
		}
	}

	file, err := fh.Open()
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "failed to open uploaded file")
	}
	defer file.Close()

	h.logger.WithContext(ctx).WithFields(map[string]any{
		"platform":  platform,
		"file_name": fh.Filename,
		"size":      fh.Size,
		"force":     force,
	}).Info("Importing upload")

	result, err := h.runner.Import(ctx, platform, fh.Filename, file, force)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// Latest returns the last successful import of a platform
// @Summary Latest successful import
// @Tags Imports
// @Produce json
// @Param platform path string true "hotmart or cakto"
// @Success 200 {object} models.ImportRun
// @Failure 400 {object} httperror.HTTPError
// @Failure 404 {object} httperror.HTTPError
// @Router /api/imports/{platform}/latest [get]
func (h *Handler) Latest(c echo.Context) error {
	ctx := c.Request().Context()

	platform, err := parsePlatform(c)
	if err != nil {
		return err
	}

	run, err := h.runs.LatestSucceeded(ctx, platform)
	if err != nil {
		return err
	}
	if run == nil {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "no successful import for %s", platform)
	}

	return c.JSON(http.StatusOK, run)
}

func parsePlatform(c echo.Context) (models.Platform, error) {
	platform, ok := models.ParsePlatform(c.Param("platform"))
	if !ok {
		return "", httperror.NewHTTPErrorf(http.StatusBadRequest, "unsupported platform %q", c.Param("platform"))
	}
	return platform, nil
}
