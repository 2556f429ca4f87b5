package documents

import (
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carepoint/hms/internal/platform/apperr"
	"github.com/carepoint/hms/internal/platform/auth"
	"github.com/carepoint/hms/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/documents", h.UploadDocument)
	api.GET("/documents", h.ListDocuments)
	api.GET("/documents/:id", h.GetDocument)
	api.GET("/documents/:id/content", h.GetContent)
}

func (h *Handler) UploadDocument(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return apperr.Unauthorized("authentication required")
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return apperr.Validation("file", "is required")
	}
	up := Upload{
		FileName:    fh.Filename,
		ContentType: contentType(fh.Filename, fh.Header.Get(echo.HeaderContentType)),
		Size:        fh.Size,
	}
	if v := c.FormValue("patient_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return apperr.Validation("patient_id", "must be a valid id")
		}
		up.PatientID = id
	}
	if v := c.FormValue("description"); v != "" {
		up.Description = &v
	}

	f, err := fh.Open()
	if err != nil {
		return apperr.Validation("file", "could not be read")
	}
	defer f.Close()
	up.Body = f

	doc, err := h.svc.Upload(c.Request().Context(), caller, up)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, doc)
}

func (h *Handler) ListDocuments(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return apperr.Unauthorized("authentication required")
	}
	var patientID *uuid.UUID
	if v := c.QueryParam("patient_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return apperr.Validation("patient_id", "must be a valid id")
		}
		patientID = &id
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), caller, patientID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetDocument(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return apperr.Unauthorized("authentication required")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("id", "must be a valid id")
	}
	doc, err := h.svc.Get(c.Request().Context(), caller, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, doc)
}

func (h *Handler) GetContent(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return apperr.Unauthorized("authentication required")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("id", "must be a valid id")
	}
	doc, rc, err := h.svc.Content(c.Request().Context(), caller, id)
	if err != nil {
		return err
	}
	defer rc.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition,
		mime.FormatMediaType("attachment", map[string]string{"filename": doc.FileName}))
	c.Response().Header().Set(echo.HeaderContentLength, strconv.FormatInt(doc.FileSize, 10))
	return c.Stream(http.StatusOK, doc.FileType, rc)
}

func callerFrom(c echo.Context) (auth.Caller, bool) {
	return auth.CallerFromContext(c.Request().Context())
}

// contentType prefers the part's declared type and falls back to the file
// extension when the client sent none or a generic one.
func contentType(name, declared string) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext == ".dcm" || ext == ".dicom" {
		return "application/dicom"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return declared
}
