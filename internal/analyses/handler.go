package analyses

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"smartcv-backend/internal/llm"
	"smartcv-backend/internal/shared/server/middleware"
	"smartcv-backend/internal/shared/server/respond"
	"smartcv-backend/internal/uploads"
)

// multipart framing allowance on top of the file size limit.
const formOverheadBytes = 1 << 20

// Runner is implemented by Service.
type Runner interface {
	Run(ctx context.Context, v Variant, req Request) (Output, error)
}

// Handler wires the pipeline endpoints.
type Handler struct {
	Svc            Runner
	MaxUploadBytes int64
}

// NewHandler constructs a Handler.
func NewHandler(svc Runner, maxUploadBytes int64) *Handler {
	return &Handler{Svc: svc, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches the three pipeline routes.
func (h *Handler) RegisterRoutes(rg gin.IRoutes) {
	rg.POST("/analyze-cv", h.run(VariantComplete))
	rg.POST("/analyze-only", h.run(VariantAnalysis))
	rg.POST("/improve-only", h.run(VariantImproved))
}

func (h *Handler) run(v Variant) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.VariantKey, string(v))

		if h.MaxUploadBytes > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes+formOverheadBytes)
		}

		fileHeader, err := c.FormFile("cv")
		if err != nil && !errors.Is(err, http.ErrMissingFile) {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				h.tooLarge(c)
				return
			}
			if !errors.Is(err, http.ErrNotMultipart) {
				respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "Invalid multipart form")
				return
			}
		}
		if fileHeader != nil && h.MaxUploadBytes > 0 && fileHeader.Size > h.MaxUploadBytes {
			h.tooLarge(c)
			return
		}

		req := Request{
			Role:           c.PostForm("role"),
			JobDescription: c.PostForm("jobDescription"),
		}
		if fileHeader != nil {
			f, err := fileHeader.Open()
			if err != nil {
				respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "Unable to read uploaded file")
				return
			}
			defer closeFile(f)
			req.FileName = fileHeader.Filename
			req.File = f
		}

		out, err := h.Svc.Run(c.Request.Context(), v, req)
		if err != nil {
			h.fail(c, err)
			return
		}
		respond.Attachment(c, out.ContentType, out.FileName, out.Body)
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	var inputErr *InputError
	var stage *StageError
	switch {
	case errors.As(err, &inputErr):
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, inputErr.Message)
	case errors.Is(err, uploads.ErrTooLarge):
		h.tooLarge(c)
	case errors.As(err, &stage):
		c.Set(middleware.StageKey, stage.Stage)
		respond.Error(c, http.StatusInternalServerError, stageCode(stage), stage.Error())
	default:
		respond.Error(c, http.StatusInternalServerError, ErrorCodePipeline, err.Error())
	}
}

// stageCode is the internal error code logged for a failed stage.
func stageCode(stage *StageError) string {
	var schemaErr *llm.SchemaError
	switch {
	case stage.Stage == StageUpload:
		return ErrorCodeStorage
	case errors.As(stage, &schemaErr):
		return ErrorCodeSchema
	default:
		return ErrorCodePipeline
	}
}

func (h *Handler) tooLarge(c *gin.Context) {
	limitMB := h.MaxUploadBytes >> 20
	respond.Error(c, http.StatusRequestEntityTooLarge, ErrorCodeTooLarge,
		fmt.Sprintf("File too large. Maximum size is %dMB", limitMB))
}

func closeFile(f multipart.File) {
	_ = f.Close()
}
