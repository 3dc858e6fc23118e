// httpapi.go - the HTTP surface: request validation, quota/IP extraction,
// and response shaping for upload/translate/batch/erase.

package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/toonslate/toonslate-backend/internal/batch"
	"github.com/toonslate/toonslate-backend/internal/common"
	"github.com/toonslate/toonslate-backend/internal/erase"
	"github.com/toonslate/toonslate-backend/internal/jobstore"
	"github.com/toonslate/toonslate-backend/internal/orchestrate"
	"github.com/toonslate/toonslate-backend/internal/quota"
	"github.com/toonslate/toonslate-backend/internal/storage"
)

// Server wires every request-side dependency behind the gin handlers.
type Server struct {
	Jobs         *jobstore.JobStore
	Objects      storage.Store
	Quota        *quota.Engine
	Orchestrator *orchestrate.Orchestrator
	Batches      *batch.Aggregator
	Eraser       *erase.Service
	IPHashSecret string
}

// New builds a Server.
func New(jobs *jobstore.JobStore, objects storage.Store, quotaEngine *quota.Engine, orchestrator *orchestrate.Orchestrator, batches *batch.Aggregator, eraser *erase.Service, ipHashSecret string) *Server {
	return &Server{Jobs: jobs, Objects: objects, Quota: quotaEngine, Orchestrator: orchestrator, Batches: batches, Eraser: eraser, IPHashSecret: ipHashSecret}
}

// Routes registers every endpoint onto router.
func (s *Server) Routes(router *gin.Engine) {
	router.GET("/health", s.handleHealth)
	router.POST("/upload", s.handleUpload)
	router.GET("/upload/:id", s.handleGetUpload)
	router.POST("/translate", s.handleSubmitTranslate)
	router.GET("/translate/:id", s.handleGetTranslate)
	router.POST("/batch", s.handleSubmitBatch)
	router.GET("/batch/:id", s.handleGetBatch)
	router.POST("/erase", s.handleErase)
}

func (s *Server) ipHash(c *gin.Context) string {
	return quota.HashIP(s.IPHashSecret, c.ClientIP())
}

// writeError renders err as the service's standard `{detail:{code,message}}`
// error envelope, mapping a *common.APIError's own status/code or falling
// back to a generic 500.
func writeError(c *gin.Context, err error) {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		c.JSON(apiErr.StatusCode, gin.H{"detail": gin.H{"code": apiErr.Code, "message": apiErr.Message}})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"detail": gin.H{"code": "INTERNAL_ERROR", "message": err.Error()}})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// uploadResponse is the wire shape for a created or fetched upload.
type uploadResponse struct {
	UploadID string `json:"uploadId"`
	ImageURL string `json:"imageUrl"`
}

func (s *Server) handleUpload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": gin.H{"code": "INVALID_FILE", "message": "file is required"}})
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	content, err := io.ReadAll(io.LimitReader(file, storage.MaxUploadSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": gin.H{"code": "INVALID_FILE", "message": "failed to read upload"}})
		return
	}
	if int64(len(content)) > storage.MaxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{"detail": gin.H{"code": "INVALID_FILE", "message": "upload exceeds size limit"}})
		return
	}

	uploadID := jobstore.GenerateUploadID()
	relPath, err := s.Objects.Save(content, contentType, "original", uploadID, fileExt(contentType))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": gin.H{"code": "INVALID_FILE", "message": err.Error()}})
		return
	}

	rec := jobstore.UploadRecord{
		UploadID:    uploadID,
		Filename:    header.Filename,
		ContentType: contentType,
		Size:        int64(len(content)),
		Path:        relPath,
		ImageURL:    s.Objects.URL(relPath),
		CreatedAt:   jobstore.NowISO(),
	}
	if err := s.Jobs.PutUpload(c.Request.Context(), rec); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": gin.H{"code": "INTERNAL_ERROR", "message": err.Error()}})
		return
	}

	c.JSON(http.StatusCreated, uploadResponse{UploadID: rec.UploadID, ImageURL: rec.ImageURL})
}

func (s *Server) handleGetUpload(c *gin.Context) {
	rec, err := s.Jobs.GetUpload(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, jobstore.ErrNotFound) {
			writeError(c, common.NewAPIError(common.CodeUploadNotFound, http.StatusNotFound, "upload not found"))
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, uploadResponse{UploadID: rec.UploadID, ImageURL: rec.ImageURL})
}

type submitTranslateRequest struct {
	UploadID       string `json:"uploadId"`
	SourceLanguage string `json:"sourceLanguage"`
	TargetLanguage string `json:"targetLanguage"`
}

type translateResponse struct {
	TranslateID  string `json:"translateId"`
	Status       string `json:"status"`
	ResultURL    string `json:"resultUrl,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

func (s *Server) handleSubmitTranslate(c *gin.Context) {
	var req submitTranslateRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": gin.H{"code": "INVALID_BODY", "message": err.Error()}})
		return
	}

	rec, err := s.Orchestrator.SubmitTranslate(c.Request.Context(), s.ipHash(c), req.UploadID, req.SourceLanguage, req.TargetLanguage)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, translateResponse{TranslateID: rec.TranslateID, Status: string(rec.Status)})
}

func (s *Server) handleGetTranslate(c *gin.Context) {
	rec, err := s.Jobs.GetTranslate(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, jobstore.ErrNotFound) {
			writeError(c, common.NewAPIError(common.CodeTranslateNotFound, http.StatusNotFound, "translate job not found"))
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, translateResponse{
		TranslateID:  rec.TranslateID,
		Status:       string(rec.Status),
		ResultURL:    rec.ResultImageURL,
		ErrorMessage: rec.ErrorMessage,
	})
}

type submitBatchRequest struct {
	UploadIDs      []string `json:"uploadIds"`
	SourceLanguage string   `json:"sourceLanguage"`
	TargetLanguage string   `json:"targetLanguage"`
}

type batchChildResponse struct {
	OrderIndex   int    `json:"orderIndex"`
	UploadID     string `json:"uploadId"`
	TranslateID  string `json:"translateId"`
	Status       string `json:"status"`
	ResultURL    string `json:"resultUrl,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

type batchResponse struct {
	BatchID string               `json:"batchId"`
	Status  string               `json:"status"`
	Items   []batchChildResponse `json:"items"`
}

func (s *Server) handleSubmitBatch(c *gin.Context) {
	var req submitBatchRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": gin.H{"code": "INVALID_BODY", "message": err.Error()}})
		return
	}

	items := make([]orchestrate.BatchItem, len(req.UploadIDs))
	for i, id := range req.UploadIDs {
		items[i] = orchestrate.BatchItem{UploadID: id}
	}

	rec, err := s.Orchestrator.SubmitBatch(c.Request.Context(), s.ipHash(c), items, req.SourceLanguage, req.TargetLanguage)
	if err != nil {
		writeError(c, err)
		return
	}

	children := make([]batchChildResponse, len(rec.Children))
	for i, child := range rec.Children {
		children[i] = batchChildResponse{OrderIndex: child.OrderIndex, UploadID: child.UploadID, TranslateID: child.TranslateID, Status: string(jobstore.StatusPending)}
	}
	c.JSON(http.StatusCreated, batchResponse{BatchID: rec.BatchID, Status: "processing", Items: children})
}

func (s *Server) handleGetBatch(c *gin.Context) {
	agg, err := s.Batches.GetBatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	children := make([]batchChildResponse, len(agg.Entries))
	for i, entry := range agg.Entries {
		children[i] = batchChildResponse{
			OrderIndex:   entry.OrderIndex,
			UploadID:     entry.UploadID,
			TranslateID:  entry.TranslateID,
			Status:       string(entry.Status),
			ResultURL:    entry.ResultURL,
			ErrorMessage: entry.ErrorMessage,
		}
	}
	c.JSON(http.StatusOK, batchResponse{BatchID: agg.BatchID, Status: string(agg.Status), Items: children})
}

type eraseRequest struct {
	TranslateID string `json:"translateId"`
	MaskImage   string `json:"maskImage"`
	SourceImage string `json:"sourceImage,omitempty"`
}

func (s *Server) handleErase(c *gin.Context) {
	var req eraseRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": gin.H{"code": "INVALID_BODY", "message": err.Error()}})
		return
	}

	result, err := s.Eraser.Erase(c.Request.Context(), req.TranslateID, req.MaskImage, req.SourceImage)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resultImage": result})
}

func fileExt(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	default:
		return ""
	}
}

