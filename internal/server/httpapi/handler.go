// Package httpapi serves the pack management HTTP API under
// /api/submission-packs, plus /health and /metrics.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/packkeeper/internal/logging"
	"github.com/dmitrijs2005/packkeeper/internal/pack"
	"github.com/dmitrijs2005/packkeeper/internal/server/models"
	"github.com/dmitrijs2005/packkeeper/internal/server/payload"
	"github.com/dmitrijs2005/packkeeper/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// maxUploadBytes caps the request body of POST /create.
	maxUploadBytes = 512 << 20
	// multipartMemory is how much of an upload is buffered in memory.
	multipartMemory = 32 << 20
)

// PackManager is the pack lifecycle the API exposes.
type PackManager interface {
	Create(ctx context.Context, applicationID int64, files []pack.Source) (*services.CreateResult, error)
	Get(ctx context.Context, id string) (*models.Submission, error)
	Manifest(ctx context.Context, id string) (*pack.Manifest, error)
	Verify(ctx context.Context, id string) (*services.VerifyOutcome, error)
	RegenerateManifest(ctx context.Context, id string) (*services.RegenerateResult, error)
	Versions(ctx context.Context, id string) ([]*models.ManifestVersion, error)
	Checksums(ctx context.Context, id string) ([]*models.DocumentRecord, error)
	Search(ctx context.Context, f models.SearchFilter) ([]*models.Submission, error)
	Statistics(ctx context.Context) (*services.StatisticsReport, error)
	DownloadURL(ctx context.Context, id string) (*services.DownloadLink, error)
	Summary(ctx context.Context, id string) (*services.Summary, error)
}

// DocumentVerifier answers single-document hash lookups.
type DocumentVerifier interface {
	VerifyDocument(ctx context.Context, submissionID, documentHash string) (*services.DocumentLookup, error)
}

var (
	_ PackManager      = (*services.PackService)(nil)
	_ DocumentVerifier = (*services.VerificationService)(nil)
)

type Handler struct {
	packs     PackManager
	documents DocumentVerifier
	workDir   string
	logger    logging.Logger
	now       func() time.Time
}

func NewHandler(packs PackManager, documents DocumentVerifier, workDir string, logger logging.Logger) *Handler {
	return &Handler{
		packs:     packs,
		documents: documents,
		workDir:   workDir,
		logger:    logger.With("module", "http_api"),
		now:       time.Now,
	}
}

// Routes builds the router with request ids, logging, metrics and panic
// recovery applied to every route.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(metricsMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/submission-packs", func(r chi.Router) {
		r.Post("/create", h.create)
		r.Get("/submission/{id}", h.getSubmission)
		r.Post("/verify/{id}", h.verify)
		r.Get("/search", h.search)
		r.Get("/manifest/{id}", h.manifest)
		r.Get("/manifest/{id}/versions", h.versions)
		r.Post("/verify-document", h.verifyDocument)
		r.Get("/statistics", h.statistics)
		r.Get("/download/{id}", h.download)
		r.Get("/checksums/{id}", h.checksums)
		r.Post("/regenerate-manifest/{id}", h.regenerate)
		r.Get("/summary/{id}", h.summary)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusNotFound, CodeNotFound, "route not found")
	})
	return r
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := newStatusRecorder(w)

		next.ServeHTTP(rec, r)

		args := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.statusCode,
			"duration", time.Since(start),
			"bytes", rec.written,
			"request_id", middleware.GetReqID(r.Context()),
		}
		switch {
		case rec.statusCode >= 500:
			h.logger.Error(r.Context(), "http request", args...)
		case rec.statusCode >= 400:
			h.logger.Warn(r.Context(), "http request", args...)
		default:
			h.logger.Info(r.Context(), "http request", args...)
		}
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, payload.Map{"status": "ok"})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		validationError(w, "invalid multipart form: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	appID, err := strconv.ParseInt(strings.TrimSpace(r.FormValue("application_id")), 10, 64)
	if err != nil || appID <= 0 {
		validationError(w, "application_id must be a positive integer")
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		validationError(w, "at least one file is required")
		return
	}

	dir, err := os.MkdirTemp(h.workDir, "upload-*")
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, err)
		return
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			h.logger.Warn(r.Context(), "failed to remove upload dir", "dir", dir, "error", err)
		}
	}()

	sources := make([]pack.Source, 0, len(headers))
	for i, fh := range headers {
		name, ok := originalName(fh.Filename)
		if !ok {
			validationError(w, fmt.Sprintf("invalid file name %q", fh.Filename))
			return
		}
		path, err := saveUpload(fh, filepath.Join(dir, fmt.Sprintf("upload_%03d%s", i, filepath.Ext(name))))
		if err != nil {
			writeServiceError(r.Context(), w, h.logger, err)
			return
		}
		sources = append(sources, pack.Source{Path: path, OriginalName: name})
	}

	res, err := h.packs.Create(r.Context(), appID, sources)
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, payload.Map{"success": true, "submission_pack": payload.Created(res)})
}

// originalName reduces an uploaded file name to a safe archive entry name.
func originalName(name string) (string, bool) {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == ".." || name == "" || name == pack.ManifestEntryName {
		return "", false
	}
	return name, true
}

func saveUpload(fh *multipart.FileHeader, path string) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return "", fmt.Errorf("save upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	return path, nil
}

func (h *Handler) getSubmission(w http.ResponseWriter, r *http.Request) {
	sub, err := h.packs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, payload.Map{
		"success":    true,
		"submission": payload.Submission(sub),
		"manifest":   json.RawMessage(sub.ManifestJSON),
	})
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	out, err := h.packs.Verify(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, payload.Map{"success": true, "verification": payload.Verification(out)})
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := models.SearchFilter{
		LPACode:              strings.TrimSpace(q.Get("lpa_code")),
		ApplicationReference: strings.TrimSpace(q.Get("application_reference")),
	}
	if v := q.Get("verified_only"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			validationError(w, "verified_only must be a boolean")
			return
		}
		f.VerifiedOnly = b
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			validationError(w, "limit must be a positive integer")
			return
		}
		f.Limit = n
	}

	subs, err := h.packs.Search(r.Context(), f)
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, payload.Map{
		"success":     true,
		"submissions": payload.Submissions(subs),
		"total_found": len(subs),
	})
}

func (h *Handler) manifest(w http.ResponseWriter, r *http.Request) {
	m, err := h.packs.Manifest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success  bool           `json:"success"`
		Manifest *pack.Manifest `json:"manifest"`
	}{true, m})
}

func (h *Handler) versions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	vs, err := h.packs.Versions(r.Context(), id)
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, payload.Map{
		"success":       true,
		"submission_id": id,
		"versions":      payload.Versions(vs),
	})
}

func (h *Handler) verifyDocument(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.FormValue("submission_id"))
	hash := strings.TrimSpace(r.FormValue("document_hash"))
	if id == "" || hash == "" {
		validationError(w, "submission_id and document_hash are required")
		return
	}

	res, err := h.documents.VerifyDocument(r.Context(), id, hash)
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, payload.Map{"success": true, "verification": payload.Lookup(res)})
}

func (h *Handler) statistics(w http.ResponseWriter, r *http.Request) {
	st, err := h.packs.Statistics(r.Context())
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, payload.Map{"success": true, "statistics": payload.Statistics(st)})
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	link, err := h.packs.DownloadURL(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, err)
		return
	}
	body := payload.Download(link, h.now())
	body["success"] = true
	writeJSON(w, http.StatusOK, body)
}

func (h *Handler) checksums(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	docs, err := h.packs.Checksums(r.Context(), id)
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, payload.Map{
		"success":            true,
		"submission_id":      id,
		"document_checksums": payload.Checksums(docs),
		"total_documents":    len(docs),
	})
}

func (h *Handler) regenerate(w http.ResponseWriter, r *http.Request) {
	res, err := h.packs.RegenerateManifest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, payload.Map{
		"success":      true,
		"message":      "Manifest regenerated successfully",
		"regeneration": payload.Regenerated(res),
		"new_manifest": res.Manifest,
	})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	s, err := h.packs.Summary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, payload.Map{"success": true, "summary": payload.Summary(s)})
}
