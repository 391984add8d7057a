package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/paramirez/deckzter-seed/internal/importer"
	"github.com/paramirez/deckzter-seed/internal/scryfall"
	apperrors "github.com/paramirez/deckzter-seed/pkg/errors"
	"github.com/paramirez/deckzter-seed/pkg/httputil"
	"github.com/paramirez/deckzter-seed/pkg/logger"
	"github.com/paramirez/deckzter-seed/pkg/middleware"
	"github.com/paramirez/deckzter-seed/pkg/validator"
)

// maxImportBody caps the JSON request body.
const maxImportBody = 16 << 10

// ErrImportRunning is returned while another import holds the lock.
var ErrImportRunning = apperrors.Conflict("IMPORT_RUNNING", "an import is already running")

// Importer runs a single import.
type Importer interface {
	Import(ctx context.Context, req importer.Request) (*importer.Report, error)
}

// ImportHandler handles HTTP requests that trigger card imports. Only one
// import runs at a time.
type ImportHandler struct {
	importer Importer
	timeout  time.Duration
	logger   *slog.Logger
	running  sync.Mutex
}

// NewImportHandler creates a new import HTTP handler. A zero timeout leaves
// runs bounded only by the request context.
func NewImportHandler(imp Importer, timeout time.Duration, logger *slog.Logger) *ImportHandler {
	return &ImportHandler{
		importer: imp,
		timeout:  timeout,
		logger:   logger,
	}
}

// CreateImportRequest is the JSON request body for starting an import.
// Exactly one of Query or Set is given; Set is expanded to the default
// query for that set.
type CreateImportRequest struct {
	Query string `json:"query" validate:"required_without=Set,excluded_with=Set,max=1000"`
	Set   string `json:"set" validate:"omitempty,setcode"`
}

// CreateImport handles POST /api/v1/imports
func (h *ImportHandler) CreateImport(w http.ResponseWriter, r *http.Request) {
	var req CreateImportRequest
	if err := validator.DecodeAndValidate(http.MaxBytesReader(w, r.Body, maxImportBody), &req); err != nil {
		var valErr *validator.ValidationError
		if !errors.As(err, &valErr) {
			err = apperrors.InvalidInput(err.Error())
		}
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	query := req.Query
	if req.Set != "" {
		query = scryfall.BuildQuery(req.Set)
	}

	if !h.running.TryLock() {
		httputil.WriteError(w, r, ErrImportRunning, h.logger)
		return
	}
	defer h.running.Unlock()

	ctx := r.Context()
	if subject := middleware.SubjectFromContext(ctx); subject != "" {
		logger.WithContext(ctx, h.logger).Info("import requested",
			slog.String("subject", subject),
			slog.String("query", query),
		)
	}
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	report, err := h.importer.Import(ctx, importer.Request{Query: query})
	if err != nil {
		if report != nil {
			httputil.WriteErrorWithData(w, r, err, report, h.logger)
			return
		}
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: report})
}
