package server

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	apperrors "github.com/iwvelando/cbdc-tax-forecast/internal/errors"
	"github.com/iwvelando/cbdc-tax-forecast/internal/indicator"
	"github.com/iwvelando/cbdc-tax-forecast/internal/report"
	"github.com/iwvelando/cbdc-tax-forecast/internal/scenario"
	"github.com/iwvelando/cbdc-tax-forecast/internal/storage"
	"github.com/iwvelando/cbdc-tax-forecast/pkg/adapters"
	"github.com/iwvelando/cbdc-tax-forecast/pkg/constants"
	"github.com/iwvelando/cbdc-tax-forecast/pkg/output"
)

//go:embed static/*
var staticFiles embed.FS

// SnapshotStore persists named snapshot documents.
type SnapshotStore interface {
	Save(ctx context.Context, name string, body []byte) (storage.Record, error)
	Load(ctx context.Context, name string) (storage.Record, error)
	List(ctx context.Context) ([]storage.Record, error)
	Delete(ctx context.Context, name string) error
}

// IndicatorSource looks up economic indicators.
type IndicatorSource interface {
	FetchAll(ctx context.Context, codes []string) []indicator.Reading
}

// Dependencies are the optional collaborators of the handler. A nil Store
// disables the stored snapshot routes; a nil Indicators reports every
// indicator as unavailable.
type Dependencies struct {
	Store          SnapshotStore
	Indicators     IndicatorSource
	IndicatorCodes []string
	IndicatorYear  int
}

type handler struct {
	logger        *zap.Logger
	maxUploadSize int64
	version       string
	deps          Dependencies
}

// NewHandler constructs the HTTP handler that serves the web UI and projection API.
func NewHandler(logger *zap.Logger, maxUploadSize int64, version string, deps Dependencies) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	if maxUploadSize <= 0 {
		maxUploadSize = constants.DefaultMaxUploadSizeBytes
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	if len(deps.IndicatorCodes) == 0 {
		deps.IndicatorCodes = []string{constants.IndicatorGDP, constants.IndicatorPopulation}
	}
	if deps.IndicatorYear == 0 {
		deps.IndicatorYear = constants.DefaultIndicatorYear
	}

	h := &handler{logger: logger, maxUploadSize: maxUploadSize, version: trimmedVersion, deps: deps}

	mux := http.NewServeMux()

	// Projection API endpoint for editor-driven updates
	mux.HandleFunc("/api/project", h.handleProject)

	// Snapshot upload, download and report endpoints
	mux.HandleFunc("/api/snapshot/import", h.handleSnapshotImport)
	mux.HandleFunc("/api/snapshot/export", h.handleSnapshotExport)
	mux.HandleFunc("/api/report", h.handleReport)

	mux.HandleFunc("/api/indicators", h.handleIndicators)

	// Stored snapshots
	mux.HandleFunc("/api/snapshots", h.handleSnapshots)
	mux.HandleFunc("/api/snapshots/{name}", h.handleSnapshot)

	// Version endpoint for UI metadata
	mux.HandleFunc("/api/version", h.handleVersion)

	// Static assets (web UI)
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(fmt.Sprintf("failed to prepare embedded static files: %v", err))
	}
	fileServer := http.FileServer(http.FS(sub))
	mux.Handle("/", fileServer)

	return mux
}

type projectionResponse struct {
	Scenarios  []string                 `json:"scenarios"`
	Results    []output.ResultView      `json:"results"`
	Comparison scenario.FinalComparison `json:"comparison"`
	Chart      []output.SeriesPoint     `json:"chart"`
	CSV        string                   `json:"csv"`
	Snapshot   scenario.Snapshot        `json:"snapshot"`
	Warnings   []string                 `json:"warnings,omitempty"`
	Duration   string                   `json:"duration"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Field string `json:"field,omitempty"`
}

func (h *handler) handleProject(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleProject"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	session, ok := h.readSession(w, r, op)
	if !ok {
		return
	}
	h.respondProjection(w, session, start, op)
}

func (h *handler) handleSnapshotImport(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSnapshotImport"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize), op)
			return
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to parse upload: %v", err), op)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, "missing snapshot file", op)
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			h.logger.Warn("failed to close uploaded file",
				zap.String("op", op),
				zap.Error(closeErr),
			)
		}
	}()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to read snapshot: %v", err), op)
		return
	}

	session, err := scenario.ParseSnapshot(buf.Bytes())
	if err != nil {
		h.respondDomainError(w, err, op)
		return
	}
	h.respondProjection(w, session, start, op)
}

func (h *handler) handleSnapshotExport(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSnapshotExport"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	session, ok := h.readSession(w, r, op)
	if !ok {
		return
	}

	contentType, filename := "application/json", constants.DefaultSnapshotFile
	var data []byte
	var err error
	switch r.URL.Query().Get("format") {
	case "", constants.OutputFormatJSON:
		data, err = session.MarshalSnapshot()
	case constants.OutputFormatYAML:
		contentType, filename = "application/yaml", constants.DefaultScenarioYAMLFile
		data, err = adapters.MarshalScenarioYAML(session)
	default:
		h.respondErrorWithOp(w, http.StatusBadRequest, "format must be json or yaml", op)
		return
	}
	if err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to encode snapshot: %v", err), op)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *handler) handleReport(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleReport"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	session, ok := h.readSession(w, r, op)
	if !ok {
		return
	}

	doc := report.NewDocument(scenario.Evaluate(h.logger, session), h.readings(r.Context()))
	var buf bytes.Buffer
	if err := report.Write(&buf, doc); err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), op)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", constants.DefaultReportFile))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *handler) handleIndicators(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"indicators": h.readings(r.Context()),
	})
}

type storeRequest struct {
	Name     string          `json:"name"`
	Snapshot json.RawMessage `json:"snapshot"`
}

func (h *handler) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSnapshots"
	if !h.requireStore(w, op) {
		return
	}

	switch r.Method {
	case http.MethodGet:
		records, err := h.deps.Store.List(r.Context())
		if err != nil {
			h.respondDomainError(w, err, op)
			return
		}
		h.writeJSON(w, http.StatusOK, map[string]interface{}{"snapshots": records})

	case http.MethodPost:
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxUploadSize))
		if err != nil {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("failed to read request: %v", err), op)
			return
		}
		var req storeRequest
		if err := json.Unmarshal(body, &req); err != nil {
			h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err), op)
			return
		}
		session, err := scenario.ParseSnapshot(req.Snapshot)
		if err != nil {
			h.respondDomainError(w, err, op)
			return
		}
		data, err := session.MarshalSnapshot()
		if err != nil {
			h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to encode snapshot: %v", err), op)
			return
		}
		record, err := h.deps.Store.Save(r.Context(), req.Name, data)
		if err != nil {
			h.respondDomainError(w, err, op)
			return
		}
		h.logger.Info("snapshot stored",
			zap.String("op", op),
			zap.String("name", record.Name),
			zap.String("id", record.ID),
		)
		h.writeJSON(w, http.StatusCreated, record)

	default:
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	}
}

func (h *handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSnapshot"
	if !h.requireStore(w, op) {
		return
	}
	name := r.PathValue("name")

	switch r.Method {
	case http.MethodGet:
		start := time.Now()
		record, err := h.deps.Store.Load(r.Context(), name)
		if err != nil {
			h.respondDomainError(w, err, op)
			return
		}
		session, err := scenario.ParseSnapshot(record.Body)
		if err != nil {
			h.respondDomainError(w, err, op)
			return
		}
		h.respondProjection(w, session, start, op)

	case http.MethodDelete:
		if err := h.deps.Store.Delete(r.Context(), name); err != nil {
			h.respondDomainError(w, err, op)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	}
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

// readSession decodes a snapshot document from the request body. On failure
// the error response has already been written.
func (h *handler) readSession(w http.ResponseWriter, r *http.Request, op string) (*scenario.Session, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxUploadSize))
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request exceeds limit of %d bytes", h.maxUploadSize), op)
			return nil, false
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to read request: %v", err), op)
		return nil, false
	}

	session, err := scenario.ParseSnapshot(body)
	if err != nil {
		h.respondDomainError(w, err, op)
		return nil, false
	}
	return session, true
}

func (h *handler) respondProjection(w http.ResponseWriter, session *scenario.Session, start time.Time, op string) {
	evaluation := scenario.Evaluate(h.logger, session)

	var csvBuf bytes.Buffer
	if err := output.CsvFormat(&csvBuf, evaluation.Results); err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to render CSV: %v", err), op)
		return
	}

	conf := adapters.ConfigurationFromSession(session)
	elapsed := time.Since(start)

	response := projectionResponse{
		Scenarios:  []string{evaluation.Comparison.A.Name, evaluation.Comparison.B.Name},
		Results:    output.Views(evaluation.Results),
		Comparison: evaluation.Comparison,
		Chart:      output.ChartSeries(evaluation.Results),
		CSV:        csvBuf.String(),
		Snapshot:   session.ToSnapshot(),
		Warnings:   conf.ScenarioWarnings(),
		Duration:   elapsed.String(),
	}

	h.logger.Info("projection computed",
		zap.String("op", op),
		zap.Int("timeHorizon", session.Config.TimeHorizon),
		zap.Float64("deltaTaxRevenue", evaluation.Comparison.DeltaTaxRevenue),
		zap.Duration("duration", elapsed),
	)

	h.writeJSON(w, http.StatusOK, response)
}

func (h *handler) readings(ctx context.Context) []indicator.Reading {
	if h.deps.Indicators != nil {
		return h.deps.Indicators.FetchAll(ctx, h.deps.IndicatorCodes)
	}
	readings := make([]indicator.Reading, 0, len(h.deps.IndicatorCodes))
	for _, code := range h.deps.IndicatorCodes {
		readings = append(readings, indicator.Reading{Code: code, Label: indicator.Label(code), Year: h.deps.IndicatorYear})
	}
	return readings
}

func (h *handler) requireStore(w http.ResponseWriter, op string) bool {
	if h.deps.Store == nil {
		h.respondErrorWithOp(w, http.StatusServiceUnavailable, "snapshot storage is not configured", op)
		return false
	}
	return true
}

func (h *handler) respondDomainError(w http.ResponseWriter, err error, op string) {
	code := apperrors.CodeOf(err)
	status := code.HTTPStatus()

	h.logger.Warn("request rejected",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("code", string(code)),
		zap.Error(err),
	)

	h.writeJSON(w, status, errorResponse{
		Error: err.Error(),
		Code:  string(code),
		Field: apperrors.Field(err),
	})
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	h.logger.Error("request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, errorResponse{Error: msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}
