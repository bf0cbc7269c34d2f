package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "defiguard/internal/errors"
	"defiguard/internal/exporter"
	"defiguard/internal/middleware"
	"defiguard/internal/services"
)

// RiskHandler handles portfolio risk analysis HTTP requests
type RiskHandler struct {
	service      *services.AnalysisService
	exporter     *exporter.ExcelExporter
	validation   *middleware.ValidationMiddleware
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewRiskHandler creates a new risk handler
func NewRiskHandler(service *services.AnalysisService, logger *slog.Logger) *RiskHandler {
	errorHandler := apierrors.NewErrorHandler(logger, false)
	return &RiskHandler{
		service:      service,
		exporter:     exporter.NewExcelExporter(logger),
		validation:   middleware.NewValidationMiddleware(logger, errorHandler),
		logger:       logger.With(slog.String("handler", "risk")),
		errorHandler: errorHandler,
	}
}

// RegisterRoutes registers the risk analysis routes
func (h *RiskHandler) RegisterRoutes(r chi.Router) {
	r.Route("/risk", func(r chi.Router) {
		r.Post("/analyze", h.Analyze)
		r.Post("/analyze/export", h.AnalyzeExport)
	})
}

// Analyze handles POST /api/risk/analyze
func (h *RiskHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	report, err := h.service.AnalyzePortfolio(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, report)
}

// AnalyzeExport handles POST /api/risk/analyze/export
func (h *RiskHandler) AnalyzeExport(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	report, err := h.service.AnalyzePortfolio(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	filename := fmt.Sprintf("risk-report-%s-%s.xlsx",
		req.PortfolioID, report.GeneratedAt.Format("20060102"))

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	if err := h.exporter.Write(w, report); err != nil {
		// Headers are already out; all we can do is log.
		h.logger.ErrorContext(r.Context(), "export stream failed",
			slog.String("error", err.Error()),
			slog.String("portfolio_id", req.PortfolioID),
		)
	}
}

// decodeRequest parses and validates the analysis payload.
func (h *RiskHandler) decodeRequest(w http.ResponseWriter, r *http.Request) (*services.AnalyzeRequest, bool) {
	start := time.Now()

	var req services.AnalyzeRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return nil, false
	}

	if err := h.validation.ValidateStruct(&req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return nil, false
	}

	h.logger.DebugContext(r.Context(), "analysis request decoded",
		slog.String("portfolio_id", req.PortfolioID),
		slog.Int("assets", len(req.Balances)),
		slog.Duration("decode_duration", time.Since(start)),
	)

	return &req, true
}
