package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	contributionledger "tessera/contexts/value-attribution/contribution-ledger"
	"tessera/contexts/value-attribution/contribution-ledger/domain/coherence"
	ledgererrors "tessera/contexts/value-attribution/contribution-ledger/domain/errors"
	ledgerhttp "tessera/contexts/value-attribution/contribution-ledger/transport/http"
	distributionengine "tessera/contexts/value-attribution/distribution-engine"
	enginerrors "tessera/contexts/value-attribution/distribution-engine/domain/errors"
	enginehttp "tessera/contexts/value-attribution/distribution-engine/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "tessera/internal/platform/httpserver/docs"
)

type Server struct {
	mux          *http.ServeMux
	logger       *slog.Logger
	addr         string
	ledger       contributionledger.Module
	distribution distributionengine.Module
}

func New(
	ledger contributionledger.Module,
	distribution distributionengine.Module,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:          http.NewServeMux(),
		logger:       logger,
		addr:         addr,
		ledger:       ledger,
		distribution: distribution,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler exposes the mux for httptest-based coverage.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /v1/contributors", s.handleRegisterContributor)
	s.mux.HandleFunc("GET /v1/contributors/{contributor_id}", s.handleGetContributor)
	s.mux.HandleFunc("GET /v1/contributors/{contributor_id}/contributions", s.handleListContributorEvents)

	s.mux.HandleFunc("POST /v1/contributions", s.handleRecordContribution)

	s.mux.HandleFunc("GET /v1/assets/{asset_id}", s.handleGetAsset)
	s.mux.HandleFunc("GET /v1/assets/{asset_id}/contributions", s.handleListAssetEvents)
	s.mux.HandleFunc("POST /v1/assets/{asset_id}/composition", s.handleAddCompositionEdge)
	s.mux.HandleFunc("POST /v1/assets/{asset_id}/archive", s.handleArchiveAsset)
	s.mux.HandleFunc("GET /v1/assets/{asset_id}/distributions", s.handleListAssetDistributions)

	s.mux.HandleFunc("POST /v1/distributions", s.handleRunDistribution)
	s.mux.HandleFunc("GET /v1/distributions/{distribution_id}", s.handleGetDistribution)
}

func (s *Server) handleRegisterContributor(w http.ResponseWriter, r *http.Request) {
	var req ledgerhttp.RegisterContributorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeLedgerError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.ledger.Handler.RegisterContributorHandler(r.Context(), req)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetContributor(w http.ResponseWriter, r *http.Request) {
	contributorID := r.PathValue("contributor_id")
	resp, err := s.ledger.Handler.GetContributorHandler(r.Context(), contributorID)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListContributorEvents(w http.ResponseWriter, r *http.Request) {
	contributorID := r.PathValue("contributor_id")

	limit := 0
	if limitRaw := r.URL.Query().Get("limit"); limitRaw != "" {
		parsed, err := strconv.Atoi(limitRaw)
		if err != nil {
			writeLedgerError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
		limit = parsed
	}

	resp, err := s.ledger.Handler.ListContributorEventsHandler(r.Context(), contributorID, limit)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRecordContribution(w http.ResponseWriter, r *http.Request) {
	var req ledgerhttp.RecordContributionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeLedgerError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.ledger.Handler.RecordContributionHandler(r.Context(), req)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	assetID := r.PathValue("asset_id")
	resp, err := s.ledger.Handler.GetAssetHandler(r.Context(), assetID)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListAssetEvents(w http.ResponseWriter, r *http.Request) {
	assetID := r.PathValue("asset_id")
	resp, err := s.ledger.Handler.ListAssetEventsHandler(r.Context(), assetID)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAddCompositionEdge(w http.ResponseWriter, r *http.Request) {
	var req ledgerhttp.AddCompositionEdgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeLedgerError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	assetID := r.PathValue("asset_id")
	if err := s.ledger.Handler.AddCompositionEdgeHandler(r.Context(), assetID, req); err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleArchiveAsset(w http.ResponseWriter, r *http.Request) {
	assetID := r.PathValue("asset_id")
	if err := s.ledger.Handler.ArchiveAssetHandler(r.Context(), assetID); err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRunDistribution(w http.ResponseWriter, r *http.Request) {
	if !requireRequestingUser(w, r) {
		return
	}
	var req enginehttp.RunDistributionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDistributionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.distribution.Handler.RunDistributionHandler(r.Context(), req)
	if err != nil {
		writeDistributionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetDistribution(w http.ResponseWriter, r *http.Request) {
	distributionID := r.PathValue("distribution_id")
	resp, err := s.distribution.Handler.GetDistributionHandler(r.Context(), distributionID)
	if err != nil {
		writeDistributionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListAssetDistributions(w http.ResponseWriter, r *http.Request) {
	assetID := r.PathValue("asset_id")
	resp, err := s.distribution.Handler.ListAssetDistributionsHandler(r.Context(), assetID)
	if err != nil {
		writeDistributionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func requireRequestingUser(w http.ResponseWriter, r *http.Request) bool {
	if strings.TrimSpace(r.Header.Get("X-User-Id")) == "" {
		writeDistributionError(w, http.StatusUnauthorized, "unauthorized", "X-User-Id header is required")
		return false
	}
	return true
}

func writeLedgerDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledgererrors.ErrContributorNotFound):
		writeLedgerError(w, http.StatusNotFound, "contributor_not_found", err.Error())
	case errors.Is(err, ledgererrors.ErrAssetNotFound):
		writeLedgerError(w, http.StatusNotFound, "asset_not_found", err.Error())
	case errors.Is(err, ledgererrors.ErrCompositionTargetMissing):
		writeLedgerError(w, http.StatusNotFound, "composition_target_missing", err.Error())
	case errors.Is(err, ledgererrors.ErrContributorExists):
		writeLedgerError(w, http.StatusConflict, "contributor_exists", err.Error())
	case errors.Is(err, ledgererrors.ErrAssetExists):
		writeLedgerError(w, http.StatusConflict, "asset_exists", err.Error())
	case errors.Is(err, ledgererrors.ErrAssetArchived):
		writeLedgerError(w, http.StatusConflict, "asset_archived", err.Error())
	case errors.Is(err, ledgererrors.ErrTriggerRequiresSystem):
		writeLedgerError(w, http.StatusUnprocessableEntity, "trigger_requires_system", err.Error())
	case errors.Is(err, coherence.ErrScoreOutOfRange):
		writeLedgerError(w, http.StatusUnprocessableEntity, "coherence_out_of_range", err.Error())
	case errors.Is(err, coherence.ErrMissingComponent):
		writeLedgerError(w, http.StatusUnprocessableEntity, "coherence_component_missing", err.Error())
	case errors.Is(err, ledgererrors.ErrInvalidEventType),
		errors.Is(err, ledgererrors.ErrInvalidContributionInput):
		writeLedgerError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeLedgerError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeDistributionDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, enginerrors.ErrDistributionNotFound):
		writeDistributionError(w, http.StatusNotFound, "distribution_not_found", err.Error())
	case errors.Is(err, enginerrors.ErrAssetNotFound):
		writeDistributionError(w, http.StatusNotFound, "asset_not_found", err.Error())
	case errors.Is(err, enginerrors.ErrDistributionInProgress):
		writeDistributionError(w, http.StatusConflict, "distribution_in_progress", err.Error())
	case errors.Is(err, enginerrors.ErrNoContributionsFound):
		writeDistributionError(w, http.StatusUnprocessableEntity, "no_contributions_found", err.Error())
	case errors.Is(err, enginerrors.ErrUnsupportedMethod):
		writeDistributionError(w, http.StatusUnprocessableEntity, "unsupported_method", err.Error())
	case errors.Is(err, enginerrors.ErrInvalidValueAmount),
		errors.Is(err, enginerrors.ErrInvalidMaxDepth),
		errors.Is(err, enginerrors.ErrInvalidDistributionInput):
		writeDistributionError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeDistributionError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeLedgerError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, ledgerhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeDistributionError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, enginehttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
