package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	applog "txboard/internal/log"
	"txboard/internal/reports"
)

// Static 500 messages. Callers are told nothing beyond which operation
// failed; the real cause only goes to the log.
const (
	errSeeding      = "Error seeding the database"
	errTransactions = "Error fetching transactions"
	errStatistics   = "Error fetching statistics"
	errPriceRange   = "Error fetching price range data"
	errCategoryData = "Error fetching category data"
	errCombinedData = "Error fetching combined data"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", applog.FieldError, err)
	}
}

// writeError is the single error boundary: every internal failure becomes
// a 500 with one static message.
func writeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	slog.ErrorContext(r.Context(), msg, applog.FieldError, err, applog.FieldPath, r.URL.Path)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msg})
}

// intParam parses an integer query parameter, keeping the fallback on
// absent or malformed values. Report months are deliberately not range
// checked: an absent or malformed month falls back to 0 (unscoped), an
// out-of-range one scopes to an empty window. Never a 4xx.
func intParam(r *http.Request, name string, fallback int) int {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// handleInitializeDatabase performs the destructive full reseed.
func (s *Server) handleInitializeDatabase(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if _, err := s.seeder.Seed(r.Context()); err != nil {
		writeError(w, r, errSeeding, err)
		return
	}

	// Every cached month report describes the old dataset now.
	s.PurgeReportCache()

	writeJSON(w, http.StatusOK, map[string]string{"message": "Database seeded successfully!"})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	page := intParam(r, "page", 1)
	perPage := intParam(r, "perPage", reports.DefaultPerPage)
	search := r.URL.Query().Get("search")

	result, err := s.reports.List(r.Context(), page, perPage, search)
	if err != nil {
		writeError(w, r, errTransactions, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	combined, err := s.getCombined(r.Context(), intParam(r, "month", 0))
	if err != nil {
		writeError(w, r, errStatistics, err)
		return
	}
	writeJSON(w, http.StatusOK, combined.Statistics)
}

func (s *Server) handlePriceRange(w http.ResponseWriter, r *http.Request) {
	combined, err := s.getCombined(r.Context(), intParam(r, "month", 0))
	if err != nil {
		writeError(w, r, errPriceRange, err)
		return
	}
	writeJSON(w, http.StatusOK, combined.PriceRange)
}

func (s *Server) handleCategoryData(w http.ResponseWriter, r *http.Request) {
	combined, err := s.getCombined(r.Context(), intParam(r, "month", 0))
	if err != nil {
		writeError(w, r, errCategoryData, err)
		return
	}
	writeJSON(w, http.StatusOK, combined.CategoryData)
}

func (s *Server) handleCombinedData(w http.ResponseWriter, r *http.Request) {
	combined, err := s.getCombined(r.Context(), intParam(r, "month", 0))
	if err != nil {
		writeError(w, r, errCombinedData, err)
		return
	}
	writeJSON(w, http.StatusOK, combined)
}
