package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"aforo/internal/database"
	"aforo/internal/poolimport"
	"aforo/internal/service"
)

const maxJSONBody = 1 << 20

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// writeServiceError maps domain errors onto HTTP statuses.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	var ierr *poolimport.ImportError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": service.ErrValidation.Error(), "fields": verr.Fields})
	case errors.Is(err, database.ErrInvalidDate):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrImportInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &ierr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": ierr.Error(), "kind": importKind(ierr)})
	default:
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func importKind(err *poolimport.ImportError) string {
	switch {
	case errors.Is(err, poolimport.ErrHeaderNotFound):
		return "header_not_found"
	case errors.Is(err, poolimport.ErrMissingDateCell):
		return "missing_date_cell"
	case errors.Is(err, poolimport.ErrInvalidDateCell):
		return "invalid_date_cell"
	case errors.Is(err, poolimport.ErrEmptyImport):
		return "empty_import"
	case errors.Is(err, poolimport.ErrUnderlyingRead):
		return "underlying_read"
	default:
		return "import_error"
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return false
	}
	return true
}

// queryDate returns ?date= when it is a valid YYYY-MM-DD date.
func (s *HTTPServer) queryDate(w http.ResponseWriter, r *http.Request) (string, bool) {
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if err := service.ValidateDate(date); err != nil {
		s.writeServiceError(w, r, err)
		return "", false
	}
	return date, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}
