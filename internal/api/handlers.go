package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"aforo/internal/export"
	"aforo/internal/service"
)

const (
	uploadField     = "file"
	uploadLogLimit  = 10
	readyzTimeout   = 2 * time.Second
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.deps.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyzTimeout)
		defer cancel()
		if err := s.deps.DB.PingContext(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "database": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handlePoolImport stores an uploaded reservations export. ?dry_run=true only
// parses it.
func (s *HTTPServer) handlePoolImport(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(s.deps.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d MB", s.deps.MaxUploadMB))
			return
		}
		writeError(w, http.StatusBadRequest, "expected multipart form with a file field")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	dryRun, _ := strconv.ParseBool(r.URL.Query().Get("dry_run"))
	if dryRun {
		summary, err := s.deps.Import.Preview(header.Filename, file)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
		return
	}

	summary, err := s.deps.Import.Import(r.Context(), header.Filename, file, actorOf(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, summary)
}

func (s *HTTPServer) handlePoolReservations(w http.ResponseWriter, r *http.Request) {
	date, ok := s.queryDate(w, r)
	if !ok {
		return
	}
	recs, err := s.deps.Pool.GetPoolReservationsByDate(r.Context(), date)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date, "count": len(recs), "reservations": recs})
}

func (s *HTTPServer) handlePoolStats(w http.ResponseWriter, r *http.Request) {
	date, ok := s.queryDate(w, r)
	if !ok {
		return
	}
	stats, err := s.deps.Pool.GetPoolStats(r.Context(), date)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *HTTPServer) handlePoolLastUpload(w http.ResponseWriter, r *http.Request) {
	date, ok := s.queryDate(w, r)
	if !ok {
		return
	}
	last, err := s.deps.Pool.GetLastUploadTime(r.Context(), date)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	uploads, err := s.deps.Pool.GetUploadLog(r.Context(), date, uploadLogLimit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date, "last_upload": last, "uploads": uploads})
}

func (s *HTTPServer) handleOccupancy(w http.ResponseWriter, r *http.Request) {
	date, ok := s.queryDate(w, r)
	if !ok {
		return
	}
	day, err := s.deps.Occupancy.GetDay(r.Context(), date)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, day)
}

func (s *HTTPServer) handleManualList(w http.ResponseWriter, r *http.Request) {
	date, ok := s.queryDate(w, r)
	if !ok {
		return
	}
	list, err := s.deps.Manual.ListByDate(r.Context(), date)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date, "reservations": list})
}

func (s *HTTPServer) handleManualGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res, err := s.deps.Manual.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) handleManualAudit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	entries, err := s.deps.Manual.AuditLog(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reservation_id": id, "entries": entries})
}

func (s *HTTPServer) handleManualCreate(w http.ResponseWriter, r *http.Request) {
	var in service.ManualInput
	if !decodeJSON(w, r, &in) {
		return
	}
	res, err := s.deps.Manual.Create(r.Context(), in, actorOf(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *HTTPServer) handleManualUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in service.ManualInput
	if !decodeJSON(w, r, &in) {
		return
	}
	res, err := s.deps.Manual.Update(r.Context(), id, in, actorOf(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) handleManualDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.deps.Manual.Delete(r.Context(), id, actorOf(r)); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleRestaurantList(w http.ResponseWriter, r *http.Request) {
	date, ok := s.queryDate(w, r)
	if !ok {
		return
	}
	list, err := s.deps.Restaurant.ListByDate(r.Context(), date)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date, "reservations": list})
}

func (s *HTTPServer) handleRestaurantDay(w http.ResponseWriter, r *http.Request) {
	date, ok := s.queryDate(w, r)
	if !ok {
		return
	}
	day, err := s.deps.Restaurant.Day(r.Context(), date)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, day)
}

func (s *HTTPServer) handleRestaurantCreate(w http.ResponseWriter, r *http.Request) {
	var in service.RestaurantInput
	if !decodeJSON(w, r, &in) {
		return
	}
	res, err := s.deps.Restaurant.Create(r.Context(), in, actorOf(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *HTTPServer) handleRestaurantUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in service.RestaurantInput
	if !decodeJSON(w, r, &in) {
		return
	}
	res, err := s.deps.Restaurant.Update(r.Context(), id, in, actorOf(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) handleRestaurantDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.deps.Restaurant.Delete(r.Context(), id, actorOf(r)); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleExport streams the day workbook. It is rendered into memory first so a
// failure still gets a JSON error.
func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	date := r.PathValue("date")
	if err := service.ValidateDate(date); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	ctx := r.Context()
	day, err := s.deps.Occupancy.GetDay(ctx, date)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	manual, err := s.deps.Manual.ListByDate(ctx, date)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	pool, err := s.deps.Pool.GetPoolReservationsByDate(ctx, date)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteDay(&buf, day, manual, pool); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(date)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
