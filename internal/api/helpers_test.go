package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"aforo/internal/config"
	"aforo/internal/database"
	"aforo/internal/events"
	"aforo/internal/live"
	"aforo/internal/models"
	"aforo/internal/repository"
	"aforo/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type testEnv struct {
	db     *database.DB
	bus    *events.EventBus
	locker *repository.MemoryImportLock
	hub    *live.Hub
	server *HTTPServer
	ts     *httptest.Server
}

func testPoolConfig() config.PoolConfig {
	return config.PoolConfig{
		MaxCapacity:  40,
		SlotStart:    "09:00",
		SlotCount:    24,
		SlotMinutes:  30,
		UploadSource: models.DefaultUploadSource,
		MaxUploadMB:  1,
	}
}

func newTestEnv(t *testing.T, cfg config.APIConfig) *testEnv {
	t.Helper()
	logger := zerolog.New(io.Discard)

	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	bus := events.NewEventBus()
	locker := repository.NewMemoryImportLock()
	hub := live.NewHub(&logger)
	hub.Subscribe(bus)

	poolCfg := testPoolConfig()
	occ, err := service.NewOccupancyService(db, db, poolCfg, &logger)
	require.NoError(t, err)

	deps := Deps{
		Import:      service.NewImportService(db, locker, bus, poolCfg, &logger),
		Occupancy:   occ,
		Manual:      service.NewManualReservationService(db, bus, &logger),
		Restaurant:  service.NewRestaurantService(db, db, bus, &logger),
		Pool:        db,
		Live:        hub,
		DB:          db,
		MaxUploadMB: poolCfg.MaxUploadMB,
	}

	server := NewHTTPServer(&cfg, deps, &logger)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{db: db, bus: bus, locker: locker, hub: hub, server: server, ts: ts}
}

func openConfig() config.APIConfig {
	return config.APIConfig{
		Enabled: true,
		HTTP:    config.APIHTTPConfig{Enabled: true},
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers map[string]string) *http.Response {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (e *testEnv) upload(t *testing.T, path, filename string, content []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		part, err := mw.CreateFormFile(uploadField, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, e.ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Actor", "ana")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func workbookBytes(t *testing.T, fill func(f *excelize.File, sheet string)) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	fill(f, "Sheet1")
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

// singleDayExport holds two reservations on 2025-06-01: García x2 (guests,
// 60 min) at 10:00 and López x1 (subsidized, 30 min) at 11:30.
func singleDayExport(t *testing.T) []byte {
	return workbookBytes(t, func(f *excelize.File, sheet string) {
		require.NoError(t, f.SetCellValue(sheet, "B6", "01/06/2025"))
		require.NoError(t, f.SetSheetRow(sheet, "A8", &[]any{"Cliente", "Hora", "Cant.", "Técnica"}))
		require.NoError(t, f.SetSheetRow(sheet, "A9", &[]any{"García", "10:00", 2, "ALOJADOS"}))
		require.NoError(t, f.SetSheetRow(sheet, "A10", &[]any{"López", "11:30", 1, "IMS 25"}))
	})
}
