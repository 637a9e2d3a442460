package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"aforo/internal/config"
	"aforo/internal/events"
	"aforo/internal/export"
	"aforo/internal/models"
	"aforo/internal/occupancy"
	"aforo/internal/service"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, openConfig())

	resp := env.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestReadyz(t *testing.T) {
	env := newTestEnv(t, openConfig())

	resp := env.do(t, http.MethodGet, "/readyz", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReadyz_DBClosed(t *testing.T) {
	env := newTestEnv(t, openConfig())
	require.NoError(t, env.db.Close())

	resp := env.do(t, http.MethodGet, "/readyz", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t, openConfig())

	resp := env.do(t, http.MethodOptions, "/api/v1/occupancy", nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestPoolImport_SingleDay(t *testing.T) {
	env := newTestEnv(t, openConfig())

	resp := env.upload(t, "/api/v1/pool/import", "MULTISELECCION.xlsx", singleDayExport(t))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var summary service.ImportSummary
	decodeBody(t, resp, &summary)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 3, summary.People)
	require.Len(t, summary.Dates, 1)
	assert.Equal(t, "2025-06-01", summary.Dates[0].Date)
	assert.NotEmpty(t, summary.Dates[0].BatchID)

	resp = env.do(t, http.MethodGet, "/api/v1/pool/reservations?date=2025-06-01", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Count        int                      `json:"count"`
		Reservations []models.PoolReservation `json:"reservations"`
	}
	decodeBody(t, resp, &list)
	assert.Equal(t, 2, list.Count)
	assert.Equal(t, "García", list.Reservations[0].Client)

	resp = env.do(t, http.MethodGet, "/api/v1/pool/stats?date=2025-06-01", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats models.PoolStats
	decodeBody(t, resp, &stats)
	assert.Equal(t, models.PoolStats{Reservations: 2, People: 3, ShortSessions: 1, LongSessions: 1}, stats)

	resp = env.do(t, http.MethodGet, "/api/v1/pool/last-upload?date=2025-06-01", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var last struct {
		LastUpload *time.Time              `json:"last_upload"`
		Uploads    []models.UploadLogEntry `json:"uploads"`
	}
	decodeBody(t, resp, &last)
	assert.NotNil(t, last.LastUpload)
	require.Len(t, last.Uploads, 1)
	assert.Equal(t, "ana", last.Uploads[0].Actor)
	assert.Equal(t, "MULTISELECCION.xlsx", last.Uploads[0].Source)
}

func TestPoolImport_DryRunStoresNothing(t *testing.T) {
	env := newTestEnv(t, openConfig())

	resp := env.upload(t, "/api/v1/pool/import?dry_run=true", "MULTISELECCION.xlsx", singleDayExport(t))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var summary service.ImportSummary
	decodeBody(t, resp, &summary)
	assert.True(t, summary.DryRun)
	assert.Equal(t, 2, summary.Total)

	resp = env.do(t, http.MethodGet, "/api/v1/pool/stats?date=2025-06-01", nil, nil)
	var stats models.PoolStats
	decodeBody(t, resp, &stats)
	assert.Zero(t, stats.Reservations)
}

func TestPoolImport_Errors(t *testing.T) {
	env := newTestEnv(t, openConfig())

	t.Run("MissingFile", func(t *testing.T) {
		resp := env.upload(t, "/api/v1/pool/import", "", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("MissingDateCell", func(t *testing.T) {
		content := workbookBytes(t, func(f *excelize.File, sheet string) {
			require.NoError(t, f.SetSheetRow(sheet, "A8", &[]any{"Cliente", "Hora"}))
		})
		resp := env.upload(t, "/api/v1/pool/import", "MULTISELECCION.xlsx", content)
		require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		var body map[string]any
		decodeBody(t, resp, &body)
		assert.Equal(t, "missing_date_cell", body["kind"])
	})

	t.Run("NotASpreadsheet", func(t *testing.T) {
		resp := env.upload(t, "/api/v1/pool/import", "notes.xlsx", []byte("plain text"))
		require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		var body map[string]any
		decodeBody(t, resp, &body)
		assert.Equal(t, "underlying_read", body["kind"])
	})

	t.Run("TooLarge", func(t *testing.T) {
		resp := env.upload(t, "/api/v1/pool/import", "big.xlsx", bytes.Repeat([]byte("x"), 2<<20))
		assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	})

	t.Run("DateLocked", func(t *testing.T) {
		ok, err := env.locker.Acquire(context.Background(), "2025-06-01", "other", time.Minute)
		require.NoError(t, err)
		require.True(t, ok)
		t.Cleanup(func() { _ = env.locker.Release(context.Background(), "2025-06-01", "other") })

		resp := env.upload(t, "/api/v1/pool/import", "MULTISELECCION.xlsx", singleDayExport(t))
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})
}

func TestOccupancy(t *testing.T) {
	env := newTestEnv(t, openConfig())
	require.Equal(t, http.StatusCreated, env.upload(t, "/api/v1/pool/import", "MULTISELECCION.xlsx", singleDayExport(t)).StatusCode)

	resp := env.do(t, http.MethodGet, "/api/v1/occupancy?date=2025-06-01", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var day occupancy.Day
	decodeBody(t, resp, &day)
	assert.Equal(t, 40, day.MaxCapacity)
	require.Len(t, day.Slots, 24)
	assert.Equal(t, "10:00", day.Slots[2].Time)
	assert.Equal(t, 2, day.Slots[2].Total)
	assert.Equal(t, 2, day.Stats.PeakTotal)
	assert.Equal(t, 3, day.Stats.People)
	assert.NotNil(t, day.LastUpload)
}

func TestOccupancy_InvalidDate(t *testing.T) {
	env := newTestEnv(t, openConfig())

	for _, path := range []string{
		"/api/v1/occupancy",
		"/api/v1/occupancy?date=01/06/2025",
		"/api/v1/pool/reservations?date=2025-13-01",
		"/api/v1/manual?date=tomorrow",
		"/api/v1/restaurant/day?date=",
	} {
		resp := env.do(t, http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
	}
}

func manualBody() map[string]any {
	return map[string]any{
		"date":           "2025-06-01",
		"time":           "10:00",
		"client_name":    "Marta Ruiz",
		"adults":         2,
		"children":       1,
		"lunch":          true,
		"amount":         "45.50",
		"payment_status": "Pagado",
	}
}

func TestManualReservations_CRUD(t *testing.T) {
	env := newTestEnv(t, openConfig())

	resp := env.do(t, http.MethodPost, "/api/v1/manual", manualBody(), map[string]string{"X-Actor": "recepcion"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created models.ManualReservation
	decodeBody(t, resp, &created)
	require.NotZero(t, created.ID)
	assert.Equal(t, "recepcion", created.CreatedBy)
	assert.Equal(t, models.DefaultPhone, created.Phone)
	require.NotNil(t, created.LunchCovers)
	assert.Equal(t, 1, *created.LunchCovers)

	id := "/api/v1/manual/" + itoa(created.ID)

	resp = env.do(t, http.MethodGet, "/api/v1/manual?date=2025-06-01", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Reservations []models.ManualReservation `json:"reservations"`
	}
	decodeBody(t, resp, &list)
	assert.Len(t, list.Reservations, 1)

	update := manualBody()
	update["time"] = "12:30"
	update["adults"] = 4
	resp = env.do(t, http.MethodPut, id, update, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated models.ManualReservation
	decodeBody(t, resp, &updated)
	assert.Equal(t, "12:30", updated.Time)
	assert.Equal(t, 4, updated.Adults)

	resp = env.do(t, http.MethodGet, "/api/v1/occupancy?date=2025-06-01", nil, nil)
	var day occupancy.Day
	decodeBody(t, resp, &day)
	assert.Equal(t, 5, day.Stats.People)

	resp = env.do(t, http.MethodDelete, id, nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodGet, id+"/audit", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var audit struct {
		Entries []models.AuditEntry `json:"entries"`
	}
	decodeBody(t, resp, &audit)
	assert.Len(t, audit.Entries, 3)

	resp = env.do(t, http.MethodGet, "/api/v1/manual?date=2025-06-01", nil, nil)
	decodeBody(t, resp, &list)
	assert.Empty(t, list.Reservations)
}

func TestManualReservations_Errors(t *testing.T) {
	env := newTestEnv(t, openConfig())

	t.Run("Validation", func(t *testing.T) {
		body := manualBody()
		body["client_name"] = "M"
		resp := env.do(t, http.MethodPost, "/api/v1/manual", body, nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var payload struct {
			Fields map[string]string `json:"fields"`
		}
		decodeBody(t, resp, &payload)
		assert.Contains(t, payload.Fields, "client_name")
	})

	t.Run("UnknownField", func(t *testing.T) {
		body := manualBody()
		body["nickname"] = "x"
		resp := env.do(t, http.MethodPost, "/api/v1/manual", body, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("NotFound", func(t *testing.T) {
		resp := env.do(t, http.MethodPut, "/api/v1/manual/999", manualBody(), nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("BadID", func(t *testing.T) {
		resp := env.do(t, http.MethodDelete, "/api/v1/manual/abc", nil, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestRestaurant(t *testing.T) {
	env := newTestEnv(t, openConfig())

	resp := env.do(t, http.MethodPost, "/api/v1/manual", manualBody(), nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/v1/restaurant", map[string]any{
		"date":        "2025-06-01",
		"client_name": "Familia Gómez",
		"service":     "comida",
		"covers":      4,
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created models.RestaurantReservation
	decodeBody(t, resp, &created)
	assert.Equal(t, "COMIDA", created.Service)

	resp = env.do(t, http.MethodGet, "/api/v1/restaurant/day?date=2025-06-01", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var day models.RestaurantDay
	decodeBody(t, resp, &day)
	assert.Len(t, day.Lunch, 2)
	assert.Equal(t, 5, day.LunchCovers)
	assert.Empty(t, day.Dinner)

	id := "/api/v1/restaurant/" + itoa(created.ID)
	resp = env.do(t, http.MethodPut, id, map[string]any{
		"date":        "2025-06-01",
		"client_name": "Familia Gómez",
		"service":     "CENA",
		"covers":      3,
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/v1/restaurant?date=2025-06-01", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Reservations []models.RestaurantReservation `json:"reservations"`
	}
	decodeBody(t, resp, &list)
	require.Len(t, list.Reservations, 1)
	assert.Equal(t, "CENA", list.Reservations[0].Service)

	resp = env.do(t, http.MethodDelete, id, nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/v1/restaurant", map[string]any{
		"date": "2025-06-01", "client_name": "X Y", "service": "DESAYUNO", "covers": 1,
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExport(t *testing.T) {
	env := newTestEnv(t, openConfig())
	require.Equal(t, http.StatusCreated, env.upload(t, "/api/v1/pool/import", "MULTISELECCION.xlsx", singleDayExport(t)).StatusCode)
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/v1/manual", manualBody(), nil).StatusCode)

	resp := env.do(t, http.MethodGet, "/api/v1/export/2025-06-01", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, xlsxContentType, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), export.FileName("2025-06-01"))

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(export.SheetReservations)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "MANUAL", rows[1][2])
	assert.Equal(t, "EXCEL", rows[2][2])

	resp = env.do(t, http.MethodGet, "/api/v1/export/june", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLiveFeedThroughMiddleware(t *testing.T) {
	env := newTestEnv(t, openConfig())

	url := "ws" + strings.TrimPrefix(env.ts.URL, "http") + "/api/v1/ws?date=2025-06-01"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	var hello struct {
		Type string `json:"type"`
	}
	require.NoError(t, conn.ReadJSON(&hello))
	require.Equal(t, "connected", hello.Type)

	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/v1/manual", manualBody(), nil).StatusCode)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg struct {
		Type  string       `json:"type"`
		Event events.Event `json:"event"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "event", msg.Type)
	assert.Equal(t, events.EventManualCreated, msg.Event.Type)
}

func TestActorOf(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/v1/manual", http.NoBody)
	assert.Equal(t, "api", actorOf(r))

	r = r.WithContext(withClient(r.Context(), config.APIClientKey{Name: "dashboard"}))
	assert.Equal(t, "dashboard", actorOf(r))

	r.Header.Set("X-Actor", "ana")
	assert.Equal(t, "ana", actorOf(r))
}

func TestHTTPServer_StartStop(t *testing.T) {
	cfg := config.APIConfig{HTTP: config.APIHTTPConfig{Enabled: true, Port: 0}}
	server := NewHTTPServer(&cfg, Deps{}, nil)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, server.Shutdown(ctx))
	assert.NoError(t, <-errCh)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
