package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"time"

	"aforo/internal/config"
	"aforo/internal/domain"
	"aforo/internal/events"
	"aforo/internal/metrics"
	"aforo/internal/models"
	"aforo/internal/poolimport"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultImportLockTTL bounds how long a crashed import can block a date.
const DefaultImportLockTTL = 2 * time.Minute

// DateSummary describes what an import stored for one date.
type DateSummary struct {
	Date    string `json:"date"`
	BatchID string `json:"batch_id,omitempty"`
	Count   int    `json:"count"`
	People  int    `json:"people"`
}

// ImportSummary is returned to the caller of an import or a dry run.
type ImportSummary struct {
	File   string           `json:"file"`
	Shape  poolimport.Shape `json:"shape"`
	Dates  []DateSummary    `json:"dates"`
	Total  int              `json:"total_count"`
	People int              `json:"people"`
	Stats  poolimport.Stats `json:"stats"`
	DryRun bool             `json:"dry_run"`
}

type ImportService struct {
	store   domain.PoolStore
	locker  domain.ImportLocker
	events  domain.EventPublisher
	opts    poolimport.Options
	source  string
	lockTTL time.Duration
	logger  *zerolog.Logger
}

func NewImportService(store domain.PoolStore, locker domain.ImportLocker, eventBus domain.EventPublisher, cfg config.PoolConfig, logger *zerolog.Logger) *ImportService {
	return &ImportService{
		store:  store,
		locker: locker,
		events: eventBus,
		opts: poolimport.Options{
			HeaderScanRows:   cfg.HeaderScanRows,
			SectionMarker:    cfg.SectionMarker,
			DateCell:         cfg.DateCell,
			DefaultTechnique: cfg.DefaultTechnique,
		},
		source:  cfg.UploadSource,
		lockTTL: DefaultImportLockTTL,
		logger:  logger,
	}
}

// Preview parses a file without storing anything.
func (s *ImportService) Preview(name string, r io.Reader) (*ImportSummary, error) {
	result, err := s.parse(name, r)
	if err != nil {
		return nil, err
	}
	summary := summarize(name, result)
	summary.DryRun = true
	for i, d := range summary.Dates {
		summary.Dates[i].People = people(result.ByDate[d.Date])
	}
	return summary, nil
}

// Import parses a file and replaces the stored batch of every date it contains.
// Nothing is stored when the file fails to parse or any date is locked.
func (s *ImportService) Import(ctx context.Context, name string, r io.Reader, actor string) (*ImportSummary, error) {
	result, err := s.parse(name, r)
	if err != nil {
		return nil, err
	}

	dates := append([]string(nil), result.Dates...)
	sort.Strings(dates)

	owner := uuid.NewString()
	release, err := s.lockDates(ctx, dates, owner)
	if err != nil {
		metrics.ObserveImport(importOutcome(err), 0, nil)
		return nil, err
	}
	defer release()

	info := models.UploadInfo{Actor: actor, Source: s.sourceLabel(name)}.WithDefaults()

	var stored map[string][]models.PoolReservation
	if len(dates) == 1 {
		recs, err := s.store.BulkReplacePool(ctx, dates[0], result.ByDate[dates[0]], info)
		if err != nil {
			metrics.ObserveImport("store_error", 0, nil)
			return nil, fmt.Errorf("failed to store import: %w", err)
		}
		stored = map[string][]models.PoolReservation{dates[0]: recs}
	} else {
		stored, err = s.store.BulkReplacePoolMultiple(ctx, result.ByDate, info)
		if err != nil {
			metrics.ObserveImport("store_error", 0, nil)
			return nil, fmt.Errorf("failed to store import: %w", err)
		}
	}

	summary := summarize(name, result)
	for i, d := range summary.Dates {
		recs := stored[d.Date]
		summary.Dates[i].Count = len(recs)
		summary.Dates[i].People = people(recs)
		if len(recs) > 0 {
			summary.Dates[i].BatchID = recs[0].BatchID
		}
		s.publish(summary.Dates[i], info)
	}

	metrics.ObserveImport("success", result.Total, skipReasons(result.Stats))
	s.logger.Info().
		Str("file", summary.File).
		Str("shape", result.Shape.String()).
		Strs("dates", result.Dates).
		Int("records", result.Total).
		Int("skipped", result.Stats.Skipped).
		Str("actor", info.Actor).
		Msg("pool import stored")
	return summary, nil
}

func (s *ImportService) parse(name string, r io.Reader) (*poolimport.Result, error) {
	grid, err := poolimport.Read(name, r)
	if err != nil {
		metrics.ObserveImport(importOutcome(err), 0, nil)
		return nil, err
	}
	result, err := poolimport.Parse(grid, s.opts)
	if err != nil {
		metrics.ObserveImport(importOutcome(err), 0, nil)
		s.logger.Warn().Err(err).Str("file", name).Msg("pool import rejected")
		return nil, err
	}
	return result, nil
}

// lockDates takes every date lock or none. The returned func releases them.
func (s *ImportService) lockDates(ctx context.Context, dates []string, owner string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}

	held := make([]string, 0, len(dates))
	release := func() {
		// Locks outlive a cancelled request context.
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		for _, date := range held {
			if err := s.locker.Release(rctx, date, owner); err != nil {
				s.logger.Warn().Err(err).Str("date", date).Msg("failed to release import lock")
			}
		}
	}

	for _, date := range dates {
		ok, err := s.locker.Acquire(ctx, date, owner, s.lockTTL)
		if err != nil {
			release()
			return nil, fmt.Errorf("failed to acquire import lock: %w", err)
		}
		if !ok {
			release()
			return nil, fmt.Errorf("%w: %s", ErrImportInProgress, date)
		}
		held = append(held, date)
	}
	return release, nil
}

func (s *ImportService) sourceLabel(name string) string {
	if name != "" {
		return filepath.Base(name)
	}
	return s.source
}

func (s *ImportService) publish(d DateSummary, info models.UploadInfo) {
	if s.events == nil {
		return
	}
	payload := events.PoolBatchPayload{
		Date:    d.Date,
		BatchID: d.BatchID,
		Count:   d.Count,
		People:  d.People,
		Actor:   info.Actor,
		Source:  info.Source,
	}
	if err := s.events.PublishJSON(events.EventPoolBatchImported, payload); err != nil {
		s.logger.Error().Err(err).Str("date", d.Date).Msg("publish event error")
	}
}

func summarize(name string, result *poolimport.Result) *ImportSummary {
	summary := &ImportSummary{
		File:  filepath.Base(name),
		Shape: result.Shape,
		Total: result.Total,
		Stats: result.Stats,
	}
	for _, date := range result.Dates {
		recs := result.ByDate[date]
		summary.Dates = append(summary.Dates, DateSummary{Date: date, Count: len(recs)})
		summary.People += people(recs)
	}
	return summary
}

func people(recs []models.PoolReservation) int {
	n := 0
	for i := range recs {
		n += recs[i].Quantity
	}
	return n
}

func skipReasons(stats poolimport.Stats) map[string]int {
	out := make(map[string]int, len(stats.SkipReasons))
	for reason, n := range stats.SkipReasons {
		out[string(reason)] = n
	}
	return out
}

func importOutcome(err error) string {
	switch {
	case errors.Is(err, poolimport.ErrHeaderNotFound):
		return "header_not_found"
	case errors.Is(err, poolimport.ErrMissingDateCell):
		return "missing_date_cell"
	case errors.Is(err, poolimport.ErrInvalidDateCell):
		return "invalid_date_cell"
	case errors.Is(err, poolimport.ErrEmptyImport):
		return "empty"
	case errors.Is(err, poolimport.ErrUnderlyingRead):
		return "read_error"
	case errors.Is(err, ErrImportInProgress):
		return "locked"
	default:
		return "error"
	}
}
