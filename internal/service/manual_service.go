package service

import (
	"context"
	"strings"
	"time"

	"aforo/internal/domain"
	"aforo/internal/events"
	"aforo/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ManualInput is the editable part of a manual reservation.
type ManualInput struct {
	Date               string          `json:"date" validate:"required,datetime=2006-01-02"`
	Time               string          `json:"time" validate:"required,datetime=15:04"`
	ClientName         string          `json:"client_name" validate:"required,min=2,max=120"`
	Phone              string          `json:"phone" validate:"omitempty,max=30"`
	Adults             int             `json:"adults" validate:"gte=0,lte=500"`
	Children           int             `json:"children" validate:"gte=0,lte=500"`
	Lunch              bool            `json:"lunch"`
	LunchCovers        *int            `json:"lunch_covers" validate:"omitempty,gte=1"`
	Dinner             bool            `json:"dinner"`
	DinnerCovers       *int            `json:"dinner_covers" validate:"omitempty,gte=1"`
	Amount             decimal.Decimal `json:"amount"`
	PaymentStatus      string          `json:"payment_status" validate:"omitempty,oneof=Pendiente Pagado 'Bono Regalo' Cancelado"`
	Details            string          `json:"details" validate:"max=1000"`
	RestaurantComments string          `json:"restaurant_comments" validate:"max=1000"`
}

// normalize trims text and fills the defaults stored for omitted fields.
func (in *ManualInput) normalize() {
	in.Date = strings.TrimSpace(in.Date)
	in.Time = strings.TrimSpace(in.Time)
	in.ClientName = strings.TrimSpace(in.ClientName)
	in.Phone = strings.TrimSpace(in.Phone)
	if in.Phone == "" {
		in.Phone = models.DefaultPhone
	}
	if in.PaymentStatus == "" {
		in.PaymentStatus = models.PaymentPending
	}
	in.LunchCovers = serviceCovers(in.Lunch, in.LunchCovers)
	in.DinnerCovers = serviceCovers(in.Dinner, in.DinnerCovers)
}

// serviceCovers defaults covers to 1 for a booked meal and clears them otherwise.
func serviceCovers(booked bool, covers *int) *int {
	if !booked {
		return nil
	}
	if covers == nil {
		one := 1
		return &one
	}
	return covers
}

func (in *ManualInput) apply(r *models.ManualReservation) {
	r.Date = in.Date
	r.Time = in.Time
	r.ClientName = in.ClientName
	r.Phone = in.Phone
	r.Adults = in.Adults
	r.Children = in.Children
	r.Lunch = in.Lunch
	r.LunchCovers = in.LunchCovers
	r.Dinner = in.Dinner
	r.DinnerCovers = in.DinnerCovers
	r.Amount = in.Amount
	r.PaymentStatus = in.PaymentStatus
	r.Details = in.Details
	r.RestaurantComments = in.RestaurantComments
}

type ManualReservationService struct {
	store     domain.ManualStore
	events    domain.EventPublisher
	validator *validator.Validate
	logger    *zerolog.Logger
}

func NewManualReservationService(store domain.ManualStore, eventBus domain.EventPublisher, logger *zerolog.Logger) *ManualReservationService {
	return &ManualReservationService{
		store:     store,
		events:    eventBus,
		validator: newValidator(),
		logger:    logger,
	}
}

func (s *ManualReservationService) Validate(in *ManualInput) error {
	in.normalize()
	if err := s.validator.Struct(in); err != nil {
		return fromValidator(err)
	}
	if in.Amount.IsNegative() {
		return invalidField("amount", "gte=0")
	}
	// datetime=15:04 also accepts single-digit hours.
	t, _ := time.Parse(models.TimeLayout, in.Time)
	in.Time = t.Format(models.TimeLayout)
	return nil
}

func (s *ManualReservationService) Create(ctx context.Context, in ManualInput, actor string) (*models.ManualReservation, error) {
	if err := s.Validate(&in); err != nil {
		return nil, err
	}
	r := &models.ManualReservation{}
	in.apply(r)
	if err := s.store.CreateManualReservation(ctx, r, actor); err != nil {
		return nil, err
	}
	s.publish(events.EventManualCreated, r, "", models.ActionCreate, actor)
	return r, nil
}

func (s *ManualReservationService) Update(ctx context.Context, id int64, in ManualInput, actor string) (*models.ManualReservation, error) {
	if err := s.Validate(&in); err != nil {
		return nil, err
	}
	current, err := s.store.GetManualReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	previousDate := current.Date

	updated := *current
	in.apply(&updated)
	if err := s.store.UpdateManualReservation(ctx, &updated, actor); err != nil {
		return nil, err
	}

	if previousDate == updated.Date {
		previousDate = ""
	}
	s.publish(events.EventManualUpdated, &updated, previousDate, models.ActionUpdate, actor)
	return &updated, nil
}

func (s *ManualReservationService) Delete(ctx context.Context, id int64, actor string) error {
	deleted, err := s.store.DeleteManualReservation(ctx, id, actor)
	if err != nil {
		return err
	}
	s.publish(events.EventManualDeleted, deleted, "", models.ActionDelete, actor)
	return nil
}

func (s *ManualReservationService) Get(ctx context.Context, id int64) (*models.ManualReservation, error) {
	return s.store.GetManualReservation(ctx, id)
}

func (s *ManualReservationService) ListByDate(ctx context.Context, date string) ([]models.ManualReservation, error) {
	if err := ValidateDate(date); err != nil {
		return nil, err
	}
	return s.store.GetManualReservationsByDate(ctx, date)
}

func (s *ManualReservationService) AuditLog(ctx context.Context, id int64) ([]models.AuditEntry, error) {
	return s.store.GetAuditLog(ctx, id)
}

func (s *ManualReservationService) publish(eventType string, r *models.ManualReservation, previousDate, action, actor string) {
	if s.events == nil || r == nil {
		return
	}
	payload := events.ReservationPayload{
		ReservationID: r.ID,
		Date:          r.Date,
		PreviousDate:  previousDate,
		Time:          r.Time,
		ClientName:    r.ClientName,
		Headcount:     r.Headcount(),
		Action:        action,
		Actor:         actor,
	}
	if err := s.events.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("reservation_id", r.ID).Msg("publish event error")
	}
}
