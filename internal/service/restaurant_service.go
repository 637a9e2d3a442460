package service

import (
	"context"
	"strings"

	"aforo/internal/domain"
	"aforo/internal/events"
	"aforo/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type RestaurantInput struct {
	Date       string `json:"date" validate:"required,datetime=2006-01-02"`
	ClientName string `json:"client_name" validate:"required,min=2,max=120"`
	Service    string `json:"service" validate:"required,oneof=COMIDA CENA"`
	Covers     int    `json:"covers" validate:"gte=1,lte=500"`
	Comments   string `json:"comments" validate:"max=1000"`
}

type RestaurantService struct {
	store     domain.RestaurantStore
	manual    domain.ManualStore
	events    domain.EventPublisher
	validator *validator.Validate
	logger    *zerolog.Logger
}

func NewRestaurantService(store domain.RestaurantStore, manual domain.ManualStore, eventBus domain.EventPublisher, logger *zerolog.Logger) *RestaurantService {
	return &RestaurantService{
		store:     store,
		manual:    manual,
		events:    eventBus,
		validator: newValidator(),
		logger:    logger,
	}
}

func (s *RestaurantService) validate(in *RestaurantInput) error {
	in.Date = strings.TrimSpace(in.Date)
	in.ClientName = strings.TrimSpace(in.ClientName)
	in.Service = strings.ToUpper(strings.TrimSpace(in.Service))
	if err := s.validator.Struct(in); err != nil {
		return fromValidator(err)
	}
	return nil
}

func (s *RestaurantService) Create(ctx context.Context, in RestaurantInput, actor string) (*models.RestaurantReservation, error) {
	if err := s.validate(&in); err != nil {
		return nil, err
	}
	r := &models.RestaurantReservation{
		Date:       in.Date,
		ClientName: in.ClientName,
		Service:    in.Service,
		Covers:     in.Covers,
		Comments:   in.Comments,
	}
	if err := s.store.CreateRestaurantReservation(ctx, r); err != nil {
		return nil, err
	}
	s.publish(r, "", models.ActionCreate, actor)
	return r, nil
}

func (s *RestaurantService) Update(ctx context.Context, id int64, in RestaurantInput, actor string) (*models.RestaurantReservation, error) {
	if err := s.validate(&in); err != nil {
		return nil, err
	}
	current, err := s.store.GetRestaurantReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	previousDate := current.Date

	updated := *current
	updated.Date = in.Date
	updated.ClientName = in.ClientName
	updated.Service = in.Service
	updated.Covers = in.Covers
	updated.Comments = in.Comments
	if err := s.store.UpdateRestaurantReservation(ctx, &updated); err != nil {
		return nil, err
	}

	if previousDate == updated.Date {
		previousDate = ""
	}
	s.publish(&updated, previousDate, models.ActionUpdate, actor)
	return &updated, nil
}

func (s *RestaurantService) Delete(ctx context.Context, id int64, actor string) error {
	current, err := s.store.GetRestaurantReservation(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteRestaurantReservation(ctx, id); err != nil {
		return err
	}
	s.publish(current, "", models.ActionDelete, actor)
	return nil
}

func (s *RestaurantService) ListByDate(ctx context.Context, date string) ([]models.RestaurantReservation, error) {
	if err := ValidateDate(date); err != nil {
		return nil, err
	}
	return s.store.GetRestaurantReservationsByDate(ctx, date)
}

// Day merges direct restaurant bookings with the meals added to manual pool
// reservations, split by service.
func (s *RestaurantService) Day(ctx context.Context, date string) (*models.RestaurantDay, error) {
	direct, err := s.ListByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	manual, err := s.manual.GetManualReservationsByDate(ctx, date)
	if err != nil {
		return nil, err
	}

	day := &models.RestaurantDay{
		Date:   date,
		Lunch:  []models.RestaurantEntry{},
		Dinner: []models.RestaurantEntry{},
	}
	for _, r := range direct {
		entry := models.RestaurantEntry{
			ID:         r.ID,
			Origin:     models.OriginRestaurant,
			ClientName: r.ClientName,
			Covers:     r.Covers,
			Comments:   r.Comments,
		}
		if r.Service == models.ServiceLunch {
			day.Lunch = append(day.Lunch, entry)
			day.LunchCovers += entry.Covers
		} else {
			day.Dinner = append(day.Dinner, entry)
			day.DinnerCovers += entry.Covers
		}
	}
	for i := range manual {
		m := &manual[i]
		if m.Lunch {
			entry := circuitEntry(m, m.LunchCovers)
			day.Lunch = append(day.Lunch, entry)
			day.LunchCovers += entry.Covers
		}
		if m.Dinner {
			entry := circuitEntry(m, m.DinnerCovers)
			day.Dinner = append(day.Dinner, entry)
			day.DinnerCovers += entry.Covers
		}
	}
	return day, nil
}

func circuitEntry(m *models.ManualReservation, covers *int) models.RestaurantEntry {
	n := 1
	if covers != nil && *covers > 0 {
		n = *covers
	}
	return models.RestaurantEntry{
		ID:         m.ID,
		Origin:     models.OriginCircuit,
		ClientName: m.ClientName,
		Covers:     n,
		Comments:   m.RestaurantComments,
	}
}

func (s *RestaurantService) publish(r *models.RestaurantReservation, previousDate, action, actor string) {
	if s.events == nil {
		return
	}
	payload := events.ReservationPayload{
		ReservationID: r.ID,
		Date:          r.Date,
		PreviousDate:  previousDate,
		ClientName:    r.ClientName,
		Headcount:     r.Covers,
		Action:        action,
		Actor:         actor,
	}
	if err := s.events.PublishJSON(events.EventRestaurantChanged, payload); err != nil {
		s.logger.Error().Err(err).Int64("reservation_id", r.ID).Msg("publish event error")
	}
}
