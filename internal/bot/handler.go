package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"aforo/internal/models"
	"aforo/internal/occupancy"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const (
	cmdStart      = "start"
	cmdHelp       = "help"
	cmdOccupancy  = "aforo"
	cmdRestaurant = "restaurante"
)

const helpText = "Comandos:\n" +
	"/aforo [fecha] - ocupación de la piscina por franjas\n" +
	"/restaurante [fecha] - comidas y cenas del día\n" +
	"La fecha puede ser hoy, mañana, ayer, AAAA-MM-DD o DD/MM/AAAA (por defecto hoy)."

var errBadDate = errors.New("bad date argument")

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if !msg.IsCommand() {
		return
	}

	cmd := msg.Command()
	var (
		text string
		err  error
	)
	switch cmd {
	case cmdStart, cmdHelp:
		text = helpText
	case cmdOccupancy:
		text, err = b.occupancyReply(ctx, msg.CommandArguments())
	case cmdRestaurant:
		text, err = b.restaurantReply(ctx, msg.CommandArguments())
	default:
		text = "Comando desconocido.\n\n" + helpText
	}

	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("command", cmd).Msg("command failed")
		if b.metrics != nil {
			b.metrics.ErrorsTotal.Inc()
		}
		text = userMessage(err)
	}
	if b.metrics != nil {
		b.metrics.CommandsProcessed.WithLabelValues(cmd).Inc()
	}
	b.sendMessage(ctx, msg.Chat.ID, text)
}

func (b *Bot) sendMessage(ctx context.Context, chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("send message")
	}
}

func (b *Bot) occupancyReply(ctx context.Context, arg string) (string, error) {
	date, err := parseDateArg(arg, b.now())
	if err != nil {
		return "", err
	}
	day, err := b.days.GetDay(ctx, date)
	if err != nil {
		return "", err
	}
	return FormatDay(day), nil
}

func (b *Bot) restaurantReply(ctx context.Context, arg string) (string, error) {
	date, err := parseDateArg(arg, b.now())
	if err != nil {
		return "", err
	}
	day, err := b.restaurant.Day(ctx, date)
	if err != nil {
		return "", err
	}
	return FormatRestaurantDay(day), nil
}

// parseDateArg resolves a command argument relative to now.
func parseDateArg(arg string, now time.Time) (string, error) {
	arg = strings.ToLower(strings.TrimSpace(arg))
	switch arg {
	case "", "hoy":
		return now.Format(models.DateLayout), nil
	case "mañana", "manana":
		return now.AddDate(0, 0, 1).Format(models.DateLayout), nil
	case "ayer":
		return now.AddDate(0, 0, -1).Format(models.DateLayout), nil
	}
	for _, layout := range []string{models.DateLayout, "02/01/2006", "2/1/2006"} {
		if t, err := time.Parse(layout, arg); err == nil {
			return t.Format(models.DateLayout), nil
		}
	}
	return "", fmt.Errorf("%w: %q", errBadDate, arg)
}

func levelMark(l occupancy.Level) string {
	switch l {
	case occupancy.LevelDanger:
		return "🔴"
	case occupancy.LevelWarning:
		return "🟡"
	default:
		return "🟢"
	}
}

// FormatDay renders the occupied slots of a day as a chat message.
func FormatDay(day *occupancy.Day) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Aforo %s (capacidad %d)\n", day.Date, day.MaxCapacity)
	if day.LastUpload != nil {
		fmt.Fprintf(&sb, "Última carga: %s\n", day.LastUpload.Format("02/01 15:04"))
	}

	stats := day.Stats
	if stats.Reservations == 0 {
		sb.WriteString("\nSin reservas.")
		return sb.String()
	}
	fmt.Fprintf(&sb, "Reservas: %d · Personas: %d\n", stats.Reservations, stats.People)
	fmt.Fprintf(&sb, "Pico: %s con %d · Alta demanda: %d franjas · Media %d%%\n\n",
		stats.PeakTime, stats.PeakTotal, stats.HighDemandSlots, stats.AveragePercentage)

	for _, s := range day.Slots {
		if s.Total == 0 {
			continue
		}
		fmt.Fprintf(&sb, "%s %s  %d/%d (%d%%)\n", levelMark(s.Status.Level), s.Time, s.Total, day.MaxCapacity, s.Status.Percentage)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatRestaurantDay renders lunch and dinner lists.
func FormatRestaurantDay(day *models.RestaurantDay) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Restaurante %s\n", day.Date)
	writeService(&sb, "Comida", day.Lunch, day.LunchCovers)
	writeService(&sb, "Cena", day.Dinner, day.DinnerCovers)
	return strings.TrimRight(sb.String(), "\n")
}

func writeService(sb *strings.Builder, title string, entries []models.RestaurantEntry, covers int) {
	fmt.Fprintf(sb, "\n%s: %d cubiertos\n", title, covers)
	if len(entries) == 0 {
		sb.WriteString("  (sin reservas)\n")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(sb, "  • %s (%d) %s", e.ClientName, e.Covers, strings.ToLower(e.Origin))
		if e.Comments != "" {
			fmt.Fprintf(sb, " - %s", e.Comments)
		}
		sb.WriteString("\n")
	}
}
