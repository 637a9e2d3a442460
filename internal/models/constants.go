package models

// Category groups pool reservations for occupancy reporting.
type Category string

const (
	CategoryGuests     Category = "GUESTS"
	CategoryExternal   Category = "EXTERNAL"
	CategorySubsidized Category = "SUBSIDIZED"
	CategoryOther      Category = "OTHER"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryGuests, CategoryExternal, CategorySubsidized, CategoryOther}

// Payment states used by manual reservations.
const (
	PaymentPending   = "Pendiente"
	PaymentPaid      = "Pagado"
	PaymentGiftCard  = "Bono Regalo"
	PaymentCancelled = "Cancelado"
)

// Restaurant services.
const (
	ServiceLunch  = "COMIDA"
	ServiceDinner = "CENA"
)

// Audit actions.
const (
	ActionCreate = "CREATE"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
)

// Sync task states.
const (
	TaskStatusPending   = "pending"
	TaskStatusRetry     = "retry"
	TaskStatusCompleted = "completed"
	TaskStatusFailed    = "failed"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"

	// DefaultTechnique is stored when the export has no technique column.
	DefaultTechnique = "PISCINA TERMAL"
	// DefaultUploadSource labels upload log entries.
	DefaultUploadSource = "MULTISELECCION.xlsx"
	// DefaultMaxCapacity is the number of people the pool holds at once.
	DefaultMaxCapacity = 40
	// ManualDurationMinutes is the stay assumed for manual reservations.
	ManualDurationMinutes = 60
	// DefaultPhone is stored when a manual reservation has no phone.
	DefaultPhone = "000000000"
	// SystemActor is used when no actor is known.
	SystemActor = "system"
)
