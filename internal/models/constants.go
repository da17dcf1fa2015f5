package models

const (
	// MaxBookingDays максимальный горизонт бронирования по умолчанию
	MaxBookingDays = 90

	// MinBookingDuration минимальная длительность брони в минутах
	MinBookingDurationMinutes = 30

	// MaxBookingDurationHours максимальная длительность брони в часах
	MaxBookingDurationHours = 6

	// SlotCacheTTL время жизни кэша слотов дня в секундах
	SlotCacheTTL = 5 * 60

	// WorkerQueueSize размер очереди воркера
	WorkerQueueSize = 1000

	// RateLimitRPS лимит запросов API по умолчанию
	DefaultRateLimitRPS   = 10
	DefaultRateLimitBurst = 20
)
