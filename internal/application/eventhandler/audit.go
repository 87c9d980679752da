// Package eventhandler содержит подписчиков на доменные события.
// Подписчики не участвуют в транзакциях ядра: событие публикуется уже
// после коммита, и ошибка подписчика не откатывает изменение.
package eventhandler

import (
	"fmt"

	"github.com/careerhub/careerhub/internal/domain/shared"
	"github.com/careerhub/careerhub/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// AUDIT LOG
// Пишет каждое событие в структурированный лог. События, пришедшие от
// других инстансов через Redis, доступны только как Payload, поэтому
// обработчик не делает приведения к конкретным типам.
// ═══════════════════════════════════════════════════════════════════════════

// AuditLog журналирует события подбора и зачисления.
type AuditLog struct {
	log *logger.Logger
}

// NewAuditLog создаёт обработчик.
func NewAuditLog(log *logger.Logger) *AuditLog {
	if log == nil {
		log = logger.Nop()
	}
	return &AuditLog{log: log.With(logger.Component("audit"))}
}

// Register подписывает обработчик на все события шины.
func (a *AuditLog) Register(bus shared.EventSubscriber) error {
	if err := bus.SubscribeAll(a.Handle); err != nil {
		return fmt.Errorf("audit: subscribe: %w", err)
	}
	return nil
}

// Handle пишет одну запись на событие.
func (a *AuditLog) Handle(event shared.Event) error {
	payload := event.Payload()

	fields := []logger.Field{
		logger.String("event_type", string(event.EventType())),
		logger.String("aggregate_id", event.AggregateID()),
		logger.Time("occurred_at", event.OccurredAt()),
	}

	switch event.EventType() {
	case shared.EventJobMatched:
		fields = append(fields,
			logger.JobID(event.AggregateID()),
			logger.Any("qualified_candidates", payload["qualified_candidates"]),
			logger.Any("notifications_sent", payload["notifications_sent"]),
		)
		a.log.Info("job matched", fields...)

	case shared.EventApplicationStatusChanged:
		fields = append(fields,
			logger.ApplicationID(event.AggregateID()),
			logger.Any("institution_id", payload["institution_id"]),
			logger.Any("from", payload["previous_status"]),
			logger.Any("to", payload["new_status"]),
			logger.Any("available_seats", payload["available_seats"]),
		)
		if seatsLeft(payload) == 0 {
			a.log.Warn("course is full", fields...)
			return nil
		}
		a.log.Info("application status changed", fields...)

	default:
		fields = append(fields, logger.Any("payload", payload))
		a.log.Debug("event", fields...)
	}

	return nil
}

// seatsLeft читает available_seats. Локальные события хранят int,
// пришедшие из Redis - float64 после JSON. -1 если поля нет.
func seatsLeft(payload map[string]interface{}) int {
	switch v := payload["available_seats"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return -1
	}
}
