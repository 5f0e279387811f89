package config

// QueueConfig configures RabbitMQ publishing of reservation lifecycle
// messages and the audit consumer.  An empty URL disables both.
type QueueConfig struct {
	URL          string
	Exchange     string
	AuditQueue   string
	AuditLogPath string
	RoutingKeys  []string
}

func LoadQueueConfig() QueueConfig {
	return QueueConfig{
		URL:          envStr("RABBITMQ_URL", ""),
		Exchange:     envStr("RABBITMQ_EXCHANGE", "reservas.eventos"),
		AuditQueue:   envStr("RABBITMQ_AUDIT_QUEUE", "reservas.auditoria"),
		AuditLogPath: envStr("AUDIT_LOG_PATH", "logs/reservas.log"),
		RoutingKeys:  envList("RABBITMQ_AUDIT_BINDINGS", "reserva.*"),
	}
}

// Enabled reports whether a broker URL is configured.
func (c QueueConfig) Enabled() bool { return c.URL != "" }
