package log

// Common field names for structured logging
const (
	FieldComponent      = "component"
	FieldRequestID      = "request_id"
	FieldClientIP       = "client_ip"
	FieldMethod         = "method"
	FieldPath           = "path"
	FieldStatusCode     = "status_code"
	FieldDuration       = "duration_ms"
	FieldUserAgent      = "user_agent"
	FieldError          = "error"
	FieldOperation      = "operation"
	FieldUserID         = "user_id"
	FieldSubscriptionID = "subscription_id"
	FieldPlatform       = "platform"
	FieldCurrency       = "currency"
	FieldBillingCycle   = "billing_cycle"
	FieldPrice          = "price"
	FieldEventID        = "event_id"
	FieldEventType      = "event_type"
	FieldBaseCurrency   = "base_currency"
	FieldMonths         = "months"
)

// Components defines standard component names
const (
	ComponentApp          = "app"
	ComponentHTTP         = "http"
	ComponentSubscription = "subscription"
	ComponentStorage      = "storage"
	ComponentRates        = "rates"
	ComponentAMQP         = "amqp"
	ComponentWorker       = "worker"
	ComponentExport       = "export"
	ComponentCache        = "cache"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpSync     = "sync"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)
