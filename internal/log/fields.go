package log

// Common field names for structured logging.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldKind       = "kind"
	FieldMonth      = "month"
	FieldRuleID     = "rule_id"
	FieldRevision   = "revision"
	FieldCollection = "collection"
	FieldSimulating = "simulating"
)

// Components defines standard component names.
const (
	ComponentApp    = "app"
	ComponentHTTP   = "http"
	ComponentLedger = "ledger"
	ComponentEngine = "engine"
	ComponentStore  = "store"
	ComponentAMQP   = "amqp"
	ComponentWorker = "worker"
	ComponentRemote = "remote"
	ComponentCache  = "cache"
)

// Operations defines standard operation names.
const (
	OpCreate   = "create"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpProject  = "project"
	OpExpand   = "expand"
	OpSnapshot = "snapshot"
	OpAccept   = "accept"
	OpDiscard  = "discard"
	OpSync     = "sync"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)
