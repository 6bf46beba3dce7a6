package audithook

// Action constants for audit events.
const (
	// Service actions
	ActionServiceRegistered  = "service.registered"
	ActionServiceDeactivated = "service.deactivated"

	// Subscription actions
	ActionServiceSubscribed = "service.subscribed"
	ActionAPICallMade       = "api_call.made"

	// Administrative actions
	ActionPlatformFeeUpdated    = "platform_fee.updated"
	ActionPlatformFeesWithdrawn = "platform_fees.withdrawn"
	ActionOwnershipTransferred  = "ownership.transferred"

	// Failures
	ActionOperationRejected = "operation.rejected"
)

// Resource constants for audit events.
const (
	ResourceService      = "service"
	ResourceSubscription = "subscription"
	ResourceLedger       = "ledger"
)

// Category constants for audit events.
const (
	CategoryCatalog = "catalog"
	CategoryUsage   = "usage"
	CategoryPayment = "payment"
	CategoryAdmin   = "admin"
	CategoryAccess  = "access"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
