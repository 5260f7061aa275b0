package constants

// Routes served by the authorization handlers
const (
	// LoginPath starts an authorization for a webhook
	LoginPath = "/login"

	// CallbackPath is where the provider redirects back to
	CallbackPath = "/oauth/callback"
)

// Query parameters
const (
	WebhookParam          = "webhook"
	CodeParam             = "code"
	StateParam            = "state"
	ErrorParam            = "error"
	ErrorDescriptionParam = "error_description"
)

// StatusLinked is reported once a webhook is authorized and active.
const StatusLinked = "linked"
