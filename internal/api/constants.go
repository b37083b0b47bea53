package api

// Request size limits.
const (
	// MaxWebhookBodySize caps push notifications. GitHub payloads stay well
	// below its own 25 MB delivery limit.
	MaxWebhookBodySize = 25 << 20
)

// Headers sent by GitHub on webhook deliveries.
const (
	headerGitHubDelivery = "X-GitHub-Delivery"
	headerGitHubEvent    = "X-GitHub-Event"
)
