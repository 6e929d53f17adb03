package dto

// WebhookResponse is what the payment platform sees. Ignored events get
// only the message field; issued orders additionally carry the key.
type WebhookResponse struct {
	Success    bool   `json:"success,omitempty"`
	LicenseKey string `json:"license_key,omitempty"`
	Message    string `json:"message"`
}
