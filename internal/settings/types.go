package settings

import "time"

// Document is the single persisted settings record. Values are presence-
// checked only; the credential resolver consults them after the deployment
// environment and before built-in fallbacks.
type Document struct {
	EmailService        string `json:"email_service,omitempty"` // sendgrid | mailgun
	EmailMethod         string `json:"email_method,omitempty"`  // api | smtp
	EmailAPIKey         string `json:"email_api_key,omitempty"`
	FromAddress         string `json:"from_address,omitempty"`
	SMTPHost            string `json:"smtp_host,omitempty"`
	SMTPPort            int    `json:"smtp_port,omitempty"`
	SMTPUsername        string `json:"smtp_username,omitempty"`
	SMTPPassword        string `json:"smtp_password,omitempty"`
	MailgunDomain       string `json:"mailgun_domain,omitempty"`
	TwilioAccountSID    string `json:"twilio_account_sid,omitempty"`
	TwilioAuthToken     string `json:"twilio_auth_token,omitempty"`
	TwilioSMSFrom       string `json:"twilio_sms_from,omitempty"`
	WhatsAppFrom        string `json:"whatsapp_from,omitempty"`
	WhatsAppCertificate string `json:"whatsapp_certificate,omitempty"`
	WebhookSecret       string `json:"webhook_secret,omitempty"`
	NotificationAddress string `json:"notification_address,omitempty"`
	EmailWebhookEnabled bool   `json:"email_webhook_enabled"`
	SMSWebhookEnabled   bool   `json:"sms_webhook_enabled"`
	WAWebhookEnabled    bool   `json:"wa_webhook_enabled"`

	UpdatedAt time.Time `json:"updated_at,omitempty"`
}
