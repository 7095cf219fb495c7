package credentials

// Kind discriminates how a messaging credential authenticates. API keys and
// account identifiers use different verification endpoints and report
// different capabilities; send semantics are identical.
type Kind string

const (
	KindAPIKey     Kind = "api-key"
	KindAccountSID Kind = "account-sid"
)

// DetectKind classifies an identifier by its prefix convention: the SK
// family is an API key, the AC family an account identifier.
func DetectKind(identifier string) Kind {
	if len(identifier) >= 2 && identifier[:2] == "SK" {
		return KindAPIKey
	}
	return KindAccountSID
}

// MessagingCredentials drive the SMS/WhatsApp gateway. Resolved fresh per
// operation and never persisted.
type MessagingCredentials struct {
	Identifier   string
	Secret       string
	SMSFrom      string
	WhatsAppFrom string
	Kind         Kind
	Origin       string
}

func (c MessagingCredentials) Empty() bool {
	return c.Identifier == "" || c.Secret == ""
}

// EmailCredentials drive the Web-API email path.
type EmailCredentials struct {
	APIKey        string
	FromAddress   string
	Service       string // sendgrid | mailgun
	MailgunDomain string
	Origin        string
}

func (c EmailCredentials) Empty() bool {
	return c.APIKey == ""
}

// SMTPCredentials drive the SMTP-relay email path. An empty host means dry
// mode: the gateway records the send without attempting delivery.
type SMTPCredentials struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Origin   string
}

func (c SMTPCredentials) Empty() bool {
	return c.Host == ""
}

// VerifyResult is the normalized outcome of a credential check. Invalid
// credentials are a false Success, never an error; only transport failures
// reaching the verification endpoint raise.
type VerifyResult struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
