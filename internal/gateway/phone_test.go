package gateway

import "testing"

func TestNormalizePhone(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"uk domestic zero prefix", "07123456789", "+447123456789"},
		{"already e164", "+447123456789", "+447123456789"},
		{"embedded noise", "+44 (0)7123-456789", "+4407123456789"},
		{"spaces and dashes", "07123 456 789", "+447123456789"},
		{"international dialing prefix", "00351912345678", "+351912345678"},
		{"bare country code", "447123456789", "+447123456789"},
		{"nanp", "14155551234", "+14155551234"},
		{"unknown prefix falls back to plus", "5215512345678", "+5215512345678"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := NormalizePhone(tt.in); got != tt.want {
				t.Errorf("NormalizePhone(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestWhatsAppAddress(t *testing.T) {
	t.Parallel()

	if got := whatsappAddress("+447123456789"); got != "whatsapp:+447123456789" {
		t.Errorf("whatsappAddress = %q", got)
	}
	if got := whatsappAddress("whatsapp:+447123456789"); got != "whatsapp:+447123456789" {
		t.Errorf("double wrap: %q", got)
	}
}
