package inbound

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
)

const maxAttachmentBytes = 25 << 20

// envelope is the authoritative post-transaction addressing: it reflects
// who the mail was actually delivered from and to, which can differ from
// the display headers.
type envelope struct {
	From string   `json:"from"`
	To   []string `json:"to"`
}

// ParseEmail normalizes the multipart inbound-parse form. The envelope
// JSON wins over raw header fields when both are present.
func ParseEmail(form *multipart.Form) (Email, error) {
	email := Email{
		Subject: formValue(form, "subject"),
		Text:    formValue(form, "text"),
		From:    formValue(form, "from"),
		To:      formValue(form, "to"),
	}

	if raw := formValue(form, "envelope"); raw != "" {
		var env envelope
		if err := json.Unmarshal([]byte(raw), &env); err == nil {
			if env.From != "" {
				email.From = env.From
			}
			if len(env.To) > 0 {
				email.To = env.To[0]
			}
		}
	}
	email.From = extractAddress(email.From)
	email.To = extractAddress(email.To)

	for _, headers := range form.File {
		for _, header := range headers {
			file, err := readPart(header)
			if err != nil {
				return Email{}, err
			}
			email.Attachments = append(email.Attachments, file)
		}
	}
	return email, nil
}

func formValue(form *multipart.Form, key string) string {
	if values, ok := form.Value[key]; ok && len(values) > 0 {
		return strings.TrimSpace(values[0])
	}
	return ""
}

func readPart(header *multipart.FileHeader) (File, error) {
	f, err := header.Open()
	if err != nil {
		return File{}, fmt.Errorf("open attachment %s: %w", header.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxAttachmentBytes))
	if err != nil {
		return File{}, fmt.Errorf("read attachment %s: %w", header.Filename, err)
	}
	return File{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// extractAddress pulls the bare address out of a display form like
// "Jane Doe <jane@example.com>".
func extractAddress(raw string) string {
	raw = strings.TrimSpace(raw)
	if open := strings.LastIndex(raw, "<"); open >= 0 {
		if close := strings.Index(raw[open:], ">"); close > 0 {
			return strings.TrimSpace(raw[open+1 : open+close])
		}
	}
	return raw
}
