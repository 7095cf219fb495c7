package inbound

import (
	"bytes"
	"mime/multipart"
	"testing"
)

func buildForm(t *testing.T, values map[string]string, files map[string][]byte) *multipart.Form {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for key, value := range values {
		if err := w.WriteField(key, value); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for name, data := range files {
		part, err := w.CreateFormFile(name, name)
		if err != nil {
			t.Fatalf("create file: %v", err)
		}
		part.Write(data)
	}
	w.Close()

	reader := multipart.NewReader(&buf, w.Boundary())
	form, err := reader.ReadForm(32 << 20)
	if err != nil {
		t.Fatalf("read form: %v", err)
	}
	t.Cleanup(func() { form.RemoveAll() })
	return form
}

func TestParseEmailEnvelopeWins(t *testing.T) {
	t.Parallel()

	form := buildForm(t, map[string]string{
		"subject":  "Application",
		"text":     "please find attached",
		"from":     "Display Name <display@example.com>",
		"to":       "jobs@crm.example.com",
		"envelope": `{"from":"jane.doe@example.com","to":["inbox@crm.example.com"]}`,
	}, nil)

	email, err := ParseEmail(form)
	if err != nil {
		t.Fatalf("ParseEmail: %v", err)
	}
	if email.From != "jane.doe@example.com" {
		t.Errorf("from = %q, want envelope sender", email.From)
	}
	if email.To != "inbox@crm.example.com" {
		t.Errorf("to = %q, want envelope recipient", email.To)
	}
	if email.Subject != "Application" {
		t.Errorf("subject = %q", email.Subject)
	}
}

func TestParseEmailHeaderFallback(t *testing.T) {
	t.Parallel()

	form := buildForm(t, map[string]string{
		"from": "Jane Doe <jane@example.com>",
		"to":   "jobs@crm.example.com",
	}, nil)

	email, err := ParseEmail(form)
	if err != nil {
		t.Fatalf("ParseEmail: %v", err)
	}
	if email.From != "jane@example.com" {
		t.Errorf("from = %q, want bare address", email.From)
	}
}

func TestParseEmailAttachments(t *testing.T) {
	t.Parallel()

	form := buildForm(t, map[string]string{"from": "a@b.c"}, map[string][]byte{
		"resume.pdf": []byte("%PDF-1.4 fake"),
	})

	email, err := ParseEmail(form)
	if err != nil {
		t.Fatalf("ParseEmail: %v", err)
	}
	if len(email.Attachments) != 1 {
		t.Fatalf("attachments = %d", len(email.Attachments))
	}
	if email.Attachments[0].Filename != "resume.pdf" {
		t.Errorf("filename = %q", email.Attachments[0].Filename)
	}
	if !bytes.Equal(email.Attachments[0].Data, []byte("%PDF-1.4 fake")) {
		t.Error("attachment data mismatch")
	}
}

func TestExtractAddress(t *testing.T) {
	t.Parallel()

	tests := []struct{ in, want string }{
		{"jane@example.com", "jane@example.com"},
		{"Jane Doe <jane@example.com>", "jane@example.com"},
		{" <jane@example.com> ", "jane@example.com"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := extractAddress(tt.in); got != tt.want {
			t.Errorf("extractAddress(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFilterResumes(t *testing.T) {
	t.Parallel()

	files := []File{
		{Filename: "resume.PDF"},
		{Filename: "photo.png"},
		{Filename: "cv.docx"},
		{Filename: "notes.txt"},
		{Filename: "archive.zip"},
	}
	got := filterResumes(files)
	if len(got) != 3 {
		t.Fatalf("filtered = %d, want 3", len(got))
	}
}
