package inbound

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/leadloop/leadloop/internal/comms"
	"github.com/leadloop/leadloop/internal/config"
	"github.com/leadloop/leadloop/internal/customer"
	"github.com/leadloop/leadloop/internal/extract"
	"github.com/leadloop/leadloop/internal/storage"
)

// resume-like extensions the pipeline accepts
var resumeExtensions = map[string]string{
	".pdf":  extract.ContentTypePDF,
	".docx": extract.ContentTypeDocx,
	".txt":  extract.ContentTypeText,
}

// Pipeline runs inbound email ingestion: store the attachment, extract its
// text, pull structured fields through the language model, reconcile the
// sender into a customer record and append the ledger row.
type Pipeline struct {
	uploader   storage.Uploader
	documents  *extract.DocumentExtractor
	structured *extract.Extractor
	customers  *customer.Service
	ledger     *comms.Service
	apiKey     string
	logger     *slog.Logger
}

func NewPipeline(log *slog.Logger, cfg config.OpenAIConfig, uploader storage.Uploader, documents *extract.DocumentExtractor, structured *extract.Extractor, customers *customer.Service, ledger *comms.Service) *Pipeline {
	return &Pipeline{
		uploader:   uploader,
		documents:  documents,
		structured: structured,
		customers:  customers,
		ledger:     ledger,
		apiKey:     cfg.APIKey,
		logger:     log.With(slog.String("service", "inbound")),
	}
}

// Process ingests one parsed inbound email. Attachments are handled
// sequentially; when several resumes arrive in one email the customer
// record reflects the last one processed.
func (p *Pipeline) Process(ctx context.Context, email Email) (Result, error) {
	if email.From == "" {
		return Result{}, fmt.Errorf("inbound email has no sender address")
	}
	if len(email.Attachments) == 0 {
		return Result{}, ErrNoAttachment
	}

	supported := filterResumes(email.Attachments)
	if len(supported) == 0 {
		return Result{}, ErrNoSupportedAttachment
	}

	var (
		info      extract.ResumeInfo
		resumeURL string
		names     []string
	)
	for _, file := range supported {
		names = append(names, file.Filename)

		locator, err := p.uploader.Upload(ctx, file.Filename, file.Data, file.ContentType)
		if err != nil {
			return Result{}, fmt.Errorf("store attachment %s: %w", file.Filename, err)
		}
		resumeURL = locator

		doc := p.documents.ExtractText(ctx, file.Data, contentTypeFor(file), locator)
		if doc.Outcome != extract.OutcomeExtracted {
			p.logger.Warn("attachment text extraction degraded",
				slog.String("filename", file.Filename),
				slog.String("outcome", string(doc.Outcome)))
		}
		info = p.structured.Extract(ctx, doc.Text, p.apiKey)
	}

	patch := customer.Patch{
		Firstname: info.Firstname,
		Lastname:  info.Lastname,
		Phone:     info.Phone,
		Source:    fmt.Sprintf("inbound email (%s)", email.From),
		ResumeURL: resumeURL,
	}
	if !info.IsEmpty() {
		patch.ResumeData = &info
	}

	cust, created, err := p.customers.Resolve(ctx, email.From, patch)
	if err != nil {
		return Result{}, err
	}

	content := email.Text
	if email.Subject != "" {
		content = email.Subject + "\n\n" + email.Text
	}
	if _, err := p.ledger.Log(ctx, comms.CreateInput{
		CustomerID: cust.ID,
		Type:       comms.ChannelEmail,
		Content:    content,
		Status:     comms.StatusSent,
		Metadata: map[string]any{
			"direction":   "inbound",
			"subject":     email.Subject,
			"attachments": names,
		},
	}); err != nil {
		return Result{}, err
	}

	p.logger.Info("inbound email processed",
		slog.String("from", email.From),
		slog.String("customer_id", cust.ID),
		slog.Bool("created", created),
		slog.Int("attachments", len(names)))
	return Result{Customer: cust, Created: created, Attachments: names}, nil
}

func filterResumes(files []File) []File {
	var out []File
	for _, f := range files {
		ext := strings.ToLower(filepath.Ext(f.Filename))
		if _, ok := resumeExtensions[ext]; ok {
			out = append(out, f)
		}
	}
	return out
}

// contentTypeFor trusts the filename extension over the declared part
// header; providers routinely send attachments as octet-stream.
func contentTypeFor(f File) string {
	ext := strings.ToLower(filepath.Ext(f.Filename))
	if ct, ok := resumeExtensions[ext]; ok {
		return ct
	}
	return f.ContentType
}
