package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

const (
	ContentTypePDF  = "application/pdf"
	ContentTypeText = "text/plain"
	ContentTypeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	unsupportedPlaceholder = "Unsupported file type. Supported formats are PDF, DOCX and plain text."

	fetchTimeout = 30 * time.Second
)

// DocumentExtractor converts uploaded files into plain text. Failures never
// propagate as errors: callers always receive forwardable text.
type DocumentExtractor struct {
	client *http.Client
	logger *slog.Logger
}

func NewDocumentExtractor(log *slog.Logger) *DocumentExtractor {
	return &DocumentExtractor{
		client: &http.Client{Timeout: fetchTimeout},
		logger: log.With(slog.String("service", "document_extract")),
	}
}

// ExtractText extracts plain text from data according to contentType. For
// PDFs with empty data the stored object is fetched from locatorURL first.
func (e *DocumentExtractor) ExtractText(ctx context.Context, data []byte, contentType, locatorURL string) DocumentText {
	mime := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}

	switch mime {
	case ContentTypePDF:
		if len(data) == 0 && locatorURL != "" {
			fetched, err := e.fetch(ctx, locatorURL)
			if err != nil {
				e.logger.Warn("pdf fetch failed", slog.String("url", locatorURL), slog.Any("error", err))
				return DocumentText{Text: failurePlaceholder("PDF"), Outcome: OutcomeFailed}
			}
			data = fetched
		}
		text, err := pdfToText(data)
		if err != nil {
			e.logger.Warn("pdf extraction failed", slog.Any("error", err))
			return DocumentText{Text: failurePlaceholder("PDF"), Outcome: OutcomeFailed}
		}
		return DocumentText{Text: text, Outcome: OutcomeExtracted}
	case ContentTypeDocx:
		text, err := docxToText(data)
		if err != nil {
			e.logger.Warn("docx extraction failed", slog.Any("error", err))
			return DocumentText{Text: failurePlaceholder("DOCX"), Outcome: OutcomeFailed}
		}
		return DocumentText{Text: text, Outcome: OutcomeExtracted}
	case ContentTypeText:
		return DocumentText{Text: string(data), Outcome: OutcomeExtracted}
	default:
		return DocumentText{Text: unsupportedPlaceholder, Outcome: OutcomeUnsupported}
	}
}

func failurePlaceholder(kind string) string {
	return fmt.Sprintf("Text extraction from the attached %s document failed.", kind)
}

func (e *DocumentExtractor) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func pdfToText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf plain text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}

// docxToText walks word/document.xml inside the OOXML zip, collecting run
// text and emitting a newline per paragraph.
func docxToText(data []byte) (string, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}

	var document io.ReadCloser
	for _, file := range archive.File {
		if file.Name == "word/document.xml" {
			document, err = file.Open()
			if err != nil {
				return "", fmt.Errorf("open document.xml: %w", err)
			}
			break
		}
	}
	if document == nil {
		return "", fmt.Errorf("word/document.xml not found")
	}
	defer document.Close()

	decoder := xml.NewDecoder(document)
	var (
		sb     strings.Builder
		inText bool
	)
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}
		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
