package inbound

import (
	"errors"

	"github.com/leadloop/leadloop/internal/customer"
)

// ErrNoAttachment fails an inbound email carrying no file parts. The
// pipeline requires a resume attachment; text-only mail is not ingested.
var ErrNoAttachment = errors.New("inbound email has no attachments")

// ErrNoSupportedAttachment fails an inbound email whose attachments all
// have non-resume extensions.
var ErrNoSupportedAttachment = errors.New("inbound email has no supported attachments")

// Email is the normalized envelope parsed from an inbound-parse webhook.
type Email struct {
	From        string
	To          string
	Subject     string
	Text        string
	Attachments []File
}

// File is one uploaded attachment part.
type File struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Result reports what ingestion did with one inbound email.
type Result struct {
	Customer    customer.Customer
	Created     bool
	Attachments []string
}
