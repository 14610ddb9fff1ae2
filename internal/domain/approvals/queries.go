package approvals

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"

	ierr "github.com/koshtony/beezy-beta/internal/errors"
)

func (e *Engine) Get(ctx context.Context, recordID string) (Record, error) {
	return e.store.GetRecord(ctx, recordID)
}

// Assigned lists the records waiting on or addressed to approverID.
func (e *Engine) Assigned(ctx context.Context, approverID string, filter ListFilter) ([]Record, int, error) {
	if err := validateListFilter(filter); err != nil {
		return nil, 0, err
	}
	return e.store.ListAssigned(ctx, approverID, filter)
}

// Created lists the records of workflows started by creatorID.
func (e *Engine) Created(ctx context.Context, creatorID string, filter ListFilter) ([]Record, int, error) {
	if err := validateListFilter(filter); err != nil {
		return nil, 0, err
	}
	return e.store.ListCreated(ctx, creatorID, filter)
}

func validateListFilter(filter ListFilter) error {
	switch filter.Status {
	case "", StatusPending, StatusApproved, StatusRejected, StatusNotified, StatusCancelled:
		return nil
	}
	return ierr.NewError("invalid status filter").
		WithHintf("unknown status %q", filter.Status).
		Mark(ierr.ErrValidation)
}

// CanView reports whether employeeID takes part in the record's workflow.
func CanView(rec Record, employeeID string) bool {
	return employeeID != "" && (rec.ApproverID == employeeID || rec.CreatorID == employeeID)
}

// AddAttachment stores a supporting file on a record. Only the record's
// creator or approver may attach unless privileged is set. The content type
// is sniffed from the bytes, never taken from the client.
func (e *Engine) AddAttachment(ctx context.Context, recordID, uploaderID string, privileged bool, fileName string, data []byte, maxBytes int64) (Attachment, error) {
	rec, err := e.store.GetRecord(ctx, recordID)
	if err != nil {
		return Attachment{}, err
	}
	if !privileged && !CanView(rec, uploaderID) {
		return Attachment{}, ierr.NewError("attachment not allowed").
			WithHint("only the creator or approver of a record can attach files").
			Mark(ierr.ErrPermissionDenied)
	}

	fileName = filepath.Base(strings.TrimSpace(fileName))
	if fileName == "" || fileName == "." || fileName == string(filepath.Separator) {
		return Attachment{}, ierr.NewError("attachment name required").
			WithHint("file name is required").
			Mark(ierr.ErrValidation)
	}
	if len(data) == 0 {
		return Attachment{}, ierr.NewError("empty attachment").
			WithHint("file is empty").
			Mark(ierr.ErrValidation)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return Attachment{}, ierr.NewError("attachment too large").
			WithHintf("file exceeds %d bytes", maxBytes).
			Mark(ierr.ErrValidation)
	}

	contentType, err := sniffContentType(data)
	if err != nil {
		return Attachment{}, err
	}
	return e.store.CreateAttachment(ctx, Attachment{
		RecordID:    recordID,
		FileName:    fileName,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
		UploadedBy:  uploaderID,
		Data:        data,
	})
}

func (e *Engine) Attachments(ctx context.Context, recordID string) ([]Attachment, error) {
	if _, err := e.store.GetRecord(ctx, recordID); err != nil {
		return nil, err
	}
	return e.store.ListAttachments(ctx, recordID)
}

// sniffContentType accepts images, office documents and PDFs. Plain text is
// recognised by the stdlib sniffer since it has no magic number.
func sniffContentType(data []byte) (string, error) {
	kind, err := filetype.Match(data)
	if err == nil && kind != filetype.Unknown {
		if filetype.IsImage(data) || filetype.IsDocument(data) || kind.MIME.Value == "application/pdf" {
			return kind.MIME.Value, nil
		}
	} else if ct := http.DetectContentType(data); strings.HasPrefix(ct, "text/plain") {
		return ct, nil
	}
	return "", ierr.NewError("unsupported attachment type").
		WithHint("attachments must be images, PDFs, office documents or plain text").
		Mark(ierr.ErrValidation)
}
