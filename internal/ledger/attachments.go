package ledger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"siteledger/pkg/services"
)

// MaxAttachmentBytes is the per-file upload limit. A file of exactly this
// size is accepted.
const MaxAttachmentBytes int64 = 5 * 1024 * 1024

// Attachment is a file selected for upload with a payment.
type Attachment = services.Upload

// AttachmentFromFile stats path and returns an Attachment that opens the
// file lazily at submission time.
func AttachmentFromFile(path string) (Attachment, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Attachment{}, fmt.Errorf("attachment %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return Attachment{}, fmt.Errorf("attachment %s: not a regular file", path)
	}
	return Attachment{
		Name: filepath.Base(path),
		Size: info.Size(),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}, nil
}

// FilterAttachments keeps files within MaxAttachmentBytes. Oversized files
// are dropped and reported together in an *OversizeError; the kept files
// are returned either way.
func FilterAttachments(files []Attachment) ([]Attachment, error) {
	kept := make([]Attachment, 0, len(files))
	var rejected []string
	for _, f := range files {
		if f.Size > MaxAttachmentBytes {
			rejected = append(rejected, f.Name)
			continue
		}
		kept = append(kept, f)
	}
	if len(rejected) > 0 {
		return kept, &OversizeError{Files: rejected, Limit: MaxAttachmentBytes}
	}
	return kept, nil
}
