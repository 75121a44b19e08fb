package extraction

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// ValidateDocument rejects documents the pipeline must not send to the AI
// model: empty files, and PDFs exceeding the configured page ceiling.
// Non-PDF payloads have no page notion and only get the emptiness check.
func ValidateDocument(data []byte, maxPages int) error {
	if len(data) == 0 {
		return fmt.Errorf("document is empty")
	}

	if !bytes.HasPrefix(data, []byte("%PDF")) {
		return nil
	}

	count, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return fmt.Errorf("failed to read PDF page count: %w", err)
	}

	if count > maxPages {
		return fmt.Errorf("document has %d pages, the maximum allowed is %d", count, maxPages)
	}

	return nil
}
