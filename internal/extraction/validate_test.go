package extraction_test

import (
	"bytes"
	"fmt"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/contracthub/extraction-service/internal/extraction"
)

// buildPDF assembles a minimal but well-formed PDF with the given number of
// empty pages, including a correct xref table.
func buildPDF(pages int) []byte {
	kids := make([]string, 0, pages)
	for i := 0; i < pages; i++ {
		kids = append(kids, fmt.Sprintf("%d 0 R", i+3))
	}

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pages),
	}
	for i := 0; i < pages; i++ {
		objects = append(objects, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>")
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects))
	for i, body := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	xrefPos := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, offset := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offset)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xrefPos)

	return buf.Bytes()
}

var _ = Describe("document validation", func() {
	It("rejects an empty document", func() {
		err := extraction.ValidateDocument(nil, 20)
		Expect(err).NotTo(BeNil())
		Expect(err.Error()).To(ContainSubstring("document is empty"))

		err = extraction.ValidateDocument([]byte{}, 20)
		Expect(err).NotTo(BeNil())
	})

	It("accepts a PDF within the page ceiling", func() {
		Expect(extraction.ValidateDocument(buildPDF(2), 20)).To(Succeed())
	})

	It("rejects a PDF over the page ceiling and reports both counts", func() {
		err := extraction.ValidateDocument(buildPDF(3), 2)
		Expect(err).NotTo(BeNil())
		Expect(err.Error()).To(ContainSubstring("3 pages"))
		Expect(err.Error()).To(ContainSubstring("maximum allowed is 2"))
	})

	It("rejects a document that only pretends to be a PDF", func() {
		err := extraction.ValidateDocument([]byte("%PDF-1.4 but no structure"), 20)
		Expect(err).NotTo(BeNil())
		Expect(err.Error()).To(ContainSubstring("page count"))
	})

	It("applies only the emptiness check to non-PDF payloads", func() {
		Expect(extraction.ValidateDocument([]byte("plain text contract"), 1)).To(Succeed())
	})
})
