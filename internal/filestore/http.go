package filestore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// HttpResolver downloads the file from the file service directly. It is the
// fallback transport when the object-store copy is missing.
type HttpResolver struct {
	baseUrl string
	client  *http.Client
}

var _ Resolver = (*HttpResolver)(nil)

func NewHttpResolver(baseUrl string) *HttpResolver {
	return &HttpResolver{baseUrl: baseUrl, client: http.DefaultClient}
}

func (h *HttpResolver) Get(ctx context.Context, fileRef string, dst io.Writer) error {
	target := fmt.Sprintf("%s/%s", strings.TrimSuffix(h.baseUrl, "/"), url.PathEscape(fileRef))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download file %q, status code: %d", fileRef, resp.StatusCode)
	}

	_, err = io.Copy(dst, resp.Body)
	return err
}

func (h *HttpResolver) Type() string {
	return "http"
}
