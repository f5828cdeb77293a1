package checks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/JaimeStill/preflight/internal/artifacts"
)

// DefaultBarcodePath is the validation service route for barcode detection.
const DefaultBarcodePath = "/validate_barcodes"

// Barcode sends the Artwork PDF to the remote validation service and passes
// only when at least one barcode is detected and every barcode passes its
// contrast check.
type Barcode struct {
	client   *http.Client
	endpoint string
}

// NewBarcode creates the barcode strategy for the service at baseURL.
func NewBarcode(client *http.Client, baseURL, path string) (*Barcode, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if path == "" {
		path = DefaultBarcodePath
	}

	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid validator base url %q", baseURL)
	}

	return &Barcode{
		client:   client,
		endpoint: base.JoinPath(path).String(),
	}, nil
}

// BarcodeResponse is the validation service's reply, one result per page.
type BarcodeResponse struct {
	Results []PageResult `json:"results"`
}

type PageResult struct {
	Barcodes []BarcodeFinding `json:"barcodes"`
}

type BarcodeFinding struct {
	ContrastPass bool `json:"contrast_pass"`
}

func (b *Barcode) Check(ctx context.Context, a artifacts.Artifact) (Verdict, error) {
	if len(a.Payload) == 0 {
		return Verdict{}, ErrNoPayload
	}

	body, contentType, err := multipartFile(a)
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, body)
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return Verdict{}, fmt.Errorf("%w: %s", ErrBackend, resp.Status)
	}

	var result BarcodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Verdict{}, fmt.Errorf("%w: %w", ErrParse, err)
	}

	return EvaluateBarcodes(result), nil
}

// EvaluateBarcodes applies the pass policy to a service response. Zero
// detected barcodes is a failure.
func EvaluateBarcodes(r BarcodeResponse) Verdict {
	var total, failed int
	for _, page := range r.Results {
		for _, b := range page.Barcodes {
			total++
			if !b.ContrastPass {
				failed++
			}
		}
	}

	switch {
	case total == 0:
		return Verdict{Details: "no barcodes detected"}
	case failed > 0:
		return Verdict{Details: fmt.Sprintf("%d of %d %s failed the contrast check", failed, total, plural(total, "barcode"))}
	default:
		return Verdict{
			Passed:  true,
			Details: fmt.Sprintf("%d %s detected across %d %s, all passed the contrast check", total, plural(total, "barcode"), len(r.Results), plural(len(r.Results), "page")),
		}
	}
}

func multipartFile(a artifacts.Artifact) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	name := a.Filename
	if name == "" {
		name = "artwork.pdf"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	h.Set("Content-Type", artifacts.MediaTypePDF)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(a.Payload); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
