package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/tordrt/odataschema/internal/edmx"
	"github.com/tordrt/odataschema/internal/response"
)

// Failure categories reported to users
var (
	// ErrUnreachable covers transport failures and non-2xx responses.
	ErrUnreachable = errors.New("source unreachable")

	// ErrNotMetadata is returned when the source answered with something
	// other than a metadata document.
	ErrNotMetadata = errors.New("not a metadata document")

	// ErrNotStructured is returned when a data response is neither JSON nor Atom.
	ErrNotStructured = response.ErrNotStructured
)

const (
	acceptMetadata = "application/xml"
	acceptJSON     = "application/json;odata.metadata=minimal, application/json;q=0.9, */*;q=0.1"
	acceptAtom     = "application/atom+xml, application/xml;q=0.9, */*;q=0.1"

	// maxBodySize caps how much of a response is read
	maxBodySize = 64 << 20
)

// Client fetches metadata documents and data responses
type Client struct {
	HTTP    *http.Client
	Headers map[string]string
	logger  *zap.Logger
}

// NewClient creates a new client. A zero timeout means no timeout.
func NewClient(timeout time.Duration, headers map[string]string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		HTTP:    &http.Client{Timeout: timeout},
		Headers: headers,
		logger:  logger,
	}
}

// Metadata fetches the document at url and checks that it is a metadata document
func (c *Client) Metadata(ctx context.Context, url string) ([]byte, string, error) {
	body, err := c.get(ctx, url, acceptMetadata)
	if err != nil {
		return nil, "", err
	}

	version, ok := edmx.Detect(body)
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrNotMetadata, url)
	}

	c.logger.Debug("fetched metadata",
		zap.String("url", url),
		zap.String("version", version),
		zap.Int("bytes", len(body)))

	return body, version, nil
}

// Data fetches a data response and decodes it, preferring the given format.
// The returned format differs from preferred when the body had to be decoded
// with the alternate one.
func (c *Client) Data(ctx context.Context, url string, preferred response.Format) (any, response.Format, error) {
	return c.data(ctx, url, preferred, response.Decode)
}

// Rows is Data followed by envelope normalization.
func (c *Client) Rows(ctx context.Context, url string, preferred response.Format) (any, response.Format, error) {
	return c.data(ctx, url, preferred, response.DecodeRows)
}

type decodeFunc func(raw []byte, preferred response.Format) (any, response.Format, error)

func (c *Client) data(ctx context.Context, url string, preferred response.Format, decode decodeFunc) (any, response.Format, error) {
	accept := acceptJSON
	if preferred == response.FormatAtom {
		accept = acceptAtom
	}

	body, err := c.get(ctx, url, accept)
	if err != nil {
		return nil, "", err
	}

	payload, used, err := decode(body, preferred)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", url, err)
	}
	if used != preferred {
		c.logger.Info("response decoded with fallback format",
			zap.String("url", url),
			zap.String("preferred", string(preferred)),
			zap.String("used", string(used)))
	}

	return payload, used, nil
}

func (c *Client) get(ctx context.Context, url, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	req.Header.Set("Accept", accept)
	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("GET",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %s", ErrUnreachable, url, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %w", ErrUnreachable, err)
	}
	return body, nil
}

// Describe maps an error to the user-facing failure category.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnreachable):
		return "could not reach the service"
	case errors.Is(err, ErrNotMetadata), errors.Is(err, edmx.ErrStructural):
		return "the service answered, but not with a metadata document"
	case errors.Is(err, ErrNotStructured):
		return "the service answered, but not with valid JSON or Atom data"
	default:
		return err.Error()
	}
}
