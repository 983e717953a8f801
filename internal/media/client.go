package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	apierrors "github.com/alexjbarnes/media-sync/internal/errors"
	"github.com/tidwall/gjson"
)

// TransientError wraps an error that is likely temporary and safe to retry.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err (or any error in its chain) is a
// TransientError, meaning the caller should retry after a backoff.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

const (
	// maxRedirects is the maximum number of HTTP redirects to follow
	// before giving up, matching the default net/http limit.
	maxRedirects = 10

	// httpClientTimeout is the timeout for the default HTTP client used
	// when no custom client is provided. Upload requests stream bodies,
	// so this also bounds a stalled transfer.
	httpClientTimeout = 30 * time.Second

	// maxAPIResponseBytes caps response body reads to prevent a
	// misbehaving server from consuming unbounded memory.
	maxAPIResponseBytes = 1024 * 1024
)

// Client talks to the remote content store's REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	device     string
}

// sameHostRedirectPolicy follows redirects only when the target host
// matches the original request host. This prevents the bearer token
// from leaking to third-party domains.
func sameHostRedirectPolicy(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return errors.New("stopped after 10 redirects")
	}

	if len(via) > 0 {
		origHost := via[0].URL.Host
		if req.URL.Host != origHost {
			return fmt.Errorf("redirect to different host blocked: %s -> %s", origHost, req.URL.Host)
		}
	}

	return nil
}

// NewClient creates an API client for the store at baseURL, identifying
// as device in reconcile calls. If httpClient is nil, a client with a
// 30-second timeout and same-host redirect policy is created.
func NewClient(baseURL, device string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:       httpClientTimeout,
			CheckRedirect: sameHostRedirectPolicy,
		}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		device:     device,
	}
}

// Reconcile sends the full identifier→hash map for the candidate set and
// returns the server's partition into already-present and needs-upload.
func (c *Client) Reconcile(ctx context.Context, token string, hashes map[string]string) (*ReconcileResponse, error) {
	req := reconcileRequest{Device: c.device, Items: hashes}

	var resp ReconcileResponse
	if err := c.postJSON(ctx, "/v1/media/reconcile", token, req, &resp); err != nil {
		return nil, fmt.Errorf("reconciling %d items: %w", len(hashes), err)
	}

	if resp.AlreadySynced == nil {
		resp.AlreadySynced = make(map[string]string)
	}

	return &resp, nil
}

// ListItems returns the remote store listing.
func (c *Client) ListItems(ctx context.Context, token string) ([]RemoteItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/media/list", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var resp listResponse
	if err := c.do(req, token, &resp); err != nil {
		return nil, fmt.Errorf("listing remote items: %w", err)
	}

	return resp.Items, nil
}

// DeleteItem removes an item from the remote store by its remote id.
func (c *Client) DeleteItem(ctx context.Context, token, remoteID string) error {
	endpoint := c.baseURL + "/v1/media/" + url.PathEscape(remoteID)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	if err := c.do(req, token, nil); err != nil {
		return fmt.Errorf("deleting remote item %s: %w", remoteID, err)
	}

	return nil
}

// Upload transfers a staged item as a multipart request: a "metadata"
// part carrying the JSON side channel and a "file" part streaming the
// staged bytes with their content type. Returns the new remote id.
func (c *Client) Upload(ctx context.Context, token string, staged *StagedItem) (string, error) {
	f, err := os.Open(staged.Path)
	if err != nil {
		return "", fmt.Errorf("opening staged file: %w", err)
	}
	defer f.Close()

	metaJSON, err := json.Marshal(staged.Meta)
	if err != nil {
		return "", fmt.Errorf("marshalling upload metadata: %w", err)
	}

	// The multipart body is streamed through a pipe so large videos are
	// never buffered in memory.
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := writeUploadBody(mw, metaJSON, staged, f)
		mw.Close()

		if err != nil {
			pw.CloseWithError(err)
			return
		}

		pw.Close()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/media/upload", pr)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp uploadResponse
	if err := c.do(req, token, &resp); err != nil {
		return "", fmt.Errorf("uploading %s: %w", staged.SourceIdentifier, err)
	}

	if resp.ID == "" {
		return "", fmt.Errorf("uploading %s: %w: response missing id", staged.SourceIdentifier, apierrors.ErrAPIResponse)
	}

	return resp.ID, nil
}

// writeUploadBody writes the metadata and file parts in order.
func writeUploadBody(mw *multipart.Writer, metaJSON []byte, staged *StagedItem, f io.Reader) error {
	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Disposition", `form-data; name="metadata"`)
	metaHeader.Set("Content-Type", "application/json")

	metaPart, err := mw.CreatePart(metaHeader)
	if err != nil {
		return fmt.Errorf("creating metadata part: %w", err)
	}

	if _, err := metaPart.Write(metaJSON); err != nil {
		return fmt.Errorf("writing metadata part: %w", err)
	}

	fileHeader := textproto.MIMEHeader{}
	fileHeader.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename=%q`, staged.FileName))
	fileHeader.Set("Content-Type", staged.ContentType)

	filePart, err := mw.CreatePart(fileHeader)
	if err != nil {
		return fmt.Errorf("creating file part: %w", err)
	}

	if _, err := io.Copy(filePart, f); err != nil {
		return fmt.Errorf("writing file part: %w", err)
	}

	return nil
}

// postJSON sends a JSON POST request and decodes the response into result.
func (c *Client) postJSON(ctx context.Context, endpoint, token string, body, result interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshalling request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	return c.do(req, token, result)
}

// do attaches the bearer token, executes the request, and maps the
// response: auth rejections become ErrAuthExpired, retry-worthy statuses
// become TransientError, and success bodies decode into result.
func (c *Client) do(req *http.Request, token string, result interface{}) error {
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		wrapped := fmt.Errorf("sending request to %s: %w", req.URL.Path, err)
		// Network errors (timeouts, connection refused, DNS failures)
		// are transient by nature.
		return &TransientError{Err: wrapped}
	}
	defer resp.Body.Close()

	// Cap response reads at 1MB. API responses are small JSON payloads.
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxAPIResponseBytes))
	if err != nil {
		return fmt.Errorf("reading response from %s: %w", req.URL.Path, err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%s (%d): %w", req.URL.Path, resp.StatusCode, apierrors.ErrAuthExpired)
	}

	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(respBody, "error").Str
		if msg == "" {
			msg = sanitizeResponseBody(respBody)
		}

		err := fmt.Errorf("%w: %s (%d): %s", apierrors.ErrAPIRequest, req.URL.Path, resp.StatusCode, msg)
		if isTransientStatus(resp.StatusCode) || isTransientMessage(msg) {
			return &TransientError{Err: err}
		}

		return err
	}

	// Some deployments report errors as 200 with an "error" field.
	if msg := gjson.GetBytes(respBody, "error").Str; msg != "" {
		err := fmt.Errorf("%w: %s: %s", apierrors.ErrAPIRequest, req.URL.Path, msg)
		if isTransientMessage(msg) {
			return &TransientError{Err: err}
		}

		return err
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response from %s: %w", req.URL.Path, err)
		}
	}

	return nil
}

// sanitizeResponseBody truncates and sanitizes a response body for
// inclusion in error messages. Limits to 256 bytes and replaces
// non-printable characters to prevent log injection.
func sanitizeResponseBody(body []byte) string {
	const maxLen = 256
	if len(body) > maxLen {
		body = body[:maxLen]
	}
	// Ensure valid UTF-8 and replace control characters.
	var clean []byte

	for len(body) > 0 {
		r, size := utf8.DecodeRune(body)
		if r == utf8.RuneError && size <= 1 {
			clean = append(clean, '?')
			body = body[1:]

			continue
		}

		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
			clean = append(clean, '?')
		} else {
			clean = append(clean, body[:size]...)
		}

		body = body[size:]
	}

	return string(clean)
}

// isTransientStatus returns true for HTTP status codes that indicate a
// temporary server-side problem worth retrying.
func isTransientStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}

	return false
}

// isTransientMessage checks whether an API error message suggests a
// temporary condition worth retrying.
func isTransientMessage(msg string) bool {
	lower := strings.ToLower(msg)

	return strings.Contains(lower, "overloaded") ||
		strings.Contains(lower, "try again") ||
		strings.Contains(lower, "temporarily unavailable")
}
