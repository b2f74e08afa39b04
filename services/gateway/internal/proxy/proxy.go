package proxy

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/diagnosis/seatrips/internal/apiclient"
	"github.com/diagnosis/seatrips/pkg/logger"
)

// ServiceProxy forwards owner and admin endpoints the gateway does not model
// to the upstream API, attaching the session's API token.
type ServiceProxy struct {
	client *apiclient.Client
}

func NewServiceProxy(client *apiclient.Client) *ServiceProxy {
	return &ServiceProxy{client: client}
}

func (p *ServiceProxy) ProxyRequest(ctx context.Context, method, path, token string, body []byte, headers http.Header) (*http.Response, error) {
	var bodyReader io.Reader
	if len(body) > 0 {
		bodyReader = bytes.NewReader(body)
	}

	forward := make(http.Header)
	for key, values := range headers {
		if shouldCopyHeader(key) {
			forward[key] = values
		}
	}
	forward.Set("X-Gateway-Forwarded", "true")

	logger.DebugContext(ctx, "Proxying request", "method", method, "path", path)

	return p.client.WithToken(token).Do(ctx, method, path, bodyReader, forward)
}

// Forward streams the upstream response back to w. It returns the upstream
// status so callers can react to a rejected token; the body is already
// written by then.
func (p *ServiceProxy) Forward(w http.ResponseWriter, r *http.Request, path, token string) (int, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return 0, err
	}
	defer r.Body.Close()

	if r.URL.RawQuery != "" {
		path += "?" + r.URL.RawQuery
	}

	resp, err := p.ProxyRequest(r.Context(), r.Method, path, token, body, r.Header)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return resp.StatusCode, nil
	}

	for key, values := range resp.Header {
		if !shouldCopyHeader(key) {
			continue
		}
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.WriteHeader(resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		logger.ErrorContext(r.Context(), "Failed to copy response body", "error", err)
	}
	return resp.StatusCode, nil
}

func shouldCopyHeader(key string) bool {
	switch strings.ToLower(key) {
	case "host", "connection", "upgrade", "proxy-connection", "proxy-authenticate",
		"proxy-authorization", "te", "trailers", "transfer-encoding", "keep-alive",
		"authorization", "cookie", "set-cookie", "content-length":
		return false
	}
	return true
}
