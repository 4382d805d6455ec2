package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Request describes a single call against the backend
type Request struct {
	// Path is appended to the target's base URL as it is
	Path string

	// Method defaults to GET
	Method string

	// Payload is encoded as JSON for every method but GET; nil means no body
	Payload any
}

// Target describes where and as whom a request is sent
type Target struct {
	BaseURL string
	Token   string
}

// Dispatcher performs every call of the harness; there is no endpoint-specific branching beyond path, method and
// payload
type Dispatcher struct {
	transport http.RoundTripper
	timeout   time.Duration
}

// New creates a new dispatcher.
// transport may be nil to use http.DefaultTransport; a timeout of 0 disables the per-call timeout.
func New(transport http.RoundTripper, timeout time.Duration) *Dispatcher {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &Dispatcher{
		transport: transport,
		timeout:   timeout,
	}
}

// AttachesToken reports whether a call to path carries the given token.
// Health checks are always sent unauthenticated.
func AttachesToken(token, path string) bool {
	return token != "" && !strings.Contains(path, "health")
}

// Do performs the given request against the target and normalizes its outcome.
// Do never returns nil.
func (dispatcher *Dispatcher) Do(ctx context.Context, target Target, request Request) Result {
	method := strings.ToUpper(request.Method)
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if request.Payload != nil && method != http.MethodGet {
		encoded, err := json.Marshal(request.Payload)
		if err != nil {
			return &Failure{Kind: KindRequest, Message: "could not encode the request payload: " + err.Error()}
		}
		body = bytes.NewReader(encoded)
	}

	if dispatcher.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, dispatcher.timeout)
		defer cancel()
	}

	httpRequest, err := http.NewRequestWithContext(ctx, method, target.BaseURL+request.Path, body)
	if err != nil {
		return &Failure{Kind: KindRequest, Message: err.Error()}
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("Accept", "application/json")
	httpRequest.Header.Set("X-Request-ID", uuid.NewString())

	client := &http.Client{Transport: dispatcher.transport}
	if AttachesToken(target.Token, request.Path) {
		client.Transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: target.Token, TokenType: "Bearer"}),
			Base:   dispatcher.transport,
		}
	}

	started := time.Now()
	response, err := client.Do(httpRequest)
	if err != nil {
		log.Debug().Err(err).Str("method", method).Str("path", request.Path).Msg("backend call failed without a response")
		return &Failure{Kind: KindTransport, Message: err.Error()}
	}
	defer response.Body.Close()

	raw, err := io.ReadAll(response.Body)
	log.Debug().
		Str("method", method).
		Str("path", request.Path).
		Int("status", response.StatusCode).
		Dur("duration", time.Since(started)).
		Msg("backend call finished")
	if err != nil {
		return &Failure{Kind: KindTransport, Status: response.StatusCode, Message: "could not read the response body: " + err.Error()}
	}

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return &Failure{
			Kind:    KindApplication,
			Status:  response.StatusCode,
			Message: ExtractMessage(raw, response.Status),
		}
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return &Success{Status: response.StatusCode}
	}
	var document any
	if err := json.Unmarshal(raw, &document); err != nil {
		return &Failure{Kind: KindDecode, Status: response.StatusCode, Message: "response body is not valid JSON: " + err.Error()}
	}
	return &Success{Status: response.StatusCode, Document: document}
}
