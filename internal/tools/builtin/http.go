package builtin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/haasonsaas/strand/internal/tools"
)

const defaultHTTPTimeout = 30 * time.Second

// HTTPRequest performs an outbound HTTP request on behalf of the model.
type HTTPRequest struct {
	policy tools.SandboxPolicy
	client *http.Client
}

func NewHTTPRequest(policy tools.SandboxPolicy) *HTTPRequest {
	return &HTTPRequest{policy: policy, client: &http.Client{}}
}

func (t *HTTPRequest) Definition() tools.Definition {
	return tools.Definition{
		Name:        "http_request",
		Description: "Make an HTTP request and return the status, headers, and body as JSON.",
		Category:    "network",
		Parameters: tools.ObjectSchema(map[string]*tools.Schema{
			"url":          tools.StringSchema("URL to request"),
			"method":       tools.StringSchema("HTTP method (default GET)"),
			"headers":      {Type: "object", Description: "Request headers as a string map"},
			"body":         tools.StringSchema("Request body"),
			"timeout_secs": tools.IntegerSchema("Request timeout in seconds (default 30)"),
		}, "url"),
	}
}

func (t *HTTPRequest) Execute(ctx context.Context, input json.RawMessage) (tools.Output, error) {
	var args struct {
		URL         string            `json:"url"`
		Method      string            `json:"method"`
		Headers     map[string]string `json:"headers"`
		Body        string            `json:"body"`
		TimeoutSecs int               `json:"timeout_secs"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return tools.Output{}, tools.NewError(tools.KindInvalidInput, "http_request", err.Error())
	}
	target, err := url.Parse(args.URL)
	if err != nil {
		return tools.Fail(fmt.Sprintf("Invalid request: %v", err)), nil
	}
	if err := t.policy.CheckHost(target.Hostname()); err != nil {
		return tools.Output{}, err
	}

	method := strings.ToUpper(args.Method)
	if method == "" {
		method = http.MethodGet
	}
	timeout := defaultHTTPTimeout
	if args.TimeoutSecs > 0 {
		timeout = time.Duration(args.TimeoutSecs) * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if args.Body != "" {
		body = strings.NewReader(args.Body)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, args.URL, body)
	if err != nil {
		return tools.Fail(fmt.Sprintf("Invalid request: %v", err)), nil
	}
	for k, v := range args.Headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || reqCtx.Err() == context.DeadlineExceeded {
			return tools.Fail("Request timed out"), nil
		}
		return tools.Fail(fmt.Sprintf("Connection failed: %v", err)), nil
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, int64(t.policy.OutputSizeLimit()))
	respBody, err := io.ReadAll(limited)
	if err != nil {
		return tools.Fail(fmt.Sprintf("Cannot read response: %v", err)), nil
	}

	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}
	result := map[string]any{
		"status":      resp.StatusCode,
		"status_text": resp.Status,
		"headers":     headers,
		"body":        string(respBody),
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return tools.Output{}, tools.NewError(tools.KindExecution, "http_request", err.Error()).WithCause(err)
	}
	if resp.StatusCode >= 400 {
		return tools.Fail(string(data)), nil
	}
	return tools.OK(string(data)), nil
}
