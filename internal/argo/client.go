// Package argo is a minimal client for the Argo Workflows server REST API.
package argo

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	wfv1 "github.com/me/argowf/pkg/argo"
)

// DefaultTimeout bounds every request when ClientConfig.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// Engine is the subset of the Argo API used to run a workflow.
type Engine interface {
	CreateWorkflow(ctx context.Context, namespace string, wf *wfv1.Workflow) (*wfv1.Workflow, error)
	GetWorkflow(ctx context.Context, namespace, name string) (*wfv1.Workflow, error)
	ArtifactFile(ctx context.Context, namespace, workflow, node, artifact, file string) ([]byte, error)
}

// ClientConfig holds the Argo server connection settings.
type ClientConfig struct {
	BaseURL            string
	Token              string
	InsecureSkipVerify bool
	Timeout            time.Duration
}

// Client talks to one Argo server.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a client for the server at cfg.BaseURL.
func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout, Transport: transport},
		logger:  logger,
	}
}

// createRequest is the WorkflowCreateRequest body.
type createRequest struct {
	Namespace string         `json:"namespace"`
	Workflow  *wfv1.Workflow `json:"workflow"`
}

// CreateWorkflow submits wf to namespace and returns the created resource.
func (c *Client) CreateWorkflow(ctx context.Context, namespace string, wf *wfv1.Workflow) (*wfv1.Workflow, error) {
	body, err := json.Marshal(createRequest{Namespace: namespace, Workflow: wf})
	if err != nil {
		return nil, fmt.Errorf("marshal workflow: %w", err)
	}

	respBody, err := c.do(ctx, http.MethodPost, "/api/v1/workflows/"+url.PathEscape(namespace), body, http.StatusOK)
	if err != nil {
		return nil, fmt.Errorf("create workflow %s/%s: %w", namespace, wf.Metadata.Name, err)
	}

	var created wfv1.Workflow
	if err := json.Unmarshal(respBody, &created); err != nil {
		return nil, fmt.Errorf("decode created workflow: %w", err)
	}
	return &created, nil
}

// GetWorkflow fetches the workflow and its status document.
func (c *Client) GetWorkflow(ctx context.Context, namespace, name string) (*wfv1.Workflow, error) {
	respBody, err := c.do(ctx, http.MethodGet, "/api/v1/workflows/"+url.PathEscape(namespace)+"/"+url.PathEscape(name), nil, http.StatusOK)
	if err != nil {
		return nil, fmt.Errorf("get workflow %s/%s: %w", namespace, name, err)
	}

	var wf wfv1.Workflow
	if err := json.Unmarshal(respBody, &wf); err != nil {
		return nil, fmt.Errorf("decode workflow %s/%s: %w", namespace, name, err)
	}
	return &wf, nil
}

// ArtifactFile downloads one file out of a node's output artifact.
func (c *Client) ArtifactFile(ctx context.Context, namespace, workflow, node, artifact, file string) ([]byte, error) {
	path := "/artifact-files/" + strings.Join([]string{
		url.PathEscape(namespace),
		"workflows",
		url.PathEscape(workflow),
		url.PathEscape(node),
		"outputs",
		url.PathEscape(artifact),
		url.PathEscape(file),
	}, "/")
	data, err := c.do(ctx, http.MethodGet, path, nil, http.StatusOK)
	if err != nil {
		return nil, fmt.Errorf("artifact %s/%s: %w", artifact, file, err)
	}
	return data, nil
}

// do sends the request and returns the response body. Any status other than
// want is an *HTTPError.
func (c *Client) do(ctx context.Context, method, path string, body []byte, want int) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	u := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.Debug("argo request", "method", method, "url", u)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("argo response", "method", method, "url", u, "status", resp.StatusCode)

	if resp.StatusCode != want {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	return respBody, nil
}
