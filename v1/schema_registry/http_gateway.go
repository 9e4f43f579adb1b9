package schema_registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/oapi-codegen/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/Aleph-Alpha/registry-serde/v1/observability"
)

const (
	acceptHeader = "application/vnd.schemaregistry.v1+json, application/vnd.schemaregistry+json, application/json"
	contentType  = "application/vnd.schemaregistry.v1+json"
	tracerName   = "github.com/Aleph-Alpha/registry-serde/v1/schema_registry"
)

// Doer sends HTTP requests. *http.Client implements it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPGateway talks to a Confluent compatible schema registry over its REST API.
type HTTPGateway struct {
	baseURL     string
	doer        Doer
	username    string
	password    string
	bearerToken string

	observer observability.Observer
}

// NewHTTPGateway creates a gateway for cfg.URL. When doer is nil an
// *http.Client with cfg.Timeout is used.
func NewHTTPGateway(cfg Config, doer Doer) (*HTTPGateway, error) {
	if cfg.URL == "" {
		return nil, errors.New("schema registry URL is required")
	}
	if doer == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = defaultTimeout
		}
		doer = &http.Client{Timeout: timeout}
	}

	return &HTTPGateway{
		baseURL:     strings.TrimRight(cfg.URL, "/"),
		doer:        doer,
		username:    cfg.Username,
		password:    cfg.Password,
		bearerToken: cfg.BearerToken,
	}, nil
}

// WithObserver attaches an observer that is notified after every request.
func (g *HTTPGateway) WithObserver(observer observability.Observer) *HTTPGateway {
	g.observer = observer
	return g
}

type schemaRequest struct {
	Schema string `json:"schema"`
}

type registerResponse struct {
	ID int `json:"id"`
}

type schemaResponse struct {
	Schema string `json:"schema"`
}

type compatibilityCheckResponse struct {
	IsCompatible bool `json:"is_compatible"`
}

type configRequest struct {
	Compatibility CompatibilityLevel `json:"compatibility"`
}

type configResponse struct {
	Compatibility      CompatibilityLevel `json:"compatibility"`
	CompatibilityLevel CompatibilityLevel `json:"compatibilityLevel"`
}

type errorResponse struct {
	ErrorCode int    `json:"error_code"`
	Message   string `json:"message"`
}

// Register implements Gateway.
func (g *HTTPGateway) Register(ctx context.Context, subject, schema string) (int, error) {
	path, err := pathOf("/subjects/{subject}/versions", subject)
	if err != nil {
		return 0, err
	}

	var resp registerResponse
	if err := g.send(ctx, "register", subject, http.MethodPost, path, schemaRequest{Schema: schema}, &resp); err != nil {
		return 0, err
	}
	return resp.ID, nil
}

// SchemaByID implements Gateway.
func (g *HTTPGateway) SchemaByID(ctx context.Context, id int) (string, error) {
	var resp schemaResponse
	path := "/schemas/ids/" + strconv.Itoa(id)
	if err := g.send(ctx, "get_by_id", strconv.Itoa(id), http.MethodGet, path, nil, &resp); err != nil {
		return "", err
	}
	return resp.Schema, nil
}

// LatestVersion implements Gateway.
func (g *HTTPGateway) LatestVersion(ctx context.Context, subject string) (SchemaMetadata, error) {
	path, err := pathOf("/subjects/{subject}/versions/latest", subject)
	if err != nil {
		return SchemaMetadata{}, err
	}

	var resp SchemaMetadata
	if err := g.send(ctx, "get_latest", subject, http.MethodGet, path, nil, &resp); err != nil {
		return SchemaMetadata{}, err
	}
	if resp.Subject == "" {
		resp.Subject = subject
	}
	return resp, nil
}

// LookupVersion implements Gateway.
func (g *HTTPGateway) LookupVersion(ctx context.Context, subject, schema string) (SchemaMetadata, error) {
	path, err := pathOf("/subjects/{subject}", subject)
	if err != nil {
		return SchemaMetadata{}, err
	}

	var resp SchemaMetadata
	if err := g.send(ctx, "get_version", subject, http.MethodPost, path, schemaRequest{Schema: schema}, &resp); err != nil {
		return SchemaMetadata{}, err
	}
	return resp, nil
}

// TestCompatibility implements Gateway.
func (g *HTTPGateway) TestCompatibility(ctx context.Context, subject, schema, version string) (bool, error) {
	if version == "" {
		version = LatestVersion
	}
	path, err := pathOf("/compatibility/subjects/{subject}/versions/{version}", subject, version)
	if err != nil {
		return false, err
	}

	var resp compatibilityCheckResponse
	if err := g.send(ctx, "test_compatibility", subject, http.MethodPost, path, schemaRequest{Schema: schema}, &resp); err != nil {
		return false, err
	}
	return resp.IsCompatible, nil
}

// UpdateCompatibility implements Gateway.
func (g *HTTPGateway) UpdateCompatibility(ctx context.Context, subject string, level CompatibilityLevel) (CompatibilityLevel, error) {
	path, err := configPath(subject)
	if err != nil {
		return "", err
	}

	var resp configResponse
	if err := g.send(ctx, "update_compatibility", subject, http.MethodPut, path, configRequest{Compatibility: level}, &resp); err != nil {
		return "", err
	}
	return resp.level(), nil
}

// Compatibility implements Gateway.
func (g *HTTPGateway) Compatibility(ctx context.Context, subject string) (CompatibilityLevel, error) {
	path, err := configPath(subject)
	if err != nil {
		return "", err
	}

	var resp configResponse
	if err := g.send(ctx, "get_compatibility", subject, http.MethodGet, path, nil, &resp); err != nil {
		return "", err
	}
	return resp.level(), nil
}

// level prefers "compatibility" and falls back to "compatibilityLevel", which
// GET /config returns on most registry versions.
func (r configResponse) level() CompatibilityLevel {
	if r.Compatibility != "" {
		return r.Compatibility
	}
	return r.CompatibilityLevel
}

func configPath(subject string) (string, error) {
	if subject == "" {
		return "/config", nil
	}
	return pathOf("/config/{subject}", subject)
}

// pathOf fills the {placeholders} of template, in order, with path-escaped values.
func pathOf(template string, values ...string) (string, error) {
	path := template
	for _, value := range values {
		start := strings.IndexByte(path, '{')
		end := strings.IndexByte(path, '}')
		if start < 0 || end < start {
			return "", localError("invalid path template "+template, nil)
		}
		name := path[start+1 : end]
		escaped, err := runtime.StyleParamWithLocation("simple", false, name, runtime.ParamLocationPath, value)
		if err != nil {
			return "", localError("invalid path parameter "+name, err)
		}
		path = path[:start] + escaped + path[end+1:]
	}
	return path, nil
}

// send runs one request inside a client span and reports it to the observer.
func (g *HTTPGateway) send(ctx context.Context, operation, resource, method, path string, body, out any) error {
	start := time.Now()

	ctx, span := otel.Tracer(tracerName).Start(ctx, "schema_registry."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
	defer span.End()

	size, err := g.do(ctx, method, path, body, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		var regErr *RegistryError
		if errors.As(err, &regErr) {
			span.SetAttributes(attribute.Int("http.response.status_code", regErr.StatusCode))
		}
	}

	g.observeOperation(operation, resource, time.Since(start), err, size)
	return err
}

func (g *HTTPGateway) do(ctx context.Context, method, path string, body, out any) (int64, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, localError("failed to encode request", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return 0, localError("failed to create request", err)
	}

	req.Header.Set("Accept", acceptHeader)
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	switch {
	case g.username != "":
		req.SetBasicAuth(g.username, g.password)
	case g.bearerToken != "":
		req.Header.Set("Authorization", "Bearer "+g.bearerToken)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := g.doer.Do(req)
	if err != nil {
		return 0, localError(fmt.Sprintf("%s %s failed", method, path), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, localError("failed to read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return int64(len(data)), responseError(resp.StatusCode, data)
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return int64(len(data)), localError("failed to decode response", err)
		}
	}
	return int64(len(data)), nil
}

// responseError builds a RegistryError from a non-2xx response. Bodies that
// are not the registry's error JSON are used verbatim as the message.
func responseError(status int, data []byte) *RegistryError {
	var body errorResponse
	if err := json.Unmarshal(data, &body); err == nil && body.Message != "" {
		return &RegistryError{StatusCode: status, ErrorCode: body.ErrorCode, Message: body.Message}
	}

	message := strings.TrimSpace(string(data))
	if message == "" {
		message = http.StatusText(status)
	}
	return &RegistryError{StatusCode: status, ErrorCode: body.ErrorCode, Message: message}
}
