package openapi_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/pestwatch/pkg/openapi"
)

func TestNewSpec(t *testing.T) {
	spec := openapi.NewSpec("Test API", "1.0.0")

	if spec.OpenAPI != "3.1.0" {
		t.Errorf("openapi version: got %s, want 3.1.0", spec.OpenAPI)
	}
	if spec.Info.Title != "Test API" || spec.Info.Version != "1.0.0" {
		t.Errorf("info: got %+v", spec.Info)
	}
	if spec.Components.Schemas["Error"] == nil {
		t.Error("Error schema missing from default components")
	}
	for _, name := range []string{"BadRequest", "NotFound", "PayloadTooLarge", "BadGateway", "ServiceUnavailable"} {
		if spec.Components.Responses[name] == nil {
			t.Errorf("response %s missing from default components", name)
		}
	}
}

func TestAddOperation(t *testing.T) {
	spec := openapi.NewSpec("Test", "1.0.0")

	tests := []struct {
		method string
		get    func(*openapi.PathItem) *openapi.Operation
	}{
		{http.MethodGet, func(p *openapi.PathItem) *openapi.Operation { return p.Get }},
		{http.MethodPost, func(p *openapi.PathItem) *openapi.Operation { return p.Post }},
		{http.MethodDelete, func(p *openapi.PathItem) *openapi.Operation { return p.Delete }},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			op := &openapi.Operation{Summary: tt.method}
			if err := spec.AddOperation(tt.method, "/records/{id}", op); err != nil {
				t.Fatalf("AddOperation: %v", err)
			}
			if got := tt.get(spec.Paths["/records/{id}"]); got != op {
				t.Errorf("operation not attached for %s", tt.method)
			}
		})
	}

	if err := spec.AddOperation(http.MethodPatch, "/records/{id}", &openapi.Operation{}); err == nil {
		t.Error("expected error for PATCH")
	}
	if len(spec.Paths) != 1 {
		t.Errorf("paths: got %d, want 1", len(spec.Paths))
	}
}

func TestAddBearerAuth(t *testing.T) {
	spec := openapi.NewSpec("Test", "1.0.0")
	spec.AddBearerAuth("bearer")

	scheme := spec.Components.SecuritySchemes["bearer"]
	if scheme == nil || scheme.Type != "http" || scheme.Scheme != "bearer" {
		t.Errorf("security scheme: got %+v", scheme)
	}
}

func TestParams(t *testing.T) {
	ref := openapi.PathParam("ref", "Record id or stored filename")
	if ref.In != "path" || !ref.Required || ref.Schema.Format != "" {
		t.Errorf("PathParam: got %+v", ref)
	}

	id := openapi.UUIDParam("id", "Record id")
	if id.Schema.Format != "uuid" {
		t.Errorf("UUIDParam format: got %q", id.Schema.Format)
	}

	q := openapi.QueryParam("status", "string", "Review status", false)
	if q.In != "query" || q.Required {
		t.Errorf("QueryParam: got %+v", q)
	}
}

func TestRequestBodyMultipart(t *testing.T) {
	rb := openapi.RequestBodyMultipart([]string{"file"}, []string{"rsbsaNumber", "fullName"}, "file")

	media := rb.Content["multipart/form-data"]
	if media == nil {
		t.Fatal("multipart content missing")
	}
	if media.Schema.Properties["file"].Format != "binary" {
		t.Errorf("file format: got %q", media.Schema.Properties["file"].Format)
	}
	if media.Schema.Properties["fullName"].Type != "string" {
		t.Error("fullName should be a string field")
	}
	if len(media.Schema.Required) != 1 || media.Schema.Required[0] != "file" {
		t.Errorf("required: got %v", media.Schema.Required)
	}
}

func TestRefs(t *testing.T) {
	if got := openapi.SchemaRef("Record").Ref; got != "#/components/schemas/Record" {
		t.Errorf("SchemaRef: got %s", got)
	}
	if got := openapi.ResponseRef("NotFound").Ref; got != "#/components/responses/NotFound" {
		t.Errorf("ResponseRef: got %s", got)
	}
	if got := openapi.ArrayOf("Summary"); got.Type != "array" || got.Items.Ref != "#/components/schemas/Summary" {
		t.Errorf("ArrayOf: got %+v", got)
	}
	if got := openapi.ResponseBinary("image", "image/*"); got.Content["image/*"] == nil {
		t.Error("ResponseBinary content missing")
	}
}

func TestServeSpec(t *testing.T) {
	spec := openapi.NewSpec("Test", "1.0.0")
	data, err := openapi.MarshalJSON(spec)
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}

	rec := httptest.NewRecorder()
	openapi.ServeSpec(data)(rec, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status: got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("content type: got %s", ct)
	}

	body, _ := io.ReadAll(rec.Body)
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if decoded["openapi"] != "3.1.0" {
		t.Errorf("openapi: got %v", decoded["openapi"])
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := openapi.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if cfg.Title != "Pestwatch API" {
		t.Errorf("title: got %s", cfg.Title)
	}
}

func TestConfigFinalize(t *testing.T) {
	t.Setenv("OPENAPI_PATH", "/spec.json")

	tests := []struct {
		name     string
		cfg      openapi.Config
		env      *openapi.ConfigEnv
		wantPath string
		wantErr  bool
	}{
		{"default path", openapi.Config{}, nil, "/openapi.json", false},
		{"env override", openapi.Config{}, &openapi.ConfigEnv{Path: "OPENAPI_PATH"}, "/spec.json", false},
		{"relative path", openapi.Config{Path: "openapi.json"}, nil, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Finalize(tt.env)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Finalize: %v", err)
			}
			if tt.cfg.Path != tt.wantPath {
				t.Errorf("path: got %s, want %s", tt.cfg.Path, tt.wantPath)
			}
		})
	}
}

func TestConfigMerge(t *testing.T) {
	cfg := openapi.Config{Title: "Base", Description: "base", Path: "/openapi.json"}
	cfg.Merge(&openapi.Config{Title: "Overlay"})

	if cfg.Title != "Overlay" || cfg.Description != "base" || cfg.Path != "/openapi.json" {
		t.Errorf("merged: %+v", cfg)
	}
}
