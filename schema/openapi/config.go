package openapi

import (
	"strings"
)

type generatorConfig struct {
	openAPIVersion string
	info           openapiInfo
	operation      operationConfig
	contentType    string
	responses      map[string]responseConfig
	rootComponent  string
	// extensions controls the x-* keys carrying empty behavior, validator
	// names and declaration order.
	extensions bool
}

type openapiInfo struct {
	Title       string
	Version     string
	Description string
}

type operationConfig struct {
	Path        string
	Method      string
	OperationID string
	Summary     string
}

type responseConfig struct {
	Description string
}

// The default document describes a single POST /props operation whose request
// body is the props object and which answers 204.
func defaultGeneratorConfig() generatorConfig {
	return generatorConfig{
		openAPIVersion: "3.0.3",
		info:           openapiInfo{Title: "Props Schema", Version: "1.0.0"},
		operation:      operationConfig{Path: "/props", Method: "post", OperationID: "applyProps"},
		contentType:    "application/json",
		responses:      map[string]responseConfig{"204": {Description: "Props applied"}},
		extensions:     true,
	}
}

// GeneratorOption configures the OpenAPI generator.
type GeneratorOption func(*generatorConfig)

// WithOpenAPIVersion sets the document version. Versions from 3.1 on express
// accepted-empty fields as a "null" type union instead of nullable.
func WithOpenAPIVersion(version string) GeneratorOption {
	return func(cfg *generatorConfig) {
		if version = strings.TrimSpace(version); version != "" {
			cfg.openAPIVersion = version
		}
	}
}

// WithInfo sets the info title and version. Blank arguments are ignored.
func WithInfo(title, version string) GeneratorOption {
	return func(cfg *generatorConfig) {
		setIfPresent(&cfg.info.Title, title)
		setIfPresent(&cfg.info.Version, version)
	}
}

// WithDescription sets info.description.
func WithDescription(description string) GeneratorOption {
	return func(cfg *generatorConfig) {
		cfg.info.Description = strings.TrimSpace(description)
	}
}

// WithOperation replaces the method, path and operationId of the documented
// operation. Blank arguments keep the defaults.
func WithOperation(method, path, operationID string) GeneratorOption {
	return func(cfg *generatorConfig) {
		setIfPresent(&cfg.operation.Method, strings.ToLower(method))
		setIfPresent(&cfg.operation.Path, path)
		setIfPresent(&cfg.operation.OperationID, operationID)
	}
}

// WithSummary sets the operation summary.
func WithSummary(summary string) GeneratorOption {
	return func(cfg *generatorConfig) {
		cfg.operation.Summary = strings.TrimSpace(summary)
	}
}

// WithContentType sets the request body media type.
func WithContentType(contentType string) GeneratorOption {
	return func(cfg *generatorConfig) {
		setIfPresent(&cfg.contentType, contentType)
	}
}

// WithResponse adds or replaces the response documented for status.
func WithResponse(status, description string) GeneratorOption {
	return func(cfg *generatorConfig) {
		if status = strings.TrimSpace(status); status == "" {
			return
		}
		if cfg.responses == nil {
			cfg.responses = map[string]responseConfig{}
		}
		cfg.responses[status] = responseConfig{Description: description}
	}
}

// WithRootComponent publishes the props object under components.schemas and
// references it from the request body.
func WithRootComponent(name string) GeneratorOption {
	return func(cfg *generatorConfig) {
		cfg.rootComponent = strings.TrimSpace(name)
	}
}

// WithoutExtensions drops the x-* vendor keys, leaving plain JSON Schema.
func WithoutExtensions() GeneratorOption {
	return func(cfg *generatorConfig) {
		cfg.extensions = false
	}
}

func setIfPresent(dst *string, value string) {
	if value = strings.TrimSpace(value); value != "" {
		*dst = value
	}
}
