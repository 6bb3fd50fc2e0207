// internal/schema/validator.go
// Package schema provides JSON schema validation for request bodies.
// It rejects malformed bodies before they reach the services.
package schema

import (
	"fmt"
	"time"

	errordefs "github.com/vidshare/vidshare-api-go/internal/errors"
	"github.com/vidshare/vidshare-api-go/internal/metrics"
	"github.com/xeipuuv/gojsonschema"
)

// Names of the request bodies the validator knows.
const (
	VideoUpdate    = "video.update"
	CommentContent = "comment.content"
	TweetContent   = "tweet.content"
	PlaylistBody   = "playlist.details"
)

// nonBlank matches any string with at least one non-space character.
const nonBlank = `"type":"string","pattern":"\\S"`

// definition is one compiled body schema plus the message clients see on failure.
type definition struct {
	source  string
	message string
}

var definitions = map[string]definition{
	VideoUpdate: {
		source:  `{"type":"object","required":["title","description"],"properties":{"title":{` + nonBlank + `,"maxLength":200},"description":{` + nonBlank + `,"maxLength":5000}}}`,
		message: "All fields are required i.e. title and description",
	},
	CommentContent: {
		source:  `{"type":"object","required":["content"],"properties":{"content":{` + nonBlank + `,"maxLength":5000}}}`,
		message: "Content is required.",
	},
	TweetContent: {
		source:  `{"type":"object","required":["content"],"properties":{"content":{` + nonBlank + `,"maxLength":5000}}}`,
		message: "Content is required.",
	},
	PlaylistBody: {
		source:  `{"type":"object","required":["name","description"],"properties":{"name":{` + nonBlank + `,"maxLength":200},"description":{` + nonBlank + `,"maxLength":5000}}}`,
		message: "All fields are required i.e name and description",
	},
}

// Validator validates request bodies against JSON schemas.
type Validator struct {
	schemas  map[string]*gojsonschema.Schema // Compiled schemas by body name
	messages map[string]string               // Client-facing message by body name
	metrics  *metrics.Metrics
}

// NewValidator compiles every known body schema.
// Returns:
//   - *Validator: Initialized validator instance
//   - error: Any error that occurred during compilation
func NewValidator() (*Validator, error) {
	v := &Validator{
		schemas:  make(map[string]*gojsonschema.Schema, len(definitions)),
		messages: make(map[string]string, len(definitions)),
		metrics:  metrics.NewMetrics(),
	}
	for name, def := range definitions {
		s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(def.source))
		if err != nil {
			return nil, fmt.Errorf("invalid schema for %s: %w", name, err)
		}
		v.schemas[name] = s
		v.messages[name] = def.message
	}
	return v, nil
}

// Validate checks a raw JSON body against the named schema.
// Failures are VS_VALIDATION errors whose details list every violation.
func (v *Validator) Validate(name string, body []byte) (err error) {
	start := time.Now()
	defer func() {
		status := metrics.Status(err)
		v.metrics.SchemaValidationTotal.WithLabelValues(name, status).Inc()
		v.metrics.SchemaValidationDuration.WithLabelValues(name, status).Observe(time.Since(start).Seconds())
	}()

	schema, ok := v.schemas[name]
	if !ok {
		return fmt.Errorf("schema not found: %s", name)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return errordefs.Wrap(errordefs.VS_BAD_REQUEST, "Invalid JSON body", err)
	}
	if result.Valid() {
		return nil
	}

	errs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		errs = append(errs, desc.String())
	}
	return errordefs.NewWithDetails(errordefs.VS_VALIDATION, v.messages[name], errs)
}
