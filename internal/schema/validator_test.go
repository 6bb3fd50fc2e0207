// internal/schema/validator_test.go
package schema

import (
	"testing"

	errordefs "github.com/vidshare/vidshare-api-go/internal/errors"
)

func TestValidate(t *testing.T) {
	v, err := NewValidator()
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}

	tests := []struct {
		name    string
		schema  string
		body    string
		code    errordefs.ErrorCode
		message string
	}{
		{"valid tweet", TweetContent, `{"content":"hello"}`, "", ""},
		{"blank tweet", TweetContent, `{"content":"   "}`, errordefs.VS_VALIDATION, "Content is required."},
		{"missing content", CommentContent, `{}`, errordefs.VS_VALIDATION, "Content is required."},
		{"wrong type", CommentContent, `{"content":5}`, errordefs.VS_VALIDATION, "Content is required."},
		{"video update missing description", VideoUpdate, `{"title":"t"}`, errordefs.VS_VALIDATION, "All fields are required i.e. title and description"},
		{"valid video update", VideoUpdate, `{"title":"t","description":"d"}`, "", ""},
		{"playlist blank name", PlaylistBody, `{"name":"","description":"d"}`, errordefs.VS_VALIDATION, "All fields are required i.e name and description"},
		{"not json", PlaylistBody, `{"name":`, errordefs.VS_BAD_REQUEST, "Invalid JSON body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.schema, []byte(tt.body))
			if tt.code == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			e := errordefs.As(err)
			if e.Code != tt.code || e.Message != tt.message {
				t.Errorf("got %s %q, want %s %q", e.Code, e.Message, tt.code, tt.message)
			}
		})
	}
}

func TestValidateUnknownSchema(t *testing.T) {
	v, _ := NewValidator()
	if err := v.Validate("nope", []byte(`{}`)); err == nil {
		t.Error("expected error for unknown schema")
	}
}
