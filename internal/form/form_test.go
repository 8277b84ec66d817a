package form

import (
	"errors"
	"net/url"
	"testing"

	"github.com/totegamma/concrnt-console/internal/domain"
)

const testSchema = `{
	"title": "Registration",
	"type": "object",
	"required": ["username", "age"],
	"properties": {
		"username": {"type": "string", "title": "Username", "minLength": 3},
		"age": {"type": "integer", "minimum": 13},
		"newsletter": {"type": "boolean", "default": false},
		"language": {"type": "string", "enum": ["ja", "en"], "default": "ja"}
	}
}`

func TestParse(t *testing.T) {
	schema, err := Parse([]byte(testSchema))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if schema.Title != "Registration" || len(schema.Fields) != 4 {
		t.Fatalf("unexpected schema %+v", schema)
	}

	names := []string{"username", "age", "newsletter", "language"}
	for i, name := range names {
		if schema.Fields[i].Name != name {
			t.Fatalf("field %d: expected %s got %s", i, name, schema.Fields[i].Name)
		}
	}
	if !schema.Fields[0].Required || schema.Fields[2].Required {
		t.Fatalf("unexpected required flags %+v", schema.Fields)
	}
	if schema.Fields[1].Title != "age" {
		t.Fatalf("title must default to the name, got %s", schema.Fields[1].Title)
	}
	if schema.Fields[3].Value != "ja" || len(schema.Fields[3].Enum) != 2 {
		t.Fatalf("unexpected enum field %+v", schema.Fields[3])
	}
}

func TestParseMalformed(t *testing.T) {
	if _, err := Parse([]byte(`{"properties": [1]}`)); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestDecodeAndValidate(t *testing.T) {
	schema, err := Parse([]byte(testSchema))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	values := url.Values{
		"meta.username":   {"alice"},
		"meta.age":        {"20"},
		"meta.newsletter": {"on"},
		"token":           {"ignored"},
	}
	value := schema.Decode(values)
	if value["username"] != "alice" || value["age"] != int64(20) || value["newsletter"] != true {
		t.Fatalf("unexpected value %v", value)
	}
	if _, ok := value["token"]; ok {
		t.Fatalf("flow parameters must not leak into the value")
	}
	if err := schema.Validate(value); err != nil {
		t.Fatalf("expected valid form: %v", err)
	}
}

func TestValidateReportsViolations(t *testing.T) {
	schema, err := Parse([]byte(testSchema))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	tests := map[string]url.Values{
		"missing required": {"meta.username": {"alice"}},
		"too short":        {"meta.username": {"al"}, "meta.age": {"20"}},
		"too young":        {"meta.username": {"alice"}, "meta.age": {"3"}},
		"not a number":     {"meta.username": {"alice"}, "meta.age": {"old"}},
		"outside enum":     {"meta.username": {"alice"}, "meta.age": {"20"}, "meta.language": {"fr"}},
	}

	for name, values := range tests {
		t.Run(name, func(t *testing.T) {
			err := schema.Validate(schema.Decode(values))
			if !errors.Is(err, domain.ErrInvalidForm) {
				t.Fatalf("expected ErrInvalidForm, got %v", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) || len(verr.Messages) == 0 {
				t.Fatalf("expected messages, got %v", err)
			}
		})
	}
}

func TestWithValues(t *testing.T) {
	schema, err := Parse([]byte(testSchema))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	filled := schema.WithValues(url.Values{"meta.username": {"bob"}})
	if filled.Fields[0].Value != "bob" {
		t.Fatalf("expected posted value, got %q", filled.Fields[0].Value)
	}
	if schema.Fields[0].Value != "" {
		t.Fatalf("WithValues must not mutate the receiver")
	}
}

func TestDefaultSchemaRequiresConsent(t *testing.T) {
	schema := Default()
	if len(schema.Fields) != 4 || schema.Fields[3].Name != "consent" {
		t.Fatalf("unexpected default schema %+v", schema.Fields)
	}

	values := url.Values{
		"meta.name":  {"alice"},
		"meta.email": {"alice@example.com"},
	}
	if err := schema.Validate(schema.Decode(values)); !errors.Is(err, domain.ErrInvalidForm) {
		t.Fatalf("expected consent to be required, got %v", err)
	}

	values.Set("meta.consent", "on")
	if err := schema.Validate(schema.Decode(values)); err != nil {
		t.Fatalf("expected valid form: %v", err)
	}
}
