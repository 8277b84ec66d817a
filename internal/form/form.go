// Package form turns the server supplied registration schema into editable
// fields and validates the submitted value object against it.
package form

import (
	_ "embed"
	"encoding/json"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/juju/gojsonschema"
	"github.com/pkg/errors"

	"github.com/totegamma/concrnt-console/internal/domain"
	"github.com/totegamma/concrnt-console/internal/utils"
)

// FieldPrefix namespaces form values so they never collide with the
// flow's own parameters (token, registration, signature, ...).
const FieldPrefix = "meta."

type property struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Format      string `json:"format"`
	Enum        []any  `json:"enum"`
	Default     any    `json:"default"`
}

type document struct {
	Title       string                       `json:"title"`
	Description string                       `json:"description"`
	Required    []string                     `json:"required"`
	Properties  utils.OrderedKVMap[property] `json:"properties"`
}

type Field struct {
	Name        string
	Title       string
	Description string
	Type        string // string, integer, number, boolean
	Format      string
	Required    bool
	Enum        []string
	Value       string
}

// InputName is the name of the html input carrying this field.
func (f Field) InputName() string {
	return FieldPrefix + f.Name
}

type Schema struct {
	Title       string
	Description string
	Fields      []Field
	raw         json.RawMessage
}

type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "invalid form: " + strings.Join(e.Messages, "; ")
}

func (e *ValidationError) Unwrap() error {
	return domain.ErrInvalidForm
}

// Parse reads a JSON schema object. Only top level properties become fields.
func Parse(raw json.RawMessage) (Schema, error) {
	var doc document
	err := json.Unmarshal(raw, &doc)
	if err != nil {
		return Schema{}, errors.Wrap(err, "failed to parse form schema")
	}

	schema := Schema{
		Title:       doc.Title,
		Description: doc.Description,
		raw:         raw,
	}

	for _, name := range doc.Properties.Keys() {
		prop := doc.Properties[name].Value
		field := Field{
			Name:        name,
			Title:       prop.Title,
			Description: prop.Description,
			Type:        prop.Type,
			Format:      prop.Format,
			Required:    slices.Contains(doc.Required, name),
		}
		for _, e := range prop.Enum {
			if e != nil {
				field.Enum = append(field.Enum, stringify(e))
			}
		}
		if field.Title == "" {
			field.Title = name
		}
		if field.Type == "" {
			field.Type = "string"
		}
		if prop.Default != nil {
			field.Value = stringify(prop.Default)
		}
		schema.Fields = append(schema.Fields, field)
	}

	return schema, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

// Decode builds the value object from posted form values.
// Values that fail to convert are kept as strings so validation reports them.
func (s Schema) Decode(values url.Values) map[string]any {
	result := map[string]any{}
	for _, field := range s.Fields {
		raw, ok := values[field.InputName()]
		if field.Type == "boolean" {
			result[field.Name] = ok && len(raw) > 0 && (raw[0] == "on" || raw[0] == "true")
			continue
		}
		if !ok || len(raw) == 0 || raw[0] == "" {
			continue
		}
		value := strings.TrimSpace(raw[0])
		switch field.Type {
		case "integer":
			if n, err := strconv.ParseInt(value, 10, 64); err == nil {
				result[field.Name] = n
				continue
			}
		case "number":
			if n, err := strconv.ParseFloat(value, 64); err == nil {
				result[field.Name] = n
				continue
			}
		}
		result[field.Name] = value
	}
	return result
}

// WithValues returns a copy whose fields show the posted values.
func (s Schema) WithValues(values url.Values) Schema {
	fields := make([]Field, len(s.Fields))
	copy(fields, s.Fields)
	for i := range fields {
		if v, ok := values[fields[i].InputName()]; ok && len(v) > 0 {
			fields[i].Value = v[0]
		}
	}
	s.Fields = fields
	return s
}

// Validate checks value against the full schema.
func (s Schema) Validate(value map[string]any) error {
	if len(s.raw) == 0 {
		return nil
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(string(s.raw)),
		gojsonschema.NewGoLoader(value),
	)
	if err != nil {
		return errors.Wrap(err, "failed to evaluate form schema")
	}
	if result.Valid() {
		return nil
	}

	verr := &ValidationError{}
	for _, e := range result.Errors() {
		verr.Messages = append(verr.Messages, e.String())
	}
	return verr
}

//go:embed default.json
var defaultSchema []byte

// Default is the registration form used when the server publishes none.
func Default() Schema {
	schema, err := Parse(defaultSchema)
	if err != nil {
		panic(err)
	}
	return schema
}
