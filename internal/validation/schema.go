// Package validation checks request bodies against JSON schemas before they
// are decoded into typed values.
package validation

import (
	"fmt"
	"sort"

	"github.com/xeipuuv/gojsonschema"

	"github.com/mind-engage/toximeter/internal/apperr"
)

const answersSchema = `{
  "type": "object",
  "required": ["answers"],
  "properties": {
    "answers": {
      "type": "object",
      "additionalProperties": {"type": "integer", "minimum": 1, "maximum": 5}
    }
  }
}`

const questionSchema = `{
  "type": "object",
  "required": ["text", "weight", "order"],
  "additionalProperties": false,
  "properties": {
    "id":     {"type": "string", "minLength": 1, "maxLength": 64},
    "text":   {"type": "string", "minLength": 1, "maxLength": 500},
    "weight": {"type": "number", "minimum": -2, "maximum": 2},
    "order":  {"type": "integer", "minimum": 1}
  }
}`

const questionPatchSchema = `{
  "type": "object",
  "minProperties": 1,
  "additionalProperties": false,
  "properties": {
    "text":   {"type": "string", "minLength": 1, "maxLength": 500},
    "weight": {"type": "number", "minimum": -2, "maximum": 2},
    "order":  {"type": "integer", "minimum": 1},
    "active": {"type": "boolean"}
  }
}`

const credentialsSchema = `{
  "type": "object",
  "required": ["username", "password"],
  "properties": {
    "username": {"type": "string", "minLength": 3, "maxLength": 64, "pattern": "^[A-Za-z0-9_.@-]+$"},
    "password": {"type": "string", "minLength": 8, "maxLength": 128}
  }
}`

// Schema is a compiled request schema.
type Schema struct {
	name   string
	schema *gojsonschema.Schema
}

var (
	Answers       = mustCompile("answers", answersSchema)
	Question      = mustCompile("question", questionSchema)
	QuestionPatch = mustCompile("question patch", questionPatchSchema)
	Credentials   = mustCompile("credentials", credentialsSchema)
)

func mustCompile(name, src string) *Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("validation: compile %s schema: %v", name, err))
	}
	return &Schema{name: name, schema: s}
}

// Validate checks a raw JSON body. Violations come back as an INVALID_INPUT
// apperr with one sorted detail per failure.
func (s *Schema) Validate(body []byte) error {
	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return apperr.InvalidInput("malformed JSON body", err.Error())
	}
	if result.Valid() {
		return nil
	}
	details := make([]string, len(result.Errors()))
	for i, desc := range result.Errors() {
		details[i] = desc.String()
	}
	sort.Strings(details)
	return apperr.InvalidInput("invalid "+s.name, details...)
}
