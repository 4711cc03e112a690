package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const createdSessionSchema = `{
	"type": "object",
	"required": ["id", "token"],
	"properties": {
		"id": {"type": "integer"},
		"token": {"type": "string", "minLength": 1}
	}
}`

const userSessionSchema = `{
	"type": "object",
	"required": ["id", "application"],
	"properties": {
		"id": {"type": "integer"},
		"application": {"type": "object"}
	}
}`

const offerRequestSchema = `{
	"type": "object",
	"required": ["id", "status"],
	"properties": {
		"id": {"type": "integer"},
		"status": {"enum": ["PROCESSING", "SUCCESS", "NO_OFFERS", "INELIGIBLE"]}
	}
}`

var (
	createdSessionValidator = mustCompile("created-session.json", createdSessionSchema)
	userSessionValidator    = mustCompile("user-session.json", userSessionSchema)
	offerRequestValidator   = mustCompile("offer-request.json", offerRequestSchema)
)

func mustCompile(name, src string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(src)); err != nil {
		panic(fmt.Sprintf("invalid schema %s: %v", name, err))
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("invalid schema %s: %v", name, err))
	}
	return schema
}

// validateBody checks body against schema and returns a *ProtocolError
// listing every violation.
func validateBody(path string, schema *jsonschema.Schema, body []byte) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return &ProtocolError{Path: path, Problems: []string{fmt.Sprintf("invalid JSON: %v", err)}}
	}

	if err := schema.Validate(doc); err != nil {
		if validationErr, ok := err.(*jsonschema.ValidationError); ok {
			problems := collectProblems(validationErr)
			if len(problems) == 0 {
				problems = []string{validationErr.Error()}
			}
			return &ProtocolError{Path: path, Problems: problems}
		}
		return &ProtocolError{Path: path, Problems: []string{err.Error()}}
	}
	return nil
}

// collectProblems flattens a validation error tree into leaf messages.
func collectProblems(err *jsonschema.ValidationError) []string {
	var problems []string
	if len(err.Causes) == 0 && err.Message != "" {
		location := err.InstanceLocation
		if location == "" {
			location = "/"
		}
		problems = append(problems, fmt.Sprintf("at %s: %s", location, err.Message))
	}
	for _, cause := range err.Causes {
		problems = append(problems, collectProblems(cause)...)
	}
	return problems
}
