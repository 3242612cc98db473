package interview

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

func reflector() *jsonschema.Reflector {
	return &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		ExpandedStruct:            true,
	}
}

// QuestionSchema describes the JSON array the question prompt asks for.
func QuestionSchema() *jsonschema.Schema {
	// Expanded reflection only works on structs, so wrap the item schema.
	item := reflector().Reflect(&Question{})
	item.Version = ""
	return &jsonschema.Schema{
		Version:     jsonschema.Version,
		Type:        "array",
		Title:       "Interview questions",
		Description: "A JSON array of 6-8 interview questions",
		Items:       item,
	}
}

// EvaluationSchema describes the JSON object the evaluation prompt asks for.
func EvaluationSchema() *jsonschema.Schema {
	s := reflector().Reflect(&Evaluation{})
	s.Title = "Candidate evaluation"
	return s
}

// SchemaText renders a schema for embedding in a prompt.
func SchemaText(s *jsonschema.Schema) string {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return ""
	}
	return string(b)
}
