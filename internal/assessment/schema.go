package assessment

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const responseSchemaURL = "schema://azure-pronunciation-response.json"

// responseSchema describes the parts of the detailed recognition reply that
// the provider reads. Additional properties are allowed.
const responseSchema = `{
  "type": "object",
  "required": ["RecognitionStatus"],
  "properties": {
    "RecognitionStatus": {"type": "string"},
    "DisplayText": {"type": "string"},
    "NBest": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "Display": {"type": "string"},
          "Lexical": {"type": "string"},
          "AccuracyScore": {"type": "number"},
          "FluencyScore": {"type": "number"},
          "CompletenessScore": {"type": "number"},
          "PronScore": {"type": "number"},
          "PronunciationAssessment": {"$ref": "#/$defs/scores"},
          "Words": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["Word"],
              "properties": {
                "Word": {"type": "string"},
                "AccuracyScore": {"type": "number"},
                "ErrorType": {"type": "string"},
                "PronunciationAssessment": {"$ref": "#/$defs/scores"},
                "Phonemes": {
                  "type": "array",
                  "items": {
                    "type": "object",
                    "required": ["Phoneme"],
                    "properties": {
                      "Phoneme": {"type": "string"},
                      "AccuracyScore": {"type": "number"},
                      "PronunciationAssessment": {"$ref": "#/$defs/scores"}
                    }
                  }
                }
              }
            }
          }
        }
      }
    }
  },
  "$defs": {
    "scores": {
      "type": "object",
      "properties": {
        "AccuracyScore": {"type": "number"},
        "FluencyScore": {"type": "number"},
        "CompletenessScore": {"type": "number"},
        "PronScore": {"type": "number"},
        "ErrorType": {"type": "string"}
      }
    }
  }
}`

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func responseValidator() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		var def any
		if err := json.Unmarshal([]byte(responseSchema), &def); err != nil {
			compileErr = fmt.Errorf("parse schema definition: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(responseSchemaURL, def); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile(responseSchemaURL)
	})
	return compiledSchema, compileErr
}

// validateResponse checks raw against the response schema.
func validateResponse(raw []byte) error {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", ErrInvalidResponse, err)
	}

	schema, err := responseValidator()
	if err != nil {
		return fmt.Errorf("compile response schema: %w", err)
	}
	if err := schema.Validate(parsed); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}
