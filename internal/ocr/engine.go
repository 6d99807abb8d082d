package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/eulaprotocol/triway/constants"
)

// Engine is the recognition collaborator: raw document bytes in,
// positioned text out. Implementations wrap whatever model or remote
// service actually performs the recognition.
type Engine interface {
	ProcessDocument(ctx context.Context, content []byte, ext string) (*Result, error)
}

// BuildResultJSONSchema returns a JSON-Schema (draft 2020-12 subset) for
// recognition payloads as a generic map. Remote engines return this shape
// over the wire; we validate before anything enters the pipeline.
func BuildResultJSONSchema() map[string]any {
	coord := map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0}
	block := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"text":       map[string]any{"type": "string"},
			"confidence": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
			"x_min":      coord,
			"y_min":      coord,
			"x_max":      coord,
			"y_max":      coord,
			"page":       map[string]any{"type": "integer", "minimum": 0},
		},
		"required": []string{"text", "confidence", "x_min", "y_min", "x_max", "y_max"},
	}
	page := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"page_number": map[string]any{"type": "integer", "minimum": 0},
			"width":       map[string]any{"type": "integer"},
			"height":      map[string]any{"type": "integer"},
			"blocks":      map[string]any{"type": "array", "items": block},
		},
		"required": []string{"blocks"},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"pages": map[string]any{"type": "array", "items": page},
		},
		"required": []string{"pages"},
	}
}

// ParseResultJSON decodes a recognition payload, validating it against
// the wire schema first. Malformed geometry (x_min > x_max etc.) is
// rejected here so the spatial algorithms can trust their inputs.
func ParseResultJSON(data []byte) (*Result, error) {
	if err := validateAgainstSchema(BuildResultJSONSchema(), data); err != nil {
		return nil, err
	}
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decode ocr result: %w", err)
	}
	for _, p := range res.Pages {
		for _, b := range p.Blocks {
			if b.XMin > b.XMax || b.YMin > b.YMax {
				return nil, fmt.Errorf("invalid bounding box for %q: (%.3f,%.3f)-(%.3f,%.3f)",
					b.Text, b.XMin, b.YMin, b.XMax, b.YMax)
			}
		}
	}
	return &res, nil
}

// PayloadEngine treats document content as an already-produced
// recognition payload (the JSON wire format). Used by the offline CLI,
// where recognition ran elsewhere and only the dump is at hand.
type PayloadEngine struct{}

func (PayloadEngine) ProcessDocument(_ context.Context, content []byte, ext string) (*Result, error) {
	switch f := constants.MapExtToFormat(ext); f {
	case constants.PDF, constants.IMAGE:
		return nil, fmt.Errorf("%s documents need the remote recognition service; only positioned-text JSON dumps are handled locally", f)
	}
	return ParseResultJSON(content)
}

func validateAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("ocr payload does not match schema: %w", err)
	}
	return nil
}
