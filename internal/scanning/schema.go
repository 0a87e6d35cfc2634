package scanning

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// orderJSONSchema describes the ExtractedOrder shape expected from language models.
// Nulls are tolerated and decode to zero values.
func orderJSONSchema() map[string]any {
	text := func() map[string]any { return map[string]any{"type": []string{"string", "null"}} }
	amount := func() map[string]any { return map[string]any{"type": []string{"number", "null"}, "minimum": 0} }
	object := func(props map[string]any) map[string]any {
		return map[string]any{"type": "object", "properties": props}
	}

	return map[string]any{
		"type":     "object",
		"required": []string{"client", "order", "lineItems"},
		"properties": map[string]any{
			"client": object(map[string]any{
				"name": text(), "taxId": text(), "address": text(), "phone": text(), "email": text(),
			}),
			"order": object(map[string]any{
				"number": text(), "date": text(), "paymentMethod": text(), "vendorName": text(),
				"totalValue": amount(),
			}),
			"lineItems": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []string{"description"},
					"properties": map[string]any{
						"description":     text(),
						"code":            text(),
						"quantity":        map[string]any{"type": []string{"integer", "null"}, "minimum": 0},
						"unitPrice":       amount(),
						"discountPercent": map[string]any{"type": []string{"number", "null"}, "minimum": 0, "maximum": 100},
						"lineTotal":       amount(),
					},
				},
			},
			"vehicle": object(map[string]any{
				"make": text(), "model": text(), "year": text(), "plate": text(), "color": text(),
			}),
			"team": object(map[string]any{
				"installerName": text(), "vendorName": text(),
			}),
			"notes": text(),
		},
	}
}

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func orderSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		b, err := json.Marshal(orderJSONSchema())
		if err != nil {
			compileErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("order.json", bytes.NewReader(b)); err != nil {
			compileErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiledSchema, compileErr = compiler.Compile("order.json")
	})
	return compiledSchema, compileErr
}

// validateOrderJSON checks raw JSON against the order schema
func validateOrderJSON(data []byte) error {
	schema, err := orderSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
