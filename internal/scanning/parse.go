package scanning

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseOrderJSON parses and validates the JSON reply of a language model.
// Every failure is a *RemoteExtractionError.
func parseOrderJSON(text string) (*ExtractedOrder, error) {
	// Remove markdown code blocks if present
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	// Find the JSON object boundaries - look for first { and last }
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, &RemoteExtractionError{Stage: "response", Err: fmt.Errorf("no JSON object found in response")}
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, &RemoteExtractionError{Stage: "response", Err: fmt.Errorf("invalid JSON object in response")}
	}
	raw := []byte(text[startIdx : endIdx+1])

	if !json.Valid(raw) {
		return nil, &RemoteExtractionError{Stage: "response", Err: fmt.Errorf("response is not valid JSON")}
	}
	if err := validateOrderJSON(raw); err != nil {
		return nil, &RemoteExtractionError{Stage: "schema", Err: err}
	}

	var order ExtractedOrder
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, &RemoteExtractionError{Stage: "schema", Err: fmt.Errorf("unmarshaling json: %w", err)}
	}

	cleanOrder(&order)
	return &order, nil
}

// cleanOrder trims model output and applies the same item rules as the regex path
func cleanOrder(order *ExtractedOrder) {
	for _, s := range []*string{
		&order.Client.Name, &order.Client.TaxID, &order.Client.Address, &order.Client.Phone, &order.Client.Email,
		&order.Order.Number, &order.Order.Date, &order.Order.PaymentMethod, &order.Order.VendorName,
		&order.Vehicle.Make, &order.Vehicle.Model, &order.Vehicle.Year, &order.Vehicle.Plate, &order.Vehicle.Color,
		&order.Team.InstallerName, &order.Team.VendorName, &order.Notes,
	} {
		*s = strings.TrimSpace(*s)
	}
	order.Vehicle.Plate = strings.ToUpper(order.Vehicle.Plate)
	order.Order.TotalValue = round2(order.Order.TotalValue)

	items := make([]LineItem, 0, len(order.LineItems))
	for _, item := range order.LineItems {
		item.Inferred = false
		items = append(items, NormalizeLineItem(item))
	}
	order.LineItems = items

	finishOrder(order)
}
