package mcpserver

import (
	"encoding/json"
	"fmt"

	"markup/internal/domain"
)

// parseJSON parses a JSON string into the target type.
func parseJSON(data string, target any) error {
	return json.Unmarshal([]byte(data), target)
}

// numberArg reads a numeric argument. JSON numbers arrive as float64.
func numberArg(args map[string]any, key string) (float64, bool) {
	switch v := args[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

// pointArg reads the required x and y arguments.
func pointArg(args map[string]any) (domain.Vec, error) {
	x, okX := numberArg(args, "x")
	y, okY := numberArg(args, "y")
	if !okX || !okY {
		return domain.Vec{}, fmt.Errorf("x and y are required")
	}
	return domain.Vec{X: x, Y: y}, nil
}

// shapeIDsArg reads a JSON array of shape ids.
func shapeIDsArg(args map[string]any, key string) ([]domain.ShapeID, error) {
	raw, _ := args[key].(string)
	if raw == "" {
		return nil, fmt.Errorf("%s is required", key)
	}
	var ids []domain.ShapeID
	if err := parseJSON(raw, &ids); err != nil {
		return nil, fmt.Errorf("parse %s: %w", key, err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%s is empty", key)
	}
	return ids, nil
}
