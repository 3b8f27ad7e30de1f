package protocol

// Tool describes a function an agent's reasoning loop may call.
// Parameters is a JSON Schema object describing the function's input.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ObjectSchema builds a JSON Schema object with the given properties and
// required property names.
func ObjectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
