package openapi

import "maps"

// ErrorSchema is the body written for every failed request.
var ErrorSchema = &Schema{
	Type: "object",
	Properties: map[string]*Schema{
		"error": {Type: "string", Description: "Error message"},
		"kind":  {Type: "string", Description: "Stable error category", Example: "validation"},
	},
	Required: []string{"error"},
}

// NewComponents creates Components with the shared pagination schema and
// one error response per status class the API emits.
func NewComponents() *Components {
	return &Components{
		Schemas: map[string]*Schema{
			"Error": ErrorSchema,
			"PageRequest": {
				Type: "object",
				Properties: map[string]*Schema{
					"page":      {Type: "integer", Description: "Page number (1-indexed)", Example: 1},
					"page_size": {Type: "integer", Description: "Results per page", Example: 20},
					"search":    {Type: "string", Description: "Search query"},
					"sort":      {Type: "string", Description: "Comma-separated sort fields. Prefix with - for descending. Example: -created_at"},
				},
			},
		},
		Responses: map[string]*Response{
			"BadRequest":         errorResponse("Invalid request"),
			"Unauthorized":       errorResponse("Missing or invalid bearer token"),
			"NotFound":           errorResponse("Resource not found"),
			"PayloadTooLarge":    errorResponse("Upload exceeds the configured size limit"),
			"InternalError":      errorResponse("Internal failure"),
			"BadGateway":         errorResponse("Model backend failed"),
			"ServiceUnavailable": errorResponse("Metadata store unavailable"),
		},
	}
}

// AddSchemas merges the given schemas into the component schemas.
func (c *Components) AddSchemas(schemas map[string]*Schema) {
	maps.Copy(c.Schemas, schemas)
}

// AddResponses merges the given responses into the component responses.
func (c *Components) AddResponses(responses map[string]*Response) {
	maps.Copy(c.Responses, responses)
}

func errorResponse(description string) *Response {
	return &Response{
		Description: description,
		Content: map[string]*MediaType{
			"application/json": {Schema: SchemaRef("Error")},
		},
	}
}
