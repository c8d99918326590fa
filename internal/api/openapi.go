package api

import (
	"net/http"

	"github.com/JaimeStill/pestwatch/internal/config"
	"github.com/JaimeStill/pestwatch/internal/predictor"
	"github.com/JaimeStill/pestwatch/pkg/openapi"
)

type operation struct {
	method string
	path   string
	op     *openapi.Operation
}

func specJSON(cfg *config.Config) ([]byte, error) {
	spec, err := buildSpec(cfg)
	if err != nil {
		return nil, err
	}
	return openapi.MarshalJSON(spec)
}

func buildSpec(cfg *config.Config) (*openapi.Spec, error) {
	spec := openapi.NewSpec(cfg.API.OpenAPI.Title, cfg.Version)
	spec.SetDescription(cfg.API.OpenAPI.Description)
	spec.AddServer(cfg.API.BasePath)
	spec.Components.AddSchemas(schemas())

	var security []map[string][]string
	if cfg.API.Auth.Enabled {
		spec.AddBearerAuth("bearer")
		security = []map[string][]string{{"bearer": {}}}
	}

	for _, o := range operations() {
		if o.op.Tags[0] == "admin" {
			o.op.Security = security
			o.op.Responses[http.StatusUnauthorized] = openapi.ResponseRef("Unauthorized")
		}
		if err := spec.AddOperation(o.method, o.path, o.op); err != nil {
			return nil, err
		}
	}
	return spec, nil
}

func schemas() map[string]*openapi.Schema {
	labels := make([]any, len(predictor.Classes))
	for i, c := range predictor.Classes {
		labels[i] = c
	}
	nullable := func(typ string) *openapi.Schema {
		return &openapi.Schema{Type: typ, Description: "null when unresolved"}
	}
	probabilities := &openapi.Schema{Type: "object", Description: "Probability per class; sums to 1"}
	status := &openapi.Schema{Type: "string", Enum: []any{"pending", "approved", "rejected"}}

	return map[string]*openapi.Schema{
		"Location": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"latitude":  nullable("number"),
				"longitude": nullable("number"),
				"city":      nullable("string"),
				"country":   nullable("string"),
			},
		},
		"Submitter": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":        {Type: "string", Description: "RSBSA number", Example: "RSBSA-001"},
				"full_name": {Type: "string"},
				"barangay":  {Type: "string"},
				"crop":      {Type: "string"},
				"area":      {Type: "string"},
				"contact":   {Type: "string"},
			},
		},
		"Result": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"label":           {Type: "string", Enum: labels},
				"confidence":      {Type: "number", Format: "double"},
				"probabilities":   probabilities,
				"record_id":       {Type: "string", Format: "uuid"},
				"stored_filename": {Type: "string"},
				"location":        openapi.SchemaRef("Location"),
			},
		},
		"Record": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":                {Type: "string", Format: "uuid"},
				"original_filename": {Type: "string"},
				"stored_filename":   {Type: "string"},
				"artifact_location": {Type: "string"},
				"predicted_label":   {Type: "string", Enum: labels},
				"confidence":        {Type: "number", Format: "double"},
				"probabilities":     probabilities,
				"submitter":         openapi.SchemaRef("Submitter"),
				"location":          openapi.SchemaRef("Location"),
				"status":            status,
				"approved_label":    {Type: "string", Description: "Present only when approved"},
				"reviewed_at":       {Type: "string", Format: "date-time"},
				"created_at":        {Type: "string", Format: "date-time"},
			},
		},
		"Summary": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":              {Type: "string", Format: "uuid"},
				"stored_filename": {Type: "string"},
				"predicted_label": {Type: "string", Enum: labels},
				"confidence":      {Type: "number", Format: "double"},
				"status":          status,
				"approved_label":  {Type: "string"},
				"created_at":      {Type: "string", Format: "date-time"},
				"reviewed_at":     {Type: "string", Format: "date-time"},
			},
		},
		"RecordPage": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"data":        openapi.ArrayOf("Record"),
				"total":       {Type: "integer"},
				"page":        {Type: "integer"},
				"page_size":   {Type: "integer"},
				"total_pages": {Type: "integer"},
				"has_next":    {Type: "boolean"},
			},
		},
		"ReviewResult": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"status":    status,
				"record_id": {Type: "string", Format: "uuid"},
				"label":     {Type: "string", Description: "Approved label; absent on reject"},
			},
		},
		"Stats": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"total":               {Type: "integer"},
				"pending":             {Type: "integer"},
				"approved":            {Type: "integer"},
				"rejected":            {Type: "integer"},
				"distinct_submitters": {Type: "integer"},
			},
		},
		"Deleted": {
			Type:       "object",
			Properties: map[string]*openapi.Schema{"deleted": {Type: "boolean", Example: true}},
		},
		"SearchRequest": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"page":            {Type: "integer", Example: 1},
				"page_size":       {Type: "integer", Example: 20},
				"search":          {Type: "string"},
				"sort":            {Type: "string", Example: "-created_at"},
				"status":          status,
				"submitter_id":    {Type: "string"},
				"predicted_label": {Type: "string"},
				"approved_label":  {Type: "string"},
				"city":            {Type: "string"},
				"country":         {Type: "string"},
			},
		},
		"StorageListing": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"prefix": {Type: "string"},
				"objects": {Type: "array", Items: &openapi.Schema{
					Type: "object",
					Properties: map[string]*openapi.Schema{
						"key":           {Type: "string"},
						"size":          {Type: "integer"},
						"size_text":     {Type: "string"},
						"content_type":  {Type: "string"},
						"last_modified": {Type: "string", Format: "date-time"},
					},
				}},
			},
		},
	}
}

func operations() []operation {
	ref := openapi.PathParam("ref", "Record id or stored filename")
	notFound := openapi.ResponseRef("NotFound")
	badRequest := openapi.ResponseRef("BadRequest")
	internal := openapi.ResponseRef("InternalError")
	unavailable := openapi.ResponseRef("ServiceUnavailable")

	return []operation{
		{http.MethodPost, "/predict", &openapi.Operation{
			Summary: "Classify an uploaded crop image",
			Tags:    []string{"predictions"},
			RequestBody: openapi.RequestBodyMultipart(
				[]string{"file"},
				[]string{"rsbsaNumber", "fullName", "barangay", "crop", "area", "contact"},
				"file",
			),
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Classification result", "Result"),
				400: badRequest,
				413: openapi.ResponseRef("PayloadTooLarge"),
				500: internal,
				502: openapi.ResponseRef("BadGateway"),
				503: unavailable,
			},
		}},
		{http.MethodGet, "/history/{submitterId}", &openapi.Operation{
			Summary:    "List a submitter's records, newest first",
			Tags:       []string{"predictions"},
			Parameters: []*openapi.Parameter{openapi.PathParam("submitterId", "RSBSA number")},
			Responses: map[int]*openapi.Response{
				200: {Description: "Record summaries", Content: map[string]*openapi.MediaType{
					"application/json": {Schema: openapi.ArrayOf("Summary")},
				}},
				503: unavailable,
			},
		}},
		{http.MethodGet, "/records/{ref}", &openapi.Operation{
			Summary:    "Find a record",
			Tags:       []string{"records"},
			Parameters: []*openapi.Parameter{ref},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Record", "Record"),
				404: notFound,
			},
		}},
		{http.MethodGet, "/records/{ref}/artifact", &openapi.Operation{
			Summary:    "Download the stored image of a record",
			Tags:       []string{"records"},
			Parameters: []*openapi.Parameter{ref},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseBinary("Image bytes", "image/*"),
				404: notFound,
				500: internal,
			},
		}},
		{http.MethodPost, "/admin/approve/{ref}/{label}", &openapi.Operation{
			Summary:     "Approve a record",
			Description: "Labels outside the known classes are stored as unknown.",
			Tags:        []string{"admin"},
			Parameters:  []*openapi.Parameter{ref, openapi.PathParam("label", "Approved class label")},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Review applied", "ReviewResult"),
				404: notFound,
				503: unavailable,
			},
		}},
		{http.MethodPost, "/admin/reject/{ref}", &openapi.Operation{
			Summary:    "Reject a record",
			Tags:       []string{"admin"},
			Parameters: []*openapi.Parameter{ref},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Review applied", "ReviewResult"),
				404: notFound,
				503: unavailable,
			},
		}},
		{http.MethodDelete, "/admin/records/{id}", &openapi.Operation{
			Summary:    "Delete a record and its image",
			Tags:       []string{"admin"},
			Parameters: []*openapi.Parameter{openapi.UUIDParam("id", "Record id")},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Deleted", "Deleted"),
				400: badRequest,
				404: notFound,
			},
		}},
		{http.MethodGet, "/admin/stats", &openapi.Operation{
			Summary: "Aggregate record counts",
			Tags:    []string{"admin"},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Counts", "Stats"),
				503: unavailable,
			},
		}},
		{http.MethodGet, "/admin/records", &openapi.Operation{
			Summary: "List records",
			Tags:    []string{"admin"},
			Parameters: []*openapi.Parameter{
				openapi.QueryParam("page", "integer", "Page number", false),
				openapi.QueryParam("page_size", "integer", "Results per page", false),
				openapi.QueryParam("search", "string", "Filename or submitter name", false),
				openapi.QueryParam("sort", "string", "Sort fields", false),
				openapi.QueryParam("status", "string", "Review status", false),
				openapi.QueryParam("submitter_id", "string", "RSBSA number", false),
				openapi.QueryParam("predicted_label", "string", "Predicted class", false),
				openapi.QueryParam("approved_label", "string", "Approved class", false),
				openapi.QueryParam("city", "string", "City", false),
				openapi.QueryParam("country", "string", "Country", false),
			},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Page of records", "RecordPage"),
				400: badRequest,
			},
		}},
		{http.MethodGet, "/admin/records/pending", &openapi.Operation{
			Summary: "List pending records, newest first",
			Tags:    []string{"admin"},
			Responses: map[int]*openapi.Response{
				200: {Description: "Pending records", Content: map[string]*openapi.MediaType{
					"application/json": {Schema: openapi.ArrayOf("Record")},
				}},
			},
		}},
		{http.MethodGet, "/admin/records/location", &openapi.Operation{
			Summary: "List records by resolved location",
			Tags:    []string{"admin"},
			Parameters: []*openapi.Parameter{
				openapi.QueryParam("city", "string", "City", false),
				openapi.QueryParam("country", "string", "Country", false),
			},
			Responses: map[int]*openapi.Response{
				200: {Description: "Records", Content: map[string]*openapi.MediaType{
					"application/json": {Schema: openapi.ArrayOf("Record")},
				}},
			},
		}},
		{http.MethodPost, "/admin/records/search", &openapi.Operation{
			Summary: "Search records",
			Tags:    []string{"admin"},
			RequestBody: openapi.RequestBodyJSON("SearchRequest", true),
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Page of records", "RecordPage"),
				400: badRequest,
			},
		}},
		{http.MethodGet, "/admin/storage", &openapi.Operation{
			Summary: "Browse stored artifacts",
			Tags:    []string{"admin"},
			Parameters: []*openapi.Parameter{
				openapi.QueryParam("prefix", "string", "Key prefix such as pending/ or approved/snail/", false),
				openapi.QueryParam("max_results", "integer", "Maximum objects returned", false),
			},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Objects", "StorageListing"),
				400: badRequest,
			},
		}},
		{http.MethodGet, "/admin/storage/download/{key}", &openapi.Operation{
			Summary:    "Download an artifact by storage key",
			Tags:       []string{"admin"},
			Parameters: []*openapi.Parameter{openapi.PathParam("key", "Storage key")},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseBinary("Artifact bytes", "application/octet-stream"),
				404: notFound,
			},
		}},
	}
}
