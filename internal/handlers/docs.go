package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
)

type object = map[string]interface{}

func ref(name string) object {
	return object{"$ref": "#/components/schemas/" + name}
}

func jsonContent(schema object) object {
	return object{"application/json": object{"schema": schema}}
}

func queryParam(name, description string, schema object) object {
	return object{
		"name":        name,
		"in":          "query",
		"description": description,
		"required":    false,
		"schema":      schema,
	}
}

func pathID() object {
	return object{
		"name":        "id",
		"in":          "path",
		"description": "QC run ID",
		"required":    true,
		"schema":      object{"type": "string", "format": "uuid"},
	}
}

func paginationParams() []object {
	return []object{
		queryParam("page", "Page number (default: 1)", object{"type": "integer", "default": 1}),
		queryParam("limit", "Items per page (default: 100, max: 1000)", object{"type": "integer", "default": 100}),
	}
}

func page(items object) object {
	return object{
		"type": "object",
		"properties": object{
			"data":        object{"type": "array", "items": items},
			"total":       object{"type": "integer"},
			"page":        object{"type": "integer"},
			"limit":       object{"type": "integer"},
			"total_pages": object{"type": "integer"},
		},
	}
}

func errorResponses(codes ...int) object {
	out := object{}
	for _, code := range codes {
		out[strconv.Itoa(code)] = object{
			"description": http.StatusText(code),
			"content":     jsonContent(ref("Error")),
		}
	}
	return out
}

func withResponses(base object, status string, description string, content object) object {
	base[status] = object{"description": description, "content": content}
	return base
}

func nullableNumber() object {
	return object{"type": "number", "nullable": true}
}

func schemas() object {
	counts := object{
		"type": "object",
		"properties": object{
			"label":      object{"type": "string", "example": "1. No Data"},
			"precip":     object{"type": "integer"},
			"max_temp":   object{"type": "integer"},
			"min_temp":   object{"type": "integer"},
			"wind_speed": object{"type": "integer"},
		},
	}

	return object{
		"Run": object{
			"type": "object",
			"properties": object{
				"id":           object{"type": "string", "format": "uuid"},
				"source":       object{"type": "string"},
				"status":       object{"type": "string", "enum": []string{"completed", "failed"}},
				"record_count": object{"type": "integer"},
				"first_date":   object{"type": "string", "format": "date-time"},
				"last_date":    object{"type": "string", "format": "date-time"},
				"started_at":   object{"type": "string", "format": "date-time"},
				"completed_at": object{"type": "string", "format": "date-time"},
			},
		},
		"Ledger": object{
			"type":        "array",
			"description": "One row per check, in pipeline order; counts of values altered per field",
			"items":       counts,
			"minItems":    4,
			"maxItems":    4,
		},
		"Record": object{
			"type": "object",
			"properties": object{
				"date":       object{"type": "string", "format": "date-time"},
				"precip":     nullableNumber(),
				"max_temp":   nullableNumber(),
				"min_temp":   nullableNumber(),
				"wind_speed": nullableNumber(),
			},
		},
		"StageSummary": object{
			"type": "object",
			"properties": object{
				"stage": object{"type": "string"},
				"fields": object{
					"type": "array",
					"items": object{
						"type": "object",
						"properties": object{
							"field":  object{"type": "string"},
							"count":  object{"type": "integer"},
							"absent": object{"type": "integer"},
							"mean":   nullableNumber(),
							"std":    nullableNumber(),
							"min":    nullableNumber(),
							"q25":    nullableNumber(),
							"median": nullableNumber(),
							"q75":    nullableNumber(),
							"max":    nullableNumber(),
						},
					},
				},
			},
		},
		"Result": object{
			"type": "object",
			"properties": object{
				"run":       ref("Run"),
				"ledger":    ref("Ledger"),
				"summaries": object{"type": "array", "items": ref("StageSummary")},
			},
		},
		"RunDetail": object{
			"type": "object",
			"properties": object{
				"run":    ref("Run"),
				"ledger": ref("Ledger"),
			},
		},
		"Error": object{
			"type": "object",
			"properties": object{
				"error":   object{"type": "string"},
				"message": object{"type": "string"},
				"code":    object{"type": "integer"},
			},
		},
	}
}

// OpenAPIDocument builds the OpenAPI 3.0 document of the QC API
func OpenAPIDocument() object {
	return object{
		"openapi": "3.0.0",
		"info": object{
			"title":       "Weather QC API",
			"description": "Quality control of daily weather series: No Data, Gross Error, Swapped and Range Fail checks with a per-field defect ledger",
			"version":     "1.0.0",
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": object{
			"/api/qc/runs": object{
				"post": object{
					"summary":     "Run quality control",
					"description": "Runs the four checks over the uploaded data file (lines of 'date precip max_temp min_temp wind_speed') and returns the run, its ledger and per-stage summaries",
					"parameters": []object{
						queryParam("source", "Name recorded as the run source (default: upload)", object{"type": "string"}),
					},
					"requestBody": object{
						"required": true,
						"content":  object{"text/plain": object{"schema": object{"type": "string"}}},
					},
					"responses": withResponses(
						errorResponses(400, 413, 500),
						"201", "Run completed", jsonContent(ref("Result")),
					),
				},
				"get": object{
					"summary":    "List runs",
					"parameters": paginationParams(),
					"responses": withResponses(
						errorResponses(500, 503),
						"200", "Successful response", jsonContent(page(ref("Run"))),
					),
				},
			},
			"/api/qc/runs/{id}": object{
				"get": object{
					"summary":    "Get a run and its defect ledger",
					"parameters": []object{pathID()},
					"responses": withResponses(
						errorResponses(404, 500, 503),
						"200", "Successful response", jsonContent(ref("RunDetail")),
					),
				},
			},
			"/api/qc/runs/{id}/records": object{
				"get": object{
					"summary": "Get the records of a run after all checks",
					"parameters": append([]object{
						pathID(),
						queryParam("start_date", "Filter by start date (YYYY-MM-DD)", object{"type": "string", "format": "date"}),
						queryParam("end_date", "Filter by end date (YYYY-MM-DD)", object{"type": "string", "format": "date"}),
					}, paginationParams()...),
					"responses": withResponses(
						errorResponses(400, 404, 500, 503),
						"200", "Successful response", jsonContent(page(ref("Record"))),
					),
				},
			},
			"/health": object{
				"get": object{
					"summary": "Health check",
					"responses": object{
						"200": object{"description": "API is healthy"},
						"503": object{"description": "Database is unreachable"},
					},
				},
			},
			"/metrics": object{
				"get": object{
					"summary": "Prometheus metrics",
					"responses": object{
						"200": object{
							"description": "Prometheus metrics in text format",
							"content":     object{"text/plain": object{"schema": object{"type": "string"}}},
						},
					},
				},
			},
		},
		"components": object{"schemas": schemas()},
	}
}

// OpenAPISpec serves the OpenAPI document
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(OpenAPIDocument())
}
