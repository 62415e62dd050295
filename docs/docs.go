// Package docs is generated by swag init; regenerate with go generate ./cmd/massd.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/healthz": {
            "get": {"tags": ["health"], "summary": "Health check", "responses": {"200": {"description": "OK"}}}
        },
        "/readyz": {
            "get": {"tags": ["health"], "summary": "Readiness check", "responses": {"200": {"description": "OK"}, "503": {"description": "Service Unavailable"}}}
        },
        "/api/v1/schedule/preview": {
            "post": {
                "consumes": ["application/json"],
                "tags": ["schedule"],
                "summary": "Preview the schedule of an intention",
                "parameters": [{"description": "intention draft", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.draftRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.apiResponse"}}}
            }
        },
        "/api/v1/schedule/confirm": {
            "post": {
                "consumes": ["application/json"],
                "tags": ["schedule"],
                "summary": "Confirm a previewed schedule",
                "parameters": [{"description": "draft and the preview returned for it", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.confirmRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.apiResponse"}}, "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.apiResponse"}}}
            }
        },
        "/api/v1/intentions/{id}": {
            "get": {
                "tags": ["intentions"],
                "summary": "Get an intention with its events",
                "parameters": [{"type": "integer", "description": "intention id", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}}, "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.apiResponse"}}}
            }
        },
        "/api/v1/celebrants": {
            "get": {
                "tags": ["celebrants"],
                "summary": "List celebrants",
                "parameters": [{"type": "boolean", "description": "only active celebrants (default true)", "name": "active", "in": "query"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}}}
            }
        },
        "/api/v1/celebrants/{id}/availability": {
            "get": {
                "tags": ["celebrants"],
                "summary": "Check whether a celebrant is free on a date",
                "parameters": [
                    {"type": "integer", "description": "celebrant id", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "YYYY-MM-DD (default today)", "name": "date", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}}, "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.apiResponse"}}}
            }
        },
        "/api/v1/availability": {
            "get": {
                "tags": ["celebrants"],
                "summary": "List celebrants free on a date",
                "parameters": [{"type": "string", "description": "YYYY-MM-DD (default today)", "name": "date", "in": "query"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}}}
            }
        },
        "/api/v1/special-days": {
            "get": {
                "tags": ["special-days"],
                "summary": "List blackout days",
                "parameters": [
                    {"type": "string", "description": "YYYY-MM-DD (default today)", "name": "from", "in": "query"},
                    {"type": "string", "description": "YYYY-MM-DD (default from + 1 year)", "name": "to", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}}}
            }
        },
        "/api/v1/special-days/import": {
            "post": {
                "consumes": ["text/calendar"],
                "tags": ["special-days"],
                "summary": "Import an ICS calendar of blackout days",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.apiResponse"}}}
            }
        },
        "/api/v1/special-days/sync": {
            "post": {
                "tags": ["special-days"],
                "summary": "Fetch the configured ICS calendar now",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}}, "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handler.apiResponse"}}}
            }
        },
        "/api/v1/lifecycle/sweep": {
            "post": {
                "tags": ["lifecycle"],
                "summary": "Run the lifecycle sweep now",
                "parameters": [{"type": "string", "description": "YYYY-MM-DD (default today in the app timezone)", "name": "as_of", "in": "query"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}}, "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.apiResponse"}}}
            }
        },
        "/api/v1/lifecycle/runs": {
            "get": {
                "tags": ["lifecycle"],
                "summary": "List recorded sweep runs",
                "parameters": [
                    {"type": "integer", "description": "page size", "name": "limit", "in": "query"},
                    {"type": "integer", "description": "offset", "name": "offset", "in": "query"},
                    {"type": "string", "description": "YYYY-MM-DD or RFC3339", "name": "since", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}}}
            }
        },
        "/api/v1/settings": {
            "get": {"tags": ["settings"], "summary": "List feature switches", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}}}}
        },
        "/api/v1/settings/{key}": {
            "get": {
                "tags": ["settings"],
                "summary": "Get one feature switch",
                "parameters": [{"type": "string", "description": "switch key, e.g. feature.continuation (prefix optional)", "name": "key", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}}}
            },
            "put": {
                "consumes": ["application/json"],
                "tags": ["settings"],
                "summary": "Turn a feature switch on or off",
                "parameters": [
                    {"type": "string", "description": "switch key, e.g. feature.continuation (prefix optional)", "name": "key", "in": "path", "required": true},
                    {"description": "new state", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.putSwitchRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.apiResponse"}}}
            }
        }
    },
    "definitions": {
        "handler.apiResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "message": {"type": "string"},
                "data": {},
                "meta": {"type": "object", "additionalProperties": true}
            }
        },
        "handler.recurrenceRequest": {
            "type": "object",
            "properties": {
                "type": {"type": "string"},
                "start_date": {"type": "string"},
                "end_type": {"type": "string"},
                "occurrences": {"type": "integer"},
                "end_date": {"type": "string"},
                "position": {"type": "string"},
                "weekday": {"type": "string"}
            }
        },
        "handler.draftRequest": {
            "type": "object",
            "properties": {
                "description": {"type": "string"},
                "deceased": {"type": "boolean"},
                "occurrence_count": {"type": "integer"},
                "intention_type": {"type": "string"},
                "date_type": {"type": "string"},
                "requested_date": {"type": "string"},
                "celebrant_id": {"type": "integer"},
                "donor_id": {"type": "integer"},
                "offering": {"type": "string"},
                "recurrence": {"$ref": "#/definitions/handler.recurrenceRequest"}
            }
        },
        "handler.previewItemDTO": {
            "type": "object",
            "properties": {
                "index": {"type": "integer"},
                "date": {"type": "string"},
                "celebrant_id": {"type": "integer"},
                "status": {"type": "string"},
                "error_code": {"type": "string"},
                "original_date": {"type": "string"},
                "changed_date": {"type": "boolean"}
            }
        },
        "handler.confirmRequest": {
            "type": "object",
            "properties": {
                "draft": {"$ref": "#/definitions/handler.draftRequest"},
                "preview": {"type": "array", "items": {"$ref": "#/definitions/handler.previewItemDTO"}}
            }
        },
        "handler.putSwitchRequest": {
            "type": "object",
            "properties": {
                "enabled": {"type": "boolean"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "Mass Manager Scheduling API",
	Description:      "Intention preview and confirmation, celebrant availability, special days and the lifecycle sweep.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
