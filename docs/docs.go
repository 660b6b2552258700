// Package docs holds the OpenAPI document served at /swagger.
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
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/reports": {
            "get": {
                "produces": ["application/json"],
                "tags": ["reports"],
                "summary": "List report runs",
                "parameters": [
                    {"type": "integer", "default": 10, "description": "page size", "name": "limit", "in": "query"},
                    {"type": "integer", "default": 0, "description": "offset", "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.ReportListResult"}}
                }
            },
            "post": {
                "produces": ["application/json"],
                "tags": ["reports"],
                "summary": "Run a report now",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/model.ReportRun"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/reports/latest": {
            "get": {
                "produces": ["application/json"],
                "tags": ["reports"],
                "summary": "Latest report run",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.ReportRun"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/reports/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["reports"],
                "summary": "Report run by ID",
                "parameters": [
                    {"type": "string", "description": "run ID (UUID)", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.ReportRun"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/reports/{id}/download": {
            "get": {
                "tags": ["reports"],
                "summary": "Download a published report",
                "parameters": [
                    {"type": "string", "description": "run ID (UUID)", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "307": {"description": "Temporary Redirect"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        }
    },
    "definitions": {
        "handler.errorEnvelope": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "handler.errorPayload": {
            "type": "object",
            "properties": {
                "error": {"$ref": "#/definitions/handler.errorEnvelope"},
                "request_id": {"type": "string"}
            }
        },
        "model.ReportItem": {
            "type": "object",
            "properties": {
                "endpoint": {"type": "string"},
                "status": {"type": "string", "enum": ["unavailable", "invalid", "available"]}
            }
        },
        "model.ReportMetadata": {
            "type": "object",
            "properties": {
                "date": {"type": "string"},
                "timeout": {"type": "integer"},
                "version": {"type": "integer"}
            }
        },
        "model.Report": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"$ref": "#/definitions/model.ReportItem"}},
                "metadata": {"$ref": "#/definitions/model.ReportMetadata"}
            }
        },
        "model.StatusCounts": {
            "type": "object",
            "properties": {
                "available": {"type": "integer"},
                "invalid": {"type": "integer"},
                "total": {"type": "integer"},
                "unavailable": {"type": "integer"}
            }
        },
        "model.ReportRun": {
            "type": "object",
            "properties": {
                "counts": {"$ref": "#/definitions/model.StatusCounts"},
                "created_at": {"type": "string"},
                "file_name": {"type": "string"},
                "id": {"type": "string"},
                "report": {"$ref": "#/definitions/model.Report"},
                "storage_key": {"type": "string"}
            }
        },
        "service.ReportListResult": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"$ref": "#/definitions/model.ReportRun"}},
                "total": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "SPARQL Endpoint Report API",
	Description:      "Runs and serves SPARQL endpoint accessibility reports.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
