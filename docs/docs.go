// Package docs holds the OpenAPI description of the recognizer API.
//
//	@title			Passport Recognizer API
//	@version		1.0
//	@description	MRZ recognition from passport photos and NFC chip scan ingestion.
//	@BasePath		/
package docs

import "github.com/swaggo/swag"

//go:generate swag init -g ../server.go -o . --outputTypes go

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
        "/api/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Liveness check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.HealthResponse"}}
                }
            }
        },
        "/api/passport/recognize": {
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["passport"],
                "summary": "Read the BAC keys from a passport photo",
                "parameters": [
                    {"type": "file", "description": "Photo of the passport data page", "name": "image", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "MRZ keys, or an error object when none were found", "schema": {"$ref": "#/definitions/mrz.Keys"}},
                    "400": {"description": "Missing image"}
                }
            }
        },
        "/api/v2/passport/recognize": {
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["passport"],
                "summary": "Read every data page field with confidences and zones",
                "parameters": [
                    {"type": "file", "description": "Photo of the passport data page", "name": "image", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "Recognition result", "schema": {"$ref": "#/definitions/ocrv2.Response"}}
                }
            }
        },
        "/api/passport/nfc": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["nfc"],
                "summary": "Store an NFC chip scan",
                "parameters": [
                    {"description": "Chip scan", "name": "scan", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.NFCScanRequest"}}
                ],
                "responses": {
                    "200": {"description": "Stored", "schema": {"$ref": "#/definitions/models.NFCScanResponse"}},
                    "422": {"description": "Invalid payload"}
                }
            }
        },
        "/api/nfc/{scan_id}/face.jpg": {
            "get": {
                "produces": ["image/jpeg"],
                "tags": ["nfc"],
                "summary": "Face image of a stored scan",
                "parameters": [
                    {"type": "string", "description": "Scan id", "name": "scan_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "JPEG image"},
                    "404": {"description": "Unknown scan"}
                }
            }
        },
        "/api/events": {
            "get": {
                "produces": ["text/event-stream"],
                "tags": ["events"],
                "summary": "Server-sent events for stored scans",
                "responses": {
                    "200": {"description": "Event stream"}
                }
            }
        },
        "/api/errors": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Report a client application error",
                "parameters": [
                    {"description": "Error report", "name": "report", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.AppErrorRequest"}}
                ],
                "responses": {
                    "200": {"description": "Stored", "schema": {"$ref": "#/definitions/models.AppErrorResponse"}},
                    "422": {"description": "Invalid report"}
                }
            }
        }
    },
    "definitions": {
        "models.HealthResponse": {
            "type": "object",
            "properties": {"ok": {"type": "boolean"}}
        },
        "mrz.Keys": {
            "type": "object",
            "properties": {
                "document_number": {"type": "string"},
                "date_of_birth": {"type": "string", "example": "900101"},
                "date_of_expiry": {"type": "string", "example": "300101"}
            }
        },
        "ocrv2.Response": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"},
                "status": {"type": "string", "enum": ["ok", "error"]},
                "document_type": {"type": "string", "example": "passport"},
                "model_confidence": {"type": "number"},
                "fields": {"type": "object", "additionalProperties": {"type": "object"}},
                "mrz": {"type": "object"},
                "zones": {"type": "array", "items": {"type": "object"}},
                "checks": {"type": "array", "items": {"type": "object"}},
                "errors": {"type": "array", "items": {"type": "object"}},
                "raw": {"type": "object"}
            }
        },
        "models.NFCScanRequest": {
            "type": "object",
            "properties": {
                "passport": {"type": "object"},
                "mrz": {"type": "object"},
                "face_image_b64": {"type": "string"},
                "data_groups": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "models.NFCScanResponse": {
            "type": "object",
            "properties": {
                "scan_id": {"type": "string"},
                "status": {"type": "string", "example": "stored"},
                "face_image_url": {"type": "string"},
                "passport": {"type": "object"}
            }
        },
        "models.AppErrorRequest": {
            "type": "object",
            "required": ["platform", "error_message"],
            "properties": {
                "ts_utc": {"type": "string"},
                "platform": {"type": "string"},
                "app_version": {"type": "string"},
                "error_message": {"type": "string"},
                "stacktrace": {"type": "string"},
                "context_json": {"type": "object"},
                "user_agent": {"type": "string"},
                "device_info": {"type": "string"},
                "request_id": {"type": "string"}
            }
        },
        "models.AppErrorResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "id": {"type": "integer"}
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
	Title:            "Passport Recognizer API",
	Description:      "MRZ recognition from passport photos and NFC chip scan ingestion.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
