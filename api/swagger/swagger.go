package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Police Evidence Custody API",
        "description": "Digital evidence ingest, custody and retention service",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Evidence", "description": "Evidence lifecycle"},
        {"name": "Metrics", "description": "Storage usage and cost"}
    ],
    "paths": {
        "/evidence": {
            "get": {
                "tags": ["Evidence"],
                "summary": "List evidence for a case",
                "parameters": [
                    {"name": "caseId", "in": "query", "required": true, "type": "string"},
                    {"name": "evidenceType", "in": "query", "type": "string"},
                    {"name": "includeDeleted", "in": "query", "type": "boolean"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Evidence"],
                "summary": "Ingest an evidence artifact",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "caseId", "in": "formData", "required": true, "type": "string"},
                    {"name": "evidenceType", "in": "formData", "required": true, "type": "string"},
                    {"name": "description", "in": "formData", "type": "string"},
                    {"name": "source", "in": "formData", "type": "string"},
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Payload rejected", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/evidence/meta/{key}": {
            "get": {
                "tags": ["Evidence"],
                "summary": "Get evidence metadata with custody chain",
                "parameters": [
                    {"name": "key", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/evidence/download/{key}": {
            "get": {
                "tags": ["Evidence"],
                "summary": "Retrieve verified artifact bytes or a presigned URL",
                "parameters": [
                    {"name": "key", "in": "path", "required": true, "type": "string"},
                    {"name": "presigned", "in": "query", "type": "boolean"},
                    {"name": "ttl", "in": "query", "type": "integer", "description": "Presigned TTL in seconds"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not found"},
                    "500": {"description": "Integrity violation"}
                }
            }
        },
        "/evidence/presign-upload": {
            "post": {
                "tags": ["Evidence"],
                "summary": "Mint a direct-upload capability URL",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PresignUploadRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/evidence/custody/{key}": {
            "get": {
                "tags": ["Evidence"],
                "summary": "Export the chain of custody as CSV or PDF",
                "parameters": [
                    {"name": "key", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "description": "json, csv or pdf"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/evidence/audit/{key}": {
            "get": {
                "tags": ["Evidence"],
                "summary": "List audit events for an artifact",
                "parameters": [
                    {"name": "key", "in": "path", "required": true, "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer", "description": "Default 100"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden"}
                }
            }
        },
        "/evidence/{key}": {
            "delete": {
                "tags": ["Evidence"],
                "summary": "Retire an artifact (backup-before-delete)",
                "parameters": [
                    {"name": "key", "in": "path", "required": true, "type": "string"},
                    {"name": "backup", "in": "query", "type": "boolean", "description": "Default true"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden"}
                }
            }
        },
        "/evidence/restore": {
            "post": {
                "tags": ["Evidence"],
                "summary": "Request reactivation of an archived backup",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RestoreRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/metrics/storage": {
            "get": {
                "tags": ["Metrics"],
                "summary": "Storage usage, cost estimate and threshold alerts",
                "parameters": [
                    {"name": "window", "in": "query", "type": "string", "description": "Duration such as 24h"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "Evidence": {
            "type": "object",
            "properties": {
                "storageKey": {"type": "string"},
                "caseId": {"type": "string"},
                "originalFilename": {"type": "string"},
                "evidenceType": {"type": "string"},
                "contentType": {"type": "string"},
                "sizeBytes": {"type": "integer"},
                "digestSha256": {"type": "string"},
                "storageClass": {"type": "string"},
                "encryptionMode": {"type": "string"},
                "uploadedBy": {"type": "string"},
                "uploadedAt": {"type": "string"},
                "isDeleted": {"type": "boolean"},
                "chainOfCustody": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/CustodyEntry"}
                }
            }
        },
        "AuditEvent": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "actorId": {"type": "string"},
                "action": {"type": "string"},
                "resourceKey": {"type": "string"},
                "detail": {"type": "object"},
                "createdAt": {"type": "string"}
            }
        },
        "CustodyEntry": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "action": {"type": "string"},
                "actorId": {"type": "string"},
                "occurredAt": {"type": "string"},
                "note": {"type": "string"}
            }
        },
        "PresignUploadRequest": {
            "type": "object",
            "properties": {
                "caseId": {"type": "string"},
                "filename": {"type": "string"},
                "contentType": {"type": "string"},
                "evidenceType": {"type": "string"},
                "ttlSeconds": {"type": "integer"}
            },
            "required": ["caseId", "filename", "contentType", "evidenceType"]
        },
        "RestoreRequest": {
            "type": "object",
            "properties": {
                "key": {"type": "string"},
                "days": {"type": "integer", "minimum": 1, "maximum": 30},
                "tier": {"type": "string", "enum": ["Expedited", "Standard", "Bulk"]}
            },
            "required": ["key"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "total": {"type": "integer"},
                "limit": {"type": "integer"},
                "offset": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
