package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Fleet Service API",
        "description": "Service request lifecycle and technician scheduling",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Requests", "description": "Service request intake and lifecycle transitions"},
        {"name": "Bulk", "description": "Batch scheduling and status changes"},
        {"name": "Technicians", "description": "Technician roster mirror and booked schedule"},
        {"name": "Health", "description": "Liveness and metrics"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Health"],
                "summary": "Liveness and dependency status",
                "responses": {
                    "200": {"description": "OK"},
                    "503": {"description": "A dependency is unreachable"}
                }
            }
        },
        "/metrics": {
            "get": {
                "tags": ["Health"],
                "summary": "Prometheus metrics",
                "produces": ["text/plain"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/requests": {
            "post": {
                "tags": ["Requests"],
                "summary": "Create a service request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/CreateServiceRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Role cannot create requests", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/requests/{id}": {
            "get": {
                "tags": ["Requests"],
                "summary": "Get a service request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Requests"],
                "summary": "Delete a NEW service request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "403": {"description": "Not the creator", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Request already left NEW", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/requests/{id}/transitions": {
            "post": {
                "tags": ["Requests"],
                "summary": "Apply a lifecycle action",
                "description": "Actions: SCHEDULE, RESCHEDULE, UNASSIGN, START, COMPLETE, REPORT_ISSUE, UPDATE_NOTES, OFFICE_PATCH.",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"},
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/TransitionBody"}}
                ],
                "responses": {
                    "200": {"description": "Updated request and emitted intents", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload or window", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Actor not permitted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Invalid transition or scheduling conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/requests/{id}/schedule": {
            "put": {
                "tags": ["Requests"],
                "summary": "Re-window a scheduled or in-progress request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"},
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/ScheduleBody"}}
                ],
                "responses": {
                    "200": {"description": "Booked block", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Scheduling conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/requests/bulk": {
            "post": {
                "tags": ["Bulk"],
                "summary": "Apply one operation to many requests",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/BulkRequest"}}
                ],
                "responses": {
                    "200": {"description": "Per-item results", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Every item failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/technicians/{id}": {
            "put": {
                "tags": ["Technicians"],
                "summary": "Mirror a technician from the roster",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"},
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/TechnicianBody"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/technicians/{id}/schedule": {
            "get": {
                "tags": ["Technicians"],
                "summary": "List a technician's booked blocks",
                "security": [{"BearerAuth": []}],
                "produces": [
                    "application/json",
                    "text/csv",
                    "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
                ],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"},
                    {"in": "query", "name": "from", "type": "string", "format": "date-time"},
                    {"in": "query", "name": "to", "type": "string", "format": "date-time"},
                    {"in": "query", "name": "format", "type": "string", "enum": ["json", "csv", "xlsx"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Technicians only see their own schedule", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreateServiceRequest": {
            "type": "object",
            "required": ["vehicle_id", "location_id"],
            "properties": {
                "customer_id": {"type": "string"},
                "vehicle_id": {"type": "string"},
                "location_id": {"type": "string"},
                "description": {"type": "string"},
                "priority": {"type": "string", "enum": ["LOW", "MEDIUM", "HIGH", "CRITICAL"]}
            }
        },
        "Window": {
            "type": "object",
            "required": ["start", "end"],
            "properties": {
                "start": {"type": "string", "format": "date-time"},
                "end": {"type": "string", "format": "date-time"},
                "snap": {"type": "boolean"}
            }
        },
        "PartUsage": {
            "type": "object",
            "properties": {
                "part_id": {"type": "string"},
                "quantity": {"type": "integer"}
            }
        },
        "TransitionBody": {
            "type": "object",
            "required": ["action"],
            "properties": {
                "action": {"type": "string"},
                "payload": {
                    "type": "object",
                    "properties": {
                        "technician_id": {"type": "string"},
                        "window": {"$ref": "#/definitions/Window"},
                        "reason": {"type": "string"},
                        "note": {"type": "string"},
                        "parts": {"type": "array", "items": {"$ref": "#/definitions/PartUsage"}},
                        "patch": {
                            "type": "object",
                            "properties": {
                                "office_notes": {"type": "string"},
                                "description": {"type": "string"},
                                "priority": {"type": "string"},
                                "status": {"type": "string"}
                            }
                        }
                    }
                }
            }
        },
        "ScheduleBody": {
            "type": "object",
            "properties": {
                "technician_id": {"type": "string"},
                "window": {"$ref": "#/definitions/Window"}
            }
        },
        "BulkRequest": {
            "type": "object",
            "required": ["operation", "request_ids"],
            "properties": {
                "operation": {"type": "string", "enum": ["assign", "unassign", "reschedule", "status"]},
                "request_ids": {"type": "array", "items": {"type": "string"}, "maxItems": 200},
                "params": {
                    "type": "object",
                    "properties": {
                        "technician_id": {"type": "string"},
                        "window": {"$ref": "#/definitions/Window"},
                        "status": {"type": "string"}
                    }
                }
            }
        },
        "TechnicianBody": {
            "type": "object",
            "required": ["name"],
            "properties": {
                "name": {"type": "string"},
                "active": {"type": "boolean"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "object"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
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
