// Package docs holds the OpenAPI document served under /swagger/.
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
        "/api/inventory/v1/products": {
            "get": {
                "produces": ["application/json"],
                "tags": ["inventory"],
                "summary": "List products in a warehouse",
                "parameters": [
                    {"type": "string", "name": "warehouse_id", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["inventory"],
                "summary": "Create a product",
                "parameters": [
                    {"name": "body", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {"200": {"description": "Command result"}}
            }
        },
        "/api/inventory/v1/products/{product_id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["inventory"],
                "summary": "Get one product",
                "parameters": [
                    {"type": "string", "name": "product_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Product not found"}
                }
            }
        },
        "/api/inventory/v1/products/{product_id}/stock": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["inventory"],
                "summary": "Add stock to a product",
                "parameters": [
                    {"type": "string", "name": "product_id", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {"200": {"description": "Command result"}}
            }
        },
        "/api/inventory/v1/reservations": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["inventory"],
                "summary": "Reserve stock for an order, all items or none",
                "parameters": [
                    {"name": "body", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "Command result"},
                    "202": {"description": "Conflict retry scheduled"}
                }
            }
        },
        "/api/inventory/v1/reservations/{reservation_id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["inventory"],
                "summary": "Get one reservation",
                "parameters": [
                    {"type": "string", "name": "reservation_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Reservation not found"}
                }
            }
        },
        "/api/inventory/v1/reservations/{reservation_id}/confirm": {
            "post": {
                "produces": ["application/json"],
                "tags": ["inventory"],
                "summary": "Confirm a pending reservation",
                "parameters": [
                    {"type": "string", "name": "reservation_id", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "Command result"}}
            }
        },
        "/api/inventory/v1/reservations/{reservation_id}/release": {
            "post": {
                "produces": ["application/json"],
                "tags": ["inventory"],
                "summary": "Release a reservation and return its stock",
                "parameters": [
                    {"type": "string", "name": "reservation_id", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "Command result"}}
            }
        },
        "/api/inventory/v1/warehouses/{warehouse_id}/reconcile": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["inventory"],
                "summary": "Reconcile a client's optimistic view against the durable projection",
                "parameters": [
                    {"type": "string", "name": "warehouse_id", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {"200": {"description": "Verdict"}}
            }
        },
        "/api/orders/v1/orders": {
            "get": {
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "List orders",
                "parameters": [
                    {"type": "string", "name": "status", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Submit an order",
                "parameters": [
                    {"name": "body", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {"200": {"description": "Command result"}}
            }
        },
        "/api/orders/v1/orders/{order_id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Get one order",
                "parameters": [
                    {"type": "string", "name": "order_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Order not found"}
                }
            }
        },
        "/api/orders/v1/orders/{order_id}/confirm": {
            "post": {
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Confirm a submitted order",
                "parameters": [
                    {"type": "string", "name": "order_id", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "Command result"}}
            }
        },
        "/api/orders/v1/orders/{order_id}/cancel": {
            "post": {
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Cancel an order",
                "parameters": [
                    {"type": "string", "name": "order_id", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "Command result"}}
            }
        },
        "/api/sagas/v1/fulfillment/{saga_id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["sagas"],
                "summary": "Get one fulfillment saga",
                "parameters": [
                    {"type": "string", "name": "saga_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Saga not found"}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["sagas"],
                "summary": "Remove a finished saga and its step history",
                "parameters": [
                    {"type": "string", "name": "saga_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Saga still running"}
                }
            }
        },
        "/api/sagas/v1/fulfillment/{saga_id}/steps": {
            "get": {
                "produces": ["application/json"],
                "tags": ["sagas"],
                "summary": "Get the step history of a saga",
                "parameters": [
                    {"type": "string", "name": "saga_id", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/sagas/v1/fulfillment/{saga_id}/cancel": {
            "post": {
                "produces": ["application/json"],
                "tags": ["sagas"],
                "summary": "Force a running saga onto its compensation path",
                "parameters": [
                    {"type": "string", "name": "saga_id", "in": "path", "required": true}
                ],
                "responses": {
                    "202": {"description": "Cancellation requested"},
                    "409": {"description": "Saga already finished"}
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Meridian Commerce API",
	Description:      "Event-sourced inventory, orders and fulfillment workflows.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
