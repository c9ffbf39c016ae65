package api

// Minimal OpenAPI document served at /swagger.json.
const openAPISpec = `{
  "openapi": "3.0.0",
  "info": {
    "title": "Stock Service API",
    "version": "1.0.0"
  },
  "paths": {
    "/health": {
      "get": {
        "summary": "Health check",
        "responses": {
          "200": {
            "description": "Service is healthy",
            "content": {
              "application/json": {
                "schema": { "$ref": "#/components/schemas/HealthResponse" }
              }
            }
          }
        }
      }
    },
    "/api/stocks": {
      "get": {
        "summary": "List scanning locations that hold stock",
        "responses": {
          "200": {
            "description": "Locations",
            "content": {
              "application/json": {
                "schema": { "$ref": "#/components/schemas/LocationsResponse" }
              }
            }
          }
        }
      }
    },
    "/api/stocks/{locationId}": {
      "get": {
        "summary": "Get stock balances of a scanning location",
        "parameters": [ { "$ref": "#/components/parameters/LocationId" } ],
        "responses": {
          "200": {
            "description": "Stock found",
            "content": {
              "application/json": {
                "schema": { "$ref": "#/components/schemas/StockResponse" }
              }
            }
          },
          "400": { "description": "locationId is invalid" },
          "404": { "description": "Stock not found" }
        }
      }
    },
    "/api/stocks/{locationId}/transactions": {
      "get": {
        "summary": "Get the transaction ledger of a scanning location",
        "parameters": [
          { "$ref": "#/components/parameters/LocationId" },
          {
            "name": "order",
            "in": "query",
            "required": false,
            "schema": { "type": "string", "enum": ["oldest", "newest"] }
          }
        ],
        "responses": {
          "200": {
            "description": "Ledger entries",
            "content": {
              "application/json": {
                "schema": {
                  "type": "array",
                  "items": { "$ref": "#/components/schemas/TransactionResponse" }
                }
              }
            }
          },
          "404": { "description": "Stock not found" }
        }
      }
    },
    "/api/stocks/{locationId}/reservations": {
      "get": {
        "summary": "Get withdrawal reservations of a scanning location",
        "parameters": [ { "$ref": "#/components/parameters/LocationId" } ],
        "responses": {
          "200": {
            "description": "Reservations",
            "content": {
              "application/json": {
                "schema": {
                  "type": "array",
                  "items": { "$ref": "#/components/schemas/ReservationResponse" }
                }
              }
            }
          },
          "404": { "description": "Stock not found" }
        }
      }
    }
  },
  "components": {
    "parameters": {
      "LocationId": {
        "name": "locationId",
        "in": "path",
        "required": true,
        "schema": { "type": "string", "format": "uuid" }
      }
    },
    "schemas": {
      "HealthResponse": {
        "type": "object",
        "properties": { "status": { "type": "string" } }
      },
      "LocationsResponse": {
        "type": "object",
        "properties": {
          "scanningLocationIds": {
            "type": "array",
            "items": { "type": "string", "format": "uuid" }
          }
        }
      },
      "StockItemResponse": {
        "type": "object",
        "properties": {
          "taxStampTypeId": { "type": "string", "format": "uuid" },
          "quantity": { "type": "integer" },
          "reservedQuantity": { "type": "integer" },
          "availableQuantity": { "type": "integer" }
        }
      },
      "StockResponse": {
        "type": "object",
        "properties": {
          "stockId": { "type": "string", "format": "uuid" },
          "scanningLocationId": { "type": "string", "format": "uuid" },
          "version": { "type": "integer" },
          "dispatchMode": { "type": "string", "enum": ["ledger-only", "reservation-required"] },
          "items": {
            "type": "array",
            "items": { "$ref": "#/components/schemas/StockItemResponse" }
          }
        }
      },
      "TransactionResponse": {
        "type": "object",
        "properties": {
          "seq": { "type": "integer" },
          "type": { "type": "string", "enum": ["ARRIVAL", "DISPATCH", "REVERT"] },
          "arrivalEventId": { "type": "string", "format": "uuid", "nullable": true },
          "dispatchEventId": { "type": "string", "format": "uuid", "nullable": true },
          "items": {
            "type": "array",
            "items": {
              "type": "object",
              "properties": {
                "taxStampTypeId": { "type": "string", "format": "uuid" },
                "change": { "type": "integer" }
              }
            }
          }
        }
      },
      "ReservationResponse": {
        "type": "object",
        "properties": {
          "withdrawalRequestId": { "type": "string", "format": "uuid" },
          "status": { "type": "string", "enum": ["ACTIVE", "COMPLETED"] },
          "items": {
            "type": "array",
            "items": {
              "type": "object",
              "properties": {
                "taxStampTypeId": { "type": "string", "format": "uuid" },
                "original": { "type": "integer" },
                "remaining": { "type": "integer" }
              }
            }
          }
        }
      }
    }
  }
}`
