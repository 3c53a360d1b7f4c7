// Package docs holds the OpenAPI description served at /swagger.
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
        "/coins": {
            "get": {
                "produces": ["application/json"],
                "tags": ["coins"],
                "summary": "List coins",
                "parameters": [
                    {"type": "integer", "description": "Page size (default 50, max 200)", "name": "limit", "in": "query"},
                    {"type": "integer", "description": "Offset", "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.ListResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/middleware.ErrorResponse"}}
                }
            },
            "post": {
                "description": "Scrapes the post, pins its metadata, mints a coin paying out to the wallet and records it.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["coins"],
                "summary": "Create a coin from a blog post",
                "parameters": [
                    {"type": "string", "description": "Wallet signing session", "name": "X-Wallet-Session", "in": "header", "required": true},
                    {"description": "Source post and creator wallet", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.CreateCoinRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/coin.Record"}},
                    "207": {"description": "Minted but not recorded", "schema": {"$ref": "#/definitions/middleware.ErrorResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/middleware.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/middleware.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/middleware.ErrorResponse"}}
                }
            }
        },
        "/coins/stats": {
            "get": {
                "produces": ["application/json"],
                "tags": ["coins"],
                "summary": "Platform statistics",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/coin.Stats"}}
                }
            }
        },
        "/coins/{address}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["coins"],
                "summary": "Get a coin by contract address",
                "parameters": [
                    {"type": "string", "description": "Coin contract address", "name": "address", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/coin.Record"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/middleware.ErrorResponse"}}
                }
            }
        },
        "/coins/{address}/reconcile": {
            "post": {
                "description": "Inserts the supplied pending record, or the journaled one, if no record exists for the address. Never mints.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["coins"],
                "summary": "Record a minted coin that is missing locally",
                "parameters": [
                    {"type": "string", "description": "Coin contract address", "name": "address", "in": "path", "required": true},
                    {"description": "Pending record returned with the 207 response", "name": "record", "in": "body", "schema": {"$ref": "#/definitions/coin.Record"}}
                ],
                "responses": {
                    "200": {"description": "Already recorded", "schema": {"$ref": "#/definitions/coin.Record"}},
                    "201": {"description": "Recorded now", "schema": {"$ref": "#/definitions/coin.Record"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/middleware.ErrorResponse"}}
                }
            }
        },
        "/coins/{id}": {
            "delete": {
                "description": "Only the creator wallet may delete its record. The on-chain token is unaffected.",
                "tags": ["coins"],
                "summary": "Delete a coin record",
                "parameters": [
                    {"type": "string", "description": "Record id", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "Requesting wallet", "name": "X-Wallet-Address", "in": "header", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/middleware.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/middleware.ErrorResponse"}}
                }
            }
        },
        "/creators/{wallet}/coins": {
            "get": {
                "produces": ["application/json"],
                "tags": ["creators"],
                "summary": "List coins by creator",
                "parameters": [
                    {"type": "string", "description": "Creator wallet", "name": "wallet", "in": "path", "required": true},
                    {"type": "integer", "description": "Page size", "name": "limit", "in": "query"},
                    {"type": "integer", "description": "Offset", "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.ListResponse"}}
                }
            }
        },
        "/creators/{wallet}/stats": {
            "get": {
                "produces": ["application/json"],
                "tags": ["creators"],
                "summary": "Creator statistics",
                "parameters": [
                    {"type": "string", "description": "Creator wallet", "name": "wallet", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/coin.UserStats"}}
                }
            }
        },
        "/scrape": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["content"],
                "summary": "Extract a blog post",
                "parameters": [
                    {"description": "Page to extract", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.ScrapeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/content.Scraped"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/middleware.ErrorResponse"}}
                }
            }
        },
        "/metadata": {
            "post": {
                "description": "Builds the metadata document for scraped content and pins it.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["content"],
                "summary": "Publish coin metadata",
                "parameters": [
                    {"description": "Scraped content", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/content.Scraped"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/metadata.Published"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/middleware.ErrorResponse"}}
                }
            }
        },
        "/users/session": {
            "post": {
                "description": "Creates the wallet's profile on first sign-in and refreshes it afterwards.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Register a wallet session",
                "parameters": [
                    {"description": "Wallet and optional email", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.SessionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/user.Profile"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/middleware.ErrorResponse"}}
                }
            }
        },
        "/users/{wallet}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Get a profile by wallet",
                "parameters": [
                    {"type": "string", "description": "Wallet address", "name": "wallet", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/user.Profile"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/middleware.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "coin.Attribute": {
            "type": "object",
            "properties": {
                "trait_type": {"type": "string"},
                "value": {"type": "string"}
            }
        },
        "coin.Snapshot": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "image": {"type": "string"},
                "original_url": {"type": "string"},
                "author": {"type": "string"},
                "publish_date": {"type": "string"},
                "tags": {"type": "array", "items": {"type": "string"}},
                "excerpt": {"type": "string"},
                "attributes": {"type": "array", "items": {"$ref": "#/definitions/coin.Attribute"}}
            }
        },
        "coin.Record": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "creator_wallet": {"type": "string"},
                "name": {"type": "string"},
                "symbol": {"type": "string"},
                "coin_address": {"type": "string"},
                "tx_hash": {"type": "string"},
                "source_url": {"type": "string"},
                "metadata_uri": {"type": "string"},
                "metadata_cid": {"type": "string"},
                "gateway_url": {"type": "string"},
                "metadata": {"$ref": "#/definitions/coin.Snapshot"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "coin.Stats": {
            "type": "object",
            "properties": {
                "total_coins": {"type": "integer"},
                "total_creators": {"type": "integer"}
            }
        },
        "coin.UserStats": {
            "type": "object",
            "properties": {
                "wallet_address": {"type": "string"},
                "user_coins": {"type": "integer"}
            }
        },
        "content.Scraped": {
            "type": "object",
            "properties": {
                "source_url": {"type": "string"},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "author": {"type": "string"},
                "publish_date": {"type": "string"},
                "image_url": {"type": "string"},
                "body_text": {"type": "string"},
                "tags": {"type": "array", "items": {"type": "string"}},
                "scraped_at": {"type": "string"}
            }
        },
        "metadata.Published": {
            "type": "object",
            "properties": {
                "content_reference": {"type": "string"},
                "uri": {"type": "string"},
                "retrievable_url": {"type": "string"},
                "metadata": {"type": "object"}
            }
        },
        "http.CreateCoinRequest": {
            "type": "object",
            "required": ["source_url", "wallet_address"],
            "properties": {
                "source_url": {"type": "string"},
                "wallet_address": {"type": "string"}
            }
        },
        "http.ScrapeRequest": {
            "type": "object",
            "required": ["url"],
            "properties": {
                "url": {"type": "string"}
            }
        },
        "http.SessionRequest": {
            "type": "object",
            "required": ["wallet_address"],
            "properties": {
                "wallet_address": {"type": "string"},
                "email": {"type": "string"}
            }
        },
        "http.ListResponse": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/coin.Record"}},
                "limit": {"type": "integer"},
                "offset": {"type": "integer"}
            }
        },
        "user.Profile": {
            "type": "object",
            "properties": {
                "wallet_address": {"type": "string"},
                "email": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "middleware.ErrorResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "error": {"type": "object"},
                "timestamp": {"type": "string"},
                "request_id": {"type": "string"},
                "path": {"type": "string"},
                "method": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "CoinIt API",
	Description:      "Turns blog posts into tradeable creator coins on Base.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
