// Package docs is generated by swag from the climalink-api annotations.
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
        "/current": {
            "get": {
                "description": "Current conditions at the given coordinates, proxied from OpenWeatherMap.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "weather"
                ],
                "summary": "Get current weather",
                "operationId": "api_get_current",
                "parameters": [
                    {
                        "type": "number",
                        "description": "Latitude in degrees, -90..90",
                        "name": "latitude",
                        "in": "query",
                        "required": true
                    },
                    {
                        "type": "number",
                        "description": "Longitude in degrees, -180..180",
                        "name": "longitude",
                        "in": "query",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/Current"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/Error"
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "$ref": "#/definitions/Error"
                        }
                    }
                }
            }
        },
        "/eligibility": {
            "get": {
                "description": "Resolves the role of an account and whether it may join the DAO.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "eligibility"
                ],
                "summary": "Get account eligibility",
                "operationId": "api_get_eligibility",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Account address, 0x-prefixed",
                        "name": "address",
                        "in": "query",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/eligibility.Snapshot"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/Error"
                        }
                    },
                    "503": {
                        "description": "Service Unavailable",
                        "schema": {
                            "$ref": "#/definitions/Error"
                        }
                    }
                }
            }
        },
        "/forecast": {
            "get": {
                "description": "Daily forecast at the given coordinates. Confidence decreases with the distance in days.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "weather"
                ],
                "summary": "Get weather forecast",
                "operationId": "api_get_forecast",
                "parameters": [
                    {
                        "type": "number",
                        "description": "Latitude in degrees, -90..90",
                        "name": "latitude",
                        "in": "query",
                        "required": true
                    },
                    {
                        "type": "number",
                        "description": "Longitude in degrees, -180..180",
                        "name": "longitude",
                        "in": "query",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/Forecast"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/Error"
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "$ref": "#/definitions/Error"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "Current": {
            "type": "object",
            "properties": {
                "confidence": {
                    "type": "integer"
                },
                "humidity": {
                    "type": "number"
                },
                "latitude": {
                    "type": "number"
                },
                "longitude": {
                    "type": "number"
                },
                "temperature": {
                    "type": "number"
                },
                "timestamp": {
                    "type": "string"
                },
                "weatherCondition": {
                    "type": "string"
                }
            }
        },
        "Error": {
            "type": "object",
            "properties": {
                "error": {
                    "type": "string"
                }
            }
        },
        "Forecast": {
            "type": "object",
            "properties": {
                "forecast": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/ForecastEntry"
                    }
                },
                "latitude": {
                    "type": "number"
                },
                "longitude": {
                    "type": "number"
                }
            }
        },
        "ForecastEntry": {
            "type": "object",
            "properties": {
                "confidence": {
                    "type": "integer"
                },
                "humidity": {
                    "type": "number"
                },
                "temperature": {
                    "type": "number"
                },
                "timestamp": {
                    "type": "string"
                },
                "weatherCondition": {
                    "type": "string"
                }
            }
        },
        "eligibility.Eligibility": {
            "type": "object",
            "properties": {
                "alreadyMember": {
                    "type": "boolean"
                },
                "canJoin": {
                    "type": "boolean"
                },
                "hasCLTBalance": {
                    "type": "boolean"
                },
                "hasStaked": {
                    "type": "boolean"
                },
                "currentCLT": {
                    "type": "string"
                },
                "requiredCLT": {
                    "type": "string"
                },
                "stakedAmount": {
                    "type": "string"
                }
            }
        },
        "eligibility.Snapshot": {
            "type": "object",
            "properties": {
                "account": {
                    "type": "string"
                },
                "canMint": {
                    "type": "boolean"
                },
                "contractsAvailable": {
                    "type": "boolean"
                },
                "daoAllowance": {
                    "type": "string"
                },
                "eligibility": {
                    "$ref": "#/definitions/eligibility.Eligibility"
                },
                "failedReads": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "isMember": {
                    "type": "boolean"
                },
                "resolvedAt": {
                    "type": "string"
                },
                "role": {
                    "type": "string",
                    "enum": [
                        "none",
                        "reporter",
                        "validator",
                        "dao_member"
                    ]
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "ClimaLink API",
	Description:      "Weather proxy for the ClimaLink DApp and read-only role/eligibility resolution against the ClimaLink contracts.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
