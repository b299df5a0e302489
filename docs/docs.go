// Package docs registers the OpenAPI document served at /swagger.
//
// Regenerate the full document from the handler annotations with:
//
//	swag init -g cmd/mdt/main.go -o docs --parseInternal
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
    "paths": {},
    "securityDefinitions": {
        "SessionAuth": {
            "description": "Officer session: \"Bearer <token>\" or the mdt_session cookie.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        },
        "BotAuth": {
            "description": "Bot integration: \"Bot <token>\".",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "MDT Backend API",
	Description:      "Police mobile data terminal for role-play servers: citizens from the game database, arrests, reports, wanted persons, weapon licenses and notes.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
