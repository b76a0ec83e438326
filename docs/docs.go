// Package docs registers the swagger document served at /swagger/*any.
// Regenerate with `swag init` after changing controller annotations.
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
                "tags": ["系统"],
                "summary": "健康检查",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/util.Response"}}}
            }
        },
        "/sessions/start": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["答题会话"],
                "summary": "开始或恢复答题会话",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/service.StartSessionReq"}}],
                "responses": {
                    "200": {"description": "恢复已有会话", "schema": {"$ref": "#/definitions/util.Response"}},
                    "201": {"description": "新建会话", "schema": {"$ref": "#/definitions/util.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/util.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/util.Response"}}
                }
            }
        },
        "/sessions/active": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["答题会话"],
                "summary": "进行中的会话列表",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/util.Response"}}}
            }
        },
        "/sessions/{id}": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["答题会话"],
                "summary": "会话详情",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/util.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/util.Response"}}
                }
            },
            "patch": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["答题会话"],
                "summary": "自动保存（部分更新）",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/service.PatchSessionReq"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/util.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/util.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/util.Response"}}
                }
            },
            "delete": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["答题会话"],
                "summary": "放弃会话",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/util.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/util.Response"}}
                }
            }
        },
        "/sessions/{id}/submit": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["答题会话"],
                "summary": "交卷",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "body", "schema": {"$ref": "#/definitions/service.SubmitSessionReq"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/util.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/util.Response"}}
                }
            }
        },
        "/attempts": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["答题记录"],
                "summary": "我的答题记录",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/util.Response"}}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["答题记录"],
                "summary": "直接提交答卷（匿名 / Endless）",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/service.RecordAttemptReq"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/util.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/util.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/util.Response"}}
                }
            }
        },
        "/attempts/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["答题记录"],
                "summary": "答题记录详情",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/util.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/util.Response"}}
                }
            }
        },
        "/tests/{id}": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["试卷"],
                "summary": "试卷详情（只读）",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/util.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/util.Response"}}
                }
            }
        },
        "/endless/batch": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Endless"],
                "summary": "获取一批 Endless 题目",
                "parameters": [
                    {"type": "integer", "default": 10, "name": "size", "in": "query"},
                    {"type": "string", "name": "exclude", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/util.Response"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/util.Response"}}
                }
            }
        }
    },
    "definitions": {
        "util.Response": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "data": {},
                "message": {"type": "string"}
            }
        },
        "service.StartSessionReq": {
            "type": "object",
            "required": ["mode", "testId"],
            "properties": {
                "mode": {"type": "string", "enum": ["Test", "Practice"]},
                "testId": {"type": "string"}
            }
        },
        "service.PatchSessionReq": {
            "type": "object",
            "properties": {
                "answers": {"type": "array", "items": {"$ref": "#/definitions/scoring.QuestionAnswer"}},
                "baseVersion": {"type": "integer"},
                "currentQuestion": {"type": "integer"},
                "remainingTime": {"type": "integer"}
            }
        },
        "service.SubmitSessionReq": {
            "type": "object",
            "properties": {
                "overdueTime": {"type": "integer"}
            }
        },
        "service.RecordAttemptReq": {
            "type": "object",
            "required": ["mode"],
            "properties": {
                "answers": {"type": "array", "items": {"$ref": "#/definitions/scoring.QuestionAnswer"}},
                "duration": {"type": "integer"},
                "mode": {"type": "string", "enum": ["Test", "Practice", "Endless"]},
                "overdueTime": {"type": "integer"},
                "sourceQuestions": {"type": "array", "items": {"$ref": "#/definitions/model.SourceQuestion"}},
                "testId": {"type": "string"}
            }
        },
        "scoring.QuestionAnswer": {
            "type": "object",
            "properties": {
                "blankAnswers": {"type": "array", "items": {"type": "string"}},
                "isOverdue": {"type": "boolean"},
                "orderedItems": {"type": "array", "items": {"type": "integer"}},
                "questionIndex": {"type": "integer"},
                "selectedOptions": {"type": "array", "items": {"type": "integer"}},
                "textAnswer": {"type": "string"}
            }
        },
        "model.SourceQuestion": {
            "type": "object",
            "properties": {
                "questionIndex": {"type": "integer"},
                "testId": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Assessment Session Engine API",
	Description:      "答题会话引擎：评分、会话状态机、答题记录与 Endless 抽题。",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
