package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the auth router.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>authrouter Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "authrouter", "version": "v0.1.0" },
  "paths": {
    "/auth/login/{provider}": {
      "get": {
        "summary": "Redirect to the provider consent screen",
        "parameters": [{ "name": "provider", "in": "path", "required": true, "schema": { "type": "string", "enum": ["apple", "google", "naver"] } }],
        "responses": { "302": { "description": "redirect to provider" } }
      }
    },
    "/auth/callback/{provider}": {
      "get": {
        "summary": "Provider callback (naver, google); plain GET on apple redirects to the landing page",
        "parameters": [{ "name": "provider", "in": "path", "required": true, "schema": { "type": "string" } }, { "name": "code", "in": "query", "schema": { "type": "string" } }, { "name": "state", "in": "query", "schema": { "type": "string" } }],
        "responses": { "302": { "description": "landing page with token cookie, or / on failure" } }
      },
      "post": {
        "summary": "Apple form_post callback",
        "parameters": [{ "name": "provider", "in": "path", "required": true, "schema": { "type": "string", "enum": ["apple"] } }],
        "requestBody": { "content": { "application/x-www-form-urlencoded": { "schema": {"type":"object","properties":{"code":{"type":"string"},"state":{"type":"string"},"id_token":{"type":"string"},"error":{"type":"string"}}}}}},
        "responses": { "302": { "description": "landing page with token cookie, or / on failure" } }
      }
    },
    "/logout": {
      "get": { "summary": "Destroy the login session", "responses": { "302": { "description": "redirect to /" } } }
    },
    "/api/profile/set": {
      "post": {
        "summary": "Set a user's profile image (requires token cookie)",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["clientId"],"properties":{"clientId":{"type":"string"},"image":{"type":"string"}}}}}},
        "responses": { "200": { "description": "updated" }, "400": { "description": "bad body" }, "401": { "description": "missing or invalid token" }, "404": { "description": "store error" } }
      }
    },
    "/api/auth": {
      "get": { "summary": "Current identity from the login session", "responses": { "200": { "description": "{id, provider, status:200, profile} or {status:401}" }, "404": { "description": "store error" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "metrics" } } } }
  }
}`
