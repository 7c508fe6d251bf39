// Package openapi describes the gateway's REST surface as an OpenAPI 3.0
// document built from the routes registered on the echo instance.
package openapi

import (
	"net/http"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"
)

// Generator builds the OpenAPI document.
type Generator struct {
	title   string
	version string
	prefix  string
}

// NewGenerator documents routes under prefix (e.g. "/api/v1").
func NewGenerator(title, version, prefix string) *Generator {
	return &Generator{title: title, version: version, prefix: prefix}
}

// publicOps are reachable without a session.
var publicOps = map[string]bool{
	http.MethodPost + " /session": true,
}

// GenerateSpec produces the OpenAPI 3.0 spec as a map.
func (g *Generator) GenerateSpec(routes []*echo.Route) map[string]interface{} {
	paths := make(map[string]map[string]interface{})
	for _, r := range routes {
		if !strings.HasPrefix(r.Path, g.prefix+"/") || r.Method == echo.RouteNotFound {
			continue
		}
		rel := strings.TrimPrefix(r.Path, g.prefix)
		path, params := openAPIPath(rel)
		if paths[path] == nil {
			paths[path] = make(map[string]interface{})
		}
		paths[path][strings.ToLower(r.Method)] = g.operation(r, rel, params)
	}

	return map[string]interface{}{
		"openapi": "3.0.3",
		"info": map[string]interface{}{
			"title":   g.title,
			"version": g.version,
		},
		"servers": []map[string]string{{"url": g.prefix}},
		"paths":   paths,
		"components": map[string]interface{}{
			"securitySchemes": map[string]interface{}{
				"session": map[string]string{"type": "http", "scheme": "bearer", "bearerFormat": "JWT"},
			},
			"schemas": map[string]interface{}{
				"Error": map[string]interface{}{
					"type":       "object",
					"properties": map[string]interface{}{"message": map[string]string{"type": "string"}},
				},
				"Page": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"data":     map[string]string{"type": "array"},
						"total":    map[string]string{"type": "integer"},
						"limit":    map[string]string{"type": "integer"},
						"offset":   map[string]string{"type": "integer"},
						"has_more": map[string]string{"type": "boolean"},
					},
				},
			},
		},
	}
}

func (g *Generator) operation(r *echo.Route, rel string, pathParams []string) map[string]interface{} {
	tag, op := describe(r.Name)
	if tag == "" {
		tag = firstSegment(rel)
	}

	var params []map[string]interface{}
	for _, p := range pathParams {
		params = append(params, map[string]interface{}{
			"name": p, "in": "path", "required": true, "schema": map[string]string{"type": "string"},
		})
	}

	responses := map[string]interface{}{
		"400": errorResponse("Invalid input"),
		"502": errorResponse("Backend error; message carries the backend text"),
		"504": errorResponse("Backend did not respond in time"),
	}
	switch {
	case r.Method == http.MethodGet && isList(rel):
		for _, q := range []string{"q", "sort", "order", "limit", "offset"} {
			params = append(params, map[string]interface{}{"name": q, "in": "query", "schema": map[string]string{"type": "string"}})
		}
		responses["200"] = refResponse("Page of records", "#/components/schemas/Page")
	case r.Method == http.MethodPost && !publicOps[r.Method+" "+rel]:
		responses["201"] = map[string]string{"description": "Created"}
	case r.Method == http.MethodDelete:
		responses["204"] = map[string]string{"description": "Deleted"}
	default:
		responses["200"] = map[string]string{"description": "Success"}
	}

	out := map[string]interface{}{
		"summary":     r.Method + " " + rel,
		"operationId": tag + "." + op,
		"tags":        []string{tag},
		"responses":   responses,
	}
	if len(params) > 0 {
		out["parameters"] = params
	}
	if r.Method == http.MethodPost || r.Method == http.MethodPut {
		out["requestBody"] = map[string]interface{}{
			"required": true,
			"content":  map[string]interface{}{"application/json": map[string]interface{}{"schema": map[string]string{"type": "object"}}},
		}
	}
	if publicOps[r.Method+" "+rel] {
		out["security"] = []map[string][]string{}
	} else {
		out["security"] = []map[string][]string{{"session": {}}}
		responses["401"] = errorResponse("Missing, expired or revoked session")
	}
	return out
}

// openAPIPath converts /patients/:ssn/notes to /patients/{ssn}/notes.
func openAPIPath(p string) (string, []string) {
	segs := strings.Split(p, "/")
	var params []string
	for i, s := range segs {
		if strings.HasPrefix(s, ":") {
			params = append(params, s[1:])
			segs[i] = "{" + s[1:] + "}"
		}
	}
	return strings.Join(segs, "/"), params
}

// isList reports whether a GET path names a collection rather than a record.
func isList(p string) bool {
	last := p[strings.LastIndex(p, "/")+1:]
	return !strings.HasPrefix(last, ":") && last != "session" && last != "summary"
}

// describe derives tag and operation from an echo handler name such as
// "github.com/ehr/gateway/internal/domain/notes.(*Handler).ListNotes-fm".
func describe(name string) (tag, op string) {
	name = strings.TrimSuffix(name, "-fm")
	rest := name[strings.LastIndex(name, "/")+1:]
	dot := strings.Index(rest, ".")
	if dot < 0 {
		return "", rest
	}
	return rest[:dot], rest[strings.LastIndex(rest, ".")+1:]
}

func firstSegment(p string) string {
	p = strings.TrimPrefix(p, "/")
	if i := strings.Index(p, "/"); i >= 0 {
		return p[:i]
	}
	return p
}

func errorResponse(desc string) map[string]interface{} {
	return refResponse(desc, "#/components/schemas/Error")
}

func refResponse(desc, ref string) map[string]interface{} {
	return map[string]interface{}{
		"description": desc,
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{"schema": map[string]string{"$ref": ref}},
		},
	}
}

// Paths lists the documented paths in order; used by the CLI and tests.
func Paths(spec map[string]interface{}) []string {
	paths, _ := spec["paths"].(map[string]map[string]interface{})
	out := make([]string, 0, len(paths))
	for p := range paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

const swaggerUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>EHR Gateway API - Swagger UI</title>
  <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" >
  <style>
    html { box-sizing: border-box; overflow-y: scroll; }
    *, *:before, *:after { box-sizing: inherit; }
    body { margin: 0; background: #fafafa; }
  </style>
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: "/openapi.json",
      dom_id: '#swagger-ui',
      deepLinking: true,
      presets: [
        SwaggerUIBundle.presets.apis,
        SwaggerUIBundle.SwaggerUIStandalonePreset
      ],
      layout: "BaseLayout"
    })
  </script>
</body>
</html>`

// RegisterRoutes serves /openapi.json and /docs. The document is built per
// request from e's routes so it always matches what is mounted.
func (g *Generator) RegisterRoutes(e *echo.Echo) {
	e.GET("/openapi.json", func(c echo.Context) error {
		return c.JSON(http.StatusOK, g.GenerateSpec(e.Routes()))
	})
	e.GET("/docs", func(c echo.Context) error {
		return c.HTML(http.StatusOK, swaggerUIHTML)
	})
}
