package validator

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

const bearerScheme = "bearerAuth"

// Operation documents one API route.
type Operation struct {
	Method  string
	Path    string
	Summary string
	Tag     string
	// Schema is the request body schema, if the route validates one.
	Schema *Schema
	// Secured marks routes that require a bearer token.
	Secured   bool
	Responses map[int]string
}

// Document builds the OpenAPI 3 description of the API from the route table,
// deriving request bodies from the same schemas the validator enforces.
func Document(title, version, serverURL string, ops []Operation) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:   title,
			Version: version,
		},
		Paths: openapi3.NewPaths(),
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{
				"Error": openapi3.NewSchemaRef("", errorSchema()),
			},
			SecuritySchemes: openapi3.SecuritySchemes{
				bearerScheme: &openapi3.SecuritySchemeRef{Value: openapi3.NewJWTSecurityScheme()},
			},
		},
	}
	if serverURL != "" {
		doc.Servers = openapi3.Servers{{URL: serverURL}}
	}

	for _, op := range ops {
		item := doc.Paths.Value(op.Path)
		if item == nil {
			item = &openapi3.PathItem{}
			doc.Paths.Set(op.Path, item)
		}

		o := openapi3.NewOperation()
		o.Summary = op.Summary
		o.OperationID = operationID(op.Method, op.Path)
		if op.Tag != "" {
			o.Tags = []string{op.Tag}
		}

		if op.Schema != nil {
			name := op.Schema.Name
			if _, ok := doc.Components.Schemas[name]; !ok {
				doc.Components.Schemas[name] = openapi3.NewSchemaRef("", op.Schema.OpenAPI())
			}
			ref := openapi3.NewSchemaRef("#/components/schemas/"+name, doc.Components.Schemas[name].Value)
			o.RequestBody = &openapi3.RequestBodyRef{
				Value: openapi3.NewRequestBody().
					WithRequired(true).
					WithContent(openapi3.NewContentWithSchemaRef(ref, []string{
						"application/json",
						"application/x-www-form-urlencoded",
					})),
			}
		}

		if op.Secured {
			o.Security = openapi3.NewSecurityRequirements().
				With(openapi3.NewSecurityRequirement().Authenticate(bearerScheme))
		}

		opts := make([]openapi3.NewResponsesOption, 0, len(op.Responses))
		for code, desc := range op.Responses {
			resp := openapi3.NewResponse().WithDescription(desc)
			if code >= http.StatusBadRequest {
				resp = resp.WithJSONSchemaRef(openapi3.NewSchemaRef("#/components/schemas/Error", errorSchema()))
			}
			opts = append(opts, openapi3.WithStatus(code, &openapi3.ResponseRef{Value: resp}))
		}
		if len(opts) == 0 {
			opts = append(opts, openapi3.WithStatus(http.StatusOK, &openapi3.ResponseRef{
				Value: openapi3.NewResponse().WithDescription("OK"),
			}))
		}
		o.Responses = openapi3.NewResponses(opts...)

		item.SetOperation(op.Method, o)
	}

	return doc
}

// OpenAPI renders the schema as a JSON Schema object.
func (s *Schema) OpenAPI() *openapi3.Schema {
	obj := openapi3.NewObjectSchema()
	obj.Title = s.Name
	noExtra := false
	obj.AdditionalProperties = openapi3.AdditionalProperties{Has: &noExtra}

	for _, f := range s.Fields {
		prop := openapi3.NewStringSchema()
		if f.Kind == Email {
			prop = prop.WithFormat("email")
		}
		prop.Description = f.Description
		for _, rule := range strings.Split(f.Rule, ",") {
			name, param, _ := strings.Cut(rule, "=")
			n, err := strconv.ParseInt(param, 10, 64)
			if err != nil {
				continue
			}
			switch name {
			case "min":
				prop = prop.WithMinLength(n)
			case "max":
				prop = prop.WithMaxLength(n)
			}
		}
		obj = obj.WithProperty(f.Name, prop)
		if f.Required {
			obj.Required = append(obj.Required, f.Name)
		}
	}
	return obj
}

func errorSchema() *openapi3.Schema {
	inner := openapi3.NewObjectSchema().
		WithProperty("code", openapi3.NewStringSchema()).
		WithProperty("message", openapi3.NewStringSchema()).
		WithProperty("details", openapi3.NewSchema())
	return openapi3.NewObjectSchema().WithProperty("error", inner)
}

func operationID(method, path string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(method))
	for _, part := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '{' || r == '}' }) {
		if part == "api" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}
