package openapi

import (
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/artpar/rewardctl/core/wire"
)

// Endpoint describes one gateway operation.
type Endpoint struct {
	Method      string
	Path        string // chi pattern, e.g. /v1/partners/{id}
	OperationID string
	Summary     string
	Description string
	Tag         string
	Query       []Parameter
	Request     *Schema // nil when the operation takes no body
	Response    *Schema
	Status      int // success status, default 200
}

// ErrorSchemaName is the component every error response refers to.
const ErrorSchemaName = "Error"

// Generator generates OpenAPI specs from message schemas and endpoints.
type Generator struct {
	messages  []wire.MessageSchema
	endpoints []Endpoint
	extra     map[string]*Schema
	tags      []Tag
	info      Info
	servers   []Server
}

// NewGenerator creates a new OpenAPI generator.
func NewGenerator(messages []wire.MessageSchema, endpoints []Endpoint) *Generator {
	return &Generator{
		messages:  messages,
		endpoints: endpoints,
		extra:     make(map[string]*Schema),
		info: Info{
			Title:       "rewardctl gateway",
			Version:     "1.0.0",
			Description: "Local HTTP gateway to the Reward Chain client",
		},
	}
}

// SetInfo sets the API info.
func (g *Generator) SetInfo(info Info) {
	g.info = info
}

// AddServer adds a server URL.
func (g *Generator) AddServer(url, description string) {
	g.servers = append(g.servers, Server{
		URL:         url,
		Description: description,
	})
}

// AddSchema adds a named component schema.
func (g *Generator) AddSchema(name string, s *Schema) {
	g.extra[name] = s
}

// AddTag describes a tag used by endpoints.
func (g *Generator) AddTag(name, description string) {
	g.tags = append(g.tags, Tag{Name: name, Description: description})
}

// Generate creates the OpenAPI specification.
func (g *Generator) Generate() *Spec {
	spec := &Spec{
		OpenAPI: "3.0.3",
		Info:    g.info,
		Servers: g.servers,
		Paths:   make(map[string]PathItem),
		Components: Components{
			Schemas: make(map[string]*Schema),
		},
	}

	spec.Components.Schemas[ErrorSchemaName] = errorSchema()
	for _, m := range g.messages {
		spec.Components.Schemas[m.Name()] = MessageSchema(m)
	}
	for name, s := range g.extra {
		spec.Components.Schemas[name] = s
	}

	tags := make(map[string]bool)
	for _, t := range g.tags {
		tags[t.Name] = true
		spec.Tags = append(spec.Tags, t)
	}

	for _, e := range g.endpoints {
		item := spec.Paths[e.Path]
		op := g.operation(e)
		switch e.Method {
		case http.MethodGet:
			item.Get = op
		case http.MethodPost:
			item.Post = op
		case http.MethodPut:
			item.Put = op
		case http.MethodPatch:
			item.Patch = op
		case http.MethodDelete:
			item.Delete = op
		default:
			continue
		}
		spec.Paths[e.Path] = item

		if e.Tag != "" && !tags[e.Tag] {
			tags[e.Tag] = true
			spec.Tags = append(spec.Tags, Tag{Name: e.Tag})
		}
	}

	sort.Slice(spec.Tags, func(i, j int) bool {
		return spec.Tags[i].Name < spec.Tags[j].Name
	})
	return spec
}

func (g *Generator) operation(e Endpoint) *Operation {
	op := &Operation{
		Summary:     e.Summary,
		Description: e.Description,
		OperationID: e.OperationID,
		Responses:   make(map[string]Response),
	}
	if op.OperationID == "" {
		op.OperationID = operationID(e.Method, e.Path)
	}
	if e.Tag != "" {
		op.Tags = []string{e.Tag}
	}

	for _, name := range PathParams(e.Path) {
		op.Parameters = append(op.Parameters, Parameter{
			Name:     name,
			In:       "path",
			Required: true,
			Schema:   &Schema{Type: "string"},
		})
	}
	op.Parameters = append(op.Parameters, e.Query...)

	if e.Request != nil {
		op.RequestBody = &RequestBody{
			Required: true,
			Content:  map[string]MediaType{"application/json": {Schema: e.Request}},
		}
	}

	status := e.Status
	if status == 0 {
		status = http.StatusOK
	}
	ok := Response{Description: http.StatusText(status)}
	if e.Response != nil {
		ok.Content = map[string]MediaType{"application/json": {Schema: e.Response}}
	}
	op.Responses[strconv.Itoa(status)] = ok

	errResp := func(code int) Response {
		return Response{
			Description: http.StatusText(code),
			Content:     map[string]MediaType{"application/json": {Schema: Ref(ErrorSchemaName)}},
		}
	}
	if e.Request != nil || len(op.Parameters) > 0 {
		op.Responses["400"] = errResp(http.StatusBadRequest)
	}
	op.Responses["500"] = errResp(http.StatusInternalServerError)
	return op
}

// MessageSchema converts a message schema to its JSON text form schema.
// Unsigned integers are strings of decimal digits, matching the codec's
// text representation.
func MessageSchema(m wire.MessageSchema) *Schema {
	s := &Schema{
		Type:        "object",
		Description: m.TypeURL(),
		Properties:  make(map[string]*Schema),
	}
	for _, f := range m.Fields() {
		s.Properties[f.Name] = fieldSchema(f)
	}
	return s
}

func fieldSchema(f wire.FieldSchema) *Schema {
	s := &Schema{XFieldNumber: f.Number}
	switch f.Kind {
	case wire.KindUint64:
		s.Type = "string"
		s.Format = "uint64"
		s.Pattern = "^[0-9]+$"
		s.Example = "1"
	case wire.KindBool:
		s.Type = "boolean"
	default:
		s.Type = "string"
	}
	s.Description = fmt.Sprintf("field %d (%s)", f.Number, f.Kind)
	return s
}

func errorSchema() *Schema {
	return Object(map[string]*Schema{
		"error": Object(map[string]*Schema{
			"code":    String("Machine readable error code"),
			"message": String("Human readable description"),
		}, "code", "message"),
	}, "error")
}

var pathParamRe = regexp.MustCompile(`\{([^}]+)\}`)

// PathParams returns the names of the {params} in a route pattern.
func PathParams(path string) []string {
	var out []string
	for _, m := range pathParamRe.FindAllStringSubmatch(path, -1) {
		name := m[1]
		// chi allows {name:regexp}
		if i := strings.IndexByte(name, ':'); i >= 0 {
			name = name[:i]
		}
		out = append(out, name)
	}
	return out
}

var nonAlnumRe = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// operationID derives an id such as "get_v1_partners_id".
func operationID(method, path string) string {
	clean := strings.Trim(nonAlnumRe.ReplaceAllString(path, "_"), "_")
	return strings.ToLower(method) + "_" + strings.ToLower(clean)
}
