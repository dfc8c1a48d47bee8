package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/artpar/rewardctl/adapters/metrics"
	"github.com/artpar/rewardctl/core/openapi"
	"github.com/artpar/rewardctl/domain/partner"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
)

// RouterConfig holds optional configuration for the router.
type RouterConfig struct {
	Version        string
	Metrics        *metrics.Collector
	MetricsHandler http.Handler // serves /metrics; promhttp.Handler() when nil and Metrics is set
	MetricsPath    string       // default /metrics
	EnableOpenAPI  bool
	RequestTimeout time.Duration // default 60s; must cover tx confirmation
}

// route binds an endpoint description to its handler.
type route struct {
	openapi.Endpoint
	handler http.HandlerFunc
}

// NewRouter creates the gateway router with default configuration.
func NewRouter(h *Handler, logger zerolog.Logger) chi.Router {
	return NewRouterWithConfig(h, logger, RouterConfig{})
}

// NewRouterWithConfig creates the gateway router.
func NewRouterWithConfig(h *Handler, logger zerolog.Logger, cfg RouterConfig) chi.Router {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(logger, cfg.MetricsPath))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	if cfg.Metrics != nil {
		r.Use(NewMetricsMiddleware(cfg.Metrics, cfg.MetricsPath))
	}

	routes := h.routes()
	for _, rt := range routes {
		r.Method(rt.Method, rt.Path, rt.handler)
	}

	r.Get("/health", h.Health)
	r.Get("/version", h.VersionHandler(cfg.Version))

	if cfg.MetricsHandler != nil {
		r.Handle(cfg.MetricsPath, cfg.MetricsHandler)
	} else if cfg.Metrics != nil {
		r.Handle(cfg.MetricsPath, promhttp.Handler())
	}

	if cfg.EnableOpenAPI {
		endpoints := make([]openapi.Endpoint, 0, len(routes))
		for _, rt := range routes {
			endpoints = append(endpoints, rt.Endpoint)
		}
		spec := openapi.NewService(newGenerator(h, cfg.Version, endpoints), logger)

		r.Get("/.well-known/openapi.json", func(w http.ResponseWriter, r *http.Request) {
			data, err := spec.JSON(baseURL(r))
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Write(data)
		})

		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/.well-known/openapi.json"),
		))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" not allowed on "+r.URL.Path)
	})

	return r
}

// routes is the gateway's endpoint table. The OpenAPI document is built from
// the same table, so every served route is documented.
func (h *Handler) routes() []route {
	pageParams := []openapi.Parameter{
		{Name: "limit", In: "query", Description: "Maximum entries to return", Schema: &openapi.Schema{Type: "integer", Format: "int64"}},
	}
	return []route{
		{openapi.Endpoint{
			Method: http.MethodPost, Path: "/v1/partners", OperationID: "createPartner", Tag: "partners",
			Summary:     "Create a partner",
			Description: "Signs and broadcasts MsgCreatePartner and returns the id assigned by the chain.",
			Request:     txRequestSchema(partner.TypeCreatePartner),
			Response:    openapi.Ref("TxResponse"),
			Status:      http.StatusCreated,
		}, h.CreatePartner},
		{openapi.Endpoint{
			Method: http.MethodGet, Path: "/v1/partners", OperationID: "listPartners", Tag: "partners",
			Summary: "List partners",
			Query: append([]openapi.Parameter{
				{Name: "include_disabled", In: "query", Description: "Include disabled partners", Schema: &openapi.Schema{Type: "boolean"}},
				{Name: "key", In: "query", Description: "Pagination key from a previous page", Schema: &openapi.Schema{Type: "string"}},
			}, pageParams...),
			Response: openapi.Ref("PartnerList"),
		}, h.ListPartners},
		{openapi.Endpoint{
			Method: http.MethodGet, Path: "/v1/partners/{id}", OperationID: "getPartner", Tag: "partners",
			Summary:  "Get a partner",
			Response: openapi.Ref("Partner"),
		}, h.GetPartner},
		{openapi.Endpoint{
			Method: http.MethodPost, Path: "/v1/partners/{id}/liquidity", OperationID: "addPartnerLiquidity", Tag: "partners",
			Summary:     "Add partner liquidity",
			Description: "Signs and broadcasts MsgAddPartnerLiquidity. The path id overrides partnerId in the body.",
			Request:     txRequestSchema(partner.TypeAddPartnerLiquidity),
			Response:    openapi.Ref("TxResponse"),
		}, h.AddLiquidity},
		{openapi.Endpoint{
			Method: http.MethodPost, Path: "/v1/swaps", OperationID: "swap", Tag: "swaps",
			Summary:  "Swap points and tokens",
			Request:  txRequestSchema(partner.TypeSwap),
			Response: openapi.Ref("TxResponse"),
		}, h.Swap},
		{openapi.Endpoint{
			Method: http.MethodGet, Path: "/v1/types", OperationID: "listTypes", Tag: "codec",
			Summary: "List registered message types",
			Response: openapi.Object(map[string]*openapi.Schema{
				"types": openapi.ArrayOf(&openapi.Schema{Type: "string"}),
			}, "types"),
		}, h.Types},
		{openapi.Endpoint{
			Method: http.MethodPost, Path: "/v1/codec/encode", OperationID: "encode", Tag: "codec",
			Summary:  "Encode a message to wire bytes",
			Request:  openapi.Ref("EncodeRequest"),
			Response: openapi.Ref("EncodeResponse"),
		}, h.Encode},
		{openapi.Endpoint{
			Method: http.MethodPost, Path: "/v1/codec/decode", OperationID: "decode", Tag: "codec",
			Summary:  "Decode wire bytes to a message",
			Request:  openapi.Ref("DecodeRequest"),
			Response: openapi.Ref("DecodeResponse"),
		}, h.Decode},
		{openapi.Endpoint{
			Method: http.MethodGet, Path: "/v1/journal", OperationID: "listJournal", Tag: "journal",
			Summary: "List locally recorded transactions",
			Query: append([]openapi.Parameter{
				{Name: "type", In: "query", Description: "Message type name", Schema: &openapi.Schema{Type: "string"}},
				{Name: "status", In: "query", Description: "committed or failed", Schema: &openapi.Schema{Type: "string", Enum: []string{"committed", "failed"}}},
				{Name: "offset", In: "query", Schema: &openapi.Schema{Type: "integer"}},
			}, pageParams...),
			Response: openapi.Ref("Journal"),
		}, h.Journal},
	}
}

// txRequestSchema is a message in text form plus the transaction options.
func txRequestSchema(typeName string) *openapi.Schema {
	return &openapi.Schema{
		Description: "creator defaults to the signer address",
		AllOf: []*openapi.Schema{
			openapi.Ref(typeName),
			openapi.Object(map[string]*openapi.Schema{
				"memo":     openapi.String("Transaction memo"),
				"gasLimit": {Type: "string", Format: "uint64", Pattern: "^[0-9]+$", Description: "Gas limit override"},
			}),
		},
	}
}

func newGenerator(h *Handler, version string, endpoints []openapi.Endpoint) *openapi.Generator {
	g := openapi.NewGenerator(h.service.Schemas(), endpoints)
	if version != "" {
		g.SetInfo(openapi.Info{
			Title:       "rewardctl gateway",
			Version:     version,
			Description: "Local HTTP gateway to the Reward Chain client",
		})
	}
	g.AddTag("partners", "Partner registration and liquidity")
	g.AddTag("swaps", "Point and token swaps")
	g.AddTag("codec", "Schema-driven wire codec")
	g.AddTag("journal", "Local transaction history")

	uint64String := &openapi.Schema{Type: "string", Format: "uint64", Pattern: "^[0-9]+$"}
	g.AddSchema("TxResponse", openapi.Object(map[string]*openapi.Schema{
		"txHash":    openapi.String("Transaction hash"),
		"height":    {Type: "integer", Format: "int64"},
		"code":      {Type: "integer", Format: "int32"},
		"gasWanted": {Type: "integer", Format: "int64"},
		"gasUsed":   {Type: "integer", Format: "int64"},
		"createdId": openapi.String("Id of the created partner"),
		"journalId": openapi.String("Local journal entry id"),
		"events":    openapi.ArrayOf(&openapi.Schema{Type: "object"}),
	}, "txHash", "height", "code"))
	g.AddSchema("Partner", openapi.Object(map[string]*openapi.Schema{
		"id":                    uint64String,
		"name":                  {Type: "string"},
		"category":              {Type: "string"},
		"location":              {Type: "string"},
		"country":               {Type: "string"},
		"disabled":              {Type: "boolean"},
		"total_liquidity":       {Type: "string"},
		"available_liquidity":   {Type: "string"},
		"on_hold_liquidity":     {Type: "string"},
		"earn_cost_per_point":   {Type: "string"},
		"redeem_cost_per_point": {Type: "string"},
		"starts_from":           {Type: "string"},
		"ends_before":           {Type: "string"},
	}, "id", "name"))
	g.AddSchema("PartnerList", openapi.Object(map[string]*openapi.Schema{
		"partners": openapi.ArrayOf(openapi.Ref("Partner")),
		"nextKey":  openapi.String("Pagination key for the next page"),
		"total":    uint64String,
	}, "partners"))
	g.AddSchema("EncodeRequest", openapi.Object(map[string]*openapi.Schema{
		"type":  openapi.String("Message type name"),
		"value": {Type: "object", Description: "Message in text form"},
	}, "type"))
	g.AddSchema("EncodeResponse", openapi.Object(map[string]*openapi.Schema{
		"type":    {Type: "string"},
		"typeUrl": {Type: "string"},
		"base64":  {Type: "string", Format: "byte"},
		"hex":     {Type: "string"},
	}, "type", "typeUrl", "base64", "hex"))
	g.AddSchema("DecodeRequest", openapi.Object(map[string]*openapi.Schema{
		"type":   openapi.String("Message type name"),
		"base64": {Type: "string", Format: "byte"},
		"hex":    {Type: "string"},
	}, "type"))
	g.AddSchema("DecodeResponse", openapi.Object(map[string]*openapi.Schema{
		"type":  {Type: "string"},
		"value": {Type: "object"},
	}, "type", "value"))
	g.AddSchema("Journal", openapi.Object(map[string]*openapi.Schema{
		"entries": openapi.ArrayOf(openapi.Object(map[string]*openapi.Schema{
			"id":        {Type: "string"},
			"typeUrl":   {Type: "string"},
			"txHash":    {Type: "string"},
			"height":    {Type: "integer", Format: "int64"},
			"code":      {Type: "integer"},
			"gasUsed":   {Type: "integer", Format: "int64"},
			"createdId": {Type: "string"},
			"memo":      {Type: "string"},
			"payload":   {Type: "object"},
			"status":    {Type: "string", Enum: []string{"committed", "failed"}},
			"error":     {Type: "string"},
			"createdAt": {Type: "string", Format: "date-time"},
		}, "id", "typeUrl", "status")),
		"total": {Type: "integer"},
	}, "entries", "total"))
	return g
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

// NewMetricsMiddleware creates middleware that records request metrics,
// labelled by chi route pattern to bound cardinality.
func NewMetricsMiddleware(m *metrics.Collector, metricsPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipInternal(r.URL.Path, metricsPath) {
				next.ServeHTTP(w, r)
				return
			}

			m.RequestsInFlight.Inc()
			defer m.RequestsInFlight.Dec()

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			pattern := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				pattern = rctx.RoutePattern()
			}
			m.RequestsTotal.WithLabelValues(r.Method, pattern, statusLabel(ww.Status())).Inc()
			m.RequestDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
		})
	}
}

// statusLabel returns a string label for the status code.
func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "other"
	}
}

// NewLoggingMiddleware creates a new logging middleware.
func NewLoggingMiddleware(logger zerolog.Logger, metricsPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			if skipInternal(r.URL.Path, metricsPath) {
				return
			}

			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}

func skipInternal(path, metricsPath string) bool {
	return path == "/health" || path == metricsPath ||
		strings.HasPrefix(path, "/swagger") || strings.HasPrefix(path, "/.well-known")
}
