package openapi

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
)

// Service serves the generated specification. Its inputs are fixed at
// startup, so the spec is generated once and cloned per request with the
// caller's server URL.
type Service struct {
	generator *Generator
	logger    zerolog.Logger

	once sync.Once
	spec *Spec
}

// NewService creates a new OpenAPI service.
func NewService(g *Generator, logger zerolog.Logger) *Service {
	return &Service{
		generator: g,
		logger:    logger,
	}
}

// Spec returns the specification with baseURL as its first server.
func (s *Service) Spec(baseURL string) *Spec {
	s.once.Do(func() {
		s.spec = s.generator.Generate()
		s.logger.Debug().Int("paths", len(s.spec.Paths)).Int("schemas", len(s.spec.Components.Schemas)).Msg("openapi spec generated")
	})
	if baseURL == "" {
		return s.spec
	}
	return s.cloneSpecWithServer(s.spec, baseURL)
}

// JSON renders Spec(baseURL).
func (s *Service) JSON(baseURL string) ([]byte, error) {
	return json.MarshalIndent(s.Spec(baseURL), "", "  ")
}

// cloneSpecWithServer creates a copy of the spec with the given server URL.
func (s *Service) cloneSpecWithServer(spec *Spec, baseURL string) *Spec {
	// Deep clone using JSON
	data, err := json.Marshal(spec)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to clone OpenAPI spec")
		return spec
	}

	var cloned Spec
	if err := json.Unmarshal(data, &cloned); err != nil {
		s.logger.Error().Err(err).Msg("failed to unmarshal cloned OpenAPI spec")
		return spec
	}

	if len(cloned.Servers) > 0 {
		cloned.Servers[0].URL = baseURL
	} else {
		cloned.Servers = []Server{{URL: baseURL, Description: "Current server"}}
	}
	return &cloned
}
