package gateway

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	rldomain "tiered-gateway/middleware/ratelimit/domain"
)

// FileConfig é o formato do arquivo YAML opcional (GATEWAY_CONFIG_FILE).
//
//	backends:
//	  service-a: http://localhost:3001
//	routes:
//	  - name: premium
//	    prefix: /api/premium
//	    backend: service-a
//	    auth: true
//	    tier_gate: premium
//	    scope: premium
//	    force_tier: premium
//	policies:
//	  public: {max: 10, window_seconds: 60}
type FileConfig struct {
	Backends map[string]string    `yaml:"backends"`
	Routes   []Route              `yaml:"routes"`
	Policies rldomain.PolicyTable `yaml:"policies"`
}

// LoadFile lê e decodifica o arquivo. Campos desconhecidos são erro.
func LoadFile(path string) (FileConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("open gateway config: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

func Decode(r io.Reader) (FileConfig, error) {
	var fc FileConfig
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return FileConfig{}, fmt.Errorf("decode gateway config: %w", err)
	}
	return fc, nil
}

// Merge aplica o arquivo sobre os valores base:
//   - backends e policies: sobrescrita por nome/tier
//   - routes: se presentes, substituem a tabela inteira
func (fc FileConfig) Merge(backends map[string]string, routes []Route, policies rldomain.PolicyTable) (map[string]string, []Route, rldomain.PolicyTable) {
	outBackends := make(map[string]string, len(backends)+len(fc.Backends))
	for k, v := range backends {
		outBackends[k] = v
	}
	for k, v := range fc.Backends {
		outBackends[k] = v
	}

	outRoutes := routes
	if len(fc.Routes) > 0 {
		outRoutes = fc.Routes
	}

	outPolicies := make(rldomain.PolicyTable, len(policies)+len(fc.Policies))
	for k, v := range policies {
		outPolicies[k] = v
	}
	for k, v := range fc.Policies {
		outPolicies[k] = v
	}
	return outBackends, outRoutes, outPolicies
}
