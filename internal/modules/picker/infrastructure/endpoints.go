package infrastructure

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"branchPicker/internal/modules/picker/domain"
)

// Host families. The widget has been shipped against both for the same calls,
// so the family is a deployment choice rather than a constant.
const (
	FamilyDelivery   = "delivery"
	FamilyManagement = "management"
)

var defaultHosts = map[string]map[string]string{
	FamilyDelivery: {
		domain.RegionNA:      "https://cdn.contentstack.io",
		domain.RegionEU:      "https://eu-cdn.contentstack.com",
		domain.RegionAzureNA: "https://azure-na-cdn.contentstack.com",
		domain.RegionAzureEU: "https://azure-eu-cdn.contentstack.com",
	},
	FamilyManagement: {
		domain.RegionNA:      "https://api.contentstack.io",
		domain.RegionEU:      "https://eu-api.contentstack.com",
		domain.RegionAzureNA: "https://azure-na-api.contentstack.com",
		domain.RegionAzureEU: "https://azure-eu-api.contentstack.com",
	},
}

// EndpointMap resolves region codes to API base URLs.
type EndpointMap struct {
	Family string
	hosts  map[string]string
}

type endpointFile struct {
	Family  string            `yaml:"family"`
	Regions map[string]string `yaml:"regions"`
}

// NewEndpointMap returns the built-in hosts of a family; unknown families use delivery.
func NewEndpointMap(family string) *EndpointMap {
	normalized := strings.ToLower(strings.TrimSpace(family))
	if _, ok := defaultHosts[normalized]; !ok {
		normalized = FamilyDelivery
	}
	hosts := make(map[string]string, len(defaultHosts[normalized]))
	for region, host := range defaultHosts[normalized] {
		hosts[region] = host
	}
	return &EndpointMap{Family: normalized, hosts: hosts}
}

// LoadEndpointMap builds the map for family and applies the YAML overrides in path, if any.
// A family declared in the file replaces the configured one before overrides apply.
func LoadEndpointMap(family, path string) (*EndpointMap, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return NewEndpointMap(family), nil
	}
	raw, err := os.ReadFile(trimmed)
	if err != nil {
		return nil, fmt.Errorf("read endpoint file: %w", err)
	}
	var file endpointFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse endpoint file: %w", err)
	}
	if strings.TrimSpace(file.Family) != "" {
		family = file.Family
	}
	endpoints := NewEndpointMap(family)
	for region, host := range file.Regions {
		code := domain.NormalizeRegion(region)
		if code != strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(region)), "-", "_") {
			slog.Warn("endpoint override for unknown region ignored", slog.String("region", region))
			continue
		}
		if cleaned := strings.TrimRight(strings.TrimSpace(host), "/"); cleaned != "" {
			endpoints.hosts[code] = cleaned
		}
	}
	return endpoints, nil
}

// BaseURL returns the host for region, falling back to NA.
func (m *EndpointMap) BaseURL(region string) string {
	if host, ok := m.hosts[domain.NormalizeRegion(region)]; ok {
		return host
	}
	return m.hosts[domain.RegionNA]
}

// Regions lists the configured region codes with their hosts.
func (m *EndpointMap) Regions() map[string]string {
	out := make(map[string]string, len(m.hosts))
	for region, host := range m.hosts {
		out[region] = host
	}
	return out
}
