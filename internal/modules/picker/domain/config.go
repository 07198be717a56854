package domain

import (
	"net/url"
	"strings"
)

// Regions understood by the endpoint map.
const (
	RegionNA      = "NA"
	RegionEU      = "EU"
	RegionAzureNA = "AZURE_NA"
	RegionAzureEU = "AZURE_EU"

	DefaultEnvironment = "production"
)

// HostOptions are the widget options configured on the field in the host app.
// Booleans are pointers so an absent option keeps its default.
type HostOptions struct {
	TargetBranch         string `json:"targetBranch"`
	CurrentBranch        string `json:"currentBranch"`
	ContentType          string `json:"contentType"`
	Multiple             *bool  `json:"multiple"`
	ShowBothBranches     *bool  `json:"showBothBranches"`
	APIKey               string `json:"apiKey"`
	DeliveryToken        string `json:"deliveryToken"`
	TargetDeliveryToken  string `json:"targetDeliveryToken"`
	CurrentDeliveryToken string `json:"currentDeliveryToken"`
	Environment          string `json:"environment"`
	Region               string `json:"region"`
}

// HostContext carries what the host exposes besides the field options.
type HostContext struct {
	Branch string `json:"branch"`
	URL    string `json:"url"`
}

// Defaults are server-side fallbacks for credentials and delivery settings.
type Defaults struct {
	APIKey        string
	DeliveryToken string
	Environment   string
	Region        string
}

// WidgetConfig is resolved once per render cycle and never mutated afterwards.
type WidgetConfig struct {
	TargetBranch         string
	CurrentBranch        string
	ContentType          string
	Multiple             bool
	ShowBothBranches     bool
	APIKey               string
	DeliveryToken        string
	TargetDeliveryToken  string
	CurrentDeliveryToken string
	Environment          string
	Region               string
}

// BranchConfig holds the parameters of one branch fetch.
type BranchConfig struct {
	Branch        string
	Label         string
	ContentType   string
	APIKey        string
	DeliveryToken string
	Environment   string
	Region        string
}

// ResolveConfig merges host options, host context and server defaults.
func ResolveConfig(opts HostOptions, host HostContext, defaults Defaults) WidgetConfig {
	cfg := WidgetConfig{
		TargetBranch:         firstNonEmpty(opts.TargetBranch, DefaultBranch),
		CurrentBranch:        resolveCurrentBranch(opts.CurrentBranch, host),
		ContentType:          strings.TrimSpace(opts.ContentType),
		Multiple:             boolOr(opts.Multiple, false),
		ShowBothBranches:     boolOr(opts.ShowBothBranches, true),
		APIKey:               firstNonEmpty(opts.APIKey, defaults.APIKey),
		DeliveryToken:        firstNonEmpty(opts.DeliveryToken, defaults.DeliveryToken),
		TargetDeliveryToken:  strings.TrimSpace(opts.TargetDeliveryToken),
		CurrentDeliveryToken: strings.TrimSpace(opts.CurrentDeliveryToken),
		Environment:          firstNonEmpty(opts.Environment, defaults.Environment, DefaultEnvironment),
		Region:               NormalizeRegion(firstNonEmpty(opts.Region, defaults.Region)),
	}
	return cfg
}

// NeedsSecondary reports whether the current branch must be fetched as well.
func (c WidgetConfig) NeedsSecondary() bool {
	return c.ShowBothBranches && c.CurrentBranch != c.TargetBranch
}

// Target returns the fetch parameters of the target branch.
func (c WidgetConfig) Target() BranchConfig {
	return c.branch(c.TargetBranch, TargetBranchLabel, c.TargetDeliveryToken)
}

// Secondary returns the fetch parameters of the current branch.
func (c WidgetConfig) Secondary() BranchConfig {
	return c.branch(c.CurrentBranch, BranchLabel(c.CurrentBranch), c.CurrentDeliveryToken)
}

func (c WidgetConfig) branch(name, label, tokenOverride string) BranchConfig {
	return BranchConfig{
		Branch:        name,
		Label:         label,
		ContentType:   c.ContentType,
		APIKey:        c.APIKey,
		DeliveryToken: firstNonEmpty(tokenOverride, c.DeliveryToken),
		Environment:   c.Environment,
		Region:        c.Region,
	}
}

// NormalizeRegion upper-cases a region code and falls back to NA when unknown.
func NormalizeRegion(raw string) string {
	region := strings.ToUpper(strings.TrimSpace(raw))
	region = strings.ReplaceAll(region, "-", "_")
	switch region {
	case RegionNA, RegionEU, RegionAzureNA, RegionAzureEU:
		return region
	default:
		return RegionNA
	}
}

// resolveCurrentBranch applies: explicit option, host branch, branch query parameter, main.
func resolveCurrentBranch(explicit string, host HostContext) string {
	if trimmed := strings.TrimSpace(explicit); trimmed != "" {
		return trimmed
	}
	if trimmed := strings.TrimSpace(host.Branch); trimmed != "" {
		return trimmed
	}
	if raw := strings.TrimSpace(host.URL); raw != "" {
		if parsed, err := url.Parse(raw); err == nil {
			if branch := strings.TrimSpace(parsed.Query().Get("branch")); branch != "" {
				return branch
			}
		}
	}
	return DefaultBranch
}

func boolOr(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
