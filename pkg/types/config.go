package types

import "time"

// HTTPConfig holds settings for requests to the remote graph.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "mardi-importer/0.1 (mailto:ops@example.org)"). Wikimedia
	// rejects requests without one.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// MaxRetries bounds retries on HTTP 429 and 503 (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// ImporterConfig holds settings for the entity importer and the claim
// translator.
type ImporterConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// RemoteAPIURL is the remote graph's api.php endpoint.
	RemoteAPIURL string `json:"remote_api_url" yaml:"remote_api_url" mapstructure:"remote_api_url"`

	// RemoteConceptPrefix identifies unit and globe links that point into
	// the remote graph (matched as a substring, e.g. "www.wikidata.org/").
	RemoteConceptPrefix string `json:"remote_concept_prefix" yaml:"remote_concept_prefix" mapstructure:"remote_concept_prefix"`

	// LocalConceptBase is prepended to local ids when rewriting unit and
	// globe links (e.g. "https://portal.mardi4nfdi.de/entity/").
	LocalConceptBase string `json:"local_concept_base" yaml:"local_concept_base" mapstructure:"local_concept_base"`

	// Languages restricts imported labels, descriptions and aliases. Empty
	// or ["all"] keeps every language.
	Languages []string `json:"languages" yaml:"languages" mapstructure:"languages"`

	// ExcludedProperties are foreign property ids whose statements are
	// never mirrored.
	ExcludedProperties []string `json:"excluded_properties" yaml:"excluded_properties" mapstructure:"excluded_properties"`

	// ExcludedKinds are value kinds that are never mirrored. Defaults to
	// DefaultExcludedKinds.
	ExcludedKinds []ValueKind `json:"excluded_kinds" yaml:"excluded_kinds" mapstructure:"excluded_kinds"`
}

// EffectiveLanguages returns the language filter, nil meaning all.
func (c ImporterConfig) EffectiveLanguages() []string {
	for _, l := range c.Languages {
		if l == "all" {
			return nil
		}
	}
	return c.Languages
}

// MappingConfig selects the id mapping store.
type MappingConfig struct {
	// Driver is sqlite3 (default), mysql or postgres.
	Driver string `json:"driver" yaml:"driver" mapstructure:"driver"`

	// DSN is the driver-specific data source name. For sqlite3 it is a file
	// path.
	DSN string `json:"dsn" yaml:"dsn" mapstructure:"dsn"`
}

// LocalStoreConfig holds settings for the local graph store.
type LocalStoreConfig struct {
	// Dir contains index/local.db.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// MaxResults is the default limit for term searches (default 20).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`
}

// IdentityConfig names the local vocabulary used for contributor records.
// All ids are local ids.
type IdentityConfig struct {
	Language string `json:"language" yaml:"language" mapstructure:"language"`

	// Description is attached to newly created contributor records
	// (e.g. "researcher").
	Description string `json:"description" yaml:"description" mapstructure:"description"`

	InstanceOf      string `json:"instance_of" yaml:"instance_of" mapstructure:"instance_of"`
	Human           string `json:"human" yaml:"human" mapstructure:"human"`
	StrongIDProp    string `json:"strong_id_property" yaml:"strong_id_property" mapstructure:"strong_id_property"`
	SecondaryProp   string `json:"secondary_id_property" yaml:"secondary_id_property" mapstructure:"secondary_id_property"`
	AffiliationProp string `json:"affiliation_property" yaml:"affiliation_property" mapstructure:"affiliation_property"`

	// ProfileProp, when set, receives a link to the contributor's profile
	// page built from ProfileURL and the secondary id.
	ProfileProp string `json:"profile_property,omitempty" yaml:"profile_property,omitempty" mapstructure:"profile_property"`
	ProfileURL  string `json:"profile_url,omitempty" yaml:"profile_url,omitempty" mapstructure:"profile_url"`

	// Teams maps organisation names that appear as contributors to their
	// foreign ids. Such mentions resolve through the mapping cache.
	Teams map[string]string `json:"teams,omitempty" yaml:"teams,omitempty" mapstructure:"teams"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	// Level is debug, info, warn or error (default info).
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Production selects JSON output instead of the console encoder.
	Production bool `json:"production" yaml:"production" mapstructure:"production"`
}

// TelemetryConfig toggles OpenTelemetry export.
type TelemetryConfig struct {
	// Enabled installs the SDK providers with stdout exporters. When false
	// the global no-op providers stay in place.
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// ServiceName is reported as the service.name resource attribute.
	ServiceName string `json:"service_name" yaml:"service_name" mapstructure:"service_name"`
}

// Config groups all settings read from mardi-importer.yaml.
type Config struct {
	Importer   ImporterConfig   `json:"importer" yaml:"importer" mapstructure:"importer"`
	Mapping    MappingConfig    `json:"mapping" yaml:"mapping" mapstructure:"mapping"`
	LocalStore LocalStoreConfig `json:"local_store" yaml:"local_store" mapstructure:"local_store"`
	Identity   IdentityConfig   `json:"identity" yaml:"identity" mapstructure:"identity"`
	Log        LogConfig        `json:"log" yaml:"log" mapstructure:"log"`
	Telemetry  TelemetryConfig  `json:"telemetry" yaml:"telemetry" mapstructure:"telemetry"`
}
