package publishers

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported publisher types.
const (
	TypeSQS       = "sqs"
	TypeSNS       = "sns"
	TypeHTTP      = "http"
	TypeGCPPubSub = "gcp_pubsub"
	TypeNATS      = "nats"
)

const (
	httpDefaultMethod         = "POST"
	httpDefaultTimeoutSeconds = 5
	natsDefaultTimeoutSeconds = 5
)

// PublisherConfig is one entry of the publishers file. Exactly one sink
// block, matching Type, is expected.
type PublisherConfig struct {
	ID        string                    `json:"id" yaml:"id"`
	Type      string                    `json:"type" yaml:"type"`
	Enabled   *bool                     `json:"enabled" yaml:"enabled"`
	SQS       *SQSPublisherConfig       `json:"sqs" yaml:"sqs"`
	SNS       *SNSPublisherConfig       `json:"sns" yaml:"sns"`
	HTTP      *HTTPPublisherConfig      `json:"http" yaml:"http"`
	GCPPubSub *GCPPubSubPublisherConfig `json:"gcp_pubsub" yaml:"gcp_pubsub"`
	NATS      *NATSPublisherConfig      `json:"nats" yaml:"nats"`
}

// AWSAuthConfig overrides the default AWS credential chain, e.g. for LocalStack.
type AWSAuthConfig struct {
	Endpoint        string `json:"endpoint" yaml:"endpoint"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
}

// SQSPublisherConfig holds AWS SQS specific settings.
type SQSPublisherConfig struct {
	QueueURL      string `json:"uri" yaml:"uri"`
	Region        string `json:"region" yaml:"region"`
	AWSAuthConfig `yaml:",inline"`
}

// SNSPublisherConfig holds AWS SNS specific settings.
type SNSPublisherConfig struct {
	TopicARN      string `json:"topic_arn" yaml:"topic_arn"`
	Region        string `json:"region" yaml:"region"`
	AWSAuthConfig `yaml:",inline"`
}

// HTTPPublisherConfig holds generic webhook settings.
type HTTPPublisherConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// GCPPubSubPublisherConfig holds Google Cloud Pub/Sub settings. EmulatorHost
// points the client at a local emulator without authentication.
type GCPPubSubPublisherConfig struct {
	ProjectID       string `json:"project_id" yaml:"project_id"`
	Topic           string `json:"topic" yaml:"topic"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
	EmulatorHost    string `json:"emulator_host" yaml:"emulator_host"`
}

// NATSPublisherConfig holds NATS core publish settings.
type NATSPublisherConfig struct {
	URL            string `json:"url" yaml:"url"`
	Subject        string `json:"subject" yaml:"subject"`
	Name           string `json:"name" yaml:"name"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// EnabledValue returns the enabled flag, defaulting to true.
func (cfg PublisherConfig) EnabledValue() bool {
	return cfg.Enabled == nil || *cfg.Enabled
}

// normalize trims every field and fills defaults. Sink blocks are copied so
// the caller's values are never mutated.
func (cfg PublisherConfig) normalize() PublisherConfig {
	cfg.ID = strings.TrimSpace(cfg.ID)
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))
	if cfg.Enabled == nil {
		on := true
		cfg.Enabled = &on
	}

	if cfg.SQS != nil {
		c := *cfg.SQS
		c.QueueURL = strings.TrimSpace(c.QueueURL)
		c.Region = strings.TrimSpace(c.Region)
		c.AWSAuthConfig = c.AWSAuthConfig.normalize()
		cfg.SQS = &c
	}
	if cfg.SNS != nil {
		c := *cfg.SNS
		c.TopicARN = strings.TrimSpace(c.TopicARN)
		c.Region = strings.TrimSpace(c.Region)
		c.AWSAuthConfig = c.AWSAuthConfig.normalize()
		cfg.SNS = &c
	}
	if cfg.HTTP != nil {
		c := *cfg.HTTP
		c.URL = strings.TrimSpace(c.URL)
		if c.Method = strings.ToUpper(strings.TrimSpace(c.Method)); c.Method == "" {
			c.Method = httpDefaultMethod
		}
		c.Headers = trimHeaders(c.Headers)
		if c.TimeoutSeconds <= 0 {
			c.TimeoutSeconds = httpDefaultTimeoutSeconds
		}
		cfg.HTTP = &c
	}
	if cfg.GCPPubSub != nil {
		c := *cfg.GCPPubSub
		c.ProjectID = strings.TrimSpace(c.ProjectID)
		c.Topic = strings.TrimSpace(c.Topic)
		c.CredentialsFile = strings.TrimSpace(c.CredentialsFile)
		c.EmulatorHost = strings.TrimSpace(c.EmulatorHost)
		cfg.GCPPubSub = &c
	}
	if cfg.NATS != nil {
		c := *cfg.NATS
		c.URL = strings.TrimSpace(c.URL)
		c.Subject = strings.TrimSpace(c.Subject)
		c.Name = strings.TrimSpace(c.Name)
		if c.TimeoutSeconds <= 0 {
			c.TimeoutSeconds = natsDefaultTimeoutSeconds
		}
		cfg.NATS = &c
	}
	return cfg
}

func (a AWSAuthConfig) normalize() AWSAuthConfig {
	a.Endpoint = strings.TrimSpace(a.Endpoint)
	a.AccessKeyID = strings.TrimSpace(a.AccessKeyID)
	a.SecretAccessKey = strings.TrimSpace(a.SecretAccessKey)
	return a
}

// validate reports the first missing field for the entry's type.
func (cfg PublisherConfig) validate() error {
	if cfg.ID == "" {
		return errors.New("id is required")
	}
	if cfg.Type == "" {
		return fmt.Errorf("type is required for publisher %q", cfg.ID)
	}

	var missing []string
	switch cfg.Type {
	case TypeSQS:
		if cfg.SQS == nil {
			return fmt.Errorf("sqs config required for publisher %q", cfg.ID)
		}
		missing = requireFields("sqs", map[string]string{"uri": cfg.SQS.QueueURL, "region": cfg.SQS.Region})
		if len(missing) == 0 {
			return cfg.SQS.AWSAuthConfig.validate(cfg.ID, "sqs")
		}
	case TypeSNS:
		if cfg.SNS == nil {
			return fmt.Errorf("sns config required for publisher %q", cfg.ID)
		}
		missing = requireFields("sns", map[string]string{"topic_arn": cfg.SNS.TopicARN, "region": cfg.SNS.Region})
		if len(missing) == 0 {
			return cfg.SNS.AWSAuthConfig.validate(cfg.ID, "sns")
		}
	case TypeHTTP:
		if cfg.HTTP == nil {
			return fmt.Errorf("http config required for publisher %q", cfg.ID)
		}
		missing = requireFields("http", map[string]string{"url": cfg.HTTP.URL})
	case TypeGCPPubSub:
		if cfg.GCPPubSub == nil {
			return fmt.Errorf("gcp_pubsub config required for publisher %q", cfg.ID)
		}
		missing = requireFields("gcp_pubsub", map[string]string{"project_id": cfg.GCPPubSub.ProjectID, "topic": cfg.GCPPubSub.Topic})
	case TypeNATS:
		if cfg.NATS == nil {
			return fmt.Errorf("nats config required for publisher %q", cfg.ID)
		}
		missing = requireFields("nats", map[string]string{"url": cfg.NATS.URL, "subject": cfg.NATS.Subject})
	default:
		return fmt.Errorf("unsupported type %q for publisher %q", cfg.Type, cfg.ID)
	}

	if len(missing) > 0 {
		return fmt.Errorf("%s required for publisher %q", strings.Join(missing, ", "), cfg.ID)
	}
	return nil
}

// validate requires static keys to come in pairs.
func (a AWSAuthConfig) validate(id, block string) error {
	if (a.AccessKeyID == "") != (a.SecretAccessKey == "") {
		return fmt.Errorf("%s.access_key_id and %s.secret_access_key must be set together for publisher %q", block, block, id)
	}
	return nil
}

// requireFields returns "<block>.<field>" for every empty value, sorted by field.
func requireFields(block string, fields map[string]string) []string {
	var missing []string
	for name, val := range fields {
		if val == "" {
			missing = append(missing, block+"."+name)
		}
	}
	slices.Sort(missing)
	return missing
}

func trimHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		key, val := strings.TrimSpace(k), strings.TrimSpace(v)
		if key != "" && val != "" {
			out[key] = val
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ConfigRegistry holds the validated entries of a publishers file. It is
// immutable after LoadRegistry returns.
type ConfigRegistry struct {
	publishers []PublisherConfig
	idx        map[string]int
}

// LoadRegistry reads a YAML or JSON publishers file. The extension picks the
// decoder; files without a known extension are tried as YAML, then JSON.
func LoadRegistry(path string) (*ConfigRegistry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("publishers file path is empty")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read publishers file: %w", err)
	}

	var file struct {
		Publishers []PublisherConfig `json:"publishers" yaml:"publishers"`
	}
	if err := decodeByExt(raw, filepath.Ext(path), &file); err != nil {
		return nil, err
	}
	if len(file.Publishers) == 0 {
		return nil, errors.New("publishers file contains no publishers entries")
	}

	reg := &ConfigRegistry{
		publishers: make([]PublisherConfig, 0, len(file.Publishers)),
		idx:        make(map[string]int, len(file.Publishers)),
	}
	for i, entry := range file.Publishers {
		cfg := entry.normalize()
		if err := cfg.validate(); err != nil {
			return nil, fmt.Errorf("publishers[%d]: %w", i, err)
		}
		if _, dup := reg.idx[cfg.ID]; dup {
			return nil, fmt.Errorf("duplicate publisher id %q", cfg.ID)
		}
		reg.idx[cfg.ID] = len(reg.publishers)
		reg.publishers = append(reg.publishers, cfg)
	}
	return reg, nil
}

func decodeByExt(raw []byte, ext string, out any) error {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode yaml publishers: %w", err)
		}
		return nil
	case ".json":
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode json publishers: %w", err)
		}
		return nil
	}

	yamlErr := yaml.Unmarshal(raw, out)
	if yamlErr == nil {
		return nil
	}
	if jsonErr := json.Unmarshal(raw, out); jsonErr != nil {
		return fmt.Errorf("publishers file format not recognized: %w", errors.Join(yamlErr, jsonErr))
	}
	return nil
}

// ByID returns the publisher config by id.
func (r *ConfigRegistry) ByID(id string) (PublisherConfig, bool) {
	if r == nil {
		return PublisherConfig{}, false
	}
	i, ok := r.idx[strings.TrimSpace(id)]
	if !ok {
		return PublisherConfig{}, false
	}
	return r.publishers[i], true
}

// All returns every configured publisher in file order.
func (r *ConfigRegistry) All() []PublisherConfig {
	if r == nil {
		return nil
	}
	return slices.Clone(r.publishers)
}

// Enabled returns the publishers that are switched on.
func (r *ConfigRegistry) Enabled() []PublisherConfig {
	if r == nil {
		return nil
	}
	out := make([]PublisherConfig, 0, len(r.publishers))
	for _, cfg := range r.publishers {
		if cfg.EnabledValue() {
			out = append(out, cfg)
		}
	}
	return out
}
