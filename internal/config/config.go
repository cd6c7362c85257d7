// Package config resolves and reads the bridge's mercadopagoQR.properties file.
//
// Resolution order: an explicit path supplied by the caller, the MP_CONFIG
// environment variable, ./mercadopagoQR.properties and finally the same file
// name next to the running executable.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/magiconair/properties"
)

const (
	// DefaultFileName is looked up in the working directory and next to the executable.
	DefaultFileName = "mercadopagoQR.properties"
	// EnvConfigPath points at a properties file when the caller passes no explicit path.
	EnvConfigPath = "MP_CONFIG"

	DefaultBaseURL        = "https://api.mercadopago.com"
	DefaultConnectTimeout = 10000
	DefaultSocketTimeout  = 20000
	DefaultLogHTTPMax     = 2000
	DefaultEventsTopic    = "mpqr.operations.v1"

	StageTest = "test"
	StageProd = "prod"
)

// Endpoint names, used as the suffix of the mp.endpoint.<name> keys.
const (
	EndpointCreateOrder  = "createOrder"
	EndpointGetOrder     = "getOrder"
	EndpointCancelOrder  = "cancelOrder"
	EndpointRefundOrder  = "refundOrder"
	EndpointCreateStore  = "createStore"
	EndpointCreatePos    = "createPos"
	EndpointSearchStores = "searchStores"
	EndpointSearchPos    = "searchPos"
)

var defaultEndpoints = map[string]string{
	EndpointCreateOrder:  "/v1/orders",
	EndpointGetOrder:     "/v1/orders/%s",
	EndpointCancelOrder:  "/v1/orders/%s/cancel",
	EndpointRefundOrder:  "/v1/orders/%s/refund",
	EndpointCreateStore:  "/users/%s/stores",
	EndpointCreatePos:    "/pos",
	EndpointSearchStores: "/users/%s/stores/search",
	EndpointSearchPos:    "/pos",
}

// ErrNotFound is returned when no properties file could be resolved.
var ErrNotFound = errors.New("config: " + DefaultFileName + " not found")

// Config is a read-only view over the loaded properties.
type Config struct {
	props  *properties.Properties
	source string
}

// Load resolves the properties file and parses it.
func Load(explicitPath string) (*Config, error) {
	path, err := Resolve(explicitPath)
	if err != nil {
		return nil, err
	}
	p, err := properties.LoadFile(path, properties.UTF8)
	if err != nil {
		return nil, fmt.Errorf("config: loading %s: %w", path, err)
	}
	return &Config{props: p, source: path}, nil
}

// LoadString parses properties from an in-memory document.
func LoadString(doc string) (*Config, error) {
	p, err := properties.LoadString(doc)
	if err != nil {
		return nil, fmt.Errorf("config: parsing properties: %w", err)
	}
	return &Config{props: p, source: "inline"}, nil
}

// FromMap builds a Config from literal key/value pairs.
func FromMap(values map[string]string) *Config {
	return &Config{props: properties.LoadMap(values), source: "map"}
}

// Resolve returns the path of the properties file that Load would read.
// An explicit path or MP_CONFIG is returned as-is so that a missing file
// surfaces as a load error naming it.
func Resolve(explicitPath string) (string, error) {
	if p := strings.TrimSpace(explicitPath); p != "" {
		return p, nil
	}
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}

	candidates := []string{DefaultFileName}
	if exe, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exe), DefaultFileName))
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, nil
		}
	}
	return "", ErrNotFound
}

// Source names where the configuration came from.
func (c *Config) Source() string {
	return c.source
}

// Get returns the value for key, or def when the key is absent or blank.
func (c *Config) Get(key, def string) string {
	v, ok := c.props.Get(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// GetInt returns key as an int. Absent or malformed values yield def.
func (c *Config) GetInt(key string, def int) int {
	v, ok := c.props.Get(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

// GetBool returns key as a bool. Absent or malformed values yield def.
func (c *Config) GetBool(key string, def bool) bool {
	v, ok := c.props.Get(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}

// Stage is mp.etapa, lower-cased. Anything other than "test" means production.
func (c *Config) Stage() string {
	return strings.ToLower(strings.TrimSpace(c.Get("mp.etapa", StageTest)))
}

func (c *Config) IsTest() bool {
	return c.Stage() == StageTest
}

// AccessTokenKey is the property holding the bearer token for the current stage.
func (c *Config) AccessTokenKey() string {
	if c.IsTest() {
		return "mp.accessTokenTest"
	}
	return "mp.accessToken"
}

func (c *Config) AccessToken() string {
	return strings.TrimSpace(c.Get(c.AccessTokenKey(), ""))
}

// UserIDKey is the property holding the merchant user id for the current stage.
func (c *Config) UserIDKey() string {
	if c.IsTest() {
		return "mp.userIdTest"
	}
	return "mp.userId"
}

func (c *Config) UserID() string {
	return strings.TrimSpace(c.Get(c.UserIDKey(), ""))
}

func (c *Config) BaseURL() string {
	return strings.TrimRight(strings.TrimSpace(c.Get("mp.baseUrl", DefaultBaseURL)), "/")
}

func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.GetInt("mp.timeout.connect", DefaultConnectTimeout)) * time.Millisecond
}

func (c *Config) SocketTimeout() time.Duration {
	return time.Duration(c.GetInt("mp.timeout.socket", DefaultSocketTimeout)) * time.Millisecond
}

// Endpoint returns the path template for name; %s marks the path parameter.
func (c *Config) Endpoint(name string) string {
	return strings.TrimSpace(c.Get("mp.endpoint."+name, defaultEndpoints[name]))
}

func (c *Config) LogHTTP() bool {
	return c.GetBool("mp.log.http", false)
}

func (c *Config) LogHTTPMax() int {
	return c.GetInt("mp.log.httpMax", DefaultLogHTTPMax)
}

func (c *Config) LogFile() string {
	return strings.TrimSpace(c.Get("mp.log.file", ""))
}

func (c *Config) AuditDir() string {
	return strings.TrimSpace(c.Get("mp.audit.dir", ""))
}

// ContractsDir holds order.json, store.json and pos.json overriding the
// embedded payload contracts. Empty keeps the embedded ones.
func (c *Config) ContractsDir() string {
	return strings.TrimSpace(c.Get("mp.contracts.dir", ""))
}

// EventBrokers lists the Kafka brokers for operation events; empty disables publishing.
func (c *Config) EventBrokers() []string {
	var out []string
	for _, part := range strings.Split(c.Get("mp.events.brokers", ""), ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func (c *Config) EventTopic() string {
	return strings.TrimSpace(c.Get("mp.events.topic", DefaultEventsTopic))
}
