package monitor

import (
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
)

// Kind names a provider request body that has a contract.
type Kind string

const (
	KindOrder Kind = "order"
	KindStore Kind = "store"
	KindPos   Kind = "pos"
)

// Kinds lists every payload kind with an embedded schema.
var Kinds = []Kind{KindOrder, KindStore, KindPos}

//go:embed schemas/*.json
var embeddedSchemas embed.FS

// ViolationError reports a payload that does not satisfy its contract.
type ViolationError struct {
	Kind   Kind
	Errors []string
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("%s payload rejected: %s", e.Kind, FormatErrors(e.Errors))
}

// Contracts holds one compiled monitor per payload kind.
type Contracts struct {
	monitors map[Kind]*ContractMonitor
}

// NewContracts compiles schemas/<kind>.json from fsys for every kind in Kinds.
func NewContracts(fsys fs.FS) (*Contracts, error) {
	c := &Contracts{monitors: make(map[Kind]*ContractMonitor, len(Kinds))}
	for _, kind := range Kinds {
		name := "schemas/" + string(kind) + ".json"
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("monitor: reading %s: %w", name, err)
		}
		m, err := NewContractMonitorFromString(name, string(data))
		if err != nil {
			return nil, err
		}
		c.monitors[kind] = m
	}
	return c, nil
}

// LoadContractsDir compiles <dir>/<kind>.json for every kind in Kinds.
func LoadContractsDir(dir string) (*Contracts, error) {
	c := &Contracts{monitors: make(map[Kind]*ContractMonitor, len(Kinds))}
	for _, kind := range Kinds {
		m, err := NewContractMonitor(filepath.Join(dir, string(kind)+".json"))
		if err != nil {
			return nil, err
		}
		c.monitors[kind] = m
	}
	return c, nil
}

// DefaultContracts compiles the embedded schemas once per process.
var DefaultContracts = sync.OnceValues(func() (*Contracts, error) {
	return NewContracts(embeddedSchemas)
})

// Check validates body against the contract for kind. A *ViolationError is
// returned when the body breaks the contract.
func (c *Contracts) Check(kind Kind, body []byte) error {
	m, ok := c.monitors[kind]
	if !ok {
		return fmt.Errorf("monitor: no contract for %q", kind)
	}
	valid, errs, err := m.Validate(body)
	if err != nil {
		return fmt.Errorf("monitor: %s: %w", kind, err)
	}
	if !valid {
		return &ViolationError{Kind: kind, Errors: errs}
	}
	return nil
}
