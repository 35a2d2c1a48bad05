// Package core provides the module system foundation for gemgram.
package core

import (
	"fmt"
	"log/slog"
	"sync"

	"gopkg.in/yaml.v3"
)

// AppContext carries shared resources available to modules during
// provisioning and at runtime.
type AppContext struct {
	// Logger for the current module scope.
	Logger *slog.Logger

	// DataDir is the root directory for persistent module data.
	DataDir string

	parentLogger  *slog.Logger
	moduleConfigs map[string]yaml.Node

	services   map[string]any
	servicesMu *sync.RWMutex
}

// NewAppContext creates a new AppContext with the given base logger and
// data directory.
func NewAppContext(logger *slog.Logger, dataDir string) *AppContext {
	if logger == nil {
		logger = slog.Default()
	}
	return &AppContext{
		Logger:       logger,
		DataDir:      dataDir,
		parentLogger: logger,
		services:     make(map[string]any),
		servicesMu:   &sync.RWMutex{},
	}
}

// WithModuleConfigs returns a copy of the AppContext with module
// configurations set. Each key is a module ID mapping to its raw YAML
// configuration node.
func (ctx *AppContext) WithModuleConfigs(configs map[string]yaml.Node) *AppContext {
	cp := *ctx
	cp.moduleConfigs = configs
	return &cp
}

// RegisterService publishes a shared object under a well-known name so
// other modules can discover it (e.g. "security.credentials",
// "stats.recorder"). Later registrations replace earlier ones.
func (ctx *AppContext) RegisterService(name string, svc any) {
	ctx.servicesMu.Lock()
	defer ctx.servicesMu.Unlock()
	ctx.services[name] = svc
}

// GetService returns the service registered under name, or false when no
// such service exists. Callers type-assert the result.
func (ctx *AppContext) GetService(name string) (any, bool) {
	ctx.servicesMu.RLock()
	defer ctx.servicesMu.RUnlock()
	svc, ok := ctx.services[name]
	return svc, ok
}

// ForModule returns a new AppContext scoped to the given module ID,
// with a child logger that includes the module ID. The service registry
// is shared, not copied.
func (ctx *AppContext) ForModule(id ModuleID) *AppContext {
	return &AppContext{
		Logger:        ctx.parentLogger.With("module", string(id)),
		DataDir:       ctx.DataDir,
		parentLogger:  ctx.parentLogger,
		moduleConfigs: ctx.moduleConfigs,
		services:      ctx.services,
		servicesMu:    ctx.servicesMu,
	}
}

// LoadModule instantiates and provisions a module by its ID.
// It calls Configure, Provision and Validate if the module implements
// those interfaces. The lifecycle order is:
//
//	New() → Configure() → Provision() → Validate()
//
// Returns the provisioned module instance ready for use.
func (ctx *AppContext) LoadModule(id string) (Module, error) {
	info, ok := GetModule(id)
	if !ok {
		return nil, fmt.Errorf("unknown module: %s", id)
	}

	mod := info.New()

	if c, ok := mod.(Configurable); ok {
		if node, exists := ctx.moduleConfigs[id]; exists {
			if err := c.Configure(&node); err != nil {
				return nil, fmt.Errorf("configuring module %s: %w", id, err)
			}
		}
	}

	if p, ok := mod.(Provisioner); ok {
		moduleCtx := ctx.ForModule(info.ID)
		if err := p.Provision(moduleCtx); err != nil {
			return nil, fmt.Errorf("provisioning module %s: %w", id, err)
		}
	}

	if v, ok := mod.(Validator); ok {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("validating module %s: %w", id, err)
		}
	}

	return mod, nil
}
