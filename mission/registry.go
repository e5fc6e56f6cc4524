package mission

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"robobot.dev/raubase/config"
	"robobot.dev/raubase/logging"
)

// Constructor builds a mission from its config section.
type Constructor func(section *config.Section, logger logging.Logger) (Mission, error)

// Registration describes a mission known to the dispatcher.
type Registration struct {
	Name        string
	Description string
	// Profiles lists the built in configuration profiles, the first one is the default.
	Profiles    []string
	Constructor Constructor
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Registration{}
)

// Register adds a mission. It is meant to be called from init and panics on a duplicate or
// incomplete registration.
func Register(reg Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if reg.Name == "" || reg.Constructor == nil {
		panic(errors.Errorf("incomplete mission registration %q", reg.Name))
	}
	if _, ok := registry[reg.Name]; ok {
		panic(errors.Errorf("mission %q registered twice", reg.Name))
	}
	registry[reg.Name] = reg
}

// Lookup returns the registration of a mission.
func Lookup(name string) (Registration, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	reg, ok := registry[name]
	return reg, ok
}

// Registered returns every registration sorted by name.
func Registered() []Registration {
	registryMu.RLock()
	defer registryMu.RUnlock()
	regs := make([]Registration, 0, len(registry))
	for _, reg := range registry {
		regs = append(regs, reg)
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i].Name < regs[j].Name })
	return regs
}
