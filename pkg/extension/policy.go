package extension

import (
	"fmt"
	"strings"
)

// InstancePolicy controls whether a name yields a fresh instance per request
// or one shared base instance.
type InstancePolicy int

const (
	// PolicyInherit defers to the manager setting.
	PolicyInherit InstancePolicy = iota
	// PolicyPrototype constructs and injects a new instance on every request.
	PolicyPrototype
	// PolicySingleton caches the injected base instance per name. Wrappers
	// are still applied on every request. Dependencies are resolved once,
	// from the Properties of the request that built the instance; later
	// requests get the cached instance whatever their Properties.
	PolicySingleton
)

func (p InstancePolicy) String() string {
	switch p {
	case PolicyPrototype:
		return "prototype"
	case PolicySingleton:
		return "singleton"
	default:
		return "inherit"
	}
}

// ParseInstancePolicy parses "prototype" or "singleton", case-insensitively.
// The empty string yields PolicyPrototype.
func ParseInstancePolicy(s string) (InstancePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "prototype":
		return PolicyPrototype, nil
	case "singleton":
		return PolicySingleton, nil
	default:
		return PolicyInherit, fmt.Errorf("unknown instance policy %q", s)
	}
}
