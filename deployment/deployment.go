// Package deployment maps logical model names to backend deployments.
//
// Callers always speak in logical model names ("gpt-4o", "gpt-4.1-mini");
// the map decides which provider serves the name and what the deployment is
// called on that provider's side. The map is built once from configuration
// and treated as immutable afterward.
package deployment

import (
	"sort"

	ai "github.com/smartsource/agentloop"
)

// Deployment identifies a backend deployment serving a logical model name.
type Deployment struct {
	// Provider is the backend that hosts the deployment.
	Provider ai.Provider
	// Name is the deployment identifier on the provider's side, sent as the
	// per-request model.
	Name string
}

// Map associates logical model names with backend deployments.
type Map map[string]Deployment

// Resolve returns the deployment serving the given logical model name.
// An unknown or unconfigured name returns *agentloop.ModelNotAvailableError
// before any network attempt is made. Resolution is a pure lookup: the same
// name against an unchanged map always yields the same deployment.
func (m Map) Resolve(model string) (Deployment, error) {
	dep, ok := m[model]
	if !ok {
		return Deployment{}, &ai.ModelNotAvailableError{
			Model:  model,
			Reason: "no deployment configured",
		}
	}
	if dep.Name == "" {
		return Deployment{}, &ai.ModelNotAvailableError{
			Model:  model,
			Reason: "deployment name is empty",
		}
	}
	return dep, nil
}

// Models returns the configured logical model names in sorted order.
func (m Map) Models() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
