package runtime

import (
	"strings"

	"github.com/google/uuid"
)

// Instance represents a minitalk object instance
type Instance struct {
	ID    string
	Class *Class
	Vars  map[string]Value
}

// newInstance allocates an instance with one slot per inherited variable.
func newInstance(c *Class, vars []string, conv Conventions) *Instance {
	inst := &Instance{
		ID:    GenerateID(c.Name),
		Class: c,
		Vars:  make(map[string]Value, len(vars)),
	}
	for _, name := range vars {
		inst.Vars[name] = conv.DefaultFor(name)
	}
	return inst
}

// GetVar gets an instance variable value
func (inst *Instance) GetVar(name string) (Value, bool) {
	v, ok := inst.Vars[name]
	return v, ok
}

// SetVar sets a declared instance variable. It reports false when the
// variable is not declared anywhere in the chain.
func (inst *Instance) SetVar(name string, v Value) bool {
	if _, ok := inst.Vars[name]; !ok {
		return false
	}
	inst.Vars[name] = v
	return true
}

// GenerateID creates a new unique instance ID for the given class name
func GenerateID(className string) string {
	return strings.ToLower(className) + "_" + uuid.New().String()
}
