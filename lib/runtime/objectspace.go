package runtime

import "github.com/chazu/minitalk/compiler"

// RootClassName names the class every hierarchy ends in.
const RootClassName = "Object"

// Method is a compiled method: its pattern, raw body text and the body
// lowered into statement shapes, held in run order (see runOrder).
// Immutable after creation.
type Method struct {
	Selector   string
	Parameters []string
	Temps      []string
	Source     string
	Owner      *Class
	Body       []compiler.Shape
}

// Class represents a registered minitalk class. Superclass is a name key
// resolved through the ClassTable at lookup time.
type Class struct {
	Name         string
	Superclass   string
	InstanceVars []string
	Methods      map[string]*Method
}

// NewClass creates a class with an empty method table.
func NewClass(name, superclass string, instanceVars []string) *Class {
	return &Class{
		Name:         name,
		Superclass:   superclass,
		InstanceVars: instanceVars,
		Methods:      make(map[string]*Method),
	}
}

// AddMethod installs m, replacing any method with the same selector.
func (c *Class) AddMethod(m *Method) {
	m.Owner = c
	c.Methods[m.Selector] = m
}

// ClassFromDef builds a class from a parsed declaration, lowering every
// method body with the given initializer selector.
func ClassFromDef(def *compiler.ClassDef, initializer string) *Class {
	c := NewClass(def.Name, def.Superclass, def.InstanceVariables)
	for _, md := range def.Methods {
		c.AddMethod(&Method{
			Selector:   md.Selector,
			Parameters: md.Parameters,
			Temps:      md.Temps,
			Source:     md.Source,
			Body:       runOrder(compiler.LowerMethod(md, initializer)),
		})
	}
	return c
}

// ---------------------------------------------------------------------------
// ClassTable
// ---------------------------------------------------------------------------

// ClassTable maps class names to classes. It is built before a script runs
// and only read while it runs.
type ClassTable struct {
	classes map[string]*Class
	order   []string
}

// NewClassTable creates a table holding only the root class.
func NewClassTable() *ClassTable {
	t := &ClassTable{classes: make(map[string]*Class)}
	t.Register(NewClass(RootClassName, "", nil))
	return t
}

// Register adds c, replacing a class of the same name.
func (t *ClassTable) Register(c *Class) {
	if _, exists := t.classes[c.Name]; !exists {
		t.order = append(t.order, c.Name)
	}
	t.classes[c.Name] = c
}

// Lookup finds a class by name.
func (t *ClassTable) Lookup(name string) (*Class, bool) {
	c, ok := t.classes[name]
	return c, ok
}

// Names returns class names in registration order.
func (t *ClassTable) Names() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Len returns the number of registered classes, the root included.
func (t *ClassTable) Len() int {
	return len(t.classes)
}

// Superclass resolves the superclass key of c. An empty or unregistered key
// resolves to nil.
func (t *ClassTable) Superclass(c *Class) *Class {
	if c == nil || c.Superclass == "" || c.Superclass == c.Name {
		return nil
	}
	return t.classes[c.Superclass]
}

// Chain returns c followed by its ancestors, nearest first. A cycle in the
// superclass keys ends the chain at the first repeated class.
func (t *ClassTable) Chain(c *Class) []*Class {
	var chain []*Class
	seen := make(map[*Class]bool)
	for cur := c; cur != nil && !seen[cur]; cur = t.Superclass(cur) {
		seen[cur] = true
		chain = append(chain, cur)
	}
	return chain
}

// FindMethod walks from c up through its superclasses and returns the first
// method for selector, or nil.
func (t *ClassTable) FindMethod(c *Class, selector string) *Method {
	for _, cur := range t.Chain(c) {
		if m, ok := cur.Methods[selector]; ok {
			return m
		}
	}
	return nil
}

// AllInstanceVars returns every instance variable declared along the chain
// of c, root-most first, each name once.
func (t *ClassTable) AllInstanceVars(c *Class) []string {
	chain := t.Chain(c)
	var vars []string
	seen := make(map[string]bool)
	for i := len(chain) - 1; i >= 0; i-- {
		for _, v := range chain[i].InstanceVars {
			if !seen[v] {
				seen[v] = true
				vars = append(vars, v)
			}
		}
	}
	return vars
}
