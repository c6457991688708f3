// Package interp wires the class parser, class table and evaluator into an
// Environment that loads class sources and executes scripts against them.
package interp

import (
	"github.com/tliron/commonlog"

	"github.com/chazu/minitalk/compiler"
	"github.com/chazu/minitalk/lib/runtime"
	"github.com/chazu/minitalk/transcript"
)

var log = commonlog.GetLogger("minitalk.interp")

// Environment is one interpreter instance: a class table, the evaluator
// that runs against it and the sink receiving output. It is not safe for
// concurrent use.
type Environment struct {
	rt          *runtime.Interpreter
	parseErrors []string
}

// New creates an environment writing output to out. A nil sink discards
// output.
func New(conv runtime.Conventions, out transcript.Sink) *Environment {
	return &Environment{rt: runtime.NewInterpreter(conv, out)}
}

// ParseClass parses every class declaration block in src, registers each,
// and returns the last one. It returns compiler.ErrParseMismatch when no
// block matches. Regions that fail to parse are skipped and recorded in
// ParseErrors.
func (e *Environment) ParseClass(src string) (*runtime.Class, error) {
	defs, errs, err := compiler.ParseClasses(src)
	for _, msg := range errs {
		log.Debugf("skipped: %s", msg)
	}
	e.parseErrors = append(e.parseErrors, errs...)
	if err != nil {
		return nil, err
	}

	var last *runtime.Class
	for _, def := range defs {
		if def.SkippedClassMethods > 0 {
			log.Debugf("%s: skipped %d class-side method blocks", def.Name, def.SkippedClassMethods)
		}
		last = e.rt.Define(def)
	}
	return last, nil
}

// ExecuteScript runs a top-level script. The first fatal error aborts the
// run and is returned.
func (e *Environment) ExecuteScript(src string) error {
	_, err := e.Run(src)
	return err
}

// Classes exposes the class table.
func (e *Environment) Classes() *runtime.ClassTable {
	return e.rt.Classes
}

// Runtime exposes the evaluator, for direct instantiation and sends.
func (e *Environment) Runtime() *runtime.Interpreter {
	return e.rt
}

// Conventions returns the conventions the environment was created with.
func (e *Environment) Conventions() runtime.Conventions {
	return e.rt.Conventions
}

// Diagnostics returns the contained evaluator failures recorded so far.
func (e *Environment) Diagnostics() []runtime.Diagnostic {
	return e.rt.Diagnostics()
}

// ParseErrors returns messages for source regions the class parser skipped.
func (e *Environment) ParseErrors() []string {
	return e.parseErrors
}
