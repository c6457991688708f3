// minitalk CLI - loads class files and runs a script against them
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/minitalk/compiler"
	"github.com/chazu/minitalk/interp"
	"github.com/chazu/minitalk/lib/runtime"
	"github.com/chazu/minitalk/manifest"
	"github.com/chazu/minitalk/transcript"
)

// project is what one run needs: the class files, the script and the
// conventions, from a manifest or from the command line.
type project struct {
	name        string
	classFiles  []string
	mainFile    string
	record      string
	conventions runtime.Conventions
}

func main() {
	verbose := flag.Bool("v", false, "Verbose output (debug logging)")
	describe := flag.Bool("describe", false, "Narrate the loaded classes before running the script")
	mainScript := flag.String("main", "", "Script to run (default: the manifest's main, or Main.st)")
	record := flag.String("record", "", "Write the run's transcript events to this CBOR file")
	replay := flag.String("replay", "", "Print a recorded CBOR transcript and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: minitalk [options] [project-dir | class-files...]\n\n")
		fmt.Fprintf(os.Stderr, "Loads class definitions and runs a script against them.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  minitalk examples/ridesharing             # Run a project with minitalk.toml\n")
		fmt.Fprintf(os.Stderr, "  minitalk -describe examples/ridesharing   # Narrate classes, then run\n")
		fmt.Fprintf(os.Stderr, "  minitalk -main Main.st Ride.st Driver.st  # Run without a manifest\n")
		fmt.Fprintf(os.Stderr, "  minitalk -record run.cbor examples/ridesharing\n")
		fmt.Fprintf(os.Stderr, "  minitalk -replay run.cbor\n")
	}
	flag.Parse()

	verbosity := 0
	if *verbose {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)

	if *replay != "" {
		if err := replayLog(*replay); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	proj, err := resolveProject(flag.Args(), *mainScript)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *record != "" {
		proj.record = *record
	}

	if err := run(proj, os.Stdout, *describe); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// resolveProject builds a project from explicit class files, or from the
// manifest found at or above the given directory (default ".").
func resolveProject(args []string, mainScript string) (*project, error) {
	if len(args) > 1 || (len(args) == 1 && strings.HasSuffix(args[0], ".st")) {
		p := &project{
			name:        "minitalk",
			classFiles:  args,
			mainFile:    mainScript,
			conventions: runtime.DefaultConventions(),
		}
		if p.mainFile == "" {
			p.mainFile = filepath.Join(filepath.Dir(args[0]), manifest.DefaultMain)
		}
		return p, nil
	}

	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}
	m, err := manifest.FindAndLoad(dir)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("no %s found at or above %s", manifest.FileName, dir)
	}

	classFiles, err := m.ClassPaths()
	if err != nil {
		return nil, err
	}
	p := &project{
		name:        m.Project.Name,
		classFiles:  classFiles,
		mainFile:    m.MainPath(),
		record:      m.RecordPath(),
		conventions: m.ResolvedConventions(),
	}
	if mainScript != "" {
		p.mainFile = mainScript
	}
	return p, nil
}

// run loads the class files and executes the main script, writing its
// transcript to stdout.
func run(p *project, stdout io.Writer, describe bool) error {
	out := transcript.NewWriter(stdout)
	var sink transcript.Sink = out
	var rec *transcript.Recorder
	if p.record != "" {
		rec = &transcript.Recorder{}
		sink = transcript.Tee(sink, rec)
	}

	env := interp.New(p.conventions, sink)

	if describe {
		banner(strings.ToUpper(p.name))
		fmt.Println("\nParsing class definitions...")
	}
	for _, path := range p.classFiles {
		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		before := env.Classes().Names()
		if _, err := env.ParseClass(string(src)); err != nil {
			if errors.Is(err, compiler.ErrParseMismatch) {
				fmt.Fprintf(os.Stderr, "Warning: no class declarations in %s\n", path)
				continue
			}
			return fmt.Errorf("%s: %w", path, err)
		}
		if describe {
			fmt.Printf("Loaded classes from %s: %s\n", filepath.Base(path), strings.Join(added(before, env.Classes().Names()), ", "))
		}
	}

	if describe {
		describeClasses(env)
		banner("EXECUTING " + filepath.Base(p.mainFile))
		fmt.Println()
	}

	src, err := os.ReadFile(p.mainFile)
	if err != nil {
		return err
	}
	runErr := env.ExecuteScript(string(src))

	if rec != nil {
		if err := writeLog(p.record, rec.Log(filepath.Base(p.mainFile))); err != nil {
			return err
		}
	}
	if runErr != nil {
		return runErr
	}
	if err := out.Err(); err != nil {
		return fmt.Errorf("writing transcript: %w", err)
	}

	if describe {
		fmt.Println()
		banner("DONE")
		if n := len(env.Diagnostics()); n > 0 {
			fmt.Printf("%d evaluator diagnostics (run with -v for details)\n", n)
		}
	}
	return nil
}

// describeClasses prints instance variables, inheritance edges and the
// derived-value method of every loaded class.
func describeClasses(env *interp.Environment) {
	classes := env.Classes()
	var names []string
	for _, n := range classes.Names() {
		if n != runtime.RootClassName {
			names = append(names, n)
		}
	}

	fmt.Println("\n--- Classes ---")
	fmt.Println("\n1. Instance variables")
	for _, n := range names {
		c, _ := classes.Lookup(n)
		fmt.Printf("   %s: %s\n", n, strings.Join(classes.AllInstanceVars(c), " "))
	}

	fmt.Println("\n2. Inheritance")
	for _, n := range names {
		c, _ := classes.Lookup(n)
		if super := classes.Superclass(c); super != nil && super.Name != runtime.RootClassName {
			fmt.Printf("   %s extends %s\n", n, super.Name)
		}
	}

	derived := env.Conventions().DerivedSelector
	fmt.Printf("\n3. Overrides of %s\n", derived)
	for _, n := range names {
		c, _ := classes.Lookup(n)
		if m, ok := c.Methods[derived]; ok {
			fmt.Printf("   %s>>%s: %s\n", n, derived, m.Source)
		}
	}
}

func added(before, after []string) []string {
	seen := make(map[string]bool, len(before))
	for _, n := range before {
		seen[n] = true
	}
	var out []string
	for _, n := range after {
		if !seen[n] {
			out = append(out, n)
		}
	}
	return out
}

func banner(title string) {
	line := strings.Repeat("=", 50)
	fmt.Println(line)
	fmt.Println(title)
	fmt.Println(line)
}

func writeLog(path string, l *transcript.Log) error {
	data, err := transcript.Marshal(l)
	if err != nil {
		return fmt.Errorf("encoding transcript: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

func replayLog(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	l, err := transcript.Unmarshal(data)
	if err != nil {
		return err
	}
	w := transcript.NewWriter(os.Stdout)
	if err := transcript.Replay(l, w); err != nil {
		return err
	}
	return w.Err()
}
