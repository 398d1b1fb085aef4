// internal/facts/facts.go
package facts

import (
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/netauto/hivectl/internal/cli"
)

// FactSet maps fact names to their values. The vocabulary is fixed by
// the subset parsers; a field that cannot be parsed from device output
// is omitted, never fabricated.
type FactSet map[string]any

// Runner executes CLI commands on a connected device session.
type Runner interface {
	Run(cli.Command) (cli.CommandResult, error)
}

// subset is one named battery of show commands and the parser that
// merges their output into the fact set.
type subset struct {
	commands []cli.Command
	populate func(responses []string, facts FactSet)
}

var subsets = map[string]*subset{
	"default":  defaultSubset,
	"hardware": hardwareSubset,
	"config":   configSubset,
}

// ValidSubsets returns the known subset names, sorted.
func ValidSubsets() []string {
	names := make([]string, 0, len(subsets))
	for name := range subsets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveSubsets expands a gather-subset request into the concrete set
// of subsets to collect. "all" selects everything, "!name" excludes,
// "!all" excludes everything; an empty request means all. The default
// subset is always collected.
func ResolveSubsets(requested []string) ([]string, error) {
	runnable := map[string]bool{}
	excluded := map[string]bool{}

	for _, name := range requested {
		switch {
		case name == "all":
			for s := range subsets {
				runnable[s] = true
			}
		case name == "!all":
			for s := range subsets {
				excluded[s] = true
			}
		default:
			exclude := false
			if len(name) > 0 && name[0] == '!' {
				exclude = true
				name = name[1:]
			}
			if _, ok := subsets[name]; !ok {
				return nil, fmt.Errorf("unknown fact subset %q", name)
			}
			if exclude {
				excluded[name] = true
			} else {
				runnable[name] = true
			}
		}
	}

	if len(runnable) == 0 {
		for s := range subsets {
			runnable[s] = true
		}
	}
	for s := range excluded {
		delete(runnable, s)
	}
	runnable["default"] = true

	names := make([]string, 0, len(runnable))
	for s := range runnable {
		names = append(names, s)
	}
	sort.Strings(names)
	return names, nil
}

// Collect runs the requested fact subsets against the device and merges
// their parsed output. One failing command costs only its own facts:
// the failure is logged and collection continues. Only a disconnected
// session aborts the whole collection.
func Collect(r Runner, requested []string) (FactSet, error) {
	names, err := ResolveSubsets(requested)
	if err != nil {
		return nil, err
	}

	facts := FactSet{"gather_subset": names}
	for _, name := range names {
		sub := subsets[name]
		responses := make([]string, len(sub.commands))
		for i, cmd := range sub.commands {
			res, err := r.Run(cmd)
			if err != nil {
				var notConnected *cli.NotConnectedError
				if errors.As(err, &notConnected) {
					return nil, err
				}
				log.Printf("facts: subset %s: %q failed: %v", name, cmd.Text, err)
				continue
			}
			responses[i] = res.Text
		}
		sub.populate(responses, facts)
	}
	return facts, nil
}
