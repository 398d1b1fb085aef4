// internal/platform/platform.go
package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Definition describes how to drive one device platform's interactive CLI:
// what its prompt and error output look like, how to control pagination,
// and how to escalate privilege.
type Definition struct {
	Name string

	// Prompt matches the end of the receive buffer when the device is
	// idle and ready for the next command.
	Prompt *regexp.Regexp

	// Error matches output the device emits for a rejected command.
	Error *regexp.Regexp

	// More is the bare pagination marker (not anchored). The driver
	// anchors it to the buffer tail when waiting and strips all
	// occurrences from collected output.
	More *regexp.Regexp

	// Continuation is the keystroke sent to advance past a pagination
	// marker.
	Continuation string

	// PagingOff is sent right after connect to disable pagination;
	// PagingRestore is sent on disconnect to undo it. Either may be
	// empty.
	PagingOff     string
	PagingRestore string

	// ElevateCommand starts privilege escalation; PasswordPrompt matches
	// the credential prompt it produces.
	ElevateCommand string
	PasswordPrompt *regexp.Regexp

	// ConfigEnter and ConfigExit bracket configuration-mode edits.
	ConfigEnter string
	ConfigExit  string

	// ConfigSources are the arguments accepted by "show config <source>".
	ConfigSources []string
}

// HasConfigSource reports whether source is one of the definition's
// known configuration stores.
func (d *Definition) HasConfigSource(source string) bool {
	for _, s := range d.ConfigSources {
		if s == source {
			return true
		}
	}
	return false
}

var (
	mu       sync.RWMutex
	registry = map[string]*Definition{}
)

// Register adds or replaces a platform definition.
func Register(def *Definition) error {
	if def.Name == "" {
		return fmt.Errorf("platform definition must have a name")
	}
	if def.Prompt == nil {
		return fmt.Errorf("platform %s: prompt pattern is required", def.Name)
	}
	mu.Lock()
	registry[def.Name] = def
	mu.Unlock()
	return nil
}

// Get returns the definition registered under name.
func Get(name string) (*Definition, error) {
	mu.RLock()
	def, ok := registry[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown platform %q", name)
	}
	return def, nil
}

// Names returns the registered platform names, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// definitionFile is the YAML shape of a platform definition. Patterns are
// kept as strings and compiled on load.
type definitionFile struct {
	Name           string   `yaml:"name"`
	Prompt         string   `yaml:"prompt"`
	Error          string   `yaml:"error"`
	More           string   `yaml:"more"`
	Continuation   string   `yaml:"continuation"`
	PagingOff      string   `yaml:"paging_off"`
	PagingRestore  string   `yaml:"paging_restore"`
	ElevateCommand string   `yaml:"elevate_command"`
	PasswordPrompt string   `yaml:"password_prompt"`
	ConfigEnter    string   `yaml:"config_enter"`
	ConfigExit     string   `yaml:"config_exit"`
	ConfigSources  []string `yaml:"config_sources"`
}

func (f *definitionFile) compile() (*Definition, error) {
	if f.Name == "" {
		return nil, fmt.Errorf("platform definition must have a name")
	}
	def := &Definition{
		Name:           f.Name,
		Continuation:   f.Continuation,
		PagingOff:      f.PagingOff,
		PagingRestore:  f.PagingRestore,
		ElevateCommand: f.ElevateCommand,
		ConfigEnter:    f.ConfigEnter,
		ConfigExit:     f.ConfigExit,
		ConfigSources:  f.ConfigSources,
	}
	if def.Continuation == "" {
		def.Continuation = " "
	}

	var err error
	if def.Prompt, err = regexp.Compile(f.Prompt); err != nil {
		return nil, fmt.Errorf("platform %s: prompt: %w", f.Name, err)
	}
	if f.Error != "" {
		if def.Error, err = regexp.Compile(f.Error); err != nil {
			return nil, fmt.Errorf("platform %s: error: %w", f.Name, err)
		}
	}
	if f.More != "" {
		if def.More, err = regexp.Compile(f.More); err != nil {
			return nil, fmt.Errorf("platform %s: more: %w", f.Name, err)
		}
	}
	if f.PasswordPrompt != "" {
		if def.PasswordPrompt, err = regexp.Compile(f.PasswordPrompt); err != nil {
			return nil, fmt.Errorf("platform %s: password_prompt: %w", f.Name, err)
		}
	}
	return def, nil
}

// LoadDir registers every YAML definition file found in dir. A missing
// directory is not an error; the builtin definitions still apply.
func LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read platform dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := loadFile(path); err != nil {
			return fmt.Errorf("load platform %s: %w", path, err)
		}
	}
	return nil
}

func loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var f definitionFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}

	def, err := f.compile()
	if err != nil {
		return err
	}
	return Register(def)
}
