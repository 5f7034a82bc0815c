package config

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/llama-alma/calpath/pkg/resolver"
	"github.com/llama-alma/calpath/pkg/utils/ptr"
)

var (
	// DefaultTargets are the galaxies of the reference ALMA run.
	DefaultTargets = []string{
		"ESO021", "ESO137", "MCG523", "NGC1079", "NGC1947", "NGC2992", "NGC3175",
		"NGC3749", "NGC4224", "NGC4260", "NGC5037", "NGC5506", "NGC5845", "NGC6814", "NGC718", "NGC7582",
		"ESO093", "ESO208", "MCG514", "MCG630", "NGC1315", "NGC1375", "NGC2110", "NGC3081", "NGC3717",
		"NGC3783", "NGC4235", "NGC4593", "NGC5128", "NGC5728", "NGC5921", "NGC7172", "NGC7213", "NGC7727",
	}

	defaultFileConfig = &RawFileConfig{
		Root:           ptr.To("/data/c3040163/llama/alma/raw/"),
		Targets:        ptr.To(DefaultTargets),
		TargetDir:      ptr.To(resolver.DefaultTargetDir),
		MaxDepth:       ptr.To(resolver.DefaultMaxDepth),
		FollowSymlinks: ptr.To(true),
	}
)

var _ Config = &File{}

type File struct {
	c        *RawFileConfig
	mu       *sync.RWMutex
	filepath string
}

func NewFile(configPath string) (*File, error) {
	f := &File{
		filepath: configPath,
		mu:       &sync.RWMutex{},
	}
	err := f.Load()
	if err != nil {
		return nil, err
	}

	return f, nil
}

func NewFileFromConfig(c *RawFileConfig, configPath string) *File {
	if c == nil {
		c = &RawFileConfig{}
	}

	f := &File{
		c:        c,
		mu:       &sync.RWMutex{},
		filepath: configPath,
	}

	return f
}

// RawFileConfig is the on-disk form. Nil fields take the defaults.
type RawFileConfig struct {
	Root           *string   `json:"root,omitempty" yaml:"root,omitempty"`
	Targets        *[]string `json:"targets,omitempty" yaml:"targets,omitempty"`
	TargetDir      *string   `json:"targetDir,omitempty" yaml:"targetDir,omitempty"`
	MaxDepth       *int      `json:"maxDepth,omitempty" yaml:"maxDepth,omitempty"`
	FollowSymlinks *bool     `json:"followSymlinks,omitempty" yaml:"followSymlinks,omitempty"`
}

func NewRawFileConfigFromConfig(c Config) (*RawFileConfig, error) {
	if c == nil {
		return nil, pkgerrors.New("config is nil")
	}

	rawConfig := &RawFileConfig{
		Root:           ptr.To(c.Root()),
		Targets:        ptr.To(c.Targets()),
		TargetDir:      ptr.To(c.TargetDir()),
		MaxDepth:       ptr.To(c.MaxDepth()),
		FollowSymlinks: ptr.To(c.FollowSymlinks()),
	}

	return rawConfig, nil
}

func (f *File) Root() string {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.c.Root, *defaultFileConfig.Root)
}

// Targets returns a copy of the configured targets in order.
func (f *File) Targets() []string {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return slices.Clone(f.targetsLocked())
}

func (f *File) targetsLocked() []string {
	return ptr.Deref(f.c.Targets, *defaultFileConfig.Targets)
}

func (f *File) TargetDir() string {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.c.TargetDir, *defaultFileConfig.TargetDir)
}

func (f *File) MaxDepth() int {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.c.MaxDepth, *defaultFileConfig.MaxDepth)
}

func (f *File) FollowSymlinks() bool {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.c.FollowSymlinks, *defaultFileConfig.FollowSymlinks)
}

// ResolverOptions builds resolver options from the current values.
func (f *File) ResolverOptions(logger logrus.FieldLogger) resolver.Options {
	return resolver.Options{
		TargetDir:      f.TargetDir(),
		MaxDepth:       f.MaxDepth(),
		FollowSymlinks: f.FollowSymlinks(),
		Logger:         logger,
	}
}

func (f *File) SetRoot(root string) error {
	if f.c == nil {
		panic("config is nil")
	}

	if strings.TrimSpace(root) == "" {
		return pkgerrors.Wrap(ErrInvalidValue, "root must not be empty")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.Root = &root

	return nil
}

// SetTargets replaces the target list. An empty list is kept as empty and
// does not fall back to the defaults.
func (f *File) SetTargets(targets []string) error {
	if f.c == nil {
		panic("config is nil")
	}

	if err := validateTargets(nil, targets); err != nil {
		return err
	}

	t := slices.Clone(targets)
	if t == nil {
		t = []string{}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.Targets = &t

	return nil
}

// AddTargets appends targets, keeping the existing order.
func (f *File) AddTargets(targets ...string) error {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	existing := f.targetsLocked()
	if err := validateTargets(existing, targets); err != nil {
		return err
	}

	t := append(slices.Clone(existing), targets...)
	f.c.Targets = &t

	return nil
}

// RemoveTargets removes targets. Every name must be configured.
func (f *File) RemoveTargets(targets ...string) error {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	existing := f.targetsLocked()
	for _, t := range targets {
		if !slices.Contains(existing, t) {
			return pkgerrors.Wrapf(ErrUnknownTarget, "%q", t)
		}
	}

	t := make([]string, 0, len(existing))
	for _, e := range existing {
		if !slices.Contains(targets, e) {
			t = append(t, e)
		}
	}
	f.c.Targets = &t

	return nil
}

func (f *File) SetTargetDir(name string) error {
	if f.c == nil {
		panic("config is nil")
	}

	if err := validateName(name); err != nil {
		return pkgerrors.Wrap(ErrInvalidValue, err.Error())
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.TargetDir = &name

	return nil
}

func (f *File) SetMaxDepth(i int) error {
	if f.c == nil {
		panic("config is nil")
	}

	if i < 1 {
		return pkgerrors.Wrapf(ErrInvalidValue, "max depth must be at least 1, got %d", i)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.MaxDepth = &i

	return nil
}

func (f *File) SetFollowSymlinks(b bool) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.FollowSymlinks = &b
}

// Reset clears every value so the defaults apply again.
func (f *File) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.c = &RawFileConfig{}
}

// ResetTargets restores the default target list.
func (f *File) ResetTargets() {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.Targets = nil
}

func (f *File) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fp, err := os.Open(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			// If the file does not exist, return the empty config.
			// Do not make f.c a nil.
			f.c = &RawFileConfig{}
			return nil
		}
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	b, err := io.ReadAll(fp)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to read file %s", f.filepath)
	}

	if strings.TrimSpace(string(b)) == "" {
		f.c = &RawFileConfig{}
		return nil
	}

	conf := RawFileConfig{}
	if isYAML(f.filepath) {
		err = yaml.Unmarshal(b, &conf)
	} else {
		err = json.Unmarshal(b, &conf)
	}
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to unmarshal config from file %s", f.filepath)
	}

	if conf.Targets != nil {
		if err := validateTargets(nil, *conf.Targets); err != nil {
			return pkgerrors.Wrapf(err, "invalid targets in file %s", f.filepath)
		}
	}
	if conf.TargetDir != nil {
		if err := validateName(*conf.TargetDir); err != nil {
			return pkgerrors.Wrapf(ErrInvalidValue, "invalid targetDir in file %s: %v", f.filepath, err)
		}
	}
	if conf.MaxDepth != nil && *conf.MaxDepth < 1 {
		return pkgerrors.Wrapf(ErrInvalidValue, "invalid maxDepth in file %s: must be at least 1, got %d", f.filepath, *conf.MaxDepth)
	}
	f.c = &conf

	return nil
}

func (f *File) Save() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c == nil {
		return pkgerrors.New("config is nil")
	}

	if dir := filepath.Dir(f.filepath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return pkgerrors.Wrapf(err, "failed to create directory %s", dir)
		}
	}

	fp, err := os.OpenFile(f.filepath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	if isYAML(f.filepath) {
		enc := yaml.NewEncoder(fp)
		enc.SetIndent(2)
		err = enc.Encode(f.c)
		if err == nil {
			err = enc.Close()
		}
	} else {
		enc := json.NewEncoder(fp)
		enc.SetIndent("", "  ")
		err = enc.Encode(f.c)
	}
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to encode config to file %s", f.filepath)
	}

	return nil
}

func (f *File) Path() string {
	return f.filepath
}

func (f *File) LogrusFields() logrus.Fields {
	if f.c == nil {
		panic("config is nil")
	}

	return logrus.Fields{
		"root":           f.Root(),
		"targets":        len(f.Targets()),
		"targetDir":      f.TargetDir(),
		"maxDepth":       f.MaxDepth(),
		"followSymlinks": f.FollowSymlinks(),
	}
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// validateTargets checks added against itself and existing.
func validateTargets(existing, added []string) error {
	seen := make(map[string]struct{}, len(existing)+len(added))
	for _, t := range existing {
		seen[t] = struct{}{}
	}

	for _, t := range added {
		if err := ValidateTarget(t); err != nil {
			return err
		}
		if _, ok := seen[t]; ok {
			return pkgerrors.Wrapf(ErrDuplicateTarget, "%q", t)
		}
		seen[t] = struct{}{}
	}

	return nil
}

// ValidateTarget reports whether name can be used as a target: a single,
// non-empty path element.
func ValidateTarget(name string) error {
	if err := validateName(name); err != nil {
		return pkgerrors.Wrap(ErrInvalidTarget, err.Error())
	}
	return nil
}

// validateName accepts a single path element.
func validateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return pkgerrors.New("name must not be empty")
	case name == "." || name == "..":
		return pkgerrors.Errorf("name %q is not allowed", name)
	case strings.ContainsAny(name, `/\`):
		return pkgerrors.Errorf("name %q must not contain a path separator", name)
	}
	return nil
}
