package config

import "errors"

var (
	// ErrInvalidTarget is returned when a target name cannot name a directory
	// directly under the root.
	ErrInvalidTarget = errors.New("invalid target name")

	// ErrDuplicateTarget is returned when a target is added twice.
	ErrDuplicateTarget = errors.New("duplicate target")

	// ErrUnknownTarget is returned when removing a target that is not configured.
	ErrUnknownTarget = errors.New("unknown target")

	// ErrInvalidValue is returned by setters given an out-of-range value.
	ErrInvalidValue = errors.New("invalid config value")
)

type Config interface {
	Root() string
	Targets() []string
	TargetDir() string
	MaxDepth() int
	FollowSymlinks() bool

	SetRoot(string) error
	SetTargets([]string) error
	AddTargets(...string) error
	RemoveTargets(...string) error
	SetTargetDir(string) error
	SetMaxDepth(int) error
	SetFollowSymlinks(bool)

	// Load reads the configuration from the source.
	Load() error
	// Save saves the configuration to the source.
	Save() error
}
