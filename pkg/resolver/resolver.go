package resolver

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"syscall"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	DefaultTargetDir = "calibrated"
	DefaultMaxDepth  = 64
)

// Options tunes a Resolver. Empty TargetDir and non-positive MaxDepth fall
// back to the defaults.
type Options struct {
	// TargetDir is the directory name that ends a search. Matched exactly.
	TargetDir string
	// MaxDepth bounds the number of single-child descents per target.
	MaxDepth int
	// FollowSymlinks treats symbolic links to directories found while
	// descending as directories. It applies to children only: root/<target>
	// is always followed, so a target may itself be a link to its data.
	FollowSymlinks bool
	Logger         logrus.FieldLogger
}

// Resolver walks root/<target> down single-child chains until it finds the
// calibrated directory.
type Resolver struct {
	root      string
	targetDir string
	maxDepth  int
	follow    bool
	logger    logrus.FieldLogger
}

func New(root string, opts Options) *Resolver {
	r := &Resolver{
		root:      root,
		targetDir: opts.TargetDir,
		maxDepth:  opts.MaxDepth,
		follow:    opts.FollowSymlinks,
		logger:    opts.Logger,
	}
	if r.targetDir == "" {
		r.targetDir = DefaultTargetDir
	}
	if r.maxDepth <= 0 {
		r.maxDepth = DefaultMaxDepth
	}
	if r.logger == nil {
		r.logger = logrus.StandardLogger()
	}
	return r
}

func (r *Resolver) Root() string {
	return r.root
}

// Resolve searches one target. Per-target failures are reported through the
// returned Outcome; the error is non-nil only for filesystem failures other
// than a missing directory, and wraps ErrFatalIO.
func (r *Resolver) Resolve(target string) (Outcome, error) {
	cursor := filepath.Join(r.root, target)
	out := Outcome{Target: target}
	visited := make(map[string]struct{})

	for {
		out.Cursor = cursor

		info, err := os.Stat(cursor)
		if errors.Is(err, syscall.ELOOP) {
			out.Kind = CycleDetected
			r.diagnose(out)
			return out, nil
		}
		if err != nil && !isMissing(err) {
			return out, &IOError{Op: "stat", Path: cursor, Err: err}
		}
		if err != nil || !info.IsDir() {
			out.Kind = NotFound
			r.diagnose(out)
			return out, nil
		}

		subdirs, err := r.listSubdirs(cursor)
		if err != nil {
			return out, err
		}

		realPath, err := filepath.EvalSymlinks(cursor)
		if err != nil {
			return out, &IOError{Op: "resolve", Path: cursor, Err: err}
		}
		if _, ok := visited[realPath]; ok {
			out.Kind = CycleDetected
			r.diagnose(out)
			return out, nil
		}
		visited[realPath] = struct{}{}

		if slices.Contains(subdirs, r.targetDir) {
			out.Kind = Resolved
			out.Path = filepath.Join(cursor, r.targetDir)
			r.logger.WithFields(logrus.Fields{
				"target":   target,
				"path":     out.Path,
				"descents": out.Descents,
			}).Debug("resolved calibrated directory")
			return out, nil
		}

		if len(subdirs) != 1 {
			out.Kind = Ambiguous
			out.Subdirs = subdirs
			r.diagnose(out)
			return out, nil
		}

		if out.Descents >= r.maxDepth {
			out.Kind = CycleDetected
			r.diagnose(out)
			return out, nil
		}

		cursor = filepath.Join(cursor, subdirs[0])
		out.Descents++
		r.logger.WithFields(logrus.Fields{
			"target": target,
			"cursor": cursor,
		}).Trace("descending into sole subdirectory")
	}
}

// ResolveAll searches targets in order. It stops at the first fatal error and
// returns the outcomes gathered so far together with that error.
func (r *Resolver) ResolveAll(targets []string) (*Report, error) {
	report := &Report{
		Root:     r.root,
		Outcomes: make([]Outcome, 0, len(targets)),
	}

	for _, target := range targets {
		out, err := r.Resolve(target)
		if err != nil {
			return report, pkgerrors.Wrapf(err, "failed to resolve target %s", target)
		}
		report.Outcomes = append(report.Outcomes, out)
	}

	return report, nil
}

// listSubdirs returns the names of the immediate subdirectories of dir,
// sorted by name.
func (r *Resolver) listSubdirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &IOError{Op: "list", Path: dir, Err: err}
	}

	var subdirs []string
	for _, e := range entries {
		switch {
		case e.IsDir():
			subdirs = append(subdirs, e.Name())
		case e.Type()&os.ModeSymlink != 0 && r.follow:
			// Broken or looping links are not directories.
			info, err := os.Stat(filepath.Join(dir, e.Name()))
			if err == nil && info.IsDir() {
				subdirs = append(subdirs, e.Name())
			}
		}
	}

	return subdirs, nil
}

func (r *Resolver) diagnose(out Outcome) {
	entry := r.logger.WithFields(logrus.Fields{
		"target": out.Target,
		"path":   out.Cursor,
	})

	switch out.Kind {
	case NotFound:
		entry.Warn("directory not found")
	case Ambiguous:
		entry.WithField("subdirs", out.Subdirs).Warn("unexpected directory structure")
	case CycleDetected:
		entry.WithField("descents", out.Descents).Warn("directory cycle detected or descent too deep")
	}
}

// isMissing reports whether err means the path does not exist as a
// directory, including a path component being a regular file.
func isMissing(err error) bool {
	return os.IsNotExist(err) || errors.Is(err, syscall.ENOTDIR)
}
