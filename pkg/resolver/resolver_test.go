package resolver

import (
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mkdirs creates each relative directory under root.
func mkdirs(t *testing.T, root string, dirs ...string) {
	t.Helper()
	for _, d := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(root, d), 0o755))
	}
}

func newTestResolver(t *testing.T, root string, opts Options) (*Resolver, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.TraceLevel)
	opts.Logger = logger
	return New(root, opts), hook
}

func warnings(hook *test.Hook) []*logrus.Entry {
	var out []*logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			out = append(out, e)
		}
	}
	return out
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		dirs     []string
		files    []string
		target   string
		kind     Kind
		path     string
		cursor   string
		descents int
		subdirs  []string
	}{
		{
			name:   "calibrated directly under target",
			dirs:   []string{"X/calibrated"},
			target: "X",
			kind:   Resolved,
			path:   "X/calibrated",
			cursor: "X",
		},
		{
			name:     "single child chain",
			dirs:     []string{"Y/raw_v1/calibrated"},
			target:   "Y",
			kind:     Resolved,
			path:     "Y/raw_v1/calibrated",
			cursor:   "Y/raw_v1",
			descents: 1,
		},
		{
			name:     "chain of three descents",
			dirs:     []string{"T/a/b/c/calibrated"},
			target:   "T",
			kind:     Resolved,
			path:     "T/a/b/c/calibrated",
			cursor:   "T/a/b/c",
			descents: 3,
		},
		{
			name:   "calibrated wins over siblings",
			dirs:   []string{"T/calibrated", "T/raw", "T/script"},
			target: "T",
			kind:   Resolved,
			path:   "T/calibrated",
			cursor: "T",
		},
		{
			name:     "regular files are ignored",
			dirs:     []string{"T/member/calibrated"},
			files:    []string{"T/README", "T/calibrated.tar"},
			target:   "T",
			kind:     Resolved,
			path:     "T/member/calibrated",
			cursor:   "T/member",
			descents: 1,
		},
		{
			name:   "missing target",
			dirs:   []string{"other/calibrated"},
			target: "missing",
			kind:   NotFound,
			cursor: "missing",
		},
		{
			name:   "target is a regular file",
			files:  []string{"T"},
			target: "T",
			kind:   NotFound,
			cursor: "T",
		},
		{
			name:   "no subdirectories",
			dirs:   []string{"T"},
			target: "T",
			kind:   Ambiguous,
			cursor: "T",
		},
		{
			name:    "two subdirectories without calibrated",
			dirs:    []string{"Z/a", "Z/b"},
			target:  "Z",
			kind:    Ambiguous,
			cursor:  "Z",
			subdirs: []string{"a", "b"},
		},
		{
			name:     "ambiguity deeper in the chain",
			dirs:     []string{"T/one/a", "T/one/b"},
			target:   "T",
			kind:     Ambiguous,
			cursor:   "T/one",
			descents: 1,
			subdirs:  []string{"a", "b"},
		},
		{
			name:     "match is case sensitive",
			dirs:     []string{"T/Calibrated"},
			target:   "T",
			kind:     Ambiguous,
			cursor:   "T/Calibrated",
			descents: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			mkdirs(t, root, tt.dirs...)
			for _, f := range tt.files {
				require.NoError(t, os.MkdirAll(filepath.Dir(filepath.Join(root, f)), 0o755))
				require.NoError(t, os.WriteFile(filepath.Join(root, f), []byte("x"), 0o644))
			}

			r, hook := newTestResolver(t, root, Options{})
			out, err := r.Resolve(tt.target)
			require.NoError(t, err)

			assert.Equal(t, tt.target, out.Target)
			assert.Equal(t, tt.kind, out.Kind)
			assert.Equal(t, filepath.Join(root, tt.cursor), out.Cursor)
			assert.Equal(t, tt.descents, out.Descents)
			assert.Equal(t, tt.subdirs, out.Subdirs)
			if tt.path != "" {
				assert.Equal(t, filepath.Join(root, tt.path), out.Path)
			} else {
				assert.Empty(t, out.Path)
			}

			warns := warnings(hook)
			if tt.kind == Resolved {
				assert.Empty(t, warns)
			} else {
				require.Len(t, warns, 1)
				assert.Equal(t, filepath.Join(root, tt.cursor), warns[0].Data["path"])
				assert.Equal(t, tt.target, warns[0].Data["target"])
			}
		})
	}
}

func TestResolveCustomTargetDir(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "T/member/product")

	r, _ := newTestResolver(t, root, Options{TargetDir: "product"})
	out, err := r.Resolve("T")
	require.NoError(t, err)
	assert.Equal(t, Resolved, out.Kind)
	assert.Equal(t, filepath.Join(root, "T/member/product"), out.Path)
}

func TestResolveMaxDepth(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "T/a/b/c/d/calibrated")

	r, hook := newTestResolver(t, root, Options{MaxDepth: 2})
	out, err := r.Resolve("T")
	require.NoError(t, err)
	assert.Equal(t, CycleDetected, out.Kind)
	assert.Equal(t, 2, out.Descents)
	assert.Equal(t, filepath.Join(root, "T/a/b"), out.Cursor)
	assert.Len(t, warnings(hook), 1)

	r, _ = newTestResolver(t, root, Options{MaxDepth: 4})
	out, err = r.Resolve("T")
	require.NoError(t, err)
	assert.Equal(t, Resolved, out.Kind)
}

func TestResolveSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}

	t.Run("link to directory is followed", func(t *testing.T) {
		root := t.TempDir()
		mkdirs(t, root, "store/calibrated", "T")
		require.NoError(t, os.Symlink(filepath.Join(root, "store"), filepath.Join(root, "T", "link")))

		r, _ := newTestResolver(t, root, Options{FollowSymlinks: true})
		out, err := r.Resolve("T")
		require.NoError(t, err)
		assert.Equal(t, Resolved, out.Kind)
		assert.Equal(t, filepath.Join(root, "T", "link", "calibrated"), out.Path)
	})

	t.Run("link ignored when not following", func(t *testing.T) {
		root := t.TempDir()
		mkdirs(t, root, "store/calibrated", "T")
		require.NoError(t, os.Symlink(filepath.Join(root, "store"), filepath.Join(root, "T", "link")))

		r, _ := newTestResolver(t, root, Options{FollowSymlinks: false})
		out, err := r.Resolve("T")
		require.NoError(t, err)
		assert.Equal(t, Ambiguous, out.Kind)
	})

	t.Run("cycle is detected", func(t *testing.T) {
		root := t.TempDir()
		mkdirs(t, root, "T")
		require.NoError(t, os.Symlink(filepath.Join(root, "T"), filepath.Join(root, "T", "loop")))

		r, hook := newTestResolver(t, root, Options{FollowSymlinks: true})
		out, err := r.Resolve("T")
		require.NoError(t, err)
		assert.Equal(t, CycleDetected, out.Kind)
		assert.Equal(t, 1, out.Descents)
		assert.Equal(t, filepath.Join(root, "T", "loop"), out.Cursor)
		assert.Len(t, warnings(hook), 1)
	})

	t.Run("self-linked target does not abort the run", func(t *testing.T) {
		root := t.TempDir()
		mkdirs(t, root, "A/calibrated", "C/v1/calibrated")
		require.NoError(t, os.Symlink(filepath.Join(root, "B"), filepath.Join(root, "B")))

		r, hook := newTestResolver(t, root, Options{FollowSymlinks: true})
		report, err := r.ResolveAll([]string{"A", "B", "C"})
		require.NoError(t, err)
		require.Len(t, report.Outcomes, 3)

		out, ok := report.Lookup("B")
		require.True(t, ok)
		assert.Equal(t, CycleDetected, out.Kind)
		assert.Equal(t, filepath.Join(root, "B"), out.Cursor)
		assert.Equal(t, []string{
			filepath.Join(root, "A", "calibrated"),
			filepath.Join(root, "C", "v1", "calibrated"),
		}, report.Paths())
		require.Len(t, warnings(hook), 1)
		assert.Equal(t, filepath.Join(root, "B"), warnings(hook)[0].Data["path"])
	})

	t.Run("linked target is followed even when not following children", func(t *testing.T) {
		root := t.TempDir()
		mkdirs(t, root, "store/calibrated")
		require.NoError(t, os.Symlink(filepath.Join(root, "store"), filepath.Join(root, "T")))

		r, _ := newTestResolver(t, root, Options{FollowSymlinks: false})
		out, err := r.Resolve("T")
		require.NoError(t, err)
		assert.Equal(t, Resolved, out.Kind)
		assert.Equal(t, filepath.Join(root, "T", "calibrated"), out.Path)
	})

	t.Run("broken link is not a directory", func(t *testing.T) {
		root := t.TempDir()
		mkdirs(t, root, "T/only/calibrated")
		require.NoError(t, os.Symlink(filepath.Join(root, "nowhere"), filepath.Join(root, "T", "dangling")))

		r, _ := newTestResolver(t, root, Options{FollowSymlinks: true})
		out, err := r.Resolve("T")
		require.NoError(t, err)
		assert.Equal(t, Resolved, out.Kind)
		assert.Equal(t, filepath.Join(root, "T/only/calibrated"), out.Path)
	})
}

func TestResolvePermissionDenied(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for this user")
	}

	root := t.TempDir()
	mkdirs(t, root, "T/inner/calibrated")
	locked := filepath.Join(root, "T")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	r, _ := newTestResolver(t, root, Options{})
	_, err := r.Resolve("T")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFatalIO)
	assert.ErrorIs(t, err, fs.ErrPermission)
}

func TestResolveAll(t *testing.T) {
	t.Run("keeps target order and drops nothing from the report", func(t *testing.T) {
		root := t.TempDir()
		mkdirs(t, root, "A/calibrated", "B/x", "B/y", "C/v1/calibrated")

		r, hook := newTestResolver(t, root, Options{})
		report, err := r.ResolveAll([]string{"A", "B", "C", "D"})
		require.NoError(t, err)

		assert.Equal(t, root, report.Root)
		require.Len(t, report.Outcomes, 4)
		assert.Equal(t, []string{
			filepath.Join(root, "A", "calibrated"),
			filepath.Join(root, "C", "v1", "calibrated"),
		}, report.Paths())

		unresolved := report.Unresolved()
		require.Len(t, unresolved, 2)
		assert.Equal(t, "B", unresolved[0].Target)
		assert.Equal(t, Ambiguous, unresolved[0].Kind)
		assert.Equal(t, "D", unresolved[1].Target)
		assert.Equal(t, NotFound, unresolved[1].Kind)

		assert.Len(t, warnings(hook), 2)

		out, ok := report.Lookup("C")
		require.True(t, ok)
		assert.Equal(t, 1, out.Descents)
		_, ok = report.Lookup("E")
		assert.False(t, ok)
	})

	t.Run("repeated runs give the same outcome", func(t *testing.T) {
		root := t.TempDir()
		mkdirs(t, root, "A/calibrated", "B/x", "B/y", "C/v1/calibrated")

		r, _ := newTestResolver(t, root, Options{})
		first, err := r.ResolveAll([]string{"A", "B", "C"})
		require.NoError(t, err)
		second, err := r.ResolveAll([]string{"A", "B", "C"})
		require.NoError(t, err)
		assert.Equal(t, first, second)

		_, err = os.Stat(filepath.Join(root, "B", "x"))
		assert.NoError(t, err)
	})

	t.Run("empty target list", func(t *testing.T) {
		r, _ := newTestResolver(t, t.TempDir(), Options{})
		report, err := r.ResolveAll(nil)
		require.NoError(t, err)
		assert.Empty(t, report.Outcomes)
		assert.Empty(t, report.Paths())
	})

	t.Run("fatal error aborts the run", func(t *testing.T) {
		if runtime.GOOS == "windows" || os.Geteuid() == 0 {
			t.Skip("permission bits are not enforced for this user")
		}

		root := t.TempDir()
		mkdirs(t, root, "A/calibrated", "B/inner", "C/calibrated")
		locked := filepath.Join(root, "B")
		require.NoError(t, os.Chmod(locked, 0o000))
		t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

		r, _ := newTestResolver(t, root, Options{})
		report, err := r.ResolveAll([]string{"A", "B", "C"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrFatalIO)
		assert.Contains(t, err.Error(), "failed to resolve target B")
		require.Len(t, report.Outcomes, 1)
		assert.Equal(t, "A", report.Outcomes[0].Target)
	})
}
