package shader

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"envcube/libgfx"
	"envcube/libsw"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flatKernel struct{}

func (flatKernel) Uniforms() []string { return []string{"color"} }
func (flatKernel) Blocks() []string   { return nil }
func (flatKernel) Shade(ctx libgfx.ShadeContext, uv mgl32.Vec2) mgl32.Vec4 {
	return libgfx.UniformVec3(ctx, "color", mgl32.Vec3{}).Vec4(1)
}

func source(name, fragment string) libgfx.ProgramSource {
	return libgfx.ProgramSource{Name: name, Vertex: "void main(){}", Fragment: fragment, Kernel: flatKernel{}}
}

func TestGetOrCreateCaches(t *testing.T) {
	dev := libsw.NewDevice(nil)
	repo := NewRepository(dev, RepositoryOptions{})

	a, err := repo.GetOrCreate(source("flat", "a"))
	require.NoError(t, err)
	again, err := repo.GetOrCreate(source("flat", "a"))
	require.NoError(t, err)
	assert.Same(t, a, again)

	b, err := repo.GetOrCreate(source("flat", "b"))
	require.NoError(t, err)
	assert.NotEqual(t, a.Id(), b.Id())
	assert.Equal(t, 2, repo.Len())
}

func TestGetOrCreateAfterMarkIsFresh(t *testing.T) {
	dev := libsw.NewDevice(nil)
	repo := NewRepository(dev, RepositoryOptions{})
	src := source("flat", "a")

	stale, err := repo.GetOrCreate(src)
	require.NoError(t, err)
	repo.MarkForDeletion(src.Key())
	repo.MarkForDeletion(src.Key())

	fresh, err := repo.GetOrCreate(src)
	require.NoError(t, err)
	assert.NotEqual(t, stale.Id(), fresh.Id())

	entry, ok := repo.Lookup(src.Key())
	require.True(t, ok)
	assert.False(t, entry.Marked)
	assert.Equal(t, fresh.Id(), entry.Program.Id())
	// the stale program lives until the sweep
	assert.True(t, dev.Alive(stale))
	assert.Equal(t, 2, repo.Len())

	assert.Equal(t, 1, repo.Sweep())
	assert.False(t, dev.Alive(stale))
	assert.True(t, dev.Alive(fresh))
	_, ok = repo.Lookup(src.Key())
	assert.True(t, ok)
	assert.Equal(t, 1, repo.Len())
}

func TestSweepDestroysOnlyMarked(t *testing.T) {
	dev := libsw.NewDevice(nil)
	repo := NewRepository(dev, RepositoryOptions{})

	var progs []libgfx.Program
	var keys []libgfx.ProgramKey
	for _, frag := range []string{"a", "b", "c", "d"} {
		src := source("flat", frag)
		p, err := repo.GetOrCreate(src)
		require.NoError(t, err)
		progs = append(progs, p)
		keys = append(keys, src.Key())
	}

	repo.MarkForDeletion(keys[0])
	repo.MarkForDeletion(keys[2])
	repo.MarkForDeletion(keys[3])
	repo.Unmark(keys[3])
	repo.MarkForDeletion("unknown")

	assert.Equal(t, 2, repo.Sweep())
	assert.False(t, dev.Alive(progs[0]))
	assert.True(t, dev.Alive(progs[1]))
	assert.False(t, dev.Alive(progs[2]))
	assert.True(t, dev.Alive(progs[3]))
	assert.Equal(t, 2, repo.Len())
	assert.Equal(t, 2, dev.Stats().Programs)

	assert.Equal(t, 0, repo.Sweep())
}

func TestCompileFailureRegistersNothing(t *testing.T) {
	dev := libsw.NewDevice(nil)
	repo := NewRepository(dev, RepositoryOptions{})

	_, err := repo.GetOrCreate(source("flat", "#error nope"))
	assert.ErrorContains(t, err, "nope")
	assert.Equal(t, 0, repo.Len())
}

func TestRelease(t *testing.T) {
	dev := libsw.NewDevice(nil)
	repo := NewRepository(dev, RepositoryOptions{})
	src := source("flat", "a")
	_, err := repo.GetOrCreate(src)
	require.NoError(t, err)
	repo.MarkForDeletion(src.Key())
	_, err = repo.GetOrCreate(src)
	require.NoError(t, err)

	repo.Release()
	assert.Equal(t, 0, repo.Len())
	assert.Equal(t, 0, dev.Stats().Programs)
}

func TestWatcherReportsWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "atmosphere.glsl")
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("void main(){}"), 0o644))

	w, err := NewWatcher(nil)
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Add(path))

	require.NoError(t, os.WriteFile(other, []byte("ignored"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("void main(){ }"), 0o644))

	var changed []string
	require.Eventually(t, func() bool {
		changed = append(changed, w.Drain()...)
		return len(changed) > 0
	}, 5*time.Second, 10*time.Millisecond)
	abs, _ := filepath.Abs(path)
	otherAbs, _ := filepath.Abs(other)
	assert.Contains(t, changed, abs)
	assert.NotContains(t, changed, otherAbs)
}
