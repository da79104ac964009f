// Package shader keeps track of compiled programs and defers their
// destruction until a periodic sweep.
package shader

import (
	"fmt"
	"log/slog"

	"envcube/libgfx"
)

type Entry struct {
	Program libgfx.Program
	Marked  bool
}

type RepositoryOptions struct {
	Logger *slog.Logger
}

// Repository maps program keys to compiled programs.
//
// A program is only deleted by Sweep, never by the call that replaced it, so
// draws issued earlier in the frame keep a valid program. The repository is
// not synchronized; use it from the render thread.
type Repository struct {
	dev     libgfx.Device
	log     *slog.Logger
	entries map[libgfx.ProgramKey]*Entry
	// replaced programs that were marked when their key was compiled again
	retired []libgfx.Program
}

func NewRepository(dev libgfx.Device, opts RepositoryOptions) *Repository {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Repository{
		dev:     dev,
		log:     opts.Logger,
		entries: map[libgfx.ProgramKey]*Entry{},
	}
}

// GetOrCreate returns the live program for src, compiling it if there is none.
// A marked entry is never handed out again: a new program replaces it and the
// old one is destroyed by the next sweep.
func (r *Repository) GetOrCreate(src libgfx.ProgramSource) (libgfx.Program, error) {
	key := src.Key()
	prev, ok := r.entries[key]
	if ok && !prev.Marked {
		return prev.Program, nil
	}

	prog, err := r.dev.CompileProgram(src)
	if err != nil {
		return nil, fmt.Errorf("compile program %q: %w", src.Name, err)
	}
	if ok {
		r.retired = append(r.retired, prev.Program)
	}
	r.entries[key] = &Entry{Program: prog}
	r.log.Debug("compiled program", "program", src.Name, "key", key, "id", prog.Id())
	return prog, nil
}

// MarkForDeletion flags the entry for the next sweep. Marking twice or
// marking an unknown key does nothing.
func (r *Repository) MarkForDeletion(key libgfx.ProgramKey) {
	if e, ok := r.entries[key]; ok {
		e.Marked = true
	}
}

// Unmark keeps a marked entry alive through the next sweep.
func (r *Repository) Unmark(key libgfx.ProgramKey) {
	if e, ok := r.entries[key]; ok {
		e.Marked = false
	}
}

func (r *Repository) Lookup(key libgfx.ProgramKey) (Entry, bool) {
	e, ok := r.entries[key]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Len returns the number of programs that have not been destroyed.
func (r *Repository) Len() int {
	return len(r.entries) + len(r.retired)
}

// Sweep destroys every entry that is marked when it is called, together with
// retired programs, and returns how many programs were deleted.
func (r *Repository) Sweep() int {
	var marked []libgfx.ProgramKey
	for key, e := range r.entries {
		if e.Marked {
			marked = append(marked, key)
		}
	}
	retired := r.retired
	r.retired = nil

	for _, key := range marked {
		r.dev.DeleteProgram(r.entries[key].Program)
		delete(r.entries, key)
	}
	for _, prog := range retired {
		r.dev.DeleteProgram(prog)
	}

	n := len(marked) + len(retired)
	if n > 0 {
		r.log.Info("swept programs", "deleted", n, "live", r.Len())
	}
	return n
}

// Release deletes every program regardless of its mark.
func (r *Repository) Release() {
	for key, e := range r.entries {
		r.dev.DeleteProgram(e.Program)
		delete(r.entries, key)
	}
	for _, prog := range r.retired {
		r.dev.DeleteProgram(prog)
	}
	r.retired = nil
}
