package repo

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/go-git/go-billy/v5"

	"github.com/odvcencio/scs/pkg/commitgraph"
	"github.com/odvcencio/scs/pkg/ignore"
	"github.com/odvcencio/scs/pkg/object"
)

// MarkerDir is the repository metadata directory at the working tree root.
const MarkerDir = ignore.MarkerDir

// Repo represents an opened repository. A Repo is meant to be driven by one
// goroutine at a time; cross-process safety comes from lock files on the
// index and refs.
type Repo struct {
	RootDir string           // working directory root, "" for in-memory repositories
	FS      billy.Filesystem // working tree
	Dir     billy.Filesystem // .scs/ directory
	Store   *object.Store    // content-addressed object store
	Ignore  ignore.Matcher   // consulted once per staged path
	Logger  *slog.Logger

	graph commitgraph.Cache
	now   func() time.Time
}

// openAt builds a Repo over a working tree whose marker directory already
// exists.
func openAt(fs billy.Filesystem, root string) (*Repo, error) {
	dir, err := fs.Chroot(MarkerDir)
	if err != nil {
		return nil, fmt.Errorf("open: chroot %s: %w", MarkerDir, err)
	}
	ig, err := ignore.Load(fs)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	r := &Repo{
		RootDir: root,
		FS:      fs,
		Dir:     dir,
		Store:   object.NewStore(dir),
		Ignore:  ig,
		Logger:  slog.New(slog.DiscardHandler),
		graph:   commitgraph.NewMemory(),
		now:     time.Now,
	}

	cfg, err := r.ReadConfig()
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	if cfg.Core.CommitGraph && root != "" {
		graphDir := filepath.Join(root, MarkerDir, "commit-graph")
		g, err := commitgraph.OpenPebble(graphDir, nil)
		if err != nil {
			return nil, fmt.Errorf("open: %w", err)
		}
		r.graph = g
	}
	return r, nil
}

// Close releases the commit-graph cache. It is safe to call more than once.
func (r *Repo) Close() error {
	if r.graph == nil {
		return nil
	}
	err := r.graph.Close()
	r.graph = nil
	return err
}

// SetLogger routes debug events to l. A nil logger discards them.
func (r *Repo) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	r.Logger = l
}

func (r *Repo) cache() commitgraph.Cache {
	if r.graph == nil {
		r.graph = commitgraph.NewMemory()
	}
	return r.graph
}
