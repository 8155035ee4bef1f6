package repo

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/odvcencio/scs/pkg/fsutil"
)

// Init creates a new repository at path. It creates the .scs/ directory
// structure: objects/, refs/heads/ with an empty default branch, HEAD, an
// empty index and config.toml. If .scs/ already exists Init returns
// ErrRepoExists and touches nothing.
func Init(path string) (*Repo, error) {
	return InitWithConfig(path, nil)
}

// InitWithConfig is Init with an initial configuration. The new HEAD
// points at cfg.Core.DefaultBranch. A nil cfg means DefaultConfig.
func InitWithConfig(path string, cfg *Config) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("init: abs path: %w", err)
	}
	if _, err := os.Stat(filepath.Join(abs, MarkerDir)); err == nil {
		return nil, fmt.Errorf("init: %w at %s", ErrRepoExists, filepath.Join(abs, MarkerDir))
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("init: mkdir %s: %w", abs, err)
	}
	return initRepo(osfs.New(abs), abs, cfg)
}

// InitFS creates a new repository whose working tree is fs.
func InitFS(fs billy.Filesystem) (*Repo, error) {
	return initRepo(fs, "", nil)
}

func initRepo(fs billy.Filesystem, root string, cfg *Config) (*Repo, error) {
	if fsutil.Exists(fs, MarkerDir) {
		return nil, fmt.Errorf("init: %w at %s", ErrRepoExists, MarkerDir)
	}

	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Core.DefaultBranch == "" {
		cfg.Core.DefaultBranch = defaultBranchName
	}
	if err := validateBranchName(cfg.Core.DefaultBranch); err != nil {
		return nil, fmt.Errorf("init: default branch: %w", err)
	}
	branchRef := headsPrefix + cfg.Core.DefaultBranch

	dirs := []string{
		fs.Join(MarkerDir, "objects"),
		fs.Join(MarkerDir, "refs", "heads"),
		fs.Join(MarkerDir, "logs", "refs", "heads"),
	}
	for _, d := range dirs {
		if err := fs.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("init: mkdir %s: %w", d, err)
		}
	}

	cfgData, err := encodeConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("init: config: %w", err)
	}

	files := []struct {
		name string
		data []byte
	}{
		{fs.Join(MarkerDir, headFile), []byte("ref: " + branchRef + "\n")},
		{fs.Join(MarkerDir, branchRef), nil},
		{fs.Join(MarkerDir, indexFile), nil},
		{fs.Join(MarkerDir, configFile), cfgData},
	}
	for _, f := range files {
		if err := util.WriteFile(fs, f.name, f.data, 0o644); err != nil {
			return nil, fmt.Errorf("init: write %s: %w", f.name, err)
		}
	}

	r, err := openAt(fs, root)
	if err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	return r, nil
}

// Open searches upward from path for a .scs/ directory and opens the
// repository. Returns ErrNotRepository if none is found.
func Open(path string) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("open: abs path: %w", err)
	}

	cur := abs
	for {
		info, err := os.Stat(filepath.Join(cur, MarkerDir))
		if err == nil && info.IsDir() {
			return openAt(osfs.New(cur), cur)
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return nil, fmt.Errorf("open %s: %w", abs, ErrNotRepository)
		}
		cur = parent
	}
}

// OpenFS opens the repository whose working tree root is fs.
func OpenFS(fs billy.Filesystem) (*Repo, error) {
	info, err := fs.Stat(MarkerDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("open: %w", ErrNotRepository)
	}
	return openAt(fs, "")
}
