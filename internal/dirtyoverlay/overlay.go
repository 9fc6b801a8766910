// Package dirtyoverlay implements the dirty overlay (§4.H): an in-memory
// parse of working-tree edits that query callers merge onto the committed
// index, so a search can reflect uncommitted changes without a rebuild.
package dirtyoverlay

import (
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gobwas/glob"

	"github.com/stefan-kp/sourcerack-sub001/internal/config"
	"github.com/stefan-kp/sourcerack-sub001/internal/gitrepo"
	"github.com/stefan-kp/sourcerack-sub001/internal/parsing"
	"github.com/stefan-kp/sourcerack-sub001/internal/sqi"
)

// Result is the dirty overlay's contract: getDirtySymbols(repoPath) ->
// {symbolsByFile, usagesByFile, dirtyFilePaths, deletedFilePaths}.
type Result struct {
	SymbolsByFile    map[string][]sqi.Symbol
	UsagesByFile     map[string][]sqi.Usage
	DirtyFilePaths   []string
	DeletedFilePaths []string
}

// Overlay parses working-tree edits in memory, gated against the same
// source-root patterns the indexer uses for committed files.
//
// Overlay caches its last result and only recomputes it after Invalidate is
// called, which a Watcher does on every debounced working-tree change. A
// caller that never starts a Watcher and never calls Invalidate gets the
// first computed result back on every later call for the same repoPath,
// since the generation counter never advances.
type Overlay struct {
	backend   parsing.Backend
	extractor *sqi.Extractor
	linker    *sqi.Linker
	cfg       *config.Config

	sourceGlobs []glob.Glob

	generation uint64

	cacheMu       sync.Mutex
	cached        *Result
	cachedRepo    string
	cachedAtGen   uint64
}

// New builds an Overlay from a parse backend, SQI extractor, and the source
// path patterns declared in cfg.Paths.Code.
func New(backend parsing.Backend, extractor *sqi.Extractor, cfg *config.Config) *Overlay {
	var globs []glob.Glob
	for _, pattern := range cfg.Paths.Code {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			log.Printf("dirtyoverlay: invalid source pattern %q: %v", pattern, err)
			continue
		}
		globs = append(globs, g)
	}
	return &Overlay{backend: backend, extractor: extractor, linker: sqi.NewLinker(), cfg: cfg, sourceGlobs: globs}
}

// GetDirtySymbols reads git's working-tree status and parses every dirty,
// non-deleted file in memory. Untracked files are included only if their
// extension maps to a known language and the path matches a declared source
// pattern. Parsing is best-effort: a file that fails to parse is dropped
// silently rather than failing the whole call.
func (o *Overlay) GetDirtySymbols(repoPath string, git gitrepo.Adapter) (*Result, error) {
	gen := atomic.LoadUint64(&o.generation)

	o.cacheMu.Lock()
	if o.cached != nil && o.cachedRepo == repoPath && o.cachedAtGen == gen {
		cached := o.cached
		o.cacheMu.Unlock()
		return cached, nil
	}
	o.cacheMu.Unlock()

	result, err := o.computeDirtySymbols(repoPath, git)
	if err != nil {
		return nil, err
	}

	o.cacheMu.Lock()
	o.cached = result
	o.cachedRepo = repoPath
	o.cachedAtGen = gen
	o.cacheMu.Unlock()

	return result, nil
}

// Invalidate discards any cached result, forcing the next GetDirtySymbols
// call to reparse the working tree. Watch calls this automatically.
func (o *Overlay) Invalidate() {
	atomic.AddUint64(&o.generation, 1)
}

// Watch starts a Watcher over repoPath that invalidates o's cache on every
// debounced working-tree change. The caller must Close the returned Watcher.
func (o *Overlay) Watch(repoPath string) (*Watcher, error) {
	return NewWatcher(repoPath, o.Invalidate)
}

func (o *Overlay) computeDirtySymbols(repoPath string, git gitrepo.Adapter) (*Result, error) {
	status, err := git.WorktreeStatus()
	if err != nil {
		return nil, err
	}

	result := &Result{
		SymbolsByFile: make(map[string][]sqi.Symbol),
		UsagesByFile:  make(map[string][]sqi.Usage),
	}

	dirty := make(map[string]bool)
	for path := range status.Modified {
		dirty[path] = true
	}
	for path := range status.Staged {
		dirty[path] = true
	}
	for path := range status.Untracked {
		if o.isKnownSource(path) {
			dirty[path] = true
		}
	}
	for path := range status.Deleted {
		delete(dirty, path)
		result.DeletedFilePaths = append(result.DeletedFilePaths, path)
	}

	var allSymbols []sqi.Symbol
	symbolsByFile := make(map[string][]sqi.Symbol)
	usagesByFile := make(map[string][]sqi.Usage)

	for path := range dirty {
		lang, ok := parsing.LanguageFromExtension(path)
		if !ok || !o.backend.Supports(lang) {
			continue
		}

		content, err := os.ReadFile(filepath.Join(repoPath, path))
		if err != nil {
			log.Printf("dirtyoverlay: read %s: %v", path, err)
			continue
		}

		res := o.extractor.Extract(path, content, lang)
		if !res.Success {
			log.Printf("dirtyoverlay: parse %s: %v", path, res.Error)
			continue
		}

		result.DirtyFilePaths = append(result.DirtyFilePaths, path)
		symbolsByFile[path] = res.Symbols
		usagesByFile[path] = res.Usages
		allSymbols = append(allSymbols, res.Symbols...)
	}

	for path, usages := range usagesByFile {
		result.UsagesByFile[path] = o.linker.Link(usages, allSymbols)
	}
	for path, symbols := range symbolsByFile {
		result.SymbolsByFile[path] = symbols
	}

	return result, nil
}

// isKnownSource reports whether an untracked path has a recognized
// language extension and falls under one of the configured source
// patterns, the two gates §4.H requires before an untracked file enters
// the overlay.
func (o *Overlay) isKnownSource(path string) bool {
	if _, ok := parsing.LanguageFromExtension(path); !ok {
		return false
	}
	for _, g := range o.sourceGlobs {
		if g.Match(path) {
			return true
		}
	}
	return false
}
