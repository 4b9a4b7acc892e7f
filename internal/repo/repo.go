// Package repo orchestrates reads and mutations of one git repository.
//
// Repo combines go-git for object, index and ref access with the git
// executable (through git.Runner) for patch application, three-way merges
// and sequencing. Every method holds the repository lock for its whole
// duration, runs inside a tracing span, and returns either a typed result or
// an *Error.
package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/filesystem"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/splice/internal/cachemanager"
	"github.com/zjrosen/splice/internal/git"
	"github.com/zjrosen/splice/internal/log"
	"github.com/zjrosen/splice/internal/pubsub"
	"github.com/zjrosen/splice/internal/tracing"
)

// Options configures a Repo. The zero value is usable.
type Options struct {
	// GitBinary is the git executable; empty means "git" on PATH.
	GitBinary string
	// Runner replaces the exec-based runner, mainly for tests.
	Runner git.Runner
	// AuthorName and AuthorEmail are used when git config has no identity.
	AuthorName  string
	AuthorEmail string
	// Tracer receives one span per operation. Nil disables tracing.
	Tracer trace.Tracer
	// Events receives change notifications. Nil creates a private broker.
	Events *pubsub.Broker[Change]
	// CacheEnabled turns on the commit detail and blame caches.
	CacheEnabled bool
	// CacheTTL bounds cache entry lifetime; zero means ten minutes.
	CacheTTL time.Duration
	// ContextLines is the diff context used to locate hunks for partial
	// staging. Zero means three.
	ContextLines int
}

// Compile-time check that Repo implements Backend.
var _ Backend = (*Repo)(nil)

// Repo is the go-git backed Backend.
type Repo struct {
	mu sync.Mutex

	repo    *gogit.Repository
	workdir string
	dotgit  billy.Filesystem // nil for in-memory storage
	runner  git.Runner

	tracer trace.Tracer
	events *pubsub.Broker[Change]

	authorName   string
	authorEmail  string
	contextLines int

	cacheTTL time.Duration
	details  *cachemanager.ReadThroughCache[string, CommitDetail, plumbing.Hash]
	blames   *cachemanager.ReadThroughCache[string, BlameResult, blameInput]
}

// Open opens the repository containing path.
func Open(path string, opts Options) (*Repo, error) {
	r, err := gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return nil, &Error{Kind: KindNotFound, Op: "open", Err: fmt.Errorf("%s: %w", path, err)}
		}
		return nil, wrap("open", err)
	}
	return FromRepository(r, opts)
}

// FromRepository wraps an already opened go-git repository. Repositories on
// in-memory storage work for everything that does not need the git executable
// or the state files under .git.
func FromRepository(r *gogit.Repository, opts Options) (*Repo, error) {
	rp := &Repo{
		repo:        r,
		tracer:      opts.Tracer,
		events:      opts.Events,
		authorName:  opts.AuthorName,
		authorEmail: opts.AuthorEmail,
		cacheTTL:    opts.CacheTTL,

		contextLines: opts.ContextLines,
	}

	if w, err := r.Worktree(); err == nil {
		rp.workdir = w.Filesystem.Root()
	}
	if fs, ok := r.Storer.(*filesystem.Storage); ok {
		rp.dotgit = fs.Filesystem()
	}

	rp.runner = opts.Runner
	if rp.runner == nil {
		rp.runner = git.NewExecRunner(opts.GitBinary, rp.workdir)
	}
	if rp.events == nil {
		rp.events = pubsub.NewBroker[Change]()
	}
	if rp.contextLines <= 0 {
		rp.contextLines = 3
	}
	if rp.cacheTTL <= 0 {
		rp.cacheTTL = 10 * time.Minute
	}

	var detailCache cachemanager.CacheManager[string, CommitDetail]
	var blameCache cachemanager.CacheManager[string, BlameResult]
	if opts.CacheEnabled {
		detailCache = cachemanager.NewInMemoryCacheManager[string, CommitDetail]("commit_detail", rp.cacheTTL, 2*rp.cacheTTL)
		blameCache = cachemanager.NewInMemoryCacheManager[string, BlameResult]("blame", rp.cacheTTL, 2*rp.cacheTTL)
	}
	rp.details = cachemanager.NewReadThroughCache(detailCache, rp.loadCommitDetail, !opts.CacheEnabled)
	rp.blames = cachemanager.NewReadThroughCache(blameCache, rp.loadBlame, !opts.CacheEnabled)

	log.Debug(log.CatRepo, "repository opened", "workdir", rp.workdir, "cache", opts.CacheEnabled)
	return rp, nil
}

// Events returns the broker change notifications are published on.
func (r *Repo) Events() *pubsub.Broker[Change] {
	return r.events
}

// Close releases the change broker.
func (r *Repo) Close() {
	r.events.Close()
}

// run executes fn under the repository lock inside a span named repo.<op>.
func run[T any](ctx context.Context, r *Repo, op string, attrs []attribute.KeyValue, fn func(ctx context.Context) (T, error)) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, opID := tracing.EnsureOpID(ctx)
	attrs = append(attrs,
		attribute.String(tracing.AttrRepoPath, r.workdir),
		attribute.String(tracing.AttrOpID, opID),
	)
	ctx, span := tracing.Start(ctx, r.tracer, op, attrs...)

	start := time.Now()
	result, err := fn(ctx)
	err = wrap(op, err)
	tracing.End(span, err)

	switch {
	case err == nil:
		log.Debug(log.CatRepo, op, "op_id", opID, "duration", time.Since(start))
	case KindOf(err) == KindPrecondition || KindOf(err) == KindNotFound:
		log.Warn(log.CatRepo, op+" rejected", "op_id", opID, "error", err)
	default:
		log.ErrorErr(log.CatRepo, op+" failed", err, "op_id", opID)
	}
	return result, err
}

// exec is run for operations without a result value.
func (r *Repo) exec(ctx context.Context, op string, attrs []attribute.KeyValue, fn func(ctx context.Context) error) error {
	_, err := run(ctx, r, op, attrs, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// runGit runs the executable with the fallback identity in its environment.
func (r *Repo) runGit(ctx context.Context, args ...string) (string, error) {
	return r.runGitWith(ctx, git.RunOptions{Args: args})
}

// runGitDiff runs a diff-producing git command with non-ASCII paths left
// unescaped, so hunks can be looked up by the caller's path.
func (r *Repo) runGitDiff(ctx context.Context, args ...string) (string, error) {
	return r.runGit(ctx, append([]string{"-c", "core.quotePath=false"}, args...)...)
}

func (r *Repo) runGitWith(ctx context.Context, opts git.RunOptions) (string, error) {
	opts.Env = append(opts.Env, r.identityEnv()...)
	return r.runner.Run(ctx, opts)
}

// Workdir returns the working tree root.
func (r *Repo) Workdir() string {
	return r.workdir
}

func (r *Repo) worktree() (*gogit.Worktree, error) {
	w, err := r.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("worktree: %w", err)
	}
	return w, nil
}

// headCommit returns the commit HEAD points at.
func (r *Repo) headCommit() (*object.Commit, error) {
	head, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}
	c, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("HEAD commit: %w", err)
	}
	return c, nil
}

// resolveCommit resolves any revision (oid, branch, tag, HEAD~n) to a commit.
func (r *Repo) resolveCommit(rev string) (*object.Commit, error) {
	h, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCommitNotFound, rev)
	}
	c, err := r.repo.CommitObject(*h)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCommitNotFound, rev)
	}
	return c, nil
}

// signature returns the commit identity from git config, else the fallback.
func (r *Repo) signature() (*object.Signature, error) {
	name, email := r.configIdentity()
	if name == "" || email == "" {
		name, email = r.authorName, r.authorEmail
	}
	if name == "" || email == "" {
		return nil, fmt.Errorf("%w: set user.name and user.email or author.name and author.email", ErrNoIdentity)
	}
	return &object.Signature{Name: name, Email: email, When: time.Now()}, nil
}

func (r *Repo) configIdentity() (string, string) {
	cfg, err := r.repo.ConfigScoped(config.GlobalScope)
	if err != nil {
		return "", ""
	}
	name, email := cfg.User.Name, cfg.User.Email
	if cfg.Author.Name != "" {
		name = cfg.Author.Name
	}
	if cfg.Author.Email != "" {
		email = cfg.Author.Email
	}
	return name, email
}

// identityEnv supplies the fallback identity to the git executable when git
// config has none.
func (r *Repo) identityEnv() []string {
	if r.authorName == "" || r.authorEmail == "" {
		return nil
	}
	if name, email := r.configIdentity(); name != "" && email != "" {
		return nil
	}
	return []string{
		"GIT_AUTHOR_NAME=" + r.authorName,
		"GIT_AUTHOR_EMAIL=" + r.authorEmail,
		"GIT_COMMITTER_NAME=" + r.authorName,
		"GIT_COMMITTER_EMAIL=" + r.authorEmail,
	}
}

// shortOID abbreviates a hash to seven characters.
func shortOID(h string) string {
	if len(h) > 7 {
		return h[:7]
	}
	return h
}

// notExist reports whether err means a file is missing.
func notExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
