package git

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors classified from git's stderr.
var (
	// ErrNotGitRepo indicates the directory is not a git repository.
	ErrNotGitRepo = errors.New("not a git repository")
	// ErrPatchFailed indicates git apply rejected a patch.
	ErrPatchFailed = errors.New("patch does not apply")
	// ErrConflict indicates the command stopped on merge conflicts.
	ErrConflict = errors.New("conflicts")
	// ErrNothingToCommit indicates there was nothing to commit or save.
	ErrNothingToCommit = errors.New("nothing to commit")
	// ErrUnknownRevision indicates a revision or object could not be resolved.
	ErrUnknownRevision = errors.New("unknown revision")
	// ErrNoStash indicates the requested stash entry does not exist.
	ErrNoStash = errors.New("no such stash entry")
	// ErrLocalChanges indicates uncommitted changes would be overwritten.
	ErrLocalChanges = errors.New("local changes would be overwritten")
	// ErrNoOperation indicates there is no merge, rebase, cherry-pick or revert to act on.
	ErrNoOperation = errors.New("no operation in progress")
	// ErrGitNotFound indicates the git executable could not be started.
	ErrGitNotFound = errors.New("git executable not found")
)

// ProcessError is returned when git exits non-zero. Err holds the classified
// sentinel, if any, so callers can use errors.Is.
type ProcessError struct {
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	msg := fmt.Sprintf("git %s: exit status %d", strings.Join(e.Args, " "), e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// stderrPatterns maps lowercase stderr fragments to sentinels, checked in order.
var stderrPatterns = []struct {
	fragments []string
	err       error
}{
	{[]string{"not a git repository"}, ErrNotGitRepo},
	{[]string{"patch does not apply", "corrupt patch", "patch failed", "malformed patch", "no valid patches in input"}, ErrPatchFailed},
	{[]string{"would be overwritten", "your local changes"}, ErrLocalChanges},
	{[]string{"conflict", "could not apply", "after resolving the conflicts", "needs merge", "unmerged"}, ErrConflict},
	{[]string{"nothing to commit", "no local changes to save"}, ErrNothingToCommit},
	{[]string{"no stash entries", "is not a valid reference", "not a stash-like commit"}, ErrNoStash},
	{[]string{"no rebase in progress", "no cherry-pick or revert in progress", "there is no merge to abort", "no merge in progress"}, ErrNoOperation},
	{[]string{"unknown revision", "bad revision", "ambiguous argument", "invalid object name", "bad object", "invalid upstream", "not something we can merge"}, ErrUnknownRevision},
}

// parseGitError converts git output to a sentinel, or nil when unrecognized.
// Some commands report conflicts on stdout, so both streams are checked.
func parseGitError(stderr, stdout string) error {
	text := strings.ToLower(stderr + "\n" + stdout)
	for _, p := range stderrPatterns {
		for _, f := range p.fragments {
			if strings.Contains(text, f) {
				return p.err
			}
		}
	}
	return nil
}
