package tracing

// Span attribute keys for repository operations.
const (
	AttrRepoPath = "repo.path"
	AttrOpID     = "repo.op_id"

	AttrGitRef    = "git.ref"
	AttrGitOID    = "git.oid"
	AttrGitPath   = "git.path"
	AttrGitRemote = "git.remote"
	AttrGitArgs   = "git.args"

	AttrMergeKind   = "merge.kind"
	AttrMergeOption = "merge.option"
	AttrConflicts   = "merge.conflicts"

	AttrPatchBytes = "patch.bytes"
	AttrPatchLines = "patch.lines"

	AttrErrorKind = "error.kind"
)

// SpanPrefixRepo prefixes every orchestrator span name.
const SpanPrefixRepo = "repo."

// Event names recorded on spans.
const (
	EventProcessSpawned = "process.spawned"
	EventPatchApplied   = "patch.applied"
	EventConflicts      = "conflicts.detected"
	EventCleanupFailed  = "cleanup.failed"
	EventCacheHit       = "cache.hit"
)
