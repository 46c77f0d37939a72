package remote

import (
	"encoding/json"
	"sort"

	"github.com/google/uuid"

	"github.com/chazuruo/edugit/internal/diff"
	"github.com/chazuruo/edugit/internal/errors"
	"github.com/chazuruo/edugit/internal/object"
	"github.com/chazuruo/edugit/internal/repo"
	"github.com/chazuruo/edugit/internal/vfs"
)

// MRStatus is the lifecycle state of a merge request.
type MRStatus string

const (
	// MROpen is an active request.
	MROpen MRStatus = "open"
	// MRClosed was closed without merging.
	MRClosed MRStatus = "closed"
	// MRMerged was merged into its base branch.
	MRMerged MRStatus = "merged"
)

// MergeRelation describes compare relative to base.
type MergeRelation string

const (
	// RelationAhead means base is reachable from compare: a fast-forward.
	RelationAhead MergeRelation = "ahead"
	// RelationBehind means compare is reachable from base: nothing to merge.
	RelationBehind MergeRelation = "behind"
	// RelationUpToDate means the branch tips are equal.
	RelationUpToDate MergeRelation = "up-to-date"
	// RelationDiverged means a three-way merge is required.
	RelationDiverged MergeRelation = "diverged"
)

// MergeStatus is the dry-run merge verdict.
type MergeStatus string

const (
	// MergeClean merges without conflicts.
	MergeClean MergeStatus = "clean"
	// MergeConflicted would produce conflicts.
	MergeConflicted MergeStatus = "conflict"
)

// FileStatus classifies one file in a branch comparison.
type FileStatus string

const (
	// FileAdded exists only on the compare side.
	FileAdded FileStatus = "added"
	// FileModified differs between the sides.
	FileModified FileStatus = "modified"
	// FileDeleted exists only on the base side.
	FileDeleted FileStatus = "deleted"
)

// FileDiff is one compared file with its rendered patch.
type FileDiff struct {
	Path   string     `json:"path"`
	Status FileStatus `json:"status"`
	Patch  string     `json:"patch"`
}

// CommitInfo is a log row embedded in a merge-request record.
type CommitInfo struct {
	Oid     object.Oid `json:"oid"`
	Message string     `json:"message"`
}

// MergeRequest is the persisted review record of one base ← compare pair.
type MergeRequest struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Slug          string        `json:"slug"`
	Status        MRStatus      `json:"status"`
	Base          string        `json:"base"`
	Compare       string        `json:"compare"`
	Commits       []CommitInfo  `json:"commits,omitempty"`
	Diffs         []FileDiff    `json:"diffs,omitempty"`
	MergeStatus   MergeStatus   `json:"mergeStatus,omitempty"`
	ConflictFiles []string      `json:"conflictFiles,omitempty"`
	MergeMessage  string        `json:"mergeMessage,omitempty"`
	MergeRelation MergeRelation `json:"mergeRelation,omitempty"`
}

// metaFile is the merge-request ledger persisted at the remote root.
type metaFile struct {
	Version       int            `json:"version"`
	MergeRequests []MergeRequest `json:"mergeRequests"`
}

const metaVersion = 1

func metaPath(rem *repo.Repository) string {
	return vfs.Join(rem.Root(), repo.RemoteMetaName)
}

// LoadMergeRequests reads a remote's merge-request ledger.
func LoadMergeRequests(rem *repo.Repository) ([]MergeRequest, error) {
	data, err := rem.FS().ReadFile(metaPath(rem))
	if err != nil {
		if errors.NotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var meta metaFile
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, errors.Wrap(err, "readMergeRequests")
	}
	return meta.MergeRequests, nil
}

// SaveMergeRequests writes the ledger back.
func SaveMergeRequests(rem *repo.Repository, mrs []MergeRequest) error {
	data, err := json.MarshalIndent(metaFile{Version: metaVersion, MergeRequests: mrs}, "", "  ")
	if err != nil {
		return err
	}
	return rem.FS().WriteFile(metaPath(rem), data)
}

// Relation computes how compare relates to base on a remote.
func Relation(rem *repo.Repository, base, compare string) (MergeRelation, error) {
	baseTip, err := rem.ReadRef(repo.BranchRef(base))
	if err != nil {
		return "", err
	}
	compareTip, err := rem.ReadRef(repo.BranchRef(compare))
	if err != nil {
		return "", err
	}
	if baseTip == compareTip {
		return RelationUpToDate, nil
	}
	if ahead, err := rem.IsDescendent(compareTip, baseTip); err != nil {
		return "", err
	} else if ahead {
		return RelationAhead, nil
	}
	if behind, err := rem.IsDescendent(baseTip, compareTip); err != nil {
		return "", err
	} else if behind {
		return RelationBehind, nil
	}
	return RelationDiverged, nil
}

// CompareBranches produces the per-file diffs between two branch tips,
// classified added/modified/deleted from base's point of view.
func CompareBranches(rem *repo.Repository, base, compare string) ([]FileDiff, error) {
	baseTip, err := rem.ReadRef(repo.BranchRef(base))
	if err != nil {
		return nil, err
	}
	compareTip, err := rem.ReadRef(repo.BranchRef(compare))
	if err != nil {
		return nil, err
	}
	baseBlobs, err := rem.CommitBlobIndex(baseTip)
	if err != nil {
		return nil, err
	}
	compareBlobs, err := rem.CommitBlobIndex(compareTip)
	if err != nil {
		return nil, err
	}

	paths := map[string]bool{}
	for p := range baseBlobs {
		paths[p] = true
	}
	for p := range compareBlobs {
		paths[p] = true
	}
	sorted := make([]string, 0, len(paths))
	for p := range paths {
		sorted = append(sorted, p)
	}
	sort.Strings(sorted)

	var out []FileDiff
	for _, path := range sorted {
		b, inBase := baseBlobs[path]
		c, inCompare := compareBlobs[path]
		if inBase && inCompare && b == c {
			continue
		}
		var oldText, newText string
		var status FileStatus
		switch {
		case !inBase:
			status = FileAdded
		case !inCompare:
			status = FileDeleted
		default:
			status = FileModified
		}
		if inBase {
			data, err := rem.ReadBlob(b)
			if err != nil {
				return nil, err
			}
			oldText = string(data)
		}
		if inCompare {
			data, err := rem.ReadBlob(c)
			if err != nil {
				return nil, err
			}
			newText = string(data)
		}
		out = append(out, FileDiff{
			Path:   path,
			Status: status,
			Patch:  diff.Unified(path, oldText, newText),
		})
	}
	return out, nil
}

// DryRunMerge decides mergeability of compare into base without moving a
// ref or writing a tree or file: the same three-way walk the real merge
// performs, discarding its output. Clean-merged blobs still land in the
// object store.
func DryRunMerge(rem *repo.Repository, base, compare string) (MergeStatus, []string, error) {
	baseTip, err := rem.ReadRef(repo.BranchRef(base))
	if err != nil {
		return "", nil, err
	}
	compareTip, err := rem.ReadRef(repo.BranchRef(compare))
	if err != nil {
		return "", nil, err
	}
	_, conflicts, err := mergeBlobMaps(rem, baseTip, compareTip)
	if err != nil {
		return "", nil, err
	}
	if len(conflicts) > 0 {
		return MergeConflicted, conflicts, nil
	}
	return MergeClean, nil, nil
}

// mergeBlobMaps performs the pure (store-only) three-way merge of two
// commits, returning the merged path → blob map and any conflicted paths.
// Clean-merged content is written to the object store (objects are harmless
// to create), but no tree, ref, or file changes.
func mergeBlobMaps(rem *repo.Repository, ours, theirs object.Oid) (map[string]object.Oid, []string, error) {
	mergeBase, err := rem.MergeBase(ours, theirs)
	if err != nil {
		return nil, nil, err
	}
	baseBlobs, err := rem.CommitBlobIndex(mergeBase)
	if err != nil {
		return nil, nil, err
	}
	oursBlobs, err := rem.CommitBlobIndex(ours)
	if err != nil {
		return nil, nil, err
	}
	theirsBlobs, err := rem.CommitBlobIndex(theirs)
	if err != nil {
		return nil, nil, err
	}

	merged := map[string]object.Oid{}
	for p, oid := range oursBlobs {
		merged[p] = oid
	}
	paths := map[string]bool{}
	for p := range baseBlobs {
		paths[p] = true
	}
	for p := range theirsBlobs {
		paths[p] = true
	}
	for p := range oursBlobs {
		paths[p] = true
	}
	sorted := make([]string, 0, len(paths))
	for p := range paths {
		sorted = append(sorted, p)
	}
	sort.Strings(sorted)

	var conflicts []string
	readText := func(oid object.Oid) (string, error) {
		if oid == "" {
			return "", nil
		}
		data, err := rem.ReadBlob(oid)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	for _, path := range sorted {
		b, o, t := baseBlobs[path], oursBlobs[path], theirsBlobs[path]
		switch {
		case b == t:
			// theirs did not touch it
		case o == t:
			// identical on both sides
		case t == "":
			if o == b {
				delete(merged, path)
			} else {
				conflicts = append(conflicts, path)
			}
		default:
			baseText, err := readText(b)
			if err != nil {
				return nil, nil, err
			}
			oursText, err := readText(o)
			if err != nil {
				return nil, nil, err
			}
			theirsText, err := readText(t)
			if err != nil {
				return nil, nil, err
			}
			res := diff.Merge3(baseText, oursText, theirsText, "HEAD", "merge")
			if !res.CleanMerge {
				conflicts = append(conflicts, path)
				continue
			}
			oid, err := rem.WriteObject(object.TypeBlob, []byte(res.Text))
			if err != nil {
				return nil, nil, err
			}
			merged[path] = oid
		}
	}
	return merged, conflicts, nil
}

// CreateMergeRequest opens a new request. A {base, compare} pair may not be
// open twice simultaneously.
func CreateMergeRequest(rem *repo.Repository, title, base, compare string) (*MergeRequest, error) {
	if !rem.BranchExists(base) || !rem.BranchExists(compare) {
		return nil, errors.ErrInvalidRef
	}
	mrs, err := LoadMergeRequests(rem)
	if err != nil {
		return nil, err
	}
	for _, mr := range mrs {
		if mr.Status == MROpen && mr.Base == base && mr.Compare == compare {
			return nil, errors.ErrNameExists
		}
	}
	mr := MergeRequest{
		ID:      uuid.NewString(),
		Title:   title,
		Slug:    Slugify(title),
		Status:  MROpen,
		Base:    base,
		Compare: compare,
	}
	mrs = append(mrs, mr)
	if err := SaveMergeRequests(rem, mrs); err != nil {
		return nil, err
	}
	return &mr, nil
}

// OpenMergeRequest refreshes a request's derived fields (relation, commit
// list, diffs, and the dry-run merge verdict), persists, and returns it.
func OpenMergeRequest(rem *repo.Repository, id string) (*MergeRequest, error) {
	mrs, err := LoadMergeRequests(rem)
	if err != nil {
		return nil, err
	}
	pos := findMR(mrs, id)
	if pos < 0 {
		return nil, errors.ErrObjectNotFound
	}
	mr := &mrs[pos]

	relation, err := Relation(rem, mr.Base, mr.Compare)
	if err != nil {
		return nil, err
	}
	mr.MergeRelation = relation

	mr.Commits, err = compareCommits(rem, mr.Base, mr.Compare)
	if err != nil {
		return nil, err
	}
	mr.Diffs, err = CompareBranches(rem, mr.Base, mr.Compare)
	if err != nil {
		return nil, err
	}
	mr.MergeStatus, mr.ConflictFiles, err = DryRunMerge(rem, mr.Base, mr.Compare)
	if err != nil {
		return nil, err
	}

	if err := SaveMergeRequests(rem, mrs); err != nil {
		return nil, err
	}
	out := *mr
	return &out, nil
}

// compareCommits lists commits on compare that base lacks, newest first.
func compareCommits(rem *repo.Repository, base, compare string) ([]CommitInfo, error) {
	baseTip, err := rem.ReadRef(repo.BranchRef(base))
	if err != nil {
		return nil, err
	}
	compareTip, err := rem.ReadRef(repo.BranchRef(compare))
	if err != nil {
		return nil, err
	}
	baseLog, err := rem.Log(baseTip)
	if err != nil {
		return nil, err
	}
	inBase := map[object.Oid]bool{}
	for _, e := range baseLog {
		inBase[e.Oid] = true
	}
	compareLog, err := rem.Log(compareTip)
	if err != nil {
		return nil, err
	}
	var out []CommitInfo
	for _, e := range compareLog {
		if !inBase[e.Oid] {
			out = append(out, CommitInfo{Oid: e.Oid, Message: e.Commit.Message})
		}
	}
	return out, nil
}

// ConfirmMergeOptions configures ConfirmMerge.
type ConfirmMergeOptions struct {
	// DeleteBranchOnMerge removes the compare branch after a successful
	// merge (never when compare == base).
	DeleteBranchOnMerge bool
	// Message overrides the default merge-commit message.
	Message string
}

// ConfirmMerge runs the real merge of an open request on the remote. Ahead
// relations fast-forward; diverged ones synthesise a merge commit from the
// three-way blob merge. A conflicted request does not merge: the record is
// updated with the conflict verdict and a ConflictError is returned. Up-to-date
// and behind relations fail with ErrAlreadyMerged. On success the record
// becomes merged.
func ConfirmMerge(rem *repo.Repository, id string, opts ConfirmMergeOptions) (*MergeRequest, error) {
	mrs, err := LoadMergeRequests(rem)
	if err != nil {
		return nil, err
	}
	pos := findMR(mrs, id)
	if pos < 0 {
		return nil, errors.ErrObjectNotFound
	}
	mr := &mrs[pos]
	if mr.Status != MROpen {
		return nil, errors.ErrNoOperation
	}

	baseTip, err := rem.ReadRef(repo.BranchRef(mr.Base))
	if err != nil {
		return nil, err
	}
	compareTip, err := rem.ReadRef(repo.BranchRef(mr.Compare))
	if err != nil {
		return nil, err
	}
	relation, err := Relation(rem, mr.Base, mr.Compare)
	if err != nil {
		return nil, err
	}

	switch relation {
	case RelationUpToDate, RelationBehind:
		return nil, errors.ErrAlreadyMerged
	case RelationAhead:
		if err := rem.WriteRef(repo.BranchRef(mr.Base), compareTip, true); err != nil {
			return nil, err
		}
		mr.MergeMessage = opts.Message
	default: // diverged
		merged, conflicts, err := mergeBlobMaps(rem, baseTip, compareTip)
		if err != nil {
			return nil, err
		}
		if len(conflicts) > 0 {
			mr.MergeStatus = MergeConflicted
			mr.ConflictFiles = conflicts
			if err := SaveMergeRequests(rem, mrs); err != nil {
				return nil, err
			}
			return nil, &errors.ConflictError{Op: errors.OpMerge, Files: conflicts}
		}
		tree, err := rem.WriteTreeFromPaths(merged)
		if err != nil {
			return nil, err
		}
		message := opts.Message
		if message == "" {
			message = "Merge branch '" + mr.Compare + "' into " + mr.Base
		}
		commit, err := rem.CreateCommit(tree, []object.Oid{baseTip, compareTip}, message)
		if err != nil {
			return nil, err
		}
		if err := rem.WriteRef(repo.BranchRef(mr.Base), commit, true); err != nil {
			return nil, err
		}
		mr.MergeMessage = message
	}

	mr.Status = MRMerged
	mr.MergeStatus = MergeClean
	mr.ConflictFiles = nil
	if opts.DeleteBranchOnMerge && mr.Compare != mr.Base {
		if err := rem.DeleteRef(repo.BranchRef(mr.Compare)); err != nil {
			return nil, err
		}
	}
	if err := SaveMergeRequests(rem, mrs); err != nil {
		return nil, err
	}
	if err := syncRemoteWorktree(rem, mr.Base); err != nil {
		return nil, err
	}
	out := *mr
	return &out, nil
}

// CloseMergeRequest closes an open request without merging.
func CloseMergeRequest(rem *repo.Repository, id string) error {
	mrs, err := LoadMergeRequests(rem)
	if err != nil {
		return err
	}
	pos := findMR(mrs, id)
	if pos < 0 {
		return errors.ErrObjectNotFound
	}
	if mrs[pos].Status != MROpen {
		return errors.ErrNoOperation
	}
	mrs[pos].Status = MRClosed
	return SaveMergeRequests(rem, mrs)
}

func findMR(mrs []MergeRequest, id string) int {
	for i := range mrs {
		if mrs[i].ID == id {
			return i
		}
	}
	return -1
}
