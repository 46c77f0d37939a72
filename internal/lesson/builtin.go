package lesson

import (
	"fmt"
	"sort"
)

// Built-in scenario documents. Each reproduces one of the canonical teaching
// states through the real engine.
var builtinDocs = map[string]string{
	"edu-git-diff":    eduGitDiffScenario,
	"conflict-branch": conflictBranchScenario,
	"remote-compare":  remoteCompareScenario,
}

// List returns the built-in scenario ids, sorted.
func List() []string {
	ids := make([]string, 0, len(builtinDocs))
	for id := range builtinDocs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Get parses a built-in scenario by id.
func Get(id string) (*Scenario, error) {
	doc, ok := builtinDocs[id]
	if !ok {
		return nil, fmt.Errorf("unknown scenario %q", id)
	}
	return UnmarshalScenario([]byte(doc))
}

// eduGitDiffScenario seeds a committed base and three uncommitted edits: an
// added line, a rewritten line, and a removed line. It backs the gutter and
// terminal-diff exercises.
const eduGitDiffScenario = `
schema_version: 1
id: edu-git-diff
title: Diff and gutter basics
description: One committed baseline with an add, a modify, and a delete left unstaged.
steps:
  - name: seed baseline
    files:
      /src/index.txt: |
        Start line
      /docs/overview.txt: |
        Initial overview line
      /notes/ideas.txt: |
        First idea
        Second idea
    run:
      - git init
      - git add .
      - git commit -m "Initial import"
  - name: local edits
    files:
      /src/index.txt: |
        Start line
        Local add line
      /docs/overview.txt: |
        - Updated overview line
      /notes/ideas.txt: |
        First idea
`

// conflictBranchScenario builds the three-commit conflict mock: main and
// conflict_branch both rewrite the same helper line, so cherry-picking the
// branch commit from main conflicts.
const conflictBranchScenario = `
schema_version: 1
id: conflict-branch
title: Cherry-pick conflict
description: Two branches rewriting the same line, primed for a cherry-pick conflict.
steps:
  - name: seed baseline
    files:
      /src/utils/helpers.txt: |
        helper one
        helper two
    run:
      - git init
      - git add .
      - git commit -m "Add helpers"
  - name: branch off
    run:
      - git checkout -b conflict_branch
  - name: branch edit
    files:
      /src/utils/helpers.txt: |
        helper one
        helper two updated in branch
    run:
      - git add .
      - git commit -m "Update helpers in branch"
  - name: back to main
    run:
      - git checkout main
  - name: main edit
    files:
      /src/utils/helpers.txt: |
        helper one
        helper two updated on main
    run:
      - git add .
      - git commit -m "Update helpers on main"
`

// remoteCompareScenario builds a two-branch remote whose diff_branch adds,
// modifies, and deletes one file each relative to main.
const remoteCompareScenario = `
schema_version: 1
id: remote-compare
title: Remote branch comparison
description: A loopback remote with main and diff_branch differing by three files.
steps:
  - name: create remote
    run:
      - mkdir /.remotes/demo
      - cd /.remotes/demo
      - git init
  - name: base content
    files:
      /.remotes/demo/docs/overview.txt: |
        Initial overview line
      /.remotes/demo/notes/ideas.txt: |
        First idea
        Second idea
    run:
      - git add .
      - git commit -m "Base content"
      - git checkout -b diff_branch
  - name: branch changes
    files:
      /.remotes/demo/src/index.txt: |
        Fresh file on the branch
      /.remotes/demo/docs/overview.txt: |
        - Updated overview line
    delete:
      - /.remotes/demo/notes/ideas.txt
    run:
      - git add .
      - git commit -m "Branch changes"
      - git checkout main
      - cd /
`
