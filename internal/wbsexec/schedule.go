package wbsexec

import (
	"cmp"
	"slices"
)

// preorder returns task indexes in checklist order: roots by (order, id),
// each followed by its subtree.
func preorder(tasks []Task) []int {
	known := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		known[t.ID] = true
	}
	children := make(map[string][]int)
	var roots []int
	for i, t := range tasks {
		if t.ParentID == "" || !known[t.ParentID] {
			roots = append(roots, i)
			continue
		}
		children[t.ParentID] = append(children[t.ParentID], i)
	}
	bySibling := func(a, b int) int {
		if c := cmp.Compare(tasks[a].Order, tasks[b].Order); c != 0 {
			return c
		}
		return cmp.Compare(tasks[a].ID, tasks[b].ID)
	}

	out := make([]int, 0, len(tasks))
	visited := make(map[int]bool, len(tasks))
	var walk func(i int)
	walk = func(i int) {
		if visited[i] {
			return
		}
		visited[i] = true
		out = append(out, i)
		kids := children[tasks[i].ID]
		slices.SortFunc(kids, bySibling)
		for _, k := range kids {
			walk(k)
		}
	}
	slices.SortFunc(roots, bySibling)
	for _, r := range roots {
		walk(r)
	}
	return out
}

// blockers lists what keeps task i from being worked on: unfinished
// dependencies and unfinished children.
func blockers(tasks []Task, i int) []string {
	done := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		done[t.ID] = t.Done
	}
	var out []string
	for _, dep := range tasks[i].Dependencies {
		if !done[dep] {
			out = append(out, dep)
		}
	}
	for _, t := range tasks {
		if t.ParentID == tasks[i].ID && !t.Done {
			out = append(out, t.ID)
		}
	}
	return out
}

// nextTask returns the index of the first unblocked open task in
// checklist order, or -1.
func nextTask(tasks []Task) int {
	for _, i := range preorder(tasks) {
		if !tasks[i].Done && len(blockers(tasks, i)) == 0 {
			return i
		}
	}
	return -1
}
