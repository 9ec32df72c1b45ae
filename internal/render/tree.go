package render

import "strings"

// DefaultMaxDepth bounds tree output on deep or malformed input.
const DefaultMaxDepth = 32

// Truncated replaces the children of a node at the depth cap.
const Truncated = "… (truncated)"

// TreeNode is one node of a tree referenced by parent id.
type TreeNode struct {
	ID       string
	ParentID string
	Label    string
}

// TreeOptions tweaks tree output.
type TreeOptions struct {
	MaxDepth int
}

// Tree draws nodes top-down with box-drawing connectors:
//
//	root
//	├── child
//	│   └── grandchild
//	└── child
//
// Children keep input order. Nodes unreachable from a root are omitted, and
// a node is drawn at most once, so cycles end. Nodes at depth MaxDepth or
// deeper (the root is depth 0) collapse into a single Truncated line.
func Tree(nodes []TreeNode, opts TreeOptions) string {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	known := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		known[n.ID] = true
	}
	children := make(map[string][]TreeNode)
	var roots []TreeNode
	for _, n := range nodes {
		if n.ParentID == "" || !known[n.ParentID] {
			roots = append(roots, n)
			continue
		}
		children[n.ParentID] = append(children[n.ParentID], n)
	}

	var b strings.Builder
	visited := make(map[string]bool, len(nodes))
	var walk func(n TreeNode, prefix string, depth int)
	walk = func(n TreeNode, prefix string, depth int) {
		kids := children[n.ID]
		if len(kids) == 0 {
			return
		}
		if depth >= maxDepth {
			b.WriteString(prefix + "└── " + Truncated + "\n")
			return
		}
		for i, k := range kids {
			if visited[k.ID] {
				continue
			}
			visited[k.ID] = true
			last := i == len(kids)-1
			connector, next := "├── ", "│   "
			if last {
				connector, next = "└── ", "    "
			}
			b.WriteString(prefix + connector + k.Label + "\n")
			walk(k, prefix+next, depth+1)
		}
	}
	for _, r := range roots {
		if visited[r.ID] {
			continue
		}
		visited[r.ID] = true
		b.WriteString(r.Label + "\n")
		walk(r, "", 1)
	}
	return strings.TrimRight(b.String(), "\n")
}
