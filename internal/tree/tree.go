// Package tree answers structural queries over the flat node list. Every walk keeps a
// visited set, so a corrupted parent chain ends the walk instead of looping.
package tree

import (
	"sort"
	"strings"

	"go-archive-app/internal/data"
)

// Index maps node ids to nodes.
func Index(nodes []*data.Node) map[string]*data.Node {
	idx := make(map[string]*data.Node, len(nodes))
	for _, n := range nodes {
		idx[n.ID] = n
	}
	return idx
}

// childMap groups node ids under their parent id ("" for roots).
func childMap(nodes []*data.Node) map[string][]*data.Node {
	m := make(map[string][]*data.Node)
	for _, n := range nodes {
		m[n.ParentKey()] = append(m[n.ParentKey()], n)
	}
	return m
}

// Descendants returns the ids of every transitive child of id in breadth-first order.
// id itself is not included.
func Descendants(nodes []*data.Node, id string) []string {
	children := childMap(nodes)
	visited := map[string]bool{id: true}
	var out []string
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, c := range children[cur] {
			if visited[c.ID] {
				continue
			}
			visited[c.ID] = true
			out = append(out, c.ID)
			queue = append(queue, c.ID)
		}
	}
	return out
}

// IsDescendant reports whether candidate sits anywhere below id.
func IsDescendant(nodes []*data.Node, id, candidate string) bool {
	for _, d := range Descendants(nodes, id) {
		if d == candidate {
			return true
		}
	}
	return false
}

// Ancestors returns the chain from the root down to the parent of id.
func Ancestors(nodes []*data.Node, id string) []*data.Node {
	idx := Index(nodes)
	n, ok := idx[id]
	if !ok {
		return nil
	}
	visited := map[string]bool{id: true}
	var chain []*data.Node
	for p := n.ParentKey(); p != ""; {
		if visited[p] {
			break
		}
		visited[p] = true
		parent, ok := idx[p]
		if !ok {
			break
		}
		chain = append(chain, parent)
		p = parent.ParentKey()
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Children returns the direct children of parentID ("" for the root level), newest first.
func Children(nodes []*data.Node, parentID string) []*data.Node {
	var out []*data.Node
	for _, n := range nodes {
		if n.ParentKey() == parentID {
			out = append(out, n)
		}
	}
	newestFirst(out)
	return out
}

// RootFolders returns the top level folders, oldest first as they appear in navigation.
func RootFolders(nodes []*data.Node) []*data.Node {
	var out []*data.Node
	for _, n := range nodes {
		if n.ParentID == nil && n.IsFolder() {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Branch is a node with its nested children.
type Branch struct {
	Node     *data.Node `json:"node"`
	Children []*Branch  `json:"children,omitempty"`
}

// Build nests the flat list starting at the root level. Nodes that are unreachable
// from a root (dangling parents or cycles) are left out.
func Build(nodes []*data.Node) []*Branch {
	children := childMap(nodes)
	for _, list := range children {
		newestFirst(list)
	}
	visited := make(map[string]bool)
	var build func(parent string) []*Branch
	build = func(parent string) []*Branch {
		var out []*Branch
		for _, n := range children[parent] {
			if visited[n.ID] {
				continue
			}
			visited[n.ID] = true
			b := &Branch{Node: n}
			if n.IsFolder() {
				b.Children = build(n.ID)
			}
			out = append(out, b)
		}
		return out
	}
	return build("")
}

// Search matches q case-insensitively against both halves of every name and returns
// at most limit hits (limit <= 0 means no limit).
func Search(nodes []*data.Node, q string, limit int) []*data.Node {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return nil
	}
	var out []*data.Node
	for _, n := range nodes {
		if strings.Contains(strings.ToLower(n.Name), q) {
			out = append(out, n)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out
}

// FeaturedVideos returns the newest video files.
func FeaturedVideos(nodes []*data.Node, limit int) []*data.Node {
	var out []*data.Node
	for _, n := range nodes {
		switch b := n.Body.(type) {
		case *data.File:
			if b.ContentType == data.ContentVideo {
				out = append(out, n)
			}
		case data.Folder:
		}
	}
	newestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func newestFirst(list []*data.Node) {
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
}
