package filebrowser

import (
	"path"
	"sort"
	"strings"

	"github.com/marcus/bmo/internal/vault"
)

// Node is a row of the explorer: a folder or a note.
type Node struct {
	Path  string // vault-relative, folders without trailing slash
	Name  string
	Depth int
	IsDir bool
}

// File returns the note of a file node.
func (n Node) File() vault.File { return vault.File{Path: n.Path} }

// Folder returns the folder a new note created from this node belongs in.
func (n Node) Folder() string {
	if n.IsDir {
		return n.Path
	}
	return n.File().Parent()
}

// Tree is the folder hierarchy of the vault's notes.
type Tree struct {
	children map[string][]Node // folder path ("" = root) -> direct children
	expanded map[string]bool
}

// BuildTree groups files into folders. Folders sort before notes, both
// case-insensitively.
func BuildTree(files []vault.File, expanded []string) *Tree {
	t := &Tree{children: make(map[string][]Node), expanded: make(map[string]bool)}
	seenDir := make(map[string]bool)

	for _, f := range files {
		parts := strings.Split(f.Path, "/")
		for i := 0; i < len(parts)-1; i++ {
			dir := strings.Join(parts[:i+1], "/")
			if seenDir[dir] {
				continue
			}
			seenDir[dir] = true
			parent := path.Dir(dir)
			if parent == "." {
				parent = ""
			}
			t.children[parent] = append(t.children[parent], Node{Path: dir, Name: parts[i], Depth: i, IsDir: true})
		}
		t.children[f.Parent()] = append(t.children[f.Parent()], Node{Path: f.Path, Name: f.Basename(), Depth: len(parts) - 1})
	}

	for _, nodes := range t.children {
		sort.Slice(nodes, func(i, j int) bool {
			if nodes[i].IsDir != nodes[j].IsDir {
				return nodes[i].IsDir
			}
			return strings.ToLower(nodes[i].Name) < strings.ToLower(nodes[j].Name)
		})
	}
	for _, dir := range expanded {
		if seenDir[dir] {
			t.expanded[dir] = true
		}
	}
	return t
}

// Visible flattens the tree, descending into expanded folders only.
func (t *Tree) Visible() []Node {
	var out []Node
	var walk func(dir string)
	walk = func(dir string) {
		for _, n := range t.children[dir] {
			out = append(out, n)
			if n.IsDir && t.expanded[n.Path] {
				walk(n.Path)
			}
		}
	}
	walk("")
	return out
}

// Expanded reports whether a folder is open.
func (t *Tree) Expanded(dir string) bool { return t.expanded[dir] }

// Toggle opens or closes a folder.
func (t *Tree) Toggle(dir string) { t.expanded[dir] = !t.expanded[dir] }

// Reveal expands every folder above p.
func (t *Tree) Reveal(p string) {
	for dir := path.Dir(p); dir != "." && dir != "/"; dir = path.Dir(dir) {
		t.expanded[dir] = true
	}
}

// ExpandedDirs lists the open folders, sorted.
func (t *Tree) ExpandedDirs() []string {
	var out []string
	for dir, open := range t.expanded {
		if open {
			out = append(out, dir)
		}
	}
	sort.Strings(out)
	return out
}
