// Package graph lays out commits into lanes for a text or visual log graph.
//
// Lane assignment is greedy: a commit takes the first lane already waiting
// for it, otherwise the first free lane, otherwise a new one. The layout is
// deterministic and linear in commits times lanes but does not minimize the
// number of lanes.
package graph

// NodeType distinguishes merge commits from the rest.
type NodeType int

const (
	// Normal is a commit with at most one parent.
	Normal NodeType = iota
	// Merge is a commit with more than one parent.
	Merge
)

// String returns the lowercase node type name.
func (n NodeType) String() string {
	if n == Merge {
		return "merge"
	}
	return "normal"
}

// Commit is the minimal input to the layout.
type Commit struct {
	OID     string
	Parents []string
}

// Edge connects a row's column to the lane of one of its parents. ColorIndex
// is the destination column so a lane keeps its color while occupied.
type Edge struct {
	FromColumn int `json:"from_column"`
	ToColumn   int `json:"to_column"`
	ColorIndex int `json:"color_index"`
}

// Row is the layout of one commit.
type Row struct {
	OID      string   `json:"oid"`
	Column   int      `json:"column"`
	NodeType NodeType `json:"node_type"`
	Edges    []Edge   `json:"edges"`
}

// lanes holds, per column, the OID the lane waits to emit or "" when free.
type lanes []string

func (l lanes) find(oid string) int {
	for i, w := range l {
		if w != "" && w == oid {
			return i
		}
	}
	return -1
}

// alloc returns the first free column, appending one when none is free.
func (l *lanes) alloc() int {
	for i, w := range *l {
		if w == "" {
			return i
		}
	}
	*l = append(*l, "")
	return len(*l) - 1
}

// Build assigns a column and edges to each commit, in the order given.
// Commits are expected in display order, newest first.
func Build(commits []Commit) []Row {
	rows := make([]Row, 0, len(commits))
	var active lanes

	for _, c := range commits {
		col := active.find(c.OID)
		if col < 0 {
			col = active.alloc()
		}
		active[col] = ""

		row := Row{OID: c.OID, Column: col, NodeType: Normal}
		if len(c.Parents) > 1 {
			row.NodeType = Merge
		}

		for i, parent := range c.Parents {
			if i == 0 {
				active[col] = parent
				row.Edges = append(row.Edges, Edge{FromColumn: col, ToColumn: col, ColorIndex: col})
				continue
			}
			to := active.find(parent)
			if to < 0 {
				to = active.alloc()
				active[to] = parent
			}
			row.Edges = append(row.Edges, Edge{FromColumn: col, ToColumn: to, ColorIndex: to})
		}

		rows = append(rows, row)
	}
	return rows
}

// Width returns the number of columns the rows occupy.
func Width(rows []Row) int {
	w := 0
	for _, r := range rows {
		w = max(w, r.Column+1)
		for _, e := range r.Edges {
			w = max(w, e.ToColumn+1)
		}
	}
	return w
}
