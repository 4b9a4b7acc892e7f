package graph

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestBuild_LinearChain(t *testing.T) {
	rows := Build([]Commit{
		{OID: "c3", Parents: []string{"c2"}},
		{OID: "c2", Parents: []string{"c1"}},
		{OID: "c1", Parents: []string{"c0"}},
	})

	require.Len(t, rows, 3)
	for _, r := range rows {
		require.Equal(t, 0, r.Column)
		require.Equal(t, Normal, r.NodeType)
		require.Equal(t, []Edge{{FromColumn: 0, ToColumn: 0, ColorIndex: 0}}, r.Edges)
	}
}

func TestBuild_RootCommitHasNoEdges(t *testing.T) {
	rows := Build([]Commit{{OID: "root"}})
	require.Equal(t, []Row{{OID: "root", Column: 0, NodeType: Normal}}, rows)
}

func TestBuild_MergeBranchesToDistinctColumns(t *testing.T) {
	rows := Build([]Commit{
		{OID: "m", Parents: []string{"a", "b"}},
	})

	require.Len(t, rows, 1)
	require.Equal(t, Merge, rows[0].NodeType)
	require.Equal(t, []Edge{
		{FromColumn: 0, ToColumn: 0, ColorIndex: 0},
		{FromColumn: 0, ToColumn: 1, ColorIndex: 1},
	}, rows[0].Edges)
}

func TestBuild_MergeThenBranchesRejoin(t *testing.T) {
	//   m
	//   |\
	//   a b
	//   |/
	//   base
	rows := Build([]Commit{
		{OID: "m", Parents: []string{"a", "b"}},
		{OID: "b", Parents: []string{"base"}},
		{OID: "a", Parents: []string{"base"}},
		{OID: "base"},
	})

	require.Equal(t, 0, rows[0].Column)
	require.Equal(t, 1, rows[1].Column)
	require.Equal(t, 0, rows[2].Column)
	// base is found in the first lane waiting for it.
	require.Equal(t, 0, rows[3].Column)
	require.Equal(t, 2, Width(rows))
}

func TestBuild_MergeReusesWaitingLane(t *testing.T) {
	rows := Build([]Commit{
		{OID: "x", Parents: []string{"p"}},
		{OID: "y", Parents: []string{"q"}},
		{OID: "m", Parents: []string{"r", "p"}},
	})

	// m takes a fresh lane, and its second parent edge goes to x's lane.
	require.Equal(t, 2, rows[2].Column)
	require.Equal(t, Edge{FromColumn: 2, ToColumn: 0, ColorIndex: 0}, rows[2].Edges[1])
}

func TestBuild_FreedLaneIsReused(t *testing.T) {
	rows := Build([]Commit{
		{OID: "a"},
		{OID: "b"},
	})
	require.Equal(t, 0, rows[0].Column)
	require.Equal(t, 0, rows[1].Column)
}

func TestBuild_Invariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 40).Draw(t, "commits")
		commits := make([]Commit, n)
		for i := range commits {
			commits[i].OID = fmt.Sprintf("c%d", i)
		}
		// Parents point to older commits only, like a real log.
		for i := range commits {
			if i == n-1 {
				continue
			}
			k := rapid.IntRange(0, min(3, n-1-i)).Draw(t, "parents")
			seen := map[int]bool{}
			for j := 0; j < k; j++ {
				p := rapid.IntRange(i+1, n-1).Draw(t, "parent")
				if seen[p] {
					continue
				}
				seen[p] = true
				commits[i].Parents = append(commits[i].Parents, commits[p].OID)
			}
		}

		rows := Build(commits)
		if len(rows) != n {
			t.Fatalf("got %d rows, want %d", len(rows), n)
		}
		for i, r := range rows {
			c := commits[i]
			if r.OID != c.OID {
				t.Fatalf("row %d has oid %s", i, r.OID)
			}
			if len(r.Edges) != len(c.Parents) {
				t.Fatalf("row %d has %d edges for %d parents", i, len(r.Edges), len(c.Parents))
			}
			if (r.NodeType == Merge) != (len(c.Parents) > 1) {
				t.Fatalf("row %d node type %s with %d parents", i, r.NodeType, len(c.Parents))
			}
			for j, e := range r.Edges {
				if e.FromColumn != r.Column || e.ColorIndex != e.ToColumn {
					t.Fatalf("row %d edge %d malformed: %+v", i, j, e)
				}
				if j == 0 && e.ToColumn != r.Column {
					t.Fatalf("row %d first-parent edge leaves its column", i)
				}
			}
		}
	})
}
