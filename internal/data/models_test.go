//go:build unit

package data

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseLabel(t *testing.T) {
	tests := []struct {
		name    string
		want    Label
		primary string
		he      string
	}{
		{"Concepts | מושגים", Label{EN: "Concepts", HE: "מושגים"}, "Concepts", "מושגים"},
		{"English only", Label{EN: "English only"}, "English only", "English only"},
		{"| עברית", Label{HE: "עברית"}, "עברית", "עברית"},
		{"A | B | C", Label{EN: "A", HE: "B | C"}, "A", "B | C"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l := ParseLabel(tc.name)
			require.Equal(t, tc.want, l)
			require.Equal(t, tc.primary, l.Primary())
			require.Equal(t, tc.he, l.In("he"))
		})
	}
	require.Equal(t, "Concepts | מושגים", ParseLabel("Concepts|מושגים").String())
}

func TestNodeJSON(t *testing.T) {
	parent := "p"
	n := &Node{
		ID: "n", Name: "Talk", ParentID: &parent, CreatedAt: time.UnixMilli(1700000000000),
		Body: &File{ContentType: ContentVideo, URL: "https://youtu.be/x", Translation: TranslationPending},
	}
	b, err := json.Marshal(n)
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"n","name":"Talk","type":"file","parentId":"p","createdAt":1700000000000,
		"contentType":"video","url":"https://youtu.be/x","translation":"pending"}`, string(b))

	var back Node
	require.NoError(t, json.Unmarshal(b, &back))
	require.Equal(t, n.Body, back.Body)

	b, err = json.Marshal(&Node{ID: "f", Name: "F", Body: Folder{}})
	require.NoError(t, err)
	require.Contains(t, string(b), `"type":"folder"`)
	require.Contains(t, string(b), `"parentId":null`)

	require.Error(t, json.Unmarshal([]byte(`{"id":"x","type":"shelf"}`), &back))
	require.Error(t, json.Unmarshal([]byte(`{"id":"x","type":"file","contentType":"podcast"}`), &back))
}

func TestNewBody(t *testing.T) {
	b, err := NewBody(KindFile, "", "", "", "", TranslationNone)
	require.NoError(t, err)
	require.Equal(t, ContentText, b.(*File).ContentType)

	b, err = NewBody(KindFolder, ContentVideo, "ignored", "", "", TranslationNone)
	require.NoError(t, err)
	require.Equal(t, Folder{}, b)

	_, err = NewBody(KindFile, ContentText, "", "", "", TranslationStatus("bogus"))
	require.Error(t, err)
	require.True(t, TranslationFailed.Valid())
	require.True(t, TranslationNone.Valid())
}

func TestClone(t *testing.T) {
	parent := "p"
	n := &Node{ID: "n", ParentID: &parent, Body: &File{ContentEN: "a"}}
	c := n.Clone()
	*c.ParentID = "q"
	c.File().ContentEN = "b"
	require.Equal(t, "p", *n.ParentID)
	require.Equal(t, "a", n.File().ContentEN)
}

func TestParentsFirst(t *testing.T) {
	p := func(s string) *string { return &s }
	nodes := []*Node{
		{ID: "grandchild", ParentID: p("child")},
		{ID: "child", ParentID: p("root")},
		{ID: "orphan", ParentID: p("elsewhere")},
		{ID: "root"},
		{ID: "x", ParentID: p("y")},
		{ID: "y", ParentID: p("x")},
	}
	out := ParentsFirst(nodes)
	require.Len(t, out, len(nodes))

	pos := map[string]int{}
	for i, n := range out {
		pos[n.ID] = i
	}
	require.Less(t, pos["root"], pos["child"])
	require.Less(t, pos["child"], pos["grandchild"])
	require.Greater(t, pos["x"], pos["grandchild"], "cycle members come last")
	require.Greater(t, pos["y"], pos["grandchild"])
}

func TestDefaultNodes(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	a := DefaultNodes(now)
	b := DefaultNodes(now.Add(time.Hour))
	require.NotEmpty(t, a)

	ids := map[string]bool{}
	for i := range a {
		require.Equal(t, a[i].ID, b[i].ID, "seed ids are stable")
		ids[a[i].ID] = true
		require.True(t, a[i].IsFolder())
	}
	for _, n := range a {
		if n.ParentID != nil {
			require.True(t, ids[*n.ParentID])
		}
	}
}
