package data

import (
	"time"

	"github.com/google/uuid"
)

// seedNamespace makes seeded ids stable, so seeding the local and the remote backend
// independently yields the same rows.
var seedNamespace = uuid.MustParse("0b6f1c2e-5d1a-4a43-9a47-3f3c7c1d2e10")

type seedFolder struct {
	key    string
	name   string
	parent string
}

var defaultFolders = []seedFolder{
	{key: "concepts", name: "Messianic Concepts | מושגים וערכים"},
	{key: "belief", name: "Belief & Anticipation | אמונה וציפייה"},
	{key: "prophecies", name: "Redemptive Prophecies | יעודי הגאולה"},
	{key: "sages", name: "Teachings of the Sages | ילקוט ביאורי חז\"ל"},
	{key: "insights", name: "Scholarly Insights | הערות וביאורים"},
	{key: "rambam", name: "Maimonides Studies | ביאורי הרמב\"ם"},
	{key: "library", name: "The Classic Library | אוצר הספרים"},
	{key: "media", name: "Multimedia Archive | תיעוד ומדיה"},
	{key: "library-portals", name: "Digital Libraries | ספריות דיגיטליות", parent: "library"},
	{key: "library-seforim", name: "Seforim Archive | ארכיון ספרים", parent: "library"},
	{key: "media-articles", name: "Articles & Deep Dives | מאמרים ועיונים", parent: "media"},
}

func seedID(key string) string {
	return uuid.NewSHA1(seedNamespace, []byte(key)).String()
}

// DefaultNodes returns the folder skeleton written into an empty archive. Creation
// times step back one millisecond per entry so the listed order is kept when sorted
// newest first.
func DefaultNodes(now time.Time) []*Node {
	nodes := make([]*Node, 0, len(defaultFolders))
	for i, f := range defaultFolders {
		n := &Node{
			ID:        seedID(f.key),
			Name:      f.name,
			CreatedAt: now.Add(-time.Duration(i) * time.Millisecond),
			Body:      Folder{},
		}
		n.UpdatedAt = n.CreatedAt
		if f.parent != "" {
			p := seedID(f.parent)
			n.ParentID = &p
		}
		nodes = append(nodes, n)
	}
	return nodes
}
