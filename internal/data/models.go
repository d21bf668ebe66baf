package data

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a node id does not exist in the backend.
var ErrNotFound = errors.New("node not found")

// Kind tags the variant stored in a Node's Body.
type Kind string

const (
	KindFolder Kind = "folder"
	KindFile   Kind = "file"
)

// ContentType is the presentation hint for a file node.
type ContentType string

const (
	ContentText  ContentType = "text"
	ContentVideo ContentType = "video"
	ContentLink  ContentType = "link"
	ContentBook  ContentType = "book"
)

// Valid reports whether c is one of the known content types.
func (c ContentType) Valid() bool {
	switch c {
	case ContentText, ContentVideo, ContentLink, ContentBook:
		return true
	}
	return false
}

// TranslationStatus tracks the background translation of a file node.
// The empty status means no translation was ever requested.
type TranslationStatus string

const (
	TranslationNone    TranslationStatus = ""
	TranslationPending TranslationStatus = "pending"
	TranslationReady   TranslationStatus = "ready"
	TranslationFailed  TranslationStatus = "failed"
)

// Valid reports whether t is one of the known translation states.
func (t TranslationStatus) Valid() bool {
	switch t {
	case TranslationNone, TranslationPending, TranslationReady, TranslationFailed:
		return true
	}
	return false
}

// Body is the variant part of a Node. It is implemented only by Folder and *File.
type Body interface {
	Kind() Kind
	sealed()
}

// Folder is a pure grouping container.
type Folder struct{}

func (Folder) Kind() Kind { return KindFolder }
func (Folder) sealed()    {}

// File is a leaf holding one or two language bodies.
type File struct {
	ContentType ContentType
	ContentEN   string
	ContentHE   string
	URL         string
	Translation TranslationStatus
}

func (*File) Kind() Kind { return KindFile }
func (*File) sealed()    {}

// Node is a single entry in the archive tree.
type Node struct {
	ID        string
	Name      string
	ParentID  *string
	CreatedAt time.Time
	UpdatedAt time.Time
	Body      Body
}

// Kind returns the variant tag of the node body.
func (n *Node) Kind() Kind {
	if n.Body == nil {
		return KindFolder
	}
	return n.Body.Kind()
}

// IsFolder reports whether the node can have children.
func (n *Node) IsFolder() bool {
	_, ok := n.Body.(Folder)
	return ok || n.Body == nil
}

// File returns the file body, or nil for folders.
func (n *Node) File() *File {
	f, _ := n.Body.(*File)
	return f
}

// Label splits the node name into its language halves.
func (n *Node) Label() Label {
	return ParseLabel(n.Name)
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (n *Node) Clone() *Node {
	c := *n
	if n.ParentID != nil {
		p := *n.ParentID
		c.ParentID = &p
	}
	if f, ok := n.Body.(*File); ok {
		fc := *f
		c.Body = &fc
	}
	return &c
}

// ParentKey returns the parent id or "" for root nodes.
func (n *Node) ParentKey() string {
	if n.ParentID == nil {
		return ""
	}
	return *n.ParentID
}

type nodeJSON struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Type        Kind              `json:"type"`
	ParentID    *string           `json:"parentId"`
	CreatedAt   int64             `json:"createdAt"`
	UpdatedAt   int64             `json:"updatedAt,omitempty"`
	ContentType ContentType       `json:"contentType,omitempty"`
	ContentEN   string            `json:"contentEn,omitempty"`
	ContentHE   string            `json:"contentHe,omitempty"`
	URL         string            `json:"url,omitempty"`
	Translation TranslationStatus `json:"translation,omitempty"`
}

// MarshalJSON flattens the body into the wire shape used by the API.
func (n *Node) MarshalJSON() ([]byte, error) {
	out := nodeJSON{
		ID:        n.ID,
		Name:      n.Name,
		ParentID:  n.ParentID,
		CreatedAt: n.CreatedAt.UnixMilli(),
	}
	if !n.UpdatedAt.IsZero() {
		out.UpdatedAt = n.UpdatedAt.UnixMilli()
	}
	switch b := n.Body.(type) {
	case Folder, nil:
		out.Type = KindFolder
	case *File:
		out.Type = KindFile
		out.ContentType = b.ContentType
		out.ContentEN = b.ContentEN
		out.ContentHE = b.ContentHE
		out.URL = b.URL
		out.Translation = b.Translation
	default:
		return nil, fmt.Errorf("unknown node body %T", b)
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the flat wire shape back into the sum type.
func (n *Node) UnmarshalJSON(b []byte) error {
	var in nodeJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	body, err := NewBody(in.Type, in.ContentType, in.ContentEN, in.ContentHE, in.URL, in.Translation)
	if err != nil {
		return err
	}
	*n = Node{
		ID:        in.ID,
		Name:      in.Name,
		ParentID:  in.ParentID,
		CreatedAt: time.UnixMilli(in.CreatedAt),
		Body:      body,
	}
	if in.UpdatedAt != 0 {
		n.UpdatedAt = time.UnixMilli(in.UpdatedAt)
	}
	return nil
}

// NewBody builds the body variant for a kind tag. File-only values are ignored for folders.
func NewBody(kind Kind, ct ContentType, en, he, url string, tr TranslationStatus) (Body, error) {
	switch kind {
	case KindFolder:
		return Folder{}, nil
	case KindFile:
		if ct == "" {
			ct = ContentText
		}
		if !ct.Valid() {
			return nil, fmt.Errorf("unknown content type %q", ct)
		}
		if !tr.Valid() {
			return nil, fmt.Errorf("unknown translation status %q", tr)
		}
		return &File{ContentType: ct, ContentEN: en, ContentHE: he, URL: url, Translation: tr}, nil
	default:
		return nil, fmt.Errorf("unknown node type %q", kind)
	}
}
