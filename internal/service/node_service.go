package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go-archive-app/internal/data"
	"go-archive-app/internal/logger"
	"go-archive-app/internal/metrics"
	"go-archive-app/internal/sanitize"
	"go-archive-app/internal/tree"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

// NodeRepository defines the interface for backend operations on nodes.
type NodeRepository interface {
	GetAllNodes(ctx context.Context) ([]*data.Node, error)
	GetNodeByID(ctx context.Context, id string) (*data.Node, error)
	CreateNode(ctx context.Context, n *data.Node) error
	UpdateNode(ctx context.Context, n *data.Node) error
	DeleteNodes(ctx context.Context, ids []string) error
	ReplaceAll(ctx context.Context, nodes []*data.Node) error
	UpsertNodes(ctx context.Context, nodes []*data.Node) error
}

// NodeServicer defines the interface for interacting with the node tree.
type NodeServicer interface {
	FetchAll(ctx context.Context) ([]*data.Node, error)
	Get(ctx context.Context, id string) (*data.Node, error)
	Add(ctx context.Context, d Draft) (*data.Node, error)
	Update(ctx context.Context, id string, p Patch) (*data.Node, error)
	Delete(ctx context.Context, id string) ([]string, error)
	Move(ctx context.Context, id string, newParentID *string) (*data.Node, error)
	SyncToRemote(ctx context.Context) (int, error)
}

// Draft is a node before it has an id and a creation time. A nil Body means folder.
type Draft struct {
	Name     string
	ParentID *string
	Body     data.Body
}

// Patch lists the fields an update may change. Nil fields are left alone, and file
// fields are ignored on folders.
type Patch struct {
	Name        *string                 `json:"name,omitempty"`
	ContentType *data.ContentType       `json:"contentType,omitempty"`
	ContentEN   *string                 `json:"contentEn,omitempty"`
	ContentHE   *string                 `json:"contentHe,omitempty"`
	URL         *string                 `json:"url,omitempty"`
	Translation *data.TranslationStatus `json:"translation,omitempty"`
}

// NodeStoreConfig wires a NodeService. Remote is optional; without it Local is the
// primary backend.
type NodeStoreConfig struct {
	Remote  NodeRepository
	Local   NodeRepository
	Log     logger.Logger
	Metrics metrics.Recorder
	Now     func() time.Time
	NewID   func() string
}

// NodeService owns the archive tree. Writes go to the primary backend first and are
// then mirrored into the local snapshot.
type NodeService struct {
	remote    NodeRepository
	local     NodeRepository
	log       logger.Logger
	metrics   metrics.Recorder
	now       func() time.Time
	newID     func() string
	sanitizer *bluemonday.Policy

	// mu serializes mutations so a validation read and its write cannot interleave.
	mu sync.Mutex
}

var _ NodeServicer = (*NodeService)(nil)

// NewNodeService creates a NodeService from cfg, filling in defaults for the clock,
// id generator, logger and metrics.
func NewNodeService(cfg NodeStoreConfig) *NodeService {
	s := &NodeService{
		remote:    cfg.Remote,
		local:     cfg.Local,
		log:       cfg.Log,
		metrics:   cfg.Metrics,
		now:       cfg.Now,
		newID:     cfg.NewID,
		sanitizer: sanitize.Policy(),
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	if s.metrics == nil {
		s.metrics = metrics.Nop{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

func (s *NodeService) primary() NodeRepository {
	if s.remote != nil {
		return s.remote
	}
	return s.local
}

// mirror applies a successful primary write to the local snapshot. Failures only
// leave the snapshot stale until the next FetchAll, so they are logged and dropped.
func (s *NodeService) mirror(op string, fn func(NodeRepository) error) {
	if s.remote == nil {
		return
	}
	if err := fn(s.local); err != nil {
		s.log.With(map[string]interface{}{"op": op}).Error(err, "Failed to update local snapshot")
	}
}

// FetchAll returns every node. With a remote backend the result also replaces the
// local snapshot; when the remote read fails the snapshot is served instead.
func (s *NodeService) FetchAll(ctx context.Context) ([]*data.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.remote == nil {
		nodes, err := s.local.GetAllNodes(ctx)
		if err != nil {
			return nil, persistErr("fetch", err)
		}
		return nodes, nil
	}

	nodes, remoteErr := s.remote.GetAllNodes(ctx)
	if remoteErr == nil {
		if err := s.local.ReplaceAll(ctx, nodes); err != nil {
			s.log.Error(err, "Failed to refresh local snapshot")
		}
		return nodes, nil
	}

	s.metrics.Fallback()
	s.log.With(map[string]interface{}{"error": remoteErr.Error()}).Warn("Remote backend unavailable, serving local snapshot")
	nodes, err := s.local.GetAllNodes(ctx)
	if err != nil {
		return nil, persistErr("fetch", errors.Join(remoteErr, err))
	}
	return nodes, nil
}

// SeedIfEmpty writes the default folder skeleton when the primary backend holds no
// nodes. It reports whether seeding happened.
func (s *NodeService) SeedIfEmpty(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nodes, err := s.primary().GetAllNodes(ctx)
	if err != nil {
		return false, persistErr("seed", err)
	}
	if len(nodes) > 0 {
		return false, nil
	}
	seed := data.DefaultNodes(s.now())
	if err := s.primary().UpsertNodes(ctx, seed); err != nil {
		return false, persistErr("seed", err)
	}
	s.mirror("seed", func(r NodeRepository) error { return r.UpsertNodes(ctx, seed) })
	s.log.With(map[string]interface{}{"nodes": len(seed)}).Info("Seeded empty archive")
	return true, nil
}

// Get returns one node. A remote failure other than not-found falls back to the
// local snapshot.
func (s *NodeService) Get(ctx context.Context, id string) (*data.Node, error) {
	n, err := s.primary().GetNodeByID(ctx, id)
	if err == nil {
		return n, nil
	}
	if errors.Is(err, data.ErrNotFound) {
		return nil, err
	}
	if s.remote == nil {
		return nil, persistErr("get", err)
	}
	s.metrics.Fallback()
	n, localErr := s.local.GetNodeByID(ctx, id)
	if localErr != nil {
		if errors.Is(localErr, data.ErrNotFound) {
			return nil, localErr
		}
		return nil, persistErr("get", errors.Join(err, localErr))
	}
	return n, nil
}

// lookup reads a node from the primary backend for a mutation. Not-found passes
// through; anything else becomes a PersistenceError.
func (s *NodeService) lookup(ctx context.Context, op, id string) (*data.Node, error) {
	n, err := s.primary().GetNodeByID(ctx, id)
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return nil, err
		}
		return nil, persistErr(op, err)
	}
	return n, nil
}

// Add assigns an id and creation time to d and persists it.
func (s *NodeService) Add(ctx context.Context, d Draft) (n *data.Node, err error) {
	defer func() { s.metrics.Mutation("add", err) }()

	name := strings.TrimSpace(d.Name)
	if name == "" {
		return nil, fmt.Errorf("name is required: %w", ErrInvalidInput)
	}
	body, err := s.cleanBody(d.Body)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if d.ParentID != nil {
		parent, err := s.lookup(ctx, "add", *d.ParentID)
		if err != nil {
			return nil, fmt.Errorf("parent: %w", err)
		}
		if !parent.IsFolder() {
			return nil, fmt.Errorf("parent %s is a file: %w", parent.ID, ErrInvalidInput)
		}
	}

	now := s.now()
	n = &data.Node{
		ID:        s.newID(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
		Body:      body,
	}
	if d.ParentID != nil {
		p := *d.ParentID
		n.ParentID = &p
	}

	if err := s.primary().CreateNode(ctx, n); err != nil {
		return nil, persistErr("add", err)
	}
	s.mirror("add", func(r NodeRepository) error { return r.UpsertNodes(ctx, []*data.Node{n}) })
	s.log.With(map[string]interface{}{"id": n.ID, "type": string(n.Kind())}).Info("Node added")
	return n, nil
}

// cleanBody validates a draft body and sanitizes its HTML.
func (s *NodeService) cleanBody(b data.Body) (data.Body, error) {
	switch b := b.(type) {
	case nil, data.Folder:
		return data.Folder{}, nil
	case *data.File:
		f := *b
		if f.ContentType == "" {
			f.ContentType = data.ContentText
		}
		if !f.ContentType.Valid() {
			return nil, fmt.Errorf("content type %q: %w", f.ContentType, ErrInvalidInput)
		}
		if !f.Translation.Valid() {
			return nil, fmt.Errorf("translation status %q: %w", f.Translation, ErrInvalidInput)
		}
		f.ContentEN = s.sanitizer.Sanitize(f.ContentEN)
		f.ContentHE = s.sanitizer.Sanitize(f.ContentHE)
		f.URL = strings.TrimSpace(f.URL)
		return &f, nil
	default:
		return nil, fmt.Errorf("unknown node body %T: %w", b, ErrInvalidInput)
	}
}

// Update merges p into the node with the given id.
func (s *NodeService) Update(ctx context.Context, id string, p Patch) (n *data.Node, err error) {
	defer func() { s.metrics.Mutation("update", err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.lookup(ctx, "update", id)
	if err != nil {
		return nil, err
	}
	n = cur.Clone()

	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return nil, fmt.Errorf("name is required: %w", ErrInvalidInput)
		}
		n.Name = name
	}
	switch b := n.Body.(type) {
	case *data.File:
		if p.ContentType != nil {
			if !p.ContentType.Valid() {
				return nil, fmt.Errorf("content type %q: %w", *p.ContentType, ErrInvalidInput)
			}
			b.ContentType = *p.ContentType
		}
		if p.ContentEN != nil {
			b.ContentEN = s.sanitizer.Sanitize(*p.ContentEN)
		}
		if p.ContentHE != nil {
			b.ContentHE = s.sanitizer.Sanitize(*p.ContentHE)
		}
		if p.URL != nil {
			b.URL = strings.TrimSpace(*p.URL)
		}
		if p.Translation != nil {
			if !p.Translation.Valid() {
				return nil, fmt.Errorf("translation status %q: %w", *p.Translation, ErrInvalidInput)
			}
			b.Translation = *p.Translation
		}
	case data.Folder, nil:
	}
	n.UpdatedAt = s.now()

	if err := s.primary().UpdateNode(ctx, n); err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return nil, err
		}
		return nil, persistErr("update", err)
	}
	s.mirror("update", func(r NodeRepository) error { return r.UpsertNodes(ctx, []*data.Node{n}) })
	return n, nil
}

// Delete removes the node and its whole subtree. It returns the removed ids, the
// requested node first.
func (s *NodeService) Delete(ctx context.Context, id string) (ids []string, err error) {
	defer func() { s.metrics.Mutation("delete", err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	nodes, err := s.primary().GetAllNodes(ctx)
	if err != nil {
		return nil, persistErr("delete", err)
	}
	if _, ok := tree.Index(nodes)[id]; !ok {
		return nil, fmt.Errorf("node %s: %w", id, data.ErrNotFound)
	}
	ids = append([]string{id}, tree.Descendants(nodes, id)...)

	if err := s.primary().DeleteNodes(ctx, ids); err != nil {
		return nil, persistErr("delete", err)
	}
	s.mirror("delete", func(r NodeRepository) error { return r.DeleteNodes(ctx, ids) })
	s.log.With(map[string]interface{}{"id": id, "removed": len(ids)}).Info("Node deleted")
	return ids, nil
}

// Move reparents a node. A nil newParentID moves it to the root. The move is rejected
// with ErrInvalidMove, and nothing is written, when the destination is the node
// itself, one of its descendants, or a file.
func (s *NodeService) Move(ctx context.Context, id string, newParentID *string) (n *data.Node, err error) {
	defer func() { s.metrics.Mutation("move", err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	nodes, err := s.primary().GetAllNodes(ctx)
	if err != nil {
		return nil, persistErr("move", err)
	}
	idx := tree.Index(nodes)
	cur, ok := idx[id]
	if !ok {
		return nil, fmt.Errorf("node %s: %w", id, data.ErrNotFound)
	}

	if newParentID != nil {
		target := *newParentID
		if target == id {
			return nil, fmt.Errorf("node %s into itself: %w", id, ErrInvalidMove)
		}
		dest, ok := idx[target]
		if !ok {
			return nil, fmt.Errorf("destination %s: %w", target, data.ErrNotFound)
		}
		switch dest.Body.(type) {
		case *data.File:
			return nil, fmt.Errorf("destination %s is a file: %w", target, ErrInvalidMove)
		case data.Folder, nil:
		}
		if tree.IsDescendant(nodes, id, target) {
			return nil, fmt.Errorf("destination %s is inside %s: %w", target, id, ErrInvalidMove)
		}
	}

	n = cur.Clone()
	n.ParentID = nil
	if newParentID != nil {
		p := *newParentID
		n.ParentID = &p
	}
	n.UpdatedAt = s.now()

	if err := s.primary().UpdateNode(ctx, n); err != nil {
		return nil, persistErr("move", err)
	}
	s.mirror("move", func(r NodeRepository) error { return r.UpsertNodes(ctx, []*data.Node{n}) })
	return n, nil
}

// SyncToRemote pushes the local snapshot into the remote backend, overwriting rows
// with the same id. It returns the number of nodes written.
func (s *NodeService) SyncToRemote(ctx context.Context) (count int, err error) {
	defer func() { s.metrics.Mutation("sync", err) }()

	if s.remote == nil {
		return 0, ErrNoRemote
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nodes, err := s.local.GetAllNodes(ctx)
	if err != nil {
		return 0, persistErr("sync", err)
	}
	if len(nodes) == 0 {
		return 0, fmt.Errorf("local snapshot is empty: %w", ErrInvalidInput)
	}
	if err := s.remote.UpsertNodes(ctx, nodes); err != nil {
		return 0, persistErr("sync", err)
	}
	s.log.With(map[string]interface{}{"nodes": len(nodes)}).Info("Local snapshot synced to remote")
	return len(nodes), nil
}
