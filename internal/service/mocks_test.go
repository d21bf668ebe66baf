//go:build unit

package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go-archive-app/internal/data"
	"go-archive-app/internal/metrics"
)

// memRepository is an in-memory NodeRepository. When err is set every call fails
// with it; failOn limits the failure to the named methods.
type memRepository struct {
	mu     sync.Mutex
	nodes  map[string]*data.Node
	err    error
	failOn map[string]bool
	calls  map[string]int
}

var _ NodeRepository = (*memRepository)(nil)

func newMemRepository(nodes ...*data.Node) *memRepository {
	r := &memRepository{nodes: map[string]*data.Node{}, calls: map[string]int{}}
	for _, n := range nodes {
		r.nodes[n.ID] = n.Clone()
	}
	return r
}

func (r *memRepository) fail(method string) error {
	r.calls[method]++
	if r.err == nil {
		return nil
	}
	if len(r.failOn) == 0 || r.failOn[method] {
		return r.err
	}
	return nil
}

func (r *memRepository) GetAllNodes(ctx context.Context) ([]*data.Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("GetAllNodes"); err != nil {
		return nil, err
	}
	out := make([]*data.Node, 0, len(r.nodes))
	for _, n := range r.nodes {
		out = append(out, n.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *memRepository) GetNodeByID(ctx context.Context, id string) (*data.Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("GetNodeByID"); err != nil {
		return nil, err
	}
	n, ok := r.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node %s: %w", id, data.ErrNotFound)
	}
	return n.Clone(), nil
}

func (r *memRepository) CreateNode(ctx context.Context, n *data.Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("CreateNode"); err != nil {
		return err
	}
	if _, ok := r.nodes[n.ID]; ok {
		return fmt.Errorf("duplicate id %s", n.ID)
	}
	r.nodes[n.ID] = n.Clone()
	return nil
}

func (r *memRepository) UpdateNode(ctx context.Context, n *data.Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("UpdateNode"); err != nil {
		return err
	}
	if _, ok := r.nodes[n.ID]; !ok {
		return fmt.Errorf("node %s: %w", n.ID, data.ErrNotFound)
	}
	r.nodes[n.ID] = n.Clone()
	return nil
}

func (r *memRepository) DeleteNodes(ctx context.Context, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("DeleteNodes"); err != nil {
		return err
	}
	for _, id := range ids {
		delete(r.nodes, id)
	}
	return nil
}

func (r *memRepository) ReplaceAll(ctx context.Context, nodes []*data.Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("ReplaceAll"); err != nil {
		return err
	}
	r.nodes = map[string]*data.Node{}
	for _, n := range nodes {
		r.nodes[n.ID] = n.Clone()
	}
	return nil
}

func (r *memRepository) UpsertNodes(ctx context.Context, nodes []*data.Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("UpsertNodes"); err != nil {
		return err
	}
	for _, n := range nodes {
		r.nodes[n.ID] = n.Clone()
	}
	return nil
}

func (r *memRepository) has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.nodes[id]
	return ok
}

func (r *memRepository) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.nodes)
}

// recorder counts what the services report.
type recorder struct {
	mu           sync.Mutex
	mutations    map[string]int
	fallbacks    int
	translations []string
}

var _ metrics.Recorder = (*recorder)(nil)

func newRecorder() *recorder { return &recorder{mutations: map[string]int{}} }

func (r *recorder) Mutation(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.mutations[op+":"+result]++
}

func (r *recorder) Fallback() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallbacks++
}

func (r *recorder) Translation(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.translations = append(r.translations, result)
}
