package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// nodeRecord is the row shape of the nodes table. Timestamps are unix milliseconds so
// the same struct scans identically on MySQL and SQLite.
type nodeRecord struct {
	ID          string  `db:"id"`
	Name        string  `db:"name"`
	Kind        string  `db:"kind"`
	ParentID    *string `db:"parent_id"`
	CreatedAt   int64   `db:"created_at"`
	UpdatedAt   int64   `db:"updated_at"`
	ContentType string  `db:"content_type"`
	ContentEN   string  `db:"content_en"`
	ContentHE   string  `db:"content_he"`
	URL         string  `db:"url"`
	Translation string  `db:"translation"`
}

const nodeColumns = `id, name, kind, parent_id, created_at, updated_at, content_type, content_en, content_he, url, translation`

const insertNodeQuery = `INSERT INTO nodes (` + nodeColumns + `) VALUES (:id, :name, :kind, :parent_id, :created_at, :updated_at, :content_type, :content_en, :content_he, :url, :translation)`

func toRecord(n *Node) nodeRecord {
	rec := nodeRecord{
		ID:        n.ID,
		Name:      n.Name,
		Kind:      string(n.Kind()),
		ParentID:  n.ParentID,
		CreatedAt: n.CreatedAt.UnixMilli(),
		UpdatedAt: n.UpdatedAt.UnixMilli(),
	}
	if n.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}
	switch b := n.Body.(type) {
	case Folder, nil:
	case *File:
		rec.ContentType = string(b.ContentType)
		rec.ContentEN = b.ContentEN
		rec.ContentHE = b.ContentHE
		rec.URL = b.URL
		rec.Translation = string(b.Translation)
	}
	return rec
}

func (rec nodeRecord) toNode() (*Node, error) {
	body, err := NewBody(Kind(rec.Kind), ContentType(rec.ContentType), rec.ContentEN, rec.ContentHE, rec.URL, TranslationStatus(rec.Translation))
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", rec.ID, err)
	}
	return &Node{
		ID:        rec.ID,
		Name:      rec.Name,
		ParentID:  rec.ParentID,
		CreatedAt: time.UnixMilli(rec.CreatedAt),
		UpdatedAt: time.UnixMilli(rec.UpdatedAt),
		Body:      body,
	}, nil
}

// SQLNodeRepository stores nodes in a SQL table. The same implementation backs the
// local SQLite snapshot and the remote MySQL database.
type SQLNodeRepository struct {
	db *sqlx.DB
}

// NewSQLNodeRepository creates a new SQLNodeRepository.
func NewSQLNodeRepository(db *sqlx.DB) *SQLNodeRepository {
	return &SQLNodeRepository{db: db}
}

// GetAllNodes returns every node ordered by creation time.
func (r *SQLNodeRepository) GetAllNodes(ctx context.Context) ([]*Node, error) {
	var recs []nodeRecord
	query := `SELECT ` + nodeColumns + ` FROM nodes ORDER BY created_at ASC`
	if err := r.db.SelectContext(ctx, &recs, query); err != nil {
		return nil, fmt.Errorf("failed to get all nodes: %w", err)
	}
	nodes := make([]*Node, 0, len(recs))
	for _, rec := range recs {
		n, err := rec.toNode()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// GetNodeByID retrieves a single node. It returns an error wrapping ErrNotFound
// when no row matches.
func (r *SQLNodeRepository) GetNodeByID(ctx context.Context, id string) (*Node, error) {
	var rec nodeRecord
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE id = ?`
	if err := r.db.GetContext(ctx, &rec, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("node %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get node by id: %w", err)
	}
	return rec.toNode()
}

// CreateNode inserts a node whose id and timestamps were assigned by the caller.
func (r *SQLNodeRepository) CreateNode(ctx context.Context, n *Node) error {
	if _, err := r.db.NamedExecContext(ctx, insertNodeQuery, toRecord(n)); err != nil {
		return fmt.Errorf("failed to execute create node query: %w", err)
	}
	return nil
}

// UpdateNode overwrites every mutable column of an existing node.
func (r *SQLNodeRepository) UpdateNode(ctx context.Context, n *Node) error {
	query := `UPDATE nodes SET name = :name, kind = :kind, parent_id = :parent_id, updated_at = :updated_at,
		content_type = :content_type, content_en = :content_en, content_he = :content_he, url = :url,
		translation = :translation WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, toRecord(n))
	if err != nil {
		return fmt.Errorf("failed to update node: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// MySQL reports zero for an update that changed nothing, so confirm the row exists.
		if _, err := r.GetNodeByID(ctx, n.ID); err != nil {
			return err
		}
	}
	return nil
}

// DeleteNodes removes all given ids in one transaction.
func (r *SQLNodeRepository) DeleteNodes(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM nodes WHERE id IN (?)`, ids)
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to delete nodes: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

// ReplaceAll swaps the whole table content for nodes. Used to refresh the local
// snapshot from the remote backend.
func (r *SQLNodeRepository) ReplaceAll(ctx context.Context, nodes []*Node) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin replace transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM nodes`); err != nil {
		return fmt.Errorf("failed to clear nodes: %w", err)
	}
	for _, n := range ParentsFirst(nodes) {
		if _, err := tx.NamedExecContext(ctx, insertNodeQuery, toRecord(n)); err != nil {
			return fmt.Errorf("failed to insert node %s: %w", n.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit replace: %w", err)
	}
	return nil
}

// UpsertNodes inserts or overwrites nodes by id without touching other rows.
func (r *SQLNodeRepository) UpsertNodes(ctx context.Context, nodes []*Node) error {
	query := r.upsertQuery()
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin upsert transaction: %w", err)
	}
	defer tx.Rollback()

	for _, n := range ParentsFirst(nodes) {
		if _, err := tx.NamedExecContext(ctx, query, toRecord(n)); err != nil {
			return fmt.Errorf("failed to upsert node %s: %w", n.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}
	return nil
}

func (r *SQLNodeRepository) upsertQuery() string {
	if r.db.DriverName() == "mysql" {
		return insertNodeQuery + ` ON DUPLICATE KEY UPDATE name = VALUES(name), kind = VALUES(kind),
			parent_id = VALUES(parent_id), updated_at = VALUES(updated_at), content_type = VALUES(content_type),
			content_en = VALUES(content_en), content_he = VALUES(content_he), url = VALUES(url),
			translation = VALUES(translation)`
	}
	return insertNodeQuery + ` ON CONFLICT(id) DO UPDATE SET name = excluded.name, kind = excluded.kind,
		parent_id = excluded.parent_id, updated_at = excluded.updated_at, content_type = excluded.content_type,
		content_en = excluded.content_en, content_he = excluded.content_he, url = excluded.url,
		translation = excluded.translation`
}

// ParentsFirst orders nodes so every parent precedes its children, which keeps the
// parent_id foreign key satisfied during bulk inserts. Nodes whose parent is outside
// the set are treated as roots; nodes on a cycle are appended last.
func ParentsFirst(nodes []*Node) []*Node {
	present := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		present[n.ID] = true
	}
	placed := make(map[string]bool, len(nodes))
	out := make([]*Node, 0, len(nodes))
	for progress := true; progress; {
		progress = false
		for _, n := range nodes {
			if placed[n.ID] {
				continue
			}
			p := n.ParentKey()
			if p == "" || placed[p] || !present[p] {
				out = append(out, n)
				placed[n.ID] = true
				progress = true
			}
		}
	}
	for _, n := range nodes {
		if !placed[n.ID] {
			out = append(out, n)
		}
	}
	return out
}
