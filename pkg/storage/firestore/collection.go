package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
)

// maxBatch is Firestore's cap on writes per batch.
const maxBatch = 500

type ToFirestoreFunc[T any] func(*T) map[string]interface{}
type FromFirestoreFunc[T any] func(map[string]interface{}) *T

type Collection[T any] struct {
	Ref           *firestore.CollectionRef
	ToFirestore   ToFirestoreFunc[T]
	FromFirestore FromFirestoreFunc[T]
}

func (c *Collection[T]) Doc(id string) *DocumentRef[T] {
	return &DocumentRef[T]{
		Ref:           c.Ref.Doc(id),
		ToFirestore:   c.ToFirestore,
		FromFirestore: c.FromFirestore,
	}
}

func (c *Collection[T]) NewDoc() *DocumentRef[T] {
	return &DocumentRef[T]{
		Ref:           c.Ref.NewDoc(),
		ToFirestore:   c.ToFirestore,
		FromFirestore: c.FromFirestore,
	}
}

// List reads every document in the collection.
func (c *Collection[T]) List(ctx context.Context) ([]*T, error) {
	snaps, err := c.Ref.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c.Ref.Path, err)
	}
	out := make([]*T, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, c.FromFirestore(snap.Data()))
	}
	return out, nil
}

// SetAll writes docs keyed by ID in one batch. Firestore caps a batch at
// 500 writes so larger inputs are split.
func (c *Collection[T]) SetAll(ctx context.Context, client *firestore.Client, docs map[string]*T) error {
	batch := client.Batch()
	n := 0
	for id, doc := range docs {
		batch.Set(c.Ref.Doc(id), c.ToFirestore(doc))
		n++
		if n == maxBatch {
			if _, err := batch.Commit(ctx); err != nil {
				return err
			}
			batch = client.Batch()
			n = 0
		}
	}
	if n == 0 {
		return nil
	}
	_, err := batch.Commit(ctx)
	return err
}

// deleteCollection removes every document under ref, one batch at a time,
// and returns how many were deleted.
func deleteCollection(ctx context.Context, client *firestore.Client, ref *firestore.CollectionRef) (int, error) {
	var total int
	for {
		snaps, err := ref.Limit(maxBatch).Documents(ctx).GetAll()
		if err != nil {
			return total, fmt.Errorf("list %s: %w", ref.Path, err)
		}
		if len(snaps) == 0 {
			return total, nil
		}
		batch := client.Batch()
		for _, snap := range snaps {
			batch.Delete(snap.Ref)
		}
		if _, err := batch.Commit(ctx); err != nil {
			return total, fmt.Errorf("delete %s: %w", ref.Path, err)
		}
		total += len(snaps)
	}
}

type DocumentRef[T any] struct {
	Ref           *firestore.DocumentRef
	ToFirestore   ToFirestoreFunc[T]
	FromFirestore FromFirestoreFunc[T]
}

func (d *DocumentRef[T]) ID() string {
	return d.Ref.ID
}

func (d *DocumentRef[T]) Get(ctx context.Context) (*T, error) {
	snap, err := d.Ref.Get(ctx)
	if err != nil {
		return nil, err
	}
	return d.FromFirestore(snap.Data()), nil
}

func (d *DocumentRef[T]) Set(ctx context.Context, data *T) error {
	m := d.ToFirestore(data)
	_, err := d.Ref.Set(ctx, m, firestore.MergeAll)
	return err
}

// Replace overwrites the whole document. Derived views use it so stale
// fields from an older shape do not linger.
func (d *DocumentRef[T]) Replace(ctx context.Context, data *T) error {
	_, err := d.Ref.Set(ctx, d.ToFirestore(data))
	return err
}

func (d *DocumentRef[T]) Update(ctx context.Context, updates map[string]interface{}) error {
	// Partial merge; keys must match the stored field names.
	_, err := d.Ref.Set(ctx, updates, firestore.MergeAll)
	return err
}
