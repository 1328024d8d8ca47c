package docstore

import (
	"bytes"
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// MemoryCollection is an in-process [Collection].
//
// Documents are stored BSON-encoded so callers never share memory with the store,
// matching what a network round trip would give them.
type MemoryCollection struct {
	name string
	mu   sync.RWMutex
	docs []bson.M // insertion order
}

// NewMemoryCollection creates an empty [MemoryCollection].
func NewMemoryCollection(name string) *MemoryCollection {
	return &MemoryCollection{name: name}
}

func (c *MemoryCollection) Name() string { return c.name }

func (c *MemoryCollection) Insert(ctx context.Context, doc any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m, err := normalize(doc)
	if err != nil {
		return err
	}
	id, ok := m["_id"].(string)
	if !ok || id == "" {
		return fmt.Errorf("document has no string _id")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.indexOf(bson.M{"_id": id}) >= 0 {
		return fmt.Errorf("duplicate _id %s", id)
	}
	c.docs = append(c.docs, m)
	return nil
}

func (c *MemoryCollection) Patch(ctx context.Context, filter, fields bson.M) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	set, err := normalize(fields)
	if err != nil {
		return err
	}
	if _, ok := set["_id"]; ok {
		return fmt.Errorf("cannot patch _id")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(filter)
	if i < 0 {
		return ErrNoDocument
	}
	for k, v := range set {
		c.docs[i][k] = v
	}
	return nil
}

func (c *MemoryCollection) Remove(ctx context.Context, filter bson.M) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(filter)
	if i < 0 {
		return ErrNoDocument
	}
	c.docs = append(c.docs[:i], c.docs[i+1:]...)
	return nil
}

func (c *MemoryCollection) FindOne(ctx context.Context, filter bson.M, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	i := c.indexOf(filter)
	if i < 0 {
		return ErrNoDocument
	}
	return decode(c.docs[i], out)
}

func (c *MemoryCollection) Find(ctx context.Context, filter bson.M, order bson.D, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("out must be a pointer to a slice, got %T", out)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var matched []bson.M
	for _, d := range c.docs {
		if matches(d, filter) {
			matched = append(matched, d)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		for _, e := range order {
			cmp := compareValues(matched[i][e.Key], matched[j][e.Key])
			if cmp == 0 {
				continue
			}
			if dir, _ := e.Value.(int); dir < 0 {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})

	slice := reflect.MakeSlice(rv.Elem().Type(), 0, len(matched))
	elemType := rv.Elem().Type().Elem()
	for _, d := range matched {
		ptr := reflect.New(elemType)
		if err := decode(d, ptr.Interface()); err != nil {
			return err
		}
		slice = reflect.Append(slice, ptr.Elem())
	}
	rv.Elem().Set(slice)
	return nil
}

func (c *MemoryCollection) Upsert(ctx context.Context, id string, setOnInsert, set bson.M) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	onInsert, err := normalize(setOnInsert)
	if err != nil {
		return err
	}
	fields, err := normalize(set)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(bson.M{"_id": id})
	if i < 0 {
		doc := bson.M{"_id": id}
		for k, v := range onInsert {
			doc[k] = v
		}
		c.docs = append(c.docs, doc)
		i = len(c.docs) - 1
	}
	for k, v := range fields {
		c.docs[i][k] = v
	}
	return nil
}

// Len reports the number of stored documents.
func (c *MemoryCollection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

func (c *MemoryCollection) indexOf(filter bson.M) int {
	for i, d := range c.docs {
		if matches(d, filter) {
			return i
		}
	}
	return -1
}

func matches(doc, filter bson.M) bool {
	for k, want := range filter {
		got, ok := doc[k]
		if !ok || !equalValues(got, want) {
			return false
		}
	}
	return true
}

func normalize(v any) (bson.M, error) {
	if v == nil {
		return bson.M{}, nil
	}
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return m, nil
}

func decode(doc bson.M, out any) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	if err := bson.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	return nil
}

func encodeValue(v any) []byte {
	raw, err := bson.Marshal(bson.D{{Key: "v", Value: v}})
	if err != nil {
		return nil
	}
	return raw
}

func equalValues(a, b any) bool {
	ra, rb := encodeValue(a), encodeValue(b)
	return ra != nil && bytes.Equal(ra, rb)
}

// compareValues orders the scalar types the application sorts on.
func compareValues(a, b any) int {
	switch av := a.(type) {
	case bson.DateTime:
		if bv, ok := b.(bson.DateTime); ok {
			return cmpOrdered(int64(av), int64(bv))
		}
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case int32:
		if bv, ok := b.(int32); ok {
			return cmpOrdered(av, bv)
		}
	case int64:
		if bv, ok := b.(int64); ok {
			return cmpOrdered(av, bv)
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return cmpOrdered(av, bv)
		}
	}
	return 0
}

func cmpOrdered[T int32 | int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
