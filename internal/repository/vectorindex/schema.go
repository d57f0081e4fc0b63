package vectorindex

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/storydex/internal/db"
	"github.com/kailas-cloud/storydex/internal/db/redis"
	"github.com/kailas-cloud/storydex/internal/domain/search/filter"
	"github.com/kailas-cloud/storydex/internal/domain/story"
)

const (
	fieldID    = "id"
	fieldTitle = "title"
	tagSep     = ","
)

// metadataFields are returned with every match.
var metadataFields = []string{
	fieldID, fieldTitle,
	story.FieldClient, story.FieldIndustry, story.FieldCategory,
	story.FieldSubCategory, story.FieldRole, story.FieldTheme,
	redis.TagField(filter.KeyTag),
}

// HNSW tunes the vector graph. Zero values keep server defaults.
type HNSW struct {
	M           int
	EFConstruct int
}

// Definition builds the FT schema for a namespace: one tag field per filter key,
// the story tags, a text title and an HNSW/COSINE vector.
func Definition(namespace string, dim int, hnsw HNSW) *db.IndexDefinition {
	def := &db.IndexDefinition{
		Name:     IndexName(namespace),
		Prefixes: []string{KeyPrefix(namespace)},
		Fields:   make([]db.IndexField, 0, len(story.FilterKeys)+3),
	}
	for _, key := range story.FilterKeys {
		def.Fields = append(def.Fields, db.IndexField{Name: redis.TagField(key), Type: db.IndexFieldTag})
	}
	def.Fields = append(def.Fields,
		db.IndexField{Name: redis.TagField(filter.KeyTag), Type: db.IndexFieldTag, TagSeparator: tagSep},
		db.IndexField{Name: fieldTitle, Type: db.IndexFieldText},
		db.IndexField{
			Name:              vectorField,
			Type:              db.IndexFieldVector,
			VectorAlgo:        db.VectorHNSW,
			VectorDim:         dim,
			VectorDistance:    db.DistanceCosine,
			VectorM:           hnsw.M,
			VectorEFConstruct: hnsw.EFConstruct,
		},
	)
	return def
}

// EnsureIndex creates the index unless it already exists.
func (ix *Index) EnsureIndex(ctx context.Context, def *db.IndexDefinition) (created bool, err error) {
	exists, err := ix.store.IndexExists(ctx, def.Name)
	if err != nil {
		return false, fmt.Errorf("check index %s: %w", def.Name, err)
	}
	if exists {
		return false, nil
	}
	if err := ix.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return false, nil
		}
		return false, fmt.Errorf("create index %s: %w", def.Name, err)
	}
	ix.logger.Info("Created vector index", zap.String("index", def.Name), zap.Int("fields", len(def.Fields)))
	return true, nil
}

// Upsert writes stories with their vectors as hashes under the namespace prefix.
// Tag values are lowercased so pre-filters match case-insensitively.
func (ix *Index) Upsert(ctx context.Context, namespace string, stories []*story.Story, vectors [][]float32) error {
	if len(stories) != len(vectors) {
		return fmt.Errorf("upsert: %d stories for %d vectors", len(stories), len(vectors))
	}
	if len(stories) == 0 {
		return nil
	}

	prefix := KeyPrefix(namespace)
	items := make([]db.HashSetItem, len(stories))
	for i, s := range stories {
		items[i] = db.HashSetItem{Key: prefix + s.ID, Fields: storyFields(s, vectors[i])}
	}
	if err := ix.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert %d stories: %w", len(items), err)
	}
	return nil
}

// Prune deletes story hashes in the namespace whose IDs are not in keep.
// It returns the removed story IDs.
func (ix *Index) Prune(ctx context.Context, namespace string, keep []string) ([]string, error) {
	prefix := KeyPrefix(namespace)
	keys, err := ix.store.Scan(ctx, prefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", prefix, err)
	}

	wanted := make(map[string]bool, len(keep))
	for _, id := range keep {
		wanted[id] = true
	}
	var stale, ids []string
	for _, key := range keys {
		id := strings.TrimPrefix(key, prefix)
		if !wanted[id] {
			stale = append(stale, key)
			ids = append(ids, id)
		}
	}
	if len(stale) == 0 {
		return nil, nil
	}
	if err := ix.store.Del(ctx, stale...); err != nil {
		return nil, fmt.Errorf("delete %d stale stories: %w", len(stale), err)
	}
	ix.logger.Info("Pruned stale stories", zap.String("namespace", orDefault(namespace)), zap.Int("count", len(stale)))
	return ids, nil
}

// Drop removes the namespace index and its story hashes.
func (ix *Index) Drop(ctx context.Context, namespace string) error {
	name := IndexName(namespace)
	if err := ix.store.DropIndex(ctx, name); err != nil {
		return fmt.Errorf("drop index %s: %w", name, err)
	}
	return nil
}

func storyFields(s *story.Story, vec []float32) map[string]string {
	fields := map[string]string{
		fieldID:     s.ID,
		fieldTitle:  s.Title,
		vectorField: vectorBytes(vec),
	}
	for _, key := range story.FilterKeys {
		if v, _ := s.Field(key); v != "" {
			fields[redis.TagField(key)] = strings.ToLower(v)
		}
	}
	if len(s.Tags) > 0 {
		tags := make([]string, len(s.Tags))
		for i, t := range s.Tags {
			tags[i] = strings.ToLower(t)
		}
		fields[redis.TagField(filter.KeyTag)] = strings.Join(tags, tagSep)
	}
	return fields
}

func vectorBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
