package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/storydex/internal/db"
	"github.com/kailas-cloud/storydex/internal/domain/search/filter"
)

const (
	defaultVectorField = "vector"
	scoreField         = "__vector_score"
)

// SearchKNN runs a KNN vector similarity search via FT.SEARCH.
// Cosine distance is converted to similarity max(0, 1-d); entries keep server order.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}
	field := q.VectorField
	if field == "" {
		field = defaultVectorField
	}

	base := "*"
	if f := buildFilter(q.Prefilter); f != "" {
		base = "(" + f + ")"
	}
	queryStr := fmt.Sprintf("%s=>[KNN %d @%s $BLOB AS %s]", base, q.K, field, scoreField)

	args := []string{q.IndexName, queryStr}
	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)+1), scoreField)
		args = append(args, q.ReturnFields...)
	}
	args = append(args,
		"SORTBY", scoreField, "ASC",
		"LIMIT", "0", strconv.Itoa(q.K),
		"PARAMS", "2", "BLOB", vectorToBytes(q.Vector),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isRedisErr(err, "unknown index name") || isRedisErr(err, "no such index") {
			return nil, &db.Error{Op: db.OpSearch, Err: db.ErrIndexNotFound}
		}
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	return parseKNNResult(raw)
}

func parseKNNResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, len(raw)/2)
	// [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		entry := db.SearchEntry{Key: key, Fields: parseFieldPairs(fields)}
		if d, err := strconv.ParseFloat(entry.Fields[scoreField], 64); err == nil {
			entry.Score = max(0, 1.0-d)
		}
		delete(entry.Fields, scoreField)
		entries = append(entries, entry)
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// buildFilter renders tag conditions as an FT.SEARCH pre-filter.
func buildFilter(expr filter.Expression) string {
	if expr.IsEmpty() {
		return ""
	}
	parts := make([]string, 0, len(expr.Must())+len(expr.MustNot()))
	for _, c := range expr.Must() {
		parts = append(parts, buildTagFilter(c))
	}
	for _, c := range expr.MustNot() {
		parts = append(parts, "-"+buildTagFilter(c))
	}
	return strings.Join(parts, " ")
}

// TagField maps a filter key to the hash field storing it.
func TagField(key string) string {
	if key == filter.KeyTag {
		return "tags"
	}
	return key
}

func buildTagFilter(c filter.Condition) string {
	return fmt.Sprintf("@%s:{%s}", TagField(c.Key()), EscapeTag(strings.ToLower(c.Match())))
}

var tagEscaper = strings.NewReplacer(
	`\`, `\\`,
	",", `\,`, ".", `\.`, "<", `\<`, ">", `\>`,
	"{", `\{`, "}", `\}`, "[", `\[`, "]", `\]`,
	`"`, `\"`, "'", `\'`, ":", `\:`, ";", `\;`,
	"!", `\!`, "@", `\@`, "#", `\#`, "$", `\$`,
	"%", `\%`, "^", `\^`, "&", `\&`, "*", `\*`,
	"(", `\(`, ")", `\)`, "-", `\-`, "+", `\+`,
	"=", `\=`, "~", `\~`, "|", `\|`, "/", `\/`,
	" ", `\ `,
)

// EscapeTag escapes a tag value for use inside @field:{...}.
func EscapeTag(v string) string {
	return tagEscaper.Replace(v)
}

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return rueidis.BinaryString(buf)
}
