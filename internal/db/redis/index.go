package redis

import (
	"context"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/vecmigrate/internal/db"
)

// ReplaceIndex pipelines FT.DROPINDEX and FT.CREATE. A missing index is not an error;
// FT.DROPINDEX without DD leaves the documents in place.
func (s *Store) ReplaceIndex(ctx context.Context, def *db.IndexDefinition) error {
	args, err := createArgs(def)
	if err != nil {
		return err
	}

	res := s.multi(ctx, []rueidis.Completed{
		s.b().Arbitrary("FT.DROPINDEX").Args(def.Name).Build(),
		s.b().Arbitrary("FT.CREATE").Args(args...).Build(),
	})
	if err := res[0].Error(); err != nil && !isUnknownIndex(err) {
		return &db.Error{Op: db.OpDropIndex, Err: err}
	}
	if err := res[1].Error(); err != nil {
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return nil
}

func isUnknownIndex(err error) bool {
	return isRedisErr(err, "unknown index name") || isRedisErr(err, "no such index")
}

// createArgs renders FT.CREATE arguments: every attribute is read from "$.<name>" and
// queried as <name>.
func createArgs(def *db.IndexDefinition) ([]string, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	args := []string{def.Name, "ON", "JSON"}
	if len(def.Prefixes) > 0 {
		args = append(args, "PREFIX", strconv.Itoa(len(def.Prefixes)))
		args = append(args, def.Prefixes...)
	}
	args = append(args, "SCHEMA")

	for i := range def.Fields {
		f := &def.Fields[i]
		args = append(args, f.Path(), "AS", f.Name)
		switch f.Type {
		case db.IndexFieldNumeric:
			args = append(args, "NUMERIC")
		case db.IndexFieldTag:
			args = append(args, "TAG", "CASESENSITIVE")
		case db.IndexFieldText:
			args = append(args, "TEXT")
		case db.IndexFieldVector:
			args = append(args, "VECTOR", "HNSW", "6",
				"TYPE", "FLOAT32",
				"DIM", strconv.Itoa(f.Dim),
				"DISTANCE_METRIC", "COSINE",
			)
		}
	}
	return args, nil
}
