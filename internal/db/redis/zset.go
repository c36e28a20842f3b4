package redis

import (
	"context"
	"strconv"

	"github.com/kailas-cloud/vecmigrate/internal/db"
)

// ZAddMulti adds members with score 0 in one ZADD.
func (s *Store) ZAddMulti(ctx context.Context, key string, members []string) error {
	if len(members) == 0 {
		return nil
	}
	cmd := s.b().Zadd().Key(key).ScoreMember()
	for _, m := range members {
		cmd = cmd.ScoreMember(0, m)
	}
	if err := s.do(ctx, cmd.Build()).Error(); err != nil {
		return &db.Error{Op: db.OpZAdd, Err: err}
	}
	return nil
}

// ZRangeByLexAfter lists members in lexicographic order strictly after the given member.
func (s *Store) ZRangeByLexAfter(ctx context.Context, key, after string, offset, limit int) ([]string, error) {
	minBound := "-"
	if after != "" {
		minBound = "(" + after
	}
	cmd := s.b().Arbitrary("ZRANGEBYLEX").Keys(key).
		Args(minBound, "+", "LIMIT", strconv.Itoa(offset), strconv.Itoa(limit)).
		Build()
	members, err := s.do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, &db.Error{Op: db.OpZRangeByLex, Err: err}
	}
	return members, nil
}

// ZCard returns the number of members in a sorted set; a missing key counts as zero.
func (s *Store) ZCard(ctx context.Context, key string) (int64, error) {
	cmd := s.b().Zcard().Key(key).Build()
	n, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpZCard, Err: err}
	}
	return n, nil
}
