package storage

import (
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/require"
)

func TestSQLStorePlaceholdersFollowDialect(t *testing.T) {
	cases := []struct {
		dialect dialect
		want    string
	}{
		{dialect: dialectPostgres, want: "SELECT id FROM review_jobs WHERE id = $1 AND version = $2"},
		{dialect: dialectSQLite, want: "SELECT id FROM review_jobs WHERE id = ? AND version = ?"},
	}
	for _, tc := range cases {
		t.Run(string(tc.dialect), func(t *testing.T) {
			s := newSQLStore(nil, tc.dialect)
			query, args, err := s.sb.Select("id").From("review_jobs").Where(sq.Eq{"id": "job-1"}).Where(sq.Eq{"version": 2}).ToSql()
			require.NoError(t, err)
			require.Equal(t, tc.want, query)
			require.Equal(t, []any{"job-1", 2}, args)
		})
	}
}
