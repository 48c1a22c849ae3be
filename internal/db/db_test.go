package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"my-post", "my-post"},
		{"100%", `100\%`},
		{"snake_case", `snake\_case`},
		{`back\slash`, `back\\slash`},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, escapeLike(tt.input))
		})
	}
}

func TestIsSlugConflict(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "slug constraint", err: &pgconn.PgError{Code: "23505", ConstraintName: "posts_slug_key"}, want: true},
		{name: "wrapped", err: fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "posts_slug_key"}), want: true},
		{name: "other constraint", err: &pgconn.PgError{Code: "23505", ConstraintName: "posts_pkey"}, want: false},
		{name: "other code", err: &pgconn.PgError{Code: "23503"}, want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
		{name: "nil", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isSlugConflict(tt.err))
		})
	}
}

func TestPost_SlugValue(t *testing.T) {
	var nilPost *Post
	assert.Equal(t, "", nilPost.SlugValue())
	assert.Equal(t, "", (&Post{}).SlugValue())

	s := "hello"
	assert.Equal(t, "hello", (&Post{Slug: &s}).SlugValue())
}
