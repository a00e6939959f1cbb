package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithToken(t *testing.T) {
	ctx := WithToken(context.Background(), "abc")

	tok, ok := Token(ctx)
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)
}

func TestWithToken_EmptyIsNoop(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, WithToken(ctx, ""))

	_, ok := Token(ctx)
	assert.False(t, ok)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc.def", "abc.def"},
		{"bearer   xyz ", "xyz"},
		{"Basic dXNlcjpwYXNz", ""},
		{"Bearer", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, BearerToken(tt.header))
		})
	}
}
