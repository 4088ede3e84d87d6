package contextutil_test

import (
	"context"
	"testing"

	"go-leave/internal/domain"
	"go-leave/internal/shared/contextutil"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRequestID(t *testing.T) {
	ctx := contextutil.WithRequestID(context.Background(), "rid-1")
	assert.Equal(t, "rid-1", contextutil.GetRequestID(ctx))
	assert.Empty(t, contextutil.GetRequestID(context.Background()))
}

func TestIdentity(t *testing.T) {
	_, ok := contextutil.GetIdentity(context.Background())
	assert.False(t, ok)

	want := domain.Identity{ID: "u-1", Name: "Ana", Email: "ana@example.com", Role: domain.RoleEmployee}
	got, ok := contextutil.GetIdentity(contextutil.WithIdentity(context.Background(), want))
	assert.True(t, ok)
	assert.Equal(t, want, got)
}

func TestGetLogger(t *testing.T) {
	fallback := zap.NewExample()
	assert.Same(t, fallback, contextutil.GetLogger(context.Background(), fallback))
	assert.NotNil(t, contextutil.GetLogger(context.Background(), nil))

	scoped := zap.NewExample()
	ctx := contextutil.WithLogger(context.Background(), scoped)
	assert.Same(t, scoped, contextutil.GetLogger(ctx, fallback))
}
