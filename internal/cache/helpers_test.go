package cache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetETag(t *testing.T) {
	etag := GetETag(map[string]int{"a": 1})

	assert.True(t, strings.HasPrefix(etag, `"`))
	assert.True(t, strings.HasSuffix(etag, `"`))
	assert.Equal(t, etag, GetETag(map[string]int{"a": 1}))
	assert.NotEqual(t, etag, GetETag(map[string]int{"a": 2}))
}

func TestSubscriptionKey(t *testing.T) {
	assert.Equal(t, "subscription:active:user-1:3", subscriptionKey("user-1", 3))
	assert.Equal(t, "subscription:gen:user-1", generationKey("user-1"))
}
