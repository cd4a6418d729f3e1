package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neoShop/config"
	"neoShop/storage"
)

func TestBuildHandler(t *testing.T) {
	cfg := &config.Config{TokenSecret: "0123456789abcdef0123456789abcdef", AdminEmailPrefix: "admin1"}

	ha, err := buildHandler(storage.NewMemoryStorage(), cfg)
	require.NoError(t, err)
	assert.NotNil(t, ha)

	_, err = buildHandler(nil, cfg)
	assert.Error(t, err)

	_, err = buildHandler(storage.NewMemoryStorage(), &config.Config{})
	assert.Error(t, err)
}
