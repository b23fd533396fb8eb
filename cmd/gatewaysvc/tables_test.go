package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gwconfig "github.com/avvvet/timeline-services/internal/gatewaysvc/config"
)

func TestOpenTablesMemory(t *testing.T) {
	c := gwconfig.Config{CardTable: "cards", MediaTable: "medias", Backend: gwconfig.BackendMemory}

	cards, media, err := openTables(c)
	require.NoError(t, err)
	assert.Equal(t, "cards", cards.Name())
	assert.Equal(t, "uuid", cards.Schema().PartitionKey)
	assert.Equal(t, "medias", media.Name())
	assert.Equal(t, "name", media.Schema().SortKey)
}

func TestOpenTablesUnknownBackend(t *testing.T) {
	_, _, err := openTables(gwconfig.Config{Backend: "sqlite"})
	assert.ErrorContains(t, err, "sqlite")
}
