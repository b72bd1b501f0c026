package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/israelwong/promediamx-sub009/pkg/capability"
	"github.com/israelwong/promediamx-sub009/pkg/config"
	"github.com/israelwong/promediamx-sub009/pkg/store"
)

func TestOpenSource_SQLite(t *testing.T) {
	c := &config.AppConfig{Store: config.StoreConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "caps.db")}}

	source, closeSource, err := openSource(c)
	require.NoError(t, err)
	defer closeSource()

	st, ok := source.(*store.Store)
	require.True(t, ok)

	demo, err := store.DemoCatalog()
	require.NoError(t, err)
	require.NoError(t, st.Import(context.Background(), demo))

	caps, err := capability.NewResolver(source).Resolve(context.Background(), demo.AssistantID)
	require.NoError(t, err)
	assert.Len(t, caps, 3)
}

func TestWrappers(t *testing.T) {
	c := &config.AppConfig{
		Server: config.ServerConfig{RateLimit: 2, Burst: 1},
		App:    config.AppSpecific{DebugLogsDir: filepath.Join(t.TempDir(), "debug")},
	}
	ws, err := wrappers(c, prometheus.NewRegistry())
	require.NoError(t, err)
	assert.Len(t, ws, 3)

	ws, err = wrappers(&config.AppConfig{}, prometheus.NewRegistry())
	require.NoError(t, err)
	assert.Len(t, ws, 1)
}

func TestSeedCatalogs(t *testing.T) {
	t.Cleanup(func() { seedFile, seedFromS3 = "", false })
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	catalogs, err := seedCatalogs(cmd)
	require.NoError(t, err)
	require.Len(t, catalogs, 1)
	assert.Equal(t, "demo-clinica", catalogs[0].AssistantID)

	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"assistantId":"otro","subscriptions":[]}`), 0o644))
	seedFile = path
	catalogs, err = seedCatalogs(cmd)
	require.NoError(t, err)
	assert.Equal(t, "otro", catalogs[0].AssistantID)

	seedFromS3 = true
	_, err = seedCatalogs(cmd)
	assert.Error(t, err)
}
