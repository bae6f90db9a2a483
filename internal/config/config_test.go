package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	require.Equal(t, uint64(2000), cfg.BatchSize)
	require.Equal(t, 500*time.Millisecond, cfg.RetryBackoff)
	require.True(t, cfg.PinBlock)
	require.True(t, cfg.CheckpointEnabled)
	require.Equal(t, uint64(0), cfg.PairSyncMinBlock)
	require.Equal(t, "lending", cfg.StateName)
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "indexer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rpc: http://file\nfactory: \"0xabc\"\nbatch-size: 50\npair-sync-min-block: 12000000\n"), 0o644))
	t.Setenv("INDEXER_BATCH_SIZE", "75")
	t.Setenv("INDEXER_ANCHOR_TOKEN", "0xdef")

	flags := pflag.NewFlagSet("sync", pflag.ContinueOnError)
	flags.String("rpc", "", "")
	flags.Bool("pin-block", true, "")
	require.NoError(t, flags.Parse([]string{"--rpc", "http://flag", "--pin-block=false"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	require.Equal(t, "http://flag", cfg.RPCURL)
	require.Equal(t, "0xabc", cfg.Factory)
	require.Equal(t, "0xdef", cfg.AnchorToken)
	require.Equal(t, uint64(75), cfg.BatchSize)
	require.Equal(t, uint64(12000000), cfg.PairSyncMinBlock)
	require.False(t, cfg.PinBlock)
}

func TestValidate(t *testing.T) {
	cfg := Config{RPCURL: "http://node", Factory: "0x1", ReferenceToken: "0x2", AnchorToken: "0x3", BatchSize: 10}
	require.NoError(t, cfg.Validate())

	missing := cfg
	missing.RPCURL = ""
	require.EqualError(t, missing.Validate(), "rpc url is required")

	backwards := cfg
	backwards.FromBlock, backwards.ToBlock = 10, 5
	require.EqualError(t, backwards.Validate(), "to block must be >= from block")

	noPath := cfg
	noPath.CheckpointEnabled = true
	require.EqualError(t, noPath.Validate(), "checkpoint path is required when checkpointing without a database")

	withDB := noPath
	withDB.PGDSN = "postgres://localhost/lending"
	require.NoError(t, withDB.Validate())
}
