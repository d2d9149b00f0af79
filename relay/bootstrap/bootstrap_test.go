package bootstrap

import (
	"context"
	"testing"

	"rebuild-relay/relay/config"
	"rebuild-relay/relay/domain"
	"rebuild-relay/relay/infra"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_MemoryBackend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.DefaultConfig()
	cfg.Store.Backend = config.BackendMemory
	cfg.GitHub.ProjectRepos = map[string]string{"p-1": "acme/site"}

	app, err := Build(ctx, cfg, nil)
	require.NoError(t, err)
	defer app.Close(ctx)

	assert.IsType(t, &infra.MemoryStore{}, app.Store)
	assert.Nil(t, app.Stats)
	require.NotNil(t, app.Admission())
	assert.Equal(t, "acme/site", app.Deploy.Projects["p-1"])

	res, err := app.Debouncer.RecordChange(ctx, domain.ChangeRecord{Collection: "posts", DocID: "1"})
	require.NoError(t, err)
	assert.True(t, res.Armed)

	// marcador recém-armado ainda não venceu
	chk, err := app.Checker.CheckAndDispatch(ctx)
	require.NoError(t, err)
	assert.False(t, chk.Dispatched)
}

func TestBuild_RedisBackendWithStats(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	cfg := config.DefaultConfig()
	cfg.Store.RedisAddr = mr.Addr()
	cfg.Stats.Enabled = true

	app, err := Build(ctx, cfg, nil)
	require.NoError(t, err)
	defer app.Close(ctx)

	assert.IsType(t, &infra.RedisStore{}, app.Store)
	assert.NotNil(t, app.Stats)

	_, err = app.Debouncer.RecordChange(ctx, domain.ChangeRecord{Collection: "posts"})
	require.NoError(t, err)
	assert.True(t, mr.Exists("relay:debounce:pending_batch"))
	assert.True(t, mr.Exists("relay:debounce:scheduled_rebuild"))
}

func TestBuild_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := config.DefaultConfig()
	cfg.Store.RedisAddr = addr

	_, err := Build(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestAdmission_DisabledWhenNoLimits(t *testing.T) {
	app := &App{}
	assert.Nil(t, app.Admission())
}
