package db_test

import (
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/sksmith/video-shoppe/config"
	"github.com/sksmith/video-shoppe/core"
	"github.com/sksmith/video-shoppe/db"
	"github.com/sksmith/video-shoppe/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	testutil.ConfigLogging()
	os.Exit(m.Run())
}

func dbConfig() config.DbConfig {
	cfg := config.LoadDefaults().Db
	cfg.Host.Value = "db.local"
	cfg.Port.Value = "5433"
	cfg.Name.Value = "shoppe"
	cfg.User.Value = "clerk"
	cfg.Pass.Value = "p@ss word/%"
	return cfg
}

func TestURL(t *testing.T) {
	u, err := url.Parse(db.URL(dbConfig()))
	require.NoError(t, err)

	pass, _ := u.User.Password()
	assert.Equal(t, "clerk", u.User.Username())
	assert.Equal(t, "p@ss word/%", pass)
	assert.Equal(t, "db.local:5433", u.Host)
	assert.Equal(t, "/shoppe", u.Path)
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
}

func TestPoolConfig(t *testing.T) {
	tests := []struct {
		name    string
		minSize int
		maxSize int

		wantMin int32
		wantMax int32
	}{
		{name: "sizes from config", minSize: 2, maxSize: 8, wantMin: 2, wantMax: 8},
		{name: "min never exceeds max", minSize: 12, maxSize: 8, wantMin: 8, wantMax: 8},
		{name: "unset max falls back", minSize: 0, maxSize: 0, wantMin: 0, wantMax: 4},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := dbConfig()
			cfg.Pool.MinSize.Value = test.minSize
			cfg.Pool.MaxSize.Value = test.maxSize

			pc, err := db.PoolConfig(cfg)
			require.NoError(t, err)

			assert.Equal(t, test.wantMin, pc.MinConns)
			assert.Equal(t, test.wantMax, pc.MaxConns)
			assert.Equal(t, "db.local", pc.ConnConfig.Host)
			assert.Equal(t, uint16(5433), pc.ConnConfig.Port)
			assert.Equal(t, "p@ss word/%", pc.ConnConfig.Password)
			assert.Equal(t, "UTC", pc.ConnConfig.RuntimeParams["timezone"])
			assert.Equal(t, time.Hour, pc.MaxConnLifetime)
			assert.NotNil(t, pc.ConnConfig.Logger)
		})
	}
}

func TestContainsPattern(t *testing.T) {
	assert.Equal(t, "%heat%", db.ContainsPattern("heat"))
	assert.Equal(t, `%100\% pure\_gold%`, db.ContainsPattern("100% pure_gold"))
	assert.Equal(t, `%c:\\films%`, db.ContainsPattern(`c:\films`))
}

func TestOptions(t *testing.T) {
	conn := db.NewMockConn()
	tx := db.NewMockTransaction()

	got, forUpdate := db.GetQueryOptions(&conn)
	assert.Same(t, &conn, got)
	assert.Empty(t, forUpdate)

	got, forUpdate = db.GetQueryOptions(&conn, core.QueryOptions{Tx: tx, ForUpdate: true})
	assert.Same(t, tx, got)
	assert.Equal(t, "FOR UPDATE", forUpdate)

	assert.Same(t, &conn, db.GetUpdateOptions(&conn, core.UpdateOptions{}))
	assert.Same(t, tx, db.GetUpdateOptions(&conn, core.UpdateOptions{Tx: tx}))
}
