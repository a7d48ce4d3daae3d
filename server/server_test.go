package server

import (
	"expvar"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/INLOpen/nexusvfs/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServer_Routes(t *testing.T) {
	probe := new(expvar.Int)
	probe.Set(42)
	require.True(t, Publish("server_test_probe", probe))
	assert.False(t, Publish("server_test_probe", probe), "duplicate names are refused")

	s := NewMetricsServer(&config.DebugConfig{PProfEnabled: true, MetricsEnabled: true, MonitorUIEnabled: true}, nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"server_test_probe": 42`)

	resp, err = http.Get(ts.URL + "/debug/pprof/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsServer_DisabledRoutes(t *testing.T) {
	s := NewMetricsServer(&config.DebugConfig{}, nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsServer_StartStop(t *testing.T) {
	s := NewMetricsServer(&config.DebugConfig{ListenAddress: "127.0.0.1:0", MetricsEnabled: true}, nil)
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	require.Eventually(t, func() bool { return s.Addr() != "127.0.0.1:0" }, 5*time.Second, 10*time.Millisecond)
	resp, err := http.Get("http://" + s.Addr() + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()

	s.Stop()
	require.NoError(t, <-errCh)
}

func TestSystemCollector_Collect(t *testing.T) {
	sc := NewSystemCollector(t.TempDir(), time.Hour, nil)
	sc.Collect()
	assert.NotNil(t, sc.Vars().Get("disk_used_percent"))
	assert.NotNil(t, sc.Vars().Get("disk_free_bytes"))

	sc.Start()
	sc.Stop()
	sc.Stop()
}
