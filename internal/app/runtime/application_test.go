package runtime

import (
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/R3E-Network/calcstore/internal/apperrors"
	"github.com/R3E-Network/calcstore/internal/config"
)

func testConfig(t *testing.T, mode config.AddMode) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Database.URL = "sqlite:///" + filepath.Join(t.TempDir(), "calc.db")
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.AddMode = string(mode)
	return cfg
}

func startApp(t *testing.T, cfg *config.Config) string {
	t.Helper()
	application, err := NewApplication(context.Background(), cfg, nil)
	require.NoError(t, err)

	errCh, err := application.Start()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, application.Shutdown(context.Background()))
		select {
		case err := <-errCh:
			t.Errorf("serve: %v", err)
		default:
		}
	})
	return "http://" + application.Addr()
}

func post(t *testing.T, url, body string) (int, string) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func TestApplicationHistoryMode(t *testing.T) {
	base := startApp(t, testConfig(t, config.AddModeHistory))

	code, body := post(t, base+"/items/", `{"name":"pen","price":3}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.JSONEq(t, `{"id":1,"name":"pen","price":3}`, body)

	code, body = get(t, base+"/items/")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[{"id":1,"name":"pen","price":3}]`, body)

	code, body = post(t, base+"/add/", `{"a":2,"b":3}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.JSONEq(t, `{"result":5}`, body)

	code, body = get(t, base+"/operations/")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[{"id":1,"a":2,"b":3,"result":5}]`, body)

	code, body = post(t, base+"/add/", `{"a":"x","b":3}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "validation", gjson.Get(body, "kind").String())

	_, body = get(t, base+"/operations/")
	assert.Equal(t, int64(1), gjson.Get(body, "#").Int())
}

func TestApplicationStatelessMode(t *testing.T) {
	base := startApp(t, testConfig(t, config.AddModeStateless))

	code, body := get(t, base+"/")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "API is up and running", gjson.Get(body, "message").String())

	code, body = post(t, base+"/add/", `{"a":1.5,"b":2}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, 3.5, gjson.Get(body, "result").Float())

	_, body = get(t, base+"/operations/")
	assert.JSONEq(t, `[]`, body)

	resp, err := http.Get(base + "/favicon.ico")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))

	_, body = get(t, base+"/metrics")
	assert.Contains(t, body, "calcstore_http_requests_total")
}

func TestApplicationStaticDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hello.txt"), []byte("hi"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "deep.txt"), []byte("x"), 0o600))

	cfg := testConfig(t, config.AddModeStateless)
	cfg.StaticDir = dir
	base := startApp(t, cfg)

	code, body := get(t, base+"/static/hello.txt")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "hi", body)

	code, body = get(t, base+"/static/nested/")
	assert.Equal(t, http.StatusNotFound, code)
	assert.NotContains(t, body, "deep.txt")
}

func TestApplicationSchemaSurvivesRestart(t *testing.T) {
	cfg := testConfig(t, config.AddModeStateless)

	first, err := NewApplication(context.Background(), cfg, nil)
	require.NoError(t, err)
	_, err = first.App().Catalog.Create(context.Background(), "pen", 3)
	require.NoError(t, err)
	require.NoError(t, first.Shutdown(context.Background()))

	second, err := NewApplication(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer second.Shutdown(context.Background())

	items, err := second.App().Catalog.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "pen", items[0].Name)
}

func TestNewApplicationRejectsBadURL(t *testing.T) {
	cfg := config.Default()
	cfg.Database.URL = "mysql://localhost/db"

	_, err := NewApplication(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindConfiguration, apperrors.KindOf(err))
}

func TestNewApplicationRejectsMissingStaticDir(t *testing.T) {
	cfg := testConfig(t, config.AddModeStateless)
	cfg.StaticDir = filepath.Join(t.TempDir(), "missing")

	_, err := NewApplication(context.Background(), cfg, nil)
	require.Error(t, err)
}

func TestShutdownClosesDatabaseWhenDrainFails(t *testing.T) {
	application, err := NewApplication(context.Background(), testConfig(t, config.AddModeStateless), nil)
	require.NoError(t, err)
	_, err = application.Start()
	require.NoError(t, err)

	// A half-sent request keeps its connection active so the drain cannot finish.
	conn, err := net.Dial("tcp", application.Addr())
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte("GET / HTTP/1.1\r\nHost: x\r\n"))
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, application.Shutdown(ctx))

	assert.Error(t, application.db.PingContext(context.Background()))
}
