package main

import (
	"bytes"
	"context"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolateConfig(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CLIPMIRROR_CONFIG", "")
	t.Setenv("CLIPMIRROR_LOG_LEVEL", "")
}

func freePort(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return strconv.Itoa(ln.Addr().(*net.TCPAddr).Port)
}

func run(ctx context.Context, stdin string, args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(strings.NewReader(stdin), &stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

func startCLIServer(t *testing.T, port string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, _, err := run(ctx, "", "server", "--backend", "memory", "--port", port, "--log-level", "disabled")
		done <- err
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})
	require.Eventually(t, func() bool {
		conn, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", port))
		if err != nil {
			return false
		}
		// An empty request is rejected and dropped by the server.
		conn.(*net.TCPConn).CloseWrite()
		conn.Close()
		return true
	}, 5*time.Second, 20*time.Millisecond)
}

func TestSetThenGetThroughCLI(t *testing.T) {
	isolateConfig(t)
	port := freePort(t)
	startCLIServer(t, port)
	ctx := context.Background()

	_, _, err := run(ctx, "hello", "set", "--port", port, "all")
	require.NoError(t, err)

	for _, sel := range []string{"primary", "clipboard", "secondary"} {
		out, _, err := run(ctx, "", "get", "-p", port, sel)
		require.NoError(t, err)
		assert.Equal(t, "hello", out, sel)
	}

	_, _, err = run(ctx, "only clipboard", "-p", port, "set")
	require.NoError(t, err)
	out, _, err := run(ctx, "", "-p", port, "get")
	require.NoError(t, err)
	assert.Equal(t, "only clipboard", out)
	out, _, err = run(ctx, "", "-p", port, "get", "primary")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestGetRejectsAllSelection(t *testing.T) {
	isolateConfig(t)
	_, stderr, err := run(context.Background(), "", "get", "all")
	require.Error(t, err)
	assert.Contains(t, stderr, "unknown selection")
}

func TestClientFailsWithoutServer(t *testing.T) {
	isolateConfig(t)
	port := freePort(t)
	_, _, err := run(context.Background(), "", "get", "--port", port)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect")
}

func TestServerRejectsUnknownBackend(t *testing.T) {
	isolateConfig(t)
	_, _, err := run(context.Background(), "", "server", "--backend", "floppy")
	require.Error(t, err)
}

func TestBadPortFlag(t *testing.T) {
	isolateConfig(t)
	_, _, err := run(context.Background(), "", "get", "--port", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port must be between")
}
