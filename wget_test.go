package wget

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankli0324/go-wget/internal/config"
)

func TestFactories(t *testing.T) {
	for name, factory := range map[string]func(...Option) (*Builder, error){
		"HTTP": HTTP, "HTTPClient": HTTPClient,
	} {
		t.Run(name, func(t *testing.T) {
			b, err := factory()
			require.NoError(t, err)
			defer b.Close()
			o := b.Options()
			assert.True(t, o.CaptureResponseHeaders)
			assert.True(t, o.FreshConnect)
			assert.True(t, o.AutoReset)
		})
	}
}

func TestEnvironmentIsOverridable(t *testing.T) {
	cfg := &config.Config{Insecure: true, Backend: BackendResty}

	b, err := newBuilder(cfg)
	require.NoError(t, err)
	defer b.Close()
	assert.False(t, b.Options().VerifyPeer)
	assert.False(t, b.Options().VerifyHost)
	assert.Equal(t, BackendResty, b.Options().Backend)

	b2, err := newBuilder(cfg, WithVerifyPeer(true), WithBackend(BackendWire))
	require.NoError(t, err)
	defer b2.Close()
	assert.True(t, b2.Options().VerifyPeer)
	assert.Equal(t, BackendWire, b2.Options().Backend)
}

func TestSecureByDefault(t *testing.T) {
	b, err := newBuilder(&config.Config{Backend: BackendWire})
	require.NoError(t, err)
	defer b.Close()
	assert.True(t, b.Options().VerifyPeer)
	assert.True(t, b.Options().VerifyHost)
}

func TestInsecureReachesSelfSigned(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hi"))
	}))
	defer srv.Close()

	b, err := newBuilder(&config.Config{Backend: BackendWire})
	require.NoError(t, err)
	defer b.Close()
	resp, err := b.Get(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.False(t, resp.HasStatus())
	assert.Equal(t, "60", resp.Errors()[2])

	b2, err := newBuilder(&config.Config{Insecure: true, Backend: BackendWire})
	require.NoError(t, err)
	defer b2.Close()
	resp, err = b2.Get(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	body, _ := resp.Body()
	assert.Equal(t, "hi", body)
}

func TestMetricsExposed(t *testing.T) {
	b, err := HTTP()
	require.NoError(t, err)
	defer b.Close()

	rec := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "wget_builders_active"))

	families, err := Metrics().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestTracingMiddlewareWires(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.Header.Get("traceparent")))
	}))
	defer srv.Close()

	b, err := HTTP()
	require.NoError(t, err)
	defer b.Close()
	// the global propagator is a no-op until configured, so nothing is injected
	resp, err := b.Use(Tracing(nil, nil)).Get(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status())
}
