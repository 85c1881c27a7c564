package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	return dir
}

func TestLoad_ShippedBase(t *testing.T) {
	cfg, err := Load(".", "")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.App.HTTPAddr)
	assert.Equal(t, "sessionid", cfg.Session.Header)
	assert.Equal(t, "memory", cfg.Cart.Store)
	assert.Equal(t, "fake", cfg.Payments.Provider)
	assert.Equal(t, 24*time.Hour, cfg.Idempotency.TTL)

	rate, err := cfg.TaxRate()
	require.NoError(t, err)
	assert.Equal(t, "0.09", rate.String())
}

func TestLoad_DevOverlayAndClients(t *testing.T) {
	cfg, err := Load(".", "dev")
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.Cart.Store)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	require.Len(t, cfg.Security.Clients, 2)
	assert.Equal(t, "svc-payments", cfg.Security.Clients[0].ID)
	assert.Equal(t, []string{"payments.confirm"}, cfg.Security.Clients[0].Perms)
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := writeConfig(t, "base.yaml", "app:\n  http_addr: \":8080\"\n")
	t.Setenv("CARTAPI_PRICING__TAX_RATE", "0.2")
	t.Setenv("CARTAPI_SHIPPING__FLAT_RATE", "7.50")
	t.Setenv("CARTAPI_SHIPPING__FREE_OVER", "300")
	t.Setenv("CARTAPI_CART__ORPHAN_POLICY", "fail")

	cfg, err := Load(dir, "missing-env")
	require.NoError(t, err)

	rate, err := cfg.TaxRate()
	require.NoError(t, err)
	assert.Equal(t, "0.2", rate.String())

	flat, freeOver, err := cfg.ShippingRates()
	require.NoError(t, err)
	assert.Equal(t, "7.5", flat.String())
	require.NotNil(t, freeOver)
	assert.Equal(t, "300", freeOver.String())
	assert.Equal(t, "fail", cfg.Cart.OrphanPolicy)

	// defaults
	assert.Equal(t, "usd", cfg.Pricing.Currency)
	assert.Equal(t, int32(2), cfg.Pricing.Scale)
	assert.Equal(t, 3*time.Second, cfg.Cart.CallTimeout)
}

func TestLoad_MissingBase(t *testing.T) {
	_, err := Load(t.TempDir(), "dev")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"no addr", "app:\n  http_addr: \"\"\n", "http_addr"},
		{"negative tax", "app:\n  http_addr: \":1\"\npricing:\n  tax_rate: \"-0.1\"\n", "tax_rate"},
		{"bad tax", "app:\n  http_addr: \":1\"\npricing:\n  tax_rate: abc\n", "tax_rate"},
		{"unknown store", "app:\n  http_addr: \":1\"\ncart:\n  store: etcd\n", "cart.store"},
		{"redis without addr", "app:\n  http_addr: \":1\"\ncart:\n  store: redis\n", "redis.addr"},
		{"mysql catalog without dsn", "app:\n  http_addr: \":1\"\ncatalog:\n  source: mysql\n", "mysql.dsn"},
		{"unknown orphan policy", "app:\n  http_addr: \":1\"\ncart:\n  orphan_policy: keep\n", "orphan_policy"},
		{"signed without secret", "app:\n  http_addr: \":1\"\nsession:\n  mode: signed\n", "signing_secret"},
		{"stripe without key", "app:\n  http_addr: \":1\"\npayments:\n  provider: stripe\n", "stripe_secret_key"},
		{"negative shipping", "app:\n  http_addr: \":1\"\nshipping:\n  flat_rate: \"-1\"\n", "flat_rate"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := writeConfig(t, "base.yaml", tc.yaml)
			_, err := Load(dir, "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
