package app

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-backend/internal/config"
	"rental-backend/internal/domain"
)

const memoryYAML = `
server:
  port: 8080
storage:
  type: memory
jwt:
  secret: 0123456789abcdef0123456789abcdef
pricing:
  tax_rate: "0.2"
`

func TestNew_MemoryStorage(t *testing.T) {
	for _, key := range []string{"STORAGE_TYPE", "REDIS_ADDR", "SENDGRID_API_KEY", "JWT_SECRET", "TIMEZONE"} {
		t.Setenv(key, "")
	}
	cfg, err := config.Parse([]byte(memoryYAML))
	require.NoError(t, err)

	ctx := context.Background()
	a, err := New(ctx, cfg)
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Store.Ping(ctx))
	assert.True(t, a.Machine.Policy().TaxRate.Equal(decimal.RequireFromString("0.2")))

	customer := domain.NewCustomer("Jane Doe", "jane@example.com", "5551234567")
	require.NoError(t, a.Customers.CreateCustomer(ctx, customer))
	got, err := a.Customers.GetCustomer(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, "CUST0001", got.Code)

	token, err := a.Tokens.GenerateAccessToken("clerk", "", nil)
	require.NoError(t, err)
	claims, err := a.Tokens.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "rental-backend", claims.Issuer)

	assert.NoError(t, a.Jobs.RunAllDailyJobs())
}

func TestNew_UnsupportedStorage(t *testing.T) {
	_, err := New(context.Background(), &config.Config{Storage: config.StorageConfig{Type: "sqlite"}})
	assert.Error(t, err)
}
