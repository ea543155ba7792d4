package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDeduperSeen(t *testing.T) {
	d := newMemoryDeduper(time.Minute)
	ctx := context.Background()

	dup, err := d.Seen(ctx, "pay:payment.succeeded:abc")
	require.NoError(t, err)
	assert.False(t, dup)

	dup, err = d.Seen(ctx, "pay:payment.succeeded:abc")
	require.NoError(t, err)
	assert.True(t, dup)

	// Different event for the same payment is not a duplicate.
	dup, err = d.Seen(ctx, "pay:refund.succeeded:abc")
	require.NoError(t, err)
	assert.False(t, dup)
}

func TestMemoryDeduperExpiry(t *testing.T) {
	d := newMemoryDeduper(time.Millisecond)

	dup, _ := d.Seen(context.Background(), "k")
	assert.False(t, dup)

	time.Sleep(5 * time.Millisecond)

	dup, _ = d.Seen(context.Background(), "k")
	assert.False(t, dup)
}

func TestNewDeduperEmptyAddrFallsBackToMemory(t *testing.T) {
	d, err := NewDeduper("", "", 0, "webhook", time.Minute)
	require.NoError(t, err)
	_, ok := d.(*memoryDeduper)
	assert.True(t, ok)
}

func runPaymentDedup(t *testing.T, d Deduper, body string) (int, bool) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/payment/webhook", strings.NewReader(body))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	next := func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	}

	err := PaymentEventDedup(d)(next)(c)
	require.NoError(t, err)
	return rec.Code, called
}

func TestPaymentEventDedup(t *testing.T) {
	d := newMemoryDeduper(time.Minute)
	body := `{"event":"payment.succeeded","object":{"id":"p-1"}}`

	code, called := runPaymentDedup(t, d, body)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, called)

	code, called = runPaymentDedup(t, d, body)
	assert.Equal(t, http.StatusOK, code)
	assert.False(t, called, "duplicate delivery must not reach the handler")
}

func TestPaymentEventDedupPassesUnparseableBodies(t *testing.T) {
	d := newMemoryDeduper(time.Minute)

	_, called := runPaymentDedup(t, d, "not json")
	assert.True(t, called)

	// Same garbage twice still goes through: only keyed events deduplicate.
	_, called = runPaymentDedup(t, d, "not json")
	assert.True(t, called)
}

func TestPaymentEventDedupNilDeduper(t *testing.T) {
	_, called := runPaymentDedup(t, nil, `{"event":"payment.succeeded","object":{"id":"p-2"}}`)
	assert.True(t, called)
}
