package llm

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusError(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusUnauthorized, ErrAuth},
		{http.StatusForbidden, ErrAuth},
		{http.StatusGatewayTimeout, ErrTimeout},
		{http.StatusInternalServerError, ErrProviderUnavailable},
		{http.StatusBadGateway, ErrProviderUnavailable},
		{http.StatusBadRequest, ErrProviderUnavailable},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := StatusError("openai", tt.status, "boom")
			assert.ErrorIs(t, err, tt.want)

			var pe *ProviderError
			assert.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.status, pe.StatusCode)
			assert.Contains(t, err.Error(), "boom")
		})
	}
}

func TestTransportError(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.NoError(t, TransportError(context.Background(), "x", nil))
	})

	t.Run("deadline", func(t *testing.T) {
		err := TransportError(context.Background(), "x", context.DeadlineExceeded)
		assert.ErrorIs(t, err, ErrTimeout)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("cancelled passes through", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := TransportError(ctx, "x", context.Canceled)
		assert.Equal(t, context.Canceled, err)
	})

	t.Run("connection refused", func(t *testing.T) {
		err := TransportError(context.Background(), "x", errors.New("dial tcp: connection refused"))
		assert.ErrorIs(t, err, ErrProviderUnavailable)
		assert.NotErrorIs(t, err, ErrTimeout)
	})
}

func TestProviderFunc(t *testing.T) {
	var p Provider = ProviderFunc(func(ctx context.Context, system, user string) (string, error) {
		return system + "/" + user, nil
	})
	out, err := p.Invoke(context.Background(), "s", "u")
	assert.NoError(t, err)
	assert.Equal(t, "s/u", out)
	assert.Equal(t, "func", p.Model())
}

func TestMockProvider(t *testing.T) {
	m := new(MockProvider)
	m.On("Invoke", context.Background(), "sys", "hi").Return("hello", nil)
	m.On("Invoke", context.Background(), "sys", "fail").Return("", ErrRateLimited)

	out, err := m.Invoke(context.Background(), "sys", "hi")
	assert.NoError(t, err)
	assert.Equal(t, "hello", out)

	_, err = m.Invoke(context.Background(), "sys", "fail")
	assert.ErrorIs(t, err, ErrRateLimited)
	m.AssertExpectations(t)
}
