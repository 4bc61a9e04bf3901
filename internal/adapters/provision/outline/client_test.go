package outline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sergeyzhinskiy/telegramvpnbot/internal/domain"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func testRegion(url string) domain.Region {
	return domain.Region{Code: "EU", APIURL: url, KeyPrefix: "EU"}
}

func TestCreateKeySendsNamedRequestAndDecodesResult(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var got struct {
		Method string `json:"method"`
		Params struct {
			Name      string `json:"name"`
			DataLimit struct {
				Bytes int64 `json:"bytes"`
			} `json:"data_limit"`
			ExpiryDate int64 `json:"expiry_date"`
		} `json:"params"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":{"id":"17","access_key":"ss://chacha20:secret@host:443"}}`))
	}))
	defer server.Close()

	client := NewClient(100_000_000_000)
	client.Clock = fixedClock{now: now}

	key, err := client.CreateKey(context.Background(), testRegion(server.URL), 30)
	require.NoError(t, err)
	assert.Equal(t, "17", key.ID)
	assert.Equal(t, "ss://chacha20:secret@host:443", key.AccessKey)
	assert.Equal(t, now.AddDate(0, 0, 30), key.ExpiresAt)

	assert.Equal(t, "create_key", got.Method)
	assert.Equal(t, "VPN_30days_20260301", got.Params.Name)
	assert.Equal(t, int64(100_000_000_000), got.Params.DataLimit.Bytes)
	assert.Equal(t, now.AddDate(0, 0, 30).Unix(), got.Params.ExpiryDate)
}

func TestCreateKeyServerErrorWrapsProvisioning(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(1)

	_, err := client.CreateKey(context.Background(), testRegion(server.URL), 7)
	require.ErrorIs(t, err, domain.ErrProvisioning)
	assert.ErrorContains(t, err, "status 500")
}

func TestCreateKeyMalformedBodyWrapsProvisioning(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"result":`))
	}))
	defer server.Close()

	client := NewClient(1)

	_, err := client.CreateKey(context.Background(), testRegion(server.URL), 7)
	require.ErrorIs(t, err, domain.ErrProvisioning)
}

func TestCreateKeyMissingAccessKeyIsAnError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"result":{"id":"17"}}`))
	}))
	defer server.Close()

	client := NewClient(1)

	_, err := client.CreateKey(context.Background(), testRegion(server.URL), 7)
	require.ErrorIs(t, err, domain.ErrProvisioning)
	assert.ErrorContains(t, err, "missing access key")
}

func TestCreateKeyTimesOut(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(1)
	client.RequestTimeout = 50 * time.Millisecond

	start := time.Now()
	_, err := client.CreateKey(context.Background(), testRegion(server.URL), 7)
	require.ErrorIs(t, err, domain.ErrProvisioning)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestCreateKeyUnprovisionableRegion(t *testing.T) {
	t.Parallel()

	client := NewClient(1)

	_, err := client.CreateKey(context.Background(), domain.Region{Code: "US", KeyPrefix: "US"}, 7)
	require.ErrorIs(t, err, domain.ErrProvisioning)
}

func TestDeleteKeySendsID(t *testing.T) {
	t.Parallel()

	var got struct {
		Method string `json:"method"`
		Params struct {
			ID string `json:"id"`
		} `json:"params"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(1)

	require.NoError(t, client.DeleteKey(context.Background(), testRegion(server.URL), "17"))
	assert.Equal(t, "delete_key", got.Method)
	assert.Equal(t, "17", got.Params.ID)
}

func TestDeleteKeyEmptyResponseBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(1)

	require.NoError(t, client.DeleteKey(context.Background(), testRegion(server.URL), "17"))
}

func TestDeleteKeyServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no such key", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(1)

	err := client.DeleteKey(context.Background(), testRegion(server.URL), "17")
	require.ErrorIs(t, err, domain.ErrProvisioning)
	assert.ErrorContains(t, err, "status 404")
}
