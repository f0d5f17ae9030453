package toornament

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"toornabot/internal/common"

	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

const credentialsKey = "toornament.json"

func writeCredentials(t *testing.T, dir string, expiry time.Time) *common.Database {
	t.Helper()
	db := common.NewDatabase(dir)
	require.NoError(t, db.Save(credentialsKey, Credentials{
		ClientId:     "client",
		ClientSecret: "secret",
		ApiKey:       "api-key",
		AuthKey:      "old-token",
		AuthType:     "Bearer",
		AuthScope:    "organizer:participant organizer:result",
		AuthExpiry:   Expiry(expiry),
	}))
	return db
}

func TestExpiryFileFormat(t *testing.T) {
	expiry := time.Date(2024, time.March, 7, 18, 5, 9, 0, time.Local)
	data, err := json.Marshal(Expiry(expiry))
	require.NoError(t, err)
	require.Equal(t, `"07.03.2024, 18:05:09"`, string(data))

	var parsed Expiry
	require.NoError(t, json.Unmarshal(data, &parsed))
	require.True(t, expiry.Equal(time.Time(parsed)))

	require.Error(t, json.Unmarshal([]byte(`"2024-03-07T18:05:09Z"`), &parsed))
}

func TestLoadCredentialsMissingFile(t *testing.T) {
	_, err := LoadCredentials(common.NewDatabase(t.TempDir()), credentialsKey, nil)
	require.True(t, trace.IsNotFound(err))
}

func TestCredentialsExpiredWithinBuffer(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, time.March, 7, 12, 0, 0, 0, time.Local))
	db := writeCredentials(t, t.TempDir(), clock.Now().Add(30*time.Second))

	store, err := LoadCredentials(db, credentialsKey, clock)
	require.NoError(t, err)
	require.True(t, store.Expired())

	db = writeCredentials(t, t.TempDir(), clock.Now().Add(2*time.Minute))
	store, err = LoadCredentials(db, credentialsKey, clock)
	require.NoError(t, err)
	require.False(t, store.Expired())

	clock.Advance(time.Minute + time.Second)
	require.True(t, store.Expired())
}

func TestCredentialsRefreshRoundTrip(t *testing.T) {
	dir := t.TempDir()
	clock := clockwork.NewFakeClockAt(time.Date(2024, time.March, 7, 12, 0, 0, 500, time.Local))
	db := writeCredentials(t, dir, clock.Now().Add(-time.Hour))

	store, err := LoadCredentials(db, credentialsKey, clock)
	require.NoError(t, err)

	calls := 0
	exchange := func(ctx context.Context, clientId string, clientSecret string) (Grant, error) {
		calls++
		require.Equal(t, "client", clientId)
		require.Equal(t, "secret", clientSecret)
		return Grant{AccessToken: "new-token", TokenType: "bearer", Scope: "organizer:result", ExpiresIn: 24 * time.Hour}, nil
	}

	authorization, err := store.Authorization(context.Background(), exchange)
	require.NoError(t, err)
	require.Equal(t, "Bearer new-token", authorization)
	require.Equal(t, 1, calls)

	// A fresh token is not refreshed again
	_, err = store.Authorization(context.Background(), exchange)
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	// The expiry is shortened by the safety margin
	want := clock.Now().Add(24*time.Hour - EXPIRY_MARGIN).Truncate(time.Second)
	require.True(t, want.Equal(time.Time(store.Credentials().AuthExpiry)))

	// Reloading gives the same credentials down to the second
	reloaded, err := LoadCredentials(common.NewDatabase(dir), credentialsKey, clock)
	require.NoError(t, err)
	require.Equal(t, "new-token", reloaded.Credentials().AuthKey)
	require.Equal(t, "organizer:result", reloaded.Credentials().AuthScope)
	require.True(t, want.Equal(time.Time(reloaded.Credentials().AuthExpiry)))
	require.False(t, reloaded.Expired())

	// and still considers it expired once inside the buffer
	clock.Advance(24*time.Hour - EXPIRY_MARGIN - 30*time.Second)
	require.True(t, reloaded.Expired())

	data, err := os.ReadFile(filepath.Join(dir, credentialsKey))
	require.NoError(t, err)
	require.Contains(t, string(data), `"auth_expiry": "08.03.2024, 11:59:50"`)
}

func TestCredentialsRefreshFailure(t *testing.T) {
	clock := clockwork.NewFakeClock()
	db := writeCredentials(t, t.TempDir(), clock.Now())
	store, err := LoadCredentials(db, credentialsKey, clock)
	require.NoError(t, err)

	exchange := func(ctx context.Context, clientId string, clientSecret string) (Grant, error) {
		return Grant{}, &CredentialError{StatusCode: 401, Err: trace.AccessDenied("invalid client")}
	}
	_, err = store.Authorization(context.Background(), exchange)
	credentialErr, ok := AsCredentialError(err)
	require.True(t, ok)
	require.Equal(t, 401, credentialErr.StatusCode)
	require.Equal(t, "old-token", store.Credentials().AuthKey)
}

func TestCredentialsKeptWhenPersistFails(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "credentials")
	clock := clockwork.NewFakeClock()
	db := writeCredentials(t, dir, clock.Now())
	store, err := LoadCredentials(db, credentialsKey, clock)
	require.NoError(t, err)

	// The database directory turns into a file, so nothing can be saved
	require.NoError(t, os.RemoveAll(dir))
	require.NoError(t, os.WriteFile(dir, []byte("not a directory"), 0o600))

	exchange := func(ctx context.Context, clientId string, clientSecret string) (Grant, error) {
		return Grant{AccessToken: "new-token", TokenType: "Bearer", ExpiresIn: time.Hour}, nil
	}
	_, err = store.Authorization(context.Background(), exchange)
	require.Error(t, err)

	require.Equal(t, "old-token", store.Credentials().AuthKey)
	require.True(t, store.Expired())
}

func TestApiKeyNotBlockedByRefresh(t *testing.T) {
	clock := clockwork.NewFakeClock()
	db := writeCredentials(t, t.TempDir(), clock.Now())
	store, err := LoadCredentials(db, credentialsKey, clock)
	require.NoError(t, err)

	entered := make(chan struct{})
	release := make(chan struct{})
	exchange := func(ctx context.Context, clientId string, clientSecret string) (Grant, error) {
		close(entered)
		<-release
		return Grant{AccessToken: "new-token", TokenType: "Bearer", ExpiresIn: time.Hour}, nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := store.Authorization(context.Background(), exchange)
		done <- err
	}()
	<-entered

	// While the exchange hangs the api key and the credentials are still readable
	read := make(chan string, 1)
	go func() { read <- store.ApiKey() + " " + store.Credentials().AuthKey }()
	select {
	case value := <-read:
		require.Equal(t, "api-key old-token", value)
	case <-time.After(time.Second):
		t.Fatal("reading the credentials waited for the refresh")
	}

	close(release)
	require.NoError(t, <-done)
	require.Equal(t, "new-token", store.Credentials().AuthKey)
}
