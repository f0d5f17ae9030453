package toornament

import (
	"context"
	"strings"
	"sync"
	"time"

	"toornabot/internal/common"

	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Layout of the expiry timestamp inside the credentials file
const EXPIRY_LAYOUT = "02.01.2006, 15:04:05"

// A token is considered expired this long before it really expires,
// so that it cannot expire in the middle of an operation
const EXPIRY_BUFFER = time.Minute

// The expiry reported by the platform is shortened by this margin
const EXPIRY_MARGIN = 10 * time.Second

// Expiry is a point in time stored with second precision in local time
type Expiry time.Time

func (expiry Expiry) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(expiry).Local().Format(EXPIRY_LAYOUT))
}

func (expiry *Expiry) UnmarshalJSON(data []byte) error {
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return trace.BadParameter("auth expiry is not a string")
	}
	if strings.TrimSpace(value) == "" {
		*expiry = Expiry{}
		return nil
	}
	t, err := time.ParseInLocation(EXPIRY_LAYOUT, value, time.Local)
	if err != nil {
		return trace.BadParameter("auth expiry %q does not follow the layout %q", value, EXPIRY_LAYOUT)
	}
	*expiry = Expiry(t)
	return nil
}

// Credentials is the content of the credentials file
type Credentials struct {
	ClientId     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	ApiKey       string `json:"token"`
	AuthKey      string `json:"auth_key"`
	AuthType     string `json:"auth_type"`
	AuthScope    string `json:"auth_scope"`
	AuthExpiry   Expiry `json:"auth_expiry"`
}

// Grant is the answer of the token endpoint
type Grant struct {
	AccessToken string
	TokenType   string
	Scope       string
	ExpiresIn   time.Duration
}

// ExchangeFunc performs a client credentials exchange
type ExchangeFunc func(ctx context.Context, clientId string, clientSecret string) (Grant, error)

// CredentialStore owns the credentials of the process and
// persists them every time the token is refreshed
type CredentialStore struct {
	database *common.Database
	key      string
	clock    clockwork.Clock
	// apiKey never changes after loading
	apiKey string

	// refresh serializes the token refreshes, mu only guards credentials
	refresh     sync.Mutex
	mu          sync.Mutex
	credentials Credentials
}

// LoadCredentials reads the credentials stored under key
func LoadCredentials(database *common.Database, key string, clock clockwork.Clock) (*CredentialStore, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	store := &CredentialStore{database: database, key: key, clock: clock}
	found, err := database.Load(key, &store.credentials)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	if !found {
		return nil, trace.NotFound("credentials file %s not found", key)
	}
	if store.credentials.ApiKey == "" {
		return nil, trace.BadParameter("credentials file %s has no api key", key)
	}
	store.apiKey = store.credentials.ApiKey
	log.Info().Time("expiry", time.Time(store.credentials.AuthExpiry)).Msg("Loaded toornament credentials")
	return store, nil
}

// ApiKey returns the static key attached to every request
func (store *CredentialStore) ApiKey() string {
	return store.apiKey
}

// Credentials returns a copy of the current credentials
func (store *CredentialStore) Credentials() Credentials {
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.credentials
}

// Expired tells if the token expires within the expiry buffer
func (store *CredentialStore) Expired() bool {
	return store.expired(store.Credentials())
}

func (store *CredentialStore) expired(credentials Credentials) bool {
	return store.clock.Now().Add(EXPIRY_BUFFER).After(time.Time(credentials.AuthExpiry))
}

// Authorization returns the value of the authorization header.
// If the token is about to expire a new one is requested through exchange
// and persisted before returning. Refreshes are serialized, so concurrent
// callers never refresh twice, while readers of the credentials and of
// the api key are never held up by a refresh in flight
func (store *CredentialStore) Authorization(ctx context.Context, exchange ExchangeFunc) (string, error) {
	store.refresh.Lock()
	defer store.refresh.Unlock()

	credentials := store.Credentials()
	if store.expired(credentials) {
		log.Info().Msg("Toornament token expired, requesting a new one")
		grant, err := exchange(ctx, credentials.ClientId, credentials.ClientSecret)
		if err != nil {
			return "", trace.Wrap(err)
		}
		if credentials, err = store.update(credentials, grant); err != nil {
			return "", trace.Wrap(err)
		}
	}

	tokenType := credentials.AuthType
	if tokenType == "" || strings.EqualFold(tokenType, "bearer") {
		tokenType = "Bearer"
	}
	return tokenType + " " + credentials.AuthKey, nil
}

// update persists the credentials refreshed with grant. The credentials
// kept in memory only change once they are safely on disk
func (store *CredentialStore) update(credentials Credentials, grant Grant) (Credentials, error) {
	if grant.AccessToken == "" {
		return Credentials{}, trace.Wrap(&CredentialError{Err: trace.BadParameter("token endpoint returned an empty access token")})
	}
	credentials.AuthKey = grant.AccessToken
	credentials.AuthType = grant.TokenType
	credentials.AuthScope = grant.Scope
	credentials.AuthExpiry = Expiry(store.clock.Now().Add(grant.ExpiresIn - EXPIRY_MARGIN).Truncate(time.Second))

	if err := store.database.Save(store.key, credentials); err != nil {
		log.Error().Err(err).Str("credential", store.key).Msg("Could not persist refreshed credentials")
		return Credentials{}, trace.Wrap(err)
	}

	store.mu.Lock()
	store.credentials = credentials
	store.mu.Unlock()
	log.Info().Time("expiry", time.Time(credentials.AuthExpiry)).Msg("Toornament token refreshed")
	return credentials, nil
}
