package toornament

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"toornabot/internal/common"

	"github.com/gravitational/trace"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"
)

// Toornament API schema
const API_URL = "https://api.toornament.com"

// Routes inside the toornament API
const ROUTE_TOKEN = "/oauth/v2/token"
const ROUTE_TOURNAMENT = "/viewer/v2/tournaments/%s"
const ROUTE_STAGE = "/viewer/v2/tournaments/%s/stages/%s"
const ROUTE_GROUPS = "/viewer/v2/tournaments/%s/groups"
const ROUTE_RANKING = "/viewer/v2/tournaments/%s/stages/%s/ranking-items?group_ids=%s"
const ROUTE_MATCHES = "/viewer/v2/tournaments/%s/matches?stage_ids=%s&group_ids=%s&round_numbers=%s"
const ROUTE_PARTICIPANTS = "/organizer/v2/tournaments/%s/participants"

// Scopes requested when exchanging the client credentials
var SCOPES = []string{"organizer:participant", "organizer:result"}

// Default number of items requested per page
const PAGE_SIZE = 50

// Observer gets notified about token refreshes
type Observer interface {
	ObserveTokenRefresh(success bool)
}

type Config struct {
	// TokenURL overrides the token endpoint
	TokenURL string
	PageSize int
	Observer Observer
}

// Toornament is the client of the toornament API.
// Tournaments and groups are cached for the lifetime of the process
type Toornament struct {
	proxy       *common.Proxy
	credentials *CredentialStore
	tokenURL    string
	pageSize    int
	observer    Observer

	mu          sync.Mutex
	tournaments map[TournamentId]Tournament
	groups      map[TournamentId][]Group

	// groupFetches joins concurrent lookups of the same tournament
	groupFetches singleflight.Group
}

func NewToornament(proxy *common.Proxy, credentials *CredentialStore, config Config) *Toornament {

	too := &Toornament{
		proxy:       proxy,
		credentials: credentials,
		tokenURL:    config.TokenURL,
		pageSize:    config.PageSize,
		observer:    config.Observer,
		tournaments: map[TournamentId]Tournament{},
		groups:      map[TournamentId][]Group{},
	}
	if too.tokenURL == "" {
		too.tokenURL = API_URL + ROUTE_TOKEN
	}
	if too.pageSize <= 0 {
		too.pageSize = PAGE_SIZE
	}
	return too
}

func (too *Toornament) GetTournament(ctx context.Context, tournamentId TournamentId) (Tournament, error) {

	// Check cache
	too.mu.Lock()
	tournament, ok := too.tournaments[tournamentId]
	too.mu.Unlock()
	if ok {
		return tournament, nil
	}
	log.Debug().Str("tournament", string(tournamentId)).Msg("Tournament is not in the cache")

	// Request
	response, err := too.get(ctx, "tournament", fmt.Sprintf(ROUTE_TOURNAMENT, escape(tournamentId)), false)
	if err != nil {
		return Tournament{}, notFound(err, "tournament %s not found", tournamentId)
	}
	tournament, err = UnmarshalTournament(response.Body)
	if err != nil {
		return Tournament{}, trace.Wrap(err)
	}

	// Update cache
	too.mu.Lock()
	too.tournaments[tournamentId] = tournament
	too.mu.Unlock()
	return tournament, nil
}

func (too *Toornament) GetStage(ctx context.Context, tournamentId TournamentId, stageId StageId) (Stage, error) {

	response, err := too.get(ctx, "stage", fmt.Sprintf(ROUTE_STAGE, escape(tournamentId), escape(stageId)), false)
	if err != nil {
		return Stage{}, notFound(err, "stage %s not found in tournament %s", stageId, tournamentId)
	}
	return UnmarshalStage(response.Body, tournamentId)
}

func (too *Toornament) GetGroups(ctx context.Context, tournamentId TournamentId) ([]Group, error) {

	url := fmt.Sprintf(ROUTE_GROUPS, escape(tournamentId))
	items, err := too.getPages(ctx, "groups", url, "groups", false)
	if err != nil {
		return nil, notFound(err, "tournament %s not found", tournamentId)
	}
	return UnmarshalGroups(items, tournamentId)
}

// FindGroup looks for the group with exactly the provided name.
// The groups of a tournament are requested only once
func (too *Toornament) FindGroup(ctx context.Context, tournamentId TournamentId, name string) (Group, error) {

	groups, err := too.cachedGroups(ctx, tournamentId)
	if err != nil {
		return Group{}, trace.Wrap(err)
	}
	for _, group := range groups {
		if group.Name == name {
			return group, nil
		}
	}
	return Group{}, trace.NotFound("group %q not found in tournament %s", name, tournamentId)
}

func (too *Toornament) cachedGroups(ctx context.Context, tournamentId TournamentId) ([]Group, error) {

	too.mu.Lock()
	groups, ok := too.groups[tournamentId]
	too.mu.Unlock()
	if ok {
		return groups, nil
	}

	// The fetch is shared, so it must not die with the caller that started it.
	// The proxy timeout still bounds it
	shared := context.WithoutCancel(ctx)
	fetch := too.groupFetches.DoChan(string(tournamentId), func() (interface{}, error) {
		too.mu.Lock()
		groups, ok := too.groups[tournamentId]
		too.mu.Unlock()
		if ok {
			return groups, nil
		}

		groups, err := too.GetGroups(shared, tournamentId)
		if err != nil {
			return nil, trace.Wrap(err)
		}
		too.mu.Lock()
		too.groups[tournamentId] = groups
		too.mu.Unlock()
		log.Debug().Str("tournament", string(tournamentId)).Int("groups", len(groups)).Msg("Cached groups")
		return groups, nil
	})

	select {
	case result := <-fetch:
		if result.Err != nil {
			return nil, trace.Wrap(result.Err)
		}
		return result.Val.([]Group), nil
	case <-ctx.Done():
		return nil, trace.Wrap(ctx.Err())
	}
}

// GetRanking returns the ranking of a group in the order given by the platform
func (too *Toornament) GetRanking(ctx context.Context, tournamentId TournamentId, stageId StageId, groupId GroupId) ([]RankingEntry, error) {

	url := fmt.Sprintf(ROUTE_RANKING, escape(tournamentId), escape(stageId), escape(groupId))
	items, err := too.getPages(ctx, "ranking", url, "items", false)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return UnmarshalRanking(items)
}

// GetMatches returns the matches of a group played in any of the provided rounds
func (too *Toornament) GetMatches(ctx context.Context, tournamentId TournamentId, stageId StageId, groupId GroupId, rounds ...int) ([]Match, error) {

	roundNumbers := make([]string, len(rounds))
	for i, round := range rounds {
		roundNumbers[i] = strconv.Itoa(round)
	}
	url := fmt.Sprintf(ROUTE_MATCHES, escape(tournamentId), escape(stageId), escape(groupId), strings.Join(roundNumbers, ","))
	items, err := too.getPages(ctx, "matches", url, "matches", false)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return UnmarshalMatches(items)
}

// GetParticipants lists the participants of a tournament.
// This is an organizer endpoint, so it needs a valid token
func (too *Toornament) GetParticipants(ctx context.Context, tournamentId TournamentId) ([]Participant, error) {

	url := fmt.Sprintf(ROUTE_PARTICIPANTS, escape(tournamentId))
	items, err := too.getPages(ctx, "participants", url, "participants", true)
	if err != nil {
		return nil, notFound(err, "tournament %s not found", tournamentId)
	}
	return UnmarshalParticipants(items)
}

func (too *Toornament) get(ctx context.Context, route string, url string, authorization bool) (*common.Response, error) {
	header, err := too.header(ctx, authorization)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	response, err := too.proxy.Do(ctx, common.Request{Route: route, URL: url, Header: header})
	return response, trace.Wrap(err)
}

func (too *Toornament) getPages(ctx context.Context, route string, url string, unit string, authorization bool) ([]jsoniter.RawMessage, error) {
	header, err := too.header(ctx, authorization)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	items, err := too.proxy.GetPages(ctx, common.Request{Route: route, URL: url, Header: header}, unit, too.pageSize)
	return items, trace.Wrap(err)
}

// header prepares the headers of a request: the api key always,
// and the token only when the endpoint needs it
func (too *Toornament) header(ctx context.Context, authorization bool) (map[string]string, error) {
	header := map[string]string{"X-Api-Key": too.credentials.ApiKey()}
	if authorization {
		value, err := too.credentials.Authorization(ctx, too.exchange)
		if err != nil {
			return nil, trace.Wrap(err)
		}
		header["Authorization"] = value
	}
	return header, nil
}

// exchange obtains a new token with the client credentials grant
func (too *Toornament) exchange(ctx context.Context, clientId string, clientSecret string) (Grant, error) {

	// The token endpoint counts against the rate limit as well
	if err := too.proxy.Wait(ctx); err != nil {
		return Grant{}, trace.Wrap(err)
	}

	config := clientcredentials.Config{
		ClientID:     clientId,
		ClientSecret: clientSecret,
		TokenURL:     too.tokenURL,
		Scopes:       SCOPES,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, too.proxy.HTTPClient())
	token, err := config.Token(ctx)
	if err != nil {
		credentialErr := &CredentialError{Err: err}
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			credentialErr.StatusCode = retrieveErr.Response.StatusCode
		}
		log.Ctx(ctx).Error().Err(credentialErr).Int("status", credentialErr.StatusCode).Msg("Credential failure: could not refresh toornament token")
		too.observeRefresh(false)
		return Grant{}, trace.Wrap(credentialErr)
	}
	too.observeRefresh(true)

	grant := Grant{AccessToken: token.AccessToken, TokenType: token.TokenType, ExpiresIn: expiresIn(token)}
	if scope, ok := token.Extra("scope").(string); ok {
		grant.Scope = scope
	}
	return grant, nil
}

func (too *Toornament) observeRefresh(success bool) {
	if too.observer != nil {
		too.observer.ObserveTokenRefresh(success)
	}
}

// expiresIn reads the lifetime reported by the token endpoint,
// falling back to the expiry computed by oauth2
func expiresIn(token *oauth2.Token) time.Duration {
	switch value := token.Extra("expires_in").(type) {
	case float64:
		return time.Duration(value) * time.Second
	case string:
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	if token.Expiry.IsZero() {
		return 0
	}
	return time.Until(token.Expiry)
}

// notFound turns a 404 from the platform into a not found error
func notFound(err error, message string, args ...interface{}) error {
	if requestErr, ok := common.AsRequestError(err); ok && requestErr.StatusCode == 404 {
		return trace.NotFound(message, args...)
	}
	return trace.Wrap(err)
}

func escape[T ~string](id T) string {
	return url.PathEscape(string(id))
}
