package common

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

// pagedServer serves total items in windows of at most pageSize,
// recording the Range header of every request
type pagedServer struct {
	mu       sync.Mutex
	unit     string
	total    int
	pageSize int
	ranges   []string
	noHeader bool
}

func (s *pagedServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.ranges = append(s.ranges, r.Header.Get("Range"))
	s.mu.Unlock()

	window := strings.TrimPrefix(r.Header.Get("Range"), s.unit+"=")
	startStr, endStr, _ := strings.Cut(window, "-")
	start, _ := strconv.Atoi(startStr)
	end, _ := strconv.Atoi(endStr)
	if end-start+1 > s.pageSize {
		end = start + s.pageSize - 1
	}
	if end >= s.total {
		end = s.total - 1
	}

	items := []string{}
	for i := start; i <= end; i++ {
		items = append(items, fmt.Sprintf(`{"id":"%d"}`, i))
	}
	if !s.noHeader {
		w.Header().Set("Content-Range", fmt.Sprintf("%s %d-%d/%d", s.unit, start, end, s.total))
	}
	w.WriteHeader(http.StatusPartialContent)
	fmt.Fprint(w, "["+strings.Join(items, ",")+"]")
}

func newTestProxy(t *testing.T, handler http.Handler) *Proxy {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewProxy(server.URL, map[string]string{"X-Api-Key": "key"}, 5*time.Second, NewRateLimiter(clockwork.NewRealClock()), nil)
}

func TestGetPagesFollowsContentRange(t *testing.T) {
	server := &pagedServer{unit: "items", total: 120, pageSize: 50}
	proxy := newTestProxy(t, server)

	items, err := proxy.GetPages(context.Background(), Request{Route: "test", URL: "/things"}, "items", 50)
	require.NoError(t, err)
	require.Len(t, items, 120)
	require.Equal(t, []string{"items=0-49", "items=50-99", "items=100-149"}, server.ranges)
}

func TestGetPagesContinuesAfterShortPage(t *testing.T) {
	// The server only hands out 20 items per window even if asked for more
	server := &pagedServer{unit: "matches", total: 45, pageSize: 20}
	proxy := newTestProxy(t, server)

	items, err := proxy.GetPages(context.Background(), Request{URL: "/matches"}, "matches", 50)
	require.NoError(t, err)
	require.Len(t, items, 45)
	require.Equal(t, []string{"matches=0-49", "matches=20-69", "matches=40-89"}, server.ranges)
}

func TestGetPagesStopsWithoutHeader(t *testing.T) {
	server := &pagedServer{unit: "items", total: 120, pageSize: 50, noHeader: true}
	proxy := newTestProxy(t, server)

	items, err := proxy.GetPages(context.Background(), Request{URL: "/things"}, "items", 50)
	require.NoError(t, err)
	require.Len(t, items, 50)
	require.Len(t, server.ranges, 1)
}

func TestGetPagesStopsOnUnitMismatch(t *testing.T) {
	server := &pagedServer{unit: "groups", total: 120, pageSize: 50}
	proxy := newTestProxy(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Answer with a header for a different unit
		w.Header().Set("Content-Range", "groups 0-49/120")
		fmt.Fprint(w, "[]")
		server.ranges = append(server.ranges, r.Header.Get("Range"))
	}))

	items, err := proxy.GetPages(context.Background(), Request{URL: "/things"}, "items", 50)
	require.NoError(t, err)
	require.Empty(t, items)
	require.Len(t, server.ranges, 1)
}

func TestGetPagesFailsOnErrorStatus(t *testing.T) {
	calls := 0
	proxy := newTestProxy(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Range", "items 0-0/3")
		fmt.Fprint(w, `[{"id":"0"}]`)
	}))

	_, err := proxy.GetPages(context.Background(), Request{URL: "/things"}, "items", 1)
	require.Error(t, err)
	requestErr, ok := AsRequestError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusInternalServerError, requestErr.StatusCode)
	require.Equal(t, 2, calls)
}

func TestGetPagesRejectsNonListBody(t *testing.T) {
	proxy := newTestProxy(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"0"}`)
	}))

	_, err := proxy.GetPages(context.Background(), Request{URL: "/things"}, "items", 50)
	require.True(t, trace.IsBadParameter(err))
}

func TestProxyAttachesHeaders(t *testing.T) {
	var got http.Header
	proxy := newTestProxy(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		fmt.Fprint(w, `{}`)
	}))

	_, err := proxy.Do(context.Background(), Request{URL: "/thing", Header: map[string]string{"Authorization": "Bearer abc"}})
	require.NoError(t, err)
	require.Equal(t, "key", got.Get("X-Api-Key"))
	require.Equal(t, "Bearer abc", got.Get("Authorization"))
}

type recordingObserver struct {
	routes   []string
	statuses []int
}

func (o *recordingObserver) ObserveRequest(route string, status int, elapsed time.Duration) {
	o.routes = append(o.routes, route)
	o.statuses = append(o.statuses, status)
}

func TestProxyReportsToObserver(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()
	observer := &recordingObserver{}
	proxy := NewProxy(server.URL, nil, time.Second, NewRateLimiter(nil), observer)

	_, err := proxy.Do(context.Background(), Request{Route: "tournament", URL: "/thing"})
	require.Error(t, err)
	require.Equal(t, []string{"tournament"}, observer.routes)
	require.Equal(t, []int{http.StatusNotFound}, observer.statuses)
}
