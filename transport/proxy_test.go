package transport

import (
	"net/http"
	"testing"
	"time"
)

func TestSelectProxy(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cooldown := 30 * time.Minute

	get := []string{http.MethodGet}
	both := []string{http.MethodGet, http.MethodPost}

	tests := []struct {
		name    string
		proxies []Proxy
		current int
		method  string
		want    int
	}{
		{
			name:    "empty list",
			proxies: nil,
			method:  http.MethodGet,
			want:    -1,
		},
		{
			name: "working descriptor wins over current",
			proxies: []Proxy{
				{Name: "a", Methods: both, Status: StatusUntested},
				{Name: "b", Methods: both, Status: StatusWorking},
			},
			current: 0,
			method:  http.MethodGet,
			want:    1,
		},
		{
			name: "working descriptor without the method is ignored",
			proxies: []Proxy{
				{Name: "a", Methods: both, Status: StatusUntested},
				{Name: "b", Methods: get, Status: StatusWorking},
			},
			current: 0,
			method:  http.MethodPost,
			want:    0,
		},
		{
			name: "current failed, next usable in order",
			proxies: []Proxy{
				{Name: "a", Methods: both, Status: StatusUntested},
				{Name: "b", Methods: both, Status: StatusFailed, FailedAt: now.Add(-time.Minute)},
				{Name: "c", Methods: get, Status: StatusUntested},
				{Name: "d", Methods: both, Status: StatusUntested},
			},
			current: 1,
			method:  http.MethodPost,
			want:    3,
		},
		{
			name: "wraps around the list",
			proxies: []Proxy{
				{Name: "a", Methods: both, Status: StatusUntested},
				{Name: "b", Methods: both, Status: StatusFailed, FailedAt: now},
			},
			current: 1,
			method:  http.MethodGet,
			want:    0,
		},
		{
			name: "failed past cooldown is usable again",
			proxies: []Proxy{
				{Name: "a", Methods: both, Status: StatusFailed, FailedAt: now.Add(-31 * time.Minute)},
				{Name: "b", Methods: both, Status: StatusFailed, FailedAt: now},
			},
			current: 1,
			method:  http.MethodGet,
			want:    0,
		},
		{
			name: "everything cooling down",
			proxies: []Proxy{
				{Name: "a", Methods: both, Status: StatusFailed, FailedAt: now.Add(-time.Minute)},
				{Name: "b", Methods: both, Status: StatusFailed, FailedAt: now},
			},
			current: 0,
			method:  http.MethodGet,
			want:    -1,
		},
		{
			name: "out of range current starts at zero",
			proxies: []Proxy{
				{Name: "a", Methods: get},
			},
			current: 7,
			method:  http.MethodGet,
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectProxy(tt.proxies, tt.current, tt.method, now, cooldown)
			if got != tt.want {
				t.Errorf("SelectProxy() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestProxySet_CooldownResetsToUntested(t *testing.T) {
	t.Parallel()

	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	set := NewProxySet([]Proxy{PrefixProxy("only", "https://p.test/", false)}, time.Minute)
	set.now = func() time.Time { return clock }

	i, _, ok := set.Next(http.MethodGet)
	if !ok || i != 0 {
		t.Fatalf("Next() = %d, %v", i, ok)
	}
	set.MarkFailed(i)

	if _, _, ok := set.Next(http.MethodGet); ok {
		t.Fatal("Next() returned a descriptor still in cooldown")
	}

	clock = clock.Add(time.Minute)
	_, p, ok := set.Next(http.MethodGet)
	if !ok {
		t.Fatal("Next() found nothing after cooldown")
	}
	if p.Status != StatusUntested {
		t.Errorf("status after cooldown = %s, want untested", p.Status)
	}

	set.MarkWorking(0)
	if s := set.Snapshot()[0]; s.Status != StatusWorking || !s.FailedAt.IsZero() {
		t.Errorf("after MarkWorking: %+v", s)
	}
}

func TestPrefixProxyRewrite(t *testing.T) {
	t.Parallel()

	escaped := PrefixProxy("e", "https://p.test/?url=", true)
	if got, want := escaped.Rewrite("https://a.test/x?y=1"), "https://p.test/?url=https%3A%2F%2Fa.test%2Fx%3Fy%3D1"; got != want {
		t.Errorf("escaped Rewrite() = %q, want %q", got, want)
	}

	plain := PrefixProxy("p", "https://p.test/fetch/", false)
	if got, want := plain.Rewrite("https://a.test/x"), "https://p.test/fetch/https://a.test/x"; got != want {
		t.Errorf("plain Rewrite() = %q, want %q", got, want)
	}
	if !plain.Supports("get") || plain.Supports(http.MethodPost) {
		t.Error("default methods should be GET only")
	}
}
