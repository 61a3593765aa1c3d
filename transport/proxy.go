package transport

import (
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"
)

// Status is the last known health of a proxy descriptor.
type Status string

const (
	StatusUntested Status = "untested"
	StatusWorking  Status = "working"
	StatusFailed   Status = "failed"
)

// DefaultCooldown is how long a failed descriptor is skipped before it is tried again.
const DefaultCooldown = 30 * time.Minute

// Proxy describes one way around a cross-origin rejection.
type Proxy struct {
	Name string
	// Rewrite maps the target URL onto the proxied URL. Unused for JSONP descriptors.
	Rewrite func(target string) string
	// JSONP descriptors issue a callback-wrapped GET instead of a plain fetch.
	JSONP    bool
	Methods  []string
	Status   Status
	FailedAt time.Time
}

// Supports reports whether the descriptor can carry the given HTTP method.
func (p Proxy) Supports(method string) bool {
	return slices.ContainsFunc(p.Methods, func(m string) bool {
		return strings.EqualFold(m, method)
	})
}

// EffectiveStatus applies the cooldown: a failure older than cooldown counts as untested.
func (p Proxy) EffectiveStatus(now time.Time, cooldown time.Duration) Status {
	if p.Status == StatusFailed && now.Sub(p.FailedAt) >= cooldown {
		return StatusUntested
	}
	if p.Status == "" {
		return StatusUntested
	}
	return p.Status
}

// SelectProxy picks the descriptor to use for method and returns its index, or -1 if none is usable.
// It prefers a working descriptor, then the current one, then the next usable one in list order.
func SelectProxy(proxies []Proxy, current int, method string, now time.Time, cooldown time.Duration) int {
	n := len(proxies)
	if n == 0 {
		return -1
	}

	usable := func(i int) bool {
		p := proxies[i]
		return p.Supports(method) && p.EffectiveStatus(now, cooldown) != StatusFailed
	}

	for i, p := range proxies {
		if p.Supports(method) && p.EffectiveStatus(now, cooldown) == StatusWorking {
			return i
		}
	}

	if current < 0 || current >= n {
		current = 0
	}
	if usable(current) {
		return current
	}

	for step := 1; step < n; step++ {
		i := (current + step) % n
		if usable(i) {
			return i
		}
	}
	return -1
}

// ProxySet owns a list of descriptors and mutates their status as requests succeed or fail.
type ProxySet struct {
	mu       sync.Mutex
	proxies  []Proxy
	current  int
	cooldown time.Duration
	now      func() time.Time
}

func NewProxySet(proxies []Proxy, cooldown time.Duration) *ProxySet {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	list := make([]Proxy, len(proxies))
	for i, p := range proxies {
		if p.Status == "" {
			p.Status = StatusUntested
		}
		list[i] = p
	}
	return &ProxySet{proxies: list, cooldown: cooldown, now: time.Now}
}

// Next returns the selected descriptor for method.
func (s *ProxySet) Next(method string) (int, Proxy, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := SelectProxy(s.proxies, s.current, method, s.now(), s.cooldown)
	if i < 0 {
		return -1, Proxy{}, false
	}
	// A descriptor back from cooldown starts over as untested.
	if s.proxies[i].EffectiveStatus(s.now(), s.cooldown) == StatusUntested {
		s.proxies[i].Status = StatusUntested
	}
	s.current = i
	return i, s.proxies[i], true
}

func (s *ProxySet) MarkWorking(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.proxies) {
		return
	}
	s.proxies[i].Status = StatusWorking
	s.proxies[i].FailedAt = time.Time{}
}

// MarkFailed records the failure time and advances the rotation past i.
func (s *ProxySet) MarkFailed(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.proxies) {
		return
	}
	s.proxies[i].Status = StatusFailed
	s.proxies[i].FailedAt = s.now()
	s.current = (i + 1) % len(s.proxies)
}

// Snapshot returns a copy of the descriptors.
func (s *ProxySet) Snapshot() []Proxy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.proxies)
}

func (s *ProxySet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.proxies)
}

// PrefixProxy builds a descriptor that concatenates prefix and the escaped target.
func PrefixProxy(name, prefix string, escape bool, methods ...string) Proxy {
	if len(methods) == 0 {
		methods = []string{http.MethodGet}
	}
	return Proxy{
		Name: name,
		Rewrite: func(target string) string {
			if escape {
				return prefix + url.QueryEscape(target)
			}
			return prefix + target
		},
		Methods: methods,
		Status:  StatusUntested,
	}
}

// JSONPProxy is the descriptor that routes GETs through the JSONP helper.
func JSONPProxy() Proxy {
	return Proxy{
		Name:    "jsonp",
		JSONP:   true,
		Methods: []string{http.MethodGet},
		Status:  StatusUntested,
	}
}

// DefaultProxies is the built-in rotation of public CORS proxies.
func DefaultProxies() []Proxy {
	return []Proxy{
		PrefixProxy("corsproxy.io", "https://corsproxy.io/?url=", true, http.MethodGet, http.MethodPost),
		PrefixProxy("allorigins", "https://api.allorigins.win/raw?url=", true, http.MethodGet),
		PrefixProxy("cors.lol", "https://api.cors.lol/?url=", true, http.MethodGet, http.MethodPost),
		PrefixProxy("thingproxy", "https://thingproxy.freeboard.io/fetch/", false, http.MethodGet, http.MethodPost),
		JSONPProxy(),
	}
}
