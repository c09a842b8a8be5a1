package session

import (
	"fmt"
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimit returns a Doer middleware that bounds request starts with a
// token bucket. Callers construct one middleware per budget and wrap the
// transport handed to the controller:
//
//	ctrl, err := session.New(endpoint,
//	    session.WithDoer(session.RateLimit(rate.Limit(1), 2)(http.DefaultClient)))
//
// Wait respects the request context, so a cancelled exchange stops waiting
// for capacity and surfaces as an abort.
func RateLimit(limit rate.Limit, burst int) func(Doer) Doer {
	limiter := rate.NewLimiter(limit, burst)
	return func(next Doer) Doer {
		if next == nil {
			return nil
		}
		return &limitedDoer{next: next, limiter: limiter}
	}
}

type limitedDoer struct {
	next    Doer
	limiter *rate.Limiter
}

// Do blocks until the bucket grants a token, then delegates.
func (d *limitedDoer) Do(req *http.Request) (*http.Response, error) {
	if err := d.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return d.next.Do(req)
}
