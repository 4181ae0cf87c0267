package chain

import (
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// rateLimitedTransport delays requests that exceed a token bucket. Bursts
// of twice the rate pass without waiting.
type rateLimitedTransport struct {
	next    http.RoundTripper
	limiter *rate.Limiter
}

func newRateLimitedTransport(next http.RoundTripper, perSecond float64) http.RoundTripper {
	if perSecond <= 0 {
		return next
	}
	burst := int(math.Ceil(perSecond * 2))
	return &rateLimitedTransport{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Reserve rather than Wait: a wait that outlives the deadline must end
	// with the context's own error.
	r := t.limiter.Reserve()
	if delay := r.Delay(); delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-req.Context().Done():
			r.Cancel()
			return nil, req.Context().Err()
		case <-timer.C:
		}
	}
	return t.next.RoundTrip(req)
}
