package httputil

import (
	"net/http"
	"time"
)

type Clients struct {
	Feed *http.Client // catalog feed fetches, no redirects
	API  *http.Client // export endpoints (S3-compatible storage)
}

func NewClients() *Clients {
	feed := &http.Client{
		Timeout: 15 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &Clients{
		Feed: feed,
		API:  &http.Client{Timeout: 30 * time.Second},
	}
}
