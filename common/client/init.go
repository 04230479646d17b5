package client

import (
	"net/http"
	"time"

	"github.com/adcanvas/adcanvas/common/config"
)

var (
	// HTTPClient is the shared client for outbound model-provider requests.
	HTTPClient *http.Client
	// UserContentRequestHTTPClient fetches stored assets and other user-visible
	// content; always bounded so a stuck upstream cannot pin a proxy request.
	UserContentRequestHTTPClient *http.Client
)

func Init() {
	if config.UserContentRequestTimeout > 0 {
		UserContentRequestHTTPClient = &http.Client{
			Timeout: time.Second * time.Duration(config.UserContentRequestTimeout),
		}
	} else {
		UserContentRequestHTTPClient = &http.Client{}
	}

	if config.RelayTimeout == 0 {
		HTTPClient = &http.Client{}
	} else {
		HTTPClient = &http.Client{
			Timeout: time.Duration(config.RelayTimeout) * time.Second,
		}
	}
}
