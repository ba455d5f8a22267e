package imapmail

import (
	"fmt"

	"github.com/emersion/go-sasl"
)

// xoauth2Client implements Gmail's XOAUTH2 SASL mechanism, which go-sasl
// does not ship (it only carries the standardized OAUTHBEARER).
type xoauth2Client struct {
	username string
	token    string
}

func newXOAuth2Client(username, token string) sasl.Client {
	return &xoauth2Client{username: username, token: token}
}

func (c *xoauth2Client) Start() (mech string, ir []byte, err error) {
	ir = []byte("user=" + c.username + "\x01auth=Bearer " + c.token + "\x01\x01")
	return "XOAUTH2", ir, nil
}

func (c *xoauth2Client) Next(challenge []byte) ([]byte, error) {
	// The server only sends a challenge on failure: a base64 JSON error
	// blob that expects an empty response. Surface it instead.
	return nil, fmt.Errorf("xoauth2: authentication error: %s", challenge)
}
