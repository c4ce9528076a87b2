package integration

import (
	"golang.org/x/oauth2"
)

// TokenStore keeps OAuth tokens obtained through the callback flow.
// Tokens live in memory only and are lost on restart.
type TokenStore interface {
	Save(provider string, token *oauth2.Token)
	Get(provider string) (*oauth2.Token, bool)
	List() map[string]*oauth2.Token
}
