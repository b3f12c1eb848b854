package cli

import (
	"context"

	"github.com/brainbox-app/brainbox/auth"
)

// IDTokenGoogleSignIn stands in for the native Google SDK with an ID token obtained elsewhere,
// e.g. from gcloud or a browser flow.
type IDTokenGoogleSignIn struct {
	IDToken string
}

func (g *IDTokenGoogleSignIn) HasPlayServices(context.Context) error {
	return nil
}

func (g *IDTokenGoogleSignIn) SignIn(context.Context) (string, error) {
	if g.IDToken == "" {
		return "", &auth.SocialError{Code: auth.SocialCodeSignInCancelled, Message: "no Google ID token given"}
	}
	return g.IDToken, nil
}

func (g *IDTokenGoogleSignIn) SignOut(context.Context) error {
	return nil
}
