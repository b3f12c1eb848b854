package server

import (
	"context"
	"errors"

	"github.com/coreos/go-oidc/v3/oidc"
)

const (
	firebaseIssuerPrefix = "https://securetoken.google.com/"
	firebaseJWKSURL      = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"
)

// FirebaseIssuer is the iss claim of ID tokens minted for projectID.
func FirebaseIssuer(projectID string) string {
	return firebaseIssuerPrefix + projectID
}

// NewFirebaseVerifier verifies Firebase ID tokens for projectID against Google's published keys.
// The audience of a Firebase ID token is the project id.
func NewFirebaseVerifier(ctx context.Context, projectID string) (*oidc.IDTokenVerifier, error) {
	if projectID == "" {
		return nil, errors.New("[NewFirebaseVerifier] project id is required")
	}
	keySet := oidc.NewRemoteKeySet(ctx, firebaseJWKSURL)
	return oidc.NewVerifier(FirebaseIssuer(projectID), keySet, &oidc.Config{ClientID: projectID}), nil
}
