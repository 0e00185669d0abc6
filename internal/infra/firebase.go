// README: Token verifiers guarding admin endpoints (Firebase Admin SDK or a shared static token).
package infra

import (
	"context"
	"crypto/subtle"
	"errors"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/rotisserie/eris"
	"google.golang.org/api/option"
)

var ErrInvalidToken = errors.New("invalid token")

// FirebaseToken holds the verified token data; the admin middleware reads the "role" claim.
type FirebaseToken struct {
	UID    string
	Claims map[string]interface{}
}

// Role returns the string "role" claim, or "" when absent.
func (t *FirebaseToken) Role() string {
	role, _ := t.Claims["role"].(string)
	return role
}

type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*FirebaseToken, error)
}

type firebaseVerifier struct {
	client *auth.Client
}

// NewFirebaseVerifier builds a verifier on the Firebase Admin SDK. An empty
// credentialsFile falls back to application-default credentials.
func NewFirebaseVerifier(ctx context.Context, projectID, credentialsFile string) (TokenVerifier, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, eris.Wrap(err, "firebase: new app")
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "firebase: auth client")
	}
	return &firebaseVerifier{client: client}, nil
}

func (v *firebaseVerifier) VerifyIDToken(ctx context.Context, idToken string) (*FirebaseToken, error) {
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, eris.Wrap(ErrInvalidToken, err.Error())
	}
	return &FirebaseToken{UID: token.UID, Claims: token.Claims}, nil
}

// StaticVerifier accepts a single shared token and grants it the admin role.
type StaticVerifier struct {
	token string
}

func NewStaticVerifier(token string) *StaticVerifier {
	return &StaticVerifier{token: token}
}

func (v *StaticVerifier) VerifyIDToken(_ context.Context, idToken string) (*FirebaseToken, error) {
	if v.token == "" || subtle.ConstantTimeCompare([]byte(v.token), []byte(idToken)) != 1 {
		return nil, ErrInvalidToken
	}
	return &FirebaseToken{UID: "static-admin", Claims: map[string]interface{}{"role": "admin"}}, nil
}

// DenyAll rejects every token; used when no admin credentials are configured.
type DenyAll struct{}

func (DenyAll) VerifyIDToken(context.Context, string) (*FirebaseToken, error) {
	return nil, ErrInvalidToken
}
