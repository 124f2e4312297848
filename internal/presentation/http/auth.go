package httppresentation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Zhima-Mochi/coffeeshop/internal/domain/identity"
	"github.com/Zhima-Mochi/coffeeshop/internal/observability"
	"github.com/Zhima-Mochi/coffeeshop/internal/observability/logctx"
	"github.com/golang-jwt/jwt/v5"
)

var errUnauthenticated = errors.New("missing or invalid bearer token")

// Authenticator verifies HS256 bearer tokens whose subject is the caller's
// address. It stands in for the wallet signature of an on-chain call.
type Authenticator struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewAuthenticator(secret, issuer string) *Authenticator {
	return &Authenticator{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// IssueToken signs a token for caller valid for ttl.
func (a *Authenticator) IssueToken(caller identity.Address, ttl time.Duration) (string, error) {
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   caller.String(),
		Issuer:    a.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify returns the caller address carried by a signed token.
func (a *Authenticator) Verify(raw string) (identity.Address, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	if _, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...); err != nil {
		return identity.Zero, err
	}
	return identity.ParseNonZero(claims.Subject)
}

// Require rejects requests without a valid bearer token and stores the caller
// in the context.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearer(r.Header.Get("Authorization"))
		if !ok {
			writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", errUnauthenticated.Error())
			return
		}
		caller, err := a.Verify(raw)
		if err != nil {
			logctx.From(r.Context()).Warn("auth_rejected", observability.F("error", err))
			writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", errUnauthenticated.Error())
			return
		}

		ctx := withCaller(r.Context(), caller)
		ctx = logctx.With(ctx, logctx.From(ctx).With(observability.F("caller", caller.String())))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearer(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

type callerKey struct{}

func withCaller(ctx context.Context, caller identity.Address) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFromContext returns the authenticated caller, if any.
func CallerFromContext(ctx context.Context) (identity.Address, bool) {
	caller, ok := ctx.Value(callerKey{}).(identity.Address)
	return caller, ok
}
