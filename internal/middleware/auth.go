// Package middleware provides authentication, logging, tracing and rate
// limiting middleware for the Fiber application.
package middleware

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"farmlink/internal/authz"
	"farmlink/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Token issuer and audience shared by the issuer and the verifier.
const (
	TokenIssuer   = "farmlink-api"
	TokenAudience = "farmlink-client"
)

// Fiber locals populated by the authentication middleware.
const (
	LocalAccountID = "accountID"
	LocalClaims    = "claims"
	LocalPrincipal = "principal"
)

// RevocationChecker reports whether a token id was revoked by logout.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// RoleLookup loads the current role of an account from storage.
type RoleLookup func(ctx context.Context, accountID uint) (models.Role, bool, error)

// Authenticator validates bearer tokens.
type Authenticator struct {
	secret  []byte
	revoked RevocationChecker
	lookup  RoleLookup
}

// NewAuthenticator creates an Authenticator. revoked may be nil, in which
// case revocation is not checked.
func NewAuthenticator(secret string, revoked RevocationChecker) *Authenticator {
	return &Authenticator{secret: []byte(secret), revoked: revoked}
}

// WithAccountLookup makes every authenticated request re-read the account,
// so that deactivated or deleted accounts lose access on their next request.
func (a *Authenticator) WithAccountLookup(lookup RoleLookup) *Authenticator {
	a.lookup = lookup
	return a
}

// ParseToken verifies signature, expiry, issuer and audience and returns
// the registered claims.
func (a *Authenticator) ParseToken(tokenString string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	},
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// AccountID extracts the subject claim as an account id.
func AccountID(claims *jwt.RegisteredClaims) (uint, error) {
	id, err := strconv.ParseUint(claims.Subject, 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid subject claim")
	}
	return uint(id), nil
}

// authenticate resolves the request token into claims and an account id.
// The returned error is always an AppError suitable for the response.
func (a *Authenticator) authenticate(c *fiber.Ctx, allowQuery bool) (*jwt.RegisteredClaims, uint, error) {
	tokenString := bearerToken(c)
	if tokenString == "" && allowQuery {
		tokenString = c.Query("token")
	}
	if tokenString == "" {
		return nil, 0, models.NewUnauthorizedError("Authorization required")
	}

	claims, err := a.ParseToken(tokenString)
	if err != nil {
		return nil, 0, models.NewUnauthorizedError("Invalid or expired token")
	}
	accountID, err := AccountID(claims)
	if err != nil {
		return nil, 0, models.NewUnauthorizedError("Invalid user ID in token")
	}

	if a.revoked != nil && claims.ID != "" {
		revoked, err := a.revoked.IsRevoked(c.UserContext(), claims.ID)
		if err != nil {
			Logger.WarnContext(c.UserContext(), "token revocation check failed", "error", err)
		} else if revoked {
			return nil, 0, models.NewUnauthorizedError("Token has been revoked")
		}
	}
	return claims, accountID, nil
}

// principal re-reads the account behind a verified token. A missing or
// inactive account is unauthorized.
func (a *Authenticator) principal(ctx context.Context, accountID uint) (authz.Principal, error) {
	if a.lookup == nil {
		return authz.Principal{AccountID: accountID, Authenticated: true}, nil
	}
	role, active, err := a.lookup(ctx, accountID)
	if models.IsCode(err, models.CodeNotFound) || (err == nil && !active) {
		return authz.Anonymous, models.NewUnauthorizedError("Account is not active")
	}
	if err != nil {
		return authz.Anonymous, err
	}
	return authz.Principal{AccountID: accountID, Role: role, Authenticated: true}, nil
}

func (a *Authenticator) handler(allowQuery, optional bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, accountID, err := a.authenticate(c, allowQuery)
		if err != nil {
			if optional {
				return c.Next()
			}
			return RespondError(c, err)
		}

		principal, err := a.principal(c.UserContext(), accountID)
		if err != nil {
			if optional {
				if !models.IsCode(err, models.CodeUnauthorized) {
					Logger.WarnContext(c.UserContext(), "account lookup failed", "account_id", accountID, "error", err)
				}
				return c.Next()
			}
			return RespondError(c, err)
		}

		c.Locals(LocalAccountID, accountID)
		c.Locals(LocalClaims, claims)
		if a.lookup != nil {
			c.Locals(LocalPrincipal, principal)
		}
		// Sync to UserContext for logging and downstream services
		c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, accountID))
		return c.Next()
	}
}

// Required rejects requests without a valid bearer token.
func (a *Authenticator) Required() fiber.Handler {
	return a.handler(false, false)
}

// Optional attaches the account when a valid token is present and lets
// anonymous requests through otherwise.
func (a *Authenticator) Optional() fiber.Handler {
	return a.handler(false, true)
}

// WebSocket accepts the token from the Authorization header or the "token"
// query parameter, since browsers cannot set headers on upgrade requests.
func (a *Authenticator) WebSocket() fiber.Handler {
	return a.handler(true, false)
}

// AdminRequired rejects callers that are not administrators with a uniform
// 403. The role is re-read through lookup on every request unless Required
// already loaded it. Must be placed after Required.
func AdminRequired(lookup RoleLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal := authz.Anonymous
		if loaded, ok := c.Locals(LocalPrincipal).(authz.Principal); ok {
			principal = loaded
		} else if accountID, ok := CurrentAccountID(c); ok {
			role, active, err := lookup(c.UserContext(), accountID)
			if err != nil && !models.IsCode(err, models.CodeNotFound) {
				return RespondError(c, err)
			}
			if err == nil && active {
				principal = authz.Principal{AccountID: accountID, Role: role, Authenticated: true}
			}
		}

		if !authz.CanAdminister(principal) {
			return RespondError(c, models.NewForbiddenError())
		}
		c.Locals(LocalPrincipal, principal)
		return c.Next()
	}
}

// CurrentAccountID returns the authenticated account id, if any.
func CurrentAccountID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals(LocalAccountID).(uint)
	return id, ok && id != 0
}

// CurrentClaims returns the verified token claims, if any.
func CurrentClaims(c *fiber.Ctx) *jwt.RegisteredClaims {
	claims, _ := c.Locals(LocalClaims).(*jwt.RegisteredClaims)
	return claims
}

func bearerToken(c *fiber.Ctx) string {
	parts := strings.Fields(c.Get(fiber.HeaderAuthorization))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// RespondError writes err as the standard error body. Errors that are not
// AppErrors are logged and reported as internal errors.
func RespondError(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		appErr = models.NewInternalError(err)
	}
	status := appErr.HTTPStatus()
	if status >= fiber.StatusInternalServerError {
		Logger.ErrorContext(c.UserContext(), "request error",
			"code", appErr.Code,
			"path", c.Path(),
			"error", appErr.Error(),
		)
	}
	return c.Status(status).JSON(appErr.Response())
}
