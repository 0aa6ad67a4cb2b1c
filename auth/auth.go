package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"melodia/apperrors"
	"melodia/models"

	restful "github.com/emicklei/go-restful/v3"
	"github.com/golang-jwt/jwt/v4"
)

// mySigningKey should be a strong, randomly generated secret key,
// and it should be stored securely (e.g., in environment variables,
// a key management service, etc.), NOT hardcoded in your source code.
var mySigningKey = []byte("mySigningKey")

// tokenTTL is how long issued tokens stay valid.
var tokenTTL = 8 * time.Hour

// SetSigningKey allows setting the key from outside the package.
func SetSigningKey(key []byte) {
	if len(key) > 0 {
		mySigningKey = key
	}
}

// SetTokenTTL allows overriding the validity window from config.
func SetTokenTTL(ttl time.Duration) {
	if ttl > 0 {
		tokenTTL = ttl
	}
}

// CustomClaims is the identity payload carried by a verified credential.
type CustomClaims struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken creates a new JWT for the given user.
func GenerateToken(user *models.User) (string, error) {
	now := time.Now()
	claims := &CustomClaims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "melodia",
			Subject:   "user-auth",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(mySigningKey)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

// ParseAndValidateToken verifies a bearer token and returns its claims.
func ParseAndValidateToken(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return mySigningKey, nil
	})

	if err != nil {
		if ve, ok := err.(*jwt.ValidationError); ok {
			if ve.Errors&jwt.ValidationErrorMalformed != 0 {
				return nil, errors.New("malformed token")
			} else if ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0 {
				return nil, errors.New("token is either expired or not active yet")
			} else if ve.Errors&jwt.ValidationErrorSignatureInvalid != 0 {
				return nil, errors.New("invalid token signature")
			}
		}
		return nil, fmt.Errorf("couldn't handle this token: %w", err)
	}

	if claims, ok := token.Claims.(*CustomClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// AuthFilter creates the go-restful FilterFunction gating every mutating
// route. It is the only place authorization failures are written; handlers
// behind it can assume valid claims in the request attributes.
func AuthFilter() restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		authHeader := req.HeaderParameter("Authorization")
		if authHeader == "" {
			writeAuthError(resp, apperrors.MissingCredential())
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			writeAuthError(resp, apperrors.InvalidCredential("invalid authorization header format"))
			return
		}

		claims, err := ParseAndValidateToken(parts[1])
		if err != nil {
			writeAuthError(resp, apperrors.InvalidCredential(err.Error()))
			return
		}

		// Store the verified identity for subsequent handlers
		req.SetAttribute("user_id", claims.UserID)
		req.SetAttribute("role", claims.Role)

		chain.ProcessFilter(req, resp)
	}
}

func writeAuthError(resp *restful.Response, err *apperrors.Error) {
	_ = resp.WriteHeaderAndJson(err.HTTPStatus(), map[string]string{"message": err.Message}, restful.MIME_JSON)
}

// RequestingUserID extracts the identity set by AuthFilter.
func RequestingUserID(req *restful.Request) (uint, bool) {
	attr := req.Attribute("user_id")
	if attr == nil {
		return 0, false
	}
	id, ok := attr.(uint)
	return id, ok
}
