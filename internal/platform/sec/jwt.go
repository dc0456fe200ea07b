// Copyright (c) 2026 DevSearch. All rights reserved.

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. It acts as an Infrastructure service injected into the
// Application layer via the accounts.TokenProvider interface.
//
// Verification here is signature + expiry only. Revocation is a separate
// concern owned by the refresh-token registry and composed by the service.
package sec

import (
	"crypto/rsa"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/devsearchhq/devsearch/pkg/uuid"
)

// Values of the "typ" claim. Both token kinds are signed with the same key
// pair, so the claim is what stops a refresh token from standing in as a
// bearer credential, and the other way around.
const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// AccessClaims represents the payload embedded inside a JWT access token.
//
// # Why custom claims?
//
// By embedding the account ID and username directly inside the JWT, the
// authentication middleware can reconstruct the caller's identity WITHOUT
// querying the database on every single API request.
type AccessClaims struct {
	jwt.RegisteredClaims

	// Custom application claims are abbreviated to keep the JWT payload small.
	UserID    string `json:"uid"`
	Username  string `json:"unm"`
	TokenType string `json:"typ"`
}

// RefreshClaims represents the payload embedded inside a JWT refresh token.
//
// The registered ID (jti) doubles as the revocation-registry key: every
// minted refresh token is recorded as outstanding under its jti.
type RefreshClaims struct {
	jwt.RegisteredClaims

	UserID    string `json:"uid"`
	TokenType string `json:"typ"`
}

// RefreshGrant is the result of minting a refresh token.
type RefreshGrant struct {
	Token     string
	TokenID   string
	ExpiresAt time.Time
}

// TokenService handles generation and verification of JWT tokens using RS256.
type TokenService struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	issuer     string
}

// NewTokenService creates a new TokenService.
// It reads RSA keys from the provided filesystem paths.
func NewTokenService(privateKeyPath, publicKeyPath, issuer string) (*TokenService, error) {
	privateKeyData, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to read private key from %s: %w", privateKeyPath, err)
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyData)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to parse private key: %w", err)
	}

	publicKeyData, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to read public key from %s: %w", publicKeyPath, err)
	}

	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyData)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to parse public key: %w", err)
	}

	return &TokenService{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
	}, nil
}

// GenerateAccessToken creates a new short-lived JWT access token for an account.
func (service *TokenService) GenerateAccessToken(accountID, username string, timeToLive time.Duration) (string, error) {
	currentTime := time.Now()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
		},
		UserID:    accountID,
		Username:  username,
		TokenType: tokenTypeAccess,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signedToken, err := token.SignedString(service.privateKey)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign access token: %w", err)
	}

	return signedToken, nil
}

// GenerateRefreshToken creates a new long-lived JWT refresh token.
//
// The jti is a fresh UUIDv7; the caller is responsible for registering it
// as outstanding in the revocation registry.
func (service *TokenService) GenerateRefreshToken(accountID string, timeToLive time.Duration) (*RefreshGrant, error) {
	currentTime := time.Now()
	expiresAt := currentTime.Add(timeToLive)
	tokenID := uuid.New()

	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Subject:   accountID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID:    accountID,
		TokenType: tokenTypeRefresh,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signedToken, err := token.SignedString(service.privateKey)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to sign refresh token: %w", err)
	}

	return &RefreshGrant{
		Token:     signedToken,
		TokenID:   tokenID,
		ExpiresAt: expiresAt,
	}, nil
}

// VerifyAccessToken checks the signature and validity of an access token string.
func (service *TokenService) VerifyAccessToken(tokenString string) (*AccessClaims, error) {
	token, err := service.parse(tokenString, &AccessClaims{})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("sec: invalid access token claims")
	}

	if claims.TokenType != tokenTypeAccess {
		return nil, fmt.Errorf("sec: token is not an access token")
	}

	return claims, nil
}

// VerifyRefreshToken checks the signature and validity of a refresh token string.
//
// It does NOT consult the revocation registry; callers compose that check.
func (service *TokenService) VerifyRefreshToken(tokenString string) (*RefreshClaims, error) {
	token, err := service.parse(tokenString, &RefreshClaims{})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*RefreshClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("sec: invalid refresh token claims")
	}

	if claims.TokenType != tokenTypeRefresh {
		return nil, fmt.Errorf("sec: token is not a refresh token")
	}

	if claims.ID == "" {
		return nil, fmt.Errorf("sec: refresh token missing jti")
	}

	return claims, nil
}

// parse runs the shared signature and expiry verification for both token types.
func (service *TokenService) parse(tokenString string, claims jwt.Claims) (*jwt.Token, error) {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return service.publicKey, nil
	})

	if err != nil {
		return nil, fmt.Errorf("sec: invalid token: %w", err)
	}

	return token, nil
}
