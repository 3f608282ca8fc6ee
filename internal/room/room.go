// Package room is the seam to the real-time media layer. The session
// manager only ever provisions a room and mints access credentials; the
// actual audio transport belongs to an external component.
package room

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/voxprep/voxprep/internal/model"
)

// Room is one provisioned media room with its initial credentials.
type Room struct {
	ID               string `json:"id"`
	ParticipantToken string `json:"participant_token"`
	HostToken        string `json:"host_token"`
}

// Provider provisions rooms and issues credentials. The session manager
// treats implementations as opaque.
type Provider interface {
	CreateRoom(ctx context.Context, cfg model.InterviewConfig, participant string) (Room, error)
	IssueReconnectToken(ctx context.Context, roomID, participant string) (string, error)
}

// TokenProvider mints HS256-signed room tokens locally. It is the default
// Provider; a deployment fronted by a hosted media service would swap in a
// client for that service's API instead.
type TokenProvider struct {
	signingKey []byte
	ttl        time.Duration
}

// NewTokenProvider creates a provider signing with the given key. ttl
// bounds each credential's validity; zero defaults to two hours.
func NewTokenProvider(signingKey string, ttl time.Duration) (*TokenProvider, error) {
	if signingKey == "" {
		return nil, fmt.Errorf("room signing key is required")
	}
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &TokenProvider{signingKey: []byte(signingKey), ttl: ttl}, nil
}

func (p *TokenProvider) CreateRoom(_ context.Context, cfg model.InterviewConfig, participant string) (Room, error) {
	roomID := "interview-" + uuid.NewString()

	participantToken, err := p.mint(roomID, participant, false)
	if err != nil {
		return Room{}, err
	}
	hostToken, err := p.mint(roomID, "interviewer", true)
	if err != nil {
		return Room{}, err
	}
	return Room{ID: roomID, ParticipantToken: participantToken, HostToken: hostToken}, nil
}

// IssueReconnectToken mints a fresh credential for an existing room
// without touching any session state.
func (p *TokenProvider) IssueReconnectToken(_ context.Context, roomID, participant string) (string, error) {
	if roomID == "" {
		return "", fmt.Errorf("room id is required")
	}
	return p.mint(roomID, participant, false)
}

func (p *TokenProvider) mint(roomID, identity string, host bool) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"room": roomID,
		"sub":  identity,
		"host": host,
		"iat":  now.Unix(),
		"exp":  now.Add(p.ttl).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign room token: %w", err)
	}
	return token, nil
}

// Verify parses and validates a token minted by this provider, returning
// the room ID and identity. Used by the transport callback to check
// readiness signals.
func (p *TokenProvider) Verify(tokenString string) (roomID, identity string, err error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.signingKey, nil
	})
	if err != nil {
		return "", "", fmt.Errorf("parse room token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", "", fmt.Errorf("invalid room token")
	}
	roomID, _ = claims["room"].(string)
	identity, _ = claims["sub"].(string)
	return roomID, identity, nil
}
