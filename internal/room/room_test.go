package room

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/voxprep/voxprep/internal/model"
)

func testProvider(t *testing.T) *TokenProvider {
	t.Helper()
	p, err := NewTokenProvider("test-signing-key", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenProvider: %v", err)
	}
	return p
}

func TestNewTokenProviderRequiresKey(t *testing.T) {
	if _, err := NewTokenProvider("", time.Hour); err == nil {
		t.Fatal("empty signing key accepted")
	}
}

func TestCreateRoomMintsVerifiableTokens(t *testing.T) {
	p := testProvider(t)

	rm, err := p.CreateRoom(context.Background(), model.InterviewConfig{Topic: "Go"}, "alex")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if !strings.HasPrefix(rm.ID, "interview-") {
		t.Errorf("room ID = %q, want interview- prefix", rm.ID)
	}

	roomID, identity, err := p.Verify(rm.ParticipantToken)
	if err != nil {
		t.Fatalf("Verify participant token: %v", err)
	}
	if roomID != rm.ID || identity != "alex" {
		t.Errorf("participant token carries (%q, %q), want (%q, alex)", roomID, identity, rm.ID)
	}

	roomID, identity, err = p.Verify(rm.HostToken)
	if err != nil {
		t.Fatalf("Verify host token: %v", err)
	}
	if roomID != rm.ID || identity != "interviewer" {
		t.Errorf("host token carries (%q, %q)", roomID, identity)
	}
}

func TestIssueReconnectToken(t *testing.T) {
	p := testProvider(t)

	token, err := p.IssueReconnectToken(context.Background(), "interview-abc", "alex")
	if err != nil {
		t.Fatalf("IssueReconnectToken: %v", err)
	}
	roomID, identity, err := p.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if roomID != "interview-abc" || identity != "alex" {
		t.Errorf("reconnect token carries (%q, %q)", roomID, identity)
	}

	if _, err := p.IssueReconnectToken(context.Background(), "", "alex"); err == nil {
		t.Error("empty room ID accepted")
	}
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	p := testProvider(t)
	other, err := NewTokenProvider("a-different-key", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenProvider: %v", err)
	}

	token, err := other.IssueReconnectToken(context.Background(), "interview-abc", "alex")
	if err != nil {
		t.Fatalf("IssueReconnectToken: %v", err)
	}
	if _, _, err := p.Verify(token); err == nil {
		t.Fatal("token signed with a different key verified")
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	p, err := NewTokenProvider("test-signing-key", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenProvider: %v", err)
	}
	p.ttl = -time.Minute

	token, err := p.IssueReconnectToken(context.Background(), "interview-abc", "alex")
	if err != nil {
		t.Fatalf("IssueReconnectToken: %v", err)
	}
	if _, _, err := p.Verify(token); err == nil {
		t.Fatal("expired token verified")
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	p := testProvider(t)
	if _, _, err := p.Verify("not-a-jwt"); err == nil {
		t.Fatal("garbage token verified")
	}
}
