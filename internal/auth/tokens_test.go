package auth

import (
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
)

func testRedis(t *testing.T) *redis.Client {
	t.Helper()

	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	if len(os.Getenv("ACCESS_SECRET")) < 32 || len(os.Getenv("REFRESH_SECRET")) < 32 {
		t.Skip("ACCESS_SECRET / REFRESH_SECRET not set")
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		t.Skipf("invalid REDIS_URL: %v", err)
	}
	return redis.NewClient(opts)
}

func TestIssueAndValidateTokenPair(t *testing.T) {
	rdb := testRedis(t)
	defer rdb.Close()

	pair, err := IssueTokenPair("token-test-user", "Jane Doe", rdb)
	if err != nil {
		t.Fatalf("IssueTokenPair: %v", err)
	}

	claims, err := ValidateAccessToken(pair.AccessToken, rdb)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if claims.UserID != "token-test-user" {
		t.Errorf("UserID = %q, want %q", claims.UserID, "token-test-user")
	}
	if claims.Name != "Jane Doe" {
		t.Errorf("Name = %q, want %q", claims.Name, "Jane Doe")
	}

	if _, err := ValidateRefreshToken(pair.RefreshToken, rdb); err != nil {
		t.Errorf("ValidateRefreshToken: %v", err)
	}
}

func TestRevokeAllUserTokens(t *testing.T) {
	rdb := testRedis(t)
	defer rdb.Close()

	// Two sessions for the target user and one for a bystander. Revoking
	// the target must kill both of its sessions and leave the other alone.
	target1, err := IssueTokenPair("revoke-test-user", "Jane Doe", rdb)
	if err != nil {
		t.Fatalf("IssueTokenPair: %v", err)
	}
	target2, err := IssueTokenPair("revoke-test-user", "Jane Doe", rdb)
	if err != nil {
		t.Fatalf("IssueTokenPair: %v", err)
	}
	other, err := IssueTokenPair("revoke-test-other", "John Roe", rdb)
	if err != nil {
		t.Fatalf("IssueTokenPair: %v", err)
	}

	if err := RevokeAllUserTokens("revoke-test-user", rdb); err != nil {
		t.Fatalf("RevokeAllUserTokens: %v", err)
	}

	for i, token := range []string{target1.AccessToken, target2.AccessToken} {
		if _, err := ValidateAccessToken(token, rdb); err == nil {
			t.Errorf("target access token %d still valid after revocation", i+1)
		}
	}
	for i, token := range []string{target1.RefreshToken, target2.RefreshToken} {
		if _, err := ValidateRefreshToken(token, rdb); err == nil {
			t.Errorf("target refresh token %d still valid after revocation", i+1)
		}
	}

	if _, err := ValidateAccessToken(other.AccessToken, rdb); err != nil {
		t.Errorf("bystander access token revoked: %v", err)
	}

	_ = RevokeAllUserTokens("revoke-test-other", rdb)
}
