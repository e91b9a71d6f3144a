// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/campusarena/potm-voting/cliparse"
	"github.com/campusarena/potm-voting/db"
	"github.com/campusarena/potm-voting/models"
	"github.com/campusarena/potm-voting/store"
	"github.com/campusarena/potm-voting/voting"
)

// TestAdminSalt is the admin key salt used by GetTestConfig
const TestAdminSalt = "test-admin-salt"

// SetupTestDB opens a fresh SQLite database with the full schema. When
// TEST_DATABASE_URL is set it uses that PostgreSQL database instead, after
// dropping every table.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	if url := os.Getenv("TEST_DATABASE_URL"); url != "" {
		conn, err := db.Open(db.TypePostgres, url)
		if err != nil {
			t.Fatalf("Failed to open test database: %v", err)
		}
		_, err = conn.Exec(`
			DROP TABLE IF EXISTS player_badge CASCADE;
			DROP TABLE IF EXISTS player_stats CASCADE;
			DROP TABLE IF EXISTS vote CASCADE;
			DROP TABLE IF EXISTS match_session CASCADE;
		`)
		if err != nil {
			t.Fatalf("Failed to clean database: %v", err)
		}
		if err := db.CreateSchema(conn); err != nil {
			t.Fatalf("Failed to create schema: %v", err)
		}
		return conn
	}

	conn, err := db.Open(db.TypeSQLite, "file:"+filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return conn
}

// NewTestService returns a voting service on a fresh in-memory store
func NewTestService(t *testing.T, opts ...voting.Option) *voting.Service {
	t.Helper()
	return voting.NewService(store.NewMemoryStore(), opts...)
}

// NewSQLTestService returns a voting service backed by SetupTestDB. The
// database is closed when the test ends.
func NewSQLTestService(t *testing.T, opts ...voting.Option) *voting.Service {
	t.Helper()
	conn := SetupTestDB(t)
	t.Cleanup(func() { conn.Close() })
	return voting.NewService(store.NewSQLStore(conn), opts...)
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:         3318,
		DatabaseType: cliparse.DatabaseMemory,
		KafkaTopic:   "potm-votes",
		RateLimit:    10,
		RateWindow:   time.Minute,
		IdentityMode: cliparse.IdentityNetwork,
		AdminKeySalt: TestAdminSalt,
		LogLevel:     "info",
	}
}

// CastTestVotes submits one vote per player ID, each from a distinct voter
// named "<matchID>-voter-<i>"
func CastTestVotes(t *testing.T, svc *voting.Service, matchID string, playerIDs ...string) {
	t.Helper()

	for i, pid := range playerIDs {
		_, err := svc.SubmitVote(t.Context(), voting.Ballot{
			MatchID:    matchID,
			PlayerID:   pid,
			PlayerName: "Player " + pid,
			Team:       "Test FC",
			Role:       "Player",
			VoterID:    fmt.Sprintf("%s-voter-%d", matchID, i),
		})
		if err != nil {
			t.Fatalf("Failed to cast test vote %d: %v", i, err)
		}
	}
}

// VoteRequest builds a submission body for playerID
func VoteRequest(matchID, playerID string) models.SubmitVoteRequest {
	return models.SubmitVoteRequest{
		MatchID:    matchID,
		PlayerID:   playerID,
		PlayerName: "Player " + playerID,
		Team:       "Test FC",
		Role:       "Player",
	}
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
