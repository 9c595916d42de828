package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatReply(t *testing.T, content string) string {
	t.Helper()
	reply := map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"content": content}},
		},
	}
	encoded, err := json.Marshal(reply)
	require.NoError(t, err)
	return string(encoded)
}

func testPrefs() PreferenceSummary {
	return PreferenceSummary{
		Location:  "Koramangala",
		Cuisines:  []string{"Biryani"},
		MinRating: 4.0,
	}
}

func testCandidates() []CandidateSummary {
	return []CandidateSummary{
		{ID: "r1", Name: "Truffles", PriceBucket: "$$", AvgRating: 4.6, Cuisines: []string{"Burgers"}},
		{ID: "r2", Name: "Meghana Foods", PriceBucket: "$$", AvgRating: 4.4, Cuisines: []string{"Biryani"}},
	}
}

func TestGroqClient_RankAndExplain(t *testing.T) {
	t.Run("parses a valid ranking", func(t *testing.T) {
		var gotPath, gotAuth string
		var gotRequest map[string]interface{}

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotAuth = r.Header.Get("Authorization")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))

			fmt.Fprint(w, chatReply(t,
				`{"recommendations": [{"id": "r2", "reason": "best biryani nearby"}, {"id": "r1", "reason": "crowd favourite"}]}`))
		}))
		defer server.Close()

		client, err := NewGroqClient("test-key", WithBaseURL(server.URL))
		require.NoError(t, err)

		ranked, err := client.RankAndExplain(context.Background(), testPrefs(), testCandidates())
		require.NoError(t, err)
		require.Len(t, ranked, 2)
		assert.Equal(t, "r2", ranked[0].ID)
		assert.Equal(t, "best biryani nearby", ranked[0].Reason)

		assert.Equal(t, "/chat/completions", gotPath)
		assert.Equal(t, "Bearer test-key", gotAuth)
		assert.Equal(t, DefaultModel, gotRequest["model"])

		messages := gotRequest["messages"].([]interface{})
		require.Len(t, messages, 2)
		user := messages[1].(map[string]interface{})["content"].(string)
		assert.Contains(t, user, "Koramangala")
		assert.Contains(t, user, "| r1 | Truffles |")
	})

	t.Run("rejects content failing schema validation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, chatReply(t, `{"recommendations": [{"id": "", "reason": "empty id"}]}`))
		}))
		defer server.Close()

		client, err := NewGroqClient("test-key", WithBaseURL(server.URL))
		require.NoError(t, err)

		_, err = client.RankAndExplain(context.Background(), testPrefs(), testCandidates())
		assert.Error(t, err)
	})

	t.Run("rejects non-json content", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, chatReply(t, "Sure! Here are my picks: Meghana Foods first."))
		}))
		defer server.Close()

		client, err := NewGroqClient("test-key", WithBaseURL(server.URL))
		require.NoError(t, err)

		_, err = client.RankAndExplain(context.Background(), testPrefs(), testCandidates())
		assert.Error(t, err)
	})

	t.Run("propagates API errors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
		}))
		defer server.Close()

		client, err := NewGroqClient("test-key", WithBaseURL(server.URL))
		require.NoError(t, err)

		_, err = client.RankAndExplain(context.Background(), testPrefs(), testCandidates())
		assert.ErrorContains(t, err, "status 429")
	})

	t.Run("empty candidate pool short-circuits", func(t *testing.T) {
		client, err := NewGroqClient("test-key", WithBaseURL("http://127.0.0.1:0"))
		require.NoError(t, err)

		ranked, err := client.RankAndExplain(context.Background(), testPrefs(), nil)
		assert.NoError(t, err)
		assert.Nil(t, ranked)
	})

	t.Run("honours context cancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		defer server.Close()

		client, err := NewGroqClient("test-key", WithBaseURL(server.URL))
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err = client.RankAndExplain(ctx, testPrefs(), testCandidates())
		assert.Error(t, err)
	})
}
