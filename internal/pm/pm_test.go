package pm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"toki/internal/logging"
	"toki/internal/storage"
)

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		seconds int64
		want    string
	}{
		{0, "0m"},
		{30, "0m"},
		{60, "1m"},
		{1800, "30m"},
		{3600, "1h"},
		{5400, "1h30m"},
		{5430, "1h30m"},
		{7200, "2h"},
	}
	for _, c := range cases {
		if got := FormatDuration(c.seconds); got != c.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", c.seconds, got, c.want)
		}
	}
}

func TestFakePagination(t *testing.T) {
	f := NewFake()
	f.PageSize = 2
	f.Issues["p1"] = []Issue{
		{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}, {ID: "e"},
	}

	ctx := context.Background()
	var all []Issue
	cursor := ""
	for {
		page, err := f.ListIssuesPaginated(ctx, "p1", cursor)
		if err != nil {
			t.Fatal(err)
		}
		all = append(all, page.Results...)
		if !page.NextPageResults {
			break
		}
		cursor = page.NextCursor
	}

	if len(all) != 5 {
		t.Fatalf("paginated %d issues, want 5", len(all))
	}
}

func TestBatchSyncContinuesPastFailures(t *testing.T) {
	f := NewFake()
	f.FailIDs["bad"] = true

	report, err := f.BatchSync(context.Background(), []TimeEntry{
		{WorkItemID: "good-1", DurationSeconds: 600},
		{WorkItemID: "bad", DurationSeconds: 300},
		{WorkItemID: "good-2", DurationSeconds: 900},
	})
	if err != nil {
		t.Fatal(err)
	}
	if report.Succeeded != 2 || report.Failed != 1 {
		t.Errorf("report = %+v", report)
	}
	if len(f.Entries) != 2 {
		t.Errorf("recorded %d entries", len(f.Entries))
	}
}

func TestPlaneListIssuesPaginated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		cursor := r.URL.Query().Get("cursor")
		resp := map[string]interface{}{}
		if cursor == "" {
			resp["results"] = []map[string]interface{}{
				{"id": "i1", "name": "First", "sequence_id": 1},
			}
			resp["next_cursor"] = "page2"
			resp["next_page_results"] = true
		} else {
			resp["results"] = []map[string]interface{}{
				{"id": "i2", "name": "Second", "sequence_id": 2},
			}
			resp["next_page_results"] = false
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewPlaneClient(&storage.IntegrationConfig{
		SystemType:    "plane",
		APIURL:        server.URL,
		APIKey:        "key",
		WorkspaceSlug: "acme",
	}, logging.Discard())

	ctx := context.Background()
	page1, err := client.ListIssuesPaginated(ctx, "proj", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(page1.Results) != 1 || !page1.NextPageResults {
		t.Fatalf("page1 = %+v", page1)
	}

	page2, err := client.ListIssuesPaginated(ctx, "proj", page1.NextCursor)
	if err != nil {
		t.Fatal(err)
	}
	if len(page2.Results) != 1 || page2.NextPageResults {
		t.Fatalf("page2 = %+v", page2)
	}
	if page2.Results[0].Name != "Second" {
		t.Errorf("issue = %+v", page2.Results[0])
	}
}

func TestPlaneValidateCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"results": []}`))
	}))
	defer server.Close()

	good := NewPlaneClient(&storage.IntegrationConfig{
		APIURL: server.URL, APIKey: "key", WorkspaceSlug: "acme",
	}, logging.Discard())
	ok, err := good.ValidateCredentials(context.Background())
	if err != nil || !ok {
		t.Errorf("ok=%v err=%v", ok, err)
	}

	bad := NewPlaneClient(&storage.IntegrationConfig{
		APIURL: server.URL, APIKey: "wrong", WorkspaceSlug: "acme",
	}, logging.Discard())
	ok, err = bad.ValidateCredentials(context.Background())
	if err != nil || ok {
		t.Errorf("ok=%v err=%v", ok, err)
	}
}

func TestNewUnknownSystem(t *testing.T) {
	_, err := New(&storage.IntegrationConfig{SystemType: "carrier-pigeon"}, logging.Discard())
	if err == nil {
		t.Fatal("expected error")
	}
}
