package pipeline

import (
	"encoding/json"
	stderrors "errors"
	"testing"
)

func TestTracker(t *testing.T) {
	tr := NewTracker()

	if got := tr.Get("AAPL").State; got != Idle {
		t.Fatalf("unknown id should be idle, got %s", got)
	}
	if !tr.Start("AAPL") {
		t.Fatal("Start from idle should succeed")
	}
	if tr.Start("AAPL") {
		t.Error("Start while loading should report false")
	}
	tr.Finish("AAPL", nil)
	if got := tr.Get("AAPL").State; got != Loading {
		t.Errorf("state with one fetch still in flight = %s, want loading", got)
	}
	tr.Finish("AAPL", nil)
	if got := tr.Get("AAPL").State; got != Ready {
		t.Errorf("state = %s, want ready", got)
	}

	if !tr.Start("AAPL") {
		t.Fatal("Start from ready should succeed")
	}
	tr.Finish("AAPL", stderrors.New("boom"))
	st := tr.Get("AAPL")
	if st.State != Failed || st.Error != "boom" {
		t.Errorf("status = %+v, want failed/boom", st)
	}
}

func TestTrackerOverlappingFetches(t *testing.T) {
	tests := []struct {
		name   string
		first  error
		second error
		want   FetchState
	}{
		{"both succeed", nil, nil, Ready},
		{"last fails", nil, stderrors.New("boom"), Failed},
		{"first fails, last succeeds", stderrors.New("boom"), nil, Ready},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker()
			tr.Start("TSLA")
			tr.Start("TSLA")

			tr.Finish("TSLA", tt.first)
			if got := tr.Get("TSLA").State; got != Loading {
				t.Fatalf("after first finish state = %s, want loading", got)
			}
			tr.Finish("TSLA", tt.second)
			if got := tr.Get("TSLA").State; got != tt.want {
				t.Errorf("after last finish state = %s, want %s", got, tt.want)
			}
			if !tr.Start("TSLA") {
				t.Error("Start after all fetches finished should report true")
			}
		})
	}
}

func TestFetchStateJSON(t *testing.T) {
	data, err := json.Marshal(Status{State: Loading})
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got["state"] != "loading" {
		t.Errorf("state = %v, want loading", got["state"])
	}
}
