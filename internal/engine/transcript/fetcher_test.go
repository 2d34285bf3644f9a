package transcript

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"
)

// fakeSource answers from a table keyed by "lang|kind".
type fakeSource struct {
	name  string
	resp  map[string][]Segment
	block map[string]bool

	mu    sync.Mutex
	calls []Request
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(ctx context.Context, req Request) ([]Segment, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()

	key := req.Language + "|" + string(req.Kind)
	if f.block[key] {
		// Never responds and ignores ctx.
		select {}
	}
	if segs, ok := f.resp[key]; ok {
		return segs, nil
	}
	return nil, errors.New("no captions for " + key)
}

func (f *fakeSource) Calls() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.calls...)
}

func testConfig() Config {
	return Config{
		Languages:         []string{"aa", "bb", "cc"},
		FallbackLanguages: []string{"en", "en-US"},
		PrimaryTimeout:    time.Second,
		FallbackTimeout:   50 * time.Millisecond,
	}
}

const testURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

func TestFetchPrimaryFirstSuccessWins(t *testing.T) {
	primary := &fakeSource{name: "primary", resp: map[string][]Segment{
		"cc|": {{Text: "Hello "}, {Text: " world"}},
	}}
	secondary := &fakeSource{name: "secondary"}

	res, err := New(testConfig(), primary, secondary).Fetch(context.Background(), testURL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "Hello world" {
		t.Errorf("text = %q, want %q", res.Text, "Hello world")
	}
	if res.Provenance.Source != "primary" || res.Provenance.Language != "cc" {
		t.Errorf("provenance = %+v", res.Provenance)
	}
	if res.VideoID != "dQw4w9WgXcQ" || res.URL != testURL {
		t.Errorf("id/url = %q %q", res.VideoID, res.URL)
	}
	if res.Segments != 2 {
		t.Errorf("segments = %d, want 2", res.Segments)
	}

	// default, aa, bb failed before cc.
	if n := len(primary.Calls()); n != 4 {
		t.Errorf("primary calls = %d, want 4", n)
	}
	if n := len(secondary.Calls()); n != 0 {
		t.Errorf("secondary should not be called, got %d", n)
	}
}

func TestFetchFirstNotBest(t *testing.T) {
	primary := &fakeSource{name: "primary", resp: map[string][]Segment{
		"aa|": {{Text: "short"}},
		"bb|": {{Text: "a much longer and better transcript"}},
	}}
	res, err := New(testConfig(), primary, nil).Fetch(context.Background(), testURL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "short" {
		t.Errorf("text = %q, want first success", res.Text)
	}
}

func TestFetchExplicitPreferenceFirst(t *testing.T) {
	primary := &fakeSource{name: "primary", resp: map[string][]Segment{
		"de|": {{Text: "Hallo"}},
		"aa|": {{Text: "other"}},
	}}
	res, err := New(testConfig(), primary, nil).Fetch(context.Background(), testURL, "de")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Provenance.Language != "de" {
		t.Errorf("language = %q, want de", res.Provenance.Language)
	}
	if calls := primary.Calls(); len(calls) != 1 || calls[0].Language != "de" {
		t.Errorf("calls = %+v", calls)
	}
}

func TestFetchDefaultTrackLanguage(t *testing.T) {
	primary := &fakeSource{name: "primary", resp: map[string][]Segment{
		"|": {{Text: "bonjour", Language: "fr"}},
	}}
	res, err := New(testConfig(), primary, nil).Fetch(context.Background(), testURL, LangAuto)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Provenance.Language != "fr" {
		t.Errorf("language = %q, want fr", res.Provenance.Language)
	}
}

func TestFetchEmptySegmentsTreatedAsFailure(t *testing.T) {
	primary := &fakeSource{name: "primary", resp: map[string][]Segment{
		"|":   {},
		"aa|": {{Text: "  "}, {Text: "\n"}},
		"bb|": {{Text: "ok"}},
	}}
	res, err := New(testConfig(), primary, nil).Fetch(context.Background(), testURL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Provenance.Language != "bb" {
		t.Errorf("language = %q, want bb", res.Provenance.Language)
	}
}

func TestFetchSecondaryOrder(t *testing.T) {
	primary := &fakeSource{name: "primary"}
	secondary := &fakeSource{name: "secondary", resp: map[string][]Segment{
		"en-US|asr": {{Text: "foo"}, {Text: "bar"}},
	}}
	res, err := New(testConfig(), primary, secondary).Fetch(context.Background(), testURL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "foo bar" {
		t.Errorf("text = %q", res.Text)
	}
	want := Provenance{Source: "secondary", Language: "en-US", CaptionType: KindASR}
	if res.Provenance != want {
		t.Errorf("provenance = %+v, want %+v", res.Provenance, want)
	}

	got := secondary.Calls()
	order := []Request{
		{VideoID: "dQw4w9WgXcQ", Language: "en", Kind: KindUploaded},
		{VideoID: "dQw4w9WgXcQ", Language: "en", Kind: KindASR},
		{VideoID: "dQw4w9WgXcQ", Language: "en-US", Kind: KindUploaded},
		{VideoID: "dQw4w9WgXcQ", Language: "en-US", Kind: KindASR},
	}
	if !reflect.DeepEqual(got, order) {
		t.Errorf("secondary calls = %+v\nwant %+v", got, order)
	}
}

func TestFetchExhausted(t *testing.T) {
	primary := &fakeSource{name: "primary"}
	secondary := &fakeSource{name: "secondary"}

	_, err := New(testConfig(), primary, secondary).Fetch(context.Background(), testURL, "zz")
	if !errors.Is(err, ErrNoTranscript) {
		t.Fatalf("expected ErrNoTranscript, got %v", err)
	}
	var ue *UnavailableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UnavailableError, got %T", err)
	}
	// zz, default, aa, bb, cc + 2 langs x 2 kinds.
	if ue.Attempts != 9 {
		t.Errorf("attempts = %d, want 9", ue.Attempts)
	}
	if ue.Last == nil {
		t.Error("expected last failure to be recorded")
	}
	if errors.Is(err, ErrInvalidReference) {
		t.Error("exhaustion must not look like an invalid reference")
	}
}

func TestFetchInvalidReference(t *testing.T) {
	primary := &fakeSource{name: "primary"}
	_, err := New(testConfig(), primary, nil).Fetch(context.Background(), "https://example.com/nothing")
	if !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}
	if len(primary.Calls()) != 0 {
		t.Error("sources must not be queried for an invalid reference")
	}
}

func TestFetchIdempotent(t *testing.T) {
	primary := &fakeSource{name: "primary", resp: map[string][]Segment{
		"bb|": {{Text: "same"}, {Text: "text"}},
	}}
	f := New(testConfig(), primary, nil)

	first, err := f.Fetch(context.Background(), testURL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 3; i++ {
		again, err := f.Fetch(context.Background(), testURL)
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Errorf("call %d: %+v != %+v", i, again, first)
		}
	}
}

func TestFetchSecondaryTimeout(t *testing.T) {
	primary := &fakeSource{name: "primary"}
	secondary := &fakeSource{
		name:  "secondary",
		block: map[string]bool{"en|uploaded": true},
		resp:  map[string][]Segment{"en|asr": {{Text: "recovered"}}},
	}

	start := time.Now()
	res, err := New(testConfig(), primary, secondary).Fetch(context.Background(), testURL)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "recovered" {
		t.Errorf("text = %q", res.Text)
	}
	if elapsed > 2*time.Second {
		t.Errorf("pipeline blocked for %v", elapsed)
	}
}

func TestFetchParentCancelled(t *testing.T) {
	primary := &fakeSource{name: "primary", resp: map[string][]Segment{"aa|": {{Text: "x"}}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(testConfig(), primary, nil).Fetch(ctx, testURL)
	if !errors.Is(err, ErrNoTranscript) {
		t.Fatalf("expected ErrNoTranscript, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected cancellation as last failure, got %v", err)
	}
	if len(primary.Calls()) != 0 {
		t.Error("no attempts expected after cancellation")
	}
}

func TestJoinSegments(t *testing.T) {
	tests := []struct {
		in   []Segment
		want string
	}{
		{nil, ""},
		{[]Segment{{Text: "Hello "}, {Text: " world"}}, "Hello world"},
		{[]Segment{{Text: "a\n\nb"}, {Text: "\tc  "}}, "a b c"},
		{[]Segment{{Text: "   "}}, ""},
	}
	for _, tt := range tests {
		if got := JoinSegments(tt.in); got != tt.want {
			t.Errorf("JoinSegments(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
