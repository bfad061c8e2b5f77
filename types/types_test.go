package types

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestStageArtifactAndKey(t *testing.T) {
	dir := "out"
	cases := []struct {
		name      string
		stage     Stage
		wantPath  string
		wantKey   string
		wantIndex int
	}{
		{"thumbnail", ThumbnailStage(), filepath.Join(dir, "-1_captioned.png"), "thumbnail", -1},
		{"segment", SegmentStage(3), filepath.Join(dir, "3_captioned.mp4"), "3", 3},
		{"concat", ConcatStage(), filepath.Join(dir, "concat.mp4"), "concat_music_youtube", -2},
		{"music", MusicStage(), filepath.Join(dir, "music.wav"), "concat_music_youtube", -3},
		{"final", FinalStage(), filepath.Join(dir, "final.mp4"), "concat_music_youtube", NoIndex},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.stage.Artifact(dir); got != c.wantPath {
				t.Fatalf("Artifact() = %q; want %q", got, c.wantPath)
			}
			if got := c.stage.Key(); got != c.wantKey {
				t.Fatalf("Key() = %q; want %q", got, c.wantKey)
			}
			if got := c.stage.Index(); got != c.wantIndex {
				t.Fatalf("Index() = %d; want %d", got, c.wantIndex)
			}
		})
	}
}

func TestTopicAllows(t *testing.T) {
	all := Topic{ID: "t"}
	if !all.Allows(7) || !all.Allows(ThumbnailIndex) {
		t.Fatalf("topic without allow-list should allow everything")
	}
	if all.Explicit(7) {
		t.Fatalf("topic without allow-list should not mark anything explicit")
	}

	some := Topic{ID: "t", Indices: []int{2, -1}}
	if !some.Allows(2) || !some.Explicit(-1) {
		t.Fatalf("allow-list should admit 2 and -1")
	}
	if some.Allows(1) || some.Allows(ConcatIndex) {
		t.Fatalf("allow-list should reject 1 and -2")
	}
	if got := some.String(); got != "t 2 -1" {
		t.Fatalf("String() = %q", got)
	}
}

func TestFailureRecordKeepsOrder(t *testing.T) {
	var r FailureRecord
	r.Add("thumbnail", "boom")
	r.Add("2", "first")
	r.Add("0", "zero")
	r.Add("2", "second")

	keys := r.Keys()
	want := []string{"thumbnail", "2", "0"}
	if len(keys) != len(want) {
		t.Fatalf("Keys() = %v; want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("Keys() = %v; want %v", keys, want)
		}
	}
	if trace, _ := r.Get("2"); trace != "second" {
		t.Fatalf("Get(2) = %q; want second", trace)
	}

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"thumbnail":"boom","2":"second","0":"zero"}` {
		t.Fatalf("unexpected JSON %s", data)
	}

	var back FailureRecord
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := back.Keys(); len(got) != 3 || got[0] != "thumbnail" || got[1] != "2" || got[2] != "0" {
		t.Fatalf("decoded keys %v", got)
	}
	if err := json.Unmarshal([]byte(`["x"]`), &back); err == nil {
		t.Fatalf("expected error for a non-object record")
	}
}

func TestChunkJSONShape(t *testing.T) {
	data := []byte(`{"text":"hi there","chunks":[{"text":"hi","timestamp":[0.0,0.4]},{"text":"there","timestamp":[0.4,null]}]}`)
	tc, err := ParseTimedCaption(data)
	if err != nil {
		t.Fatalf("ParseTimedCaption: %v", err)
	}
	if len(tc.Chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(tc.Chunks))
	}
	if tc.Chunks[1].End != nil {
		t.Fatalf("expected open end on last chunk")
	}
	if got := tc.Chunks[1].EndOr(1.5); got != 1.5 {
		t.Fatalf("EndOr = %v; want 1.5", got)
	}

	if _, err := ParseTimedCaption([]byte(`{"text":"","chunks":[]}`)); err == nil {
		t.Fatalf("expected error for empty chunks")
	}
}

func TestLoadProposalLegacyKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topic.json")
	doc := `{"proposal":[{"index":0,"caption":"Hello world","prompt":"a cat"}],"thumbnail":{"short_title":"S","long_title":"Long","prompt":"p"}}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	p, err := LoadProposal(path)
	if err != nil {
		t.Fatalf("LoadProposal: %v", err)
	}
	if len(p.Script) != 1 || p.Script[0].Narration() != "Hello world" {
		t.Fatalf("legacy script not loaded: %+v", p.Script)
	}
	if p.Thumbnail.LongTitle != "Long" {
		t.Fatalf("thumbnail not loaded: %+v", p.Thumbnail)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
