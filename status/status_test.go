package status

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func TestScanTopic(t *testing.T) {
	tests := []struct {
		name        string
		files       []string
		noDir       bool
		wantStatus  Status
		wantMissing string
	}{
		{
			name:       "missing dir",
			noDir:      true,
			wantStatus: NotStarted,
		},
		{
			name:       "finished without music",
			files:      []string{"final.mp4", "-1_captioned.png"},
			wantStatus: Finished,
		},
		{
			name:        "final without thumbnail",
			files:       []string{"final.mp4", "music.wav", "concat.mp4", "0_captioned.mp4", "1_captioned.mp4", "2_captioned.mp4"},
			wantStatus:  PartiallyDone,
			wantMissing: "-1",
		},
		{
			name:        "segment two missing",
			files:       []string{"-1_captioned.png", "0_captioned.mp4", "1_captioned.mp4"},
			wantStatus:  PartiallyDone,
			wantMissing: "-3 -2 2",
		},
		{
			name:       "empty dir",
			wantStatus: NotStarted,
		},
		{
			name:       "only run log and lock",
			files:      []string{"topic.log", ".run.lock"},
			wantStatus: NotStarted,
		},
		{
			name:        "final only",
			files:       []string{"final.mp4"},
			wantStatus:  PartiallyDone,
			wantMissing: "-3 -2 -1 0 1 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "topic")
			if !tt.noDir {
				if err := os.Mkdir(dir, 0o755); err != nil {
					t.Fatalf("mkdir: %v", err)
				}
				touch(t, dir, tt.files...)
			}

			got, missing := ScanTopic(dir, []int{2, 0, 1})
			if got != tt.wantStatus {
				t.Fatalf("expected %q, got %q", tt.wantStatus, got)
			}
			if strings.Join(missing, " ") != tt.wantMissing {
				t.Fatalf("expected missing %q, got %q", tt.wantMissing, strings.Join(missing, " "))
			}
		})
	}
}

func writeProposal(t *testing.T, dir, id, title string) {
	t.Helper()
	doc := `{"script":[{"index":0,"caption":"a","prompt":"p"},{"index":1,"caption":"b","prompt":"p"}],` +
		`"thumbnail":{"short_title":"s","long_title":"` + title + `","prompt":"p"}}`
	if err := os.WriteFile(filepath.Join(dir, id+".json"), []byte(doc), 0o644); err != nil {
		t.Fatalf("write proposal: %v", err)
	}
}

func TestReport(t *testing.T) {
	root := t.TempDir()
	outputs := filepath.Join(root, "outputs")
	proposals := filepath.Join(root, "proposals")
	for _, dir := range []string{outputs, proposals} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}

	writeProposal(t, proposals, "Space_shorts_1", "Black holes explained")
	writeProposal(t, proposals, "Space_shorts_2", "Neutron stars")
	writeProposal(t, proposals, "History_long_1", "Rome")

	finished := filepath.Join(outputs, "week_Space_shorts_1")
	partial := filepath.Join(outputs, "week_History_long_1")
	for _, dir := range []string{finished, partial} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	touch(t, finished, "final.mp4", "-1_captioned.png")
	touch(t, partial, "music.wav", "concat.mp4", "-1_captioned.png", "0_captioned.mp4")

	list := filepath.Join(root, "week.txt")
	content := "Shorts:\nSpace_shorts_1\n# Space_shorts_2 0 1\n\nLongs:\nHistory_long_1 -1\n"
	if err := os.WriteFile(list, []byte(content), 0o644); err != nil {
		t.Fatalf("write list: %v", err)
	}

	summary, err := Report(list, outputs, proposals)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}

	if len(summary.Shorts.Finished) != 1 || summary.Shorts.Finished[0] != `Space_shorts_1 "Black holes explained"` {
		t.Fatalf("unexpected finished shorts %v", summary.Shorts.Finished)
	}
	if len(summary.Shorts.NotStarted) != 1 || summary.Shorts.NotStarted[0] != "Space_shorts_2" {
		t.Fatalf("expected commented topic to be reported as not started, got %v", summary.Shorts.NotStarted)
	}
	if len(summary.Longs.PartiallyDone) != 1 || summary.Longs.PartiallyDone[0] != "History_long_1 1" {
		t.Fatalf("unexpected partial longs %v", summary.Longs.PartiallyDone)
	}

	text := summary.String()
	want := "# Shorts:\n\n# not started jobs:\n\nSpace_shorts_2\n\n# finished jobs:\n\n" +
		"Space_shorts_1 \"Black holes explained\"\n\n# Longs:\n\n# partially done jobs:\n\nHistory_long_1 1\n"
	if text != want {
		t.Fatalf("unexpected report:\n%s\nwant:\n%s", text, want)
	}
}

func TestReportMissingProposal(t *testing.T) {
	root := t.TempDir()
	list := filepath.Join(root, "week.txt")
	if err := os.WriteFile(list, []byte("Ghost_1\n"), 0o644); err != nil {
		t.Fatalf("write list: %v", err)
	}
	if _, err := Report(list, root, root); err == nil {
		t.Fatalf("expected error for a topic without a proposal")
	}
}

func TestTitles(t *testing.T) {
	dir := t.TempDir()
	writeProposal(t, dir, "b_2", "Second")
	writeProposal(t, dir, "a_1", "First")
	touch(t, dir, "notes.txt")
	if err := os.WriteFile(filepath.Join(dir, "c_3.json"), []byte("{broken"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "d_4.json"), []byte(`{"thumbnail":{}}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	titles, err := Titles(dir)
	if err != nil {
		t.Fatalf("Titles: %v", err)
	}
	got := RenderTitles(titles)
	want := "a_1.json: First\nb_2.json: Second\nError: Could not decode JSON in c_3.json\nWarning: No long title found in d_4.json\n"
	if got != want {
		t.Fatalf("unexpected titles:\n%s\nwant:\n%s", got, want)
	}
}
