package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeGroupsFile(t *testing.T, store *StageStore, groups []ArticleGroup) string {
	t.Helper()
	data, err := json.Marshal(groups)
	if err != nil {
		t.Fatal(err)
	}
	path, err := store.WriteStage(StageGroups, "article_groups_test.json", data)
	if err != nil {
		t.Fatal(err)
	}
	return path
}

func writeRawArticle(t *testing.T, store *StageStore, rawID, content string) {
	t.Helper()
	if _, err := store.WriteStage(StageRawHTML, rawID+".html", []byte(content)); err != nil {
		t.Fatal(err)
	}
}

func readMergedArtifacts(t *testing.T, store *StageStore) map[string]string {
	t.Helper()
	paths, err := store.ReadStage(StageMerged, ".html")
	if err != nil {
		t.Fatal(err)
	}
	out := make(map[string]string, len(paths))
	for _, p := range paths {
		content, err := os.ReadFile(p)
		if err != nil {
			t.Fatal(err)
		}
		out[filepath.Base(p)] = string(content)
	}
	return out
}

func TestMergeGroupsSingletonMovedWithThumbnail(t *testing.T) {
	store := NewStageStore(t.TempDir())
	original := "<article>\n<h1>Titel</h1>\n<p>Inhalt.</p>\n</article>\n"
	writeRawArticle(t, store, "12345", original)

	groupsPath := writeGroupsFile(t, store, []ArticleGroup{
		{Title: "Titel", MemberIDs: []string{"12345"}, Thumbnail: "https://cdn.example.com/t.jpg"},
	})

	if err := MergeGroups(groupsPath, store); err != nil {
		t.Fatalf("MergeGroups() error = %v", err)
	}

	merged := readMergedArtifacts(t, store)
	content, ok := merged["12345.html"]
	if !ok {
		t.Fatalf("singleton artifact missing, got %v", merged)
	}
	want := "<img src='https://cdn.example.com/t.jpg'>\n" + original
	if content != want {
		t.Errorf("singleton content = %q, want thumbnail line plus untouched original", content)
	}

	if _, err := os.Stat(filepath.Join(store.Dir(StageRawHTML), "12345.html")); !os.IsNotExist(err) {
		t.Error("singleton original still present in raw stage")
	}
}

func TestMergeGroupsDemotesHeadingsOnce(t *testing.T) {
	store := NewStageStore(t.TempDir())
	writeRawArticle(t, store, "111", "<h1>A</h1><h2>A1</h2><p>a</p>")
	writeRawArticle(t, store, "222", "<h2>B1</h2><h2>B2</h2><p>b</p>")
	writeRawArticle(t, store, "333", "<h5>C</h5><h6>D</h6><p>c</p>")

	groupsPath := writeGroupsFile(t, store, []ArticleGroup{
		{Title: "Sammelthema <Eins>", MemberIDs: []string{"111", "222", "333"}, Thumbnail: "https://cdn.example.com/g.jpg"},
	})

	if err := MergeGroups(groupsPath, store); err != nil {
		t.Fatalf("MergeGroups() error = %v", err)
	}

	merged := readMergedArtifacts(t, store)
	if len(merged) != 1 {
		t.Fatalf("got %d merged artifacts, want 1", len(merged))
	}
	var name, content string
	for n, c := range merged {
		name, content = n, c
	}

	if !strings.HasPrefix(name, "merged-") {
		t.Errorf("merged artifact named %q, want merged-* prefix", name)
	}
	if !strings.HasPrefix(content, "<img src='https://cdn.example.com/g.jpg'>\n") {
		t.Errorf("merged artifact missing thumbnail line:\n%s", content)
	}
	if !strings.Contains(content, "<h1>Sammelthema &lt;Eins&gt;</h1>") {
		t.Errorf("group title not escaped as the single h1:\n%s", content)
	}

	// Each member heading moved down exactly one level; the only h1 left is
	// the group title.
	if strings.Count(content, "<h1>") != 1 {
		t.Errorf("want exactly one h1 (the group title), got:\n%s", content)
	}
	if !strings.Contains(content, "<h2>A</h2>") || !strings.Contains(content, "<h3>A1</h3>") {
		t.Errorf("first member headings not demoted once:\n%s", content)
	}
	if strings.Count(content, "<h3>B") != 2 {
		t.Errorf("second member h2s not both demoted to h3:\n%s", content)
	}
	if !strings.Contains(content, "<h6>C</h6>") || strings.Count(content, "<h6>D</h6>") != 1 {
		t.Errorf("h5 should demote to h6 and h6 should stay at the ceiling:\n%s", content)
	}

	for _, rawID := range []string{"111", "222", "333"} {
		if _, err := os.Stat(filepath.Join(store.Dir(StageRawHTML), rawID+".html")); !os.IsNotExist(err) {
			t.Errorf("original %s.html not deleted after merge", rawID)
		}
	}
}

func TestMergeGroupsSkipsMissingMembers(t *testing.T) {
	store := NewStageStore(t.TempDir())
	writeRawArticle(t, store, "111", "<h2>A</h2><p>a</p>")

	groupsPath := writeGroupsFile(t, store, []ArticleGroup{
		{Title: "Thema", MemberIDs: []string{"111", "999"}, Thumbnail: "https://cdn.example.com/g.jpg"},
	})

	if err := MergeGroups(groupsPath, store); err != nil {
		t.Fatalf("MergeGroups() error = %v", err)
	}

	merged := readMergedArtifacts(t, store)
	if len(merged) != 1 {
		t.Fatalf("got %d merged artifacts, want 1", len(merged))
	}
	for _, content := range merged {
		if !strings.Contains(content, "<h3>A</h3>") {
			t.Errorf("surviving member not present:\n%s", content)
		}
	}
}

func TestMergeGroupsAllMembersMissingProducesNothing(t *testing.T) {
	store := NewStageStore(t.TempDir())

	groupsPath := writeGroupsFile(t, store, []ArticleGroup{
		{Title: "Leer", MemberIDs: []string{"777", "888"}, Thumbnail: "https://cdn.example.com/g.jpg"},
	})

	if err := MergeGroups(groupsPath, store); err != nil {
		t.Fatalf("MergeGroups() error = %v", err)
	}

	if merged := readMergedArtifacts(t, store); len(merged) != 0 {
		t.Errorf("got %d merged artifacts, want none", len(merged))
	}
}
