package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTestDoc(t *testing.T, dir, name string, fm *Frontmatter, body string) string {
	t.Helper()
	doc, err := RenderFrontmatter(fm, body)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPublishArticlesCopiesOnlyReleased(t *testing.T) {
	inputRoot := t.TempDir()
	siteDir := t.TempDir()

	released := writeTestDoc(t, inputRoot, "ja.md", &Frontmatter{
		Title: "Ja", Slug: "ja", Use: true, CreatedAt: "2026-08-30 10:00:00",
	}, "Wird veröffentlicht.\n")
	writeTestDoc(t, inputRoot, "nein.md", &Frontmatter{
		Title: "Nein", Slug: "nein", Use: false, CreatedAt: "2026-08-30 10:00:00",
	}, "Bleibt liegen.\n")

	if err := PublishArticles(inputRoot, siteDir); err != nil {
		t.Fatalf("PublishArticles() error = %v", err)
	}

	published := filepath.Join(siteDir, "content", "ja.md")
	got, err := os.ReadFile(published)
	if err != nil {
		t.Fatalf("released article not copied: %v", err)
	}
	want, err := os.ReadFile(released)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(want) {
		t.Error("published copy differs from source")
	}

	if _, err := os.Stat(filepath.Join(siteDir, "content", "nein.md")); !os.IsNotExist(err) {
		t.Error("unreleased article was published")
	}
}

func TestPublishArticlesIgnoresBodyUseFlag(t *testing.T) {
	inputRoot := t.TempDir()
	siteDir := t.TempDir()

	writeTestDoc(t, inputRoot, "nein.md", &Frontmatter{
		Title: "Nein", Slug: "nein", Use: false,
	}, "Text mit\nuse: true\nim Fließtext.\n")

	if err := PublishArticles(inputRoot, siteDir); err != nil {
		t.Fatalf("PublishArticles() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(siteDir, "content", "nein.md")); !os.IsNotExist(err) {
		t.Error("body text flipped the release decision")
	}
}

func TestPublishArticlesCopiesAssets(t *testing.T) {
	inputRoot := t.TempDir()
	siteDir := t.TempDir()

	writeTestDoc(t, inputRoot, "artikel.md", &Frontmatter{
		Title: "Artikel", Slug: "artikel", Use: true,
		Thumbnail: "/images/thumbnails/artikel.webp",
	}, "![Foto](/images/foto.webp)\n")

	imagesDir := filepath.Join(inputRoot, "images")
	if err := os.MkdirAll(imagesDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(imagesDir, "artikel.webp"), []byte("thumb"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(imagesDir, "foto.webp"), []byte("inline"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := PublishArticles(inputRoot, siteDir); err != nil {
		t.Fatalf("PublishArticles() error = %v", err)
	}

	thumb := filepath.Join(siteDir, "public", "images", "thumbnails", "artikel.webp")
	if _, err := os.Stat(thumb); err != nil {
		t.Errorf("thumbnail not published to %s: %v", thumb, err)
	}

	inline := filepath.Join(siteDir, "public", "images", "foto.webp")
	if _, err := os.Stat(inline); err != nil {
		t.Errorf("inline image not published to %s: %v", inline, err)
	}
}

func TestPublishArticlesMissingThumbnailIsNotFatal(t *testing.T) {
	inputRoot := t.TempDir()
	siteDir := t.TempDir()

	writeTestDoc(t, inputRoot, "ohne.md", &Frontmatter{
		Title: "Ohne", Slug: "ohne", Use: true,
	}, "Kein Bild.\n")

	if err := PublishArticles(inputRoot, siteDir); err != nil {
		t.Fatalf("PublishArticles() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(siteDir, "content", "ohne.md")); err != nil {
		t.Errorf("article without thumbnail not published: %v", err)
	}
}
