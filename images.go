package main

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// inlineImagePattern matches the two markup shapes carrying image URLs: the
// markdown bracketed-link form and the explicit img tag form.
var inlineImagePattern = regexp.MustCompile(`!\[[^\]]*\]\(([^)]*)\)|<img[^>]*?src=['"]([^'"]*)['"][^>]*?/?>`)

var unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// Hard cutoff for derived image filenames. Anything longer gets a
// hash-derived name to stay filesystem and git compatible.
const maxImageFilenameLength = 200

// ImageProcessor downloads every remote image a document references,
// transcodes it to WebP, and rewrites the references to local paths.
type ImageProcessor struct {
	client *http.Client

	// encode is the transcode routine, injectable for tests.
	encode func(ctx context.Context, src, dest string) error
}

// NewImageProcessor creates a processor using the cwebp encoder.
func NewImageProcessor() *ImageProcessor {
	encoder := NewWebPEncoder("", DefaultWebPOptions())
	return &ImageProcessor{
		client: &http.Client{Timeout: 10 * time.Second},
		encode: encoder.Encode,
	}
}

// LocalizeAll runs image localization over every translated document.
// Per-document failures are logged and skipped.
func (p *ImageProcessor) LocalizeAll(ctx context.Context, store *StageStore) error {
	paths, err := store.ReadStage(StageTranslated, ".md")
	if err != nil {
		return err
	}

	for _, mdPath := range paths {
		outPath, err := p.LocalizeFile(ctx, mdPath, store)
		if err != nil {
			log.Printf("✗ Failed to localize images in %s: %v", filepath.Base(mdPath), err)
		} else {
			log.Printf("✓ Localized images: %s", outPath)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

// LocalizeFile processes one translated document: the frontmatter thumbnail
// first, then inline images, then a sweep removing any remote reference that
// survived. The result is written into the images stage under the same name.
func (p *ImageProcessor) LocalizeFile(ctx context.Context, mdPath string, store *StageStore) (string, error) {
	content, err := os.ReadFile(mdPath)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", mdPath, err)
	}

	fm, body, err := ParseFrontmatter(string(content))
	if err != nil {
		return "", fmt.Errorf("parsing %s: %w", mdPath, err)
	}

	imagesDir := store.ImagesDir()
	if err := os.MkdirAll(imagesDir, 0755); err != nil {
		return "", fmt.Errorf("creating images directory: %w", err)
	}

	// Thumbnail processing always completes before inline processing.
	stem := strings.TrimSuffix(filepath.Base(mdPath), ".md")
	p.localizeThumbnail(ctx, fm, imagesDir, stem)

	body, downloaded := p.localizeInline(ctx, body, imagesDir, store)
	body, removed := RemoveRemoteImages(body)
	debugLog("%s: %d images downloaded, %d dangling references removed", filepath.Base(mdPath), downloaded, removed)

	doc, err := RenderFrontmatter(fm, body)
	if err != nil {
		return "", err
	}
	return store.WriteStage(StageImages, filepath.Base(mdPath), []byte(doc))
}

// localizeThumbnail downloads and transcodes the frontmatter thumbnail. On
// any failure the field is cleared: content must never reference an image
// that does not exist locally.
func (p *ImageProcessor) localizeThumbnail(ctx context.Context, fm *Frontmatter, imagesDir, stem string) {
	if fm.Thumbnail == "" || isLocalRef(fm.Thumbnail) {
		return
	}

	dest := filepath.Join(imagesDir, stem+".webp")
	if err := p.fetchAndTranscode(ctx, fm.Thumbnail, dest); err != nil {
		log.Printf("Warning: clearing thumbnail after failure: %v", err)
		fm.Thumbnail = ""
		return
	}
	// The published site serves thumbnails from this location.
	fm.Thumbnail = "/images/thumbnails/" + stem + ".webp"
}

// localizeInline downloads each unique remote inline image and substitutes
// its URL everywhere it occurs. URLs that fail map to the empty string and
// are swept away afterwards.
func (p *ImageProcessor) localizeInline(ctx context.Context, body, imagesDir string, store *StageStore) (string, int) {
	replacements := make(map[string]string)

	for _, imageURL := range extractImageURLs(body) {
		if isLocalRef(imageURL) {
			continue
		}

		name := safeImageFilename(imageURL)
		dest := filepath.Join(imagesDir, strings.TrimSuffix(name, filepath.Ext(name))+".webp")
		if err := p.fetchAndTranscode(ctx, imageURL, dest); err != nil {
			log.Printf("✗ Image %s: %v", imageURL, err)
			replacements[imageURL] = ""
			continue
		}

		// Site-absolute path below the images stage root, e.g.
		// /images/photo.webp.
		replacements[imageURL] = strings.TrimPrefix(filepath.ToSlash(dest), filepath.ToSlash(store.Dir(StageImages)))
	}

	downloaded := 0
	for imageURL, local := range replacements {
		body = strings.ReplaceAll(body, imageURL, local)
		if local != "" {
			downloaded++
		}
	}
	return body, downloaded
}

// fetchAndTranscode downloads a remote image to a temporary file and
// transcodes it into dest. The temporary download never survives, so a
// failure cannot leave a half-written image behind.
func (p *ImageProcessor) fetchAndTranscode(ctx context.Context, imageURL, dest string) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), "download-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := p.download(ctx, imageURL, tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return p.encode(ctx, tmpPath, dest)
}

func (p *ImageProcessor) download(ctx context.Context, imageURL string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", imageURL, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", imageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading %s: HTTP %d", imageURL, resp.StatusCode)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("saving %s: %w", imageURL, err)
	}
	return nil
}

// RemoveRemoteImages deletes every image reference whose URL is still remote
// or empty. This is the defense pass against partially-processed documents.
func RemoveRemoteImages(content string) (string, int) {
	removed := 0
	result := inlineImagePattern.ReplaceAllStringFunc(content, func(match string) string {
		sub := inlineImagePattern.FindStringSubmatch(match)
		imageURL := sub[1]
		if imageURL == "" {
			imageURL = sub[2]
		}
		if imageURL == "" || (strings.Contains(imageURL, "://") && !isLocalRef(imageURL)) {
			removed++
			return ""
		}
		return match
	})
	return result, removed
}

// extractImageURLs returns the unique image URLs referenced by a document
// body, in order of first occurrence.
func extractImageURLs(content string) []string {
	var urls []string
	seen := make(map[string]struct{})
	for _, match := range inlineImagePattern.FindAllStringSubmatch(content, -1) {
		imageURL := match[1]
		if imageURL == "" {
			imageURL = match[2]
		}
		if imageURL == "" {
			continue
		}
		if _, ok := seen[imageURL]; ok {
			continue
		}
		seen[imageURL] = struct{}{}
		urls = append(urls, imageURL)
	}
	return urls
}

// isLocalRef reports whether a reference already points at a local or
// relative path. Such references are never re-downloaded, which is what makes
// re-runs over partially processed directories safe.
func isLocalRef(ref string) bool {
	return strings.HasPrefix(ref, "/") || strings.HasPrefix(ref, ".") || strings.HasPrefix(ref, "data")
}

// safeImageFilename derives a filesystem-safe name for an image URL. Names
// beyond the length cutoff are replaced with a short hash-derived name
// keeping only the original extension; the hash guarantees two long URLs
// cannot collide.
func safeImageFilename(imageURL string) string {
	name := ""
	if parsed, err := url.Parse(imageURL); err == nil {
		name = path.Base(parsed.Path)
	} else {
		name = path.Base(imageURL)
	}
	if name == "." || name == "/" {
		name = ""
	}
	if filepath.Ext(name) == "" {
		name += ".jpg"
	}

	if len(name) > maxImageFilenameLength {
		ext := filepath.Ext(name)
		sum := md5.Sum([]byte(imageURL))
		name = fmt.Sprintf("img_%s%s", hex.EncodeToString(sum[:])[:8], ext)
	}

	return unsafeFilenameChars.ReplaceAllString(name, "_")
}
