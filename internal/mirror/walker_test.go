package mirror

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/extract"
	"github.com/starford/raido/internal/notion"
	"github.com/starford/raido/internal/notionmock"
	"github.com/starford/raido/internal/source"
	"github.com/starford/raido/internal/testutil"
)

type createCall struct {
	parent string
	title  string
	id     string
}

type fileRef struct {
	name string
	url  string
}

type fakePage struct {
	title  string
	chunks []string
	files  []fileRef
}

// fakeRemote records every call in order so tests can assert on the
// exact shape of the remote tree without a server.
type fakeRemote struct {
	mu     sync.Mutex
	nextID int
	pages  map[string]*fakePage

	creates         []createCall
	failCreateTitle string
	failAppendTitle string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{pages: make(map[string]*fakePage)}
}

func (f *fakeRemote) CreatePage(ctx context.Context, parentID, title string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreateTitle != "" && title == f.failCreateTitle {
		return "", fmt.Errorf("notion: create page %q: %w", title, apperr.ErrRemote)
	}
	f.nextID++
	id := fmt.Sprintf("page-%d", f.nextID)
	f.creates = append(f.creates, createCall{parent: parentID, title: title, id: id})
	f.pages[id] = &fakePage{title: title}
	return id, nil
}

func (f *fakeRemote) AppendText(ctx context.Context, pageID string, chunks []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pages[pageID]
	if !ok {
		return fmt.Errorf("notion: append text: unknown page %s: %w", pageID, apperr.ErrRemote)
	}
	if f.failAppendTitle != "" && p.title == f.failAppendTitle {
		return fmt.Errorf("notion: append text to %q: %w", p.title, apperr.ErrRemote)
	}
	p.chunks = append(p.chunks, chunks...)
	return nil
}

func (f *fakeRemote) AppendFile(ctx context.Context, pageID, name, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pages[pageID]
	if !ok {
		return fmt.Errorf("notion: append file: unknown page %s: %w", pageID, apperr.ErrRemote)
	}
	if f.failAppendTitle != "" && p.title == f.failAppendTitle {
		return fmt.Errorf("notion: append file to %q: %w", p.title, apperr.ErrRemote)
	}
	p.files = append(p.files, fileRef{name: name, url: url})
	return nil
}

// titles returns page titles in creation order.
func (f *fakeRemote) titles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.creates))
	for i, c := range f.creates {
		out[i] = c.title
	}
	return out
}

func (f *fakeRemote) page(t *testing.T, title string) *fakePage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.pages {
		if p.title == title {
			return p
		}
	}
	t.Fatalf("no page titled %q", title)
	return nil
}

// newTree builds a tree rooted at a directory named docs so page titles
// are deterministic.
func newTree(t *testing.T, files map[string]string) *source.Tree {
	t.Helper()
	root := filepath.Join(t.TempDir(), "docs")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	testutil.WriteTree(t, root, files)
	tree, err := source.NewTree(root)
	if err != nil {
		t.Fatal(err)
	}
	return tree
}

func mustMirror(t *testing.T, remote *fakeRemote, files map[string]string, opts Options) *Result {
	t.Helper()
	w := New(newTree(t, files), remote, extract.NewService(), opts)
	res, err := w.Mirror(context.Background(), "parent-0")
	if err != nil {
		t.Fatalf("Mirror: %v", err)
	}
	return res
}

func assertCreates(t *testing.T, remote *fakeRemote, want ...string) {
	t.Helper()
	got := remote.titles()
	if len(got) != len(want) {
		t.Fatalf("created pages %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("created pages %q, want %q", got, want)
		}
	}
}

func TestMirror_CreationOrderInterleavesFilesAndDirs(t *testing.T) {
	remote := newFakeRemote()
	res := mustMirror(t, remote, map[string]string{
		"b.md":      "bee",
		"sub/c.txt": "cee",
		"B.txt":     "caps",
		"z.txt":     "zee",
	}, Options{})

	// Byte order puts B.txt before b.md; sub descends before z.txt.
	assertCreates(t, remote, "docs", "B.txt", "b.md", "sub", "c.txt", "z.txt")

	rootID := remote.creates[0].id
	if res.RootPageID != rootID {
		t.Errorf("RootPageID = %q, want %q", res.RootPageID, rootID)
	}
	for _, c := range remote.creates[1:4] {
		if c.parent != rootID {
			t.Errorf("%s created under %q, want root %q", c.title, c.parent, rootID)
		}
	}
	subID := remote.creates[3].id
	if got := remote.creates[4]; got.parent != subID {
		t.Errorf("c.txt created under %q, want sub %q", got.parent, subID)
	}
	if got := remote.creates[5]; got.parent != rootID {
		t.Errorf("z.txt created under %q, want root %q", got.parent, rootID)
	}
	if res.Pages != 6 {
		t.Errorf("Pages = %d, want 6", res.Pages)
	}
}

func TestMirror_TextIsChunked(t *testing.T) {
	remote := newFakeRemote()
	res := mustMirror(t, remote, map[string]string{
		"big.txt":   strings.Repeat("x", 3000),
		"small.txt": "hello",
	}, Options{})

	big := remote.page(t, "big.txt")
	if len(big.chunks) != 2 || len(big.chunks[0]) != 2000 || len(big.chunks[1]) != 1000 {
		t.Errorf("big.txt chunks have lengths %v, want [2000 1000]", chunkLens(big.chunks))
	}
	if got := strings.Join(big.chunks, ""); got != strings.Repeat("x", 3000) {
		t.Error("big.txt chunks do not concatenate back to the file content")
	}
	small := remote.page(t, "small.txt")
	if len(small.chunks) != 1 || small.chunks[0] != "hello" {
		t.Errorf("small.txt chunks = %q", small.chunks)
	}
	if res.TextBlocks != 3 {
		t.Errorf("TextBlocks = %d, want 3", res.TextBlocks)
	}
}

func chunkLens(chunks []string) []int {
	out := make([]int, len(chunks))
	for i, c := range chunks {
		out[i] = len(c)
	}
	return out
}

func TestMirror_EmptyFileGetsNoBlocks(t *testing.T) {
	remote := newFakeRemote()
	res := mustMirror(t, remote, map[string]string{"empty.txt": ""}, Options{})

	p := remote.page(t, "empty.txt")
	if len(p.chunks) != 0 || len(p.files) != 0 {
		t.Errorf("empty.txt has %d chunks and %d files, want none", len(p.chunks), len(p.files))
	}
	if res.TextBlocks != 0 || res.FileBlocks != 0 {
		t.Errorf("TextBlocks = %d, FileBlocks = %d, want 0, 0", res.TextBlocks, res.FileBlocks)
	}
}

func TestMirror_BinaryBecomesFileReference(t *testing.T) {
	remote := newFakeRemote()
	res := mustMirror(t, remote, map[string]string{
		"photo.png":    "\x89PNG\r\n",
		"my photo.png": "\x89PNG\r\n",
	}, Options{})

	p := remote.page(t, "photo.png")
	if len(p.files) != 1 || len(p.chunks) != 0 {
		t.Fatalf("photo.png has %d files and %d chunks, want 1, 0", len(p.files), len(p.chunks))
	}
	if p.files[0].name != "photo.png" {
		t.Errorf("file block name = %q", p.files[0].name)
	}
	if p.files[0].url != "https://example.com/files/photo.png" {
		t.Errorf("file block url = %q", p.files[0].url)
	}
	spaced := remote.page(t, "my photo.png")
	if spaced.files[0].url != "https://example.com/files/my%20photo.png" {
		t.Errorf("escaped url = %q", spaced.files[0].url)
	}
	if res.FileBlocks != 2 || res.Fallbacks != 0 {
		t.Errorf("FileBlocks = %d, Fallbacks = %d, want 2, 0", res.FileBlocks, res.Fallbacks)
	}
}

func TestMirror_LegacyDocFallsBackToFileReference(t *testing.T) {
	remote := newFakeRemote()
	res := mustMirror(t, remote, map[string]string{"old.doc": "binary word soup"}, Options{})

	p := remote.page(t, "old.doc")
	if len(p.files) != 1 || len(p.chunks) != 0 {
		t.Fatalf("old.doc has %d files and %d chunks, want 1, 0", len(p.files), len(p.chunks))
	}
	if res.Fallbacks != 1 || res.FileBlocks != 1 || res.TextBlocks != 0 {
		t.Errorf("Fallbacks = %d, FileBlocks = %d, TextBlocks = %d, want 1, 1, 0",
			res.Fallbacks, res.FileBlocks, res.TextBlocks)
	}
}

func TestMirror_UnreadableTextFallsBackToFileReference(t *testing.T) {
	remote := newFakeRemote()
	res := mustMirror(t, remote, map[string]string{
		"garbled.txt": "\xff\xfe not utf-8",
		"fine.txt":    "fine",
	}, Options{})

	garbled := remote.page(t, "garbled.txt")
	if len(garbled.files) != 1 || len(garbled.chunks) != 0 {
		t.Fatalf("garbled.txt has %d files and %d chunks, want 1, 0",
			len(garbled.files), len(garbled.chunks))
	}
	if fine := remote.page(t, "fine.txt"); len(fine.chunks) != 1 {
		t.Errorf("fine.txt chunks = %q, want the run to continue past the fallback", fine.chunks)
	}
	if res.Fallbacks != 1 {
		t.Errorf("Fallbacks = %d, want 1", res.Fallbacks)
	}
}

func TestMirror_MarkdownIsExtracted(t *testing.T) {
	remote := newFakeRemote()
	mustMirror(t, remote, map[string]string{
		"note.md": "---\ntitle: x\n---\n# Hi\n\nBody text.\n",
	}, Options{})

	p := remote.page(t, "note.md")
	if len(p.chunks) != 1 || p.chunks[0] != "Hi\nBody text." {
		t.Errorf("note.md chunks = %q", p.chunks)
	}
}

func TestMirror_HiddenEntriesSkippedByDefault(t *testing.T) {
	files := map[string]string{
		".git/config": "[core]",
		".secret.txt": "hush",
		"seen.txt":    "ok",
	}

	remote := newFakeRemote()
	mustMirror(t, remote, files, Options{})
	assertCreates(t, remote, "docs", "seen.txt")

	remote = newFakeRemote()
	mustMirror(t, remote, files, Options{IncludeHidden: true})
	assertCreates(t, remote, "docs", ".git", "config", ".secret.txt", "seen.txt")
}

func TestMirror_SkipFailedContinuesPastSubtree(t *testing.T) {
	remote := newFakeRemote()
	remote.failCreateTitle = "b"
	res := mustMirror(t, remote, map[string]string{
		"a.txt":   "a",
		"b/c.txt": "c",
		"d.txt":   "d",
	}, Options{SkipFailed: true})

	assertCreates(t, remote, "docs", "a.txt", "d.txt")
	if res.SkippedSubtrees != 1 {
		t.Errorf("SkippedSubtrees = %d, want 1", res.SkippedSubtrees)
	}
	if res.Pages != 3 {
		t.Errorf("Pages = %d, want 3", res.Pages)
	}
}

func TestMirror_AbortStopsAtFirstFailure(t *testing.T) {
	remote := newFakeRemote()
	remote.failCreateTitle = "b"
	w := New(newTree(t, map[string]string{
		"a.txt":   "a",
		"b/c.txt": "c",
		"d.txt":   "d",
	}), remote, extract.NewService(), Options{})

	_, err := w.Mirror(context.Background(), "parent-0")
	if !errors.Is(err, apperr.ErrRemote) {
		t.Fatalf("Mirror error = %v, want remote error", err)
	}
	assertCreates(t, remote, "docs", "a.txt")
}

func TestMirror_RootFailureIsFatalEvenWhenSkipping(t *testing.T) {
	remote := newFakeRemote()
	remote.failCreateTitle = "docs"
	w := New(newTree(t, map[string]string{"a.txt": "a"}), remote, extract.NewService(),
		Options{SkipFailed: true})

	if _, err := w.Mirror(context.Background(), "parent-0"); !errors.Is(err, apperr.ErrRemote) {
		t.Fatalf("Mirror error = %v, want remote error", err)
	}
}

func TestMirror_SkipFailedLeavesPageWithoutContent(t *testing.T) {
	remote := newFakeRemote()
	remote.failAppendTitle = "a.txt"
	res := mustMirror(t, remote, map[string]string{
		"a.txt": "alpha",
		"d.txt": "dee",
	}, Options{SkipFailed: true})

	if p := remote.page(t, "a.txt"); len(p.chunks) != 0 || len(p.files) != 0 {
		t.Errorf("a.txt has %d chunks and %d files, want the page left empty",
			len(p.chunks), len(p.files))
	}
	if p := remote.page(t, "d.txt"); len(p.chunks) != 1 || p.chunks[0] != "dee" {
		t.Errorf("d.txt chunks = %q", p.chunks)
	}
	if res.SkippedSubtrees != 1 {
		t.Errorf("SkippedSubtrees = %d, want 1", res.SkippedSubtrees)
	}
}

func TestMirror_UploadFailureAborts(t *testing.T) {
	remote := newFakeRemote()
	remote.failAppendTitle = "a.txt"
	w := New(newTree(t, map[string]string{
		"a.txt": "alpha",
		"d.txt": "dee",
	}), remote, extract.NewService(), Options{})

	_, err := w.Mirror(context.Background(), "parent-0")
	if !errors.Is(err, apperr.ErrRemote) {
		t.Fatalf("Mirror error = %v, want remote error", err)
	}
	assertCreates(t, remote, "docs", "a.txt")
}

func TestMirror_SingleFileRoot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "solo.txt")
	if err := os.WriteFile(path, []byte("just me"), 0o644); err != nil {
		t.Fatal(err)
	}
	tree, err := source.NewTree(path)
	if err != nil {
		t.Fatal(err)
	}

	remote := newFakeRemote()
	w := New(tree, remote, extract.NewService(), Options{})
	res, err := w.Mirror(context.Background(), "parent-0")
	if err != nil {
		t.Fatalf("Mirror: %v", err)
	}

	assertCreates(t, remote, "solo.txt")
	if p := remote.page(t, "solo.txt"); len(p.chunks) != 1 || p.chunks[0] != "just me" {
		t.Errorf("solo.txt chunks = %q", p.chunks)
	}
	if res.Pages != 1 {
		t.Errorf("Pages = %d, want 1", res.Pages)
	}
}

func TestMirror_ParallelUploadsKeepCreationOrder(t *testing.T) {
	files := map[string]string{
		"a.txt":       strings.Repeat("a", 2500),
		"b/one.txt":   "one",
		"b/two.txt":   "two",
		"c.md":        "# C\n\ncontent\n",
		"d/deep/e.md": "e",
		"f.txt":       "f",
	}

	remote := newFakeRemote()
	res := mustMirror(t, remote, files, Options{Workers: 4})

	assertCreates(t, remote,
		"docs", "a.txt", "b", "one.txt", "two.txt", "c.md", "d", "deep", "e.md", "f.txt")
	if p := remote.page(t, "a.txt"); len(p.chunks) != 2 {
		t.Errorf("a.txt chunks = %d, want 2", len(p.chunks))
	}
	if p := remote.page(t, "two.txt"); len(p.chunks) != 1 || p.chunks[0] != "two" {
		t.Errorf("two.txt chunks = %q", p.chunks)
	}
	if res.Pages != 10 {
		t.Errorf("Pages = %d, want 10", res.Pages)
	}
	if res.TextBlocks != 7 {
		t.Errorf("TextBlocks = %d, want 7", res.TextBlocks)
	}
}

func TestMirror_ParallelUploadFailureAborts(t *testing.T) {
	remote := newFakeRemote()
	remote.failAppendTitle = "b.txt"
	w := New(newTree(t, map[string]string{
		"a.txt": "a",
		"b.txt": "b",
		"c.txt": "c",
		"d.txt": "d",
	}), remote, extract.NewService(), Options{Workers: 4})

	_, err := w.Mirror(context.Background(), "parent-0")
	if !errors.Is(err, apperr.ErrRemote) {
		t.Fatalf("Mirror error = %v, want remote error", err)
	}
}

func TestMirror_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	remote := newFakeRemote()
	w := New(newTree(t, map[string]string{"a.txt": "a"}), remote, extract.NewService(), Options{})

	_, err := w.Mirror(ctx, "parent-0")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Mirror error = %v, want context.Canceled", err)
	}
	if len(remote.titles()) != 0 {
		t.Errorf("pages created after cancellation: %q", remote.titles())
	}
}

func TestMirror_EndToEndAgainstMock(t *testing.T) {
	const (
		token  = "secret-token"
		parent = "d9824bdc-8445-4327-be8b-5b47500af6ce"
	)
	srv := notionmock.New(
		notionmock.WithToken(token),
		notionmock.WithParentPage(parent),
	)
	defer srv.Close()

	root := filepath.Join(t.TempDir(), "docs")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	testutil.WriteTree(t, root, map[string]string{
		"a.txt":    strings.Repeat("x", 2500),
		"img.png":  "\x89PNG\r\n",
		"sub/b.md": "# T\n\nBody.\n",
	})
	tree, err := source.NewTree(root)
	if err != nil {
		t.Fatal(err)
	}

	client := notion.NewClient(srv.URL, token, "2022-06-28", time.Minute)
	w := New(tree, client, extract.NewService(), Options{Workers: 2})
	res, err := w.Mirror(context.Background(), parent)
	if err != nil {
		t.Fatalf("Mirror: %v", err)
	}

	pages := srv.Pages()
	wantTitles := []string{"docs", "a.txt", "img.png", "sub", "b.md"}
	if len(pages) != len(wantTitles) {
		t.Fatalf("created %d pages, want %d", len(pages), len(wantTitles))
	}
	for i, want := range wantTitles {
		if pages[i].Title != want {
			t.Errorf("page %d titled %q, want %q", i, pages[i].Title, want)
		}
	}
	if pages[0].ParentID != parent {
		t.Errorf("root parent = %q, want %q", pages[0].ParentID, parent)
	}
	if res.RootPageID != pages[0].ID {
		t.Errorf("RootPageID = %q, want %q", res.RootPageID, pages[0].ID)
	}

	a, ok := srv.PageByTitle("a.txt")
	if !ok {
		t.Fatal("a.txt page missing")
	}
	if len(a.Blocks) != 2 {
		t.Fatalf("a.txt has %d blocks, want 2", len(a.Blocks))
	}
	joined := a.Blocks[0].Paragraph.RichText[0].Text.Content +
		a.Blocks[1].Paragraph.RichText[0].Text.Content
	if joined != strings.Repeat("x", 2500) {
		t.Error("a.txt blocks do not concatenate back to the file content")
	}

	img, ok := srv.PageByTitle("img.png")
	if !ok {
		t.Fatal("img.png page missing")
	}
	if len(img.Blocks) != 1 || img.Blocks[0].File == nil {
		t.Fatalf("img.png blocks = %+v, want one file block", img.Blocks)
	}
	if img.Blocks[0].File.External.URL != "https://example.com/files/img.png" {
		t.Errorf("file url = %q", img.Blocks[0].File.External.URL)
	}
	if img.Blocks[0].File.Name != "img.png" {
		t.Errorf("file name = %q", img.Blocks[0].File.Name)
	}

	b, ok := srv.PageByTitle("b.md")
	if !ok {
		t.Fatal("b.md page missing")
	}
	if len(b.Blocks) != 1 || b.Blocks[0].Paragraph.RichText[0].Text.Content != "T\nBody." {
		t.Errorf("b.md blocks = %+v", b.Blocks)
	}
}
