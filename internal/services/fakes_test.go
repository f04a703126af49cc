package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"google.golang.org/genai"
	"gorm.io/gorm"

	"github.com/yungbote/flashcard-media/internal/data/repos"
	"github.com/yungbote/flashcard-media/internal/data/repos/testutil"
	"github.com/yungbote/flashcard-media/internal/platform/dbctx"
	"github.com/yungbote/flashcard-media/internal/platform/gcp"
	"github.com/yungbote/flashcard-media/internal/platform/gemini"
	"github.com/yungbote/flashcard-media/internal/platform/localmedia"
	"github.com/yungbote/flashcard-media/internal/platform/redisx"
	"github.com/yungbote/flashcard-media/internal/realtime/bus"
)

// fakeAI answers structured-completion calls by schema and replays canned media.
type fakeAI struct {
	mu sync.Mutex

	normalized     string
	normalizeUsage gemini.Usage
	prompt         string
	promptUsage    gemini.Usage
	jsonErr        error
	jsonPrompts    []string

	images    []gemini.Image
	imageOpts gemini.ImageOptions

	editParts []gemini.Part
	editSeed  gemini.Image

	videoOps  []*gemini.VideoOperation
	videoSeed *gemini.Image
	videoOpts gemini.VideoOptions
	polls     int
	downloads int
}

func (f *fakeAI) GenerateJSON(_ context.Context, prompt string, schema *genai.Schema, out any) (gemini.Usage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jsonPrompts = append(f.jsonPrompts, prompt)
	if f.jsonErr != nil {
		return gemini.Usage{}, f.jsonErr
	}
	var resp any
	usage := f.normalizeUsage
	if _, ok := schema.Properties["prompt"]; ok {
		resp = map[string]string{"prompt": f.prompt}
		usage = f.promptUsage
	} else {
		resp = map[string]string{"modified_other_settings": f.normalized}
	}
	raw, _ := json.Marshal(resp)
	return usage, json.Unmarshal(raw, out)
}

func (f *fakeAI) GenerateImages(_ context.Context, _ string, opts gemini.ImageOptions) ([]gemini.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imageOpts = opts
	return f.images, nil
}

func (f *fakeAI) EditImage(_ context.Context, _ string, img gemini.Image) ([]gemini.Part, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.editSeed = img
	return f.editParts, nil
}

func (f *fakeAI) StartVideo(_ context.Context, _ string, seed *gemini.Image, opts gemini.VideoOptions) (*gemini.VideoOperation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.videoSeed = seed
	f.videoOpts = opts
	if len(f.videoOps) == 0 {
		return nil, fmt.Errorf("no video operation configured")
	}
	return f.videoOps[0], nil
}

func (f *fakeAI) GetVideo(_ context.Context, _ *gemini.VideoOperation) (*gemini.VideoOperation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	i := min(f.polls, len(f.videoOps)-1)
	return f.videoOps[i], nil
}

func (f *fakeAI) DownloadVideo(_ context.Context, v gemini.Video) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads++
	return []byte("downloaded:" + v.URI), nil
}

// fakeBucket is an in-memory BucketService.
type fakeBucket struct {
	mu           sync.Mutex
	objects      map[string][]byte
	contentTypes map[string]string
	gs           map[string][]byte
	public       map[string]bool
	deleted      []string
	uploadErr    error
	// failSuffix fails only uploads whose key ends with it.
	failSuffix string
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{
		objects:      map[string][]byte{},
		contentTypes: map[string]string{},
		gs:           map[string][]byte{},
		public:       map[string]bool{},
	}
}

func (b *fakeBucket) UploadFile(_ dbctx.Context, key, contentType string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.uploadErr != nil {
		return b.uploadErr
	}
	if b.failSuffix != "" && strings.HasSuffix(key, b.failSuffix) {
		return fmt.Errorf("upload %q: bucket unavailable", key)
	}
	b.objects[key] = data
	b.contentTypes[key] = contentType
	return nil
}

func (b *fakeBucket) MakePublic(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.public[key] = true
	return nil
}

func (b *fakeBucket) DeleteFile(_ dbctx.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, key)
	if _, ok := b.objects[key]; !ok {
		return fmt.Errorf("delete %q: %w", key, gcp.ErrObjectNotExist)
	}
	delete(b.objects, key)
	return nil
}

func (b *fakeBucket) ReadGSURI(_ context.Context, uri string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.gs[uri]
	if !ok {
		return nil, gcp.ErrObjectNotExist
	}
	return data, nil
}

func (b *fakeBucket) ListKeys(_ context.Context, prefix string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for k := range b.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, nil
}

func (b *fakeBucket) DeletePrefix(ctx context.Context, prefix string) error {
	keys, _ := b.ListKeys(ctx, prefix)
	for _, k := range keys {
		_ = b.DeleteFile(dbctx.Context{Ctx: ctx}, k)
	}
	return nil
}

func (b *fakeBucket) GetPublicURL(key string) string { return "https://cdn.test/" + key }
func (b *fakeBucket) Close() error                   { return nil }

func (b *fakeBucket) has(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[key]
	return ok
}

type fakeFetcher struct {
	body []byte
	err  error
	urls []string
}

func (f *fakeFetcher) Get(_ context.Context, url string, _ http.Header) ([]byte, string, error) {
	f.urls = append(f.urls, url)
	return f.body, "image/png", f.err
}

// fakeTools stands in for ffprobe/ffmpeg; ResampleFrames writes a marker file.
type fakeTools struct {
	dir       string
	info      localmedia.VideoInfo
	probeErr  error
	resampErr error
	interval  int
	targetFPS int
}

func (f *fakeTools) AssertReady(context.Context) error { return nil }

func (f *fakeTools) ProbeVideo(context.Context, string) (localmedia.VideoInfo, error) {
	return f.info, f.probeErr
}

func (f *fakeTools) ResampleFrames(_ context.Context, _ string, out string, interval int, targetFPS int) error {
	f.interval = interval
	f.targetFPS = targetFPS
	if f.resampErr != nil {
		return f.resampErr
	}
	return os.WriteFile(out, []byte(fmt.Sprintf("resampled every %d at %d", interval, targetFPS)), 0o600)
}

func (f *fakeTools) WriteTempFile(_ context.Context, data []byte, suffix string) (string, func(), error) {
	p := filepath.Join(f.dir, fmt.Sprintf("in-%d%s", time.Now().UnixNano(), suffix))
	if err := os.WriteFile(p, data, 0o600); err != nil {
		return "", func() {}, err
	}
	return p, func() { _ = os.Remove(p) }, nil
}

type fakeBus struct {
	mu     sync.Mutex
	events []bus.Event
	err    error
}

func (b *fakeBus) Publish(_ context.Context, ev bus.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
	return b.err
}

func (b *fakeBus) Subscribe(context.Context, func(bus.Event)) error { return nil }
func (b *fakeBus) Close() error                                     { return nil }

func pngBytes(t testing.TB, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

// testStack wires every service against sqlite and the fakes above.
type testStack struct {
	db          *gorm.DB
	ai          *fakeAI
	bucket      *fakeBucket
	fetcher     *fakeFetcher
	tools       *fakeTools
	bus         *fakeBus
	flashcards  repos.FlashcardRepo
	media       repos.MediaRepo
	comparisons repos.ComparisonRepo
	runs        repos.SagaRunRepo
	actions     repos.SagaActionRepo
	saga        SagaService
	ledger      ComparisonLedger
	storage     StorageCommitter
	templates   PromptTemplateService
	locker      redisx.Locker
	gen         MediaGenerationService
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	labels, err := LoadPosLabels()
	if err != nil {
		t.Fatalf("LoadPosLabels: %v", err)
	}

	s := &testStack{
		db: db,
		ai: &fakeAI{
			prompt:      "a watercolor runner",
			promptUsage: gemini.Usage{PromptTokens: 10, CandidatesTokens: 5, TotalTokens: 15},
		},
		bucket:      newFakeBucket(),
		fetcher:     &fakeFetcher{},
		tools:       &fakeTools{dir: t.TempDir(), info: localmedia.VideoInfo{FPS: 30, FrameCount: 300}},
		bus:         &fakeBus{},
		flashcards:  repos.NewFlashcardRepo(db, log),
		media:       repos.NewMediaRepo(db, log),
		comparisons: repos.NewComparisonRepo(db, log),
		runs:        repos.NewSagaRunRepo(db, log),
		actions:     repos.NewSagaActionRepo(db, log),
	}
	s.saga = NewSagaService(db, log, s.runs, s.actions, s.bucket)
	s.ledger = NewComparisonLedger(db, log, s.flashcards, s.media, s.comparisons, s.saga)
	s.storage = NewStorageCommitter(log, s.media, s.bucket, s.saga)
	s.templates = NewPromptTemplateService(log, repos.NewPromptTemplateRepo(db, log))
	s.locker = redisx.NewLocalLocker()

	dispatcher := NewGenerationDispatcher(log, s.ai, s.fetcher, s.bucket, DispatcherConfig{
		PollInterval:  time.Millisecond,
		VideoTimeout:  2 * time.Second,
		MaxSeedPixels: 64,
	})
	s.gen = NewMediaGenerationService(
		log,
		MediaGenerationConfig{LockTTL: time.Minute},
		s.flashcards,
		s.media,
		s.comparisons,
		s.templates,
		NewPromptPipeline(log, s.ai, labels, "ja"),
		dispatcher,
		NewMediaPostProcessor(log, s.tools, 10),
		s.storage,
		s.ledger,
		s.saga,
		NewComparisonNotifier(log, s.bus),
		s.locker,
	)
	return s
}

var errFakeUpload = errors.New("bucket unavailable")
