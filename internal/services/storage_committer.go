package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/yungbote/flashcard-media/internal/data/repos"
	types "github.com/yungbote/flashcard-media/internal/domain"
	"github.com/yungbote/flashcard-media/internal/observability"
	"github.com/yungbote/flashcard-media/internal/platform/apierr"
	"github.com/yungbote/flashcard-media/internal/platform/dbctx"
	"github.com/yungbote/flashcard-media/internal/platform/gcp"
	"github.com/yungbote/flashcard-media/internal/platform/logger"
)

// StorageCommitter writes a Media in two phases because blob keys embed the media id.
type StorageCommitter interface {
	// Reserve inserts m with empty MediaURLs and returns it with its id assigned.
	Reserve(dbc dbctx.Context, m *types.Media) (*types.Media, error)
	// CommitContent uploads payloads in order and patches m.MediaURLs with their public URLs.
	// When sagaID is set, a gcs_delete_key intent is committed per key before any upload.
	CommitContent(ctx context.Context, m *types.Media, word string, payloads []MediaPayload, sagaID uuid.UUID) ([]string, error)
}

type storageCommitter struct {
	log    *logger.Logger
	media  repos.MediaRepo
	bucket gcp.BucketService
	saga   SagaService
}

func NewStorageCommitter(log *logger.Logger, media repos.MediaRepo, bucket gcp.BucketService, saga SagaService) StorageCommitter {
	return &storageCommitter{
		log:    log.With("service", "StorageCommitter"),
		media:  media,
		bucket: bucket,
		saga:   saga,
	}
}

func (s *storageCommitter) Reserve(dbc dbctx.Context, m *types.Media) (*types.Media, error) {
	if m == nil {
		return nil, apierr.Validation("reserve media: missing media")
	}
	if m.FlashcardID == uuid.Nil {
		return nil, apierr.Validation("reserve media: missing flashcard_id")
	}
	if !m.GenerationType.Valid() {
		return nil, apierr.Validation("reserve media: unsupported generation type %q", m.GenerationType)
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.MediaURLs = datatypes.JSONSlice[string]{}
	if _, err := s.media.Create(dbc, []*types.Media{m}); err != nil {
		return nil, apierr.ExternalAPI(err, "reserve media")
	}
	return m, nil
}

func (s *storageCommitter) CommitContent(ctx context.Context, m *types.Media, word string, payloads []MediaPayload, sagaID uuid.UUID) (urls []string, err error) {
	if m == nil || m.ID == uuid.Nil {
		return nil, apierr.Validation("commit media: media not reserved")
	}
	if len(payloads) == 0 {
		return nil, apierr.Validation("commit media: no payloads")
	}
	ctx, span := observability.StartSpan(ctx, "storage.commit",
		attribute.String("media_id", m.ID.String()),
		attribute.Int("payloads", len(payloads)),
	)
	defer func() { observability.EndSpan(span, err) }()

	ext := m.GenerationType.Extension()
	keys := make([]string, len(payloads))
	for i := range payloads {
		keys[i] = MediaKey(word, m.MeaningID, m.FlashcardID, m.ID, i, ext)
	}

	if sagaID != uuid.Nil && s.saga != nil {
		intents := make([]map[string]any, len(keys))
		for i, k := range keys {
			intents[i] = map[string]any{"key": k}
		}
		if _, err := s.saga.RecordIntent(ctx, sagaID, SagaActionKindGCSDeleteKey, intents...); err != nil {
			return nil, apierr.ExternalAPI(err, "record upload intents")
		}
	}

	urls = make([]string, len(payloads))
	g, gctx := errgroup.WithContext(ctx)
	for i := range payloads {
		g.Go(func() error {
			key := keys[i]
			if err := s.bucket.UploadFile(dbctx.Context{Ctx: gctx}, key, payloadContentType(m.GenerationType, payloads[i]), bytes.NewReader(payloads[i].Bytes)); err != nil {
				return err
			}
			if err := s.bucket.MakePublic(gctx, key); err != nil {
				return err
			}
			urls[i] = s.bucket.GetPublicURL(key)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// Drop sibling uploads that landed before the failure.
		prefix := MediaKeyPrefix(word, m.MeaningID, m.FlashcardID, m.ID)
		if derr := s.bucket.DeletePrefix(context.WithoutCancel(ctx), prefix); derr != nil {
			s.log.Warn("cleanup of partial upload failed", "media_id", m.ID.String(), "prefix", prefix, "error", derr)
		}
		return nil, apierr.ExternalAPI(err, "upload media %s", m.ID)
	}

	if err := s.media.SetURLs(dbctx.Context{Ctx: ctx}, m.ID, urls); err != nil {
		return nil, apierr.ExternalAPI(err, "patch media urls %s", m.ID)
	}
	m.MediaURLs = datatypes.JSONSlice[string](urls)

	s.log.Info("media committed", "media_id", m.ID.String(), "keys", len(keys))
	return urls, nil
}

// MediaKey builds {word}/{meaningId}/{flashcardId}/{mediaId}.{ext}; payloads after the first get an _{i} suffix.
func MediaKey(word string, meaningID, flashcardID, mediaID uuid.UUID, index int, ext string) string {
	key := MediaKeyPrefix(word, meaningID, flashcardID, mediaID)
	if index > 0 {
		key = fmt.Sprintf("%s_%d", key, index)
	}
	return key + "." + ext
}

// MediaKeyPrefix matches every key of one media and nothing else.
func MediaKeyPrefix(word string, meaningID, flashcardID, mediaID uuid.UUID) string {
	return fmt.Sprintf("%s/%s/%s/%s", keySegment(word), meaningID, flashcardID, mediaID)
}

func keySegment(word string) string {
	w := strings.TrimSpace(word)
	w = strings.ReplaceAll(w, "/", "_")
	if w == "" || w == "." || w == ".." {
		return "_"
	}
	return w
}

func payloadContentType(t types.GenerationType, p MediaPayload) string {
	if ct := strings.TrimSpace(p.MIMEType); ct != "" {
		return ct
	}
	return t.ContentType()
}
