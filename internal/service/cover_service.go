package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/rs/zerolog"

	"chaplog/internal/ids"
	"chaplog/internal/media/sniffer"
	"chaplog/internal/media/svg"
	"chaplog/internal/models"
	"chaplog/internal/storage"
)

type CoverService struct {
	books    *BookService
	store    CoverStore
	maxBytes int64
	log      zerolog.Logger
}

func NewCoverService(books *BookService, store CoverStore, maxBytes int64, log zerolog.Logger) *CoverService {
	return &CoverService{
		books:    books,
		store:    store,
		maxBytes: maxBytes,
		log:      log,
	}
}

// Upload stores a cover image for an owned book and points the book at it.
// The type is taken from the file's magic bytes; a declared content type
// must agree with it.
func (s *CoverService) Upload(ctx context.Context, userID, bookID string, file io.Reader, declaredType string) (models.BookDetail, error) {
	if _, err := s.books.Get(ctx, userID, bookID); err != nil {
		return models.BookDetail{}, err
	}

	data, err := io.ReadAll(io.LimitReader(file, s.maxBytes+1))
	if err != nil {
		return models.BookDetail{}, fmt.Errorf("read cover: %w", err)
	}
	if len(data) == 0 {
		return models.BookDetail{}, ErrEmptyFile
	}
	if int64(len(data)) > s.maxBytes {
		return models.BookDetail{}, ErrCoverTooLarge
	}

	format, err := sniffer.Detect(data)
	if err != nil {
		return models.BookDetail{}, ErrUnsupportedMediaType
	}
	if !sniffer.Matches(declaredType, format) {
		return models.BookDetail{}, ErrContentTypeMismatch
	}

	if format == sniffer.SVG {
		if data, err = svg.Sanitize(data); err != nil {
			return models.BookDetail{}, ErrUnsupportedMediaType
		}
	}

	key := path.Join("covers", userID, ids.NewSortable()+"."+format.Extension)
	url, err := s.store.PutCover(ctx, key, data, format.MIME)
	if err != nil {
		if errors.Is(err, storage.ErrUnavailable) {
			return models.BookDetail{}, ErrStorageUnavailable
		}
		return models.BookDetail{}, err
	}

	s.log.Info().Str("user_id", userID).Str("book_id", bookID).Str("object_key", key).Int("size", len(data)).Msg("cover uploaded")
	return s.books.SetCover(ctx, userID, bookID, url)
}
