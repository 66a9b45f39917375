package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/mmeshcher/formaplus/internal/model"
	"github.com/mmeshcher/formaplus/internal/repository"
	"github.com/mmeshcher/formaplus/internal/validation"
)

// ErrPostNotFound возвращается, если публикация не найдена или принадлежит другому пользователю.
var ErrPostNotFound = errors.New("not found")

// CreatePostInput содержит данные новой публикации.
type CreatePostInput struct {
	Title   string `json:"title" validate:"required,min=3,max=120"`
	Content string `json:"content" validate:"required,min=3,max=10000"`
}

// newPostPolicy разрешает только базовую разметку текста и ссылки.
func newPostPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("b", "i", "em", "strong", "a", "ul", "ol", "li", "p", "br")
	p.AllowAttrs("href", "title").OnElements("a")
	p.AllowURLSchemes("http", "https", "ftp", "mailto")
	p.RequireParseableURLs(true)
	return p
}

// CreatePost сохраняет публикацию с очищенным содержимым и начисляет баллы POST_CREATED.
func (s *Service) CreatePost(ctx context.Context, userID string, in CreatePostInput) (*model.Post, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	if err := s.validate.Struct(in); err != nil {
		return nil, validation.Convert(err)
	}

	p := &model.Post{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     in.Title,
		Content:   s.sanitizer.Sanitize(in.Content),
		CreatedAt: s.timestamp(),
	}

	if err := s.repo.CreatePost(ctx, p); err != nil {
		return nil, err
	}

	s.ledger.AwardAsync(userID, model.PointEventPostCreated, PostCreatedPoints, map[string]any{"postId": p.ID})

	return p, nil
}

// ListPosts возвращает публикации пользователя, новые первыми.
func (s *Service) ListPosts(ctx context.Context, userID string) ([]model.Post, error) {
	return s.repo.GetPostsByUser(ctx, userID)
}

// GetPost возвращает публикацию пользователя.
func (s *Service) GetPost(ctx context.Context, userID, id string) (*model.Post, error) {
	p, err := s.repo.GetPost(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	if p.UserID != userID {
		return nil, ErrPostNotFound
	}
	return p, nil
}

// DeletePost удаляет публикацию пользователя.
func (s *Service) DeletePost(ctx context.Context, userID, id string) error {
	if _, err := s.GetPost(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.DeletePost(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPostNotFound
		}
		return err
	}
	return nil
}
