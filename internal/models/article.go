package models

import (
	"fmt"
	"strings"
	"time"
)

const (
	// PlaceholderImage подставляется, когда у провайдера нет изображения.
	PlaceholderImage = "https://via.placeholder.com/440x293/E8E8E8/AAAAAA?text=News"

	DefaultTitle       = "No Title Available"
	DefaultDescription = "No description available"
	DefaultAuthor      = "Unknown"

	placeholderPrefix = "placeholder-"
)

// Article - нормализованная статья, общая для всех провайдеров.
type Article struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Content     string    `json:"content,omitempty"`
	URL         string    `json:"url"`
	ImageURL    string    `json:"imageUrl"`
	PublishedAt time.Time `json:"publishedAt"`
	Source      string    `json:"source"`
	Author      string    `json:"author,omitempty"`
	Category    string    `json:"category"`
}

// IsPlaceholder сообщает, что статья - заглушка на случай отказа всех источников.
func (a Article) IsPlaceholder() bool {
	return strings.HasPrefix(a.ID, placeholderPrefix)
}

// IsBreaking сообщает, помечена ли статья как срочная.
func (a Article) IsBreaking() bool {
	return a.Category == CategoryBreaking
}

// ApplyDefaults заполняет пустые поля значениями-заглушками.
func (a *Article) ApplyDefaults(author string) {
	if a.Title == "" {
		a.Title = DefaultTitle
	}
	if a.Description == "" {
		a.Description = DefaultDescription
	}
	if a.ImageURL == "" {
		a.ImageURL = PlaceholderImage
	}
	if a.Author == "" {
		a.Author = author
	}
	a.Category = NormalizeCategory(a.Category)
}

// SyntheticID строит идентификатор для статьи без стабильного id.
func SyntheticID(offset int, now time.Time) string {
	return fmt.Sprintf("article-%d-%d", offset, now.UnixMilli())
}

// Placeholder возвращает статью-заглушку для случая, когда ни один источник не ответил.
func Placeholder(category string, now time.Time) Article {
	return Article{
		ID:          placeholderPrefix + category,
		Title:       fmt.Sprintf("Unable to load news for %s", category),
		Description: "News sources are temporarily unavailable. Please try again later.",
		URL:         "",
		ImageURL:    PlaceholderImage,
		PublishedAt: now,
		Source:      "News Aggregator",
		Author:      DefaultAuthor,
		Category:    NormalizeCategory(category),
	}
}
