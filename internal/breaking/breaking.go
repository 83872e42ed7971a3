// Package breaking выбирает срочные новости и вставляет их в начало ленты.
package breaking

import (
	"slices"

	"newsfeed/internal/models"
)

// Window - число первых позиций ленты, куда попадают срочные статьи.
const Window = 11

// Rand - источник случайных позиций; *rand.Rand из math/rand/v2 подходит.
type Rand interface {
	IntN(n int) int
}

// Top берёт первую статью каждого непустого набора и помечает её как срочную.
func Top(sets [][]models.Article) []models.Article {
	out := make([]models.Article, 0, len(sets))
	for _, set := range sets {
		if len(set) == 0 {
			continue
		}
		a := set[0]
		a.Category = models.CategoryBreaking
		out = append(out, a)
	}
	return out
}

// Merge убирает из regular статьи с id срочных и вставляет каждую срочную
// статью на случайную позицию среди первых Window. Порядок остальных
// статей не меняется, срочные статьи не пересортировываются.
func Merge(regular, urgent []models.Article, rng Rand) []models.Article {
	ids := make(map[string]struct{}, len(urgent))
	for _, b := range urgent {
		ids[b.ID] = struct{}{}
	}

	out := make([]models.Article, 0, len(regular)+len(urgent))
	for _, a := range regular {
		if _, dup := ids[a.ID]; !dup {
			out = append(out, a)
		}
	}

	for _, b := range urgent {
		pos := rng.IntN(min(len(out), Window-1) + 1)
		out = slices.Insert(out, pos, b)
	}
	return out
}
