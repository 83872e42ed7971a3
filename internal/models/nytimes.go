package models

import "encoding/json"

// NYTMultimedia - вариант изображения в Top Stories и Newswire.
type NYTMultimedia struct {
	URL     string `json:"url"`
	Format  string `json:"format"`
	Height  int    `json:"height"`
	Width   int    `json:"width"`
	Type    string `json:"type"`
	Subtype string `json:"subtype"`
	Caption string `json:"caption"`
}

// NYTMediaMetadata - вариант изображения в Most Popular.
type NYTMediaMetadata struct {
	URL    string `json:"url"`
	Format string `json:"format"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// NYTMedia - медиаблок статьи Most Popular.
type NYTMedia struct {
	Type     string             `json:"type"`
	Subtype  string             `json:"subtype"`
	Caption  string             `json:"caption"`
	Metadata []NYTMediaMetadata `json:"media-metadata"`
}

// NYTPopularArticle - статья из mostpopular/v2.
type NYTPopularArticle struct {
	URI           string     `json:"uri"`
	URL           string     `json:"url"`
	Section       string     `json:"section"`
	Subsection    string     `json:"subsection"`
	Byline        string     `json:"byline"`
	Title         string     `json:"title"`
	Abstract      string     `json:"abstract"`
	PublishedDate string     `json:"published_date"`
	Media         []NYTMedia `json:"media"`
}

// NYTStoryArticle - статья из topstories/v2 и news/v3 (newswire).
type NYTStoryArticle struct {
	URI               string          `json:"uri"`
	URL               string          `json:"url"`
	Section           string          `json:"section"`
	Subsection        string          `json:"subsection"`
	Title             string          `json:"title"`
	Headline          string          `json:"headline"`
	Abstract          string          `json:"abstract"`
	Byline            string          `json:"byline"`
	PublishedDate     string          `json:"published_date"`
	ThumbnailStandard string          `json:"thumbnail_standard"`
	Multimedia        json.RawMessage `json:"multimedia"`
}

// Media разбирает multimedia; newswire иногда присылает пустую строку вместо массива.
func (a NYTStoryArticle) Media() []NYTMultimedia {
	var media []NYTMultimedia
	if len(a.Multimedia) == 0 {
		return nil
	}
	if err := json.Unmarshal(a.Multimedia, &media); err != nil {
		return nil
	}
	return media
}

// NYTPopularResponse - ответ mostpopular/v2.
type NYTPopularResponse struct {
	Status     string              `json:"status"`
	NumResults int                 `json:"num_results"`
	Results    []NYTPopularArticle `json:"results"`
}

// NYTStoriesResponse - ответ topstories/v2 и news/v3.
type NYTStoriesResponse struct {
	Status     string            `json:"status"`
	Section    string            `json:"section"`
	NumResults int               `json:"num_results"`
	Results    []NYTStoryArticle `json:"results"`
}

// NYTSectionsResponse - ответ news/v3/content/section-list.json.
type NYTSectionsResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Section     string `json:"section"`
		DisplayName string `json:"display_name"`
	} `json:"results"`
}
