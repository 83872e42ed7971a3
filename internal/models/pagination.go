package models

// PaginationResponse описывает положение страницы в ленте.
type PaginationResponse struct {
	TotalItems   int  `json:"total_items"`
	TotalPages   int  `json:"total_pages"`
	CurrentPage  int  `json:"current_page"`
	ItemsPerPage int  `json:"items_per_page"`
	HasMore      bool `json:"has_more"`
}

// Page - одна страница ленты вместе с пагинацией.
type Page struct {
	Items      []Article          `json:"items"`
	Pagination PaginationResponse `json:"pagination"`
}

// NewPagination считает число страниц и признак продолжения.
func NewPagination(total, page, pageSize int) PaginationResponse {
	p := PaginationResponse{
		TotalItems:   total,
		CurrentPage:  page,
		ItemsPerPage: pageSize,
	}
	if pageSize > 0 {
		p.TotalPages = (total + pageSize - 1) / pageSize
	}
	p.HasMore = page < p.TotalPages
	return p
}
