package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// Page is a list result. The API returns either a bare JSON array or a
// paginated object; both decode into Page.
type Page[T any] struct {
	Count    int    `json:"count"`
	Next     string `json:"next,omitempty"`
	Previous string `json:"previous,omitempty"`
	Results  []T    `json:"results"`
}

func (p *Page[T]) HasNext() bool {
	return p != nil && p.Next != ""
}

func (p *Page[T]) HasPrevious() bool {
	return p != nil && p.Previous != ""
}

// NextPage returns the page number the next link points at, or 0 when there
// is none.
func (p *Page[T]) NextPage() int {
	if !p.HasNext() {
		return 0
	}
	return pageNumber(p.Next, 2)
}

// PreviousPage returns the page number the previous link points at. A link
// without a page parameter is the first page.
func (p *Page[T]) PreviousPage() int {
	if !p.HasPrevious() {
		return 0
	}
	return pageNumber(p.Previous, 1)
}

func pageNumber(link string, fallback int) int {
	u, err := url.Parse(link)
	if err != nil {
		return fallback
	}
	n, err := strconv.Atoi(u.Query().Get("page"))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func decodePage[T any](data []byte) (*Page[T], error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return &Page[T]{Results: []T{}}, nil
	}

	if data[0] == '[' {
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("decode list: %w", err)
		}
		return &Page[T]{Count: len(items), Results: items}, nil
	}

	var page Page[T]
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}
	if page.Results == nil {
		page.Results = []T{}
	}
	if page.Count == 0 {
		page.Count = len(page.Results)
	}
	return &page, nil
}

func listPage[T any](data []byte, err error) (*Page[T], error) {
	if err != nil {
		return nil, err
	}
	page, err := decodePage[T](data)
	if err != nil {
		return nil, &Error{Kind: KindUnexpected, Err: err}
	}
	return page, nil
}
