package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/diagnosis/seatrips/internal/domain"
)

// Articles returns one page of blog articles. Pages are 1-based; anything
// below 1 means the first page.
func (c *Client) Articles(ctx context.Context, page int) (*Page[domain.Article], error) {
	return listPage[domain.Article](c.send(ctx, http.MethodGet, "/blog/articles/", pageQuery(page), nil))
}

func (c *Client) Article(ctx context.Context, slug string) (*domain.Article, error) {
	var out domain.Article
	if err := c.call(ctx, http.MethodGet, "/blog/articles/"+url.PathEscape(slug)+"/", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) FAQs(ctx context.Context, page int) (*Page[domain.Article], error) {
	return listPage[domain.Article](c.send(ctx, http.MethodGet, "/faq/pages/", pageQuery(page), nil))
}

func (c *Client) FAQ(ctx context.Context, slug string) (*domain.Article, error) {
	var out domain.Article
	if err := c.call(ctx, http.MethodGet, "/faq/pages/"+url.PathEscape(slug)+"/", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func pageQuery(page int) url.Values {
	if page <= 1 {
		return nil
	}
	return url.Values{"page": {strconv.Itoa(page)}}
}
