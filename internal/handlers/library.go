package handlers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/HanTheDev/content-automation-api/internal/apperr"
	"github.com/HanTheDev/content-automation-api/internal/dispatch"
	"github.com/HanTheDev/content-automation-api/internal/generator"
	"github.com/HanTheDev/content-automation-api/internal/models"
	"github.com/HanTheDev/content-automation-api/internal/store"
	"github.com/HanTheDev/content-automation-api/internal/textstats"
)

const (
	defaultCurrency = "USD"
	defaultLanguage = "en"
	defaultStatus   = "published"
)

type addBookRequest struct {
	Title         string           `json:"title" validate:"notblank"`
	Description   string           `json:"description" validate:"notblank"`
	Category      string           `json:"category" validate:"notblank"`
	Price         *decimal.Decimal `json:"price" validate:"required"`
	Author        string           `json:"author"`
	Pages         int              `json:"pages" validate:"gte=0"`
	CoverImageURL string           `json:"coverImageUrl" validate:"omitempty,url"`
	FileURL       string           `json:"fileUrl" validate:"omitempty,url"`
	Featured      bool             `json:"featured"`
	Currency      string           `json:"currency" validate:"omitempty,len=3,alpha"`
	Language      string           `json:"language"`
	Status        string           `json:"status" validate:"omitempty,oneof=draft published archived"`
}

func (h *Handlers) addBook(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	var body addBookRequest
	if err := bind(req, &body); err != nil {
		return nil, err
	}
	if body.Price.IsNegative() {
		return nil, apperr.Validation("price must not be negative")
	}

	book := &models.Ebook{
		Title:         strings.TrimSpace(body.Title),
		Author:        strings.TrimSpace(body.Author),
		Description:   strings.TrimSpace(body.Description),
		Price:         *body.Price,
		Currency:      orDefault(strings.ToUpper(body.Currency), defaultCurrency),
		Category:      strings.TrimSpace(body.Category),
		CoverImageURL: body.CoverImageURL,
		FileURL:       body.FileURL,
		Pages:         body.Pages,
		Featured:      body.Featured,
		Status:        orDefault(body.Status, defaultStatus),
		Language:      orDefault(body.Language, defaultLanguage),
	}

	var gens []generator.Generation
	if utf8.RuneCountInString(book.Description) < generator.MinDescriptionLength {
		gen, err := h.gen.ExpandDescription(ctx, book.Title, book.Description, book.Category)
		if err != nil {
			return nil, generateErr(generator.KindBookDescription, err)
		}
		book.Description = gen.Text
		gens = append(gens, gen)
	}

	if err := h.store.CreateEbook(ctx, book); err != nil {
		return nil, storeErr(err, "Book")
	}
	return charged(book, "Book added successfully", gens...), nil
}

type updateBookRequest struct {
	Title         *string          `json:"title" validate:"omitempty,notblank"`
	Description   *string          `json:"description" validate:"omitempty,notblank"`
	Category      *string          `json:"category" validate:"omitempty,notblank"`
	Price         *decimal.Decimal `json:"price"`
	Author        *string          `json:"author"`
	Pages         *int             `json:"pages" validate:"omitempty,gte=0"`
	CoverImageURL *string          `json:"coverImageUrl" validate:"omitempty,url"`
	FileURL       *string          `json:"fileUrl" validate:"omitempty,url"`
	Featured      *bool            `json:"featured"`
	Currency      *string          `json:"currency" validate:"omitempty,len=3,alpha"`
	Language      *string          `json:"language" validate:"omitempty,notblank"`
	Status        *string          `json:"status" validate:"omitempty,oneof=draft published archived"`
}

func (b updateBookRequest) empty() bool {
	return b.Title == nil && b.Description == nil && b.Category == nil && b.Price == nil &&
		b.Author == nil && b.Pages == nil && b.CoverImageURL == nil && b.FileURL == nil &&
		b.Featured == nil && b.Currency == nil && b.Language == nil && b.Status == nil
}

func (h *Handlers) updateBook(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	id, err := entityID(req, "Book")
	if err != nil {
		return nil, err
	}
	var body updateBookRequest
	if err := bind(req, &body); err != nil {
		return nil, err
	}
	if body.empty() {
		return nil, apperr.Validation("No fields to update")
	}
	if body.Price != nil && body.Price.IsNegative() {
		return nil, apperr.Validation("price must not be negative")
	}

	book, err := h.store.GetEbook(ctx, id)
	if err != nil {
		return nil, storeErr(err, "Book")
	}

	setString(&book.Title, body.Title)
	setString(&book.Category, body.Category)
	setString(&book.Author, body.Author)
	setString(&book.CoverImageURL, body.CoverImageURL)
	setString(&book.FileURL, body.FileURL)
	setString(&book.Language, body.Language)
	setString(&book.Status, body.Status)
	if body.Currency != nil {
		book.Currency = strings.ToUpper(*body.Currency)
	}
	if body.Price != nil {
		book.Price = *body.Price
	}
	if body.Pages != nil {
		book.Pages = *body.Pages
	}
	if body.Featured != nil {
		book.Featured = *body.Featured
	}

	var gens []generator.Generation
	if body.Description != nil {
		book.Description = strings.TrimSpace(*body.Description)
		if utf8.RuneCountInString(book.Description) < generator.MinDescriptionLength {
			gen, err := h.gen.ExpandDescription(ctx, book.Title, book.Description, book.Category)
			if err != nil {
				return nil, generateErr(generator.KindBookDescription, err)
			}
			book.Description = gen.Text
			gens = append(gens, gen)
		}
	}

	if err := h.store.UpdateEbook(ctx, book); err != nil {
		return nil, storeErr(err, "Book")
	}
	return charged(book, "Book updated successfully", gens...), nil
}

func (h *Handlers) bookLandingPage(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	id, err := entityID(req, "Book")
	if err != nil {
		return nil, err
	}
	book, err := h.store.GetEbook(ctx, id)
	if err != nil {
		return nil, storeErr(err, "Book")
	}

	prompt := fmt.Sprintf("%s\n\nCategory: %s\nPrice: %s %s\n\n%s",
		book.Title, book.Category, book.Price.StringFixed(2), book.Currency, book.Description)
	gen, err := h.gen.Generate(ctx, generator.KindLandingPage, prompt)
	if err != nil {
		return nil, generateErr(generator.KindLandingPage, err)
	}

	content, err := h.saveContent(ctx, string(generator.KindLandingPage), book.Title+" Landing Page", prompt, book.Category, gen)
	if err != nil {
		return nil, err
	}
	return charged(map[string]any{
		"bookId":      book.ID,
		"landingPage": content,
		"slug":        textstats.Slug(book.Title),
	}, "Landing page created successfully", gen), nil
}

type seoArtifact struct {
	BookID          string   `json:"bookId"`
	Keywords        []string `json:"keywords"`
	MetaTitle       string   `json:"metaTitle"`
	MetaDescription string   `json:"metaDescription"`
	Slug            string   `json:"slug"`
	Score           int      `json:"score"`
	Recommendations []string `json:"recommendations"`
}

// optimizeBookSEO is deterministic: the same book always yields the same artifact.
func (h *Handlers) optimizeBookSEO(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	id, err := entityID(req, "Book")
	if err != nil {
		return nil, err
	}
	book, err := h.store.GetEbook(ctx, id)
	if err != nil {
		return nil, storeErr(err, "Book")
	}
	return ok(bookSEO(book), "SEO optimization generated"), nil
}

func bookSEO(book *models.Ebook) seoArtifact {
	source := strings.Join([]string{book.Title, book.Title, book.Category, book.Description}, " ")
	art := seoArtifact{
		BookID:          book.ID,
		Keywords:        []string{},
		MetaTitle:       textstats.Truncate(book.Title+" | "+book.Category+" eBook", 60),
		MetaDescription: textstats.Truncate(book.Description, 155),
		Slug:            textstats.Slug(book.Title),
		Recommendations: []string{},
	}
	for _, kw := range textstats.TopKeywords(source, 8) {
		art.Keywords = append(art.Keywords, kw.Keyword)
	}

	titleLen := utf8.RuneCountInString(book.Title)
	descLen := utf8.RuneCountInString(book.Description)
	lowerTitle := strings.ToLower(book.Title)
	lowerDesc := strings.ToLower(book.Description)

	check := func(pass bool, advice string) {
		if pass {
			art.Score += 20
			return
		}
		art.Recommendations = append(art.Recommendations, advice)
	}
	check(titleLen >= 30 && titleLen <= 60, "Keep the title between 30 and 60 characters")
	check(descLen >= 150, "Expand the description to at least 150 characters")
	check(len(art.Keywords) >= 5, "Add more topic-specific terms to the description")
	check(len(art.Keywords) > 0 && strings.Contains(lowerDesc, art.Keywords[0]), "Use the primary keyword in the description")
	check(strings.Contains(lowerDesc, strings.ToLower(book.Category)) || strings.Contains(lowerTitle, strings.ToLower(book.Category)),
		"Mention the category in the title or description")
	return art
}

type libraryStats struct {
	TotalBooks    int             `json:"totalBooks"`
	FeaturedBooks int             `json:"featuredBooks"`
	ByCategory    map[string]int  `json:"byCategory"`
	ByStatus      map[string]int  `json:"byStatus"`
	ByLanguage    map[string]int  `json:"byLanguage"`
	AveragePages  float64         `json:"averagePages"`
	Price         priceStats      `json:"price"`
	TopCategories []categoryCount `json:"topCategories"`
	RecentBooks   []models.Ebook  `json:"recentBooks"`
}

type priceStats struct {
	Min            decimal.Decimal `json:"min"`
	Max            decimal.Decimal `json:"max"`
	Average        decimal.Decimal `json:"average"`
	CatalogueValue decimal.Decimal `json:"catalogueValue"`
}

type categoryCount struct {
	Category string `json:"category"`
	Books    int    `json:"books"`
}

func (h *Handlers) libraryAnalytics(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	books, err := h.store.ListEbooks(ctx, store.EbookFilter{})
	if err != nil {
		return nil, storeErr(err, "Book")
	}
	return ok(computeLibraryStats(books), ""), nil
}

// computeLibraryStats expects books newest first, as the store lists them.
func computeLibraryStats(books []models.Ebook) libraryStats {
	s := libraryStats{
		TotalBooks:    len(books),
		ByCategory:    map[string]int{},
		ByStatus:      map[string]int{},
		ByLanguage:    map[string]int{},
		TopCategories: []categoryCount{},
		RecentBooks:   []models.Ebook{},
	}
	if len(books) == 0 {
		return s
	}

	pages := 0
	s.Price.Min = books[0].Price
	s.Price.Max = books[0].Price
	for _, b := range books {
		if b.Featured {
			s.FeaturedBooks++
		}
		s.ByCategory[b.Category]++
		s.ByStatus[b.Status]++
		s.ByLanguage[b.Language]++
		pages += b.Pages
		s.Price.CatalogueValue = s.Price.CatalogueValue.Add(b.Price)
		if b.Price.LessThan(s.Price.Min) {
			s.Price.Min = b.Price
		}
		if b.Price.GreaterThan(s.Price.Max) {
			s.Price.Max = b.Price
		}
	}
	s.AveragePages = float64(pages) / float64(len(books))
	s.Price.Average = s.Price.CatalogueValue.Div(decimal.NewFromInt(int64(len(books)))).Round(2)

	for c, n := range s.ByCategory {
		s.TopCategories = append(s.TopCategories, categoryCount{Category: c, Books: n})
	}
	sort.Slice(s.TopCategories, func(i, j int) bool {
		if s.TopCategories[i].Books != s.TopCategories[j].Books {
			return s.TopCategories[i].Books > s.TopCategories[j].Books
		}
		return s.TopCategories[i].Category < s.TopCategories[j].Category
	})
	if len(s.TopCategories) > 5 {
		s.TopCategories = s.TopCategories[:5]
	}

	recent := books
	if len(recent) > 5 {
		recent = recent[:5]
	}
	s.RecentBooks = append(s.RecentBooks, recent...)
	return s
}

func (h *Handlers) listBooks(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	books, err := h.store.ListEbooks(ctx, store.EbookFilter{
		Category: req.Query.Get("category"),
		Search:   req.Query.Get("search"),
	})
	if err != nil {
		return nil, storeErr(err, "Book")
	}
	if books == nil {
		books = []models.Ebook{}
	}
	return ok(map[string]any{"books": books, "count": len(books)}, ""), nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
