package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/moviestore/internal/model"
)

type movieReq struct {
	Title       string `json:"title" form:"title" validate:"required,max=200"`
	Language    string `json:"language" form:"language" validate:"required"`
	Genre       string `json:"genre" form:"genre" validate:"required"`
	Director    string `json:"director" form:"director"`
	Cast        string `json:"cast" form:"cast"`
	Description string `json:"description" form:"description"`
	DurationMin int    `json:"durationMin" form:"durationMin" validate:"gte=1,lte=600"`
	ReleaseDate string `json:"releaseDate" form:"releaseDate" validate:"required,day"`
	EndDate     string `json:"endDate" form:"endDate" validate:"required,day"`
}

func (r movieReq) toModel() (*model.Movie, error) {
	release, _ := model.ParseDay(r.ReleaseDate)
	end, _ := model.ParseDay(r.EndDate)
	if end.Before(release) {
		return nil, invalid("endDate must not be before releaseDate")
	}
	return &model.Movie{
		Title:       strings.TrimSpace(r.Title),
		Language:    strings.TrimSpace(r.Language),
		Genre:       strings.TrimSpace(r.Genre),
		Director:    strings.TrimSpace(r.Director),
		Cast:        strings.TrimSpace(r.Cast),
		Description: strings.TrimSpace(r.Description),
		DurationMin: r.DurationMin,
		ReleaseDate: release,
		EndDate:     end,
	}, nil
}

// ListMovies handles GET /admin/movies.
func (h *AdminHandler) ListMovies(c echo.Context) error {
	ctx, cancel := timeout(c)
	defer cancel()
	movies, err := h.Movies.List(ctx)
	if err != nil {
		return fail(c, err)
	}
	if movies == nil {
		movies = []model.Movie{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": movies})
}

// CreateMovie handles POST /admin/movies.
func (h *AdminHandler) CreateMovie(c echo.Context) error {
	var req movieReq
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	m, err := req.toModel()
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := timeout(c)
	defer cancel()
	if err := h.Movies.Create(ctx, m); err != nil {
		return fail(c, err)
	}
	log.Info().Uint64("movie_id", m.ID).Str("title", m.Title).Msg("movie created")
	return c.JSON(http.StatusCreated, m)
}

// UpdateMovie handles PUT /admin/movies/:id.
func (h *AdminHandler) UpdateMovie(c echo.Context) error {
	movieID, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req movieReq
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	m, err := req.toModel()
	if err != nil {
		return fail(c, err)
	}
	m.ID = movieID
	ctx, cancel := timeout(c)
	defer cancel()
	if err := h.Movies.Update(ctx, m); err != nil {
		return fail(c, err)
	}
	got, err := h.Movies.GetByID(ctx, movieID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, got)
}

// UploadMovieImage handles POST /admin/movies/:id/image with a multipart
// "image" file.
func (h *AdminHandler) UploadMovieImage(c echo.Context) error {
	movieID, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := timeout(c)
	defer cancel()
	if _, err := h.Movies.GetByID(ctx, movieID); err != nil {
		return fail(c, err)
	}
	fh, err := c.FormFile("image")
	if err != nil {
		return fail(c, invalid("image file is required"))
	}
	url, err := h.Store.Save("movies", fh)
	if err != nil {
		return fail(c, err)
	}
	if err := h.Movies.SetImage(ctx, movieID, url); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"imageUrl": url})
}

// DeleteMovie handles DELETE /admin/movies/:id. A movie with showtimes is
// kept and the request answers 400.
func (h *AdminHandler) DeleteMovie(c echo.Context) error {
	movieID, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := timeout(c)
	defer cancel()
	if err := h.Movies.Delete(ctx, movieID); err != nil {
		return fail(c, err)
	}
	log.Info().Uint64("movie_id", movieID).Msg("movie deleted")
	return c.NoContent(http.StatusNoContent)
}
