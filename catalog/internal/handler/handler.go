package handler

import (
	"net/http"
	"strconv"

	md "github.com/chrismer/biblioteca-service/pkg/middleware"

	"github.com/chrismer/biblioteca-service/catalog/internal/errs"
	"github.com/chrismer/biblioteca-service/catalog/internal/model"
	"github.com/chrismer/biblioteca-service/pkg/validate"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Handler struct {
	catalogSvc CatalogService
	loanSvc    LoanService
	log        *zap.Logger
}

func New(catalogSvc CatalogService, loanSvc LoanService, log *zap.Logger) *Handler {
	return &Handler{
		catalogSvc: catalogSvc,
		loanSvc:    loanSvc,
		log:        log,
	}
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowCredentials: true,
	}))

	base := e.Group("", md.NewRateLimiter(baseRPS))
	base.GET("/manage/health", h.Health)

	e.Validator = validate.NewCustomValidator()
	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(md.RequestLoggerConfig()),
		middleware.RequestID(),
		md.NewRateLimiter(apiRPS),
	)

	api.POST("/shelves", h.CreateShelf)
	api.GET("/shelves", h.ListShelves)
	api.PATCH("/shelves/:id", h.UpdateShelf)
	api.DELETE("/shelves/:id", h.DeleteShelf)
	api.GET("/shelves/:id/books", h.ListBooksByShelf)

	api.POST("/books", h.CreateBook)
	api.GET("/books", h.ListBooks)
	api.GET("/books/search", h.SearchBooks)
	api.GET("/books/:id", h.GetBook)
	api.PATCH("/books/:id", h.UpdateBook)
	api.DELETE("/books/:id", h.DeleteBook)
	api.POST("/books/:id/relocate", h.RelocateBook)
	api.POST("/books/:id/copies", h.AddCopy)
	api.GET("/books/:id/copies", h.ListCopies)

	api.DELETE("/copies/:id", h.RemoveCopy)
	api.POST("/copies/:id/return", h.ReturnLoan)

	api.POST("/loans", h.IssueLoan)
	api.POST("/loans/by-code", h.IssueLoanByBookCode)
	api.POST("/loans/:id/renew", h.RenewLoan)
	api.GET("/loans", h.ListLoans)
	api.GET("/loans/overdue", h.ListOverdueLoans)

	api.POST("/users", h.CreateUser)
	api.GET("/users", h.ListUsers)
	api.GET("/users/:id/loans", h.ListUserLoans)

	api.GET("/authors", h.ListAuthors)
	api.GET("/genres", h.ListGenres)

	api.GET("/summary", h.Summary)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func httpError(err error) *echo.HTTPError {
	var (
		validationErr *errs.ValidationError
		shelfFullErr  *errs.ShelfFullError
	)
	switch {
	case errors.As(err, &validationErr):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, errs.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.As(err, &shelfFullErr),
		errors.Is(err, errs.ErrNoActiveLoan),
		errors.Is(err, errs.ErrDuplicateCode),
		errors.Is(err, errs.ErrDuplicateISBN),
		errors.Is(err, errs.ErrDuplicateShelfName),
		errors.Is(err, errs.ErrDuplicateCopyCode),
		errors.Is(err, errs.ErrDuplicateEmail),
		errors.Is(err, errs.ErrCopyNotAvailable),
		errors.Is(err, errs.ErrCopyNotRemovable),
		errors.Is(err, errs.ErrLoanOverdue),
		errors.Is(err, errs.ErrUserInactive),
		errors.Is(err, errs.ErrShelfNotEmpty),
		errors.Is(err, errs.ErrSameShelf),
		errors.Is(err, errs.ErrBookHasLoans):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func pathID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) CreateShelf(c echo.Context) error {
	var req model.CreateShelfRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	id, err := h.catalogSvc.CreateShelf(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

func (h *Handler) ListShelves(c echo.Context) error {
	shelves, err := h.catalogSvc.ListShelves(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, shelves)
}

func (h *Handler) UpdateShelf(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req model.UpdateShelfRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	shelf, err := h.catalogSvc.UpdateShelf(c.Request().Context(), id, req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, shelf)
}

func (h *Handler) DeleteShelf(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.catalogSvc.DeleteShelf(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListBooksByShelf(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	books, err := h.catalogSvc.ListBooksByShelf(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, books)
}

func (h *Handler) CreateBook(c echo.Context) error {
	var req model.CreateBookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	id, err := h.catalogSvc.CreateBook(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

func (h *Handler) ListBooks(c echo.Context) error {
	books, err := h.catalogSvc.ListBooks(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, books)
}

func (h *Handler) SearchBooks(c echo.Context) error {
	books, err := h.catalogSvc.SearchBooks(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, books)
}

func (h *Handler) GetBook(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	book, err := h.catalogSvc.GetBook(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, book)
}

func (h *Handler) UpdateBook(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req model.UpdateBookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := h.catalogSvc.UpdateBook(c.Request().Context(), id, req); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusOK)
}

func (h *Handler) DeleteBook(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.catalogSvc.DeleteBook(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) RelocateBook(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req struct {
		ShelfID int `json:"shelfId" validate:"required,min=1"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := h.catalogSvc.RelocateBook(c.Request().Context(), id, req.ShelfID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusOK)
}

func (h *Handler) AddCopy(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	copyID, err := h.catalogSvc.AddCopy(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": copyID})
}

func (h *Handler) ListCopies(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	copies, err := h.catalogSvc.ListCopies(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, copies)
}

func (h *Handler) RemoveCopy(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.catalogSvc.RemoveCopy(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) IssueLoan(c echo.Context) error {
	var req model.IssueLoanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	loan, err := h.loanSvc.IssueLoan(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, loan)
}

func (h *Handler) IssueLoanByBookCode(c echo.Context) error {
	var req model.IssueLoanByCodeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	loan, err := h.loanSvc.IssueLoanByBookCode(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, loan)
}

func (h *Handler) ReturnLoan(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	loan, err := h.loanSvc.ReturnLoan(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, loan)
}

func (h *Handler) RenewLoan(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req model.RenewLoanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	loan, err := h.loanSvc.RenewLoan(c.Request().Context(), id, req.ExtraDays)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, loan)
}

func (h *Handler) ListLoans(c echo.Context) error {
	loans, err := h.loanSvc.ListActive(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, loans)
}

func (h *Handler) ListOverdueLoans(c echo.Context) error {
	loans, err := h.loanSvc.ListOverdue(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, loans)
}

func (h *Handler) CreateUser(c echo.Context) error {
	var req model.CreateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	id, err := h.catalogSvc.CreateUser(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

func (h *Handler) ListUsers(c echo.Context) error {
	users, err := h.catalogSvc.ListUsers(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, users)
}

func (h *Handler) ListAuthors(c echo.Context) error {
	authors, err := h.catalogSvc.ListAuthors(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, authors)
}

func (h *Handler) ListGenres(c echo.Context) error {
	genres, err := h.catalogSvc.ListGenres(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, genres)
}

func (h *Handler) ListUserLoans(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	loans, err := h.loanSvc.ListActiveByUser(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, loans)
}

func (h *Handler) Summary(c echo.Context) error {
	gg, ctx := errgroup.WithContext(c.Request().Context())
	var (
		sum     model.Summary
		overdue []model.Loan
	)
	gg.Go(func() error {
		var err error
		sum, err = h.catalogSvc.Summary(ctx)
		return err
	})
	gg.Go(func() error {
		var err error
		overdue, err = h.loanSvc.ListOverdue(ctx)
		return err
	})
	if err := gg.Wait(); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"summary":      sum,
		"overdueLoans": overdue,
	})
}
