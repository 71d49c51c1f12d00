package handler

import (
    "context"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/shopspring/decimal"

    "github.com/iliyamo/sports-class-booking/internal/model"
    "github.com/iliyamo/sports-class-booking/internal/repository"
)

// ClassStore is the slice of repository.ClassRepo used over HTTP.
type ClassStore interface {
    Create(ctx context.Context, c *model.ClassOffering) error
    GetByID(ctx context.Context, id uint64) (model.ClassOffering, error)
    ListByStatus(ctx context.Context, status model.ClassStatus) ([]model.ClassOffering, error)
    ListPopular(ctx context.Context, limit int) ([]model.ClassOffering, error)
    ListByInstructor(ctx context.Context, email string) ([]model.ClassOffering, error)
    SetStatus(ctx context.Context, id uint64, status model.ClassStatus, feedback string) error
    Update(ctx context.Context, id uint64, instructorEmail string, u repository.ClassUpdate) error
}

// Purger drops cached class listings after a write.
type Purger interface {
    Purge(ctx context.Context) error
}

// ClassHandler serves class browsing, instructor edits and admin review.
type ClassHandler struct {
    Classes ClassStore
    Users   AccountStore
    Cache   Purger
    Timeout time.Duration
}

func NewClassHandler(classes ClassStore, users AccountStore, cache Purger, timeout time.Duration) *ClassHandler {
    return &ClassHandler{Classes: classes, Users: users, Cache: cache, Timeout: timeout}
}

// classView is the public shape of a class: price in major units.
type classView struct {
    model.ClassOffering
    Price decimal.Decimal `json:"price"`
}

func viewOf(c model.ClassOffering) classView {
    return classView{ClassOffering: c, Price: model.FromMinorUnits(c.PriceCents)}
}

func viewsOf(cs []model.ClassOffering) []classView {
    out := make([]classView, 0, len(cs))
    for _, c := range cs {
        out = append(out, viewOf(c))
    }
    return out
}

type classReq struct {
    Name       string          `json:"name"`
    ImageURL   string          `json:"image_url"`
    Price      decimal.Decimal `json:"price"`
    TotalSeats uint32          `json:"total_seats"`
}

func (r classReq) validate() (int64, string) {
    if strings.TrimSpace(r.Name) == "" {
        return 0, "name required"
    }
    if r.TotalSeats == 0 {
        return 0, "total_seats must be positive"
    }
    cents, err := model.ToMinorUnits(r.Price)
    if err != nil || cents == 0 {
        return 0, "price must be a positive amount with at most two decimals"
    }
    return cents, ""
}

// Approved handles GET /classes.
func (h *ClassHandler) Approved(c echo.Context) error {
    ctx, cancel := withTimeout(c, h.Timeout)
    defer cancel()
    list, err := h.Classes.ListByStatus(ctx, model.ClassApproved)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, viewsOf(list))
}

// Popular handles GET /classes/popular?limit=.
func (h *ClassHandler) Popular(c echo.Context) error {
    limit, _ := strconv.Atoi(c.QueryParam("limit"))
    ctx, cancel := withTimeout(c, h.Timeout)
    defer cancel()
    list, err := h.Classes.ListPopular(ctx, limit)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, viewsOf(list))
}

// All handles GET /allClasses?status= (admin).  Defaults to the review
// queue of pending classes.
func (h *ClassHandler) All(c echo.Context) error {
    status := model.ClassPending
    if s := c.QueryParam("status"); s != "" {
        var ok bool
        if status, ok = model.ParseClassStatus(s); !ok {
            return badRequest(c, "unknown status")
        }
    }
    ctx, cancel := withTimeout(c, h.Timeout)
    defer cancel()
    list, err := h.Classes.ListByStatus(ctx, status)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, viewsOf(list))
}

// Mine handles GET /classes/myClass?email= (instructor, self).
func (h *ClassHandler) Mine(c echo.Context) error {
    ctx, cancel := withTimeout(c, h.Timeout)
    defer cancel()
    list, err := h.Classes.ListByInstructor(ctx, callerEmail(c))
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, viewsOf(list))
}

// Create handles POST /classes (instructor).  The class starts Pending and
// is invisible to students until an admin approves it.
func (h *ClassHandler) Create(c echo.Context) error {
    var req classReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    cents, msg := req.validate()
    if msg != "" {
        return badRequest(c, msg)
    }
    ctx, cancel := withTimeout(c, h.Timeout)
    defer cancel()

    email := callerEmail(c)
    acct, err := h.Users.GetByEmail(ctx, email)
    if err != nil {
        return fail(c, err)
    }
    class := model.ClassOffering{
        InstructorEmail: email,
        InstructorName:  acct.Name,
        Name:            strings.TrimSpace(req.Name),
        ImageURL:        strings.TrimSpace(req.ImageURL),
        PriceCents:      cents,
        TotalSeats:      req.TotalSeats,
    }
    if err := h.Classes.Create(ctx, &class); err != nil {
        return fail(c, err)
    }
    c.Logger().Infof("class %d created by %s", class.ID, email)
    return c.JSON(http.StatusCreated, viewOf(class))
}

// Update handles PUT /classes/:id (owning instructor).
func (h *ClassHandler) Update(c echo.Context) error {
    id, ok := idParam(c, "id")
    if !ok {
        return badRequest(c, "invalid class id")
    }
    var req classReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    cents, msg := req.validate()
    if msg != "" {
        return badRequest(c, msg)
    }
    ctx, cancel := withTimeout(c, h.Timeout)
    defer cancel()
    err := h.Classes.Update(ctx, id, callerEmail(c), repository.ClassUpdate{
        Name:       strings.TrimSpace(req.Name),
        ImageURL:   strings.TrimSpace(req.ImageURL),
        PriceCents: cents,
        TotalSeats: req.TotalSeats,
    })
    if err != nil {
        return fail(c, err)
    }
    h.purge(ctx, c)
    class, err := h.Classes.GetByID(ctx, id)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, viewOf(class))
}

// SetStatus handles PATCH /classes/:status/:id (admin) with an optional
// {"feedback": "..."} body.
func (h *ClassHandler) SetStatus(c echo.Context) error {
    status, ok := model.ParseClassStatus(c.Param("status"))
    if !ok {
        return badRequest(c, "unknown status")
    }
    id, ok := idParam(c, "id")
    if !ok {
        return badRequest(c, "invalid class id")
    }
    var body struct {
        Feedback string `json:"feedback"`
    }
    if c.Request().ContentLength > 0 {
        if err := c.Bind(&body); err != nil {
            return badRequest(c, "invalid body")
        }
    }
    ctx, cancel := withTimeout(c, h.Timeout)
    defer cancel()
    if err := h.Classes.SetStatus(ctx, id, status, strings.TrimSpace(body.Feedback)); err != nil {
        return fail(c, err)
    }
    h.purge(ctx, c)
    c.Logger().Infof("class %d set to %s by %s", id, status, callerEmail(c))
    return c.JSON(http.StatusOK, echo.Map{"id": id, "status": status})
}

func (h *ClassHandler) purge(ctx context.Context, c echo.Context) {
    if h.Cache == nil {
        return
    }
    if err := h.Cache.Purge(ctx); err != nil {
        c.Logger().Warnf("cache purge: %v", err)
    }
}
