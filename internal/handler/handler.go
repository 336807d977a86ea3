package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"campusportal/internal/attendance"
	"campusportal/internal/auth"
	"campusportal/internal/calendar"
	"campusportal/internal/onduty"
	"campusportal/internal/roster"
	"campusportal/internal/upload"
)

// Handler binds the portal services to gin routes.
type Handler struct {
	roster     *roster.Service
	onduty     *onduty.Service
	calendar   *calendar.Service
	attendance *attendance.Service
	uploads    upload.Store
}

// New creates a handler.
func New(r *roster.Service, o *onduty.Service, cal *calendar.Service, att *attendance.Service, uploads upload.Store) *Handler {
	return &Handler{roster: r, onduty: o, calendar: cal, attendance: att, uploads: uploads}
}

// ---------- Registration & Login ----------

type registerRequest struct {
	Name       string `json:"name" binding:"required"`
	RollNumber string `json:"rollNumber" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Phone      string `json:"phone" binding:"required"`
	Password   string `json:"password" binding:"required,min=6"`
}

// Register creates a new student account awaiting admin approval.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	_, err := h.roster.Register(c.Request.Context(), roster.RegisterInput{
		Name:       req.Name,
		RollNumber: req.RollNumber,
		Email:      req.Email,
		Phone:      req.Phone,
		Password:   req.Password,
	})
	if err != nil {
		if errors.Is(err, roster.ErrDuplicate) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		serverError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Registration successful, awaiting approval"})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates and returns a session token with the caller's role.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	token, user, err := h.roster.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, roster.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "role": user.Role})
}

// ---------- Roster ----------

// ListStudents returns every student account, pending ones included.
func (h *Handler) ListStudents(c *gin.Context) {
	students, err := h.roster.ListStudents(c.Request.Context())
	if err != nil {
		serverError(c, err)
		return
	}
	if students == nil {
		students = []roster.User{}
	}
	c.JSON(http.StatusOK, students)
}

type userIDRequest struct {
	UserID string `json:"userId" binding:"required"`
}

// ApproveStudent marks an account approved.
func (h *Handler) ApproveStudent(c *gin.Context) {
	var req userIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.roster.Approve(c.Request.Context(), req.UserID); err != nil {
		if errors.Is(err, roster.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Student approved"})
}

// DeactivateStudent disables an account. Terminal.
func (h *Handler) DeactivateStudent(c *gin.Context) {
	var req userIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.roster.Deactivate(c.Request.Context(), req.UserID); err != nil {
		if errors.Is(err, roster.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Student deactivated"})
}

// TodaysAttendance returns attendance recorded since midnight server time.
func (h *Handler) TodaysAttendance(c *gin.Context) {
	records, err := h.attendance.TodaysRecords(c.Request.Context())
	if err != nil {
		serverError(c, err)
		return
	}
	if records == nil {
		records = []attendance.Record{}
	}
	c.JSON(http.StatusOK, records)
}

// ---------- Onduty ----------

// SubmitOnduty accepts a multipart form with reason, dates (JSON array) and
// an optional attachment. The owner roll number always comes from the token.
func (h *Handler) SubmitOnduty(c *gin.Context) {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing claims"})
		return
	}

	reason := c.PostForm("reason")
	var dates []string
	if raw := c.PostForm("dates"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &dates); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "dates must be a JSON array"})
			return
		}
	}

	var attachmentRef string
	if file, err := c.FormFile("attachment"); err == nil {
		src, err := file.Open()
		if err != nil {
			serverError(c, err)
			return
		}
		defer src.Close()
		attachmentRef, err = h.uploads.Save(file.Filename, src)
		if err != nil {
			log.Printf("attachment save failed: %v", err)
			serverError(c, err)
			return
		}
	}

	_, err := h.onduty.Submit(c.Request.Context(), claims.RollNumber, reason, dates, attachmentRef)
	if err != nil {
		if errors.Is(err, onduty.ErrMissingFields) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		serverError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Onduty request submitted"})
}

// ListOnduty returns every request regardless of owner.
func (h *Handler) ListOnduty(c *gin.Context) {
	requests, err := h.onduty.ListAll(c.Request.Context())
	if err != nil {
		serverError(c, err)
		return
	}
	if requests == nil {
		requests = []onduty.Request{}
	}
	c.JSON(http.StatusOK, requests)
}

// ListMyOnduty returns only the caller's requests.
func (h *Handler) ListMyOnduty(c *gin.Context) {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing claims"})
		return
	}
	requests, err := h.onduty.ListMine(c.Request.Context(), claims.RollNumber)
	if err != nil {
		serverError(c, err)
		return
	}
	if requests == nil {
		requests = []onduty.Request{}
	}
	c.JSON(http.StatusOK, requests)
}

type ondutyActionRequest struct {
	OndutyID string `json:"ondutyId" binding:"required"`
	Status   string `json:"status" binding:"required"`
}

// ActOnduty applies an approve or reject decision.
func (h *Handler) ActOnduty(c *gin.Context) {
	var req ondutyActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	updated, err := h.onduty.Act(c.Request.Context(), req.OndutyID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, onduty.ErrInvalidStatus):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, onduty.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, onduty.ErrTerminal):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			serverError(c, err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Onduty " + updated.Status})
}

// ---------- Events ----------

type createEventRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Date        string `json:"date" binding:"required"`
	Type        string `json:"type" binding:"required"`
}

// CreateEvent adds a calendar entry.
func (h *Handler) CreateEvent(c *gin.Context) {
	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be RFC3339 or YYYY-MM-DD"})
		return
	}
	_, err = h.calendar.Create(c.Request.Context(), req.Title, req.Description, date, req.Type)
	if err != nil {
		if errors.Is(err, calendar.ErrInvalidType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		serverError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Event created"})
}

// ListEvents returns all events to any authenticated user.
func (h *Handler) ListEvents(c *gin.Context) {
	events, err := h.calendar.List(c.Request.Context())
	if err != nil {
		serverError(c, err)
		return
	}
	if events == nil {
		events = []calendar.Event{}
	}
	c.JSON(http.StatusOK, events)
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func serverError(c *gin.Context, err error) {
	log.Printf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
