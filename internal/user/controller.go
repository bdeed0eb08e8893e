package user

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"twitter_api/internal/store"
)

const (
	msgUserNotFound      = "This user does not exist"
	msgPasswordIncorrect = "The password is incorrect"
	msgEmailTaken        = "This email is already registered"
	msgDuplicateID       = "A user with this id already exists"
	msgLoginIdentity     = "email or user_id is required"
)

type UserController struct {
	userService UserServiceInterface
}

func NewUserController(userService UserServiceInterface) *UserController {
	return &UserController{
		userService: userService,
	}
}

// SetupRoutes registers the user endpoints
func (uc *UserController) SetupRoutes(r gin.IRouter) {
	users := r.Group("/users")
	{
		users.POST("/signup", uc.Signup)
		users.POST("/login", uc.Login)
		users.GET("", uc.ListUsers)
		users.GET("/:id", uc.GetUser)
		users.PUT("/:id/update", uc.UpdateUser)
		users.DELETE("/:id/delete", uc.DeleteUser)
	}
}

type SignupRequest struct {
	UserID    string `json:"user_id" form:"user_id" binding:"omitempty,uuid"`
	Email     string `json:"email" form:"email" binding:"required,email"`
	Password  string `json:"password" form:"password" binding:"required,min=8,max=15"`
	FirstName string `json:"first_name" form:"first_name" binding:"required,min=1,max=50"`
	LastName  string `json:"last_name" form:"last_name" binding:"required,min=1,max=50"`
	BirthDate string `json:"birth_date" form:"birth_date" binding:"omitempty,isodate"`
}

type LoginRequest struct {
	Email    string `json:"email" form:"email" binding:"omitempty,email"`
	UserID   string `json:"user_id" form:"user_id"`
	Password string `json:"password" form:"password" binding:"required"`
}

type UpdateRequest struct {
	Email     string `json:"email" form:"email" binding:"required,email"`
	FirstName string `json:"first_name" form:"first_name" binding:"required,min=1,max=50"`
	LastName  string `json:"last_name" form:"last_name" binding:"required,min=1,max=50"`
}

// Signup handles user registration
func (uc *UserController) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	in := SignupInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
	if req.UserID != "" {
		id := uuid.MustParse(req.UserID)
		in.UserID = &id
	}
	if req.BirthDate != "" {
		d, err := store.ParseDate(req.BirthDate)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
			return
		}
		in.BirthDate = &d
	}

	user, err := uc.userService.Signup(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// Login verifies credentials and returns the profile
func (uc *UserController) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}
	if req.Email == "" && req.UserID == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": msgLoginIdentity})
		return
	}

	user, err := uc.userService.Login(c.Request.Context(), LoginInput{
		Email:    req.Email,
		UserID:   req.UserID,
		Password: req.Password,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (uc *UserController) ListUsers(c *gin.Context) {
	users, err := uc.userService.ListUsers(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, users)
}

func (uc *UserController) GetUser(c *gin.Context) {
	user, err := uc.userService.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (uc *UserController) UpdateUser(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	user, err := uc.userService.UpdateUser(c.Request.Context(), c.Param("id"), UpdateInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (uc *UserController) DeleteUser(c *gin.Context) {
	user, err := uc.userService.DeleteUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": msgUserNotFound})
	case errors.Is(err, ErrInvalidCredential):
		c.JSON(http.StatusNotFound, gin.H{"detail": msgPasswordIncorrect})
	case errors.Is(err, ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"detail": msgEmailTaken})
	case errors.Is(err, store.ErrDuplicateID):
		c.JSON(http.StatusConflict, gin.H{"detail": msgDuplicateID})
	default:
		logrus.WithError(err).WithField("path", c.FullPath()).Error("User request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
	}
}
