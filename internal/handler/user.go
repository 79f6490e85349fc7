package handler

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/labstack/echo/v4"

	"github.com/roamly/tour-booking/internal/apperr"
	"github.com/roamly/tour-booking/internal/middleware"
	"github.com/roamly/tour-booking/internal/repository"
)

// ProfileStore is the user-facing and admin-facing store surface.
type ProfileStore interface {
	GetByID(ctx context.Context, id uint64) (repository.User, error)
	UpdateProfile(ctx context.Context, id uint64, name, email, photo string) (repository.User, error)
	Deactivate(ctx context.Context, id uint64) error
	List(ctx context.Context) ([]repository.User, error)
	AdminUpdate(ctx context.Context, id uint64, name, email, role string) (repository.User, error)
	Delete(ctx context.Context, id uint64) error
}

// UserHandler serves self-service and admin user endpoints.
type UserHandler struct {
	Users     ProfileStore
	UploadDir string // destination for resized profile photos
}

func NewUserHandler(users ProfileStore, uploadDir string) *UserHandler {
	return &UserHandler{Users: users, UploadDir: uploadDir}
}

// Me returns the authenticated user.
func (h *UserHandler) Me(c echo.Context) error {
	user, _ := middleware.CurrentUser(c)
	return ok(c, http.StatusOK, echo.Map{"data": echo.Map{"user": user}})
}

// UpdateMe edits name, email and profile photo. Password changes are
// explicitly refused here; they have their own endpoint with a current
// password check.
func (h *UserHandler) UpdateMe(c echo.Context) error {
	if c.FormValue("password") != "" || c.FormValue("confirmPassword") != "" {
		return apperr.ValidationFailed(
			"This route is not for password updates. Please use /updateMyPassword.")
	}

	user, _ := middleware.CurrentUser(c)
	photo := ""
	if file, err := c.FormFile("photo"); err == nil {
		name, err := h.savePhoto(file, user.ID)
		if err != nil {
			return err
		}
		photo = name
	}

	updated, err := h.Users.UpdateProfile(c.Request().Context(), user.ID,
		c.FormValue("name"), c.FormValue("email"), photo)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"data": echo.Map{"user": updated}})
}

// DeleteMe deactivates the account; the record survives for history.
func (h *UserHandler) DeleteMe(c echo.Context) error {
	user, _ := middleware.CurrentUser(c)
	if err := h.Users.Deactivate(c.Request().Context(), user.ID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// savePhoto decodes an uploaded image, squares it to 500x500 and stores it
// as JPEG under the upload dir. Bad input fails as a validation error.
func (h *UserHandler) savePhoto(file *multipart.FileHeader, userID uint64) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	img, err := imaging.Decode(src)
	if err != nil {
		return "", apperr.ValidationFailed("Uploaded file is not a valid image")
	}
	resized := imaging.Fill(img, 500, 500, imaging.Center, imaging.Lanczos)

	name := fmt.Sprintf("user-%d-%d.jpeg", userID, time.Now().Unix())
	if err := imaging.Save(resized, filepath.Join(h.UploadDir, name)); err != nil {
		return "", err
	}
	return name, nil
}

// ----- admin endpoints -----

// ListUsers returns every active user.
func (h *UserHandler) ListUsers(c echo.Context) error {
	users, err := h.Users.List(c.Request().Context())
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{
		"results": len(users),
		"data":    echo.Map{"users": users},
	})
}

// GetUser returns one user by id.
func (h *UserHandler) GetUser(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	user, err := h.Users.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("No user found with that ID")
		}
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"data": echo.Map{"user": user}})
}

type adminUserReq struct {
	Name  string `json:"name"`
	Email string `json:"email" validate:"omitempty,email"`
	Role  string `json:"role" validate:"omitempty,oneof=user guide lead-guide admin"`
}

// UpdateUser lets an admin change name, email and role.
func (h *UserHandler) UpdateUser(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req adminUserReq
	if err := c.Bind(&req); err != nil {
		return apperr.ValidationFailed("Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	user, err := h.Users.AdminUpdate(c.Request().Context(), id, req.Name, req.Email, req.Role)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("No user found with that ID")
		}
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"data": echo.Map{"user": user}})
}

// DeleteUser removes a user row entirely.
func (h *UserHandler) DeleteUser(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Users.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("No user found with that ID")
		}
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// CreateUser exists only to point API users at signup.
func (h *UserHandler) CreateUser(c echo.Context) error {
	return apperr.New(apperr.CodeValidationFailed, http.StatusBadRequest,
		"This route is not defined! Please use /signup instead.")
}
