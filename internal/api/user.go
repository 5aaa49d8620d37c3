package api

import (
	"errors"
	"net/http"

	"admin-dashboard/backend/internal/models"
	"admin-dashboard/backend/internal/service"
	apperrors "admin-dashboard/backend/pkg/errors"
	"admin-dashboard/backend/pkg/logger"
	"admin-dashboard/backend/pkg/pipeline"
	"admin-dashboard/backend/pkg/storage"

	"github.com/gin-gonic/gin"
)

// ProfileImageField is the multipart field carrying an uploaded image.
const ProfileImageField = "profile_image"

// MsgImageUploaded is returned after a successful image upload.
const MsgImageUploaded = "Profile image uploaded successfully"

// ProfileHandler serves the authenticated user's own profile.
type ProfileHandler struct {
	users   *service.UserService
	files   storage.FileStore
	maxSize int64
}

// NewProfileHandler creates a profile handler. Uploads larger than maxSize
// bytes are rejected.
func NewProfileHandler(users *service.UserService, files storage.FileStore, maxSize int64) *ProfileHandler {
	return &ProfileHandler{users: users, files: files, maxSize: maxSize}
}

// Get returns {id, username, email} for the caller.
func (h *ProfileHandler) Get(req *pipeline.Request) error {
	req.JSON(http.StatusOK, req.User.ToProfile())
	return nil
}

// Update applies the optional name, email and bio fields.
func (h *ProfileHandler) Update(req *pipeline.Request) error {
	upd := models.ProfileUpdate{
		Name:  req.Payload.Ptr("name"),
		Email: req.Payload.Ptr("email"),
		Bio:   req.Payload.Ptr("bio"),
	}

	user, err := h.users.UpdateProfile(req.Request.Context(), req.User, upd)
	if err != nil {
		return serviceError(err)
	}
	req.JSON(http.StatusOK, user.ToDetails())
	return nil
}

// UploadImage stores the multipart profile_image under a random name and
// records it on the user.
func (h *ProfileHandler) UploadImage(req *pipeline.Request) error {
	if h.maxSize > 0 {
		req.Request.Body = http.MaxBytesReader(req.Writer, req.Request.Body, h.maxSize)
	}

	file, header, err := req.Request.FormFile(ProfileImageField)
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return apperrors.NewBadRequestError(apperrors.CodeInvalidUpload, MsgNoFilePart)
	case err != nil:
		return apperrors.NewBadRequestError(apperrors.CodeInvalidUpload, MsgInvalidUpload).Wrap(err)
	}
	defer file.Close()

	if header.Filename == "" {
		return apperrors.NewBadRequestError(apperrors.CodeInvalidUpload, MsgNoSelectedFile)
	}

	ctx := req.Request.Context()
	path, err := h.files.Save(ctx, storage.UniqueName(header.Filename), file, header.Header.Get("Content-Type"))
	if err != nil {
		return apperrors.Internal(err)
	}
	if err := h.users.SetProfileImage(ctx, req.User, path); err != nil {
		return apperrors.Internal(err)
	}

	logger.FromGin(req.Context).Info("Profile image uploaded", "path", path)
	req.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    MsgImageUploaded,
		"image_path": path,
	})
	return nil
}
