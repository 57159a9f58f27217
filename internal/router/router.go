// Package router defines the HTTP API of the service: registration,
// login, avatar upload and the supporting read-only endpoints.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/userauth/internal/apperror"
	"github.com/patric-chuzhbe/userauth/internal/auth"
	"github.com/patric-chuzhbe/userauth/internal/authenticator"
	"github.com/patric-chuzhbe/userauth/internal/blobstorage"
	"github.com/patric-chuzhbe/userauth/internal/gzippedhttp"
	"github.com/patric-chuzhbe/userauth/internal/logger"
	"github.com/patric-chuzhbe/userauth/internal/models"
	"github.com/patric-chuzhbe/userauth/internal/user"
)

const avatarFormField = "avatar"

// multipartOverhead is the room left for boundaries and part headers
// on top of the avatar itself.
const multipartOverhead = 1 << 20

type userService interface {
	CreateUser(ctx context.Context, name, email, password string) (*user.User, error)
	AuthenticateUser(ctx context.Context, email, password string) (*user.User, string, error)
	UpdateUserAvatar(ctx context.Context, userID, avatarFileName string) (*user.User, error)
	GetInternalStats(ctx context.Context) (models.InternalStatsResponse, error)
	Ping(ctx context.Context) error
}

type blobStore interface {
	Save(ctx context.Context, originalName string, content io.Reader) (string, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, name string) error
}

type trustedSubnetGuard interface {
	TrustedSubnetOnly(h http.Handler) http.Handler
}

// Router is the chi multiplexer with all the routes of the service mounted.
type Router struct {
	*chi.Mux
	service       userService
	blobs         blobStore
	filesBaseURL  string
	maxAvatarSize int64
	validate      *validator.Validate
}

// New builds the router. filesBaseURL prefixes avatar names in responses.
func New(
	service userService,
	blobs blobStore,
	authMiddleware authenticator.Authenticator,
	ipChecker trustedSubnetGuard,
	filesBaseURL string,
	maxAvatarSize int64,
) *Router {
	r := &Router{
		Mux:           chi.NewRouter(),
		service:       service,
		blobs:         blobs,
		filesBaseURL:  strings.TrimRight(filesBaseURL, "/"),
		maxAvatarSize: maxAvatarSize,
		validate:      validator.New(),
	}

	r.Use(
		middleware.RequestID,
		logger.WithLoggingHTTPMiddleware,
		middleware.Recoverer,
		middleware.Compress(5, "application/json"),
	)

	r.With(gzippedhttp.UngzipRequest).Post(`/users`, r.PostUsers)
	r.With(gzippedhttp.UngzipRequest).Post(`/sessions`, r.PostSessions)
	r.With(authMiddleware.EnsureAuthenticated).Patch(`/users/avatar`, r.PatchUsersAvatar)
	r.Get(`/files/{name}`, r.GetFile)
	r.Get(`/ping`, r.GetPing)
	r.With(ipChecker.TrustedSubnetOnly).Get(`/api/internal/stats`, r.GetInternalStats)

	return r
}

// PostUsers registers a new user.
func (r *Router) PostUsers(response http.ResponseWriter, request *http.Request) {
	var body models.CreateUserRequest
	if err := r.decodeAndValidate(request, &body); err != nil {
		apperror.Respond(response, err)
		return
	}

	usr, err := r.service.CreateUser(request.Context(), body.Name, body.Email, body.Password)
	if err != nil {
		logger.Log.Debugln("Error calling the `r.service.CreateUser()`: ", zap.Error(err))
		apperror.Respond(response, err)
		return
	}

	r.writeJSON(response, http.StatusCreated, models.UserEnvelope{User: r.toUserResponse(usr)})
}

// PostSessions exchanges an email/password pair for a session token.
func (r *Router) PostSessions(response http.ResponseWriter, request *http.Request) {
	var body models.LoginRequest
	if err := r.decodeAndValidate(request, &body); err != nil {
		apperror.Respond(response, err)
		return
	}

	usr, token, err := r.service.AuthenticateUser(request.Context(), body.Email, body.Password)
	if err != nil {
		logger.Log.Debugln("Error calling the `r.service.AuthenticateUser()`: ", zap.Error(err))
		apperror.Respond(response, err)
		return
	}

	r.writeJSON(response, http.StatusOK, models.LoginResponse{
		User:  r.toUserResponse(usr),
		Token: token,
	})
}

// PatchUsersAvatar stores the uploaded file and makes it the avatar of
// the authenticated user.
func (r *Router) PatchUsersAvatar(response http.ResponseWriter, request *http.Request) {
	ctx := request.Context()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		apperror.Respond(response, apperror.ErrUserNotFound)
		return
	}

	request.Body = http.MaxBytesReader(response, request.Body, r.maxAvatarSize+multipartOverhead)

	file, header, err := request.FormFile(avatarFormField)
	if err != nil {
		logger.Log.Debugln("Error calling the `request.FormFile()`: ", zap.Error(err))
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			apperror.Respond(response, r.avatarTooLarge())
			return
		}
		apperror.Respond(response, apperror.ErrAvatarRequired)
		return
	}
	defer file.Close()

	if header.Size > r.maxAvatarSize {
		apperror.Respond(response, r.avatarTooLarge())
		return
	}

	avatarFileName, err := r.blobs.Save(ctx, header.Filename, file)
	if err != nil {
		logger.Log.Debugln("Error calling the `r.blobs.Save()`: ", zap.Error(err))
		apperror.Respond(response, err)
		return
	}

	usr, err := r.service.UpdateUserAvatar(ctx, userID, avatarFileName)
	if err != nil {
		logger.Log.Debugln("Error calling the `r.service.UpdateUserAvatar()`: ", zap.Error(err))
		// Nothing references the new file; a leftover is harmless.
		_ = r.blobs.Delete(context.WithoutCancel(ctx), avatarFileName)
		apperror.Respond(response, err)
		return
	}

	r.writeJSON(response, http.StatusOK, models.UserEnvelope{User: r.toUserResponse(usr)})
}

// GetFile streams a stored blob.
func (r *Router) GetFile(response http.ResponseWriter, request *http.Request) {
	name := chi.URLParam(request, "name")

	content, err := r.blobs.Open(request.Context(), name)
	if err != nil {
		if errors.Is(err, blobstorage.ErrNotFound) || errors.Is(err, blobstorage.ErrInvalidName) {
			apperror.Respond(response, apperror.ErrBlobNotFound)
			return
		}
		logger.Log.Debugln("Error calling the `r.blobs.Open()`: ", zap.Error(err))
		apperror.Respond(response, err)
		return
	}
	defer content.Close()

	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	response.Header().Set("Content-Type", contentType)
	response.WriteHeader(http.StatusOK)

	if _, err := io.Copy(response, content); err != nil {
		logger.Log.Debugln("Error calling the `io.Copy()`: ", zap.Error(err))
	}
}

// GetPing reports whether the storage is reachable.
func (r *Router) GetPing(response http.ResponseWriter, request *http.Request) {
	if err := r.service.Ping(request.Context()); err != nil {
		logger.Log.Debugln("Error calling the `r.service.Ping()`: ", zap.Error(err))
		apperror.Respond(response, err)
		return
	}

	response.WriteHeader(http.StatusOK)
}

// GetInternalStats returns the service counters to trusted clients.
func (r *Router) GetInternalStats(response http.ResponseWriter, request *http.Request) {
	stats, err := r.service.GetInternalStats(request.Context())
	if err != nil {
		logger.Log.Debugln("Error calling the `r.service.GetInternalStats()`: ", zap.Error(err))
		apperror.Respond(response, err)
		return
	}

	r.writeJSON(response, http.StatusOK, stats)
}

func (r *Router) decodeAndValidate(request *http.Request, target any) error {
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		logger.Log.Debugln("Error calling the `json.NewDecoder().Decode()`: ", zap.Error(err))
		return apperror.ErrInvalidRequest
	}

	err := r.validate.Struct(target)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		return apperror.New(
			fmt.Sprintf("Invalid %s.", strings.ToLower(validationErrors[0].Field())),
			http.StatusBadRequest,
		)
	}

	return apperror.ErrInvalidRequest
}

func (r *Router) toUserResponse(usr *user.User) models.UserResponse {
	result := models.UserResponse{User: usr}
	if usr.HasAvatar() {
		avatarURL := r.filesBaseURL + "/" + url.PathEscape(*usr.Avatar)
		result.AvatarURL = &avatarURL
	}

	return result
}

func (r *Router) avatarTooLarge() error {
	return apperror.New(
		fmt.Sprintf("Avatar file must not exceed %d bytes.", r.maxAvatarSize),
		http.StatusRequestEntityTooLarge,
	)
}

func (r *Router) writeJSON(response http.ResponseWriter, statusCode int, body any) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(statusCode)
	if err := json.NewEncoder(response).Encode(body); err != nil {
		logger.Log.Debugln("Error calling the `json.NewEncoder().Encode()`: ", zap.Error(err))
	}
}
