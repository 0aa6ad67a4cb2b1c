package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"melodia/apperrors"
	"melodia/auth"
	"melodia/models"
	"melodia/services"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"
	"go.uber.org/zap"
)

// UserController exposes the account and liked-tracks HTTP surface.
type UserController struct {
	userService  services.UserService
	trackService services.TrackService
	logger       *zap.Logger
}

// NewUserController creates a UserController instance.
func NewUserController(userService services.UserService, trackService services.TrackService, logger *zap.Logger) *UserController {
	return &UserController{userService: userService, trackService: trackService, logger: logger}
}

// TrackResponse is the catalog view of a track.
type TrackResponse struct {
	ID     uint   `json:"id"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// UserResponse is the outward view of a user. The password hash never
// appears here.
type UserResponse struct {
	ID          uint            `json:"id"`
	Name        string          `json:"name"`
	Email       string          `json:"email"`
	Role        string          `json:"role"`
	Birthdate   string          `json:"birthdate"`
	AvatarURL   string          `json:"avatarUrl"`
	LikedTracks []TrackResponse `json:"likedTracks"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type userEnvelope struct {
	Message string       `json:"message"`
	User    UserResponse `json:"user"`
}

type loginResponse struct {
	Message string       `json:"message"`
	User    UserResponse `json:"user"`
	Token   string       `json:"token"`
}

type likedTracksInput struct {
	TrackIDs []uint `json:"trackIds"`
}

type likedTracksResponse struct {
	Message     string          `json:"message"`
	LikedTracks []TrackResponse `json:"likedTracks"`
}

type errorResponse struct {
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// --- Helpers to map models to responses ---

func mapModelToTrackResponse(track *models.Track) TrackResponse {
	return TrackResponse{ID: track.ID, Title: track.Title, Artist: track.Artist}
}

func mapModelToUserResponse(user *models.User) UserResponse {
	if user == nil {
		return UserResponse{}
	}
	liked := make([]TrackResponse, len(user.LikedTracks))
	for i := range user.LikedTracks {
		liked[i] = mapModelToTrackResponse(&user.LikedTracks[i])
	}
	return UserResponse{
		ID:          user.ID,
		Name:        user.Name,
		Email:       user.Email,
		Role:        user.Role,
		Birthdate:   user.Birthdate,
		AvatarURL:   user.AvatarURL,
		LikedTracks: liked,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}

// --- go-restful Route Definitions ---

// RegisterRoutes sets up the account routes on a go-restful WebService.
func (ctl *UserController) RegisterRoutes(ws *restful.WebService) {
	ws.Path("/").Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)

	ws.Route(ws.POST("/register").To(ctl.registerHandler).
		Doc("Register a new user account").
		Metadata(restfulspec.KeyOpenAPITags, []string{"users"}).
		Reads(services.RegisterInput{}).
		Returns(http.StatusCreated, "User created successfully", messageResponse{}).
		Returns(http.StatusBadRequest, "Invalid body or duplicate email", errorResponse{}))

	ws.Route(ws.POST("/login").To(ctl.loginHandler).
		Doc("Authenticate and obtain a bearer token").
		Metadata(restfulspec.KeyOpenAPITags, []string{"users"}).
		Reads(services.LoginInput{}).
		Returns(http.StatusOK, "Token issued", loginResponse{}).
		Returns(http.StatusBadRequest, "Incorrect password", errorResponse{}).
		Returns(http.StatusNotFound, "User not found", errorResponse{}))

	ws.Route(ws.POST("/update/{user-id}").Filter(auth.AuthFilter()).To(ctl.updateUserHandler).
		Doc("Apply a partial update to a user profile").
		Param(ws.PathParameter("user-id", "Identifier of the user to update").DataType("integer")).
		Metadata(restfulspec.KeyOpenAPITags, []string{"users"}).
		Reads(services.UpdateUserInput{}).
		Returns(http.StatusOK, "User updated successfully", userEnvelope{}).
		Returns(http.StatusBadRequest, "Invalid body or duplicate email", errorResponse{}).
		Returns(http.StatusUnauthorized, "Missing or invalid token", errorResponse{}).
		Returns(http.StatusNotFound, "User not found", errorResponse{}))

	ws.Route(ws.DELETE("/delete/{user-id}").Filter(auth.AuthFilter()).To(ctl.deleteUserHandler).
		Doc("Delete a user account").
		Param(ws.PathParameter("user-id", "Identifier of the user to delete").DataType("integer")).
		Metadata(restfulspec.KeyOpenAPITags, []string{"users"}).
		Returns(http.StatusOK, "User removed successfully", messageResponse{}).
		Returns(http.StatusUnauthorized, "Missing or invalid token", errorResponse{}).
		Returns(http.StatusNotFound, "User not found", errorResponse{}))

	ws.Route(ws.POST("/add/like/{user-id}").Filter(auth.AuthFilter()).To(ctl.addLikedTracksHandler).
		Doc("Add tracks to a user's liked set").
		Param(ws.PathParameter("user-id", "Identifier of the user").DataType("integer")).
		Metadata(restfulspec.KeyOpenAPITags, []string{"likes"}).
		Reads(likedTracksInput{}).
		Returns(http.StatusCreated, "Liked tracks updated", likedTracksResponse{}).
		Returns(http.StatusBadRequest, "Invalid payload or unresolved track ids", errorResponse{}).
		Returns(http.StatusUnauthorized, "Missing or invalid token", errorResponse{}))

	ws.Route(ws.POST("/remove/like/{user-id}").Filter(auth.AuthFilter()).To(ctl.removeLikedTracksHandler).
		Doc("Remove tracks from a user's liked set").
		Param(ws.PathParameter("user-id", "Identifier of the user").DataType("integer")).
		Metadata(restfulspec.KeyOpenAPITags, []string{"likes"}).
		Reads(likedTracksInput{}).
		Returns(http.StatusCreated, "Liked tracks updated", likedTracksResponse{}).
		Returns(http.StatusBadRequest, "Invalid payload or unresolved track ids", errorResponse{}).
		Returns(http.StatusUnauthorized, "Missing or invalid token", errorResponse{}))

	ws.Route(ws.GET("/tracks").To(ctl.listTracksHandler).
		Doc("List the track catalog").
		Metadata(restfulspec.KeyOpenAPITags, []string{"likes"}).
		Writes([]TrackResponse{}).
		Returns(http.StatusOK, "Tracks listed", []TrackResponse{}))

	ws.Route(ws.GET("/{user-id}").To(ctl.getUserByIDHandler).
		Doc("Get user by ID").
		Param(ws.PathParameter("user-id", "Identifier of the user").DataType("integer")).
		Metadata(restfulspec.KeyOpenAPITags, []string{"users"}).
		Writes(UserResponse{}).
		Returns(http.StatusOK, "User found", UserResponse{}).
		Returns(http.StatusNotFound, "User not found", errorResponse{}))

	ws.Route(ws.GET("/").To(ctl.listUsersHandler).
		Doc("List all users").
		Metadata(restfulspec.KeyOpenAPITags, []string{"users"}).
		Writes([]UserResponse{}).
		Returns(http.StatusOK, "Users listed", []UserResponse{}))
}

// --- go-restful Handler Functions ---

func (ctl *UserController) registerHandler(request *restful.Request, response *restful.Response) {
	input := new(services.RegisterInput)
	if err := request.ReadEntity(input); err != nil {
		ctl.writeError(response, apperrors.InvalidPayload("invalid request body: "+err.Error()))
		return
	}

	if _, err := ctl.userService.Register(input); err != nil {
		ctl.writeError(response, err)
		return
	}

	_ = response.WriteHeaderAndJson(http.StatusCreated, messageResponse{Message: "user created successfully"}, restful.MIME_JSON)
}

func (ctl *UserController) loginHandler(request *restful.Request, response *restful.Response) {
	input := new(services.LoginInput)
	if err := request.ReadEntity(input); err != nil {
		ctl.writeError(response, apperrors.InvalidPayload("invalid request body: "+err.Error()))
		return
	}

	user, token, err := ctl.userService.Login(input)
	if err != nil {
		ctl.writeError(response, err)
		return
	}

	response.AddHeader("Authorization", token)
	_ = response.WriteHeaderAndJson(http.StatusOK, loginResponse{
		Message: "token created",
		User:    mapModelToUserResponse(user),
		Token:   token,
	}, restful.MIME_JSON)
}

func (ctl *UserController) updateUserHandler(request *restful.Request, response *restful.Response) {
	userID, appErr := parseUserID(request)
	if appErr != nil {
		ctl.writeError(response, appErr)
		return
	}

	input := new(services.UpdateUserInput)
	if err := request.ReadEntity(input); err != nil {
		ctl.writeError(response, apperrors.InvalidPayload("invalid request body: "+err.Error()))
		return
	}

	updatedUser, err := ctl.userService.UpdateUser(userID, input)
	if err != nil {
		ctl.writeError(response, err)
		return
	}

	_ = response.WriteHeaderAndJson(http.StatusOK, userEnvelope{
		Message: "user updated successfully",
		User:    mapModelToUserResponse(updatedUser),
	}, restful.MIME_JSON)
}

func (ctl *UserController) deleteUserHandler(request *restful.Request, response *restful.Response) {
	userID, appErr := parseUserID(request)
	if appErr != nil {
		ctl.writeError(response, appErr)
		return
	}

	if err := ctl.userService.DeleteUser(userID); err != nil {
		ctl.writeError(response, err)
		return
	}

	_ = response.WriteHeaderAndJson(http.StatusOK, messageResponse{Message: "user removed successfully"}, restful.MIME_JSON)
}

func (ctl *UserController) getUserByIDHandler(request *restful.Request, response *restful.Response) {
	userID, appErr := parseUserID(request)
	if appErr != nil {
		ctl.writeError(response, appErr)
		return
	}

	user, err := ctl.userService.GetUserByID(userID)
	if err != nil {
		ctl.writeError(response, err)
		return
	}

	_ = response.WriteHeaderAndJson(http.StatusOK, mapModelToUserResponse(user), restful.MIME_JSON)
}

func (ctl *UserController) listUsersHandler(request *restful.Request, response *restful.Response) {
	users, err := ctl.userService.ListUsers()
	if err != nil {
		ctl.writeError(response, err)
		return
	}

	userResponses := make([]UserResponse, len(users))
	for i := range users {
		userResponses[i] = mapModelToUserResponse(&users[i])
	}
	_ = response.WriteHeaderAndJson(http.StatusOK, userResponses, restful.MIME_JSON)
}

func (ctl *UserController) listTracksHandler(request *restful.Request, response *restful.Response) {
	tracks, err := ctl.trackService.ListTracks()
	if err != nil {
		ctl.writeError(response, err)
		return
	}

	trackResponses := make([]TrackResponse, len(tracks))
	for i := range tracks {
		trackResponses[i] = mapModelToTrackResponse(&tracks[i])
	}
	_ = response.WriteHeaderAndJson(http.StatusOK, trackResponses, restful.MIME_JSON)
}

func (ctl *UserController) addLikedTracksHandler(request *restful.Request, response *restful.Response) {
	ctl.syncLikedTracks(request, response, services.SyncAdd, "track(s) added successfully")
}

func (ctl *UserController) removeLikedTracksHandler(request *restful.Request, response *restful.Response) {
	ctl.syncLikedTracks(request, response, services.SyncRemove, "track(s) removed successfully")
}

func (ctl *UserController) syncLikedTracks(request *restful.Request, response *restful.Response, mode services.SyncMode, successMessage string) {
	userID, appErr := parseUserID(request)
	if appErr != nil {
		ctl.writeError(response, appErr)
		return
	}

	input := new(likedTracksInput)
	if err := request.ReadEntity(input); err != nil {
		// A non-array trackIds value fails JSON decoding here, before any
		// store I/O happens.
		ctl.writeError(response, apperrors.InvalidPayload("please provide an array of track ids"))
		return
	}

	user, err := ctl.userService.SyncLikedTracks(userID, input.TrackIDs, mode)
	if err != nil {
		ctl.writeError(response, err)
		return
	}

	liked := make([]TrackResponse, len(user.LikedTracks))
	for i := range user.LikedTracks {
		liked[i] = mapModelToTrackResponse(&user.LikedTracks[i])
	}
	_ = response.WriteHeaderAndJson(http.StatusCreated, likedTracksResponse{
		Message:     successMessage,
		LikedTracks: liked,
	}, restful.MIME_JSON)
}

// --- Utility Functions ---

func parseUserID(request *restful.Request) (uint, *apperrors.Error) {
	idStr := request.PathParameter("user-id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		return 0, apperrors.InvalidPayload("invalid user ID format")
	}
	return uint(id), nil
}

// writeError is the single point translating the error taxonomy to HTTP.
// Internal failures are logged with their cause and never leak it outward.
func (ctl *UserController) writeError(response *restful.Response, err error) {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		appErr = apperrors.Internal("an internal error occurred", err)
	}
	if appErr.Kind == apperrors.KindInternal {
		ctl.logger.Error("internal failure", zap.Error(appErr))
	}
	_ = response.WriteHeaderAndJson(appErr.HTTPStatus(), errorResponse{
		Message: appErr.Message,
		Details: appErr.Details,
	}, restful.MIME_JSON)
}
