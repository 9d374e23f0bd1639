package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/Dosada05/team-space/middleware"
	"github.com/Dosada05/team-space/models"
	"github.com/Dosada05/team-space/services"
	"github.com/go-playground/validator/v10"
)

const maxLogoSize = 5 << 20 // 5MB

type memberDecision func(ctx context.Context, teamID, memberID, actorID string) (*models.TeamMember, error)

type TeamHandler struct {
	teamService services.TeamService
	validator   *validator.Validate
}

func NewTeamHandler(ts services.TeamService, v *validator.Validate) *TeamHandler {
	return &TeamHandler{
		teamService: ts,
		validator:   v,
	}
}

// NewValidator reports fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// CreateTeam godoc
// @Summary Создать команду
// @Tags teams
// @Description Создатель становится единственным администратором команды.
// @Accept json
// @Produce json
// @Param input body services.CreateTeamInput true "Team data"
// @Success 201 {object} map[string]interface{} "Команда создана"
// @Failure 400 {object} map[string]string "Ошибка бизнес-логики"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Failure 422 {object} map[string]interface{} "Ошибка валидации"
// @Security BearerAuth
// @Router /teams [post]
func (h *TeamHandler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	var input services.CreateTeamInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := h.validator.Struct(&input); err != nil {
		failedValidationResponse(w, r, validationErrors(err))
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	team, err := h.teamService.CreateTeam(r.Context(), input, currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetMyTeams godoc
// @Summary Мои команды
// @Tags teams
// @Description Команды, где пользователь администратор или активный участник.
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]string "Неавторизован"
// @Security BearerAuth
// @Router /teams/my-teams [get]
func (h *TeamHandler) GetMyTeams(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	teams, err := h.teamService.GetMyTeams(r.Context(), currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"teams": teams}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetTeamByID godoc
// @Summary Получить команду
// @Tags teams
// @Produce json
// @Param teamID path string true "Team ID"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]string "Неавторизован"
// @Failure 404 {object} map[string]string "Команда не найдена или недоступна"
// @Security BearerAuth
// @Router /teams/{teamID} [get]
func (h *TeamHandler) GetTeamByID(w http.ResponseWriter, r *http.Request) {
	teamID, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	team, err := h.teamService.GetTeamByID(r.Context(), teamID, currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeleteTeam godoc
// @Summary Удалить команду
// @Tags teams
// @Param teamID path string true "Team ID"
// @Success 204 "Команда удалена"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Failure 403 {object} map[string]string "Только администратор"
// @Failure 404 {object} map[string]string "Команда не найдена"
// @Security BearerAuth
// @Router /teams/{teamID} [delete]
func (h *TeamHandler) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	teamID, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	if err := h.teamService.DeleteTeam(r.Context(), teamID, currentUserID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GenerateInviteToken godoc
// @Summary Выпустить invite-токен
// @Tags invites
// @Description Новый токен сразу заменяет предыдущий. По умолчанию действует 168 часов.
// @Accept json
// @Produce json
// @Param teamID path string true "Team ID"
// @Param input body services.GenerateInviteInput false "Token lifetime"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Некорректный срок действия"
// @Failure 403 {object} map[string]string "Только администратор"
// @Failure 404 {object} map[string]string "Команда не найдена"
// @Security BearerAuth
// @Router /teams/{teamID}/invite-token [post]
func (h *TeamHandler) GenerateInviteToken(w http.ResponseWriter, r *http.Request) {
	teamID, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.GenerateInviteInput
	if err := readOptionalJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := h.validator.Struct(&input); err != nil {
		failedValidationResponse(w, r, validationErrors(err))
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	invite, err := h.teamService.GenerateInviteToken(r.Context(), teamID, currentUserID, input.ExpiryHours)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, invite, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SendInviteEmail godoc
// @Summary Отправить приглашение по email
// @Tags invites
// @Accept json
// @Param teamID path string true "Team ID"
// @Param input body services.SendInviteEmailInput true "Recipient"
// @Success 202 "Письмо отправлено"
// @Failure 400 {object} map[string]string "Нет действующего токена / email отключён"
// @Failure 403 {object} map[string]string "Только администратор"
// @Failure 404 {object} map[string]string "Команда не найдена"
// @Failure 422 {object} map[string]interface{} "Ошибка валидации"
// @Security BearerAuth
// @Router /teams/{teamID}/invite-token/email [post]
func (h *TeamHandler) SendInviteEmail(w http.ResponseWriter, r *http.Request) {
	teamID, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.SendInviteEmailInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := h.validator.Struct(&input); err != nil {
		failedValidationResponse(w, r, validationErrors(err))
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	if err := h.teamService.SendInviteEmail(r.Context(), teamID, currentUserID, input.Email); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// JoinTeam godoc
// @Summary Вступить в команду по invite-токену
// @Tags invites
// @Description Пользователь становится участником в статусе pending до решения администратора.
// @Accept json
// @Produce json
// @Param input body services.JoinTeamInput true "Invite token and nickname"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Токен истёк / уже участник"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Failure 404 {object} map[string]string "Неверный токен"
// @Failure 422 {object} map[string]interface{} "Ошибка валидации"
// @Security BearerAuth
// @Router /teams/join [post]
func (h *TeamHandler) JoinTeam(w http.ResponseWriter, r *http.Request) {
	var input services.JoinTeamInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := h.validator.Struct(&input); err != nil {
		failedValidationResponse(w, r, validationErrors(err))
		return
	}

	identity, err := middleware.GetIdentityFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	team, err := h.teamService.JoinTeam(r.Context(), input, *identity)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"team":    team,
		"message": "join request submitted, waiting for admin approval",
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetPendingMembers godoc
// @Summary Заявки на вступление
// @Tags members
// @Produce json
// @Param teamID path string true "Team ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Только администратор"
// @Failure 404 {object} map[string]string "Команда не найдена"
// @Security BearerAuth
// @Router /teams/{teamID}/members/pending [get]
func (h *TeamHandler) GetPendingMembers(w http.ResponseWriter, r *http.Request) {
	teamID, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	members, err := h.teamService.GetPendingMembers(r.Context(), teamID, currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"members": members}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ApproveMember godoc
// @Summary Одобрить заявку
// @Tags members
// @Produce json
// @Param teamID path string true "Team ID"
// @Param memberID path string true "Member ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Заявка уже рассмотрена"
// @Failure 403 {object} map[string]string "Только администратор"
// @Failure 404 {object} map[string]string "Команда или участник не найдены"
// @Failure 409 {object} map[string]string "Конкурентное изменение"
// @Security BearerAuth
// @Router /teams/{teamID}/members/{memberID}/approve [post]
func (h *TeamHandler) ApproveMember(w http.ResponseWriter, r *http.Request) {
	h.decideMember(w, r, h.teamService.ApproveMember)
}

// RejectMember godoc
// @Summary Отклонить заявку
// @Tags members
// @Produce json
// @Param teamID path string true "Team ID"
// @Param memberID path string true "Member ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Заявка уже рассмотрена"
// @Failure 403 {object} map[string]string "Только администратор"
// @Failure 404 {object} map[string]string "Команда или участник не найдены"
// @Failure 409 {object} map[string]string "Конкурентное изменение"
// @Security BearerAuth
// @Router /teams/{teamID}/members/{memberID}/reject [post]
func (h *TeamHandler) RejectMember(w http.ResponseWriter, r *http.Request) {
	h.decideMember(w, r, h.teamService.RejectMember)
}

func (h *TeamHandler) decideMember(w http.ResponseWriter, r *http.Request, decide memberDecision) {
	teamID, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	memberID, err := getIDFromURL(r, "memberID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	member, err := decide(r.Context(), teamID, memberID, currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"member": member}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UploadTeamLogo godoc
// @Summary Загрузить логотип команды
// @Tags teams
// @Accept multipart/form-data
// @Produce json
// @Param teamID path string true "Team ID"
// @Param logo formData file true "Logo image"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Неподдерживаемый формат / хранилище не настроено"
// @Failure 403 {object} map[string]string "Только администратор"
// @Failure 404 {object} map[string]string "Команда не найдена"
// @Security BearerAuth
// @Router /teams/{teamID}/logo [put]
func (h *TeamHandler) UploadTeamLogo(w http.ResponseWriter, r *http.Request) {
	teamID, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user for logo upload")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxLogoSize+1<<20)
	if err := r.ParseMultipartForm(maxLogoSize); err != nil {
		badRequestResponse(w, r, fmt.Errorf("failed to parse multipart form: %w", err))
		return
	}

	file, header, err := r.FormFile("logo") // "logo" - имя поля в форме
	if err != nil {
		badRequestResponse(w, r, fmt.Errorf("failed to get logo file from form: %w", err))
		return
	}
	defer file.Close()

	if header.Size > maxLogoSize {
		badRequestResponse(w, r, fmt.Errorf("logo must not be larger than %d bytes", maxLogoSize))
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		badRequestResponse(w, r, errors.New("content-type header is required for logo"))
		return
	}

	team, err := h.teamService.UploadTeamLogo(r.Context(), teamID, currentUserID, contentType, file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
