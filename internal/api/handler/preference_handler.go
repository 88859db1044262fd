package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/accounts-api/internal/core/domain"
	"github.com/99minutos/accounts-api/internal/core/ports"
)

type PreferenceHandler struct {
	preferenceService ports.PreferenceService
}

func NewPreferenceHandler(preferenceService ports.PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{preferenceService: preferenceService}
}

// List returns all of the caller's preferences as a key/value map.
//
// @Summary      List preferences
// @Tags         preferences
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  preferencesResponse
// @Router       /preferences [get]
func (h *PreferenceHandler) List(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	prefs, err := h.preferenceService.List(c.Request().Context(), p.UserID)
	if err != nil {
		return err
	}

	out := make(map[string]string, len(prefs))
	for _, pref := range prefs {
		out[pref.Key] = pref.Value
	}
	return c.JSON(http.StatusOK, preferencesResponse{Preferences: out})
}

// Get returns one preference.
//
// @Summary      Get preference
// @Tags         preferences
// @Produce      json
// @Security     BearerAuth
// @Param        key  path      string  true  "Preference key"
// @Success      200  {object}  preferenceBody
// @Failure      404  {object}  map[string]string
// @Router       /preferences/{key} [get]
func (h *PreferenceHandler) Get(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	pref, err := h.preferenceService.Get(c.Request().Context(), p.UserID, c.Param("key"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, preferenceBody{Key: pref.Key, Value: pref.Value})
}

// Set creates or replaces a preference. The value field is required; an
// empty string is stored as is.
//
// @Summary      Set preference
// @Tags         preferences
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        key   path      string                true  "Preference key"
// @Param        body  body      setPreferenceRequest  true  "Value"
// @Success      200   {object}  setPreferenceResponse
// @Failure      400   {object}  map[string]string
// @Router       /preferences/{key} [put]
func (h *PreferenceHandler) Set(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req setPreferenceRequest
	if err := c.Bind(&req); err != nil {
		return domain.Validation("invalid payload")
	}
	if req.Value == nil {
		return domain.Validation("value is required")
	}

	pref, err := h.preferenceService.Set(c.Request().Context(), p.UserID, c.Param("key"), *req.Value)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, setPreferenceResponse{
		Message:    "preference saved successfully",
		Preference: preferenceBody{Key: pref.Key, Value: pref.Value},
	})
}

// Delete removes a preference.
//
// @Summary      Delete preference
// @Tags         preferences
// @Produce      json
// @Security     BearerAuth
// @Param        key  path      string  true  "Preference key"
// @Success      200  {object}  messageResponse
// @Failure      404  {object}  map[string]string
// @Router       /preferences/{key} [delete]
func (h *PreferenceHandler) Delete(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	if err := h.preferenceService.Delete(c.Request().Context(), p.UserID, c.Param("key")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "preference deleted successfully"})
}
