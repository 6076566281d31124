package handlers

import (
	"net/http"

	"fusionx_backend/internal/models"
	"fusionx_backend/internal/services"
	"fusionx_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// MenuHandler exposes the catalog and per-shift specials endpoints.
type MenuHandler struct {
	menuService services.MenuService
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(ms services.MenuService) *MenuHandler {
	return &MenuHandler{menuService: ms}
}

// --- Categories ---

func (h *MenuHandler) CreateCategory(c *gin.Context) {
	var category models.MenuCategory
	if err := c.ShouldBindJSON(&category); err != nil {
		utils.RespondValidationFailed(c, err.Error())
		return
	}

	if err := h.menuService.CreateCategory(&category); err != nil {
		respondServiceError(c, err, "CreateCategory: error from menuService.CreateCategory")
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (h *MenuHandler) GetCategories(c *gin.Context) {
	categories, err := h.menuService.GetCategories()
	if err != nil {
		respondServiceError(c, err, "GetCategories: error from menuService.GetCategories")
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (h *MenuHandler) UpdateCategory(c *gin.Context) {
	id, ok := parseIDParam(c, "categoryId")
	if !ok {
		return
	}
	var category models.MenuCategory
	if err := c.ShouldBindJSON(&category); err != nil {
		utils.RespondValidationFailed(c, err.Error())
		return
	}
	category.ID = id

	if err := h.menuService.UpdateCategory(&category); err != nil {
		respondServiceError(c, err, "UpdateCategory: error from menuService.UpdateCategory")
		return
	}
	c.JSON(http.StatusOK, category)
}

func (h *MenuHandler) DeleteCategory(c *gin.Context) {
	id, ok := parseIDParam(c, "categoryId")
	if !ok {
		return
	}

	if err := h.menuService.DeleteCategory(id); err != nil {
		respondServiceError(c, err, "DeleteCategory: error from menuService.DeleteCategory")
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Catalog items ---

func (h *MenuHandler) CreateItem(c *gin.Context) {
	var item models.MenuItem
	if err := c.ShouldBindJSON(&item); err != nil {
		utils.RespondValidationFailed(c, err.Error())
		return
	}

	if err := h.menuService.CreateItem(&item); err != nil {
		respondServiceError(c, err, "CreateItem: error from menuService.CreateItem")
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *MenuHandler) GetItems(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	items, err := h.menuService.GetItems(activeOnly)
	if err != nil {
		respondServiceError(c, err, "GetItems: error from menuService.GetItems")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *MenuHandler) GetItem(c *gin.Context) {
	id, ok := parseIDParam(c, "itemId")
	if !ok {
		return
	}

	item, err := h.menuService.GetItemByID(id)
	if err != nil {
		respondServiceError(c, err, "GetItem: error from menuService.GetItemByID")
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *MenuHandler) UpdateItem(c *gin.Context) {
	id, ok := parseIDParam(c, "itemId")
	if !ok {
		return
	}
	var item models.MenuItem
	if err := c.ShouldBindJSON(&item); err != nil {
		utils.RespondValidationFailed(c, err.Error())
		return
	}
	item.ID = id

	if err := h.menuService.UpdateItem(&item); err != nil {
		respondServiceError(c, err, "UpdateItem: error from menuService.UpdateItem")
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *MenuHandler) DeleteItem(c *gin.Context) {
	id, ok := parseIDParam(c, "itemId")
	if !ok {
		return
	}

	if err := h.menuService.DeleteItem(id); err != nil {
		respondServiceError(c, err, "DeleteItem: error from menuService.DeleteItem")
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Shift specials ---

// CreateSpecial adds a one-off sellable item to a shift with no catalog backing.
func (h *MenuHandler) CreateSpecial(c *gin.Context) {
	shiftID, ok := parseIDParam(c, "shiftId")
	if !ok {
		return
	}
	var req services.SpecialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationFailed(c, err.Error())
		return
	}

	special, err := h.menuService.CreateSpecial(shiftID, req, staffIDFromContext(c))
	if err != nil {
		respondServiceError(c, err, "CreateSpecial: error from menuService.CreateSpecial")
		return
	}
	c.JSON(http.StatusCreated, special)
}

func (h *MenuHandler) UpdateSpecial(c *gin.Context) {
	shiftID, ok := parseIDParam(c, "shiftId")
	if !ok {
		return
	}
	specialID, ok := parseIDParam(c, "specialId")
	if !ok {
		return
	}
	var req services.SpecialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationFailed(c, err.Error())
		return
	}

	special, err := h.menuService.UpdateSpecial(shiftID, specialID, req, staffIDFromContext(c))
	if err != nil {
		respondServiceError(c, err, "UpdateSpecial: error from menuService.UpdateSpecial")
		return
	}
	c.JSON(http.StatusOK, special)
}

func (h *MenuHandler) DeleteSpecial(c *gin.Context) {
	shiftID, ok := parseIDParam(c, "shiftId")
	if !ok {
		return
	}
	specialID, ok := parseIDParam(c, "specialId")
	if !ok {
		return
	}

	if err := h.menuService.DeleteSpecial(shiftID, specialID); err != nil {
		respondServiceError(c, err, "DeleteSpecial: error from menuService.DeleteSpecial")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *MenuHandler) ListSpecials(c *gin.Context) {
	shiftID, ok := parseIDParam(c, "shiftId")
	if !ok {
		return
	}

	specials, err := h.menuService.ListSpecials(shiftID)
	if err != nil {
		respondServiceError(c, err, "ListSpecials: error from menuService.ListSpecials")
		return
	}
	c.JSON(http.StatusOK, gin.H{"specials": specials})
}
