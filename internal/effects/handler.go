package effects

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/SlpAus/battle-effects-backend/internal/catalog"
	"github.com/SlpAus/battle-effects-backend/pkg/token"
)

// CuratorKey 是 Gin 上下文中保存已验证馆长身份的键
const CuratorKey = "curator"

// RequireCurator 校验 Authorization: Bearer <token>，只放行馆长与管理员。
func RequireCurator(signer *token.Signer) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "缺少身份令牌"})
			return
		}
		claims, err := signer.Verify(strings.TrimSpace(raw), time.Now())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		if !claims.IsCurator() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "需要馆长权限"})
			return
		}
		c.Set(CuratorKey, claims.Subject)
		c.Next()
	}
}

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type curateRequest struct {
	ItemID     *uint `json:"item_id"`
	EditedView *View `json:"edited_view"`
}

func parseItemID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "物品ID无效"})
		return 0, false
	}
	return uint(id), true
}

// writeError 把服务层错误映射为HTTP响应
func writeError(c *gin.Context, err error, failMsg string) {
	switch {
	case errors.Is(err, catalog.ErrItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrInvalidView):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrInsufficientData):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg(failMsg)
		c.JSON(http.StatusInternalServerError, gin.H{"error": failMsg})
	}
}

// GetEffects 返回 {processing: true} 或分组后的已审核视图
func (h *Handler) GetEffects(c *gin.Context) {
	itemID, ok := parseItemID(c)
	if !ok {
		return
	}
	result, err := h.service.GetCuratedView(c.Request.Context(), itemID)
	if err != nil {
		writeError(c, err, "获取效果数据失败")
		return
	}
	if result.State == StateProcessing {
		c.JSON(http.StatusOK, gin.H{"processing": true})
		return
	}
	c.JSON(http.StatusOK, result.View)
}

// PutEffects 提交馆长编辑后的视图
func (h *Handler) PutEffects(c *gin.Context) {
	itemID, ok := parseItemID(c)
	if !ok {
		return
	}
	var req curateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误"})
		return
	}
	if req.EditedView == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少 edited_view"})
		return
	}
	if req.ItemID != nil && *req.ItemID != itemID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "item_id 与路径不一致"})
		return
	}

	changes, err := h.service.Curate(c.Request.Context(), c.GetString(CuratorKey), itemID, *req.EditedView)
	if err != nil {
		writeError(c, err, "保存失败，请重新获取最新数据后重试")
		return
	}
	c.JSON(http.StatusOK, changes)
}

// GetAdvisory 返回未处理战报的实时统计结果
func (h *Handler) GetAdvisory(c *gin.Context) {
	itemID, ok := parseItemID(c)
	if !ok {
		return
	}
	result, err := h.service.Advisory(c.Request.Context(), itemID)
	if err != nil {
		writeError(c, err, "统计失败")
		return
	}
	c.JSON(http.StatusOK, result)
}

// Promote 采纳统计结果
func (h *Handler) Promote(c *gin.Context) {
	itemID, ok := parseItemID(c)
	if !ok {
		return
	}
	changes, err := h.service.Promote(c.Request.Context(), c.GetString(CuratorKey), itemID)
	if err != nil {
		writeError(c, err, "采纳失败，请稍后重试")
		return
	}
	c.JSON(http.StatusOK, changes)
}
