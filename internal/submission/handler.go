package submission

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// maxBatchBytes 限制单次提交的请求体大小
const maxBatchBytes = 8 << 20

type Handler struct {
	ingestor *Ingestor
}

func NewHandler(ingestor *Ingestor) *Handler {
	return &Handler{ingestor: ingestor}
}

// Submit 接收一批战报
func (h *Handler) Submit(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBatchBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无法读取请求体"})
		return
	}

	result, err := h.ingestor.IngestBatch(c.Request.Context(), body)
	if err != nil {
		if errors.Is(err, ErrInvalidReport) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Error().Err(err).Msg("战报入库失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "保存战报失败"})
		return
	}

	c.JSON(http.StatusOK, result)
}
