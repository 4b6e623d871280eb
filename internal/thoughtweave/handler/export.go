package handler

import (
	"strconv"

	"github.com/kart-io/thoughtweave/internal/pkg/httputils"
	twerrors "github.com/kart-io/thoughtweave/pkg/errors"
	"github.com/kart-io/thoughtweave/pkg/infra/server/transport"
)

// Export streams the incremental sync payload.
// @Summary Incremental export
// @Description Everything created or updated at or after the since watermark, decrypted, plus deleted ids. since=0 is a full export.
// @Tags export
// @Produce json
// @Param since query int false "epoch-ms watermark from the previous response's syncTimestamp"
// @Success 200 {object} export.Result
// @Router /export [get]
func (h *Handler) Export(c transport.Context) {
	usr, err := user(c)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}

	var since int64
	if raw := c.Query("since"); raw != "" {
		since, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || since < 0 {
			httputils.WriteResponse(c, twerrors.ErrCaptureValidation.WithMessagef("invalid since %q", raw), nil)
			return
		}
	}

	result, err := h.export.Export(c.Request(), usr, since)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}
	httputils.WriteResponse(c, nil, result)
}

// CacheStats serves operational cache statistics when configured.
func (h *Handler) CacheStats(c transport.Context) {
	if h.cacheStats == nil {
		httputils.WriteResponse(c, nil, map[string]string{"message": "cache statistics not configured"})
		return
	}
	h.cacheStats(c)
}
