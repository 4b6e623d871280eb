package handler

import (
	"regexp"
	"strconv"

	"github.com/kart-io/thoughtweave/internal/graph"
	"github.com/kart-io/thoughtweave/internal/pkg/httputils"
	twerrors "github.com/kart-io/thoughtweave/pkg/errors"
	"github.com/kart-io/thoughtweave/pkg/infra/server/transport"
)

var monthPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

// ThemeGraph builds (or serves from cache) the user's 2-D theme graph.
// @Summary Theme graph
// @Tags graph
// @Produce json
// @Param month query string false "restrict to one month (YYYY-MM)"
// @Param minSimilarity query number false "edge similarity threshold, default 0.7"
// @Success 200 {object} model.DerivedGraph
// @Failure 400 {object} map[string]any
// @Router /graph [get]
func (h *Handler) ThemeGraph(c transport.Context) {
	usr, err := user(c)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}

	month := c.Query("month")
	if month != "" && month != "all" && !monthPattern.MatchString(month) {
		httputils.WriteResponse(c, twerrors.ErrCaptureValidation.WithMessagef("invalid month %q, want YYYY-MM", month), nil)
		return
	}

	minSim := 0.0
	if raw := c.Query("minSimilarity"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || v > 1 {
			httputils.WriteResponse(c, twerrors.ErrCaptureValidation.WithMessagef("invalid minSimilarity %q", raw), nil)
			return
		}
		minSim = v
	}

	result, err := h.graph.Build(c.Request(), graph.Request{User: usr, Month: month, MinSimilarity: minSim})
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}
	httputils.WriteResponse(c, nil, result)
}
