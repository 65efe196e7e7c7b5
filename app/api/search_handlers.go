package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hindustan-founders/hfn-saved/app/saved"
	"github.com/hindustan-founders/hfn-saved/app/search"
)

const dateLayout = "2006-01-02"

// Search runs a one-shot query. Facet counts cover every match; tab narrows
// the returned results to a single type.
func (h *Handler) Search(c *gin.Context) {
	q, err := parseSearchQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	matchAll := h.matchAllTags
	switch c.Query("match") {
	case "":
	case "all":
		matchAll = true
	case "any":
		matchAll = false
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "match must be 'all' or 'any'"})
		return
	}

	var tab saved.ItemType
	if raw := c.Query("tab"); raw != "" && raw != "all" {
		if tab, err = saved.ParseItemType(raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	start := time.Now()
	results, err := search.Run(c.Request.Context(), h.resourceRepo, q, matchAll)
	if err != nil {
		h.metrics.ObserveSearch(search.OutcomeFailed, time.Since(start))
		respondError(c, "search", err)
		return
	}
	if q.IsIdle() {
		h.metrics.ObserveSearch(search.OutcomeIdle, 0)
	} else {
		h.metrics.ObserveSearch(search.OutcomeOK, time.Since(start))
	}

	counts := search.TypeCounts(results)
	tags := search.TagCounts(results)
	total := len(results)
	if tab != "" {
		results = search.FilterByType(results, tab)
	}

	c.JSON(http.StatusOK, gin.H{
		"query":   q.Text,
		"filters": q.Filters,
		"results": search.Annotate(results, sessionLookup{stores: h.stores, session: sessionFrom(c)}),
		"total":   total,
		"counts":  counts,
		"tags":    tags,
	})
}

func (h *Handler) GetSearchSession(c *gin.Context) {
	engine := h.engines.Get(sessionFrom(c))
	c.JSON(http.StatusOK, newEngineView(engine, engine.Snapshot()))
}

// SetSearchQuery starts the debounce window; the response reflects the
// debouncing state and clients poll the session for results.
func (h *Handler) SetSearchQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "message": err.Error()})
		return
	}

	engine := h.engines.Get(sessionFrom(c))
	engine.SetQuery(req.Query)

	c.JSON(http.StatusAccepted, newEngineView(engine, engine.Snapshot()))
}

func (h *Handler) SetSearchFilters(c *gin.Context) {
	var req filterPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "message": err.Error()})
		return
	}

	if req.Type != nil {
		for _, itemType := range *req.Type {
			if _, err := saved.ParseItemType(string(itemType)); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}
	}

	engine := h.engines.Get(sessionFrom(c))
	engine.SetFilters(search.FilterPatch{Types: req.Type, Tags: req.Tags, Date: req.Date})

	c.JSON(http.StatusAccepted, newEngineView(engine, engine.Snapshot()))
}

func (h *Handler) ClearSearchFilters(c *gin.Context) {
	engine := h.engines.Get(sessionFrom(c))
	engine.ClearFilters()

	c.JSON(http.StatusAccepted, newEngineView(engine, engine.Snapshot()))
}

// ExecuteSearch runs the session's current query synchronously.
func (h *Handler) ExecuteSearch(c *gin.Context) {
	engine := h.engines.Get(sessionFrom(c))

	if _, err := engine.Execute(c.Request.Context()); err != nil {
		respondError(c, "execute_search", err)
		return
	}

	c.JSON(http.StatusOK, newEngineView(engine, engine.Snapshot()))
}

func (h *Handler) ListSavedSearches(c *gin.Context) {
	searches, err := h.engines.Get(sessionFrom(c)).ListSavedSearches(c.Request.Context())
	if err != nil {
		respondError(c, "list_searches", err)
		return
	}

	if searches == nil {
		searches = []search.SavedSearch{}
	}
	c.JSON(http.StatusOK, gin.H{
		"searches": searches,
		"total":    len(searches),
	})
}

// SaveSearch persists the session's current query and filters. A body with a
// query replaces the session query first.
func (h *Handler) SaveSearch(c *gin.Context) {
	engine := h.engines.Get(sessionFrom(c))

	var req queryRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "message": err.Error()})
			return
		}
	}
	if strings.TrimSpace(req.Query) != "" {
		engine.SetQuery(req.Query)
	}

	id, err := engine.SaveSearch(c.Request.Context())
	if err != nil {
		respondError(c, "save_search", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *Handler) RunSavedSearch(c *gin.Context) {
	engine := h.engines.Get(sessionFrom(c))

	if _, err := engine.RunSavedSearch(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, "run_search", err)
		return
	}

	c.JSON(http.StatusOK, newEngineView(engine, engine.Snapshot()))
}

func (h *Handler) DeleteSavedSearch(c *gin.Context) {
	id := c.Param("id")

	deleted, err := h.engines.Get(sessionFrom(c)).DeleteSavedSearch(c.Request.Context(), id)
	if err != nil {
		respondError(c, "delete_search", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "deleted": deleted})
}

func newEngineView(engine *search.Engine, snap search.Snapshot) engineView {
	view := engineView{
		State:      snap.State.String(),
		Query:      snap.Query,
		Filters:    snap.Filters,
		Results:    engine.Annotate(snap.Results),
		Counts:     search.TypeCounts(snap.Results),
		Generation: snap.Generation,
	}
	if snap.Err != nil {
		view.Error = snap.Err.Error()
	}
	return view
}

func parseSearchQuery(c *gin.Context) (search.Query, error) {
	q := search.Query{Text: c.Query("q")}

	for _, raw := range splitParams(c.QueryArray("type")) {
		itemType, err := saved.ParseItemType(raw)
		if err != nil {
			return q, err
		}
		q.Filters.Types = append(q.Filters.Types, itemType)
	}

	q.Filters.Tags = splitParams(c.QueryArray("tag"))

	from, err := parseDateParam(c.Query("from"), false)
	if err != nil {
		return q, fmt.Errorf("invalid from: %w", err)
	}
	to, err := parseDateParam(c.Query("to"), true)
	if err != nil {
		return q, fmt.Errorf("invalid to: %w", err)
	}
	if from != nil && to != nil && to.Before(*from) {
		return q, errors.New("invalid date range: to is before from")
	}
	if from != nil || to != nil {
		q.Filters.Date = &search.DateRange{From: from, To: to}
	}

	return q, nil
}

// splitParams accepts both repeated and comma separated values.
func splitParams(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// parseDateParam accepts RFC3339 or a bare date. A bare date is a day in the
// configured timezone, and as an upper bound it covers the whole day.
func parseDateParam(raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}

	t, err := time.ParseInLocation(dateLayout, raw, time.Local)
	if err != nil {
		return nil, fmt.Errorf("expected RFC3339 or YYYY-MM-DD, got %q", raw)
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return &t, nil
}
