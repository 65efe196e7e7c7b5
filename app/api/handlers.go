package api

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hindustan-founders/hfn-saved/app/catalog"
	"github.com/hindustan-founders/hfn-saved/app/database"
	"github.com/hindustan-founders/hfn-saved/app/feed"
	"github.com/hindustan-founders/hfn-saved/app/metrics"
	"github.com/hindustan-founders/hfn-saved/app/saved"
	"github.com/hindustan-founders/hfn-saved/app/search"
	"github.com/hindustan-founders/hfn-saved/app/tasks"
)

const visibleTagCount = 3

func NewHandler(stores StoreRegistry, resourceRepo database.ResourceRepository,
	searchRepo database.SearchRepository, sourceRepo database.SourceRepository,
	loader *catalog.Loader, scheduler tasks.TaskSchedulerInterface,
	m *metrics.Metrics, opts Options) *Handler {
	h := &Handler{
		stores:       stores,
		resourceRepo: resourceRepo,
		searchRepo:   searchRepo,
		sourceRepo:   sourceRepo,
		loader:       loader,
		generator:    feed.NewGenerator(opts.Version),
		scheduler:    scheduler,
		metrics:      m,
		matchAllTags: opts.TagMatchAll,
		baseURL:      strings.TrimSuffix(opts.BaseURL, "/"),
		version:      opts.Version,
	}

	h.engines = newEngineSessions(opts.SessionTTL, func(session string) *search.Engine {
		return search.NewEngine(resourceRepo,
			search.WithDebounce(opts.Debounce),
			search.WithTagMatchAll(opts.TagMatchAll),
			search.WithSavedLookup(sessionLookup{stores: stores, session: session}),
			search.WithSearchRepository(searchRepo.ForSession(session)),
			search.WithObserver(m.ObserveSearch),
		)
	})

	m.RegisterGauge("sessions_active", "Saved item stores held in memory.", func() float64 {
		return float64(stores.Count())
	})
	m.RegisterGauge("search_sessions_active", "Live search engines held in memory.", func() float64 {
		return float64(h.engines.Count())
	})

	return h
}

func (h *Handler) GetIndex(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":     "HFN Saved",
		"version":     h.version,
		"description": "Saved items and resource search for Hindustan Founders Network",
		"endpoints": map[string]string{
			"health":   "/health",
			"metrics":  "/metrics",
			"saved":    "/api/saved",
			"feed":     "/api/saved/feed.xml",
			"search":   "/api/search?q=<text>",
			"session":  "/api/search/session",
			"searches": "/api/searches",
			"sources":  "/api/sources",
		},
		"session_header": SessionHeader,
	})
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"sessions":  h.stores.Count(),
	}

	if counts, err := h.resourceRepo.CountByType(c.Request.Context()); err == nil {
		health["resources"] = counts
	}

	if sourceCount, err := h.sourceRepo.GetSourceCount(c.Request.Context()); err == nil {
		health["sources"] = sourceCount
	}

	health["loaded_sources"] = h.loader.GetSourceCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) store(c *gin.Context) (*saved.Store, bool) {
	store, err := h.stores.Get(c.Request.Context(), sessionFrom(c))
	if err != nil {
		respondError(c, "open_store", err)
		return nil, false
	}
	return store, true
}

func (h *Handler) ListSaved(c *gin.Context) {
	order, err := saved.ParseSortOrder(c.Query("sort"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	store, ok := h.store(c)
	if !ok {
		return
	}

	var items []saved.SavedItem
	if raw := c.Query("type"); raw != "" {
		itemType, err := saved.ParseItemType(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		items = store.ListItemsByType(itemType, order)
	} else {
		items = store.ListItems(order)
	}

	views := make([]savedItemView, len(items))
	for i, item := range items {
		visible, more := item.VisibleTags(visibleTagCount)
		views[i] = savedItemView{SavedItem: item, VisibleTags: visible, MoreTags: more}
	}

	c.JSON(http.StatusOK, gin.H{
		"items":  views,
		"total":  store.Len(),
		"counts": store.GetItemTypeCounts(),
		"sort":   order,
	})
}

func (h *Handler) SaveItem(c *gin.Context) {
	var input saved.SavedItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "message": err.Error()})
		return
	}

	h.saveInput(c, input)
}

func (h *Handler) SaveSearchResult(c *gin.Context) {
	var result search.SearchResult
	if err := c.ShouldBindJSON(&result); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "message": err.Error()})
		return
	}

	h.saveInput(c, search.ToSavedInput(result))
}

func (h *Handler) saveInput(c *gin.Context, input saved.SavedItemInput) {
	store, ok := h.store(c)
	if !ok {
		return
	}

	item, err := store.SaveItem(c.Request.Context(), input)
	if err != nil {
		respondError(c, "save_item", err)
		return
	}

	h.metrics.SavedOp("save")
	c.JSON(http.StatusCreated, item)
}

// RemoveSaved removes by bare id, or by (type, id) when ?type= is given.
func (h *Handler) RemoveSaved(c *gin.Context) {
	id := c.Param("id")

	store, ok := h.store(c)
	if !ok {
		return
	}

	var removed bool
	var err error
	if raw := c.Query("type"); raw != "" {
		itemType, parseErr := saved.ParseItemType(raw)
		if parseErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": parseErr.Error()})
			return
		}
		removed, err = store.RemoveTypedItem(c.Request.Context(), itemType, id)
	} else {
		removed, err = store.RemoveItem(c.Request.Context(), id)
	}

	if err != nil {
		respondError(c, "remove_item", err)
		return
	}

	if removed {
		h.metrics.SavedOp("remove")
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "removed": removed})
}

func (h *Handler) ClearSaved(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}

	if err := store.ClearAllItems(c.Request.Context()); err != nil {
		respondError(c, "clear_items", err)
		return
	}

	h.metrics.SavedOp("clear")
	c.Status(http.StatusNoContent)
}

func (h *Handler) GetSavedCounts(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"counts": store.GetItemTypeCounts(),
		"total":  store.Len(),
	})
}

func (h *Handler) GetSavedStatus(c *gin.Context) {
	id := c.Param("id")

	store, ok := h.store(c)
	if !ok {
		return
	}

	if raw := c.Query("type"); raw != "" {
		itemType, err := saved.ParseItemType(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id, "type": itemType, "saved": store.IsSaved(itemType, id)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "saved": store.IsItemSaved(id)})
}

// GetSavedFeed exports the session's saved items as RSS, newest first.
func (h *Handler) GetSavedFeed(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}

	channel := feed.Channel{
		Title:       "HFN saved items",
		Description: "Profiles, jobs, events, groups, articles and posts saved on Hindustan Founders Network",
		Link:        h.baseURL,
	}
	if h.baseURL != "" {
		channel.SelfLink = h.baseURL + c.Request.URL.Path
	}

	rss, err := h.generator.Run(channel, store.ListItems(saved.SortRecent))
	if err != nil {
		respondError(c, "generate_feed", err)
		return
	}

	c.Header("Content-Type", "application/rss+xml; charset=utf-8")
	c.Header("Cache-Control", "no-cache")
	c.String(http.StatusOK, rss)
}

func (h *Handler) ListSources(c *gin.Context) {
	sources := h.loader.GetSources()

	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	slices.Sort(names)

	list := make([]map[string]interface{}, 0, len(sources))
	for _, name := range names {
		source := sources[name]
		info := map[string]interface{}{
			"name":             source.Name,
			"url":              source.URL,
			"tags":             source.Tags,
			"enabled":          source.Settings.Enabled,
			"summarize":        source.Settings.Summarize,
			"max_items":        source.Settings.MaxItems,
			"refresh_interval": (time.Duration(source.Settings.RefreshInterval) * time.Second).String(),
		}

		if stored, err := h.sourceRepo.GetSource(c.Request.Context(), source.Name); err == nil && stored != nil {
			info["title"] = stored.Title
			info["last_fetched_at"] = stored.LastFetchedAt
			info["next_fetch_at"] = stored.NextFetchAt
		}

		if count, err := h.resourceRepo.CountBySource(c.Request.Context(), source.Name); err == nil {
			info["resource_count"] = count
		}

		list = append(list, info)
	}

	c.JSON(http.StatusOK, gin.H{
		"sources": list,
		"total":   len(list),
	})
}

func (h *Handler) ImportSource(c *gin.Context) {
	name := c.Param("name")

	source, err := h.loader.GetSource(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Source configuration not found"})
		return
	}

	if !source.Settings.Enabled {
		c.JSON(http.StatusConflict, gin.H{"error": "Source is disabled"})
		return
	}

	if err := h.scheduler.EnqueueImport(source); err != nil {
		respondError(c, "enqueue_import", err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Import scheduled",
		"source":  name,
	})
}
