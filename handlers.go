package main

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"dacalc/models"
	"dacalc/pkg/capture"
	"dacalc/pkg/imgproc"
	"dacalc/pkg/mmrchart"
	"dacalc/pkg/ocr"
	"dacalc/pkg/rank"
)

// recognizer is nil when no OCR engine could be created; /recognize answers 503 then.
var recognizer *ocr.Recognizer

func setupRoutes(r *gin.Engine) {
	r.GET("/ranks", ranksHandler)
	r.POST("/token", tokenHandler)
	api := r.Group("")
	if len(jwtSecret) > 0 {
		api.Use(jwtAuthMiddleware())
	}
	api.POST("/recognize", recognizeHandler)
	api.POST("/mmr", mmrHandler)
	api.GET("/mmr/chart", mmrChartHandler)
	api.GET("/history", listHistoryHandler)
	api.GET("/history/:id", getHistoryHandler)
}

func ranksHandler(c *gin.Context) {
	type entry struct {
		Name string `json:"name"`
		MMR  *int   `json:"mmr"`
	}
	out := make([]entry, 0, len(rank.All()))
	for _, r := range rank.All() {
		e := entry{Name: r.String()}
		if v, ok := r.MMR(); ok {
			e.MMR = &v
		}
		out = append(out, e)
	}
	c.JSON(http.StatusOK, gin.H{"ranks": out, "placements": rank.Placements()})
}

// parseLobby turns names into ranks; exactly one per lobby slot.
func parseLobby(names []string, current string) ([]rank.Rank, rank.Rank, error) {
	if len(names) != rank.LobbySize {
		return nil, 0, fmt.Errorf("%w: got %d", rank.ErrLobbySize, len(names))
	}
	ranks := make([]rank.Rank, len(names))
	for i, n := range names {
		r, err := rank.ParseName(n)
		if err != nil {
			return nil, 0, fmt.Errorf("slot %d: %w", i+1, err)
		}
		ranks[i] = r
	}
	cur, err := rank.ParseName(current)
	if err != nil {
		return nil, 0, fmt.Errorf("current: %w", err)
	}
	return ranks, cur, nil
}

// estimateStatus maps model errors to HTTP status codes.
func estimateStatus(err error) int {
	if errors.Is(err, rank.ErrInsufficientData) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadRequest
}

func estimateResponse(e rank.Estimate) gin.H {
	lines := make([]string, 0, len(e.Changes))
	for _, ch := range e.Changes {
		lines = append(lines, fmt.Sprintf("%s: %+.0f", ch.Placement, ch.Delta))
	}
	return gin.H{"estimate": e, "lines": lines}
}

func mmrHandler(c *gin.Context) {
	var req struct {
		Ranks   []string `json:"ranks" binding:"required"`
		Current string   `json:"current" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ranks, cur, err := parseLobby(req.Ranks, req.Current)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	est, err := rank.ComputeChanges(ranks, cur)
	if err != nil {
		c.JSON(estimateStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, estimateResponse(est))
}

func mmrChartHandler(c *gin.Context) {
	ranks, cur, err := parseLobby(strings.Split(c.Query("ranks"), ","), c.Query("current"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	est, err := rank.ComputeChanges(ranks, cur)
	if err != nil {
		c.JSON(estimateStatus(err), gin.H{"error": err.Error()})
		return
	}
	var buf bytes.Buffer
	if err := mmrchart.Render(&buf, est); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "render failed"})
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// recognizeHandler accepts a lobby screenshot (multipart field "file") and
// returns the eight badge results. An optional "current" rank adds the estimate,
// with unresolved slots counted as unranked.
func recognizeHandler(c *gin.Context) {
	if recognizer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "ocr engine unavailable"})
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file missing"})
		return
	}
	if limit := cfg.MaxUploadBytes; file.Size > limit {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("file too large (max %d bytes)", limit)})
		return
	}
	name := filepath.Base(file.Filename)
	if !capture.Supported(name) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type"})
		return
	}
	var cur rank.Rank
	hasCurrent := false
	if v := c.PostForm("current"); v != "" {
		if cur, err = rank.ParseName(v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		hasCurrent = true
	}

	relPath := filepath.Join("captures", fmt.Sprintf("%d-%s", time.Now().UnixNano(), name))
	fullPath := filepath.Join(uploadBaseDir(), relPath)
	ensureUploadBase()
	if err := c.SaveUploadedFile(file, fullPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}
	img, err := capture.Load(fullPath)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	b := img.Bounds()

	stem := strings.TrimSuffix(name, filepath.Ext(name))
	results, err := recognizer.RecognizeAs(c.Request.Context(), stem, img)
	if err != nil {
		if errors.Is(err, imgproc.ErrRegionOutOfBounds) {
			rec := models.Recognition{FileName: name, Source: "upload", StorePath: relPath, Width: b.Dx(), Height: b.Dy(), Failed: true, FailedReason: err.Error()}
			if serr := saveRecognition(&rec); serr != nil && !errors.Is(serr, errNoDB) {
				log.Warnf("store failed recognition %s: %v", name, serr)
			}
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "width": b.Dx(), "height": b.Dy()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	rec := models.NewRecognition(name, "upload", b.Dx(), b.Dy(), results)
	rec.StorePath = relPath
	resp := gin.H{"file": name, "regions": results, "resolved": rec.Resolved}
	if rec.Average != nil {
		resp["average"] = *rec.Average
		resp["closest"] = rec.Closest
	}
	if hasCurrent {
		ranks, ok := ocr.Ranks(results)
		lobby := rank.AssignSelections(unrankedLobby(), ranks, ok)
		if est, err := rank.ComputeChanges(lobby, cur); err == nil {
			resp["estimate"] = est
		} else {
			resp["estimate_error"] = err.Error()
		}
	}
	if err := saveRecognition(&rec); err == nil {
		resp["id"] = rec.ID
	} else if !errors.Is(err, errNoDB) {
		log.Warnf("store recognition %s: %v", name, err)
	}
	c.JSON(http.StatusOK, resp)
}

func unrankedLobby() []rank.Rank {
	l := make([]rank.Rank, rank.LobbySize)
	for i := range l {
		l[i] = rank.Unranked
	}
	return l
}

func listHistoryHandler(c *gin.Context) {
	if db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": errNoDB.Error()})
		return
	}
	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}
	var recs []models.Recognition
	if err := db.Preload("Regions").Order("created_at desc").Limit(limit).Find(&recs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"recognitions": recs})
}

func getHistoryHandler(c *gin.Context) {
	if db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": errNoDB.Error()})
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var rec models.Recognition
	if err := db.Preload("Regions").First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, rec)
}
