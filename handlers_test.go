package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"dacalc/pkg/config"
	"dacalc/pkg/ocr"
)

type constEngine struct{ text string }

func (e constEngine) Text(image.Image) (string, error) { return e.text, nil }
func (e constEngine) Close() error                     { return nil }

// setupLocalServer wires the routes without a database and with a fake OCR engine.
func setupLocalServer(t *testing.T, secret string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	prevCfg, prevSecret, prevRec, prevDB := cfg, jwtSecret, recognizer, db
	t.Cleanup(func() { cfg, jwtSecret, recognizer, db = prevCfg, prevSecret, prevRec, prevDB })

	cfg = config.DefaultConfig()
	cfg.UploadBase = t.TempDir()
	jwtSecret = []byte(secret)
	db = nil
	rec, err := ocr.NewRecognizer(func() (ocr.Engine, error) { return constEngine{"Knight - 2"}, nil }, ocr.DefaultOptions())
	if err != nil {
		t.Fatalf("recognizer: %v", err)
	}
	t.Cleanup(func() { rec.Close() })
	recognizer = rec

	r := gin.New()
	setupRoutes(r)
	return r
}

func pngUpload(t *testing.T, w, h int, current string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	if current != "" {
		_ = mw.WriteField("current", current)
	}
	fw, _ := mw.CreateFormFile("file", "lobby.png")
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	if err := png.Encode(fw, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	_ = mw.Close()
	return buf, mw.FormDataContentType()
}

func TestRanksEndpoint(t *testing.T) {
	r := setupLocalServer(t, "")
	resp := performRequest(r, http.MethodGet, "/ranks", nil, "", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.Code, resp.Body.String())
	}
	var out struct {
		Ranks []struct {
			Name string `json:"name"`
			MMR  *int   `json:"mmr"`
		} `json:"ranks"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Ranks) != 37 {
		t.Fatalf("expected 37 ranks got %d", len(out.Ranks))
	}
	if out.Ranks[1].Name != "pawn2" || *out.Ranks[1].MMR != 540 {
		t.Fatalf("unexpected pawn2 entry %+v", out.Ranks[1])
	}
	if last := out.Ranks[36]; last.Name != "unranked" || last.MMR != nil {
		t.Fatalf("unranked should have no mmr: %+v", last)
	}
}

func TestMMREndpoint(t *testing.T) {
	r := setupLocalServer(t, "")
	body, _ := json.Marshal(map[string]any{
		"ranks":   []string{"knight1", "knight1", "knight1", "knight1", "knight1", "knight1", "knight1", "unranked"},
		"current": "knight1",
	})
	resp := performRequest(r, http.MethodPost, "/mmr", bytes.NewBuffer(body), "", "application/json")
	if resp.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.Code, resp.Body.String())
	}
	var out struct {
		Lines []string `json:"lines"`
	}
	_ = json.Unmarshal(resp.Body.Bytes(), &out)
	want := []string{"1st: +80", "2nd: +64", "3rd: +48", "4th: +32", "5th: -33", "6th: -49", "7th: -65", "8th: -81"}
	if strings.Join(out.Lines, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected lines %v", out.Lines)
	}
}

func TestMMREndpointErrors(t *testing.T) {
	r := setupLocalServer(t, "")
	all := make([]string, 8)
	for i := range all {
		all[i] = "unranked"
	}
	body, _ := json.Marshal(map[string]any{"ranks": all, "current": "pawn1"})
	resp := performRequest(r, http.MethodPost, "/mmr", bytes.NewBuffer(body), "", "application/json")
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d body=%s", resp.Code, resp.Body.String())
	}

	body, _ = json.Marshal(map[string]any{"ranks": []string{"pawn1", "queen3", "pawn1", "pawn1", "pawn1", "pawn1", "pawn1", "pawn1"}, "current": "pawn1"})
	resp = performRequest(r, http.MethodPost, "/mmr", bytes.NewBuffer(body), "", "application/json")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown rank got %d", resp.Code)
	}

	body, _ = json.Marshal(map[string]any{"ranks": []string{"pawn1"}, "current": "pawn1"})
	resp = performRequest(r, http.MethodPost, "/mmr", bytes.NewBuffer(body), "", "application/json")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for short lobby got %d", resp.Code)
	}
}

func TestMMRChartEndpoint(t *testing.T) {
	r := setupLocalServer(t, "")
	q := "/mmr/chart?ranks=pawn1,pawn2,pawn3,pawn4,pawn5,pawn6,pawn7,pawn8&current=pawn5"
	resp := performRequest(r, http.MethodGet, q, nil, "", "")
	if resp.Code != http.StatusOK || resp.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("status=%d type=%s", resp.Code, resp.Header().Get("Content-Type"))
	}
	if _, err := png.DecodeConfig(resp.Body); err != nil {
		t.Fatalf("not a png: %v", err)
	}
}

func TestRecognizeEndpoint(t *testing.T) {
	r := setupLocalServer(t, "")
	buf, ct := pngUpload(t, 1920, 1080, "knight2")
	resp := performRequest(r, http.MethodPost, "/recognize", buf, "", ct)
	if resp.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.Code, resp.Body.String())
	}
	var out struct {
		Regions []struct {
			Index    int    `json:"index"`
			Rank     string `json:"rank"`
			Resolved bool   `json:"resolved"`
		} `json:"regions"`
		Resolved int     `json:"resolved"`
		Average  float64 `json:"average"`
		Closest  string  `json:"closest"`
		Estimate *struct {
			Changes []struct {
				Delta float64 `json:"delta"`
			} `json:"changes"`
		} `json:"estimate"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Regions) != 8 || out.Resolved != 8 {
		t.Fatalf("unexpected regions %+v", out)
	}
	for i, reg := range out.Regions {
		if reg.Index != i || reg.Rank != "knight2" || !reg.Resolved {
			t.Fatalf("region %d: %+v", i, reg)
		}
	}
	if out.Average != 1260 || out.Closest != "knight2" {
		t.Fatalf("unexpected average %v closest %s", out.Average, out.Closest)
	}
	if out.Estimate == nil || len(out.Estimate.Changes) != 8 || out.Estimate.Changes[0].Delta != 80 {
		t.Fatalf("unexpected estimate %+v", out.Estimate)
	}
}

func TestRecognizeEndpointSmallCapture(t *testing.T) {
	r := setupLocalServer(t, "")
	buf, ct := pngUpload(t, 1280, 720, "")
	resp := performRequest(r, http.MethodPost, "/recognize", buf, "", ct)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d body=%s", resp.Code, resp.Body.String())
	}
}

func TestRecognizeEndpointRejectsText(t *testing.T) {
	r := setupLocalServer(t, "")
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	w, _ := mw.CreateFormFile("file", "sample.txt")
	_, _ = w.Write([]byte("SOME CONTENT"))
	_ = mw.Close()
	resp := performRequest(r, http.MethodPost, "/recognize", buf, "", mw.FormDataContentType())
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestHistoryWithoutDB(t *testing.T) {
	r := setupLocalServer(t, "")
	for _, p := range []string{"/history", "/history/1"} {
		resp := performRequest(r, http.MethodGet, p, nil, "", "")
		if resp.Code != http.StatusServiceUnavailable {
			t.Fatalf("%s: expected 503 got %d", p, resp.Code)
		}
	}
}

func TestJWTProtectsRoutes(t *testing.T) {
	r := setupLocalServer(t, "test-secret")
	body := `{"ranks":["pawn1","pawn1","pawn1","pawn1","pawn1","pawn1","pawn1","pawn1"],"current":"pawn1"}`

	resp := performRequest(r, http.MethodPost, "/mmr", strings.NewReader(body), "", "application/json")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	// /ranks stays public
	if resp := performRequest(r, http.MethodGet, "/ranks", nil, "", ""); resp.Code != http.StatusOK {
		t.Fatalf("expected public /ranks got %d", resp.Code)
	}

	token, _, err := issueToken("ci", time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	resp = performRequest(r, http.MethodPost, "/mmr", strings.NewReader(body), token, "application/json")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with token got %d body=%s", resp.Code, resp.Body.String())
	}

	expired, _, _ := issueToken("ci", time.Now().Add(-48*time.Hour))
	resp = performRequest(r, http.MethodPost, "/mmr", strings.NewReader(body), expired, "application/json")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token got %d", resp.Code)
	}
}

func TestTokenWithoutDB(t *testing.T) {
	r := setupLocalServer(t, "test-secret")
	body := `{"client_id":"ci","client_secret":"x"}`
	resp := performRequest(r, http.MethodPost, "/token", strings.NewReader(body), "", "application/json")
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}
