package web

import (
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "strconv"
    "strings"

    "github.com/rs/zerolog/log"

    "github.com/local/pagemerge/internal/imagerender"
    "github.com/local/pagemerge/internal/merge"
    "github.com/local/pagemerge/internal/metrics"
    "github.com/local/pagemerge/internal/mupdf"
    "github.com/local/pagemerge/internal/pages"
    "github.com/local/pagemerge/internal/selection"
    "github.com/local/pagemerge/internal/session"
    "github.com/local/pagemerge/internal/statuscheck"
)

// Web is the JSON surface over one session.
type Web struct {
    sess    *session.Session
    preview imagerender.Options
    checker *statuscheck.Checker
}

// Options configures the surface; Checker may be nil.
type Options struct {
    Preview imagerender.Options
    Checker *statuscheck.Checker
}

func New(sess *session.Session, opts Options) *Web {
    return &Web{sess: sess, preview: opts.Preview, checker: opts.Checker}
}

func (w *Web) RegisterRoutes(mux *http.ServeMux) {
    mux.HandleFunc("/health", func(wr http.ResponseWriter, r *http.Request){ wr.WriteHeader(http.StatusOK); _, _ = wr.Write([]byte("ok")) })
    mux.Handle("/metrics", metrics.Handler())
    mux.HandleFunc("/health/summary", w.get(w.handleHealthSummary))
    mux.HandleFunc("/api/status", w.get(w.handleStatus))
    mux.HandleFunc("/api/folder", w.post(w.handleFolder))
    mux.HandleFunc("/api/catalog", w.get(w.handleCatalog))
    mux.HandleFunc("/api/selection", w.get(w.handleSelection))
    mux.HandleFunc("/api/selection/add", w.post(w.handleAdd))
    mux.HandleFunc("/api/selection/remove", w.post(w.handleRemove))
    mux.HandleFunc("/api/selection/up", w.post(w.handleMove(w.sess.MoveUp)))
    mux.HandleFunc("/api/selection/down", w.post(w.handleMove(w.sess.MoveDown)))
    mux.HandleFunc("/api/selection/reposition", w.post(w.handleReposition))
    mux.HandleFunc("/api/output", w.post(w.handleOutput))
    mux.HandleFunc("/api/merge", w.post(w.handleMerge))
    mux.HandleFunc("/api/pages/", w.get(w.handlePage))
}

func (w *Web) get(next http.HandlerFunc) http.HandlerFunc { return method(http.MethodGet, next) }
func (w *Web) post(next http.HandlerFunc) http.HandlerFunc { return method(http.MethodPost, next) }

func method(m string, next http.HandlerFunc) http.HandlerFunc {
    return func(wr http.ResponseWriter, r *http.Request) {
        if r.Method != m {
            wr.WriteHeader(http.StatusMethodNotAllowed)
            return
        }
        next(wr, r)
    }
}

type pageView struct {
    Position int    `json:"position"`
    ID       uint64 `json:"id"`
    Label    string `json:"label"`
    File     string `json:"file"`
    Page     int    `json:"page"`
}

type skippedView struct {
    Path   string `json:"path"`
    Reason string `json:"reason"`
}

type catalogResp struct {
    Folder  string        `json:"folder"`
    Files   int           `json:"files"`
    Pages   []pageView    `json:"pages"`
    Skipped []skippedView `json:"skipped,omitempty"`
}

type selectionResp struct {
    Pages    []pageView `json:"pages"`
    Focus    int        `json:"focus"`
    Output   string     `json:"output"`
    CanMerge bool       `json:"can_merge"`
}

func views(ds []*pages.Descriptor) []pageView {
    out := make([]pageView, 0, len(ds))
    for i, d := range ds {
        out = append(out, pageView{Position: i, ID: uint64(d.ID), Label: d.Label, File: d.Source.Path, Page: d.PageNumber()})
    }
    return out
}

func catalogView(cat *pages.Catalog) catalogResp {
    resp := catalogResp{Pages: []pageView{}}
    if cat == nil {
        return resp
    }
    resp.Folder = cat.Folder
    resp.Files = len(cat.Files)
    resp.Pages = views(cat.Pages)
    for _, se := range cat.Skipped {
        resp.Skipped = append(resp.Skipped, skippedView{Path: se.Path, Reason: se.Err.Error()})
    }
    return resp
}

func (w *Web) selectionView() selectionResp {
    snap := w.sess.Snapshot()
    return selectionResp{
        Pages:    views(snap.Selection),
        Focus:    snap.Focus,
        Output:   snap.Output,
        CanMerge: w.sess.CanMerge(),
    }
}

func (w *Web) handleStatus(wr http.ResponseWriter, r *http.Request) {
    snap := w.sess.Snapshot()
    resp := map[string]any{
        "status":   snap.Status,
        "folder":   snap.Folder,
        "output":   snap.Output,
        "job_id":   snap.LastJob,
        "location": snap.Location,
    }
    // what other processes see; a dead mirror never fails the request
    mirrored, ok, err := w.sess.Mirrored(r.Context())
    switch {
    case err != nil:
        log.Warn().Err(err).Msg("status mirror read failed")
        resp["mirror_error"] = err.Error()
    case ok:
        resp["mirror"] = mirrored
    }
    writeJSON(wr, http.StatusOK, resp)
}

func (w *Web) handleHealthSummary(wr http.ResponseWriter, r *http.Request) {
    if w.checker == nil {
        http.Error(wr, "checks not configured", http.StatusNotFound); return
    }
    sum := w.checker.Summary(r.Context())
    code := http.StatusOK
    if !sum.Ready() { code = http.StatusServiceUnavailable }
    writeJSON(wr, code, sum)
}

type pathReq struct {
    Path string `json:"path"`
}

func (w *Web) handleFolder(wr http.ResponseWriter, r *http.Request) {
    var req pathReq
    if !decode(wr, r, &req) { return }
    if strings.TrimSpace(req.Path) == "" {
        http.Error(wr, "missing path", http.StatusBadRequest); return
    }
    cat, err := w.sess.Load(r.Context(), req.Path)
    if err != nil {
        writeError(wr, err); return
    }
    writeJSON(wr, http.StatusOK, catalogView(cat))
}

func (w *Web) handleCatalog(wr http.ResponseWriter, r *http.Request) {
    writeJSON(wr, http.StatusOK, catalogView(w.sess.Snapshot().Catalog))
}

func (w *Web) handleSelection(wr http.ResponseWriter, r *http.Request) {
    writeJSON(wr, http.StatusOK, w.selectionView())
}

type positionsReq struct {
    Positions []int `json:"positions"`
}

func (w *Web) handleAdd(wr http.ResponseWriter, r *http.Request) {
    var req positionsReq
    if !decode(wr, r, &req) { return }
    n, err := w.sess.Add(req.Positions)
    if err != nil {
        writeError(wr, err); return
    }
    writeJSON(wr, http.StatusOK, map[string]any{"added": n, "selection": w.selectionView()})
}

func (w *Web) handleRemove(wr http.ResponseWriter, r *http.Request) {
    var req positionsReq
    if !decode(wr, r, &req) { return }
    n, err := w.sess.Remove(req.Positions)
    if err != nil {
        writeError(wr, err); return
    }
    writeJSON(wr, http.StatusOK, map[string]any{"removed": n, "selection": w.selectionView()})
}

type positionReq struct {
    Position *int `json:"position"`
}

func (w *Web) handleMove(fn func(int) (int, error)) http.HandlerFunc {
    return func(wr http.ResponseWriter, r *http.Request) {
        var req positionReq
        if !decode(wr, r, &req) { return }
        if req.Position == nil {
            writeError(wr, selection.ErrEmptySelection); return
        }
        pos, err := fn(*req.Position)
        if err != nil {
            writeError(wr, err); return
        }
        writeJSON(wr, http.StatusOK, map[string]any{"position": pos, "selection": w.selectionView()})
    }
}

type repositionReq struct {
    From *int `json:"from"`
    To   int  `json:"to"`
}

func (w *Web) handleReposition(wr http.ResponseWriter, r *http.Request) {
    var req repositionReq
    if !decode(wr, r, &req) { return }
    if req.From == nil {
        writeError(wr, selection.ErrEmptySelection); return
    }
    pos, err := w.sess.Reposition(*req.From, req.To)
    if err != nil {
        writeError(wr, err); return
    }
    writeJSON(wr, http.StatusOK, map[string]any{"position": pos, "selection": w.selectionView()})
}

func (w *Web) handleOutput(wr http.ResponseWriter, r *http.Request) {
    var req pathReq
    if !decode(wr, r, &req) { return }
    w.sess.SetOutput(strings.TrimSpace(req.Path))
    writeJSON(wr, http.StatusOK, w.selectionView())
}

func (w *Web) handleMerge(wr http.ResponseWriter, r *http.Request) {
    id, err := w.sess.StartMerge()
    if err != nil {
        writeError(wr, err); return
    }
    writeJSON(wr, http.StatusAccepted, map[string]any{"job_id": id, "status": w.sess.Status()})
}

// handlePage serves /api/pages/{id}/preview (JPEG) and /api/pages/{id}/text.
func (w *Web) handlePage(wr http.ResponseWriter, r *http.Request) {
    rest := strings.TrimPrefix(r.URL.Path, "/api/pages/")
    idStr, what, ok := strings.Cut(rest, "/")
    if !ok || (what != "preview" && what != "text") {
        http.NotFound(wr, r); return
    }
    id, err := strconv.ParseUint(idStr, 10, 64)
    if err != nil {
        http.Error(wr, "invalid page id", http.StatusBadRequest); return
    }
    d, ok := w.sess.Snapshot().Catalog.ByID(pages.ID(id))
    if !ok {
        http.Error(wr, "page not in catalog", http.StatusNotFound); return
    }
    if what == "text" {
        w.servePageText(wr, d)
        return
    }
    w.servePreview(wr, r, d)
}

func (w *Web) servePreview(wr http.ResponseWriter, r *http.Request, d *pages.Descriptor) {
    etag := fmt.Sprintf(`"%s-%d-%d"`, d.Source.Digest, d.PageIndex, w.preview.DPI)
    wr.Header().Set("ETag", etag)
    if r.Header.Get("If-None-Match") == etag {
        wr.WriteHeader(http.StatusNotModified); return
    }
    img, width, height, err := imagerender.RenderPageToJPEG(d.Source.Data, d.PageIndex, w.preview)
    if err != nil {
        log.Error().Err(err).Str("page", d.Label).Msg("preview render failed")
        http.Error(wr, "render failed", http.StatusInternalServerError); return
    }
    wr.Header().Set("Content-Type", "image/jpeg")
    wr.Header().Set("X-Page-Width", strconv.Itoa(width))
    wr.Header().Set("X-Page-Height", strconv.Itoa(height))
    wr.Header().Set("Cache-Control", "private, max-age=3600")
    _, _ = wr.Write(img)
}

func (w *Web) servePageText(wr http.ResponseWriter, d *pages.Descriptor) {
    text, err := mupdf.PageText(d.Source.Data, d.PageIndex)
    if err != nil {
        log.Error().Err(err).Str("page", d.Label).Msg("page text failed")
        http.Error(wr, "text extraction failed", http.StatusInternalServerError); return
    }
    writeJSON(wr, http.StatusOK, map[string]any{
        "id":      uint64(d.ID),
        "label":   d.Label,
        "text":    text,
        "snippet": mupdf.Snippet(text, 80),
    })
}

func decode(wr http.ResponseWriter, r *http.Request, v any) bool {
    defer r.Body.Close()
    if err := json.NewDecoder(r.Body).Decode(v); err != nil {
        http.Error(wr, "invalid json", http.StatusBadRequest)
        return false
    }
    return true
}

func writeJSON(wr http.ResponseWriter, code int, v any) {
    wr.Header().Set("Content-Type", "application/json")
    wr.WriteHeader(code)
    _ = json.NewEncoder(wr).Encode(v)
}

// statusFor maps session errors to HTTP codes: caller warnings are 400.
func statusFor(err error) int {
    var se *pages.ScanError
    switch {
    case errors.As(err, &se) && se.Kind == pages.NotFound:
        return http.StatusNotFound
    case errors.Is(err, merge.ErrBusy):
        return http.StatusConflict
    case errors.Is(err, selection.ErrEmptySelection),
        errors.Is(err, selection.ErrUnknownID),
        errors.Is(err, pages.ErrPosition),
        errors.Is(err, session.ErrNothingToMerge),
        errors.Is(err, session.ErrNoOutput),
        errors.Is(err, session.ErrNoCatalog):
        return http.StatusBadRequest
    default:
        return http.StatusInternalServerError
    }
}

func writeError(wr http.ResponseWriter, err error) {
    code := statusFor(err)
    if code >= http.StatusInternalServerError {
        log.Error().Err(err).Msg("request failed")
    }
    writeJSON(wr, code, map[string]string{"error": err.Error()})
}
